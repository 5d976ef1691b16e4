package transcript

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Fetcher runs the chain and writes provider results back to the stores so
// the next request for the same video is served locally.
type Fetcher struct {
	chain  *Chain
	stores *StoreSource
	logger logrus.FieldLogger
}

// NewFetcher builds a Fetcher. stores may be nil when nothing is persisted.
func NewFetcher(chain *Chain, stores *StoreSource, logger logrus.FieldLogger) *Fetcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Fetcher{chain: chain, stores: stores, logger: logger}
}

func (f *Fetcher) Fetch(ctx context.Context, videoID, language string) (string, error) {
	text, source, err := f.chain.FetchWithSource(ctx, videoID, language)
	if err != nil {
		return "", err
	}

	if f.stores != nil && source != f.stores.Name() {
		f.logger.WithFields(logrus.Fields{
			"video_id": videoID,
			"source":   source,
		}).Debug("Writing transcript back to stores")
		f.stores.SaveAll(context.WithoutCancel(ctx), videoID, text)
	}
	return text, nil
}
