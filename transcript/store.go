package transcript

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrNotStored is returned by a Store that has no transcript for a video.
var ErrNotStored = errors.New("transcript not stored")

// Store is a place previously fetched transcripts are kept.
type Store interface {
	GetTranscript(ctx context.Context, videoID string) (string, error)
	SaveTranscript(ctx context.Context, videoID, transcript string) error
	DeleteTranscript(ctx context.Context, videoID string) error
}

// NamedStore pairs a store with a label for logs and metrics.
type NamedStore struct {
	Name  string
	Store Store
}

// StoreSource checks each store in order. It is the first link of the chain.
// A blank stored transcript is removed from its store and counts as a miss.
type StoreSource struct {
	stores []NamedStore
	logger logrus.FieldLogger
}

func NewStoreSource(logger logrus.FieldLogger, stores ...NamedStore) *StoreSource {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &StoreSource{stores: stores, logger: logger}
}

func (s *StoreSource) Name() string { return "store" }

func (s *StoreSource) FetchTranscript(ctx context.Context, videoID, _ string) (string, error) {
	var misses []string
	for _, st := range s.stores {
		text, err := st.Store.GetTranscript(ctx, videoID)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		if err == nil {
			s.purge(ctx, st, videoID)
		}
		if err != nil && !errors.Is(err, ErrNotStored) {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"store":    st.Name,
				"video_id": videoID,
			}).Warn("Transcript store lookup failed")
		}
		misses = append(misses, st.Name)
	}
	return "", fetchFailed(s.Name(), "not found in [%s]", strings.Join(misses, ", "))
}

func (s *StoreSource) purge(ctx context.Context, st NamedStore, videoID string) {
	log := s.logger.WithFields(logrus.Fields{"store": st.Name, "video_id": videoID})
	if err := st.Store.DeleteTranscript(ctx, videoID); err != nil {
		log.WithError(err).Warn("Failed to remove blank transcript")
		return
	}
	log.Info("Removed blank transcript")
}

// SaveAll writes the transcript to every store, logging failures.
func (s *StoreSource) SaveAll(ctx context.Context, videoID, transcript string) {
	for _, st := range s.stores {
		if err := st.Store.SaveTranscript(ctx, videoID, transcript); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"store":    st.Name,
				"video_id": videoID,
			}).Warn("Failed to store transcript")
		}
	}
}
