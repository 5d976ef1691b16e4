package transcript

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	apperrors "github.com/nijaru/yt-digest/errors"
)

// Chain tries its sources in order and returns the first success.
type Chain struct {
	sources  []Source
	logger   logrus.FieldLogger
	observer Observer
}

type ChainOption func(*Chain)

func WithLogger(l logrus.FieldLogger) ChainOption {
	return func(c *Chain) {
		c.logger = l
	}
}

func WithObserver(o Observer) ChainOption {
	return func(c *Chain) {
		c.observer = o
	}
}

func NewChain(sources []Source, opts ...ChainOption) *Chain {
	c := &Chain{
		sources: sources,
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sources returns the configured source names in order.
func (c *Chain) Sources() []string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name()
	}
	return names
}

// Fetch returns the transcript from the first source that succeeds.
func (c *Chain) Fetch(ctx context.Context, videoID, language string) (string, error) {
	text, _, err := c.FetchWithSource(ctx, videoID, language)
	return text, err
}

// FetchWithSource is Fetch that also reports which source answered. An empty
// chain fails with errors.ErrNoSources; a chain whose sources all failed
// fails with errors.ErrTranscriptUnavailable carrying the last failure.
func (c *Chain) FetchWithSource(ctx context.Context, videoID, language string) (string, string, error) {
	const op = "Chain.Fetch"

	if len(c.sources) == 0 {
		return "", "", apperrors.ErrNoSources
	}

	logger := c.logger.WithFields(logrus.Fields{
		"op":       op,
		"video_id": videoID,
		"language": language,
	})

	var lastErr error
	for _, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}

		text, err := src.FetchTranscript(ctx, videoID, language)
		if c.observer != nil {
			c.observer.SourceAttempt(ctx, src.Name(), err)
		}
		if err == nil {
			logger.WithField("source", src.Name()).Debug("Transcript fetched")
			return text, src.Name(), nil
		}

		lastErr = err
		logger.WithError(err).WithField("source", src.Name()).Warn("Transcript source failed")
	}

	logger.WithError(lastErr).Error("All transcript sources failed")
	return "", "", fmt.Errorf("%w: all transcript sources failed: %v", apperrors.ErrTranscriptUnavailable, lastErr)
}
