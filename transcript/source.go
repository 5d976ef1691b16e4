package transcript

import (
	"context"
	"fmt"

	apperrors "github.com/nijaru/yt-digest/errors"
)

// Source is one place a transcript can come from.
type Source interface {
	Name() string
	// FetchTranscript returns the normalized transcript or an error
	// wrapping errors.ErrFetchFailed.
	FetchTranscript(ctx context.Context, videoID, language string) (string, error)
}

// Observer receives one call per source attempt.
type Observer interface {
	SourceAttempt(ctx context.Context, source string, err error)
}

func fetchFailed(source string, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", apperrors.ErrFetchFailed, source, fmt.Sprintf(format, args...))
}

func fetchFailedErr(source string, err error) error {
	return fmt.Errorf("%w: %s: %w", apperrors.ErrFetchFailed, source, err)
}
