package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/nijaru/yt-digest/errors"
	"github.com/nijaru/yt-digest/models"
	"github.com/nijaru/yt-digest/transcript"
)

type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// GetTranscript returns transcript.ErrNotStored when the video has no row.
func (r *Repository) GetTranscript(ctx context.Context, videoID string) (string, error) {
	t, err := r.FindTranscript(ctx, videoID)
	if errors.IsNotFound(err) {
		return "", transcript.ErrNotStored
	}
	if err != nil {
		return "", err
	}
	return t.Text, nil
}

func (r *Repository) SaveTranscript(ctx context.Context, videoID, text string) error {
	now := time.Now().UTC()
	return r.UpsertTranscript(ctx, &models.Transcript{
		VideoID:   videoID,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (r *Repository) UpsertTranscript(ctx context.Context, t *models.Transcript) error {
	const op = "SQLiteRepository.UpsertTranscript"

	return r.db.withRetry(ctx, op, func(ctx context.Context) error {
		_, err := r.db.statements.upsertTranscript.ExecContext(ctx,
			t.VideoID,
			t.Language,
			t.Text,
			t.Source,
			t.CreatedAt,
			t.UpdatedAt,
		)
		return err
	})
}

func (r *Repository) FindTranscript(ctx context.Context, videoID string) (*models.Transcript, error) {
	const op = "SQLiteRepository.FindTranscript"

	t := &models.Transcript{}
	err := r.db.statements.getTranscript.QueryRowContext(ctx, videoID).Scan(
		&t.VideoID,
		&t.Language,
		&t.Text,
		&t.Source,
		&t.CreatedAt,
		&t.UpdatedAt,
	)

	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound(op, nil, "Transcript not found")
	}
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query transcript")
	}
	return t, nil
}

func (r *Repository) DeleteTranscript(ctx context.Context, videoID string) error {
	const op = "SQLiteRepository.DeleteTranscript"

	return r.db.withRetry(ctx, op, func(ctx context.Context) error {
		_, err := r.db.statements.deleteTranscript.ExecContext(ctx, videoID)
		return err
	})
}
