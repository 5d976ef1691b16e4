package sqlite

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nijaru/yt-digest/errors"
	"github.com/nijaru/yt-digest/models"
)

const defaultDigestLimit = 20

// SaveDigest records a generated digest, assigning an ID and timestamp when
// they are unset.
func (r *Repository) SaveDigest(ctx context.Context, d *models.Digest) error {
	const op = "SQLiteRepository.SaveDigest"

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	return r.db.withRetry(ctx, op, func(ctx context.Context) error {
		_, err := r.db.statements.insertDigest.ExecContext(ctx,
			d.ID,
			d.VideoID,
			d.UserID,
			d.Mode,
			d.Model,
			d.Content,
			d.CreatedAt,
		)
		return err
	})
}

// ListDigests returns the newest digests for a video first.
func (r *Repository) ListDigests(ctx context.Context, videoID string, limit int) ([]*models.Digest, error) {
	const op = "SQLiteRepository.ListDigests"

	if limit <= 0 {
		limit = defaultDigestLimit
	}

	rows, err := r.db.statements.listDigests.QueryContext(ctx, videoID, limit)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query digests")
	}
	defer rows.Close()

	var digests []*models.Digest
	for rows.Next() {
		d := &models.Digest{}
		if err := rows.Scan(&d.ID, &d.VideoID, &d.UserID, &d.Mode, &d.Model, &d.Content, &d.CreatedAt); err != nil {
			return nil, errors.Internal(op, err, "Failed to scan digest")
		}
		digests = append(digests, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal(op, err, "Failed to read digests")
	}
	return digests, nil
}
