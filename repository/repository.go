package repository

import (
	"context"

	"github.com/nijaru/yt-digest/models"
	"github.com/nijaru/yt-digest/transcript"
)

type TranscriptRepository interface {
	transcript.Store
	FindTranscript(ctx context.Context, videoID string) (*models.Transcript, error)
}

type DigestRepository interface {
	SaveDigest(ctx context.Context, d *models.Digest) error
	ListDigests(ctx context.Context, videoID string, limit int) ([]*models.Digest, error)
}
