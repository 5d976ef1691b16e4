// Package storage keeps transcripts in an S3-compatible bucket such as
// DigitalOcean Spaces.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-digest/transcript"
)

type SpacesConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string
	Bucket    string
	// PathStyle addresses the bucket in the path instead of the host name.
	PathStyle bool
}

type SpacesClient struct {
	client *s3.Client
	bucket string
	logger logrus.FieldLogger
}

type storedTranscript struct {
	VideoID    string    `json:"video_id"`
	Transcript string    `json:"transcript"`
	SavedAt    time.Time `json:"saved_at"`
}

func NewSpacesClient(ctx context.Context, cfg SpacesConfig, logger logrus.FieldLogger) (*SpacesClient, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.Bucket == "" {
		return nil, errors.New("spaces: bucket is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, errors.Wrap(err, "load SDK config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return &SpacesClient{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

func objectKey(videoID string) string {
	return fmt.Sprintf("transcripts/%s.json", videoID)
}

func (s *SpacesClient) SaveTranscript(ctx context.Context, videoID, text string) error {
	data, err := json.Marshal(storedTranscript{
		VideoID:    videoID,
		Transcript: text,
		SavedAt:    time.Now().UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "marshal transcript")
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(videoID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return errors.Wrapf(err, "put %s", objectKey(videoID))
	}
	s.logger.WithField("video_id", videoID).Debug("Saved transcript to Spaces")
	return nil
}

// GetTranscript returns transcript.ErrNotStored when the object is missing.
func (s *SpacesClient) GetTranscript(ctx context.Context, videoID string) (string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(videoID)),
	})
	if err != nil {
		if isNotFound(err) {
			return "", transcript.ErrNotStored
		}
		return "", errors.Wrapf(err, "get %s", objectKey(videoID))
	}
	defer out.Body.Close()

	var stored storedTranscript
	if err := json.NewDecoder(out.Body).Decode(&stored); err != nil {
		return "", errors.Wrapf(err, "decode %s", objectKey(videoID))
	}
	if stored.Transcript == "" {
		return "", transcript.ErrNotStored
	}
	return stored.Transcript, nil
}

func (s *SpacesClient) DeleteTranscript(ctx context.Context, videoID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(videoID)),
	})
	return errors.Wrapf(err, "delete %s", objectKey(videoID))
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		switch coded.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
