package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ServiceSource posts the watch URL to a third-party transcription service.
type ServiceSource struct {
	client   *http.Client
	url      string
	maxTries uint
	delay    time.Duration
}

type serviceRequest struct {
	VideoURL   string `json:"videoUrl"`
	ForceProxy bool   `json:"forceProxy"`
}

type serviceResponse struct {
	Success              bool `json:"success"`
	TranscriptionResults []struct {
		Success       bool `json:"success"`
		HasTranscript bool `json:"hasTranscript"`
		Transcript    []struct {
			Text   string  `json:"text"`
			Offset float64 `json:"offset"`
		} `json:"transcript"`
	} `json:"transcriptionResults"`
}

type ServiceOption func(*ServiceSource)

// WithServiceRetry retries rate limited and gateway failures.
func WithServiceRetry(tries int, delay time.Duration) ServiceOption {
	return func(s *ServiceSource) {
		if tries > 0 {
			s.maxTries = uint(tries)
		}
		s.delay = delay
	}
}

func NewServiceSource(client *http.Client, url string, opts ...ServiceOption) *ServiceSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	s := &ServiceSource{client: client, url: url, maxTries: 1, delay: time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ServiceSource) Name() string { return "service" }

func (s *ServiceSource) FetchTranscript(ctx context.Context, videoID, _ string) (string, error) {
	body, err := json.Marshal(serviceRequest{
		VideoURL:   "https://www.youtube.com/watch?v=" + videoID,
		ForceProxy: false,
	})
	if err != nil {
		return "", fetchFailedErr(s.Name(), err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.delay

	data, err := backoff.Retry(ctx, func() (*serviceResponse, error) {
		return s.post(ctx, body)
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(s.maxTries))
	if err != nil {
		return "", fetchFailedErr(s.Name(), err)
	}

	segments, err := data.segments()
	if err != nil {
		return "", fetchFailedErr(s.Name(), err)
	}
	text := FormatParagraphs(segments)
	if text == "" {
		return "", fetchFailed(s.Name(), "transcript has no text")
	}
	return text, nil
}

func (s *ServiceSource) post(ctx context.Context, body []byte) (*serviceResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", browserUA)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("service request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return nil, fmt.Errorf("API request failed with status %d", resp.StatusCode)
	default:
		return nil, backoff.Permanent(fmt.Errorf("API request failed with status %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var data serviceResponse
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("invalid JSON response: %w", err))
	}
	return &data, nil
}

func (r *serviceResponse) segments() ([]Segment, error) {
	if !r.Success {
		return nil, errors.New("API request was not successful")
	}
	if len(r.TranscriptionResults) == 0 {
		return nil, errors.New("no transcription results found")
	}
	result := r.TranscriptionResults[0]
	if !result.Success || !result.HasTranscript {
		return nil, errors.New("no transcript available for this video")
	}
	if len(result.Transcript) == 0 {
		return nil, errors.New("no transcript segments found")
	}

	segments := make([]Segment, 0, len(result.Transcript))
	for _, t := range result.Transcript {
		segments = append(segments, Segment{Start: t.Offset, Text: CleanText(t.Text)})
	}
	return segments, nil
}
