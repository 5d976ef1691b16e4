package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
)

const (
	watchPageURL         = "https://www.youtube.com/watch?v="
	playerResponseMarker = "ytInitialPlayerResponse = "
	defaultNativeTries   = 4
	defaultNativeDelay   = 5 * time.Second
)

// NativeSource reads caption tracks from the watch page's embedded player
// response. Malformed caption documents are retried with doubling delays;
// every other failure is returned at once.
type NativeSource struct {
	client       *http.Client
	watchURL     string
	maxTries     uint
	initialDelay time.Duration
	logger       logrus.FieldLogger
}

type NativeOption func(*NativeSource)

func WithWatchURL(u string) NativeOption {
	return func(s *NativeSource) {
		s.watchURL = u
	}
}

// WithRetry sets the attempt count and the first retry delay.
func WithRetry(tries int, initial time.Duration) NativeOption {
	return func(s *NativeSource) {
		if tries > 0 {
			s.maxTries = uint(tries)
		}
		if initial >= 0 {
			s.initialDelay = initial
		}
	}
}

func WithNativeLogger(l logrus.FieldLogger) NativeOption {
	return func(s *NativeSource) {
		s.logger = l
	}
}

func NewNativeSource(client *http.Client, opts ...NativeOption) *NativeSource {
	if client == nil {
		client = http.DefaultClient
	}
	s := &NativeSource{
		client:       client,
		watchURL:     watchPageURL,
		maxTries:     defaultNativeTries,
		initialDelay: defaultNativeDelay,
		logger:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *NativeSource) Name() string { return "native" }

func (s *NativeSource) FetchTranscript(ctx context.Context, videoID, language string) (string, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.initialDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0

	attempt := 0
	segments, err := backoff.Retry(ctx, func() ([]Segment, error) {
		attempt++
		segs, err := s.fetchOnce(ctx, videoID, language)
		if err == nil {
			return segs, nil
		}
		if errors.Is(err, ErrMalformedResponse) {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"video_id": videoID,
				"attempt":  attempt,
			}).Warn("Malformed caption response, retrying")
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(s.maxTries))
	if err != nil {
		return "", fetchFailedErr(s.Name(), err)
	}

	text := FormatParagraphs(segments)
	if text == "" {
		return "", fetchFailed(s.Name(), "transcript has no text")
	}
	return text, nil
}

func (s *NativeSource) fetchOnce(ctx context.Context, videoID, language string) ([]Segment, error) {
	player, err := s.loadPlayerResponse(ctx, videoID)
	if err != nil {
		return nil, err
	}
	tracks, err := player.tracks()
	if err != nil {
		return nil, err
	}
	return fetchTimedText(ctx, s.client, pickTrack(tracks, language).BaseURL)
}

func (s *NativeSource) loadPlayerResponse(ctx context.Context, videoID string) (*playerResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.watchURL+videoID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("watch page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse watch page: %w", err)
	}

	var raw []byte
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		body := sel.Text()
		idx := strings.Index(body, playerResponseMarker)
		if idx < 0 {
			return true
		}
		raw = extractJSON([]byte(body[idx+len(playerResponseMarker):]))
		return raw == nil
	})
	if raw == nil {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}

	var player playerResponse
	if err := json.Unmarshal(raw, &player); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return &player, nil
}

// extractJSON returns the balanced JSON object at the start of b.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}
