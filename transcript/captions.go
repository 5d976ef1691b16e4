package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// CaptionsSource lists caption tracks through the innertube player endpoint
// and downloads the best matching track.
type CaptionsSource struct {
	client    *http.Client
	playerURL string
}

type CaptionsOption func(*CaptionsSource)

// WithPlayerURL overrides the innertube player endpoint.
func WithPlayerURL(u string) CaptionsOption {
	return func(s *CaptionsSource) {
		s.playerURL = u
	}
}

func NewCaptionsSource(client *http.Client, opts ...CaptionsOption) *CaptionsSource {
	if client == nil {
		client = http.DefaultClient
	}
	s := &CaptionsSource{client: client, playerURL: innertubePlayerURL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CaptionsSource) Name() string { return "captions" }

func (s *CaptionsSource) FetchTranscript(ctx context.Context, videoID, language string) (string, error) {
	tracks, err := s.listTracks(ctx, videoID)
	if err != nil {
		return "", fetchFailedErr(s.Name(), err)
	}

	track := pickTrack(tracks, language)
	segments, err := fetchTimedText(ctx, s.client, track.BaseURL)
	if err != nil {
		return "", fetchFailedErr(s.Name(), err)
	}

	text := FormatParagraphs(segments)
	if text == "" {
		return "", fetchFailed(s.Name(), "caption track %s has no text", track.LanguageCode)
	}
	return text, nil
}

func (s *CaptionsSource) listTracks(ctx context.Context, videoID string) ([]captionTrack, error) {
	body, err := json.Marshal(playerRequest{
		VideoID: videoID,
		Context: playerContext{
			Client: playerClient{
				ClientName:        "ANDROID",
				ClientVersion:     androidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.playerURL+"?prettyPrint=false", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", androidUA)
	req.Header.Set("X-Youtube-Client-Name", "3")
	req.Header.Set("X-Youtube-Client-Version", androidVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("player request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("player returned status %d: %s", resp.StatusCode, snippet)
	}

	var player playerResponse
	if err := json.NewDecoder(resp.Body).Decode(&player); err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
	}
	return player.tracks()
}
