package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/nijaru/yt-digest/config"
	"github.com/nijaru/yt-digest/credits"
	"github.com/nijaru/yt-digest/digest"
	"github.com/nijaru/yt-digest/errors"
	"github.com/nijaru/yt-digest/llm"
	"github.com/nijaru/yt-digest/models"
)

const videoID = "dQw4w9WgXcQ"

type fakeAuth struct{}

func (fakeAuth) ValidateToken(_ context.Context, token string) (*models.User, error) {
	switch token {
	case "rich-token":
		return &models.User{ID: "rich", Email: "rich@example.com"}, nil
	case "broke-token":
		return &models.User{ID: "broke"}, nil
	case "ghost-token":
		return &models.User{ID: "ghost"}, nil
	}
	return nil, stderrors.New("invalid token")
}

type fakeProfiles struct {
	mu       sync.Mutex
	credits  map[string]int
	deducted int
}

func (f *fakeProfiles) GetProfile(_ context.Context, userID string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.credits[userID]
	if !ok {
		return nil, nil
	}
	return &models.Profile{UserID: userID, Credits: n}, nil
}

func (f *fakeProfiles) DeductCredit(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credits[userID]--
	f.deducted++
	return f.credits[userID], nil
}

type fakeTranscripts struct {
	text string
	err  error
}

func (f fakeTranscripts) Fetch(context.Context, string, string) (string, error) {
	return f.text, f.err
}

type fakeProcessor struct {
	mu        sync.Mutex
	last      digest.Request
	content   string
	err       error
	fragments []llm.Fragment
}

func (f *fakeProcessor) Process(_ context.Context, req digest.Request) (string, error) {
	f.mu.Lock()
	f.last = req
	f.mu.Unlock()
	return f.content, f.err
}

func (f *fakeProcessor) Stream(_ context.Context, req digest.Request) (*llm.Stream, error) {
	f.mu.Lock()
	f.last = req
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan llm.Fragment, len(f.fragments))
	for _, fr := range f.fragments {
		ch <- fr
	}
	close(ch)
	return llm.NewStream(ch, nil), nil
}

type fakeMetadata struct{}

func (fakeMetadata) GetMetadata(_ context.Context, id string) (*models.VideoMetadata, error) {
	if id != videoID {
		return nil, errors.NotFound("fake", nil, "Video not found")
	}
	return &models.VideoMetadata{
		VideoID:         id,
		Title:           "Never Gonna Give You Up",
		Tags:            []string{"python", "music"},
		DurationSeconds: 3000,
	}, nil
}

type memHistory struct {
	mu      sync.Mutex
	digests []*models.Digest
}

func (m *memHistory) SaveDigest(_ context.Context, d *models.Digest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = fmt.Sprintf("d%d", len(m.digests)+1)
	m.digests = append(m.digests, d)
	return nil
}

func (m *memHistory) ListDigests(_ context.Context, id string, _ int) ([]*models.Digest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Digest
	for _, d := range m.digests {
		if d.VideoID == id {
			out = append(out, d)
		}
	}
	return out, nil
}

type fixture struct {
	server    *Server
	profiles  *fakeProfiles
	processor *fakeProcessor
	history   *memHistory
}

func testConfig() *config.Config {
	return &config.Config{
		ServerPort:     "0",
		Version:        "test",
		RequestTimeout: time.Minute,
		Metrics:        config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

type fakeCache struct{}

func (fakeCache) Stats() (int64, int64) { return 7, 2 }

func (fakeCache) Len() int { return 5 }

func newFixture(t *testing.T, transcripts TranscriptFetcher) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	profiles := &fakeProfiles{credits: map[string]int{"rich": 3, "broke": 0}}
	processor := &fakeProcessor{
		content:   "## Summary\nA song.",
		fragments: []llm.Fragment{{Text: "Hello, "}, {Text: "world"}},
	}
	history := &memHistory{}

	srv := NewServer(testConfig(), WithLogger(logger), WithServices(Services{
		Transcripts:    transcripts,
		Processor:      processor,
		Selector:       digest.NewSelector(digest.DefaultTables(), logger),
		Credits:        credits.NewGuard(profiles, credits.WithLogger(logger)),
		Auth:           fakeAuth{},
		Metadata:       fakeMetadata{},
		Profiles:       profiles,
		History:        history,
		Cache:          fakeCache{},
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
	}))
	return &fixture{server: srv, profiles: profiles, processor: processor, history: history}
}

func (f *fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) Response {
	t.Helper()
	var resp Response
	if data != nil {
		resp.Data = data
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	f := newFixture(t, fakeTranscripts{})
	rec := f.do(http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Errorf("expected a request id header")
	}
	var health struct {
		Status string `json:"status"`
		Cache  struct {
			Hits    int64 `json:"hits"`
			Misses  int64 `json:"misses"`
			Entries int   `json:"entries"`
		} `json:"cache"`
	}
	resp := decode(t, rec, &health)
	if !resp.Success || resp.RequestID == "" {
		t.Errorf("unexpected envelope %+v", resp)
	}
	if health.Status != "ok" || health.Cache.Hits != 7 || health.Cache.Misses != 2 || health.Cache.Entries != 5 {
		t.Errorf("unexpected health data %+v", health)
	}

	rec = f.do(http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "# metrics") {
		t.Errorf("metrics endpoint not mounted: %d %q", rec.Code, rec.Body.String())
	}
}

func TestTranscript(t *testing.T) {
	f := newFixture(t, fakeTranscripts{text: "Hello there. [[0.0]]\n\nGeneral Kenobi! [[4.2]]"})

	rec := f.do(http.MethodPost, "/api/v1/transcript", "", models.TranscriptRequest{
		VideoID: "https://www.youtube.com/watch?v=" + videoID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var out models.TranscriptResponse
	decode(t, rec, &out)
	if out.VideoID != videoID {
		t.Errorf("expected normalized id, got %q", out.VideoID)
	}
	if out.Size != "6 words, 45 characters" {
		t.Errorf("unexpected size %q", out.Size)
	}
}

func TestTranscriptErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		body any
		want int
	}{
		{"unavailable", fmt.Errorf("chain: %w", errors.ErrTranscriptUnavailable), models.TranscriptRequest{VideoID: videoID}, http.StatusNotFound},
		{"timeout", errors.ErrUpstreamTimeout, models.TranscriptRequest{VideoID: videoID}, http.StatusServiceUnavailable},
		{"other", stderrors.New("disk on fire"), models.TranscriptRequest{VideoID: videoID}, http.StatusInternalServerError},
		{"bad id", nil, models.TranscriptRequest{VideoID: "nope"}, http.StatusBadRequest},
		{"missing id", nil, models.TranscriptRequest{}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, fakeTranscripts{text: "text", err: tt.err})
			rec := f.do(http.MethodPost, "/api/v1/transcript", "", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			resp := decode(t, rec, nil)
			if resp.Success || resp.Error == "" {
				t.Errorf("expected an error envelope, got %+v", resp)
			}
			if tt.want == http.StatusInternalServerError && resp.Error != "processing error" {
				t.Errorf("internal details leaked: %q", resp.Error)
			}
		})
	}
}

func TestDigestDeductsAfterSuccess(t *testing.T) {
	f := newFixture(t, fakeTranscripts{text: "transcript text"})

	rec := f.do(http.MethodPost, "/api/v1/digest", "rich-token", models.DigestRequest{
		VideoID:     videoID,
		Mode:        "KEY_INSIGHTS",
		ContentType: "educational",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var out models.DigestResponse
	decode(t, rec, &out)
	if out.Response != "## Summary\nA song." || out.Mode != "key_insights" {
		t.Errorf("unexpected response %+v", out)
	}
	if f.profiles.credits["rich"] != 2 {
		t.Errorf("expected one credit deducted, balance %d", f.profiles.credits["rich"])
	}

	last := f.processor.last
	if last.DurationSeconds != 3000 {
		t.Errorf("expected duration from metadata, got %v", last.DurationSeconds)
	}
	if len(last.Tags) != 2 || last.Tags[0] != "python" {
		t.Errorf("expected tags from metadata, got %v", last.Tags)
	}
	if last.Model.Model != digest.UpgradeModel || out.Model != digest.UpgradeModel {
		t.Errorf("expected long educational video to upgrade, got %q", last.Model.Model)
	}
	if len(f.history.digests) != 1 || f.history.digests[0].UserID != "rich" {
		t.Errorf("expected digest saved to history, got %+v", f.history.digests)
	}
}

func TestDigestCreditRules(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  int
		msg   string
	}{
		{"no token", "", http.StatusUnauthorized, ""},
		{"bad token", "forged", http.StatusUnauthorized, ""},
		{"no profile", "ghost-token", http.StatusNotFound, "User profile not found"},
		{"no credits", "broke-token", http.StatusForbidden, "Insufficient credits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, fakeTranscripts{text: "transcript"})
			rec := f.do(http.MethodPost, "/api/v1/digest", tt.token, models.DigestRequest{VideoID: videoID})
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if tt.msg != "" {
				if resp := decode(t, rec, nil); resp.Error != tt.msg {
					t.Errorf("expected %q, got %q", tt.msg, resp.Error)
				}
			}
			if f.profiles.deducted != 0 {
				t.Errorf("no credit should be taken")
			}
		})
	}
}

func TestDigestFailureKeepsCredit(t *testing.T) {
	f := newFixture(t, fakeTranscripts{text: "transcript"})
	f.processor.err = fmt.Errorf("final: %w", errors.ErrUpstreamTimeout)

	rec := f.do(http.MethodPost, "/api/v1/digest", "rich-token", models.DigestRequest{VideoID: videoID, Mode: "tldr"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if f.profiles.deducted != 0 || len(f.history.digests) != 0 {
		t.Errorf("failed digest must not be charged or saved")
	}
}

func TestDigestValidation(t *testing.T) {
	f := newFixture(t, fakeTranscripts{text: "transcript"})

	rec := f.do(http.MethodPost, "/api/v1/digest", "rich-token", models.DigestRequest{VideoID: videoID, Mode: "custom"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("custom mode without a template: expected 400, got %d", rec.Code)
	}

	rec = f.do(http.MethodPost, "/api/v1/digest", "rich-token", models.DigestRequest{
		VideoID:        videoID,
		Mode:           "custom",
		PromptTemplate: "List every song title.",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.processor.last.CustomPrompt != "List every song title." {
		t.Errorf("custom prompt not passed through: %q", f.processor.last.CustomPrompt)
	}
}

func TestDigestStream(t *testing.T) {
	f := newFixture(t, fakeTranscripts{text: "transcript"})

	rec := f.do(http.MethodPost, "/api/v1/digest/stream", "rich-token", models.DigestRequest{VideoID: videoID, Mode: "tldr"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "Hello, world" {
		t.Errorf("unexpected body %q", got)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if f.profiles.deducted != 1 {
		t.Errorf("expected one deduction after a completed stream, got %d", f.profiles.deducted)
	}
}

func TestDigestStreamErrorKeepsCredit(t *testing.T) {
	f := newFixture(t, fakeTranscripts{text: "transcript"})
	f.processor.fragments = []llm.Fragment{{Text: "partial"}, {Err: stderrors.New("connection reset")}}

	rec := f.do(http.MethodPost, "/api/v1/digest/stream", "rich-token", models.DigestRequest{VideoID: videoID})
	if rec.Body.String() != "partial" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
	if f.profiles.deducted != 0 {
		t.Errorf("stream that failed must not be charged")
	}
}

func TestDigestStreamRejectsBrokeUser(t *testing.T) {
	f := newFixture(t, fakeTranscripts{text: "transcript"})
	rec := f.do(http.MethodPost, "/api/v1/digest/stream", "broke-token", models.DigestRequest{VideoID: videoID})
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestVideoData(t *testing.T) {
	f := newFixture(t, fakeTranscripts{})

	rec := f.do(http.MethodGet, "/api/v1/video-data?video_id=https://youtu.be/"+videoID, "rich-token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var meta models.VideoMetadata
	decode(t, rec, &meta)
	if meta.Title != "Never Gonna Give You Up" || meta.DurationSeconds != 3000 {
		t.Errorf("unexpected metadata %+v", meta)
	}

	rec = f.do(http.MethodGet, "/api/v1/video-data?video_id=", "rich-token", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing id, got %d", rec.Code)
	}

	rec = f.do(http.MethodGet, "/api/v1/video-data?video_id="+videoID, "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", rec.Code)
	}
}

func TestProfile(t *testing.T) {
	f := newFixture(t, fakeTranscripts{})

	rec := f.do(http.MethodGet, "/api/v1/user/profile", "rich-token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out models.ProfileResponse
	decode(t, rec, &out)
	if out.UserID != "rich" || out.Email != "rich@example.com" || out.Credits != 3 {
		t.Errorf("unexpected profile %+v", out)
	}

	rec = f.do(http.MethodGet, "/api/v1/user/profile", "broke-token", nil)
	decode(t, rec, &out)
	if rec.Code != http.StatusOK || out.Credits != 0 {
		t.Errorf("zero balance should still be readable: %d %+v", rec.Code, out)
	}

	rec = f.do(http.MethodGet, "/api/v1/user/profile", "ghost-token", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestDigestHistory(t *testing.T) {
	f := newFixture(t, fakeTranscripts{text: "transcript"})
	f.do(http.MethodPost, "/api/v1/digest", "rich-token", models.DigestRequest{VideoID: videoID, Mode: "tldr"})

	rec := f.do(http.MethodGet, "/api/v1/digests?video_id="+videoID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out []models.DigestResponse
	decode(t, rec, &out)
	if len(out) != 1 || out[0].Mode != "tldr" {
		t.Errorf("unexpected history %+v", out)
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err  error
		code int
		msg  string
	}{
		{errors.Forbidden("op", nil, "Insufficient credits"), http.StatusForbidden, "Insufficient credits"},
		{fmt.Errorf("x: %w", errors.ErrTranscriptUnavailable), http.StatusNotFound, "Transcript not available for this video"},
		{errors.ErrUpstreamTimeout, http.StatusServiceUnavailable, "Language model request timed out"},
		{errors.ErrUpstreamEmpty, http.StatusInternalServerError, "processing error"},
	}
	for _, tt := range tests {
		code, msg := mapError(tt.err)
		if code != tt.code || msg != tt.msg {
			t.Errorf("mapError(%v) = %d %q, want %d %q", tt.err, code, msg, tt.code, tt.msg)
		}
	}
}
