package validation

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nijaru/yt-digest/models"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"watch URL", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"watch URL with params", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10s", "dQw4w9WgXcQ", false},
		{"short URL", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"embed URL", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"shorts URL", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"bare ID", "dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"bare ID with spaces", "  dQw4w9WgXcQ ", "dQw4w9WgXcQ", false},
		{"too short", "abc", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractVideoID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractVideoID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractVideoID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"Empty URL", "", true},
		{"JavaScript URL", "javascript:alert(1)", true},
		{"Non-HTTP scheme", "ftp://example.com", true},
		{"Valid YouTube URL", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", false},
		{"Valid YouTube shorts URL", "https://www.youtube.com/shorts/dQw4w9WgXcQ", false},
		{"Valid YouTube short URL", "https://youtu.be/dQw4w9WgXcQ", false},
		{"YouTube URL without video ID", "https://www.youtube.com/watch", true},
		{"YouTube URL with empty video ID", "https://www.youtube.com/watch?v=", true},
		{"Non-YouTube URL", "https://example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsYouTubeDomain(t *testing.T) {
	tests := []struct {
		hostname string
		want     bool
	}{
		{"youtube.com", true},
		{"www.youtube.com", true},
		{"m.youtube.com", true},
		{"youtu.be", true},
		{"example.com", false},
		{"youtube.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.hostname, func(t *testing.T) {
			if got := isYouTubeDomain(tt.hostname); got != tt.want {
				t.Errorf("isYouTubeDomain() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeDigestRequest(t *testing.T) {
	validator := NewValidator()

	req := &models.DigestRequest{VideoID: "https://youtu.be/dQw4w9WgXcQ"}
	if err := validator.NormalizeDigestRequest(req); err != nil {
		t.Fatalf("NormalizeDigestRequest() error = %v", err)
	}
	if req.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("got video id %q want dQw4w9WgXcQ", req.VideoID)
	}
	if req.Mode != "comprehensive" {
		t.Errorf("got mode %q want comprehensive", req.Mode)
	}

	bad := []*models.DigestRequest{
		{VideoID: ""},
		{VideoID: "dQw4w9WgXcQ", Mode: "poem"},
		{VideoID: "dQw4w9WgXcQ", Mode: "custom"},
		{VideoID: "dQw4w9WgXcQ", DurationSeconds: -1},
	}
	for _, r := range bad {
		if err := validator.NormalizeDigestRequest(r); err == nil {
			t.Errorf("expected error for %+v", r)
		}
	}
}

func TestValidateRequest(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name           string
		method         string
		contentType    string
		contentLength  int
		options        RequestValidationOpts
		wantErr        bool
		wantErrMessage string
	}{
		{
			name:    "GET request with default options",
			method:  "GET",
			options: RequestValidationOpts{},
		},
		{
			name:          "POST request with valid Content-Type",
			method:        "POST",
			contentType:   "application/json",
			contentLength: 100,
			options:       RequestValidationOpts{RequireJSON: true},
		},
		{
			name:           "PUT request with invalid Content-Type",
			method:         "PUT",
			contentType:    "text/plain",
			contentLength:  100,
			options:        RequestValidationOpts{RequireJSON: true},
			wantErr:        true,
			wantErrMessage: "application/json",
		},
		{
			name:           "POST request with excessive content length",
			method:         "POST",
			contentType:    "application/json",
			contentLength:  2 * 1024 * 1024,
			options:        RequestValidationOpts{MaxContentLength: 1024 * 1024},
			wantErr:        true,
			wantErrMessage: "body too large",
		},
		{
			name:           "Method not allowed",
			method:         "DELETE",
			options:        RequestValidationOpts{AllowedMethods: []string{"GET", "POST"}},
			wantErr:        true,
			wantErrMessage: "method",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			req.ContentLength = int64(tt.contentLength)

			err := validator.ValidateRequest(req, tt.options)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(strings.ToLower(err.Error()), strings.ToLower(tt.wantErrMessage)) {
				t.Errorf("ValidateRequest() error message = %v, want it to contain %v", err.Error(), tt.wantErrMessage)
			}
		})
	}
}
