package validation

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/nijaru/yt-digest/errors"
	"github.com/nijaru/yt-digest/models"
)

// Checked in order; the first match wins.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11}).*`),
	regexp.MustCompile(`(?:embed/)([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`(?:shorts/)([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`^([0-9A-Za-z_-]{11})$`),
}

var validModes = map[string]bool{
	"tldr":          true,
	"key_insights":  true,
	"comprehensive": true,
	"article":       true,
	"custom":        true,
}

// ExtractVideoID accepts a watch, youtu.be, embed or shorts URL, or a bare
// 11 character ID, and returns the video ID.
func ExtractVideoID(input string) (string, error) {
	const op = "validation.ExtractVideoID"

	input = strings.TrimSpace(input)
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(input); m != nil {
			return m[1], nil
		}
	}
	return "", errors.InvalidInput(op, nil, "Could not extract YouTube video ID from provided URL or ID")
}

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateURL performs URL validation
func (v *Validator) ValidateURL(urlStr string) error {
	const op = "Validator.ValidateURL"

	if urlStr == "" {
		return errors.InvalidInput(op, nil, "URL is required")
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return errors.InvalidInput(op, err, "Invalid URL format")
	}

	// Protocol validation
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.InvalidInput(op, nil, "URL must use HTTP or HTTPS")
	}

	if !isYouTubeDomain(parsedURL.Hostname()) {
		return errors.InvalidInput(op, nil, "Only YouTube URLs are supported")
	}

	if _, err := ExtractVideoID(urlStr); err != nil {
		return errors.InvalidInput(op, err, "URL does not contain a video ID")
	}

	return nil
}

func isYouTubeDomain(host string) bool {
	host = strings.ToLower(host)
	switch host {
	case "youtube.com", "youtu.be":
		return true
	}
	return strings.HasSuffix(host, ".youtube.com")
}

// NormalizeTranscriptRequest resolves the video ID in place.
func (v *Validator) NormalizeTranscriptRequest(req *models.TranscriptRequest) error {
	const op = "Validator.NormalizeTranscriptRequest"

	if strings.TrimSpace(req.VideoID) == "" {
		return errors.InvalidInput(op, nil, "video_id is required")
	}
	id, err := ExtractVideoID(req.VideoID)
	if err != nil {
		return err
	}
	req.VideoID = id
	return nil
}

// NormalizeDigestRequest resolves the video ID, lowercases the mode and
// defaults it to comprehensive.
func (v *Validator) NormalizeDigestRequest(req *models.DigestRequest) error {
	const op = "Validator.NormalizeDigestRequest"

	if strings.TrimSpace(req.VideoID) == "" {
		return errors.InvalidInput(op, nil, "video_id is required")
	}
	id, err := ExtractVideoID(req.VideoID)
	if err != nil {
		return err
	}
	req.VideoID = id

	req.Mode = strings.ToLower(strings.TrimSpace(req.Mode))
	if req.Mode == "" {
		req.Mode = "comprehensive"
	}
	if !validModes[req.Mode] {
		return errors.InvalidInput(op, nil, fmt.Sprintf("Unknown mode %q", req.Mode))
	}
	if req.Mode == "custom" && strings.TrimSpace(req.PromptTemplate) == "" {
		return errors.InvalidInput(op, nil, "prompt_template is required for custom mode")
	}
	if req.DurationSeconds < 0 {
		return errors.InvalidInput(op, nil, "duration_seconds must not be negative")
	}
	return nil
}

// RequestValidationOpts holds options for request validation
type RequestValidationOpts struct {
	MaxContentLength int64
	AllowedMethods   []string
	RequireJSON      bool
}

// ValidateRequest validates HTTP requests
func (v *Validator) ValidateRequest(r *http.Request, opts RequestValidationOpts) error {
	const op = "Validator.ValidateRequest"

	// Method validation
	if len(opts.AllowedMethods) > 0 {
		methodAllowed := false
		for _, method := range opts.AllowedMethods {
			if r.Method == method {
				methodAllowed = true
				break
			}
		}
		if !methodAllowed {
			return errors.InvalidInput(op, nil, fmt.Sprintf("Method %s not allowed", r.Method))
		}
	}

	// Content type validation
	if opts.RequireJSON {
		if contentType := r.Header.Get("Content-Type"); !strings.Contains(contentType, "application/json") {
			return errors.InvalidInput(op, nil, "Content-Type must be application/json")
		}
	}

	// Content length validation
	if opts.MaxContentLength > 0 && r.ContentLength > opts.MaxContentLength {
		return errors.InvalidInput(op, nil, "Request body too large")
	}

	return nil
}
