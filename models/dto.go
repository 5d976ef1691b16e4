package models

import "time"

// Response is the JSON envelope every API reply is wrapped in.
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// TranscriptRequest asks for the normalized transcript of a video.
type TranscriptRequest struct {
	VideoID      string `json:"video_id"`
	LanguageCode string `json:"language_code,omitempty"`
}

// TranscriptResponse represents the transcript API response
type TranscriptResponse struct {
	VideoID    string `json:"video_id"`
	Transcript string `json:"transcript"`
	Size       string `json:"size"`
}

// DigestRequest represents the incoming request for a digest
type DigestRequest struct {
	VideoID         string   `json:"video_id"`
	LanguageCode    string   `json:"language_code,omitempty"`
	Mode            string   `json:"mode,omitempty"`
	PromptTemplate  string   `json:"prompt_template,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	DurationSeconds int      `json:"duration_seconds,omitempty"`
	ContentType     string   `json:"content_type,omitempty"`
}

type DigestResponse struct {
	VideoID  string `json:"video_id"`
	Mode     string `json:"mode"`
	Model    string `json:"model"`
	Response string `json:"response"`
}

// ProfileResponse is the authenticated identity with its credit balance.
type ProfileResponse struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email,omitempty"`
	Credits int    `json:"credits"`
}

// NewDigestResponse creates a response from a stored digest
func NewDigestResponse(d *Digest) *DigestResponse {
	return &DigestResponse{
		VideoID:  d.VideoID,
		Mode:     d.Mode,
		Model:    d.Model,
		Response: d.Content,
	}
}
