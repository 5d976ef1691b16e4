package models

import (
	"time"
)

// Transcript is a normalized transcript as persisted by the local stores.
type Transcript struct {
	VideoID   string    `json:"video_id"`
	Language  string    `json:"language,omitempty"`
	Text      string    `json:"transcript"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Digest is one generated digest kept in the local history.
type Digest struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video_id"`
	UserID    string    `json:"user_id,omitempty"`
	Mode      string    `json:"mode"`
	Model     string    `json:"model"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// VideoMetadata is what the YouTube Data API reports about a video.
type VideoMetadata struct {
	VideoID         string   `json:"video_id"`
	Title           string   `json:"title"`
	ChannelTitle    string   `json:"channel_title"`
	Description     string   `json:"description"`
	Tags            []string `json:"tags"`
	CategoryID      string   `json:"category_id,omitempty"`
	ThumbnailURL    string   `json:"thumbnail_url,omitempty"`
	ViewCount       int64    `json:"view_count"`
	LikeCount       int64    `json:"like_count"`
	CommentCount    int64    `json:"comment_count"`
	DurationSeconds int      `json:"duration_seconds"`
	PublishedAt     string   `json:"published_at,omitempty"`
}

// DurationMinutes rounds the duration down to whole minutes.
func (m *VideoMetadata) DurationMinutes() int {
	return m.DurationSeconds / 60
}

// Profile is a row of the remote profiles table.
type Profile struct {
	ID         string `json:"id,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	AnonUserID string `json:"anon_user_id,omitempty"`
	Credits    int    `json:"credits"`
}

// User is an authenticated identity.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}
