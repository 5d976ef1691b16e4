package scripts

import (
	"time"
)

// Config holds the configuration for the Runner
type Config struct {
	YtDlpPath   string        // Path to the yt-dlp executable
	Timeout     time.Duration // Per-invocation timeout
	TempDir     string        // Parent directory for per-run work dirs
	ProxyURL    string        // Optional proxy passed to yt-dlp
	Environment []string      // Additional environment variables
}

// Subtitles is a downloaded subtitle file.
type Subtitles struct {
	Content  string
	Format   string // "vtt" or "srt"
	Language string
}
