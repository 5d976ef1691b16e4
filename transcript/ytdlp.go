package transcript

import (
	"context"

	"github.com/nijaru/yt-digest/scripts"
)

// SubtitleDownloader fetches a subtitle file for a video.
type SubtitleDownloader interface {
	DownloadSubtitles(ctx context.Context, videoID, language string) (*scripts.Subtitles, error)
}

// SubtitleToolSource runs the external downloader and parses whatever VTT
// or SRT file it produces. It is meant to sit last in the chain.
type SubtitleToolSource struct {
	downloader      SubtitleDownloader
	defaultLanguage string
}

func NewSubtitleToolSource(d SubtitleDownloader, defaultLanguage string) *SubtitleToolSource {
	if defaultLanguage == "" {
		defaultLanguage = "en"
	}
	return &SubtitleToolSource{downloader: d, defaultLanguage: defaultLanguage}
}

func (s *SubtitleToolSource) Name() string { return "ytdlp" }

func (s *SubtitleToolSource) FetchTranscript(ctx context.Context, videoID, language string) (string, error) {
	if language == "" {
		language = s.defaultLanguage
	}

	subs, err := s.downloader.DownloadSubtitles(ctx, videoID, language)
	if err != nil {
		return "", fetchFailedErr(s.Name(), err)
	}

	segments := ParseSubtitles(subs.Content, subs.Format)
	if len(segments) == 0 {
		return "", fetchFailed(s.Name(), "could not parse subtitle content")
	}
	text := FormatParagraphs(segments)
	if text == "" {
		return "", fetchFailed(s.Name(), "subtitles have no text")
	}
	return text, nil
}
