// Package digest turns a normalized transcript into written content. It
// splits long transcripts into chunks, builds prompts, picks a model and
// drives the LLM calls that produce the final digest.
package digest

import (
	"fmt"
	"strings"

	apperrors "github.com/nijaru/yt-digest/errors"
)

type Mode string

const (
	ModeTLDR          Mode = "tldr"
	ModeKeyInsights   Mode = "key_insights"
	ModeComprehensive Mode = "comprehensive"
	ModeArticle       Mode = "article"
	ModeCustom        Mode = "custom"
)

var Modes = []Mode{ModeTLDR, ModeKeyInsights, ModeComprehensive, ModeArticle, ModeCustom}

func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown processing mode %q", apperrors.ErrConfiguration, s)
}

// IsShort reports whether the mode can be answered in a single pass.
func (m Mode) IsShort() bool {
	return m == ModeTLDR || m == ModeKeyInsights
}

// BaseOutputTokens is the output budget before input-length scaling.
func (m Mode) BaseOutputTokens() int {
	switch m {
	case ModeKeyInsights:
		return 2048
	case ModeComprehensive, ModeArticle:
		return 4096
	default:
		return 1024
	}
}

func (m Mode) String() string {
	return string(m)
}
