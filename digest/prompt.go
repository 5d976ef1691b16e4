package digest

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	apperrors "github.com/nijaru/yt-digest/errors"
)

// Prompt is the finished system and user message pair.
type Prompt struct {
	System string
	User   string
}

// PromptBuilder is an immutable description of a prompt. Each With method
// returns a modified copy, so a partially configured builder can be shared
// and extended per chunk.
type PromptBuilder struct {
	mode       Mode
	tags       []string
	transcript string
	chunk      *Chunk
	previous   string
	custom     string
	logger     logrus.FieldLogger
}

func NewPromptBuilder() PromptBuilder {
	return PromptBuilder{logger: logrus.StandardLogger()}
}

func (b PromptBuilder) WithMode(m Mode) PromptBuilder {
	b.mode = m
	return b
}

func (b PromptBuilder) WithTags(tags []string) PromptBuilder {
	b.tags = slices.Clone(tags)
	return b
}

func (b PromptBuilder) WithTranscript(text string) PromptBuilder {
	b.transcript = text
	return b
}

func (b PromptBuilder) WithChunk(c Chunk) PromptBuilder {
	b.chunk = &c
	return b
}

func (b PromptBuilder) WithPreviousContext(s string) PromptBuilder {
	b.previous = s
	return b
}

func (b PromptBuilder) WithCustomPrompt(s string) PromptBuilder {
	b.custom = s
	return b
}

func (b PromptBuilder) WithLogger(l logrus.FieldLogger) PromptBuilder {
	if l != nil {
		b.logger = l
	}
	return b
}

func (b PromptBuilder) Build() (Prompt, error) {
	if b.mode == "" {
		return Prompt{}, fmt.Errorf("%w: prompt mode is required", apperrors.ErrConfiguration)
	}
	if b.logger == nil {
		b.logger = logrus.StandardLogger()
	}
	return Prompt{System: b.system(), User: b.user()}, nil
}

func (b PromptBuilder) system() string {
	base, ok := systemMessages[b.mode]
	if !ok {
		base = defaultSystem
	}

	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteString(timestampRules)
	switch {
	case matchesAny(b.tags, programmingTags):
		sb.WriteString(" " + programmingFormat)
	case matchesAny(b.tags, mathTags):
		sb.WriteString(" " + mathFormat)
	}
	sb.WriteString("\n\n" + responseFormat)

	if b.chunk != nil && b.chunk.Total > 1 {
		sb.WriteString(b.chunkAddendum())
	}
	return sb.String()
}

func (b PromptBuilder) chunkAddendum() string {
	c := b.chunk
	if c.IsFirst() {
		return firstChunkAddendum
	}
	if b.previous == "" {
		b.logger.WithFields(logrus.Fields{
			"chunk": c.Index + 1,
			"total": c.Total,
		}).Warn("No previous context for continuation chunk")
	}
	if c.IsLast() {
		return lastChunkAddendum + previousContextHeader + b.previous
	}
	return middleChunkAddendum + previousContextHeader + b.previous
}

func (b PromptBuilder) user() string {
	if b.custom != "" && b.transcript != "" {
		return b.transcript + "\n\n" + b.custom
	}
	if b.chunk != nil {
		return chunkPrompt(b.mode, *b.chunk)
	}
	tmpl, ok := templates[b.mode]
	if !ok {
		tmpl = defaultTemplate
	}
	return strings.ReplaceAll(tmpl, transcriptPlaceholder, b.transcript)
}

func chunkPrompt(m Mode, c Chunk) string {
	variants, ok := chunkPrompts[m]
	if !ok {
		return genericChunkPrompt + c.Text
	}
	switch {
	case c.IsFirst():
		return variants[0] + c.Text
	case c.IsLast():
		return variants[2] + c.Text
	default:
		return variants[1] + c.Text
	}
}

func matchesAny(tags, set []string) bool {
	for _, t := range tags {
		if slices.Contains(set, strings.ToLower(strings.TrimSpace(t))) {
			return true
		}
	}
	return false
}
