package digest

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/nijaru/yt-digest/errors"
)

func TestBuildRequiresMode(t *testing.T) {
	_, err := NewPromptBuilder().WithTranscript("text").Build()
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestBuildTemplate(t *testing.T) {
	p, err := NewPromptBuilder().WithMode(ModeTLDR).WithTranscript("the transcript").Build()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(p.User, "Write a concise summary"))
	assert.True(t, strings.HasSuffix(p.User, ":\n\nthe transcript"))
	assert.True(t, strings.HasPrefix(p.System, systemMessages[ModeTLDR]))
	assert.Contains(t, p.System, "TIMESTAMP USAGE RULES:")
	assert.True(t, strings.HasSuffix(p.System, "\n\n"+responseFormat))
	assert.NotContains(t, p.System, programmingFormat)
	assert.NotContains(t, p.System, mathFormat)
}

func TestBuildCustomModeUsesDefaultTemplate(t *testing.T) {
	p, err := NewPromptBuilder().WithMode(ModeCustom).WithTranscript("abc").Build()
	require.NoError(t, err)
	assert.Equal(t, strings.ReplaceAll(defaultTemplate, transcriptPlaceholder, "abc"), p.User)
	assert.True(t, strings.HasPrefix(p.System, defaultSystem))
}

func TestBuildCustomPromptWins(t *testing.T) {
	p, err := NewPromptBuilder().
		WithMode(ModeComprehensive).
		WithTranscript("the transcript").
		WithChunk(Chunk{Text: "chunk", Index: 0, Total: 2}).
		WithCustomPrompt("List the tools mentioned.").
		Build()
	require.NoError(t, err)
	assert.Equal(t, "the transcript\n\nList the tools mentioned.", p.User)
}

func TestBuildTagInstructions(t *testing.T) {
	tests := []struct {
		name    string
		tags    []string
		want    string
		notWant string
	}{
		{"programming", []string{"Vlog", " JavaScript "}, programmingFormat, mathFormat},
		{"math", []string{"Calculus"}, mathFormat, programmingFormat},
		{"programming wins", []string{"calculus", "devops"}, programmingFormat, mathFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPromptBuilder().WithMode(ModeArticle).WithTags(tt.tags).WithTranscript("x").Build()
			require.NoError(t, err)
			assert.Contains(t, p.System, " "+tt.want+"\n\n"+responseFormat)
			assert.NotContains(t, p.System, tt.notWant)
		})
	}
}

func TestBuildChunkPositions(t *testing.T) {
	base := NewPromptBuilder().WithMode(ModeComprehensive)

	first, err := base.WithChunk(Chunk{Text: "one", Index: 0, Total: 3}).Build()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(first.System, firstChunkAddendum))
	assert.Contains(t, first.User, "DO NOT CONCLUDE THE CONTENT")
	assert.True(t, strings.HasSuffix(first.User, "\n\none"))

	middle, err := base.WithChunk(Chunk{Text: "two", Index: 1, Total: 3}).WithPreviousContext("so far").Build()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(middle.System, middleChunkAddendum+previousContextHeader+"so far"))
	assert.Contains(t, middle.User, "CONTINUE THE CONTENT HERE")

	last, err := base.WithChunk(Chunk{Text: "three", Index: 2, Total: 3}).WithPreviousContext("so far").Build()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(last.System, lastChunkAddendum+previousContextHeader+"so far"))
	assert.Contains(t, last.User, "CONCLUDE THE CONTENT HERE")

	generic, err := NewPromptBuilder().WithMode(ModeTLDR).WithChunk(Chunk{Text: "t", Index: 1, Total: 2}).
		WithPreviousContext("p").Build()
	require.NoError(t, err)
	assert.Equal(t, genericChunkPrompt+"t", generic.User)
}

func TestBuildSingleChunkHasNoAddendum(t *testing.T) {
	p, err := NewPromptBuilder().WithMode(ModeArticle).WithChunk(Chunk{Text: "only", Index: 0, Total: 1}).Build()
	require.NoError(t, err)
	assert.NotContains(t, p.System, firstChunkAddendum)
}

func TestBuildMissingPreviousContextWarns(t *testing.T) {
	logger, hook := test.NewNullLogger()

	p, err := NewPromptBuilder().
		WithLogger(logger).
		WithMode(ModeArticle).
		WithChunk(Chunk{Text: "two", Index: 1, Total: 2}).
		Build()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p.System, previousContextHeader))

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestBuilderIsImmutable(t *testing.T) {
	tags := []string{"react"}
	base := NewPromptBuilder().WithMode(ModeTLDR).WithTags(tags)
	tags[0] = "cooking"

	a, err := base.WithTranscript("a").Build()
	require.NoError(t, err)
	b, err := base.WithTranscript("b").Build()
	require.NoError(t, err)

	assert.Contains(t, a.System, programmingFormat)
	assert.True(t, strings.HasSuffix(a.User, "\n\na"))
	assert.True(t, strings.HasSuffix(b.User, "\n\nb"))
}
