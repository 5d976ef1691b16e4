package digest

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	apperrors "github.com/nijaru/yt-digest/errors"
	"github.com/nijaru/yt-digest/llm"
)

type Route string

const (
	RouteSinglePass Route = "single_pass"
	RouteChunked    Route = "chunked"
)

const (
	// SinglePassMaxSeconds is the longest video answered without chunking.
	SinglePassMaxSeconds = 2400
	// DefaultMaxInputTokens caps the transcript sent in a single pass.
	DefaultMaxInputTokens = 10000
	DefaultChunkDelay     = 20 * time.Second

	charsPerToken = 4
	contextTail   = 10
)

var conclusionMarkers = []string{"# Conclusion", "## Conclusion", "### Conclusion"}

// Request is one digest job. Model carries the selector's choice; its
// MaxTokens also bounds the chunk size.
type Request struct {
	Transcript      string
	Mode            Mode
	CustomPrompt    string
	Tags            []string
	DurationSeconds float64
	Model           ModelConfig
}

// Pacing is called before every chunk call but the first and before the
// final synthesis call.
type Pacing func(ctx context.Context) error

// SleepPacing waits d or until ctx is done.
func SleepPacing(d time.Duration) Pacing {
	return func(ctx context.Context) error {
		if d <= 0 {
			return ctx.Err()
		}
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	}
}

// NoPacing never waits.
func NoPacing(ctx context.Context) error { return ctx.Err() }

type Observer interface {
	ChunkProcessed(ctx context.Context, mode Mode, err error)
	DigestCompleted(ctx context.Context, mode Mode, route Route, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ChunkProcessed(context.Context, Mode, error) {}

func (nopObserver) DigestCompleted(context.Context, Mode, Route, time.Duration, error) {}

type Processor struct {
	client         llm.Client
	pacing         Pacing
	maxInputTokens int
	logger         logrus.FieldLogger
	observer       Observer
}

type ProcessorOption func(*Processor)

func WithPacing(p Pacing) ProcessorOption {
	return func(pr *Processor) {
		if p != nil {
			pr.pacing = p
		}
	}
}

func WithChunkDelay(d time.Duration) ProcessorOption {
	return WithPacing(SleepPacing(d))
}

func WithMaxInputTokens(n int) ProcessorOption {
	return func(pr *Processor) {
		if n > 0 {
			pr.maxInputTokens = n
		}
	}
}

func WithLogger(l logrus.FieldLogger) ProcessorOption {
	return func(pr *Processor) {
		if l != nil {
			pr.logger = l
		}
	}
}

func WithObserver(o Observer) ProcessorOption {
	return func(pr *Processor) {
		if o != nil {
			pr.observer = o
		}
	}
}

func NewProcessor(client llm.Client, opts ...ProcessorOption) *Processor {
	p := &Processor{
		client:         client,
		pacing:         SleepPacing(DefaultChunkDelay),
		maxInputTokens: DefaultMaxInputTokens,
		logger:         logrus.StandardLogger(),
		observer:       nopObserver{},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// RouteFor picks single pass for short videos in short modes, or for any
// short video when the caller streams.
func RouteFor(mode Mode, durationSeconds float64, streaming bool) Route {
	if durationSeconds <= SinglePassMaxSeconds && (mode.IsShort() || streaming) {
		return RouteSinglePass
	}
	return RouteChunked
}

// Process returns the finished digest text.
func (p *Processor) Process(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	route := RouteFor(req.Mode, req.DurationSeconds, false)

	var (
		out string
		err error
	)
	if route == RouteSinglePass {
		out, err = p.singlePass(ctx, req)
	} else {
		out, err = p.chunked(ctx, req)
	}
	p.observer.DigestCompleted(ctx, req.Mode, route, time.Since(start), err)
	return out, err
}

// Stream returns the digest as fragments. Chunked jobs are synthesized in
// full first and delivered as a single fragment.
func (p *Processor) Stream(ctx context.Context, req Request) (*llm.Stream, error) {
	start := time.Now()
	route := RouteFor(req.Mode, req.DurationSeconds, true)

	if route == RouteChunked {
		out, err := p.chunked(ctx, req)
		p.observer.DigestCompleted(ctx, req.Mode, route, time.Since(start), err)
		if err != nil {
			return nil, err
		}
		return llm.TextStream(out), nil
	}

	prompt, text, err := p.singlePassPrompt(req)
	if err != nil {
		return nil, err
	}
	s, err := p.client.Stream(ctx, p.llmRequest(req, prompt, text))
	p.observer.DigestCompleted(ctx, req.Mode, route, time.Since(start), err)
	return s, err
}

func (p *Processor) singlePass(ctx context.Context, req Request) (string, error) {
	prompt, text, err := p.singlePassPrompt(req)
	if err != nil {
		return "", err
	}
	return p.client.Complete(ctx, p.llmRequest(req, prompt, text))
}

func (p *Processor) singlePassPrompt(req Request) (Prompt, string, error) {
	text, truncated := Truncate(req.Transcript, p.maxInputTokens)
	if truncated {
		p.logger.WithFields(logrus.Fields{
			"original_chars":  len(req.Transcript),
			"truncated_chars": len(text),
		}).Info("Transcript truncated for single pass")
	}
	prompt, err := p.builder(req).
		WithTranscript(text).
		WithCustomPrompt(req.CustomPrompt).
		Build()
	return prompt, text, err
}

func (p *Processor) chunked(ctx context.Context, req Request) (string, error) {
	maxTokens := req.Model.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	chunks := Split(req.Transcript, maxTokens*charsPerToken)
	base := p.builder(req)
	log := p.logger.WithFields(logrus.Fields{"mode": req.Mode, "chunks": len(chunks)})

	var combined strings.Builder
	previous := ""
	for _, c := range chunks {
		if !c.IsFirst() {
			if err := p.pacing(ctx); err != nil {
				return "", err
			}
		}

		prompt, err := base.WithChunk(c).WithPreviousContext(previous).Build()
		if err != nil {
			return "", err
		}

		out, err := p.client.Complete(ctx, p.llmRequest(req, prompt, c.Text))
		p.observer.ChunkProcessed(ctx, req.Mode, err)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			log.WithError(err).WithField("chunk", c.Index+1).Error("Chunk processing failed")
			out = ""
		}

		if !c.IsLast() {
			out = StripConclusion(out)
		}
		combined.WriteString("\n\n")
		combined.WriteString(out)
		previous = PreviousContext(out)
	}

	if err := p.pacing(ctx); err != nil {
		return "", err
	}

	joined := combined.String()
	prompt, err := base.WithTranscript(joined).WithCustomPrompt(req.CustomPrompt).Build()
	if err != nil {
		return "", err
	}

	final, err := p.client.Complete(ctx, p.llmRequest(req, prompt, joined))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.WithError(err).Error("Final synthesis failed, returning combined chunks")
		final = joined
	}

	result := strings.TrimSpace(final)
	if result == "" {
		return "", fmt.Errorf("%w: no content produced for %d chunks", apperrors.ErrUpstreamEmpty, len(chunks))
	}
	return result, nil
}

func (p *Processor) builder(req Request) PromptBuilder {
	return NewPromptBuilder().
		WithMode(req.Mode).
		WithTags(req.Tags).
		WithLogger(p.logger)
}

func (p *Processor) llmRequest(req Request, prompt Prompt, input string) llm.Request {
	return llm.Request{
		Model:       req.Model.Model,
		Temperature: req.Model.Temperature,
		System:      prompt.System,
		Prompt:      prompt.User,
		MaxTokens:   InferOutputTokens(req.Mode, input),
	}
}

// Truncate caps text at maxTokens estimated tokens and appends a note
// saying so.
func Truncate(text string, maxTokens int) (string, bool) {
	if maxTokens <= 0 || len(text) <= maxTokens*charsPerToken {
		return text, false
	}
	cut := maxTokens * charsPerToken
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + fmt.Sprintf(
		"\n\n[Note: This transcript was truncated from %d to %d characters due to token limits.]",
		len(text), cut), true
}

// InferOutputTokens scales the mode's base budget by up to 3x for inputs
// above roughly 1000 tokens.
func InferOutputTokens(mode Mode, input string) int {
	base := mode.BaseOutputTokens()
	est := len(input) / charsPerToken
	scale := 1.0
	if est > 1000 {
		scale = min(3.0, 1.0+float64(est-1000)/1000*0.2)
	}
	return int(float64(base) * scale)
}

// StripConclusion drops the first conclusion heading and everything after
// it.
func StripConclusion(text string) string {
	cut := -1
	for _, m := range conclusionMarkers {
		if i := strings.Index(text, m); i >= 0 && (cut < 0 || i < cut) {
			cut = i
		}
	}
	if cut < 0 {
		return text
	}
	return strings.TrimSpace(text[:cut])
}

// PreviousContext is the last ten sentences of out, or all of it when it is
// shorter.
func PreviousContext(out string) string {
	parts := strings.Split(out, ". ")
	if len(parts) <= contextTail {
		return out
	}
	return strings.Join(parts[len(parts)-contextTail:], ". ")
}
