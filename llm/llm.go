// Package llm defines the chat completion contract the digest pipeline uses
// and an implementation for OpenAI compatible endpoints.
package llm

import "context"

// Request is one chat completion call.
type Request struct {
	Model       string
	Temperature float64
	System      string
	Prompt      string
	MaxTokens   int
}

// Client issues chat completions. Complete fails with errors.ErrUpstreamEmpty
// when the provider returns no text and with errors.ErrUpstreamTimeout when
// the call exceeds its deadline.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Stream(ctx context.Context, req Request) (*Stream, error)
}

// Fragment is one piece of a streamed response. A fragment with Err set is
// the last one.
type Fragment struct {
	Text string
	Err  error
}

// Stream is a finite, single-consumer sequence of fragments. Close stops the
// producer and releases the upstream connection; it is safe to call more
// than once.
type Stream struct {
	fragments <-chan Fragment
	cancel    context.CancelFunc
}

func NewStream(fragments <-chan Fragment, cancel context.CancelFunc) *Stream {
	if cancel == nil {
		cancel = func() {}
	}
	return &Stream{fragments: fragments, cancel: cancel}
}

// TextStream returns a stream that yields text once.
func TextStream(text string) *Stream {
	ch := make(chan Fragment, 1)
	ch <- Fragment{Text: text}
	close(ch)
	return NewStream(ch, nil)
}

func (s *Stream) Fragments() <-chan Fragment {
	return s.fragments
}

func (s *Stream) Close() {
	s.cancel()
}
