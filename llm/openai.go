package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"github.com/sirupsen/logrus"

	apperrors "github.com/nijaru/yt-digest/errors"
)

const (
	DefaultTimeout = 300 * time.Second

	// ReasoningModel hides its chain of thought only when asked to.
	ReasoningModel = "deepseek-r1-distill-llama-70b"
)

// OpenAIClient talks to any OpenAI compatible chat completions API.
type OpenAIClient struct {
	client  oai.Client
	timeout time.Duration
	logger  logrus.FieldLogger
}

type config struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	maxRetries int
	logger     logrus.FieldLogger
}

type Option func(*config)

func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout bounds every call, streaming included.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) {
		c.httpClient = hc
	}
}

func WithMaxRetries(n int) Option {
	return func(c *config) {
		c.maxRetries = n
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) {
		c.logger = l
	}
}

func NewOpenAIClient(apiKey string, opts ...Option) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: llm api key must not be empty", apperrors.ErrConfiguration)
	}

	cfg := &config{timeout: DefaultTimeout, maxRetries: -1, logger: logrus.StandardLogger()}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(strings.TrimRight(cfg.baseURL, "/")+"/"))
	}
	if cfg.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.httpClient))
	}
	if cfg.maxRetries >= 0 {
		reqOpts = append(reqOpts, option.WithMaxRetries(cfg.maxRetries))
	}

	return &OpenAIClient{
		client:  oai.NewClient(reqOpts...),
		timeout: cfg.timeout,
		logger:  cfg.logger,
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, buildParams(req), requestOptions(req)...)
	if err != nil {
		return "", c.classify(ctx, req, err)
	}

	c.logger.WithFields(logrus.Fields{
		"model":             req.Model,
		"duration":          time.Since(start),
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	}).Debug("Chat completion finished")

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: model %s", apperrors.ErrUpstreamEmpty, req.Model)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Stream(ctx context.Context, req Request) (*Stream, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	stream := c.client.Chat.Completions.NewStreaming(ctx, buildParams(req), requestOptions(req)...)
	if err := stream.Err(); err != nil {
		cancel()
		return nil, c.classify(ctx, req, err)
	}

	ch := make(chan Fragment, 32)
	go func() {
		defer close(ch)
		defer cancel()
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			select {
			case ch <- Fragment{Text: chunk.Choices[0].Delta.Content}:
			case <-ctx.Done():
				return
			}
		}

		if err := stream.Err(); err != nil {
			select {
			case ch <- Fragment{Err: c.classify(ctx, req, err)}:
			case <-ctx.Done():
			}
		}
	}()

	return NewStream(ch, cancel), nil
}

// classify turns deadline failures into ErrUpstreamTimeout.
func (c *OpenAIClient) classify(ctx context.Context, req Request, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		c.logger.WithField("model", req.Model).WithField("timeout", c.timeout).Error("Chat completion timed out")
		return fmt.Errorf("%w: model %s after %s", apperrors.ErrUpstreamTimeout, req.Model, c.timeout)
	}
	return fmt.Errorf("llm: chat completion: %w", err)
}

func buildParams(req Request) oai.ChatCompletionNewParams {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(req.Model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(req.System),
			oai.UserMessage(req.Prompt),
		},
		TopP: param.NewOpt(1.0),
	}
	if req.Temperature != 0 {
		params.Temperature = param.NewOpt(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}
	return params
}

func requestOptions(req Request) []option.RequestOption {
	if req.Model == ReasoningModel {
		return []option.RequestOption{option.WithJSONSet("reasoning_format", "hidden")}
	}
	return nil
}
