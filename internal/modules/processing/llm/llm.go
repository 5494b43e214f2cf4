// Package llm binds the generative AI providers used by the content
// pipelines and normalizes their loosely structured output.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// Part is one piece of a multimodal request. Data is sent inline with
// MIMEType when set; otherwise Text is sent.
type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

// Request is a single provider call.
type Request struct {
	System      string
	Prompt      string
	Parts       []Part
	Model       string
	Temperature *float64
	MaxTokens   int
	// JSON asks providers that support it for an application/json response.
	JSON bool
}

// Generator is a provider binding.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

var ErrEmptyResponse = errors.New("empty response from AI")

// Result is the outcome of Client.Complete. Text is empty whenever Err is set.
type Result struct {
	Text string
	Err  error
}

func (r Result) OK() bool { return r.Err == nil && strings.TrimSpace(r.Text) != "" }

// Reason describes why the call produced no usable text.
func (r Result) Reason() string {
	switch {
	case r.Err != nil:
		return r.Err.Error()
	case strings.TrimSpace(r.Text) == "":
		return ErrEmptyResponse.Error()
	default:
		return ""
	}
}

// Client wraps a Generator so that failures surface as empty results rather
// than errors. Callers decide whether empty output is fatal.
type Client struct {
	gen      Generator
	name     string
	timeout  time.Duration
	language string
	logger   *zap.Logger
}

type ClientOption func(*Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLanguage sets the output language code used by built-in prompts.
func WithLanguage(code string) ClientOption {
	return func(c *Client) {
		if v := strings.TrimSpace(code); v != "" {
			c.language = v
		}
	}
}

func NewClient(name string, gen Generator, logger *zap.Logger, opts ...ClientOption) *Client {
	c := &Client{
		gen:      gen,
		name:     name,
		timeout:  60 * time.Second,
		language: "es",
		logger:   logger.Named("llm").With(zap.String("provider", name)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete issues one request with a bounded deadline. It never returns an
// error directly and never retries.
func (c *Client) Complete(ctx context.Context, req Request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("provider panicked", zap.Any("panic", r))
			res = Result{Err: errors.New("provider panicked")}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	text, err := c.gen.Generate(ctx, req)
	if err != nil {
		c.logger.Error("provider call failed",
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		return Result{Err: err}
	}
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("provider returned empty text", zap.Duration("elapsed", time.Since(started)))
	} else {
		c.logger.Debug("provider responded",
			zap.Int("chars", len(text)),
			zap.Duration("elapsed", time.Since(started)))
	}
	return Result{Text: text}
}

// DescribeImage asks the provider to summarize a slide image.
func (c *Client) DescribeImage(ctx context.Context, image []byte) Result {
	if len(image) == 0 {
		return Result{Err: errors.New("image is empty")}
	}
	return c.Complete(ctx, Request{
		Parts: []Part{
			{Data: image, MIMEType: detectImageMIME(image)},
			{Text: describeImagePrompt(c.language)},
		},
	})
}

func detectImageMIME(data []byte) string {
	mt := mimetype.Detect(data)
	if strings.HasPrefix(mt.String(), "image/") {
		return mt.String()
	}
	return "image/png"
}
