package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"
)

// Completer is a single request/response call to a generative text model.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, system, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}

// NewCompleter builds the model client selected by cfg.LLMProvider, wrapped
// with call metrics and the configured rate limit.
func NewCompleter(cfg Config) (Completer, error) {
	var base Completer
	switch cfg.LLMProvider {
	case "", "gokit":
		base = newKitCompleter(cfg)
	case "openai":
		c, err := newOpenAICompleter(cfg)
		if err != nil {
			return nil, err
		}
		base = c
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.LLMProvider)
	}
	return Instrument(RateLimit(base, cfg.LLMRequestsPerSec, cfg.LLMBurst)), nil
}

// newKitCompleter uses the go-kit OpenAI-compatible client.
func newKitCompleter(cfg Config) Completer {
	c := llm.NewClient(cfg.LLMAPIBase, cfg.LLMAPIKey, cfg.LLMModel,
		llm.WithFallbackKeys(cfg.LLMAPIKeyFallbacks),
		llm.WithMaxTokens(cfg.LLMMaxTokens),
		llm.WithTemperature(cfg.LLMTemperature),
		llm.WithHTTPClient(&http.Client{Timeout: 90 * time.Second}),
	)
	return CompleterFunc(func(ctx context.Context, system, prompt string) (string, error) {
		return c.Complete(ctx, system, prompt)
	})
}

// openAICompleter calls chat completions through the official openai-go SDK.
type openAICompleter struct {
	model string
	opts  []option.RequestOption
}

func newOpenAICompleter(cfg Config) (*openAICompleter, error) {
	if cfg.LLMAPIKey == "" {
		return nil, errors.New("openai api key missing; set LLM_API_KEY")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.LLMAPIKey)}
	if cfg.LLMAPIBase != "" {
		opts = append(opts, option.WithBaseURL(cfg.LLMAPIBase))
	}
	return &openAICompleter{model: cfg.LLMModel, opts: opts}, nil
}

func (o *openAICompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	client := openai.NewClient(o.opts...)

	var msgs []openai.ChatCompletionMessageParamUnion
	if system != "" {
		msgs = append(msgs, openai.SystemMessage(system))
	}
	msgs = append(msgs, openai.UserMessage(prompt))

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: msgs,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// RateLimit throttles calls to next. rps <= 0 disables limiting.
func RateLimit(next Completer, rps float64, burst int) Completer {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(rps), burst)
	return CompleterFunc(func(ctx context.Context, system, prompt string) (string, error) {
		if err := lim.Wait(ctx); err != nil {
			return "", fmt.Errorf("llm rate limit: %w", err)
		}
		return next.Complete(ctx, system, prompt)
	})
}

// Instrument counts calls and errors and records call latency.
func Instrument(next Completer) Completer {
	return CompleterFunc(func(ctx context.Context, system, prompt string) (string, error) {
		metrics.LLMCalls.Add(1)
		start := time.Now()
		out, err := next.Complete(ctx, system, prompt)
		ObserveStage("llm", start, err)
		if err != nil {
			metrics.LLMErrors.Add(1)
		}
		return out, err
	})
}

// StripFences removes markdown code fences from LLM output.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
