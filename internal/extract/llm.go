package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	openai "github.com/sashabaranov/go-openai"
)

// ChatCompleter is the part of the OpenAI-compatible client used here.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMConfig configures the chat client. Any OpenAI-compatible endpoint
// (DeepSeek, OpenRouter) works through BaseURL.
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	MaxRetries  int
	RetryDelay  time.Duration
}

// LLMClient asks a chat model for a JSON object.
type LLMClient struct {
	api   ChatCompleter
	cfg   LLMConfig
	stats *Stats
	log   *slog.Logger
}

// NewLLMClient builds a client on top of go-openai.
func NewLLMClient(cfg LLMConfig, stats *Stats, log *slog.Logger) *LLMClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return NewLLMClientWithAPI(openai.NewClientWithConfig(oc), cfg, stats, log)
}

// NewLLMClientWithAPI wires an existing completer, e.g. a test double.
func NewLLMClientWithAPI(api ChatCompleter, cfg LLMConfig, stats *Stats, log *slog.Logger) *LLMClient {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if stats == nil {
		stats = NewStats(time.Hour)
	}
	return &LLMClient{api: api, cfg: cfg, stats: stats, log: log}
}

// Stats returns the client's latency and token counters.
func (c *LLMClient) Stats() *Stats {
	return c.stats
}

func (c *LLMClient) Model() string {
	return c.cfg.Model
}

// ChatJSON sends a system and user prompt and decodes the reply as a JSON
// object. Rate limits, server errors, transport errors and unparseable replies
// are retried with exponential backoff. The raw reply text is returned
// alongside the object.
func (c *LLMClient) ChatJSON(ctx context.Context, system, user string) (map[string]any, string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	var (
		obj map[string]any
		raw string
	)
	err := retry.Do(
		func() error {
			start := time.Now()
			resp, err := c.api.CreateChatCompletion(ctx, req)
			c.stats.Record(time.Since(start).Milliseconds())
			if err != nil {
				c.stats.RecordFailure()
				return classifyError(err)
			}
			c.stats.RecordUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

			if len(resp.Choices) == 0 {
				return &RetryableError{Message: "empty choices"}
			}
			raw = resp.Choices[0].Message.Content
			parsed, err := parseJSONObject(raw)
			if err != nil {
				return &RetryableError{Message: err.Error()}
			}
			obj = parsed
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.cfg.MaxRetries)),
		retry.Delay(c.cfg.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(IsRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			if c.log != nil {
				c.log.Warn("retrying llm call", "attempt", n+1, "error", err)
			}
		}),
	)
	if err != nil {
		return nil, raw, err
	}
	return obj, raw, nil
}

// classifyError marks rate limits, 5xx responses and transport failures as
// retryable. Context cancellation and other API errors are returned as is.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if retryableStatus(apiErr.HTTPStatusCode) {
			return &RetryableError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
		}
		return fmt.Errorf("llm api status %d: %w", apiErr.HTTPStatusCode, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if retryableStatus(reqErr.HTTPStatusCode) {
			return &RetryableError{StatusCode: reqErr.HTTPStatusCode, Message: err.Error()}
		}
		return fmt.Errorf("llm request status %d: %w", reqErr.HTTPStatusCode, err)
	}

	return &RetryableError{Message: err.Error()}
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

// parseJSONObject decodes a reply that should be a single JSON object. Code
// fences and text around the outermost braces are tolerated.
func parseJSONObject(s string) (map[string]any, error) {
	s = stripCodeBlock(s)
	if s == "" {
		return nil, errors.New("empty response")
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err == nil && obj != nil {
		return obj, nil
	}

	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(s[start:end+1]), &obj); err == nil && obj != nil {
			return obj, nil
		}
	}
	return nil, fmt.Errorf("parse json object: invalid reply (raw: %s)", truncate(s, 200))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}
