package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/starford/raido/internal/models"
)

// LLMConfig configures the chat-completions client.
type LLMConfig struct {
	// BaseURL may list several endpoints separated by commas; they are tried in order.
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float32
	Timeout      time.Duration
	JSONMode     bool
	MaxFailures  int
	Cooldown     time.Duration
	CustomPrompt string
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string    `json:"model"`
	Messages       []message `json:"messages"`
	Temperature    float32   `json:"temperature"`
	ResponseFormat any       `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// LLM asks an OpenAI-compatible chat endpoint for suggestions. One client
// is built at startup and shared; it holds no per-call state besides the guard.
type LLM struct {
	baseURLs []string
	cfg      LLMConfig
	http     *http.Client
	guard    *Guard
	logger   *slog.Logger
}

var _ Provider = (*LLM)(nil)

// NewLLM creates the model-backed provider.
func NewLLM(cfg LLMConfig, logger *slog.Logger) *LLM {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &LLM{
		baseURLs: splitBaseURLs(cfg.BaseURL),
		cfg:      cfg,
		guard:    NewGuard(cfg.MaxFailures, cfg.Cooldown),
		logger:   logger,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				ForceAttemptHTTP2:   true,
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// Guard exposes the circuit breaker for status reporting.
func (c *LLM) Guard() *Guard {
	return c.guard
}

// Suggest implements Provider.
func (c *LLM) Suggest(ctx context.Context, rec models.FileRecord) models.Suggestion {
	if !c.guard.Allow() {
		c.logger.Debug("suggest: model paused",
			slog.String("file", rec.Name),
			slog.Time("until", c.guard.DisabledUntil()))
		return models.Fallback(rec)
	}

	raw, err := c.complete(ctx, BuildPrompt(rec, c.cfg.CustomPrompt))
	if err != nil {
		if ctx.Err() == nil {
			c.guard.RecordFailure()
		}
		c.logger.Warn("suggest: model call failed", slog.String("file", rec.Name), slog.String("error", err.Error()))
		return models.Fallback(rec)
	}
	c.guard.RecordSuccess()

	sug, err := Decode(raw)
	if err != nil {
		c.logger.Warn("suggest: malformed reply, keeping file as is",
			slog.String("file", rec.Name),
			slog.String("error", err.Error()))
		return models.Fallback(rec)
	}
	return sug
}

func (c *LLM) complete(ctx context.Context, prompt string) (string, error) {
	if len(c.baseURLs) == 0 {
		return "", fmt.Errorf("suggest: llm base URL is not configured")
	}
	req := chatRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	}
	if c.cfg.JSONMode {
		req.ResponseFormat = map[string]string{"type": "json_object"}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("suggest: marshal request: %w", err)
	}

	failures := make([]string, 0, len(c.baseURLs))
	for _, baseURL := range c.baseURLs {
		content, err := c.completeAt(ctx, baseURL+"/chat/completions", payload)
		if err == nil {
			return content, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		failures = append(failures, fmt.Sprintf("%s (%v)", baseURL, err))
	}
	return "", fmt.Errorf("suggest: request failed across endpoints: %s", strings.Join(failures, " | "))
}

func (c *LLM) completeAt(ctx context.Context, endpoint string, payload []byte) (string, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		request.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(request)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("status %s", resp.Status)
	}

	var decoded chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("response missing choices")
	}
	content := decoded.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("response empty")
	}
	return content, nil
}

func normalizeBaseURL(baseURL string) string {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return trimmed
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	return strings.TrimRight(trimmed, "/")
}

func splitBaseURLs(raw string) []string {
	tokens := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == ' '
	})
	out := make([]string, 0, len(tokens))
	seen := map[string]struct{}{}
	for _, token := range tokens {
		normalized := normalizeBaseURL(token)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
