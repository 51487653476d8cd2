package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"legaldocs-backend/internal/credentials"
	"legaldocs-backend/internal/shared/metrics"
	"legaldocs-backend/internal/shared/telemetry"
)

// Request describes one inference call. The client passes the payload
// through unchanged; it has no knowledge of what the text means.
type Request struct {
	SystemInstruction string
	UserText          string
	Temperature       float32
	MaxTokens         int
}

// Usage carries token accounting returned by the API.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the decoded result of a successful call.
type Response struct {
	Text  string
	Model string
	Usage Usage
}

// Caller is the minimal contract the orchestrator depends on.
type Caller interface {
	Call(ctx context.Context, req Request) (Response, error)
}

// Client issues inference calls with credential rotation, a per-call
// timeout, rate-limit handling, and bounded retry with exponential delay.
type Client struct {
	Rotator     *credentials.Rotator
	APIURL      string
	Model       string
	MaxAttempts int
	BaseDelay   time.Duration

	httpClient *http.Client
}

// NewClient constructs a Client.
func NewClient(rotator *credentials.Rotator, apiURL, model string, maxAttempts int, baseDelay, timeout time.Duration) (*Client, error) {
	if rotator == nil {
		return nil, errors.New("credential rotator is required")
	}
	if strings.TrimSpace(apiURL) == "" {
		return nil, errors.New("INFERENCE_API_URL is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("INFERENCE_MODEL is required")
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Client{
		Rotator:     rotator,
		APIURL:      apiURL,
		Model:       model,
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *Usage `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Call performs the request, retrying transient failures. HTTP 429 sleeps
// for the Retry-After duration and retries without advancing the backoff
// exponent; other failures are reported to the rotator and retried with
// baseDelay * 2^(attempt-1) until the attempt budget runs out.
func (c *Client) Call(ctx context.Context, req Request) (Response, error) {
	var lastErr error
	rateLimitRetries := 0

	for attempt := 1; attempt <= c.MaxAttempts; {
		cred := c.Rotator.Acquire()

		start := time.Now()
		resp, err := c.callOnce(ctx, cred.Token, req)
		metrics.InferenceDuration.Observe(time.Since(start).Seconds())
		if err == nil {
			return resp, nil
		}

		var rl *rateLimitedError
		if errors.As(err, &rl) {
			rateLimitRetries++
			if rateLimitRetries > c.MaxAttempts {
				return Response{}, fmt.Errorf("%w: %v", ErrExhaustedRetries, err)
			}
			telemetry.Warn("inference.rate_limited", map[string]any{
				"retry_after_ms": rl.retryAfter.Milliseconds(),
				"attempt":        attempt,
			})
			if err := sleepCtx(ctx, rl.retryAfter); err != nil {
				return Response{}, err
			}
			continue
		}

		lastErr = err
		c.Rotator.ReportFailure(cred.Token)
		telemetry.Error("inference.call_failed", map[string]any{
			"attempt": attempt,
			"error":   err.Error(),
		})

		if attempt == c.MaxAttempts {
			break
		}
		metrics.InferenceRetries.Inc()
		delay := c.BaseDelay * (1 << (attempt - 1))
		if err := sleepCtx(ctx, delay); err != nil {
			return Response{}, err
		}
		attempt++
	}

	return Response{}, fmt.Errorf("%w after %d attempts: %v", ErrExhaustedRetries, c.MaxAttempts, lastErr)
}

func (c *Client) callOnce(ctx context.Context, token string, req Request) (Response, error) {
	messages := []chatMessage{
		{Role: "system", Content: req.SystemInstruction},
		{Role: "user", Content: req.UserText},
	}
	payload, err := json.Marshal(chatRequest{
		Model:       c.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return Response{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL, bytes.NewReader(payload))
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusTooManyRequests {
		return Response{}, &rateLimitedError{retryAfter: retryAfterOrDefault(httpResp, c.BaseDelay)}
	}
	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 2048))
		return Response{}, fmt.Errorf("inference http status %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if parsed.Error != nil {
		return Response{}, fmt.Errorf("inference error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return Response{}, fmt.Errorf("%w: missing choices", ErrMalformedResponse)
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return Response{}, fmt.Errorf("%w: empty content", ErrMalformedResponse)
	}

	model := parsed.Model
	if model == "" {
		model = c.Model
	}
	out := Response{Text: text, Model: model}
	if parsed.Usage != nil {
		out.Usage = *parsed.Usage
	}
	return out, nil
}

type rateLimitedError struct {
	retryAfter time.Duration
}

func (e *rateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.retryAfter)
}

func retryAfterOrDefault(resp *http.Response, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if raw == "" {
		return fallback
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil || seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds * float64(time.Second))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
