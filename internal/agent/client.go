package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"slices"
	"strings"
	"time"
)

const (
	DefaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultModel       = "gemini-2.5-flash-lite"
	DefaultTemperature = 0.7
	defaultTimeout     = 60 * time.Second
)

// RetryPolicy controls how failed upstream calls are retried. The delay
// before retry n (0-based) is InitialDelay * ExpBase^n, capped at MaxDelay.
type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
	ExpBase      float64
	MaxDelay     time.Duration
	StatusCodes  []int
}

// DefaultRetryPolicy retries transient upstream failures five times.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:     5,
		InitialDelay: time.Second,
		ExpBase:      7,
		MaxDelay:     60 * time.Second,
		StatusCodes: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

// Delay returns the wait before retry n.
func (p RetryPolicy) Delay(n int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.ExpBase, float64(n))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

func (p RetryPolicy) retryable(status int) bool {
	return slices.Contains(p.StatusCodes, status)
}

// StatusError is returned when the provider answers with a non-200 status.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retry      RetryPolicy
	logger     *slog.Logger
}

// NewClient creates a client for the default provider.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		retry:      DefaultRetryPolicy(),
		logger:     slog.Default(),
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// WithRetry replaces the retry policy.
func (c *Client) WithRetry(p RetryPolicy) *Client {
	c.retry = p
	return c
}

// Complete sends a chat completion request, retrying retryable statuses.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	attempts := max(c.retry.Attempts, 1)
	var lastErr error
	for attempt := range attempts {
		resp, err := c.doComplete(ctx, body)
		if err == nil {
			return resp, nil
		}

		var se *StatusError
		if !errors.As(err, &se) || !c.retry.retryable(se.Status) {
			return nil, err
		}
		lastErr = err

		if attempt < attempts-1 {
			delay := c.retry.Delay(attempt)
			c.logger.Warn("upstream call failed, retrying", "status", se.Status, "attempt", attempt+1, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return nil, fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
}

func (c *Client) doComplete(ctx context.Context, body []byte) (*ChatResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var out ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &out, nil
}
