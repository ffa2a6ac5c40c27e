package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"

	"github.com/probelab/lexiprobe/internal/config"
	"github.com/probelab/lexiprobe/internal/ledger"
)

// Completer issues one chat completion. The production implementation is
// Client; tests substitute a fake.
type Completer interface {
	Complete(ctx context.Context, prompt string) (*Result, error)
}

// Result is the outcome of one remote call. Malformed or content-free
// bodies are not errors: the raw bytes are preserved and the content field
// carries a sentinel so the ledger still advances.
type Result struct {
	Content         string
	ReasoningTokens int
	RawBody         []byte
	Malformed       bool
	TraceID         string
	DurationMs      int64
}

// TransportError is a recoverable remote failure: timeout, connection
// error, or non-2xx status. No record is written and the cursor does not
// advance, so the next invocation retries the same schedule slot.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("probe: remote returned status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("probe: transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens            int `json:"prompt_tokens"`
		CompletionTokens        int `json:"completion_tokens"`
		CompletionTokensDetails struct {
			ReasoningTokens int `json:"reasoning_tokens"`
		} `json:"completion_tokens_details"`
	} `json:"usage"`
}

// Client calls an OpenAI-compatible chat-completion endpoint. One POST per
// probe, a fixed timeout, and no automatic retry.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	model        string
	temperature  float64
	maxTokens    int
	extraHeaders map[string]string
}

// NewClient builds a client from the resolved configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Study.TimeoutSeconds) * time.Second,
		},
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		model:        cfg.Study.Model,
		temperature:  cfg.Study.Temperature,
		maxTokens:    cfg.Study.MaxTokens,
		extraHeaders: cfg.Study.Provider.ExtraHeaders,
	}
}

// Complete sends one prompt and extracts choices[0].message.content plus
// reasoning token usage. Absent fields yield sentinels, never a crash.
func (c *Client) Complete(ctx context.Context, prompt string) (*Result, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("probe: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("probe: build request: %w", err)
	}

	traceID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Trace-Id", traceID)
	for k, v := range c.extraHeaders {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", excerpt(body, 200)),
		}
	}

	res := &Result{
		RawBody:    body,
		TraceID:    traceID,
		DurationMs: time.Since(start).Milliseconds(),
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		res.Content = ledger.SentinelMalformed
		res.Malformed = true
		return res, nil
	}

	res.ReasoningTokens = parsed.Usage.CompletionTokensDetails.ReasoningTokens
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		res.Content = ledger.SentinelNoContent
		return res, nil
	}
	res.Content = parsed.Choices[0].Message.Content
	return res, nil
}

func excerpt(b []byte, maxWidth int) string {
	// Rune-aware truncation: error bodies may carry multibyte glyphs.
	return runewidth.Truncate(strings.TrimSpace(string(b)), maxWidth, "...")
}
