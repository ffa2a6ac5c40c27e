package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"
)

// MockCompleter fabricates deterministic chat-completion bodies without any
// network traffic. It backs the --mock engine for pipeline smoke tests.
type MockCompleter struct {
	Model string
}

// Complete returns a canned response derived from the prompt so repeated
// mock probes stay distinguishable in the ledger.
func (m *MockCompleter) Complete(_ context.Context, prompt string) (*Result, error) {
	h := fnv.New32a()
	h.Write([]byte(prompt)) //nolint:errcheck

	content := fmt.Sprintf("mock response %08x: a clear symbol in daylight", h.Sum32())
	body, err := json.Marshal(map[string]any{
		"model": m.Model,
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
		"usage": map[string]any{
			"prompt_tokens":     len(prompt) / 4,
			"completion_tokens": len(content) / 4,
			"completion_tokens_details": map[string]any{
				"reasoning_tokens": int(h.Sum32() % 100),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("probe: marshal mock body: %w", err)
	}

	return &Result{
		Content:         content,
		ReasoningTokens: int(h.Sum32() % 100),
		RawBody:         body,
		TraceID:         uuid.NewString(),
		DurationMs:      1,
	}, nil
}
