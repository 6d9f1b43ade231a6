package pipeline

import (
	"context"
	"sync"

	"github.com/briefops/comms-intel/pkg/anthropic"
)

// mockClient implements anthropic.Client with a programmable response
// function and a thread-safe call counter.
type mockClient struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error)
}

func (m *mockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.fn(ctx, req)
}

func (m *mockClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// textResponse wraps raw text in a single-block message response.
func textResponse(text string, inputTokens, outputTokens int64) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		ID:         "msg_test",
		Content:    []anthropic.ContentBlock{{Type: "text", Text: text}},
		StopReason: "end_turn",
		Usage: anthropic.TokenUsage{
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
		},
	}
}
