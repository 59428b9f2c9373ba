package llm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

var ErrScriptExhausted = errors.New("llm: fake script exhausted")

// FakeClient replays scripted responses in order, for offline runs and tests.
// Prompts it receives are recorded for inspection.
type FakeClient struct {
	mu        sync.Mutex
	responses []json.RawMessage
	Prompts   []string
}

func NewFakeClient(responses ...json.RawMessage) *FakeClient {
	return &FakeClient{responses: responses}
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prompts = append(f.Prompts, prompt)
	if len(f.responses) == 0 {
		return nil, NewPermanentError(ErrScriptExhausted)
	}
	out := f.responses[0]
	f.responses = f.responses[1:]
	return out, nil
}

// Remaining reports how many scripted responses are left.
func (f *FakeClient) Remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.responses)
}
