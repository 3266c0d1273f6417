package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Responder produces a scripted reply for a prompt.
type Responder func(prompt string) (string, error)

// MockCall records one request made against a MockProvider.
type MockCall struct {
	System string
	Prompt string
}

// MockProvider is an in-memory LLMProvider for tests. Replies are chosen by
// the first route whose key is contained in the system or user prompt; the
// fallback responder handles everything else.
type MockProvider struct {
	mu       sync.Mutex
	routes   []mockRoute
	fallback Responder
	Calls    []MockCall
}

type mockRoute struct {
	contains  string
	responder Responder
}

var errNoRoute = errors.New("mock llm: no scripted response")

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// On registers a reply for prompts containing key.
func (m *MockProvider) On(key string, responder Responder) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, mockRoute{contains: key, responder: responder})
	return m
}

// OnText registers a fixed reply for prompts containing key.
func (m *MockProvider) OnText(key, reply string) *MockProvider {
	return m.On(key, func(string) (string, error) { return reply, nil })
}

func (m *MockProvider) Fallback(responder Responder) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = responder
	return m
}

// CallsContaining counts recorded calls whose prompt or system text contains key.
func (m *MockProvider) CallsContaining(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if strings.Contains(c.System, key) || strings.Contains(c.Prompt, key) {
			n++
		}
	}
	return n
}

func (m *MockProvider) Chat(ctx context.Context, history []Message, _ ...Option) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var call MockCall
	for _, msg := range history {
		if msg.Role == "system" {
			call.System += msg.Content
		} else {
			call.Prompt += msg.Content
		}
	}

	m.mu.Lock()
	m.Calls = append(m.Calls, call)
	routes := append([]mockRoute(nil), m.routes...)
	fallback := m.fallback
	m.mu.Unlock()

	responder := fallback
	for _, r := range routes {
		if strings.Contains(call.System, r.contains) || strings.Contains(call.Prompt, r.contains) {
			responder = r.responder
			break
		}
	}
	if responder == nil {
		return "", errNoRoute
	}

	reply, err := responder(call.Prompt)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	return reply, err
}

func (m *MockProvider) Generate(ctx context.Context, prompt string, opts ...Option) (string, error) {
	return m.Chat(ctx, []Message{{Role: "user", Content: prompt}}, opts...)
}
