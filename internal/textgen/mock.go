package textgen

import (
	"context"
	"sync"
)

// MockGenerator returns canned responses in order, for tests and local
// development without an upstream service.
type MockGenerator struct {
	mu        sync.Mutex
	name      string
	responses []string
	err       error
	calls     int
	prompts   []string
}

// NewMockGenerator creates a mock generator cycling through responses.
func NewMockGenerator(responses ...string) *MockGenerator {
	if len(responses) == 0 {
		responses = []string{"Mock response."}
	}
	return &MockGenerator{
		name:      "mock",
		responses: responses,
	}
}

// Fail makes every Generate call return err.
func (m *MockGenerator) Fail(err error) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Name returns "mock".
func (m *MockGenerator) Name() string {
	return m.name
}

// Available always returns true.
func (m *MockGenerator) Available() bool {
	return true
}

// Generate returns the next canned response.
func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}

	resp := m.responses[m.calls%len(m.responses)]
	m.calls++
	return resp, nil
}

// Calls returns how many Generate calls were made.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Prompts returns every prompt seen so far.
func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}
