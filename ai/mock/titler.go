package mock

import (
	"context"
	"strings"
)

// MockTitler is a test double for ai.TitleGenerator.
// It allows custom behavior injection via a function field.
type MockTitler struct {
	// GenerateTitleFunc is called by GenerateTitle if set.
	// If nil, uses default deterministic behavior.
	GenerateTitleFunc func(ctx context.Context, texts []string) (string, error)

	callCount int
}

// NewMockTitler creates a mock titler with default deterministic behavior.
func NewMockTitler() *MockTitler {
	return &MockTitler{}
}

// GenerateTitle returns the first few words of the first text as a title.
func (m *MockTitler) GenerateTitle(ctx context.Context, texts []string) (string, error) {
	m.callCount++

	if m.GenerateTitleFunc != nil {
		return m.GenerateTitleFunc(ctx, texts)
	}

	if len(texts) == 0 {
		return "", nil
	}
	words := strings.Fields(texts[0])
	if len(words) > 5 {
		words = words[:5]
	}
	return strings.Join(words, " "), nil
}

// CallCount returns the number of times GenerateTitle was called.
func (m *MockTitler) CallCount() int {
	return m.callCount
}

// Reset clears the call count and any injected behavior.
func (m *MockTitler) Reset() {
	m.callCount = 0
	m.GenerateTitleFunc = nil
}
