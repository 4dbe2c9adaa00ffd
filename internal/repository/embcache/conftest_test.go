package embcache

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// mockEmbedder counts calls and returns a distinct vector per text.
type mockEmbedder struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
	fn    func(text string) []float32
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{
		calls: map[string]int{},
		fn:    func(text string) []float32 { return []float32{float32(len(text)), 1} },
	}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.calls[text]++
	m.mu.Unlock()

	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{
		Embedding:    m.fn(text),
		PromptTokens: 7,
		TotalTokens:  7,
	}, nil
}

func (m *mockEmbedder) callCount(text string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[text]
}

func (m *mockEmbedder) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func newTestCache(t *testing.T, inner *mockEmbedder, capacity int) *CachedEmbedder {
	t.Helper()
	return New(inner, capacity, nil, zap.NewNop())
}
