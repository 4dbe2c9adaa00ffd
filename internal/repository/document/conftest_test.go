package document

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/db"
)

// mockStore implements the consumer interface for tests. It keeps hashes in
// a plain map so ReplaceAll/LoadAll can round-trip.
type mockStore struct {
	hashes map[string]map[string]string

	hsetMultiFn func(ctx context.Context, items []db.HashSetItem) error
	scanFn      func(ctx context.Context, pattern string) ([]string, error)
}

func newMockStore() *mockStore {
	return &mockStore{hashes: map[string]map[string]string{}}
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	for _, item := range items {
		fields := make(map[string]string, len(item.Fields))
		for k, v := range item.Fields {
			fields[k] = v
		}
		m.hashes[item.Key] = fields
	}
	return nil
}

func (m *mockStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, key := range keys {
		out[i] = m.hashes[key]
	}
	return out, nil
}

func (m *mockStore) DelMulti(_ context.Context, keys []string) error {
	for _, key := range keys {
		delete(m.hashes, key)
	}
	return nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	keys := make([]string, 0, len(m.hashes))
	for k := range m.hashes {
		keys = append(keys, k)
	}
	return keys, nil
}
