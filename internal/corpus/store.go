// Package corpus holds the in-memory serving state: the document store and
// the relevance judgments. Both are replaced wholesale by the index builder
// and are read-only during query serving.
package corpus

import (
	"fmt"
	"sync"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// Store is the in-memory document store. Replace swaps the whole snapshot
// atomically; readers always see either the previous or the new corpus,
// never a mix.
type Store struct {
	mu   sync.RWMutex
	docs []domain.Document
	byID map[string]int
	dim  int
}

// NewStore creates an empty document store.
func NewStore() *Store {
	return &Store{byID: map[string]int{}}
}

// Replace validates the new corpus and swaps it in. Document ids must be
// unique and every vector must have the same dimension. On error the
// existing snapshot is left untouched.
func (s *Store) Replace(docs []domain.Document) error {
	byID := make(map[string]int, len(docs))
	dim := 0

	for i, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("document at position %d: empty id", i)
		}
		if _, ok := byID[d.ID]; ok {
			return fmt.Errorf("document %s: %w", d.ID, domain.ErrDuplicateDocID)
		}
		if len(d.Vector) == 0 {
			return fmt.Errorf("document %s: empty vector", d.ID)
		}
		if dim == 0 {
			dim = len(d.Vector)
		}
		if len(d.Vector) != dim {
			return fmt.Errorf("document %s: got %d dims, corpus has %d: %w",
				d.ID, len(d.Vector), dim, domain.ErrVectorDimMismatch)
		}
		byID[d.ID] = i
	}

	s.mu.Lock()
	s.docs = docs
	s.byID = byID
	s.dim = dim
	s.mu.Unlock()
	return nil
}

// Snapshot returns the current corpus slice. Callers must treat it as
// read-only; Replace never mutates a published slice.
func (s *Store) Snapshot() []domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs
}

// Get returns a document by id.
func (s *Store) Get(id string) (domain.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return domain.Document{}, false
	}
	return s.docs[i], true
}

// Len returns the number of indexed documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Dimension returns the embedding dimension of the current corpus,
// 0 when empty.
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim
}
