package corpus

import (
	"sync"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// Judgments maps query id to a doc_id -> grade set of relevance judgments.
// Loaded once per build or restart, read-only while serving.
type Judgments struct {
	mu      sync.RWMutex
	byQuery map[string]map[string]int
}

// NewJudgments creates an empty judgment set.
func NewJudgments() *Judgments {
	return &Judgments{byQuery: map[string]map[string]int{}}
}

// Replace swaps in a new judgment set. A later record for the same
// (query_id, doc_id) pair wins, matching upsert semantics on load.
func (j *Judgments) Replace(records []domain.Judgment) {
	byQuery := make(map[string]map[string]int)
	for _, r := range records {
		m, ok := byQuery[r.QueryID]
		if !ok {
			m = make(map[string]int)
			byQuery[r.QueryID] = m
		}
		m[r.DocID] = r.Grade
	}

	j.mu.Lock()
	j.byQuery = byQuery
	j.mu.Unlock()
}

// For returns the doc_id -> grade mapping for a query id. A missing query id
// yields an empty map, never an error: evaluation degrades gracefully when
// no ground truth exists. The returned map is a copy.
func (j *Judgments) For(queryID string) map[string]int {
	j.mu.RLock()
	defer j.mu.RUnlock()

	src := j.byQuery[queryID]
	out := make(map[string]int, len(src))
	for id, grade := range src {
		out[id] = grade
	}
	return out
}

// NumQueries returns the number of distinct query ids with judgments.
func (j *Judgments) NumQueries() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.byQuery)
}
