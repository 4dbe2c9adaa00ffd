package search

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// CorpusReader provides read access to the serving document store.
type CorpusReader interface {
	Snapshot() []domain.Document
	Dimension() int
}

// JudgmentReader resolves relevance judgments for a query id.
type JudgmentReader interface {
	For(queryID string) map[string]int
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
