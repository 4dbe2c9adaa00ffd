package index

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// Source provides the raw dataset records to build from.
type Source interface {
	ReadDocuments() ([]domain.CorpusRecord, error)
	ReadJudgments() ([]domain.Judgment, error)
}

// QuerySource provides the dataset's raw query records.
type QuerySource interface {
	ReadQueries() ([]domain.Query, error)
}

// QueryWriter archives the dataset's query records alongside the index.
type QueryWriter interface {
	ReplaceAll(ctx context.Context, queries []domain.Query) error
}

// BatchEmbedder vectorizes a batch of document texts.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// DocumentWriter persists the embedded corpus.
type DocumentWriter interface {
	ReplaceAll(ctx context.Context, docs []domain.Document) error
}

// JudgmentWriter persists relevance judgments.
type JudgmentWriter interface {
	ReplaceAll(ctx context.Context, records []domain.Judgment) error
}

// CorpusWriter swaps the serving corpus in one step.
type CorpusWriter interface {
	Replace(docs []domain.Document) error
	Len() int
}

// JudgmentStore swaps the serving judgments in one step.
type JudgmentStore interface {
	Replace(records []domain.Judgment)
}

// CacheClearer drops all cached query embeddings.
type CacheClearer interface {
	Clear()
}

// MetaWriter records build metadata alongside the persisted snapshot.
type MetaWriter interface {
	Save(ctx context.Context, meta domain.IndexMeta) error
}
