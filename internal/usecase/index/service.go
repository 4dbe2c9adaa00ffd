// Package index rebuilds the searchable corpus from the dataset files:
// read records, embed them in batches, persist, then swap the serving
// snapshot. A build is all-or-nothing; any failure leaves the previous
// snapshot serving.
package index

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/logger"
	"github.com/kailas-cloud/semsearch/internal/metrics"

	"go.uber.org/zap"
)

// DefaultBatchSize bounds how many documents go into one embedding call.
const DefaultBatchSize = 100

// Service orchestrates full index rebuilds.
type Service struct {
	source    Source
	embedder  BatchEmbedder
	docRepo   DocumentWriter
	qrelRepo  JudgmentWriter
	corpus    CorpusWriter
	qrels     JudgmentStore
	cache     CacheClearer
	meta      MetaWriter
	querySrc  QuerySource
	queryRepo QueryWriter
	batchSize int
}

// New creates an index build service. cache may be nil when no query cache
// is wired.
func New(
	source Source,
	embedder BatchEmbedder,
	docRepo DocumentWriter,
	qrelRepo JudgmentWriter,
	corpus CorpusWriter,
	qrels JudgmentStore,
	cache CacheClearer,
	batchSize int,
) *Service {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Service{
		source:    source,
		embedder:  embedder,
		docRepo:   docRepo,
		qrelRepo:  qrelRepo,
		corpus:    corpus,
		qrels:     qrels,
		cache:     cache,
		batchSize: batchSize,
	}
}

// WithMeta records build metadata through w after each successful build.
func (s *Service) WithMeta(w MetaWriter) *Service {
	s.meta = w
	return s
}

// WithQueryArchive persists the dataset's query strings through w on each
// build, keyed by query id.
func (s *Service) WithQueryArchive(src QuerySource, w QueryWriter) *Service {
	s.querySrc = src
	s.queryRepo = w
	return s
}

// Build reads the dataset, embeds every document, persists the result, and
// swaps the serving corpus. A build always fully replaces the stored and
// serving index; clear does not gate that. It only controls whether the
// query embedding cache is dropped so subsequent queries re-embed against
// the new corpus. Returns the number of indexed documents. On any error the
// previous corpus keeps serving untouched.
func (s *Service) Build(ctx context.Context, clear bool) (int, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	records, err := s.source.ReadDocuments()
	if err != nil {
		return 0, fmt.Errorf("read documents: %w", err)
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("dataset has no documents: %w", domain.ErrValidation)
	}

	judgments, err := s.source.ReadJudgments()
	if err != nil {
		return 0, fmt.Errorf("read judgments: %w", err)
	}

	var queryRecords []domain.Query
	if s.querySrc != nil && s.queryRepo != nil {
		queryRecords, err = s.querySrc.ReadQueries()
		if err != nil {
			return 0, fmt.Errorf("read queries: %w", err)
		}
	}

	docs, err := s.embedAll(ctx, records)
	if err != nil {
		return 0, err
	}

	// Persist before swapping so a restart reloads the same snapshot the
	// service is about to serve.
	if err := s.docRepo.ReplaceAll(ctx, docs); err != nil {
		return 0, fmt.Errorf("persist documents: %w", err)
	}
	if err := s.qrelRepo.ReplaceAll(ctx, judgments); err != nil {
		return 0, fmt.Errorf("persist judgments: %w", err)
	}
	if s.queryRepo != nil && s.querySrc != nil {
		if err := s.queryRepo.ReplaceAll(ctx, queryRecords); err != nil {
			return 0, fmt.Errorf("archive queries: %w", err)
		}
	}

	if err := s.corpus.Replace(docs); err != nil {
		return 0, fmt.Errorf("swap corpus: %w", err)
	}
	s.qrels.Replace(judgments)

	if clear && s.cache != nil {
		s.cache.Clear()
	}

	if s.meta != nil {
		meta := domain.IndexMeta{
			Documents: len(docs),
			Judgments: len(judgments),
			BuiltAt:   time.Now().UTC(),
		}
		// The snapshot is already serving; a meta write failure is not
		// worth failing the build over.
		if err := s.meta.Save(ctx, meta); err != nil {
			log.Warn("failed to record index meta", zap.Error(err))
		}
	}

	metrics.IndexedDocuments.Set(float64(len(docs)))

	log.Info("index build finished",
		zap.Int("documents", len(docs)),
		zap.Int("judgments", len(judgments)),
		zap.Int("queries", len(queryRecords)),
		zap.Bool("cache_cleared", clear),
		zap.Duration("duration", time.Since(start)),
	)

	return len(docs), nil
}

// embedAll vectorizes all records in batches. A failure in any batch aborts
// the whole build.
func (s *Service) embedAll(ctx context.Context, records []domain.CorpusRecord) ([]domain.Document, error) {
	docs := make([]domain.Document, 0, len(records))

	for offset := 0; offset < len(records); offset += s.batchSize {
		end := offset + s.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[offset:end]

		texts := make([]string, len(batch))
		for i, rec := range batch {
			texts[i] = rec.Text()
		}

		res, err := s.embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed batch at %d: %w", offset, err)
		}
		if len(res.Embeddings) != len(batch) {
			return nil, fmt.Errorf("embed batch at %d: got %d vectors for %d texts: %w",
				offset, len(res.Embeddings), len(batch), domain.ErrEmbeddingProvider)
		}

		for i, rec := range batch {
			docs = append(docs, domain.Document{
				ID:     rec.ID,
				Text:   texts[i],
				Vector: res.Embeddings[i],
			})
		}
	}

	return docs, nil
}
