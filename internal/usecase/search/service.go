// Package search answers free-text queries against the in-memory corpus:
// resolve the query vector, rank documents by cosine similarity, and score
// the ranking against relevance judgments.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/eval"
	"github.com/kailas-cloud/semsearch/internal/logger"
	"github.com/kailas-cloud/semsearch/internal/metrics"

	"go.uber.org/zap"
)

// Service handles query ranking and evaluation.
type Service struct {
	corpus CorpusReader
	qrels  JudgmentReader
	embed  Embedder
	topK   int
	evalK  int
}

// Result is the outcome of one query: ranked document ids and precision@k.
type Result struct {
	TopDocs []string
	PK      float64
}

// New creates a search service. topK bounds the ranking length, evalK is the
// cutoff for precision evaluation.
func New(corpus CorpusReader, qrels JudgmentReader, embed Embedder, topK, evalK int) *Service {
	if topK <= 0 {
		topK = 10
	}
	if evalK <= 0 {
		evalK = 5
	}
	return &Service{corpus: corpus, qrels: qrels, embed: embed, topK: topK, evalK: evalK}
}

// Query embeds queryText, ranks the corpus, and evaluates the ranking
// against the judgments for queryID. An unknown queryID is not an error
// (precision degrades to 0); an empty queryText is rejected before any
// embedding or ranking work.
func (s *Service) Query(ctx context.Context, queryID, queryText string) (Result, error) {
	if strings.TrimSpace(queryText) == "" {
		return Result{}, fmt.Errorf("query_text must not be empty: %w", domain.ErrValidation)
	}

	docs := s.corpus.Snapshot()
	if len(docs) == 0 {
		return Result{}, domain.ErrIndexEmpty
	}

	start := time.Now()

	embResult, err := s.embed.Embed(ctx, queryText)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("vectorize query: %w", err)
	}

	if dim := s.corpus.Dimension(); dim != len(embResult.Embedding) {
		metrics.QueriesTotal.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("query has %d dims, corpus has %d: %w",
			len(embResult.Embedding), dim, domain.ErrVectorDimMismatch)
	}

	topDocs := rankBySimilarity(docs, embResult.Embedding, s.topK)
	pk := eval.PrecisionAtK(topDocs, s.qrels.For(queryID), s.evalK)

	metrics.QueriesTotal.WithLabelValues("success").Inc()
	metrics.QueryDuration.Observe(time.Since(start).Seconds())
	metrics.PrecisionAtK.Observe(pk)

	logger.FromContext(ctx).Debug("query evaluated",
		zap.String("query_id", queryID),
		zap.Int("ranked", len(topDocs)),
		zap.Float64("precision", pk),
		zap.Duration("duration", time.Since(start)),
	)

	return Result{TopDocs: topDocs, PK: pk}, nil
}
