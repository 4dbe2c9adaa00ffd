package chi

import (
	"context"
	"net/http/httptest"
	"os"
	"testing"

	chiRouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/corpus"
	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/metrics"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	indexuc "github.com/kailas-cloud/semsearch/internal/usecase/index"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
	statusuc "github.com/kailas-cloud/semsearch/internal/usecase/status"
)

func TestMain(m *testing.M) {
	metrics.RegisterSearchMetrics()
	os.Exit(m.Run())
}

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if s.err != nil {
		return domain.EmbeddingResult{}, s.err
	}
	return domain.EmbeddingResult{Embedding: s.vector}, nil
}

func (s *stubEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if s.err != nil {
		return domain.BatchEmbeddingResult{}, s.err
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = s.vector
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
}

type stubSource struct {
	records   []domain.CorpusRecord
	judgments []domain.Judgment
}

func (s *stubSource) ReadDocuments() ([]domain.CorpusRecord, error) { return s.records, nil }
func (s *stubSource) ReadJudgments() ([]domain.Judgment, error)     { return s.judgments, nil }

type stubDocWriter struct{}

func (stubDocWriter) ReplaceAll(_ context.Context, _ []domain.Document) error { return nil }

type stubQrelWriter struct{}

func (stubQrelWriter) ReplaceAll(_ context.Context, _ []domain.Judgment) error { return nil }

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(_ context.Context) error { return s.err }

// testEnv wires real usecases over stubbed dependencies behind a test server.
type testEnv struct {
	store    *corpus.Store
	qrels    *corpus.Judgments
	embedder *stubEmbedder
	source   *stubSource
	server   *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:    corpus.NewStore(),
		qrels:    corpus.NewJudgments(),
		embedder: &stubEmbedder{vector: []float32{1, 0}},
		source:   &stubSource{},
	}

	searchSvc := searchuc.New(env.store, env.qrels, env.embedder, 10, 5)
	indexSvc := indexuc.New(env.source, env.embedder, stubDocWriter{}, stubQrelWriter{},
		env.store, env.qrels, nil, 100)
	statusSvc := statusuc.New(env.store, env.qrels)
	healthSvc := healthuc.New(&stubPinger{}, nil, env.store)

	api := NewServer(searchSvc, indexSvc, statusSvc, healthSvc, zap.NewNop())
	r := chiRouter.NewRouter()
	api.Routes(r)

	env.server = httptest.NewServer(r)
	t.Cleanup(env.server.Close)

	return env
}

func (e *testEnv) seedCorpus(t *testing.T) {
	t.Helper()
	err := e.store.Replace([]domain.Document{
		{ID: "MED-1", Text: "aspirin", Vector: []float32{1, 0}},
		{ID: "MED-2", Text: "statins", Vector: []float32{0.9, 0.1}},
		{ID: "MED-3", Text: "insulin", Vector: []float32{0, 1}},
	})
	if err != nil {
		t.Fatalf("seed corpus: %v", err)
	}
	e.qrels.Replace([]domain.Judgment{
		{QueryID: "PLAIN-1", DocID: "MED-1", Grade: 2},
		{QueryID: "PLAIN-1", DocID: "MED-3", Grade: 1},
	})
}
