package index

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/semsearch/internal/corpus"
	"github.com/kailas-cloud/semsearch/internal/domain"
)

func testRecords() []domain.CorpusRecord {
	return []domain.CorpusRecord{
		{ID: "MED-1", Title: "aspirin", Body: "blood thinner"},
		{ID: "MED-2", Title: "statins", Body: "cholesterol"},
		{ID: "MED-3", Title: "insulin", Body: "diabetes"},
	}
}

func testJudgments() []domain.Judgment {
	return []domain.Judgment{
		{QueryID: "PLAIN-1", DocID: "MED-1", Grade: 2},
		{QueryID: "PLAIN-1", DocID: "MED-3", Grade: 1},
	}
}

func TestBuild(t *testing.T) {
	source := &mockSource{records: testRecords(), judgments: testJudgments()}
	docRepo := &mockDocWriter{}
	qrelRepo := &mockQrelWriter{}
	store := corpus.NewStore()
	qrels := corpus.NewJudgments()
	cache := &mockCache{}
	svc := New(source, &mockBatchEmbedder{dim: 4}, docRepo, qrelRepo, store, qrels, cache, 100)

	count, err := svc.Build(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 indexed documents, got %d", count)
	}
	if store.Len() != 3 {
		t.Fatalf("expected corpus of 3, got %d", store.Len())
	}
	if len(docRepo.saved) != 3 {
		t.Fatalf("expected 3 persisted documents, got %d", len(docRepo.saved))
	}
	if len(qrelRepo.saved) != 2 {
		t.Fatalf("expected 2 persisted judgments, got %d", len(qrelRepo.saved))
	}
	if got := qrels.For("PLAIN-1"); len(got) != 2 {
		t.Fatalf("expected 2 judgments for PLAIN-1, got %d", len(got))
	}
	if cache.cleared != 0 {
		t.Fatal("cache must not be cleared without clear=true")
	}

	doc, ok := store.Get("MED-1")
	if !ok {
		t.Fatal("MED-1 missing from corpus")
	}
	if doc.Text != "aspirin blood thinner" {
		t.Fatalf("unexpected document text %q", doc.Text)
	}
}

func TestBuild_ClearDropsCache(t *testing.T) {
	source := &mockSource{records: testRecords()}
	cache := &mockCache{}
	svc := New(source, &mockBatchEmbedder{dim: 4}, &mockDocWriter{}, &mockQrelWriter{},
		corpus.NewStore(), corpus.NewJudgments(), cache, 100)

	if _, err := svc.Build(context.Background(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.cleared != 1 {
		t.Fatalf("expected 1 cache clear, got %d", cache.cleared)
	}
}

func TestBuild_EmbedFailureLeavesCorpusServing(t *testing.T) {
	store := corpus.NewStore()
	old := []domain.Document{{ID: "OLD-1", Vector: []float32{1}}}
	if err := store.Replace(old); err != nil {
		t.Fatalf("seed corpus: %v", err)
	}

	source := &mockSource{records: testRecords()}
	embedder := &mockBatchEmbedder{dim: 4, failText: "insulin diabetes"}
	docRepo := &mockDocWriter{}
	svc := New(source, embedder, docRepo, &mockQrelWriter{}, store, corpus.NewJudgments(), nil, 100)

	_, err := svc.Build(context.Background(), false)
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("expected ErrEmbeddingProvider, got %v", err)
	}

	// Nothing persisted, previous snapshot still serving.
	if docRepo.calls != 0 {
		t.Fatal("documents must not be persisted after an embed failure")
	}
	if store.Len() != 1 {
		t.Fatalf("expected old corpus of 1, got %d", store.Len())
	}
	if _, ok := store.Get("OLD-1"); !ok {
		t.Fatal("previous corpus document lost")
	}
}

func TestBuild_PersistFailureLeavesCorpusServing(t *testing.T) {
	store := corpus.NewStore()
	if err := store.Replace([]domain.Document{{ID: "OLD-1", Vector: []float32{1}}}); err != nil {
		t.Fatalf("seed corpus: %v", err)
	}

	source := &mockSource{records: testRecords()}
	docRepo := &mockDocWriter{err: errors.New("redis down")}
	svc := New(source, &mockBatchEmbedder{dim: 4}, docRepo, &mockQrelWriter{}, store, corpus.NewJudgments(), nil, 100)

	if _, err := svc.Build(context.Background(), false); err == nil {
		t.Fatal("expected persist error")
	}
	if store.Len() != 1 {
		t.Fatalf("expected old corpus of 1, got %d", store.Len())
	}
}

func TestBuild_RecordsMeta(t *testing.T) {
	source := &mockSource{records: testRecords(), judgments: testJudgments()}
	meta := &mockMetaWriter{}
	svc := New(source, &mockBatchEmbedder{dim: 4}, &mockDocWriter{}, &mockQrelWriter{},
		corpus.NewStore(), corpus.NewJudgments(), nil, 100).WithMeta(meta)

	if _, err := svc.Build(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(meta.saved) != 1 {
		t.Fatalf("expected 1 meta record, got %d", len(meta.saved))
	}
	if meta.saved[0].Documents != 3 || meta.saved[0].Judgments != 2 {
		t.Fatalf("unexpected meta: %+v", meta.saved[0])
	}
	if meta.saved[0].BuiltAt.IsZero() {
		t.Fatal("built_at not set")
	}
}

func TestBuild_MetaFailureDoesNotFailBuild(t *testing.T) {
	source := &mockSource{records: testRecords()}
	meta := &mockMetaWriter{err: errors.New("redis down")}
	store := corpus.NewStore()
	svc := New(source, &mockBatchEmbedder{dim: 4}, &mockDocWriter{}, &mockQrelWriter{},
		store, corpus.NewJudgments(), nil, 100).WithMeta(meta)

	count, err := svc.Build(context.Background(), false)
	if err != nil {
		t.Fatalf("meta failure must not fail the build: %v", err)
	}
	if count != 3 || store.Len() != 3 {
		t.Fatalf("build result lost: count=%d store=%d", count, store.Len())
	}
}

func TestBuild_ArchivesQueries(t *testing.T) {
	source := &mockSource{records: testRecords(), judgments: testJudgments()}
	querySrc := &mockQuerySource{queries: []domain.Query{
		{ID: "PLAIN-1", Text: "blood thinners"},
		{ID: "PLAIN-2", Text: "diabetes treatment"},
	}}
	queryRepo := &mockQueryWriter{}
	svc := New(source, &mockBatchEmbedder{dim: 4}, &mockDocWriter{}, &mockQrelWriter{},
		corpus.NewStore(), corpus.NewJudgments(), nil, 100).WithQueryArchive(querySrc, queryRepo)

	if _, err := svc.Build(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queryRepo.saved) != 2 {
		t.Fatalf("expected 2 archived queries, got %d", len(queryRepo.saved))
	}
	if queryRepo.saved[0].ID != "PLAIN-1" || queryRepo.saved[0].Text != "blood thinners" {
		t.Fatalf("unexpected archived query: %+v", queryRepo.saved[0])
	}
}

func TestBuild_QueryReadFailureAborts(t *testing.T) {
	source := &mockSource{records: testRecords()}
	querySrc := &mockQuerySource{err: errors.New("queries file missing")}
	store := corpus.NewStore()
	embedder := &mockBatchEmbedder{dim: 4}
	svc := New(source, embedder, &mockDocWriter{}, &mockQrelWriter{},
		store, corpus.NewJudgments(), nil, 100).WithQueryArchive(querySrc, &mockQueryWriter{})

	if _, err := svc.Build(context.Background(), false); err == nil {
		t.Fatal("expected error from query source")
	}
	if embedder.calls != 0 {
		t.Fatal("must not embed when the dataset cannot be read")
	}
	if store.Len() != 0 {
		t.Fatal("corpus must stay empty after a failed build")
	}
}

func TestBuild_QueryArchiveFailureLeavesCorpusServing(t *testing.T) {
	source := &mockSource{records: testRecords(), judgments: testJudgments()}
	querySrc := &mockQuerySource{queries: []domain.Query{{ID: "PLAIN-1", Text: "q"}}}
	queryRepo := &mockQueryWriter{err: errors.New("redis down")}
	store := corpus.NewStore()
	svc := New(source, &mockBatchEmbedder{dim: 4}, &mockDocWriter{}, &mockQrelWriter{},
		store, corpus.NewJudgments(), nil, 100).WithQueryArchive(querySrc, queryRepo)

	if _, err := svc.Build(context.Background(), false); err == nil {
		t.Fatal("expected error from query archive")
	}
	if store.Len() != 0 {
		t.Fatal("corpus must not be swapped when persistence fails")
	}
}

func TestBuild_EmptyDataset(t *testing.T) {
	svc := New(&mockSource{}, &mockBatchEmbedder{dim: 4}, &mockDocWriter{}, &mockQrelWriter{},
		corpus.NewStore(), corpus.NewJudgments(), nil, 100)

	_, err := svc.Build(context.Background(), false)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestBuild_BatchesRespectSize(t *testing.T) {
	source := &mockSource{records: testRecords()}
	embedder := &mockBatchEmbedder{dim: 4}
	svc := New(source, embedder, &mockDocWriter{}, &mockQrelWriter{},
		corpus.NewStore(), corpus.NewJudgments(), nil, 2)

	if _, err := svc.Build(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 3 records at batch size 2 means two embedding calls.
	if embedder.calls != 2 {
		t.Fatalf("expected 2 batch calls, got %d", embedder.calls)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	source := &mockSource{records: testRecords(), judgments: testJudgments()}
	store := corpus.NewStore()
	svc := New(source, &mockBatchEmbedder{dim: 4}, &mockDocWriter{}, &mockQrelWriter{},
		store, corpus.NewJudgments(), nil, 100)

	first, err := svc.Build(context.Background(), false)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	firstSnapshot := store.Snapshot()

	second, err := svc.Build(context.Background(), false)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}

	if first != second {
		t.Fatalf("builds disagree on count: %d vs %d", first, second)
	}
	secondSnapshot := store.Snapshot()
	if len(firstSnapshot) != len(secondSnapshot) {
		t.Fatal("snapshots differ in size between identical builds")
	}
	for i := range firstSnapshot {
		if firstSnapshot[i].ID != secondSnapshot[i].ID {
			t.Fatalf("snapshot order differs at %d", i)
		}
	}
}
