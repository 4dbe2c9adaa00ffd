// Package status reports index state: how many documents are serving and
// how many queries carry relevance judgments.
package status

// CorpusCounter exposes the size of the serving corpus.
type CorpusCounter interface {
	Len() int
}

// JudgmentCounter exposes how many distinct queries have judgments.
type JudgmentCounter interface {
	NumQueries() int
}

// Report is a point-in-time snapshot of index state.
type Report struct {
	NumIndexedItems   int
	NumQueriesInQrels int
}

// Service answers status requests.
type Service struct {
	corpus CorpusCounter
	qrels  JudgmentCounter
}

func New(corpus CorpusCounter, qrels JudgmentCounter) *Service {
	return &Service{corpus: corpus, qrels: qrels}
}

func (s *Service) Report() Report {
	return Report{
		NumIndexedItems:   s.corpus.Len(),
		NumQueriesInQrels: s.qrels.NumQueries(),
	}
}
