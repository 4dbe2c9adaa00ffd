package search

import (
	"math"
	"sort"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

type scoredDoc struct {
	id    string
	score float64
}

// rankBySimilarity scores every document against the query vector by cosine
// similarity and returns the top min(topK, len(docs)) ids: descending score,
// ties broken by ascending document id so rankings are deterministic.
// A full linear scan is fine at corpus sizes in the thousands.
func rankBySimilarity(docs []domain.Document, query []float32, topK int) []string {
	if len(docs) == 0 || topK <= 0 {
		return []string{}
	}

	queryNorm := vectorNorm(query)

	scored := make([]scoredDoc, len(docs))
	for i, d := range docs {
		scored[i] = scoredDoc{id: d.ID, score: cosineSimilarity(query, queryNorm, d.Vector)}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].id < scored[j].id
	})

	if topK > len(scored) {
		topK = len(scored)
	}
	ids := make([]string, topK)
	for i := range ids {
		ids[i] = scored[i].id
	}
	return ids
}

// cosineSimilarity computes dot(a,b) / (|a|*|b|) with float64 accumulation.
// A zero-norm vector on either side scores 0.
func cosineSimilarity(a []float32, aNorm float64, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, bSq float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		bSq += float64(b[i]) * float64(b[i])
	}

	bNorm := math.Sqrt(bSq)
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	return dot / (aNorm * bNorm)
}

func vectorNorm(v []float32) float64 {
	var sq float64
	for _, x := range v {
		sq += float64(x) * float64(x)
	}
	return math.Sqrt(sq)
}
