// Package eval computes retrieval-quality metrics against relevance judgments.
package eval

// PrecisionAtK returns the fraction of the first min(k, len(rankedIDs))
// entries whose document id carries a grade > 0 in judgments, divided by k.
//
// The denominator is always k, not the number of results actually returned:
// a short or empty ranking is penalized rather than rewarded. This is a
// fixed policy choice, not a property of the metric itself.
func PrecisionAtK(rankedIDs []string, judgments map[string]int, k int) float64 {
	if k <= 0 || len(judgments) == 0 {
		return 0.0
	}

	top := rankedIDs
	if len(top) > k {
		top = top[:k]
	}

	relevant := 0
	for _, id := range top {
		if grade, ok := judgments[id]; ok && grade > 0 {
			relevant++
		}
	}

	return float64(relevant) / float64(k)
}
