package domain

// Judgment is one ground-truth relevance record (a qrel line):
// grade 0 means not relevant, >0 means relevant at that grade.
type Judgment struct {
	QueryID string
	DocID   string
	Grade   int
}
