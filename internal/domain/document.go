package domain

// Document is one indexed corpus entry: id, raw text, embedding vector.
// Documents are created at index build time and treated as immutable until
// a full rebuild.
type Document struct {
	ID     string
	Text   string
	Vector []float32
}

// CorpusRecord is a raw corpus entry handed to the index builder before
// embedding: `doc_id, title, body` as parsed from the dataset.
type CorpusRecord struct {
	ID    string
	Title string
	Body  string
}

// Text joins title and body into the text that gets embedded and stored.
func (r CorpusRecord) Text() string {
	if r.Title == "" {
		return r.Body
	}
	if r.Body == "" {
		return r.Title
	}
	return r.Title + " " + r.Body
}

// Query is an ephemeral search request, alive for one request only.
type Query struct {
	ID   string
	Text string
}
