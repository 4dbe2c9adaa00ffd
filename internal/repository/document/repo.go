// Package document persists the indexed corpus so it survives restarts:
// one hash per document keyed by id, vector stored as little-endian float32
// bytes.
package document

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain"
)

var docKeyPrefix = domain.KeyPrefix + "doc:"

const (
	fieldText   = "text"
	fieldVector = "vector"
)

// store is the consumer interface for document persistence (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	DelMulti(ctx context.Context, keys []string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements the durable document store.
type Repo struct {
	store     store
	batchSize int
}

// New creates a document repository. batchSize bounds the number of keys per
// pipelined round-trip.
func New(s store, batchSize int) *Repo {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Repo{store: s, batchSize: batchSize}
}

// ReplaceAll rewrites the persisted corpus: existing document keys are
// removed, then the new documents are written in pipelined batches.
func (r *Repo) ReplaceAll(ctx context.Context, docs []domain.Document) error {
	existing, err := r.store.Scan(ctx, docKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("scan existing documents: %w", err)
	}
	if err := r.store.DelMulti(ctx, existing); err != nil {
		return fmt.Errorf("delete existing documents: %w", err)
	}

	for start := 0; start < len(docs); start += r.batchSize {
		end := start + r.batchSize
		if end > len(docs) {
			end = len(docs)
		}

		items := make([]db.HashSetItem, 0, end-start)
		for _, doc := range docs[start:end] {
			items = append(items, db.HashSetItem{
				Key: docKey(doc.ID),
				Fields: map[string]string{
					fieldText:   doc.Text,
					fieldVector: string(vectorToBytes(doc.Vector)),
				},
			})
		}
		if err := r.store.HSetMulti(ctx, items); err != nil {
			return fmt.Errorf("persist documents [%d:%d]: %w", start, end, err)
		}
	}

	return nil
}

// LoadAll rehydrates the persisted corpus, sorted by document id so reloads
// are deterministic.
func (r *Repo) LoadAll(ctx context.Context) ([]domain.Document, error) {
	keys, err := r.store.Scan(ctx, docKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	sort.Strings(keys)

	docs := make([]domain.Document, 0, len(keys))
	for start := 0; start < len(keys); start += r.batchSize {
		end := start + r.batchSize
		if end > len(keys) {
			end = len(keys)
		}

		batch := keys[start:end]
		hashes, err := r.store.HGetAllMulti(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("load documents [%d:%d]: %w", start, end, err)
		}

		for i, fields := range hashes {
			doc, err := parseDoc(batch[i], fields)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}

	return docs, nil
}

func parseDoc(key string, fields map[string]string) (domain.Document, error) {
	id := strings.TrimPrefix(key, docKeyPrefix)
	vec, err := bytesToVector([]byte(fields[fieldVector]))
	if err != nil {
		return domain.Document{}, fmt.Errorf("document %s: %w", id, err)
	}
	return domain.Document{
		ID:     id,
		Text:   fields[fieldText],
		Vector: vec,
	}, nil
}

func docKey(id string) string {
	return docKeyPrefix + id
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
