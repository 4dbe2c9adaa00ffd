// Package qrels persists relevance judgments: one hash per query id mapping
// doc_id to grade.
package qrels

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain"
)

var qrelKeyPrefix = domain.KeyPrefix + "qrel:"

// store is the consumer interface for judgment persistence (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	DelMulti(ctx context.Context, keys []string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements the durable judgment store.
type Repo struct {
	store store
}

// New creates a judgment repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// ReplaceAll rewrites the persisted judgment set.
func (r *Repo) ReplaceAll(ctx context.Context, records []domain.Judgment) error {
	existing, err := r.store.Scan(ctx, qrelKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("scan existing judgments: %w", err)
	}
	if err := r.store.DelMulti(ctx, existing); err != nil {
		return fmt.Errorf("delete existing judgments: %w", err)
	}

	byQuery := make(map[string]map[string]string)
	for _, rec := range records {
		m, ok := byQuery[rec.QueryID]
		if !ok {
			m = make(map[string]string)
			byQuery[rec.QueryID] = m
		}
		m[rec.DocID] = strconv.Itoa(rec.Grade)
	}

	items := make([]db.HashSetItem, 0, len(byQuery))
	for queryID, fields := range byQuery {
		items = append(items, db.HashSetItem{Key: qrelKey(queryID), Fields: fields})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("persist judgments: %w", err)
	}
	return nil
}

// LoadAll rehydrates the persisted judgment set.
func (r *Repo) LoadAll(ctx context.Context) ([]domain.Judgment, error) {
	keys, err := r.store.Scan(ctx, qrelKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan judgments: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	sort.Strings(keys)

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load judgments: %w", err)
	}

	var records []domain.Judgment
	for i, fields := range hashes {
		queryID := strings.TrimPrefix(keys[i], qrelKeyPrefix)
		for docID, gradeStr := range fields {
			grade, err := strconv.Atoi(gradeStr)
			if err != nil {
				return nil, fmt.Errorf("judgment %s/%s: invalid grade %q: %w", queryID, docID, gradeStr, err)
			}
			records = append(records, domain.Judgment{QueryID: queryID, DocID: docID, Grade: grade})
		}
	}

	return records, nil
}

func qrelKey(queryID string) string {
	return qrelKeyPrefix + queryID
}
