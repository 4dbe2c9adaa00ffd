// Package queries archives the dataset's query strings alongside the index:
// one hash per query id holding the raw text. The archive is written on each
// build for inspection and reconciliation against the judgment set; serving
// never reads it.
package queries

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain"
)

var queryKeyPrefix = domain.KeyPrefix + "query:"

const fieldText = "text"

// store is the consumer interface for query persistence (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	DelMulti(ctx context.Context, keys []string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements the durable query archive.
type Repo struct {
	store store
}

// New creates a query archive repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// ReplaceAll rewrites the archived query set.
func (r *Repo) ReplaceAll(ctx context.Context, records []domain.Query) error {
	existing, err := r.store.Scan(ctx, queryKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("scan existing queries: %w", err)
	}
	if err := r.store.DelMulti(ctx, existing); err != nil {
		return fmt.Errorf("delete existing queries: %w", err)
	}

	items := make([]db.HashSetItem, 0, len(records))
	for _, q := range records {
		items = append(items, db.HashSetItem{
			Key:    queryKey(q.ID),
			Fields: map[string]string{fieldText: q.Text},
		})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("persist queries: %w", err)
	}
	return nil
}

func queryKey(id string) string {
	return queryKeyPrefix + id
}
