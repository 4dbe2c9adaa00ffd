// Package indexmeta persists metadata about the last index build as a
// single JSON value in the durable store.
package indexmeta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain"
)

const metaKey = domain.KeyPrefix + "index:meta"

// store is the consumer interface for the durable KV store.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo reads and writes the build metadata record.
type Repo struct {
	store store
}

func New(s store) *Repo {
	return &Repo{store: s}
}

// Save overwrites the build metadata.
func (r *Repo) Save(ctx context.Context, meta domain.IndexMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal index meta: %w", err)
	}
	if err := r.store.Set(ctx, metaKey, data); err != nil {
		return fmt.Errorf("persist index meta: %w", err)
	}
	return nil
}

// Load returns the stored metadata. The second return value is false when
// no build has ever been recorded.
func (r *Repo) Load(ctx context.Context) (domain.IndexMeta, bool, error) {
	data, err := r.store.Get(ctx, metaKey)
	if errors.Is(err, db.ErrKeyNotFound) {
		return domain.IndexMeta{}, false, nil
	}
	if err != nil {
		return domain.IndexMeta{}, false, fmt.Errorf("load index meta: %w", err)
	}

	var meta domain.IndexMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return domain.IndexMeta{}, false, fmt.Errorf("decode index meta: %w", err)
	}
	return meta, true, nil
}
