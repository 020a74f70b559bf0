package service

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/navid-fn/planrelay/internal/crm"
)

// FieldFetcher lists the location's custom-field schema.
type FieldFetcher func(ctx context.Context) ([]crm.CustomField, error)

// FieldCache maps plan keys to CRM custom-field ids for the life of the
// process. Concurrent cold callers share a single fetch; a failed fetch is
// not remembered. The schema is never refreshed, restart to pick up changes.
type FieldCache struct {
	fetch FieldFetcher
	group singleflight.Group

	mu  sync.RWMutex
	ids map[string]string
}

func NewFieldCache(fetch FieldFetcher) *FieldCache {
	return &FieldCache{fetch: fetch}
}

// GetOrFetch returns the key→id map. The map is shared; do not modify it.
func (c *FieldCache) GetOrFetch(ctx context.Context) (map[string]string, error) {
	if ids := c.cached(); ids != nil {
		return ids, nil
	}

	// the shared fetch must not die with whichever caller started it
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("custom-fields", func() (any, error) {
		if ids := c.cached(); ids != nil {
			return ids, nil
		}

		fields, err := c.fetch(fetchCtx)
		if err != nil {
			return nil, err
		}

		ids := make(map[string]string, len(fields))
		for _, f := range fields {
			if f.ID == "" || f.Key() == "" {
				continue
			}
			ids[f.Key()] = f.ID
		}

		c.mu.Lock()
		c.ids = ids
		c.mu.Unlock()
		return ids, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[string]string), nil
	}
}

func (c *FieldCache) cached() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ids
}
