package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mcoot/combattracker/internal/dependencies/clock"
	"github.com/mcoot/combattracker/internal/dependencies/random"
	"github.com/mcoot/combattracker/internal/model"
)

// record is satisfied by pointers to structs embedding model.Meta
type record[T any] interface {
	*T
	Metadata() *model.Meta
}

// Collection is a CRUD provider over one key holding a JSON array of T
type Collection[T any, P record[T]] struct {
	kv     KV
	locks  *KeyLocks
	key    string
	clock  clock.Clock
	random random.Random
	logger *slog.Logger
}

// NewCollection creates a provider for the given storage key. Writes hold
// the key's lock in locks for their whole read-modify-write cycle.
func NewCollection[T any, P record[T]](kv KV, locks *KeyLocks, key string, clk clock.Clock, rnd random.Random, logger *slog.Logger) *Collection[T, P] {
	return &Collection[T, P]{
		kv:     kv,
		locks:  locks,
		key:    key,
		clock:  clk,
		random: rnd,
		logger: logger.With(slog.String("collection", key)),
	}
}

// Key returns the storage key backing this collection
func (c *Collection[T, P]) Key() string {
	return c.key
}

// List returns every record in stored order.
// A value that fails to parse is treated as an empty collection.
func (c *Collection[T, P]) List(ctx context.Context) ([]T, error) {
	raw, ok, err := c.kv.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.key, err)
	}
	if !ok || raw == "" {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		c.logger.Warn("stored collection is unreadable, treating as empty",
			slog.String("error", err.Error()),
		)
		return []T{}, nil
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Get returns the record with the given ID or model.ErrNotFound
func (c *Collection[T, P]) Get(ctx context.Context, id string) (*T, error) {
	items, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if P(&items[i]).Metadata().ID == id {
			return &items[i], nil
		}
	}
	return nil, model.ErrNotFound
}

// Create appends a record, assigning an ID when empty and stamping both timestamps
func (c *Collection[T, P]) Create(ctx context.Context, item *T) (*T, error) {
	defer c.locks.Lock(c.key)()

	items, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	meta := P(item).Metadata()
	if meta.ID == "" {
		meta.ID = c.random.ID()
	}
	for i := range items {
		if P(&items[i]).Metadata().ID == meta.ID {
			return nil, fmt.Errorf("create %s: duplicate id %q", c.key, meta.ID)
		}
	}
	now := clock.Millis(c.clock)
	meta.CreatedAt = now
	meta.UpdatedAt = now

	items = append(items, *item)
	if err := c.save(ctx, items); err != nil {
		return nil, err
	}
	return item, nil
}

// Update replaces a record, keeping createdAt and refreshing updatedAt
func (c *Collection[T, P]) Update(ctx context.Context, item *T) (*T, error) {
	defer c.locks.Lock(c.key)()

	items, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	meta := P(item).Metadata()
	for i := range items {
		existing := P(&items[i]).Metadata()
		if existing.ID != meta.ID {
			continue
		}
		meta.CreatedAt = existing.CreatedAt
		meta.UpdatedAt = clock.Millis(c.clock)
		items[i] = *item
		if err := c.save(ctx, items); err != nil {
			return nil, err
		}
		return item, nil
	}
	return nil, model.ErrNotFound
}

// Delete removes a record by ID
func (c *Collection[T, P]) Delete(ctx context.Context, id string) error {
	defer c.locks.Lock(c.key)()

	items, err := c.List(ctx)
	if err != nil {
		return err
	}
	for i := range items {
		if P(&items[i]).Metadata().ID == id {
			items = append(items[:i], items[i+1:]...)
			return c.save(ctx, items)
		}
	}
	return model.ErrNotFound
}

// Modify loads the record with the given ID, lets fn change it and stores
// the result without releasing the key in between. fn may replace the
// record but its ID and createdAt are kept; updatedAt is refreshed.
func (c *Collection[T, P]) Modify(ctx context.Context, id string, fn func(item *T) error) (*T, error) {
	defer c.locks.Lock(c.key)()

	items, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		existing := *P(&items[i]).Metadata()
		if existing.ID != id {
			continue
		}
		item := items[i]
		if err := fn(&item); err != nil {
			return nil, err
		}
		meta := P(&item).Metadata()
		meta.ID = existing.ID
		meta.CreatedAt = existing.CreatedAt
		meta.UpdatedAt = clock.Millis(c.clock)
		items[i] = item
		if err := c.save(ctx, items); err != nil {
			return nil, err
		}
		return &item, nil
	}
	return nil, model.ErrNotFound
}

func (c *Collection[T, P]) save(ctx context.Context, items []T) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key, err)
	}
	if err := c.kv.Set(ctx, c.key, string(data)); err != nil {
		return fmt.Errorf("write %s: %w", c.key, err)
	}
	return nil
}
