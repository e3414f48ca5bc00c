package basket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/domain"
)

// Store persists serialized collection snapshots by key.
// Defining the interface here lets the collection run against the memory,
// Redis or Postgres repos, and against a mock in tests.
type Store interface {
	// Load returns the snapshot stored under key, or domain.ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save overwrites the snapshot stored under key.
	Save(ctx context.Context, key string, data []byte) error
	// Delete removes the snapshot stored under key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}

// snapshot is the persisted shape of a collection.
type snapshot struct {
	Items []domain.LineItem `json:"items"`
}

// Collection is one owner's cart or wishlist.
//
// It is loaded once by Open and every mutator writes the new snapshot through
// to the Store before updating the in-memory items. A Collection is meant to
// be owned by a single request; two Collections for the same key that write
// concurrently overwrite each other (last writer wins).
type Collection struct {
	kind  domain.Kind
	key   string
	store Store
	log   *slog.Logger
	items []domain.LineItem
}

// Open loads owner's collection of kind from store.
// A missing snapshot yields an empty collection. A snapshot that cannot be
// decoded, or holds invalid lines, is discarded and the collection starts
// empty; this is logged but not returned as an error.
func Open(ctx context.Context, store Store, kind domain.Kind, owner string, log *slog.Logger) (*Collection, error) {
	if log == nil {
		log = slog.Default()
	}
	c := &Collection{
		kind:  kind,
		key:   kind.SnapshotKey(owner),
		store: store,
		log:   log,
		items: Clear(),
	}

	data, err := store.Load(ctx, c.key)
	if errors.Is(err, domain.ErrNotFound) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("basket.Open: %w", err)
	}

	items, err := Decode(data)
	if err != nil {
		log.WarnContext(ctx, "discarding corrupt snapshot", "key", c.key, "error", err)
		if delErr := store.Delete(ctx, c.key); delErr != nil {
			log.WarnContext(ctx, "failed to delete corrupt snapshot", "key", c.key, "error", delErr)
		}
		return c, nil
	}
	c.items = items
	return c, nil
}

// Kind returns whether this is a cart or a wishlist.
func (c *Collection) Kind() domain.Kind { return c.kind }

// Items returns a copy of the current lines in insertion order.
func (c *Collection) Items() []domain.LineItem {
	return Replace(c.items)
}

// Snapshot returns the serialized form of the current lines.
func (c *Collection) Snapshot() ([]byte, error) {
	return Encode(c.items)
}

// Add merges item into the collection (see the package-level Add).
func (c *Collection) Add(ctx context.Context, item domain.LineItem, mode Mode) error {
	if err := item.Validate(); err != nil {
		return err
	}
	return c.commit(ctx, Add(c.kind, c.items, item, mode))
}

// Increment adds one unit (or item.Quantity units) to the matching line.
func (c *Collection) Increment(ctx context.Context, item domain.LineItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	return c.commit(ctx, Increment(c.kind, c.items, item))
}

// Decrement removes one unit from the matching line.
func (c *Collection) Decrement(ctx context.Context, item domain.LineItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	return c.commit(ctx, Decrement(c.kind, c.items, item))
}

// Delete removes the matching line.
func (c *Collection) Delete(ctx context.Context, item domain.LineItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	return c.commit(ctx, Delete(c.kind, c.items, item))
}

// Clear empties the collection.
func (c *Collection) Clear(ctx context.Context) error {
	return c.commit(ctx, Clear())
}

// Replace swaps in items verbatim. Each line must still satisfy the line
// item preconditions and carry a quantity of at least 1.
func (c *Collection) Replace(ctx context.Context, items []domain.LineItem) error {
	if err := validateStored(items); err != nil {
		return err
	}
	return c.commit(ctx, Replace(items))
}

func (c *Collection) commit(ctx context.Context, next []domain.LineItem) error {
	data, err := Encode(next)
	if err != nil {
		return fmt.Errorf("basket.Collection.commit: %w", err)
	}
	if err := c.store.Save(ctx, c.key, data); err != nil {
		return fmt.Errorf("basket.Collection.commit: %w", err)
	}
	c.items = next
	return nil
}

// Encode serializes items into the snapshot format.
// The output is deterministic: encoding the result of Decode(Encode(x))
// yields the same bytes.
func Encode(items []domain.LineItem) ([]byte, error) {
	if items == nil {
		items = []domain.LineItem{}
	}
	return json.Marshal(snapshot{Items: items})
}

// Decode parses a snapshot produced by Encode. Trailing data and lines that
// break the stored-line invariants are rejected; unknown fields, such as
// those written by a newer build, are ignored.
func Decode(data []byte) ([]domain.LineItem, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	var s snapshot
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if dec.More() {
		return nil, errors.New("decode snapshot: trailing data")
	}
	if err := validateStored(s.Items); err != nil {
		return nil, err
	}
	if s.Items == nil {
		s.Items = []domain.LineItem{}
	}
	return s.Items, nil
}

func validateStored(items []domain.LineItem) error {
	for i, it := range items {
		if err := it.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", i, err)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("line %d: %w: quantity must be at least 1", i, domain.ErrInvalidLineItem)
		}
	}
	return nil
}
