// Package service contains the business logic for the storefront API.
// Services validate inputs, enforce business rules, and orchestrate the
// basket engine, the snapshot store and the backend client. No storage or
// HTTP details live here.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/basket"
	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/domain"
	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/pricing"
)

// BasketService runs cart and wishlist operations for one owner at a time.
// Each call opens the owner's collection, applies one mutation (written
// through to the store) and returns the priced result.
type BasketService struct {
	store  *sharedLoadStore
	policy pricing.Policy
	log    *slog.Logger
}

// NewBasketService constructs a BasketService. A nil policy selects
// pricing.Default; a nil logger uses slog.Default().
func NewBasketService(store basket.Store, policy pricing.Policy, log *slog.Logger) *BasketService {
	if policy == nil {
		policy = pricing.Default
	}
	if log == nil {
		log = slog.Default()
	}
	return &BasketService{
		store:  &sharedLoadStore{Store: store},
		policy: policy,
		log:    log,
	}
}

// Get returns the owner's collection without changing it.
func (s *BasketService) Get(ctx context.Context, kind domain.Kind, owner string) (domain.Basket, error) {
	c, err := s.open(ctx, kind, owner)
	if err != nil {
		return domain.Basket{}, fmt.Errorf("service.BasketService.Get: %w", err)
	}
	return s.priced(c), nil
}

// Add merges item into the collection. On a cart an existing line gains
// quantity according to mode; on a wishlist the matching entry is replaced.
func (s *BasketService) Add(ctx context.Context, kind domain.Kind, owner string, item domain.LineItem, mode basket.Mode) (domain.Basket, error) {
	return s.mutate(ctx, "Add", kind, owner, func(c *basket.Collection) error {
		return c.Add(ctx, item, mode)
	})
}

// Increment adds one unit to the matching line, creating it if needed.
func (s *BasketService) Increment(ctx context.Context, kind domain.Kind, owner string, item domain.LineItem) (domain.Basket, error) {
	return s.mutate(ctx, "Increment", kind, owner, func(c *basket.Collection) error {
		return c.Increment(ctx, item)
	})
}

// Decrement removes one unit from the matching line. A line at quantity 1
// is removed; a missing line is left alone.
func (s *BasketService) Decrement(ctx context.Context, kind domain.Kind, owner string, item domain.LineItem) (domain.Basket, error) {
	return s.mutate(ctx, "Decrement", kind, owner, func(c *basket.Collection) error {
		return c.Decrement(ctx, item)
	})
}

// Remove deletes the matching line whatever its quantity.
func (s *BasketService) Remove(ctx context.Context, kind domain.Kind, owner string, item domain.LineItem) (domain.Basket, error) {
	return s.mutate(ctx, "Remove", kind, owner, func(c *basket.Collection) error {
		return c.Delete(ctx, item)
	})
}

// Clear empties the collection.
func (s *BasketService) Clear(ctx context.Context, kind domain.Kind, owner string) (domain.Basket, error) {
	return s.mutate(ctx, "Clear", kind, owner, func(c *basket.Collection) error {
		return c.Clear(ctx)
	})
}

// Replace swaps the whole collection for items, without merging.
func (s *BasketService) Replace(ctx context.Context, kind domain.Kind, owner string, items []domain.LineItem) (domain.Basket, error) {
	return s.mutate(ctx, "Replace", kind, owner, func(c *basket.Collection) error {
		return c.Replace(ctx, items)
	})
}

func (s *BasketService) mutate(ctx context.Context, op string, kind domain.Kind, owner string, apply func(*basket.Collection) error) (domain.Basket, error) {
	c, err := s.open(ctx, kind, owner)
	if err != nil {
		return domain.Basket{}, fmt.Errorf("service.BasketService.%s: %w", op, err)
	}
	if err := apply(c); err != nil {
		return domain.Basket{}, fmt.Errorf("service.BasketService.%s: %w", op, err)
	}
	return s.priced(c), nil
}

func (s *BasketService) open(ctx context.Context, kind domain.Kind, owner string) (*basket.Collection, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown collection kind %q", domain.ErrValidation, kind)
	}
	if strings.TrimSpace(owner) == "" {
		return nil, fmt.Errorf("%w: owner is required", domain.ErrValidation)
	}
	return basket.Open(ctx, s.store, kind, owner, s.log)
}

func (s *BasketService) priced(c *basket.Collection) domain.Basket {
	items := c.Items()
	lines, subtotal := pricing.Price(items, s.policy)
	count := 0
	for _, it := range items {
		count += it.Quantity
	}
	return domain.Basket{
		Kind:      c.Kind(),
		Items:     lines,
		ItemCount: count,
		Subtotal:  subtotal,
	}
}

// sharedLoadStore collapses concurrent loads of the same key into one store
// read. Saves and deletes pass straight through.
//
// The shared read runs detached from any single caller's cancellation; each
// caller stops waiting when its own context is done.
type sharedLoadStore struct {
	basket.Store
	loads singleflight.Group
}

func (s *sharedLoadStore) Load(ctx context.Context, key string) ([]byte, error) {
	ch := s.loads.DoChan(key, func() (any, error) {
		return s.Store.Load(context.WithoutCancel(ctx), key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}
