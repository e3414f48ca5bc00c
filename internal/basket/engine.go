// Package basket implements the cart and wishlist line-item engine.
//
// engine.go holds the pure operations: each takes the current items and
// returns a new slice, never mutating its input. collection.go wraps them in a
// stateful Collection that persists a snapshot after every mutation.
package basket

import (
	"fmt"

	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/domain"
)

// Mode selects how Add treats the quantity of an item that is already present.
type Mode int

const (
	// Absolute adds item.Quantity to the existing line when it is set, and
	// resets the line to a single unit when it is not.
	Absolute Mode = iota
	// IncrementByOne always adds to the existing line; an unset quantity
	// counts as 1.
	IncrementByOne
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	if m == IncrementByOne {
		return "increment"
	}
	return "absolute"
}

// ParseMode maps a wire name onto a Mode. The empty string is Absolute.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "absolute":
		return Absolute, nil
	case "increment":
		return IncrementByOne, nil
	default:
		return Absolute, fmt.Errorf("%w: mode must be absolute or increment", domain.ErrValidation)
	}
}

// SameLine reports whether a and b are the same line of a collection of kind.
//
// Cart lines match on product, colour code and size. Wishlist entries match on
// product, plus colour code only when both sides picked a colour.
func SameLine(kind domain.Kind, a, b domain.LineItem) bool {
	if a.ProductID != b.ProductID {
		return false
	}
	if kind == domain.KindWishlist {
		if a.HasColor() && b.HasColor() {
			return a.ColorCode() == b.ColorCode()
		}
		return true
	}
	return a.ColorCode() == b.ColorCode() && a.SelectedSize == b.SelectedSize
}

// indexOf returns the position of the line matching item, or -1.
func indexOf(kind domain.Kind, items []domain.LineItem, item domain.LineItem) int {
	for i, it := range items {
		if SameLine(kind, it, item) {
			return i
		}
	}
	return -1
}

// Add merges item into items.
//
// For a cart the matching line's quantity grows by item.Quantity (mode
// IncrementByOne treats an unset quantity as 1; mode Absolute with an unset
// quantity resets the line to 1). For a wishlist the matching entry is
// overwritten by item, keeping its original product id and position.
// Without a match item is appended with its quantity, or 1 when unset.
func Add(kind domain.Kind, items []domain.LineItem, item domain.LineItem, mode Mode) []domain.LineItem {
	i := indexOf(kind, items, item)
	if i < 0 {
		added := Replace([]domain.LineItem{item})[0]
		if added.Quantity <= 0 {
			added.Quantity = 1
		}
		return append(Replace(items), added)
	}

	out := Replace(items)
	existing := out[i]
	if kind == domain.KindWishlist {
		upserted := Replace([]domain.LineItem{item})[0]
		upserted.ProductID = existing.ProductID
		if upserted.Quantity <= 0 {
			upserted.Quantity = existing.Quantity
		}
		out[i] = upserted
		return out
	}

	switch {
	case mode == IncrementByOne:
		delta := item.Quantity
		if delta <= 0 {
			delta = 1
		}
		existing.Quantity += delta
	case item.Quantity > 0:
		existing.Quantity += item.Quantity
	default:
		existing.Quantity = 1
	}
	out[i] = existing
	return out
}

// Increment is Add with mode IncrementByOne.
func Increment(kind domain.Kind, items []domain.LineItem, item domain.LineItem) []domain.LineItem {
	return Add(kind, items, item, IncrementByOne)
}

// Decrement lowers the matching line by one unit, dropping it when it would
// reach zero. Without a match the items are returned unchanged.
func Decrement(kind domain.Kind, items []domain.LineItem, item domain.LineItem) []domain.LineItem {
	i := indexOf(kind, items, item)
	if i < 0 {
		return Replace(items)
	}
	if items[i].Quantity <= 1 {
		return removeAt(items, i)
	}
	out := Replace(items)
	out[i].Quantity--
	return out
}

// Delete removes the matching line regardless of its quantity.
// Without a match the items are returned unchanged.
func Delete(kind domain.Kind, items []domain.LineItem, item domain.LineItem) []domain.LineItem {
	i := indexOf(kind, items, item)
	if i < 0 {
		return Replace(items)
	}
	return removeAt(items, i)
}

// Clear returns an empty collection.
func Clear() []domain.LineItem {
	return []domain.LineItem{}
}

// Replace returns a verbatim copy of items. No identity checks are made.
func Replace(items []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, len(items))
	for i, it := range items {
		if it.SelectedColor != nil {
			c := *it.SelectedColor
			it.SelectedColor = &c
		}
		out[i] = it
	}
	return out
}

func removeAt(items []domain.LineItem, i int) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(items)-1)
	out = append(out, Replace(items[:i])...)
	return append(out, Replace(items[i+1:])...)
}
