// Package domain contains the core data types for the storefront backend.
// It has no dependencies on other internal packages and is imported by every
// other internal package (basket, pricing, repo, service, handler).
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ProductID is the stable identifier of a catalog product.
// The backend hands out both numeric and string ids, so decoding accepts a
// JSON number or a JSON string; encoding always produces a string.
type ProductID string

// UnmarshalJSON accepts 7, "7" and null (which decodes to the empty id).
func (p *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*p = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("product id: %w", err)
		}
		*p = ProductID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("product id: %w", err)
		}
		*p = ProductID(n.String())
		return nil
	}
}

// String returns the id as a plain string.
func (p ProductID) String() string { return string(p) }

// Color is the colour variant a shopper picked for a product.
type Color struct {
	ColorCode string `json:"colorCode"`
	ColorName string `json:"colorName"`
}

// LineItem is a purchasable unit placed in a cart or wishlist.
//
// Two cart lines are the same line when ProductID, the selected colour code and
// the selected size all match. SelectedImageID, Name and the UnitPrice snapshot
// never take part in identity.
type LineItem struct {
	ProductID       ProductID `json:"productId"`
	Name            string    `json:"name"`
	UnitPrice       float64   `json:"unitPrice"`
	DiscountPercent float64   `json:"discountPercent,omitempty"`
	SelectedColor   *Color    `json:"selectedColor,omitempty"`
	SelectedSize    string    `json:"selectedSize,omitempty"`
	SelectedImageID string    `json:"selectedImageId,omitempty"`
	// Quantity is >= 1 for every stored line. In input items 0 means "unset".
	Quantity int `json:"quantity"`
}

// ColorCode returns the selected colour code, or "" when no colour was picked.
func (li LineItem) ColorCode() string {
	if li.SelectedColor == nil {
		return ""
	}
	return li.SelectedColor.ColorCode
}

// HasColor reports whether a colour variant was selected.
func (li LineItem) HasColor() bool {
	return li.SelectedColor != nil && li.SelectedColor.ColorCode != ""
}

// Validate enforces the engine's preconditions on an incoming item.
//   - ProductID must be non-empty.
//   - Quantity, UnitPrice must not be negative.
//   - DiscountPercent must be within 0..100.
func (li LineItem) Validate() error {
	if strings.TrimSpace(string(li.ProductID)) == "" {
		return fmt.Errorf("%w: productId is required", ErrInvalidLineItem)
	}
	if li.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidLineItem)
	}
	if li.UnitPrice < 0 {
		return fmt.Errorf("%w: unitPrice must not be negative", ErrInvalidLineItem)
	}
	if li.DiscountPercent < 0 || li.DiscountPercent > 100 {
		return fmt.Errorf("%w: discountPercent must be between 0 and 100", ErrInvalidLineItem)
	}
	return nil
}

// Kind names which collection a line item lives in.
type Kind string

const (
	// KindCart is the shopping cart; quantities are meaningful.
	KindCart Kind = "cart"
	// KindWishlist is the wishlist; adds upsert instead of summing quantities.
	KindWishlist Kind = "wishlist"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindCart || k == KindWishlist
}

// Namespace is the fixed prefix under which snapshots of this kind are stored.
func (k Kind) Namespace() string {
	return string(k)
}

// SnapshotKey returns the storage key of owner's collection of this kind.
func (k Kind) SnapshotKey(owner string) string {
	return k.Namespace() + ":" + owner
}
