package domain

// PricedLine is a stored line item together with its computed prices.
type PricedLine struct {
	LineItem
	DiscountedUnitPrice float64 `json:"discountedUnitPrice"`
	LineTotal           float64 `json:"lineTotal"`
}

// Basket is the read model returned for a cart or wishlist.
// Items keep insertion order. ItemCount is the sum of quantities.
type Basket struct {
	Kind      Kind         `json:"kind"`
	Items     []PricedLine `json:"items"`
	ItemCount int          `json:"itemCount"`
	Subtotal  float64      `json:"subtotal"`
}
