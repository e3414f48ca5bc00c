// Package pricing computes discount-aware unit prices and line totals.
//
// All arithmetic is done in shopspring/decimal and rounded half-up to two
// decimal places. The default TwoStage policy rounds the discounted unit price
// and then rounds the line total again; SingleStage rounds only the final
// product.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/domain"
)

// places is the number of decimal places every price is rounded to.
const places = 2

var hundred = decimal.NewFromInt(100)

// Policy decides where rounding happens when pricing a line.
type Policy interface {
	// Name is the configuration name of the policy.
	Name() string
	// UnitPrice returns the discounted unit price.
	UnitPrice(unitPrice, discountPercent float64) decimal.Decimal
	// LineTotal returns the price of quantity units.
	LineTotal(unitPrice, discountPercent float64, quantity int) decimal.Decimal
}

// TwoStage rounds the unit price, then rounds unit price × quantity.
type TwoStage struct{}

// Name implements Policy.
func (TwoStage) Name() string { return "two-stage" }

// UnitPrice implements Policy.
func (TwoStage) UnitPrice(unitPrice, discountPercent float64) decimal.Decimal {
	return discounted(unitPrice, discountPercent).Round(places)
}

// LineTotal implements Policy.
func (p TwoStage) LineTotal(unitPrice, discountPercent float64, quantity int) decimal.Decimal {
	return p.UnitPrice(unitPrice, discountPercent).Mul(decimal.NewFromInt(int64(quantity))).Round(places)
}

// SingleStage keeps the unrounded unit price for the multiplication and
// rounds once at the end.
type SingleStage struct{}

// Name implements Policy.
func (SingleStage) Name() string { return "single-stage" }

// UnitPrice implements Policy.
func (SingleStage) UnitPrice(unitPrice, discountPercent float64) decimal.Decimal {
	return discounted(unitPrice, discountPercent).Round(places)
}

// LineTotal implements Policy.
func (SingleStage) LineTotal(unitPrice, discountPercent float64, quantity int) decimal.Decimal {
	return discounted(unitPrice, discountPercent).Mul(decimal.NewFromInt(int64(quantity))).Round(places)
}

// Default is the policy used when none is configured.
var Default Policy = TwoStage{}

// PolicyByName returns the policy registered under name.
// An empty name selects Default.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "":
		return Default, nil
	case TwoStage{}.Name():
		return TwoStage{}, nil
	case SingleStage{}.Name():
		return SingleStage{}, nil
	default:
		return nil, fmt.Errorf("unknown price rounding policy %q", name)
	}
}

// DiscountedUnitPrice returns unitPrice reduced by discountPercent, rounded
// to two decimal places. A missing or non-positive discount leaves the price
// unchanged (still rounded).
func DiscountedUnitPrice(unitPrice, discountPercent float64) float64 {
	return Default.UnitPrice(unitPrice, discountPercent).InexactFloat64()
}

// LineTotal returns the Default policy's total for quantity units.
func LineTotal(unitPrice, discountPercent float64, quantity int) float64 {
	return Default.LineTotal(unitPrice, discountPercent, quantity).InexactFloat64()
}

// Round rounds v half-up to two decimal places.
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// FormatAmount renders v with exactly two decimals, e.g. "80000.00".
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// Price computes the priced lines and the subtotal of items under policy.
// The subtotal is the sum of the already rounded line totals.
func Price(items []domain.LineItem, policy Policy) ([]domain.PricedLine, float64) {
	if policy == nil {
		policy = Default
	}
	lines := make([]domain.PricedLine, 0, len(items))
	subtotal := decimal.Zero
	for _, it := range items {
		total := policy.LineTotal(it.UnitPrice, it.DiscountPercent, it.Quantity)
		lines = append(lines, domain.PricedLine{
			LineItem:            it,
			DiscountedUnitPrice: policy.UnitPrice(it.UnitPrice, it.DiscountPercent).InexactFloat64(),
			LineTotal:           total.InexactFloat64(),
		})
		subtotal = subtotal.Add(total)
	}
	return lines, subtotal.Round(places).InexactFloat64()
}

func discounted(unitPrice, discountPercent float64) decimal.Decimal {
	price := decimal.NewFromFloat(unitPrice)
	if discountPercent <= 0 {
		return price
	}
	cut := price.Mul(decimal.NewFromFloat(discountPercent).Div(hundred))
	return price.Sub(cut)
}
