// Package pricing holds the checkout arithmetic: subtotal, voucher discount,
// consumption tax and grand total, plus the voucher applicability rules.
package pricing

import "github.com/shopspring/decimal"

// TaxRate is the regional consumption tax applied to the discounted subtotal.
var TaxRate = decimal.RequireFromString("0.11")

var hundred = decimal.NewFromInt(100)

// LineItem is a priced cart row.
type LineItem struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Breakdown is the result of pricing a cart.
type Breakdown struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Subtotal sums unitPrice * quantity. Rows with a non-positive quantity are ignored.
func Subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

// Discount returns the amount v takes off subtotal. The result is clamped to
// [0, subtotal] for both discount types.
func Discount(subtotal decimal.Decimal, v *Voucher) decimal.Decimal {
	if v == nil || !subtotal.IsPositive() {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch v.Type {
	case DiscountPercentage:
		amount = subtotal.Mul(v.Value).Div(hundred).Round(2)
		if v.MaxDiscount != nil && amount.GreaterThan(*v.MaxDiscount) {
			amount = *v.MaxDiscount
		}
	case DiscountFixed:
		amount = v.Value
	default:
		return decimal.Zero
	}

	if amount.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(subtotal) {
		return subtotal
	}
	return amount
}

// Tax computes the consumption tax on a taxable base, rounded half-up to cents.
func Tax(base decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() {
		return decimal.Zero
	}
	return base.Mul(TaxRate).Round(2)
}

// Calculate prices items with an optional voucher. The voucher is not
// validated here; callers run Validate first.
func Calculate(items []LineItem, v *Voucher) Breakdown {
	subtotal := Subtotal(items)
	discount := Discount(subtotal, v)
	tax := Tax(subtotal.Sub(discount))

	return Breakdown{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Total:    subtotal.Sub(discount).Add(tax),
	}
}
