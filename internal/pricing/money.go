package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatPrice renders an amount as rupiah with dot thousand separators,
// e.g. "Rp 199.800" or "Rp 1.250,50".
func FormatPrice(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	rounded := amount.Round(2)
	whole := rounded.Truncate(0)
	cents := rounded.Sub(whole).Mul(hundred).IntPart()

	str := whole.String()
	var result strings.Builder
	length := len(str)
	for i, digit := range str {
		if i > 0 && (length-i)%3 == 0 {
			result.WriteString(".")
		}
		result.WriteRune(digit)
	}

	out := "Rp " + sign + result.String()
	if cents > 0 {
		out += fmt.Sprintf(",%02d", cents)
	}
	return out
}
