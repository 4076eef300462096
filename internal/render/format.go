package render

import (
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Unavailable marks a value the upstream did not report.
const Unavailable = "-"

var units = []struct {
	size   decimal.Decimal
	suffix string
}{
	{decimal.New(1, 12), "T"},
	{decimal.New(1, 9), "B"},
	{decimal.New(1, 6), "M"},
	{decimal.New(1, 3), "K"},
}

// FormatNumber scales n by the largest unit it reaches (T, B, M, K) and prints
// it with two decimals: 1500000 -> "1.50M", -250 -> "-250.00".
func FormatNumber(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return Unavailable
	}
	return formatDecimal(decimal.NewFromFloat(n))
}

func formatDecimal(d decimal.Decimal) string {
	idx := len(units)
	for i, u := range units {
		if d.Abs().GreaterThanOrEqual(u.size) {
			idx = i
			break
		}
	}
	// 999999.999 rounds to 1000.00K; move up so it prints as 1.00M
	for idx > 0 && scale(d, idx).Round(2).Abs().GreaterThanOrEqual(thousand) {
		idx--
	}
	if idx == len(units) {
		return d.StringFixed(2)
	}
	return scale(d, idx).StringFixed(2) + units[idx].suffix
}

var thousand = decimal.New(1, 3)

func scale(d decimal.Decimal, idx int) decimal.Decimal {
	if idx == len(units) {
		return d
	}
	return d.Div(units[idx].size)
}

// FormatCell normalises a scraped cell: separators and whitespace are
// stripped, "--" and blanks become Unavailable, numbers are scaled with
// FormatNumber and anything else is returned as is.
func FormatCell(raw string) string {
	clean := strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	if clean == "" || clean == "--" {
		return Unavailable
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return raw
	}
	return formatDecimal(d)
}

// FormatPrice prints an unscaled two-decimal amount.
func FormatPrice(n *float64) string {
	if n == nil || math.IsNaN(*n) || math.IsInf(*n, 0) {
		return Unavailable
	}
	return decimal.NewFromFloat(*n).StringFixed(2)
}

// FormatPercent prints a fraction as a signed percentage: 0.0123 -> "+1.23%".
func FormatPercent(fraction *float64) string {
	if fraction == nil || math.IsNaN(*fraction) || math.IsInf(*fraction, 0) {
		return Unavailable
	}
	d := decimal.NewFromFloat(*fraction).Mul(decimal.NewFromInt(100))
	s := d.StringFixed(2) + "%"
	if d.IsPositive() {
		s = "+" + s
	}
	return s
}

func formatOptional(n *float64) string {
	if n == nil {
		return Unavailable
	}
	return FormatNumber(*n)
}
