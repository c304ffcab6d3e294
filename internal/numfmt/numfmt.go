// Package numfmt holds the pt-BR number conventions shared by the cart, the
// bulk entry batch and the HTTP layer: "." groups thousands and "," marks
// decimals. Parsing never fails; anything unreadable becomes zero.
package numfmt

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseBR reads a user-typed number such as "1.234,50".
func ParseBR(raw string) float64 {
	t := strings.TrimSpace(raw)
	if t == "" {
		return 0
	}
	t = strings.ReplaceAll(t, ".", "")
	t = strings.Replace(t, ",", ".", 1)
	n, err := strconv.ParseFloat(t, 64)
	if err != nil || !Finite(n) {
		return 0
	}
	return n
}

func Finite(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0)
}

// Dec lifts a float into a decimal using its shortest representation, so
// 0.35 stays 0.35 rather than its binary neighbour.
func Dec(n float64) decimal.Decimal {
	if !Finite(n) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(n)
}

// Round2 rounds money half-up to cents.
func Round2(n float64) float64 {
	return Dec(n).Round(2).InexactFloat64()
}

// Round3 rounds quantities to three decimals.
func Round3(n float64) float64 {
	return Dec(n).Round(3).InexactFloat64()
}

// Mul2 multiplies exactly and rounds the product to cents.
func Mul2(a, b float64) float64 {
	return Dec(a).Mul(Dec(b)).Round(2).InexactFloat64()
}

// Div2 divides and rounds to cents. A zero divisor yields zero.
func Div2(a, b float64) float64 {
	d := Dec(b)
	if d.IsZero() {
		return 0
	}
	return Dec(a).Div(d).Round(2).InexactFloat64()
}

// Add3 sums quantities without drifting past the third decimal.
func Add3(a, b float64) float64 {
	return Dec(a).Add(Dec(b)).Round(3).InexactFloat64()
}

// Sum2 adds money values exactly and rounds once.
func Sum2(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(Dec(v))
	}
	return total.Round(2).InexactFloat64()
}

// ApplyPct takes pct percent off amount, e.g. ApplyPct(179.8, 10) = 161.82.
func ApplyPct(amount, pct float64) float64 {
	return offFactor(pct).Mul(Dec(amount)).Round(2).InexactFloat64()
}

// LineTotal is price x qty with pct off, rounded once at the end.
func LineTotal(price, qty, pct float64) float64 {
	return Dec(price).Mul(Dec(qty)).Mul(offFactor(pct)).Round(2).InexactFloat64()
}

// PctOff is the discount percentage that turns base into total, to two
// decimals. A zero base yields zero.
func PctOff(total, base float64) float64 {
	b := Dec(base)
	if b.IsZero() {
		return 0
	}
	return decimal.NewFromInt(1).Sub(Dec(total).Div(b)).Mul(hundred).Round(2).InexactFloat64()
}

func offFactor(pct float64) decimal.Decimal {
	return hundred.Sub(Dec(pct)).Div(hundred)
}

func ClampPct(n float64) float64 {
	switch {
	case !Finite(n), n < 0:
		return 0
	case n > 100:
		return 100
	}
	return n
}

// FormatMoney renders two decimals with a comma, e.g. "161,82".
func FormatMoney(n float64) string {
	if !Finite(n) {
		return "0,00"
	}
	return strings.Replace(strconv.FormatFloat(Round2(n), 'f', 2, 64), ".", ",", 1)
}

// FormatPct prints whole percentages without decimals and anything else
// rounded to two places.
func FormatPct(n float64) string {
	if !Finite(n) {
		return "0"
	}
	v := Round2(n)
	if math.Abs(v-math.Round(v)) < 1e-9 {
		return strconv.FormatInt(int64(math.Round(v)), 10)
	}
	return strings.Replace(strconv.FormatFloat(v, 'f', -1, 64), ".", ",", 1)
}

func FormatQty(n float64) string {
	if !Finite(n) {
		return "0"
	}
	if math.Abs(n-math.Round(n)) < 1e-9 {
		return strconv.FormatInt(int64(math.Round(n)), 10)
	}
	s := strconv.FormatFloat(n, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return strings.Replace(s, ".", ",", 1)
}
