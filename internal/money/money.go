// Package money holds the rounding-safe arithmetic shared by the receipt
// engine, the bill allocator and the share codec.
//
// Amounts are carried as float64 in memory and rounded to cents with Round2
// whenever a derived field is produced. Values crossing the persistence
// boundary are converted to decimal.Decimal with ToDecimal.
package money

import (
	"math"

	"github.com/shopspring/decimal"
)

// ApplyPercent returns base × percent / 100.
func ApplyPercent(base, percent float64) float64 {
	return base * percent / 100
}

// Round2 rounds x to two decimal places, half away from zero.
//
// The value goes through its shortest decimal representation first, so 0.945
// rounds to 0.95 instead of being pulled down by its binary approximation.
func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}

// SafeDivide returns numerator/denominator, or fallback when the denominator
// is not positive.
func SafeDivide(numerator, denominator, fallback float64) float64 {
	if denominator <= 0 || math.IsNaN(denominator) {
		return fallback
	}
	return numerator / denominator
}

// NonNegative clamps negative, NaN and infinite values to 0.
func NonNegative(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
		return 0
	}
	return x
}

// Clamp bounds x to [lo, hi]. NaN becomes lo.
func Clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) || x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Sum adds the given amounts and rounds the result to cents.
func Sum(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return total.Round(2).InexactFloat64()
}

// ToDecimal converts an in-memory amount to a decimal for storage.
func ToDecimal(x float64) decimal.Decimal {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(x)
}

// FromDecimal converts a stored decimal back to an in-memory amount.
func FromDecimal(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
