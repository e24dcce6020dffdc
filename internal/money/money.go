// Package money converts between the engine's integer minor-unit amounts
// and the decimal strings used at the API boundary. All balance arithmetic
// stays in int64 minor units; decimals exist only for presentation and
// input parsing.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// minorDigits is the number of decimal places in a minor unit (cents).
const minorDigits = 2

// Format renders minor units as a fixed two-decimal string, e.g. 1050 ->
// "10.50".
func Format(minor int64) string {
	return decimal.New(minor, -minorDigits).StringFixed(minorDigits)
}

// Parse converts a decimal amount string into minor units. Amounts with
// more than two decimal places or outside the int64 range are rejected
// rather than rounded.
func Parse(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	shifted := d.Shift(minorDigits)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than %d decimal places", s, minorDigits)
	}
	if !shifted.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	return shifted.IntPart(), nil
}
