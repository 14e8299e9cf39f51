package money

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

var currencyCodeRe = regexp.MustCompile(`^[A-Z]{3}$`)

// Currency is an ISO 4217 currency code.
type Currency struct {
	code string
}

// NewCurrency creates a Currency after validating the code is exactly 3 uppercase letters.
func NewCurrency(code string) (Currency, error) {
	if !currencyCodeRe.MatchString(code) {
		return Currency{}, fmt.Errorf("invalid currency code %q: must be exactly 3 uppercase letters", code)
	}
	return Currency{code: code}, nil
}

// MustCurrency creates a Currency and panics on error. Intended for package-level variable
// initialization only.
func MustCurrency(code string) Currency {
	c, err := NewCurrency(code)
	if err != nil {
		panic(err)
	}
	return c
}

// Code returns the ISO 4217 currency code.
func (c Currency) Code() string { return c.code }

// String returns the currency code.
func (c Currency) String() string { return c.code }

// IsZero reports whether the currency was never set.
func (c Currency) IsZero() bool { return c.code == "" }

// Common currencies.
var (
	PHP = MustCurrency("PHP")
	USD = MustCurrency("USD")
)

// MinorDigits is the number of decimal digits between the major and the minor
// unit (centavos, cents).
const MinorDigits = 2

// Amount is a monetary quantity in integer minor currency units. All
// arithmetic inside the lending core happens on Amount; decimal major units
// only exist at the presentation boundary.
type Amount int64

// Zero is the zero amount.
const Zero Amount = 0

// FromMajor converts a major-unit decimal (e.g. "1234.56") into minor units.
// Amounts carrying more precision than a minor unit are rejected rather than
// rounded.
func FromMajor(d decimal.Decimal) (Amount, error) {
	minor := d.Shift(MinorDigits)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("amount %s has sub-minor-unit precision", d.String())
	}
	if !minor.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %s out of range", d.String())
	}
	return Amount(minor.IntPart()), nil
}

// ParseMajor parses a major-unit string such as "1500.25".
func ParseMajor(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromMajor(d)
}

// Major returns the amount in major units.
func (a Amount) Major() decimal.Decimal {
	return decimal.NewFromInt(int64(a)).Shift(-MinorDigits)
}

// Decimal returns the amount in minor units as a decimal, for rate arithmetic.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(a))
}

// MulRate multiplies the amount by a rate and rounds half away from zero to a
// whole minor unit.
func (a Amount) MulRate(rate decimal.Decimal) Amount {
	return Round(a.Decimal().Mul(rate))
}

// Round rounds a minor-unit decimal half away from zero to a whole Amount.
func Round(minor decimal.Decimal) Amount {
	return Amount(minor.Round(0).IntPart())
}

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// IsPositive returns true if the amount is strictly greater than zero.
func (a Amount) IsPositive() bool { return a > 0 }

// IsNegative returns true if the amount is strictly less than zero.
func (a Amount) IsNegative() bool { return a < 0 }

// Min returns the smaller of a and b.
func Min(a, b Amount) Amount {
	if a < b {
		return a
	}
	return b
}

// Sum adds all amounts.
func Sum(amounts ...Amount) Amount {
	var total Amount
	for _, a := range amounts {
		total += a
	}
	return total
}

// String formats the amount in minor units, for logs.
func (a Amount) String() string {
	return fmt.Sprintf("%d", int64(a))
}

// Format renders the amount in major units with its currency, for example
// "1500.25 PHP".
func (a Amount) Format(c Currency) string {
	return fmt.Sprintf("%s %s", a.Major().StringFixed(MinorDigits), c.Code())
}
