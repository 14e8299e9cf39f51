package model

import "fmt"

// FormatLoanNumber renders the per-tenant, per-year loan sequence.
func FormatLoanNumber(year int, seq int64) string {
	return fmt.Sprintf("LN-%d-%06d", year, seq)
}

// FormatPaymentNumber renders the per-tenant, per-year payment sequence.
func FormatPaymentNumber(year int, seq int64) string {
	return fmt.Sprintf("LP-%d-%06d", year, seq)
}
