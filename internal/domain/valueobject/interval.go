package valueobject

import "fmt"

// PaymentInterval is the spacing between two installments.
type PaymentInterval struct {
	value string
}

const (
	intervalMonthly     = "monthly"
	intervalWeekly      = "weekly"
	intervalSemiMonthly = "semi_monthly"
)

var (
	IntervalMonthly     = PaymentInterval{value: intervalMonthly}
	IntervalWeekly      = PaymentInterval{value: intervalWeekly}
	IntervalSemiMonthly = PaymentInterval{value: intervalSemiMonthly}
)

// NewPaymentInterval creates a PaymentInterval from a raw string.
func NewPaymentInterval(s string) (PaymentInterval, error) {
	switch s {
	case intervalMonthly:
		return IntervalMonthly, nil
	case intervalWeekly:
		return IntervalWeekly, nil
	case intervalSemiMonthly:
		return IntervalSemiMonthly, nil
	default:
		return PaymentInterval{}, fmt.Errorf("invalid payment interval: %q", s)
	}
}

// PeriodsPerMonth is the number of installments that fall in one month of term.
func (i PaymentInterval) PeriodsPerMonth() int {
	switch i.value {
	case intervalMonthly:
		return 1
	case intervalWeekly:
		return 4
	case intervalSemiMonthly:
		return 2
	default:
		return 0
	}
}

// String returns the string representation.
func (i PaymentInterval) String() string { return i.value }

// IsZero returns true when not initialised.
func (i PaymentInterval) IsZero() bool { return i.value == "" }

// Equal returns true when both intervals match.
func (i PaymentInterval) Equal(other PaymentInterval) bool { return i.value == other.value }

// InterestMethod is the amortization method of a loan product.
type InterestMethod struct {
	value string
}

const interestMethodDiminishing = "diminishing_balance"

// InterestMethodDiminishingBalance computes each period's interest on the
// remaining principal.
var InterestMethodDiminishingBalance = InterestMethod{value: interestMethodDiminishing}

// NewInterestMethod creates an InterestMethod from a raw string. Only the
// diminishing-balance method is supported by the schedule calculator; other
// values parse so that products configured with them are rejected with a
// clear message at apply time.
func NewInterestMethod(s string) (InterestMethod, error) {
	if s == "" {
		return InterestMethod{}, fmt.Errorf("invalid interest method: %q", s)
	}
	return InterestMethod{value: s}, nil
}

// String returns the string representation.
func (m InterestMethod) String() string { return m.value }

// Equal returns true when both methods match.
func (m InterestMethod) Equal(other InterestMethod) bool { return m.value == other.value }

// PaymentMethod is how the member paid.
type PaymentMethod string

const (
	PaymentMethodCash             PaymentMethod = "cash"
	PaymentMethodBankTransfer     PaymentMethod = "bank_transfer"
	PaymentMethodCheck            PaymentMethod = "check"
	PaymentMethodPayrollDeduction PaymentMethod = "payroll_deduction"
	PaymentMethodOnline           PaymentMethod = "online"
)

// Valid reports whether the method is one of the known payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCheck,
		PaymentMethodPayrollDeduction, PaymentMethodOnline:
		return true
	default:
		return false
	}
}
