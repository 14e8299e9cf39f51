package valueobject

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// LoanStatus – immutable value object
// ---------------------------------------------------------------------------

// LoanStatus represents the lifecycle stage of a loan.
type LoanStatus struct {
	value string
}

const (
	loanStatusPending  = "pending"
	loanStatusApproved = "approved"
	loanStatusRejected = "rejected"
	loanStatusActive   = "active"
	loanStatusClosed   = "closed"
)

var (
	LoanStatusPending  = LoanStatus{value: loanStatusPending}
	LoanStatusApproved = LoanStatus{value: loanStatusApproved}
	LoanStatusRejected = LoanStatus{value: loanStatusRejected}
	LoanStatusActive   = LoanStatus{value: loanStatusActive}
	LoanStatusClosed   = LoanStatus{value: loanStatusClosed}
)

var validLoanStatuses = map[string]LoanStatus{
	loanStatusPending:  LoanStatusPending,
	loanStatusApproved: LoanStatusApproved,
	loanStatusRejected: LoanStatusRejected,
	loanStatusActive:   LoanStatusActive,
	loanStatusClosed:   LoanStatusClosed,
}

// NewLoanStatus creates a LoanStatus from a raw string.
func NewLoanStatus(s string) (LoanStatus, error) {
	v, ok := validLoanStatuses[s]
	if !ok {
		return LoanStatus{}, fmt.Errorf("invalid loan status: %q", s)
	}
	return v, nil
}

// String returns the string representation of the status.
func (s LoanStatus) String() string { return s.value }

// IsZero returns true if the status has not been initialised.
func (s LoanStatus) IsZero() bool { return s.value == "" }

// Equal returns true when both statuses carry the same value.
func (s LoanStatus) Equal(other LoanStatus) bool { return s.value == other.value }

// IsTerminal reports whether no further transition can leave this status.
// Closed is not terminal: a payment reversal may reopen the loan.
func (s LoanStatus) IsTerminal() bool { return s.value == loanStatusRejected }

// ---------------------------------------------------------------------------
// ScheduleStatus – immutable value object
// ---------------------------------------------------------------------------

// ScheduleStatus represents the repayment state of one installment.
type ScheduleStatus struct {
	value string
}

const (
	scheduleStatusPending = "pending"
	scheduleStatusPartial = "partial"
	scheduleStatusPaid    = "paid"
	scheduleStatusOverdue = "overdue"
)

var (
	ScheduleStatusPending = ScheduleStatus{value: scheduleStatusPending}
	ScheduleStatusPartial = ScheduleStatus{value: scheduleStatusPartial}
	ScheduleStatusPaid    = ScheduleStatus{value: scheduleStatusPaid}
	ScheduleStatusOverdue = ScheduleStatus{value: scheduleStatusOverdue}
)

var validScheduleStatuses = map[string]ScheduleStatus{
	scheduleStatusPending: ScheduleStatusPending,
	scheduleStatusPartial: ScheduleStatusPartial,
	scheduleStatusPaid:    ScheduleStatusPaid,
	scheduleStatusOverdue: ScheduleStatusOverdue,
}

// NewScheduleStatus creates a ScheduleStatus from a raw string.
func NewScheduleStatus(s string) (ScheduleStatus, error) {
	v, ok := validScheduleStatuses[s]
	if !ok {
		return ScheduleStatus{}, fmt.Errorf("invalid schedule status: %q", s)
	}
	return v, nil
}

// String returns the string representation.
func (s ScheduleStatus) String() string { return s.value }

// IsZero returns true when not initialised.
func (s ScheduleStatus) IsZero() bool { return s.value == "" }

// Equal returns true when both statuses match.
func (s ScheduleStatus) Equal(other ScheduleStatus) bool { return s.value == other.value }

// ---------------------------------------------------------------------------
// PenaltyType – immutable value object
// ---------------------------------------------------------------------------

// PenaltyType classifies an overdue installment by how long it has been overdue.
type PenaltyType struct {
	value string
}

const (
	penaltyTypeLatePayment = "late_payment"
	penaltyTypeNonPayment  = "non_payment"
)

var (
	PenaltyTypeLatePayment = PenaltyType{value: penaltyTypeLatePayment}
	PenaltyTypeNonPayment  = PenaltyType{value: penaltyTypeNonPayment}
)

// NewPenaltyType creates a PenaltyType from a raw string.
func NewPenaltyType(s string) (PenaltyType, error) {
	switch s {
	case penaltyTypeLatePayment:
		return PenaltyTypeLatePayment, nil
	case penaltyTypeNonPayment:
		return PenaltyTypeNonPayment, nil
	default:
		return PenaltyType{}, fmt.Errorf("invalid penalty type: %q", s)
	}
}

// String returns the string representation.
func (t PenaltyType) String() string { return t.value }

// IsZero returns true when not initialised.
func (t PenaltyType) IsZero() bool { return t.value == "" }

// Equal returns true when both types match.
func (t PenaltyType) Equal(other PenaltyType) bool { return t.value == other.value }
