package model

import (
	"time"

	"github.com/jehnsen/coop-lending/internal/domain/valueobject"
	"github.com/jehnsen/coop-lending/pkg/money"
)

// ScheduleRow is one installment of a loan's repayment schedule.
//
// Invariants: TotalDue == PrincipalDue + InterestDue and
// TotalPaid == PrincipalPaid + InterestPaid. PenaltyPaid tracks penalty money
// paid against penalties assessed on this row and is not part of TotalPaid.
type ScheduleRow struct {
	ID               string
	LoanID           string
	TenantID         string
	Sequence         int
	DueDate          time.Time
	BeginningBalance money.Amount
	PrincipalDue     money.Amount
	InterestDue      money.Amount
	TotalDue         money.Amount
	PrincipalPaid    money.Amount
	InterestPaid     money.Amount
	PenaltyPaid      money.Amount
	TotalPaid        money.Amount
	EndingBalance    money.Amount
	PaidDate         *time.Time
	Status           valueobject.ScheduleStatus
}

// InterestOutstanding is the unpaid part of the row's interest.
func (r ScheduleRow) InterestOutstanding() money.Amount { return r.InterestDue - r.InterestPaid }

// PrincipalOutstanding is the unpaid part of the row's principal.
func (r ScheduleRow) PrincipalOutstanding() money.Amount { return r.PrincipalDue - r.PrincipalPaid }

// Outstanding is the unpaid scheduled amount of the row.
func (r ScheduleRow) Outstanding() money.Amount { return r.TotalDue - r.TotalPaid }

// IsPaid reports whether the row is fully covered.
func (r ScheduleRow) IsPaid() bool { return r.Status.Equal(valueobject.ScheduleStatusPaid) }

// Schedule is the output of the schedule calculator.
type Schedule struct {
	Rows          []ScheduleRow
	TotalInterest money.Amount
	TotalPayable  money.Amount
	Installment   money.Amount
}

// PrincipalSum adds the principal due across all rows.
func (s Schedule) PrincipalSum() money.Amount {
	var sum money.Amount
	for _, r := range s.Rows {
		sum += r.PrincipalDue
	}
	return sum
}

func copyRows(rows []ScheduleRow) []ScheduleRow {
	if rows == nil {
		return nil
	}
	out := make([]ScheduleRow, len(rows))
	copy(out, rows)
	return out
}
