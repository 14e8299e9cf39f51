package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jehnsen/coop-lending/internal/domain/valueobject"
	"github.com/jehnsen/coop-lending/pkg/money"
)

// Penalty is a ledger entry assessed on one overdue schedule row for one
// accrual date. (LoanID, ScheduleRowID, AppliedDate) is unique.
type Penalty struct {
	ID            string
	TenantID      string
	LoanID        string
	ScheduleRowID string
	Type          valueobject.PenaltyType
	Rate          decimal.Decimal
	DaysOverdue   int
	BaseAmount    money.Amount
	GrossAmount   money.Amount
	WaivedAmount  money.Amount
	NetAmount     money.Amount
	PaidAmount    money.Amount
	AppliedDate   time.Time
	Paid          bool
	PaidDate      *time.Time
	WaiverReason  string
	WaivedBy      Actor
	WaivedAt      *time.Time
	CreatedAt     time.Time
}

// Outstanding is the part of the net amount not yet paid.
func (p Penalty) Outstanding() money.Amount { return p.NetAmount - p.PaidAmount }

// Waive forgives part of the penalty. It fails when the penalty is already
// paid or when amount exceeds what is still outstanding. Waiving the rest of
// a partly paid penalty settles it.
func (p Penalty) Waive(amount money.Amount, reason string, actor Actor, at time.Time) (Penalty, error) {
	if p.Paid {
		return p, valueobject.NewTransitionError("penalty", "waive", "paid")
	}
	if !amount.IsPositive() {
		return p, valueobject.NewValidationError("amount", "waived amount must be positive, got %s", amount)
	}
	if reason == "" {
		return p, valueobject.NewValidationError("reason", "waiver reason is required")
	}
	if amount > p.Outstanding() {
		return p, fmt.Errorf("waive %s exceeds outstanding penalty %s: %w",
			amount, p.Outstanding(), valueobject.ErrIllegalTransition)
	}

	next := p
	next.WaivedAmount += amount
	next.NetAmount -= amount
	next.WaiverReason = reason
	next.WaivedBy = actor
	waivedAt := at
	next.WaivedAt = &waivedAt
	if next.PaidAmount.IsPositive() && next.Outstanding().IsZero() {
		next.Paid = true
		next.PaidDate = &waivedAt
	}
	return next, nil
}

// DateKey returns the calendar day a penalty was applied on, used for the
// per-date uniqueness check.
func DateKey(t time.Time) string { return t.UTC().Format(time.DateOnly) }
