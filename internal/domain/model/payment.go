package model

import (
	"time"

	"github.com/jehnsen/coop-lending/internal/domain/valueobject"
	"github.com/jehnsen/coop-lending/pkg/money"
)

// AllocationTarget is what an allocation line paid into.
type AllocationTarget string

const (
	TargetPenalty     AllocationTarget = "penalty"
	TargetScheduleRow AllocationTarget = "schedule_row"
)

// AllocationLine records how much of a payment went to one penalty or one
// schedule row, and the target's state before the payment. Reversal undoes
// payments line by line from these records.
type AllocationLine struct {
	Target      AllocationTarget
	TargetID    string
	Sequence    int // schedule row sequence; zero for penalties
	Penalty     money.Amount
	Interest    money.Amount
	Principal   money.Amount
	PriorStatus string
	Settled     bool
}

// Amount is the total money on the line.
func (l AllocationLine) Amount() money.Amount { return l.Penalty + l.Interest + l.Principal }

// AllocationPlan is the ordered distribution of a payment, computed without
// side effects before anything is written.
type AllocationPlan struct {
	Lines     []AllocationLine
	Penalty   money.Amount
	Interest  money.Amount
	Principal money.Amount
	// Unallocated is payment money left after every obligation was covered.
	Unallocated money.Amount
}

// Allocated is the amount the plan distributes.
func (p AllocationPlan) Allocated() money.Amount { return p.Penalty + p.Interest + p.Principal }

// PaymentDraft is the caller-supplied part of a payment.
type PaymentDraft struct {
	PaymentNumber string
	Amount        money.Amount
	Method        valueobject.PaymentMethod
	Reference     string
	PaidAt        time.Time
	ReceivedBy    Actor
}

// Payment is the immutable ledger record of one payment. Only the reversal
// fields change after it is written.
type Payment struct {
	ID             string
	TenantID       string
	LoanID         string
	PaymentNumber  string
	Amount         money.Amount
	Principal      money.Amount
	Interest       money.Amount
	Penalty        money.Amount
	BalanceBefore  money.Amount
	BalanceAfter   money.Amount
	Method         valueobject.PaymentMethod
	Reference      string
	PaymentDate    time.Time
	ReceivedBy     Actor
	ClosedLoan     bool
	Reversed       bool
	ReversedAt     *time.Time
	ReversedBy     Actor
	ReversalReason string
	Allocations    []AllocationLine
	CreatedAt      time.Time
}

// PenaltyIDs lists the penalties the payment paid into.
func (p Payment) PenaltyIDs() []string {
	var ids []string
	for _, l := range p.Allocations {
		if l.Target == TargetPenalty {
			ids = append(ids, l.TargetID)
		}
	}
	return ids
}
