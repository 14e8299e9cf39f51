package event

import (
	"time"

	"github.com/jehnsen/coop-lending/pkg/events"
	"github.com/jehnsen/coop-lending/pkg/money"
)

// DomainEvent is an alias for the shared pkg/events.DomainEvent interface.
type DomainEvent = events.DomainEvent

const aggregateLoan = "Loan"

// Event type names published on the lending topic.
const (
	TypeLoanApplied     = "loan.applied"
	TypeLoanApproved    = "loan.approved"
	TypeLoanRejected    = "loan.rejected"
	TypeLoanDisbursed   = "loan.disbursed"
	TypePaymentRecorded = "loan.payment_recorded"
	TypePaymentReversed = "loan.payment_reversed"
	TypeLoanClosed      = "loan.closed"
	TypeLoanReopened    = "loan.reopened"
	TypePenaltyAssessed = "loan.penalty_assessed"
	TypePenaltyWaived   = "loan.penalty_waived"
)

// ---------------------------------------------------------------------------
// Lifecycle events
// ---------------------------------------------------------------------------

// LoanApplied is raised when a loan and its schedule are created.
type LoanApplied struct {
	events.BaseEvent
	LoanNumber   string       `json:"loan_number"`
	MemberID     string       `json:"member_id"`
	ProductID    string       `json:"product_id"`
	Principal    money.Amount `json:"principal"`
	Currency     string       `json:"currency"`
	TermMonths   int          `json:"term_months"`
	Interval     string       `json:"interval"`
	TotalPayable money.Amount `json:"total_payable"`
	AppliedBy    string       `json:"applied_by"`
}

func NewLoanApplied(
	loanID, tenantID, loanNumber, memberID, productID string,
	principal money.Amount, currency string, termMonths int, interval string,
	totalPayable money.Amount, appliedBy string, at time.Time,
) LoanApplied {
	return LoanApplied{
		BaseEvent:    events.NewBaseEventAt(TypeLoanApplied, loanID, aggregateLoan, tenantID, at),
		LoanNumber:   loanNumber,
		MemberID:     memberID,
		ProductID:    productID,
		Principal:    principal,
		Currency:     currency,
		TermMonths:   termMonths,
		Interval:     interval,
		TotalPayable: totalPayable,
		AppliedBy:    appliedBy,
	}
}

// LoanStatusChanged covers approve, reject and disburse: a transition with an
// actor and an optional note.
type LoanStatusChanged struct {
	events.BaseEvent
	LoanNumber string `json:"loan_number"`
	From       string `json:"from"`
	To         string `json:"to"`
	Actor      string `json:"actor"`
	Note       string `json:"note,omitempty"`
}

func NewLoanStatusChanged(
	eventType, loanID, tenantID, loanNumber, from, to, actor, note string, at time.Time,
) LoanStatusChanged {
	return LoanStatusChanged{
		BaseEvent:  events.NewBaseEventAt(eventType, loanID, aggregateLoan, tenantID, at),
		LoanNumber: loanNumber,
		From:       from,
		To:         to,
		Actor:      actor,
		Note:       note,
	}
}

// ---------------------------------------------------------------------------
// Payment events
// ---------------------------------------------------------------------------

// PaymentRecorded is raised when a payment is applied to a loan.
type PaymentRecorded struct {
	events.BaseEvent
	PaymentID     string       `json:"payment_id"`
	PaymentNumber string       `json:"payment_number"`
	Amount        money.Amount `json:"amount"`
	Principal     money.Amount `json:"principal"`
	Interest      money.Amount `json:"interest"`
	Penalty       money.Amount `json:"penalty"`
	BalanceAfter  money.Amount `json:"balance_after"`
	ReceivedBy    string       `json:"received_by"`
}

func NewPaymentRecorded(
	loanID, tenantID, paymentID, paymentNumber string,
	amount, principal, interest, penalty, balanceAfter money.Amount,
	receivedBy string, at time.Time,
) PaymentRecorded {
	return PaymentRecorded{
		BaseEvent:     events.NewBaseEventAt(TypePaymentRecorded, loanID, aggregateLoan, tenantID, at),
		PaymentID:     paymentID,
		PaymentNumber: paymentNumber,
		Amount:        amount,
		Principal:     principal,
		Interest:      interest,
		Penalty:       penalty,
		BalanceAfter:  balanceAfter,
		ReceivedBy:    receivedBy,
	}
}

// PaymentReversed is raised when a payment is undone.
type PaymentReversed struct {
	events.BaseEvent
	PaymentID     string       `json:"payment_id"`
	PaymentNumber string       `json:"payment_number"`
	Amount        money.Amount `json:"amount"`
	BalanceAfter  money.Amount `json:"balance_after"`
	ReversedBy    string       `json:"reversed_by"`
	Reason        string       `json:"reason,omitempty"`
}

func NewPaymentReversed(
	loanID, tenantID, paymentID, paymentNumber string,
	amount, balanceAfter money.Amount, reversedBy, reason string, at time.Time,
) PaymentReversed {
	return PaymentReversed{
		BaseEvent:     events.NewBaseEventAt(TypePaymentReversed, loanID, aggregateLoan, tenantID, at),
		PaymentID:     paymentID,
		PaymentNumber: paymentNumber,
		Amount:        amount,
		BalanceAfter:  balanceAfter,
		ReversedBy:    reversedBy,
		Reason:        reason,
	}
}

// LoanClosed is raised when the outstanding balance reaches zero.
type LoanClosed struct {
	events.BaseEvent
	LoanNumber string `json:"loan_number"`
	PaymentID  string `json:"payment_id"`
}

func NewLoanClosed(loanID, tenantID, loanNumber, paymentID string, at time.Time) LoanClosed {
	return LoanClosed{
		BaseEvent:  events.NewBaseEventAt(TypeLoanClosed, loanID, aggregateLoan, tenantID, at),
		LoanNumber: loanNumber,
		PaymentID:  paymentID,
	}
}

// LoanReopened is raised when a reversal moves a closed loan back to active.
type LoanReopened struct {
	events.BaseEvent
	LoanNumber string       `json:"loan_number"`
	PaymentID  string       `json:"payment_id"`
	Balance    money.Amount `json:"balance"`
}

func NewLoanReopened(loanID, tenantID, loanNumber, paymentID string, balance money.Amount, at time.Time) LoanReopened {
	return LoanReopened{
		BaseEvent:  events.NewBaseEventAt(TypeLoanReopened, loanID, aggregateLoan, tenantID, at),
		LoanNumber: loanNumber,
		PaymentID:  paymentID,
		Balance:    balance,
	}
}

// ---------------------------------------------------------------------------
// Penalty events
// ---------------------------------------------------------------------------

// PenaltyAssessed is raised for each penalty written by a sweep.
type PenaltyAssessed struct {
	events.BaseEvent
	PenaltyID     string       `json:"penalty_id"`
	ScheduleRowID string       `json:"schedule_row_id"`
	PenaltyType   string       `json:"penalty_type"`
	DaysOverdue   int          `json:"days_overdue"`
	Gross         money.Amount `json:"gross"`
	AppliedDate   string       `json:"applied_date"`
}

func NewPenaltyAssessed(
	loanID, tenantID, penaltyID, rowID, penaltyType string,
	daysOverdue int, gross money.Amount, appliedDate string, at time.Time,
) PenaltyAssessed {
	return PenaltyAssessed{
		BaseEvent:     events.NewBaseEventAt(TypePenaltyAssessed, loanID, aggregateLoan, tenantID, at),
		PenaltyID:     penaltyID,
		ScheduleRowID: rowID,
		PenaltyType:   penaltyType,
		DaysOverdue:   daysOverdue,
		Gross:         gross,
		AppliedDate:   appliedDate,
	}
}

// PenaltyWaived is raised when part of a penalty is forgiven.
type PenaltyWaived struct {
	events.BaseEvent
	PenaltyID string       `json:"penalty_id"`
	Amount    money.Amount `json:"amount"`
	NetAfter  money.Amount `json:"net_after"`
	WaivedBy  string       `json:"waived_by"`
	Reason    string       `json:"reason"`
}

func NewPenaltyWaived(
	loanID, tenantID, penaltyID string, amount, netAfter money.Amount,
	waivedBy, reason string, at time.Time,
) PenaltyWaived {
	return PenaltyWaived{
		BaseEvent: events.NewBaseEventAt(TypePenaltyWaived, loanID, aggregateLoan, tenantID, at),
		PenaltyID: penaltyID,
		Amount:    amount,
		NetAfter:  netAfter,
		WaivedBy:  waivedBy,
		Reason:    reason,
	}
}
