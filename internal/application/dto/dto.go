package dto

import (
	"time"

	"github.com/jehnsen/coop-lending/internal/domain/model"
	"github.com/jehnsen/coop-lending/pkg/money"
)

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// ApplyLoanRequest carries the data needed to apply for a new loan.
// FirstPaymentDate defaults to one interval after ApplicationDate, which in
// turn defaults to now.
type ApplyLoanRequest struct {
	TenantID         string       `json:"tenant_id"`
	MemberID         string       `json:"member_id"`
	ProductID        string       `json:"product_id"`
	Principal        money.Amount `json:"principal"`
	TermMonths       int          `json:"term_months"`
	Interval         string       `json:"interval"`
	Purpose          string       `json:"purpose"`
	ApplicationDate  time.Time    `json:"application_date"`
	FirstPaymentDate time.Time    `json:"first_payment_date"`
	Actor            model.Actor  `json:"-"`
}

// ApproveLoanRequest moves a pending loan to approved.
type ApproveLoanRequest struct {
	TenantID   string      `json:"tenant_id"`
	LoanID     string      `json:"loan_id"`
	ApprovedAt time.Time   `json:"approved_at"`
	Notes      string      `json:"notes"`
	Actor      model.Actor `json:"-"`
}

// RejectLoanRequest moves a pending loan to rejected.
type RejectLoanRequest struct {
	TenantID   string      `json:"tenant_id"`
	LoanID     string      `json:"loan_id"`
	Reason     string      `json:"reason"`
	RejectedAt time.Time   `json:"rejected_at"`
	Actor      model.Actor `json:"-"`
}

// DisburseLoanRequest activates an approved loan. A non-zero
// FirstPaymentDate re-anchors the schedule's due dates.
type DisburseLoanRequest struct {
	TenantID         string      `json:"tenant_id"`
	LoanID           string      `json:"loan_id"`
	DisbursedAt      time.Time   `json:"disbursed_at"`
	FirstPaymentDate time.Time   `json:"first_payment_date"`
	Actor            model.Actor `json:"-"`
}

// RecordPaymentRequest carries the data for a loan payment.
type RecordPaymentRequest struct {
	TenantID  string       `json:"tenant_id"`
	LoanID    string       `json:"loan_id"`
	Amount    money.Amount `json:"amount"`
	Method    string       `json:"method"`
	Reference string       `json:"reference"`
	PaidAt    time.Time    `json:"paid_at"`
	Actor     model.Actor  `json:"-"`
}

// ReversePaymentRequest identifies a payment to reverse.
type ReversePaymentRequest struct {
	TenantID   string      `json:"tenant_id"`
	PaymentID  string      `json:"payment_id"`
	Reason     string      `json:"reason"`
	ReversedAt time.Time   `json:"reversed_at"`
	Actor      model.Actor `json:"-"`
}

// ComputePenaltiesRequest asks for penalties on one loan as of a date.
type ComputePenaltiesRequest struct {
	TenantID string    `json:"tenant_id"`
	LoanID   string    `json:"loan_id"`
	AsOf     time.Time `json:"as_of"`
}

// WaivePenaltyRequest forgives part of a penalty.
type WaivePenaltyRequest struct {
	TenantID  string       `json:"tenant_id"`
	PenaltyID string       `json:"penalty_id"`
	Amount    money.Amount `json:"amount"`
	Reason    string       `json:"reason"`
	WaivedAt  time.Time    `json:"waived_at"`
	Actor     model.Actor  `json:"-"`
}

// QuoteRequest prices a prospective loan without writing anything.
type QuoteRequest struct {
	TenantID         string       `json:"tenant_id"`
	ProductID        string       `json:"product_id"`
	Principal        money.Amount `json:"principal"`
	TermMonths       int          `json:"term_months"`
	Interval         string       `json:"interval"`
	FirstPaymentDate time.Time    `json:"first_payment_date"`
}

// GetLoanRequest identifies a loan to retrieve.
type GetLoanRequest struct {
	TenantID string `json:"tenant_id"`
	LoanID   string `json:"loan_id"`
}

// PenaltySweepRequest runs penalty computation over active loans. An empty
// TenantID sweeps every tenant.
type PenaltySweepRequest struct {
	TenantID string    `json:"tenant_id"`
	AsOf     time.Time `json:"as_of"`
}

// ---------------------------------------------------------------------------
// Response DTOs
// ---------------------------------------------------------------------------

// ScheduleRowResponse represents a single installment.
type ScheduleRowResponse struct {
	ID               string       `json:"id"`
	Sequence         int          `json:"sequence"`
	DueDate          time.Time    `json:"due_date"`
	BeginningBalance money.Amount `json:"beginning_balance"`
	PrincipalDue     money.Amount `json:"principal_due"`
	InterestDue      money.Amount `json:"interest_due"`
	TotalDue         money.Amount `json:"total_due"`
	PrincipalPaid    money.Amount `json:"principal_paid"`
	InterestPaid     money.Amount `json:"interest_paid"`
	PenaltyPaid      money.Amount `json:"penalty_paid"`
	TotalPaid        money.Amount `json:"total_paid"`
	EndingBalance    money.Amount `json:"ending_balance"`
	Status           string       `json:"status"`
	PaidDate         *time.Time   `json:"paid_date,omitempty"`
}

// LoanResponse is the external representation of a loan.
type LoanResponse struct {
	ID                   string                `json:"id"`
	TenantID             string                `json:"tenant_id"`
	LoanNumber           string                `json:"loan_number"`
	MemberID             string                `json:"member_id"`
	ProductID            string                `json:"product_id"`
	Currency             string                `json:"currency"`
	Principal            money.Amount          `json:"principal"`
	InterestRate         string                `json:"interest_rate"`
	TermMonths           int                   `json:"term_months"`
	Interval             string                `json:"interval"`
	Status               string                `json:"status"`
	ProcessingFee        money.Amount          `json:"processing_fee"`
	ServiceFee           money.Amount          `json:"service_fee"`
	NetProceeds          money.Amount          `json:"net_proceeds"`
	Installment          money.Amount          `json:"installment"`
	TotalInterest        money.Amount          `json:"total_interest"`
	TotalPayable         money.Amount          `json:"total_payable"`
	OutstandingBalance   money.Amount          `json:"outstanding_balance"`
	PrincipalPaid        money.Amount          `json:"principal_paid"`
	InterestPaid         money.Amount          `json:"interest_paid"`
	PenaltyPaid          money.Amount          `json:"penalty_paid"`
	PenaltiesOutstanding money.Amount          `json:"penalties_outstanding"`
	ApplicationDate      time.Time             `json:"application_date"`
	ApprovalDate         *time.Time            `json:"approval_date,omitempty"`
	DisbursementDate     *time.Time            `json:"disbursement_date,omitempty"`
	FirstPaymentDate     *time.Time            `json:"first_payment_date,omitempty"`
	MaturityDate         *time.Time            `json:"maturity_date,omitempty"`
	ClosedDate           *time.Time            `json:"closed_date,omitempty"`
	RejectionReason      string                `json:"rejection_reason,omitempty"`
	Schedule             []ScheduleRowResponse `json:"schedule,omitempty"`
	Version              int                   `json:"version"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// AllocationResponse is one line of a payment's distribution.
type AllocationResponse struct {
	Target    string       `json:"target"`
	TargetID  string       `json:"target_id"`
	Sequence  int          `json:"sequence,omitempty"`
	Penalty   money.Amount `json:"penalty"`
	Interest  money.Amount `json:"interest"`
	Principal money.Amount `json:"principal"`
}

// PaymentResponse is the external representation of a payment.
type PaymentResponse struct {
	ID             string               `json:"id"`
	LoanID         string               `json:"loan_id"`
	PaymentNumber  string               `json:"payment_number"`
	Amount         money.Amount         `json:"amount"`
	Principal      money.Amount         `json:"principal"`
	Interest       money.Amount         `json:"interest"`
	Penalty        money.Amount         `json:"penalty"`
	BalanceBefore  money.Amount         `json:"balance_before"`
	BalanceAfter   money.Amount         `json:"balance_after"`
	Method         string               `json:"method"`
	Reference      string               `json:"reference,omitempty"`
	PaymentDate    time.Time            `json:"payment_date"`
	ReceivedBy     string               `json:"received_by"`
	LoanStatus     string               `json:"loan_status,omitempty"`
	ClosedLoan     bool                 `json:"closed_loan"`
	Reversed       bool                 `json:"reversed"`
	ReversedAt     *time.Time           `json:"reversed_at,omitempty"`
	ReversalReason string               `json:"reversal_reason,omitempty"`
	Allocations    []AllocationResponse `json:"allocations"`
}

// PenaltyResponse is the external representation of a penalty.
type PenaltyResponse struct {
	ID            string       `json:"id"`
	LoanID        string       `json:"loan_id"`
	ScheduleRowID string       `json:"schedule_row_id"`
	Type          string       `json:"type"`
	Rate          string       `json:"rate"`
	DaysOverdue   int          `json:"days_overdue"`
	BaseAmount    money.Amount `json:"base_amount"`
	GrossAmount   money.Amount `json:"gross_amount"`
	WaivedAmount  money.Amount `json:"waived_amount"`
	NetAmount     money.Amount `json:"net_amount"`
	PaidAmount    money.Amount `json:"paid_amount"`
	AppliedDate   time.Time    `json:"applied_date"`
	Paid          bool         `json:"paid"`
	WaiverReason  string       `json:"waiver_reason,omitempty"`
}

// QuoteResponse is a priced, unsaved loan.
type QuoteResponse struct {
	Installment   money.Amount          `json:"installment"`
	TotalInterest money.Amount          `json:"total_interest"`
	TotalPayable  money.Amount          `json:"total_payable"`
	ProcessingFee money.Amount          `json:"processing_fee"`
	ServiceFee    money.Amount          `json:"service_fee"`
	NetProceeds   money.Amount          `json:"net_proceeds"`
	Schedule      []ScheduleRowResponse `json:"schedule"`
}

// PenaltySweepResponse summarises one sweep run.
type PenaltySweepResponse struct {
	LoansScanned      int          `json:"loans_scanned"`
	PenaltiesAssessed int          `json:"penalties_assessed"`
	TotalAssessed     money.Amount `json:"total_assessed"`
	Failures          int          `json:"failures"`
}
