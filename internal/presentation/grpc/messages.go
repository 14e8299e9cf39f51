package grpc

// Wire messages. Amounts are decimal strings in major units ("1500.25"),
// calendar dates are YYYY-MM-DD and instants are RFC 3339. The tenant always
// comes from the caller's token, never from the payload.

type ApplyLoanRequest struct {
	MemberID         string `json:"member_id"`
	ProductID        string `json:"product_id"`
	Principal        string `json:"principal"`
	TermMonths       int    `json:"term_months"`
	Interval         string `json:"interval"`
	Purpose          string `json:"purpose"`
	ApplicationDate  string `json:"application_date,omitempty"`
	FirstPaymentDate string `json:"first_payment_date,omitempty"`
}

type ApproveLoanRequest struct {
	LoanID     string `json:"loan_id"`
	Notes      string `json:"notes"`
	ApprovedAt string `json:"approved_at,omitempty"`
}

type RejectLoanRequest struct {
	LoanID     string `json:"loan_id"`
	Reason     string `json:"reason"`
	RejectedAt string `json:"rejected_at,omitempty"`
}

type DisburseLoanRequest struct {
	LoanID           string `json:"loan_id"`
	DisbursedAt      string `json:"disbursed_at,omitempty"`
	FirstPaymentDate string `json:"first_payment_date,omitempty"`
}

// LoanLookup addresses a single loan for reads.
type LoanLookup struct {
	LoanID string `json:"loan_id"`
}

type QuoteLoanRequest struct {
	ProductID        string `json:"product_id"`
	Principal        string `json:"principal"`
	TermMonths       int    `json:"term_months"`
	Interval         string `json:"interval"`
	FirstPaymentDate string `json:"first_payment_date,omitempty"`
}

type RecordPaymentRequest struct {
	LoanID    string `json:"loan_id"`
	Amount    string `json:"amount"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
	PaidAt    string `json:"paid_at,omitempty"`
}

type ReversePaymentRequest struct {
	PaymentID  string `json:"payment_id"`
	Reason     string `json:"reason"`
	ReversedAt string `json:"reversed_at,omitempty"`
}

type ComputePenaltiesRequest struct {
	LoanID string `json:"loan_id"`
	AsOf   string `json:"as_of,omitempty"`
}

type WaivePenaltyRequest struct {
	PenaltyID string `json:"penalty_id"`
	Amount    string `json:"amount"`
	Reason    string `json:"reason"`
	WaivedAt  string `json:"waived_at,omitempty"`
}

type PenaltySweepRequest struct {
	AsOf string `json:"as_of,omitempty"`
}

type ScheduleRow struct {
	Sequence         int    `json:"sequence"`
	DueDate          string `json:"due_date"`
	BeginningBalance string `json:"beginning_balance"`
	PrincipalDue     string `json:"principal_due"`
	InterestDue      string `json:"interest_due"`
	TotalDue         string `json:"total_due"`
	TotalPaid        string `json:"total_paid"`
	EndingBalance    string `json:"ending_balance"`
	Status           string `json:"status"`
	PaidDate         string `json:"paid_date,omitempty"`
}

type Loan struct {
	ID                   string         `json:"id"`
	LoanNumber           string         `json:"loan_number"`
	MemberID             string         `json:"member_id"`
	ProductID            string         `json:"product_id"`
	Currency             string         `json:"currency"`
	Principal            string         `json:"principal"`
	InterestRate         string         `json:"interest_rate"`
	TermMonths           int            `json:"term_months"`
	Interval             string         `json:"interval"`
	Status               string         `json:"status"`
	ProcessingFee        string         `json:"processing_fee"`
	ServiceFee           string         `json:"service_fee"`
	NetProceeds          string         `json:"net_proceeds"`
	Installment          string         `json:"installment"`
	TotalInterest        string         `json:"total_interest"`
	TotalPayable         string         `json:"total_payable"`
	OutstandingBalance   string         `json:"outstanding_balance"`
	PrincipalPaid        string         `json:"principal_paid"`
	InterestPaid         string         `json:"interest_paid"`
	PenaltyPaid          string         `json:"penalty_paid"`
	PenaltiesOutstanding string         `json:"penalties_outstanding"`
	ApplicationDate      string         `json:"application_date"`
	ApprovalDate         string         `json:"approval_date,omitempty"`
	DisbursementDate     string         `json:"disbursement_date,omitempty"`
	FirstPaymentDate     string         `json:"first_payment_date,omitempty"`
	MaturityDate         string         `json:"maturity_date,omitempty"`
	ClosedDate           string         `json:"closed_date,omitempty"`
	RejectionReason      string         `json:"rejection_reason,omitempty"`
	Schedule             []*ScheduleRow `json:"schedule,omitempty"`
	Version              int            `json:"version"`
}

type LoanReply struct {
	Loan *Loan `json:"loan"`
}

type QuoteReply struct {
	Installment   string         `json:"installment"`
	TotalInterest string         `json:"total_interest"`
	TotalPayable  string         `json:"total_payable"`
	ProcessingFee string         `json:"processing_fee"`
	ServiceFee    string         `json:"service_fee"`
	NetProceeds   string         `json:"net_proceeds"`
	Schedule      []*ScheduleRow `json:"schedule"`
}

type Allocation struct {
	Target    string `json:"target"`
	TargetID  string `json:"target_id"`
	Sequence  int    `json:"sequence,omitempty"`
	Penalty   string `json:"penalty"`
	Interest  string `json:"interest"`
	Principal string `json:"principal"`
}

type Payment struct {
	ID             string        `json:"id"`
	LoanID         string        `json:"loan_id"`
	PaymentNumber  string        `json:"payment_number"`
	Amount         string        `json:"amount"`
	Principal      string        `json:"principal"`
	Interest       string        `json:"interest"`
	Penalty        string        `json:"penalty"`
	BalanceBefore  string        `json:"balance_before"`
	BalanceAfter   string        `json:"balance_after"`
	Method         string        `json:"method"`
	Reference      string        `json:"reference,omitempty"`
	PaymentDate    string        `json:"payment_date"`
	ReceivedBy     string        `json:"received_by"`
	LoanStatus     string        `json:"loan_status,omitempty"`
	Reversed       bool          `json:"reversed"`
	ReversedAt     string        `json:"reversed_at,omitempty"`
	ReversalReason string        `json:"reversal_reason,omitempty"`
	Allocations    []*Allocation `json:"allocations"`
}

type PaymentReply struct {
	Payment *Payment `json:"payment"`
}

type PaymentsReply struct {
	Payments []*Payment `json:"payments"`
}

type Penalty struct {
	ID            string `json:"id"`
	LoanID        string `json:"loan_id"`
	ScheduleRowID string `json:"schedule_row_id"`
	Type          string `json:"type"`
	Rate          string `json:"rate"`
	DaysOverdue   int    `json:"days_overdue"`
	BaseAmount    string `json:"base_amount"`
	GrossAmount   string `json:"gross_amount"`
	WaivedAmount  string `json:"waived_amount"`
	NetAmount     string `json:"net_amount"`
	PaidAmount    string `json:"paid_amount"`
	AppliedDate   string `json:"applied_date"`
	Paid          bool   `json:"paid"`
	WaiverReason  string `json:"waiver_reason,omitempty"`
}

type PenaltyReply struct {
	Penalty *Penalty `json:"penalty"`
}

type PenaltiesReply struct {
	Penalties []*Penalty `json:"penalties"`
}

type PenaltySweepReply struct {
	LoansScanned      int    `json:"loans_scanned"`
	PenaltiesAssessed int    `json:"penalties_assessed"`
	TotalAssessed     string `json:"total_assessed"`
	Failures          int    `json:"failures"`
}
