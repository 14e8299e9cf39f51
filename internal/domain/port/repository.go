package port

import (
	"context"
	"time"

	"github.com/jehnsen/coop-lending/internal/domain/event"
	"github.com/jehnsen/coop-lending/internal/domain/model"
)

// ---------------------------------------------------------------------------
// Storage ports (driven/secondary adapters)
// ---------------------------------------------------------------------------

// LoanStore is the durable store of loans, schedules, payments and
// penalties. Every mutating use case runs inside WithinTransaction: the
// callback's writes commit together when it returns nil and are discarded
// otherwise.
type LoanStore interface {
	LoanReader
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx LoanTx) error) error
}

// LoanReader is the read-only view used by queries and the penalty sweep.
type LoanReader interface {
	GetLoan(ctx context.Context, tenantID, loanID string) (model.Loan, error)
	ListPayments(ctx context.Context, tenantID, loanID string) ([]model.Payment, error)
	ListPenalties(ctx context.Context, tenantID, loanID string) ([]model.Penalty, error)
	// ListActiveLoans returns the IDs of active loans; an empty tenantID
	// lists every tenant.
	ListActiveLoans(ctx context.Context, tenantID string) ([]LoanRef, error)
}

// LoanRef identifies a loan across tenants.
type LoanRef struct {
	TenantID string
	LoanID   string
}

// LoanTx is the unit of work handed to WithinTransaction callbacks.
type LoanTx interface {
	// GetLoanForUpdate loads the loan and holds its lock until the
	// transaction ends.
	GetLoanForUpdate(ctx context.Context, tenantID, loanID string) (model.Loan, error)
	GetPayment(ctx context.Context, tenantID, paymentID string) (model.Payment, error)
	// GetPenalty reads a penalty without locking it. Lock the loan first,
	// then the penalty through GetPenalties.
	GetPenalty(ctx context.Context, tenantID, penaltyID string) (model.Penalty, error)
	// GetPenalties and ListUnpaidPenalties lock the rows they return.
	GetPenalties(ctx context.Context, tenantID string, ids []string) ([]model.Penalty, error)
	ListUnpaidPenalties(ctx context.Context, tenantID, loanID string) ([]model.Penalty, error)
	// PenalizedRowsOn returns the schedule row IDs of the loan that already
	// carry a penalty applied on day.
	PenalizedRowsOn(ctx context.Context, tenantID, loanID string, day time.Time) (map[string]bool, error)

	NextLoanNumber(ctx context.Context, tenantID string, year int) (string, error)
	NextPaymentNumber(ctx context.Context, tenantID string, year int) (string, error)

	InsertLoan(ctx context.Context, loan model.Loan) error
	// UpdateLoan writes the loan and its rows when the stored version equals
	// loan.Version(), and fails with ErrConcurrentModification otherwise.
	UpdateLoan(ctx context.Context, loan model.Loan) error
	InsertPayment(ctx context.Context, p model.Payment) error
	MarkPaymentReversed(ctx context.Context, p model.Payment) error
	InsertPenalties(ctx context.Context, ps []model.Penalty) error
	UpdatePenalties(ctx context.Context, ps []model.Penalty) error

	// AppendEvents writes events to the outbox in the same transaction.
	AppendEvents(ctx context.Context, events ...event.DomainEvent) error
}

// ---------------------------------------------------------------------------
// External service ports
// ---------------------------------------------------------------------------

// MembershipDirectory answers whether a member may borrow.
type MembershipDirectory interface {
	IsEligibleMember(ctx context.Context, tenantID, memberID string) (bool, error)
}

// ProductCatalog resolves loan products.
type ProductCatalog interface {
	FindProduct(ctx context.Context, tenantID, productID string) (model.LoanProduct, error)
}
