package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jehnsen/coop-lending/internal/application/dto"
	"github.com/jehnsen/coop-lending/internal/domain/model"
	"github.com/jehnsen/coop-lending/internal/domain/port"
)

// ApproveLoanUseCase moves a pending loan to approved.
type ApproveLoanUseCase struct {
	store  port.LoanStore
	logger *slog.Logger
}

// NewApproveLoanUseCase wires dependencies.
func NewApproveLoanUseCase(store port.LoanStore, logger *slog.Logger) *ApproveLoanUseCase {
	return &ApproveLoanUseCase{store: store, logger: logger}
}

// Execute approves the loan.
func (uc *ApproveLoanUseCase) Execute(ctx context.Context, req dto.ApproveLoanRequest) (resp dto.LoanResponse, err error) {
	ctx, span := startSpan(ctx, "ApproveLoan", attribute.String("loan_id", req.LoanID))
	defer func() { endSpan(span, err) }()

	loan, err := transitionLoan(ctx, uc.store, req.TenantID, req.LoanID, func(l model.Loan) (model.Loan, error) {
		return l.Approve(req.Actor, orNow(req.ApprovedAt), req.Notes)
	})
	if err != nil {
		return dto.LoanResponse{}, err
	}

	uc.logger.InfoContext(ctx, "loan approved",
		slog.String("loan_id", loan.ID()),
		slog.String("tenant_id", loan.TenantID()),
		slog.String("actor", req.Actor.ID),
	)
	return toLoanResponse(loan), nil
}

// RejectLoanUseCase moves a pending loan to rejected.
type RejectLoanUseCase struct {
	store  port.LoanStore
	logger *slog.Logger
}

// NewRejectLoanUseCase wires dependencies.
func NewRejectLoanUseCase(store port.LoanStore, logger *slog.Logger) *RejectLoanUseCase {
	return &RejectLoanUseCase{store: store, logger: logger}
}

// Execute rejects the loan. The reason is mandatory.
func (uc *RejectLoanUseCase) Execute(ctx context.Context, req dto.RejectLoanRequest) (resp dto.LoanResponse, err error) {
	ctx, span := startSpan(ctx, "RejectLoan", attribute.String("loan_id", req.LoanID))
	defer func() { endSpan(span, err) }()

	loan, err := transitionLoan(ctx, uc.store, req.TenantID, req.LoanID, func(l model.Loan) (model.Loan, error) {
		return l.Reject(req.Actor, orNow(req.RejectedAt), req.Reason)
	})
	if err != nil {
		return dto.LoanResponse{}, err
	}

	uc.logger.InfoContext(ctx, "loan rejected",
		slog.String("loan_id", loan.ID()),
		slog.String("tenant_id", loan.TenantID()),
		slog.String("reason", req.Reason),
	)
	return toLoanResponse(loan), nil
}

// transitionLoan loads the loan under lock, applies fn and saves the result
// with its events.
func transitionLoan(
	ctx context.Context,
	store port.LoanStore,
	tenantID, loanID string,
	fn func(model.Loan) (model.Loan, error),
) (model.Loan, error) {
	var next model.Loan
	err := store.WithinTransaction(ctx, func(ctx context.Context, tx port.LoanTx) error {
		// 1. Retrieve and lock the loan.
		loan, err := tx.GetLoanForUpdate(ctx, tenantID, loanID)
		if err != nil {
			return fmt.Errorf("find loan: %w", err)
		}

		// 2. Apply the transition.
		next, err = fn(loan)
		if err != nil {
			return err
		}

		// 3. Persist the loan and its events.
		return saveLoan(ctx, tx, next)
	})
	if err != nil {
		return model.Loan{}, err
	}
	countTransition(ctx, next.Status().String())
	return next, nil
}

func saveLoan(ctx context.Context, tx port.LoanTx, loan model.Loan) error {
	if err := tx.UpdateLoan(ctx, loan); err != nil {
		return fmt.Errorf("save loan: %w", err)
	}
	if err := tx.AppendEvents(ctx, loan.DomainEvents()...); err != nil {
		return fmt.Errorf("append events: %w", err)
	}
	return nil
}
