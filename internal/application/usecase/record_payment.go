package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jehnsen/coop-lending/internal/application/dto"
	"github.com/jehnsen/coop-lending/internal/domain/model"
	"github.com/jehnsen/coop-lending/internal/domain/port"
	"github.com/jehnsen/coop-lending/internal/domain/service"
	"github.com/jehnsen/coop-lending/internal/domain/valueobject"
)

// RecordPaymentUseCase applies a member payment to an active loan.
type RecordPaymentUseCase struct {
	store  port.LoanStore
	logger *slog.Logger
}

// NewRecordPaymentUseCase wires dependencies.
func NewRecordPaymentUseCase(store port.LoanStore, logger *slog.Logger) *RecordPaymentUseCase {
	return &RecordPaymentUseCase{store: store, logger: logger}
}

// Execute distributes the payment over penalties first, then schedule rows
// by sequence, and writes the payment, the touched penalties and the loan in
// one transaction.
func (uc *RecordPaymentUseCase) Execute(ctx context.Context, req dto.RecordPaymentRequest) (resp dto.PaymentResponse, err error) {
	ctx, span := startSpan(ctx, "RecordPayment",
		attribute.String("loan_id", req.LoanID),
		attribute.Int64("amount", int64(req.Amount)),
	)
	defer func() { endSpan(span, err) }()

	method := valueobject.PaymentMethod(req.Method)
	if method == "" {
		method = valueobject.PaymentMethodCash
	}
	if !method.Valid() {
		return dto.PaymentResponse{}, valueobject.NewValidationError("method", "unknown payment method %q", req.Method)
	}
	if !req.Amount.IsPositive() {
		return dto.PaymentResponse{}, valueobject.NewValidationError("amount", "payment amount must be positive")
	}
	if req.Actor.IsZero() {
		return dto.PaymentResponse{}, valueobject.NewValidationError("actor", "actor is required")
	}
	paidAt := orNow(req.PaidAt)

	var (
		loan    model.Loan
		payment model.Payment
	)
	err = uc.store.WithinTransaction(ctx, func(ctx context.Context, tx port.LoanTx) error {
		// 1. Retrieve and lock the loan.
		current, err := tx.GetLoanForUpdate(ctx, req.TenantID, req.LoanID)
		if err != nil {
			return fmt.Errorf("find loan: %w", err)
		}
		penalties, err := tx.ListUnpaidPenalties(ctx, req.TenantID, req.LoanID)
		if err != nil {
			return fmt.Errorf("list penalties: %w", err)
		}

		// 2. Plan the allocation without side effects.
		plan := service.PlanAllocation(req.Amount, penalties, current.Schedule())

		// 3. Apply it to the aggregate.
		number, err := tx.NextPaymentNumber(ctx, req.TenantID, paidAt.Year())
		if err != nil {
			return fmt.Errorf("next payment number: %w", err)
		}
		var touched []model.Penalty
		loan, payment, touched, err = current.ApplyPayment(plan, penalties, model.PaymentDraft{
			PaymentNumber: number,
			Amount:        req.Amount,
			Method:        method,
			Reference:     req.Reference,
			PaidAt:        paidAt,
			ReceivedBy:    req.Actor,
		})
		if err != nil {
			return fmt.Errorf("apply payment: %w", err)
		}

		// 4. Persist.
		if err := tx.InsertPayment(ctx, payment); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		if err := tx.UpdatePenalties(ctx, touched); err != nil {
			return fmt.Errorf("update penalties: %w", err)
		}
		return saveLoan(ctx, tx, loan)
	})
	if err != nil {
		return dto.PaymentResponse{}, err
	}

	count(ctx, paymentsRecorded, 1, attribute.String("method", string(method)))
	if payment.ClosedLoan {
		countTransition(ctx, loan.Status().String())
	}
	uc.logger.InfoContext(ctx, "payment recorded",
		slog.String("loan_id", loan.ID()),
		slog.String("tenant_id", loan.TenantID()),
		slog.String("payment_number", payment.PaymentNumber),
		slog.String("amount", payment.Amount.String()),
		slog.String("balance_after", payment.BalanceAfter.String()),
		slog.Bool("closed_loan", payment.ClosedLoan),
	)
	return toPaymentResponse(payment, loan), nil
}
