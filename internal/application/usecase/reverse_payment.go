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

// ReversePaymentUseCase undoes a recorded payment.
type ReversePaymentUseCase struct {
	store  port.LoanStore
	logger *slog.Logger
}

// NewReversePaymentUseCase wires dependencies.
func NewReversePaymentUseCase(store port.LoanStore, logger *slog.Logger) *ReversePaymentUseCase {
	return &ReversePaymentUseCase{store: store, logger: logger}
}

// Execute reverses the payment line by line, reopening the loan when the
// payment had closed it.
func (uc *ReversePaymentUseCase) Execute(ctx context.Context, req dto.ReversePaymentRequest) (resp dto.PaymentResponse, err error) {
	ctx, span := startSpan(ctx, "ReversePayment", attribute.String("payment_id", req.PaymentID))
	defer func() { endSpan(span, err) }()

	var (
		loan     model.Loan
		reversed model.Payment
		reopened bool
	)
	err = uc.store.WithinTransaction(ctx, func(ctx context.Context, tx port.LoanTx) error {
		// 1. Retrieve the payment, then lock its loan.
		payment, err := tx.GetPayment(ctx, req.TenantID, req.PaymentID)
		if err != nil {
			return fmt.Errorf("find payment: %w", err)
		}
		current, err := tx.GetLoanForUpdate(ctx, req.TenantID, payment.LoanID)
		if err != nil {
			return fmt.Errorf("find loan: %w", err)
		}
		penalties, err := tx.GetPenalties(ctx, req.TenantID, payment.PenaltyIDs())
		if err != nil {
			return fmt.Errorf("find penalties: %w", err)
		}

		// 2. Undo the allocation.
		var touched []model.Penalty
		loan, reversed, touched, err = current.ReversePayment(payment, penalties, req.Actor, req.Reason, orNow(req.ReversedAt))
		if err != nil {
			return fmt.Errorf("reverse payment: %w", err)
		}
		reopened = !current.Status().Equal(loan.Status())

		// 3. Persist.
		if err := tx.MarkPaymentReversed(ctx, reversed); err != nil {
			return fmt.Errorf("mark payment reversed: %w", err)
		}
		if err := tx.UpdatePenalties(ctx, touched); err != nil {
			return fmt.Errorf("update penalties: %w", err)
		}
		return saveLoan(ctx, tx, loan)
	})
	if err != nil {
		return dto.PaymentResponse{}, err
	}

	count(ctx, paymentsReversed, 1)
	if reopened {
		countTransition(ctx, loan.Status().String())
	}
	uc.logger.InfoContext(ctx, "payment reversed",
		slog.String("loan_id", loan.ID()),
		slog.String("tenant_id", loan.TenantID()),
		slog.String("payment_number", reversed.PaymentNumber),
		slog.String("balance", loan.OutstandingBalance().String()),
		slog.Bool("reopened", reopened),
	)
	return toPaymentResponse(reversed, loan), nil
}
