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

// WaivePenaltyUseCase forgives part or all of a penalty.
type WaivePenaltyUseCase struct {
	store  port.LoanStore
	logger *slog.Logger
}

// NewWaivePenaltyUseCase wires dependencies.
func NewWaivePenaltyUseCase(store port.LoanStore, logger *slog.Logger) *WaivePenaltyUseCase {
	return &WaivePenaltyUseCase{store: store, logger: logger}
}

// Execute waives req.Amount of the penalty.
func (uc *WaivePenaltyUseCase) Execute(ctx context.Context, req dto.WaivePenaltyRequest) (resp dto.PenaltyResponse, err error) {
	ctx, span := startSpan(ctx, "WaivePenalty", attribute.String("penalty_id", req.PenaltyID))
	defer func() { endSpan(span, err) }()

	var waived model.Penalty
	err = uc.store.WithinTransaction(ctx, func(ctx context.Context, tx port.LoanTx) error {
		// 1. Find the penalty's loan and lock it before the penalty row, in
		// the same order RecordPayment and ReversePayment take them.
		found, err := tx.GetPenalty(ctx, req.TenantID, req.PenaltyID)
		if err != nil {
			return fmt.Errorf("find penalty: %w", err)
		}
		loan, err := tx.GetLoanForUpdate(ctx, req.TenantID, found.LoanID)
		if err != nil {
			return fmt.Errorf("find loan: %w", err)
		}
		locked, err := tx.GetPenalties(ctx, req.TenantID, []string{found.ID})
		if err != nil {
			return fmt.Errorf("lock penalty: %w", err)
		}
		penalty := locked[0]

		// 2. Waive.
		var next model.Loan
		next, waived, err = loan.WaivePenalty(penalty, req.Amount, req.Reason, req.Actor, orNow(req.WaivedAt))
		if err != nil {
			return fmt.Errorf("waive penalty: %w", err)
		}

		// 3. Persist.
		if err := tx.UpdatePenalties(ctx, []model.Penalty{waived}); err != nil {
			return fmt.Errorf("update penalty: %w", err)
		}
		return saveLoan(ctx, tx, next)
	})
	if err != nil {
		return dto.PenaltyResponse{}, err
	}

	uc.logger.InfoContext(ctx, "penalty waived",
		slog.String("penalty_id", waived.ID),
		slog.String("loan_id", waived.LoanID),
		slog.String("amount", req.Amount.String()),
		slog.String("actor", req.Actor.ID),
	)
	return toPenaltyResponse(waived), nil
}
