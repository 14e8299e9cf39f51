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
)

// ComputePenaltiesUseCase assesses penalties on the overdue rows of one
// active loan for one accrual date.
type ComputePenaltiesUseCase struct {
	store    port.LoanStore
	products port.ProductCatalog
	logger   *slog.Logger
}

// NewComputePenaltiesUseCase wires dependencies.
func NewComputePenaltiesUseCase(store port.LoanStore, products port.ProductCatalog, logger *slog.Logger) *ComputePenaltiesUseCase {
	return &ComputePenaltiesUseCase{store: store, products: products, logger: logger}
}

// Execute writes the new penalties and returns them. Running it twice for
// the same date creates nothing the second time.
func (uc *ComputePenaltiesUseCase) Execute(ctx context.Context, req dto.ComputePenaltiesRequest) (resp []dto.PenaltyResponse, err error) {
	ctx, span := startSpan(ctx, "ComputePenalties", attribute.String("loan_id", req.LoanID))
	defer func() { endSpan(span, err) }()

	asOf := dateOnly(orNow(req.AsOf))

	var created []model.Penalty
	err = uc.store.WithinTransaction(ctx, func(ctx context.Context, tx port.LoanTx) error {
		// 1. Retrieve and lock the loan.
		loan, err := tx.GetLoanForUpdate(ctx, req.TenantID, req.LoanID)
		if err != nil {
			return fmt.Errorf("find loan: %w", err)
		}
		product, err := uc.products.FindProduct(ctx, loan.TenantID(), loan.ProductID())
		if err != nil {
			return fmt.Errorf("find product: %w", err)
		}

		// 2. Compute penalties for rows not yet assessed on this date.
		assessed, err := tx.PenalizedRowsOn(ctx, req.TenantID, req.LoanID, asOf)
		if err != nil {
			return fmt.Errorf("find assessed rows: %w", err)
		}
		created = service.ComputePenalties(loan, product, asOf, assessed)

		// 3. Apply them to the aggregate.
		next, err := loan.AssessPenalties(created, asOf)
		if err != nil {
			return fmt.Errorf("assess penalties: %w", err)
		}
		if len(created) == 0 {
			return nil
		}

		// 4. Persist.
		if err := tx.InsertPenalties(ctx, created); err != nil {
			return fmt.Errorf("insert penalties: %w", err)
		}
		return saveLoan(ctx, tx, next)
	})
	if err != nil {
		return nil, err
	}

	count(ctx, penaltiesAssessed, int64(len(created)))
	if len(created) > 0 {
		uc.logger.InfoContext(ctx, "penalties assessed",
			slog.String("loan_id", req.LoanID),
			slog.String("tenant_id", req.TenantID),
			slog.Int("count", len(created)),
			slog.String("total", service.PenaltyTotal(created).String()),
		)
	}
	return toPenaltyResponses(created), nil
}
