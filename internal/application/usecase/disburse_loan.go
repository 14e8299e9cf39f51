package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jehnsen/coop-lending/internal/application/dto"
	"github.com/jehnsen/coop-lending/internal/domain/model"
	"github.com/jehnsen/coop-lending/internal/domain/port"
	"github.com/jehnsen/coop-lending/internal/domain/service"
)

// DisburseLoanUseCase releases the funds of an approved loan and activates
// it, optionally re-anchoring its due dates on a new first payment date.
type DisburseLoanUseCase struct {
	store  port.LoanStore
	logger *slog.Logger
}

// NewDisburseLoanUseCase wires dependencies.
func NewDisburseLoanUseCase(store port.LoanStore, logger *slog.Logger) *DisburseLoanUseCase {
	return &DisburseLoanUseCase{store: store, logger: logger}
}

// Execute disburses the loan.
func (uc *DisburseLoanUseCase) Execute(ctx context.Context, req dto.DisburseLoanRequest) (resp dto.LoanResponse, err error) {
	ctx, span := startSpan(ctx, "DisburseLoan", attribute.String("loan_id", req.LoanID))
	defer func() { endSpan(span, err) }()

	loan, err := transitionLoan(ctx, uc.store, req.TenantID, req.LoanID, func(l model.Loan) (model.Loan, error) {
		dates, err := reanchoredDueDates(l, req.FirstPaymentDate)
		if err != nil {
			return l, err
		}
		return l.Disburse(req.Actor, orNow(req.DisbursedAt), dates)
	})
	if err != nil {
		return dto.LoanResponse{}, err
	}

	uc.logger.InfoContext(ctx, "loan disbursed",
		slog.String("loan_id", loan.ID()),
		slog.String("tenant_id", loan.TenantID()),
		slog.String("net_proceeds", loan.NetProceeds().String()),
	)
	return toLoanResponse(loan), nil
}

// reanchoredDueDates returns nil when the schedule keeps its dates, or the
// new due dates when firstPayment moves the first row.
func reanchoredDueDates(loan model.Loan, firstPayment time.Time) ([]time.Time, error) {
	rows := loan.Schedule()
	if firstPayment.IsZero() || len(rows) == 0 {
		return nil, nil
	}
	first := dateOnly(firstPayment)
	if first.Equal(dateOnly(rows[0].DueDate)) {
		return nil, nil
	}
	dates, err := service.GetDueDates(first, len(rows), loan.Interval())
	if err != nil {
		return nil, fmt.Errorf("re-anchor schedule: %w", err)
	}
	return dates, nil
}
