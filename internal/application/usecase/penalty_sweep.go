package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jehnsen/coop-lending/internal/application/dto"
	"github.com/jehnsen/coop-lending/internal/domain/port"
)

// PenaltySweepUseCase runs penalty computation over every active loan. Each
// loan is its own unit of work; one loan failing does not stop the others.
type PenaltySweepUseCase struct {
	reader  port.LoanReader
	compute *ComputePenaltiesUseCase
	logger  *slog.Logger
}

// NewPenaltySweepUseCase wires dependencies.
func NewPenaltySweepUseCase(reader port.LoanReader, compute *ComputePenaltiesUseCase, logger *slog.Logger) *PenaltySweepUseCase {
	return &PenaltySweepUseCase{reader: reader, compute: compute, logger: logger}
}

// Execute sweeps active loans as of req.AsOf.
func (uc *PenaltySweepUseCase) Execute(ctx context.Context, req dto.PenaltySweepRequest) (resp dto.PenaltySweepResponse, err error) {
	ctx, span := startSpan(ctx, "PenaltySweep", attribute.String("tenant_id", req.TenantID))
	defer func() { endSpan(span, err) }()

	asOf := dateOnly(orNow(req.AsOf))

	loans, err := uc.reader.ListActiveLoans(ctx, req.TenantID)
	if err != nil {
		return dto.PenaltySweepResponse{}, fmt.Errorf("list active loans: %w", err)
	}

	for _, ref := range loans {
		if err := ctx.Err(); err != nil {
			return resp, err
		}
		resp.LoansScanned++

		created, err := uc.compute.Execute(ctx, dto.ComputePenaltiesRequest{
			TenantID: ref.TenantID,
			LoanID:   ref.LoanID,
			AsOf:     asOf,
		})
		if err != nil {
			resp.Failures++
			uc.logger.ErrorContext(ctx, "penalty computation failed",
				slog.String("loan_id", ref.LoanID),
				slog.String("tenant_id", ref.TenantID),
				slog.String("error", err.Error()),
			)
			continue
		}
		for _, p := range created {
			resp.PenaltiesAssessed++
			resp.TotalAssessed += p.GrossAmount
		}
	}

	uc.logger.InfoContext(ctx, "penalty sweep finished",
		slog.String("as_of", asOf.Format("2006-01-02")),
		slog.Int("loans", resp.LoansScanned),
		slog.Int("penalties", resp.PenaltiesAssessed),
		slog.String("total", resp.TotalAssessed.String()),
		slog.Int("failures", resp.Failures),
	)
	return resp, nil
}
