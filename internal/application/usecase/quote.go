package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jehnsen/coop-lending/internal/application/dto"
	"github.com/jehnsen/coop-lending/internal/domain/port"
	"github.com/jehnsen/coop-lending/internal/domain/service"
)

// QuoteLoanUseCase prices a prospective loan without persisting anything.
type QuoteLoanUseCase struct {
	products port.ProductCatalog
	policy   *service.LoanPolicy
	logger   *slog.Logger
}

// NewQuoteLoanUseCase wires dependencies.
func NewQuoteLoanUseCase(products port.ProductCatalog, policy *service.LoanPolicy, logger *slog.Logger) *QuoteLoanUseCase {
	return &QuoteLoanUseCase{products: products, policy: policy, logger: logger}
}

// Execute returns the installment, fees and full schedule the request would
// produce.
func (uc *QuoteLoanUseCase) Execute(ctx context.Context, req dto.QuoteRequest) (resp dto.QuoteResponse, err error) {
	ctx, span := startSpan(ctx, "QuoteLoan", attribute.String("product_id", req.ProductID))
	defer func() { endSpan(span, err) }()

	interval, err := parseInterval(req.Interval)
	if err != nil {
		return dto.QuoteResponse{}, err
	}

	product, err := uc.products.FindProduct(ctx, req.TenantID, req.ProductID)
	if err != nil {
		return dto.QuoteResponse{}, fmt.Errorf("find product: %w", err)
	}
	terms, err := uc.policy.Evaluate(product, service.LoanRequest{
		Principal:  req.Principal,
		TermMonths: req.TermMonths,
		Interval:   interval,
	})
	if err != nil {
		return dto.QuoteResponse{}, fmt.Errorf("evaluate loan: %w", err)
	}

	firstDue, err := firstDueDate(time.Now().UTC(), req.FirstPaymentDate, interval)
	if err != nil {
		return dto.QuoteResponse{}, err
	}
	schedule, err := service.ComputeSchedule(req.Principal, product.InterestRate, req.TermMonths, firstDue, interval)
	if err != nil {
		return dto.QuoteResponse{}, fmt.Errorf("compute schedule: %w", err)
	}

	uc.logger.DebugContext(ctx, "loan quoted",
		slog.String("tenant_id", req.TenantID),
		slog.String("product_id", product.ID),
		slog.String("principal", req.Principal.String()),
		slog.String("installment", schedule.Installment.String()),
	)
	return dto.QuoteResponse{
		Installment:   schedule.Installment,
		TotalInterest: schedule.TotalInterest,
		TotalPayable:  schedule.TotalPayable,
		ProcessingFee: terms.ProcessingFee,
		ServiceFee:    terms.ServiceFee,
		NetProceeds:   terms.NetProceeds,
		Schedule:      toScheduleResponse(schedule.Rows),
	}, nil
}
