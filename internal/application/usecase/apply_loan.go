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
	"github.com/jehnsen/coop-lending/internal/domain/valueobject"
)

// ApplyLoanUseCase creates a pending loan with its full repayment schedule
// for an eligible member.
type ApplyLoanUseCase struct {
	store    port.LoanStore
	members  port.MembershipDirectory
	products port.ProductCatalog
	policy   *service.LoanPolicy
	logger   *slog.Logger
}

// NewApplyLoanUseCase wires dependencies.
func NewApplyLoanUseCase(
	store port.LoanStore,
	members port.MembershipDirectory,
	products port.ProductCatalog,
	policy *service.LoanPolicy,
	logger *slog.Logger,
) *ApplyLoanUseCase {
	return &ApplyLoanUseCase{
		store:    store,
		members:  members,
		products: products,
		policy:   policy,
		logger:   logger,
	}
}

// Execute validates the request, prices it against the product and persists
// the loan, its rows and the loan.applied event in one transaction.
func (uc *ApplyLoanUseCase) Execute(ctx context.Context, req dto.ApplyLoanRequest) (resp dto.LoanResponse, err error) {
	ctx, span := startSpan(ctx, "ApplyLoan",
		attribute.String("tenant_id", req.TenantID),
		attribute.String("member_id", req.MemberID),
	)
	defer func() { endSpan(span, err) }()

	// 1. Validate the request shape.
	if req.TenantID == "" {
		return dto.LoanResponse{}, valueobject.NewValidationError("tenant_id", "tenant ID is required")
	}
	if req.MemberID == "" {
		return dto.LoanResponse{}, valueobject.NewValidationError("member_id", "member ID is required")
	}
	if req.Actor.IsZero() {
		return dto.LoanResponse{}, valueobject.NewValidationError("actor", "actor is required")
	}
	interval, err := parseInterval(req.Interval)
	if err != nil {
		return dto.LoanResponse{}, err
	}

	// 2. Only eligible members may borrow.
	eligible, err := uc.members.IsEligibleMember(ctx, req.TenantID, req.MemberID)
	if err != nil {
		return dto.LoanResponse{}, fmt.Errorf("check membership: %w", err)
	}
	if !eligible {
		return dto.LoanResponse{}, valueobject.NewValidationError("member_id",
			"%s is not an eligible member", req.MemberID)
	}

	// 3. Price the request against the product.
	product, err := uc.products.FindProduct(ctx, req.TenantID, req.ProductID)
	if err != nil {
		return dto.LoanResponse{}, fmt.Errorf("find product: %w", err)
	}
	terms, err := uc.policy.Evaluate(product, service.LoanRequest{
		Principal:  req.Principal,
		TermMonths: req.TermMonths,
		Interval:   interval,
	})
	if err != nil {
		return dto.LoanResponse{}, fmt.Errorf("evaluate loan: %w", err)
	}

	// 4. Build the schedule.
	appliedAt := orNow(req.ApplicationDate)
	firstDue, err := firstDueDate(appliedAt, req.FirstPaymentDate, interval)
	if err != nil {
		return dto.LoanResponse{}, err
	}
	schedule, err := service.ComputeSchedule(req.Principal, product.InterestRate, req.TermMonths, firstDue, interval)
	if err != nil {
		return dto.LoanResponse{}, fmt.Errorf("compute schedule: %w", err)
	}

	// 5. Number and persist atomically.
	var loan model.Loan
	err = uc.store.WithinTransaction(ctx, func(ctx context.Context, tx port.LoanTx) error {
		number, err := tx.NextLoanNumber(ctx, req.TenantID, appliedAt.Year())
		if err != nil {
			return fmt.Errorf("next loan number: %w", err)
		}
		loan, err = model.NewLoan(model.NewLoanParams{
			TenantID:        req.TenantID,
			LoanNumber:      number,
			MemberID:        req.MemberID,
			ProductID:       product.ID,
			Currency:        product.Currency,
			Principal:       req.Principal,
			InterestRate:    product.InterestRate,
			InterestMethod:  product.InterestMethod,
			TermMonths:      req.TermMonths,
			Interval:        interval,
			ProcessingFee:   terms.ProcessingFee,
			ServiceFee:      terms.ServiceFee,
			Purpose:         req.Purpose,
			Schedule:        schedule,
			AppliedBy:       req.Actor,
			ApplicationDate: appliedAt,
		})
		if err != nil {
			return fmt.Errorf("create loan: %w", err)
		}
		if err := tx.InsertLoan(ctx, loan); err != nil {
			return fmt.Errorf("insert loan: %w", err)
		}
		if err := tx.AppendEvents(ctx, loan.DomainEvents()...); err != nil {
			return fmt.Errorf("append events: %w", err)
		}
		return nil
	})
	if err != nil {
		return dto.LoanResponse{}, err
	}

	countTransition(ctx, loan.Status().String())
	uc.logger.InfoContext(ctx, "loan applied",
		slog.String("loan_id", loan.ID()),
		slog.String("loan_number", loan.LoanNumber()),
		slog.String("tenant_id", loan.TenantID()),
		slog.String("member_id", loan.MemberID()),
		slog.String("principal", loan.Principal().String()),
	)
	return toLoanResponse(loan), nil
}

func parseInterval(s string) (valueobject.PaymentInterval, error) {
	if s == "" {
		return valueobject.IntervalMonthly, nil
	}
	iv, err := valueobject.NewPaymentInterval(s)
	if err != nil {
		return valueobject.PaymentInterval{}, valueobject.NewValidationError("interval", "%v", err)
	}
	return iv, nil
}

// firstDueDate returns requested when set, otherwise the date one interval
// after from.
func firstDueDate(from, requested time.Time, interval valueobject.PaymentInterval) (time.Time, error) {
	if !requested.IsZero() {
		return dateOnly(requested), nil
	}
	dates, err := service.GetDueDates(dateOnly(from), 2, interval)
	if err != nil {
		return time.Time{}, fmt.Errorf("first due date: %w", err)
	}
	return dates[1], nil
}
