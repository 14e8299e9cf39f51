package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jehnsen/coop-lending/internal/application/dto"
	"github.com/jehnsen/coop-lending/internal/application/usecase"
	"github.com/jehnsen/coop-lending/internal/domain/model"
	"github.com/jehnsen/coop-lending/internal/domain/service"
	"github.com/jehnsen/coop-lending/internal/domain/valueobject"
	"github.com/jehnsen/coop-lending/internal/infrastructure/persistence/memory"
	"github.com/jehnsen/coop-lending/pkg/money"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockMembershipDirectory struct {
	isEligibleFunc func(ctx context.Context, tenantID, memberID string) (bool, error)
}

func (m *mockMembershipDirectory) IsEligibleMember(ctx context.Context, tenantID, memberID string) (bool, error) {
	if m.isEligibleFunc != nil {
		return m.isEligibleFunc(ctx, tenantID, memberID)
	}
	return true, nil
}

type mockProductCatalog struct {
	findProductFunc func(ctx context.Context, tenantID, productID string) (model.LoanProduct, error)
}

func (m *mockProductCatalog) FindProduct(ctx context.Context, tenantID, productID string) (model.LoanProduct, error) {
	if m.findProductFunc != nil {
		return m.findProductFunc(ctx, tenantID, productID)
	}
	p := regularProduct()
	p.ID = productID
	p.TenantID = tenantID
	return p, nil
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

const tenantID = "tenant-001"

var (
	officer = model.Actor{ID: "officer-001", Name: "Loan Officer"}
	cashier = model.Actor{ID: "cashier-001", Name: "Cashier"}
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func regularProduct() model.LoanProduct {
	return model.LoanProduct{
		ID:                    "prod-regular",
		TenantID:              tenantID,
		Name:                  "Regular Loan",
		Currency:              money.PHP,
		InterestRate:          decimal.RequireFromString("0.015"),
		InterestMethod:        valueobject.InterestMethodDiminishingBalance,
		ProcessingFeeRate:     decimal.RequireFromString("0.02"),
		ServiceFeeRate:        decimal.RequireFromString("0.01"),
		MinPrincipal:          100_000,
		MaxPrincipal:          100_000_000,
		MinTermMonths:         1,
		MaxTermMonths:         36,
		LatePenaltyRate:       decimal.RequireFromString("0.02"),
		NonPaymentPenaltyRate: decimal.RequireFromString("0.05"),
		Active:                true,
	}
}

type fixture struct {
	store    *memory.Store
	members  *mockMembershipDirectory
	products *mockProductCatalog

	apply     *usecase.ApplyLoanUseCase
	approve   *usecase.ApproveLoanUseCase
	reject    *usecase.RejectLoanUseCase
	disburse  *usecase.DisburseLoanUseCase
	pay       *usecase.RecordPaymentUseCase
	reverse   *usecase.ReversePaymentUseCase
	penalties *usecase.ComputePenaltiesUseCase
	waive     *usecase.WaivePenaltyUseCase
	sweep     *usecase.PenaltySweepUseCase
	quote     *usecase.QuoteLoanUseCase
	getLoan   *usecase.GetLoanUseCase
}

func newFixture() *fixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	members := &mockMembershipDirectory{}
	products := &mockProductCatalog{}
	policy := service.NewLoanPolicy()
	compute := usecase.NewComputePenaltiesUseCase(store, products, logger)

	return &fixture{
		store:     store,
		members:   members,
		products:  products,
		apply:     usecase.NewApplyLoanUseCase(store, members, products, policy, logger),
		approve:   usecase.NewApproveLoanUseCase(store, logger),
		reject:    usecase.NewRejectLoanUseCase(store, logger),
		disburse:  usecase.NewDisburseLoanUseCase(store, logger),
		pay:       usecase.NewRecordPaymentUseCase(store, logger),
		reverse:   usecase.NewReversePaymentUseCase(store, logger),
		penalties: compute,
		waive:     usecase.NewWaivePenaltyUseCase(store, logger),
		sweep:     usecase.NewPenaltySweepUseCase(store, compute, logger),
		quote:     usecase.NewQuoteLoanUseCase(products, policy, logger),
		getLoan:   usecase.NewGetLoanUseCase(store),
	}
}

func applyRequest(principal money.Amount, term int) dto.ApplyLoanRequest {
	return dto.ApplyLoanRequest{
		TenantID:         tenantID,
		MemberID:         "member-001",
		ProductID:        "prod-regular",
		Principal:        principal,
		TermMonths:       term,
		Interval:         "monthly",
		ApplicationDate:  date(2026, 1, 2),
		FirstPaymentDate: date(2026, 2, 1),
		Actor:            officer,
	}
}

// activeLoan applies, approves and disburses a loan.
func (f *fixture) activeLoan(t *testing.T, principal money.Amount, term int) dto.LoanResponse {
	t.Helper()
	ctx := context.Background()

	loan, err := f.apply.Execute(ctx, applyRequest(principal, term))
	require.NoError(t, err)
	_, err = f.approve.Execute(ctx, dto.ApproveLoanRequest{TenantID: tenantID, LoanID: loan.ID, Actor: officer, ApprovedAt: date(2026, 1, 3)})
	require.NoError(t, err)
	loan, err = f.disburse.Execute(ctx, dto.DisburseLoanRequest{TenantID: tenantID, LoanID: loan.ID, Actor: officer, DisbursedAt: date(2026, 1, 4)})
	require.NoError(t, err)
	return loan
}

func (f *fixture) recordPayment(t *testing.T, loanID string, amount money.Amount, at time.Time) dto.PaymentResponse {
	t.Helper()
	resp, err := f.pay.Execute(context.Background(), dto.RecordPaymentRequest{
		TenantID: tenantID,
		LoanID:   loanID,
		Amount:   amount,
		Method:   "cash",
		PaidAt:   at,
		Actor:    cashier,
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) loan(t *testing.T, loanID string) dto.LoanResponse {
	t.Helper()
	resp, err := f.getLoan.Execute(context.Background(), dto.GetLoanRequest{TenantID: tenantID, LoanID: loanID})
	require.NoError(t, err)
	return resp
}

func outboxTypes(s *memory.Store) []string {
	var out []string
	for _, e := range s.Outbox() {
		out = append(out, e.EventType)
	}
	return out
}
