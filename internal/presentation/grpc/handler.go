package grpc

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jehnsen/coop-lending/internal/application/dto"
	"github.com/jehnsen/coop-lending/internal/application/usecase"
	"github.com/jehnsen/coop-lending/internal/domain/model"
	"github.com/jehnsen/coop-lending/pkg/auth"
)

// UseCases bundles the application layer the handler delegates to.
type UseCases struct {
	Apply            *usecase.ApplyLoanUseCase
	Approve          *usecase.ApproveLoanUseCase
	Reject           *usecase.RejectLoanUseCase
	Disburse         *usecase.DisburseLoanUseCase
	GetLoan          *usecase.GetLoanUseCase
	Quote            *usecase.QuoteLoanUseCase
	RecordPayment    *usecase.RecordPaymentUseCase
	ReversePayment   *usecase.ReversePaymentUseCase
	ListPayments     *usecase.ListPaymentsUseCase
	ComputePenalties *usecase.ComputePenaltiesUseCase
	WaivePenalty     *usecase.WaivePenaltyUseCase
	ListPenalties    *usecase.ListPenaltiesUseCase
	Sweep            *usecase.PenaltySweepUseCase
}

// LendingHandler implements LendingServiceServer on top of the use cases.
// Money is converted between major-unit strings and minor units here and
// nowhere else.
type LendingHandler struct {
	uc     UseCases
	logger *slog.Logger
}

// NewLendingHandler creates a new handler with all use-case dependencies.
func NewLendingHandler(uc UseCases, logger *slog.Logger) *LendingHandler {
	return &LendingHandler{uc: uc, logger: logger}
}

var _ LendingServiceServer = (*LendingHandler)(nil)

// caller resolves the tenant and actor from the verified token.
func caller(ctx context.Context) (string, model.Actor, error) {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok || claims.TenantID == "" || claims.UserID == "" {
		return "", model.Actor{}, status.Error(codes.Unauthenticated, "caller identity is required")
	}
	return claims.TenantID, model.Actor{ID: claims.UserID, Name: claims.Name}, nil
}

func (h *LendingHandler) ApplyLoan(ctx context.Context, req *ApplyLoanRequest) (*LoanReply, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	tenantID, actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	principal, err := parseAmount("principal", req.Principal)
	if err != nil {
		return nil, err
	}
	applied, err := parseTime("application_date", req.ApplicationDate)
	if err != nil {
		return nil, err
	}
	first, err := parseTime("first_payment_date", req.FirstPaymentDate)
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.Apply.Execute(ctx, dto.ApplyLoanRequest{
		TenantID:         tenantID,
		MemberID:         req.MemberID,
		ProductID:        req.ProductID,
		Principal:        principal,
		TermMonths:       req.TermMonths,
		Interval:         req.Interval,
		Purpose:          req.Purpose,
		ApplicationDate:  applied,
		FirstPaymentDate: first,
		Actor:            actor,
	})
	if err != nil {
		return nil, toStatus(h.logger, "ApplyLoan", err)
	}
	return &LoanReply{Loan: toLoan(resp)}, nil
}

func (h *LendingHandler) ApproveLoan(ctx context.Context, req *ApproveLoanRequest) (*LoanReply, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	tenantID, actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireField("loan_id", req.LoanID); err != nil {
		return nil, err
	}
	at, err := parseTime("approved_at", req.ApprovedAt)
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.Approve.Execute(ctx, dto.ApproveLoanRequest{
		TenantID:   tenantID,
		LoanID:     req.LoanID,
		ApprovedAt: at,
		Notes:      req.Notes,
		Actor:      actor,
	})
	if err != nil {
		return nil, toStatus(h.logger, "ApproveLoan", err)
	}
	return &LoanReply{Loan: toLoan(resp)}, nil
}

func (h *LendingHandler) RejectLoan(ctx context.Context, req *RejectLoanRequest) (*LoanReply, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	tenantID, actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireField("loan_id", req.LoanID); err != nil {
		return nil, err
	}
	at, err := parseTime("rejected_at", req.RejectedAt)
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.Reject.Execute(ctx, dto.RejectLoanRequest{
		TenantID:   tenantID,
		LoanID:     req.LoanID,
		Reason:     req.Reason,
		RejectedAt: at,
		Actor:      actor,
	})
	if err != nil {
		return nil, toStatus(h.logger, "RejectLoan", err)
	}
	return &LoanReply{Loan: toLoan(resp)}, nil
}

func (h *LendingHandler) DisburseLoan(ctx context.Context, req *DisburseLoanRequest) (*LoanReply, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	tenantID, actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireField("loan_id", req.LoanID); err != nil {
		return nil, err
	}
	at, err := parseTime("disbursed_at", req.DisbursedAt)
	if err != nil {
		return nil, err
	}
	first, err := parseTime("first_payment_date", req.FirstPaymentDate)
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.Disburse.Execute(ctx, dto.DisburseLoanRequest{
		TenantID:         tenantID,
		LoanID:           req.LoanID,
		DisbursedAt:      at,
		FirstPaymentDate: first,
		Actor:            actor,
	})
	if err != nil {
		return nil, toStatus(h.logger, "DisburseLoan", err)
	}
	return &LoanReply{Loan: toLoan(resp)}, nil
}

func (h *LendingHandler) GetLoan(ctx context.Context, req *LoanLookup) (*LoanReply, error) {
	tenantID, loanID, err := h.lookup(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := h.uc.GetLoan.Execute(ctx, dto.GetLoanRequest{TenantID: tenantID, LoanID: loanID})
	if err != nil {
		return nil, toStatus(h.logger, "GetLoan", err)
	}
	return &LoanReply{Loan: toLoan(resp)}, nil
}

func (h *LendingHandler) QuoteLoan(ctx context.Context, req *QuoteLoanRequest) (*QuoteReply, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	tenantID, _, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	principal, err := parseAmount("principal", req.Principal)
	if err != nil {
		return nil, err
	}
	first, err := parseTime("first_payment_date", req.FirstPaymentDate)
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.Quote.Execute(ctx, dto.QuoteRequest{
		TenantID:         tenantID,
		ProductID:        req.ProductID,
		Principal:        principal,
		TermMonths:       req.TermMonths,
		Interval:         req.Interval,
		FirstPaymentDate: first,
	})
	if err != nil {
		return nil, toStatus(h.logger, "QuoteLoan", err)
	}
	return &QuoteReply{
		Installment:   formatAmount(resp.Installment),
		TotalInterest: formatAmount(resp.TotalInterest),
		TotalPayable:  formatAmount(resp.TotalPayable),
		ProcessingFee: formatAmount(resp.ProcessingFee),
		ServiceFee:    formatAmount(resp.ServiceFee),
		NetProceeds:   formatAmount(resp.NetProceeds),
		Schedule:      toScheduleRows(resp.Schedule),
	}, nil
}

func (h *LendingHandler) RecordPayment(ctx context.Context, req *RecordPaymentRequest) (*PaymentReply, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	tenantID, actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireField("loan_id", req.LoanID); err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	paidAt, err := parseTime("paid_at", req.PaidAt)
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.RecordPayment.Execute(ctx, dto.RecordPaymentRequest{
		TenantID:  tenantID,
		LoanID:    req.LoanID,
		Amount:    amount,
		Method:    req.Method,
		Reference: req.Reference,
		PaidAt:    paidAt,
		Actor:     actor,
	})
	if err != nil {
		return nil, toStatus(h.logger, "RecordPayment", err)
	}
	return &PaymentReply{Payment: toPayment(resp)}, nil
}

func (h *LendingHandler) ReversePayment(ctx context.Context, req *ReversePaymentRequest) (*PaymentReply, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	tenantID, actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireField("payment_id", req.PaymentID); err != nil {
		return nil, err
	}
	at, err := parseTime("reversed_at", req.ReversedAt)
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.ReversePayment.Execute(ctx, dto.ReversePaymentRequest{
		TenantID:   tenantID,
		PaymentID:  req.PaymentID,
		Reason:     req.Reason,
		ReversedAt: at,
		Actor:      actor,
	})
	if err != nil {
		return nil, toStatus(h.logger, "ReversePayment", err)
	}
	return &PaymentReply{Payment: toPayment(resp)}, nil
}

func (h *LendingHandler) ListPayments(ctx context.Context, req *LoanLookup) (*PaymentsReply, error) {
	tenantID, loanID, err := h.lookup(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := h.uc.ListPayments.Execute(ctx, dto.GetLoanRequest{TenantID: tenantID, LoanID: loanID})
	if err != nil {
		return nil, toStatus(h.logger, "ListPayments", err)
	}
	out := make([]*Payment, 0, len(resp))
	for _, p := range resp {
		out = append(out, toPayment(p))
	}
	return &PaymentsReply{Payments: out}, nil
}

func (h *LendingHandler) ComputePenalties(ctx context.Context, req *ComputePenaltiesRequest) (*PenaltiesReply, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	tenantID, _, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireField("loan_id", req.LoanID); err != nil {
		return nil, err
	}
	asOf, err := parseTime("as_of", req.AsOf)
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.ComputePenalties.Execute(ctx, dto.ComputePenaltiesRequest{
		TenantID: tenantID,
		LoanID:   req.LoanID,
		AsOf:     asOf,
	})
	if err != nil {
		return nil, toStatus(h.logger, "ComputePenalties", err)
	}
	return &PenaltiesReply{Penalties: toPenalties(resp)}, nil
}

func (h *LendingHandler) WaivePenalty(ctx context.Context, req *WaivePenaltyRequest) (*PenaltyReply, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	tenantID, actor, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireField("penalty_id", req.PenaltyID); err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	at, err := parseTime("waived_at", req.WaivedAt)
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.WaivePenalty.Execute(ctx, dto.WaivePenaltyRequest{
		TenantID:  tenantID,
		PenaltyID: req.PenaltyID,
		Amount:    amount,
		Reason:    req.Reason,
		WaivedAt:  at,
		Actor:     actor,
	})
	if err != nil {
		return nil, toStatus(h.logger, "WaivePenalty", err)
	}
	return &PenaltyReply{Penalty: toPenalty(resp)}, nil
}

func (h *LendingHandler) ListPenalties(ctx context.Context, req *LoanLookup) (*PenaltiesReply, error) {
	tenantID, loanID, err := h.lookup(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := h.uc.ListPenalties.Execute(ctx, dto.GetLoanRequest{TenantID: tenantID, LoanID: loanID})
	if err != nil {
		return nil, toStatus(h.logger, "ListPenalties", err)
	}
	return &PenaltiesReply{Penalties: toPenalties(resp)}, nil
}

// RunPenaltySweep sweeps the caller's tenant only. The scheduler covers all
// tenants.
func (h *LendingHandler) RunPenaltySweep(ctx context.Context, req *PenaltySweepRequest) (*PenaltySweepReply, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	tenantID, _, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	asOf, err := parseTime("as_of", req.AsOf)
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.Sweep.Execute(ctx, dto.PenaltySweepRequest{TenantID: tenantID, AsOf: asOf})
	if err != nil {
		return nil, toStatus(h.logger, "RunPenaltySweep", err)
	}
	return &PenaltySweepReply{
		LoansScanned:      resp.LoansScanned,
		PenaltiesAssessed: resp.PenaltiesAssessed,
		TotalAssessed:     formatAmount(resp.TotalAssessed),
		Failures:          resp.Failures,
	}, nil
}

func (h *LendingHandler) lookup(ctx context.Context, req *LoanLookup) (string, string, error) {
	if req == nil {
		return "", "", status.Error(codes.InvalidArgument, "request is required")
	}
	tenantID, _, err := caller(ctx)
	if err != nil {
		return "", "", err
	}
	if err := requireField("loan_id", req.LoanID); err != nil {
		return "", "", err
	}
	return tenantID, req.LoanID, nil
}
