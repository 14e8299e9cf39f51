package usecase

import (
	"context"
	"fmt"

	"github.com/jehnsen/coop-lending/internal/application/dto"
	"github.com/jehnsen/coop-lending/internal/domain/model"
	"github.com/jehnsen/coop-lending/internal/domain/port"
)

// GetLoanUseCase retrieves a loan with its schedule.
type GetLoanUseCase struct {
	reader port.LoanReader
}

// NewGetLoanUseCase wires dependencies.
func NewGetLoanUseCase(reader port.LoanReader) *GetLoanUseCase {
	return &GetLoanUseCase{reader: reader}
}

// Execute returns a loan response for the given ID.
func (uc *GetLoanUseCase) Execute(ctx context.Context, req dto.GetLoanRequest) (dto.LoanResponse, error) {
	loan, err := uc.reader.GetLoan(ctx, req.TenantID, req.LoanID)
	if err != nil {
		return dto.LoanResponse{}, fmt.Errorf("find loan: %w", err)
	}
	return toLoanResponse(loan), nil
}

// ListPaymentsUseCase lists a loan's payments, reversed ones included.
type ListPaymentsUseCase struct {
	reader port.LoanReader
}

// NewListPaymentsUseCase wires dependencies.
func NewListPaymentsUseCase(reader port.LoanReader) *ListPaymentsUseCase {
	return &ListPaymentsUseCase{reader: reader}
}

// Execute returns the loan's payments oldest first.
func (uc *ListPaymentsUseCase) Execute(ctx context.Context, req dto.GetLoanRequest) ([]dto.PaymentResponse, error) {
	payments, err := uc.reader.ListPayments(ctx, req.TenantID, req.LoanID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	out := make([]dto.PaymentResponse, len(payments))
	for i, p := range payments {
		out[i] = toPaymentResponse(p, model.Loan{})
	}
	return out, nil
}

// ListPenaltiesUseCase lists a loan's penalties.
type ListPenaltiesUseCase struct {
	reader port.LoanReader
}

// NewListPenaltiesUseCase wires dependencies.
func NewListPenaltiesUseCase(reader port.LoanReader) *ListPenaltiesUseCase {
	return &ListPenaltiesUseCase{reader: reader}
}

// Execute returns the loan's penalties oldest first.
func (uc *ListPenaltiesUseCase) Execute(ctx context.Context, req dto.GetLoanRequest) ([]dto.PenaltyResponse, error) {
	penalties, err := uc.reader.ListPenalties(ctx, req.TenantID, req.LoanID)
	if err != nil {
		return nil, fmt.Errorf("list penalties: %w", err)
	}
	return toPenaltyResponses(penalties), nil
}
