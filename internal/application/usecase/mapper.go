package usecase

import (
	"time"

	"github.com/jehnsen/coop-lending/internal/application/dto"
	"github.com/jehnsen/coop-lending/internal/domain/model"
)

func toLoanResponse(loan model.Loan) dto.LoanResponse {
	s := loan.Snapshot()
	return dto.LoanResponse{
		ID:                   s.ID,
		TenantID:             s.TenantID,
		LoanNumber:           s.LoanNumber,
		MemberID:             s.MemberID,
		ProductID:            s.ProductID,
		Currency:             s.Currency.Code(),
		Principal:            s.Principal,
		InterestRate:         s.InterestRate.String(),
		TermMonths:           s.TermMonths,
		Interval:             s.Interval.String(),
		Status:               s.Status.String(),
		ProcessingFee:        s.ProcessingFee,
		ServiceFee:           s.ServiceFee,
		NetProceeds:          s.NetProceeds,
		Installment:          s.Installment,
		TotalInterest:        s.TotalInterest,
		TotalPayable:         s.TotalPayable,
		OutstandingBalance:   s.OutstandingBalance,
		PrincipalPaid:        s.PrincipalPaid,
		InterestPaid:         s.InterestPaid,
		PenaltyPaid:          s.PenaltyPaid,
		PenaltiesOutstanding: s.PenaltiesOutstanding,
		ApplicationDate:      s.ApplicationDate,
		ApprovalDate:         s.ApprovalDate,
		DisbursementDate:     s.DisbursementDate,
		FirstPaymentDate:     s.FirstPaymentDate,
		MaturityDate:         s.MaturityDate,
		ClosedDate:           s.ClosedDate,
		RejectionReason:      s.RejectionReason,
		Schedule:             toScheduleResponse(s.Schedule),
		Version:              s.Version,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

func toScheduleResponse(rows []model.ScheduleRow) []dto.ScheduleRowResponse {
	out := make([]dto.ScheduleRowResponse, len(rows))
	for i, r := range rows {
		out[i] = dto.ScheduleRowResponse{
			ID:               r.ID,
			Sequence:         r.Sequence,
			DueDate:          r.DueDate,
			BeginningBalance: r.BeginningBalance,
			PrincipalDue:     r.PrincipalDue,
			InterestDue:      r.InterestDue,
			TotalDue:         r.TotalDue,
			PrincipalPaid:    r.PrincipalPaid,
			InterestPaid:     r.InterestPaid,
			PenaltyPaid:      r.PenaltyPaid,
			TotalPaid:        r.TotalPaid,
			EndingBalance:    r.EndingBalance,
			Status:           r.Status.String(),
			PaidDate:         r.PaidDate,
		}
	}
	return out
}

func toPaymentResponse(p model.Payment, loan model.Loan) dto.PaymentResponse {
	resp := dto.PaymentResponse{
		ID:             p.ID,
		LoanID:         p.LoanID,
		PaymentNumber:  p.PaymentNumber,
		Amount:         p.Amount,
		Principal:      p.Principal,
		Interest:       p.Interest,
		Penalty:        p.Penalty,
		BalanceBefore:  p.BalanceBefore,
		BalanceAfter:   p.BalanceAfter,
		Method:         string(p.Method),
		Reference:      p.Reference,
		PaymentDate:    p.PaymentDate,
		ReceivedBy:     p.ReceivedBy.ID,
		ClosedLoan:     p.ClosedLoan,
		Reversed:       p.Reversed,
		ReversedAt:     p.ReversedAt,
		ReversalReason: p.ReversalReason,
		Allocations:    make([]dto.AllocationResponse, len(p.Allocations)),
	}
	if loan.ID() != "" {
		resp.LoanStatus = loan.Status().String()
	}
	for i, l := range p.Allocations {
		resp.Allocations[i] = dto.AllocationResponse{
			Target:    string(l.Target),
			TargetID:  l.TargetID,
			Sequence:  l.Sequence,
			Penalty:   l.Penalty,
			Interest:  l.Interest,
			Principal: l.Principal,
		}
	}
	return resp
}

func toPenaltyResponse(p model.Penalty) dto.PenaltyResponse {
	return dto.PenaltyResponse{
		ID:            p.ID,
		LoanID:        p.LoanID,
		ScheduleRowID: p.ScheduleRowID,
		Type:          p.Type.String(),
		Rate:          p.Rate.String(),
		DaysOverdue:   p.DaysOverdue,
		BaseAmount:    p.BaseAmount,
		GrossAmount:   p.GrossAmount,
		WaivedAmount:  p.WaivedAmount,
		NetAmount:     p.NetAmount,
		PaidAmount:    p.PaidAmount,
		AppliedDate:   p.AppliedDate,
		Paid:          p.Paid,
		WaiverReason:  p.WaiverReason,
	}
}

func toPenaltyResponses(ps []model.Penalty) []dto.PenaltyResponse {
	out := make([]dto.PenaltyResponse, len(ps))
	for i, p := range ps {
		out[i] = toPenaltyResponse(p)
	}
	return out
}

// orNow returns t in UTC, or the current time when t is zero.
func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

// dateOnly drops the time of day, in UTC.
func dateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
