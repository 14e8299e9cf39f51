package grpc

import (
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jehnsen/coop-lending/internal/application/dto"
	"github.com/jehnsen/coop-lending/pkg/money"
)

// ---------------------------------------------------------------------------
// Request parsing
// ---------------------------------------------------------------------------

func parseAmount(field, s string) (money.Amount, error) {
	if s == "" {
		return 0, status.Errorf(codes.InvalidArgument, "%s is required", field)
	}
	a, err := money.ParseMajor(s)
	if err != nil {
		return 0, status.Error(codes.InvalidArgument, fmt.Sprintf("invalid %s: %v", field, err))
	}
	return a, nil
}

// parseTime accepts a calendar date or an RFC 3339 instant. An empty string
// yields the zero time, which the use cases replace with their defaults.
func parseTime(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "invalid %s %q: want YYYY-MM-DD or RFC 3339", field, s)
	}
	return t.UTC(), nil
}

func requireField(field, v string) error {
	if v == "" {
		return status.Errorf(codes.InvalidArgument, "%s is required", field)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Response mapping
// ---------------------------------------------------------------------------

func formatAmount(a money.Amount) string {
	return a.Major().StringFixed(money.MinorDigits)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDate(*t)
}

func formatInstant(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toScheduleRows(rows []dto.ScheduleRowResponse) []*ScheduleRow {
	out := make([]*ScheduleRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, &ScheduleRow{
			Sequence:         r.Sequence,
			DueDate:          formatDate(r.DueDate),
			BeginningBalance: formatAmount(r.BeginningBalance),
			PrincipalDue:     formatAmount(r.PrincipalDue),
			InterestDue:      formatAmount(r.InterestDue),
			TotalDue:         formatAmount(r.TotalDue),
			TotalPaid:        formatAmount(r.TotalPaid),
			EndingBalance:    formatAmount(r.EndingBalance),
			Status:           r.Status,
			PaidDate:         formatDatePtr(r.PaidDate),
		})
	}
	return out
}

func toLoan(l dto.LoanResponse) *Loan {
	return &Loan{
		ID:                   l.ID,
		LoanNumber:           l.LoanNumber,
		MemberID:             l.MemberID,
		ProductID:            l.ProductID,
		Currency:             l.Currency,
		Principal:            formatAmount(l.Principal),
		InterestRate:         l.InterestRate,
		TermMonths:           l.TermMonths,
		Interval:             l.Interval,
		Status:               l.Status,
		ProcessingFee:        formatAmount(l.ProcessingFee),
		ServiceFee:           formatAmount(l.ServiceFee),
		NetProceeds:          formatAmount(l.NetProceeds),
		Installment:          formatAmount(l.Installment),
		TotalInterest:        formatAmount(l.TotalInterest),
		TotalPayable:         formatAmount(l.TotalPayable),
		OutstandingBalance:   formatAmount(l.OutstandingBalance),
		PrincipalPaid:        formatAmount(l.PrincipalPaid),
		InterestPaid:         formatAmount(l.InterestPaid),
		PenaltyPaid:          formatAmount(l.PenaltyPaid),
		PenaltiesOutstanding: formatAmount(l.PenaltiesOutstanding),
		ApplicationDate:      formatDate(l.ApplicationDate),
		ApprovalDate:         formatDatePtr(l.ApprovalDate),
		DisbursementDate:     formatDatePtr(l.DisbursementDate),
		FirstPaymentDate:     formatDatePtr(l.FirstPaymentDate),
		MaturityDate:         formatDatePtr(l.MaturityDate),
		ClosedDate:           formatDatePtr(l.ClosedDate),
		RejectionReason:      l.RejectionReason,
		Schedule:             toScheduleRows(l.Schedule),
		Version:              l.Version,
	}
}

func toPayment(p dto.PaymentResponse) *Payment {
	allocations := make([]*Allocation, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		allocations = append(allocations, &Allocation{
			Target:    a.Target,
			TargetID:  a.TargetID,
			Sequence:  a.Sequence,
			Penalty:   formatAmount(a.Penalty),
			Interest:  formatAmount(a.Interest),
			Principal: formatAmount(a.Principal),
		})
	}
	paid := p.PaymentDate
	return &Payment{
		ID:             p.ID,
		LoanID:         p.LoanID,
		PaymentNumber:  p.PaymentNumber,
		Amount:         formatAmount(p.Amount),
		Principal:      formatAmount(p.Principal),
		Interest:       formatAmount(p.Interest),
		Penalty:        formatAmount(p.Penalty),
		BalanceBefore:  formatAmount(p.BalanceBefore),
		BalanceAfter:   formatAmount(p.BalanceAfter),
		Method:         p.Method,
		Reference:      p.Reference,
		PaymentDate:    formatInstant(&paid),
		ReceivedBy:     p.ReceivedBy,
		LoanStatus:     p.LoanStatus,
		Reversed:       p.Reversed,
		ReversedAt:     formatInstant(p.ReversedAt),
		ReversalReason: p.ReversalReason,
		Allocations:    allocations,
	}
}

func toPenalty(p dto.PenaltyResponse) *Penalty {
	return &Penalty{
		ID:            p.ID,
		LoanID:        p.LoanID,
		ScheduleRowID: p.ScheduleRowID,
		Type:          p.Type,
		Rate:          p.Rate,
		DaysOverdue:   p.DaysOverdue,
		BaseAmount:    formatAmount(p.BaseAmount),
		GrossAmount:   formatAmount(p.GrossAmount),
		WaivedAmount:  formatAmount(p.WaivedAmount),
		NetAmount:     formatAmount(p.NetAmount),
		PaidAmount:    formatAmount(p.PaidAmount),
		AppliedDate:   formatDate(p.AppliedDate),
		Paid:          p.Paid,
		WaiverReason:  p.WaiverReason,
	}
}

func toPenalties(ps []dto.PenaltyResponse) []*Penalty {
	out := make([]*Penalty, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPenalty(p))
	}
	return out
}
