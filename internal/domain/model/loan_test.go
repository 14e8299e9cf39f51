package model_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jehnsen/coop-lending/internal/domain/event"
	"github.com/jehnsen/coop-lending/internal/domain/model"
	"github.com/jehnsen/coop-lending/internal/domain/service"
	"github.com/jehnsen/coop-lending/internal/domain/valueobject"
	"github.com/jehnsen/coop-lending/pkg/money"
)

var (
	officer = model.Actor{ID: "officer-1", Name: "Loan Officer"}
	cashier = model.Actor{ID: "cashier-1", Name: "Cashier"}
	day0    = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
)

// threeRowSchedule is a small hand-made schedule: 3,000 principal in three
// rows of 1,000 with 30, 20 and 10 interest.
func threeRowSchedule() model.Schedule {
	rows := []model.ScheduleRow{
		{Sequence: 1, DueDate: time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC), BeginningBalance: 3000, PrincipalDue: 1000, InterestDue: 30, TotalDue: 1030, EndingBalance: 2000},
		{Sequence: 2, DueDate: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), BeginningBalance: 2000, PrincipalDue: 1000, InterestDue: 20, TotalDue: 1020, EndingBalance: 1000},
		{Sequence: 3, DueDate: time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC), BeginningBalance: 1000, PrincipalDue: 1000, InterestDue: 10, TotalDue: 1010},
	}
	return model.Schedule{Rows: rows, TotalInterest: 60, TotalPayable: 3060, Installment: 1030}
}

func newPendingLoan(t *testing.T, sched model.Schedule) model.Loan {
	t.Helper()
	loan, err := model.NewLoan(model.NewLoanParams{
		TenantID:        "tenant-1",
		LoanNumber:      "LN-2026-000001",
		MemberID:        "member-1",
		ProductID:       "prod-1",
		Currency:        money.PHP,
		Principal:       sched.PrincipalSum(),
		InterestRate:    decimal.RequireFromString("0.01"),
		InterestMethod:  valueobject.InterestMethodDiminishingBalance,
		TermMonths:      len(sched.Rows),
		Interval:        valueobject.IntervalMonthly,
		ProcessingFee:   60,
		ServiceFee:      30,
		Schedule:        sched,
		AppliedBy:       officer,
		ApplicationDate: day0,
	})
	require.NoError(t, err)
	return loan
}

func newActiveLoan(t *testing.T, sched model.Schedule) model.Loan {
	t.Helper()
	loan := newPendingLoan(t, sched)
	loan, err := loan.Approve(officer, day0, "ok")
	require.NoError(t, err)
	loan, err = loan.Disburse(officer, day0, nil)
	require.NoError(t, err)
	return loan.ClearEvents()
}

func pay(t *testing.T, loan model.Loan, penalties []model.Penalty, amount money.Amount) (model.Loan, model.Payment, []model.Penalty) {
	t.Helper()
	plan := service.PlanAllocation(amount, penalties, loan.Schedule())
	next, payment, touched, err := loan.ApplyPayment(plan, penalties, model.PaymentDraft{
		PaymentNumber: "LP-2026-000001",
		Amount:        amount,
		Method:        valueobject.PaymentMethodCash,
		PaidAt:        day0.AddDate(0, 1, 0),
		ReceivedBy:    cashier,
	})
	require.NoError(t, err)
	return next, payment, touched
}

func eventTypes(l model.Loan) []string {
	var out []string
	for _, e := range l.DomainEvents() {
		out = append(out, e.EventType())
	}
	return out
}

func TestNewLoan(t *testing.T) {
	loan := newPendingLoan(t, threeRowSchedule())

	assert.NotEmpty(t, loan.ID())
	assert.True(t, loan.Status().Equal(valueobject.LoanStatusPending))
	assert.Equal(t, money.Amount(3060), loan.OutstandingBalance())
	assert.Equal(t, money.Amount(2910), loan.NetProceeds())
	assert.Equal(t, 1, loan.Version())
	assert.Equal(t, []string{event.TypeLoanApplied}, eventTypes(loan))

	for _, r := range loan.Schedule() {
		assert.NotEmpty(t, r.ID)
		assert.Equal(t, loan.ID(), r.LoanID)
		assert.True(t, r.Status.Equal(valueobject.ScheduleStatusPending))
	}
}

func TestNewLoan_Validation(t *testing.T) {
	_, err := model.NewLoan(model.NewLoanParams{
		TenantID:   "tenant-1",
		LoanNumber: "LN-1",
		MemberID:   "member-1",
		ProductID:  "prod-1",
		Principal:  100,
		TermMonths: 1,
		ServiceFee: 100,
		Schedule:   model.Schedule{Rows: []model.ScheduleRow{{Sequence: 1}}},
		AppliedBy:  officer,
	})
	require.ErrorIs(t, err, valueobject.ErrValidation)

	_, err = model.NewLoan(model.NewLoanParams{TenantID: "tenant-1"})
	require.ErrorIs(t, err, valueobject.ErrValidation)
}

func TestLoan_StateGuards(t *testing.T) {
	pending := newPendingLoan(t, threeRowSchedule())

	_, err := pending.Disburse(officer, day0, nil)
	assert.ErrorIs(t, err, valueobject.ErrIllegalTransition, "disburse requires approval")

	_, err = pending.Reject(officer, day0, "")
	assert.ErrorIs(t, err, valueobject.ErrValidation, "reject requires a reason")

	rejected, err := pending.Reject(officer, day0, "insufficient share capital")
	require.NoError(t, err)
	assert.True(t, rejected.Status().Equal(valueobject.LoanStatusRejected))
	_, err = rejected.Approve(officer, day0, "")
	var te *valueobject.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, err.Error(), "rejected")

	approved, err := pending.Approve(officer, day0, "")
	require.NoError(t, err)
	_, err = approved.Approve(officer, day0, "")
	assert.ErrorIs(t, err, valueobject.ErrIllegalTransition)

	plan := service.PlanAllocation(100, nil, approved.Schedule())
	_, _, _, err = approved.ApplyPayment(plan, nil, model.PaymentDraft{Amount: 100, PaidAt: day0})
	assert.ErrorIs(t, err, valueobject.ErrIllegalTransition, "payments need an active loan")

	_, err = approved.AssessPenalties(nil, day0)
	assert.ErrorIs(t, err, valueobject.ErrIllegalTransition)
}

func TestLoan_DisburseReanchorsDates(t *testing.T) {
	loan := newPendingLoan(t, threeRowSchedule())
	loan, err := loan.Approve(officer, day0, "")
	require.NoError(t, err)

	dates := []time.Time{
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	_, err = loan.Disburse(officer, day0, dates[:2])
	require.ErrorIs(t, err, valueobject.ErrValidation)

	active, err := loan.Disburse(officer, day0, dates)
	require.NoError(t, err)
	assert.True(t, active.Status().Equal(valueobject.LoanStatusActive))
	assert.Equal(t, dates[2], *active.MaturityDate())
	assert.Equal(t, money.Amount(1030), active.Schedule()[0].TotalDue, "amounts never change")
	assert.Equal(t, dates[0], active.Schedule()[0].DueDate)
	assert.Equal(t,
		[]string{event.TypeLoanApplied, event.TypeLoanApproved, event.TypeLoanDisbursed},
		eventTypes(active))
}

func TestLoan_ApplyPayment_ExactInstallment(t *testing.T) {
	loan := newActiveLoan(t, threeRowSchedule())

	next, payment, _ := pay(t, loan, nil, 1030)

	rows := next.Schedule()
	assert.True(t, rows[0].Status.Equal(valueobject.ScheduleStatusPaid))
	assert.NotNil(t, rows[0].PaidDate)
	assert.True(t, rows[1].Status.Equal(valueobject.ScheduleStatusPending))
	assert.Equal(t, money.Amount(2030), next.OutstandingBalance())
	assert.Equal(t, money.Amount(3060), payment.BalanceBefore)
	assert.Equal(t, money.Amount(2030), payment.BalanceAfter)
	assert.Equal(t, money.Amount(30), payment.Interest)
	assert.Equal(t, money.Amount(1000), payment.Principal)
	assert.False(t, payment.ClosedLoan)
	assert.Equal(t, []string{event.TypePaymentRecorded}, eventTypes(next))

	// the original value is untouched
	assert.Equal(t, money.Amount(3060), loan.OutstandingBalance())
	assert.True(t, loan.Schedule()[0].Status.Equal(valueobject.ScheduleStatusPending))
}

func TestLoan_ApplyPayment_PartialPreservesOverdue(t *testing.T) {
	loan := newActiveLoan(t, threeRowSchedule())
	pen := model.Penalty{ID: "pen-1", LoanID: loan.ID(), ScheduleRowID: loan.Schedule()[0].ID, GrossAmount: 21, NetAmount: 21, AppliedDate: day0}
	loan, err := loan.AssessPenalties([]model.Penalty{pen}, day0)
	require.NoError(t, err)
	assert.True(t, loan.Schedule()[0].Status.Equal(valueobject.ScheduleStatusOverdue))
	assert.Equal(t, money.Amount(21), loan.PenaltiesOutstanding())

	next, payment, touched := pay(t, loan, []model.Penalty{pen}, 100)

	assert.Equal(t, money.Amount(21), payment.Penalty)
	assert.Equal(t, money.Amount(30), payment.Interest)
	assert.Equal(t, money.Amount(49), payment.Principal)
	require.Len(t, touched, 1)
	assert.True(t, touched[0].Paid)
	assert.Equal(t, money.Zero, next.PenaltiesOutstanding())
	row := next.Schedule()[0]
	assert.True(t, row.Status.Equal(valueobject.ScheduleStatusOverdue))
	assert.Equal(t, money.Amount(21), row.PenaltyPaid)
	assert.Equal(t, money.Amount(79), row.TotalPaid)
}

func TestLoan_ApplyPayment_Overpayment(t *testing.T) {
	loan := newActiveLoan(t, threeRowSchedule())
	plan := service.PlanAllocation(5000, nil, loan.Schedule())

	_, _, _, err := loan.ApplyPayment(plan, nil, model.PaymentDraft{Amount: 5000, PaidAt: day0})
	require.ErrorIs(t, err, valueobject.ErrValidation)
}

func TestLoan_SinglePeriodLoanClosesAfterOnePayment(t *testing.T) {
	sched, err := service.ComputeSchedule(100_000, decimal.RequireFromString("0.02"), 1,
		time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC), valueobject.IntervalMonthly)
	require.NoError(t, err)
	loan := newActiveLoan(t, sched)

	closed, payment, _ := pay(t, loan, nil, 102_000)

	assert.True(t, closed.Status().Equal(valueobject.LoanStatusClosed))
	assert.NotNil(t, closed.ClosedDate())
	assert.True(t, payment.ClosedLoan)
	assert.Equal(t, money.Zero, closed.OutstandingBalance())
	assert.Equal(t, []string{event.TypePaymentRecorded, event.TypeLoanClosed}, eventTypes(closed))
}

func TestLoan_ReversePayment_RestoresAndReopens(t *testing.T) {
	sched, err := service.ComputeSchedule(100_000, decimal.RequireFromString("0.02"), 1,
		time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC), valueobject.IntervalMonthly)
	require.NoError(t, err)
	loan := newActiveLoan(t, sched)
	closed, payment, _ := pay(t, loan, nil, 102_000)
	closed = closed.ClearEvents()

	reopened, reversed, _, err := closed.ReversePayment(payment, nil, officer, "bounced check", day0.AddDate(0, 1, 2))
	require.NoError(t, err)

	assert.True(t, reopened.Status().Equal(valueobject.LoanStatusActive))
	assert.Nil(t, reopened.ClosedDate())
	assert.Equal(t, money.Amount(102_000), reopened.OutstandingBalance())
	assert.Equal(t, money.Zero, reopened.PrincipalPaid()+reopened.InterestPaid())
	assert.True(t, reopened.Schedule()[0].Status.Equal(valueobject.ScheduleStatusPending))
	assert.True(t, reversed.Reversed)
	assert.Equal(t, "bounced check", reversed.ReversalReason)
	assert.Equal(t, []string{event.TypePaymentReversed, event.TypeLoanReopened}, eventTypes(reopened))

	_, _, _, err = reopened.ReversePayment(reversed, nil, officer, "", day0)
	require.ErrorIs(t, err, valueobject.ErrIllegalTransition, "a payment reverses once")
}

func TestLoan_ReversePayment_RestoresPriorStatuses(t *testing.T) {
	loan := newActiveLoan(t, threeRowSchedule())
	afterFirst, _, _ := pay(t, loan, nil, 500)
	afterSecond, second, _ := pay(t, afterFirst, nil, 1000)

	rows := afterSecond.Schedule()
	require.True(t, rows[0].Status.Equal(valueobject.ScheduleStatusPaid))
	require.True(t, rows[1].Status.Equal(valueobject.ScheduleStatusPartial))

	restored, _, _, err := afterSecond.ReversePayment(second, nil, officer, "", day0)
	require.NoError(t, err)

	assert.Equal(t, afterFirst.OutstandingBalance(), restored.OutstandingBalance())
	for i, r := range restored.Schedule() {
		want := afterFirst.Schedule()[i]
		assert.Equal(t, want.TotalPaid, r.TotalPaid, "row %d", r.Sequence)
		assert.True(t, want.Status.Equal(r.Status), "row %d: want %s got %s", r.Sequence, want.Status, r.Status)
	}
}

func TestLoan_ReversePayment_RestoresPenalty(t *testing.T) {
	loan := newActiveLoan(t, threeRowSchedule())
	pen := model.Penalty{ID: "pen-1", LoanID: loan.ID(), ScheduleRowID: loan.Schedule()[0].ID, GrossAmount: 21, NetAmount: 21, AppliedDate: day0}
	loan, err := loan.AssessPenalties([]model.Penalty{pen}, day0)
	require.NoError(t, err)
	paid, payment, touched := pay(t, loan, []model.Penalty{pen}, 51)

	restored, _, penalties, err := paid.ReversePayment(payment, touched, officer, "", day0)
	require.NoError(t, err)

	require.Len(t, penalties, 1)
	assert.False(t, penalties[0].Paid)
	assert.Equal(t, money.Zero, penalties[0].PaidAmount)
	assert.Equal(t, money.Amount(21), restored.PenaltiesOutstanding())
	row := restored.Schedule()[0]
	assert.True(t, row.Status.Equal(valueobject.ScheduleStatusOverdue), "overdue before the payment stays overdue")
	assert.Equal(t, money.Zero, row.PenaltyPaid)
}

func TestLoan_ReversePayment_IntegrityViolation(t *testing.T) {
	loan := newActiveLoan(t, threeRowSchedule())
	paid, payment, _ := pay(t, loan, nil, 1030)

	tampered := payment
	tampered.Allocations = []model.AllocationLine{{
		Target: model.TargetScheduleRow, TargetID: paid.Schedule()[1].ID, Interest: 20, Principal: 1000,
	}}
	_, _, _, err := paid.ReversePayment(tampered, nil, officer, "", day0)
	require.ErrorIs(t, err, valueobject.ErrIntegrityViolation)

	missing := payment
	missing.Allocations = []model.AllocationLine{{Target: model.TargetPenalty, TargetID: "ghost", Penalty: 5}}
	_, _, _, err = paid.ReversePayment(missing, nil, officer, "", day0)
	require.ErrorIs(t, err, valueobject.ErrIntegrityViolation)
}

func TestLoan_WaivePenalty(t *testing.T) {
	loan := newActiveLoan(t, threeRowSchedule())
	pen := model.Penalty{ID: "pen-1", LoanID: loan.ID(), ScheduleRowID: loan.Schedule()[0].ID, GrossAmount: 40, NetAmount: 40, AppliedDate: day0}
	loan, err := loan.AssessPenalties([]model.Penalty{pen}, day0)
	require.NoError(t, err)

	next, waived, err := loan.WaivePenalty(pen, 15, "goodwill", officer, day0)
	require.NoError(t, err)
	assert.Equal(t, money.Amount(15), waived.WaivedAmount)
	assert.Equal(t, money.Amount(25), waived.NetAmount)
	assert.Equal(t, money.Amount(40), waived.GrossAmount)
	assert.Equal(t, money.Amount(25), next.PenaltiesOutstanding())

	_, _, err = next.WaivePenalty(waived, 26, "too much", officer, day0)
	assert.ErrorIs(t, err, valueobject.ErrIllegalTransition)

	_, _, err = next.WaivePenalty(waived, 5, "", officer, day0)
	assert.ErrorIs(t, err, valueobject.ErrValidation)

	settled := waived
	settled.Paid = true
	_, _, err = next.WaivePenalty(settled, 5, "late", officer, day0)
	assert.ErrorIs(t, err, valueobject.ErrIllegalTransition)

	other := waived
	other.LoanID = "another-loan"
	_, _, err = next.WaivePenalty(other, 5, "x", officer, day0)
	assert.ErrorIs(t, err, valueobject.ErrValidation)
}

func TestPenalty_WaiveRemainderSettles(t *testing.T) {
	pen := model.Penalty{ID: "pen-1", GrossAmount: 40, NetAmount: 40, PaidAmount: 10, AppliedDate: day0}

	waived, err := pen.Waive(30, "hardship", officer, day0)
	require.NoError(t, err)
	assert.True(t, waived.Paid)
	require.NotNil(t, waived.PaidDate)
	assert.Equal(t, money.Zero, waived.Outstanding())

	unpaid := model.Penalty{ID: "pen-2", GrossAmount: 40, NetAmount: 40, AppliedDate: day0}
	partly, err := unpaid.Waive(30, "hardship", officer, day0)
	require.NoError(t, err)
	assert.False(t, partly.Paid)
	assert.Nil(t, partly.PaidDate)
}

func TestLoan_SnapshotRoundTrip(t *testing.T) {
	loan := newActiveLoan(t, threeRowSchedule())

	restored := model.ReconstructLoan(loan.Snapshot())

	assert.Equal(t, loan.Snapshot(), restored.Snapshot())
	assert.Empty(t, restored.DomainEvents())
}
