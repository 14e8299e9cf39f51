package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jehnsen/coop-lending/internal/application/dto"
	"github.com/jehnsen/coop-lending/internal/domain/event"
	"github.com/jehnsen/coop-lending/internal/domain/valueobject"
	"github.com/jehnsen/coop-lending/pkg/money"
)

func TestRecordPayment_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("exact installment pays only the first row", func(t *testing.T) {
		f := newFixture()
		loan := f.activeLoan(t, 1_000_000, 12)

		resp := f.recordPayment(t, loan.ID, 91_680, date(2026, 2, 1))

		assert.Equal(t, "LP-2026-000001", resp.PaymentNumber)
		assert.Equal(t, money.Amount(15_000), resp.Interest)
		assert.Equal(t, money.Amount(76_680), resp.Principal)
		assert.Equal(t, money.Amount(1_100_161), resp.BalanceBefore)
		assert.Equal(t, money.Amount(1_008_481), resp.BalanceAfter)
		assert.Equal(t, "active", resp.LoanStatus)
		require.Len(t, resp.Allocations, 1)

		after := f.loan(t, loan.ID)
		assert.Equal(t, "paid", after.Schedule[0].Status)
		for _, r := range after.Schedule[1:] {
			assert.Equal(t, "pending", r.Status)
		}
		assert.Equal(t, money.Amount(1_008_481), after.OutstandingBalance)
		assert.Contains(t, outboxTypes(f.store), event.TypePaymentRecorded)
	})

	t.Run("partial payment marks the row partial", func(t *testing.T) {
		f := newFixture()
		loan := f.activeLoan(t, 1_000_000, 12)

		f.recordPayment(t, loan.ID, 20_000, date(2026, 2, 1))

		after := f.loan(t, loan.ID)
		assert.Equal(t, "partial", after.Schedule[0].Status)
		assert.Equal(t, money.Amount(15_000), after.Schedule[0].InterestPaid)
		assert.Equal(t, money.Amount(5_000), after.Schedule[0].PrincipalPaid)
		assert.Equal(t, money.Amount(15_000), after.InterestPaid)
	})

	t.Run("one-period loan closes after one payment", func(t *testing.T) {
		f := newFixture()
		loan := f.activeLoan(t, 100_000, 1)
		require.Equal(t, money.Amount(101_500), loan.TotalPayable)

		resp := f.recordPayment(t, loan.ID, 101_500, date(2026, 2, 1))

		assert.True(t, resp.ClosedLoan)
		assert.Equal(t, "closed", resp.LoanStatus)
		after := f.loan(t, loan.ID)
		assert.Equal(t, money.Zero, after.OutstandingBalance)
		assert.NotNil(t, after.ClosedDate)
		assert.Contains(t, outboxTypes(f.store), event.TypeLoanClosed)

		_, err := f.pay.Execute(ctx, dto.RecordPaymentRequest{
			TenantID: tenantID, LoanID: loan.ID, Amount: 1, Actor: cashier,
		})
		assert.ErrorIs(t, err, valueobject.ErrIllegalTransition)
	})

	t.Run("overpayment is rejected and nothing is written", func(t *testing.T) {
		f := newFixture()
		loan := f.activeLoan(t, 1_000_000, 12)
		before := len(f.store.Outbox())

		_, err := f.pay.Execute(ctx, dto.RecordPaymentRequest{
			TenantID: tenantID, LoanID: loan.ID, Amount: 1_100_162, Actor: cashier,
		})

		require.ErrorIs(t, err, valueobject.ErrValidation)
		assert.Len(t, f.store.Outbox(), before)
		payments, err := f.store.ListPayments(ctx, tenantID, loan.ID)
		require.NoError(t, err)
		assert.Empty(t, payments)

		resp := f.recordPayment(t, loan.ID, 1_000, date(2026, 2, 1))
		assert.Equal(t, "LP-2026-000001", resp.PaymentNumber, "rolled back numbers are reused")
	})

	t.Run("rejects bad input", func(t *testing.T) {
		f := newFixture()
		loan := f.activeLoan(t, 1_000_000, 12)

		_, err := f.pay.Execute(ctx, dto.RecordPaymentRequest{TenantID: tenantID, LoanID: loan.ID, Amount: 0, Actor: cashier})
		assert.ErrorIs(t, err, valueobject.ErrValidation)

		_, err = f.pay.Execute(ctx, dto.RecordPaymentRequest{TenantID: tenantID, LoanID: loan.ID, Amount: 10, Method: "barter", Actor: cashier})
		assert.ErrorIs(t, err, valueobject.ErrValidation)

		_, err = f.pay.Execute(ctx, dto.RecordPaymentRequest{TenantID: tenantID, LoanID: loan.ID, Amount: 10})
		assert.ErrorIs(t, err, valueobject.ErrValidation)
	})

	t.Run("pending loan cannot take payments", func(t *testing.T) {
		f := newFixture()
		loan, err := f.apply.Execute(ctx, applyRequest(1_000_000, 12))
		require.NoError(t, err)

		_, err = f.pay.Execute(ctx, dto.RecordPaymentRequest{TenantID: tenantID, LoanID: loan.ID, Amount: 10, Actor: cashier})

		assert.ErrorIs(t, err, valueobject.ErrIllegalTransition)
	})
}

func TestReversePayment_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("restores the balance and reopens a closed loan", func(t *testing.T) {
		f := newFixture()
		loan := f.activeLoan(t, 100_000, 1)
		payment := f.recordPayment(t, loan.ID, 101_500, date(2026, 2, 1))

		resp, err := f.reverse.Execute(ctx, dto.ReversePaymentRequest{
			TenantID: tenantID, PaymentID: payment.ID, Actor: officer, Reason: "check bounced",
		})

		require.NoError(t, err)
		assert.True(t, resp.Reversed)
		assert.Equal(t, "active", resp.LoanStatus)

		after := f.loan(t, loan.ID)
		assert.Equal(t, "active", after.Status)
		assert.Nil(t, after.ClosedDate)
		assert.Equal(t, money.Amount(101_500), after.OutstandingBalance)
		assert.Equal(t, "pending", after.Schedule[0].Status)
		assert.Contains(t, outboxTypes(f.store), event.TypeLoanReopened)

		_, err = f.reverse.Execute(ctx, dto.ReversePaymentRequest{TenantID: tenantID, PaymentID: payment.ID, Actor: officer})
		assert.ErrorIs(t, err, valueobject.ErrIllegalTransition, "a payment reverses once")
	})

	t.Run("restores row statuses after several partial payments", func(t *testing.T) {
		f := newFixture()
		loan := f.activeLoan(t, 1_000_000, 12)
		f.recordPayment(t, loan.ID, 50_000, date(2026, 2, 1))
		afterFirst := f.loan(t, loan.ID)
		second := f.recordPayment(t, loan.ID, 80_000, date(2026, 2, 20))

		_, err := f.reverse.Execute(ctx, dto.ReversePaymentRequest{TenantID: tenantID, PaymentID: second.ID, Actor: officer})
		require.NoError(t, err)

		restored := f.loan(t, loan.ID)
		assert.Equal(t, afterFirst.OutstandingBalance, restored.OutstandingBalance)
		assert.Equal(t, afterFirst.PrincipalPaid, restored.PrincipalPaid)
		for i := range restored.Schedule {
			assert.Equal(t, afterFirst.Schedule[i].Status, restored.Schedule[i].Status, "row %d", i+1)
			assert.Equal(t, afterFirst.Schedule[i].TotalPaid, restored.Schedule[i].TotalPaid, "row %d", i+1)
		}

		payments, err := f.store.ListPayments(ctx, tenantID, loan.ID)
		require.NoError(t, err)
		require.Len(t, payments, 2)
		assert.False(t, payments[0].Reversed)
		assert.True(t, payments[1].Reversed)
	})

	t.Run("unknown payment is not found", func(t *testing.T) {
		f := newFixture()

		_, err := f.reverse.Execute(ctx, dto.ReversePaymentRequest{TenantID: tenantID, PaymentID: "missing", Actor: officer})

		assert.ErrorIs(t, err, valueobject.ErrNotFound)
	})
}
