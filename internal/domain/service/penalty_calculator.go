package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jehnsen/coop-lending/internal/domain/model"
	"github.com/jehnsen/coop-lending/internal/domain/valueobject"
	"github.com/jehnsen/coop-lending/pkg/money"
)

const hoursPerDay = 24

// PenaltyTier classifies an overdue row and returns the rate that applies.
// Rows overdue fewer than threshold days are late payments; the rest are
// non-payments.
func PenaltyTier(daysOverdue int, product model.LoanProduct) (valueobject.PenaltyType, decimal.Decimal) {
	if daysOverdue < product.Threshold() {
		return valueobject.PenaltyTypeLatePayment, product.LatePenaltyRate
	}
	return valueobject.PenaltyTypeNonPayment, product.NonPaymentPenaltyRate
}

// DaysOverdue counts whole calendar days from due to asOf.
func DaysOverdue(due, asOf time.Time) int {
	d := truncateDay(asOf).Sub(truncateDay(due))
	return int(d.Hours() / hoursPerDay)
}

// ComputePenalties returns the penalties owed on loan as of asOf. A row is
// penalised when its due date is before asOf, it is not paid, and no penalty
// exists yet for (row, asOf): alreadyAssessed holds the row IDs that have one.
// The gross amount is round_half_up(row outstanding × tier rate); rows whose
// gross rounds to zero produce no penalty.
func ComputePenalties(
	loan model.Loan,
	product model.LoanProduct,
	asOf time.Time,
	alreadyAssessed map[string]bool,
) []model.Penalty {
	day := truncateDay(asOf)
	var out []model.Penalty

	for _, row := range loan.Schedule() {
		if row.IsPaid() || !truncateDay(row.DueDate).Before(day) || alreadyAssessed[row.ID] {
			continue
		}

		days := DaysOverdue(row.DueDate, day)
		penaltyType, rate := PenaltyTier(days, product)
		base := row.Outstanding()
		gross := base.MulRate(rate)
		if !gross.IsPositive() {
			continue
		}

		out = append(out, model.Penalty{
			ID:            uuid.New().String(),
			TenantID:      loan.TenantID(),
			LoanID:        loan.ID(),
			ScheduleRowID: row.ID,
			Type:          penaltyType,
			Rate:          rate,
			DaysOverdue:   days,
			BaseAmount:    base,
			GrossAmount:   gross,
			NetAmount:     gross,
			AppliedDate:   day,
			CreatedAt:     time.Now().UTC(),
		})
	}
	return out
}

// PenaltyTotal adds the gross amounts.
func PenaltyTotal(ps []model.Penalty) money.Amount {
	var total money.Amount
	for _, p := range ps {
		total += p.GrossAmount
	}
	return total
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
