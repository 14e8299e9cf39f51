package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jehnsen/coop-lending/internal/domain/model"
	"github.com/jehnsen/coop-lending/internal/domain/valueobject"
	"github.com/jehnsen/coop-lending/pkg/money"
)

// factorPrecision is the number of decimal places kept while raising
// (1+r) to the period count.
const factorPrecision = 28

const (
	weeklyStepDays      = 7
	semiMonthlyStepDays = 15
)

// ComputeSchedule builds a diminishing-balance schedule.
//
// The installment is
//
//	A = P·r / (1 − (1+r)^−n)
//
// rounded half-up to a whole minor unit. Each row charges
// round(balance·r) interest and A minus that as principal; the final row
// takes the remaining balance so it ends at exactly zero. The periodic rate
// applies unchanged to every interval.
func ComputeSchedule(
	principal money.Amount,
	rate decimal.Decimal,
	termMonths int,
	firstDueDate time.Time,
	interval valueobject.PaymentInterval,
) (model.Schedule, error) {
	if termMonths <= 0 {
		return model.Schedule{}, valueobject.NewValidationError("term_months", "term must be positive, got %d", termMonths)
	}
	if interval.PeriodsPerMonth() == 0 {
		return model.Schedule{}, valueobject.NewValidationError("interval", "unknown payment interval %q", interval.String())
	}
	if firstDueDate.IsZero() {
		return model.Schedule{}, valueobject.NewValidationError("first_due_date", "first due date is required")
	}

	periods := termMonths * interval.PeriodsPerMonth()
	installment, err := ComputeInstallment(principal, rate, periods)
	if err != nil {
		return model.Schedule{}, err
	}

	dates, err := GetDueDates(firstDueDate, periods, interval)
	if err != nil {
		return model.Schedule{}, err
	}

	rows := make([]model.ScheduleRow, 0, periods)
	balance := principal
	var totalInterest money.Amount

	for seq := 1; seq <= periods; seq++ {
		interest := balance.MulRate(rate)
		principalDue := installment - interest

		if seq == periods {
			principalDue = balance
		} else if !principalDue.IsPositive() || principalDue >= balance {
			return model.Schedule{}, valueobject.NewValidationError("principal",
				"principal %s cannot amortize over %d periods at rate %s", principal, periods, rate)
		}

		rows = append(rows, model.ScheduleRow{
			Sequence:         seq,
			DueDate:          dates[seq-1],
			BeginningBalance: balance,
			PrincipalDue:     principalDue,
			InterestDue:      interest,
			TotalDue:         principalDue + interest,
			EndingBalance:    balance - principalDue,
			Status:           valueobject.ScheduleStatusPending,
		})

		totalInterest += interest
		balance -= principalDue
	}

	return model.Schedule{
		Rows:          rows,
		TotalInterest: totalInterest,
		TotalPayable:  principal + totalInterest,
		Installment:   installment,
	}, nil
}

// ValidateSchedule reports whether the rows amortize exactly principal,
// within one minor unit.
func ValidateSchedule(rows []model.ScheduleRow, principal money.Amount) bool {
	diff := model.Schedule{Rows: rows}.PrincipalSum() - principal
	return diff >= -1 && diff <= 1
}

// ComputeInstallment returns the level installment for principal repaid over
// periods at periodic rate.
func ComputeInstallment(principal money.Amount, rate decimal.Decimal, periods int) (money.Amount, error) {
	if !principal.IsPositive() {
		return 0, valueobject.NewValidationError("principal", "principal must be positive, got %s", principal)
	}
	if !rate.IsPositive() {
		return 0, valueobject.NewValidationError("interest_rate", "rate must be positive, got %s", rate)
	}
	if periods <= 0 {
		return 0, valueobject.NewValidationError("periods", "period count must be positive, got %d", periods)
	}

	// (1+r)^n, then A = P·r·f / (f − 1), which equals P·r / (1 − f^−1).
	base := decimal.NewFromInt(1).Add(rate)
	factor := decimal.NewFromInt(1)
	for i := 0; i < periods; i++ {
		factor = factor.Mul(base).Round(factorPrecision)
	}

	numerator := principal.Decimal().Mul(rate).Mul(factor)
	denominator := factor.Sub(decimal.NewFromInt(1))
	installment := money.Round(numerator.DivRound(denominator, factorPrecision))

	if !installment.IsPositive() {
		return 0, valueobject.NewValidationError("principal", "principal %s too small for %d periods", principal, periods)
	}
	return installment, nil
}

// GetDueDates returns periodCount due dates starting at firstDate. Monthly
// dates keep the first date's day of month, clamped to the last day of
// shorter months; weekly and semi-monthly dates step by 7 and 15 days.
func GetDueDates(firstDate time.Time, periodCount int, interval valueobject.PaymentInterval) ([]time.Time, error) {
	if periodCount <= 0 {
		return nil, valueobject.NewValidationError("periods", "period count must be positive, got %d", periodCount)
	}

	dates := make([]time.Time, periodCount)
	for i := range dates {
		switch {
		case interval.Equal(valueobject.IntervalMonthly):
			dates[i] = addMonthsClamped(firstDate, i)
		case interval.Equal(valueobject.IntervalWeekly):
			dates[i] = firstDate.AddDate(0, 0, weeklyStepDays*i)
		case interval.Equal(valueobject.IntervalSemiMonthly):
			dates[i] = firstDate.AddDate(0, 0, semiMonthlyStepDays*i)
		default:
			return nil, valueobject.NewValidationError("interval", "unknown payment interval %q", interval.String())
		}
	}
	return dates, nil
}

// addMonthsClamped moves t by months calendar months without overflowing
// into the following month (Jan 31 + 1 month = Feb 28/29).
func addMonthsClamped(t time.Time, months int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month()+time.Month(months), 1,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return firstOfTarget.AddDate(0, 0, day-1)
}
