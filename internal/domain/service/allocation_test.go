package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jehnsen/coop-lending/internal/domain/model"
	"github.com/jehnsen/coop-lending/internal/domain/service"
	"github.com/jehnsen/coop-lending/internal/domain/valueobject"
	"github.com/jehnsen/coop-lending/pkg/money"
)

func row(id string, seq int, principal, interest money.Amount) model.ScheduleRow {
	return model.ScheduleRow{
		ID:           id,
		Sequence:     seq,
		PrincipalDue: principal,
		InterestDue:  interest,
		TotalDue:     principal + interest,
		Status:       valueobject.ScheduleStatusPending,
	}
}

func penalty(id string, applied time.Time, net money.Amount) model.Penalty {
	return model.Penalty{ID: id, AppliedDate: applied, GrossAmount: net, NetAmount: net}
}

func TestPlanAllocation_PenaltiesFirstOldestDate(t *testing.T) {
	rows := []model.ScheduleRow{row("r1", 1, 800, 200)}
	penalties := []model.Penalty{
		penalty("newer", date(2026, 3, 5), 30),
		penalty("older", date(2026, 3, 2), 50),
	}

	plan := service.PlanAllocation(70, penalties, rows)

	require.Len(t, plan.Lines, 2)
	assert.Equal(t, "older", plan.Lines[0].TargetID)
	assert.Equal(t, money.Amount(50), plan.Lines[0].Penalty)
	assert.True(t, plan.Lines[0].Settled)
	assert.Equal(t, "newer", plan.Lines[1].TargetID)
	assert.Equal(t, money.Amount(20), plan.Lines[1].Penalty)
	assert.False(t, plan.Lines[1].Settled)
	assert.Equal(t, money.Amount(70), plan.Penalty)
	assert.Equal(t, money.Zero, plan.Interest+plan.Principal)
}

func TestPlanAllocation_InterestBeforePrincipal(t *testing.T) {
	rows := []model.ScheduleRow{row("r1", 1, 800, 200)}

	plan := service.PlanAllocation(250, nil, rows)

	require.Len(t, plan.Lines, 1)
	line := plan.Lines[0]
	assert.Equal(t, model.TargetScheduleRow, line.Target)
	assert.Equal(t, money.Amount(200), line.Interest)
	assert.Equal(t, money.Amount(50), line.Principal)
	assert.False(t, line.Settled)
	assert.Equal(t, "pending", line.PriorStatus)
}

func TestPlanAllocation_SpillsAcrossRows(t *testing.T) {
	paidRow := row("r0", 1, 800, 200)
	paidRow.PrincipalPaid, paidRow.InterestPaid, paidRow.TotalPaid = 800, 200, 1000
	paidRow.Status = valueobject.ScheduleStatusPaid

	partial := row("r1", 2, 800, 150)
	partial.InterestPaid, partial.TotalPaid = 150, 150
	partial.Status = valueobject.ScheduleStatusPartial

	rows := []model.ScheduleRow{row("r2", 3, 850, 100), partial, paidRow}

	plan := service.PlanAllocation(1000, []model.Penalty{penalty("p1", date(2026, 4, 1), 40)}, rows)

	require.Len(t, plan.Lines, 3)
	assert.Equal(t, "p1", plan.Lines[0].TargetID)

	assert.Equal(t, "r1", plan.Lines[1].TargetID, "rows are taken by sequence, paid rows skipped")
	assert.Equal(t, money.Zero, plan.Lines[1].Interest)
	assert.Equal(t, money.Amount(800), plan.Lines[1].Principal)
	assert.True(t, plan.Lines[1].Settled)
	assert.Equal(t, "partial", plan.Lines[1].PriorStatus)

	assert.Equal(t, "r2", plan.Lines[2].TargetID)
	assert.Equal(t, money.Amount(100), plan.Lines[2].Interest)
	assert.Equal(t, money.Amount(60), plan.Lines[2].Principal)

	assert.Equal(t, money.Amount(40), plan.Penalty)
	assert.Equal(t, money.Amount(100), plan.Interest)
	assert.Equal(t, money.Amount(860), plan.Principal)
	assert.Equal(t, money.Amount(1000), plan.Allocated())
	assert.Equal(t, money.Zero, plan.Unallocated)
}

func TestPlanAllocation_ExactRowCoverage(t *testing.T) {
	rows := []model.ScheduleRow{row("r1", 1, 800, 200), row("r2", 2, 900, 100)}

	plan := service.PlanAllocation(1000, nil, rows)

	require.Len(t, plan.Lines, 1, "exact installment touches only the first row")
	assert.True(t, plan.Lines[0].Settled)
	assert.Equal(t, money.Amount(1000), plan.Lines[0].Amount())
}

func TestPlanAllocation_ReportsUnallocated(t *testing.T) {
	rows := []model.ScheduleRow{row("r1", 1, 800, 200)}

	plan := service.PlanAllocation(1500, nil, rows)

	assert.Equal(t, money.Amount(1000), plan.Allocated())
	assert.Equal(t, money.Amount(500), plan.Unallocated)
}

func TestPlanAllocation_SkipsSettledPenalties(t *testing.T) {
	paid := penalty("paid", date(2026, 3, 1), 50)
	paid.PaidAmount, paid.Paid = 50, true
	waived := penalty("waived", date(2026, 3, 2), 0)
	partly := penalty("partly", date(2026, 3, 3), 60)
	partly.PaidAmount = 45

	plan := service.PlanAllocation(20, []model.Penalty{paid, waived, partly}, nil)

	require.Len(t, plan.Lines, 1)
	assert.Equal(t, "partly", plan.Lines[0].TargetID)
	assert.Equal(t, money.Amount(15), plan.Lines[0].Penalty)
	assert.Equal(t, "partial", plan.Lines[0].PriorStatus)
	assert.Equal(t, money.Amount(5), plan.Unallocated)
}
