package service

import (
	"sort"

	"github.com/jehnsen/coop-lending/internal/domain/model"
	"github.com/jehnsen/coop-lending/pkg/money"
)

// PlanAllocation distributes amount over a loan's obligations, strictly FIFO:
// penalties by oldest applied date first (up to their outstanding net), then
// schedule rows by sequence, each row's interest before its principal. It
// has no side effects; the caller applies the plan atomically.
//
// Money left after every obligation is covered is reported in Unallocated.
func PlanAllocation(amount money.Amount, penalties []model.Penalty, rows []model.ScheduleRow) model.AllocationPlan {
	var plan model.AllocationPlan
	remaining := amount

	for _, p := range sortedPenalties(penalties) {
		if !remaining.IsPositive() {
			break
		}
		due := p.Outstanding()
		if p.Paid || !due.IsPositive() {
			continue
		}
		portion := money.Min(remaining, due)
		remaining -= portion
		plan.Penalty += portion
		plan.Lines = append(plan.Lines, model.AllocationLine{
			Target:      model.TargetPenalty,
			TargetID:    p.ID,
			Penalty:     portion,
			PriorStatus: penaltyStatus(p),
			Settled:     portion == due,
		})
	}

	for _, r := range sortedRows(rows) {
		if !remaining.IsPositive() {
			break
		}
		if r.IsPaid() || !r.Outstanding().IsPositive() {
			continue
		}
		interest := money.Min(remaining, r.InterestOutstanding())
		remaining -= interest
		principal := money.Min(remaining, r.PrincipalOutstanding())
		remaining -= principal
		if interest+principal == 0 {
			continue
		}

		plan.Interest += interest
		plan.Principal += principal
		plan.Lines = append(plan.Lines, model.AllocationLine{
			Target:      model.TargetScheduleRow,
			TargetID:    r.ID,
			Sequence:    r.Sequence,
			Interest:    interest,
			Principal:   principal,
			PriorStatus: r.Status.String(),
			Settled:     interest+principal == r.Outstanding(),
		})
	}

	plan.Unallocated = remaining
	return plan
}

func penaltyStatus(p model.Penalty) string {
	if p.PaidAmount.IsPositive() {
		return "partial"
	}
	return "unpaid"
}

func sortedPenalties(ps []model.Penalty) []model.Penalty {
	out := append([]model.Penalty(nil), ps...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].AppliedDate.Equal(out[j].AppliedDate) {
			return out[i].AppliedDate.Before(out[j].AppliedDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func sortedRows(rows []model.ScheduleRow) []model.ScheduleRow {
	out := append([]model.ScheduleRow(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}
