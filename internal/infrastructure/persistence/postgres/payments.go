package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jehnsen/coop-lending/internal/domain/model"
	"github.com/jehnsen/coop-lending/internal/domain/valueobject"
	"github.com/jehnsen/coop-lending/pkg/money"
	pgpkg "github.com/jehnsen/coop-lending/pkg/postgres"
)

const paymentColumns = `
	id, tenant_id, loan_id, payment_number, amount, principal, interest,
	penalty, balance_before, balance_after, method, reference, payment_date,
	received_by_id, received_by_name, closed_loan, reversed, reversed_at,
	reversed_by_id, reversed_by_name, reversal_reason, allocations, created_at`

const penaltyColumns = `
	id, tenant_id, loan_id, schedule_row_id, penalty_type, rate, days_overdue,
	base_amount, gross_amount, waived_amount, net_amount, paid_amount,
	applied_date, paid, paid_date, waiver_reason, waived_by_id, waived_by_name,
	waived_at, created_at`

// allocationRecord is the JSONB form of one allocation line.
type allocationRecord struct {
	Target      string `json:"target"`
	TargetID    string `json:"target_id"`
	Sequence    int    `json:"sequence,omitempty"`
	Penalty     int64  `json:"penalty"`
	Interest    int64  `json:"interest"`
	Principal   int64  `json:"principal"`
	PriorStatus string `json:"prior_status,omitempty"`
	Settled     bool   `json:"settled,omitempty"`
}

func encodeAllocations(lines []model.AllocationLine) ([]byte, error) {
	records := make([]allocationRecord, len(lines))
	for i, l := range lines {
		records[i] = allocationRecord{
			Target:      string(l.Target),
			TargetID:    l.TargetID,
			Sequence:    l.Sequence,
			Penalty:     int64(l.Penalty),
			Interest:    int64(l.Interest),
			Principal:   int64(l.Principal),
			PriorStatus: l.PriorStatus,
			Settled:     l.Settled,
		}
	}
	return json.Marshal(records)
}

func decodeAllocations(raw []byte) ([]model.AllocationLine, error) {
	var records []allocationRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	lines := make([]model.AllocationLine, len(records))
	for i, r := range records {
		lines[i] = model.AllocationLine{
			Target:      model.AllocationTarget(r.Target),
			TargetID:    r.TargetID,
			Sequence:    r.Sequence,
			Penalty:     money.Amount(r.Penalty),
			Interest:    money.Amount(r.Interest),
			Principal:   money.Amount(r.Principal),
			PriorStatus: r.PriorStatus,
			Settled:     r.Settled,
		}
	}
	return lines, nil
}

// ---------------------------------------------------------------------------
// payments
// ---------------------------------------------------------------------------

func insertPayment(ctx context.Context, tx pgx.Tx, p model.Payment) error {
	allocations, err := encodeAllocations(p.Allocations)
	if err != nil {
		return fmt.Errorf("encode allocations: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO loan_payments (`+paymentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
	`,
		p.ID, p.TenantID, p.LoanID, p.PaymentNumber, int64(p.Amount), int64(p.Principal), int64(p.Interest),
		int64(p.Penalty), int64(p.BalanceBefore), int64(p.BalanceAfter), string(p.Method), p.Reference, p.PaymentDate,
		p.ReceivedBy.ID, p.ReceivedBy.Name, p.ClosedLoan, p.Reversed, p.ReversedAt,
		p.ReversedBy.ID, p.ReversedBy.Name, p.ReversalReason, allocations, p.CreatedAt,
	)
	return writeConflict(err, "insert payment "+p.PaymentNumber)
}

func markPaymentReversed(ctx context.Context, tx pgx.Tx, p model.Payment) error {
	tag, err := tx.Exec(ctx, `
		UPDATE loan_payments SET
			reversed         = TRUE,
			reversed_at      = $3,
			reversed_by_id   = $4,
			reversed_by_name = $5,
			reversal_reason  = $6
		WHERE tenant_id = $1 AND id = $2 AND NOT reversed
	`, p.TenantID, p.ID, p.ReversedAt, p.ReversedBy.ID, p.ReversedBy.Name, p.ReversalReason)
	if err != nil {
		return fmt.Errorf("reverse payment %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment %s already reversed: %w", p.ID, valueobject.ErrConcurrentModification)
	}
	return nil
}

func queryPayments(ctx context.Context, q pgpkg.Querier, query string, args ...any) ([]model.Payment, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanPayment(row scannable) (model.Payment, error) {
	var (
		p           model.Payment
		method      string
		allocations []byte
	)
	err := row.Scan(
		&p.ID, &p.TenantID, &p.LoanID, &p.PaymentNumber, amt(&p.Amount), amt(&p.Principal), amt(&p.Interest),
		amt(&p.Penalty), amt(&p.BalanceBefore), amt(&p.BalanceAfter), &method, &p.Reference, &p.PaymentDate,
		&p.ReceivedBy.ID, &p.ReceivedBy.Name, &p.ClosedLoan, &p.Reversed, &p.ReversedAt,
		&p.ReversedBy.ID, &p.ReversedBy.Name, &p.ReversalReason, &allocations, &p.CreatedAt,
	)
	if err != nil {
		return model.Payment{}, err
	}
	p.Method = valueobject.PaymentMethod(method)
	if p.Allocations, err = decodeAllocations(allocations); err != nil {
		return model.Payment{}, fmt.Errorf("payment %s allocations: %w", p.ID, err)
	}
	return p, nil
}

// ---------------------------------------------------------------------------
// penalties
// ---------------------------------------------------------------------------

func insertPenalties(ctx context.Context, tx pgx.Tx, ps []model.Penalty) error {
	batch := &pgx.Batch{}
	for _, p := range ps {
		batch.Queue(`
			INSERT INTO loan_penalties (`+penaltyColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		`,
			p.ID, p.TenantID, p.LoanID, p.ScheduleRowID, p.Type.String(), p.Rate, p.DaysOverdue,
			int64(p.BaseAmount), int64(p.GrossAmount), int64(p.WaivedAmount), int64(p.NetAmount), int64(p.PaidAmount),
			p.AppliedDate, p.Paid, p.PaidDate, p.WaiverReason, p.WaivedBy.ID, p.WaivedBy.Name,
			p.WaivedAt, p.CreatedAt,
		)
	}
	return writeConflict(tx.SendBatch(ctx, batch).Close(), "insert penalties")
}

func updatePenalties(ctx context.Context, tx pgx.Tx, ps []model.Penalty) error {
	batch := &pgx.Batch{}
	for _, p := range ps {
		id := p.ID
		batch.Queue(`
			UPDATE loan_penalties SET
				waived_amount  = $3,
				net_amount     = $4,
				paid_amount    = $5,
				paid           = $6,
				paid_date      = $7,
				waiver_reason  = $8,
				waived_by_id   = $9,
				waived_by_name = $10,
				waived_at      = $11
			WHERE tenant_id = $1 AND id = $2
		`,
			p.TenantID, p.ID, int64(p.WaivedAmount), int64(p.NetAmount), int64(p.PaidAmount),
			p.Paid, p.PaidDate, p.WaiverReason, p.WaivedBy.ID, p.WaivedBy.Name, p.WaivedAt,
		).Exec(func(tag pgconn.CommandTag) error {
			if tag.RowsAffected() == 0 {
				return valueobject.NotFound("penalty", id)
			}
			return nil
		})
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("update penalties: %w", err)
	}
	return nil
}

func queryPenalties(ctx context.Context, q pgpkg.Querier, query string, args ...any) ([]model.Penalty, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query penalties: %w", err)
	}
	defer rows.Close()

	var penalties []model.Penalty
	for rows.Next() {
		p, err := scanPenalty(rows)
		if err != nil {
			return nil, err
		}
		penalties = append(penalties, p)
	}
	return penalties, rows.Err()
}

func scanPenalty(row scannable) (model.Penalty, error) {
	var (
		p       model.Penalty
		penType string
	)
	err := row.Scan(
		&p.ID, &p.TenantID, &p.LoanID, &p.ScheduleRowID, &penType, &p.Rate, &p.DaysOverdue,
		amt(&p.BaseAmount), amt(&p.GrossAmount), amt(&p.WaivedAmount), amt(&p.NetAmount), amt(&p.PaidAmount),
		&p.AppliedDate, &p.Paid, &p.PaidDate, &p.WaiverReason, &p.WaivedBy.ID, &p.WaivedBy.Name,
		&p.WaivedAt, &p.CreatedAt,
	)
	if err != nil {
		return model.Penalty{}, err
	}
	if p.Type, err = valueobject.NewPenaltyType(penType); err != nil {
		return model.Penalty{}, fmt.Errorf("penalty %s: %w", p.ID, err)
	}
	return p, nil
}
