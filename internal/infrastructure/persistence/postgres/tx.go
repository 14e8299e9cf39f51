package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jehnsen/coop-lending/internal/domain/event"
	"github.com/jehnsen/coop-lending/internal/domain/model"
	"github.com/jehnsen/coop-lending/internal/domain/port"
	"github.com/jehnsen/coop-lending/internal/domain/valueobject"
)

var _ port.LoanTx = (*loanTx)(nil)

const (
	sequenceLoan    = "loan"
	sequencePayment = "payment"
)

// loanTx implements port.LoanTx on one pgx transaction.
type loanTx struct {
	tx pgx.Tx
}

func (t *loanTx) GetLoanForUpdate(ctx context.Context, tenantID, loanID string) (model.Loan, error) {
	return getLoan(ctx, t.tx, tenantID, loanID, true)
}

func (t *loanTx) GetPayment(ctx context.Context, tenantID, paymentID string) (model.Payment, error) {
	p, err := scanPayment(t.tx.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM loan_payments
		WHERE tenant_id = $1 AND id = $2
		FOR UPDATE
	`, tenantID, paymentID))
	if err != nil {
		return model.Payment{}, notFound(err, "payment", paymentID)
	}
	return p, nil
}

func (t *loanTx) GetPenalty(ctx context.Context, tenantID, penaltyID string) (model.Penalty, error) {
	p, err := scanPenalty(t.tx.QueryRow(ctx, `
		SELECT `+penaltyColumns+`
		FROM loan_penalties
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, penaltyID))
	if err != nil {
		return model.Penalty{}, notFound(err, "penalty", penaltyID)
	}
	return p, nil
}

// GetPenalties returns the penalties in ids order and fails if any is
// missing.
func (t *loanTx) GetPenalties(ctx context.Context, tenantID string, ids []string) ([]model.Penalty, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	found, err := queryPenalties(ctx, t.tx, `
		SELECT `+penaltyColumns+`
		FROM loan_penalties
		WHERE tenant_id = $1 AND id = ANY($2)
		FOR UPDATE
	`, tenantID, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.Penalty, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]model.Penalty, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, valueobject.NotFound("penalty", id)
		}
		out = append(out, p)
	}
	return out, nil
}

func (t *loanTx) ListUnpaidPenalties(ctx context.Context, tenantID, loanID string) ([]model.Penalty, error) {
	return queryPenalties(ctx, t.tx, `
		SELECT `+penaltyColumns+`
		FROM loan_penalties
		WHERE tenant_id = $1 AND loan_id = $2 AND NOT paid
		ORDER BY applied_date, created_at, id
		FOR UPDATE
	`, tenantID, loanID)
}

func (t *loanTx) PenalizedRowsOn(ctx context.Context, tenantID, loanID string, day time.Time) (map[string]bool, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT schedule_row_id
		FROM loan_penalties
		WHERE tenant_id = $1 AND loan_id = $2 AND applied_date = $3::date
	`, tenantID, loanID, model.DateKey(day))
	if err != nil {
		return nil, fmt.Errorf("query penalized rows: %w", err)
	}
	defer rows.Close()

	penalized := make(map[string]bool)
	for rows.Next() {
		var rowID string
		if err := rows.Scan(&rowID); err != nil {
			return nil, fmt.Errorf("scan penalized row: %w", err)
		}
		penalized[rowID] = true
	}
	return penalized, rows.Err()
}

func (t *loanTx) NextLoanNumber(ctx context.Context, tenantID string, year int) (string, error) {
	n, err := t.nextSequence(ctx, tenantID, sequenceLoan, year)
	if err != nil {
		return "", err
	}
	return model.FormatLoanNumber(year, n), nil
}

func (t *loanTx) NextPaymentNumber(ctx context.Context, tenantID string, year int) (string, error) {
	n, err := t.nextSequence(ctx, tenantID, sequencePayment, year)
	if err != nil {
		return "", err
	}
	return model.FormatPaymentNumber(year, n), nil
}

// nextSequence bumps a per-tenant, per-year counter. The upsert holds the
// counter's row lock until commit, so numbers are gapless and a rolled back
// transaction hands its number to the next caller.
func (t *loanTx) nextSequence(ctx context.Context, tenantID, kind string, year int) (int64, error) {
	var n int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO lending_sequences (tenant_id, kind, year, last_value)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (tenant_id, kind, year) DO UPDATE
			SET last_value = lending_sequences.last_value + 1
		RETURNING last_value
	`, tenantID, kind, year).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("next %s number: %w", kind, err)
	}
	return n, nil
}

func (t *loanTx) InsertLoan(ctx context.Context, loan model.Loan) error {
	return insertLoan(ctx, t.tx, loan)
}

func (t *loanTx) UpdateLoan(ctx context.Context, loan model.Loan) error {
	return updateLoan(ctx, t.tx, loan)
}

func (t *loanTx) InsertPayment(ctx context.Context, p model.Payment) error {
	return insertPayment(ctx, t.tx, p)
}

func (t *loanTx) MarkPaymentReversed(ctx context.Context, p model.Payment) error {
	return markPaymentReversed(ctx, t.tx, p)
}

func (t *loanTx) InsertPenalties(ctx context.Context, ps []model.Penalty) error {
	if len(ps) == 0 {
		return nil
	}
	return insertPenalties(ctx, t.tx, ps)
}

func (t *loanTx) UpdatePenalties(ctx context.Context, ps []model.Penalty) error {
	if len(ps) == 0 {
		return nil
	}
	return updatePenalties(ctx, t.tx, ps)
}

func (t *loanTx) AppendEvents(ctx context.Context, evts ...event.DomainEvent) error {
	if len(evts) == 0 {
		return nil
	}
	return appendOutbox(ctx, t.tx, evts)
}
