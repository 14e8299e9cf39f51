package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jehnsen/coop-lending/internal/domain/model"
	"github.com/jehnsen/coop-lending/internal/domain/valueobject"
	"github.com/jehnsen/coop-lending/pkg/money"
	pgpkg "github.com/jehnsen/coop-lending/pkg/postgres"
)

const loanColumns = `
	id, tenant_id, loan_number, member_id, product_id,
	currency, principal, interest_rate, interest_method, term_months,
	payment_interval, status, processing_fee, service_fee, net_proceeds,
	total_interest, total_payable, installment, outstanding_balance,
	principal_paid, interest_paid, penalty_paid, penalties_outstanding,
	application_date, approval_date, rejection_date, disbursement_date,
	first_payment_date, maturity_date, closed_date,
	rejection_reason, approval_notes, purpose,
	applied_by_id, applied_by_name, approved_by_id, approved_by_name,
	rejected_by_id, rejected_by_name, disbursed_by_id, disbursed_by_name,
	version, created_at, updated_at`

const scheduleColumns = `
	id, loan_id, tenant_id, sequence, due_date, beginning_balance,
	principal_due, interest_due, total_due, principal_paid, interest_paid,
	penalty_paid, total_paid, ending_balance, paid_date, status`

func getLoan(ctx context.Context, q pgpkg.Querier, tenantID, loanID string, forUpdate bool) (model.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE tenant_id = $1 AND id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	snap, err := scanLoan(q.QueryRow(ctx, query, tenantID, loanID))
	if err != nil {
		return model.Loan{}, notFound(err, "loan", loanID)
	}

	snap.Schedule, err = loadSchedule(ctx, q, loanID)
	if err != nil {
		return model.Loan{}, err
	}
	return model.ReconstructLoan(snap), nil
}

func insertLoan(ctx context.Context, tx pgx.Tx, loan model.Loan) error {
	s := loan.Snapshot()
	_, err := tx.Exec(ctx, `
		INSERT INTO loans (`+loanColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,
		        $23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34,$35,$36,$37,$38,$39,$40,$41,$42,$43,$44)
	`,
		s.ID, s.TenantID, s.LoanNumber, s.MemberID, s.ProductID,
		s.Currency.Code(), int64(s.Principal), s.InterestRate, s.InterestMethod.String(), s.TermMonths,
		s.Interval.String(), s.Status.String(), int64(s.ProcessingFee), int64(s.ServiceFee), int64(s.NetProceeds),
		int64(s.TotalInterest), int64(s.TotalPayable), int64(s.Installment), int64(s.OutstandingBalance),
		int64(s.PrincipalPaid), int64(s.InterestPaid), int64(s.PenaltyPaid), int64(s.PenaltiesOutstanding),
		s.ApplicationDate, s.ApprovalDate, s.RejectionDate, s.DisbursementDate,
		s.FirstPaymentDate, s.MaturityDate, s.ClosedDate,
		s.RejectionReason, s.ApprovalNotes, s.Purpose,
		s.AppliedBy.ID, s.AppliedBy.Name, s.ApprovedBy.ID, s.ApprovedBy.Name,
		s.RejectedBy.ID, s.RejectedBy.Name, s.DisbursedBy.ID, s.DisbursedBy.Name,
		s.Version, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return writeConflict(err, "insert loan "+s.LoanNumber)
	}
	return saveSchedule(ctx, tx, s)
}

// updateLoan writes the mutable loan columns guarded by the version the
// loan was read at.
func updateLoan(ctx context.Context, tx pgx.Tx, loan model.Loan) error {
	s := loan.Snapshot()
	tag, err := tx.Exec(ctx, `
		UPDATE loans SET
			status                = $3,
			outstanding_balance   = $4,
			principal_paid        = $5,
			interest_paid         = $6,
			penalty_paid          = $7,
			penalties_outstanding = $8,
			approval_date         = $9,
			rejection_date        = $10,
			disbursement_date     = $11,
			first_payment_date    = $12,
			maturity_date         = $13,
			closed_date           = $14,
			rejection_reason      = $15,
			approval_notes        = $16,
			approved_by_id        = $17,
			approved_by_name      = $18,
			rejected_by_id        = $19,
			rejected_by_name      = $20,
			disbursed_by_id       = $21,
			disbursed_by_name     = $22,
			updated_at            = $23,
			version               = loans.version + 1
		WHERE tenant_id = $1 AND id = $2 AND loans.version = $24
	`,
		s.TenantID, s.ID,
		s.Status.String(), int64(s.OutstandingBalance), int64(s.PrincipalPaid), int64(s.InterestPaid),
		int64(s.PenaltyPaid), int64(s.PenaltiesOutstanding),
		s.ApprovalDate, s.RejectionDate, s.DisbursementDate, s.FirstPaymentDate, s.MaturityDate, s.ClosedDate,
		s.RejectionReason, s.ApprovalNotes,
		s.ApprovedBy.ID, s.ApprovedBy.Name, s.RejectedBy.ID, s.RejectedBy.Name,
		s.DisbursedBy.ID, s.DisbursedBy.Name,
		s.UpdatedAt, s.Version,
	)
	if err != nil {
		return fmt.Errorf("update loan %s: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("loan %s at version %d: %w", s.ID, s.Version, valueobject.ErrConcurrentModification)
	}
	return saveSchedule(ctx, tx, s)
}

// saveSchedule upserts every row of the loan's schedule in one batch. Only
// payment progress and due dates change after insert.
func saveSchedule(ctx context.Context, tx pgx.Tx, s model.LoanSnapshot) error {
	batch := &pgx.Batch{}
	for _, r := range s.Schedule {
		batch.Queue(`
			INSERT INTO loan_schedule_rows (`+scheduleColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
			ON CONFLICT (id) DO UPDATE SET
				due_date       = EXCLUDED.due_date,
				principal_paid = EXCLUDED.principal_paid,
				interest_paid  = EXCLUDED.interest_paid,
				penalty_paid   = EXCLUDED.penalty_paid,
				total_paid     = EXCLUDED.total_paid,
				paid_date      = EXCLUDED.paid_date,
				status         = EXCLUDED.status
		`,
			r.ID, s.ID, s.TenantID, r.Sequence, r.DueDate, int64(r.BeginningBalance),
			int64(r.PrincipalDue), int64(r.InterestDue), int64(r.TotalDue),
			int64(r.PrincipalPaid), int64(r.InterestPaid), int64(r.PenaltyPaid), int64(r.TotalPaid),
			int64(r.EndingBalance), r.PaidDate, r.Status.String(),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save schedule of loan %s: %w", s.ID, err)
	}
	return nil
}

func loadSchedule(ctx context.Context, q pgpkg.Querier, loanID string) ([]model.ScheduleRow, error) {
	rows, err := q.Query(ctx, `
		SELECT `+scheduleColumns+`
		FROM loan_schedule_rows
		WHERE loan_id = $1
		ORDER BY sequence
	`, loanID)
	if err != nil {
		return nil, fmt.Errorf("query schedule: %w", err)
	}
	defer rows.Close()

	var schedule []model.ScheduleRow
	for rows.Next() {
		var (
			r      model.ScheduleRow
			status string
		)
		if err := rows.Scan(
			&r.ID, &r.LoanID, &r.TenantID, &r.Sequence, &r.DueDate, amt(&r.BeginningBalance),
			amt(&r.PrincipalDue), amt(&r.InterestDue), amt(&r.TotalDue),
			amt(&r.PrincipalPaid), amt(&r.InterestPaid), amt(&r.PenaltyPaid), amt(&r.TotalPaid),
			amt(&r.EndingBalance), &r.PaidDate, &status,
		); err != nil {
			return nil, fmt.Errorf("scan schedule row: %w", err)
		}
		if r.Status, err = valueobject.NewScheduleStatus(status); err != nil {
			return nil, fmt.Errorf("schedule row %s: %w", r.ID, err)
		}
		schedule = append(schedule, r)
	}
	return schedule, rows.Err()
}

func scanLoan(row scannable) (model.LoanSnapshot, error) {
	var (
		s                                  model.LoanSnapshot
		currency, method, interval, status string
	)
	err := row.Scan(
		&s.ID, &s.TenantID, &s.LoanNumber, &s.MemberID, &s.ProductID,
		&currency, amt(&s.Principal), &s.InterestRate, &method, &s.TermMonths,
		&interval, &status, amt(&s.ProcessingFee), amt(&s.ServiceFee), amt(&s.NetProceeds),
		amt(&s.TotalInterest), amt(&s.TotalPayable), amt(&s.Installment), amt(&s.OutstandingBalance),
		amt(&s.PrincipalPaid), amt(&s.InterestPaid), amt(&s.PenaltyPaid), amt(&s.PenaltiesOutstanding),
		&s.ApplicationDate, &s.ApprovalDate, &s.RejectionDate, &s.DisbursementDate,
		&s.FirstPaymentDate, &s.MaturityDate, &s.ClosedDate,
		&s.RejectionReason, &s.ApprovalNotes, &s.Purpose,
		&s.AppliedBy.ID, &s.AppliedBy.Name, &s.ApprovedBy.ID, &s.ApprovedBy.Name,
		&s.RejectedBy.ID, &s.RejectedBy.Name, &s.DisbursedBy.ID, &s.DisbursedBy.Name,
		&s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return model.LoanSnapshot{}, err
	}

	if s.Currency, err = money.NewCurrency(currency); err != nil {
		return model.LoanSnapshot{}, fmt.Errorf("loan %s: %w", s.ID, err)
	}
	if s.InterestMethod, err = valueobject.NewInterestMethod(method); err != nil {
		return model.LoanSnapshot{}, fmt.Errorf("loan %s: %w", s.ID, err)
	}
	if s.Interval, err = valueobject.NewPaymentInterval(interval); err != nil {
		return model.LoanSnapshot{}, fmt.Errorf("loan %s: %w", s.ID, err)
	}
	if s.Status, err = valueobject.NewLoanStatus(status); err != nil {
		return model.LoanSnapshot{}, fmt.Errorf("loan %s: %w", s.ID, err)
	}
	return s, nil
}
