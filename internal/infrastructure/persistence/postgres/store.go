// Package postgres is the PostgreSQL LoanStore. Loans, their schedule rows,
// payments, penalties, number sequences and the outbox live in one database
// so that every use case commits in a single transaction.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jehnsen/coop-lending/internal/domain/model"
	"github.com/jehnsen/coop-lending/internal/domain/port"
	"github.com/jehnsen/coop-lending/internal/domain/valueobject"
	"github.com/jehnsen/coop-lending/pkg/events"
	"github.com/jehnsen/coop-lending/pkg/money"
	pgpkg "github.com/jehnsen/coop-lending/pkg/postgres"
)

// Migrations holds the schema, applied with pkg/postgres.RunEmbeddedMigrations.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations that holds the files.
const MigrationsDir = "migrations"

// Compile-time interface checks.
var (
	_ port.LoanStore      = (*Store)(nil)
	_ events.OutboxReader = (*Store)(nil)
)

// DB is satisfied by *pgxpool.Pool.
type DB interface {
	pgpkg.Querier
	pgpkg.Beginner
}

// Store implements port.LoanStore and events.OutboxReader.
type Store struct {
	db DB
}

// NewStore creates a new PostgreSQL-backed loan store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// WithinTransaction runs fn in a read-committed transaction. Loan rows are
// locked with SELECT ... FOR UPDATE, so concurrent writers to the same loan
// queue behind each other.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx port.LoanTx) error) error {
	err := pgpkg.WithTransaction(ctx, s.db, func(tx pgx.Tx) error {
		return fn(ctx, &loanTx{tx: tx})
	})
	if pgpkg.IsRetryable(err) {
		return fmt.Errorf("%w: %w", valueobject.ErrConcurrentModification, err)
	}
	return err
}

// GetLoan loads a loan with its schedule.
func (s *Store) GetLoan(ctx context.Context, tenantID, loanID string) (model.Loan, error) {
	return getLoan(ctx, s.db, tenantID, loanID, false)
}

// ListPayments returns a loan's payments ordered by payment date.
func (s *Store) ListPayments(ctx context.Context, tenantID, loanID string) ([]model.Payment, error) {
	return queryPayments(ctx, s.db, `
		SELECT `+paymentColumns+`
		FROM loan_payments
		WHERE tenant_id = $1 AND loan_id = $2
		ORDER BY payment_date, payment_number
	`, tenantID, loanID)
}

// ListPenalties returns every penalty of a loan, oldest first.
func (s *Store) ListPenalties(ctx context.Context, tenantID, loanID string) ([]model.Penalty, error) {
	return queryPenalties(ctx, s.db, `
		SELECT `+penaltyColumns+`
		FROM loan_penalties
		WHERE tenant_id = $1 AND loan_id = $2
		ORDER BY applied_date, created_at, id
	`, tenantID, loanID)
}

// ListActiveLoans returns active loans of one tenant, or of all tenants when
// tenantID is empty.
func (s *Store) ListActiveLoans(ctx context.Context, tenantID string) ([]port.LoanRef, error) {
	rows, err := s.db.Query(ctx, `
		SELECT tenant_id, id
		FROM loans
		WHERE status = $1 AND ($2::text = '' OR tenant_id = $2)
		ORDER BY tenant_id, loan_number
	`, valueobject.LoanStatusActive.String(), tenantID)
	if err != nil {
		return nil, fmt.Errorf("query active loans: %w", err)
	}
	defer rows.Close()

	var refs []port.LoanRef
	for rows.Next() {
		var ref port.LoanRef
		if err := rows.Scan(&ref.TenantID, &ref.LoanID); err != nil {
			return nil, fmt.Errorf("scan active loan: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// ---------------------------------------------------------------------------
// internal helpers
// ---------------------------------------------------------------------------

// scannable is satisfied by pgx.Row and pgx.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// notFound maps pgx.ErrNoRows to the domain's not-found error.
func notFound(err error, entity, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return valueobject.NotFound(entity, id)
	}
	return err
}

// writeConflict maps unique violations to ErrConcurrentModification: the
// only way to hit one is a second writer racing on the same key.
func writeConflict(err error, what string) error {
	if err == nil {
		return nil
	}
	if pgpkg.IsUniqueViolation(err, "") {
		return fmt.Errorf("%s: %w", what, valueobject.ErrConcurrentModification)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// amt lets pgx scan BIGINT columns straight into money.Amount fields.
func amt(a *money.Amount) *int64 { return (*int64)(a) }
