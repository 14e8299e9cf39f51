package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	_ "github.com/lib/pq" // register the postgres driver for database/sql

	"github.com/jehnsen/coop-lending/internal/domain/port"
)

// ---------------------------------------------------------------------------
// Membership directory – back-office members table
// ---------------------------------------------------------------------------

var _ port.MembershipDirectory = (*MembershipDirectory)(nil)

// eligibleStatus is the members.status value that may borrow.
const eligibleStatus = "active"

// MembershipDirectoryConfig holds configuration for the directory adapter.
type MembershipDirectoryConfig struct {
	// QueryTimeout bounds one lookup attempt.
	QueryTimeout time.Duration
	// MaxRetries is the maximum number of retry attempts on transient failures.
	MaxRetries int
	// RetryBackoff is the base backoff between retries.
	RetryBackoff time.Duration
}

// DefaultMembershipDirectoryConfig returns sensible defaults.
func DefaultMembershipDirectoryConfig() MembershipDirectoryConfig {
	return MembershipDirectoryConfig{
		QueryTimeout: 3 * time.Second,
		MaxRetries:   2,
		RetryBackoff: 100 * time.Millisecond,
	}
}

// MembershipDirectory answers eligibility from the cooperative's back-office
// database, which the lending service reads but does not own.
type MembershipDirectory struct {
	db     *sql.DB
	config MembershipDirectoryConfig
	logger *slog.Logger
}

// OpenMembersDB opens the back-office database through lib/pq.
func OpenMembersDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open members db: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// NewMembershipDirectory creates a directory over db.
func NewMembershipDirectory(db *sql.DB, config MembershipDirectoryConfig, logger *slog.Logger) *MembershipDirectory {
	return &MembershipDirectory{db: db, config: config, logger: logger}
}

// IsEligibleMember reports whether the member exists in the tenant and is
// active. An unknown member is not an error.
func (d *MembershipDirectory) IsEligibleMember(ctx context.Context, tenantID, memberID string) (bool, error) {
	if memberID == "" {
		return false, nil
	}

	status, err := d.lookupWithRetry(ctx, tenantID, memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("membership lookup: %w", err)
	}
	return status == eligibleStatus, nil
}

// lookupWithRetry queries the member status with exponential backoff.
func (d *MembershipDirectory) lookupWithRetry(ctx context.Context, tenantID, memberID string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= d.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := d.config.RetryBackoff * (1 << uint(attempt-1))
			jitter := time.Duration(rand.Int63n(int64(backoff)/2 + 1))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff + jitter):
			}
		}

		status, err := d.lookup(ctx, tenantID, memberID)
		if err == nil || errors.Is(err, sql.ErrNoRows) {
			return status, err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		d.logger.Warn("membership lookup failed",
			"tenant_id", tenantID,
			"member_id", memberID,
			"attempt", attempt+1,
			"error", err,
		)
	}

	return "", fmt.Errorf("exhausted %d retries: %w", d.config.MaxRetries, lastErr)
}

func (d *MembershipDirectory) lookup(ctx context.Context, tenantID, memberID string) (string, error) {
	if d.config.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.QueryTimeout)
		defer cancel()
	}

	var status string
	err := d.db.QueryRowContext(ctx,
		`SELECT status FROM members WHERE tenant_id = $1 AND id = $2`,
		tenantID, memberID,
	).Scan(&status)
	return status, err
}

// ---------------------------------------------------------------------------
// Static directory – development without a back-office database
// ---------------------------------------------------------------------------

// StaticMembershipDirectory treats every non-empty member ID as eligible
// except the ones listed as blocked.
type StaticMembershipDirectory struct {
	blocked map[string]bool
}

// NewStaticMembershipDirectory creates a directory that rejects blocked IDs.
func NewStaticMembershipDirectory(blocked ...string) *StaticMembershipDirectory {
	m := make(map[string]bool, len(blocked))
	for _, id := range blocked {
		m[id] = true
	}
	return &StaticMembershipDirectory{blocked: m}
}

// IsEligibleMember implements port.MembershipDirectory.
func (d *StaticMembershipDirectory) IsEligibleMember(_ context.Context, _, memberID string) (bool, error) {
	return memberID != "" && !d.blocked[memberID], nil
}
