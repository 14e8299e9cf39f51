// Package memory is an in-process LoanStore. Transactions are serialized by
// one mutex and commit a copied state only when the callback succeeds, so it
// gives the same all-or-nothing behaviour as the Postgres store. It backs
// tests and single-process development runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jehnsen/coop-lending/internal/domain/event"
	"github.com/jehnsen/coop-lending/internal/domain/model"
	"github.com/jehnsen/coop-lending/internal/domain/port"
	"github.com/jehnsen/coop-lending/internal/domain/valueobject"
	"github.com/jehnsen/coop-lending/pkg/events"
)

// Compile-time interface checks.
var (
	_ port.LoanStore      = (*Store)(nil)
	_ events.OutboxReader = (*Store)(nil)
)

type state struct {
	loans      map[string]model.LoanSnapshot
	payments   map[string]model.Payment
	penalties  map[string]model.Penalty
	loanSeq    map[string]int64
	paymentSeq map[string]int64
	outbox     []events.OutboxEntry
}

func newState() *state {
	return &state{
		loans:      make(map[string]model.LoanSnapshot),
		payments:   make(map[string]model.Payment),
		penalties:  make(map[string]model.Penalty),
		loanSeq:    make(map[string]int64),
		paymentSeq: make(map[string]int64),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.loans {
		v.Schedule = append([]model.ScheduleRow(nil), v.Schedule...)
		c.loans[k] = v
	}
	for k, v := range s.payments {
		v.Allocations = append([]model.AllocationLine(nil), v.Allocations...)
		c.payments[k] = v
	}
	for k, v := range s.penalties {
		c.penalties[k] = v
	}
	for k, v := range s.loanSeq {
		c.loanSeq[k] = v
	}
	for k, v := range s.paymentSeq {
		c.paymentSeq[k] = v
	}
	c.outbox = append([]events.OutboxEntry(nil), s.outbox...)
	return c
}

// Store is an in-memory LoanStore and outbox.
type Store struct {
	mu    sync.Mutex
	state *state
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{state: newState()}
}

// WithinTransaction runs fn against a private copy of the state and swaps it
// in only when fn returns nil.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx port.LoanTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	working := s.state.clone()
	if err := fn(ctx, &tx{st: working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

// ---------------------------------------------------------------------------
// LoanReader
// ---------------------------------------------------------------------------

func (s *Store) GetLoan(_ context.Context, tenantID, loanID string) (model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&tx{st: s.state}).loan(tenantID, loanID)
}

func (s *Store) ListPayments(_ context.Context, tenantID, loanID string) ([]model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Payment
	for _, p := range s.state.payments {
		if p.TenantID == tenantID && p.LoanID == loanID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PaymentDate.Equal(out[j].PaymentDate) {
			return out[i].PaymentDate.Before(out[j].PaymentDate)
		}
		return out[i].PaymentNumber < out[j].PaymentNumber
	})
	return out, nil
}

func (s *Store) ListPenalties(_ context.Context, tenantID, loanID string) ([]model.Penalty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.penaltiesOf(tenantID, loanID, false), nil
}

func (s *Store) ListActiveLoans(_ context.Context, tenantID string) ([]port.LoanRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snaps []model.LoanSnapshot
	for _, l := range s.state.loans {
		if tenantID != "" && l.TenantID != tenantID {
			continue
		}
		if l.Status.Equal(valueobject.LoanStatusActive) {
			snaps = append(snaps, l)
		}
	}
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].TenantID != snaps[j].TenantID {
			return snaps[i].TenantID < snaps[j].TenantID
		}
		return snaps[i].LoanNumber < snaps[j].LoanNumber
	})

	refs := make([]port.LoanRef, len(snaps))
	for i, l := range snaps {
		refs[i] = port.LoanRef{TenantID: l.TenantID, LoanID: l.ID}
	}
	return refs, nil
}

// ---------------------------------------------------------------------------
// Outbox
// ---------------------------------------------------------------------------

// FetchUnpublished returns up to batchSize unpublished entries, oldest first.
func (s *Store) FetchUnpublished(_ context.Context, batchSize int) ([]events.OutboxEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []events.OutboxEntry
	for _, e := range s.state.outbox {
		if e.PublishedAt != nil {
			continue
		}
		out = append(out, e)
		if len(out) == batchSize {
			break
		}
	}
	return out, nil
}

// MarkPublished stamps the entries as published.
func (s *Store) MarkPublished(_ context.Context, ids []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.updateOutbox(ids, func(e *events.OutboxEntry) {
		published := at.UTC()
		e.PublishedAt = &published
	})
	return nil
}

// MarkFailed counts a failed publish attempt on the entries.
func (s *Store) MarkFailed(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.updateOutbox(ids, func(e *events.OutboxEntry) { e.Attempts++ })
	return nil
}

func (s *Store) updateOutbox(ids []string, fn func(*events.OutboxEntry)) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range s.state.outbox {
		if want[s.state.outbox[i].ID] {
			fn(&s.state.outbox[i])
		}
	}
}

// Outbox returns a copy of every outbox entry, for tests.
func (s *Store) Outbox() []events.OutboxEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.OutboxEntry(nil), s.state.outbox...)
}

// ---------------------------------------------------------------------------
// LoanTx
// ---------------------------------------------------------------------------

type tx struct {
	st *state
}

func loanKey(tenantID, id string) string { return tenantID + "/" + id }

func seqKey(tenantID string, year int) string { return fmt.Sprintf("%s/%d", tenantID, year) }

func (t *tx) loan(tenantID, loanID string) (model.Loan, error) {
	snap, ok := t.st.loans[loanKey(tenantID, loanID)]
	if !ok {
		return model.Loan{}, valueobject.NotFound("loan", loanID)
	}
	return model.ReconstructLoan(snap), nil
}

func (t *tx) GetLoanForUpdate(_ context.Context, tenantID, loanID string) (model.Loan, error) {
	return t.loan(tenantID, loanID)
}

func (t *tx) GetPayment(_ context.Context, tenantID, paymentID string) (model.Payment, error) {
	p, ok := t.st.payments[paymentID]
	if !ok || p.TenantID != tenantID {
		return model.Payment{}, valueobject.NotFound("payment", paymentID)
	}
	return p, nil
}

func (t *tx) GetPenalty(_ context.Context, tenantID, penaltyID string) (model.Penalty, error) {
	p, ok := t.st.penalties[penaltyID]
	if !ok || p.TenantID != tenantID {
		return model.Penalty{}, valueobject.NotFound("penalty", penaltyID)
	}
	return p, nil
}

func (t *tx) GetPenalties(ctx context.Context, tenantID string, ids []string) ([]model.Penalty, error) {
	out := make([]model.Penalty, 0, len(ids))
	for _, id := range ids {
		p, err := t.GetPenalty(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (t *tx) ListUnpaidPenalties(_ context.Context, tenantID, loanID string) ([]model.Penalty, error) {
	return t.st.penaltiesOf(tenantID, loanID, true), nil
}

func (t *tx) PenalizedRowsOn(_ context.Context, tenantID, loanID string, day time.Time) (map[string]bool, error) {
	key := model.DateKey(day)
	rows := make(map[string]bool)
	for _, p := range t.st.penalties {
		if p.TenantID == tenantID && p.LoanID == loanID && model.DateKey(p.AppliedDate) == key {
			rows[p.ScheduleRowID] = true
		}
	}
	return rows, nil
}

func (t *tx) NextLoanNumber(_ context.Context, tenantID string, year int) (string, error) {
	k := seqKey(tenantID, year)
	t.st.loanSeq[k]++
	return model.FormatLoanNumber(year, t.st.loanSeq[k]), nil
}

func (t *tx) NextPaymentNumber(_ context.Context, tenantID string, year int) (string, error) {
	k := seqKey(tenantID, year)
	t.st.paymentSeq[k]++
	return model.FormatPaymentNumber(year, t.st.paymentSeq[k]), nil
}

func (t *tx) InsertLoan(_ context.Context, loan model.Loan) error {
	k := loanKey(loan.TenantID(), loan.ID())
	if _, exists := t.st.loans[k]; exists {
		return fmt.Errorf("loan %s already exists: %w", loan.ID(), valueobject.ErrConcurrentModification)
	}
	for _, l := range t.st.loans {
		if l.TenantID == loan.TenantID() && l.LoanNumber == loan.LoanNumber() {
			return fmt.Errorf("loan number %s already used: %w", loan.LoanNumber(), valueobject.ErrConcurrentModification)
		}
	}
	t.st.loans[k] = loan.Snapshot()
	return nil
}

func (t *tx) UpdateLoan(_ context.Context, loan model.Loan) error {
	k := loanKey(loan.TenantID(), loan.ID())
	stored, ok := t.st.loans[k]
	if !ok {
		return valueobject.NotFound("loan", loan.ID())
	}
	if stored.Version != loan.Version() {
		return fmt.Errorf("loan %s: version %d, stored %d: %w",
			loan.ID(), loan.Version(), stored.Version, valueobject.ErrConcurrentModification)
	}
	snap := loan.Snapshot()
	snap.Version = stored.Version + 1
	t.st.loans[k] = snap
	return nil
}

func (t *tx) InsertPayment(_ context.Context, p model.Payment) error {
	if _, exists := t.st.payments[p.ID]; exists {
		return fmt.Errorf("payment %s already exists: %w", p.ID, valueobject.ErrConcurrentModification)
	}
	p.Allocations = append([]model.AllocationLine(nil), p.Allocations...)
	t.st.payments[p.ID] = p
	return nil
}

func (t *tx) MarkPaymentReversed(_ context.Context, p model.Payment) error {
	stored, ok := t.st.payments[p.ID]
	if !ok {
		return valueobject.NotFound("payment", p.ID)
	}
	if stored.Reversed {
		return fmt.Errorf("payment %s already reversed: %w", p.ID, valueobject.ErrConcurrentModification)
	}
	stored.Reversed = true
	stored.ReversedAt = p.ReversedAt
	stored.ReversedBy = p.ReversedBy
	stored.ReversalReason = p.ReversalReason
	t.st.payments[p.ID] = stored
	return nil
}

func (t *tx) InsertPenalties(_ context.Context, ps []model.Penalty) error {
	for _, p := range ps {
		for _, existing := range t.st.penalties {
			if existing.LoanID == p.LoanID && existing.ScheduleRowID == p.ScheduleRowID &&
				model.DateKey(existing.AppliedDate) == model.DateKey(p.AppliedDate) {
				return fmt.Errorf("penalty for row %s on %s exists: %w",
					p.ScheduleRowID, model.DateKey(p.AppliedDate), valueobject.ErrConcurrentModification)
			}
		}
		t.st.penalties[p.ID] = p
	}
	return nil
}

func (t *tx) UpdatePenalties(_ context.Context, ps []model.Penalty) error {
	for _, p := range ps {
		if _, ok := t.st.penalties[p.ID]; !ok {
			return valueobject.NotFound("penalty", p.ID)
		}
		t.st.penalties[p.ID] = p
	}
	return nil
}

func (t *tx) AppendEvents(_ context.Context, evts ...event.DomainEvent) error {
	entries, err := events.NewOutboxEntries(evts)
	if err != nil {
		return err
	}
	t.st.outbox = append(t.st.outbox, entries...)
	return nil
}

// penaltiesOf lists a loan's penalties by applied date, optionally only the
// unpaid ones.
func (s *state) penaltiesOf(tenantID, loanID string, unpaidOnly bool) []model.Penalty {
	var out []model.Penalty
	for _, p := range s.penalties {
		if p.TenantID != tenantID || p.LoanID != loanID {
			continue
		}
		if unpaidOnly && p.Paid {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AppliedDate.Equal(out[j].AppliedDate) {
			return out[i].AppliedDate.Before(out[j].AppliedDate)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
