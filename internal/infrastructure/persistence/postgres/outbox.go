package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jehnsen/coop-lending/internal/domain/event"
	"github.com/jehnsen/coop-lending/pkg/events"
)

func appendOutbox(ctx context.Context, tx pgx.Tx, evts []event.DomainEvent) error {
	entries, err := events.NewOutboxEntries(evts)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO outbox (id, aggregate_id, aggregate_type, event_type, tenant_id, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, e.ID, e.AggregateID, e.AggregateType, e.EventType, e.TenantID, e.Payload, e.CreatedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("append outbox: %w", err)
	}
	return nil
}

// FetchUnpublished returns up to batchSize unpublished entries, oldest first.
func (s *Store) FetchUnpublished(ctx context.Context, batchSize int) ([]events.OutboxEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, aggregate_id, aggregate_type, event_type, tenant_id, payload, created_at, published_at, attempts
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`, batchSize)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var entries []events.OutboxEntry
	for rows.Next() {
		var e events.OutboxEntry
		if err := rows.Scan(
			&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &e.TenantID,
			&e.Payload, &e.CreatedAt, &e.PublishedAt, &e.Attempts,
		); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkPublished stamps the entries as published.
func (s *Store) MarkPublished(ctx context.Context, ids []string, at time.Time) error {
	if _, err := s.db.Exec(ctx,
		`UPDATE outbox SET published_at = $2 WHERE id = ANY($1)`, ids, at.UTC()); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

// MarkFailed counts a failed publish attempt on the entries.
func (s *Store) MarkFailed(ctx context.Context, ids []string) error {
	if _, err := s.db.Exec(ctx,
		`UPDATE outbox SET attempts = attempts + 1 WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("mark outbox failed: %w", err)
	}
	return nil
}
