package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jehnsen/coop-lending/pkg/events"
)

// RelayConfig tunes the outbox relay.
type RelayConfig struct {
	BatchSize int
	Interval  time.Duration
}

// OutboxRelay moves committed outbox entries to the event publisher. Delivery
// is at least once: an entry is marked published only after the publisher
// accepted it, and consumers dedupe on the event_id header.
type OutboxRelay struct {
	reader    events.OutboxReader
	publisher events.EntryPublisher
	cfg       RelayConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewOutboxRelay creates a relay; zero config values fall back to 100
// entries every second.
func NewOutboxRelay(reader events.OutboxReader, publisher events.EntryPublisher, cfg RelayConfig, logger *slog.Logger) *OutboxRelay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &OutboxRelay{
		reader:    reader,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Run polls until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.logger.Info("outbox relay started", "interval", r.cfg.Interval, "batch_size", r.cfg.BatchSize)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return
		case <-ticker.C:
			for {
				n, err := r.RelayOnce(ctx)
				if err != nil {
					r.logger.Error("outbox relay failed", "error", err)
					break
				}
				if n < r.cfg.BatchSize {
					break
				}
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many entries it published.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	entries, err := r.reader.FetchUnpublished(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch outbox: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}

	if err := r.publisher.PublishEntries(ctx, entries...); err != nil {
		if markErr := r.reader.MarkFailed(ctx, ids); markErr != nil {
			r.logger.Error("failed to record outbox attempt", "error", markErr)
		}
		return 0, fmt.Errorf("publish %d outbox entries: %w", len(entries), err)
	}

	if err := r.reader.MarkPublished(ctx, ids, r.now()); err != nil {
		return 0, fmt.Errorf("mark outbox published: %w", err)
	}
	r.logger.Debug("relayed outbox entries", "count", len(entries))
	return len(entries), nil
}
