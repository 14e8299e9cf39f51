package events

import (
	"encoding/json"
	"testing"
	"time"
)

type paymentRecorded struct {
	BaseEvent
	PaymentNumber string `json:"payment_number"`
	Amount        int64  `json:"amount"`
}

func TestNewBaseEvent(t *testing.T) {
	before := time.Now().UTC()
	event := NewBaseEvent("loan.applied", "loan-1", "Loan", "tenant-1")
	after := time.Now().UTC()

	if event.EventID() == "" {
		t.Error("expected non-empty event ID")
	}
	if event.EventType() != "loan.applied" {
		t.Errorf("expected event type %q, got %q", "loan.applied", event.EventType())
	}
	if event.AggregateID() != "loan-1" || event.AggregateType() != "Loan" {
		t.Errorf("unexpected aggregate %s/%s", event.AggregateType(), event.AggregateID())
	}
	if event.TenantID() != "tenant-1" {
		t.Errorf("expected tenant ID %q, got %q", "tenant-1", event.TenantID())
	}
	if event.OccurredAt().Before(before) || event.OccurredAt().After(after) {
		t.Errorf("expected occurredAt between %v and %v, got %v", before, after, event.OccurredAt())
	}
}

func TestNewBaseEventAt_NormalizesToUTC(t *testing.T) {
	manila := time.FixedZone("PHT", 8*3600)
	at := time.Date(2026, 2, 1, 9, 0, 0, 0, manila)

	event := NewBaseEventAt("loan.closed", "loan-1", "Loan", "t", at)

	if event.OccurredAt().Location() != time.UTC {
		t.Errorf("expected UTC, got %v", event.OccurredAt().Location())
	}
	if !event.OccurredAt().Equal(at) {
		t.Errorf("expected same instant, got %v", event.OccurredAt())
	}
}

func TestNewOutboxEntry(t *testing.T) {
	event := paymentRecorded{
		BaseEvent:     NewBaseEvent("loan.payment_recorded", "loan-7", "Loan", "tenant-2"),
		PaymentNumber: "LP-2026-000001",
		Amount:        9168400,
	}

	entry, err := NewOutboxEntry(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if entry.ID != event.EventID() {
		t.Errorf("expected outbox ID %v, got %v", event.EventID(), entry.ID)
	}
	if entry.AggregateID != "loan-7" || entry.TenantID != "tenant-2" {
		t.Errorf("unexpected entry metadata %+v", entry)
	}
	if entry.EventType != "loan.payment_recorded" {
		t.Errorf("expected event type %q, got %q", "loan.payment_recorded", entry.EventType)
	}
	if !entry.CreatedAt.Equal(event.OccurredAt()) {
		t.Errorf("expected created at %v, got %v", event.OccurredAt(), entry.CreatedAt)
	}
	if entry.PublishedAt != nil {
		t.Error("expected published at to be nil")
	}

	var parsed struct {
		ID       string `json:"id"`
		Type     string `json:"type"`
		TenantID string `json:"tenant_id"`
		Data     struct {
			PaymentNumber string `json:"payment_number"`
			Amount        int64  `json:"amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(entry.Payload, &parsed); err != nil {
		t.Fatalf("expected valid JSON payload, got error: %v", err)
	}
	if parsed.ID != event.EventID() || parsed.Type != "loan.payment_recorded" || parsed.TenantID != "tenant-2" {
		t.Errorf("unexpected envelope %+v", parsed)
	}
	if parsed.Data.PaymentNumber != "LP-2026-000001" || parsed.Data.Amount != 9168400 {
		t.Errorf("unexpected data %+v", parsed.Data)
	}
}

func TestNewOutboxEntries(t *testing.T) {
	entries, err := NewOutboxEntries([]DomainEvent{
		NewBaseEvent("a", "loan", "Loan", ""),
		NewBaseEvent("b", "loan", "Loan", ""),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 || entries[0].EventType != "a" || entries[1].EventType != "b" {
		t.Errorf("unexpected entries %+v", entries)
	}
}
