package amqp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	"planner/internal/core"
	"planner/internal/metrics"
)

type fakePublisher struct {
	err   error
	calls int
	last  amqp091.Publishing
}

func (f *fakePublisher) PublishWithContext(_ context.Context, _, _ string, _, _ bool, msg amqp091.Publishing) error {
	f.calls++
	f.last = msg
	return f.err
}

func sampleEntry() core.LedgerEntry {
	return core.LedgerEntry{
		ID:           "entry-1",
		AccountID:    "hdfc",
		Category:     core.CategoryExpense,
		Date:         core.NewDate(2025, 3, 1),
		Amount:       core.Money{Cents: 1250000},
		Description:  "Car EMI",
		Status:       core.LedgerPending,
		ObligationID: "ob-1",
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"closed", errors.New("Exception (504) Reason: \"channel/connection is not open\""), true},
		{"eof", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"timeout", context.DeadlineExceeded, true},
		{"encoding", errors.New("json: unsupported value"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.want {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestPublishEntryCreated(t *testing.T) {
	pub := &fakePublisher{}
	m := metrics.New()
	c := newClient(pub, "planner", "ledger_events", m)

	if err := c.PublishEntryCreated(context.Background(), sampleEntry()); err != nil {
		t.Fatalf("PublishEntryCreated: %v", err)
	}
	if pub.calls != 1 {
		t.Fatalf("calls = %d", pub.calls)
	}
	if pub.last.MessageId != "entry-1" || pub.last.DeliveryMode != amqp091.Persistent {
		t.Errorf("unexpected publishing %+v", pub.last)
	}

	evt, err := LedgerEntryEventFromJSON(pub.last.Body)
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if evt.Date != "2025-03-01" || evt.AmountCents != 1250000 || evt.ObligationID != "ob-1" || evt.Category != "expense" {
		t.Errorf("decoded event = %+v", evt)
	}
}

func TestBreakerOpensOnConnectionFailures(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection reset by peer")}
	c := newClient(pub, "planner", "ledger_events", nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := c.PublishEntryCreated(ctx, sampleEntry()); err == nil {
			t.Fatalf("attempt %d: expected error", i)
		}
	}
	if c.breaker.State() != gobreaker.StateOpen {
		t.Fatalf("breaker state = %v, want open", c.breaker.State())
	}

	err := c.PublishEntryCreated(ctx, sampleEntry())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
	if pub.calls != 5 {
		t.Errorf("open breaker still reached the broker: calls = %d", pub.calls)
	}
}

func TestBreakerIgnoresNonConnectionFailures(t *testing.T) {
	pub := &fakePublisher{err: errors.New("exchange not found")}
	c := newClient(pub, "planner", "ledger_events", nil)

	for i := 0; i < 10; i++ {
		_ = c.PublishEntryCreated(context.Background(), sampleEntry())
	}
	if c.breaker.State() != gobreaker.StateClosed {
		t.Errorf("breaker state = %v, want closed", c.breaker.State())
	}
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	pub := &fakePublisher{}
	c := newClient(pub, "planner", "ledger_events", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.PublishEntryCreated(ctx, sampleEntry()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if pub.calls != 0 {
		t.Errorf("calls = %d", pub.calls)
	}
}

func TestLedgerEntryEventJSON(t *testing.T) {
	evt := NewLedgerEntryEvent(sampleEntry())
	if time.Since(evt.Timestamp) > time.Minute {
		t.Errorf("timestamp not set: %v", evt.Timestamp)
	}
	if _, err := LedgerEntryEventFromJSON([]byte("{not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
