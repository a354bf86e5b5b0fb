package amqp

import (
	"encoding/json"
	"time"

	"planner/internal/core"
)

// LedgerEntryEvent announces a ledger entry created by the planner. It
// carries the full entry so consumers need no access to the database.
type LedgerEntryEvent struct {
	EntryID      string    `json:"entry_id"`
	ObligationID string    `json:"obligation_id,omitempty"`
	AccountID    string    `json:"account_id"`
	Category     string    `json:"category"`
	Date         string    `json:"date"`
	AmountCents  int64     `json:"amount_cents"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewLedgerEntryEvent builds the event for e, stamped with the current time.
func NewLedgerEntryEvent(e core.LedgerEntry) *LedgerEntryEvent {
	return &LedgerEntryEvent{
		EntryID:      e.ID,
		ObligationID: e.ObligationID,
		AccountID:    e.AccountID,
		Category:     string(e.Category),
		Date:         e.Date.String(),
		AmountCents:  e.Amount.Cents,
		Description:  e.Description,
		Status:       string(e.Status),
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *LedgerEntryEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEntryEventFromJSON decodes an event published by PublishEntryCreated.
func LedgerEntryEventFromJSON(data []byte) (*LedgerEntryEvent, error) {
	var msg LedgerEntryEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
