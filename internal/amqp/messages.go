package amqp

import (
	"encoding/json"
	"time"

	"eventledger/internal/core"
)

// LedgerChangedMessage announces that a device wrote a new ledger to the
// remote store. It carries no ledger data: receivers pull the document
// themselves.
type LedgerChangedMessage struct {
	DeviceID       string    `json:"device_id"`
	LastModified   time.Time `json:"last_modified"`
	Events         int       `json:"events"`
	ExpenseHeads   int       `json:"expense_heads"`
	ExpenseEntries int       `json:"expense_entries"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewLedgerChangedMessage describes a write of l made at lastModified.
func NewLedgerChangedMessage(deviceID string, lastModified time.Time, l core.Ledger) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		DeviceID:       deviceID,
		LastModified:   lastModified,
		Events:         len(l.Events),
		ExpenseHeads:   len(l.ExpenseHeads),
		ExpenseEntries: len(l.ExpenseEntries),
		Timestamp:      time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON creates a message from JSON bytes
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
