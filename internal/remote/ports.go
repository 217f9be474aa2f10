// Package remote defines the port to the durable remote copy of the ledger.
//
// The remote side holds exactly one document under a fixed key. Writes are
// last-writer-wins: there is no version token.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"eventledger/internal/core"
)

// DefaultKey is the fixed key the ledger document is stored under.
const DefaultKey = "expense-data"

// ErrNotFound is returned by Get when no document has been written yet.
var ErrNotFound = errors.New("remote ledger not found")

// Document is the stored ledger with the time of its last write.
type Document struct {
	Ledger       core.Ledger
	LastModified time.Time
}

// LedgerStore reads, replaces and deletes the single remote ledger document.
type LedgerStore interface {
	Get(ctx context.Context) (Document, error)
	Put(ctx context.Context, l core.Ledger) (time.Time, error)
	Delete(ctx context.Context) error
}

type envelope struct {
	Data         core.Ledger `json:"data"`
	LastModified time.Time   `json:"lastModified"`
}

// Marshal encodes a document in the wire format shared by the blob backends.
func Marshal(d Document) ([]byte, error) {
	b, err := json.Marshal(envelope{Data: d.Ledger.Clone(), LastModified: d.LastModified.UTC()})
	if err != nil {
		return nil, fmt.Errorf("marshal ledger document: %w", err)
	}
	return b, nil
}

// Unmarshal decodes a document written by Marshal.
func Unmarshal(b []byte) (Document, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Document{}, fmt.Errorf("unmarshal ledger document: %w", err)
	}
	return Document{Ledger: env.Data.Clone(), LastModified: env.LastModified}, nil
}
