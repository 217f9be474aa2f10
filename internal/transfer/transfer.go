// Package transfer reads and writes the portable JSON ledger file used for
// import and export.
package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"eventledger/internal/core"
	"eventledger/internal/reconcile"
)

// ErrInvalidFormat is returned for any input that is not a ledger file.
var ErrInvalidFormat = errors.New("invalid data format")

const filenameLayout = "2006-01-02-15-04-05"

// ExportFilename names an export taken at t, e.g.
// expenses-2025-03-14-09-30-00.json.
func ExportFilename(t time.Time) string {
	return "expenses-" + t.Format(filenameLayout) + ".json"
}

// Decode parses a ledger file.
//
// expenseHeads and expenseEntries must both be arrays. A file whose events
// field is absent, or not an array, is a legacy file and is flagged so the
// caller can normalize it. Nothing is returned unless the whole file is
// valid.
func Decode(r io.Reader) (reconcile.Payload, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return reconcile.Payload{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if !isArray(raw["expenseHeads"]) || !isArray(raw["expenseEntries"]) {
		return reconcile.Payload{}, fmt.Errorf("%w: expenseHeads and expenseEntries must be arrays", ErrInvalidFormat)
	}

	p := reconcile.Payload{Ledger: core.EmptyLedger()}
	if err := json.Unmarshal(raw["expenseHeads"], &p.Ledger.ExpenseHeads); err != nil {
		return reconcile.Payload{}, fmt.Errorf("%w: expenseHeads: %v", ErrInvalidFormat, err)
	}
	if err := json.Unmarshal(raw["expenseEntries"], &p.Ledger.ExpenseEntries); err != nil {
		return reconcile.Payload{}, fmt.Errorf("%w: expenseEntries: %v", ErrInvalidFormat, err)
	}
	if isArray(raw["events"]) {
		if err := json.Unmarshal(raw["events"], &p.Ledger.Events); err != nil {
			return reconcile.Payload{}, fmt.Errorf("%w: events: %v", ErrInvalidFormat, err)
		}
	} else {
		p.Legacy = true
	}

	for _, e := range p.Ledger.ExpenseEntries {
		if err := core.ValidateImage(e.Image); err != nil {
			return reconcile.Payload{}, fmt.Errorf("entry %s: %w", e.ID, err)
		}
	}
	return p, nil
}

// DecodeFile opens path and decodes it.
func DecodeFile(path string) (reconcile.Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return reconcile.Payload{}, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Encode writes the ledger as indented JSON with all three collections
// present, even when empty.
func Encode(w io.Writer, l core.Ledger) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l.Clone()); err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}
	return nil
}

// Export writes the ledger into dir under ExportFilename(now) and returns
// the file path.
func Export(dir string, l core.Ledger, now time.Time) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, l); err != nil {
		return "", err
	}
	path := filepath.Join(dir, ExportFilename(now))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
