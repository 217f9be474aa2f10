package reconcile

import (
	"fmt"
	"strings"
	"time"

	"eventledger/internal/core"
)

// KeyPolicy selects how an entity is identified when two ledgers are merged.
type KeyPolicy string

const (
	// ByID treats two items as the same when their ids match. Use it when
	// both ledgers share an id space, e.g. remote round-trips.
	ByID KeyPolicy = "id"
	// ByNaturalKey compares business fields instead of ids, for imports
	// that were regenerated with fresh ids.
	ByNaturalKey KeyPolicy = "natural"
)

// String implements fmt.Stringer
func (p KeyPolicy) String() string {
	return string(p)
}

// IsValid returns true if the policy is known
func (p KeyPolicy) IsValid() bool {
	switch p {
	case ByID, ByNaturalKey:
		return true
	default:
		return false
	}
}

// ParseKeyPolicy parses a policy name, case-insensitively.
func ParseKeyPolicy(s string) (KeyPolicy, error) {
	p := KeyPolicy(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("invalid dedup policy '%s': must be one of [%s %s]", s, ByID, ByNaturalKey)
	}
	return p, nil
}

// Policy fixes the key policy of each collection. A deployment should keep
// the same policy across runs, otherwise dedup results are unpredictable.
type Policy struct {
	Events  KeyPolicy
	Heads   KeyPolicy
	Entries KeyPolicy
}

// DefaultPolicy deduplicates every collection by id.
func DefaultPolicy() Policy {
	return Policy{Events: ByID, Heads: ByID, Entries: ByID}
}

func (p Policy) Validate() error {
	for name, kp := range map[string]KeyPolicy{"events": p.Events, "heads": p.Heads, "entries": p.Entries} {
		if !kp.IsValid() {
			return fmt.Errorf("invalid dedup policy for %s: '%s'", name, kp)
		}
	}
	return nil
}

const keySep = "\x1f"

func eventKey(p KeyPolicy, e core.Event) string {
	if p == ByID {
		return e.ID
	}
	return strings.Join([]string{e.Name, timeKey(e.StartDate)}, keySep)
}

// headKey includes the event id, already remapped to the merged ledger, so
// equally named heads of different events stay distinct.
func headKey(p KeyPolicy, h core.ExpenseHead) string {
	if p == ByID {
		return h.ID
	}
	return strings.Join([]string{h.EventID, h.Name, h.Category, h.TotalAmount.String()}, keySep)
}

func entryKey(p KeyPolicy, e core.ExpenseEntry) string {
	if p == ByID {
		return e.ID
	}
	return strings.Join([]string{e.ExpenseHeadID, e.AmountPaid.String(), timeKey(e.Date)}, keySep)
}

func timeKey(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
