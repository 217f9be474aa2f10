package reconcile

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"eventledger/internal/core"
)

const (
	ImportedEventName        = "Imported Expenses"
	ImportedEventDescription = "Auto-created event for imported expenses"
)

// legacySpace namespaces the ids of events synthesized for legacy payloads.
var legacySpace = uuid.MustParse("a3e1d6c2-7f48-4c0b-8e95-61b2f0d7c4a9")

// Payload is a decoded ledger before schema normalization. Legacy is set
// when the source had no events collection.
type Payload struct {
	Ledger core.Ledger
	Legacy bool
}

// Normalize upgrades a legacy payload: it synthesizes exactly one event
// starting at now and attaches every head without an event to it. A current
// payload is returned unchanged.
//
// The synthesized event id is derived from the payload's heads and entries,
// so importing the same legacy file again finds the event from last time.
func Normalize(p Payload, now time.Time) core.Ledger {
	l := p.Ledger.Clone()
	if !p.Legacy {
		return l
	}
	ev := core.Event{
		ID:          legacyEventID(l),
		Name:        ImportedEventName,
		Description: ImportedEventDescription,
		StartDate:   now,
		CreatedAt:   now,
	}
	l.Events = []core.Event{ev}
	for i := range l.ExpenseHeads {
		if l.ExpenseHeads[i].EventID == "" {
			l.ExpenseHeads[i].EventID = ev.ID
		}
	}
	return l
}

func legacyEventID(l core.Ledger) string {
	var b strings.Builder
	for _, h := range l.ExpenseHeads {
		b.WriteString(strings.Join([]string{"h", h.ID, h.Name, h.Category, h.TotalAmount.String()}, keySep))
		b.WriteString(keySep)
	}
	for _, e := range l.ExpenseEntries {
		b.WriteString(strings.Join([]string{"e", e.ID, e.ExpenseHeadID, e.AmountPaid.String(), timeKey(e.Date)}, keySep))
		b.WriteString(keySep)
	}
	return core.PrefixEvent + "-" + uuid.NewSHA1(legacySpace, []byte(b.String())).String()
}
