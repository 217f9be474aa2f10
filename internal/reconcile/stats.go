package reconcile

import (
	"fmt"
	"strings"
)

// Stats counts what a merge did with each imported item.
type Stats struct {
	AddedEvents    int `json:"addedEvents"`
	AddedHeads     int `json:"addedExpenseHeads"`
	AddedEntries   int `json:"addedExpenseEntries"`
	SkippedEvents  int `json:"skippedEvents"`
	SkippedHeads   int `json:"skippedExpenseHeads"`
	SkippedEntries int `json:"skippedExpenseEntries"`

	OrphanedHeads   int `json:"orphanedExpenseHeads"`
	OrphanedEntries int `json:"orphanedExpenseEntries"`
}

func (s Stats) Added() int    { return s.AddedEvents + s.AddedHeads + s.AddedEntries }
func (s Stats) Skipped() int  { return s.SkippedEvents + s.SkippedHeads + s.SkippedEntries }
func (s Stats) Orphaned() int { return s.OrphanedHeads + s.OrphanedEntries }

// Summary renders the user-facing import message, e.g.
//
//	Import completed: Added 1 event(s), 2 expense head(s). Skipped 3 duplicate entry/entries
func (s Stats) Summary() string {
	var b strings.Builder
	b.WriteString("Import completed: ")

	added := counts(
		count{s.AddedEvents, "event(s)"},
		count{s.AddedHeads, "expense head(s)"},
		count{s.AddedEntries, "entry/entries"},
	)
	if len(added) == 0 {
		b.WriteString("No new items")
	} else {
		b.WriteString("Added " + strings.Join(added, ", "))
	}

	skipped := counts(
		count{s.SkippedEvents, "duplicate event(s)"},
		count{s.SkippedHeads, "duplicate head(s)"},
		count{s.SkippedEntries, "duplicate entry/entries"},
	)
	if len(skipped) > 0 {
		b.WriteString(". Skipped " + strings.Join(skipped, ", "))
	}

	orphaned := counts(
		count{s.OrphanedHeads, "orphaned head(s)"},
		count{s.OrphanedEntries, "orphaned entry/entries"},
	)
	if len(orphaned) > 0 {
		b.WriteString(". Dropped " + strings.Join(orphaned, ", "))
	}
	return b.String()
}

type count struct {
	n     int
	label string
}

func counts(cs ...count) []string {
	var out []string
	for _, c := range cs {
		if c.n > 0 {
			out = append(out, fmt.Sprintf("%d %s", c.n, c.label))
		}
	}
	return out
}
