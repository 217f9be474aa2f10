// Package report renders budget rollups of a ledger for people to read.
package report

import (
	"time"

	"eventledger/internal/core"
)

type (
	// Report is a point-in-time view of a ledger, grouped by event.
	Report struct {
		Currency    string
		GeneratedAt time.Time
		Events      []EventSection
		// Unassigned holds heads whose event no longer exists.
		Unassigned []core.HeadStats
		Totals     Totals
	}

	EventSection struct {
		core.EventStats
		Heads []core.HeadStats
	}

	Totals struct {
		Budget core.Amount
		Spent  core.Amount
		Due    core.Amount
	}
)

// Build computes a report from l. Events and heads keep ledger order.
func Build(l core.Ledger, currency string, now time.Time) Report {
	byEvent := core.HeadsByEvent(l)
	r := Report{Currency: currency, GeneratedAt: now}

	known := make(map[string]struct{}, len(l.Events))
	for _, ev := range core.EventsWithStats(l) {
		known[ev.ID] = struct{}{}
		r.Events = append(r.Events, EventSection{EventStats: ev, Heads: byEvent[ev.ID]})
		r.Totals.Budget = r.Totals.Budget.Add(ev.TotalBudget)
		r.Totals.Spent = r.Totals.Spent.Add(ev.TotalSpent)
	}
	for _, h := range core.HeadsWithStats(l) {
		if _, ok := known[h.EventID]; !ok {
			r.Unassigned = append(r.Unassigned, h)
		}
	}
	r.Totals.Due = r.Totals.Budget.Sub(r.Totals.Spent)
	return r
}

// Table flattens the report into rows, one per head, preceded by a header
// row. Amounts are plain decimals so spreadsheets can compute on them.
func (r Report) Table() [][]string {
	rows := [][]string{{"Event", "Start", "Expense head", "Category", "Budget", "Paid", "Due"}}
	for _, ev := range r.Events {
		start := ev.StartDate.Format(time.DateOnly)
		if len(ev.Heads) == 0 {
			rows = append(rows, []string{ev.Name, start, "", "", "0.00", "0.00", "0.00"})
			continue
		}
		for _, h := range ev.Heads {
			rows = append(rows, headRow(ev.Name, start, h))
		}
	}
	for _, h := range r.Unassigned {
		rows = append(rows, headRow("", "", h))
	}
	rows = append(rows, []string{"Total", "", "", "",
		r.Totals.Budget.StringFixed(2), r.Totals.Spent.StringFixed(2), r.Totals.Due.StringFixed(2)})
	return rows
}

func headRow(event, start string, h core.HeadStats) []string {
	return []string{event, start, h.Name, h.Category,
		h.TotalAmount.StringFixed(2), h.AmountPaid.StringFixed(2), h.AmountDue.StringFixed(2)}
}
