package core

import (
	"fmt"
	"sort"
)

// Derived figures are recomputed from the raw collections on every call.
// Nothing here is cached.

// HeadStats is an expense head with its paid and due amounts.
type HeadStats struct {
	ExpenseHead
	AmountPaid Amount `json:"amountPaid"`
	AmountDue  Amount `json:"amountDue"`
}

// EventStats is an event with the rollup of its expense heads.
type EventStats struct {
	Event
	TotalExpenseHeads int    `json:"totalExpenseHeads"`
	TotalBudget       Amount `json:"totalBudget"`
	TotalSpent        Amount `json:"totalSpent"`
	TotalDue          Amount `json:"totalDue"`
}

// OverpaymentWarning is raised, without blocking the payment, when a payment
// exceeds what is still due on its head.
type OverpaymentWarning struct {
	ExpenseHeadID string
	Amount        Amount
	Remaining     Amount
}

func (w OverpaymentWarning) String() string {
	return fmt.Sprintf("amount paid (%s) exceeds remaining amount (%s)",
		w.Amount.StringFixed(2), w.Remaining.StringFixed(2))
}

// AmountPaid sums the payments recorded against a head. It is 0 when there
// are none.
func AmountPaid(l Ledger, headID string) Amount {
	total := Amount{}
	for _, e := range l.ExpenseEntries {
		if e.ExpenseHeadID == headID {
			total = total.Add(e.AmountPaid)
		}
	}
	return total
}

// AmountDue is the head budget minus what was paid. It goes negative on
// overpayment and is 0 for an unknown head.
func AmountDue(l Ledger, headID string) Amount {
	head, ok := l.FindHead(headID)
	if !ok {
		return Amount{}
	}
	return head.TotalAmount.Sub(AmountPaid(l, headID))
}

// EventRollup aggregates the heads of one event.
func EventRollup(l Ledger, eventID string) EventStats {
	stats := EventStats{}
	if ev, ok := l.FindEvent(eventID); ok {
		stats.Event = ev
	} else {
		stats.ID = eventID
	}
	for _, h := range l.ExpenseHeads {
		if h.EventID != eventID {
			continue
		}
		stats.TotalExpenseHeads++
		stats.TotalBudget = stats.TotalBudget.Add(h.TotalAmount)
		stats.TotalSpent = stats.TotalSpent.Add(AmountPaid(l, h.ID))
	}
	stats.TotalDue = stats.TotalBudget.Sub(stats.TotalSpent)
	return stats
}

// HeadsWithStats returns every head, in ledger order, with its figures.
func HeadsWithStats(l Ledger) []HeadStats {
	out := make([]HeadStats, 0, len(l.ExpenseHeads))
	for _, h := range l.ExpenseHeads {
		out = append(out, HeadStats{
			ExpenseHead: h,
			AmountPaid:  AmountPaid(l, h.ID),
			AmountDue:   AmountDue(l, h.ID),
		})
	}
	return out
}

// EventsWithStats returns every event, in ledger order, with its rollup.
func EventsWithStats(l Ledger) []EventStats {
	out := make([]EventStats, 0, len(l.Events))
	for _, ev := range l.Events {
		out = append(out, EventRollup(l, ev.ID))
	}
	return out
}

// HeadsByEvent groups the heads with their figures by event id.
func HeadsByEvent(l Ledger) map[string][]HeadStats {
	out := make(map[string][]HeadStats)
	for _, h := range HeadsWithStats(l) {
		out[h.EventID] = append(out[h.EventID], h)
	}
	return out
}

// EntriesForHead returns the payment history of a head, newest first.
func EntriesForHead(l Ledger, headID string) []ExpenseEntry {
	var out []ExpenseEntry
	for _, e := range l.ExpenseEntries {
		if e.ExpenseHeadID == headID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// CheckOverpayment returns a warning when paying amount on the head would
// exceed what is still due. It returns nil for an unknown head.
func CheckOverpayment(l Ledger, headID string, amount Amount) *OverpaymentWarning {
	if _, ok := l.FindHead(headID); !ok {
		return nil
	}
	due := AmountDue(l, headID)
	if !amount.GreaterThan(due) {
		return nil
	}
	return &OverpaymentWarning{
		ExpenseHeadID: headID,
		Amount:        amount,
		Remaining:     due,
	}
}
