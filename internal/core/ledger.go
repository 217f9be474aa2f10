package core

import (
	"fmt"
	"time"
)

type (
	// NewEvent carries the user-supplied fields of an event.
	NewEvent struct {
		Name        string
		Description string
		StartDate   time.Time
		EndDate     *time.Time
	}

	// NewExpenseHead carries the user-supplied fields of an expense head.
	NewExpenseHead struct {
		EventID     string
		Name        string
		Category    string
		TotalAmount Amount
	}

	// NewExpenseEntry carries the user-supplied fields of a payment. A zero
	// Date means "now".
	NewExpenseEntry struct {
		ExpenseHeadID string
		AmountPaid    Amount
		Date          time.Time
		Image         string
	}
)

// Store holds the current ledger and owns its mutation primitives.
//
// Store has no internal locking: it is meant to be driven from a single
// logical thread of control. Every mutation builds new collections instead
// of editing the previous ones in place, so ledgers returned earlier are
// never affected by later calls.
type Store struct {
	ledger Ledger
	ids    IDSource
	now    func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIDSource replaces the default uuid-based id generator.
func WithIDSource(ids IDSource) StoreOption {
	return func(s *Store) { s.ids = ids }
}

// WithClock replaces the wall clock used to stamp creation times.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore returns a store seeded with a copy of l.
func NewStore(l Ledger, opts ...StoreOption) *Store {
	s := &Store{
		ledger: l.Clone(),
		ids:    UUIDSource{},
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a deep copy of the current ledger.
func (s *Store) Snapshot() Ledger {
	return s.ledger.Clone()
}

// Replace swaps the whole ledger, e.g. after an import or a remote load.
func (s *Store) Replace(l Ledger) {
	s.ledger = l.Clone()
}

// Clear resets all three collections.
func (s *Store) Clear() Ledger {
	s.ledger = EmptyLedger()
	return s.Snapshot()
}

func (s *Store) CreateEvent(in NewEvent) (Event, error) {
	ev := Event{
		ID:          s.ids.NewID(PrefixEvent),
		Name:        in.Name,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		CreatedAt:   s.now(),
	}
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	s.ledger.Events = appendCopy(s.ledger.Events, ev)
	return ev, nil
}

// CreateExpenseHead appends a head to an existing event.
func (s *Store) CreateExpenseHead(in NewExpenseHead) (ExpenseHead, error) {
	if _, ok := s.ledger.FindEvent(in.EventID); !ok {
		return ExpenseHead{}, fmt.Errorf("%w: %s", ErrEventNotFound, in.EventID)
	}
	head := ExpenseHead{
		ID:          s.ids.NewID(PrefixHead),
		EventID:     in.EventID,
		Name:        in.Name,
		Category:    in.Category,
		TotalAmount: in.TotalAmount,
		CreatedAt:   s.now(),
	}
	if err := head.Validate(); err != nil {
		return ExpenseHead{}, err
	}
	s.ledger.ExpenseHeads = appendCopy(s.ledger.ExpenseHeads, head)
	return head, nil
}

// CreateExpenseEntry records a payment against an existing head.
//
// Paying more than the remaining amount is allowed; in that case the
// returned warning is non-nil and the entry is stored anyway.
func (s *Store) CreateExpenseEntry(in NewExpenseEntry) (ExpenseEntry, *OverpaymentWarning, error) {
	if _, ok := s.ledger.FindHead(in.ExpenseHeadID); !ok {
		return ExpenseEntry{}, nil, fmt.Errorf("%w: %s", ErrHeadNotFound, in.ExpenseHeadID)
	}
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	entry := ExpenseEntry{
		ID:            s.ids.NewID(PrefixEntry),
		ExpenseHeadID: in.ExpenseHeadID,
		AmountPaid:    in.AmountPaid,
		Date:          date,
		Image:         in.Image,
	}
	if err := entry.Validate(); err != nil {
		return ExpenseEntry{}, nil, err
	}
	warning := CheckOverpayment(s.ledger, in.ExpenseHeadID, in.AmountPaid)
	s.ledger.ExpenseEntries = appendCopy(s.ledger.ExpenseEntries, entry)
	return entry, warning, nil
}

// DeleteEvent removes the event, its heads and the entries of those heads
// in one step.
func (s *Store) DeleteEvent(id string) Ledger {
	affected := make(map[string]struct{})
	heads := make([]ExpenseHead, 0, len(s.ledger.ExpenseHeads))
	for _, h := range s.ledger.ExpenseHeads {
		if h.EventID == id {
			affected[h.ID] = struct{}{}
			continue
		}
		heads = append(heads, h)
	}
	events := make([]Event, 0, len(s.ledger.Events))
	for _, e := range s.ledger.Events {
		if e.ID != id {
			events = append(events, e)
		}
	}
	s.ledger = Ledger{
		Events:         events,
		ExpenseHeads:   heads,
		ExpenseEntries: filterEntries(s.ledger.ExpenseEntries, affected),
	}
	return s.Snapshot()
}

// DeleteExpenseHead removes the head and its entries in one step.
func (s *Store) DeleteExpenseHead(id string) Ledger {
	heads := make([]ExpenseHead, 0, len(s.ledger.ExpenseHeads))
	for _, h := range s.ledger.ExpenseHeads {
		if h.ID != id {
			heads = append(heads, h)
		}
	}
	s.ledger = Ledger{
		Events:         s.ledger.Events,
		ExpenseHeads:   heads,
		ExpenseEntries: filterEntries(s.ledger.ExpenseEntries, map[string]struct{}{id: {}}),
	}
	return s.Snapshot()
}

func (s *Store) DeleteExpenseEntry(id string) Ledger {
	entries := make([]ExpenseEntry, 0, len(s.ledger.ExpenseEntries))
	for _, e := range s.ledger.ExpenseEntries {
		if e.ID != id {
			entries = append(entries, e)
		}
	}
	s.ledger.ExpenseEntries = entries
	return s.Snapshot()
}

// UpdateExpenseHeadAmount replaces the budget of one head. An unknown id is a
// no-op; an invalid amount is rejected before anything changes.
func (s *Store) UpdateExpenseHeadAmount(id string, total Amount) error {
	if err := ValidateBudget(total); err != nil {
		return err
	}
	heads := make([]ExpenseHead, len(s.ledger.ExpenseHeads))
	copy(heads, s.ledger.ExpenseHeads)
	for i := range heads {
		if heads[i].ID == id {
			heads[i].TotalAmount = total
		}
	}
	s.ledger.ExpenseHeads = heads
	return nil
}

// UpdateExpenseEntryAmount replaces the amount of one entry. An unknown id is
// a no-op; an invalid amount is rejected before anything changes.
func (s *Store) UpdateExpenseEntryAmount(id string, amount Amount) error {
	if err := ValidatePayment(amount); err != nil {
		return err
	}
	entries := make([]ExpenseEntry, len(s.ledger.ExpenseEntries))
	copy(entries, s.ledger.ExpenseEntries)
	for i := range entries {
		if entries[i].ID == id {
			entries[i].AmountPaid = amount
		}
	}
	s.ledger.ExpenseEntries = entries
	return nil
}

func filterEntries(entries []ExpenseEntry, headIDs map[string]struct{}) []ExpenseEntry {
	out := make([]ExpenseEntry, 0, len(entries))
	for _, e := range entries {
		if _, ok := headIDs[e.ExpenseHeadID]; ok {
			continue
		}
		out = append(out, e)
	}
	return out
}

// appendCopy appends to a fresh backing array.
func appendCopy[T any](items []T, item T) []T {
	out := make([]T, len(items), len(items)+1)
	copy(out, items)
	return append(out, item)
}
