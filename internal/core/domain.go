package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxImageBytes bounds the inline receipt payload carried by an entry.
const MaxImageBytes = 5 * 1024 * 1024

type (
	// Event is the root of the ownership hierarchy.
	Event struct {
		ID          string     `json:"id"`
		Name        string     `json:"name"`
		Description string     `json:"description,omitempty"`
		StartDate   time.Time  `json:"startDate"`
		EndDate     *time.Time `json:"endDate,omitempty"`
		CreatedAt   time.Time  `json:"createdAt"`
	}

	// ExpenseHead is a budget line of an event. TotalAmount is the budget
	// ceiling and may be edited after creation.
	ExpenseHead struct {
		ID          string    `json:"id"`
		EventID     string    `json:"eventId"`
		Name        string    `json:"name"`
		Category    string    `json:"category"`
		TotalAmount Amount    `json:"totalAmount"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	// ExpenseEntry is one payment against an expense head. Date is when the
	// payment happened, which the user may backdate.
	ExpenseEntry struct {
		ID            string    `json:"id"`
		ExpenseHeadID string    `json:"expenseHeadId"`
		AmountPaid    Amount    `json:"amountPaid"`
		Date          time.Time `json:"date"`
		Image         string    `json:"image,omitempty"` // opaque, e.g. a base64 receipt scan
	}

	// Ledger is the aggregate root: the unit of persistence, transfer and sync.
	Ledger struct {
		Events         []Event        `json:"events"`
		ExpenseHeads   []ExpenseHead  `json:"expenseHeads"`
		ExpenseEntries []ExpenseEntry `json:"expenseEntries"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyCategory    = errors.New("empty category")
	ErrMissingStartDate = errors.New("missing start date")
	ErrEndBeforeStart   = errors.New("end date must not be before start date")
	ErrImageTooLarge    = errors.New("image too large")
	ErrEventNotFound    = errors.New("event not found")
	ErrHeadNotFound     = errors.New("expense head not found")
)

// Validate checks the fields a user supplies for an event.
func (e Event) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if e.StartDate.IsZero() {
		return ErrMissingStartDate
	}
	if e.EndDate != nil && e.EndDate.Before(e.StartDate) {
		return ErrEndBeforeStart
	}
	return nil
}

func (h ExpenseHead) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(h.Category) == "" {
		return ErrEmptyCategory
	}
	return ValidateBudget(h.TotalAmount)
}

func (e ExpenseEntry) Validate() error {
	if err := ValidatePayment(e.AmountPaid); err != nil {
		return err
	}
	return ValidateImage(e.Image)
}

// ValidateBudget accepts zero and positive budgets.
func ValidateBudget(a Amount) error {
	if a.IsNegative() {
		return fmt.Errorf("%w: budget must not be negative", ErrInvalidAmount)
	}
	return nil
}

// ValidatePayment accepts strictly positive payments.
func ValidatePayment(a Amount) error {
	if !a.IsPositive() {
		return fmt.Errorf("%w: must be greater than 0", ErrInvalidAmount)
	}
	return nil
}

func ValidateImage(image string) error {
	if len(image) > MaxImageBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrImageTooLarge, len(image), MaxImageBytes)
	}
	return nil
}

// EmptyLedger returns a ledger whose collections are empty, non-nil slices,
// so it serialises as three empty arrays.
func EmptyLedger() Ledger {
	return Ledger{
		Events:         []Event{},
		ExpenseHeads:   []ExpenseHead{},
		ExpenseEntries: []ExpenseEntry{},
	}
}

// Clone returns a deep copy of the ledger.
func (l Ledger) Clone() Ledger {
	out := Ledger{
		Events:         make([]Event, len(l.Events)),
		ExpenseHeads:   make([]ExpenseHead, len(l.ExpenseHeads)),
		ExpenseEntries: make([]ExpenseEntry, len(l.ExpenseEntries)),
	}
	copy(out.Events, l.Events)
	copy(out.ExpenseHeads, l.ExpenseHeads)
	copy(out.ExpenseEntries, l.ExpenseEntries)
	for i, ev := range out.Events {
		if ev.EndDate != nil {
			end := *ev.EndDate
			out.Events[i].EndDate = &end
		}
	}
	return out
}

// IsEmpty reports whether the ledger holds no entity at all.
func (l Ledger) IsEmpty() bool {
	return len(l.Events) == 0 && len(l.ExpenseHeads) == 0 && len(l.ExpenseEntries) == 0
}

func (l Ledger) FindEvent(id string) (Event, bool) {
	for _, e := range l.Events {
		if e.ID == id {
			return e, true
		}
	}
	return Event{}, false
}

func (l Ledger) FindHead(id string) (ExpenseHead, bool) {
	for _, h := range l.ExpenseHeads {
		if h.ID == id {
			return h, true
		}
	}
	return ExpenseHead{}, false
}

func (l Ledger) FindEntry(id string) (ExpenseEntry, bool) {
	for _, e := range l.ExpenseEntries {
		if e.ID == id {
			return e, true
		}
	}
	return ExpenseEntry{}, false
}

// Orphans returns the ids of heads without an event and of entries without
// a head. A consistent ledger returns two empty slices.
func (l Ledger) Orphans() (heads []string, entries []string) {
	events := make(map[string]struct{}, len(l.Events))
	for _, e := range l.Events {
		events[e.ID] = struct{}{}
	}
	headIDs := make(map[string]struct{}, len(l.ExpenseHeads))
	for _, h := range l.ExpenseHeads {
		headIDs[h.ID] = struct{}{}
		if _, ok := events[h.EventID]; !ok {
			heads = append(heads, h.ID)
		}
	}
	for _, e := range l.ExpenseEntries {
		if _, ok := headIDs[e.ExpenseHeadID]; !ok {
			entries = append(entries, e.ID)
		}
	}
	return heads, entries
}
