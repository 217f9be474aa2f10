// Package core provides money parsing and handling utilities.
//
// This file contains the Amount type used for budgets and payments and the
// functions that parse user input into amounts.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is an exact monetary value expressed in the major currency unit.
//
// Amounts are serialised as plain JSON numbers so exported ledgers stay
// readable by tools that expect numeric fields. The zero value is 0.
type Amount struct {
	d decimal.Decimal
}

// NewAmount wraps a decimal value.
func NewAmount(d decimal.Decimal) Amount { return Amount{d: d} }

// AmountFromInt returns an amount of v major units.
func AmountFromInt(v int64) Amount { return Amount{d: decimal.NewFromInt(v)} }

// AmountFromFloat converts a float, typically coming from a JSON number.
func AmountFromFloat(f float64) Amount { return Amount{d: decimal.NewFromFloat(f)} }

// ParseAmount converts user input into an amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// surrounding whitespace. Signs are rejected: whether zero is acceptable is
// decided by the caller (budgets may be zero, payments may not).
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Amount{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, ErrInvalidAmount
	}
	return Amount{d: d}, nil
}

func (a Amount) Decimal() decimal.Decimal  { return a.d }
func (a Amount) Add(b Amount) Amount       { return Amount{d: a.d.Add(b.d)} }
func (a Amount) Sub(b Amount) Amount       { return Amount{d: a.d.Sub(b.d)} }
func (a Amount) Equal(b Amount) bool       { return a.d.Equal(b.d) }
func (a Amount) GreaterThan(b Amount) bool { return a.d.GreaterThan(b.d) }
func (a Amount) IsZero() bool              { return a.d.IsZero() }
func (a Amount) IsPositive() bool          { return a.d.IsPositive() }
func (a Amount) IsNegative() bool          { return a.d.IsNegative() }

// StringFixed returns the amount rounded to the given number of places.
func (a Amount) StringFixed(places int32) string { return a.d.StringFixed(places) }

// String returns the canonical representation, without trailing zeros.
func (a Amount) String() string { return a.d.String() }

// MarshalJSON writes the amount as a bare JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.d.String()), nil
}

// UnmarshalJSON accepts JSON numbers as well as quoted decimal strings.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return ErrInvalidAmount
	}
	a.d = d
	return nil
}

// SumAmounts adds up a list of amounts.
func SumAmounts(amounts ...Amount) Amount {
	total := Amount{}
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
