package report

import (
	"github.com/Rhymond/go-money"

	"eventledger/internal/core"
)

// FormatAmount renders a in the given ISO 4217 currency, e.g. "₹15,000.00"
// for INR. Amounts are rounded to the currency's minor unit.
func FormatAmount(a core.Amount, code string) string {
	// money.New never returns a nil currency, unlike money.GetCurrency.
	cur := *money.New(0, code).Currency()
	minor := a.Decimal().Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}
