package utils

import "github.com/shopspring/decimal"

// FormatMinorUnits renders an integer minor-unit amount as a
// two-decimal major-unit string, e.g. 1550 -> "15.50".  The core only
// ever computes on integers; this is display formatting for API
// responses and events.
func FormatMinorUnits(amount int64) string {
	return decimal.NewFromInt(amount).Div(decimal.NewFromInt(100)).StringFixed(2)
}
