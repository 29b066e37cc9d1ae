package utils

import (
	"fmt"
	"strings"
)

var currencySymbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"JPY": "¥",
	"CHF": "CHF",
	"PLN": "zł",
	"SEK": "kr",
	"NOK": "kr",
	"DKK": "kr",
}

// FormatCurrency renders an amount with its currency symbol, falling back to
// the ISO code when no symbol is known.
func FormatCurrency(amount float64, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	symbol, ok := currencySymbols[code]
	if !ok {
		return fmt.Sprintf("%.2f %s", amount, code)
	}
	if symbol == "$" || symbol == "£" {
		return fmt.Sprintf("%s%.2f", symbol, amount)
	}
	return fmt.Sprintf("%.2f %s", amount, symbol)
}
