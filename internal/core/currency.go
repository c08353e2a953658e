package core

import (
	"strconv"
	"strings"
)

// DefaultCurrencySymbol is used for currency codes without a mapping.
const DefaultCurrencySymbol = "$"

var currencySymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// CurrencySymbol maps a configured ISO 4217 code to its display symbol.
func CurrencySymbol(code string) string {
	if s, ok := currencySymbols[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return s
	}
	return DefaultCurrencySymbol
}

// FormatAmount renders m with the symbol for code, thousands separators and
// two fraction digits: FormatAmount(Money{Cents: 100000}, "USD") == "$1,000.00".
func FormatAmount(m Money, code string) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := CurrencySymbol(code) + groupThousands(cents/100) + "." + pad2(cents%100)
	if neg {
		return "-" + s
	}
	return s
}

func groupThousands(v int64) string {
	digits := strconv.FormatInt(v, 10)
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
