// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from user-typed
// strings and for rendering cents back into decimal text.
package core

import (
	"strconv"
	"strings"
)

// ParseAmount converts a decimal string to Money with half-up rounding.
//
// Both dot (12.34) and comma (12,34) separators are accepted. The third
// fractional digit rounds the cents. Signs, empty input, non-digits and
// zero amounts are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("15.50")  -> 1550
//	ParseAmount("12,34")  -> 1234
//	ParseAmount("1.005")  -> 101
//	ParseAmount("400")    -> 40000
func ParseAmount(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || s == "." {
		return Money{}, ErrInvalidAmount
	}

	whole, frac, _ := strings.Cut(s, ".")
	if strings.Contains(frac, ".") || !allDigits(whole) || !allDigits(frac) {
		return Money{}, ErrInvalidAmount
	}
	if whole == "" {
		whole = "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	const maxUnits = (1<<63 - 1) / 100
	if units > maxUnits-1 {
		return Money{}, ErrInvalidAmount
	}

	var cents int64
	for i := 0; i < len(frac) && i < 2; i++ {
		cents = cents*10 + int64(frac[i]-'0')
	}
	if len(frac) == 1 {
		cents *= 10
	}
	if len(frac) > 2 && frac[2] >= '5' {
		cents++
	}

	total := units*100 + cents
	if total <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: total}, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Float returns the decimal value for display and JSON output.
// Arithmetic stays in cents.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

// Decimal renders the amount as plain text with two fraction digits, e.g. "15.50".
func (m Money) Decimal() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + strconv.FormatInt(cents/100, 10) + "." + pad2(cents%100)
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func pad2(v int64) string {
	if v < 10 {
		return "0" + strconv.FormatInt(v, 10)
	}
	return strconv.FormatInt(v, 10)
}
