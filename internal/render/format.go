// Package render turns a cashflow.Statement into chat text, a tree view
// and an xlsx workbook.
package render

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Locale controls how monetary values are printed.
type Locale struct {
	Group   string
	Decimal string
}

// RU groups thousands with a space and uses a decimal comma.
var RU = Locale{Group: " ", Decimal: ","}

// Money formats v with two fraction digits, e.g. "-1 234 567,80".
func (l Locale) Money(v decimal.Decimal) string {
	s := v.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg && strings.Trim(whole+frac, "0") != "" {
		b.WriteByte('-')
	}
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(l.Group)
		}
		b.WriteRune(c)
	}
	b.WriteString(l.Decimal)
	b.WriteString(frac)
	return b.String()
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
