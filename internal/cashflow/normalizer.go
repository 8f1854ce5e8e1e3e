package cashflow

import (
	"maps"
	"strings"
)

// Account identifies one of the two cash accounts tracked by the statement.
type Account int

const (
	// AccountNone marks a raw account name that matched no known cash account.
	AccountNone Account = iota - 1
	// AccountMain is the main cash register.
	AccountMain
	// AccountTrades is the trading-floor cash registers.
	AccountTrades
)

const numAccounts = 2

// Accounts lists the canonical accounts in column order.
var Accounts = [numAccounts]Account{AccountMain, AccountTrades}

// Valid reports whether a is one of the canonical accounts.
func (a Account) Valid() bool {
	return a == AccountMain || a == AccountTrades
}

// String returns the display label of the account.
func (a Account) String() string {
	switch a {
	case AccountMain:
		return "Главная касса"
	case AccountTrades:
		return "Торговые кассы"
	default:
		return ""
	}
}

// Vocabulary is the lookup configuration of a Normalizer.
type Vocabulary struct {
	// MainFragments and TradesFragments are matched case-insensitively as
	// substrings of the raw account name. Main is tried first.
	MainFragments   []string
	TradesFragments []string

	// CategorySynonyms maps a raw category label to its canonical label.
	// Lookup is exact.
	CategorySynonyms map[string]string
}

// DefaultVocabulary returns the Russian/English vocabulary used by the
// back office of a single restaurant chart of accounts.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		MainFragments: []string{
			"главная касса",
			"main cash",
		},
		TradesFragments: []string{
			"торгов",
			"trade",
			"trading",
		},
		CategorySynonyms: map[string]string{
			"Loan":     "Займ",
			"Loans":    "Займ",
			"Займы":    "Займ",
			"Salary":   "Зарплата",
			"Salaries": "Зарплата",
			"Rent":     "Аренда",
			"Revenue":  "Выручка",
		},
	}
}

// Normalizer maps raw account and category labels onto the canonical
// vocabulary. It is immutable and safe for concurrent use.
type Normalizer struct {
	main     []string
	trades   []string
	synonyms map[string]string
}

// NewNormalizer builds a Normalizer from v. The vocabulary is copied.
func NewNormalizer(v Vocabulary) *Normalizer {
	return &Normalizer{
		main:     lowerAll(v.MainFragments),
		trades:   lowerAll(v.TradesFragments),
		synonyms: maps.Clone(v.CategorySynonyms),
	}
}

// Account returns the canonical account for a raw account name, or
// AccountNone when the name matches neither account.
func (n *Normalizer) Account(raw string) Account {
	s := strings.ToLower(raw)
	if s == "" {
		return AccountNone
	}
	if containsAny(s, n.main) {
		return AccountMain
	}
	if containsAny(s, n.trades) {
		return AccountTrades
	}
	return AccountNone
}

// Category returns the canonical label for a raw category. Unknown labels
// are returned unchanged.
func (n *Normalizer) Category(raw string) string {
	if c, ok := n.synonyms[raw]; ok {
		return c
	}
	return raw
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}
