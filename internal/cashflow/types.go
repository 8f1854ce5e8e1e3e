package cashflow

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxDepth is the number of category hierarchy levels carried by a row.
const MaxDepth = 3

// Activity is the top-level classification of a movement.
type Activity int

const (
	ActivityNone Activity = iota
	ActivityOperational
	ActivityFinancing
)

// Activities lists the activity sections in statement order.
var Activities = []Activity{ActivityOperational, ActivityFinancing}

// ParseActivity maps the upstream activity type onto an Activity.
// Unrecognised values yield ActivityNone.
func ParseActivity(raw string) Activity {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "OPERATIONAL", "OPERATION", "OPERATING", "ОПЕРАЦИОННАЯ ДЕЯТЕЛЬНОСТЬ":
		return ActivityOperational
	case "FINANCE", "FINANCIAL", "FINANCING", "ФИНАНСОВАЯ ДЕЯТЕЛЬНОСТЬ":
		return ActivityFinancing
	default:
		return ActivityNone
	}
}

// String returns the section label of the activity.
func (a Activity) String() string {
	switch a {
	case ActivityOperational:
		return "Операционная деятельность"
	case ActivityFinancing:
		return "Финансовая деятельность"
	default:
		return ""
	}
}

// TransactionRow is one raw record fetched from the back office.
//
// Rows with an empty first category level are balance rows and carry
// StartBalance/FinalBalance; all other rows are movement rows and carry
// Incoming/Outgoing. Absent numeric fields are zero.
type TransactionRow struct {
	Date         time.Time
	Account      string
	Category     [MaxDepth]string
	Activity     string
	Incoming     decimal.Decimal
	Outgoing     decimal.Decimal
	StartBalance decimal.Decimal
	FinalBalance decimal.Decimal
}

// IsBalance reports whether r is a balance row.
func (r TransactionRow) IsBalance() bool {
	return r.Category[0] == ""
}

// RowKind is the role of a StatementRow.
type RowKind int

const (
	RowOpening RowKind = iota
	RowSection
	RowInflow
	RowOutflow
	RowClosing
)

func (k RowKind) String() string {
	switch k {
	case RowOpening:
		return "opening"
	case RowSection:
		return "section"
	case RowInflow:
		return "inflow"
	case RowOutflow:
		return "outflow"
	case RowClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// StatementRow is one line of a Statement.
//
// Movement rows carry signed amounts (outflows negated), balance rows carry
// balances and section rows carry zeros. Total is always the sum of Values.
type StatementRow struct {
	Kind     RowKind
	Activity Activity
	Category [MaxDepth]string
	Values   [numAccounts]decimal.Decimal
	Total    decimal.Decimal
}

// Value returns the amount of the row for account a.
func (r StatementRow) Value(a Account) decimal.Decimal {
	if !a.Valid() {
		return decimal.Zero
	}
	return r.Values[a]
}

// Label returns the display label of the row: the balance caption, the
// activity name for section rows, or the deepest category level.
func (r StatementRow) Label() string {
	switch r.Kind {
	case RowOpening:
		return "Остаток на начало"
	case RowClosing:
		return "Остаток на конец"
	case RowSection:
		return r.Activity.String()
	}
	for i := MaxDepth - 1; i >= 0; i-- {
		if r.Category[i] != "" {
			return r.Category[i]
		}
	}
	return ""
}

// Statement is the ordered output of a builder: the opening balance row,
// the movement sections, and the closing balance row.
type Statement struct {
	Rows []StatementRow
}

// Opening returns the opening balance row.
func (s Statement) Opening() StatementRow {
	if len(s.Rows) == 0 {
		return StatementRow{Kind: RowOpening}
	}
	return s.Rows[0]
}

// Closing returns the closing balance row.
func (s Statement) Closing() StatementRow {
	if len(s.Rows) == 0 {
		return StatementRow{Kind: RowClosing}
	}
	return s.Rows[len(s.Rows)-1]
}

// Movements returns the section and movement rows between the balances.
func (s Statement) Movements() []StatementRow {
	if len(s.Rows) < 2 {
		return nil
	}
	return s.Rows[1 : len(s.Rows)-1]
}

// HasMovements reports whether the statement has any movement rows.
func (s Statement) HasMovements() bool {
	return len(s.Movements()) > 0
}
