package iiko

import (
	"strings"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/cashflow-bot/internal/cashflow"
)

// OLAP field names of the TRANSACTIONS report.
const (
	FieldDate         = "DateTime.DateTyped"
	FieldAccount      = "Account.Name"
	FieldLevel1       = "CashFlowCategory.Hierarchy.Level1"
	FieldLevel2       = "CashFlowCategory.Hierarchy.Level2"
	FieldLevel3       = "CashFlowCategory.Hierarchy.Level3"
	FieldActivity     = "CashFlowCategory.Type"
	FieldIncoming     = "Sum.Incoming"
	FieldOutgoing     = "Sum.Outgoing"
	FieldStartBalance = "StartBalance.Money"
	FieldFinalBalance = "FinalBalance.Money"
)

var levelFields = [cashflow.MaxDepth]string{FieldLevel1, FieldLevel2, FieldLevel3}

type dateFilter struct {
	FilterType  string `json:"filterType"`
	PeriodType  string `json:"periodType"`
	From        string `json:"from"`
	To          string `json:"to"`
	IncludeLow  bool   `json:"includeLow"`
	IncludeHigh bool   `json:"includeHigh"`
}

type olapRequest struct {
	ReportType       string                `json:"reportType"`
	BuildSummary     string                `json:"buildSummary"`
	GroupByRowFields []string              `json:"groupByRowFields"`
	AggregateFields  []string              `json:"aggregateFields"`
	Filters          map[string]dateFilter `json:"filters"`
}

func newTransactionsRequest(from, to time.Time) olapRequest {
	return olapRequest{
		ReportType:   "TRANSACTIONS",
		BuildSummary: "false",
		GroupByRowFields: []string{
			FieldDate, FieldAccount, FieldLevel1, FieldLevel2, FieldLevel3, FieldActivity,
		},
		AggregateFields: []string{
			FieldIncoming, FieldOutgoing, FieldStartBalance, FieldFinalBalance,
		},
		Filters: map[string]dateFilter{
			FieldDate: {
				FilterType: "DateRange",
				PeriodType: "CUSTOM",
				From:       from.Format(dateLayout),
				To:         to.Format(dateLayout),
				IncludeLow: true,
			},
		},
	}
}

// Record is one OLAP result row keyed by field name. Values are kept raw
// so amounts decode without float rounding.
type Record map[string]jsontext.Value

// Text returns field as a string. Missing, null and non-string values
// yield "".
func (r Record) Text(field string) string {
	v, ok := r[field]
	if !ok || v.Kind() != '"' {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// Amount returns field as a decimal. Numbers may arrive as JSON numbers or
// numeric strings; anything else yields zero.
func (r Record) Amount(field string) decimal.Decimal {
	v, ok := r[field]
	if !ok {
		return decimal.Zero
	}
	var raw string
	switch v.Kind() {
	case '0':
		raw = string(v)
	case '"':
		raw = strings.ReplaceAll(r.Text(field), ",", ".")
	default:
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Date returns the row date, or the zero time when absent or malformed.
func (r Record) Date() time.Time {
	s := r.Text(FieldDate)
	for _, layout := range []string{dateLayout, "2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Row converts r into a TransactionRow. Absent fields become zero values.
func (r Record) Row() cashflow.TransactionRow {
	row := cashflow.TransactionRow{
		Date:         r.Date(),
		Account:      r.Text(FieldAccount),
		Activity:     r.Text(FieldActivity),
		Incoming:     r.Amount(FieldIncoming),
		Outgoing:     r.Amount(FieldOutgoing),
		StartBalance: r.Amount(FieldStartBalance),
		FinalBalance: r.Amount(FieldFinalBalance),
	}
	for i, f := range levelFields {
		row.Category[i] = r.Text(f)
	}
	return row
}

// Rows converts records into TransactionRows.
func Rows(recs []Record) []cashflow.TransactionRow {
	rows := make([]cashflow.TransactionRow, len(recs))
	for i, r := range recs {
		rows[i] = r.Row()
	}
	return rows
}
