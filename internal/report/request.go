// Package report runs the cash flow report pipeline: fetch rows from the
// back office, build the statement, render it and store the workbook.
package report

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO date format used in callbacks, captions and file names.
const DateLayout = "2006-01-02"

// Kind selects how the statement is built.
type Kind string

const (
	// KindDay differences two cumulative snapshots around one day.
	KindDay Kind = "day"
	// KindPeriod builds one statement over a date range.
	KindPeriod Kind = "period"
)

// Request is a normalized report request. From and To are calendar days;
// To is inclusive and equals From for day reports.
type Request struct {
	Kind Kind
	From time.Time
	To   time.Time
}

// Window is a half-open query range [From, To) sent upstream.
type Window struct {
	From time.Time
	To   time.Time
}

// ParseDay parses an ISO date. Malformed input yields today.
func ParseDay(s string, today time.Time) time.Time {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return truncateDay(today)
	}
	return d
}

// DayRequest returns a single-day request for d.
func DayRequest(d time.Time) Request {
	d = truncateDay(d)
	return Request{Kind: KindDay, From: d, To: d}
}

// PeriodRequest returns a period request, swapping reversed bounds.
func PeriodRequest(from, to time.Time) Request {
	from, to = truncateDay(from), truncateDay(to)
	if to.Before(from) {
		from, to = to, from
	}
	return Request{Kind: KindPeriod, From: from, To: to}
}

// ParseRange parses a period from two ISO dates. An unparsable start
// yields today; an unparsable end yields the start.
func ParseRange(from, to string, today time.Time) Request {
	f := ParseDay(from, today)
	t, err := time.Parse(DateLayout, strings.TrimSpace(to))
	if err != nil {
		t = f
	}
	return PeriodRequest(f, t)
}

// Windows returns the upstream query windows. Day reports need the
// previous day [d-1, d) and the day itself [d, d+1); period reports use
// only curr, covering [from, to+1). The chosen end day is included, so
// the upstream exclusive dateTo is the day after it, not the end itself.
func (r Request) Windows() (prev, curr Window) {
	if r.Kind == KindDay {
		d := r.From
		return Window{From: d.AddDate(0, 0, -1), To: d}, Window{From: d, To: d.AddDate(0, 0, 1)}
	}
	return Window{}, Window{From: r.From, To: r.To.AddDate(0, 0, 1)}
}

// Caption is the human title of the report.
func (r Request) Caption() string {
	if r.Kind == KindPeriod && !r.To.Equal(r.From) {
		return fmt.Sprintf("Отчёт ДДС — период %s — %s", r.From.Format(DateLayout), r.To.Format(DateLayout))
	}
	return "Отчёт ДДС — " + r.From.Format(DateLayout)
}

// Filename is the workbook file name.
func (r Request) Filename() string {
	return r.From.Format(DateLayout) + "_ДДС.xlsx"
}

func (r Request) String() string {
	return fmt.Sprintf("%s %s..%s", r.Kind, r.From.Format(DateLayout), r.To.Format(DateLayout))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
