// Package telegram is the chat front end: inline keyboards, callback
// routing and report delivery.
package telegram

import (
	"strings"
	"time"
)

// Action is the verb of a callback payload.
type Action string

const (
	ActionUnknown Action = ""
	ActionToday   Action = "TODAY"
	ActionDay     Action = "DAY"
	ActionPeriod  Action = "PERIOD"
	ActionBack    Action = "BACK_MAIN"
	ActionNop     Action = "CAL:NOP"
	ActionPrev    Action = "CAL:PREV"
	ActionNext    Action = "CAL:NEXT"
	ActionSet     Action = "CAL:SET"
)

// Mode tells a calendar what the picked date is for.
type Mode string

const (
	ModeDay        Mode = "DAY"
	ModePeriodFrom Mode = "PERIOD_FROM"
	ModePeriodTo   Mode = "PERIOD_TO"
)

const (
	monthLayout = "2006-01"
	dayLayout   = "2006-01-02"
)

// Callback is a decoded callback payload.
type Callback struct {
	Action Action
	Mode   Mode
	// Month is the first day of the displayed month for PREV/NEXT.
	Month time.Time
	// Date is the picked day for SET.
	Date time.Time
}

func parseMode(s string) Mode {
	switch m := Mode(s); m {
	case ModeDay, ModePeriodFrom, ModePeriodTo:
		return m
	default:
		return ModeDay
	}
}

// ParseCallback decodes data. Malformed dates fall back to today and a
// missing mode to ModeDay.
func ParseCallback(data string, today time.Time) Callback {
	switch Action(data) {
	case ActionToday, ActionDay, ActionPeriod, ActionBack, ActionNop:
		return Callback{Action: Action(data), Mode: ModeDay}
	}

	parts := strings.Split(data, ":")
	if len(parts) < 2 || parts[0] != "CAL" {
		return Callback{Action: ActionUnknown}
	}

	cb := Callback{Action: Action("CAL:" + parts[1]), Mode: ModeDay}
	if len(parts) > 3 {
		cb.Mode = parseMode(parts[3])
	}
	arg := ""
	if len(parts) > 2 {
		arg = parts[2]
	}

	switch cb.Action {
	case ActionPrev, ActionNext:
		m, err := time.Parse(monthLayout, arg)
		if err != nil {
			m = firstOfMonth(today)
		}
		cb.Month = m
	case ActionSet:
		d, err := time.Parse(dayLayout, arg)
		if err != nil {
			y, mo, dd := today.Date()
			d = time.Date(y, mo, dd, 0, 0, 0, 0, time.UTC)
		}
		cb.Date = d
	case ActionNop:
	default:
		cb.Action = ActionUnknown
	}
	return cb
}

// Target returns the month a PREV/NEXT callback navigates to.
func (c Callback) Target() time.Time {
	switch c.Action {
	case ActionPrev:
		return c.Month.AddDate(0, -1, 0)
	case ActionNext:
		return c.Month.AddDate(0, 1, 0)
	default:
		return c.Month
	}
}

func firstOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}
