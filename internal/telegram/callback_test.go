package telegram

import (
	"fmt"
	"testing"
	"time"
)

var today = time.Date(2024, 2, 15, 13, 30, 0, 0, time.UTC)

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data   string
		action Action
		mode   Mode
		month  string
		date   string
	}{
		{"TODAY", ActionToday, ModeDay, "", ""},
		{"DAY", ActionDay, ModeDay, "", ""},
		{"PERIOD", ActionPeriod, ModeDay, "", ""},
		{"BACK_MAIN", ActionBack, ModeDay, "", ""},
		{"CAL:NOP", ActionNop, ModeDay, "", ""},
		{"CAL:PREV:2024-03:PERIOD_FROM", ActionPrev, ModePeriodFrom, "2024-03", ""},
		{"CAL:NEXT:2023-12:DAY", ActionNext, ModeDay, "2023-12", ""},
		{"CAL:NEXT:garbage:PERIOD_TO", ActionNext, ModePeriodTo, "2024-02", ""},
		{"CAL:SET:2024-02-01:PERIOD_TO", ActionSet, ModePeriodTo, "", "2024-02-01"},
		{"CAL:SET:2024-02-01", ActionSet, ModeDay, "", "2024-02-01"},
		{"CAL:SET:2024-02-01:WEIRD", ActionSet, ModeDay, "", "2024-02-01"},
		{"CAL:SET:31.02.2024:DAY", ActionSet, ModeDay, "", "2024-02-15"},
		{"CAL:JUMP:2024-02:DAY", ActionUnknown, ModeDay, "", ""},
		{"hello", ActionUnknown, "", "", ""},
		{"", ActionUnknown, "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			cb := ParseCallback(tt.data, today)
			if cb.Action != tt.action {
				t.Errorf("action = %q, want %q", cb.Action, tt.action)
			}
			if cb.Mode != tt.mode {
				t.Errorf("mode = %q, want %q", cb.Mode, tt.mode)
			}
			if tt.month != "" && cb.Month.Format(monthLayout) != tt.month {
				t.Errorf("month = %s, want %s", cb.Month.Format(monthLayout), tt.month)
			}
			if tt.date != "" && cb.Date.Format(dayLayout) != tt.date {
				t.Errorf("date = %s, want %s", cb.Date.Format(dayLayout), tt.date)
			}
		})
	}
}

func TestCallbackTarget(t *testing.T) {
	prev := ParseCallback("CAL:PREV:2024-01:DAY", today)
	if got := prev.Target().Format(monthLayout); got != "2023-12" {
		t.Errorf("prev target = %s, want 2023-12", got)
	}
	next := ParseCallback("CAL:NEXT:2024-12:DAY", today)
	if got := next.Target().Format(monthLayout); got != "2025-01" {
		t.Errorf("next target = %s, want 2025-01", got)
	}
}

func TestCalendar(t *testing.T) {
	// February 2024 starts on a Thursday and has 29 days.
	kb := Calendar(time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC), ModePeriodFrom)
	rows := kb.InlineKeyboard

	header := rows[0]
	if len(header) != 3 || header[1].Text != "02.2024" {
		t.Fatalf("header = %+v", header)
	}
	if got := *header[0].CallbackData; got != "CAL:PREV:2024-02:PERIOD_FROM" {
		t.Errorf("prev data = %s", got)
	}
	if got := *header[2].CallbackData; got != "CAL:NEXT:2024-02:PERIOD_FROM" {
		t.Errorf("next data = %s", got)
	}

	first := rows[1]
	if len(first) != 7 {
		t.Fatalf("first week has %d buttons", len(first))
	}
	for i := 0; i < 3; i++ {
		if first[i].Text != " " || *first[i].CallbackData != string(ActionNop) {
			t.Errorf("padding %d = %+v", i, first[i])
		}
	}
	if first[3].Text != "1" || *first[3].CallbackData != "CAL:SET:2024-02-01:PERIOD_FROM" {
		t.Errorf("first day = %q %q", first[3].Text, *first[3].CallbackData)
	}

	days := 0
	for _, row := range rows[1 : len(rows)-1] {
		for _, btn := range row {
			if btn.Text != " " {
				days++
			}
		}
	}
	if days != 29 {
		t.Errorf("days = %d, want 29", days)
	}

	back := rows[len(rows)-1]
	if len(back) != 1 || *back[0].CallbackData != string(ActionBack) {
		t.Errorf("last row = %+v", back)
	}
}

func TestCalendar_MondayStart(t *testing.T) {
	// January 2024 starts on a Monday: no padding.
	kb := Calendar(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), ModeDay)
	first := kb.InlineKeyboard[1][0]
	if first.Text != "1" {
		t.Errorf("first button = %q, want 1", first.Text)
	}
}

func TestMainMenu(t *testing.T) {
	var got []string
	for _, row := range MainMenu().InlineKeyboard {
		for _, btn := range row {
			got = append(got, *btn.CallbackData)
		}
	}
	want := []string{"TODAY", "DAY", "PERIOD"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("menu = %v, want %v", got, want)
	}
}

func TestPeriodState(t *testing.T) {
	s := NewPeriodState()
	d := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	if _, ok := s.Take(1); ok {
		t.Fatal("empty state returned a date")
	}
	s.SetFrom(1, d)
	s.SetFrom(2, d.AddDate(0, 0, 1))
	got, ok := s.Take(1)
	if !ok || !got.Equal(d) {
		t.Errorf("Take = %v %v", got, ok)
	}
	if _, ok := s.Take(1); ok {
		t.Error("Take must clear the selection")
	}
	s.Clear(2)
	if _, ok := s.Take(2); ok {
		t.Error("Clear did not forget user 2")
	}
}
