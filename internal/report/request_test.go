package report

import (
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseDay(t *testing.T) {
	today := time.Date(2024, 3, 10, 18, 45, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want string
	}{
		{"2024-02-01", "2024-02-01"},
		{" 2024-02-29 ", "2024-02-29"},
		{"01.02.2024", "2024-03-10"},
		{"", "2024-03-10"},
		{"2024-02-30", "2024-03-10"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseDay(tt.in, today).Format(DateLayout); got != tt.want {
				t.Errorf("ParseDay(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	today := date("2024-03-10")
	tests := []struct {
		name     string
		from, to string
		wantFrom string
		wantTo   string
	}{
		{"ordered", "2024-02-01", "2024-02-05", "2024-02-01", "2024-02-05"},
		{"reversed is swapped", "2024-02-05", "2024-02-01", "2024-02-01", "2024-02-05"},
		{"same day", "2024-02-01", "2024-02-01", "2024-02-01", "2024-02-01"},
		{"bad end uses start", "2024-02-01", "soon", "2024-02-01", "2024-02-01"},
		{"bad start uses today", "garbage", "2024-03-12", "2024-03-10", "2024-03-12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ParseRange(tt.from, tt.to, today)
			if r.Kind != KindPeriod {
				t.Errorf("kind = %s", r.Kind)
			}
			if r.From.Format(DateLayout) != tt.wantFrom || r.To.Format(DateLayout) != tt.wantTo {
				t.Errorf("range = %s, want %s..%s", r, tt.wantFrom, tt.wantTo)
			}
		})
	}
}

func TestRequest_Windows(t *testing.T) {
	prev, curr := DayRequest(date("2024-02-01")).Windows()
	if !prev.From.Equal(date("2024-01-31")) || !prev.To.Equal(date("2024-02-01")) {
		t.Errorf("day prev window = %v..%v", prev.From, prev.To)
	}
	if !curr.From.Equal(date("2024-02-01")) || !curr.To.Equal(date("2024-02-02")) {
		t.Errorf("day curr window = %v..%v", curr.From, curr.To)
	}

	_, curr = PeriodRequest(date("2024-02-01"), date("2024-02-05")).Windows()
	if !curr.From.Equal(date("2024-02-01")) || !curr.To.Equal(date("2024-02-06")) {
		t.Errorf("period window = %v..%v", curr.From, curr.To)
	}

	_, curr = PeriodRequest(date("2024-02-01"), date("2024-02-01")).Windows()
	if !curr.To.Equal(date("2024-02-02")) {
		t.Errorf("single-day period must end at from+1, got %v", curr.To)
	}
}

func TestRequest_CaptionAndFilename(t *testing.T) {
	tests := []struct {
		name        string
		req         Request
		wantCaption string
		wantFile    string
	}{
		{
			name:        "day",
			req:         DayRequest(date("2024-02-01")),
			wantCaption: "Отчёт ДДС — 2024-02-01",
			wantFile:    "2024-02-01_ДДС.xlsx",
		},
		{
			name:        "period",
			req:         PeriodRequest(date("2024-02-01"), date("2024-02-05")),
			wantCaption: "Отчёт ДДС — период 2024-02-01 — 2024-02-05",
			wantFile:    "2024-02-01_ДДС.xlsx",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.Caption(); got != tt.wantCaption {
				t.Errorf("Caption = %q, want %q", got, tt.wantCaption)
			}
			if got := tt.req.Filename(); got != tt.wantFile {
				t.Errorf("Filename = %q, want %q", got, tt.wantFile)
			}
		})
	}
}
