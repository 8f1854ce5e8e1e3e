package report

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/cashflow-bot/internal/cashflow"
)

// MockSource is a mock implementation of Source.
type MockSource struct {
	FetchFunc func(ctx context.Context, from, to time.Time) ([]cashflow.TransactionRow, error)
	Calls     []Window
}

func (m *MockSource) Fetch(ctx context.Context, from, to time.Time) ([]cashflow.TransactionRow, error) {
	m.Calls = append(m.Calls, Window{From: from, To: to})
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, from, to)
	}
	return nil, nil
}

// MockWriter records written files in memory.
type MockWriter struct {
	Files map[string][]byte
	Err   error
}

func (m *MockWriter) Write(path string, data []byte) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if m.Files == nil {
		m.Files = make(map[string][]byte)
	}
	m.Files[path] = data
	return path, nil
}

// MockArchiver is a mock implementation of Archiver.
type MockArchiver struct {
	ArchiveFunc func(ctx context.Context, day time.Time, name string, data []byte) (string, error)
}

func (m *MockArchiver) Archive(ctx context.Context, day time.Time, name string, data []byte) (string, error) {
	return m.ArchiveFunc(ctx, day, name, data)
}

// MockRunRecorder is a mock implementation of RunRecorder.
type MockRunRecorder struct {
	Started  []string
	Finished map[string]RunResult
}

func (m *MockRunRecorder) StartRun(ctx context.Context, kind string, from, to time.Time) (string, error) {
	m.Started = append(m.Started, kind)
	return "run-1", nil
}

func (m *MockRunRecorder) FinishRun(ctx context.Context, runID string, res RunResult) error {
	if m.Finished == nil {
		m.Finished = make(map[string]RunResult)
	}
	m.Finished[runID] = res
	return nil
}

func cumulative(in string, final string) []cashflow.TransactionRow {
	return []cashflow.TransactionRow{
		{Account: "Главная касса", FinalBalance: decimal.RequireFromString(final)},
		{
			Account:  "Главная касса",
			Activity: "OPERATIONAL",
			Category: [cashflow.MaxDepth]string{"Выручка"},
			Incoming: decimal.RequireFromString(in),
		},
	}
}

func TestService_GenerateDay(t *testing.T) {
	day := date("2024-02-01")
	src := &MockSource{
		FetchFunc: func(ctx context.Context, from, to time.Time) ([]cashflow.TransactionRow, error) {
			if from.Equal(day) {
				return cumulative("450", "5000"), nil
			}
			return cumulative("300", "1000"), nil
		},
	}
	w := &MockWriter{}
	runs := &MockRunRecorder{}
	svc := NewService(src, WithOutput("out", w), WithRunRecorder(runs), WithEntity("ООО Ромашка"))

	rep, err := svc.Generate(context.Background(), DayRequest(day))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(src.Calls) != 2 {
		t.Fatalf("fetch calls = %d, want 2", len(src.Calls))
	}
	if !src.Calls[0].From.Equal(date("2024-01-31")) || !src.Calls[1].To.Equal(date("2024-02-02")) {
		t.Errorf("windows = %+v", src.Calls)
	}

	moves := rep.Statement.Movements()
	if len(moves) != 2 || !moves[1].Value(cashflow.AccountMain).Equal(decimal.NewFromInt(150)) {
		t.Errorf("movements = %+v, want one inflow of 150", moves)
	}
	if got := rep.Statement.Closing().Value(cashflow.AccountMain); !got.Equal(decimal.NewFromInt(1150)) {
		t.Errorf("closing = %s, want 1150", got)
	}

	wantPath := filepath.Join("out", "2024-02-01_ДДС.xlsx")
	if rep.Path != wantPath || rep.Filename != "2024-02-01_ДДС.xlsx" {
		t.Errorf("path = %q filename = %q", rep.Path, rep.Filename)
	}
	if len(w.Files[wantPath]) == 0 {
		t.Error("workbook not written")
	}
	if !strings.Contains(rep.Text, "Отчёт ДДС — 2024-02-01") {
		t.Errorf("text missing caption: %s", rep.Text)
	}
	if rep.Tree == "" {
		t.Error("tree not rendered")
	}

	if res := runs.Finished["run-1"]; res.Status != RunSucceeded || res.Rows != 4 || res.Path != wantPath {
		t.Errorf("run result = %+v", res)
	}
	if rep.RunID != "run-1" {
		t.Errorf("run id = %q", rep.RunID)
	}
}

func TestService_GeneratePeriodSingleFetch(t *testing.T) {
	src := &MockSource{
		FetchFunc: func(ctx context.Context, from, to time.Time) ([]cashflow.TransactionRow, error) {
			return []cashflow.TransactionRow{
				{Account: "Главная касса", StartBalance: decimal.NewFromInt(10), FinalBalance: decimal.NewFromInt(20)},
			}, nil
		},
	}
	svc := NewService(src, WithOutput("", nil))

	rep, err := svc.Generate(context.Background(), PeriodRequest(date("2024-02-01"), date("2024-02-03")))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(src.Calls) != 1 {
		t.Errorf("fetch calls = %d, want 1", len(src.Calls))
	}
	if !rep.Statement.Opening().Total.Equal(decimal.NewFromInt(10)) {
		t.Errorf("opening = %s, want the start balance field", rep.Statement.Opening().Total)
	}
	if rep.Path != "" {
		t.Errorf("path = %q, want no file when persistence is off", rep.Path)
	}
	if len(rep.Workbook) == 0 {
		t.Error("workbook bytes missing")
	}
}

func TestService_GenerateArchives(t *testing.T) {
	var gotName string
	var gotDay time.Time
	arch := &MockArchiver{
		ArchiveFunc: func(ctx context.Context, day time.Time, name string, data []byte) (string, error) {
			gotDay, gotName = day, name
			return "gs://bucket/reports/2024/02/01/" + name, nil
		},
	}
	svc := NewService(&MockSource{}, WithOutput("", nil), WithArchiver(arch))

	rep, err := svc.Generate(context.Background(), DayRequest(date("2024-02-01")))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gotName != "2024-02-01_ДДС.xlsx" || !gotDay.Equal(date("2024-02-01")) {
		t.Errorf("archived %q for %v", gotName, gotDay)
	}
	if rep.GCSURI != "gs://bucket/reports/2024/02/01/2024-02-01_ДДС.xlsx" {
		t.Errorf("gcs uri = %q", rep.GCSURI)
	}
}

func TestService_GenerateFailures(t *testing.T) {
	fetchErr := errors.New("upstream down")
	writeErr := errors.New("disk full")

	tests := []struct {
		name    string
		src     *MockSource
		writer  *MockWriter
		wantErr error
	}{
		{
			name: "fetch error",
			src: &MockSource{FetchFunc: func(ctx context.Context, from, to time.Time) ([]cashflow.TransactionRow, error) {
				return nil, fetchErr
			}},
			writer:  &MockWriter{},
			wantErr: fetchErr,
		},
		{
			name:    "write error",
			src:     &MockSource{},
			writer:  &MockWriter{Err: writeErr},
			wantErr: writeErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs := &MockRunRecorder{}
			svc := NewService(tt.src, WithOutput("out", tt.writer), WithRunRecorder(runs))

			_, err := svc.Generate(context.Background(), DayRequest(date("2024-02-01")))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), "pipeline step") {
				t.Errorf("err = %v, want pipeline step context", err)
			}
			res := runs.Finished["run-1"]
			if res.Status != RunFailed || !errors.Is(res.Err, tt.wantErr) {
				t.Errorf("run result = %+v", res)
			}
		})
	}
}
