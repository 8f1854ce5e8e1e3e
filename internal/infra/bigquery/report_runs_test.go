package bigquery

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/cashflow-bot/internal/report"
)

func paramMap(params []bigquery.QueryParameter) map[string]interface{} {
	m := make(map[string]interface{}, len(params))
	for _, p := range params {
		m[p.Name] = p.Value
	}
	return m
}

func TestStartParams(t *testing.T) {
	now := time.Date(2024, 2, 1, 10, 15, 0, 0, time.UTC)
	from := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	p := paramMap(startParams("run-1", "day", from, from.AddDate(0, 0, 1), now))

	if p["run_id"] != "run-1" || p["kind"] != "day" || p["status"] != "RUNNING" {
		t.Errorf("params = %v", p)
	}
	if p["date_from"] != (civil.Date{Year: 2024, Month: 1, Day: 31}) {
		t.Errorf("date_from = %v", p["date_from"])
	}
	if p["date_to"] != (civil.Date{Year: 2024, Month: 2, Day: 1}) {
		t.Errorf("date_to = %v", p["date_to"])
	}
	if p["started_ts"] != now {
		t.Errorf("started_ts = %v", p["started_ts"])
	}
}

func TestFinishParams(t *testing.T) {
	now := time.Date(2024, 2, 1, 10, 16, 0, 0, time.UTC)
	tests := []struct {
		name       string
		res        report.RunResult
		wantStatus string
		wantErr    string
	}{
		{
			name:       "success",
			res:        report.RunResult{Status: report.RunSucceeded, Rows: 12, Path: "out/a.xlsx", GCSURI: "gs://b/a.xlsx"},
			wantStatus: "SUCCESS",
		},
		{
			name:       "empty status means success",
			res:        report.RunResult{Rows: 1},
			wantStatus: "SUCCESS",
		},
		{
			name:       "failure",
			res:        report.RunResult{Status: report.RunFailed, Err: errors.New("pipeline step 1 (fetch) failed: timeout")},
			wantStatus: "FAILED",
			wantErr:    "pipeline step 1 (fetch) failed: timeout",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := paramMap(finishParams("run-1", tt.res, now))
			if p["status"] != tt.wantStatus {
				t.Errorf("status = %v, want %s", p["status"], tt.wantStatus)
			}
			if p["error_message"] != tt.wantErr {
				t.Errorf("error_message = %v, want %q", p["error_message"], tt.wantErr)
			}
			if p["row_count"] != tt.res.Rows || p["output_path"] != tt.res.Path || p["gcs_uri"] != tt.res.GCSURI {
				t.Errorf("params = %v", p)
			}
			if p["run_id"] != "run-1" || p["finished_ts"] != now {
				t.Errorf("params = %v", p)
			}
		})
	}
}

func TestTruncateError(t *testing.T) {
	short := "boom"
	if got := truncateError(short); got != short {
		t.Errorf("truncateError(short) = %q", got)
	}
	long := strings.Repeat("ы", maxErrorLen) // 2 bytes per rune
	got := truncateError(long)
	if len(got) != maxErrorLen {
		t.Errorf("len = %d, want %d", len(got), maxErrorLen)
	}
	if !strings.HasPrefix(long, got) || strings.ContainsRune(got, '�') {
		t.Error("truncation split a rune")
	}
	odd := "a" + strings.Repeat("ы", maxErrorLen)
	if got := truncateError(odd); len(got) != maxErrorLen-1 {
		t.Errorf("len = %d, want %d", len(got), maxErrorLen-1)
	}
}

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_second.sql":       {Data: []byte("SELECT 2 FROM {{DATASET_ID}}.t")},
		"0001_report_runs.sql":  {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.report_runs` (x INT64)")},
		"001_invalid.sql":       {Data: []byte("x")},
		"0003_no_extension":     {Data: []byte("x")},
		"0004.sql":              {Data: []byte("x")},
		"invalid_0005_test.sql": {Data: []byte("x")},
	}

	got, err := ReadMigrations(fsys, "proj", "ds")
	if err != nil {
		t.Fatalf("ReadMigrations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d migrations, want 2: %+v", len(got), got)
	}
	if got[0].Version != 1 || got[0].Name != "report_runs" || got[1].Version != 2 {
		t.Errorf("order = %+v", got)
	}
	if got[0].SQL != "CREATE TABLE `proj.ds.report_runs` (x INT64)" {
		t.Errorf("SQL = %s", got[0].SQL)
	}

	again, _ := ReadMigrations(fsys, "other", "other")
	if again[0].Checksum != got[0].Checksum {
		t.Error("checksum must not depend on project or dataset")
	}
	if got[0].Checksum == got[1].Checksum {
		t.Error("different files share a checksum")
	}
}

func TestReadMigrations_Bundled(t *testing.T) {
	got, err := ReadMigrations(Migrations(), "proj", DefaultDataset)
	if err != nil {
		t.Fatalf("ReadMigrations: %v", err)
	}
	if len(got) == 0 || got[0].Version != 1 {
		t.Fatalf("bundled migrations = %+v", got)
	}
	if !strings.Contains(got[0].SQL, "`proj.cashflow.report_runs`") {
		t.Errorf("SQL = %s", got[0].SQL)
	}
}

func TestPending(t *testing.T) {
	all := []Migration{{Version: 1}, {Version: 2}, {Version: 3}}
	got := Pending(all, []AppliedMigration{{Version: 1}, {Version: 3}})
	if len(got) != 1 || got[0].Version != 2 {
		t.Errorf("Pending = %+v", got)
	}
	if got := Pending(all, nil); len(got) != 3 {
		t.Errorf("Pending(nil) = %d, want 3", len(got))
	}
}
