package storage

import (
	"testing"
	"time"

	"github.com/dvloznov/cashflow-bot/internal/report"
)

var _ report.Archiver = (*GCSArchiver)(nil)

func TestObjectName(t *testing.T) {
	day := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		want string
	}{
		{"2024-02-01_ДДС.xlsx", "reports/2024/02/01/2024-02-01_ДДС.xlsx"},
		{"out/2024-02-01_ДДС_20240201_101500.xlsx", "reports/2024/02/01/2024-02-01_ДДС_20240201_101500.xlsx"},
	}
	for _, tt := range tests {
		if got := ObjectName(day, tt.name); got != tt.want {
			t.Errorf("ObjectName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		object  string
		wantErr bool
	}{
		{"gs://bkt/reports/2024/02/01/a.xlsx", "bkt", "reports/2024/02/01/a.xlsx", false},
		{"gs://bkt/a.xlsx", "bkt", "a.xlsx", false},
		{"gs://bkt", "", "", true},
		{"gs://bkt/", "", "", true},
		{"s3://bkt/a.xlsx", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.bucket || object != tt.object {
				t.Errorf("got (%q, %q), want (%q, %q)", bucket, object, tt.bucket, tt.object)
			}
		})
	}
}

func TestURIRoundTrip(t *testing.T) {
	uri := URI("bkt", ObjectName(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), "x.xlsx"))
	bucket, object, err := ParseURI(uri)
	if err != nil || bucket != "bkt" || object != "reports/2024/12/31/x.xlsx" {
		t.Errorf("ParseURI(%q) = %q %q %v", uri, bucket, object, err)
	}
}
