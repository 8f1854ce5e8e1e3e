package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

type ReportRunRow struct {
	RunID    string     `bigquery:"run_id"`    // REQUIRED
	Kind     string     `bigquery:"kind"`      // REQUIRED
	DateFrom civil.Date `bigquery:"date_from"` // REQUIRED
	DateTo   civil.Date `bigquery:"date_to"`   // REQUIRED

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string              `bigquery:"status"`        // NULLABLE
	RowCount     bigquery.NullInt64  `bigquery:"row_count"`     // NULLABLE
	OutputPath   bigquery.NullString `bigquery:"output_path"`   // NULLABLE
	GCSURI       bigquery.NullString `bigquery:"gcs_uri"`       // NULLABLE
	ErrorMessage bigquery.NullString `bigquery:"error_message"` // NULLABLE
}
