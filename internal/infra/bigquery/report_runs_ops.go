package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/cashflow-bot/internal/report"
)

const (
	DefaultDataset  = "cashflow"
	reportRunsTable = "report_runs"
	maxErrorLen     = 2000
)

// RunRepository records report runs in BigQuery. It holds a shared client.
type RunRepository struct {
	client  *bigquery.Client
	dataset string
	now     func() time.Time
}

// NewRunRepository opens a client for projectID. An empty dataset means
// DefaultDataset.
func NewRunRepository(ctx context.Context, projectID, dataset string) (*RunRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRunRepository: creating client: %w", err)
	}
	return NewRunRepositoryWithClient(client, dataset), nil
}

// NewRunRepositoryWithClient wraps an existing client.
func NewRunRepositoryWithClient(client *bigquery.Client, dataset string) *RunRepository {
	if dataset == "" {
		dataset = DefaultDataset
	}
	return &RunRepository{client: client, dataset: dataset, now: time.Now}
}

// Close closes the BigQuery client connection.
func (r *RunRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *RunRepository) table() string {
	return r.dataset + "." + reportRunsTable
}

// StartRun inserts a RUNNING row and returns the generated run_id.
func (r *RunRepository) StartRun(ctx context.Context, kind string, from, to time.Time) (string, error) {
	runID := uuid.NewString()

	q := r.client.Query(fmt.Sprintf(`
		INSERT %s (
			run_id,
			kind,
			date_from,
			date_to,
			started_ts,
			status
		)
		VALUES (
			@run_id,
			@kind,
			@date_from,
			@date_to,
			@started_ts,
			@status
		)
	`, r.table()))
	q.Parameters = startParams(runID, kind, from, to, r.now())

	if err := runDML(ctx, q); err != nil {
		return "", fmt.Errorf("StartRun: %w", err)
	}
	return runID, nil
}

// FinishRun stores the outcome of runID.
func (r *RunRepository) FinishRun(ctx context.Context, runID string, res report.RunResult) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    row_count = @row_count,
		    output_path = @output_path,
		    gcs_uri = @gcs_uri,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, r.table()))
	q.Parameters = finishParams(runID, res, r.now())

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("FinishRun: %w", err)
	}
	return nil
}

// ListRecentRuns returns up to limit runs, newest first.
func (r *RunRepository) ListRecentRuns(ctx context.Context, limit int) ([]ReportRunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	q := r.client.Query(fmt.Sprintf(`
		SELECT
		  run_id,
		  kind,
		  date_from,
		  date_to,
		  started_ts,
		  finished_ts,
		  status,
		  row_count,
		  output_path,
		  gcs_uri,
		  error_message
		FROM %s
		ORDER BY started_ts DESC
		LIMIT @limit
	`, r.table()))
	q.Parameters = []bigquery.QueryParameter{{Name: "limit", Value: limit}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRecentRuns: query read: %w", err)
	}

	var rows []ReportRunRow
	for {
		var row ReportRunRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRecentRuns: iter next: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func startParams(runID, kind string, from, to, now time.Time) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "kind", Value: kind},
		{Name: "date_from", Value: civil.DateOf(from)},
		{Name: "date_to", Value: civil.DateOf(to)},
		{Name: "started_ts", Value: now},
		{Name: "status", Value: string(report.RunRunning)},
	}
}

func finishParams(runID string, res report.RunResult, now time.Time) []bigquery.QueryParameter {
	status := res.Status
	if status == "" {
		status = report.RunSucceeded
	}
	errMsg := ""
	if res.Err != nil {
		errMsg = truncateError(res.Err.Error())
	}
	return []bigquery.QueryParameter{
		{Name: "status", Value: string(status)},
		{Name: "finished_ts", Value: now},
		{Name: "row_count", Value: res.Rows},
		{Name: "output_path", Value: res.Path},
		{Name: "gcs_uri", Value: res.GCSURI},
		{Name: "error_message", Value: errMsg},
		{Name: "run_id", Value: runID},
	}
}

func truncateError(msg string) string {
	if len(msg) <= maxErrorLen {
		return msg
	}
	// Cut on a rune boundary.
	cut := maxErrorLen
	for cut > 0 && !isRuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

func runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

var _ report.RunRecorder = (*RunRepository)(nil)
