package handlers

import (
	"context"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-json-experiment/json"

	"github.com/dvloznov/cashflow-bot/internal/api/middleware"
	"github.com/dvloznov/cashflow-bot/internal/cashflow"
	infraBQ "github.com/dvloznov/cashflow-bot/internal/infra/bigquery"
	"github.com/dvloznov/cashflow-bot/internal/jobs"
	"github.com/dvloznov/cashflow-bot/internal/logger"
	"github.com/dvloznov/cashflow-bot/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Generator builds a report.
type Generator interface {
	Generate(ctx context.Context, req report.Request) (*report.Report, error)
}

// RunLister lists recorded report runs.
type RunLister interface {
	ListRecentRuns(ctx context.Context, limit int) ([]infraBQ.ReportRunRow, error)
}

// ReportsHandler serves synchronous report endpoints.
type ReportsHandler struct {
	gen Generator
	now func() time.Time
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(gen Generator) *ReportsHandler {
	return &ReportsHandler{gen: gen, now: time.Now}
}

func (h *ReportsHandler) today() time.Time {
	return h.now().UTC()
}

// Day handles GET /api/reports/day?date=YYYY-MM-DD&format=json|xlsx.
// A missing or malformed date means today.
func (h *ReportsHandler) Day(w http.ResponseWriter, r *http.Request) {
	req := report.DayRequest(report.ParseDay(r.URL.Query().Get("date"), h.today()))
	h.serve(w, r, req)
}

// Period handles GET /api/reports/period?from=&to=&format=json|xlsx.
func (h *ReportsHandler) Period(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := report.ParseRange(q.Get("from"), q.Get("to"), h.today())
	h.serve(w, r, req)
}

func (h *ReportsHandler) serve(w http.ResponseWriter, r *http.Request, req report.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "xlsx" {
		middleware.WriteError(w, http.StatusBadRequest, "format must be json or xlsx")
		return
	}

	ctx := r.Context()
	rep, err := h.gen.Generate(ctx, req)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("request", req.String()).Msg("Failed to generate report")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to generate report")
		return
	}

	if format == "xlsx" {
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": rep.Filename}))
		w.Header().Set("Content-Length", strconv.Itoa(len(rep.Workbook)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(rep.Workbook)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, NewStatementView(rep))
}

// StatementView is the JSON form of a generated report. Values are
// decimal strings aligned with Accounts.
type StatementView struct {
	Caption  string    `json:"caption"`
	Kind     string    `json:"kind"`
	DateFrom string    `json:"date_from"`
	DateTo   string    `json:"date_to"`
	Accounts []string  `json:"accounts"`
	Rows     []RowView `json:"rows"`
	Filename string    `json:"filename"`
	Path     string    `json:"path,omitempty"`
	GCSURI   string    `json:"gcs_uri,omitempty"`
	RunID    string    `json:"run_id,omitempty"`
}

// RowView is one statement line.
type RowView struct {
	Kind     string   `json:"kind"`
	Activity string   `json:"activity,omitempty"`
	Label    string   `json:"label"`
	Category []string `json:"category,omitempty"`
	Values   []string `json:"values"`
	Total    string   `json:"total"`
}

// NewStatementView converts rep for JSON output.
func NewStatementView(rep *report.Report) StatementView {
	v := StatementView{
		Caption:  rep.Request.Caption(),
		Kind:     string(rep.Request.Kind),
		DateFrom: rep.Request.From.Format(report.DateLayout),
		DateTo:   rep.Request.To.Format(report.DateLayout),
		Filename: rep.Filename,
		Path:     rep.Path,
		GCSURI:   rep.GCSURI,
		RunID:    rep.RunID,
		Rows:     []RowView{},
	}
	for _, a := range cashflow.Accounts {
		v.Accounts = append(v.Accounts, a.String())
	}
	for _, row := range rep.Statement.Rows {
		rv := RowView{
			Kind:     row.Kind.String(),
			Activity: row.Activity.String(),
			Label:    row.Label(),
			Total:    row.Total.String(),
		}
		for _, c := range row.Category {
			if c != "" {
				rv.Category = append(rv.Category, c)
			}
		}
		for _, a := range cashflow.Accounts {
			rv.Values = append(rv.Values, row.Value(a).String())
		}
		v.Rows = append(v.Rows, rv)
	}
	return v
}

// JobsHandler enqueues reports for chat delivery and reports job status.
type JobsHandler struct {
	store     jobs.JobStore
	publisher jobs.Publisher
}

// NewJobsHandler creates a new jobs handler. A nil publisher disables Enqueue.
func NewJobsHandler(store jobs.JobStore, publisher jobs.Publisher) *JobsHandler {
	return &JobsHandler{store: store, publisher: publisher}
}

// Enqueue handles POST /api/reports/deliver.
func (h *JobsHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Chat delivery is not configured")
		return
	}

	var req struct {
		ChatID   int64  `json:"chat_id"`
		Kind     string `json:"kind"`
		DateFrom string `json:"date_from"`
		DateTo   string `json:"date_to"`
	}
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ChatID == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "chat_id is required")
		return
	}
	if req.Kind == "" {
		req.Kind = string(report.KindDay)
	}
	if req.Kind != string(report.KindDay) && req.Kind != string(report.KindPeriod) {
		middleware.WriteError(w, http.StatusBadRequest, "kind must be day or period")
		return
	}

	ctx := r.Context()
	job := &jobs.ReportJob{
		ChatID:   req.ChatID,
		Kind:     req.Kind,
		DateFrom: req.DateFrom,
		DateTo:   req.DateTo,
	}
	if err := h.publisher.PublishReport(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to enqueue report job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue report job")
		return
	}

	log := logger.FromContext(ctx)
	log.Info().Str("job_id", job.JobID).Int64("chat_id", job.ChatID).Msg("Report job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs?chat_id=&status=&limit=&offset=
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
	}
	if v, err := strconv.ParseInt(query.Get("chat_id"), 10, 64); err == nil {
		filter.ChatID = v
	}
	if v, err := strconv.Atoi(query.Get("limit")); err == nil {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(query.Get("offset")); err == nil {
		filter.Offset = v
	}

	list, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	if list == nil {
		list = []*jobs.ReportJob{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"jobs":  list,
		"count": len(list),
	})
}

// RunsHandler lists the report-run log.
type RunsHandler struct {
	runs RunLister
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(runs RunLister) *RunsHandler {
	return &RunsHandler{runs: runs}
}

// RunView is the JSON form of a recorded run.
type RunView struct {
	RunID      string     `json:"run_id"`
	Kind       string     `json:"kind"`
	DateFrom   string     `json:"date_from"`
	DateTo     string     `json:"date_to"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     string     `json:"status"`
	Rows       int64      `json:"rows"`
	Path       string     `json:"path,omitempty"`
	GCSURI     string     `json:"gcs_uri,omitempty"`
	Error      string     `json:"error,omitempty"`
}

func newRunView(row infraBQ.ReportRunRow) RunView {
	v := RunView{
		RunID:     row.RunID,
		Kind:      row.Kind,
		DateFrom:  row.DateFrom.String(),
		DateTo:    row.DateTo.String(),
		StartedAt: row.StartedTS,
		Status:    row.Status,
		Rows:      row.RowCount.Int64,
		Path:      row.OutputPath.StringVal,
		GCSURI:    row.GCSURI.StringVal,
		Error:     row.ErrorMessage.StringVal,
	}
	if row.FinishedTS.Valid {
		t := row.FinishedTS.Timestamp
		v.FinishedAt = &t
	}
	return v
}

// ListRuns handles GET /api/runs?limit=
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Run log is not configured")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	rows, err := h.runs.ListRecentRuns(r.Context(), limit)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("Failed to list runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	views := make([]RunView, 0, len(rows))
	for _, row := range rows {
		views = append(views, newRunView(row))
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"runs":  views,
		"count": len(views),
	})
}
