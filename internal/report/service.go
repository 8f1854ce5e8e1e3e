package report

import (
	"context"
	"path/filepath"
	"time"

	"github.com/dvloznov/cashflow-bot/internal/cashflow"
	"github.com/dvloznov/cashflow-bot/internal/logger"
	"github.com/dvloznov/cashflow-bot/internal/render"
)

// Source fetches raw rows for the half-open window [from, to).
type Source interface {
	Fetch(ctx context.Context, from, to time.Time) ([]cashflow.TransactionRow, error)
}

// Writer persists a file and returns the path actually written.
type Writer interface {
	Write(path string, data []byte) (string, error)
}

// Archiver stores a copy of a generated workbook and returns its URI.
type Archiver interface {
	Archive(ctx context.Context, day time.Time, name string, data []byte) (string, error)
}

// RunStatus is the outcome recorded for a report run.
type RunStatus string

const (
	RunRunning   RunStatus = "RUNNING"
	RunSucceeded RunStatus = "SUCCESS"
	RunFailed    RunStatus = "FAILED"
)

// RunResult describes a finished run.
type RunResult struct {
	Status RunStatus
	Rows   int
	Path   string
	GCSURI string
	Err    error
}

// RunRecorder keeps a log of report runs.
type RunRecorder interface {
	StartRun(ctx context.Context, kind string, from, to time.Time) (string, error)
	FinishRun(ctx context.Context, runID string, res RunResult) error
}

// Report is the result of one request.
type Report struct {
	Request   Request
	Statement cashflow.Statement
	Text      string
	Tree      string
	Workbook  []byte
	Filename  string
	Path      string
	GCSURI    string
	RunID     string
}

// Service generates reports. It holds no per-request state and is safe
// for concurrent use.
type Service struct {
	source    Source
	builder   *cashflow.Builder
	text      *render.Text
	tree      *render.Tree
	workbook  *render.Workbook
	writer    Writer
	outputDir string
	archiver  Archiver
	runs      RunRecorder
}

// Option configures a Service.
type Option func(*Service)

// WithBuilder replaces the statement builder.
func WithBuilder(b *cashflow.Builder) Option {
	return func(s *Service) { s.builder = b }
}

// WithText replaces the chat text renderer.
func WithText(t *render.Text) Option {
	return func(s *Service) { s.text = t }
}

// WithEntity sets the company name printed in the workbook header.
func WithEntity(name string) Option {
	return func(s *Service) { s.workbook = render.NewWorkbook(name) }
}

// WithOutput writes workbooks into dir using w. A nil writer disables persistence.
func WithOutput(dir string, w Writer) Option {
	return func(s *Service) {
		s.outputDir = dir
		s.writer = w
	}
}

// WithArchiver uploads every workbook through a.
func WithArchiver(a Archiver) Option {
	return func(s *Service) { s.archiver = a }
}

// WithRunRecorder logs every run through r.
func WithRunRecorder(r RunRecorder) Option {
	return func(s *Service) { s.runs = r }
}

// NewService creates a Service reading from src. By default workbooks are
// written to the working directory and neither archived nor logged.
func NewService(src Source, opts ...Option) *Service {
	s := &Service{
		source:    src,
		builder:   cashflow.NewBuilder(cashflow.NewNormalizer(cashflow.DefaultVocabulary())),
		text:      render.NewText(),
		tree:      render.NewTree(render.RU),
		workbook:  render.NewWorkbook(""),
		writer:    render.NewFileWriter(),
		outputDir: ".",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) pipeline() *Pipeline {
	steps := []Step{
		&FetchStep{Source: s.source},
		&BuildStep{Builder: s.builder},
		&TextStep{Text: s.text, Tree: s.tree},
		&WorkbookStep{Workbook: s.workbook},
	}
	if s.writer != nil {
		steps = append(steps, &PersistStep{Writer: s.writer, Dir: s.outputDir})
	}
	if s.archiver != nil {
		steps = append(steps, &ArchiveStep{Archiver: s.archiver})
	}
	return NewPipeline(steps...)
}

// Generate runs the pipeline for req.
func (s *Service) Generate(ctx context.Context, req Request) (*Report, error) {
	log := logger.FromContext(ctx).With().
		Str("kind", string(req.Kind)).
		Str("date_from", req.From.Format(DateLayout)).
		Str("date_to", req.To.Format(DateLayout)).
		Logger()
	ctx = logger.WithContext(ctx, log)

	var runID string
	if s.runs != nil {
		id, err := s.runs.StartRun(ctx, string(req.Kind), req.From, req.To)
		if err != nil {
			log.Warn().Err(err).Msg("failed to record run start")
		}
		runID = id
	}

	state := &State{Request: req}
	err := s.pipeline().Execute(ctx, state)

	if s.runs != nil && runID != "" {
		res := RunResult{
			Status: RunSucceeded,
			Rows:   len(state.Prev) + len(state.Curr),
			Path:   state.Path,
			GCSURI: state.GCSURI,
		}
		if err != nil {
			res.Status, res.Err = RunFailed, err
		}
		if ferr := s.runs.FinishRun(ctx, runID, res); ferr != nil {
			log.Warn().Err(ferr).Str("run_id", runID).Msg("failed to record run result")
		}
	}

	if err != nil {
		log.Error().Err(err).Msg("report failed")
		return nil, err
	}

	log.Info().
		Int("rows", len(state.Prev)+len(state.Curr)).
		Str("path", state.Path).
		Str("gcs_uri", state.GCSURI).
		Str("run_id", runID).
		Msg("report generated")

	return &Report{
		Request:   req,
		Statement: state.Statement,
		Text:      state.Text,
		Tree:      state.Tree,
		Workbook:  state.Workbook,
		Filename:  filepath.Base(firstNonEmpty(state.Path, req.Filename())),
		Path:      state.Path,
		GCSURI:    state.GCSURI,
		RunID:     runID,
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
