package config

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/cashflow-bot/internal/cashflow"
	infraBQ "github.com/dvloznov/cashflow-bot/internal/infra/bigquery"
	"github.com/dvloznov/cashflow-bot/internal/iiko"
	"github.com/dvloznov/cashflow-bot/internal/logger"
	"github.com/dvloznov/cashflow-bot/internal/render"
	"github.com/dvloznov/cashflow-bot/internal/report"
	"github.com/dvloznov/cashflow-bot/internal/storage"
)

// Logger builds the process logger.
func (l Log) Logger() zerolog.Logger {
	return logger.New(logger.WithLevel(l.Level), logger.WithJSON(l.JSON))
}

// Services is the wired report stack. Runs is nil when the run log is
// disabled.
type Services struct {
	Report *report.Service
	Runs   *infraBQ.RunRepository

	closers []func() error
}

// Close releases the cloud clients.
func (s *Services) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Options maps the report settings onto service options.
func (r Report) Options() []report.Option {
	opts := []report.Option{
		report.WithOutput(r.OutputDir, render.NewFileWriter()),
		report.WithEntity(r.Entity),
	}
	if r.Depth > 0 {
		b := cashflow.NewBuilder(cashflow.NewNormalizer(cashflow.DefaultVocabulary()), cashflow.WithDepth(r.Depth))
		opts = append(opts, report.WithBuilder(b))
	}
	return opts
}

// NewServices connects to the back office and the optional archive and
// run log. extra options are applied last.
func NewServices(ctx context.Context, ic Iiko, rc Report, ac Archive, lc RunLog, extra ...report.Option) (*Services, error) {
	svc := &Services{}
	src := iiko.NewSource(iiko.NewClient(ic.Client()), ic.PresetID)
	opts := rc.Options()

	if ac.Enabled() {
		arc, err := storage.NewGCSArchiver(ctx, ac.Bucket)
		if err != nil {
			return nil, fmt.Errorf("NewServices: %w", err)
		}
		svc.closers = append(svc.closers, arc.Close)
		opts = append(opts, report.WithArchiver(arc))
	}

	if lc.Enabled() {
		runs, err := infraBQ.NewRunRepository(ctx, lc.Project, lc.Dataset)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("NewServices: %w", err)
		}
		svc.closers = append(svc.closers, runs.Close)
		svc.Runs = runs
		opts = append(opts, report.WithRunRecorder(runs))
	}

	svc.Report = report.NewService(src, append(opts, extra...)...)
	return svc, nil
}
