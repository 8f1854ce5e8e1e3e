package report

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dvloznov/cashflow-bot/internal/cashflow"
	"github.com/dvloznov/cashflow-bot/internal/logger"
	"github.com/dvloznov/cashflow-bot/internal/render"
)

// Step is a single stage of the report pipeline.
type Step interface {
	Name() string
	Execute(ctx context.Context, state *State) error
}

// State holds the data passed between steps.
type State struct {
	Request   Request
	Prev      []cashflow.TransactionRow
	Curr      []cashflow.TransactionRow
	Statement cashflow.Statement
	Text      string
	Tree      string
	Workbook  []byte
	Path      string
	GCSURI    string
}

// Pipeline executes steps in order, stopping at the first failure.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a pipeline from steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	log := logger.FromContext(ctx)
	for i, step := range p.steps {
		log.Debug().Int("step", i+1).Str("name", step.Name()).Msg("running report step")
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
	}
	return nil
}

// FetchStep loads the rows of the request's query windows.
type FetchStep struct {
	Source Source
}

func (s *FetchStep) Name() string { return "fetch" }

func (s *FetchStep) Execute(ctx context.Context, state *State) error {
	prev, curr := state.Request.Windows()
	if state.Request.Kind == KindDay {
		rows, err := s.Source.Fetch(ctx, prev.From, prev.To)
		if err != nil {
			return fmt.Errorf("fetch previous day: %w", err)
		}
		state.Prev = rows
	}
	rows, err := s.Source.Fetch(ctx, curr.From, curr.To)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	state.Curr = rows
	return nil
}

// BuildStep assembles the statement.
type BuildStep struct {
	Builder *cashflow.Builder
}

func (s *BuildStep) Name() string { return "build" }

func (s *BuildStep) Execute(ctx context.Context, state *State) error {
	if state.Request.Kind == KindDay {
		state.Statement = s.Builder.BuildDay(state.Prev, state.Curr)
	} else {
		state.Statement = s.Builder.Build(state.Curr)
	}
	return nil
}

// TextStep renders the chat message and the tree view.
type TextStep struct {
	Text *render.Text
	Tree *render.Tree
}

func (s *TextStep) Name() string { return "render text" }

func (s *TextStep) Execute(ctx context.Context, state *State) error {
	caption := state.Request.Caption()
	state.Text = s.Text.Render(caption, state.Statement)
	state.Tree = s.Tree.Render(caption, state.Statement)
	return nil
}

// WorkbookStep renders the xlsx workbook.
type WorkbookStep struct {
	Workbook *render.Workbook
}

func (s *WorkbookStep) Name() string { return "render workbook" }

func (s *WorkbookStep) Execute(ctx context.Context, state *State) error {
	data, err := s.Workbook.Render(state.Request.Caption(), state.Statement)
	if err != nil {
		return err
	}
	state.Workbook = data
	return nil
}

// PersistStep writes the workbook into Dir.
type PersistStep struct {
	Writer Writer
	Dir    string
}

func (s *PersistStep) Name() string { return "persist" }

func (s *PersistStep) Execute(ctx context.Context, state *State) error {
	path, err := s.Writer.Write(filepath.Join(s.Dir, state.Request.Filename()), state.Workbook)
	if err != nil {
		return err
	}
	state.Path = path
	return nil
}

// ArchiveStep uploads the workbook to object storage.
type ArchiveStep struct {
	Archiver Archiver
}

func (s *ArchiveStep) Name() string { return "archive" }

func (s *ArchiveStep) Execute(ctx context.Context, state *State) error {
	name := state.Request.Filename()
	if state.Path != "" {
		name = filepath.Base(state.Path)
	}
	uri, err := s.Archiver.Archive(ctx, state.Request.From, name, state.Workbook)
	if err != nil {
		return err
	}
	state.GCSURI = uri
	return nil
}
