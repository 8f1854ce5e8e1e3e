package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/dvloznov/cashflow-bot/internal/config"
	infraBQ "github.com/dvloznov/cashflow-bot/internal/infra/bigquery"
	"github.com/dvloznov/cashflow-bot/internal/logger"
	"github.com/dvloznov/cashflow-bot/internal/render"
	"github.com/dvloznov/cashflow-bot/internal/report"
	"github.com/dvloznov/cashflow-bot/internal/storage"
)

type generate struct {
	Iiko    config.Iiko    `embed:""`
	Report  config.Report  `embed:""`
	Archive config.Archive `embed:""`
	RunLog  config.RunLog  `embed:""`
	Tree    bool           `help:"Print the per-account tree instead of the table"`
}

func main() {
	var cli struct {
		Log config.Log `embed:""`

		Day struct {
			Date string   `arg:"" optional:"" help:"Day as YYYY-MM-DD (default today)"`
			Gen  generate `embed:""`
		} `cmd:"" help:"Build the report for one day"`

		Period struct {
			From string   `arg:"" help:"First day as YYYY-MM-DD"`
			To   string   `arg:"" optional:"" help:"Last day as YYYY-MM-DD (default the first day)"`
			Gen  generate `embed:""`
		} `cmd:"" help:"Build the report for an inclusive range of days"`

		Migrate struct {
			RunLog    config.RunLog `embed:""`
			AppliedBy string        `help:"Name recorded in schema_migrations" default:"cashflow-cli"`
		} `cmd:"" help:"Create or upgrade the run-log tables"`

		Fetch struct {
			URI    string `arg:"" help:"gs:// URI of an archived workbook"`
			Output string `short:"o" help:"Output file (default: the object's base name)" type:"path"`
		} `cmd:"" help:"Download an archived workbook"`
	}
	ctx := kong.Parse(&cli, kong.Description("Cash flow statement tools"))

	log := cli.Log.Logger()
	runCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	runCtx = logger.WithContext(runCtx, log)

	today := time.Now().UTC()

	var err error
	switch strings.Fields(ctx.Command())[0] {
	case "day":
		req := report.DayRequest(report.ParseDay(cli.Day.Date, today))
		err = runGenerate(runCtx, os.Stdout, cli.Day.Gen, req)
	case "period":
		to := cli.Period.To
		if to == "" {
			to = cli.Period.From
		}
		err = runGenerate(runCtx, os.Stdout, cli.Period.Gen, report.ParseRange(cli.Period.From, to, today))
	case "migrate":
		err = runMigrate(runCtx, log, cli.Migrate.RunLog, cli.Migrate.AppliedBy)
	case "fetch":
		err = runFetch(runCtx, cli.Fetch.URI, cli.Fetch.Output)
	default:
		panic(ctx.Command())
	}
	ctx.FatalIfErrorf(err)
}

func runGenerate(ctx context.Context, out io.Writer, g generate, req report.Request) error {
	svc, err := config.NewServices(ctx, g.Iiko, g.Report, g.Archive, g.RunLog,
		report.WithText(render.NewText(render.WithHTML(false))))
	if err != nil {
		return err
	}
	defer svc.Close()

	rep, err := svc.Report.Generate(ctx, req)
	if err != nil {
		return err
	}

	body := rep.Text
	if g.Tree {
		body = rep.Tree
	}
	fmt.Fprintln(out, body)
	fmt.Fprintf(out, "\nWorkbook: %s\n", rep.Path)
	if rep.GCSURI != "" {
		fmt.Fprintf(out, "Archived: %s\n", rep.GCSURI)
	}
	return nil
}

func runMigrate(ctx context.Context, log zerolog.Logger, rl config.RunLog, appliedBy string) error {
	if !rl.Enabled() {
		return errors.New("migrate: --bq-project (BQ_PROJECT) is required")
	}
	client, err := bigquery.NewClient(ctx, rl.Project)
	if err != nil {
		return fmt.Errorf("migrate: bigquery client: %w", err)
	}
	defer client.Close()

	n, err := infraBQ.NewMigrator(client, rl.Project, rl.Dataset, appliedBy).Apply(ctx, infraBQ.Migrations())
	if err != nil {
		return err
	}
	if n == 0 {
		log.Info().Msg("No new migrations to apply. Dataset is up to date.")
	} else {
		log.Info().Int("applied", n).Msg("Migrations applied")
	}
	return nil
}

func runFetch(ctx context.Context, uri, output string) error {
	bucket, object, err := storage.ParseURI(uri)
	if err != nil {
		return err
	}
	arc, err := storage.NewGCSArchiver(ctx, bucket)
	if err != nil {
		return err
	}
	defer arc.Close()

	data, err := arc.Fetch(ctx, uri)
	if err != nil {
		return err
	}
	if output == "" {
		output = object[strings.LastIndex(object, "/")+1:]
	}
	written, err := render.NewFileWriter().Write(output, data)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %s (%d bytes)\n", written, len(data))
	return nil
}
