package config

import (
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/dvloznov/cashflow-bot/internal/iiko"
)

type testCLI struct {
	Iiko     Iiko     `embed:""`
	Report   Report   `embed:""`
	Archive  Archive  `embed:""`
	RunLog   RunLog   `embed:""`
	Telegram Telegram `embed:""`
	Log      Log      `embed:""`
	HTTP     HTTP     `embed:""`
}

func parse(t *testing.T, args []string, env map[string]string) testCLI {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
	var cli testCLI
	parser, err := kong.New(&cli, kong.Exit(func(int) { t.Fatal("kong exited") }))
	if err != nil {
		t.Fatalf("kong.New: %v", err)
	}
	if _, err := parser.Parse(args); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return cli
}

func TestDefaults(t *testing.T) {
	cli := parse(t, []string{"--iiko-url=https://bo.example", "--iiko-login=u", "--iiko-password=p"}, nil)

	if cli.Iiko.Timeout != 60*time.Second {
		t.Errorf("timeout = %v, want 60s", cli.Iiko.Timeout)
	}
	if cli.Report.OutputDir != "." || cli.Report.Depth != 1 {
		t.Errorf("report = %+v", cli.Report)
	}
	if cli.Telegram.Workers != 4 || cli.Telegram.QueueSize != 100 {
		t.Errorf("telegram = %+v", cli.Telegram)
	}
	if cli.RunLog.Dataset != "cashflow" || cli.HTTP.Port != "8080" || cli.Log.Level != "info" {
		t.Errorf("runlog = %+v http = %+v log = %+v", cli.RunLog, cli.HTTP, cli.Log)
	}
	if cli.Archive.Enabled() || cli.RunLog.Enabled() || cli.Telegram.Enabled() {
		t.Error("optional integrations must be disabled by default")
	}
}

func TestEnvironment(t *testing.T) {
	cli := parse(t, nil, map[string]string{
		"IIKO_BASE_URL":       "https://bo.example",
		"IIKO_LOGIN":          "user",
		"IIKO_PASSWORD":       "secret",
		"IIKO_OLAP_PRESET_ID": "preset-1",
		"IIKO_TIMEOUT":        "15s",
		"TELEGRAM_BOT_TOKEN":  "123:abc",
		"REPORT_WORKERS":      "2",
		"GCS_BUCKET":          "reports",
		"BQ_PROJECT":          "proj",
		"LOG_LEVEL":           "debug",
	})

	if cli.Iiko.PresetID != "preset-1" || cli.Iiko.Timeout != 15*time.Second {
		t.Errorf("iiko = %+v", cli.Iiko)
	}
	if !cli.Telegram.Enabled() || cli.Telegram.Workers != 2 {
		t.Errorf("telegram = %+v", cli.Telegram)
	}
	if !cli.Archive.Enabled() || !cli.RunLog.Enabled() {
		t.Error("archive and run log should be enabled")
	}
	if cli.Log.Logger().GetLevel() != zerolog.DebugLevel {
		t.Errorf("logger level = %s", cli.Log.Logger().GetLevel())
	}

	c := cli.Iiko.Client()
	if c.Login != "user" || c.Password != "secret" || c.TokenTTL != iiko.DefaultTokenTTL {
		t.Errorf("client config = %+v", c)
	}
}

func TestReportOptions(t *testing.T) {
	if n := len(Report{OutputDir: "out"}.Options()); n != 2 {
		t.Errorf("options without depth = %d, want 2", n)
	}
	if n := len(Report{OutputDir: "out", Depth: 2}.Options()); n != 3 {
		t.Errorf("options with depth = %d, want 3", n)
	}
}
