// Package config holds the kong-tagged settings shared by the binaries.
// Every field can be set by flag or environment variable.
package config

import (
	"time"

	"github.com/dvloznov/cashflow-bot/internal/iiko"
)

// Iiko is the back-office connection.
type Iiko struct {
	BaseURL  string        `name:"iiko-url" help:"Back-office base URL" required:"" env:"IIKO_BASE_URL"`
	Login    string        `name:"iiko-login" help:"Back-office login" required:"" env:"IIKO_LOGIN"`
	Password string        `name:"iiko-password" help:"Back-office password" required:"" env:"IIKO_PASSWORD"`
	PresetID string        `name:"iiko-preset" help:"OLAP preset ID (empty: request the TRANSACTIONS report directly)" env:"IIKO_OLAP_PRESET_ID"`
	Timeout  time.Duration `name:"iiko-timeout" help:"HTTP timeout" default:"60s" env:"IIKO_TIMEOUT"`
}

// Client returns the iiko client settings.
func (c Iiko) Client() iiko.Config {
	return iiko.Config{
		BaseURL:  c.BaseURL,
		Login:    c.Login,
		Password: c.Password,
		Timeout:  c.Timeout,
		TokenTTL: iiko.DefaultTokenTTL,
	}
}

// Report controls report output.
type Report struct {
	OutputDir string `name:"output-dir" help:"Directory workbooks are written to" default:"." env:"REPORT_OUTPUT_DIR"`
	Entity    string `name:"entity" help:"Company name printed in the workbook header" env:"REPORT_ENTITY_NAME"`
	Depth     int    `name:"depth" help:"Category levels shown in statements (1-3)" default:"1" env:"REPORT_DEPTH"`
}

// Archive is the optional GCS copy of every workbook.
type Archive struct {
	Bucket string `name:"gcs-bucket" help:"GCS bucket for archived workbooks (empty: disabled)" env:"GCS_BUCKET"`
}

// Enabled reports whether archiving is configured.
func (a Archive) Enabled() bool { return a.Bucket != "" }

// RunLog is the optional BigQuery log of report runs.
type RunLog struct {
	Project string `name:"bq-project" help:"BigQuery project for the run log (empty: disabled)" env:"BQ_PROJECT"`
	Dataset string `name:"bq-dataset" help:"BigQuery dataset" default:"cashflow" env:"BQ_DATASET"`
}

// Enabled reports whether the run log is configured.
func (r RunLog) Enabled() bool { return r.Project != "" }

// Telegram is the chat front end.
type Telegram struct {
	Token     string `name:"telegram-token" help:"Bot API token" env:"TELEGRAM_BOT_TOKEN"`
	Workers   int    `name:"workers" help:"Report worker goroutines" default:"4" env:"REPORT_WORKERS"`
	QueueSize int    `name:"queue-size" help:"Report jobs buffered before enqueue blocks" default:"100" env:"REPORT_QUEUE_SIZE"`
	Debug     bool   `name:"telegram-debug" help:"Log Bot API traffic" env:"TELEGRAM_DEBUG"`
}

// Enabled reports whether a bot token is configured.
func (t Telegram) Enabled() bool { return t.Token != "" }

// Log configures the logger.
type Log struct {
	Level string `name:"log-level" help:"debug, info, warn or error" default:"info" env:"LOG_LEVEL"`
	JSON  bool   `name:"log-json" help:"Emit JSON lines instead of console output" env:"LOG_JSON"`
}

// HTTP configures the API server.
type HTTP struct {
	Port   string `name:"port" help:"HTTP server port" default:"8080" env:"HTTP_PORT"`
	APIKey string `name:"api-key" help:"Required X-API-Key header value (empty: open)" env:"API_KEY"`
}
