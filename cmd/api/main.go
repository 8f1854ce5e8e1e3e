package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dvloznov/cashflow-bot/internal/api/handlers"
	"github.com/dvloznov/cashflow-bot/internal/api/middleware"
	"github.com/dvloznov/cashflow-bot/internal/config"
	"github.com/dvloznov/cashflow-bot/internal/jobs"
	"github.com/dvloznov/cashflow-bot/internal/jobs/inmemory"
	"github.com/dvloznov/cashflow-bot/internal/logger"
	"github.com/dvloznov/cashflow-bot/internal/telegram"
)

func main() {
	var cli struct {
		Iiko     config.Iiko     `embed:""`
		Report   config.Report   `embed:""`
		Archive  config.Archive  `embed:""`
		RunLog   config.RunLog   `embed:""`
		Telegram config.Telegram `embed:""`
		Log      config.Log      `embed:""`
		HTTP     config.HTTP     `embed:""`
	}
	kong.Parse(&cli, kong.Description("Cash flow statement HTTP API"))

	log := cli.Log.Logger()
	ctx := logger.WithContext(context.Background(), log)

	svc, err := config.NewServices(ctx, cli.Iiko, cli.Report, cli.Archive, cli.RunLog)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire report services")
	}
	defer svc.Close()

	// Chat delivery is optional: without a token the deliver endpoint is disabled.
	jobStore := inmemory.NewStore()
	var (
		publisher jobs.Publisher
		jobQueue  *inmemory.Queue
	)
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	if cli.Telegram.Enabled() {
		api, err := tgbotapi.NewBotAPI(cli.Telegram.Token)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Bot API")
		}
		jobQueue = inmemory.NewQueue(cli.Telegram.QueueSize, cli.Telegram.Workers, jobStore)
		handler := telegram.NewReportHandler(svc.Report, telegram.NewDeliverer(api))
		if err := jobQueue.Start(workerCtx, handler); err != nil {
			log.Fatal().Err(err).Msg("Failed to start report workers")
		}
		publisher = jobQueue
	} else {
		log.Warn().Msg("No Telegram token configured - chat delivery will be disabled")
	}

	reportsHandler := handlers.NewReportsHandler(svc.Report)
	jobsHandler := handlers.NewJobsHandler(jobStore, publisher)
	// A nil *RunRepository must not reach the interface as a non-nil value.
	var runs handlers.RunLister
	if svc.Runs != nil {
		runs = svc.Runs
	}
	runsHandler := handlers.NewRunsHandler(runs)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/reports/day", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			reportsHandler.Day(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/reports/period", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			reportsHandler.Period(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/reports/deliver", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			jobsHandler.Enqueue(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			runsHandler.ListRuns(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(
					middleware.APIKey(cli.HTTP.APIKey)(mux),
				),
			),
		),
	)

	// Workbook generation can take as long as the back-office timeout.
	server := &http.Server{
		Addr:         ":" + cli.HTTP.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cli.Iiko.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cli.HTTP.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if jobQueue != nil {
		if err := jobQueue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping job queue")
		}
	}

	log.Info().Msg("Server exited")
}
