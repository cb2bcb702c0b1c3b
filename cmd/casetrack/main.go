package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"casetrack/internal/authz"
	"casetrack/internal/config"
	"casetrack/internal/notify"
	"casetrack/internal/observability/logging"
	"casetrack/internal/observability/metrics"
	"casetrack/internal/service"
	"casetrack/internal/store"
	httptransport "casetrack/internal/transport/http"
	"casetrack/pkg/db"
)

func main() {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	logger := logging.NewLogger(logging.Config{
		ServiceName: "casetrack",
		Environment: env,
		Level:       os.Getenv("LOG_LEVEL"),
		AddSource:   os.Getenv("LOG_SOURCE") == "true",
	})
	slog.SetDefault(logger)

	cfg := config.Load()
	metrics.MustRegister("casetrack")

	gdb, err := db.OpenGorm(db.Config{DSN: cfg.DatabaseURL, LogSQL: cfg.LogSQL})
	if err != nil {
		logger.Error("gorm open", "error", err)
		os.Exit(1)
	}

	st := store.New(gdb)
	if err := st.AutoMigrate(context.Background()); err != nil {
		logger.Error("automigrate", "error", err)
		os.Exit(1)
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.WebhookURL, cfg.NotifyTimeout)
	}
	dispatcher := notify.NewDispatcher(notifier, cfg.NotifyBuffer, cfg.NotifyTimeout)
	defer dispatcher.Close()

	svc := httptransport.Services{
		Cases:    service.NewCaseService(st, dispatcher, cfg.WorkloadLimit),
		Users:    service.NewUserService(st),
		Workflow: service.NewWorkflowService(st, dispatcher, cfg.WorkloadLimit),
	}

	auth := authz.NewValidator(cfg.SigningKey, cfg.Issuer)
	handler := httptransport.NewRouter(svc, auth, httptransport.Options{
		CORSOrigins: cfg.CORSOrigins,
		RatePerMin:  cfg.RateLimit,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("casetrack listening", "addr", srv.Addr, "workload_limit", cfg.WorkloadLimit)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
