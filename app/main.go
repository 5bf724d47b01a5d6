package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/letsrace/digest/app/api"
	"github.com/letsrace/digest/app/cache"
	"github.com/letsrace/digest/app/catalog"
	"github.com/letsrace/digest/app/cfg"
	"github.com/letsrace/digest/app/digest"
	"github.com/letsrace/digest/app/events"
	"github.com/letsrace/digest/app/mailer"
	"github.com/letsrace/digest/app/runner"
	"github.com/letsrace/digest/app/store"
	"github.com/letsrace/digest/app/subscriber"
	"github.com/letsrace/digest/app/tasks"
	"github.com/letsrace/digest/app/token"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting LetsRace Digest server", "version", appCfg.Version)

	cat, err := catalog.Load(appCfg.CatalogFile)
	if err != nil {
		slog.Error("Failed to load catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("Catalog loaded", "regions", len(cat.Regions), "disciplines", len(cat.Disciplines), "default_send_day", cat.DefaultSendDay)

	docs, err := openDocumentStore(appCfg)
	if err != nil {
		slog.Error("Failed to open document store", "error", err)
		os.Exit(1)
	}
	defer docs.Close()

	subscribers := subscriber.NewStore(docs, appCfg.SubscribersKey)

	eventCache, err := openEventCache(appCfg)
	if err != nil {
		slog.Error("Failed to connect to cache", "error", err)
		os.Exit(1)
	}

	source := events.NewSource(appCfg.EventsBaseURL, nil, appCfg.UserAgent,
		eventCache, time.Duration(appCfg.EventsCacheTTL)*time.Second)

	if appCfg.TokenSecret == "" {
		slog.Warn("No token secret configured, unsubscribe links will not verify")
	}
	issuer := token.NewIssuer(appCfg.TokenSecret)
	renderer := digest.NewRenderer(appCfg.BaseWebsiteURL, issuer)

	sender := openMailer(appCfg)

	digestRunner := runner.New(subscribers, source, renderer, sender)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval_seconds", appCfg.SchedulerInterval, "send_hour", appCfg.SendHour)
	scheduler := tasks.NewScheduler(digestRunner, source,
		time.Duration(appCfg.SchedulerInterval)*time.Second, appCfg.SendHour, appCfg.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(subscribers, cat, issuer, digestRunner, scheduler, appCfg.Version)
	server := api.NewServer(handler, appCfg.AdminToken)

	serverCfg := api.DefaultServerConfig()
	serverCfg.Port = appCfg.Port

	httpServer := &http.Server{
		Addr:         serverCfg.Host + ":" + serverCfg.Port,
		Handler:      server,
		ReadTimeout:  serverCfg.ReadTimeout,
		WriteTimeout: serverCfg.WriteTimeout,
		IdleTimeout:  serverCfg.IdleTimeout,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if appCfg.AdminToken == "" {
			slog.Warn("Admin endpoints disabled (ADMIN_TOKEN not set)")
		}
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error, shutting down", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler and document store are stopped via defer
	slog.Info("Shutdown complete")
}

// openDocumentStore selects the subscriber persistence backend: SQLite when a
// database path is configured, plain files otherwise.
func openDocumentStore(appCfg *cfg.Cfg) (store.DocumentStore, error) {
	if appCfg.DBPath != "" {
		slog.Info("Using SQLite document store", "path", appCfg.DBPath)
		return store.NewSQLite(appCfg.DBPath)
	}
	slog.Info("Using file document store", "dir", appCfg.DataDir)
	return store.NewFile(appCfg.DataDir)
}

// openEventCache selects the event corpus cache: Redis when an address is
// configured, in-process memory otherwise.
func openEventCache(appCfg *cfg.Cfg) (cache.Cache, error) {
	if appCfg.RedisAddr != "" {
		slog.Info("Using Redis event cache", "addr", appCfg.RedisAddr)
		return cache.NewRedis(appCfg.RedisAddr)
	}
	return cache.NewMemory(time.Now), nil
}

// openMailer selects the mail transport. Without an SMTP host configured,
// digests are logged instead of sent, which keeps local development safe.
func openMailer(appCfg *cfg.Cfg) mailer.Sender {
	if appCfg.SMTPHost != "" {
		sender, err := mailer.NewSMTP(appCfg.SMTPHost, appCfg.SMTPPort, appCfg.SMTPUser, appCfg.SMTPPassword, appCfg.FromAddress)
		if err != nil {
			slog.Error("Failed to create SMTP client, falling back to log transport", "error", err)
			return mailer.NewLog()
		}
		slog.Info("Using SMTP mail transport", "host", appCfg.SMTPHost, "port", appCfg.SMTPPort, "from", appCfg.FromAddress)
		return sender
	}
	slog.Warn("No SMTP host configured, digests will be logged instead of sent")
	return mailer.NewLog()
}
