// Package main provides the HTTP API server for conversia.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asolanog/conversia/internal/auth"
	"github.com/asolanog/conversia/internal/config"
	"github.com/asolanog/conversia/internal/db"
	"github.com/asolanog/conversia/internal/metrics"
	"github.com/asolanog/conversia/internal/provider"
	"github.com/asolanog/conversia/internal/server"
	"github.com/asolanog/conversia/internal/service"
	"github.com/asolanog/conversia/internal/stats"
	syncer "github.com/asolanog/conversia/internal/sync"
)

const version = "0.1.0"

func main() {
	wipeDB := flag.Bool("wipe", false, "wipe all data from database on startup (testing only)")
	flag.Parse()

	cfg := config.Load()

	// Dual output: stderr text + file JSON
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	logger.Info("conversia-server starting",
		"version", version,
		"port", cfg.ServerPort,
		"surrealdb_url", cfg.SurrealDBURL,
	)

	if cfg.SessionSecret == "" {
		logger.Error("CONVERSIA_SESSION_SECRET must be set")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	dbCfg := db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}

	connectCtx, connectCancel := context.WithTimeout(ctx, 30*time.Second)
	dbClient, err := db.NewClient(connectCtx, dbCfg, logger)
	connectCancel()
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(context.Background()); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	if err := dbClient.InitSchema(ctx); err != nil {
		logger.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	if *wipeDB || os.Getenv("CONVERSIA_WIPE_DB") == "true" {
		if err := dbClient.WipeData(ctx); err != nil {
			logger.Error("failed to wipe database", "error", err)
			os.Exit(1)
		}
	}

	collector := metrics.NewCollector()
	dbClient.SetCollector(collector)

	conversations := service.NewConversationService(dbClient, logger)
	products := service.NewProductService(dbClient, logger)
	referrals := service.NewReferralService(dbClient)
	users := service.NewUserService(dbClient, logger)
	invitations := service.NewInvitationService(dbClient, cfg.ServerOrigin, cfg.InvitationTTL, logger)
	statsService := service.NewStatsService(stats.NewAggregator(dbClient), products, referrals)
	jobs := service.NewJobManager(logger, collector)

	newSync := func() service.SyncRunner {
		client := provider.New(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout)
		client.SetCollector(collector)
		return syncer.New(client, dbClient, logger, syncer.Options{
			PageLimit: cfg.SyncPageLimit,
			MaxPages:  cfg.SyncMaxPages,
		})
	}

	srv := server.New(server.Config{Port: cfg.ServerPort}, server.Deps{
		Logger:      logger,
		Users:       users,
		Invitations: invitations,
		Convs:       conversations,
		Stats:       statsService,
		Jobs:        jobs,
		NewSync:     newSync,
		Tokens:      auth.NewTokenService(cfg.SessionSecret, cfg.SessionTTL),
		Notifier:    auth.NewNotifier(),
		Collector:   collector,
	})

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
