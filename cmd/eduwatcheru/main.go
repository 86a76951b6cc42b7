package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/eduwatcheru/eduwatcheru/internal/api"
	"github.com/eduwatcheru/eduwatcheru/internal/config"
	"github.com/eduwatcheru/eduwatcheru/internal/health"
	"github.com/eduwatcheru/eduwatcheru/internal/logger"
	"github.com/eduwatcheru/eduwatcheru/internal/metadata"
	"github.com/eduwatcheru/eduwatcheru/internal/metadata/tmdb"
	"github.com/eduwatcheru/eduwatcheru/internal/scheduler"
	"github.com/eduwatcheru/eduwatcheru/internal/scheduler/tasks"
	"github.com/eduwatcheru/eduwatcheru/internal/websocket"
)

const logBufferSize = 1000

func main() {
	configPath := flag.String("config", "", "Path to config file")
	envFile := flag.String("env-file", "", "Path to a .env file (default .env if present)")
	flag.Parse()

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	if err := config.LoadDotEnv(envFiles...); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load env file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logBuffer := logger.NewBuffer(logBufferSize)
	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	}, logBuffer)
	defer log.Close()

	log.Info().
		Str("version", config.Version).
		Str("logLevel", cfg.Logging.Level).
		Str("language", cfg.Catalog.Language).
		Msg("starting EduWatcheru")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthService := health.NewService(log.Logger)
	healthService.RegisterItem(health.CategoryProvider, health.ProviderTMDB, "TMDB")
	if cfg.Catalog.Cache.Enabled {
		healthService.RegisterItem(health.CategoryCache, metadata.CacheHealthID, "Response cache ("+cfg.Catalog.Cache.Backend+")")
	}

	client := tmdb.NewClient(cfg.Catalog, log.Logger)
	client.SetHealthReporter(healthService)
	service := metadata.NewService(metadata.ServiceOptions{
		Provider:  client,
		Cache:     metadata.NewResponseCache(cfg.Catalog.Cache, log.Logger),
		Embed:     metadata.NewEmbedBuilder(cfg.Embed),
		Endpoints: client.Endpoints(),
		Debounce:  cfg.Search.Debounce,
		Health:    healthService,
	}, log.Logger)

	hub := websocket.NewHub(service, log.Logger)
	go hub.Run(ctx)

	// Stream log records and health changes to connected clients now that
	// the hub is running.
	logBuffer.SetPublisher(hub)
	healthService.SetBroadcaster(hub)

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}
	// Warming a disabled cache would only spend provider quota.
	if cfg.Catalog.Cache.Enabled {
		if err := tasks.RegisterCacheWarmTask(sched, service, cfg.Scheduler, log.Logger); err != nil {
			log.Fatal().Err(err).Msg("failed to register cache warm task")
		}
	}
	sched.Start(ctx)

	server := api.NewServer(api.Deps{
		Config:        cfg,
		Catalog:       service,
		Hub:           hub,
		Scheduler:     sched,
		Health:        healthService,
		LogBuffer:     logBuffer,
		LogPath:       log.FilePath(),
		ProviderCheck: client.Ping,
	}, log.Logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.Server.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("received shutdown signal")
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server failed")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	if err := sched.Stop(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown error")
	}
	cancel()

	log.Info().Msg("server stopped")
}
