package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/admob-reporting/internal/api"
	"github.com/dvloznov/admob-reporting/internal/api/handlers"
	"github.com/dvloznov/admob-reporting/internal/config"
	"github.com/dvloznov/admob-reporting/internal/jobs/inmemory"
	"github.com/dvloznov/admob-reporting/internal/logger"
	"github.com/dvloznov/admob-reporting/internal/pipeline"
)

func main() {
	var (
		port    = flag.String("port", defaultPort(os.Getenv), "HTTP server port (or set PORT env)")
		maxRuns = flag.Int("max-runs", 500, "Number of finished runs kept for the status API")
	)
	flag.Parse()

	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log = logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	svc, deps, err := pipeline.NewServiceFromConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create report service")
	}
	defer deps.Close()

	runs := inmemory.NewStore(*maxRuns)
	reports := handlers.NewReportsHandler(svc, runs, log)

	// Report runs block the request until the load job finishes.
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      api.NewRouter(reports, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 9 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", *port).
			Str("table", svc.Table().String()).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// defaultPort honours the PORT variable Cloud Run sets.
func defaultPort(getenv func(string) string) string {
	if port := getenv("PORT"); port != "" {
		return port
	}
	return "8080"
}
