// tablemapperd is an HTTP service that exposes configured tables through pkg/mapper.
//
// Usage:
//
//	tablemapperd [--config path] [--addr :8080]
//
// Flags:
//
//	--config  Path to config.yaml (default: config.yaml)
//	--addr    Override server.addr from config
//
// Environment:
//
//	TABLEMAPPER_DSN  connection string when database.dsn is empty
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tablemapper/internal/api"
	_ "github.com/ruslano69/tablemapper/pkg/adapters/mssql"
	_ "github.com/ruslano69/tablemapper/pkg/adapters/mysql"
	_ "github.com/ruslano69/tablemapper/pkg/adapters/postgres"
	_ "github.com/ruslano69/tablemapper/pkg/adapters/sqlite"
	"github.com/ruslano69/tablemapper/pkg/config"
	"github.com/ruslano69/tablemapper/pkg/security"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	addrOverride := flag.String("addr", "", "listen address override (e.g. :3000)")
	flag.Parse()

	// Pretty console log; switch to JSON in production via log.Logger = zerolog.New(os.Stderr)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if security.IsAdmin() {
		log.Warn().Str("user", security.CurrentUser()).Msg("running with administrative privileges; a dedicated service account is recommended")
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("config load failed")
	}
	if *addrOverride != "" {
		cfg.Server.Addr = *addrOverride
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		zerolog.SetGlobalLevel(lvl)
	}

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database, mappers, observers
	svc, err := setup(ctx, cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("setup failed")
	}
	defer svc.Close(context.Background())

	router := api.NewRouter(api.Deps{
		Mappers:     svc.Mappers,
		Ping:        svc.Adapter.Ping,
		Gatherer:    svc.gatherer(),
		MetricsPath: cfg.Metrics.Path,
		Logger:      &log.Logger,
	})

	// HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", cfg.Server.Addr).
			Str("database", cfg.Database.AdapterType()).
			Int("tables", len(svc.Mappers)).
			Bool("audit", svc.Audit != nil).
			Bool("events", svc.Publisher != nil).
			Msg("tablemapperd started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	log.Info().Msg("stopped")
}
