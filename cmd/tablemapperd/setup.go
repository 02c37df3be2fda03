package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/ruslano69/tablemapper/pkg/adapters"
	"github.com/ruslano69/tablemapper/pkg/audit"
	"github.com/ruslano69/tablemapper/pkg/config"
	"github.com/ruslano69/tablemapper/pkg/events"
	"github.com/ruslano69/tablemapper/pkg/mapper"
	"github.com/ruslano69/tablemapper/pkg/metrics"
	"github.com/ruslano69/tablemapper/pkg/retry"
)

// services holds everything opened at startup; Close releases it in reverse order.
type services struct {
	Adapter   adapters.Adapter
	Mappers   map[string]*mapper.TableMapper
	Registry  *prometheus.Registry // nil when metrics are disabled
	Audit     *audit.Logger        // nil when audit is disabled
	Publisher events.Publisher     // nil when events are disabled
}

// setup connects to the database and builds one mapper per exposed table
// with the configured observers attached.
func setup(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*services, error) {
	adapter, err := connect(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	s := &services{Adapter: adapter, Mappers: map[string]*mapper.TableMapper{}}
	var observers []mapper.Observer

	if cfg.Metrics.Enabled {
		s.Registry = prometheus.NewRegistry()
		s.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		observers = append(observers, metrics.NewCollector(s.Registry))
	}

	if cfg.Audit.Enabled {
		if s.Audit, err = setupAudit(ctx, adapter, cfg.Audit, logger); err != nil {
			s.Close(ctx)
			return nil, fmt.Errorf("audit: %w", err)
		}
		observers = append(observers, s.Audit)
	}

	if cfg.Events.Enabled {
		if s.Publisher, err = events.New(ctx, cfg.Events.Config); err != nil {
			s.Close(ctx)
			return nil, fmt.Errorf("events: %w", err)
		}
		observers = append(observers, events.NewNotifier(s.Publisher, logger))
	}

	tables, err := exposedTables(ctx, adapter, cfg)
	if err != nil {
		s.Close(ctx)
		return nil, err
	}

	for _, table := range tables {
		m, err := mapper.New(ctx, adapter, table,
			mapper.WithLogger(logger.With().Str("table", table).Logger()),
			mapper.WithObserver(observers...),
		)
		if err != nil {
			s.Close(ctx)
			return nil, err
		}
		s.Mappers[table] = m
	}

	return s, nil
}

// connect opens the adapter, retrying per database.connect_retry
func connect(ctx context.Context, db config.DatabaseConfig, logger zerolog.Logger) (adapters.Adapter, error) {
	rc := retry.Config{}
	if db.ConnectRetry != nil {
		rc = *db.ConnectRetry
	}
	rc.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("database not ready, retrying")
	}

	retryer, err := retry.New(rc)
	if err != nil {
		return nil, err
	}

	var adapter adapters.Adapter
	err = retryer.Do(ctx, func(ctx context.Context) error {
		a, err := adapters.New(ctx, db.AdapterConfig())
		if errors.Is(err, adapters.ErrUnknownType) {
			return retry.Permanent(err)
		}
		if err != nil {
			return err
		}
		adapter = a
		return nil
	})
	return adapter, err
}

// setupAudit opens the configured appenders. The audit table mapper has no
// observers and the table itself is ignored by the logger.
func setupAudit(ctx context.Context, adapter adapters.Adapter, cfg config.AuditConfig, logger zerolog.Logger) (*audit.Logger, error) {
	level, err := audit.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var appenders []audit.Appender
	closeAll := func() {
		for _, a := range appenders {
			a.Close()
		}
	}

	if cfg.File != "" {
		fa, err := audit.NewFileAppender(audit.FileAppenderConfig{
			Path:       cfg.File,
			MaxSize:    int64(cfg.MaxSize) << 20,
			MaxBackups: cfg.MaxBackups,
		})
		if err != nil {
			return nil, err
		}
		appenders = append(appenders, fa)
	}

	var ignore []string
	if cfg.Table != "" {
		exists, err := adapter.TableExists(ctx, cfg.Table)
		if err != nil {
			closeAll()
			return nil, err
		}
		if !exists {
			if err := audit.CreateTable(ctx, adapter, cfg.Table); err != nil {
				closeAll()
				return nil, err
			}
		}

		m, err := mapper.New(ctx, adapter, cfg.Table, mapper.WithLogger(logger))
		if err != nil {
			closeAll()
			return nil, err
		}
		appenders = append(appenders, audit.NewTableAppender(m))
		ignore = append(ignore, cfg.Table)
	}

	if len(appenders) == 0 {
		return nil, fmt.Errorf("audit enabled but neither file nor table is set")
	}

	return audit.NewLogger(audit.LoggerConfig{
		Level:        level,
		IgnoreTables: ignore,
		Log:          logger,
	}, appenders...), nil
}

// exposedTables returns cfg.Tables, or every table except the audit table when empty
func exposedTables(ctx context.Context, adapter adapters.Adapter, cfg *config.Config) ([]string, error) {
	if len(cfg.Tables) > 0 {
		return cfg.Tables, nil
	}

	names, err := adapter.GetTableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	tables := make([]string, 0, len(names))
	for _, name := range names {
		if cfg.Audit.Enabled && name == cfg.Audit.Table {
			continue
		}
		tables = append(tables, name)
	}
	return tables, nil
}

// Close releases publisher, audit appenders and the database connection.
func (s *services) Close(ctx context.Context) {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.Audit != nil {
		s.Audit.Close()
	}
	if s.Adapter != nil {
		s.Adapter.Close(ctx)
	}
}

// gatherer returns the registry as a Gatherer, or nil so the router skips /metrics
func (s *services) gatherer() prometheus.Gatherer {
	if s.Registry == nil {
		return nil
	}
	return s.Registry
}
