package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"fitgrid/internal/api"
	"fitgrid/internal/availability"
	"fitgrid/internal/config"
	"fitgrid/internal/db"
	"fitgrid/internal/events"
	"fitgrid/internal/interval"
	"fitgrid/internal/metrics"
	"fitgrid/internal/schedule"
	"fitgrid/internal/service"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("FITGRID_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	resolver := availability.NewResolver(database)
	aggregator := schedule.NewAggregator(database, cfg.TravelBuffer())
	checker := schedule.NewChecker(aggregator)
	finder := schedule.NewFinder(aggregator, checker, gridFromConfig(cfg, &logger))

	bus := events.NewBus()
	subscribeEventLog(bus, &logger)

	bookings := service.NewPersonalBookingService(database, checker, bus, &logger)

	server := api.NewHTTPServer(api.Options{
		Port:              cfg.Server.Port,
		RequestsPerSecond: cfg.LimiterRate(),
		Burst:             cfg.LimiterBurst(),
	}, resolver, checker, finder, bookings, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, database, &logger)

	backup := db.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
	go backup.Start(ctx)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	logger.Info().Msg("scheduling engine started")
	if err := server.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("API server error")
	}
}

func gridFromConfig(cfg *config.Config, logger *zerolog.Logger) schedule.GridConfig {
	grid := schedule.DefaultGrid()
	if cfg.Engine.GridOpen != "" {
		if m, err := interval.FromClock(cfg.Engine.GridOpen); err == nil {
			grid.OpenMinute = m
		} else {
			logger.Warn().Str("grid_open", cfg.Engine.GridOpen).Msg("ignoring bad grid_open")
		}
	}
	if cfg.Engine.GridLastStart != "" {
		if m, err := interval.FromClock(cfg.Engine.GridLastStart); err == nil {
			grid.LastStartMinute = m
		} else {
			logger.Warn().Str("grid_last_start", cfg.Engine.GridLastStart).Msg("ignoring bad grid_last_start")
		}
	}
	if cfg.Engine.SlotMinutes > 0 {
		grid.SlotMinutes = cfg.Engine.SlotMinutes
	}
	if cfg.Engine.DefaultAnchorMinute >= 0 && cfg.Engine.DefaultAnchorMinute <= 59 {
		grid.DefaultAnchorMinute = cfg.Engine.DefaultAnchorMinute
	}
	return grid
}

func subscribeEventLog(bus *events.Bus, logger *zerolog.Logger) {
	for _, eventType := range []string{
		events.TypePersonalBookingCreated,
		events.TypePersonalBookingUpdated,
		events.TypeBookingBlocked,
	} {
		et := eventType
		bus.Subscribe(et, func(event events.Event) error {
			logger.Debug().Str("event", et).RawJSON("payload", event.Payload).Msg("booking event")
			return nil
		})
	}
}

func startHealthServer(ctx context.Context, port int, database *db.DB, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := database.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
