package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/speedwagon-io/sensorsim/internal/config"
	"github.com/speedwagon-io/sensorsim/internal/health"
	"github.com/speedwagon-io/sensorsim/internal/lib/logger/sl"
	"github.com/speedwagon-io/sensorsim/internal/metrics"
	"github.com/speedwagon-io/sensorsim/internal/simulator"
	"github.com/speedwagon-io/sensorsim/internal/sink"
)

func newRunCmd() *cobra.Command {
	var (
		configPath string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the configured sensors and run until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if dryRun {
				cfg.Sink.Backend = sink.BackendLog
			}
			return run(cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log readings instead of writing them to the sink")

	return cmd
}

func run(cfg *config.Config) error {
	log := sl.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	log.Info("starting sensor simulator",
		slog.String("env", cfg.Env),
		slog.String("sink", cfg.Sink.Backend),
		slog.Int("sensors", len(cfg.Sensors)),
	)

	identities, err := cfg.Identities()
	if err != nil {
		return err
	}

	out, err := sink.New(log, cfg.Sink.Backend, cfg.Sink.Path)
	if err != nil {
		return fmt.Errorf("create sink: %w", err)
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Error("failed to close sink", sl.Err(err))
		}
	}()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New()
	if err := m.Register(promReg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	opts := []simulator.Option{simulator.WithMetrics(m)}
	if cfg.Seed != 0 {
		opts = append(opts, simulator.WithMasterSeed(uint64(cfg.Seed)))
	}
	registry := simulator.NewRegistry(log, out, opts...)

	var healthServer *health.Server
	if cfg.Health.Enabled {
		healthServer = health.NewServer(log, cfg.Health.Address,
			health.WithSensors(registry.Infos),
			health.WithMetrics(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})),
		)
		if checked, ok := out.(interface{ Health(context.Context) error }); ok {
			healthServer.AddChecker(health.NewSinkHealthChecker(checked.Health))
		}
		if store, ok := out.(*sink.SQLiteSink); ok {
			healthServer.AddChecker(health.NewStoreHealthChecker(store.Count))
		}
		healthServer.AddChecker(health.NewFleetHealthChecker(registry.ActiveCount))

		if err := healthServer.Start(); err != nil {
			return fmt.Errorf("start health server: %w", err)
		}
	}

	for _, identity := range identities {
		if _, err := registry.Add(identity); err != nil {
			log.Error("failed to start sensor", slog.String("sensor_id", identity.ID), sl.Err(err))
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	sig := <-sigCh
	log.Info("received signal, shutting down", slog.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := registry.ShutdownAll(shutdownCtx); err != nil {
		log.Error("sensors did not stop in time", sl.Err(err))
	}

	if healthServer != nil {
		if err := healthServer.Stop(shutdownCtx); err != nil {
			log.Error("failed to stop health server", sl.Err(err))
		}
	}

	log.Info("sensor simulator stopped")
	return nil
}
