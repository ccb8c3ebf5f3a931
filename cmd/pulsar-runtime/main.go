// Command pulsar-runtime runs the periodic driver described in spec.md §5
// against a rule set already compiled by pulsar-compile into the
// "generated" package. It wires together the sensor store, event bus,
// ring-buffer manager, and the compiled coordinator, then serves health and
// ready probes alongside the cycle loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pulsar-rules/pulsar/generated"
	"github.com/pulsar-rules/pulsar/internal/api"
	"github.com/pulsar-rules/pulsar/internal/buffer"
	"github.com/pulsar-rules/pulsar/internal/bus"
	"github.com/pulsar-rules/pulsar/internal/config"
	"github.com/pulsar-rules/pulsar/internal/domain"
	"github.com/pulsar-rules/pulsar/internal/runtime"
	"github.com/pulsar-rules/pulsar/internal/sensorstore"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] != "run" {
		fmt.Fprintln(os.Stderr, "usage: pulsar-runtime run --config <path>")
		os.Exit(1)
	}
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "./pulsar.yaml", "path to the system config file")
	_ = fs.Parse(os.Args[2:])

	logLevel := slog.LevelInfo
	if os.Getenv("PULSAR_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("starting pulsar-runtime", "version", Version, "commit", Commit, "build_date", BuildDate)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"store", cfg.Store.Driver,
		"event_bus", cfg.EventBus.Type,
		"cycle_time", cfg.Runtime.CycleTime(),
		"sensor_count", len(cfg.ValidSensors),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	store, err := sensorstore.New(cfg.Store)
	if err != nil {
		slog.Error("failed to initialize sensor store", "error", err)
		os.Exit(1)
	}
	if closer, ok := store.(sensorstore.PingCloser); ok {
		defer closer.Close()
	}
	slog.Info("sensor store initialized", "driver", cfg.Store.Driver)

	publisher, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	clock := buffer.SystemClock{}
	buffers := buffer.NewManager(cfg.Runtime.Capacity(), clock)

	driverCfg := runtime.Config{
		CycleTime: cfg.Runtime.CycleTime(),
		Sensors:   cfg.ValidSensors,
	}
	driver := runtime.New(driverCfg, store, buffers, generated.Evaluate, publisher)

	catalog := domain.NewSensorCatalog(cfg.ValidSensors)
	apiServer := api.NewServer(api.DefaultServerConfig(), catalog, cfg.Runtime.Group(), store, Version)

	go func() {
		if err := apiServer.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("api server failed", "error", err)
		}
	}()

	go func() {
		if err := driver.Run(ctx); err != nil && err != context.Canceled {
			slog.Error("runtime driver stopped with error", "error", err)
		}
	}()

	printBanner(cfg, Version)

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("api server forced to shutdown", "error", err)
	}

	slog.Info("pulsar-runtime shutdown complete")
}

func printBanner(cfg *domain.SystemConfig, version string) {
	fmt.Println()
	fmt.Println("  PULSAR")
	fmt.Println("  Sensor telemetry rules engine")
	fmt.Println()
	fmt.Printf("  Version:     %s\n", version)
	fmt.Printf("  Tier:        %s\n", cfg.Tier)
	fmt.Printf("  Cycle time:  %s\n", cfg.Runtime.CycleTime())
	fmt.Printf("  Sensors:     %d\n", len(cfg.ValidSensors))
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    GET  /health    - health check")
	fmt.Println("    GET  /ready     - readiness check")
	fmt.Println()
}
