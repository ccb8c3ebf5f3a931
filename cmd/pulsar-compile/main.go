// Command pulsar-compile runs the compile-time pipeline described in
// spec.md: DSL text + sensor catalog -> RuleIR[] -> analyzer -> emitter ->
// manifest. It writes its output to a temporary directory and renames it
// into place only on full success, so a failed compile never leaves a
// partial "generated" package behind.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pulsar-rules/pulsar/internal/compiler"
	"github.com/pulsar-rules/pulsar/internal/config"
	"github.com/pulsar-rules/pulsar/internal/domain"
	"github.com/pulsar-rules/pulsar/internal/emitter"
	"github.com/pulsar-rules/pulsar/internal/metrics"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] != "compile" {
		fmt.Fprintln(os.Stderr, "usage: pulsar-compile compile --rules <path> --config <path> --output <dir>")
		os.Exit(1)
	}

	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	rulesPath := fs.String("rules", "", "path to the rules YAML document")
	configPath := fs.String("config", "./pulsar.yaml", "path to the system config file")
	outputDir := fs.String("output", "./generated", "directory the generated package is written to")
	_ = fs.Parse(os.Args[2:])

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{}))
	slog.SetDefault(logger)

	if *rulesPath == "" {
		slog.Error("--rules is required")
		os.Exit(1)
	}

	if err := run(*rulesPath, *configPath, *outputDir); err != nil {
		slog.Error("compile failed", "error", err)
		os.Exit(1)
	}
}

func run(rulesPath, configPath, outputDir string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	rulesText, err := os.ReadFile(rulesPath)
	if err != nil {
		return &domain.IoError{Path: rulesPath, Err: err}
	}

	catalog := domain.NewSensorCatalog(cfg.ValidSensors)

	start := time.Now()
	result, err := compiler.Compile(rulesText, catalog, filepath.Base(rulesPath), cfg.Runtime.Group())
	metrics.Compile.Runs.Inc()
	metrics.Compile.Duration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Compile.Failures.WithLabelValues(failureKind(err)).Inc()
		return err
	}
	metrics.Compile.RuleCount.Observe(float64(len(result.Rules)))

	if err := writeUnit(result.Unit, outputDir); err != nil {
		return err
	}

	slog.Info("compile succeeded",
		"rules", len(result.Rules),
		"files", len(result.Unit.Files),
		"output", outputDir,
	)
	return nil
}

// failureKind classifies err for the pulsar_compile_failures_total label.
func failureKind(err error) string {
	var catalogErr *domain.CatalogError
	var parseErr *domain.ParseError
	var exprErr *domain.ExpressionError
	var cycleErr *domain.CycleError
	var conflictErr *domain.ConflictError
	var ioErr *domain.IoError
	var configErr *domain.ConfigError

	switch {
	case errors.As(err, &catalogErr):
		return "catalog"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &exprErr):
		return "expression"
	case errors.As(err, &cycleErr):
		return "cycle"
	case errors.As(err, &conflictErr):
		return "conflict"
	case errors.As(err, &ioErr):
		return "io"
	case errors.As(err, &configErr):
		return "config"
	default:
		return "unknown"
	}
}

// writeUnit renders unit's files and manifest into a sibling temp directory,
// then renames it over outputDir only once every file has been written
// successfully, per spec.md §7's no-partial-artifact guarantee.
func writeUnit(unit *emitter.Unit, outputDir string) error {
	parent := filepath.Dir(outputDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return &domain.IoError{Path: parent, Err: err}
	}

	tempDir, err := os.MkdirTemp(parent, ".pulsar-compile-*")
	if err != nil {
		return &domain.IoError{Path: parent, Err: err}
	}
	defer os.RemoveAll(tempDir)

	for _, file := range unit.Files {
		path := filepath.Join(tempDir, file.Name)
		if err := os.WriteFile(path, []byte(file.Text), 0o644); err != nil {
			return &domain.IoError{Path: path, Err: err}
		}
	}

	manifestBytes, err := json.MarshalIndent(unit.Manifest, "", "  ")
	if err != nil {
		return &domain.IoError{Path: outputDir, Err: err}
	}
	manifestPath := filepath.Join(tempDir, "manifest.json")
	if err := os.WriteFile(manifestPath, manifestBytes, 0o644); err != nil {
		return &domain.IoError{Path: manifestPath, Err: err}
	}

	if err := os.RemoveAll(outputDir); err != nil {
		return &domain.IoError{Path: outputDir, Err: err}
	}
	if err := os.Rename(tempDir, outputDir); err != nil {
		return &domain.IoError{Path: outputDir, Err: err}
	}
	return nil
}
