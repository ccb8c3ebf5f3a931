// Package compiler wires the DSL loader, dependency analyzer, and code
// emitter into the single pipeline described in spec.md §2's flow diagram:
// DSL text + sensor catalog -> RuleIR[] -> layer_of -> emitted files +
// manifest. The pipeline is a purely functional batch operation: it holds
// no state across calls and produces no partial artifact on failure.
package compiler

import (
	"time"

	"github.com/pulsar-rules/pulsar/internal/analyzer"
	"github.com/pulsar-rules/pulsar/internal/domain"
	"github.com/pulsar-rules/pulsar/internal/dsl"
	"github.com/pulsar-rules/pulsar/internal/emitter"
)

// Result is everything a successful compilation produces.
type Result struct {
	Rules    []*domain.RuleIR
	Analysis *analyzer.Result
	Unit     *emitter.Unit
}

// Compile runs load -> analyze -> emit over a single rules document. No
// partial artifact is returned on error, per spec.md §7.
func Compile(rulesText []byte, catalog *domain.SensorCatalog, sourceName string, groupSize int) (*Result, error) {
	rules, err := dsl.Load(rulesText, catalog, sourceName)
	if err != nil {
		return nil, err
	}

	analysis, err := analyzer.Analyze(rules)
	if err != nil {
		return nil, err
	}

	unit, err := emitter.Emit(rules, analysis, groupSize)
	if err != nil {
		return nil, err
	}
	unit.Manifest.GeneratedAt = time.Now().UTC().Format(time.RFC3339)

	return &Result{Rules: rules, Analysis: analysis, Unit: unit}, nil
}
