package emitter

import (
	"crypto/sha256"
	"encoding/base64"
	"sort"

	"github.com/pulsar-rules/pulsar/internal/analyzer"
	"github.com/pulsar-rules/pulsar/internal/domain"
)

// buildManifest assembles the sidecar manifest described in spec.md §4.4:
// per-file content hashes and, per rule, its source location, emitted
// location, dependency edges, layer, and whether it touches the temporal
// buffer subsystem.
func buildManifest(rules []*domain.RuleIR, result *analyzer.Result, ruleLoc map[string]ruleLocation, files []File) *domain.Manifest {
	fileRecords := make([]domain.FileRecord, len(files))
	for i, f := range files {
		sum := sha256.Sum256([]byte(f.Text))
		fileRecords[i] = domain.FileRecord{
			Name: f.Name,
			Hash: base64.StdEncoding.EncodeToString(sum[:]),
		}
	}

	ruleRecords := make(map[string]domain.RuleRecord, len(rules))
	for _, r := range rules {
		loc := ruleLoc[r.Name]
		deps := append([]string(nil), result.DepsOf[r.Name]...)
		sort.Strings(deps)

		ruleRecords[r.Name] = domain.RuleRecord{
			SourceFile:   r.Source.File,
			SourceLine:   r.Source.Line,
			EmittedFile:  loc.file,
			StartLine:    loc.startLine,
			EndLine:      loc.endLine,
			Inputs:       inputSensors(r, result),
			Outputs:      r.OutputKeys(),
			Dependencies: deps,
			Layer:        result.LayerOf[r.Name],
			UsesTemporal: r.UsesTemporal(),
		}
	}

	return &domain.Manifest{
		SchemaVersion: domain.ManifestSchemaVersion,
		Files:         fileRecords,
		Rules:         ruleRecords,
	}
}

// inputSensors collects every sensor name this rule's conditions reference
// that is NOT produced by another rule (i.e. rendered as inputs[...] rather
// than outputs[...]), deduplicated and sorted for manifest stability.
func inputSensors(r *domain.RuleIR, result *analyzer.Result) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if name == "" || result.Produces(name) || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}

	var walkGroup func(g *domain.ConditionGroup)
	var walkCondition func(c domain.Condition)
	walkCondition = func(c domain.Condition) {
		switch c.Kind() {
		case domain.KindComparison:
			add(c.Comparison.Sensor)
		case domain.KindThresholdOverTime:
			add(c.ThresholdOverTime.Sensor)
		case domain.KindExpression:
			for _, name := range analyzer.ExtractIdentifiers(c.Expression.Expr) {
				add(name)
			}
		case domain.KindGroup:
			walkGroup(c.Group)
		}
	}
	walkGroup = func(g *domain.ConditionGroup) {
		if g == nil {
			return
		}
		for _, c := range g.All {
			walkCondition(c)
		}
		for _, c := range g.Any {
			walkCondition(c)
		}
	}
	walkGroup(r.Conditions)

	sort.Strings(names)
	return names
}
