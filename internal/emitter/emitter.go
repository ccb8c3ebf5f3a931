// Package emitter renders an analyzed rule set into layered Go source
// files plus a manifest, per spec.md §4.4. It targets this module's own
// internal/buffer and internal/domain packages directly, rather than a
// separate native toolchain: the "target runtime" for this port is Go
// itself, compiled alongside the rest of the module.
package emitter

import (
	"fmt"
	"sort"

	"github.com/pulsar-rules/pulsar/internal/analyzer"
	"github.com/pulsar-rules/pulsar/internal/domain"
)

// File is one emitted source file.
type File struct {
	Name string
	Text string
}

// Unit is the complete output of Emit: the emitted files and the manifest
// describing them.
type Unit struct {
	Files    []File
	Manifest *domain.Manifest
}

const packageHeader = `// Code generated by the Pulsar compiler. DO NOT EDIT.

package generated

import (
	"context"

	"github.com/pulsar-rules/pulsar/internal/buffer"
	"github.com/pulsar-rules/pulsar/internal/domain"
)

`

// Emit renders rules into one or more Go source files plus a manifest.
// rules need not be pre-sorted; Emit orders them by (layer, original input
// index) itself so intra-layer order matches the input, per the
// tie-breaking rule in spec.md §4.3.
func Emit(rules []*domain.RuleIR, result *analyzer.Result, groupSize int) (*Unit, error) {
	if groupSize <= 0 {
		groupSize = 50
	}

	ordered := make([]*domain.RuleIR, len(rules))
	copy(ordered, rules)
	originalIndex := make(map[string]int, len(rules))
	for i, r := range rules {
		originalIndex[r.Name] = i
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return result.LayerOf[ordered[i].Name] < result.LayerOf[ordered[j].Name]
	})

	byLayer := make(map[int][]*domain.RuleIR)
	maxLayer := 0
	for _, r := range ordered {
		l := result.LayerOf[r.Name]
		byLayer[l] = append(byLayer[l], r)
		if l > maxLayer {
			maxLayer = l
		}
	}

	produced := rewriterProducer(result)

	blocks := make(map[string]string, len(rules)) // rule name -> rendered block text
	for _, r := range rules {
		text, err := renderRuleBlock(r, produced)
		if err != nil {
			return nil, err
		}
		blocks[r.Name] = text
	}

	b := newBuilder(groupSize)
	ruleLoc := make(map[string]ruleLocation, len(rules))

	for layer := 0; layer <= maxLayer; layer++ {
		rs, ok := byLayer[layer]
		if !ok {
			continue
		}
		b.emitLayer(layer, rs, blocks, ruleLoc)
	}

	files := b.finish()

	manifest := buildManifest(rules, result, ruleLoc, files)

	return &Unit{Files: files, Manifest: manifest}, nil
}

func rewriterProducer(result *analyzer.Result) func(string) bool {
	return func(name string) bool { return result.Produces(name) }
}

// ruleLocation records where in the emitted output a rule's block landed,
// for the manifest.
type ruleLocation struct {
	file             string
	startLine, endLine int
}

func renderRuleBlock(r *domain.RuleIR, produced func(string) bool) (string, error) {
	header := "// " + r.Name
	if r.Description != "" {
		header += ": " + r.Description
	}
	lines := []string{header, "// source: " + r.Source.String()}

	actionLines := make([]string, 0, len(r.Actions))
	for _, a := range r.Actions {
		line, err := renderAction(a, produced, r.Source)
		if err != nil {
			return "", err
		}
		actionLines = append(actionLines, line)
	}

	if r.Conditions.Empty() {
		for _, al := range actionLines {
			lines = append(lines, splitIndented(al, "")...)
		}
	} else {
		cond, err := renderGroup(r.Conditions, produced, r.Source)
		if err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("if %s {", cond))
		for _, al := range actionLines {
			lines = append(lines, splitIndented(al, "\t")...)
		}
		lines = append(lines, "}")
	}

	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	return out, nil
}

func splitIndented(text, indent string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(text); i++ {
		if i == len(text) || text[i] == '\n' {
			out = append(out, indent+text[start:i])
			start = i + 1
		}
	}
	return out
}
