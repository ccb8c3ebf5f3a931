// Package analyzer builds the dependency graph over a rule set and assigns
// each rule a layer number, per spec.md §4.3.
package analyzer

import (
	"github.com/pulsar-rules/pulsar/internal/domain"
)

// Result is the output of Analyze: a layer number per rule name, the
// producer index needed by the rewriter and emitter, and each rule's
// resolved dependency set (by rule name).
type Result struct {
	LayerOf  map[string]int
	Producer map[string]string   // sensor -> producing rule name
	DepsOf   map[string][]string // rule name -> names of rules it depends on
}

// Produces reports whether name is produced by some rule, satisfying
// rewriter.ProducerIndex.
func (r *Result) Produces(name string) bool {
	_, ok := r.Producer[name]
	return ok
}

const (
	colorUnseen = iota
	colorInProgress
	colorDone
)

// Analyze builds producer, computes each rule's dependency set, detects
// cycles, and assigns layers. Rules retain their input order as the
// tie-break within a layer (callers needing the ordered list should re-sort
// the original rules slice by (LayerOf[name], original index) rather than
// rely on map iteration).
func Analyze(rules []*domain.RuleIR) (*Result, error) {
	producer := make(map[string]string, len(rules))
	for _, r := range rules {
		for _, key := range r.OutputKeys() {
			if existing, ok := producer[key]; ok && existing != r.Name {
				return nil, &domain.ConflictError{Key: key, Rules: []string{existing, r.Name}}
			}
			producer[key] = r.Name
		}
	}

	byName := make(map[string]*domain.RuleIR, len(rules))
	deps := make(map[string][]string, len(rules))
	for _, r := range rules {
		byName[r.Name] = r
		deps[r.Name] = ruleDeps(r, producer)
	}

	color := make(map[string]int, len(rules))
	layer := make(map[string]int, len(rules))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch color[name] {
		case colorDone:
			return nil
		case colorInProgress:
			return &domain.CycleError{Path: append(append([]string{}, path...), name)}
		}
		color[name] = colorInProgress
		maxLayer := -1
		for _, dep := range deps[name] {
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
			if layer[dep] > maxLayer {
				maxLayer = layer[dep]
			}
		}
		if maxLayer == -1 {
			layer[name] = 0
		} else {
			layer[name] = maxLayer + 1
		}
		color[name] = colorDone
		return nil
	}

	for _, r := range rules {
		if err := visit(r.Name, nil); err != nil {
			return nil, err
		}
	}

	return &Result{LayerOf: layer, Producer: producer, DepsOf: deps}, nil
}

// ruleDeps computes deps(R) per spec.md §4.3 step 2: every sensor named by
// a Comparison or ThresholdOverTime condition anywhere in R's conditions
// (including nested groups) that is a produced key, plus a best-effort scan
// of Expression condition text for bare identifiers matching a produced
// key.
func ruleDeps(r *domain.RuleIR, producer map[string]string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		ruleName, ok := producer[name]
		if !ok || ruleName == r.Name || seen[ruleName] {
			return
		}
		seen[ruleName] = true
		out = append(out, ruleName)
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
			for _, name := range ExtractIdentifiers(c.Expression.Expr) {
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
	return out
}

// ExtractIdentifiers does a best-effort scan for bare identifier tokens in
// an expression's text, per spec.md §4.3's "best-effort" dependency rule
// for Expression conditions. It is deliberately cruder than the rewriter's
// grammar: any maximal run of identifier characters not immediately
// followed by "(" is treated as a candidate sensor name.
func ExtractIdentifiers(expr string) []string {
	var names []string
	i := 0
	for i < len(expr) {
		c := expr[i]
		if isIdentStart(c) {
			j := i + 1
			for j < len(expr) && isIdentPart(expr[j]) {
				j++
			}
			if j >= len(expr) || expr[j] != '(' {
				names = append(names, expr[i:j])
			}
			i = j
			continue
		}
		i++
	}
	return names
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
