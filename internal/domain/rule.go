package domain

import "fmt"

// ComparisonOp is the enum of comparison operators a Comparison condition
// may use.
type ComparisonOp string

const (
	OpLT ComparisonOp = "<"
	OpGT ComparisonOp = ">"
	OpLE ComparisonOp = "<="
	OpGE ComparisonOp = ">="
	OpEQ ComparisonOp = "=="
	OpNE ComparisonOp = "!="
)

// ParseComparisonOp maps a DSL operator string to the enum, failing on
// anything not in the fixed set.
func ParseComparisonOp(s string) (ComparisonOp, error) {
	switch ComparisonOp(s) {
	case OpLT, OpGT, OpLE, OpGE, OpEQ, OpNE:
		return ComparisonOp(s), nil
	default:
		return "", fmt.Errorf("unknown comparison operator %q", s)
	}
}

// ThresholdMode selects the semantics of a ThresholdOverTime condition.
type ThresholdMode string

const (
	ModeStrict            ThresholdMode = "strict"
	ModeExtendLastKnown    ThresholdMode = "extend_last_known"
)

// ThresholdDirection resolves the spec's open question about below_for by
// making direction an explicit field of the condition rather than inferring
// it from surrounding comparison context.
type ThresholdDirection string

const (
	DirectionAbove ThresholdDirection = "above"
	DirectionBelow ThresholdDirection = "below"
)

// Comparison is `sensor op value`.
type Comparison struct {
	Sensor string
	Op     ComparisonOp
	Value  float64
}

// Expression is a free-form arithmetic/boolean DSL expression over sensor
// names and whitelisted math functions. Semantic validity is not checked at
// load time; the rewriter owns that.
type Expression struct {
	Expr string
}

// ThresholdOverTime is the "value above/below threshold for duration D"
// predicate, backed at runtime by the ring-buffer subsystem.
type ThresholdOverTime struct {
	Sensor      string
	Threshold   float64
	DurationMs  uint32
	Mode        ThresholdMode
	Direction   ThresholdDirection
}

// ConditionGroup is itself a condition: it holds iff every member of All
// holds AND at least one member of Any holds. An empty All is vacuously
// true; an empty Any does not constrain the group (treated as absent).
type ConditionGroup struct {
	All []Condition
	Any []Condition
}

// Empty reports whether the group constrains nothing at all (no All, no
// Any members) — used by the emitter to render such a rule's actions unguarded.
func (g *ConditionGroup) Empty() bool {
	return g == nil || (len(g.All) == 0 && len(g.Any) == 0)
}

// Condition is a tagged union over the four condition variants. Exactly one
// field is non-nil; Kind below panics if that invariant is broken, so the
// emitter's switch can be exhaustive without a separate discriminant field.
type Condition struct {
	Comparison        *Comparison
	Expression        *Expression
	ThresholdOverTime *ThresholdOverTime
	Group             *ConditionGroup
}

// Kind identifies which variant of Condition is populated.
type ConditionKind int

const (
	KindComparison ConditionKind = iota
	KindExpression
	KindThresholdOverTime
	KindGroup
)

// Kind returns the variant this Condition holds, panicking if none or more
// than one field is set — a defect the loader must never produce.
func (c Condition) Kind() ConditionKind {
	set := 0
	kind := ConditionKind(-1)
	if c.Comparison != nil {
		set++
		kind = KindComparison
	}
	if c.Expression != nil {
		set++
		kind = KindExpression
	}
	if c.ThresholdOverTime != nil {
		set++
		kind = KindThresholdOverTime
	}
	if c.Group != nil {
		set++
		kind = KindGroup
	}
	if set != 1 {
		panic(fmt.Sprintf("condition has %d variants set, want exactly 1", set))
	}
	return kind
}

// SetValue sets an output key either to a literal value or to the result of
// an expression. Exactly one of Value/ValueExpr must be present; Value wins
// if both are (the loader should reject that ambiguity, but this keeps the
// emitter's contract simple even if callers construct one directly).
type SetValue struct {
	Key       string
	Value     *float64
	ValueExpr string
}

// SendMessage is emitted as a call to the external message-publish
// interface; it plays no part in the dependency graph.
type SendMessage struct {
	Channel string
	Message string
}

// Action is a tagged union over the two action variants.
type Action struct {
	SetValue    *SetValue
	SendMessage *SendMessage
}

// ActionKind identifies which variant of Action is populated.
type ActionKind int

const (
	KindSetValue ActionKind = iota
	KindSendMessage
)

func (a Action) Kind() ActionKind {
	switch {
	case a.SetValue != nil && a.SendMessage == nil:
		return KindSetValue
	case a.SendMessage != nil && a.SetValue == nil:
		return KindSendMessage
	default:
		panic("action must have exactly one variant set")
	}
}

// RuleIR is the immutable record produced by the DSL loader. It is never
// mutated after construction; the analyzer and emitter only read it.
type RuleIR struct {
	Name        string
	Description string
	Source      SourceLocation
	Conditions  *ConditionGroup // nil means unconditional
	Actions     []Action
}

// OutputKeys returns every key this rule's SetValue actions produce, in
// action order.
func (r *RuleIR) OutputKeys() []string {
	var keys []string
	for _, a := range r.Actions {
		if a.Kind() == KindSetValue {
			keys = append(keys, a.SetValue.Key)
		}
	}
	return keys
}

// UsesTemporal reports whether any condition in this rule (including nested
// groups) is a ThresholdOverTime predicate.
func (r *RuleIR) UsesTemporal() bool {
	return conditionGroupUsesTemporal(r.Conditions)
}

func conditionGroupUsesTemporal(g *ConditionGroup) bool {
	if g == nil {
		return false
	}
	for _, c := range g.All {
		if conditionUsesTemporal(c) {
			return true
		}
	}
	for _, c := range g.Any {
		if conditionUsesTemporal(c) {
			return true
		}
	}
	return false
}

func conditionUsesTemporal(c Condition) bool {
	switch c.Kind() {
	case KindThresholdOverTime:
		return true
	case KindGroup:
		return conditionGroupUsesTemporal(c.Group)
	default:
		return false
	}
}
