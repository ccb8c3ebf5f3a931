// Package dsl parses and validates Pulsar rule documents (the YAML DSL)
// into domain.RuleIR, as specified in spec.md §4.1.
package dsl

import (
	"fmt"

	"github.com/pulsar-rules/pulsar/internal/domain"
	"gopkg.in/yaml.v3"
)

// Load parses text as a rules YAML document, validates every sensor/action
// name against catalog, and returns the resulting RuleIR set or the first
// class of error encountered. Structural errors (bad YAML, unknown
// discriminants, ambiguous action items) fail immediately; sensor-name
// violations are collected across the whole document before failing so a
// single CatalogError can list every offending name at once.
func Load(text []byte, catalog *domain.SensorCatalog, sourceName string) ([]*domain.RuleIR, error) {
	var doc ruleDocument
	if err := yaml.Unmarshal(text, &doc); err != nil {
		return nil, &domain.ParseError{
			Message:  "malformed rules document",
			Location: domain.SourceLocation{File: sourceName},
			Err:      err,
		}
	}

	seenNames := make(map[string]bool, len(doc.Rules))
	rules := make([]*domain.RuleIR, 0, len(doc.Rules))
	var invalidNames []string
	seenInvalid := make(map[string]bool)

	noteName := func(name string) {
		if name == "" || catalog.Has(name) || seenInvalid[name] {
			return
		}
		seenInvalid[name] = true
		invalidNames = append(invalidNames, name)
	}

	for _, rn := range doc.Rules {
		loc := domain.SourceLocation{File: sourceName, Line: rn.line, Column: rn.column}

		if rn.Name == "" {
			return nil, &domain.ParseError{Message: "rule name is required", Location: loc}
		}
		if seenNames[rn.Name] {
			return nil, &domain.ParseError{Message: fmt.Sprintf("duplicate rule name %q", rn.Name), Location: loc}
		}
		seenNames[rn.Name] = true

		var conditions *domain.ConditionGroup
		if rn.Conditions != nil {
			cg, err := convertConditionsBlock(rn.Conditions, sourceName, noteName)
			if err != nil {
				return nil, err
			}
			conditions = cg
		}

		actions := make([]domain.Action, 0, len(rn.Actions))
		for _, an := range rn.Actions {
			action, err := convertAction(an, sourceName, noteName)
			if err != nil {
				return nil, err
			}
			actions = append(actions, action)
		}

		rules = append(rules, &domain.RuleIR{
			Name:        rn.Name,
			Description: rn.Description,
			Source:      domain.SourceLocation{File: sourceName, Line: rn.line, Column: rn.column, RawText: rn.Name},
			Conditions:  conditions,
			Actions:     actions,
		})
	}

	if len(invalidNames) > 0 {
		return nil, &domain.CatalogError{
			Names:    invalidNames,
			Location: domain.SourceLocation{File: sourceName},
		}
	}

	return rules, nil
}

func convertConditionsBlock(block *conditionsBlock, sourceName string, noteName func(string)) (*domain.ConditionGroup, error) {
	all := make([]domain.Condition, 0, len(block.All))
	for _, item := range block.All {
		c, err := convertCondition(item.Condition, sourceName, noteName)
		if err != nil {
			return nil, err
		}
		all = append(all, c)
	}
	any := make([]domain.Condition, 0, len(block.Any))
	for _, item := range block.Any {
		c, err := convertCondition(item.Condition, sourceName, noteName)
		if err != nil {
			return nil, err
		}
		any = append(any, c)
	}
	return &domain.ConditionGroup{All: all, Any: any}, nil
}

func convertCondition(n conditionNode, sourceName string, noteName func(string)) (domain.Condition, error) {
	loc := domain.SourceLocation{File: sourceName, Line: n.line, Column: n.column}

	switch n.Type {
	case "comparison":
		op, err := domain.ParseComparisonOp(n.Op)
		if err != nil {
			return domain.Condition{}, &domain.ParseError{Message: err.Error(), Location: loc}
		}
		noteName(n.Sensor)
		return domain.Condition{Comparison: &domain.Comparison{Sensor: n.Sensor, Op: op, Value: n.Value}}, nil

	case "expression":
		if n.Expr == "" {
			return domain.Condition{}, &domain.ParseError{Message: "expression condition requires expr", Location: loc}
		}
		return domain.Condition{Expression: &domain.Expression{Expr: n.Expr}}, nil

	case "threshold_over_time":
		if n.DurationMs < 0 {
			return domain.Condition{}, &domain.ParseError{Message: "duration_ms must be non-negative", Location: loc}
		}
		mode := domain.ThresholdMode(n.Mode)
		if mode != domain.ModeStrict && mode != domain.ModeExtendLastKnown {
			return domain.Condition{}, &domain.ParseError{
				Message:  fmt.Sprintf("unknown threshold mode %q", n.Mode),
				Location: loc,
			}
		}
		direction := domain.ThresholdDirection(n.Direction)
		if direction == "" {
			direction = domain.DirectionAbove
		}
		if direction != domain.DirectionAbove && direction != domain.DirectionBelow {
			return domain.Condition{}, &domain.ParseError{
				Message:  fmt.Sprintf("unknown threshold direction %q", n.Direction),
				Location: loc,
			}
		}
		noteName(n.Sensor)
		return domain.Condition{ThresholdOverTime: &domain.ThresholdOverTime{
			Sensor:     n.Sensor,
			Threshold:  n.Threshold,
			DurationMs: uint32(n.DurationMs),
			Mode:       mode,
			Direction:  direction,
		}}, nil

	case "group":
		all := make([]domain.Condition, 0, len(n.All))
		for _, item := range n.All {
			c, err := convertCondition(item.Condition, sourceName, noteName)
			if err != nil {
				return domain.Condition{}, err
			}
			all = append(all, c)
		}
		any := make([]domain.Condition, 0, len(n.Any))
		for _, item := range n.Any {
			c, err := convertCondition(item.Condition, sourceName, noteName)
			if err != nil {
				return domain.Condition{}, err
			}
			any = append(any, c)
		}
		return domain.Condition{Group: &domain.ConditionGroup{All: all, Any: any}}, nil

	default:
		return domain.Condition{}, &domain.ParseError{
			Message:  fmt.Sprintf("unknown condition type %q", n.Type),
			Location: loc,
		}
	}
}

func convertAction(n actionItem, sourceName string, noteName func(string)) (domain.Action, error) {
	loc := domain.SourceLocation{File: sourceName, Line: n.line, Column: n.column}

	if n.SetValue != nil && n.SendMessage != nil {
		return domain.Action{}, &domain.ParseError{
			Message:  "action item may not set both set_value and send_message",
			Location: loc,
		}
	}

	switch {
	case n.SetValue != nil:
		sv := n.SetValue
		if sv.Key == "" {
			return domain.Action{}, &domain.ParseError{Message: "set_value requires key", Location: loc}
		}
		hasValue := sv.Value != nil
		hasExpr := sv.ValueExpression != ""
		if hasValue == hasExpr {
			return domain.Action{}, &domain.ParseError{
				Message:  "set_value requires exactly one of value or value_expression",
				Location: loc,
			}
		}
		noteName(sv.Key)
		action := domain.SetValue{Key: sv.Key}
		if hasValue {
			action.Value = sv.Value
		} else {
			action.ValueExpr = sv.ValueExpression
		}
		return domain.Action{SetValue: &action}, nil

	case n.SendMessage != nil:
		sm := n.SendMessage
		if sm.Channel == "" || sm.Message == "" {
			return domain.Action{}, &domain.ParseError{Message: "send_message requires channel and message", Location: loc}
		}
		return domain.Action{SendMessage: &domain.SendMessage{Channel: sm.Channel, Message: sm.Message}}, nil

	default:
		return domain.Action{}, &domain.ParseError{Message: "action item must set set_value or send_message", Location: loc}
	}
}
