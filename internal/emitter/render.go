package emitter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pulsar-rules/pulsar/internal/domain"
	"github.com/pulsar-rules/pulsar/internal/rewriter"
)

// formatLiteral renders a float64 with a culture-invariant decimal point and
// full round-trip precision, per spec.md §4.4.
func formatLiteral(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// renderGroup implements the recursive-descent condition-group rendering
// rules in spec.md §4.4: all members join with &&, any members join with
// ||, and when both are present the result is ALL && (ANY).
func renderGroup(g *domain.ConditionGroup, produced rewriter.ProducerIndex, loc domain.SourceLocation) (string, error) {
	if g.Empty() {
		return "true", nil
	}

	allParts := make([]string, len(g.All))
	for i, c := range g.All {
		s, err := renderCondition(c, produced, loc)
		if err != nil {
			return "", err
		}
		allParts[i] = s
	}
	anyParts := make([]string, len(g.Any))
	for i, c := range g.Any {
		s, err := renderCondition(c, produced, loc)
		if err != nil {
			return "", err
		}
		anyParts[i] = s
	}

	allJoined := strings.Join(allParts, " && ")
	anyJoined := strings.Join(anyParts, " || ")

	switch {
	case len(allParts) > 0 && len(anyParts) > 0:
		return allJoined + " && (" + anyJoined + ")", nil
	case len(allParts) > 0:
		return allJoined, nil
	default:
		return anyJoined, nil
	}
}

func renderCondition(c domain.Condition, produced rewriter.ProducerIndex, loc domain.SourceLocation) (string, error) {
	switch c.Kind() {
	case domain.KindComparison:
		cmp := c.Comparison
		source := "inputs"
		if produced(cmp.Sensor) {
			source = "outputs"
		}
		return fmt.Sprintf("%s[%q] %s %s", source, cmp.Sensor, string(cmp.Op), formatLiteral(cmp.Value)), nil

	case domain.KindExpression:
		return rewriter.Rewrite(c.Expression.Expr, loc, produced)

	case domain.KindThresholdOverTime:
		tot := c.ThresholdOverTime
		fn := "AboveForMillis"
		if tot.Direction == domain.DirectionBelow {
			fn = "BelowForMillis"
		}
		mode := "domain.ModeStrict"
		if tot.Mode == domain.ModeExtendLastKnown {
			mode = "domain.ModeExtendLastKnown"
		}
		return fmt.Sprintf("buffers.%s(%q, %s, %d, %s)",
			fn, tot.Sensor, formatLiteral(tot.Threshold), tot.DurationMs, mode), nil

	case domain.KindGroup:
		inner, err := renderGroup(c.Group, produced, loc)
		if err != nil {
			return "", err
		}
		return "(" + inner + ")", nil

	default:
		return "", fmt.Errorf("emitter: unhandled condition kind %d", c.Kind())
	}
}

// renderAction renders a single action's Go statement text (one or more
// lines, no trailing newline).
func renderAction(a domain.Action, produced rewriter.ProducerIndex, loc domain.SourceLocation) (string, error) {
	switch a.Kind() {
	case domain.KindSetValue:
		sv := a.SetValue
		var value string
		if sv.Value != nil {
			value = formatLiteral(*sv.Value)
		} else {
			rewritten, err := rewriter.Rewrite(sv.ValueExpr, loc, produced)
			if err != nil {
				return "", err
			}
			value = rewritten
		}
		return fmt.Sprintf("outputs[%q] = %s", sv.Key, value), nil

	case domain.KindSendMessage:
		sm := a.SendMessage
		return fmt.Sprintf("if err := publisher.Publish(ctx, %q, %q); err != nil {\n\t\treturn err\n\t}", sm.Channel, sm.Message), nil

	default:
		return "", fmt.Errorf("emitter: unhandled action kind %d", a.Kind())
	}
}
