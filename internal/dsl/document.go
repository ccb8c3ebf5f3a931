package dsl

import "gopkg.in/yaml.v3"

// The types in this file mirror the raw YAML shape of a rules document.
// ruleNode, conditionNode and actionItem implement UnmarshalYAML(*yaml.Node)
// themselves (rather than relying on struct tags alone) purely to capture
// the node's Line/Column before
// decoding its fields — that's what lets RuleIR.Source point at the exact
// line a rule or condition was authored on.

type ruleDocument struct {
	Rules []ruleNode `yaml:"rules"`
}

type ruleNode struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Conditions  *conditionsBlock `yaml:"conditions"`
	Actions     []actionItem     `yaml:"actions"`

	line, column int
}

func (r *ruleNode) UnmarshalYAML(node *yaml.Node) error {
	type alias ruleNode
	var a alias
	if err := node.Decode(&a); err != nil {
		return err
	}
	*r = ruleNode(a)
	r.line, r.column = node.Line, node.Column
	return nil
}

type conditionsBlock struct {
	All []conditionItem `yaml:"all"`
	Any []conditionItem `yaml:"any"`
}

// conditionItem is the `{condition: {...}}` wrapper object.
type conditionItem struct {
	Condition conditionNode `yaml:"condition"`
}

type conditionNode struct {
	Type string `yaml:"type"`

	// comparison
	Sensor string  `yaml:"sensor"`
	Op     string  `yaml:"op"`
	Value  float64 `yaml:"value"`

	// expression
	Expr string `yaml:"expr"`

	// threshold_over_time
	Threshold  float64 `yaml:"threshold"`
	DurationMs int64   `yaml:"duration_ms"`
	Mode       string  `yaml:"mode"`
	Direction  string  `yaml:"direction"`

	// group
	All []conditionItem `yaml:"all"`
	Any []conditionItem `yaml:"any"`

	line, column int
}

func (c *conditionNode) UnmarshalYAML(node *yaml.Node) error {
	type alias conditionNode
	var a alias
	if err := node.Decode(&a); err != nil {
		return err
	}
	*c = conditionNode(a)
	c.line, c.column = node.Line, node.Column
	return nil
}

// actionItem is the `{set_value: {...}}` / `{send_message: {...}}` wrapper.
// Both keys decode into separate pointer fields so that convertAction can
// detect "both keys present" as a distinct fatal error.
type actionItem struct {
	SetValue    *setValueNode    `yaml:"set_value"`
	SendMessage *sendMessageNode `yaml:"send_message"`

	line, column int
}

func (a *actionItem) UnmarshalYAML(node *yaml.Node) error {
	type alias actionItem
	var al alias
	if err := node.Decode(&al); err != nil {
		return err
	}
	*a = actionItem(al)
	a.line, a.column = node.Line, node.Column
	return nil
}

type setValueNode struct {
	Key             string   `yaml:"key"`
	Value           *float64 `yaml:"value"`
	ValueExpression string   `yaml:"value_expression"`
}

type sendMessageNode struct {
	Channel string `yaml:"channel"`
	Message string `yaml:"message"`
}
