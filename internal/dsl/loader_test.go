package dsl

import (
	"strings"
	"testing"

	"github.com/pulsar-rules/pulsar/internal/domain"
)

func TestLoadSimpleComparison(t *testing.T) {
	text := []byte(`
rules:
  - name: A
    conditions:
      all:
        - condition:
            type: comparison
            sensor: temperature
            op: ">"
            value: 100
    actions:
      - set_value:
          key: alert
          value: 1
`)
	catalog := domain.NewSensorCatalog([]string{"temperature", "alert"})

	rules, err := Load(text, catalog, "rules.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}

	r := rules[0]
	if r.Name != "A" {
		t.Errorf("expected name A, got %s", r.Name)
	}
	if r.Conditions == nil || len(r.Conditions.All) != 1 {
		t.Fatalf("expected 1 all-condition")
	}
	cmp := r.Conditions.All[0].Comparison
	if cmp == nil || cmp.Sensor != "temperature" || cmp.Op != domain.OpGT || cmp.Value != 100 {
		t.Errorf("unexpected comparison: %+v", cmp)
	}
	if len(r.Actions) != 1 || r.Actions[0].Kind() != domain.KindSetValue {
		t.Fatalf("expected 1 set_value action")
	}
	if r.Actions[0].SetValue.Key != "alert" || *r.Actions[0].SetValue.Value != 1 {
		t.Errorf("unexpected set_value action: %+v", r.Actions[0].SetValue)
	}
}

func TestLoadMixedAllAny(t *testing.T) {
	text := []byte(`
rules:
  - name: Alarm
    conditions:
      all:
        - condition: {type: comparison, sensor: temp, op: ">", value: 100}
        - condition: {type: comparison, sensor: humidity, op: "<", value: 50}
      any:
        - condition: {type: comparison, sensor: pressure, op: "<", value: 950}
        - condition: {type: comparison, sensor: wind, op: ">", value: 30}
    actions:
      - set_value: {key: alarm, value: 1}
`)
	catalog := domain.NewSensorCatalog([]string{"temp", "humidity", "pressure", "wind", "alarm"})

	rules, err := Load(text, catalog, "rules.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cg := rules[0].Conditions
	if len(cg.All) != 2 || len(cg.Any) != 2 {
		t.Fatalf("expected 2 all + 2 any, got %d/%d", len(cg.All), len(cg.Any))
	}
}

func TestLoadUnknownSensorCollectsAll(t *testing.T) {
	text := []byte(`
rules:
  - name: A
    conditions:
      all:
        - condition: {type: comparison, sensor: bogus1, op: ">", value: 1}
        - condition: {type: comparison, sensor: bogus2, op: ">", value: 1}
    actions:
      - set_value: {key: bogus3, value: 1}
`)
	catalog := domain.NewSensorCatalog([]string{"real"})

	_, err := Load(text, catalog, "rules.yaml")
	if err == nil {
		t.Fatal("expected catalog error")
	}
	var catErr *domain.CatalogError
	if !asCatalogError(err, &catErr) {
		t.Fatalf("expected CatalogError, got %T: %v", err, err)
	}
	for _, want := range []string{"bogus1", "bogus2", "bogus3"} {
		found := false
		for _, got := range catErr.Names {
			if got == want {
				found = true
			}
		}
		if !found {
			t.Errorf("expected invalid name %q in %v", want, catErr.Names)
		}
	}
}

func TestLoadUnknownConditionTypeFatal(t *testing.T) {
	text := []byte(`
rules:
  - name: A
    conditions:
      all:
        - condition: {type: nonsense}
    actions: []
`)
	catalog := domain.NewSensorCatalog([]string{"x"})
	_, err := Load(text, catalog, "rules.yaml")
	if err == nil || !strings.Contains(err.Error(), "unknown condition type") {
		t.Fatalf("expected unknown condition type error, got %v", err)
	}
}

func TestLoadDuplicateRuleName(t *testing.T) {
	text := []byte(`
rules:
  - name: A
    actions: []
  - name: A
    actions: []
`)
	catalog := domain.NewSensorCatalog(nil)
	_, err := Load(text, catalog, "rules.yaml")
	if err == nil || !strings.Contains(err.Error(), "duplicate rule name") {
		t.Fatalf("expected duplicate rule name error, got %v", err)
	}
}

func TestLoadSetValueRequiresExactlyOne(t *testing.T) {
	text := []byte(`
rules:
  - name: A
    actions:
      - set_value: {key: x, value: 1, value_expression: "y + 1"}
`)
	catalog := domain.NewSensorCatalog([]string{"x", "y"})
	_, err := Load(text, catalog, "rules.yaml")
	if err == nil || !strings.Contains(err.Error(), "exactly one of value") {
		t.Fatalf("expected exactly-one error, got %v", err)
	}
}

func TestLoadSendMessageAction(t *testing.T) {
	text := []byte(`
rules:
  - name: Notify
    actions:
      - send_message: {channel: ops, message: "fire"}
`)
	catalog := domain.NewSensorCatalog(nil)
	rules, err := Load(text, catalog, "rules.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rules[0].Actions[0].Kind() != domain.KindSendMessage {
		t.Fatalf("expected send_message action")
	}
}

func TestLoadBothActionKeysFatal(t *testing.T) {
	text := []byte(`
rules:
  - name: A
    actions:
      - set_value: {key: x, value: 1}
        send_message: {channel: c, message: m}
`)
	catalog := domain.NewSensorCatalog([]string{"x"})
	_, err := Load(text, catalog, "rules.yaml")
	if err == nil || !strings.Contains(err.Error(), "may not set both") {
		t.Fatalf("expected both-keys error, got %v", err)
	}
}

func TestLoadThresholdOverTimeDefaultsDirectionAbove(t *testing.T) {
	text := []byte(`
rules:
  - name: A
    conditions:
      all:
        - condition: {type: threshold_over_time, sensor: temp, threshold: 30, duration_ms: 300, mode: strict}
    actions:
      - set_value: {key: out, value: 1}
`)
	catalog := domain.NewSensorCatalog([]string{"temp", "out"})
	rules, err := Load(text, catalog, "rules.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tot := rules[0].Conditions.All[0].ThresholdOverTime
	if tot.Direction != domain.DirectionAbove {
		t.Errorf("expected default direction above, got %s", tot.Direction)
	}
	if !rules[0].UsesTemporal() {
		t.Errorf("expected UsesTemporal true")
	}
}

// asCatalogError is a tiny helper avoiding errors.As boilerplate duplication
// across tests in this file.
func asCatalogError(err error, target **domain.CatalogError) bool {
	ce, ok := err.(*domain.CatalogError)
	if ok {
		*target = ce
	}
	return ok
}
