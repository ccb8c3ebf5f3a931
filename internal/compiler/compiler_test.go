package compiler

import (
	"strings"
	"testing"

	"github.com/pulsar-rules/pulsar/internal/domain"
)

// TestCompileSimpleComparison is spec.md §8 scenario 1.
func TestCompileSimpleComparison(t *testing.T) {
	text := []byte(`
rules:
  - name: A
    conditions:
      all:
        - condition: {type: comparison, sensor: temperature, op: ">", value: 100}
    actions:
      - set_value: {key: alert, value: 1}
`)
	catalog := domain.NewSensorCatalog([]string{"temperature", "alert"})

	res, err := Compile(text, catalog, "rules.yaml", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Analysis.LayerOf["A"] != 0 {
		t.Errorf("expected layer 0, got %d", res.Analysis.LayerOf["A"])
	}
	if len(res.Unit.Manifest.Files) != len(res.Unit.Files) {
		t.Errorf("manifest file count mismatch")
	}
}

// TestCompileTwoLayerChain is spec.md §8 scenario 2.
func TestCompileTwoLayerChain(t *testing.T) {
	text := []byte(`
rules:
  - name: TempConv
    actions:
      - set_value: {key: temp_c, value_expression: "(temp_f - 32) * 5/9"}
  - name: HighAlert
    conditions:
      all:
        - condition: {type: comparison, sensor: temp_c, op: ">", value: 37}
    actions:
      - set_value: {key: high, value: 1}
`)
	catalog := domain.NewSensorCatalog([]string{"temp_f", "temp_c", "high"})

	res, err := Compile(text, catalog, "rules.yaml", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Analysis.LayerOf["TempConv"] != 0 || res.Analysis.LayerOf["HighAlert"] != 1 {
		t.Fatalf("unexpected layers: %+v", res.Analysis.LayerOf)
	}

	var full strings.Builder
	for _, f := range res.Unit.Files {
		full.WriteString(f.Text)
	}
	if !strings.Contains(full.String(), `outputs["temp_c"] > 37`) {
		t.Errorf("expected HighAlert to read temp_c from outputs, got:\n%s", full.String())
	}
}

// TestCompileMixedAllAny is spec.md §8 scenario 3.
func TestCompileMixedAllAny(t *testing.T) {
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

	res, err := Compile(text, catalog, "rules.yaml", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var full strings.Builder
	for _, f := range res.Unit.Files {
		full.WriteString(f.Text)
	}
	want := `inputs["temp"] > 100 && inputs["humidity"] < 50 && (inputs["pressure"] < 950 || inputs["wind"] > 30)`
	if !strings.Contains(full.String(), want) {
		t.Errorf("expected guard %q, got:\n%s", want, full.String())
	}
}

// TestCompileCycleRejection is spec.md §8 scenario 4.
func TestCompileCycleRejection(t *testing.T) {
	text := []byte(`
rules:
  - name: R1
    conditions:
      all:
        - condition: {type: comparison, sensor: v2, op: ">", value: 0}
    actions:
      - set_value: {key: v1, value: 1}
  - name: R2
    conditions:
      all:
        - condition: {type: comparison, sensor: v1, op: ">", value: 0}
    actions:
      - set_value: {key: v2, value: 1}
`)
	catalog := domain.NewSensorCatalog([]string{"v1", "v2"})

	_, err := Compile(text, catalog, "rules.yaml", 50)
	if err == nil {
		t.Fatal("expected cycle error")
	}
	cycleErr, ok := err.(*domain.CycleError)
	if !ok {
		t.Fatalf("expected *domain.CycleError, got %T: %v", err, err)
	}
	joined := strings.Join(cycleErr.Path, ",")
	if !strings.Contains(joined, "R1") || !strings.Contains(joined, "R2") {
		t.Errorf("expected cycle path to name both rules, got %v", cycleErr.Path)
	}
}

func TestCompileCatalogErrorListsAllOffendingNames(t *testing.T) {
	text := []byte(`
rules:
  - name: A
    conditions:
      all:
        - condition: {type: comparison, sensor: bogus1, op: ">", value: 1}
    actions:
      - set_value: {key: bogus2, value: 1}
`)
	catalog := domain.NewSensorCatalog([]string{"real"})

	_, err := Compile(text, catalog, "rules.yaml", 50)
	if err == nil {
		t.Fatal("expected catalog error")
	}
	catErr, ok := err.(*domain.CatalogError)
	if !ok {
		t.Fatalf("expected *domain.CatalogError, got %T: %v", err, err)
	}
	joined := strings.Join(catErr.Names, ",")
	if !strings.Contains(joined, "bogus1") || !strings.Contains(joined, "bogus2") {
		t.Errorf("expected catalog error to list bogus1 and bogus2, got %v", catErr.Names)
	}
}
