package buffer

import (
	"testing"
	"time"

	"github.com/pulsar-rules/pulsar/internal/domain"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// TestAboveForStrict is spec.md §8 scenario 5: capacity-10 buffer, writes at
// t=0/100/200/300ms of 35,35,35,35, threshold 30, duration 300ms, strict ->
// true. Intercalating a 25 at t=150ms between the 35s -> false.
func TestAboveForStrict(t *testing.T) {
	clock := NewManualClock(epoch)
	m := NewManager(10, clock)

	for _, step := range []int{0, 100, 200, 300} {
		clock.Set(epoch.Add(time.Duration(step) * time.Millisecond))
		m.Update(map[string]float64{"temp": 35})
	}
	if !m.AboveFor("temp", 30, 300*time.Millisecond, domain.ModeStrict) {
		t.Error("expected strict above_for true with all samples above threshold")
	}

	clock2 := NewManualClock(epoch)
	m2 := NewManager(10, clock2)
	writes := []struct {
		ms    int
		value float64
	}{
		{0, 35}, {100, 35}, {150, 25}, {200, 35}, {300, 35},
	}
	for _, w := range writes {
		clock2.Set(epoch.Add(time.Duration(w.ms) * time.Millisecond))
		m2.Update(map[string]float64{"temp": w.value})
	}
	if m2.AboveFor("temp", 30, 300*time.Millisecond, domain.ModeStrict) {
		t.Error("expected strict above_for false when a sample in-window dips below threshold")
	}
}

// TestAboveForExtendLastKnown is spec.md §8 scenario 6.
func TestAboveForExtendLastKnown(t *testing.T) {
	clock := NewManualClock(epoch)
	m := NewManager(10, clock)
	m.Update(map[string]float64{"temp": 35})

	clock.Set(epoch.Add(400 * time.Millisecond))
	if !m.AboveFor("temp", 30, 300*time.Millisecond, domain.ModeExtendLastKnown) {
		t.Error("expected extend_last_known true once elapsed time reaches duration")
	}

	clock2 := NewManualClock(epoch)
	m2 := NewManager(10, clock2)
	m2.Update(map[string]float64{"temp": 35})
	clock2.Set(epoch.Add(200 * time.Millisecond))
	if m2.AboveFor("temp", 30, 300*time.Millisecond, domain.ModeExtendLastKnown) {
		t.Error("expected extend_last_known false before duration elapses")
	}

	clock3 := NewManualClock(epoch)
	m3 := NewManager(10, clock3)
	m3.Update(map[string]float64{"temp": 20})
	clock3.Set(epoch.Add(10 * time.Second))
	if m3.AboveFor("temp", 30, 300*time.Millisecond, domain.ModeExtendLastKnown) {
		t.Error("expected extend_last_known false when last value never exceeded threshold")
	}
}

func TestAboveForStrictEmptyWindowIsFalse(t *testing.T) {
	clock := NewManualClock(epoch)
	m := NewManager(10, clock)
	if m.AboveFor("unknown", 30, 300*time.Millisecond, domain.ModeStrict) {
		t.Error("expected false for a sensor with no samples")
	}
}

func TestBelowForSymmetric(t *testing.T) {
	clock := NewManualClock(epoch)
	m := NewManager(10, clock)
	for _, step := range []int{0, 100, 200, 300} {
		clock.Set(epoch.Add(time.Duration(step) * time.Millisecond))
		m.Update(map[string]float64{"temp": 10})
	}
	if !m.BelowFor("temp", 30, 300*time.Millisecond, domain.ModeStrict) {
		t.Error("expected strict below_for true")
	}
}

func TestEqualToThresholdIsNeitherAboveNorBelow(t *testing.T) {
	clock := NewManualClock(epoch)
	m := NewManager(10, clock)
	m.Update(map[string]float64{"temp": 30})
	clock.Set(epoch.Add(400 * time.Millisecond))
	if m.AboveFor("temp", 30, 300*time.Millisecond, domain.ModeExtendLastKnown) {
		t.Error("strict equality to threshold must not count as above")
	}
	if m.BelowFor("temp", 30, 300*time.Millisecond, domain.ModeExtendLastKnown) {
		t.Error("strict equality to threshold must not count as below")
	}
}

// TestRingBufferBound is spec.md §8 invariant 6: a buffer of capacity N
// holds at most N samples; writes past N overwrite the oldest.
func TestRingBufferBound(t *testing.T) {
	rb := NewRingBuffer(3)
	base := epoch
	for i := 0; i < 5; i++ {
		rb.Add(base.Add(time.Duration(i)*time.Second), float64(i))
	}
	if rb.Len() != 3 {
		t.Fatalf("expected len 3, got %d", rb.Len())
	}
	samples, _ := rb.Window(base.Add(10*time.Second), 20*time.Second)
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples retained, got %d", len(samples))
	}
	var values []float64
	for _, s := range samples {
		values = append(values, s.Value)
	}
	want := []float64{2, 3, 4}
	for i, v := range want {
		if values[i] != v {
			t.Errorf("sample %d: got %v, want %v", i, values, want)
		}
	}
}

func TestClearDropsAllBuffers(t *testing.T) {
	clock := NewManualClock(epoch)
	m := NewManager(10, clock)
	m.Update(map[string]float64{"temp": 35})
	m.Clear()
	if m.AboveFor("temp", 30, time.Second, domain.ModeExtendLastKnown) {
		t.Error("expected no data after Clear")
	}
}
