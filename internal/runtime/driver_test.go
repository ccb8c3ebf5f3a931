package runtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pulsar-rules/pulsar/internal/buffer"
	"github.com/pulsar-rules/pulsar/internal/domain"
)

type fakeStore struct {
	mu      sync.Mutex
	reading map[string]domain.SensorReading
	written []map[string]float64
}

func newFakeStore() *fakeStore {
	return &fakeStore{reading: make(map[string]domain.SensorReading)}
}

func (f *fakeStore) GetMany(ctx context.Context, names []string) (map[string]domain.SensorReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]domain.SensorReading, len(names))
	for _, n := range names {
		if r, ok := f.reading[n]; ok {
			out[n] = r
		}
	}
	return out, nil
}

func (f *fakeStore) SetMany(ctx context.Context, values map[string]float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make(map[string]float64, len(values))
	for k, v := range values {
		cp[k] = v
	}
	f.written = append(f.written, cp)
	return nil
}

type fakePublisher struct{}

func (fakePublisher) Publish(ctx context.Context, channel, message string) error { return nil }

func TestDriverSingleCycle(t *testing.T) {
	store := newFakeStore()
	store.reading["temperature"] = domain.SensorReading{Value: 120, Timestamp: time.Now()}

	mgr := buffer.NewManager(100, buffer.SystemClock{})

	coordinator := func(ctx context.Context, inputs, outputs map[string]float64, buffers *buffer.Manager, publisher domain.MessagePublisher) error {
		if inputs["temperature"] > 100 {
			outputs["alert"] = 1
		}
		return nil
	}

	d := New(Config{CycleTime: 10 * time.Millisecond, Sensors: []string{"temperature"}}, store, mgr, coordinator, fakePublisher{})

	if err := d.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}

	if len(store.written) != 1 {
		t.Fatalf("expected one write batch, got %d", len(store.written))
	}
	if store.written[0]["alert"] != 1 {
		t.Fatalf("expected alert=1, got %v", store.written[0])
	}
}

func TestDriverRunStopsOnCancel(t *testing.T) {
	store := newFakeStore()
	mgr := buffer.NewManager(10, buffer.SystemClock{})
	coordinator := func(ctx context.Context, inputs, outputs map[string]float64, buffers *buffer.Manager, publisher domain.MessagePublisher) error {
		return nil
	}
	d := New(Config{CycleTime: 5 * time.Millisecond, Sensors: nil}, store, mgr, coordinator, fakePublisher{})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := d.Run(ctx)
	if err == nil {
		t.Fatal("expected Run to return ctx error after cancellation")
	}
}
