package buffer

import (
	"sync"
	"time"

	"github.com/pulsar-rules/pulsar/internal/domain"
)

// Manager maps sensor name to RingBuffer, creating buffers lazily on first
// write. It is the runtime's only shared mutable state: Update and the
// above_for/below_for predicates are safe for concurrent use from multiple
// goroutines, per spec.md §5.
type Manager struct {
	mu       sync.RWMutex
	buffers  map[string]*RingBuffer
	capacity int
	clock    Clock
}

// NewManager returns a Manager whose lazily-created buffers have the given
// fixed capacity and that stamps writes using clock.
func NewManager(capacity int, clock Clock) *Manager {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Manager{
		buffers:  make(map[string]*RingBuffer),
		capacity: capacity,
		clock:    clock,
	}
}

// Update accepts a batch of (name, value) samples all stamped with a single
// shared now = clock.Now().
func (m *Manager) Update(values map[string]float64) {
	now := m.clock.Now()
	for name, value := range values {
		m.bufferFor(name).Add(now, value)
	}
}

// Clear drops every buffer.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffers = make(map[string]*RingBuffer)
}

func (m *Manager) bufferFor(name string) *RingBuffer {
	m.mu.RLock()
	b, ok := m.buffers[name]
	m.mu.RUnlock()
	if ok {
		return b
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok = m.buffers[name]; ok {
		return b
	}
	b = NewRingBuffer(m.capacity)
	m.buffers[name] = b
	return b
}

// AboveFor implements above_for(sensor, threshold, duration, mode).
func (m *Manager) AboveFor(sensor string, threshold float64, duration time.Duration, mode domain.ThresholdMode) bool {
	return m.thresholdFor(sensor, threshold, duration, mode, func(v, t float64) bool { return v > t })
}

// BelowFor implements below_for(sensor, threshold, duration, mode),
// symmetric with AboveFor using "<".
func (m *Manager) BelowFor(sensor string, threshold float64, duration time.Duration, mode domain.ThresholdMode) bool {
	return m.thresholdFor(sensor, threshold, duration, mode, func(v, t float64) bool { return v < t })
}

// AboveForMillis is AboveFor with the duration expressed in milliseconds,
// letting generated code pass a plain integer literal instead of importing
// the time package solely to build a time.Duration.
func (m *Manager) AboveForMillis(sensor string, threshold float64, durationMs uint32, mode domain.ThresholdMode) bool {
	return m.AboveFor(sensor, threshold, time.Duration(durationMs)*time.Millisecond, mode)
}

// BelowForMillis is the millisecond-duration counterpart of BelowFor.
func (m *Manager) BelowForMillis(sensor string, threshold float64, durationMs uint32, mode domain.ThresholdMode) bool {
	return m.BelowFor(sensor, threshold, time.Duration(durationMs)*time.Millisecond, mode)
}

func (m *Manager) thresholdFor(sensor string, threshold float64, duration time.Duration, mode domain.ThresholdMode, holds func(v, t float64) bool) bool {
	m.mu.RLock()
	b, ok := m.buffers[sensor]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	now := m.clock.Now()

	switch mode {
	case domain.ModeExtendLastKnown:
		last, ok := b.Latest()
		if !ok {
			return false
		}
		if !holds(last.Value, threshold) {
			return false
		}
		return now.Sub(last.Timestamp) >= duration

	default: // ModeStrict
		samples, guard := b.Window(now, duration)
		if len(samples) == 0 {
			return false
		}
		for _, s := range samples {
			if !holds(s.Value, threshold) {
				return false
			}
		}
		if guard != nil && !holds(guard.Value, threshold) {
			return false
		}
		return true
	}
}
