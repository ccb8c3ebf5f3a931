package bus

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestChannelBusPublishSubscribe(t *testing.T) {
	b := NewChannelBus(10)
	defer b.Close()

	var mu sync.Mutex
	var received []string

	sub, err := b.Subscribe(context.Background(), "alerts", func(ctx context.Context, msg *Message) error {
		mu.Lock()
		received = append(received, msg.Text)
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	if err := b.Publish(context.Background(), "alerts", "high temperature"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0] != "high temperature" {
		t.Fatalf("received = %v, want [\"high temperature\"]", received)
	}
}

func TestChannelBusPublishNoSubscribers(t *testing.T) {
	b := NewChannelBus(1)
	defer b.Close()
	if err := b.Publish(context.Background(), "unused", "anything"); err != nil {
		t.Fatalf("Publish with no subscribers should succeed: %v", err)
	}
}

func TestChannelBusClosed(t *testing.T) {
	b := NewChannelBus(1)
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := b.Publish(context.Background(), "alerts", "x"); err == nil {
		t.Fatal("Publish after Close should fail")
	}
	if _, err := b.Subscribe(context.Background(), "alerts", nil); err == nil {
		t.Fatal("Subscribe after Close should fail")
	}
}
