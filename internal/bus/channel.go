package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pulsar-rules/pulsar/internal/metrics"
)

// Message is one published SendMessage action, delivered to subscribers of
// its channel.
type Message struct {
	Channel   string
	Text      string
	Timestamp time.Time
}

// Handler processes a delivered Message.
type Handler func(ctx context.Context, msg *Message) error

// Subscription lets a caller stop receiving messages.
type Subscription interface {
	Unsubscribe()
	Channel() string
}

// ChannelBus implements domain.MessagePublisher using Go channels. It is
// the Community-tier event bus: no external dependency, best-effort
// delivery, non-blocking publish.
type ChannelBus struct {
	mu            sync.RWMutex
	bufferSize    int
	subscriptions map[string][]*channelSubscription
	closed        bool
}

type channelSubscription struct {
	channel string
	msgCh   chan *Message
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewChannelBus creates a channel-based event bus with the given
// per-subscriber buffer size (defaulting to 1000).
func NewChannelBus(bufferSize int) *ChannelBus {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &ChannelBus{
		bufferSize:    bufferSize,
		subscriptions: make(map[string][]*channelSubscription),
	}
}

// Publish implements domain.MessagePublisher. Delivery to subscribers is
// non-blocking: a full subscriber channel simply drops the message rather
// than stalling rule evaluation.
func (b *ChannelBus) Publish(ctx context.Context, channel, message string) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("bus: channel bus is closed")
	}
	subs := b.subscriptions[channel]
	b.mu.RUnlock()

	msg := &Message{Channel: channel, Text: message, Timestamp: time.Now()}
	for _, sub := range subs {
		select {
		case sub.msgCh <- msg:
		default:
		}
	}
	metrics.Runtime.MessagesPublished.WithLabelValues(channel).Inc()
	return nil
}

// Subscribe registers handler to receive every message published on
// channel until the returned Subscription is unsubscribed or the bus
// closes.
func (b *ChannelBus) Subscribe(ctx context.Context, channel string, handler Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("bus: channel bus is closed")
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &channelSubscription{
		channel: channel,
		msgCh:   make(chan *Message, b.bufferSize),
		ctx:     subCtx,
		cancel:  cancel,
	}
	go func() {
		for {
			select {
			case <-sub.ctx.Done():
				return
			case msg := <-sub.msgCh:
				if msg != nil {
					_ = handler(sub.ctx, msg)
				}
			}
		}
	}()

	b.subscriptions[channel] = append(b.subscriptions[channel], sub)
	return sub, nil
}

// Ping reports whether the bus can still accept publishes.
func (b *ChannelBus) Ping(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("bus: channel bus is closed")
	}
	return nil
}

// Close stops delivery on every subscription.
func (b *ChannelBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, subs := range b.subscriptions {
		for _, sub := range subs {
			sub.cancel()
		}
	}
	b.subscriptions = make(map[string][]*channelSubscription)
	return nil
}

func (s *channelSubscription) Unsubscribe() { s.cancel() }
func (s *channelSubscription) Channel() string { return s.channel }
