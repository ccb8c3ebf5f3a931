package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pulsar-rules/pulsar/internal/domain"
	"github.com/pulsar-rules/pulsar/internal/metrics"
)

// NATSBus implements domain.MessagePublisher over NATS: the Pro-tier event
// bus, used when a fleet of runtime drivers needs to fan SendMessage
// actions out to other services rather than just in-process subscribers.
type NATSBus struct {
	mu            sync.RWMutex
	conn          *nats.Conn
	subscriptions map[string]*nats.Subscription
}

// NewNATSBus connects to NATS with the reconnection policy from cfg.
func NewNATSBus(cfg domain.EventBusConfig) (*NATSBus, error) {
	url := cfg.NATSUrl
	if url == "" {
		url = nats.DefaultURL
	}
	maxReconnects := cfg.NATSMaxReconnects
	if maxReconnects == 0 {
		maxReconnects = 10
	}
	reconnectWait := cfg.NATSReconnectWait
	if reconnectWait == 0 {
		reconnectWait = 5
	}

	opts := []nats.Option{
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(time.Duration(reconnectWait) * time.Second),
		nats.ReconnectBufSize(8 * 1024 * 1024),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.Warn("nats disconnected", "error", err, "will_reconnect", !nc.IsClosed())
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			slog.Error("nats error", "error", err, "subject", subjectOf(sub))
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("bus: failed to connect to nats: %w", err)
	}

	slog.Info("nats connected", "url", conn.ConnectedUrl())

	return &NATSBus{conn: conn, subscriptions: make(map[string]*nats.Subscription)}, nil
}

func subjectOf(sub *nats.Subscription) string {
	if sub == nil {
		return ""
	}
	return sub.Subject
}

// Publish implements domain.MessagePublisher, publishing to the NATS
// subject "pulsar.<channel>".
func (b *NATSBus) Publish(ctx context.Context, channel, message string) error {
	msg := Message{Channel: channel, Text: message, Timestamp: time.Now()}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("bus: failed to marshal message: %w", err)
	}
	if err := b.conn.Publish(subjectFor(channel), data); err != nil {
		return err
	}
	metrics.Runtime.MessagesPublished.WithLabelValues(channel).Inc()
	return nil
}

// Subscribe registers handler for every message published on channel.
func (b *NATSBus) Subscribe(ctx context.Context, channel string, handler Handler) (Subscription, error) {
	natsSub, err := b.conn.Subscribe(subjectFor(channel), func(m *nats.Msg) {
		var msg Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			slog.Error("bus: failed to unmarshal nats message", "subject", m.Subject, "error", err)
			return
		}
		if err := handler(ctx, &msg); err != nil {
			slog.Error("bus: handler error", "subject", m.Subject, "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("bus: failed to subscribe: %w", err)
	}

	b.mu.Lock()
	b.subscriptions[channel] = natsSub
	b.mu.Unlock()

	return &natsSubscription{channel: channel, sub: natsSub}, nil
}

// Ping flushes the connection, surfacing connectivity errors.
func (b *NATSBus) Ping(ctx context.Context) error {
	if !b.conn.IsConnected() {
		return fmt.Errorf("bus: nats not connected")
	}
	return b.conn.FlushWithContext(ctx)
}

// Close unsubscribes everything and closes the connection.
func (b *NATSBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subscriptions {
		_ = sub.Unsubscribe()
	}
	b.subscriptions = make(map[string]*nats.Subscription)
	b.conn.Close()
	return nil
}

func subjectFor(channel string) string {
	return "pulsar." + channel
}

type natsSubscription struct {
	channel string
	sub     *nats.Subscription
}

func (s *natsSubscription) Unsubscribe() { _ = s.sub.Unsubscribe() }
func (s *natsSubscription) Channel() string { return s.channel }
