// Package bus implements domain.MessagePublisher: the external
// message-publish interface that emitted SendMessage actions call into at
// runtime (spec.md §4.4). Pulsar ships an in-process channel bus for the
// Community tier and a NATS-backed bus for the Pro tier, the same split the
// teacher uses for its own event bus.
package bus

import (
	"fmt"

	"github.com/pulsar-rules/pulsar/internal/domain"
)

// New builds a MessagePublisher from cfg.Type ("channel" or "nats").
func New(cfg domain.EventBusConfig) (domain.MessagePublisher, error) {
	switch cfg.Type {
	case "", "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil
	case "nats":
		return NewNATSBus(cfg)
	default:
		return nil, fmt.Errorf("bus: unsupported event bus type %q", cfg.Type)
	}
}
