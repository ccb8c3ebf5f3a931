package sensorstore

import "context"

// PingCloser is implemented by every concrete store in this package; the
// API server's health handler and cmd/pulsar-runtime's shutdown path use
// it without caring which backend is wired in.
type PingCloser interface {
	Ping(ctx context.Context) error
	Close() error
}
