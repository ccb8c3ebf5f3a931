// Package sensorstore provides concrete SensorStore implementations for
// the reference runtime driver. spec.md treats the sensor store purely as
// an external interface ("SensorStore", bulk get/set of (value,
// timestamp)); production backends are out of scope for the specified
// behavior. This package still gives the teacher's tiered storage stack a
// concrete home: SQLite backs the Community tier, Postgres and Redis back
// the Pro tier, mirroring internal/repository and internal/cache in the
// teacher.
package sensorstore

import (
	"fmt"

	"github.com/pulsar-rules/pulsar/internal/domain"
)

// New builds a SensorStore from the driver named in cfg.Driver ("sqlite",
// "postgres", or "redis").
func New(cfg domain.StoreConfig) (domain.SensorStore, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLiteStore(cfg)
	case "postgres":
		return NewPostgresStore(cfg)
	case "redis":
		return NewRedisStore(cfg)
	default:
		return nil, fmt.Errorf("sensorstore: unsupported driver %q", cfg.Driver)
	}
}
