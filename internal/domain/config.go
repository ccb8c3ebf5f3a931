package domain

import "time"

// Tier selects which SensorStore/EventBus implementation the reference
// runtime wires up, mirroring the teacher's Community/Pro split.
type Tier string

const (
	TierCommunity Tier = "community"
	TierPro       Tier = "pro"
)

// SystemConfig is the decoded form of the system config YAML file described
// in spec.md §6: `version` and `valid_sensors`, plus the runtime/tier
// expansion this port adds.
type SystemConfig struct {
	Version      int      `yaml:"version"`
	ValidSensors []string `yaml:"valid_sensors"`
	Runtime      RuntimeConfig `yaml:"runtime"`
	Tier         Tier          `yaml:"tier"`
	Store        StoreConfig   `yaml:"store"`
	EventBus     EventBusConfig `yaml:"event_bus"`
	Logging      LoggingConfig `yaml:"logging"`
}

// RuntimeConfig holds the periodic driver's tunables.
type RuntimeConfig struct {
	CycleTimeMs        int `yaml:"cycle_time_ms"`
	RingBufferCapacity int `yaml:"ring_buffer_capacity"`
	GroupSize          int `yaml:"group_size"`
}

// CycleTime returns the configured cycle time, defaulting to 100ms.
func (r RuntimeConfig) CycleTime() time.Duration {
	if r.CycleTimeMs <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(r.CycleTimeMs) * time.Millisecond
}

// Capacity returns the configured ring buffer capacity, defaulting to 100.
func (r RuntimeConfig) Capacity() int {
	if r.RingBufferCapacity <= 0 {
		return 100
	}
	return r.RingBufferCapacity
}

// Group returns the configured code-emitter group size, defaulting to 50.
func (r RuntimeConfig) Group() int {
	if r.GroupSize <= 0 {
		return 50
	}
	return r.GroupSize
}

// StoreConfig selects and configures a SensorStore backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "sqlite", "postgres", "redis"

	SQLitePath string `yaml:"sqlite_path"`

	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     int    `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresDB       string `yaml:"postgres_db"`
	PostgresSSLMode  string `yaml:"postgres_sslmode"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// EventBusConfig selects and configures the SendMessage publisher.
type EventBusConfig struct {
	Type              string `yaml:"type"` // "channel" or "nats"
	ChannelBufferSize int    `yaml:"channel_buffer_size"`
	NATSUrl           string `yaml:"nats_url"`
	NATSMaxReconnects int    `yaml:"nats_max_reconnects"`
	NATSReconnectWait int    `yaml:"nats_reconnect_wait_secs"`
}

// LoggingConfig mirrors the teacher's logging settings shape.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultSystemConfig returns Community-tier defaults: SQLite store, an
// in-process channel bus, a 100ms cycle, and info/json logging.
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		Version: 1,
		Tier:    TierCommunity,
		Runtime: RuntimeConfig{
			CycleTimeMs:        100,
			RingBufferCapacity: 100,
			GroupSize:          50,
		},
		Store: StoreConfig{
			Driver:     "sqlite",
			SQLitePath: "./pulsar.db",
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// ProSystemConfig returns Pro-tier defaults: Postgres store, NATS bus.
func ProSystemConfig() *SystemConfig {
	cfg := DefaultSystemConfig()
	cfg.Tier = TierPro
	cfg.Store = StoreConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "pulsar",
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	return cfg
}
