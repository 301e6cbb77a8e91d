// Package config loads and validates the tollgate configuration file.
//
// Configuration is YAML with defaults applied before validation, and
// TOLLGATE_* environment variables override file values.
package config

import "time"

// Config is the root configuration document.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Policy  PolicyConfig  `yaml:"policy"`
	Audit   AuditConfig   `yaml:"audit"`
	Logging LoggingConfig `yaml:"logging"`
	Routes  []RouteConfig `yaml:"routes"`
}

// ServerConfig configures the mock payment-gated HTTP server.
type ServerConfig struct {
	ListenAddress string        `yaml:"listen_address"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`

	// StateSweepSchedule is a cron expression for pruning idle
	// rate-limit and spending state entries. Empty disables sweeping.
	StateSweepSchedule string `yaml:"state_sweep_schedule"`

	// StateMaxIdle is how long an entry may sit untouched before a
	// sweep removes it.
	StateMaxIdle time.Duration `yaml:"state_max_idle"`
}

// PolicyConfig locates the policy document.
type PolicyConfig struct {
	Path string `yaml:"path"`

	// Watch enables hot reload of the policy file via fsnotify.
	Watch bool `yaml:"watch"`

	// AllowInvalid loads policy sets that carry validation errors.
	// Off by default: conflicting policies should not reach serving.
	AllowInvalid bool `yaml:"allow_invalid"`
}

// AuditConfig configures the decision audit trail.
type AuditConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// Path is the SQLite database path (sqlite backend only).
	Path string `yaml:"path"`

	// BufferSize is the async recorder queue depth.
	BufferSize int `yaml:"buffer_size"`

	// RetentionDays is how long audit records are kept.
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a cron expression for retention pruning.
	// Empty disables scheduled pruning.
	PruneSchedule string `yaml:"prune_schedule"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// RouteConfig declares one payment-gated resource served by the mock
// server. Price 0 means the route is free and never returns 402.
type RouteConfig struct {
	Path     string  `yaml:"path"`
	Price    float64 `yaml:"price"`
	Currency string  `yaml:"currency"`
	PayTo    string  `yaml:"pay_to"`
}
