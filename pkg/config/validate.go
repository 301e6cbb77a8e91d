package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for internal consistency.
func Validate(cfg *Config) error {
	var problems []string

	if _, _, err := net.SplitHostPort(cfg.Server.ListenAddress); err != nil {
		problems = append(problems, fmt.Sprintf("server.listen_address %q is not host:port", cfg.Server.ListenAddress))
	}

	switch cfg.Audit.Backend {
	case "memory", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("audit.backend %q must be memory or sqlite", cfg.Audit.Backend))
	}
	if cfg.Audit.Backend == "sqlite" && cfg.Audit.Path == "" {
		problems = append(problems, "audit.path is required for the sqlite backend")
	}
	if cfg.Audit.RetentionDays < 0 {
		problems = append(problems, "audit.retention_days must not be negative")
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q must be debug, info, warn, or error", cfg.Logging.Level))
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q must be json or text", cfg.Logging.Format))
	}

	for _, schedule := range []struct{ name, expr string }{
		{"server.state_sweep_schedule", cfg.Server.StateSweepSchedule},
		{"audit.prune_schedule", cfg.Audit.PruneSchedule},
	} {
		if schedule.expr == "" {
			continue
		}
		if _, err := cron.ParseStandard(schedule.expr); err != nil {
			problems = append(problems, fmt.Sprintf("%s %q is not a valid cron expression", schedule.name, schedule.expr))
		}
	}

	seen := make(map[string]bool)
	for i, route := range cfg.Routes {
		if route.Path == "" || !strings.HasPrefix(route.Path, "/") {
			problems = append(problems, fmt.Sprintf("routes[%d].path %q must start with /", i, route.Path))
			continue
		}
		if seen[route.Path] {
			problems = append(problems, fmt.Sprintf("routes[%d].path %q is duplicated", i, route.Path))
		}
		seen[route.Path] = true
		if route.Price < 0 {
			problems = append(problems, fmt.Sprintf("routes[%d].price must not be negative", i))
		}
		if route.Price > 0 && route.Currency == "" {
			problems = append(problems, fmt.Sprintf("routes[%d]: priced routes require a currency", i))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}
