package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"tollgate-hq/tollgate/pkg/config"
	"tollgate-hq/tollgate/pkg/state"
)

// sweeper drops idle rate-limit and spending state on a cron schedule
// so long-gone subjects do not pin memory. An entry idle longer than
// its longest window reads the same as a fresh one, so dropping it
// never changes a decision.
type sweeper struct {
	store  state.Store
	cfg    config.ServerConfig
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	running bool
}

func newSweeper(store state.Store, cfg config.ServerConfig, logger *slog.Logger) *sweeper {
	return &sweeper{
		store:  store,
		cfg:    cfg,
		cron:   cron.New(),
		logger: logger.With("component", "server.sweeper"),
	}
}

// start schedules sweeping. An empty schedule disables it.
func (s *sweeper) start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.StateSweepSchedule == "" {
		s.logger.Debug("state sweeping not configured")
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.StateSweepSchedule, s.sweep); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.cfg.StateSweepSchedule, err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("state sweeper started",
		"schedule", s.cfg.StateSweepSchedule,
		"max_idle", s.cfg.StateMaxIdle,
	)

	go func() {
		<-ctx.Done()
		s.stop()
	}()
	return nil
}

func (s *sweeper) sweep() {
	removed := s.store.Sweep(s.cfg.StateMaxIdle)
	if removed > 0 {
		s.logger.Info("swept idle state entries",
			"removed", removed,
			"remaining", s.store.Len(),
		)
	} else {
		s.logger.Debug("no idle state entries to sweep")
	}
}

func (s *sweeper) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("state sweeper stopped")
	}
}
