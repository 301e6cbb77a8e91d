package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Manager owns the active policy snapshot and coordinates reloads.
// Reads are lock-cheap; reloads swap the snapshot atomically and keep
// the previous one when loading fails.
type Manager struct {
	loader *Loader
	path   string
	logger *slog.Logger

	mu            sync.RWMutex
	current       *Snapshot
	version       uint64
	lastLoadError error

	watchMu     sync.Mutex
	watchCancel context.CancelFunc
}

// New creates a manager for the policy file at path.
func New(loader *Loader, path string, logger *slog.Logger) *Manager {
	if loader == nil {
		loader = NewLoader(nil, LoaderConfig{})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		loader: loader,
		path:   path,
		logger: logger,
	}
}

// Load performs the initial load. Unlike Reload it has no previous
// snapshot to fall back to, so callers should treat an error as fatal.
func (m *Manager) Load() error {
	return m.reload("load")
}

// Reload re-reads the policy file. On failure the active snapshot is
// left untouched and the error is recorded.
func (m *Manager) Reload() error {
	return m.reload("reload")
}

func (m *Manager) reload(op string) error {
	start := time.Now()

	snapshot, err := m.loader.Load(m.path)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.lastLoadError = err
		if m.current != nil {
			m.logger.Error("policy "+op+" failed, keeping previous policies",
				"path", m.path,
				"version", m.current.Version,
				"error", err,
			)
		} else {
			m.logger.Error("policy "+op+" failed",
				"path", m.path,
				"error", err,
			)
		}
		return err
	}

	m.version++
	snapshot.Version = m.version
	m.current = snapshot
	m.lastLoadError = nil

	m.logger.Info("policies loaded",
		"path", m.path,
		"version", snapshot.Version,
		"policies", len(snapshot.Set.Policies),
		"warnings", snapshot.Report.WarningCount(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Current returns the active snapshot, or nil before the first
// successful Load.
func (m *Manager) Current() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// LastLoadError returns the error from the most recent load attempt.
func (m *Manager) LastLoadError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastLoadError
}

// Watch starts hot reload of the policy file. It blocks until ctx is
// cancelled or Close is called.
func (m *Manager) Watch(ctx context.Context) error {
	m.watchMu.Lock()
	if m.watchCancel != nil {
		m.watchMu.Unlock()
		return fmt.Errorf("watch already started")
	}
	ctx, m.watchCancel = context.WithCancel(ctx)
	m.watchMu.Unlock()

	watcher, err := NewFileWatcher(DefaultFileWatcherConfig(m.path), m.logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- watcher.Watch(ctx, m.Reload)
	}()

	select {
	case err := <-watchErr:
		return err
	case <-ctx.Done():
	}

	if err := watcher.Stop(); err != nil {
		m.logger.Error("failed to stop file watcher", "error", err)
		return err
	}
	return nil
}

// Close stops watching, if a watch is running.
func (m *Manager) Close() error {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	if m.watchCancel != nil {
		m.watchCancel()
		m.watchCancel = nil
	}
	return nil
}
