// Package recorder writes audit records asynchronously so recording
// never blocks request handling.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tollgate-hq/tollgate/pkg/audit"
	"tollgate-hq/tollgate/pkg/engine"
)

// Config contains configuration for the audit recorder.
type Config struct {
	// Enabled enables audit recording.
	Enabled bool

	// BufferSize is the size of the async write channel.
	// Default: 1024
	BufferSize int

	// WriteTimeout is the timeout for writing a record to storage.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		BufferSize:   1024,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder buffers audit records and writes them to storage from a
// background worker.
type Recorder struct {
	storage    audit.Storage
	config     *Config
	recordChan chan *audit.Record
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	logger     *slog.Logger
}

// New creates a recorder over the given storage backend and starts
// its background worker.
func New(storage audit.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *audit.Record, config.BufferSize),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "audit.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("audit recorder initialized",
		"buffer_size", config.BufferSize,
		"write_timeout", config.WriteTimeout,
	)
	return r
}

// Record builds an audit record from a request and its decision and
// enqueues it. A full buffer drops the record rather than blocking.
func (r *Recorder) Record(requestID string, req *engine.Request, decision engine.Decision) {
	if !r.config.Enabled {
		return
	}

	record := &audit.Record{
		ID:            uuid.New().String(),
		RequestID:     requestID,
		Time:          req.Timestamp,
		AgentID:       req.AgentID,
		WalletAddress: req.WalletAddress,
		IPAddress:     req.IPAddress,
		Path:          req.ResourcePath,
		Amount:        req.Amount,
		Outcome:       string(decision.Outcome),
		RuleIndex:     decision.RuleIndex,
		Reason:        decision.Reason,
	}
	if record.Time.IsZero() {
		record.Time = time.Now()
	}

	select {
	case r.recordChan <- record:
	case <-r.done:
		r.logger.Warn("recorder shutting down, dropping record",
			"record_id", record.ID,
			"request_id", record.RequestID,
		)
	default:
		r.logger.Error("audit channel full, dropping record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"channel_capacity", r.config.BufferSize,
		)
	}
}

// Close drains the channel and waits for pending writes to finish.
// Subsequent calls are no-ops.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("shutting down audit recorder")
		close(r.done)
		r.wg.Wait()
		r.logger.Info("audit recorder shut down complete")
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			r.logger.Debug("draining audit channel before shutdown",
				"pending_count", len(r.recordChan),
			)
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) writeRecord(record *audit.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store audit record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"error", err,
		)
		return
	}

	r.logger.Debug("audit record written",
		"record_id", record.ID,
		"request_id", record.RequestID,
		"outcome", record.Outcome,
	)
}
