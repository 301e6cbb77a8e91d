package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tollgate-hq/tollgate/pkg/audit"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig(path string) *SQLiteConfig {
	return &SQLiteConfig{
		Path:         path,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS audit_records (
	id             TEXT PRIMARY KEY,
	request_id     TEXT NOT NULL,
	time           TIMESTAMP NOT NULL,
	agent_id       TEXT,
	wallet_address TEXT,
	ip_address     TEXT,
	path           TEXT NOT NULL,
	amount         REAL,
	outcome        TEXT NOT NULL,
	rule_index     INTEGER NOT NULL,
	reason         TEXT
);

CREATE INDEX IF NOT EXISTS idx_audit_time ON audit_records(time);
CREATE INDEX IF NOT EXISTS idx_audit_agent ON audit_records(agent_id);
CREATE INDEX IF NOT EXISTS idx_audit_outcome ON audit_records(outcome);
`

// SQLiteStorage implements audit.Storage backed by a SQLite database.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens (or creates) the database and prepares the
// schema.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil || config.Path == "" {
		return nil, fmt.Errorf("sqlite storage requires a database path")
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sqlite audit storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)
	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return audit.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	if s.config.BusyTimeout > 0 {
		pragma := fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())
		if _, err := s.db.Exec(pragma); err != nil {
			return audit.NewStorageError("sqlite", "set_busy_timeout", err)
		}
	}

	if _, err := s.db.Exec(schema); err != nil {
		return audit.NewStorageError("sqlite", "create_schema", err)
	}
	return nil
}

// Store persists one audit record.
func (s *SQLiteStorage) Store(ctx context.Context, record *audit.Record) error {
	const query = `
		INSERT INTO audit_records (
			id, request_id, time,
			agent_id, wallet_address, ip_address,
			path, amount, outcome, rule_index, reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var amount interface{}
	if record.Amount != nil {
		amount = *record.Amount
	}

	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.RequestID, record.Time.UTC(),
		nullIfEmpty(record.AgentID), nullIfEmpty(record.WalletAddress), nullIfEmpty(record.IPAddress),
		record.Path, amount, record.Outcome, record.RuleIndex, nullIfEmpty(record.Reason),
	)
	if err != nil {
		return audit.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query retrieves records matching the filters, newest first.
func (s *SQLiteStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	var conditions []string
	var args []interface{}

	if query != nil {
		if !query.Since.IsZero() {
			conditions = append(conditions, "time >= ?")
			args = append(args, query.Since.UTC())
		}
		if !query.Until.IsZero() {
			conditions = append(conditions, "time <= ?")
			args = append(args, query.Until.UTC())
		}
		if query.Outcome != "" {
			conditions = append(conditions, "outcome = ?")
			args = append(args, query.Outcome)
		}
		if query.AgentID != "" {
			conditions = append(conditions, "agent_id = ?")
			args = append(args, query.AgentID)
		}
	}

	sqlQuery := "SELECT id, request_id, time, agent_id, wallet_address, ip_address, path, amount, outcome, rule_index, reason FROM audit_records"
	if len(conditions) > 0 {
		sqlQuery += " WHERE " + strings.Join(conditions, " AND ")
	}
	sqlQuery += " ORDER BY time DESC"

	limit := defaultQueryLimit
	if query != nil && query.Limit > 0 {
		limit = query.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	var records []*audit.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	return records, nil
}

// Count returns the total number of stored records.
func (s *SQLiteStorage) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_records").Scan(&count)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// DeleteOlderThan removes records older than cutoff.
func (s *SQLiteStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM audit_records WHERE time < ?", cutoff.UTC())
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}
	return deleted, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func scanRecord(rows *sql.Rows) (*audit.Record, error) {
	var record audit.Record
	var agentID, walletAddress, ipAddress, reason sql.NullString
	var amount sql.NullFloat64

	err := rows.Scan(
		&record.ID, &record.RequestID, &record.Time,
		&agentID, &walletAddress, &ipAddress,
		&record.Path, &amount, &record.Outcome, &record.RuleIndex, &reason,
	)
	if err != nil {
		return nil, err
	}

	record.AgentID = agentID.String
	record.WalletAddress = walletAddress.String
	record.IPAddress = ipAddress.String
	record.Reason = reason.String
	if amount.Valid {
		record.Amount = &amount.Float64
	}
	return &record, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
