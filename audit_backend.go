// audit_backend.go: Backend interface and implementations for the Warden audit trail
//
// Two backends implement the same contract: an append-only line file in
// the monitor's fixed record format, and a SQLite database for queryable
// audit trails. Selection is by output-file extension; the line file is
// the default sink.
//
// Features:
// - Append is the only write mode; no record is rewritten or deleted
// - SQLite backend with WAL mode, prepared batch inserts and retention
// - Thread-safe operations with proper resource management
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
)

// auditBackend is the storage contract for denial records. Minimal by
// design: Write, Flush, Close, Maintenance, Stats. Backends may implement
// complex logic internally while keeping the contract simple.
type auditBackend interface {
	// Write persists a batch of records. Must be safe for concurrent use.
	Write(records []LogRecord) error

	// Flush commits pending writes to durable storage.
	Flush() error

	// Close releases all resources. The backend must not be used after.
	Close() error

	// Maintenance performs backend-specific upkeep. For SQLite this is
	// retention cleanup and optimizer statistics; the line file is
	// self-maintaining.
	Maintenance() error

	// Stats reports storage statistics.
	Stats() (*AuditStoreStats, error)
}

// createAuditBackend selects the backend from the configured output file:
// ".db" selects SQLite, everything else the append-only line file.
func createAuditBackend(config AuditConfig) (auditBackend, error) {
	if filepath.Ext(config.OutputFile) == ".db" {
		return newSQLiteBackend(config.OutputFile)
	}
	return newLineBackend(config.OutputFile)
}

// AuditStoreStats describes the state of an audit store.
type AuditStoreStats struct {
	TotalRecords int64            `json:"total_records"`
	RecordsByOp  map[string]int64 `json:"records_by_op,omitempty"`
	OldestRecord *time.Time       `json:"oldest_record,omitempty"`
	NewestRecord *time.Time       `json:"newest_record,omitempty"`
	StoreSize    int64            `json:"store_size_bytes"`
}

// lineAuditBackend appends one formatted record per line to a byte store
// opened once and kept open for the monitor's lifetime.
type lineAuditBackend struct {
	file   *os.File
	path   string
	mu     sync.Mutex
	closed bool
	count  int64
}

func newLineBackend(path string) (*lineAuditBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	// Append-only, owner read/write. Never truncated by this component.
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) // #nosec G304 -- operator-configured sink
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	return &lineAuditBackend{file: file, path: path}, nil
}

func (l *lineAuditBackend) Write(records []LogRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("cannot write to closed audit log")
	}

	for _, record := range records {
		if _, err := l.file.WriteString(record.Format() + "\n"); err != nil {
			return fmt.Errorf("failed to append audit record: %w", err)
		}
		l.count++
	}
	return nil
}

func (l *lineAuditBackend) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync audit log: %w", err)
	}
	return nil
}

func (l *lineAuditBackend) Maintenance() error {
	// The line file is self-maintaining; rotation belongs to the host.
	return nil
}

func (l *lineAuditBackend) Stats() (*AuditStoreStats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := &AuditStoreStats{TotalRecords: l.count}
	if info, err := os.Stat(l.path); err == nil {
		stats.StoreSize = info.Size()
	}
	return stats, nil
}

func (l *lineAuditBackend) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if err := l.file.Sync(); err != nil {
		_ = l.file.Close()
		return fmt.Errorf("failed to sync audit log during close: %w", err)
	}
	return l.file.Close()
}

// sqliteAuditBackend persists denial records to a queryable SQLite
// database with WAL journaling.
type sqliteAuditBackend struct {
	db         *sql.DB
	dbPath     string
	insertStmt *sql.Stmt
	mu         sync.RWMutex
	closed     bool
}

func newSQLiteBackend(dbPath string) (*sqliteAuditBackend, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create audit database directory: %w", err)
	}

	db, err := openAuditDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	backend := &sqliteAuditBackend{db: db, dbPath: dbPath}

	if err := backend.initializeSchema(); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to initialize audit database schema: %w", err)
	}
	if err := backend.prepareStatements(); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to prepare audit database statements: %w", err)
	}

	// Retention cleanup on startup; not critical, so failure is ignored.
	_ = backend.Maintenance()

	return backend, nil
}

// openAuditDatabase opens SQLite with pragmas tuned for an audit
// workload: WAL so the writer never blocks readers, a busy timeout for
// multi-process deployments, NORMAL sync as the durability/performance
// balance.
func openAuditDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping audit database: %w", err)
	}
	return db, nil
}

func (s *sqliteAuditBackend) initializeSchema() error {
	const createTableSQL = `
	CREATE TABLE IF NOT EXISTS denied_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		op TEXT NOT NULL,
		pathname TEXT NOT NULL,
		content_fingerprint TEXT NOT NULL,
		tgid INTEGER NOT NULL,
		tid INTEGER NOT NULL,
		effective_uid INTEGER NOT NULL,
		real_uid INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := s.db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to create denied_events table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_denied_timestamp ON denied_events(timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_denied_op ON denied_events(op)",
		"CREATE INDEX IF NOT EXISTS idx_denied_pathname ON denied_events(pathname)",
		"CREATE INDEX IF NOT EXISTS idx_denied_created_at ON denied_events(created_at)",
	}
	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

func (s *sqliteAuditBackend) prepareStatements() error {
	const insertSQL = `
	INSERT INTO denied_events (
		timestamp, op, pathname, content_fingerprint,
		tgid, tid, effective_uid, real_uid
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := s.db.Prepare(insertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	s.insertStmt = stmt
	return nil
}

func (s *sqliteAuditBackend) Write(records []LogRecord) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("cannot write to closed audit database")
	}
	s.mu.RUnlock()

	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin audit transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				fmt.Fprintf(os.Stderr, "warden: failed to rollback audit transaction: %v\n", rollbackErr)
			}
		}
	}()

	txStmt := tx.Stmt(s.insertStmt)
	defer func() {
		if closeErr := txStmt.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	for _, record := range records {
		_, err = txStmt.Exec(
			record.Timestamp.Format(time.RFC3339Nano),
			record.Op.String(),
			record.Path,
			record.Fingerprint,
			record.TGID,
			record.TID,
			record.EUID,
			record.RUID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert audit record: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit transaction: %w", err)
	}
	return nil
}

func (s *sqliteAuditBackend) Flush() error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil
	}
	s.mu.RUnlock()

	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint audit database: %w", err)
	}
	return nil
}

// Maintenance removes records past the retention window and refreshes
// optimizer statistics.
func (s *sqliteAuditBackend) Maintenance() error {
	const defaultRetentionDays = 90

	if _, err := s.db.Exec(
		"DELETE FROM denied_events WHERE created_at < datetime('now', '-' || ? || ' days')",
		defaultRetentionDays,
	); err != nil {
		return fmt.Errorf("failed to cleanup old audit records: %w", err)
	}

	for _, task := range []string{"PRAGMA optimize", "PRAGMA wal_checkpoint(FULL)"} {
		if _, err := s.db.Exec(task); err != nil {
			continue
		}
	}
	return nil
}

func (s *sqliteAuditBackend) Stats() (*AuditStoreStats, error) {
	stats := &AuditStoreStats{RecordsByOp: make(map[string]int64)}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM denied_events").Scan(&stats.TotalRecords); err != nil {
		return nil, fmt.Errorf("failed to count audit records: %w", err)
	}

	rows, err := s.db.Query("SELECT op, COUNT(*) FROM denied_events GROUP BY op")
	if err != nil {
		return nil, fmt.Errorf("failed to group audit records by op: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			_ = closeErr
		}
	}()
	for rows.Next() {
		var op string
		var count int64
		if err := rows.Scan(&op, &count); err != nil {
			return nil, fmt.Errorf("failed to scan op stats: %w", err)
		}
		stats.RecordsByOp[op] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate op stats: %w", err)
	}

	var oldestStr, newestStr sql.NullString
	err = s.db.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM denied_events").Scan(&oldestStr, &newestStr)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get record time range: %w", err)
	}
	if oldestStr.Valid {
		if oldest, parseErr := time.Parse(time.RFC3339Nano, oldestStr.String); parseErr == nil {
			stats.OldestRecord = &oldest
		}
	}
	if newestStr.Valid {
		if newest, parseErr := time.Parse(time.RFC3339Nano, newestStr.String); parseErr == nil {
			stats.NewestRecord = &newest
		}
	}

	if info, statErr := os.Stat(s.dbPath); statErr == nil {
		stats.StoreSize = info.Size()
	}
	return stats, nil
}

func (s *sqliteAuditBackend) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.insertStmt != nil {
		if err := s.insertStmt.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close insert statement: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing SQLite audit backend: %v", errs)
	}
	return nil
}

// AuditQuery filters a query against a SQLite audit store.
type AuditQuery struct {
	Since time.Time
	Op    string
	Path  string
	Limit int
}

// QueryAuditStore reads matching records back from a SQLite audit store.
// Opens the store read-only relative to the writer: WAL mode guarantees
// the query never blocks a concurrent monitor appending records.
func QueryAuditStore(dbPath string, query AuditQuery) ([]LogRecord, error) {
	db, err := openAuditDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	var conditions []string
	var args []interface{}
	if !query.Since.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, query.Since.Format(time.RFC3339Nano))
	}
	if query.Op != "" {
		conditions = append(conditions, "op = ?")
		args = append(args, query.Op)
	}
	if query.Path != "" {
		conditions = append(conditions, "pathname = ?")
		args = append(args, query.Path)
	}

	sqlQuery := "SELECT timestamp, op, pathname, content_fingerprint, tgid, tid, effective_uid, real_uid FROM denied_events"
	if len(conditions) > 0 {
		sqlQuery += " WHERE " + strings.Join(conditions, " AND ")
	}
	sqlQuery += " ORDER BY id DESC"
	if query.Limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT %d", query.Limit)
	}

	rows, err := db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit store: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	var records []LogRecord
	for rows.Next() {
		var record LogRecord
		var timestampStr, opStr string
		if err := rows.Scan(&timestampStr, &opStr, &record.Path, &record.Fingerprint,
			&record.TGID, &record.TID, &record.EUID, &record.RUID); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, timestampStr); parseErr == nil {
			record.Timestamp = ts
		}
		record.Op = parseOpKind(opStr)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit records: %w", err)
	}
	return records, nil
}

// StatAuditStore reports statistics for a SQLite audit store without
// taking ownership of it. Used by the CLI against a store another
// monitor instance is writing.
func StatAuditStore(dbPath string) (*AuditStoreStats, error) {
	backend, err := newSQLiteBackend(dbPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := backend.Close(); closeErr != nil {
			_ = closeErr
		}
	}()
	return backend.Stats()
}

// parseOpKind maps a stored op name back to its OpKind.
func parseOpKind(name string) OpKind {
	for op := OpOpenWrite; op <= OpSetattr; op++ {
		if op.String() == name {
			return op
		}
	}
	return 0
}
