// audit.go: Asynchronous tamper-evident audit trail for Warden
//
// The single consumer drains the BoreasLite ring, computes the content
// fingerprint of the responsible executable and appends one record per
// denial to a durable append-only store. All blocking I/O in the monitor
// lives here, isolated from decision latency.
//
// Features:
// - One record per denied operation, never rewritten or deleted
// - Best-effort executable fingerprinting ("unavailable" on failure)
// - Buffered writes with background flushing
// - Append failures are diagnostics, never retried or escalated
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditConfig configures the audit trail.
type AuditConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// OutputFile is the durable log sink. A ".db" extension selects the
	// SQLite backend; anything else is an append-only line file in the
	// fixed record format. Empty selects the default line file under the
	// system log directory.
	OutputFile string `json:"output_file" yaml:"output_file"`

	// BufferSize is the number of records buffered before a synchronous
	// flush. Defaults to 64.
	BufferSize int `json:"buffer_size" yaml:"buffer_size"`

	// FlushInterval is the background flush period. Defaults to 5s.
	FlushInterval time.Duration `json:"flush_interval" yaml:"flush_interval"`
}

// DefaultAuditOutputFile is the well-known location of the append-only
// audit log when no output file is configured.
func DefaultAuditOutputFile() string {
	return filepath.Join(os.TempDir(), "warden", "denied.log")
}

// WithDefaults fills zero-valued fields with production defaults.
// Enabled is left as set: auditing is opt-in at the library surface and
// switched on by the daemon configuration layers.
func (c AuditConfig) WithDefaults() AuditConfig {
	if c.OutputFile == "" {
		c.OutputFile = DefaultAuditOutputFile()
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 64
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 5 * time.Second
	}
	return c
}

// LogRecord is one formatted audit entry: the denial descriptor plus the
// content fingerprint computed at log time.
type LogRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	Op          OpKind    `json:"op"`
	Path        string    `json:"pathname"`
	Fingerprint string    `json:"content_fingerprint"`
	TGID        int       `json:"tgid"`
	TID         int       `json:"tid"`
	EUID        int       `json:"effective_uid"`
	RUID        int       `json:"real_uid"`
}

// Format renders the record in the stable single-line field order of the
// on-disk log.
func (r LogRecord) Format() string {
	return fmt.Sprintf("pathname: %s, file content hash: %s, tgid: %d, tid: %d, effective uid: %d, real uid: %d",
		r.Path, r.Fingerprint, r.TGID, r.TID, r.EUID, r.RUID)
}

// AuditLogger turns consumed denial events into durable log records.
// It is driven by the ring's single consumer goroutine, so its internal
// buffer only needs protection against concurrent Flush/Close callers.
type AuditLogger struct {
	config   AuditConfig
	backend  auditBackend
	buffer   []LogRecord
	bufferMu sync.Mutex

	flushTicker *time.Ticker
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewAuditLogger creates an audit logger with the backend selected by
// the configured output file.
func NewAuditLogger(config AuditConfig) (*AuditLogger, error) {
	config = config.WithDefaults()

	var backend auditBackend
	if config.Enabled {
		var err error
		backend, err = createAuditBackend(config)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize audit backend: %w", err)
		}
	}

	logger := &AuditLogger{
		config:  config,
		backend: backend,
		buffer:  make([]LogRecord, 0, config.BufferSize),
		stopCh:  make(chan struct{}),
	}

	if config.Enabled && config.FlushInterval > 0 {
		logger.flushTicker = time.NewTicker(config.FlushInterval)
		go logger.flushLoop()
	}

	return logger, nil
}

// consume is the ring processor: it expands the fixed-slot event,
// fingerprints the responsible executable and buffers the record.
// Fingerprint failure marks the field unavailable rather than dropping
// the record; the executing file may have changed since the decision,
// which is an accepted staleness window.
func (al *AuditLogger) consume(event *DeniedEvent) {
	if al == nil || al.backend == nil {
		return
	}

	record := LogRecord{
		Timestamp: time.Unix(0, event.Timestamp),
		Op:        OpKind(event.Op),
		Path:      string(event.Path[:event.PathLen]),
		TGID:      int(event.TGID),
		TID:       int(event.TID),
		EUID:      int(event.EUID),
		RUID:      int(event.RUID),
	}

	// A truncated executable path is never fingerprinted: the prefix
	// could name a different existing file and the record would carry
	// the wrong content hash.
	record.Fingerprint = FingerprintUnavailable
	if exe := string(event.Exe[:event.ExeLen]); exe != "" && event.ExeTruncated == 0 {
		if digest, err := DigestFile(exe); err == nil {
			record.Fingerprint = digest
		}
	}

	al.bufferMu.Lock()
	al.buffer = append(al.buffer, record)
	if len(al.buffer) >= al.config.BufferSize {
		al.reportFlushError(al.flushBufferUnsafe())
	}
	al.bufferMu.Unlock()
}

// Flush immediately writes all buffered records to the backend.
func (al *AuditLogger) Flush() error {
	if al.backend == nil {
		return nil
	}
	al.bufferMu.Lock()
	defer al.bufferMu.Unlock()
	return al.flushBufferUnsafe()
}

// Close flushes remaining records and releases the sink. Safe to call
// more than once.
func (al *AuditLogger) Close() error {
	al.stopOnce.Do(func() {
		close(al.stopCh)
	})
	if al.flushTicker != nil {
		al.flushTicker.Stop()
	}

	if err := al.Flush(); err != nil {
		return fmt.Errorf("failed to flush audit logger during close: %w", err)
	}

	if al.backend != nil {
		if err := al.backend.Close(); err != nil {
			return fmt.Errorf("failed to close audit backend: %w", err)
		}
		al.backend = nil
	}
	return nil
}

// Stats returns backend statistics, or nil when auditing is disabled.
func (al *AuditLogger) Stats() (*AuditStoreStats, error) {
	if al.backend == nil {
		return nil, nil
	}
	return al.backend.Stats()
}

// flushLoop runs the background flush process.
func (al *AuditLogger) flushLoop() {
	for {
		select {
		case <-al.flushTicker.C:
			al.reportFlushError(al.Flush())
		case <-al.stopCh:
			return
		}
	}
}

// flushBufferUnsafe writes the buffer to the backend (caller holds bufferMu).
func (al *AuditLogger) flushBufferUnsafe() error {
	if len(al.buffer) == 0 || al.backend == nil {
		return nil
	}
	if err := al.backend.Write(al.buffer); err != nil {
		return fmt.Errorf("failed to write audit records to backend: %w", err)
	}
	al.buffer = al.buffer[:0]
	return nil
}

// reportFlushError surfaces an append failure as a process-visible
// diagnostic. The denial it belongs to has already completed; nothing is
// retried or escalated.
func (al *AuditLogger) reportFlushError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "warden: audit flush failed: %v\n", err)
	}
}
