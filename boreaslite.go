// boreaslite.go: Xantos Powered MPSC ring buffer derived from Boreas
//
// Respecialized for Warden: the slots carry denial events instead of
// file-change events. Producers are arbitrary intercepted execution
// contexts, so the write path must never block, never allocate and never
// back-pressure the caller; on saturation events are dropped and counted.
// Each denial owns its slot copy, so a second denial can never overwrite
// a first one that has not been consumed yet.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"runtime"
	"sync/atomic"
	"time"
)

// Slot sizing for DeniedEvent path fields. Longer paths are truncated;
// the audit record carries the leading bytes, which is enough to locate
// the target.
const (
	deniedEventPathMax = 160
	deniedEventExeMax  = 92
)

// DeniedEvent is the immutable descriptor of one denied operation,
// laid out as a fixed-size slot so ring writes are a single struct copy
// with zero allocations.
type DeniedEvent struct {
	Timestamp int64 // Unix nanoseconds (8 bytes, aligned first)
	EUID      int32
	RUID      int32
	TID       int32
	TGID      int32
	Op           uint8
	PathLen      uint8
	ExeLen       uint8
	ExeTruncated uint8 // nonzero when Exe holds only a prefix of the executable path
	Path      [deniedEventPathMax]byte // protected target path
	Exe       [deniedEventExeMax]byte  // responsible executable, fingerprinted at log time
}

// setPath copies path into the fixed slot field, truncating if needed.
func (e *DeniedEvent) setPath(path string) {
	n := len(path)
	if n > deniedEventPathMax {
		n = deniedEventPathMax
	}
	copy(e.Path[:], path[:n])
	e.PathLen = uint8(n) // #nosec G115 -- bounds checked above, n <= 160
}

// setExe copies the executable path into the fixed slot field. A
// truncated prefix could name a different existing file, so truncation
// is flagged and the consumer must not fingerprint the prefix.
func (e *DeniedEvent) setExe(exe string) {
	n := len(exe)
	if n > deniedEventExeMax {
		n = deniedEventExeMax
		e.ExeTruncated = 1
	}
	copy(e.Exe[:], exe[:n])
	e.ExeLen = uint8(n) // #nosec G115 -- bounds checked above, n <= 92
}

// BoreasLite - Ultra-fast MPSC ring buffer for denial events.
// Optimized for Warden's workload:
//   - Denials are rare (a healthy system produces none)
//   - Many truly concurrent producers (every intercepted context)
//   - One dedicated consumer (the audit logger)
//   - The producer side must never wait on the consumer
type BoreasLite struct {
	// Ring buffer core
	buffer   []DeniedEvent
	capacity int64
	mask     int64 // capacity - 1 for fast modulo

	// MPSC atomic cursors with cache-line padding
	writerCursor atomic.Int64 // Producer sequence
	readerCursor atomic.Int64 // Consumer sequence
	_            [48]byte     // Padding to prevent false sharing

	// Availability tracking for MPSC coordination
	availableBuffer []atomic.Int64 // Per-slot availability markers

	// Processor function (no interface overhead)
	processor func(*DeniedEvent)

	// Control
	running atomic.Bool

	// Ultra-simple stats (just counters)
	processed atomic.Int64
	dropped   atomic.Int64
}

// NewBoreasLite creates a ring buffer for denial events.
//
// Parameters:
//   - capacity: Ring buffer size (must be power of 2; falls back to 256)
//   - processor: Function invoked once per consumed event
func NewBoreasLite(capacity int64, processor func(*DeniedEvent)) *BoreasLite {
	if capacity <= 0 || (capacity&(capacity-1)) != 0 {
		capacity = 256
	}

	b := &BoreasLite{
		buffer:          make([]DeniedEvent, capacity),
		capacity:        capacity,
		mask:            capacity - 1,
		availableBuffer: make([]atomic.Int64, capacity),
		processor:       processor,
	}

	for i := range b.availableBuffer {
		b.availableBuffer[i].Store(-1)
	}

	b.running.Store(true)
	return b
}

// Write adds a denial event to the ring.
// ZERO ALLOCATIONS - the event struct is copied into its slot directly.
//
// Returns false if the ring is full or stopped; the event is then dropped
// and counted, never blocking the producer.
func (b *BoreasLite) Write(event *DeniedEvent) bool {
	if !b.running.Load() {
		b.dropped.Add(1)
		return false
	}

	// MPSC: reserve-then-publish. A sequence is claimed only once the
	// ring is known to have room for it, so a dropped event never leaves
	// an unpublished slot the consumer would stall on. The reader cursor
	// only moves forward, so room observed before the CAS still holds
	// after it.
	var sequence int64
	for {
		sequence = b.writerCursor.Load()

		// Full ring: drop-and-count, never back-pressure the decision path
		if sequence >= b.readerCursor.Load()+b.capacity {
			b.dropped.Add(1)
			return false
		}

		if b.writerCursor.CompareAndSwap(sequence, sequence+1) {
			break
		}
	}

	// Copy event to buffer slot (zero allocation)
	slot := &b.buffer[sequence&b.mask]
	*slot = *event

	// Mark available for reading
	b.availableBuffer[sequence&b.mask].Store(sequence)

	return true
}

// ProcessBatch consumes the contiguous run of available events and hands
// each to the processor. Returns the number of events processed.
func (b *BoreasLite) ProcessBatch() int {
	current := b.readerCursor.Load()
	writerPos := b.writerCursor.Load()

	if current >= writerPos {
		return 0 // Nothing to process
	}

	// Find contiguous available events; a claimed-but-unpublished slot
	// ends the run.
	available := current - 1
	for seq := current; seq < writerPos; seq++ {
		if b.availableBuffer[seq&b.mask].Load() == seq {
			available = seq
		} else {
			break
		}
	}

	if available < current {
		return 0
	}

	processed := int(available - current + 1)
	for seq := current; seq <= available; seq++ {
		idx := seq & b.mask
		b.processor(&b.buffer[idx])
		b.availableBuffer[idx].Store(-1)
	}

	b.readerCursor.Store(available + 1)
	b.processed.Add(int64(processed))
	return processed
}

// RunProcessor runs the consumer loop: spin briefly for latency, yield,
// then sleep, since denials are rare and the consumer must not burn a
// core while the system is healthy.
func (b *BoreasLite) RunProcessor() {
	spins := 0
	for b.running.Load() {
		processed := b.ProcessBatch()
		if processed > 0 {
			spins = 0
			continue
		}

		spins++
		if spins < 1000 {
			continue
		} else if spins < 4000 {
			if spins&7 == 0 { // Yield every 8 iterations
				runtime.Gosched()
			}
		} else {
			time.Sleep(200 * time.Microsecond) // Release the CPU between denial bursts
			spins = 0
		}
	}

	// Final drain (bounded so shutdown cannot stall)
	drainAttempts := 0
	for b.ProcessBatch() > 0 && drainAttempts < 1000 {
		drainAttempts++
	}
}

// Stop stops the processor. In-flight events are drained by RunProcessor
// before it returns.
func (b *BoreasLite) Stop() {
	b.running.Store(false)
}

// Stats returns minimal counters for monitoring ring health.
//
// Returns a map containing:
//   - writer_position: Current writer sequence number
//   - reader_position: Current reader sequence number
//   - buffer_size: Ring buffer capacity
//   - items_buffered: Number of events waiting to be processed
//   - items_processed: Total events processed since startup
//   - items_dropped: Total events dropped due to buffer overflow
//   - running: 1 if processor is running, 0 if stopped
func (b *BoreasLite) Stats() map[string]int64 {
	writerPos := b.writerCursor.Load()
	readerPos := b.readerCursor.Load()

	return map[string]int64{
		"writer_position": writerPos,
		"reader_position": readerPos,
		"buffer_size":     b.capacity,
		"items_buffered":  writerPos - readerPos,
		"items_processed": b.processed.Load(),
		"items_dropped":   b.dropped.Load(),
		"running":         boolToInt64(b.running.Load()),
	}
}

// boolToInt64 converts a boolean to int64 for statistics reporting.
func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
