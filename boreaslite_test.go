// boreaslite_test.go: Denial-event ring buffer tests
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func makeDeniedEvent(path string, seq int32) *DeniedEvent {
	e := &DeniedEvent{
		Timestamp: time.Now().UnixNano(),
		EUID:      seq,
		RUID:      seq,
		TID:       seq,
		TGID:      seq,
		Op:        uint8(OpOpenWrite),
	}
	e.setPath(path)
	e.setExe("/usr/bin/editor")
	return e
}

func TestBoreasLiteWriteAndProcess(t *testing.T) {
	var processed int64
	ring := NewBoreasLite(8, func(e *DeniedEvent) {
		atomic.AddInt64(&processed, 1)
	})

	for i := int32(0); i < 5; i++ {
		if !ring.Write(makeDeniedEvent("/etc/shadow", i)) {
			t.Fatalf("Write %d rejected on non-full ring", i)
		}
	}

	if n := ring.ProcessBatch(); n != 5 {
		t.Errorf("ProcessBatch = %d, want 5", n)
	}
	if atomic.LoadInt64(&processed) != 5 {
		t.Errorf("Processed %d events, want 5", processed)
	}
}

func TestBoreasLiteEventPayload(t *testing.T) {
	var got DeniedEvent
	ring := NewBoreasLite(8, func(e *DeniedEvent) {
		got = *e
	})

	in := makeDeniedEvent("/srv/data", 77)
	if !ring.Write(in) {
		t.Fatal("Write rejected")
	}
	ring.ProcessBatch()

	if string(got.Path[:got.PathLen]) != "/srv/data" {
		t.Errorf("Path = %q, want /srv/data", got.Path[:got.PathLen])
	}
	if string(got.Exe[:got.ExeLen]) != "/usr/bin/editor" {
		t.Errorf("Exe = %q", got.Exe[:got.ExeLen])
	}
	if got.EUID != 77 || got.TGID != 77 {
		t.Errorf("Credentials not carried: euid=%d tgid=%d", got.EUID, got.TGID)
	}
}

func TestBoreasLitePathTruncation(t *testing.T) {
	long := make([]byte, deniedEventPathMax+40)
	for i := range long {
		long[i] = 'a'
	}

	e := &DeniedEvent{}
	e.setPath(string(long))
	if int(e.PathLen) != deniedEventPathMax {
		t.Errorf("PathLen = %d, want %d", e.PathLen, deniedEventPathMax)
	}
}

func TestBoreasLiteExeTruncationFlag(t *testing.T) {
	long := make([]byte, deniedEventExeMax+8)
	for i := range long {
		long[i] = 'b'
	}

	e := &DeniedEvent{}
	e.setExe(string(long))
	if int(e.ExeLen) != deniedEventExeMax {
		t.Errorf("ExeLen = %d, want %d", e.ExeLen, deniedEventExeMax)
	}
	if e.ExeTruncated == 0 {
		t.Error("Truncated executable path not flagged")
	}

	e = &DeniedEvent{}
	e.setExe("/usr/bin/editor")
	if e.ExeTruncated != 0 {
		t.Error("Untruncated executable path flagged as truncated")
	}
}

func TestBoreasLiteOverflowDropsAndCounts(t *testing.T) {
	// No consumer runs, so the ring fills and further writes drop.
	ring := NewBoreasLite(4, func(e *DeniedEvent) {})

	accepted := 0
	for i := int32(0); i < 10; i++ {
		if ring.Write(makeDeniedEvent("/etc/shadow", i)) {
			accepted++
		}
	}
	if accepted != 4 {
		t.Errorf("Accepted %d writes on a capacity-4 ring, want 4", accepted)
	}

	stats := ring.Stats()
	if stats["items_dropped"] != 6 {
		t.Errorf("items_dropped = %d, want 6", stats["items_dropped"])
	}
}

func TestBoreasLiteRecoversAfterOverflow(t *testing.T) {
	var processed int64
	ring := NewBoreasLite(4, func(e *DeniedEvent) {
		atomic.AddInt64(&processed, 1)
	})

	// Saturate the ring and drop one event.
	for i := int32(0); i < 5; i++ {
		ring.Write(makeDeniedEvent("/etc/shadow", i))
	}
	if got := ring.Stats()["items_dropped"]; got != 1 {
		t.Fatalf("items_dropped = %d, want 1", got)
	}

	if n := ring.ProcessBatch(); n != 4 {
		t.Fatalf("ProcessBatch drained %d events, want 4", n)
	}

	// A drop must not poison the ring: events written after the
	// saturation episode still reach the consumer.
	if !ring.Write(makeDeniedEvent("/etc/shadow", 9)) {
		t.Fatal("Write rejected on a drained ring")
	}
	if n := ring.ProcessBatch(); n != 1 {
		t.Errorf("ProcessBatch after overflow = %d, want 1", n)
	}
	if atomic.LoadInt64(&processed) != 5 {
		t.Errorf("Processed %d events, want 5", processed)
	}
}

func TestBoreasLiteStopRejectsWrites(t *testing.T) {
	ring := NewBoreasLite(8, func(e *DeniedEvent) {})
	ring.Stop()
	if ring.Write(makeDeniedEvent("/etc/shadow", 1)) {
		t.Error("Write accepted after Stop")
	}
}

func TestBoreasLiteRunProcessorDrains(t *testing.T) {
	var processed int64
	ring := NewBoreasLite(64, func(e *DeniedEvent) {
		atomic.AddInt64(&processed, 1)
	})

	done := make(chan struct{})
	go func() {
		ring.RunProcessor()
		close(done)
	}()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			// 40 total writes never exceed the 64-slot ring, so none drop.
			for i := int32(0); i < 10; i++ {
				if !ring.Write(makeDeniedEvent("/etc/shadow", i)) {
					t.Errorf("Write %d rejected", i)
				}
			}
		}(w)
	}
	wg.Wait()

	deadline := time.Now().Add(3 * time.Second)
	for atomic.LoadInt64(&processed) < 40 {
		if time.Now().After(deadline) {
			t.Fatalf("Processed %d of 40 events before deadline", processed)
		}
		time.Sleep(time.Millisecond)
	}

	ring.Stop()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("RunProcessor did not return after Stop")
	}
}

func TestBoreasLiteInvalidCapacityFallback(t *testing.T) {
	ring := NewBoreasLite(0, func(e *DeniedEvent) {})
	if got := ring.Stats()["buffer_size"]; got != 256 {
		t.Errorf("Expected fallback capacity 256, got %d", got)
	}
}
