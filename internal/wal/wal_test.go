package wal

import (
	"os"
	"path/filepath"
	"testing"

	"simcore/internal/events"
	"simcore/internal/primitives"
)

func tickEvent(tick primitives.Tick) events.SimEvent {
	return events.New(tick, events.EventData{Kind: events.KindTickProcessed, TickProcessed: &events.TickProcessed{
		Tick: tick, SimTime: primitives.SimTimeFromTicks(tick), EntitiesProcessed: 0,
	}})
}

func TestWAL_AppendAssignsMonotonicIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.bin")
	w, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer w.Close()

	for i := 1; i <= 5; i++ {
		e, err := w.Append(tickEvent(primitives.Tick(i)))
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if e.EventID != primitives.EventId(i) {
			t.Fatalf("append %d: got event id %d", i, e.EventID)
		}
	}
	if w.LastEventID() != 5 {
		t.Fatalf("LastEventID() = %d, want 5", w.LastEventID())
	}
}

func TestWAL_RecoveryReplaysAfterReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.bin")
	w, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if _, err := w.Append(tickEvent(primitives.Tick(i))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	w2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer w2.Close()

	if w2.LastEventID() != 3 {
		t.Fatalf("after reopen LastEventID() = %d, want 3", w2.LastEventID())
	}
	all, err := w2.ReadAllValid()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("read all: got %d events, want 3", len(all))
	}

	e, err := w2.Append(tickEvent(4))
	if err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
	if e.EventID != 4 {
		t.Fatalf("append after reopen: got id %d, want 4", e.EventID)
	}
}

func TestWAL_RecoveryTruncatesTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.bin")
	w, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if _, err := w.Append(tickEvent(primitives.Tick(i))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	fullSize, err := fileSize(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if _, err := w.Append(tickEvent(4)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Simulate a crash mid-write: truncate the file partway into the 4th
	// record, leaving the first 3 intact and a torn tail behind.
	tornSize, err := fileSize(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if err := os.Truncate(path, fullSize+(tornSize-fullSize)/2); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	w2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen after torn write: %v", err)
	}
	defer w2.Close()

	if w2.LastEventID() != 3 {
		t.Fatalf("after torn-tail recovery LastEventID() = %d, want 3", w2.LastEventID())
	}

	size, err := fileSize(path)
	if err != nil {
		t.Fatalf("stat after recovery: %v", err)
	}
	if size != fullSize {
		t.Fatalf("recovered file size = %d, want %d (torn record discarded)", size, fullSize)
	}
}

func TestWAL_TruncateAfterReassignsIDsFromOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.bin")
	w, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer w.Close()

	for i := 1; i <= 5; i++ {
		if _, err := w.Append(tickEvent(primitives.Tick(i))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	if err := w.TruncateAfter(3); err != nil {
		t.Fatalf("truncate after: %v", err)
	}
	if w.LastEventID() != 3 {
		t.Fatalf("LastEventID() after truncate = %d, want 3", w.LastEventID())
	}
	all, err := w.ReadAllValid()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	for i, e := range all {
		if e.EventID != primitives.EventId(i+1) {
			t.Fatalf("event %d has id %d, want %d", i, e.EventID, i+1)
		}
	}
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
