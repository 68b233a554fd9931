// Package wal implements the ports.EventLog contract: a durable,
// CRC-validated binary record stream with monotonic event identifiers and
// crash-tolerant recovery. Grounded in the teacher's append-only, fsync'd
// WAL (internal/store/wal.go in the teacher repo), reframed onto the
// binary record format spec.md §4.5 requires in place of NDJSON.
package wal

import (
	"fmt"
	"os"
	"sync"

	"simcore/internal/events"
	"simcore/internal/ports"
	"simcore/internal/primitives"
)

// WAL is a single append-only file shared by one world's event stream.
type WAL struct {
	mu   sync.Mutex
	file *os.File
	path string

	nextEventID primitives.EventId
	lastTick    primitives.Tick
	count       int
}

// Open opens (creating if absent) the WAL file at path and runs recovery:
// scanning from offset 0, validating every record, and truncating any torn
// trailing record so the file ends exactly at the last valid record
// boundary.
func Open(path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open wal: %w", err)
	}

	w := &WAL{file: f, path: path, nextEventID: 1}
	if err := w.recover(); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// recover walks records from offset 0, stopping at the first invalid
// record, and truncates the file to the last valid offset if a torn tail is
// found.
func (w *WAL) recover() error {
	info, err := w.file.Stat()
	if err != nil {
		return fmt.Errorf("stat wal: %w", err)
	}
	fileLen := info.Size()

	if _, err := w.file.Seek(0, 0); err != nil {
		return fmt.Errorf("seek wal: %w", err)
	}

	var lastValidOffset int64
	var last events.SimEvent
	seen := false

	for {
		e, n, err := decodeRecord(w.file)
		if err != nil {
			break
		}
		lastValidOffset += int64(n)
		last = e
		seen = true
		w.count++
	}

	if lastValidOffset < fileLen {
		if err := w.file.Truncate(lastValidOffset); err != nil {
			return fmt.Errorf("truncate torn wal tail: %w", err)
		}
	}
	if _, err := w.file.Seek(lastValidOffset, 0); err != nil {
		return fmt.Errorf("seek wal to tail: %w", err)
	}

	if seen {
		w.nextEventID = last.EventID + 1
		w.lastTick = last.Tick
	} else {
		w.nextEventID = 1
	}
	return nil
}

// Append assigns e.EventID from the internal counter, serializes it, writes
// the full record, flushes and syncs to durable storage, and returns the
// event with its assigned id.
func (w *WAL) Append(e events.SimEvent) (events.SimEvent, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.appendLocked(e)
}

func (w *WAL) appendLocked(e events.SimEvent) (events.SimEvent, error) {
	e.EventID = w.nextEventID

	buf, err := encodeRecord(e)
	if err != nil {
		return events.SimEvent{}, fmt.Errorf("wal encode: %w", err)
	}
	if _, err := w.file.Write(buf); err != nil {
		return events.SimEvent{}, fmt.Errorf("wal write: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return events.SimEvent{}, fmt.Errorf("wal sync: %w", err)
	}

	w.nextEventID++
	w.lastTick = e.Tick
	w.count++
	return e, nil
}

// AppendBatch applies Append sequentially across es. Per-record durability
// is guaranteed; all-or-nothing atomicity across the whole batch is not
// (see spec.md §9's open question on this).
func (w *WAL) AppendBatch(es []events.SimEvent) ([]events.SimEvent, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]events.SimEvent, 0, len(es))
	for _, e := range es {
		assigned, err := w.appendLocked(e)
		if err != nil {
			return out, err
		}
		out = append(out, assigned)
	}
	return out, nil
}

// ReadAllValid scans from the start of the file and returns every record up
// to (not including) the first invalid one.
func (w *WAL) ReadAllValid() ([]events.SimEvent, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scanFrom(0)
}

// ReadFromEventID returns every event with EventID strictly greater than
// from, in order.
func (w *WAL) ReadFromEventID(from primitives.EventId) ([]events.SimEvent, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scanFrom(from)
}

// scanFrom reads the whole file from byte offset 0, returning events with
// EventID > minEventID, and restores the file position to the tail for
// subsequent appends.
func (w *WAL) scanFrom(minEventID primitives.EventId) ([]events.SimEvent, error) {
	if _, err := w.file.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("seek wal: %w", err)
	}

	var out []events.SimEvent
	var offset int64
	for {
		e, n, err := decodeRecord(w.file)
		if err != nil {
			break
		}
		offset += int64(n)
		if e.EventID > minEventID {
			out = append(out, e)
		}
	}

	if _, err := w.file.Seek(offset, 0); err != nil {
		return nil, fmt.Errorf("seek wal to tail: %w", err)
	}
	return out, nil
}

// LastEventID reflects recovered + appended state.
func (w *WAL) LastEventID() primitives.EventId {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.nextEventID == 0 {
		return 0
	}
	return w.nextEventID - 1
}

// LastTick reflects recovered + appended state.
func (w *WAL) LastTick() primitives.Tick {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastTick
}

// Len returns the number of records recovered + appended.
func (w *WAL) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// TruncateAfter closes the writer, reads valid events up to and including
// cutoff, deletes the file, resets counters to empty, then re-appends the
// preserved events — which are reassigned sequential ids starting at 1.
func (w *WAL) TruncateAfter(cutoff primitives.EventId) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	kept, err := w.scanFrom(0)
	if err != nil {
		return fmt.Errorf("wal truncate: read existing: %w", err)
	}
	var preserve []events.SimEvent
	for _, e := range kept {
		if e.EventID <= cutoff {
			preserve = append(preserve, e)
		}
	}

	if err := w.file.Close(); err != nil {
		return fmt.Errorf("wal truncate: close: %w", err)
	}
	if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("wal truncate: remove: %w", err)
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("wal truncate: reopen: %w", err)
	}
	w.file = f
	w.nextEventID = 1
	w.lastTick = 0
	w.count = 0

	for _, e := range preserve {
		e.EventID = 0
		if _, err := w.appendLocked(e); err != nil {
			return fmt.Errorf("wal truncate: reappend: %w", err)
		}
	}
	return nil
}

// Sync is an idempotent request to flush any buffered state. Append already
// syncs per record, so this only covers callers that want an explicit
// durability checkpoint.
func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Sync()
}

// Close closes the underlying file.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

var _ ports.EventLog = (*WAL)(nil)
