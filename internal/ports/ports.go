// Package ports declares the abstract capabilities the engine depends on:
// RNG, clock, event log, world store and state hasher. Concrete
// implementations live in sibling packages (internal/rng, internal/wal, …);
// the engine never imports them directly.
package ports

import (
	"simcore/internal/events"
	"simcore/internal/primitives"
)

// RNG is the engine's only source of randomness. Every draw must happen in
// the deterministic order the tick systems define.
type RNG interface {
	Seed() primitives.RngSeed
	// Reseed re-derives the generator's starting state (including any
	// reference warm-up draw) from seed, as if newly constructed with it.
	Reseed(seed primitives.RngSeed)
	State() uint64
	Restore(state uint64)
	NextU32() uint32
	NextU64() uint64
	NextF32() float32
	NextF64() float64
	RangeI32(min, max int32) int32
	RangeU32(min, max uint32) uint32
	// Chance reports true with probability p, implemented as NextF32() < p.
	Chance(p float32) bool
}

// Pick returns a uniformly random element of s, or the zero value and false
// if s is empty. It is a derived helper layered on top of RNG, not part of
// the interface itself, mirroring the reference's free `pick` function.
func Pick[T any](r RNG, s []T) (T, bool) {
	var zero T
	if len(s) == 0 {
		return zero, false
	}
	return s[r.RangeU32(0, uint32(len(s)-1))], true
}

// SimClock tracks the engine's notion of tick and derived sim time. The
// engine only calls SetTick on recovery; ticks themselves advance through
// World.AdvanceTick.
type SimClock interface {
	CurrentTick() primitives.Tick
	SimTime() primitives.SimTime
	Advance() primitives.Tick
	SetTick(t primitives.Tick)
	ShouldTick() bool
	WaitForNextTick()
}

// EventLog is the WAL contract: durable, CRC-validated, monotonically
// identified event persistence with crash-tolerant recovery.
type EventLog interface {
	Append(e events.SimEvent) (events.SimEvent, error)
	AppendBatch(es []events.SimEvent) ([]events.SimEvent, error)
	ReadAllValid() ([]events.SimEvent, error)
	ReadFromEventID(from primitives.EventId) ([]events.SimEvent, error)
	LastEventID() primitives.EventId
	LastTick() primitives.Tick
	Len() int
	TruncateAfter(eventID primitives.EventId) error
	Sync() error
	Close() error
}

// WorldStore is the snapshot-store contract: metadata + snapshot file pair,
// written atomically, plus the directory layout that owns each world's WAL.
type WorldStore interface {
	Exists(worldID string) bool
	ListWorlds() ([]string, error)
	SaveSnapshot(worldID string, data []byte) error
	LoadSnapshot(worldID string) ([]byte, error)
	SaveMeta(worldID string, meta []byte) error
	LoadMeta(worldID string) ([]byte, error)
	DeleteWorld(worldID string) error
	// OpenEventLog opens (creating if absent) the WAL for worldID under this
	// store's directory layout, running WAL recovery as a side effect.
	OpenEventLog(worldID string) (EventLog, error)
}

// StateHasher accumulates bytes and produces a 64-bit canonical summary.
type StateHasher interface {
	Reset()
	Update(b []byte)
	Finalize() uint64
}
