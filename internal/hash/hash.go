// Package hash implements the determinism harness's canonical hasher: a
// 64-bit non-cryptographic summary of world state, stable across runs,
// machines, and process restarts.
package hash

import (
	"encoding/binary"
	"hash/fnv"

	"simcore/internal/ports"
	"simcore/internal/worldstate"
)

// FNVHasher implements ports.StateHasher with FNV-1a/64. No third-party
// library in the retrieved pack offers a non-cryptographic 64-bit hash
// (the pack's only hashing use is crypto/sha1 for consistent-hash ring
// points, which is the wrong tool here), so the standard library's
// hash/fnv is used directly — see DESIGN.md.
type FNVHasher struct {
	h hash64
}

type hash64 interface {
	Write(p []byte) (int, error)
	Sum64() uint64
	Reset()
}

// New returns a ready-to-use FNVHasher.
func New() *FNVHasher {
	return &FNVHasher{h: fnv.New64a()}
}

// Reset clears accumulated state.
func (f *FNVHasher) Reset() { f.h.Reset() }

// Update feeds additional bytes into the hash.
func (f *FNVHasher) Update(b []byte) { f.h.Write(b) }

// Finalize returns the current 64-bit digest.
func (f *FNVHasher) Finalize() uint64 { return f.h.Sum64() }

func kindByte(k worldstate.EntityKind) byte {
	switch k {
	case worldstate.KindResource:
		return 0
	case worldstate.KindCreature:
		return 1
	case worldstate.KindItem:
		return 2
	case worldstate.KindStructure:
		return 3
	default:
		return 255
	}
}

func stateByte(s worldstate.EntityState) byte {
	switch s {
	case worldstate.StateActive:
		return 0
	case worldstate.StateDormant:
		return 1
	case worldstate.StateDead:
		return 2
	default:
		return 255
	}
}

func putU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func putI32(buf []byte, v int32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return append(buf, b[:]...)
}

func putU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

// Canonical computes the canonical 64-bit hash of w per the layout in
// spec.md §4.8: scalar fields, then every entity in ascending id order,
// then every zone in ascending id order.
func Canonical(w *worldstate.World) uint64 {
	h := New()
	var buf []byte

	buf = putU64(buf, uint64(w.CurrentTick))
	buf = putU64(buf, w.SimTime.Units)
	buf = putU64(buf, w.RngState)
	buf = putU64(buf, uint64(w.NextEntityID))
	buf = putU64(buf, uint64(w.EntityCount()))

	for _, id := range w.EntityIDs() {
		e, _ := w.GetEntity(id)
		buf = putU64(buf, uint64(e.ID))
		buf = append(buf, kindByte(e.Kind))
		buf = append(buf, stateByte(e.State))
		buf = putU32(buf, uint32(e.Position.Zone))
		buf = putI32(buf, e.Position.Pos.X)
		buf = putI32(buf, e.Position.Pos.Y)
		buf = putI32(buf, e.Position.Pos.Z)
		buf = putU64(buf, uint64(e.CreatedAt))

		name := ""
		if e.Properties.Name != nil {
			name = *e.Properties.Name
		}
		buf = putU32(buf, uint32(len(name)))
		buf = append(buf, []byte(name)...)

		var amount, health int64
		if e.Properties.Amount != nil {
			amount = *e.Properties.Amount
		}
		if e.Properties.Health != nil {
			health = *e.Properties.Health
		}
		buf = putU64(buf, uint64(amount))
		buf = putU64(buf, uint64(health))
	}

	buf = putU64(buf, uint64(len(w.ZoneIDs())))
	for _, id := range w.ZoneIDs() {
		z, _ := w.GetZone(id)
		buf = putU32(buf, uint32(z.ID))
		if z.Loaded {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		buf = putU32(buf, uint32(len(z.Entities)))
	}

	h.Update(buf)
	return h.Finalize()
}

var _ ports.StateHasher = (*FNVHasher)(nil)
