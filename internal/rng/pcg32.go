// Package rng implements the engine's RNG port. PCG32 is the reference
// generator: deterministic, fast, and small enough to restore/snapshot as a
// single u64.
package rng

import (
	"simcore/internal/ports"
	"simcore/internal/primitives"
)

const (
	multiplier uint64 = 6364136223846793005
)

// PCG32 is a PCG XSH-RR generator seeded once at world creation and
// restored from a snapshot's rng_state thereafter.
type PCG32 struct {
	seed  primitives.RngSeed
	state uint64
	inc   uint64
}

// New seeds a PCG32 from seed and performs the single warm-up draw the
// reference implementation requires after seeding.
func New(seed primitives.RngSeed) *PCG32 {
	r := &PCG32{}
	r.Reseed(seed)
	return r
}

// Reseed re-derives the generator's starting state from seed, including the
// reference implementation's single post-seed warm-up draw, as if this PCG32
// had just been constructed with New(seed).
func (r *PCG32) Reseed(seed primitives.RngSeed) {
	r.seed = seed
	r.inc = (uint64(seed) << 1) | 1
	r.state = 0
	r.state += uint64(seed)
	r.NextU32() // warm-up draw, the reference's single advance
}

func (r *PCG32) step() {
	r.state = r.state*multiplier + r.inc
}

// Seed returns the seed this generator was constructed with.
func (r *PCG32) Seed() primitives.RngSeed { return r.seed }

// State returns the raw 64-bit generator state for snapshotting.
func (r *PCG32) State() uint64 { return r.state }

// Restore sets the raw generator state, e.g. from a loaded snapshot.
func (r *PCG32) Restore(state uint64) { r.state = state }

// NextU32 produces the next 32-bit output via PCG's XSH-RR transform.
func (r *PCG32) NextU32() uint32 {
	old := r.state
	r.step()

	xorshifted := uint32(((old >> 18) ^ old) >> 27)
	rot := uint32(old >> 59)
	return (xorshifted >> rot) | (xorshifted << ((-rot) & 31))
}

// NextU64 composes two NextU32 draws into a 64-bit value.
func (r *PCG32) NextU64() uint64 {
	hi := uint64(r.NextU32())
	lo := uint64(r.NextU32())
	return (hi << 32) | lo
}

// NextF32 maps a NextU32 draw onto [0, 1), using its top 24 bits so the
// result is exact in float32 and never rounds up to 1.
func (r *PCG32) NextF32() float32 {
	return float32(r.NextU32()>>8) / float32(1<<24)
}

// NextF64 maps a NextU64 draw onto [0, 1), using its top 53 bits so the
// result is exact in float64 and never rounds up to 1.
func (r *PCG32) NextF64() float64 {
	return float64(r.NextU64()>>11) / float64(1<<53)
}

// RangeI32 returns a value in [min, max], inclusive of both bounds.
func (r *PCG32) RangeI32(min, max int32) int32 {
	if max <= min {
		return min
	}
	span := uint32(max-min) + 1
	return min + int32(r.NextU32()%span)
}

// RangeU32 returns a value in [min, max], inclusive of both bounds.
func (r *PCG32) RangeU32(min, max uint32) uint32 {
	if max <= min {
		return min
	}
	span := max - min + 1
	return min + r.NextU32()%span
}

// Chance reports true with probability p, the single draw required by the
// tick systems' determinism rule.
func (r *PCG32) Chance(p float32) bool {
	return r.NextF32() < p
}

var _ ports.RNG = (*PCG32)(nil)
