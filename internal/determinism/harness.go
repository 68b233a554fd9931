// Package determinism implements the scheduled-command runner and
// checkpoint comparison used to prove the engine produces byte-identical
// outcomes given identical inputs. Grounded in original_source/seeyuj's
// determinism.rs, reframed onto ports.RNG/ports.SimClock/ports.WorldStore so
// it runs against the same engine the rest of the module drives.
package determinism

import (
	"fmt"
	"sort"

	"simcore/internal/engine"
	"simcore/internal/hash"
	"simcore/internal/primitives"
)

// ScheduledCommand pairs an engine.Command with the tick it must run on.
// Multiple commands may share a tick; they execute in the order given.
type ScheduledCommand struct {
	Tick primitives.Tick
	Cmd  engine.Command
}

// RunSpec describes one scheduled-command run.
type RunSpec struct {
	WorldName      string
	Seed           primitives.RngSeed
	Inputs         []ScheduledCommand
	TotalTicks     primitives.Tick
	CheckpointEvery primitives.Tick
}

// Checkpoint is one canonical-hash sample taken during a run.
type Checkpoint struct {
	Tick primitives.Tick
	Hash uint64
}

// Run drives eng through spec's full schedule: CreateWorld, then for every
// tick from 0 up to TotalTicks-1, every command scheduled for that tick (in
// input order) followed by a single Tick, recording a Checkpoint every
// CheckpointEvery ticks and unconditionally on the final tick.
func Run(eng *engine.Engine, spec RunSpec) ([]Checkpoint, error) {
	due := make(map[primitives.Tick][]engine.Command)
	ordered := append([]ScheduledCommand{}, spec.Inputs...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Tick < ordered[j].Tick })
	for _, sc := range ordered {
		due[sc.Tick] = append(due[sc.Tick], sc.Cmd)
	}

	if _, err := eng.ProcessCommand(engine.Command{
		Kind: engine.CommandCreateWorld,
		CreateWorld: &engine.CreateWorldCmd{Name: spec.WorldName, Seed: spec.Seed},
	}); err != nil {
		return nil, fmt.Errorf("determinism run: create world: %w", err)
	}

	var checkpoints []Checkpoint

	for t := primitives.Tick(0); t < spec.TotalTicks; t++ {
		for _, cmd := range due[t] {
			if _, err := eng.ProcessCommand(cmd); err != nil {
				return nil, fmt.Errorf("determinism run: tick %d command: %w", t, err)
			}
		}
		if _, err := eng.ProcessCommand(engine.Command{Kind: engine.CommandTick}); err != nil {
			return nil, fmt.Errorf("determinism run: tick %d: %w", t, err)
		}

		isLast := t == spec.TotalTicks-1
		isPeriodic := spec.CheckpointEvery > 0 && (t+1)%spec.CheckpointEvery == 0
		if isPeriodic || isLast {
			checkpoints = append(checkpoints, Checkpoint{
				Tick: eng.World().CurrentTick,
				Hash: hash.Canonical(eng.World()),
			})
		}
	}

	return checkpoints, nil
}

// Divergence describes the first tick at which two checkpoint sequences
// disagree.
type Divergence struct {
	Tick  primitives.Tick
	HashA uint64
	HashB uint64
}

// Verify compares two checkpoint sequences produced by Run against the same
// RunSpec, returning ok=true if they match exactly, or the first point of
// disagreement (a length mismatch is reported at the first index past the
// shorter sequence, with the longer sequence's hash on the present side).
func Verify(runA, runB []Checkpoint) (ok bool, div *Divergence) {
	n := len(runA)
	if len(runB) < n {
		n = len(runB)
	}
	for i := 0; i < n; i++ {
		if runA[i].Tick != runB[i].Tick || runA[i].Hash != runB[i].Hash {
			return false, &Divergence{Tick: runA[i].Tick, HashA: runA[i].Hash, HashB: runB[i].Hash}
		}
	}
	if len(runA) != len(runB) {
		if len(runA) > n {
			return false, &Divergence{Tick: runA[n].Tick, HashA: runA[n].Hash}
		}
		return false, &Divergence{Tick: runB[n].Tick, HashB: runB[n].Hash}
	}
	return true, nil
}
