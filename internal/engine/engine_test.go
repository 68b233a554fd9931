package engine

import (
	"testing"

	"simcore/internal/hash"
	"simcore/internal/primitives"
	"simcore/internal/rng"
	"simcore/internal/simclock"
	"simcore/internal/snapshotstore"
	"simcore/internal/worldstate"
)

func newTestEngine(t *testing.T, dir string) *Engine {
	t.Helper()
	store, err := snapshotstore.New(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return New(rng.New(1), simclock.New(), store)
}

// S1. Genesis + snapshot round-trip.
func TestEngine_CreateWorldGenesisRoundTrip(t *testing.T) {
	e := newTestEngine(t, t.TempDir())

	evs, err := e.ProcessCommand(Command{Kind: CommandCreateWorld, CreateWorld: &CreateWorldCmd{Name: "T", Seed: 42}})
	if err != nil {
		t.Fatalf("create world: %v", err)
	}

	wantKinds := []string{"WorldCreated", "ZoneCreated", "WorldSaved"}
	if len(evs) != len(wantKinds) {
		t.Fatalf("got %d events, want %d: %+v", len(evs), len(wantKinds), evs)
	}
	for i, want := range wantKinds {
		if string(evs[i].Data.Kind) != want {
			t.Fatalf("event %d kind = %s, want %s", i, evs[i].Data.Kind, want)
		}
	}
	if evs[0].Data.WorldCreated.WorldID != "world_42" {
		t.Fatalf("WorldCreated.WorldID = %s, want world_42", evs[0].Data.WorldCreated.WorldID)
	}
	if evs[0].Data.WorldCreated.Name != "T" || evs[0].Data.WorldCreated.Seed != 42 {
		t.Fatalf("WorldCreated payload = %+v", evs[0].Data.WorldCreated)
	}
	if evs[1].Data.ZoneCreated.ZoneID != primitives.OriginZone {
		t.Fatalf("ZoneCreated.ZoneID = %d, want origin", evs[1].Data.ZoneCreated.ZoneID)
	}

	ids, err := e.store.ListWorlds()
	if err != nil {
		t.Fatalf("list worlds: %v", err)
	}
	if len(ids) != 1 || ids[0] != "world_42" {
		t.Fatalf("ListWorlds() = %v, want [world_42]", ids)
	}
}

// S6. Validation rejection.
func TestEngine_TickNZeroIsRejected(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	if _, err := e.ProcessCommand(Command{Kind: CommandCreateWorld, CreateWorld: &CreateWorldCmd{Name: "T", Seed: 1}}); err != nil {
		t.Fatalf("create world: %v", err)
	}
	before := e.wal.LastEventID()

	_, err := e.ProcessCommand(Command{Kind: CommandTickN, TickN: &TickNCmd{N: 0}})
	if err == nil {
		t.Fatalf("expected TickN(0) to be rejected")
	}
	se, ok := err.(*primitives.SimError)
	if !ok || se.Kind != primitives.ErrValidationFailed {
		t.Fatalf("got error %v, want ValidationFailed", err)
	}
	if len(se.Fields) != 1 || se.Fields[0].Field != "n" || se.Fields[0].Message != "Tick count must be > 0" {
		t.Fatalf("got fields %+v", se.Fields)
	}
	if e.wal.LastEventID() != before {
		t.Fatalf("LastEventID changed from %d to %d on a rejected command", before, e.wal.LastEventID())
	}
}

// S5. Crash between save and next save (no entities, so rng never advances
// regardless of the rng_state-lag subtlety noted in §4.7).
func TestEngine_CrashBetweenSavesReplaysToSameState(t *testing.T) {
	dir := t.TempDir()

	// Parallel, never-crashed oracle: 100 ticks straight through.
	oracle := newTestEngine(t, dir+"/oracle")
	mustProcess(t, oracle, Command{Kind: CommandCreateWorld, CreateWorld: &CreateWorldCmd{Name: "T", Seed: 7}})
	mustProcess(t, oracle, Command{Kind: CommandTickN, TickN: &TickNCmd{N: 100}})
	oracleHash := hash.Canonical(oracle.World())

	// Crash scenario: 50 ticks, save, 50 more ticks, "crash" (new process),
	// then LoadWorld.
	live := newTestEngine(t, dir+"/live")
	mustProcess(t, live, Command{Kind: CommandCreateWorld, CreateWorld: &CreateWorldCmd{Name: "T", Seed: 7}})
	mustProcess(t, live, Command{Kind: CommandTickN, TickN: &TickNCmd{N: 50}})
	mustProcess(t, live, Command{Kind: CommandSaveWorld})
	mustProcess(t, live, Command{Kind: CommandTickN, TickN: &TickNCmd{N: 50}})
	// no SaveWorld here: simulate a crash by just discarding `live`.

	restarted := newTestEngine(t, dir+"/live")
	mustProcess(t, restarted, Command{Kind: CommandLoadWorld, LoadWorld: &LoadWorldCmd{WorldID: "world_7"}})

	if restarted.World().CurrentTick != 100 {
		t.Fatalf("restarted CurrentTick = %d, want 100", restarted.World().CurrentTick)
	}
	if got := hash.Canonical(restarted.World()); got != oracleHash {
		t.Fatalf("restarted hash %#x != oracle hash %#x", got, oracleHash)
	}
}

// Regression: LoadWorld must re-derive the RNG's increment from the
// world's seed, not just restore the raw state word, or ticks against a
// populated world diverge after a reload because the restored generator
// resumes on the wrong output stream.
func TestEngine_RngResumesCorrectStreamAfterLoadWorld(t *testing.T) {
	dir := t.TempDir()
	amount := int64(1000)

	oracle := newTestEngine(t, dir+"/oracle")
	mustProcess(t, oracle, Command{Kind: CommandCreateWorld, CreateWorld: &CreateWorldCmd{Name: "T", Seed: 99}})
	mustProcess(t, oracle, Command{Kind: CommandSpawnEntity, SpawnEntity: &SpawnEntityCmd{
		Position: primitives.WorldPos{Zone: primitives.OriginZone}, Kind: worldstate.KindResource,
		Properties: worldstate.Properties{Amount: &amount},
	}})
	mustProcess(t, oracle, Command{Kind: CommandTickN, TickN: &TickNCmd{N: 30}})
	oracleHash := hash.Canonical(oracle.World())

	live := newTestEngine(t, dir+"/live")
	mustProcess(t, live, Command{Kind: CommandCreateWorld, CreateWorld: &CreateWorldCmd{Name: "T", Seed: 99}})
	mustProcess(t, live, Command{Kind: CommandSpawnEntity, SpawnEntity: &SpawnEntityCmd{
		Position: primitives.WorldPos{Zone: primitives.OriginZone}, Kind: worldstate.KindResource,
		Properties: worldstate.Properties{Amount: &amount},
	}})
	mustProcess(t, live, Command{Kind: CommandTickN, TickN: &TickNCmd{N: 10}})
	mustProcess(t, live, Command{Kind: CommandSaveWorld})
	// "crash": discard `live` without ticking further, reload into a fresh
	// Engine constructed with a different placeholder RNG seed, then
	// finish the remaining 20 ticks against the restored generator.
	restarted := newTestEngine(t, dir+"/live")
	mustProcess(t, restarted, Command{Kind: CommandLoadWorld, LoadWorld: &LoadWorldCmd{WorldID: "world_99"}})
	mustProcess(t, restarted, Command{Kind: CommandTickN, TickN: &TickNCmd{N: 20}})

	if got := hash.Canonical(restarted.World()); got != oracleHash {
		t.Fatalf("restarted hash %#x != oracle hash %#x after resuming ticks post-reload", got, oracleHash)
	}
}

// SetEntityProperty mutates the named slot and emits EntityPropertyChanged
// carrying the new value, the one command path that produces this event.
func TestEngine_SetEntityPropertyMutatesAndEmits(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	mustProcess(t, e, Command{Kind: CommandCreateWorld, CreateWorld: &CreateWorldCmd{Name: "T", Seed: 1}})

	amount := int64(5)
	evs, err := e.ProcessCommand(Command{Kind: CommandSpawnEntity, SpawnEntity: &SpawnEntityCmd{
		Position: primitives.WorldPos{Zone: primitives.OriginZone}, Kind: worldstate.KindResource,
	}})
	if err != nil {
		t.Fatalf("spawn entity: %v", err)
	}
	id := evs[0].Data.EntitySpawned.EntityID

	evs, err = e.ProcessCommand(Command{Kind: CommandSetEntityProperty, SetEntityProperty: &SetEntityPropertyCmd{
		EntityID: id, Property: "amount", Amount: &amount,
	}})
	if err != nil {
		t.Fatalf("set entity property: %v", err)
	}
	if len(evs) != 1 || evs[0].Data.Kind != "EntityPropertyChanged" {
		t.Fatalf("got events %+v, want one EntityPropertyChanged", evs)
	}
	got := evs[0].Data.EntityPropertyChanged
	if got.Property != "amount" || got.Amount == nil || *got.Amount != 5 {
		t.Fatalf("EntityPropertyChanged payload = %+v", got)
	}

	ent, ok := e.World().GetEntity(id)
	if !ok || ent.Properties.Amount == nil || *ent.Properties.Amount != 5 {
		t.Fatalf("entity amount not updated: %+v", ent)
	}
}

// An unrecognized property name is rejected before any mutation or event.
func TestEngine_SetEntityPropertyRejectsUnknownProperty(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	mustProcess(t, e, Command{Kind: CommandCreateWorld, CreateWorld: &CreateWorldCmd{Name: "T", Seed: 1}})
	evs, err := e.ProcessCommand(Command{Kind: CommandSpawnEntity, SpawnEntity: &SpawnEntityCmd{
		Position: primitives.WorldPos{Zone: primitives.OriginZone}, Kind: worldstate.KindResource,
	}})
	if err != nil {
		t.Fatalf("spawn entity: %v", err)
	}
	id := evs[0].Data.EntitySpawned.EntityID

	_, err = e.ProcessCommand(Command{Kind: CommandSetEntityProperty, SetEntityProperty: &SetEntityPropertyCmd{
		EntityID: id, Property: "nickname",
	}})
	if err == nil {
		t.Fatalf("expected unknown property name to be rejected")
	}
	se, ok := err.(*primitives.SimError)
	if !ok || se.Kind != primitives.ErrValidationFailed {
		t.Fatalf("got error %v, want ValidationFailed", err)
	}
}

func mustProcess(t *testing.T, e *Engine, cmd Command) {
	t.Helper()
	if _, err := e.ProcessCommand(cmd); err != nil {
		t.Fatalf("process %s: %v", cmd.Kind, err)
	}
}
