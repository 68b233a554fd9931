package replay

import (
	"testing"

	"simcore/internal/events"
	"simcore/internal/primitives"
	"simcore/internal/worldstate"
)

func newWorldWithEntity(t *testing.T) (*worldstate.World, primitives.EntityId) {
	t.Helper()
	w := worldstate.New("T", 1)
	id := w.AllocateEntityID()
	w.AddEntity(worldstate.Entity{ID: id, Kind: worldstate.KindCreature, State: worldstate.StateActive, Position: primitives.WorldPos{Zone: primitives.OriginZone}})
	return w, id
}

func TestApplyEvent_EntityPropertyChangedWritesThroughNamedSlot(t *testing.T) {
	w, id := newWorldWithEntity(t)
	name := "Rex"

	err := ApplyEvent(w, events.New(0, events.EventData{
		Kind: events.KindEntityPropertyChanged,
		EntityPropertyChanged: &events.EntityPropertyChanged{
			EntityID: id, Property: "name", Name: &name,
		},
	}))
	if err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}

	ent, ok := w.GetEntity(id)
	if !ok {
		t.Fatalf("entity %d missing after replay", id)
	}
	if ent.Properties.Name == nil || *ent.Properties.Name != "Rex" {
		t.Fatalf("Properties.Name = %v, want Rex", ent.Properties.Name)
	}
}

func TestApplyEvent_EntityPropertyChangedAmountAndHealth(t *testing.T) {
	w, id := newWorldWithEntity(t)
	amount := int64(42)
	health := int64(7)

	for _, e := range []events.SimEvent{
		events.New(0, events.EventData{Kind: events.KindEntityPropertyChanged, EntityPropertyChanged: &events.EntityPropertyChanged{
			EntityID: id, Property: "amount", Amount: &amount,
		}}),
		events.New(0, events.EventData{Kind: events.KindEntityPropertyChanged, EntityPropertyChanged: &events.EntityPropertyChanged{
			EntityID: id, Property: "health", Health: &health,
		}}),
	} {
		if err := ApplyEvent(w, e); err != nil {
			t.Fatalf("ApplyEvent: %v", err)
		}
	}

	ent, _ := w.GetEntity(id)
	if ent.Properties.Amount == nil || *ent.Properties.Amount != 42 {
		t.Fatalf("Properties.Amount = %v, want 42", ent.Properties.Amount)
	}
	if ent.Properties.Health == nil || *ent.Properties.Health != 7 {
		t.Fatalf("Properties.Health = %v, want 7", ent.Properties.Health)
	}
}

func TestApplyEvent_EntityPropertyChangedUnknownNameNoOps(t *testing.T) {
	w, id := newWorldWithEntity(t)
	before, _ := w.GetEntity(id)

	if err := ApplyEvent(w, events.New(0, events.EventData{Kind: events.KindEntityPropertyChanged, EntityPropertyChanged: &events.EntityPropertyChanged{
		EntityID: id, Property: "nickname",
	}})); err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}

	after, _ := w.GetEntity(id)
	if after.Properties != before.Properties {
		t.Fatalf("unknown property name mutated entity: before=%+v after=%+v", before.Properties, after.Properties)
	}
}

func TestApplyEvent_EntityPropertyChangedMissingEntityNoOps(t *testing.T) {
	w, _ := newWorldWithEntity(t)
	name := "ghost"
	if err := ApplyEvent(w, events.New(0, events.EventData{Kind: events.KindEntityPropertyChanged, EntityPropertyChanged: &events.EntityPropertyChanged{
		EntityID: 999, Property: "name", Name: &name,
	}})); err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}
	if _, ok := w.GetEntity(999); ok {
		t.Fatalf("entity 999 should not exist")
	}
}
