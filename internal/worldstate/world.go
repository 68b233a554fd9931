package worldstate

import (
	"sort"

	"simcore/internal/primitives"
)

// World is the in-memory state container the engine exclusively owns. The
// entities and zones maps must always be walked in ascending key order —
// the canonical hash and every tick-system traversal depend on it — so each
// is paired with a sorted key slice, the same pattern the teacher's
// consistent-hash ring uses for its ring positions.
type World struct {
	Meta          WorldMeta
	CurrentTick   primitives.Tick
	SimTime       primitives.SimTime
	RngState      uint64
	NextEntityID  primitives.EntityId

	entities      map[primitives.EntityId]Entity
	entityKeys    []primitives.EntityId // kept sorted ascending

	zones         map[primitives.ZoneId]Zone
	zoneKeys      []primitives.ZoneId // kept sorted ascending
}

// New creates a fresh world at genesis tick 0 with the Origin zone present.
func New(name string, seed primitives.RngSeed) *World {
	w := &World{
		Meta: WorldMeta{
			WorldID:       primitives.WorldID(seed),
			Name:          name,
			Seed:          seed,
			FormatVersion: FormatVersion,
		},
		NextEntityID: 1,
		entities:     make(map[primitives.EntityId]Entity),
		zones:        make(map[primitives.ZoneId]Zone),
	}
	w.AddZone(Zone{ID: primitives.OriginZone, Name: "Origin", Loaded: true})
	return w
}

// AllocateEntityID returns the next entity id and advances the allocator.
func (w *World) AllocateEntityID() primitives.EntityId {
	id := w.NextEntityID
	w.NextEntityID++
	return id
}

// BumpNextEntityID raises the allocator so that it stays above id, used by
// replay when fast-forwarding over an EntitySpawned event.
func (w *World) BumpNextEntityID(id primitives.EntityId) {
	if id+1 > w.NextEntityID {
		w.NextEntityID = id + 1
	}
}

// AddEntity inserts e into both the entity map and its declared zone's
// entity list. The zone must already exist.
func (w *World) AddEntity(e Entity) {
	if _, exists := w.entities[e.ID]; !exists {
		w.insertEntityKey(e.ID)
	}
	w.entities[e.ID] = e

	z, ok := w.zones[e.Position.Zone]
	if ok {
		z.addEntity(e.ID)
		w.zones[e.Position.Zone] = z
	}
}

// RemoveEntity deletes id from the entity map and its zone's list, returning
// the removed Entity.
func (w *World) RemoveEntity(id primitives.EntityId) (Entity, bool) {
	e, ok := w.entities[id]
	if !ok {
		return Entity{}, false
	}
	delete(w.entities, id)
	w.removeEntityKey(id)

	if z, ok := w.zones[e.Position.Zone]; ok {
		z.removeEntity(id)
		w.zones[e.Position.Zone] = z
	}
	return e, true
}

// GetEntity returns a copy of the entity with id, if present.
func (w *World) GetEntity(id primitives.EntityId) (Entity, bool) {
	e, ok := w.entities[id]
	return e, ok
}

// SetEntity overwrites an existing entity in place without touching zone
// membership. Callers that change Position must use MoveEntity instead.
func (w *World) SetEntity(e Entity) {
	w.entities[e.ID] = e
}

// MoveEntity updates an entity's WorldPos, relocating it between zone entity
// lists when the zone changes.
func (w *World) MoveEntity(id primitives.EntityId, to primitives.WorldPos) bool {
	e, ok := w.entities[id]
	if !ok {
		return false
	}
	from := e.Position
	e.Position = to
	w.entities[id] = e

	if from.Zone != to.Zone {
		if z, ok := w.zones[from.Zone]; ok {
			z.removeEntity(id)
			w.zones[from.Zone] = z
		}
		if z, ok := w.zones[to.Zone]; ok {
			z.addEntity(id)
			w.zones[to.Zone] = z
		}
	}
	return true
}

// EntityIDs returns all entity ids in ascending order.
func (w *World) EntityIDs() []primitives.EntityId {
	out := make([]primitives.EntityId, len(w.entityKeys))
	copy(out, w.entityKeys)
	return out
}

// EntityCount returns the number of entities currently in the world.
func (w *World) EntityCount() int {
	return len(w.entities)
}

// AddZone inserts z if not already present, preserving ascending zone key
// order.
func (w *World) AddZone(z Zone) {
	if _, exists := w.zones[z.ID]; !exists {
		w.insertZoneKey(z.ID)
	}
	w.zones[z.ID] = z
}

// HasZone reports whether a zone with id exists.
func (w *World) HasZone(id primitives.ZoneId) bool {
	_, ok := w.zones[id]
	return ok
}

// GetZone returns a copy of the zone with id, if present.
func (w *World) GetZone(id primitives.ZoneId) (Zone, bool) {
	z, ok := w.zones[id]
	return z, ok
}

// SetZone overwrites an existing zone record (e.g. toggling Loaded).
func (w *World) SetZone(z Zone) {
	if _, exists := w.zones[z.ID]; !exists {
		w.insertZoneKey(z.ID)
	}
	w.zones[z.ID] = z
}

// ZoneIDs returns all zone ids in ascending order.
func (w *World) ZoneIDs() []primitives.ZoneId {
	out := make([]primitives.ZoneId, len(w.zoneKeys))
	copy(out, w.zoneKeys)
	return out
}

// AdvanceTick increments CurrentTick by one, recomputes SimTime, and mirrors
// both into Meta.
func (w *World) AdvanceTick() primitives.Tick {
	w.CurrentTick++
	w.SimTime = primitives.SimTimeFromTicks(w.CurrentTick)
	w.Meta.CurrentTick = w.CurrentTick
	w.Meta.SimTime = w.SimTime
	return w.CurrentTick
}

// FastForwardTick advances CurrentTick/SimTime (and their Meta mirrors)
// directly to tick, used by replay when an event's tick is ahead of the
// world's current tick. It never rewinds.
func (w *World) FastForwardTick(tick primitives.Tick) {
	if tick <= w.CurrentTick {
		return
	}
	w.CurrentTick = tick
	w.SimTime = primitives.SimTimeFromTicks(tick)
	w.Meta.CurrentTick = w.CurrentTick
	w.Meta.SimTime = w.SimTime
}

func (w *World) insertEntityKey(id primitives.EntityId) {
	i := sort.Search(len(w.entityKeys), func(i int) bool { return w.entityKeys[i] >= id })
	w.entityKeys = append(w.entityKeys, 0)
	copy(w.entityKeys[i+1:], w.entityKeys[i:])
	w.entityKeys[i] = id
}

func (w *World) removeEntityKey(id primitives.EntityId) {
	i := sort.Search(len(w.entityKeys), func(i int) bool { return w.entityKeys[i] >= id })
	if i < len(w.entityKeys) && w.entityKeys[i] == id {
		w.entityKeys = append(w.entityKeys[:i], w.entityKeys[i+1:]...)
	}
}

func (w *World) insertZoneKey(id primitives.ZoneId) {
	i := sort.Search(len(w.zoneKeys), func(i int) bool { return w.zoneKeys[i] >= id })
	w.zoneKeys = append(w.zoneKeys, 0)
	copy(w.zoneKeys[i+1:], w.zoneKeys[i:])
	w.zoneKeys[i] = id
}
