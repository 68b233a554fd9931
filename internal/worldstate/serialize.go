package worldstate

import (
	"encoding/json"
	"fmt"

	"simcore/internal/primitives"
)

// wireEntity/wireZone/wireWorld are the JSON-friendly shapes persisted to
// snapshot bytes. Keeping them separate from the in-memory World lets the
// on-disk layout evolve independently of internal field choices, the same
// separation the teacher's store.Value <-> on-disk JSON draws.
type wireEntity struct {
	ID         primitives.EntityId `json:"id"`
	Kind       EntityKind          `json:"kind"`
	State      EntityState         `json:"state"`
	Zone       primitives.ZoneId   `json:"zone"`
	X          int32               `json:"x"`
	Y          int32               `json:"y"`
	Z          int32               `json:"z"`
	CreatedAt  primitives.Tick     `json:"created_at"`
	Name       *string             `json:"name,omitempty"`
	Amount     *int64              `json:"amount,omitempty"`
	Health     *int64              `json:"health,omitempty"`
}

type wireZone struct {
	ID       primitives.ZoneId     `json:"id"`
	Name     string                `json:"name"`
	Loaded   bool                  `json:"loaded"`
	Entities []primitives.EntityId `json:"entities"`
}

type wireWorld struct {
	FormatVersion int                 `json:"format_version"`
	Meta          WorldMeta           `json:"meta"`
	CurrentTick   primitives.Tick     `json:"current_tick"`
	SimTime       primitives.SimTime  `json:"sim_time"`
	RngState      uint64              `json:"rng_state"`
	NextEntityID  primitives.EntityId `json:"next_entity_id"`
	Entities      []wireEntity        `json:"entities"`
	Zones         []wireZone          `json:"zones"`
}

// ToBytes serializes the world to its self-describing snapshot encoding.
// Entities and zones are written in ascending id order so the bytes are
// stable across runs with identical state.
func (w *World) ToBytes() ([]byte, error) {
	out := wireWorld{
		FormatVersion: FormatVersion,
		Meta:          w.Meta,
		CurrentTick:   w.CurrentTick,
		SimTime:       w.SimTime,
		RngState:      w.RngState,
		NextEntityID:  w.NextEntityID,
	}
	for _, id := range w.EntityIDs() {
		e := w.entities[id]
		out.Entities = append(out.Entities, wireEntity{
			ID: e.ID, Kind: e.Kind, State: e.State,
			Zone: e.Position.Zone, X: e.Position.Pos.X, Y: e.Position.Pos.Y, Z: e.Position.Pos.Z,
			CreatedAt: e.CreatedAt,
			Name:      e.Properties.Name, Amount: e.Properties.Amount, Health: e.Properties.Health,
		})
	}
	for _, id := range w.ZoneIDs() {
		z := w.zones[id]
		out.Zones = append(out.Zones, wireZone{ID: z.ID, Name: z.Name, Loaded: z.Loaded, Entities: z.Entities})
	}
	return json.MarshalIndent(out, "", "  ")
}

// FromBytes deserializes a snapshot produced by ToBytes, refusing formats
// newer than FormatVersion. Older formats are decoded as they are; no
// migration step runs on snapshot bytes (MigrateMeta covers meta.json only).
func FromBytes(data []byte) (*World, error) {
	var in wireWorld
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode world: %w", err)
	}
	if in.FormatVersion > FormatVersion {
		return nil, fmt.Errorf("snapshot format_version %d is newer than supported %d", in.FormatVersion, FormatVersion)
	}

	w := &World{
		Meta:         in.Meta,
		CurrentTick:  in.CurrentTick,
		SimTime:      in.SimTime,
		RngState:     in.RngState,
		NextEntityID: in.NextEntityID,
		entities:     make(map[primitives.EntityId]Entity, len(in.Entities)),
		zones:        make(map[primitives.ZoneId]Zone, len(in.Zones)),
	}
	for _, z := range in.Zones {
		w.AddZone(Zone{ID: z.ID, Name: z.Name, Loaded: z.Loaded, Entities: append([]primitives.EntityId{}, z.Entities...)})
	}
	for _, e := range in.Entities {
		ent := Entity{
			ID: e.ID, Kind: e.Kind, State: e.State,
			Position:  primitives.WorldPos{Zone: e.Zone, Pos: primitives.Position{X: e.X, Y: e.Y, Z: e.Z}},
			CreatedAt: e.CreatedAt,
			Properties: Properties{Name: e.Name, Amount: e.Amount, Health: e.Health},
		}
		w.entities[ent.ID] = ent
		w.insertEntityKey(ent.ID)
	}
	return w, nil
}
