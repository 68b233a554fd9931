// Package events defines the event protocol emitted by the simulation
// engine and recorded by the WAL: SimEvent envelopes plus the tagged
// EventData payload variants.
package events

import "simcore/internal/primitives"

// Kind tags which EventData variant a SimEvent carries.
type Kind string

const (
	KindWorldCreated        Kind = "WorldCreated"
	KindWorldLoaded         Kind = "WorldLoaded"
	KindWorldSaved          Kind = "WorldSaved"
	KindZoneCreated         Kind = "ZoneCreated"
	KindZoneLoaded          Kind = "ZoneLoaded"
	KindZoneUnloaded        Kind = "ZoneUnloaded"
	KindEntitySpawned       Kind = "EntitySpawned"
	KindEntityDespawned     Kind = "EntityDespawned"
	KindEntityMoved         Kind = "EntityMoved"
	KindEntityStateChanged  Kind = "EntityStateChanged"
	KindEntityPropertyChanged Kind = "EntityPropertyChanged"
	KindResourceDepleted    Kind = "ResourceDepleted"
	KindEntityDegraded      Kind = "EntityDegraded"
	KindTickProcessed       Kind = "TickProcessed"
)

// DespawnReason distinguishes a command-issued despawn from a reaper sweep.
type DespawnReason string

const (
	DespawnReasonCommand DespawnReason = "Command"
	DespawnReasonDeath    DespawnReason = "Death"
)

// EventData is the tagged union of event payloads. Exactly one of the
// pointer fields is non-nil, selected by Kind.
type EventData struct {
	Kind Kind

	WorldCreated        *WorldCreated        `json:",omitempty"`
	WorldLoaded         *WorldLoaded         `json:",omitempty"`
	WorldSaved          *WorldSaved          `json:",omitempty"`
	ZoneCreated         *ZoneCreated         `json:",omitempty"`
	ZoneLoaded          *ZoneLoaded          `json:",omitempty"`
	ZoneUnloaded        *ZoneUnloaded        `json:",omitempty"`
	EntitySpawned       *EntitySpawned       `json:",omitempty"`
	EntityDespawned     *EntityDespawned     `json:",omitempty"`
	EntityMoved         *EntityMoved         `json:",omitempty"`
	EntityStateChanged  *EntityStateChanged  `json:",omitempty"`
	EntityPropertyChanged *EntityPropertyChanged `json:",omitempty"`
	ResourceDepleted    *ResourceDepleted    `json:",omitempty"`
	EntityDegraded      *EntityDegraded      `json:",omitempty"`
	TickProcessed       *TickProcessed       `json:",omitempty"`
}

type WorldCreated struct {
	WorldID string
	Name    string
	Seed    primitives.RngSeed
}

type WorldLoaded struct {
	WorldID string
	Tick    primitives.Tick
}

type WorldSaved struct {
	Tick primitives.Tick
}

type ZoneCreated struct {
	ZoneID primitives.ZoneId
	Name   string
}

type ZoneLoaded struct {
	ZoneID primitives.ZoneId
}

type ZoneUnloaded struct {
	ZoneID primitives.ZoneId
}

type EntitySpawned struct {
	EntityID primitives.EntityId
	Position primitives.WorldPos
	Kind     string
}

type EntityDespawned struct {
	EntityID primitives.EntityId
	Reason   DespawnReason
}

type EntityMoved struct {
	EntityID primitives.EntityId
	From     primitives.WorldPos
	To       primitives.WorldPos
}

type EntityStateChanged struct {
	EntityID primitives.EntityId
	Old      string
	New      string
}

// EntityPropertyChanged carries the new value of the named property slot.
// Exactly one of Name, Amount, Health is non-nil, matching Property.
type EntityPropertyChanged struct {
	EntityID primitives.EntityId
	Property string
	Name     *string
	Amount   *int64
	Health   *int64
}

type ResourceDepleted struct {
	EntityID  primitives.EntityId
	Amount    int64
	Remaining int64
}

type EntityDegraded struct {
	EntityID  primitives.EntityId
	OldHealth int64
	NewHealth int64
}

type TickProcessed struct {
	Tick             primitives.Tick
	SimTime          primitives.SimTime
	EntitiesProcessed int
}

// SimEvent wraps an EventData with its tick and WAL-assigned identifier.
// EventID is 0 until the WAL assigns one at persist time.
type SimEvent struct {
	EventID primitives.EventId
	Tick    primitives.Tick
	Data    EventData
}

// New builds a pending SimEvent with EventID left at the zero placeholder.
func New(tick primitives.Tick, data EventData) SimEvent {
	return SimEvent{Tick: tick, Data: data}
}
