// Package replay implements the pure, deterministic fold that reconstructs
// world state from recorded events. ApplyEvent never touches I/O or the
// RNG; it only mutates the World passed to it.
package replay

import (
	"fmt"
	"log"

	"simcore/internal/events"
	"simcore/internal/worldstate"
)

// ApplyEvent mutates w according to e and returns an error string on
// failure. Re-applying an already-present EntitySpawned is a no-op success;
// unknown EntityPropertyChanged property names silently no-op. Every event
// variant is handled.
func ApplyEvent(w *worldstate.World, e events.SimEvent) error {
	if e.Tick > w.CurrentTick {
		w.FastForwardTick(e.Tick)
	}

	switch e.Data.Kind {
	case events.KindWorldCreated, events.KindWorldLoaded, events.KindWorldSaved, events.KindTickProcessed:
		// state-neutral besides the tick fast-forward already applied above

	case events.KindZoneCreated:
		d := e.Data.ZoneCreated
		if !w.HasZone(d.ZoneID) {
			w.AddZone(worldstate.Zone{ID: d.ZoneID, Name: d.Name, Loaded: true})
		}

	case events.KindZoneLoaded:
		d := e.Data.ZoneLoaded
		if z, ok := w.GetZone(d.ZoneID); ok {
			z.Loaded = true
			w.SetZone(z)
		}

	case events.KindZoneUnloaded:
		d := e.Data.ZoneUnloaded
		if z, ok := w.GetZone(d.ZoneID); ok {
			z.Loaded = false
			w.SetZone(z)
		}

	case events.KindEntitySpawned:
		d := e.Data.EntitySpawned
		if _, exists := w.GetEntity(d.EntityID); !exists {
			w.AddEntity(worldstate.Entity{
				ID: d.EntityID, Kind: worldstate.EntityKind(d.Kind), State: worldstate.StateActive,
				Position: d.Position, CreatedAt: e.Tick,
			})
		}
		w.BumpNextEntityID(d.EntityID)

	case events.KindEntityDespawned:
		d := e.Data.EntityDespawned
		w.RemoveEntity(d.EntityID)

	case events.KindEntityMoved:
		d := e.Data.EntityMoved
		w.MoveEntity(d.EntityID, d.To)

	case events.KindEntityStateChanged:
		d := e.Data.EntityStateChanged
		if ent, ok := w.GetEntity(d.EntityID); ok {
			ent.State = worldstate.EntityState(d.New)
			w.SetEntity(ent)
		}

	case events.KindEntityPropertyChanged:
		d := e.Data.EntityPropertyChanged
		ent, ok := w.GetEntity(d.EntityID)
		if !ok {
			break
		}
		switch d.Property {
		case "name":
			ent.Properties.Name = d.Name
		case "amount":
			ent.Properties.Amount = d.Amount
		case "health":
			ent.Properties.Health = d.Health
		default:
			break // unknown property name: no-op
		}
		w.SetEntity(ent)

	case events.KindResourceDepleted:
		d := e.Data.ResourceDepleted
		if ent, ok := w.GetEntity(d.EntityID); ok {
			remaining := d.Remaining
			ent.Properties.Amount = &remaining
			if remaining == 0 {
				ent.State = worldstate.StateDead
			}
			w.SetEntity(ent)
		}

	case events.KindEntityDegraded:
		d := e.Data.EntityDegraded
		if ent, ok := w.GetEntity(d.EntityID); ok {
			newHealth := d.NewHealth
			ent.Properties.Health = &newHealth
			if newHealth == 0 {
				ent.State = worldstate.StateDead
			}
			w.SetEntity(ent)
		}

	default:
		return fmt.Errorf("replay: unhandled event kind %q", e.Data.Kind)
	}
	return nil
}

// ReplayEvents folds ApplyEvent across a slice of events in order and
// returns the count of successes. Individual failures are tolerated and
// logged because referenced entities may already be gone.
func ReplayEvents(w *worldstate.World, es []events.SimEvent) int {
	ok := 0
	for _, e := range es {
		if err := ApplyEvent(w, e); err != nil {
			log.Printf("[replay] skipping event %d (tick %d): %v", e.EventID, e.Tick, err)
			continue
		}
		ok++
	}
	return ok
}
