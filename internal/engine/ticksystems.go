package engine

import (
	"simcore/internal/events"
	"simcore/internal/primitives"
	"simcore/internal/worldstate"
)

const reaperPeriod = 100

// runOneTick advances the world by one tick and runs the per-tick systemic
// rules: resource/creature degradation, the reaper, then TickProcessed, and
// finally mirrors the generator's state into World.RngState.
// Every rng call happens in ascending-EntityId order, per the determinism
// rule in spec.md §4.3.
func (e *Engine) runOneTick() {
	w := e.world
	w.AdvanceTick()

	ids := w.EntityIDs()
	entitiesProcessed := 0
	for _, id := range ids {
		ent, ok := w.GetEntity(id)
		if !ok || ent.State != worldstate.StateActive {
			continue
		}
		entitiesProcessed++
		e.applyDegradation(ent)
	}

	if w.CurrentTick%reaperPeriod == 0 {
		e.runReaper()
	}

	e.emit(w.CurrentTick, events.EventData{Kind: events.KindTickProcessed, TickProcessed: &events.TickProcessed{
		Tick: w.CurrentTick, SimTime: w.SimTime, EntitiesProcessed: entitiesProcessed,
	}})
	w.RngState = e.rng.State()
}

// applyDegradation runs the Resource/Creature probabilistic degradation
// rules for a single entity.
func (e *Engine) applyDegradation(ent worldstate.Entity) {
	w := e.world

	switch ent.Kind {
	case worldstate.KindResource:
		amount := int64(0)
		if ent.Properties.Amount != nil {
			amount = *ent.Properties.Amount
		}
		if amount <= 0 {
			return
		}
		if !e.rng.Chance(0.01) {
			return
		}

		remaining := amount - 1
		ent.Properties.Amount = &remaining
		if remaining == 0 {
			ent.State = worldstate.StateDead
		}
		w.SetEntity(ent)

		e.emit(w.CurrentTick, events.EventData{Kind: events.KindResourceDepleted, ResourceDepleted: &events.ResourceDepleted{
			EntityID: ent.ID, Amount: 1, Remaining: remaining,
		}})
		if remaining == 0 {
			e.emit(w.CurrentTick, events.EventData{Kind: events.KindEntityStateChanged, EntityStateChanged: &events.EntityStateChanged{
				EntityID: ent.ID, Old: string(worldstate.StateActive), New: string(worldstate.StateDead),
			}})
		}

	case worldstate.KindCreature:
		health := int64(0)
		if ent.Properties.Health != nil {
			health = *ent.Properties.Health
		}
		if health <= 0 {
			return
		}
		if !e.rng.Chance(0.005) {
			return
		}

		newHealth := health - 1
		ent.Properties.Health = &newHealth
		if newHealth == 0 {
			ent.State = worldstate.StateDead
		}
		w.SetEntity(ent)

		e.emit(w.CurrentTick, events.EventData{Kind: events.KindEntityDegraded, EntityDegraded: &events.EntityDegraded{
			EntityID: ent.ID, OldHealth: health, NewHealth: newHealth,
		}})
		if newHealth == 0 {
			e.emit(w.CurrentTick, events.EventData{Kind: events.KindEntityStateChanged, EntityStateChanged: &events.EntityStateChanged{
				EntityID: ent.ID, Old: string(worldstate.StateActive), New: string(worldstate.StateDead),
			}})
		}
	}
}

// runReaper removes every dead-state entity, in ascending id order, at the
// end of every 100th tick.
func (e *Engine) runReaper() {
	w := e.world
	var dead []primitives.EntityId
	for _, id := range w.EntityIDs() {
		ent, ok := w.GetEntity(id)
		if ok && ent.State == worldstate.StateDead {
			dead = append(dead, id)
		}
	}

	for _, id := range dead {
		w.RemoveEntity(id)
		e.emit(w.CurrentTick, events.EventData{Kind: events.KindEntityDespawned, EntityDespawned: &events.EntityDespawned{
			EntityID: id, Reason: events.DespawnReasonDeath,
		}})
	}
}
