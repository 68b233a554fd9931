package worldstate

import (
	"encoding/json"
	"fmt"

	"simcore/internal/primitives"
)

// wireMeta is the on-disk shape of meta.json: human-readable, and
// independent of the snapshot's own wire format so the two can be migrated
// on separate schedules.
type wireMeta struct {
	FormatVersion int    `json:"format_version"`
	WorldID       string `json:"world_id"`
	Name          string `json:"name"`
	Seed          uint64 `json:"seed"`
	CurrentTick   uint64 `json:"current_tick"`
	CreatedTick   uint64 `json:"created_tick"`
	SnapshotTick  uint64 `json:"snapshot_tick"`
	LastEventID   uint64 `json:"last_event_id"`
}

// EncodeMeta renders a WorldMeta to the small, human-readable meta.json
// payload kept alongside each world's snapshot.
func EncodeMeta(meta WorldMeta) ([]byte, error) {
	out := wireMeta{
		FormatVersion: meta.FormatVersion,
		WorldID:       meta.WorldID,
		Name:          meta.Name,
		Seed:          uint64(meta.Seed),
		CurrentTick:   uint64(meta.CurrentTick),
		CreatedTick:   uint64(meta.CreatedTick),
		SnapshotTick:  uint64(meta.SnapshotTick),
		LastEventID:   uint64(meta.LastEventID),
	}
	return json.MarshalIndent(out, "", "  ")
}

// DecodeMeta parses meta.json bytes and runs MigrateMeta on the result,
// refusing a format newer than this build supports.
func DecodeMeta(data []byte) (WorldMeta, error) {
	var in wireMeta
	if err := json.Unmarshal(data, &in); err != nil {
		return WorldMeta{}, fmt.Errorf("decode meta: %w", err)
	}
	if in.FormatVersion > FormatVersion {
		return WorldMeta{}, fmt.Errorf("meta format_version %d is newer than supported %d", in.FormatVersion, FormatVersion)
	}

	meta := WorldMeta{
		FormatVersion: in.FormatVersion,
		WorldID:       in.WorldID,
		Name:          in.Name,
		Seed:          primitives.RngSeed(in.Seed),
		CurrentTick:   primitives.Tick(in.CurrentTick),
		CreatedTick:   primitives.Tick(in.CreatedTick),
		SnapshotTick:  primitives.Tick(in.SnapshotTick),
		LastEventID:   primitives.EventId(in.LastEventID),
	}
	meta.SimTime = primitives.SimTimeFromTicks(meta.CurrentTick)
	MigrateMeta(&meta)
	return meta, nil
}

// MigrateMeta upgrades an older-format WorldMeta in place to the current
// FormatVersion. There is only one prior version on record (1, predating
// LastEventID), so migration is a single step: stamp the current version
// once the missing LastEventID has defaulted to its zero value ("replay
// from empty").
func MigrateMeta(meta *WorldMeta) {
	if meta.FormatVersion < FormatVersion {
		meta.FormatVersion = FormatVersion
	}
}
