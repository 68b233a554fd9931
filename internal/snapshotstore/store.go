// Package snapshotstore implements the ports.WorldStore contract: the
// {base}/worlds/{world_id}/{meta,snapshot}.json file pair, written
// atomically, plus the events/ directory that owns each world's WAL.
// Grounded in the teacher's store.New/SnapshotManager (atomic tmp-file +
// rename) but split into its own package the way spec.md §4.6 separates
// the store from the WAL it owns.
package snapshotstore

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/dustin/go-humanize"

	"simcore/internal/ports"
	"simcore/internal/wal"
)

const (
	metaFileName     = "meta.json"
	snapshotFileName = "snapshot.json"
	eventsDirName    = "events"
	walFileName      = "wal.bin"
)

// Store is a flat-directory WorldStore rooted at a base directory.
type Store struct {
	base string
}

// New returns a Store rooted at base, creating the directory if absent.
func New(base string) (*Store, error) {
	if err := os.MkdirAll(base, 0755); err != nil {
		return nil, fmt.Errorf("create store base dir: %w", err)
	}
	return &Store{base: base}, nil
}

func (s *Store) worldDir(worldID string) string {
	return filepath.Join(s.base, "worlds", worldID)
}

// Exists tests presence of the meta file for worldID.
func (s *Store) Exists(worldID string) bool {
	_, err := os.Stat(filepath.Join(s.worldDir(worldID), metaFileName))
	return err == nil
}

// ListWorlds returns the ids of subdirectories under worlds/ that contain a
// meta file.
func (s *Store) ListWorlds() ([]string, error) {
	root := filepath.Join(s.base, "worlds")
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list worlds: %w", err)
	}

	var ids []string
	for _, ent := range entries {
		if !ent.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, ent.Name(), metaFileName)); err == nil {
			ids = append(ids, ent.Name())
		}
	}
	return ids, nil
}

// SaveSnapshot writes data to snapshot.json.tmp, syncs it, then renames it
// over snapshot.json — and on POSIX-like systems syncs the enclosing
// directory too — so a concurrent crash leaves either the previous or the
// new snapshot, never a partial one.
func (s *Store) SaveSnapshot(worldID string, data []byte) error {
	dir := s.worldDir(worldID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("save snapshot: mkdir: %w", err)
	}

	path := filepath.Join(dir, snapshotFileName)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("save snapshot: create tmp: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("save snapshot: write: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("save snapshot: sync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("save snapshot: close: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("save snapshot: rename: %w", err)
	}

	if runtime.GOOS != "windows" {
		if dirF, err := os.Open(dir); err == nil {
			_ = dirF.Sync()
			dirF.Close()
		}
	}

	log.Printf("[snapshot] wrote %s (%s)", path, humanize.Bytes(uint64(len(data))))
	return nil
}

// LoadSnapshot reads the raw snapshot bytes for worldID.
func (s *Store) LoadSnapshot(worldID string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.worldDir(worldID), snapshotFileName))
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return data, nil
}

// SaveMeta writes meta.json non-atomically: it is small and human-readable,
// and a crash between meta and snapshot writes is handled by the recovery
// procedure, not by this write being atomic.
func (s *Store) SaveMeta(worldID string, meta []byte) error {
	dir := s.worldDir(worldID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("save meta: mkdir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metaFileName), meta, 0644); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	return nil
}

// LoadMeta reads the raw meta bytes for worldID.
func (s *Store) LoadMeta(worldID string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.worldDir(worldID), metaFileName))
	if err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}
	return data, nil
}

// DeleteWorld removes the entire {world_id} subdirectory tree.
func (s *Store) DeleteWorld(worldID string) error {
	if err := os.RemoveAll(s.worldDir(worldID)); err != nil {
		return fmt.Errorf("delete world: %w", err)
	}
	return nil
}

// OpenEventLog opens (creating if absent) the WAL for worldID under
// events/wal.bin, running recovery as a side effect.
func (s *Store) OpenEventLog(worldID string) (ports.EventLog, error) {
	dir := filepath.Join(s.worldDir(worldID), eventsDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("open event log: mkdir: %w", err)
	}
	return wal.Open(filepath.Join(dir, walFileName))
}

var _ ports.WorldStore = (*Store)(nil)
