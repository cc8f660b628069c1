// Package index decides when the vector store must be rebuilt and runs
// the rebuild.
//
// The decision is based on a fingerprint of the resources directory: a
// mapping from file name to last-modification time. The fingerprint is
// persisted as JSON next to the rest of the on-disk data; any mismatch
// between the current directory state and the persisted one (added,
// removed, or touched files) triggers a full re-index.
package index

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ResourceState maps file names (non-recursive) to modification times
// in nanoseconds since the Unix epoch.
type ResourceState map[string]int64

// ComputeState fingerprints the immediate files of dir. A missing
// directory yields an empty state, not an error.
func ComputeState(dir string) (ResourceState, error) {
	state := ResourceState{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return nil, fmt.Errorf("failed to read resources directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		state[entry.Name()] = info.ModTime().UnixNano()
	}
	return state, nil
}

// LoadState reads a persisted fingerprint. An absent or unparsable file
// means "no prior state" and returns an empty mapping, never an error.
func LoadState(path string) ResourceState {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ResourceState{}
	}

	var state ResourceState
	if err := json.Unmarshal(raw, &state); err != nil {
		return ResourceState{}
	}
	if state == nil {
		state = ResourceState{}
	}
	return state
}

// SaveState durably overwrites the persisted fingerprint. The write
// goes to a temp file in the same directory followed by a rename, so
// concurrent LoadState callers never observe a torn file. A file lock
// serializes concurrent savers.
func SaveState(path string, state ResourceState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock state file: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".state-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close state file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Equal reports whether two states cover exactly the same files with
// exactly the same timestamps.
func (s ResourceState) Equal(other ResourceState) bool {
	return maps.Equal(s, other)
}

// NeedsReindex reports whether the current directory state differs from
// the last persisted one.
func NeedsReindex(current, last ResourceState) bool {
	return !current.Equal(last)
}
