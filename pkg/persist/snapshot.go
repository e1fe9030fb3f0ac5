package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SnapshotVersion is the current snapshot format version. Increment when
// making breaking changes to the format.
const SnapshotVersion = 1

// ErrSnapshotVersion is returned when a snapshot was written by a newer
// format version than this build understands.
var ErrSnapshotVersion = errors.New("persist: unsupported snapshot version")

// Snapshot is the serialized state of a registry's persistent cells.
type Snapshot struct {
	// Version is the serialization format version.
	Version int `json:"version"`

	// TakenAt is when the snapshot was captured.
	TakenAt time.Time `json:"taken_at"`

	// Cells maps canonical registry keys to serialized cell values.
	// Transient cells are excluded.
	Cells map[string]json.RawMessage `json:"cells,omitempty"`
}

// Encode converts a snapshot to bytes, stamping the current format version.
func Encode(s *Snapshot) ([]byte, error) {
	s.Version = SnapshotVersion
	return json.Marshal(s)
}

// Decode converts bytes back to a snapshot. Snapshots from older format
// versions decode; ones from newer versions are rejected.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.Version > SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotVersion, s.Version)
	}
	return &s, nil
}

// Cell is what a registry entry implements to participate in snapshots.
// Signals and resources both qualify.
type Cell interface {
	// SnapshotValue serializes the current value.
	SnapshotValue() ([]byte, error)

	// RestoreValue deserializes a payload and writes it through the
	// ordinary write path, so subscribers react to the restored value.
	RestoreValue(data []byte) error

	// Persistent reports whether the cell opted in to snapshots.
	Persistent() bool
}
