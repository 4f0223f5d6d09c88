package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Vec3 is the JSON form of a vector.
type Vec3 [3]float64

// V converts an r3.Vec.
func V(v r3.Vec) Vec3 { return Vec3{v.X, v.Y, v.Z} }

// Vec converts back to r3.Vec.
func (v Vec3) Vec() r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

// Snapshot holds the observable simulation state at the end of a step.
type Snapshot struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed"`

	Step    uint64  `json:"step"`
	SimTime float64 `json:"sim_time"`

	Craft   CraftState    `json:"craft"`
	Tethers []TetherState `json:"tethers"`
	Bodies  []BodyState   `json:"bodies"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// CraftState holds the craft's kinematic state.
type CraftState struct {
	Position  Vec3    `json:"position"`
	Velocity  Vec3    `json:"velocity"`
	LastForce Vec3    `json:"last_force"`
	Speed     float64 `json:"speed"`
	Contacts  int     `json:"contacts"`
}

// TetherState holds one tether slot.
type TetherState struct {
	Index      int     `json:"index"`
	State      string  `json:"state"`
	Shot       string  `json:"shot,omitempty"`
	Entity     uint64  `json:"entity,omitempty"`
	Anchor     Vec3    `json:"anchor"`
	RestLength float64 `json:"rest_length"`
	Span       float64 `json:"span"`
	Tension    float64 `json:"tension"`
	Pulling    bool    `json:"pulling"`
}

// BodyState holds one collidable entity.
type BodyState struct {
	ID       uint64     `json:"id"`
	Kind     string     `json:"kind"`
	Position Vec3       `json:"position"`
	Rotation [4]float64 `json:"rotation"` // real, imag, jmag, kmag
	Radius   float64    `json:"radius"`
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	// Build filename
	name := fmt.Sprintf("snapshot_%d", snapshot.Step)
	if snapshot.Bookmark != nil {
		// Sanitize bookmark type for filename
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Step, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}
