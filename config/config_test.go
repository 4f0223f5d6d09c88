package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.InDelta(t, 120, cfg.Derived.StepsPerSecond, 1e-9)
	assert.Equal(t, 100.0, cfg.Craft.Mass)
	assert.Equal(t, 2, cfg.Derived.Tethers)
	require.Len(t, cfg.Derived.Emitters, 2)
	assert.Equal(t, r3.Vec{X: -1.5}, cfg.Derived.Emitters[0])
	assert.Equal(t, r3.Vec{X: 1.5}, cfg.Derived.Emitters[1])
	assert.False(t, cfg.Tether.AABBFallback, "fallback must be opt-in")
	assert.Equal(t, 500.0, cfg.Scene.Wall.Distance)
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.yaml")
	overlay := `
tether:
  stiffness: 900
  aabb_fallback: true
craft:
  tethers: 1
  emitters: []
scene:
  wall:
    distance: 300
`
	require.NoError(t, os.WriteFile(path, []byte(overlay), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 900.0, cfg.Tether.Stiffness)
	assert.True(t, cfg.Tether.AABBFallback)
	assert.Equal(t, 0.7, cfg.Tether.DampingRatio, "untouched keys keep their defaults")
	assert.Equal(t, 300.0, cfg.Scene.Wall.Distance)
	assert.Equal(t, 200.0, cfg.Scene.Wall.HalfSize)
	assert.Equal(t, 1, cfg.Derived.Tethers)
	assert.Equal(t, []r3.Vec{{}}, cfg.Derived.Emitters)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		overlay string
		want    string
	}{
		{"zero mass", "craft:\n  mass: 0\n", "mass"},
		{"three tethers", "craft:\n  tethers: 3\n", "tethers"},
		{"negative stiffness", "tether:\n  stiffness: -1\n", "stiffness"},
		{"bad restitution", "collision:\n  restitution: 1.5\n", "restitution"},
		{"zero dt", "physics:\n  fixed_dt: 0\n", "fixed_dt"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.overlay), 0644))
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestWriteYAMLReloads(t *testing.T) {
	cfg := Defaults()
	cfg.Tether.ReelRate = 12.5
	cfg.Scene.Seed = 7

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12.5, back.Tether.ReelRate)
	assert.Equal(t, int64(7), back.Scene.Seed)
	assert.Equal(t, cfg.Craft, back.Craft)
}

func TestCfgBeforeInitPanics(t *testing.T) {
	saved := global
	defer func() { global = saved }()

	global = nil
	assert.Panics(t, func() { Cfg() })
	require.NoError(t, Init(""))
	assert.NotPanics(t, func() { Cfg() })
}
