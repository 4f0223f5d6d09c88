package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func singleTriangle() *Mesh {
	return &Mesh{
		Vertices: []r3.Vec{Vec(0, 0, 0), Vec(1, 0, 0), Vec(0, 1, 0)},
		Faces:    [][3]int{{0, 1, 2}},
	}
}

func TestSegmentTriangleKnownHit(t *testing.T) {
	m := singleTriangle()

	for _, frontOnly := range []bool{true, false} {
		hit, ok := SegmentTriangleFirstHit(Vec(0.2, 0.2, 1), Vec(0.2, 0.2, -1), m, frontOnly)
		require.True(t, ok, "frontFaceOnly=%v", frontOnly)
		assert.InDelta(t, 0.5, hit.T, 1e-12)
		assert.InDelta(t, 0.2, hit.Point.X, 1e-12)
		assert.InDelta(t, 0.2, hit.Point.Y, 1e-12)
		assert.InDelta(t, 0, hit.Point.Z, 1e-12)
		assert.InDelta(t, 1, math.Abs(hit.Normal.Z), 1e-12)
		assert.InDelta(t, 1, r3.Norm(hit.Normal), 1e-12)
		assert.Equal(t, 0, hit.Triangle)
	}
}

func TestSegmentTriangleMissesFootprint(t *testing.T) {
	m := singleTriangle()
	tests := []struct {
		name string
		a, b r3.Vec
	}{
		{"outside hypotenuse", Vec(0.8, 0.8, 1), Vec(0.8, 0.8, -1)},
		{"negative u", Vec(-0.1, 0.5, 1), Vec(-0.1, 0.5, -1)},
		{"too short", Vec(0.2, 0.2, 2), Vec(0.2, 0.2, 0.5)},
		{"parallel in plane", Vec(-1, 0.2, 0), Vec(2, 0.2, 0)},
		{"parallel above", Vec(-1, 0.2, 1), Vec(2, 0.2, 1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := SegmentTriangleFirstHit(tc.a, tc.b, m, false)
			assert.False(t, ok)
		})
	}
}

func TestSegmentTriangleFrontFaceOnly(t *testing.T) {
	m := singleTriangle()

	// from below the geometric normal (0,0,1) points along the ray: back face
	_, ok := SegmentTriangleFirstHit(Vec(0.2, 0.2, -1), Vec(0.2, 0.2, 1), m, true)
	assert.False(t, ok, "back face must be culled")

	hit, ok := SegmentTriangleFirstHit(Vec(0.2, 0.2, -1), Vec(0.2, 0.2, 1), m, false)
	require.True(t, ok)
	assert.InDelta(t, 0.5, hit.T, 1e-12)
	// normal is flipped to face the incoming segment
	assert.InDelta(t, -1, hit.Normal.Z, 1e-12)
}

func TestSegmentTriangleClosestHitWins(t *testing.T) {
	box := Box(AABB{Min: Vec(-1, -1, -1), Max: Vec(1, 1, 1)})
	require.NoError(t, box.Validate())

	hit, ok := SegmentTriangleFirstHit(Vec(0.1, 0.2, 5), Vec(0.1, 0.2, -5), box, false)
	require.True(t, ok)
	// enters through +Z at z=1, exits through -Z at z=-1
	assert.InDelta(t, 0.4, hit.T, 1e-12)
	assert.InDelta(t, 1, hit.Point.Z, 1e-12)
	assert.InDelta(t, 1, hit.Normal.Z, 1e-12)

	// front-face only from inside sees nothing: every face points away
	_, ok = SegmentTriangleFirstHit(Vec(0, 0, 0), Vec(0, 0, 5), box, true)
	assert.False(t, ok)
	hit, ok = SegmentTriangleFirstHit(Vec(0.1, 0.1, 0), Vec(0.1, 0.1, 5), box, false)
	require.True(t, ok)
	assert.InDelta(t, 0.2, hit.T, 1e-12)
}

func TestBoxMeshOutwardNormals(t *testing.T) {
	b := AABB{Min: Vec(-1, -2, -3), Max: Vec(1, 2, 3)}
	m := Box(b)
	for i := range m.Faces {
		a, bb, c := m.Triangle(i)
		centroid := r3.Scale(1.0/3.0, r3.Add(a, r3.Add(bb, c)))
		n := m.FaceNormal(i)
		assert.Greater(t, r3.Dot(n, centroid), 0.0, "face %d normal must point outward", i)
	}
}

func TestMeshValidate(t *testing.T) {
	m := singleTriangle()
	assert.NoError(t, m.Validate())
	m.Faces = append(m.Faces, [3]int{0, 1, 7})
	assert.Error(t, m.Validate())
	var nilMesh *Mesh
	assert.Error(t, nilMesh.Validate())
}

func TestClosestPointOnTriangle(t *testing.T) {
	a, b, c := Vec(0, 0, 0), Vec(1, 0, 0), Vec(0, 1, 0)
	tests := []struct {
		name string
		p    r3.Vec
		want r3.Vec
	}{
		{"interior projects to face", Vec(0.2, 0.3, 5), Vec(0.2, 0.3, 0)},
		{"vertex a region", Vec(-1, -1, 0), a},
		{"vertex b region", Vec(2, -0.5, 1), b},
		{"vertex c region", Vec(-0.5, 3, 0), c},
		{"edge ab", Vec(0.5, -2, 0), Vec(0.5, 0, 0)},
		{"edge ac", Vec(-3, 0.4, 0), Vec(0, 0.4, 0)},
		{"edge bc", Vec(1, 1, 0), Vec(0.5, 0.5, 0)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ClosestPointOnTriangle(tc.p, a, b, c)
			assert.InDelta(t, 0, Distance(got, tc.want), 1e-12, "got %v want %v", got, tc.want)
		})
	}
}
