package scene

import (
	"math"

	"github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/grapple/geom"
)

// AsteroidParams shapes one procedural asteroid.
type AsteroidParams struct {
	Radius       float64
	Subdivisions int
	NoiseScale   float64 // noise frequency over the unit sphere
	Amplitude    float64 // radial displacement as a fraction of Radius, [0,1)
	Seed         int64
}

// BoundingRadius returns the largest distance a vertex can sit from the centre.
func (p AsteroidParams) BoundingRadius() float64 {
	return p.Radius * (1 + math.Abs(p.Amplitude))
}

// GenerateAsteroid builds a closed, outward-wound mesh centred on the origin by
// subdividing an icosahedron and pushing each vertex along its direction by
// seeded simplex noise.
func GenerateAsteroid(p AsteroidParams) *geom.Mesh {
	m := icosphere(max(p.Subdivisions, 0))
	noise := opensimplex.New(p.Seed)
	for i, v := range m.Vertices {
		n := noise.Eval3(v.X*p.NoiseScale, v.Y*p.NoiseScale, v.Z*p.NoiseScale)
		m.Vertices[i] = r3.Scale(p.Radius*(1+p.Amplitude*n), v)
	}
	return m
}

// icosphere returns a unit icosphere with the given refinement level.
func icosphere(levels int) *geom.Mesh {
	t := (1 + math.Sqrt(5)) / 2
	raw := []r3.Vec{
		{X: -1, Y: t}, {X: 1, Y: t}, {X: -1, Y: -t}, {X: 1, Y: -t},
		{Y: -1, Z: t}, {Y: 1, Z: t}, {Y: -1, Z: -t}, {Y: 1, Z: -t},
		{X: t, Z: -1}, {X: t, Z: 1}, {X: -t, Z: -1}, {X: -t, Z: 1},
	}
	verts := make([]r3.Vec, len(raw))
	for i, v := range raw {
		verts[i] = r3.Unit(v)
	}
	faces := [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}

	for range levels {
		mid := make(map[[2]int]int, len(faces)*3/2)
		midpoint := func(a, b int) int {
			key := [2]int{min(a, b), max(a, b)}
			if idx, ok := mid[key]; ok {
				return idx
			}
			verts = append(verts, r3.Unit(r3.Add(verts[a], verts[b])))
			mid[key] = len(verts) - 1
			return len(verts) - 1
		}
		next := make([][3]int, 0, len(faces)*4)
		for _, f := range faces {
			ab := midpoint(f[0], f[1])
			bc := midpoint(f[1], f[2])
			ca := midpoint(f[2], f[0])
			next = append(next,
				[3]int{f[0], ab, ca},
				[3]int{f[1], bc, ab},
				[3]int{f[2], ca, bc},
				[3]int{ab, bc, ca},
			)
		}
		faces = next
	}
	return &geom.Mesh{Vertices: verts, Faces: faces}
}
