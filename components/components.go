// Package components defines ECS components for the demo world.
package components

// Kind distinguishes the collidable entities the scene spawns.
type Kind uint8

const (
	KindAsteroid Kind = iota // procedural mesh
	KindWall                 // flat box used by the reel scenario
	KindBlock                // solid box collider
)

// String returns the display name for a Kind.
func (k Kind) String() string {
	names := KindNames()
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// KindNames returns the display names for all kinds.
// The order matches the Kind constants.
func KindNames() []string {
	return []string{"Asteroid", "Wall", "Block"}
}
