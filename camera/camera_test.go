package camera

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func near(a, b r3.Vec) bool {
	return r3.Norm(r3.Sub(a, b)) < 1e-9
}

func TestNew(t *testing.T) {
	cam := New(1280, 720)

	if cam.Distance != DefaultDistance {
		t.Errorf("expected distance %f, got %f", DefaultDistance, cam.Distance)
	}
	if cam.Target != (r3.Vec{}) {
		t.Errorf("expected target at origin, got %v", cam.Target)
	}
}

func TestBasisLevel(t *testing.T) {
	cam := New(1280, 720)
	cam.Pitch = 0

	if !near(cam.Forward(), r3.Vec{Z: 1}) {
		t.Errorf("expected forward +Z, got %v", cam.Forward())
	}
	if !near(cam.Right(), r3.Vec{X: -1}) {
		t.Errorf("expected right -X, got %v", cam.Right())
	}
	if !near(cam.Up(), r3.Vec{Y: 1}) {
		t.Errorf("expected up +Y, got %v", cam.Up())
	}
	if !near(cam.Position(), r3.Vec{Z: -DefaultDistance}) {
		t.Errorf("expected eye behind target, got %v", cam.Position())
	}
}

func TestBasisOrthonormal(t *testing.T) {
	cam := New(1280, 720)
	cam.Orbit(2.1, 0.4)

	f, r, u := cam.Forward(), cam.Right(), cam.Up()
	for name, v := range map[string]r3.Vec{"forward": f, "right": r, "up": u} {
		if math.Abs(r3.Norm(v)-1) > 1e-9 {
			t.Errorf("%s not unit: %f", name, r3.Norm(v))
		}
	}
	if math.Abs(r3.Dot(f, r)) > 1e-9 || math.Abs(r3.Dot(f, u)) > 1e-9 || math.Abs(r3.Dot(r, u)) > 1e-9 {
		t.Errorf("basis not orthogonal: %v %v %v", f, r, u)
	}
	// eye sits above the target when pitched down at it
	if cam.Position().Y <= 0 {
		t.Errorf("expected eye above target, got %v", cam.Position())
	}
}

func TestOrbitWrapsAndClamps(t *testing.T) {
	cam := New(1280, 720)
	cam.Orbit(3*math.Pi/2, 0)
	if math.Abs(cam.Yaw+math.Pi/2) > 1e-9 {
		t.Errorf("expected yaw wrapped to -pi/2, got %f", cam.Yaw)
	}

	cam.Orbit(0, 10)
	if cam.Pitch != maxPitch {
		t.Errorf("expected pitch clamped to %f, got %f", maxPitch, cam.Pitch)
	}
	cam.Orbit(0, -20)
	if cam.Pitch != -maxPitch {
		t.Errorf("expected pitch clamped to %f, got %f", -maxPitch, cam.Pitch)
	}
}

func TestZoomClamp(t *testing.T) {
	cam := New(1280, 720)

	cam.ZoomBy(2)
	if cam.Distance != DefaultDistance/2 {
		t.Errorf("expected distance %f, got %f", DefaultDistance/2, cam.Distance)
	}

	cam.ZoomBy(1000) // Below min
	if cam.Distance != cam.MinDistance {
		t.Errorf("expected distance clamped to %f, got %f", cam.MinDistance, cam.Distance)
	}

	cam.SetDistance(1e6) // Above max
	if cam.Distance != cam.MaxDistance {
		t.Errorf("expected distance clamped to %f, got %f", cam.MaxDistance, cam.Distance)
	}

	cam.ZoomBy(0)
	if cam.Distance != cam.MaxDistance {
		t.Errorf("non-positive factor should be ignored, got %f", cam.Distance)
	}
}

func TestFollowEases(t *testing.T) {
	cam := New(1280, 720)
	goal := r3.Vec{X: 10}

	cam.Follow(goal, 5, 0.1)
	if cam.Target.X <= 0 || cam.Target.X >= 10 {
		t.Errorf("expected partial move toward goal, got %v", cam.Target)
	}
	for i := 0; i < 200; i++ {
		cam.Follow(goal, 5, 0.1)
	}
	if !near(cam.Target, goal) {
		t.Errorf("expected target to converge on goal, got %v", cam.Target)
	}
}

func TestRayThroughCentre(t *testing.T) {
	cam := New(1280, 720)
	cam.Orbit(0.7, -0.2)

	if !near(cam.Ray(640, 360), cam.Forward()) {
		t.Errorf("centre ray should be forward, got %v", cam.Ray(640, 360))
	}
	// right half of the screen leans toward Right
	if r3.Dot(cam.Ray(1200, 360), cam.Right()) <= 0 {
		t.Error("expected right-side ray to lean right")
	}
	// top of the screen leans toward Up
	if r3.Dot(cam.Ray(640, 10), cam.Up()) <= 0 {
		t.Error("expected top ray to lean up")
	}
}

func TestIsVisible(t *testing.T) {
	cam := New(1280, 720)
	cam.Pitch = 0

	// Target is dead ahead
	if !cam.IsVisible(cam.Target, 1) {
		t.Error("target should be visible")
	}

	// Point behind the eye should not be visible
	if cam.IsVisible(r3.Vec{Z: -200}, 10) {
		t.Error("point behind eye should not be visible")
	}

	// Far off to the side should not be visible
	if cam.IsVisible(r3.Vec{X: 500}, 10) {
		t.Error("point far to the side should not be visible")
	}

	// Same point with a huge radius overlaps the frustum
	if !cam.IsVisible(r3.Vec{X: 500}, 500) {
		t.Error("large sphere should be visible")
	}
}

func TestReset(t *testing.T) {
	cam := New(1280, 720)
	cam.Orbit(1, 0.5)
	cam.ZoomBy(3)

	cam.Reset()

	if cam.Yaw != 0 || cam.Pitch != DefaultPitch {
		t.Errorf("expected default orientation, got yaw %f pitch %f", cam.Yaw, cam.Pitch)
	}
	if cam.Distance != DefaultDistance {
		t.Errorf("expected distance %f, got %f", DefaultDistance, cam.Distance)
	}
}
