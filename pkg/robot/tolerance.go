package robot

import "math"

// Default convergence tolerances.
const (
	DefaultPositionTolerance = 1.0 // mm
	DefaultRotationTolerance = 0.5 // degrees
)

// Tolerance holds the limits used to decide whether a pose has been reached.
type Tolerance struct {
	Position float64 `json:"position"` // mm, per axis
	Rotation float64 `json:"rotation"` // degrees, per axis
}

// DefaultTolerance returns 1 mm / 0.5°.
func DefaultTolerance() Tolerance {
	return Tolerance{
		Position: DefaultPositionTolerance,
		Rotation: DefaultRotationTolerance,
	}
}

// IsReached reports whether current is within tolerance of target on all six axes.
func (t Tolerance) IsReached(target, current Pose) bool {
	if math.Abs(target.X-current.X) > t.Position ||
		math.Abs(target.Y-current.Y) > t.Position ||
		math.Abs(target.Z-current.Z) > t.Position {
		return false
	}

	return AngularDifference(target.Rx, current.Rx) <= t.Rotation &&
		AngularDifference(target.Ry, current.Ry) <= t.Rotation &&
		AngularDifference(target.Rz, current.Rz) <= t.Rotation
}

// NormalizeAngle maps an angle in degrees into [-180, 180).
func NormalizeAngle(deg float64) float64 {
	deg = math.Mod(deg+180, 360)
	if deg < 0 {
		deg += 360
	}
	return deg - 180
}

// AngularDifference returns the shortest unsigned distance between two angles
// in degrees, in [0, 180].
func AngularDifference(a, b float64) float64 {
	diff := math.Abs(NormalizeAngle(a) - NormalizeAngle(b))
	if diff > 180 {
		return 360 - diff
	}
	return diff
}
