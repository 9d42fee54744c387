// Package robot provides the pose model, orientation math, and convergence
// tolerances shared by the EGM client.
package robot

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrPoseLength is returned when a pose is built from a slice that does not
	// hold exactly six values.
	ErrPoseLength = errors.New("pose requires 6 values (X, Y, Z, Rx, Ry, Rz)")
	// ErrPoseNotFinite is returned when a pose component is NaN or infinite.
	ErrPoseNotFinite = errors.New("pose contains a non-finite value")
)

// Axis identifies one component of a pose.
type Axis string

// Pose axes, in wire order.
const (
	AxisX  Axis = "x"
	AxisY  Axis = "y"
	AxisZ  Axis = "z"
	AxisRx Axis = "rx"
	AxisRy Axis = "ry"
	AxisRz Axis = "rz"
)

// AllAxes returns all pose axes in order (position first, then orientation).
func AllAxes() []Axis {
	return []Axis{
		AxisX,
		AxisY,
		AxisZ,
		AxisRx,
		AxisRy,
		AxisRz,
	}
}

// IsRotation reports whether the axis is an orientation angle.
func (a Axis) IsRotation() bool {
	return a == AxisRx || a == AxisRy || a == AxisRz
}

// Pose is a tool center point pose: position in millimeters and orientation
// as the robot's native Euler angles in degrees.
type Pose struct {
	X, Y, Z    float64
	Rx, Ry, Rz float64
}

// PoseFromSlice builds a pose from exactly six values.
func PoseFromSlice(v []float64) (Pose, error) {
	if len(v) != 6 {
		return Pose{}, fmt.Errorf("%w: got %d", ErrPoseLength, len(v))
	}
	return Pose{X: v[0], Y: v[1], Z: v[2], Rx: v[3], Ry: v[4], Rz: v[5]}, nil
}

// Array returns the six components in axis order.
func (p Pose) Array() [6]float64 {
	return [6]float64{p.X, p.Y, p.Z, p.Rx, p.Ry, p.Rz}
}

// Value returns the component for the given axis.
func (p Pose) Value(a Axis) float64 {
	switch a {
	case AxisX:
		return p.X
	case AxisY:
		return p.Y
	case AxisZ:
		return p.Z
	case AxisRx:
		return p.Rx
	case AxisRy:
		return p.Ry
	case AxisRz:
		return p.Rz
	}
	return 0
}

// Values returns the pose keyed by axis.
func (p Pose) Values() map[Axis]float64 {
	values := make(map[Axis]float64, 6)
	for _, a := range AllAxes() {
		values[a] = p.Value(a)
	}
	return values
}

// Add returns the component-wise sum of p and d.
func (p Pose) Add(d Pose) Pose {
	return Pose{
		X:  p.X + d.X,
		Y:  p.Y + d.Y,
		Z:  p.Z + d.Z,
		Rx: p.Rx + d.Rx,
		Ry: p.Ry + d.Ry,
		Rz: p.Rz + d.Rz,
	}
}

// Round rounds every component to the given number of decimals.
// Midpoints round to even, matching the controller's feedback rounding.
func (p Pose) Round(decimals int) Pose {
	scale := math.Pow(10, float64(decimals))
	r := func(v float64) float64 { return math.RoundToEven(v*scale) / scale }
	return Pose{
		X:  r(p.X),
		Y:  r(p.Y),
		Z:  r(p.Z),
		Rx: r(p.Rx),
		Ry: r(p.Ry),
		Rz: r(p.Rz),
	}
}

// Validate returns ErrPoseNotFinite if any component is NaN or infinite.
func (p Pose) Validate() error {
	for _, a := range AllAxes() {
		v := p.Value(a)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%v", ErrPoseNotFinite, a, v)
		}
	}
	return nil
}

func (p Pose) String() string {
	return fmt.Sprintf("X:%.2f mm, Y:%.2f mm, Z:%.2f mm, Rx:%.2f°, Ry:%.2f°, Rz:%.2f°",
		p.X, p.Y, p.Z, p.Rx, p.Ry, p.Rz)
}
