package robot

import (
	"errors"
	"fmt"
)

// ErrOutsideWorkspace is returned when a pose leaves the configured workspace.
var ErrOutsideWorkspace = errors.New("pose outside workspace")

// AxisRange bounds one axis of the TCP pose.
type AxisRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the range, inclusive.
// Rotation ranges are compared without wrapping.
func (r AxisRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Normalize converts a value to the range [-100, 100].
func (r AxisRange) Normalize(v float64) float64 {
	rangeSize := r.Max - r.Min
	if rangeSize == 0 {
		return 0
	}
	return ((v-r.Min)/rangeSize)*200 - 100
}

// Denormalize converts a normalized value [-100, 100] back to axis units.
func (r AxisRange) Denormalize(norm float64) float64 {
	return (norm+100)/200*(r.Max-r.Min) + r.Min
}

// Workspace bounds the TCP pose, keyed by axis. Axes without an entry are unbounded.
type Workspace map[Axis]AxisRange

// WorkspaceFromRange builds linear limits from the observed extremes of a
// pose, widened by margin millimetres on each side.
func WorkspaceFromRange(lo, hi Pose, margin float64) Workspace {
	w := make(Workspace, 3)
	for _, a := range AllAxes() {
		if a.IsRotation() {
			continue
		}
		w[a] = AxisRange{Min: lo.Value(a) - margin, Max: hi.Value(a) + margin}
	}
	return w
}

// Axes returns the bounded axes in pose order.
func (w Workspace) Axes() []Axis {
	axes := make([]Axis, 0, len(w))
	// Use AllAxes() to ensure consistent ordering
	for _, a := range AllAxes() {
		if _, ok := w[a]; ok {
			axes = append(axes, a)
		}
	}
	return axes
}

// Check returns ErrOutsideWorkspace naming the first axis out of range.
func (w Workspace) Check(p Pose) error {
	for _, a := range w.Axes() {
		r := w[a]
		if v := p.Value(a); !r.Contains(v) {
			return fmt.Errorf("%w: %s=%.2f not in [%.2f, %.2f]", ErrOutsideWorkspace, a, v, r.Min, r.Max)
		}
	}
	return nil
}

// Validate checks that every range is well formed.
func (w Workspace) Validate() error {
	for a, r := range w {
		if !isAxis(a) {
			return fmt.Errorf("unknown workspace axis %q", a)
		}
		if r.Min > r.Max {
			return fmt.Errorf("workspace %s: min %.2f > max %.2f", a, r.Min, r.Max)
		}
	}
	return nil
}

func isAxis(a Axis) bool {
	for _, known := range AllAxes() {
		if a == known {
			return true
		}
	}
	return false
}
