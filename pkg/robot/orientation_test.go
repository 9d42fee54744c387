package robot

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
)

func TestEulerToQuaternion_Identity(t *testing.T) {
	q := EulerToQuaternion(0, 0, 0)
	assert.Equal(t, quat.Number{Real: 1}, q)

	rx, ry, rz := QuaternionToEuler(quat.Number{Real: 1})
	assert.Equal(t, 0.0, rx)
	assert.Equal(t, 0.0, ry)
	assert.Equal(t, 0.0, rz)
}

func TestEulerToQuaternion_UnitNorm(t *testing.T) {
	for _, e := range [][3]float64{
		{10, 20, 30},
		{-170, 45, 95},
		{179, -89, -179},
		{0, 90, 0},
	} {
		q := EulerToQuaternion(e[0], e[1], e[2])
		assert.InDelta(t, 1.0, quat.Abs(q), 1e-12, "euler %v", e)
	}
}

func TestEulerToQuaternion_LeftHanded(t *testing.T) {
	// A positive robot Rz is a negative rotation about Z in the right-handed frame.
	q := EulerToQuaternion(0, 0, 90)
	assert.InDelta(t, math.Sqrt2/2, q.Real, 1e-12)
	assert.InDelta(t, 0, q.Imag, 1e-12)
	assert.InDelta(t, 0, q.Jmag, 1e-12)
	assert.InDelta(t, -math.Sqrt2/2, q.Kmag, 1e-12)
}

func TestQuaternionRoundTrip(t *testing.T) {
	const tol = 1e-6

	angles := []float64{-179, -135, -90, -45.5, -10, 0, 0.25, 12, 60, 120.75, 179}
	pitches := []float64{-89, -60, -30, -1, 0, 1, 33.3, 75, 89}

	for _, rx := range angles {
		for _, ry := range pitches {
			for _, rz := range angles {
				q := EulerToQuaternion(rx, ry, rz)
				brx, bry, brz := QuaternionToEuler(q)

				if AngularDifference(rx, brx) > tol ||
					math.Abs(ry-bry) > tol ||
					AngularDifference(rz, brz) > tol {
					t.Errorf("round trip (%v, %v, %v) = (%v, %v, %v)", rx, ry, rz, brx, bry, brz)
				}
			}
		}
	}
}

func TestQuaternionToEuler_GimbalLock(t *testing.T) {
	tests := []struct {
		name    string
		rx, ry  float64
		rz      float64
		combine func(rx, rz float64) float64
	}{
		{"pitch +90", 30, 90, 20, func(rx, rz float64) float64 { return rx + rz }},
		{"pitch -90", 30, -90, 20, func(rx, rz float64) float64 { return rx - rz }},
		{"pitch +90 wrapped", 170, 90, 40, func(rx, rz float64) float64 { return rx + rz }},
		{"pitch -90 negative", -45, -90, 60, func(rx, rz float64) float64 { return rx - rz }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := EulerToQuaternion(tt.rx, tt.ry, tt.rz)
			brx, bry, brz := QuaternionToEuler(q)

			assert.InDelta(t, tt.ry, bry, 1e-6)

			// Individual components are not recovered...
			assert.InDelta(t, 0, brx, 1e-9)
			assert.Greater(t, AngularDifference(tt.rx, brx), 1.0)

			// ...only their combination is.
			assert.LessOrEqual(t, AngularDifference(tt.combine(tt.rx, tt.rz), tt.combine(brx, brz)), 1e-6)

			// And the rotation itself survives (up to quaternion sign).
			back := EulerToQuaternion(brx, bry, brz)
			dot := q.Real*back.Real + q.Imag*back.Imag + q.Jmag*back.Jmag + q.Kmag*back.Kmag
			assert.InDelta(t, 1, math.Abs(dot), 1e-9)
		})
	}
}

func TestQuaternionToEuler_ClampsPitch(t *testing.T) {
	// Slightly denormalized quaternion pushing |sin(pitch)| past 1.
	q := quat.Scale(1.001, EulerToQuaternion(0, -90, 0))
	_, ry, _ := QuaternionToEuler(q)
	require.False(t, math.IsNaN(ry))
	assert.InDelta(t, -90.0, ry, 1e-12)
}

func TestConversionReport(t *testing.T) {
	report := ConversionReport(10, 20, 30)
	assert.Contains(t, report, "Input: Rx=10.000°, Ry=20.000°, Rz=30.000°")
	assert.Contains(t, report, "Back: Rx=10.000°, Ry=20.000°, Rz=30.000°")
	assert.Contains(t, report, "→ Quaternion: w=")
}
