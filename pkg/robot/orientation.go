package robot

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
)

const (
	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi

	// gimbalEpsilon is how close |sin(pitch)| must be to 1 before the
	// gimbal-lock decomposition is used (about 0.0026° from ±90°).
	gimbalEpsilon = 1e-9
)

// EulerToQuaternion converts robot Euler angles (Rx, Ry, Rz in degrees) to a
// right-handed unit quaternion. Real holds w; Imag, Jmag and Kmag hold x, y and z.
//
// The controller's angles are left-handed ZYX, so they are negated before the
// standard ZYX half-angle composition.
func EulerToQuaternion(rxDeg, ryDeg, rzDeg float64) quat.Number {
	rx := -rxDeg * degToRad
	ry := -ryDeg * degToRad
	rz := -rzDeg * degToRad

	cr, sr := math.Cos(rx*0.5), math.Sin(rx*0.5)
	cp, sp := math.Cos(ry*0.5), math.Sin(ry*0.5)
	cy, sy := math.Cos(rz*0.5), math.Sin(rz*0.5)

	// R = Rz * Ry * Rx
	return quat.Number{
		Real: cr*cp*cy + sr*sp*sy,
		Imag: sr*cp*cy - cr*sp*sy,
		Jmag: cr*sp*cy + sr*cp*sy,
		Kmag: cr*cp*sy - sr*sp*cy,
	}
}

// QuaternionToEuler converts a right-handed quaternion to robot Euler angles
// (Rx, Ry, Rz in degrees).
//
// At |pitch| = 90° only Rx-Rz is recoverable; the split between the two is
// arbitrary.
func QuaternionToEuler(q quat.Number) (rx, ry, rz float64) {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	var roll, pitch, yaw float64
	sinp := 2 * (w*y - z*x)
	if math.Abs(sinp) >= 1-gimbalEpsilon {
		// Both atan2 arguments vanish here. Pin roll to zero and fold the
		// remaining rotation about the vertical into yaw.
		pitch = math.Copysign(math.Pi/2, sinp)
		yaw = -math.Copysign(2, sinp) * math.Atan2(x, w)
	} else {
		roll = math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
		pitch = math.Asin(sinp)
		yaw = math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
	}

	return -roll * radToDeg, -pitch * radToDeg, -yaw * radToDeg
}

// ConversionReport runs Euler -> quaternion -> Euler and renders the result
// along with the per-axis error.
func ConversionReport(rx, ry, rz float64) string {
	q := EulerToQuaternion(rx, ry, rz)
	brx, bry, brz := QuaternionToEuler(q)

	return fmt.Sprintf("Input: Rx=%.3f°, Ry=%.3f°, Rz=%.3f°\n", rx, ry, rz) +
		fmt.Sprintf("→ Quaternion: w=%.4f, x=%.4f, y=%.4f, z=%.4f (|q|=%.6f)\n",
			q.Real, q.Imag, q.Jmag, q.Kmag, quat.Abs(q)) +
		fmt.Sprintf("→ Back: Rx=%.3f°, Ry=%.3f°, Rz=%.3f°\n", brx, bry, brz) +
		fmt.Sprintf("Error: ΔRx=%.4f°, ΔRy=%.4f°, ΔRz=%.4f°", rx-brx, ry-bry, rz-brz)
}
