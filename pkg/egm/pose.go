package egm

import (
	"gonum.org/v1/gonum/num/quat"

	"github.com/gwillem/egm/pkg/robot"
)

// OrientationSlots places Euler angles (degrees) into the quaternion slots.
//
// With robot.OrientationPassthrough (and the zero value) the angles are
// written as-is into u0..u2 with u3 = 0; deployed controllers read them that
// way. robot.OrientationQuaternion writes a real unit quaternion.
func OrientationSlots(rx, ry, rz float64, enc robot.OrientationEncoding) Slots {
	if enc == robot.OrientationQuaternion {
		q := robot.EulerToQuaternion(rx, ry, rz)
		return Slots{q.Real, q.Imag, q.Jmag, q.Kmag}
	}
	return Slots{rx, ry, rz, 0}
}

// SlotAngles is the inverse of OrientationSlots.
func SlotAngles(s Slots, enc robot.OrientationEncoding) (rx, ry, rz float64) {
	if enc == robot.OrientationQuaternion {
		return robot.QuaternionToEuler(quat.Number{Real: s[0], Imag: s[1], Jmag: s[2], Kmag: s[3]})
	}
	return s[0], s[1], s[2]
}

// NewCorrection builds the correction frame commanding target.
func NewCorrection(seq, tm uint32, target robot.Pose, enc robot.OrientationEncoding) Sensor {
	return Sensor{
		Header: Header{Seq: seq, Timestamp: tm, Type: MessageCorrection},
		Pos:    Cartesian{X: target.X, Y: target.Y, Z: target.Z},
		Orient: OrientationSlots(target.Rx, target.Ry, target.Rz, enc),
	}
}

// Target returns the pose commanded by the frame.
func (m *Sensor) Target(enc robot.OrientationEncoding) robot.Pose {
	return slotsPose(m.Pos, m.Orient, enc)
}

// Measured returns the measured feedback pose.
func (m *Robot) Measured(enc robot.OrientationEncoding) robot.Pose {
	return slotsPose(m.Pos, m.Orient, enc)
}

func slotsPose(pos Cartesian, orient Slots, enc robot.OrientationEncoding) robot.Pose {
	rx, ry, rz := SlotAngles(orient, enc)
	return robot.Pose{X: pos.X, Y: pos.Y, Z: pos.Z, Rx: rx, Ry: ry, Rz: rz}
}
