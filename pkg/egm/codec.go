package egm

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformedFrame is returned when a datagram is not a valid EGM frame.
var ErrMalformedFrame = errors.New("malformed egm frame")

// Field numbers from egm.proto.
const (
	fieldHeaderSeqno = 1
	fieldHeaderTm    = 2
	fieldHeaderMtype = 3

	fieldCartesianX = 1
	fieldCartesianY = 2
	fieldCartesianZ = 3

	fieldPosePos    = 1
	fieldPoseOrient = 2

	fieldClockSec  = 1
	fieldClockUsec = 2

	// EgmPlanned and EgmFeedBack share a layout.
	fieldFrameCartesian = 2
	fieldFrameTime      = 4

	fieldStateValue = 1

	fieldSensorHeader  = 1
	fieldSensorPlanned = 2

	fieldRobotHeader          = 1
	fieldRobotFeedback        = 2
	fieldRobotPlanned         = 3
	fieldRobotMotorState      = 4
	fieldRobotMCIState        = 5
	fieldRobotConvergenceMet  = 6
	fieldRobotRapidExecState  = 8
	fieldRobotUtilizationRate = 10
)

// Marshal encodes the frame in protobuf wire format.
func (m *Sensor) Marshal() []byte {
	b := make([]byte, 0, 128)
	b = appendMessage(b, fieldSensorHeader, appendHeader(nil, m.Header))

	pose := appendPose(nil, m.Pos, m.Orient)
	planned := appendMessage(nil, fieldFrameCartesian, pose)
	return appendMessage(b, fieldSensorPlanned, planned)
}

// Marshal encodes the frame in protobuf wire format.
func (m *Robot) Marshal() []byte {
	b := make([]byte, 0, 192)
	b = appendMessage(b, fieldRobotHeader, appendHeader(nil, m.Header))

	if m.HasFeedback {
		fb := appendMessage(nil, fieldFrameCartesian, appendPose(nil, m.Pos, m.Orient))
		fb = appendMessage(fb, fieldFrameTime, appendClock(nil, m.FeedbackTime))
		b = appendMessage(b, fieldRobotFeedback, fb)
	}
	if m.HasPlanned {
		planned := appendMessage(nil, fieldFrameCartesian, appendPose(nil, m.PlannedPos, m.PlannedOrient))
		b = appendMessage(b, fieldRobotPlanned, planned)
	}

	b = appendMessage(b, fieldRobotMotorState, appendVarintField(nil, fieldStateValue, uint64(m.MotorState)))
	b = appendMessage(b, fieldRobotMCIState, appendVarintField(nil, fieldStateValue, uint64(m.MCIState)))
	b = appendVarintField(b, fieldRobotConvergenceMet, protowire.EncodeBool(m.ConvergenceMet))
	b = appendMessage(b, fieldRobotRapidExecState, appendVarintField(nil, fieldStateValue, uint64(m.RapidExecState)))
	b = appendDoubleField(b, fieldRobotUtilizationRate, m.UtilizationRate)
	return b
}

// UnmarshalSensor decodes an EgmSensor frame.
func UnmarshalSensor(b []byte) (Sensor, error) {
	var m Sensor
	err := walk(b, func(f field) error {
		switch {
		case f.is(fieldSensorHeader, protowire.BytesType):
			h, err := parseHeader(f.bytes)
			m.Header = h
			return err
		case f.is(fieldSensorPlanned, protowire.BytesType):
			return walk(f.bytes, func(f field) error {
				if !f.is(fieldFrameCartesian, protowire.BytesType) {
					return nil
				}
				var err error
				m.Pos, m.Orient, err = parsePose(f.bytes)
				return err
			})
		}
		return nil
	})
	return m, err
}

// UnmarshalRobot decodes an EgmRobot frame.
func UnmarshalRobot(b []byte) (Robot, error) {
	var m Robot
	err := walk(b, func(f field) error {
		var err error
		switch {
		case f.is(fieldRobotHeader, protowire.BytesType):
			m.Header, err = parseHeader(f.bytes)
		case f.is(fieldRobotFeedback, protowire.BytesType):
			err = walk(f.bytes, func(f field) error {
				var err error
				switch {
				case f.is(fieldFrameCartesian, protowire.BytesType):
					m.HasFeedback = true
					m.Pos, m.Orient, err = parsePose(f.bytes)
				case f.is(fieldFrameTime, protowire.BytesType):
					m.FeedbackTime, err = parseClock(f.bytes)
				}
				return err
			})
		case f.is(fieldRobotPlanned, protowire.BytesType):
			err = walk(f.bytes, func(f field) error {
				if !f.is(fieldFrameCartesian, protowire.BytesType) {
					return nil
				}
				var err error
				m.HasPlanned = true
				m.PlannedPos, m.PlannedOrient, err = parsePose(f.bytes)
				return err
			})
		case f.is(fieldRobotMotorState, protowire.BytesType):
			var v uint64
			v, err = parseState(f.bytes)
			m.MotorState = MotorState(v)
		case f.is(fieldRobotMCIState, protowire.BytesType):
			var v uint64
			v, err = parseState(f.bytes)
			m.MCIState = MCIState(v)
		case f.is(fieldRobotConvergenceMet, protowire.VarintType):
			m.ConvergenceMet = protowire.DecodeBool(f.varint)
		case f.is(fieldRobotRapidExecState, protowire.BytesType):
			var v uint64
			v, err = parseState(f.bytes)
			m.RapidExecState = RapidExecState(v)
		case f.is(fieldRobotUtilizationRate, protowire.Fixed64Type):
			m.UtilizationRate = math.Float64frombits(f.fixed64)
		}
		return err
	})
	return m, err
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendDoubleField(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendHeader(b []byte, h Header) []byte {
	b = appendVarintField(b, fieldHeaderSeqno, uint64(h.Seq))
	b = appendVarintField(b, fieldHeaderTm, uint64(h.Timestamp))
	return appendVarintField(b, fieldHeaderMtype, uint64(h.Type))
}

func appendPose(b []byte, pos Cartesian, orient Slots) []byte {
	var c []byte
	c = appendDoubleField(c, fieldCartesianX, pos.X)
	c = appendDoubleField(c, fieldCartesianY, pos.Y)
	c = appendDoubleField(c, fieldCartesianZ, pos.Z)
	b = appendMessage(b, fieldPosePos, c)

	var q []byte
	for i, v := range orient {
		q = appendDoubleField(q, protowire.Number(i+1), v)
	}
	return appendMessage(b, fieldPoseOrient, q)
}

func appendClock(b []byte, c Clock) []byte {
	b = appendVarintField(b, fieldClockSec, c.Sec)
	return appendVarintField(b, fieldClockUsec, c.Usec)
}

type field struct {
	num     protowire.Number
	typ     protowire.Type
	varint  uint64
	fixed64 uint64
	bytes   []byte
}

func (f field) is(num protowire.Number, typ protowire.Type) bool {
	return f.num == num && f.typ == typ
}

// walk calls fn for every field in b. Fields of an unexpected wire type are
// passed through and ignored by the callers, as protobuf runtimes treat them
// as unknown.
func walk(b []byte, fn func(field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed(n)
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			f.fixed64, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return malformed(n)
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func malformed(n int) error {
	return fmt.Errorf("%w: %v", ErrMalformedFrame, protowire.ParseError(n))
}

func parseHeader(b []byte) (Header, error) {
	var h Header
	err := walk(b, func(f field) error {
		if f.typ != protowire.VarintType {
			return nil
		}
		switch f.num {
		case fieldHeaderSeqno:
			h.Seq = uint32(f.varint)
		case fieldHeaderTm:
			h.Timestamp = uint32(f.varint)
		case fieldHeaderMtype:
			h.Type = MessageType(f.varint)
		}
		return nil
	})
	return h, err
}

func parsePose(b []byte) (Cartesian, Slots, error) {
	var (
		pos    Cartesian
		orient Slots
	)
	err := walk(b, func(f field) error {
		switch {
		case f.is(fieldPosePos, protowire.BytesType):
			return walk(f.bytes, func(f field) error {
				if f.typ != protowire.Fixed64Type {
					return nil
				}
				v := math.Float64frombits(f.fixed64)
				switch f.num {
				case fieldCartesianX:
					pos.X = v
				case fieldCartesianY:
					pos.Y = v
				case fieldCartesianZ:
					pos.Z = v
				}
				return nil
			})
		case f.is(fieldPoseOrient, protowire.BytesType):
			return walk(f.bytes, func(f field) error {
				if f.typ == protowire.Fixed64Type && f.num >= 1 && f.num <= 4 {
					orient[f.num-1] = math.Float64frombits(f.fixed64)
				}
				return nil
			})
		}
		return nil
	})
	return pos, orient, err
}

func parseClock(b []byte) (Clock, error) {
	var c Clock
	err := walk(b, func(f field) error {
		switch {
		case f.is(fieldClockSec, protowire.VarintType):
			c.Sec = f.varint
		case f.is(fieldClockUsec, protowire.VarintType):
			c.Usec = f.varint
		}
		return nil
	})
	return c, err
}

func parseState(b []byte) (uint64, error) {
	var v uint64
	err := walk(b, func(f field) error {
		if f.is(fieldStateValue, protowire.VarintType) {
			v = f.varint
		}
		return nil
	})
	return v, err
}
