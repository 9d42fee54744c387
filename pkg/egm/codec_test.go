package egm

import (
	"encoding/hex"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/gwillem/egm/pkg/robot"
)

// EgmSensor{header{seqno:1 tm:300 mtype:CORRECTION}
//
//	planned{cartesian{pos{x:100 y:-2.5 z:0} orient{u0:10 u1:20 u2:30 u3:0}}}}
const sensorGolden = "0a07080110ac021803" +
	"1245" + "1243" +
	"0a1b" + "090000000000005940" + "1100000000000004c0" + "190000000000000000" +
	"1224" + "090000000000002440" + "110000000000003440" + "190000000000003e40" + "210000000000000000"

func TestSensor_MarshalGolden(t *testing.T) {
	msg := NewCorrection(1, 300, robot.Pose{X: 100, Y: -2.5, Z: 0, Rx: 10, Ry: 20, Rz: 30}, robot.OrientationPassthrough)
	assert.Equal(t, sensorGolden, hex.EncodeToString(msg.Marshal()))
}

func TestUnmarshalSensor_Golden(t *testing.T) {
	b, err := hex.DecodeString(sensorGolden)
	require.NoError(t, err)

	msg, err := UnmarshalSensor(b)
	require.NoError(t, err)
	assert.Equal(t, Header{Seq: 1, Timestamp: 300, Type: MessageCorrection}, msg.Header)
	assert.Equal(t, Cartesian{X: 100, Y: -2.5}, msg.Pos)
	assert.Equal(t, Slots{10, 20, 30, 0}, msg.Orient)
}

func TestSensor_ZeroValuesStillEncoded(t *testing.T) {
	msg := NewCorrection(0, 0, robot.Pose{}, robot.OrientationPassthrough)
	b := msg.Marshal()

	// Header carries all three fields even when zero.
	assert.Equal(t, "0a06080010001803", hex.EncodeToString(b[:8]))
	// 3 position + 4 orientation doubles.
	assert.Equal(t, 7, countFixed64(t, b))
}

func TestRobot_RoundTrip(t *testing.T) {
	in := Robot{
		Header:          Header{Seq: math.MaxUint32, Timestamp: 123456, Type: MessageData},
		HasFeedback:     true,
		Pos:             Cartesian{X: 512.25, Y: -10.5, Z: 700},
		Orient:          Slots{179.9, -0.25, 90, 0},
		FeedbackTime:    Clock{Sec: 12, Usec: 345678},
		HasPlanned:      true,
		PlannedPos:      Cartesian{X: 515, Y: -10, Z: 700},
		PlannedOrient:   Slots{180, 0, 90, 0},
		MotorState:      MotorsOn,
		MCIState:        MCIRunning,
		ConvergenceMet:  true,
		RapidExecState:  RapidRunning,
		UtilizationRate: 42.5,
	}

	out, err := UnmarshalRobot(in.Marshal())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestUnmarshalRobot_WithoutFeedback(t *testing.T) {
	in := Robot{Header: Header{Seq: 7, Type: MessageData}, MCIState: MCIStopped}
	out, err := UnmarshalRobot(in.Marshal())
	require.NoError(t, err)
	assert.False(t, out.HasFeedback)
	assert.False(t, out.HasPlanned)
	assert.Equal(t, MCIStopped, out.MCIState)
}

func TestUnmarshalRobot_SkipsUnknownFields(t *testing.T) {
	in := Robot{Header: Header{Seq: 3}, HasFeedback: true, Pos: Cartesian{X: 1, Y: 2, Z: 3}, ConvergenceMet: true}
	b := in.Marshal()

	// testSignals (7), measuredForce (9) and a fixed32 field the client never reads.
	b = protowire.AppendTag(b, 7, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte{0x09, 0, 0, 0, 0, 0, 0, 0xf0, 0x3f})
	b = protowire.AppendTag(b, 9, protowire.BytesType)
	b = protowire.AppendBytes(b, nil)
	b = protowire.AppendTag(b, 99, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 0xdeadbeef)

	out, err := UnmarshalRobot(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestUnmarshal_Malformed(t *testing.T) {
	valid := (&Robot{Header: Header{Seq: 1}, HasFeedback: true}).Marshal()

	tests := map[string][]byte{
		"truncated":       valid[:len(valid)-3],
		"bad tag":         {0x00},
		"length overflow": {0x12, 0x7f, 0x01},
		"varint overflow": {0x08, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01},
		"nested garbage":  {0x12, 0x02, 0x12, 0x05},
	}

	for name, b := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := UnmarshalRobot(b)
			assert.ErrorIs(t, err, ErrMalformedFrame)

			_, err = UnmarshalSensor(b)
			assert.ErrorIs(t, err, ErrMalformedFrame)
		})
	}
}

func TestUnmarshal_Empty(t *testing.T) {
	msg, err := UnmarshalRobot(nil)
	require.NoError(t, err)
	assert.False(t, msg.HasFeedback)
}

func TestMessageType_String(t *testing.T) {
	assert.Equal(t, "correction", MessageCorrection.String())
	assert.Equal(t, "MessageType(9)", MessageType(9).String())
	assert.Equal(t, "running", MCIRunning.String())
	assert.Equal(t, "off", MotorsOff.String())
	assert.Equal(t, "undefined", RapidUndefined.String())
}

func countFixed64(t *testing.T, b []byte) int {
	t.Helper()
	n := 0
	var count func([]byte)
	count = func(b []byte) {
		require.NoError(t, walk(b, func(f field) error {
			switch f.typ {
			case protowire.Fixed64Type:
				n++
			case protowire.BytesType:
				count(f.bytes)
			}
			return nil
		}))
	}
	count(b)
	return n
}
