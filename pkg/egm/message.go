// Package egm implements the Externally Guided Motion wire protocol: the
// EgmSensor/EgmRobot protobuf frames exchanged with a robot controller, and a
// UDP transport to carry them.
package egm

import "fmt"

// MessageType is EgmHeader.MessageType.
type MessageType uint32

const (
	MessageUndefined MessageType = iota
	MessageCommand
	MessageData
	MessageCorrection
	MessagePathCorrection
)

func (t MessageType) String() string {
	switch t {
	case MessageUndefined:
		return "undefined"
	case MessageCommand:
		return "command"
	case MessageData:
		return "data"
	case MessageCorrection:
		return "correction"
	case MessagePathCorrection:
		return "path-correction"
	}
	return fmt.Sprintf("MessageType(%d)", uint32(t))
}

// Header is EgmHeader.
type Header struct {
	Seq       uint32
	Timestamp uint32 // ms
	Type      MessageType
}

// Cartesian is EgmCartesian (mm).
type Cartesian struct {
	X, Y, Z float64
}

// Slots are the four EgmQuaternion fields u0..u3.
type Slots [4]float64

// Clock is EgmClock.
type Clock struct {
	Sec  uint64
	Usec uint64
}

// MotorState is EgmMotorState.MotorStateType.
type MotorState uint32

const (
	MotorsUndefined MotorState = iota
	MotorsOn
	MotorsOff
)

func (s MotorState) String() string {
	switch s {
	case MotorsOn:
		return "on"
	case MotorsOff:
		return "off"
	}
	return "undefined"
}

// MCIState is EgmMCIState.MCIStateType.
type MCIState uint32

const (
	MCIUndefined MCIState = iota
	MCIError
	MCIStopped
	MCIRunning
)

func (s MCIState) String() string {
	switch s {
	case MCIError:
		return "error"
	case MCIStopped:
		return "stopped"
	case MCIRunning:
		return "running"
	}
	return "undefined"
}

// RapidExecState is EgmRapidCtrlExecState.RapidCtrlExecStateType.
type RapidExecState uint32

const (
	RapidUndefined RapidExecState = iota
	RapidStopped
	RapidRunning
)

func (s RapidExecState) String() string {
	switch s {
	case RapidStopped:
		return "stopped"
	case RapidRunning:
		return "running"
	}
	return "undefined"
}

// Sensor is an EgmSensor frame: a planned Cartesian pose sent to the controller.
type Sensor struct {
	Header Header
	Pos    Cartesian
	Orient Slots
}

// Robot is an EgmRobot frame: feedback from the controller.
// Has* fields report whether the optional submessage was present.
type Robot struct {
	Header Header

	HasFeedback  bool
	Pos          Cartesian
	Orient       Slots
	FeedbackTime Clock

	HasPlanned    bool
	PlannedPos    Cartesian
	PlannedOrient Slots

	MotorState      MotorState
	MCIState        MCIState
	ConvergenceMet  bool
	RapidExecState  RapidExecState
	UtilizationRate float64
}
