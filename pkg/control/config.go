package control

import (
	"time"

	"github.com/gwillem/egm/pkg/egm"
	"github.com/gwillem/egm/pkg/robot"
)

// Timing defaults.
const (
	DefaultSendPeriod     = 4 * time.Millisecond // ~250 Hz
	DefaultPollInterval   = 100 * time.Millisecond
	DefaultDebounce       = 1000 * time.Millisecond
	DefaultReceiveBackoff = 1 * time.Second
	DefaultSendBackoff    = 10 * time.Millisecond
	DefaultJoinTimeout    = 500 * time.Millisecond
)

// Config holds configuration for the controller.
type Config struct {
	RemoteIP    string
	RemotePort  int
	LocalPort   int // 0 binds an ephemeral port
	Tolerance   robot.Tolerance
	Orientation robot.OrientationEncoding
	Workspace   robot.Workspace // targets outside are rejected; nil allows any

	SendPeriod     time.Duration
	ReceiveTimeout time.Duration
	PollInterval   time.Duration
	Debounce       time.Duration // how long "reached" must hold without the controller's flag
	ReceiveBackoff time.Duration
	SendBackoff    time.Duration
	JoinTimeout    time.Duration
}

// ConfigFrom builds a controller configuration from a config file.
func ConfigFrom(c *robot.Config) Config {
	return Config{
		RemoteIP:    c.Robot.IP,
		RemotePort:  c.Robot.Port,
		LocalPort:   c.LocalPort,
		Tolerance:   c.Tolerance,
		Orientation: c.Orientation,
		Workspace:   c.Workspace,
	}
}

func (c *Config) setDefaults() {
	if c.Tolerance.Position <= 0 {
		c.Tolerance.Position = robot.DefaultPositionTolerance
	}
	if c.Tolerance.Rotation <= 0 {
		c.Tolerance.Rotation = robot.DefaultRotationTolerance
	}
	if c.Orientation == "" {
		c.Orientation = robot.OrientationPassthrough
	}
	if c.SendPeriod <= 0 {
		c.SendPeriod = DefaultSendPeriod
	}
	if c.ReceiveTimeout <= 0 {
		c.ReceiveTimeout = egm.DefaultReadTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.ReceiveBackoff <= 0 {
		c.ReceiveBackoff = DefaultReceiveBackoff
	}
	if c.SendBackoff <= 0 {
		c.SendBackoff = DefaultSendBackoff
	}
	if c.JoinTimeout <= 0 {
		c.JoinTimeout = DefaultJoinTimeout
	}
}
