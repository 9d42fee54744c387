// Package control drives a robot over EGM: it streams position corrections,
// ingests feedback, and tracks whether the commanded TCP pose has been reached.
package control

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/gwillem/egm/pkg/egm"
	"github.com/gwillem/egm/pkg/robot"
)

// ErrNotReading is returned when control is requested before StartReading.
var ErrNotReading = errors.New("robot data reading not started")

// State is the controller lifecycle state.
type State int

const (
	Idle State = iota
	Reading
	Controlling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Reading:
		return "reading"
	case Controlling:
		return "controlling"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Feedback is a snapshot of the most recent feedback frame.
type Feedback struct {
	Pose            robot.Pose
	HasPose         bool
	Seq             uint32
	MotorState      egm.MotorState
	MCIState        egm.MCIState
	RapidExecState  egm.RapidExecState
	ConvergenceMet  bool
	UtilizationRate float64
	Received        time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock used for ticks, backoff and move deadlines.
func WithClock(c clock.Clock) Option {
	return func(ctrl *Controller) {
		ctrl.clock = c
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(ctrl *Controller) {
		if l != nil {
			ctrl.logger = l
		}
	}
}

// WithStatusBuffer sets how many status messages are buffered before new ones are dropped.
func WithStatusBuffer(n int) Option {
	return func(ctrl *Controller) {
		if n > 0 {
			ctrl.statusCh = make(chan string, n)
		}
	}
}

// session is one open socket with its loops.
type session struct {
	conn     *egm.Conn
	stop     chan struct{}
	recvDone chan struct{}
	sendDone chan struct{} // nil until control starts
	started  time.Time
}

func (s *session) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// Controller is the EGM client.
type Controller struct {
	cfg    Config
	remote *net.UDPAddr
	clock  clock.Clock
	logger *zap.Logger

	// lifecycle serializes StartReading, StartControl and Stop.
	lifecycle sync.Mutex
	sess      *session

	mu              sync.Mutex
	state           State
	actual          robot.Pose
	target          robot.Pose
	targetReached   bool
	isFirstMovement bool
	peerConverged   bool
	feedback        Feedback
	seq             uint32
	lastSendErr     time.Time

	poseCh   chan robot.Pose
	statusCh chan string
}

// NewController creates a controller for the robot at cfg.RemoteIP:cfg.RemotePort.
// No socket is opened until StartReading.
func NewController(cfg Config, opts ...Option) (*Controller, error) {
	cfg.setDefaults()

	ip := net.ParseIP(cfg.RemoteIP)
	if ip == nil {
		return nil, fmt.Errorf("invalid robot ip %q", cfg.RemoteIP)
	}
	if cfg.RemotePort <= 0 || cfg.RemotePort > 65535 {
		return nil, fmt.Errorf("invalid robot port %d", cfg.RemotePort)
	}
	if cfg.LocalPort < 0 || cfg.LocalPort > 65535 {
		return nil, fmt.Errorf("invalid local port %d", cfg.LocalPort)
	}
	if err := cfg.Workspace.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		cfg:             cfg,
		remote:          &net.UDPAddr{IP: ip, Port: cfg.RemotePort},
		clock:           clock.New(),
		logger:          zap.NewNop(),
		targetReached:   true,
		isFirstMovement: true,
		poseCh:          make(chan robot.Pose, 1),
		statusCh:        make(chan string, 64),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("robot", net.JoinHostPort(ip.String(), strconv.Itoa(cfg.RemotePort))))
	return c, nil
}

// Poses returns a channel that receives the latest measured pose.
// Only the newest pose is kept when the reader falls behind.
func (c *Controller) Poses() <-chan robot.Pose {
	return c.poseCh
}

// Status returns a channel that receives human-readable status messages.
// Messages are dropped when the channel is full.
func (c *Controller) Status() <-chan string {
	return c.statusCh
}

// Config returns the effective configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsActive reports whether the controller is reading or controlling.
func (c *Controller) IsActive() bool {
	return c.State() != Idle
}

// CurrentPose returns the last measured TCP pose, rounded to two decimals.
func (c *Controller) CurrentPose() robot.Pose {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.actual
}

// Target returns the commanded TCP pose.
func (c *Controller) Target() robot.Pose {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// TargetReached reports whether the current target has been reached.
func (c *Controller) TargetReached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.targetReached
}

// LastFeedback returns the most recent feedback frame, if any arrived.
func (c *Controller) LastFeedback() (Feedback, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.feedback, !c.feedback.Received.IsZero()
}

// LocalAddr returns the bound socket address, or nil when idle.
func (c *Controller) LocalAddr() *net.UDPAddr {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.sess == nil {
		return nil
	}
	return c.sess.conn.LocalAddr()
}

// StartReading binds the local port and starts ingesting feedback.
// Calling it while already reading is a no-op.
func (c *Controller) StartReading() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.sess != nil {
		return nil
	}
	c.status("Starting robot data reading...")

	conn, err := egm.Listen(c.cfg.LocalPort, c.remote, c.cfg.ReceiveTimeout)
	if err != nil {
		c.status("Error starting reading: %v", err)
		return err
	}
	s := &session{
		conn:     conn,
		stop:     make(chan struct{}),
		recvDone: make(chan struct{}),
	}
	c.sess = s
	c.setState(Reading)

	c.logger.Info("reading started", zap.Stringer("local", conn.LocalAddr()), zap.Stringer("remote", conn.Remote()))
	go c.receiveLoop(s)
	c.status("Robot data reading started")
	return nil
}

// StartControl starts streaming corrections for the current target.
// Calling it while already controlling is a no-op.
func (c *Controller) StartControl() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	s := c.sess
	if s == nil {
		return ErrNotReading
	}
	if s.sendDone != nil {
		return nil
	}
	c.status("Starting robot control...")

	s.sendDone = make(chan struct{})
	s.started = c.clock.Now()
	c.setState(Controlling)

	c.logger.Info("control started", zap.Duration("period", c.cfg.SendPeriod))
	go c.sendLoop(s)
	c.status("Ready to send TCP commands")
	return nil
}

// Stop halts both loops, closes the socket and returns to Idle.
// It is safe to call repeatedly and before anything was started.
func (c *Controller) Stop() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	c.targetReached = true
	c.state = Idle
	c.mu.Unlock()

	s := c.sess
	c.sess = nil

	var err error
	if s != nil {
		close(s.stop)
		s.conn.Interrupt()
		err = multierr.Combine(
			c.join("sender", s.sendDone),
			c.join("receiver", s.recvDone),
		)
		if cerr := s.conn.Close(); cerr != nil {
			c.status("Error closing UDP client: %v", cerr)
			err = multierr.Append(err, fmt.Errorf("close udp socket: %w", cerr))
		}
		if err != nil {
			c.logger.Warn("stop", zap.Error(err))
		}
	}

	c.status("Control stopped")
	return err
}

// join waits for a loop to exit. The wait is bounded by wall time.
func (c *Controller) join(name string, done <-chan struct{}) error {
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-time.After(c.cfg.JoinTimeout):
		return fmt.Errorf("%s loop did not exit within %s", name, c.cfg.JoinTimeout)
	}
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) status(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.logger.Info(msg)
	select {
	case c.statusCh <- msg:
	default:
		// Drop if channel full
	}
}

func (c *Controller) publishPose(p robot.Pose) {
	select {
	case c.poseCh <- p:
	default:
		// Drop old pose if channel full, replace with new
		select {
		case <-c.poseCh:
		default:
		}
		select {
		case c.poseCh <- p:
		default:
		}
	}
}

// sleep waits d on the controller clock, returning false if the session stops first.
func (c *Controller) sleep(s *session, d time.Duration) bool {
	select {
	case <-s.stop:
		return false
	case <-c.clock.After(d):
		return true
	}
}
