package egm

import (
	"context"
	"math"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gwillem/egm/pkg/robot"
)

// Peer simulates the controller side of an EGM session: it consumes
// correction frames, drives a simulated tool pose toward the latest target,
// and streams feedback frames back at a fixed rate.
type Peer struct {
	conn    *Conn
	rate    time.Duration
	stepMM  float64
	stepDeg float64
	tol     robot.Tolerance
	enc     robot.OrientationEncoding
	logger  *zap.Logger
	onFrame func(Sensor)

	mu        sync.Mutex
	pose      robot.Pose
	target    robot.Pose
	hasTarget bool
	client    *net.UDPAddr
	frames    uint64
	seq       uint32
	started   time.Time
}

// PeerOption configures a Peer.
type PeerOption func(*Peer)

// WithPeerRate sets the feedback period.
func WithPeerRate(d time.Duration) PeerOption {
	return func(p *Peer) {
		if d > 0 {
			p.rate = d
		}
	}
}

// WithPeerStep sets how far the simulated tool moves per feedback period.
// Zero freezes that part of the pose.
func WithPeerStep(mm, deg float64) PeerOption {
	return func(p *Peer) {
		p.stepMM = math.Max(mm, 0)
		p.stepDeg = math.Max(deg, 0)
	}
}

// WithPeerPose sets the initial simulated pose.
func WithPeerPose(pose robot.Pose) PeerOption {
	return func(p *Peer) {
		p.pose = pose
	}
}

// WithPeerClient streams feedback to addr before any correction arrives.
func WithPeerClient(addr *net.UDPAddr) PeerOption {
	return func(p *Peer) {
		p.client = addr
	}
}

// WithPeerTolerance sets the tolerance behind the convergence flag.
func WithPeerTolerance(tol robot.Tolerance) PeerOption {
	return func(p *Peer) {
		p.tol = tol
	}
}

// WithPeerOrientation sets how orientation slots are interpreted.
func WithPeerOrientation(enc robot.OrientationEncoding) PeerOption {
	return func(p *Peer) {
		p.enc = enc
	}
}

// WithPeerLogger sets the logger.
func WithPeerLogger(l *zap.Logger) PeerOption {
	return func(p *Peer) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithFrameHook is called for every decoded correction frame.
func WithFrameHook(fn func(Sensor)) PeerOption {
	return func(p *Peer) {
		p.onFrame = fn
	}
}

// NewPeer binds the simulated controller to port (0 for ephemeral).
func NewPeer(port int, opts ...PeerOption) (*Peer, error) {
	p := &Peer{
		rate:    4 * time.Millisecond,
		stepMM:  2,
		stepDeg: 0.5,
		tol:     robot.DefaultTolerance(),
		enc:     robot.OrientationPassthrough,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	conn, err := Listen(port, nil, 100*time.Millisecond)
	if err != nil {
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// Addr returns the address clients should send corrections to.
func (p *Peer) Addr() *net.UDPAddr {
	addr := p.conn.LocalAddr()
	if addr.IP == nil || addr.IP.IsUnspecified() {
		return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: addr.Port}
	}
	return addr
}

// Pose returns the simulated tool pose.
func (p *Peer) Pose() robot.Pose {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pose
}

// Target returns the last commanded pose and whether one was received.
func (p *Peer) Target() (robot.Pose, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target, p.hasTarget
}

// Frames returns the number of correction frames received.
func (p *Peer) Frames() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

// Run serves until ctx is done, then closes the socket.
func (p *Peer) Run(ctx context.Context) error {
	p.mu.Lock()
	p.started = time.Now()
	p.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.readLoop(ctx)
	}()

	ticker := time.NewTicker(p.rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.conn.Interrupt()
			wg.Wait()
			p.conn.Close()
			return ctx.Err()
		case <-ticker.C:
			p.step()
		}
	}
}

func (p *Peer) readLoop(ctx context.Context) {
	buf := make([]byte, MaxFrameSize)
	for ctx.Err() == nil {
		n, from, err := p.conn.Receive(buf)
		if err != nil {
			if IsTimeout(err) {
				continue
			}
			if IsClosed(err) {
				return
			}
			p.logger.Warn("peer receive failed", zap.Error(err))
			continue
		}

		msg, err := UnmarshalSensor(buf[:n])
		if err != nil {
			p.logger.Debug("dropping malformed correction", zap.Error(err))
			continue
		}

		p.mu.Lock()
		p.target = msg.Target(p.enc)
		p.hasTarget = true
		p.client = from
		p.frames++
		p.mu.Unlock()

		if p.onFrame != nil {
			p.onFrame(msg)
		}
	}
}

func (p *Peer) step() {
	p.mu.Lock()
	if p.hasTarget {
		p.pose = robot.Pose{
			X:  approach(p.pose.X, p.target.X, p.stepMM),
			Y:  approach(p.pose.Y, p.target.Y, p.stepMM),
			Z:  approach(p.pose.Z, p.target.Z, p.stepMM),
			Rx: approachAngle(p.pose.Rx, p.target.Rx, p.stepDeg),
			Ry: approachAngle(p.pose.Ry, p.target.Ry, p.stepDeg),
			Rz: approachAngle(p.pose.Rz, p.target.Rz, p.stepDeg),
		}
	}
	client := p.client
	elapsed := time.Since(p.started)
	msg := Robot{
		Header:       Header{Seq: p.seq, Timestamp: uint32(elapsed.Milliseconds()), Type: MessageData},
		HasFeedback:  true,
		Pos:          Cartesian{X: p.pose.X, Y: p.pose.Y, Z: p.pose.Z},
		Orient:       OrientationSlots(p.pose.Rx, p.pose.Ry, p.pose.Rz, p.enc),
		FeedbackTime: Clock{Sec: uint64(elapsed / time.Second), Usec: uint64((elapsed % time.Second) / time.Microsecond)},
		MotorState:   MotorsOn,
		MCIState:     MCIRunning,
		// Only a commanded, settled pose counts as converged.
		ConvergenceMet: p.hasTarget && p.tol.IsReached(p.target, p.pose),
		RapidExecState: RapidRunning,
	}
	if p.hasTarget {
		msg.HasPlanned = true
		msg.PlannedPos = Cartesian{X: p.target.X, Y: p.target.Y, Z: p.target.Z}
		msg.PlannedOrient = OrientationSlots(p.target.Rx, p.target.Ry, p.target.Rz, p.enc)
	}
	p.seq++
	p.mu.Unlock()

	if client == nil {
		return
	}
	if err := p.conn.SendTo(msg.Marshal(), client); err != nil {
		p.logger.Warn("peer send failed", zap.Error(err))
	}
}

func approach(cur, target, step float64) float64 {
	d := target - cur
	if math.Abs(d) <= step {
		return target
	}
	return cur + math.Copysign(step, d)
}

func approachAngle(cur, target, step float64) float64 {
	d := robot.NormalizeAngle(target - cur)
	if math.Abs(d) <= step {
		return target
	}
	return robot.NormalizeAngle(cur + math.Copysign(step, d))
}
