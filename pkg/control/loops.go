package control

import (
	"time"

	"go.uber.org/zap"

	"github.com/gwillem/egm/pkg/egm"
)

// sendErrorInterval limits how often repeated send failures reach the status channel.
const sendErrorInterval = time.Second

func (c *Controller) receiveLoop(s *session) {
	defer close(s.recvDone)

	buf := make([]byte, egm.MaxFrameSize)
	for !s.stopped() {
		n, _, err := s.conn.Receive(buf)
		if err != nil {
			if s.stopped() {
				return
			}
			if egm.IsTimeout(err) {
				continue
			}
			c.status("Socket error: %v", err)
			if !c.sleep(s, c.cfg.ReceiveBackoff) {
				return
			}
			continue
		}

		msg, err := egm.UnmarshalRobot(buf[:n])
		if err != nil {
			c.logger.Debug("skipping malformed feedback frame", zap.Int("bytes", n), zap.Error(err))
			continue
		}
		c.handleFeedback(msg)
	}
}

// handleFeedback applies one decoded feedback frame to the motion state.
func (c *Controller) handleFeedback(msg egm.Robot) {
	var notes []string

	c.mu.Lock()
	converged := msg.ConvergenceMet && !c.isFirstMovement
	c.peerConverged = converged

	if msg.HasFeedback {
		c.actual = msg.Measured(c.cfg.Orientation).Round(2)
		if !c.targetReached && c.cfg.Tolerance.IsReached(c.target, c.actual) {
			c.targetReached = true
			notes = append(notes, "Target TCP position reached: "+c.actual.String())
		}
	}
	if converged && !c.targetReached {
		c.targetReached = true
		notes = append(notes, "EGM reports target achievement")
	}

	c.feedback = Feedback{
		Pose:            c.actual,
		HasPose:         msg.HasFeedback || c.feedback.HasPose,
		Seq:             msg.Header.Seq,
		MotorState:      msg.MotorState,
		MCIState:        msg.MCIState,
		RapidExecState:  msg.RapidExecState,
		ConvergenceMet:  msg.ConvergenceMet,
		UtilizationRate: msg.UtilizationRate,
		Received:        c.clock.Now(),
	}
	actual := c.actual
	c.mu.Unlock()

	if msg.HasFeedback {
		c.publishPose(actual)
	}
	for _, n := range notes {
		c.status("%s", n)
	}
}

func (c *Controller) sendLoop(s *session) {
	defer close(s.sendDone)

	ticker := c.clock.Ticker(c.cfg.SendPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		frame := c.nextCorrection(s.started)
		if err := s.conn.Send(frame.Marshal()); err != nil {
			if s.stopped() {
				return
			}
			c.sendFailed(err)
			if !c.sleep(s, c.cfg.SendBackoff) {
				return
			}
		}
	}
}

// nextCorrection builds the next correction frame for the current target.
// The sequence number wraps at 2^32.
func (c *Controller) nextCorrection(started time.Time) egm.Sensor {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq := c.seq
	c.seq++
	tm := uint32(c.clock.Since(started).Milliseconds())
	return egm.NewCorrection(seq, tm, c.target, c.cfg.Orientation)
}

func (c *Controller) sendFailed(err error) {
	c.logger.Warn("send correction", zap.Error(err))

	now := c.clock.Now()
	c.mu.Lock()
	report := c.lastSendErr.IsZero() || now.Sub(c.lastSendErr) >= sendErrorInterval
	if report {
		c.lastSendErr = now
	}
	c.mu.Unlock()

	if report {
		c.status("Send error: %v", err)
	}
}
