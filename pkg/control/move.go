package control

import (
	"context"
	"time"

	"github.com/gwillem/egm/pkg/robot"
)

// MoveToTCPPosition commands target and blocks until it is reached, the
// timeout elapses, or ctx is cancelled. It returns true only when reached.
//
// "Reached" needs the measured pose within tolerance and either the robot's
// convergence flag or the pose staying within tolerance for Config.Debounce.
// On timeout the target remains commanded.
func (c *Controller) MoveToTCPPosition(ctx context.Context, target robot.Pose, timeout time.Duration) bool {
	if err := target.Validate(); err != nil {
		c.status("Error: invalid target: %v", err)
		return false
	}
	if err := c.cfg.Workspace.Check(target); err != nil {
		c.status("Error: %v", err)
		return false
	}

	start := c.clock.Now()
	deadline := start.Add(timeout)

	c.mu.Lock()
	if !c.isFirstMovement && c.cfg.Tolerance.IsReached(target, c.actual) {
		c.targetReached = true
		c.mu.Unlock()
		c.status("Robot is already at target TCP position")
		return true
	}
	prev := c.saveMotion()
	c.target = target
	c.targetReached = false
	c.peerConverged = false
	c.isFirstMovement = false
	actual := c.actual
	c.mu.Unlock()

	c.status("Starting movement to TCP position: %v", target)
	c.status("Current TCP position: %v", actual)

	if err := c.StartControl(); err != nil {
		c.mu.Lock()
		c.restoreMotion(prev)
		c.mu.Unlock()
		c.status("Cannot move: %v", err)
		return false
	}

	ticker := c.clock.Ticker(c.cfg.PollInterval)
	defer ticker.Stop()

	var reachedAt time.Time
	for {
		now := c.clock.Now()
		if !now.Before(deadline) {
			break
		}

		c.mu.Lock()
		reached := c.cfg.Tolerance.IsReached(c.target, c.actual)
		converged := c.peerConverged
		actual = c.actual
		c.mu.Unlock()

		if reached {
			if reachedAt.IsZero() {
				reachedAt = now
				c.status("Visual TCP position achievement: %v", actual)
			}
			if converged || now.Sub(reachedAt) >= c.cfg.Debounce {
				c.status("Target TCP position reached!")
				return true
			}
		} else {
			reachedAt = time.Time{}
		}

		select {
		case <-ctx.Done():
			c.status("Movement cancelled: %v", ctx.Err())
			return false
		case <-ticker.C:
		}
	}

	c.status("Timeout! Movement not completed in %dms", timeout.Milliseconds())
	c.status("Current TCP position: %v", c.CurrentPose())
	return false
}

// Jog moves relative to the last measured pose.
func (c *Controller) Jog(ctx context.Context, delta robot.Pose, timeout time.Duration) bool {
	return c.MoveToTCPPosition(ctx, c.CurrentPose().Add(delta), timeout)
}

// motion is the part of the motion state a move replaces.
type motion struct {
	target          robot.Pose
	targetReached   bool
	peerConverged   bool
	isFirstMovement bool
}

// saveMotion and restoreMotion must be called with c.mu held.
func (c *Controller) saveMotion() motion {
	return motion{
		target:          c.target,
		targetReached:   c.targetReached,
		peerConverged:   c.peerConverged,
		isFirstMovement: c.isFirstMovement,
	}
}

func (c *Controller) restoreMotion(m motion) {
	c.target = m.target
	c.targetReached = m.targetReached
	c.peerConverged = m.peerConverged
	c.isFirstMovement = m.isFirstMovement
}
