package egm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/egm/pkg/robot"
)

func TestPeer_ConvergesOnTarget(t *testing.T) {
	var (
		mu   sync.Mutex
		seqs []uint32
	)
	peer, err := NewPeer(0,
		WithPeerRate(2*time.Millisecond),
		WithPeerStep(5, 1),
		WithPeerPose(robot.Pose{X: 100, Rz: 175}),
		WithFrameHook(func(m Sensor) {
			mu.Lock()
			seqs = append(seqs, m.Header.Seq)
			mu.Unlock()
		}),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go peer.Run(ctx)

	client, err := Listen(0, peer.Addr(), 50*time.Millisecond)
	require.NoError(t, err)
	defer client.Close()

	target := robot.Pose{X: 120, Y: -10, Z: 5, Rx: 1, Ry: -2, Rz: -175}
	var last Robot
	buf := make([]byte, MaxFrameSize)
	deadline := time.Now().Add(3 * time.Second)
	for seq := uint32(0); time.Now().Before(deadline); seq++ {
		msg := NewCorrection(seq, 0, target, robot.OrientationPassthrough)
		require.NoError(t, client.Send(msg.Marshal()))

		n, _, err := client.Receive(buf)
		if IsTimeout(err) {
			continue
		}
		require.NoError(t, err)
		last, err = UnmarshalRobot(buf[:n])
		require.NoError(t, err)
		if last.ConvergenceMet {
			break
		}
	}

	require.True(t, last.ConvergenceMet, "peer never converged, last pose %v", last.Measured(""))
	assert.True(t, last.HasFeedback)
	assert.True(t, last.HasPlanned)
	assert.Equal(t, MessageData, last.Header.Type)
	assert.Equal(t, MCIRunning, last.MCIState)
	assert.True(t, robot.DefaultTolerance().IsReached(target, last.Measured(robot.OrientationPassthrough)))

	got, ok := peer.Target()
	assert.True(t, ok)
	assert.Equal(t, target, got)
	assert.Positive(t, peer.Frames())

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(seqs); i++ {
		assert.Equal(t, seqs[i-1]+1, seqs[i])
	}
}

func TestPeer_StreamsToConfiguredClient(t *testing.T) {
	client, err := Listen(0, nil, time.Second)
	require.NoError(t, err)
	defer client.Close()

	start := robot.Pose{X: 1, Y: 2, Z: 3, Rx: 4, Ry: 5, Rz: 6}
	peer, err := NewPeer(0, WithPeerClient(loopback(client)), WithPeerPose(start))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go peer.Run(ctx)

	buf := make([]byte, MaxFrameSize)
	n, _, err := client.Receive(buf)
	require.NoError(t, err)

	msg, err := UnmarshalRobot(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, start, msg.Measured(robot.OrientationPassthrough))
	assert.False(t, msg.ConvergenceMet, "no target commanded yet")
	assert.False(t, msg.HasPlanned)
}

func TestApproachAngle(t *testing.T) {
	assert.Equal(t, -175.0, approachAngle(175, -175, 20))
	assert.InDelta(t, 176, approachAngle(175, -175, 1), 1e-9)
	assert.InDelta(t, -179.5, approachAngle(179.5, -175, 1), 1e-9)
	assert.Equal(t, 5.0, approach(0, 5, 10))
	assert.Equal(t, 2.0, approach(0, 5, 2))
	assert.Equal(t, 0.0, approach(0, 5, 0))
}
