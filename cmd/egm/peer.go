package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/gwillem/egm/pkg/egm"
	"github.com/gwillem/egm/pkg/robot"
)

type PeerCommand struct {
	Port    int           `short:"p" long:"port" default:"6510" description:"UDP port to accept corrections on"`
	Client  string        `long:"client" description:"Stream feedback to this host:port before any correction arrives"`
	Rate    time.Duration `long:"rate" default:"4ms" description:"Feedback period"`
	StepMM  float64       `long:"step-mm" default:"2" description:"Linear speed per period (mm)"`
	StepDeg float64       `long:"step-deg" default:"0.5" description:"Angular speed per period (°)"`
	Start   []float64     `long:"start" description:"Initial pose component, repeat six times in X Y Z RX RY RZ order (--start=-5 for negatives)"`
	Quat    bool          `long:"quaternion" description:"Use quaternion orientation encoding"`
	Settle  float64       `long:"settle" default:"1" description:"Report convergence within this distance of the target (mm, ° is half)"`
}

func (c *PeerCommand) Execute(args []string) error {
	popts := []egm.PeerOption{
		egm.WithPeerRate(c.Rate),
		egm.WithPeerStep(c.StepMM, c.StepDeg),
		egm.WithPeerLogger(newLogger()),
		egm.WithPeerTolerance(robot.Tolerance{Position: c.Settle, Rotation: c.Settle / 2}),
	}
	if len(c.Start) > 0 {
		start, err := robot.PoseFromSlice(c.Start)
		if err != nil {
			return fmt.Errorf("start pose: %w", err)
		}
		popts = append(popts, egm.WithPeerPose(start))
	}
	if c.Client != "" {
		addr, err := net.ResolveUDPAddr("udp", c.Client)
		if err != nil {
			return fmt.Errorf("resolve client: %w", err)
		}
		popts = append(popts, egm.WithPeerClient(addr))
	}
	if c.Quat {
		popts = append(popts, egm.WithPeerOrientation(robot.OrientationQuaternion))
	}

	peer, err := egm.NewPeer(c.Port, popts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	fmt.Println(headerStyle.Render("EGM simulated controller"))
	fmt.Printf("Listening on %s, feedback every %s\n", peer.Addr(), c.Rate)
	fmt.Println(dimStyle.Render("Press Ctrl-C to stop"))
	fmt.Println()

	errCh := make(chan error, 1)
	go func() { errCh <- peer.Run(ctx) }()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case err := <-errCh:
			fmt.Println()
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Printf("Stopped after %d corrections\n", peer.Frames())
			return nil
		case <-ticker.C:
			line := "pose " + peer.Pose().String()
			if target, ok := peer.Target(); ok {
				line += dimStyle.Render("  → " + target.String())
			}
			fmt.Println(line)
		}
	}
}
