package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/jessevdk/go-flags"

	"github.com/gwillem/egm/pkg/egm"
	"github.com/gwillem/egm/pkg/robot"
)

type Options struct {
	Config    string        `short:"c" long:"config" default:"egm.json" description:"Configuration file"`
	LocalPort int           `short:"p" long:"local-port" description:"Port to listen on (default from config)"`
	Wait      time.Duration `short:"w" long:"wait" default:"10s" description:"How long to wait for a feedback frame"`
}

func main() {
	var opts Options
	if _, err := flags.Parse(&opts); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	fmt.Println("🤖 EGM Robot Info")
	fmt.Println("━━━━━━━━━━━━━━━━━")
	fmt.Println()

	config := robot.DefaultConfig()
	if cfg, err := robot.LoadConfigFrom(opts.Config); err == nil {
		config = cfg
	}
	if opts.LocalPort != 0 {
		config.LocalPort = opts.LocalPort
	}

	conn, err := egm.Listen(config.LocalPort, nil, opts.Wait)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	fmt.Printf("Listening for feedback on UDP port %d...\n", config.LocalPort)

	msg, from, err := readFeedback(conn)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		fmt.Println("Make sure the controller runs an EGM motion streaming to this host.")
		os.Exit(1)
	}

	fmt.Printf("Feedback from %s\n", from)
	fmt.Println()
	printRobot(msg, config.Orientation)
	fmt.Println()

	if from.IP.String() == config.Robot.IP {
		fmt.Printf("✓ %s already points at this controller\n", opts.Config)
		return
	}

	save := false
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Save %s as the robot IP in %s?", from.IP, opts.Config)).
				Description(fmt.Sprintf("Currently %q", config.Robot.IP)).
				Value(&save),
		),
	)
	if err := form.Run(); err != nil || !save {
		return
	}

	config.Robot.IP = from.IP.String()
	if err := config.SaveTo(opts.Config); err != nil {
		fmt.Printf("Error saving config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Configuration saved to %s\n", opts.Config)
}

// readFeedback returns the first decodable feedback frame.
func readFeedback(conn *egm.Conn) (egm.Robot, *net.UDPAddr, error) {
	buf := make([]byte, egm.MaxFrameSize)
	for {
		n, from, err := conn.Receive(buf)
		if err != nil {
			if egm.IsTimeout(err) {
				return egm.Robot{}, nil, errors.New("no feedback received")
			}
			return egm.Robot{}, nil, err
		}
		msg, err := egm.UnmarshalRobot(buf[:n])
		if err != nil {
			fmt.Printf("  Skipping malformed frame from %s: %v\n", from, err)
			continue
		}
		return msg, from, nil
	}
}

func printRobot(msg egm.Robot, enc robot.OrientationEncoding) {
	fmt.Println("Robot:")
	fmt.Printf("  Sequence:     %d (t=%d ms)\n", msg.Header.Seq, msg.Header.Timestamp)
	if msg.HasFeedback {
		fmt.Printf("  TCP pose:     %s\n", msg.Measured(enc).Round(2))
	} else {
		fmt.Println("  TCP pose:     (not reported)")
	}
	if msg.HasPlanned {
		planned := egm.Sensor{Pos: msg.PlannedPos, Orient: msg.PlannedOrient}
		fmt.Printf("  Planned:      %s\n", planned.Target(enc).Round(2))
	}
	fmt.Printf("  Motors:       %s\n", msg.MotorState)
	fmt.Printf("  MCI:          %s\n", msg.MCIState)
	fmt.Printf("  RAPID:        %s\n", msg.RapidExecState)
	fmt.Printf("  Converged:    %v\n", msg.ConvergenceMet)
	fmt.Printf("  Utilization:  %.1f%%\n", msg.UtilizationRate)
}
