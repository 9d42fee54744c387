package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/egm/pkg/control"
	"github.com/gwillem/egm/pkg/robot"
)

const feedbackWait = 10 * time.Second

// errMoveFailed is returned when the robot did not reach the target.
var errMoveFailed = errors.New("move not completed")

type MoveCommand struct {
	ConnectOptions

	Timeout int `short:"t" long:"timeout" description:"Move timeout in ms (default from config)"`
	Args    struct {
		Pose []float64 `positional-arg-name:"X Y Z RX RY RZ"`
	} `positional-args:"yes"`
}

func (c *MoveCommand) Execute(args []string) error {
	ctrl, cfg, err := c.connect()
	if err != nil {
		return err
	}
	defer ctrl.Stop()

	current, err := waitForPose(ctrl, feedbackWait)
	if err != nil {
		return err
	}
	fmt.Println(dimStyle.Render("Current: " + current.String()))

	var target robot.Pose
	if len(c.Args.Pose) == 0 {
		target, err = promptPose(current)
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
	} else {
		target, err = robot.PoseFromSlice(c.Args.Pose)
	}
	if err != nil {
		return err
	}

	return moveAndReport(ctrl, target, moveTimeout(c.Timeout, cfg), cfg.Tolerance)
}

type JogCommand struct {
	ConnectOptions

	Timeout int     `short:"t" long:"timeout" description:"Move timeout in ms (default from config)"`
	X       float64 `long:"x" description:"X offset (mm)"`
	Y       float64 `long:"y" description:"Y offset (mm)"`
	Z       float64 `long:"z" description:"Z offset (mm)"`
	Rx      float64 `long:"rx" description:"Rx offset (°)"`
	Ry      float64 `long:"ry" description:"Ry offset (°)"`
	Rz      float64 `long:"rz" description:"Rz offset (°)"`
}

func (c *JogCommand) Execute(args []string) error {
	delta := robot.Pose{X: c.X, Y: c.Y, Z: c.Z, Rx: c.Rx, Ry: c.Ry, Rz: c.Rz}
	if delta == (robot.Pose{}) {
		return errors.New("nothing to do: give at least one of --x --y --z --rx --ry --rz")
	}

	ctrl, cfg, err := c.connect()
	if err != nil {
		return err
	}
	defer ctrl.Stop()

	current, err := waitForPose(ctrl, feedbackWait)
	if err != nil {
		return err
	}

	// The target is fixed here so the result table compares against what was sent.
	return moveAndReport(ctrl, current.Add(delta), moveTimeout(c.Timeout, cfg), cfg.Tolerance)
}

// moveAndReport moves to target, prints the outcome and returns errMoveFailed
// if the target was not reached.
func moveAndReport(ctrl *control.Controller, target robot.Pose, timeout time.Duration, tol robot.Tolerance) error {
	ok := runMove(ctrl, timeout, func(ctx context.Context, timeout time.Duration) bool {
		return ctrl.MoveToTCPPosition(ctx, target, timeout)
	})
	printResult(target, ctrl.CurrentPose(), tol)
	if !ok {
		return errMoveFailed
	}
	return nil
}

func moveTimeout(flagMs int, cfg *robot.Config) time.Duration {
	if flagMs > 0 {
		return time.Duration(flagMs) * time.Millisecond
	}
	return time.Duration(cfg.MoveTimeoutMs) * time.Millisecond
}

// runMove executes move while echoing controller status messages.
// Ctrl-C cancels the move.
func runMove(ctrl *control.Controller, timeout time.Duration, move func(context.Context, time.Duration) bool) bool {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	done := make(chan bool, 1)
	go func() {
		done <- move(ctx, timeout)
	}()

	for {
		select {
		case msg := <-ctrl.Status():
			fmt.Println(statusLine(msg))
		case ok := <-done:
			// Flush what the move reported last.
			for {
				select {
				case msg := <-ctrl.Status():
					fmt.Println(statusLine(msg))
				default:
					return ok
				}
			}
		}
	}
}

func statusLine(msg string) string {
	switch {
	case strings.HasPrefix(msg, "Timeout"), strings.HasPrefix(msg, "Error"), strings.Contains(msg, "error"):
		return errorStyle.Render(msg)
	case strings.Contains(msg, "reached"), strings.Contains(msg, "already at target"):
		return successStyle.Render(msg)
	default:
		return dimStyle.Render(msg)
	}
}

func printResult(target, actual robot.Pose, tol robot.Tolerance) {
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	offStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)

	axes := robot.AllAxes()
	within := make([]bool, 0, len(axes))
	rows := make([][]string, 0, len(axes))
	for _, a := range axes {
		var diff, limit float64
		if a.IsRotation() {
			diff = robot.AngularDifference(target.Value(a), actual.Value(a))
			limit = tol.Rotation
		} else {
			diff = actual.Value(a) - target.Value(a)
			if diff < 0 {
				diff = -diff
			}
			limit = tol.Position
		}
		within = append(within, diff <= limit)
		rows = append(rows, []string{
			string(a),
			formatAxis(a, target.Value(a)),
			formatAxis(a, actual.Value(a)),
			formatAxis(a, diff),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Axis", "Target", "Actual", "Error").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 3 && row >= 0 && row < len(within) {
				if within[row] {
					return okStyle
				}
				return offStyle
			}
			return cellStyle
		})

	fmt.Println()
	fmt.Println(t.Render())
}

// promptPose asks for a target, prefilled with the current pose.
func promptPose(current robot.Pose) (robot.Pose, error) {
	axes := robot.AllAxes()
	values := make([]string, len(axes))
	fields := make([]huh.Field, len(axes))
	for i, a := range axes {
		values[i] = strconv.FormatFloat(current.Value(a), 'f', 2, 64)
		fields[i] = huh.NewInput().
			Title(string(a)).
			Value(&values[i]).
			Validate(func(s string) error {
				_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
				return err
			})
	}

	if err := huh.NewForm(huh.NewGroup(fields...).Title("Target TCP position")).Run(); err != nil {
		return robot.Pose{}, err
	}

	parsed := make([]float64, len(values))
	for i, s := range values {
		parsed[i], _ = strconv.ParseFloat(strings.TrimSpace(s), 64)
	}
	return robot.PoseFromSlice(parsed)
}
