package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/egm/pkg/control"
	"github.com/gwillem/egm/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// workspaceMargin widens a recorded range of motion on each side (mm).
const workspaceMargin = 10.0

type SetupCommand struct {
	Verify bool `long:"verify" description:"Show live feedback after saving and optionally record workspace limits"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("EGM Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━"))
	fmt.Println()

	config := robot.DefaultConfig()
	if robot.ConfigExists() {
		existing, err := robot.LoadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ignoring unreadable %s: %v\n", robot.DefaultConfigFile, err)
		} else {
			config = existing
		}
	}

	if err := runSetupForm(config); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println()
			os.Exit(0)
		}
		return err
	}

	if err := config.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
	if err := config.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(successStyle.Render("Configuration saved to " + robot.DefaultConfigFile))
	fmt.Println()

	if c.Verify {
		fmt.Println(subHeaderStyle.Render("━━━ Verifying feedback ━━━"))
		fmt.Println()
		if err := verifyFeedback(config); err != nil {
			fmt.Fprintf(os.Stderr, "Error verifying feedback: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("Watch the robot with: " + headerStyle.Render("egm monitor"))
	return nil
}

func runSetupForm(config *robot.Config) error {
	ip := config.Robot.IP
	robotPort := strconv.Itoa(config.Robot.Port)
	localPort := strconv.Itoa(config.LocalPort)
	posTol := strconv.FormatFloat(config.Tolerance.Position, 'f', -1, 64)
	rotTol := strconv.FormatFloat(config.Tolerance.Rotation, 'f', -1, 64)
	timeout := strconv.Itoa(config.MoveTimeoutMs)
	orientation := string(config.Orientation)
	if orientation == "" {
		orientation = string(robot.OrientationPassthrough)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Robot controller IP").
				Value(&ip).
				Validate(func(s string) error {
					if net.ParseIP(strings.TrimSpace(s)) == nil {
						return fmt.Errorf("not an IP address")
					}
					return nil
				}),
			huh.NewInput().
				Title("Robot EGM port").
				Description("UDP port the controller listens on for corrections").
				Value(&robotPort).
				Validate(portValidator(1)),
			huh.NewInput().
				Title("Local port").
				Description("UDP port the controller streams feedback to").
				Value(&localPort).
				Validate(portValidator(0)),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Position tolerance (mm)").
				Value(&posTol).
				Validate(positiveValidator),
			huh.NewInput().
				Title("Rotation tolerance (°)").
				Value(&rotTol).
				Validate(positiveValidator),
			huh.NewInput().
				Title("Move timeout (ms)").
				Value(&timeout).
				Validate(positiveValidator),
			huh.NewSelect[string]().
				Title("Orientation encoding").
				Description("How Rx/Ry/Rz map onto the wire orientation slots").
				Options(
					huh.NewOption("Pass-through (angles in u0..u2)", string(robot.OrientationPassthrough)),
					huh.NewOption("Quaternion", string(robot.OrientationQuaternion)),
				).
				Value(&orientation),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	config.Robot.IP = strings.TrimSpace(ip)
	config.Robot.Port, _ = strconv.Atoi(robotPort)
	config.LocalPort, _ = strconv.Atoi(localPort)
	config.Tolerance.Position, _ = strconv.ParseFloat(posTol, 64)
	config.Tolerance.Rotation, _ = strconv.ParseFloat(rotTol, 64)
	config.MoveTimeoutMs, _ = strconv.Atoi(timeout)
	config.Orientation = robot.OrientationEncoding(orientation)
	return nil
}

func portValidator(lowest int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n < lowest || n > 65535 {
			return fmt.Errorf("port must be %d-65535", lowest)
		}
		return nil
	}
}

func positiveValidator(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 {
		return fmt.Errorf("must be a positive number")
	}
	return nil
}

// verifyFeedback shows live feedback and offers to store the observed
// range of motion as workspace limits.
func verifyFeedback(config *robot.Config) error {
	ctrl, err := control.NewController(control.ConfigFrom(config), control.WithLogger(newLogger()))
	if err != nil {
		return err
	}
	defer ctrl.Stop()

	if err := ctrl.StartReading(); err != nil {
		return err
	}

	p := tea.NewProgram(newFeedbackModel(ctrl, config.LocalPort))
	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	fm := finalModel.(feedbackModel)
	if !fm.seen {
		fmt.Println(errorStyle.Render("No feedback received."))
		fmt.Printf("Check that the controller streams to UDP port %d on this host.\n", config.LocalPort)
		return nil
	}
	fmt.Println(successStyle.Render("Feedback received: " + fm.current.String()))

	save := false
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save the recorded X/Y/Z range as workspace limits?").
				Description("Moves outside the range will be refused").
				Value(&save),
		),
	)
	if err := form.Run(); err != nil || !save {
		return nil
	}

	config.Workspace = robot.WorkspaceFromRange(fm.min, fm.max, workspaceMargin)
	if err := config.Save(); err != nil {
		return err
	}
	for _, a := range config.Workspace.Axes() {
		r := config.Workspace[a]
		fmt.Printf("  %-3s %s .. %s\n", a, formatAxis(a, r.Min), formatAxis(a, r.Max))
	}
	return nil
}

// Feedback verification TUI model
type feedbackModel struct {
	ctrl      *control.Controller
	localPort int
	started   time.Time
	seen      bool
	current   robot.Pose
	min       robot.Pose
	max       robot.Pose
	feedback  control.Feedback
	quitting  bool
}

type tickMsg time.Time

func newFeedbackModel(ctrl *control.Controller, localPort int) feedbackModel {
	return feedbackModel{
		ctrl:      ctrl,
		localPort: localPort,
		started:   time.Now(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m feedbackModel) Init() tea.Cmd {
	return tick()
}

func (m feedbackModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		fb, ok := m.ctrl.LastFeedback()
		if ok && fb.HasPose {
			m.feedback = fb
			m.current = fb.Pose
			if !m.seen {
				m.min, m.max = fb.Pose, fb.Pose
				m.seen = true
			}
			m.min = mapPose(m.min, fb.Pose, func(a, b float64) float64 { return min(a, b) })
			m.max = mapPose(m.max, fb.Pose, func(a, b float64) float64 { return max(a, b) })
		}
		return m, tick()
	}

	return m, nil
}

func (m feedbackModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	if !m.seen {
		wait := time.Since(m.started).Truncate(time.Second)
		sb.WriteString(fmt.Sprintf("Waiting for feedback on UDP port %d... %s\n\n", m.localPort, wait))
		sb.WriteString(dimStyle.Render("Start the EGM motion on the controller. Press Enter to finish."))
		return sb.String()
	}

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableAxisStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)

	axes := robot.AllAxes()
	rows := make([][]string, 0, len(axes))
	for _, a := range axes {
		rows = append(rows, []string{
			string(a),
			formatAxis(a, m.current.Value(a)),
			formatAxis(a, m.min.Value(a)),
			formatAxis(a, m.max.Value(a)),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Axis", "Current", "Min", "Max").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableAxisStyle
			case 1:
				return tableCurrentStyle
			default:
				return tableCellStyle
			}
		})

	sb.WriteString(t.Render())
	sb.WriteString("\n")
	sb.WriteString(renderStates(m.feedback))
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter when done"))

	return sb.String()
}

func renderStates(fb control.Feedback) string {
	return fmt.Sprintf("motors %s  mci %s  rapid %s  utilization %.0f%%  seq %d",
		fb.MotorState, fb.MCIState, fb.RapidExecState, fb.UtilizationRate, fb.Seq)
}

func formatAxis(a robot.Axis, v float64) string {
	if a.IsRotation() {
		return fmt.Sprintf("%.2f°", v)
	}
	return fmt.Sprintf("%.2f mm", v)
}

func mapPose(a, b robot.Pose, fn func(x, y float64) float64) robot.Pose {
	return robot.Pose{
		X:  fn(a.X, b.X),
		Y:  fn(a.Y, b.Y),
		Z:  fn(a.Z, b.Z),
		Rx: fn(a.Rx, b.Rx),
		Ry: fn(a.Ry, b.Ry),
		Rz: fn(a.Rz, b.Rz),
	}
}
