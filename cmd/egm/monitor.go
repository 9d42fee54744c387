package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/egm/pkg/control"
	"github.com/gwillem/egm/pkg/robot"
)

type MonitorCommand struct {
	ConnectOptions

	Span float64 `long:"span" default:"100" description:"Chart range around the first pose (mm or °)"`
}

const (
	headerHeight = 3 // title + pose + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Axis colors - distinct colors for each axis
var axisColors = map[robot.Axis]string{
	robot.AxisX:  "196", // red
	robot.AxisY:  "46",  // green
	robot.AxisZ:  "33",  // blue
	robot.AxisRx: "208", // orange
	robot.AxisRy: "51",  // cyan
	robot.AxisRz: "201", // magenta
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type monitorModel struct {
	ctrl     *control.Controller
	remote   string
	chart    *streamlinechart.Model
	width    int          // terminal width
	height   int          // terminal height
	logs     []string     // last N status messages
	origin   *robot.Pose  // first pose; the chart plots offsets from it
	last     *robot.Pose  // previous pose, to detect movement
	feedback control.Feedback
	quitting bool
}

func (m *monitorModel) addLog(msg string) {
	m.logs = append(m.logs, fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), msg))
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the controller
type poseMsg robot.Pose
type statusMsg string
type feedbackTickMsg time.Time

func waitForPoseMsg(ctrl *control.Controller) tea.Cmd {
	return func() tea.Msg {
		return poseMsg(<-ctrl.Poses())
	}
}

func waitForStatus(ctrl *control.Controller) tea.Cmd {
	return func() tea.Msg {
		return statusMsg(<-ctrl.Status())
	}
}

func feedbackTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return feedbackTickMsg(t)
	})
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *monitorModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *monitorModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialMonitorModel(ctrl *control.Controller, remote string, span float64) monitorModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-span, span),
	)

	for _, a := range robot.AllAxes() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(axisColors[a]))
		chart.SetDataSetStyles(string(a), runes.ThinLineStyle, style)
	}

	return monitorModel{
		ctrl:   ctrl,
		remote: remote,
		chart:  &chart,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		waitForPoseMsg(m.ctrl),
		waitForStatus(m.ctrl),
		feedbackTick(),
	)
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "c":
			m.logs = nil
			return m, nil
		case "r":
			// Re-center the chart on the current pose.
			m.origin = m.last
			return m, nil
		}

	case poseMsg:
		pose := robot.Pose(msg)
		if m.origin == nil {
			m.origin = &pose
		}
		// Only update chart if there's movement (freeze when idle)
		if m.last == nil || *m.last != pose {
			for _, a := range robot.AllAxes() {
				m.chart.PushDataSet(string(a), offset(a, pose, *m.origin))
			}
			m.chart.DrawAll()
			m.last = &pose
		}
		return m, waitForPoseMsg(m.ctrl)

	case statusMsg:
		m.addLog(string(msg))
		return m, waitForStatus(m.ctrl)

	case feedbackTickMsg:
		if fb, ok := m.ctrl.LastFeedback(); ok {
			m.feedback = fb
		}
		return m, feedbackTick()
	}

	return m, nil
}

// offset returns the axis distance from origin, wrapping rotations.
func offset(a robot.Axis, pose, origin robot.Pose) float64 {
	d := pose.Value(a) - origin.Value(a)
	if a.IsRotation() {
		return robot.NormalizeAngle(d)
	}
	return d
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Monitor stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("EGM Monitor"))
	sb.WriteString(" - " + m.remote)
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n")
	if m.last != nil {
		sb.WriteString(m.last.String())
		sb.WriteString(statusStyle.Render("  " + renderStates(m.feedback)))
	} else {
		sb.WriteString(statusStyle.Render("Waiting for feedback..."))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit, 'c' to clear, 'r' to re-center")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend() string {
	var items []string
	for _, a := range robot.AllAxes() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(axisColors[a])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+string(a))
	}
	return strings.Join(items, "  ")
}

func (c *MonitorCommand) Execute(args []string) error {
	ctrl, cfg, err := c.connect()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer ctrl.Stop()

	remote := fmt.Sprintf("%s:%d (listening on %d)", cfg.Robot.IP, cfg.Robot.Port, cfg.LocalPort)
	p := tea.NewProgram(initialMonitorModel(ctrl, remote, c.Span), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}

	return nil
}
