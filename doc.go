// Package egm is a client for ABB Externally Guided Motion (EGM).
//
// It streams Cartesian position corrections to a robot controller over UDP
// at about 250 Hz, reads back the measured tool pose, and reports when a
// commanded pose has been reached within tolerance.
//
// # Installation
//
//	go install github.com/gwillem/egm/cmd/egm@latest
//
// # Usage
//
// First, run setup to point the client at the controller:
//
//	egm setup --verify
//
// Then watch or move the robot:
//
//	egm monitor
//	egm move 400 0 550 180 0 90
//	egm jog --z 10
//
// Without hardware, run a simulated controller and point the client at it:
//
//	egm peer --port 6511 --client 127.0.0.1:6510
//	egm monitor --port 6511
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/egm: CLI with setup, monitor, move, jog, convert and peer commands
//   - cmd/egm-info: one-shot probe of a controller's feedback stream
//   - pkg/robot: Pose, orientation math, tolerances, workspace and configuration
//   - pkg/egm: Wire codec, UDP transport and a simulated controller
//   - pkg/control: Motion controller (send/receive loops, move-and-wait)
package egm
