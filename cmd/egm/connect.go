package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gwillem/egm/pkg/control"
	"github.com/gwillem/egm/pkg/robot"
)

// ConnectOptions are shared by commands that talk to the robot.
type ConnectOptions struct {
	Config    string `short:"c" long:"config" default:"egm.json" description:"Configuration file"`
	IP        string `long:"ip" description:"Robot controller IP (overrides config)"`
	Port      int    `long:"port" description:"Robot EGM port (overrides config)"`
	LocalPort int    `long:"local-port" description:"Local feedback port (overrides config)"`
}

// load reads the configuration file, falling back to defaults when it does
// not exist, and applies flag overrides.
func (o *ConnectOptions) load() (*robot.Config, error) {
	cfg := robot.DefaultConfig()
	if _, err := os.Stat(o.Config); err == nil {
		if cfg, err = robot.LoadConfigFrom(o.Config); err != nil {
			return nil, err
		}
	} else if ip := os.Getenv("EGM_ROBOT_IP"); ip != "" {
		cfg.Robot.IP = ip
	}

	if o.IP != "" {
		cfg.Robot.IP = o.IP
	}
	if o.Port != 0 {
		cfg.Robot.Port = o.Port
	}
	if o.LocalPort != 0 {
		cfg.LocalPort = o.LocalPort
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// connect builds a controller and starts reading feedback.
func (o *ConnectOptions) connect() (*control.Controller, *robot.Config, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, err
	}
	ctrl, err := control.NewController(control.ConfigFrom(cfg), control.WithLogger(newLogger()))
	if err != nil {
		return nil, nil, fmt.Errorf("create controller: %w", err)
	}
	if err := ctrl.StartReading(); err != nil {
		return nil, nil, fmt.Errorf("start reading: %w", err)
	}
	return ctrl, cfg, nil
}

// waitForPose blocks until the first feedback pose arrives.
func waitForPose(ctrl *control.Controller, timeout time.Duration) (robot.Pose, error) {
	select {
	case p := <-ctrl.Poses():
		return p, nil
	case <-time.After(timeout):
		return robot.Pose{}, fmt.Errorf("no feedback from robot within %s", timeout)
	}
}
