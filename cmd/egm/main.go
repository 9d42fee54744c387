package main

import (
	"os"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"
)

type Options struct {
	Verbose bool   `short:"v" long:"verbose" description:"Enable debug logging"`
	LogFile string `long:"log-file" default:"egm.log" description:"Log destination when --verbose is set"`

	Setup   SetupCommand   `command:"setup" description:"Configure the robot endpoint and verify feedback"`
	Monitor MonitorCommand `command:"monitor" description:"Stream the robot's TCP pose"`
	Move    MoveCommand    `command:"move" description:"Move the TCP to an absolute pose (put -- before negative values)"`
	Jog     JogCommand     `command:"jog" description:"Move the TCP relative to its current pose"`
	Convert ConvertCommand `command:"convert" description:"Check the Euler/quaternion round trip (put -- before negative values)"`
	Peer    PeerCommand    `command:"peer" alias:"sim" description:"Run a simulated robot controller"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "EGM - Externally Guided Motion client for ABB robot controllers"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

// newLogger returns a no-op logger unless --verbose is set.
func newLogger() *zap.Logger {
	if !opts.Verbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{opts.LogFile}
	cfg.ErrorOutputPaths = []string{opts.LogFile}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
