package robot

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
)

const DefaultConfigFile = "egm.json"

// Defaults for a fresh configuration.
const (
	DefaultRobotIP       = "127.0.0.1"
	DefaultRobotPort     = 6510
	DefaultLocalPort     = 6510
	DefaultMoveTimeoutMs = 30000
)

// OrientationEncoding selects how orientation angles travel in the
// quaternion slots of the wire frame.
type OrientationEncoding string

const (
	// OrientationPassthrough writes Rx, Ry, Rz into u0..u2 (u3 = 0) and reads
	// u0..u2 back as angles. This is what deployed controllers expect.
	OrientationPassthrough OrientationEncoding = "passthrough"
	// OrientationQuaternion converts to and from a real unit quaternion.
	OrientationQuaternion OrientationEncoding = "quaternion"
)

// Config holds the EGM client configuration
type Config struct {
	Robot         EndpointConfig      `json:"robot"`
	LocalPort     int                 `json:"local_port"`
	Tolerance     Tolerance           `json:"tolerance"`
	MoveTimeoutMs int                 `json:"move_timeout_ms"`
	Orientation   OrientationEncoding `json:"orientation,omitempty"`
	Workspace     Workspace           `json:"workspace,omitempty"`
}

// EndpointConfig is the robot controller's UDP endpoint
type EndpointConfig struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

// Addr returns the endpoint as a UDP address.
func (e EndpointConfig) Addr() (*net.UDPAddr, error) {
	ip := net.ParseIP(e.IP)
	if ip == nil {
		return nil, fmt.Errorf("invalid robot IP %q", e.IP)
	}
	return &net.UDPAddr{IP: ip, Port: e.Port}, nil
}

// DefaultConfig returns a configuration pointing at a controller on this host.
func DefaultConfig() *Config {
	return &Config{
		Robot:         EndpointConfig{IP: DefaultRobotIP, Port: DefaultRobotPort},
		LocalPort:     DefaultLocalPort,
		Tolerance:     DefaultTolerance(),
		MoveTimeoutMs: DefaultMoveTimeoutMs,
		Orientation:   OrientationPassthrough,
	}
}

// Validate checks the configuration for values the client cannot use
func (c *Config) Validate() error {
	if _, err := c.Robot.Addr(); err != nil {
		return err
	}
	if c.Robot.Port < 1 || c.Robot.Port > 65535 {
		return fmt.Errorf("invalid robot port %d", c.Robot.Port)
	}
	if c.LocalPort < 0 || c.LocalPort > 65535 {
		return fmt.Errorf("invalid local port %d", c.LocalPort)
	}
	if c.Tolerance.Position <= 0 || c.Tolerance.Rotation <= 0 {
		return fmt.Errorf("tolerances must be positive: %+v", c.Tolerance)
	}
	switch c.Orientation {
	case "", OrientationPassthrough, OrientationQuaternion:
	default:
		return fmt.Errorf("unknown orientation encoding %q", c.Orientation)
	}
	return c.Workspace.Validate()
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file. Missing fields
// keep their defaults and EGM_ROBOT_IP, when set, overrides the robot IP.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if ip := os.Getenv("EGM_ROBOT_IP"); ip != "" {
		cfg.Robot.IP = ip
	}
	return cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
