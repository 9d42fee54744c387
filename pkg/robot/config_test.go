package robot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "egm.json")

	cfg := DefaultConfig()
	cfg.Robot = EndpointConfig{IP: "192.168.125.1", Port: 6511}
	cfg.Tolerance.Rotation = 0.25
	require.NoError(t, cfg.SaveTo(path))

	t.Setenv("EGM_ROBOT_IP", "")
	loaded, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfigFrom_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "egm.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"robot":{"ip":"10.0.0.5","port":6510}}`), 0644))

	t.Setenv("EGM_ROBOT_IP", "")
	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultLocalPort, cfg.LocalPort)
	assert.Equal(t, DefaultTolerance(), cfg.Tolerance)
	assert.Equal(t, DefaultMoveTimeoutMs, cfg.MoveTimeoutMs)
	assert.Equal(t, OrientationPassthrough, cfg.Orientation)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFrom_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "egm.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"robot":{"ip":"10.0.0.5","port":6510}}`), 0644))

	t.Setenv("EGM_ROBOT_IP", "127.0.0.1")
	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Robot.IP)
}

func TestLoadConfigFrom_Errors(t *testing.T) {
	_, err := LoadConfigFrom(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0644))
	_, err = LoadConfigFrom(path)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Robot = EndpointConfig{IP: "127.0.0.1", Port: 6510}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad ip", func(c *Config) { c.Robot.IP = "robot.local" }},
		{"zero robot port", func(c *Config) { c.Robot.Port = 0 }},
		{"local port range", func(c *Config) { c.LocalPort = 70000 }},
		{"zero tolerance", func(c *Config) { c.Tolerance.Position = 0 }},
		{"orientation", func(c *Config) { c.Orientation = "euler" }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	addr, err := cfg.Robot.Addr()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6510", addr.String())
}
