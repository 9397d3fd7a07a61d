package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/boiler-climate/internal/climate"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "settings.yaml"))
	cfg, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, climate.DefaultSettings(), cfg)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
heating:
  target: 22.5
equitherm:
  enable: true
sensors:
  outdoor:
    type: 2
    pin: 4
    offset: -0.5
`), 0o644))

	cfg, err := NewStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 22.5, cfg.Heating.Target)
	assert.Equal(t, 90, cfg.Heating.MaxTemp)
	assert.True(t, cfg.Equitherm.Enable)
	assert.Equal(t, 0.7, cfg.Equitherm.N)
	assert.Equal(t, climate.SensorDS18B20, cfg.Sensors.Outdoor.Type)
	assert.Equal(t, 4, cfg.Sensors.Outdoor.Pin)
	assert.Equal(t, -0.5, cfg.Sensors.Outdoor.Offset)
	assert.Equal(t, climate.SensorManual, cfg.Sensors.Indoor.Type)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "heating: [1, 2"},
		{"inverted bounds", "heating:\n  min_temp: 80\n  max_temp: 40\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

			cfg, err := NewStore(path).Load()
			assert.Error(t, err)
			assert.Equal(t, climate.DefaultSettings(), cfg)
		})
	}
}

func TestLoadInvalidBoundsWrapsSentinel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pid:\n  min_temp: 50\n  max_temp: 10\n"), 0o644))

	_, err := NewStore(path).Load()
	assert.ErrorIs(t, err, climate.ErrPIDBounds)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	s := NewStore(path)

	cfg := climate.DefaultSettings()
	cfg.PID.Enable = true
	cfg.PID.P, cfg.PID.I, cfg.PID.D = 20.37, 0.34, 305.6
	cfg.Heating.Turbo = true
	require.NoError(t, s.Save(cfg))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file removed")
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	s := NewStore(path)

	cfg := climate.DefaultSettings()
	require.NoError(t, s.Save(cfg))
	cfg.Heating.Target = 19
	require.NoError(t, s.Save(cfg))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 19.0, got.Heating.Target)
}

func TestSaveMissingDirectory(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope", "settings.yaml"))
	assert.Error(t, s.Save(climate.DefaultSettings()))
}
