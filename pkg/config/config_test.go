package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	assert.NoError(t, validate(&c))
}

func TestLoadAppliesDefaultsForMissingFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("beacon:\n  callsign: MYSAT\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "MYSAT", c.Beacon.Callsign)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, Default().EPS.CriticalSOCPct, c.EPS.CriticalSOCPct)
}

func TestLoadRejectsInvertedSOCThresholds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	body := "eps:\n  critical_soc_pct: 60\n  low_soc_pct: 20\n  nominal_soc_pct: 50\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
