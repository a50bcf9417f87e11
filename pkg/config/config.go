// Package config implements the L14 ambient configuration loader: a
// YAML file of mission-tunable parameters (auth key, beacon callsign,
// EPS thresholds, log level) loaded, defaulted and validated at boot.
// Grounded on the teacher's YAML-config dependency (go.mod requires
// gopkg.in/yaml.v2) and on haha39-dccf/pkg/factory.DefaultLoader's
// read->unmarshal->default->validate pipeline shape, with
// github.com/pkg/errors used for the boundary-crossing wrap (this is
// the one place in the module where configuration I/O, not a flight
// control-flow decision, can fail) and
// github.com/asaskevich/govalidator for field-level validation.
package config

import (
	"os"

	"github.com/asaskevich/govalidator"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"
)

// Config is the top-level mission configuration.
type Config struct {
	LogLevel string `yaml:"log_level" valid:"in(debug|info|warn|error)"`

	Beacon struct {
		Callsign    string `yaml:"callsign" valid:"stringlength(1|16)"`
		IntervalMs  uint32 `yaml:"interval_ms"`
	} `yaml:"beacon"`

	Telecommand struct {
		AuthKeyHex string `yaml:"auth_key_hex" valid:"hexadecimal,optional"`
	} `yaml:"telecommand"`

	EPS struct {
		CriticalSOCPct float32 `yaml:"critical_soc_pct"`
		LowSOCPct      float32 `yaml:"low_soc_pct"`
		NominalSOCPct  float32 `yaml:"nominal_soc_pct"`
	} `yaml:"eps"`

	Clock struct {
		DriftPPM int32 `yaml:"drift_ppm"`
	} `yaml:"clock"`
}

// Default returns a Config populated entirely with the mission's
// built-in defaults (matching the constants in the beacon/eps
// packages), used when no config file is supplied.
func Default() Config {
	var c Config
	c.LogLevel = "info"
	c.Beacon.Callsign = "OFSW-3U"
	c.Beacon.IntervalMs = 30000
	c.EPS.CriticalSOCPct = 10.0
	c.EPS.LowSOCPct = 20.0
	c.EPS.NominalSOCPct = 50.0
	c.Clock.DriftPPM = 0
	return c
}

func applyDefaults(c *Config) {
	d := Default()
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Beacon.Callsign == "" {
		c.Beacon.Callsign = d.Beacon.Callsign
	}
	if c.Beacon.IntervalMs == 0 {
		c.Beacon.IntervalMs = d.Beacon.IntervalMs
	}
	if c.EPS.CriticalSOCPct == 0 {
		c.EPS.CriticalSOCPct = d.EPS.CriticalSOCPct
	}
	if c.EPS.LowSOCPct == 0 {
		c.EPS.LowSOCPct = d.EPS.LowSOCPct
	}
	if c.EPS.NominalSOCPct == 0 {
		c.EPS.NominalSOCPct = d.EPS.NominalSOCPct
	}
}

// Load reads, defaults and validates a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: read file")
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "config: unmarshal yaml")
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: validate")
	}
	return &cfg, nil
}

// validate runs every independent validation rule and aggregates all
// failures with multierr instead of stopping at the first one, so a
// ground operator fixing a rejected config file sees every field that
// needs attention in one pass rather than one-at-a-time.
func validate(c *Config) error {
	var err error
	if ok, verr := govalidator.ValidateStruct(c); !ok {
		err = multierr.Append(err, verr)
	}
	if c.EPS.CriticalSOCPct >= c.EPS.LowSOCPct {
		err = multierr.Append(err, errors.New("config: eps.critical_soc_pct must be below eps.low_soc_pct"))
	}
	if c.EPS.LowSOCPct >= c.EPS.NominalSOCPct {
		err = multierr.Append(err, errors.New("config: eps.low_soc_pct must be below eps.nominal_soc_pct"))
	}
	return err
}
