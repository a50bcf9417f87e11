package eps

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheusHen/OpenFSW/pkg/mode"
	"github.com/TheusHen/OpenFSW/pkg/platform"
)

func TestNewEnablesCoreSensorsCommsOnly(t *testing.T) {
	sim := platform.NewSim(platform.ResetPowerOn)
	c := New(sim, nil)

	assert.True(t, c.RailEnabled(RailCore))
	assert.True(t, c.RailEnabled(RailSensors))
	assert.True(t, c.RailEnabled(RailComms))
	assert.False(t, c.RailEnabled(RailActuators))
	assert.False(t, c.RailEnabled(RailPayload))
}

func TestDisableRailProtectsCore(t *testing.T) {
	c := New(platform.NewSim(platform.ResetPowerOn), nil)
	c.DisableRail(RailCore)
	assert.True(t, c.RailEnabled(RailCore))
}

func TestPeriodicCriticalSOCTriggersLoadShed(t *testing.T) {
	c := New(platform.NewSim(platform.ResetPowerOn), nil)
	c.EnableRail(RailActuators)
	c.EnableRail(RailPayload)
	c.UpdateBattery(5.0, 3300)

	var criticalFired bool
	c.Periodic(100, func(nowSec uint32) { criticalFired = true })

	assert.True(t, criticalFired)
	assert.True(t, c.IsCritical())
	assert.False(t, c.RailEnabled(RailActuators))
	assert.False(t, c.RailEnabled(RailPayload))
	assert.False(t, c.RailEnabled(RailSensors))
}

func TestPeriodicLowSOCEntersLowPower(t *testing.T) {
	c := New(platform.NewSim(platform.ResetPowerOn), nil)
	c.UpdateBattery(15.0, 3300)
	c.Periodic(100, nil)
	assert.True(t, c.IsLowPower())
	assert.False(t, c.IsCritical())
	assert.False(t, c.RailEnabled(RailActuators))
	assert.False(t, c.RailEnabled(RailPayload))
}

func TestPeriodicLowSOCRequestsLowPowerMode(t *testing.T) {
	c := New(platform.NewSim(platform.ResetPowerOn), nil)
	m := mode.New(mode.Nominal, nil)
	c.SetModeManager(m)
	c.UpdateBattery(15.0, 3300)
	c.Periodic(100, nil)
	assert.Equal(t, mode.LowPower, m.Current())
}

func TestPeriodicNominalSOCExitsLowPower(t *testing.T) {
	c := New(platform.NewSim(platform.ResetPowerOn), nil)
	c.UpdateBattery(15.0, 3300)
	c.Periodic(100, nil)
	assert.True(t, c.IsLowPower())

	c.UpdateBattery(60.0, 4000)
	c.Periodic(200, nil)
	assert.False(t, c.IsLowPower())
}

func TestCanSupportLoadRules(t *testing.T) {
	c := New(platform.NewSim(platform.ResetPowerOn), nil)
	c.UpdateBattery(5.0, 3300)
	c.Periodic(0, nil)
	assert.False(t, c.CanSupportLoad(1))

	c2 := New(platform.NewSim(platform.ResetPowerOn), nil)
	c2.UpdateBattery(15.0, 3300)
	c2.Periodic(0, nil)
	assert.True(t, c2.CanSupportLoad(50))
	assert.False(t, c2.CanSupportLoad(150))
}

func TestBudget(t *testing.T) {
	c := New(platform.NewSim(platform.ResetPowerOn), nil)
	c.UpdateSolar(5000)
	c.UpdateConsumption(3000)
	assert.Equal(t, float32(2000), c.Budget())
}

func TestRestoreLoads(t *testing.T) {
	c := New(platform.NewSim(platform.ResetPowerOn), nil)
	c.LoadShed()
	assert.False(t, c.RailEnabled(RailActuators))
	c.RestoreLoads()
	assert.True(t, c.RailEnabled(RailActuators))
	assert.True(t, c.RailEnabled(RailPayload))
}
