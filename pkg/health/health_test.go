package health

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheusHen/OpenFSW/pkg/platform"
)

func TestRegisterAndUpdateTask(t *testing.T) {
	sim := platform.NewSim(platform.ResetPowerOn)
	m := New(sim, nil)

	h, ok := m.RegisterTask("adcs", 0)
	assert.True(t, ok)
	assert.Equal(t, "adcs", m.Name(h))

	m.UpdateTask(h, Sample{TempC: 20, VoltageMV: 3300, CPULoadPct: 10, MinStackBytes: 512}, 100)
	assert.True(t, m.IsTaskAlive(h))
	assert.Equal(t, SeverityOK, m.Status(h))
}

func TestHeartbeatTimeoutMarksCriticalAndNotAlive(t *testing.T) {
	sim := platform.NewSim(platform.ResetPowerOn)
	m := New(sim, nil)
	h, _ := m.RegisterTask("comms", 0)

	m.Periodic(HeartbeatTimeMs + 1)
	assert.False(t, m.IsTaskAlive(h))
	assert.Equal(t, SeverityCritical, m.Status(h))
}

func TestVoltageOutOfRangeIsCriticalUnconditionally(t *testing.T) {
	sim := platform.NewSim(platform.ResetPowerOn)
	m := New(sim, nil)
	h, _ := m.RegisterTask("eps", 0)
	m.UpdateTask(h, Sample{VoltageMV: 5000}, 0)
	m.Periodic(0)
	assert.Equal(t, SeverityCritical, m.Status(h))
}

func TestHighCPULoadIsWarningOnly(t *testing.T) {
	sim := platform.NewSim(platform.ResetPowerOn)
	m := New(sim, nil)
	h, _ := m.RegisterTask("payload", 0)
	m.UpdateTask(h, Sample{VoltageMV: 3300, CPULoadPct: 95}, 0)
	m.Periodic(0)
	assert.Equal(t, SeverityWarning, m.Status(h))
}

func TestPeriodicAlwaysKicksWatchdog(t *testing.T) {
	sim := platform.NewSim(platform.ResetPowerOn)
	m := New(sim, nil)
	m.Periodic(0)
	assert.Equal(t, uint32(1), sim.WatchdogKicks())
}

func TestRegisterTaskTableFull(t *testing.T) {
	sim := platform.NewSim(platform.ResetPowerOn)
	m := New(sim, nil)
	for i := 0; i < MaxTasks; i++ {
		_, ok := m.RegisterTask("t", 0)
		assert.True(t, ok)
	}
	_, ok := m.RegisterTask("overflow", 0)
	assert.False(t, ok)
}
