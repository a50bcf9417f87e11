package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheusHen/OpenFSW/pkg/bootrec"
	"github.com/TheusHen/OpenFSW/pkg/ccsds"
	"github.com/TheusHen/OpenFSW/pkg/config"
	"github.com/TheusHen/OpenFSW/pkg/mode"
	"github.com/TheusHen/OpenFSW/pkg/platform"
	"github.com/TheusHen/OpenFSW/pkg/telemetry"
)

func newTestSupervisor(t *testing.T, cause platform.ResetCause) (*Supervisor, *platform.Sim) {
	t.Helper()
	sim := platform.NewSim(cause)
	sup := New(sim, config.Default())
	var persistent [bootrec.Size]byte
	sup.Boot(persistent, cause, 0, map[uint16]telemetry.Generator{
		telemetry.APIDSystem: func(uint32) []byte { return []byte{1} },
	})
	return sup, sim
}

func TestBootFromPowerOnEntersDetumble(t *testing.T) {
	sup, _ := newTestSupervisor(t, platform.ResetPowerOn)
	assert.Equal(t, mode.Detumble, sup.Mode())
}

func TestBootWithSafeModePinForcesSafe(t *testing.T) {
	sim := platform.NewSim(platform.ResetPowerOn)
	sim.SetSafeModePin(true)
	sup := New(sim, config.Default())
	var persistent [bootrec.Size]byte
	sup.Boot(persistent, platform.ResetPowerOn, 0, nil)
	assert.Equal(t, mode.Safe, sup.Mode())
}

func TestBootAfterResetLoopForcesSafe(t *testing.T) {
	sim := platform.NewSim(platform.ResetWatchdog)
	sup := New(sim, config.Default())

	buf := bootrec.Zero().Encode()
	for i := 0; i < 3; i++ {
		_, buf = bootrec.OnReset(buf, platform.ResetWatchdog)
	}
	sup.Boot(buf, platform.ResetWatchdog, 0, nil)
	assert.Equal(t, mode.Safe, sup.Mode())
}

func TestStepAdvancesAndTelemetryFlows(t *testing.T) {
	sup, sim := newTestSupervisor(t, platform.ResetPowerOn)

	for i := 0; i < 20; i++ {
		sim.Advance(100)
		sup.Step(sim.TimeMsMonotonic())
	}

	_, ok := sup.DequeueTelemetry()
	assert.True(t, ok)
}

func TestSubmitTelecommandPing(t *testing.T) {
	sup, sim := newTestSupervisor(t, platform.ResetPowerOn)
	sh := ccsds.TCSecondaryHeader{Service: 17, Subtype: 1}
	pkt := ccsds.BuildTC(10, 1, sh, nil)

	code := sup.SubmitTelecommand(pkt, sim.TimeMsMonotonic())
	require.True(t, code.Ok())
}

func TestModeChangeTelecommandTransitionsMode(t *testing.T) {
	sup, sim := newTestSupervisor(t, platform.ResetPowerOn)
	// Detumble -> Nominal is an allowed transition.
	sh := ccsds.TCSecondaryHeader{Service: 8, Subtype: 1}
	pkt := ccsds.BuildTC(10, 1, sh, []byte{byte(mode.Nominal)})

	code := sup.SubmitTelecommand(pkt, sim.TimeMsMonotonic())
	require.True(t, code.Ok())
	assert.Equal(t, mode.Nominal, sup.Mode())
}
