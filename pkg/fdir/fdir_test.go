package fdir

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"

	"github.com/TheusHen/OpenFSW/pkg/bootrec"
	"github.com/TheusHen/OpenFSW/pkg/eps"
	"github.com/TheusHen/OpenFSW/pkg/mode"
	"github.com/TheusHen/OpenFSW/pkg/platform"
)

func TestReportFaultBelowThresholdTakesNoAction(t *testing.T) {
	sim := platform.NewSim(platform.ResetPowerOn)
	m := mode.New(mode.Nominal, nil)
	e := eps.New(sim, nil)
	engine := New(sim, m, e, nil)

	engine.ReportFault(FaultCommLoss, platform.SubsysComms, 1) // threshold 10
	assert.Equal(t, uint32(1), engine.Count(FaultCommLoss))
	assert.Equal(t, mode.Nominal, m.Current())
}

func TestCommLossAtThresholdRetriesWithoutSideEffects(t *testing.T) {
	sim := platform.NewSim(platform.ResetPowerOn)
	m := mode.New(mode.Nominal, nil)
	e := eps.New(sim, nil)
	engine := New(sim, m, e, nil)

	for i := 0; i < 10; i++ {
		engine.ReportFault(FaultCommLoss, platform.SubsysComms, uint32(i))
	}
	// ActionRetry is a no-op in FDIR itself: no mode change, no reset.
	assert.Equal(t, uint32(0), engine.Count(FaultCommLoss))
	assert.Equal(t, mode.Nominal, m.Current())
	assert.Equal(t, uint32(0), sim.ResetSoftwareCount())
}

func TestPowerCriticalTriggersLoadShed(t *testing.T) {
	sim := platform.NewSim(platform.ResetPowerOn)
	m := mode.New(mode.Nominal, nil)
	e := eps.New(sim, nil)
	e.EnableRail(eps.RailPayload)
	engine := New(sim, m, e, nil)

	engine.ReportFault(FaultPowerCritical, platform.SubsysEPS, 1) // threshold 1
	assert.False(t, e.RailEnabled(eps.RailPayload))
	assert.Equal(t, uint32(0), engine.Count(FaultPowerCritical))
}

func TestResetLoopForcesSafeMode(t *testing.T) {
	sim := platform.NewSim(platform.ResetPowerOn)
	m := mode.New(mode.Nominal, nil)
	e := eps.New(sim, nil)
	engine := New(sim, m, e, nil)

	for i := 0; i < 3; i++ { // threshold 3
		engine.ReportFault(FaultResetLoop, platform.SubsysBoot, uint32(i))
	}
	assert.Equal(t, mode.Safe, m.Current())
}

func TestDetectResetLoop(t *testing.T) {
	rec := bootrec.Record{ResetCountWatchdog: bootrec.SafeModeWatchdogThreshold}
	assert.True(t, DetectResetLoop(rec))

	rec.ResetCountWatchdog = 0
	assert.False(t, DetectResetLoop(rec))
}

func TestWatchdogTimeoutTriggersSystemReset(t *testing.T) {
	sim := platform.NewSim(platform.ResetPowerOn)
	m := mode.New(mode.Nominal, nil)
	e := eps.New(sim, nil)
	engine := New(sim, m, e, nil)

	engine.ReportFault(FaultWatchdogTimeout, platform.SubsysCore, 0) // threshold 1
	assert.Equal(t, uint32(1), sim.ResetSoftwareCount())
}

func TestMemoryErrorForcesSafeMode(t *testing.T) {
	sim := platform.NewSim(platform.ResetPowerOn)
	m := mode.New(mode.Nominal, nil)
	e := eps.New(sim, nil)
	engine := New(sim, m, e, nil)

	engine.ReportFault(FaultMemoryError, platform.SubsysCore, 0) // threshold 1
	assert.Equal(t, mode.Safe, m.Current())
}

func TestThermalLimitDisablesPayloadRail(t *testing.T) {
	sim := platform.NewSim(platform.ResetPowerOn)
	m := mode.New(mode.Nominal, nil)
	e := eps.New(sim, nil)
	e.EnableRail(eps.RailPayload)
	engine := New(sim, m, e, nil)

	engine.ReportFault(FaultThermalLimit, platform.SubsysPayload, 0) // threshold 1
	assert.False(t, e.RailEnabled(eps.RailPayload))
}

// TestRuleTableCoversEveryFaultType guards against a fault type added to the
// enum without a matching rules[] entry, which would silently no-op in
// executeAction. On failure it dumps the full table so the gap is obvious
// without reconstructing it from rules[]'s source by hand.
func TestRuleTableCoversEveryFaultType(t *testing.T) {
	for f := FaultWatchdogTimeout; f <= FaultAttitudeLost; f++ {
		if _, ok := ruleFor(f); !ok {
			t.Fatalf("fault type %s has no rule; rules table:\n%s", f, spew.Sdump(rules))
		}
	}
}
