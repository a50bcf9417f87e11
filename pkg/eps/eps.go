// Package eps implements the L7 electrical power system policy: five
// power rails, battery state-of-charge thresholds driving load-shed and
// low-power transitions, and a power budget (generation minus
// consumption). Grounded on original_source/flight/eps/eps.c
// (eps_update_battery/solar/consumption/budget, eps_periodic,
// eps_enable_rail/disable_rail, eps_can_support_load,
// eps_enter_low_power/exit_low_power/load_shed/restore_loads).
package eps

import (
	"sync"

	"go.uber.org/zap"

	"github.com/TheusHen/OpenFSW/pkg/mode"
	"github.com/TheusHen/OpenFSW/pkg/platform"
)

// Rail identifies one of the five power rails. The ordering follows
// spec.md §4.7: Core (3V3), Sensors (5V), Actuators (12V), Comms
// (3V3), Payload. This differs from the raw rail-number order implied
// by the original C source's init sequence (Core, Sensors, Comms
// enabled; Actuators, Payload disabled) only in where Comms sits in
// the list; the enabled/disabled partition at boot is preserved
// exactly (see New).
type Rail int

const (
	RailCore Rail = iota
	RailSensors
	RailActuators
	RailComms
	RailPayload
	railCount
)

func (r Rail) String() string {
	names := [...]string{"CORE_3V3", "SENSORS_5V", "ACTUATORS_12V", "COMMS_3V3", "PAYLOAD"}
	if int(r) < 0 || int(r) >= len(names) {
		return "UNKNOWN_RAIL"
	}
	return names[r]
}

// Battery state-of-charge thresholds (percent), mirroring
// EPS_BATTERY_CRITICAL_SOC / EPS_BATTERY_LOW_SOC / EPS_BATTERY_NOMINAL_SOC.
const (
	CriticalSOC float32 = 10.0
	LowSOC      float32 = 20.0
	NominalSOC  float32 = 50.0
)

// Controller is the mutex-guarded EPS state machine.
type Controller struct {
	mu sync.Mutex

	rails [railCount]bool

	batterySOC     float32
	batteryVoltage float32
	solarInputMW   float32
	consumptionMW  float32

	critical  bool
	lowPower  bool
	shedLoads bool

	hooks   platform.Hooks
	modeMgr *mode.Manager
	log     *zap.Logger
}

// New returns a Controller with the boot-time rail partition from
// eps_init: Core, Sensors and Comms enabled; Actuators and Payload
// disabled until explicitly commanded on.
func New(hooks platform.Hooks, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{hooks: hooks, log: log, batterySOC: 100.0}
	c.rails[RailCore] = true
	c.rails[RailSensors] = true
	c.rails[RailComms] = true
	if hooks != nil {
		hooks.PowerEnableRail(uint8(RailCore))
		hooks.PowerEnableRail(uint8(RailSensors))
		hooks.PowerEnableRail(uint8(RailComms))
	}
	return c
}

// SetModeManager wires the mode manager EPS requests on entry to low
// power, mirroring the cross-subsystem request eps_enter_low_power
// issues to the mode manager in the C reference. Optional: if never
// called, low-power entry still sheds rails but cannot request a mode
// transition.
func (c *Controller) SetModeManager(m *mode.Manager) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modeMgr = m
}

// UpdateBattery records the latest battery telemetry sample.
func (c *Controller) UpdateBattery(socPercent, voltage float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batterySOC = socPercent
	c.batteryVoltage = voltage
}

// UpdateSolar records the latest solar array input power in milliwatts.
func (c *Controller) UpdateSolar(mw float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.solarInputMW = mw
}

// UpdateConsumption records the latest total bus consumption in milliwatts.
func (c *Controller) UpdateConsumption(mw float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumptionMW = mw
}

// Budget returns generation minus consumption, in milliwatts.
func (c *Controller) Budget() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.solarInputMW - c.consumptionMW
}

// EnableRail turns a rail on. RailCore cannot be disabled but may
// always be (re-)enabled.
func (c *Controller) EnableRail(r Rail) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rails[r] = true
	if c.hooks != nil {
		c.hooks.PowerEnableRail(uint8(r))
	}
}

// DisableRail turns a rail off. RailCore is protected and never
// disabled, mirroring eps_disable_rail's RAIL_3V3_CORE guard.
func (c *Controller) DisableRail(r Rail) {
	if r == RailCore {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rails[r] = false
	if c.hooks != nil {
		c.hooks.PowerDisableRail(uint8(r))
	}
}

// RailEnabled reports a rail's current commanded state.
func (c *Controller) RailEnabled(r Rail) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rails[r]
}

// CanSupportLoad reports whether the bus can support an additional
// load of mw milliwatts, mirroring eps_can_support_load: false outright
// while critical, capped under 100mW while in low power, otherwise
// gated on remaining budget.
func (c *Controller) CanSupportLoad(mw float32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.critical {
		return false
	}
	if c.lowPower {
		return mw < 100.0
	}
	return c.solarInputMW-c.consumptionMW+mw > 0
}

// LoadShed disables the non-essential rails on the battery-critical
// path (Payload, Actuators, Sensors), mirroring eps_load_shed.
func (c *Controller) LoadShed() {
	c.mu.Lock()
	c.shedLoads = true
	c.mu.Unlock()
	c.DisableRail(RailActuators)
	c.DisableRail(RailPayload)
	c.DisableRail(RailSensors)
	c.log.Warn("eps load shed engaged")
}

// RestoreLoads re-enables the rails LoadShed disabled, mirroring
// eps_restore_loads.
func (c *Controller) RestoreLoads() {
	c.mu.Lock()
	c.shedLoads = false
	c.mu.Unlock()
	c.EnableRail(RailActuators)
	c.EnableRail(RailPayload)
	c.EnableRail(RailSensors)
	c.log.Info("eps loads restored")
}

// enterLowPower and exitLowPower mirror eps_enter_low_power/exit_low_power.
// Entering low power disables Actuators and Payload and requests a mode
// transition to mode.LowPower; the mode manager's own transition table
// governs whether the request is honored (e.g. it is rejected from
// Recovery, which has no LowPower edge).
func (c *Controller) enterLowPower(nowSec uint32) {
	c.mu.Lock()
	already := c.lowPower
	c.lowPower = true
	mgr := c.modeMgr
	c.mu.Unlock()
	if !already {
		c.log.Warn("eps entering low power", zap.Float32("soc", c.batterySOC))
	}
	c.DisableRail(RailActuators)
	c.DisableRail(RailPayload)
	if mgr != nil {
		mgr.Request(mode.LowPower, nowSec)
	}
}

func (c *Controller) exitLowPower() {
	c.mu.Lock()
	was := c.lowPower
	c.lowPower = false
	c.mu.Unlock()
	if was {
		c.log.Info("eps exiting low power", zap.Float32("soc", c.batterySOC))
	}
}

// PowerCriticalHandler is invoked by Periodic when the battery SOC
// drops to or below CriticalSOC, so the caller (normally fdir.Engine)
// can count the fault toward a recovery action.
type PowerCriticalHandler func(nowSec uint32)

// Periodic runs one scheduler tick of EPS policy evaluation, mirroring
// eps_periodic's SOC-threshold ladder. onCritical is called (if
// non-nil) exactly when the critical threshold is newly or repeatedly
// breached, and LoadShed is engaged automatically.
func (c *Controller) Periodic(nowSec uint32, onCritical PowerCriticalHandler) {
	c.mu.Lock()
	soc := c.batterySOC
	c.mu.Unlock()

	switch {
	case soc <= CriticalSOC:
		c.mu.Lock()
		c.critical = true
		c.mu.Unlock()
		c.LoadShed()
		if onCritical != nil {
			onCritical(nowSec)
		}
	case soc <= LowSOC:
		c.mu.Lock()
		c.critical = false
		c.mu.Unlock()
		c.enterLowPower(nowSec)
	case soc >= NominalSOC:
		c.mu.Lock()
		c.critical = false
		c.mu.Unlock()
		c.exitLowPower()
	}
}

// IsCritical reports the critical-power flag: Periodic sets it when SOC
// is at or below CriticalSOC and clears it when SOC is above CriticalSOC
// but at or below LowSOC, or at or above NominalSOC; between LowSOC and
// NominalSOC it keeps its previous value.
func (c *Controller) IsCritical() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.critical
}

// IsLowPower reports whether EPS has commanded low-power mode.
func (c *Controller) IsLowPower() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lowPower
}
