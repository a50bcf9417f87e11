// Package fdir implements the L5 fault detection, isolation and
// recovery engine: a fixed fault-rule table mapping a fault type and an
// occurrence threshold to a recovery action, plus reset-loop detection.
// Grounded byte-for-byte on original_source/flight/fdir/fdir.c
// (fdir_rules[], execute_action, fdir_periodic, fdir_report_fault,
// fdir_detect_reset_loop), with the action-dispatch idiom carried from
// the teacher's fault-recovery/pkg/recovery.Engine (action/prefixAction
// maps, Submit/executeAction).
package fdir

import (
	"sync"

	"go.uber.org/zap"

	"github.com/TheusHen/OpenFSW/pkg/bootrec"
	"github.com/TheusHen/OpenFSW/pkg/eps"
	"github.com/TheusHen/OpenFSW/pkg/mode"
	"github.com/TheusHen/OpenFSW/pkg/platform"
)

// FaultType enumerates every fault class the engine can track, matching
// fault_type_t in fdir.h (FAULT_NONE excluded; zero value of FaultType
// is FaultWatchdogTimeout).
type FaultType int

const (
	FaultWatchdogTimeout FaultType = iota
	FaultBrownout
	FaultResetLoop
	FaultSensorInvalid
	FaultActuatorFail
	FaultBusError
	FaultMemoryError
	FaultCommLoss
	FaultPowerCritical
	FaultThermalLimit
	FaultAttitudeLost
	faultTypeCount
)

func (f FaultType) String() string {
	names := [...]string{
		"WATCHDOG_TIMEOUT", "BROWNOUT", "RESET_LOOP", "SENSOR_INVALID",
		"ACTUATOR_FAIL", "BUS_ERROR", "MEMORY_ERROR", "COMM_LOSS",
		"POWER_CRITICAL", "THERMAL_LIMIT", "ATTITUDE_LOST",
	}
	if int(f) < 0 || int(f) >= len(names) {
		return "UNKNOWN_FAULT"
	}
	return names[f]
}

// RecoveryAction enumerates the actions FDIR can execute, matching
// recovery_action_t in fdir.h.
type RecoveryAction int

const (
	ActionNone RecoveryAction = iota
	ActionRetry
	ActionIsolate
	ActionResetSubsys
	ActionSafeMode
	ActionSystemReset
	ActionPayloadOff
	ActionLoadShed
)

func (a RecoveryAction) String() string {
	switch a {
	case ActionNone:
		return "NONE"
	case ActionRetry:
		return "RETRY"
	case ActionIsolate:
		return "ISOLATE"
	case ActionResetSubsys:
		return "RESET_SUBSYS"
	case ActionSafeMode:
		return "SAFE_MODE"
	case ActionSystemReset:
		return "SYSTEM_RESET"
	case ActionPayloadOff:
		return "PAYLOAD_OFF"
	case ActionLoadShed:
		return "LOAD_SHED"
	default:
		return "UNKNOWN"
	}
}

// rule pairs a fault type with the occurrence count that triggers its
// recovery action. windowMs is carried over from fdir_rule_t for
// fidelity with the C reference but, like the reference's fdir_periodic,
// is never consulted by the threshold check below.
type rule struct {
	fault     FaultType
	threshold uint32
	windowMs  uint32
	action    RecoveryAction
}

// rules mirrors fdir_rules[] in the C reference exactly.
var rules = [...]rule{
	{FaultWatchdogTimeout, 1, 0, ActionSystemReset},
	{FaultBrownout, 2, 60000, ActionLoadShed},
	{FaultResetLoop, 3, 60000, ActionSafeMode},
	{FaultSensorInvalid, 3, 10000, ActionIsolate},
	{FaultActuatorFail, 2, 5000, ActionIsolate},
	{FaultBusError, 5, 1000, ActionResetSubsys},
	{FaultMemoryError, 1, 0, ActionSafeMode},
	{FaultCommLoss, 10, 60000, ActionRetry},
	{FaultPowerCritical, 1, 0, ActionLoadShed},
	{FaultThermalLimit, 1, 0, ActionPayloadOff},
	{FaultAttitudeLost, 1, 0, ActionSafeMode},
}

// Engine is the mutex-guarded FDIR state: per-fault-type occurrence
// counters plus the wiring needed to execute recovery actions. The
// subsystem a recovery action targets comes from the caller of
// ReportFault, not from the rule table, mirroring fdir_report_fault's
// (fault, subsys) signature and fdir_execute_recovery's use of the
// fault record's stored subsystem rather than a per-rule target.
type Engine struct {
	mu        sync.Mutex
	counts    [faultTypeCount]uint32
	subsystem [faultTypeCount]platform.SubsystemID

	hooks platform.Hooks
	mode  *mode.Manager
	eps   *eps.Controller
	log   *zap.Logger
}

// New wires an Engine to the subsystems it can act on.
func New(hooks platform.Hooks, m *mode.Manager, e *eps.Controller, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{hooks: hooks, mode: m, eps: e, log: log}
}

// ReportFault increments a fault's occurrence count and, if it has
// reached its configured threshold, executes the fault's recovery
// action and resets the counter (mirrors fdir_report_fault plus the
// inline threshold check in fdir_periodic).
func (e *Engine) ReportFault(f FaultType, subsys platform.SubsystemID, nowSec uint32) {
	if f < 0 || int(f) >= len(e.counts) {
		return
	}
	e.mu.Lock()
	e.counts[f]++
	e.subsystem[f] = subsys
	count := e.counts[f]
	e.mu.Unlock()

	r, ok := ruleFor(f)
	if !ok {
		return
	}
	if count >= r.threshold {
		e.log.Warn("fdir threshold reached",
			zap.String("fault", f.String()),
			zap.Uint32("count", count),
			zap.String("action", r.action.String()))
		e.executeAction(r, subsys, nowSec)
		e.ClearFault(f)
	}
}

// ClearFault resets a fault's occurrence counter to zero.
func (e *Engine) ClearFault(f FaultType) {
	if f < 0 || int(f) >= len(e.counts) {
		return
	}
	e.mu.Lock()
	e.counts[f] = 0
	e.mu.Unlock()
}

// Count returns a fault's current occurrence count.
func (e *Engine) Count(f FaultType) uint32 {
	if f < 0 || int(f) >= len(e.counts) {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counts[f]
}

func ruleFor(f FaultType) (rule, bool) {
	for _, r := range rules {
		if r.fault == f {
			return r, true
		}
	}
	return rule{}, false
}

// executeAction dispatches a recovery action, mirroring execute_action
// in the C reference.
func (e *Engine) executeAction(r rule, subsys platform.SubsystemID, nowSec uint32) {
	switch r.action {
	case ActionNone:
		// no-op
	case ActionRetry:
		// caller-level operation retry; FDIR itself takes no action
	case ActionIsolate:
		if e.hooks != nil {
			e.hooks.ResetSubsystem(subsys)
		}
	case ActionResetSubsys:
		if e.hooks != nil {
			e.hooks.ResetSubsystem(subsys)
		}
	case ActionSafeMode:
		if e.mode != nil {
			e.mode.Force(mode.Safe, nowSec)
		}
	case ActionSystemReset:
		if e.hooks != nil {
			e.hooks.ResetSoftware()
		}
	case ActionPayloadOff:
		if e.eps != nil {
			e.eps.DisableRail(eps.RailPayload)
		}
	case ActionLoadShed:
		if e.eps != nil {
			e.eps.LoadShed()
		}
	}
}

// DetectResetLoop reports whether the persistent boot record shows a
// watchdog-reset loop (count >= SafeModeWatchdogThreshold), mirroring
// fdir_detect_reset_loop.
func DetectResetLoop(rec bootrec.Record) bool {
	return rec.ResetCountWatchdog >= bootrec.SafeModeWatchdogThreshold
}

// Periodic runs one scheduler tick of FDIR housekeeping: checks for a
// reset loop first (mirrors fdir_periodic checking the reset loop
// before iterating fault records) and, if found, reports one
// FaultResetLoop occurrence; Safe mode is forced once that fault
// reaches its rule threshold of 3.
func (e *Engine) Periodic(rec bootrec.Record, nowSec uint32) {
	if DetectResetLoop(rec) {
		e.ReportFault(FaultResetLoop, platform.SubsysBoot, nowSec)
	}
}
