// Package mode implements the L4 mode manager: a fixed finite-state
// machine over six system modes with an explicit allowed-transition
// table, per-mode timeouts and entry/exit callbacks. Grounded
// byte-for-byte on original_source/flight/core/mode/mode_manager.c
// (transition_rules[], get_mode_timeout, mode_manager_process), with
// the callback-table idiom carried from the teacher's
// fault-recovery/pkg/recovery.Engine action map.
package mode

import (
	"sync"

	"go.uber.org/zap"
)

// SystemMode is the raw, persistable mode code. Its values intentionally
// match the byte stored in bootrec.Record.RequestedMode.
type SystemMode uint8

const (
	Boot SystemMode = iota
	Safe
	Detumble
	Nominal
	LowPower
	Recovery
	modeCount
)

func (m SystemMode) String() string {
	switch m {
	case Boot:
		return "BOOT"
	case Safe:
		return "SAFE"
	case Detumble:
		return "DETUMBLE"
	case Nominal:
		return "NOMINAL"
	case LowPower:
		return "LOW_POWER"
	case Recovery:
		return "RECOVERY"
	default:
		return "UNKNOWN"
	}
}

// transitionRules enumerates every (from, to) pair permitted by the
// mission design, mirroring transition_rules[] in mode_manager.c.
var transitionRules = map[SystemMode]map[SystemMode]bool{
	Boot: {
		Safe:     true,
		Detumble: true,
		LowPower: true,
		Recovery: true,
	},
	Safe: {
		Detumble: true,
		Nominal:  true,
		LowPower: true,
	},
	Detumble: {
		Safe:     true,
		Nominal:  true,
		LowPower: true,
	},
	Nominal: {
		Safe:     true,
		Detumble: true,
		LowPower: true,
		Recovery: true,
	},
	LowPower: {
		Safe:     true,
		Detumble: true,
		Nominal:  true,
	},
	Recovery: {
		Safe:     true,
		Detumble: true,
		Nominal:  true,
	},
}

// timeouts maps a mode to its forced-exit timeout in seconds; 0 means none.
var timeouts = map[SystemMode]uint32{
	Detumble: 1800,
	Recovery: 3600,
}

// Callback runs on entry to, or exit from, a mode.
type Callback func(m SystemMode)

// Manager is the mutex-guarded mode state machine.
type Manager struct {
	mu           sync.Mutex
	current      SystemMode
	previous     SystemMode
	enteredAtSec uint32
	onEntry      map[SystemMode][]Callback
	onExit       map[SystemMode][]Callback
	log          *zap.Logger
}

// New returns a Manager booted directly into initial (normally Boot).
func New(initial SystemMode, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		current:  initial,
		previous: initial,
		onEntry:  make(map[SystemMode][]Callback),
		onExit:   make(map[SystemMode][]Callback),
		log:      log,
	}
}

// RegisterEntry adds a callback invoked whenever m is entered.
func (mgr *Manager) RegisterEntry(m SystemMode, cb Callback) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	mgr.onEntry[m] = append(mgr.onEntry[m], cb)
}

// RegisterExit adds a callback invoked whenever m is exited.
func (mgr *Manager) RegisterExit(m SystemMode, cb Callback) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	mgr.onExit[m] = append(mgr.onExit[m], cb)
}

// CanTransition reports whether from->to is permitted by the rule table.
func CanTransition(from, to SystemMode) bool {
	if from == to {
		return true
	}
	allowed, ok := transitionRules[from]
	if !ok {
		return false
	}
	return allowed[to]
}

// Current returns the active mode.
func (mgr *Manager) Current() SystemMode {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return mgr.current
}

// Previous returns the mode that was active before the last transition.
func (mgr *Manager) Previous() SystemMode {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return mgr.previous
}

// Request attempts a rule-checked transition to target, returning false
// if the transition is not permitted. nowSec is the current mission time.
func (mgr *Manager) Request(target SystemMode, nowSec uint32) bool {
	mgr.mu.Lock()
	if !CanTransition(mgr.current, target) {
		mgr.mu.Unlock()
		mgr.log.Warn("mode transition rejected",
			zap.String("from", mgr.current.String()),
			zap.String("to", target.String()))
		return false
	}
	mgr.transitionLocked(target, nowSec)
	mgr.mu.Unlock()
	return true
}

// Force transitions to target unconditionally, bypassing the rule
// table (used for FDIR-driven SafeMode escalation, the mode-timeout
// fallback to Safe, and applying the boot-selected mode).
func (mgr *Manager) Force(target SystemMode, nowSec uint32) {
	mgr.mu.Lock()
	mgr.transitionLocked(target, nowSec)
	mgr.mu.Unlock()
}

// transitionLocked must be called with mgr.mu held.
func (mgr *Manager) transitionLocked(target SystemMode, nowSec uint32) {
	from := mgr.current
	for _, cb := range mgr.onExit[from] {
		cb(from)
	}
	mgr.previous = from
	mgr.current = target
	mgr.enteredAtSec = nowSec
	mgr.log.Info("mode transition",
		zap.String("from", from.String()),
		zap.String("to", target.String()))
	for _, cb := range mgr.onEntry[target] {
		cb(target)
	}
}

// TimeInMode returns the number of seconds spent in the current mode.
func (mgr *Manager) TimeInMode(nowSec uint32) uint32 {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return nowSec - mgr.enteredAtSec
}

// Timeout returns the configured forced-exit timeout for m, or 0 if none.
func Timeout(m SystemMode) uint32 {
	return timeouts[m]
}

// IsTimedOut reports whether the current mode has exceeded its timeout.
func (mgr *Manager) IsTimedOut(nowSec uint32) bool {
	mgr.mu.Lock()
	cur := mgr.current
	elapsed := nowSec - mgr.enteredAtSec
	mgr.mu.Unlock()

	to := Timeout(cur)
	return to > 0 && elapsed >= to
}

// Process runs one scheduler tick's worth of mode-manager housekeeping:
// if the current mode has timed out, it forces a transition to Safe
// (mirrors mode_manager_process in the C reference).
func (mgr *Manager) Process(nowSec uint32) {
	if mgr.IsTimedOut(nowSec) {
		mgr.Force(Safe, nowSec)
	}
}
