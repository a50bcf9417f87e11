package platform

import (
	"sync"

	"go.uber.org/atomic"
)

// Sim is a deterministic in-memory Hooks implementation used by the
// supervisor's own tests and by cmd/bench; DebugPutchar appends to a
// growing buffer, so debug output allocates. It mirrors the
// teacher's InMemoryStateManager idiom (fault-recovery/pkg/recovery/state.go):
// a small mutex-guarded struct standing in for a real backend.
type Sim struct {
	mu            sync.Mutex
	cause         ResetCause
	safeModePin   bool
	rails         [8]bool
	debugBuf      []byte
	nowMs         atomic.Uint32
	watchdogKicks atomic.Uint32
	resetSoftware atomic.Uint32
	resetSubsys   [SubsysCount]atomic.Uint32
}

// NewSim returns a Sim with the given initial reset cause.
func NewSim(cause ResetCause) *Sim {
	s := &Sim{cause: cause}
	for i := range s.rails {
		s.rails[i] = false
	}
	return s
}

func (s *Sim) WatchdogKick() { s.watchdogKicks.Add(1) }

func (s *Sim) WatchdogKicks() uint32 { return s.watchdogKicks.Load() }

func (s *Sim) ResetGetCause() ResetCause {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

// SetResetCause lets a test fixture script the next boot's cause.
func (s *Sim) SetResetCause(c ResetCause) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cause = c
}

func (s *Sim) ResetSoftware() { s.resetSoftware.Add(1) }

func (s *Sim) ResetSoftwareCount() uint32 { return s.resetSoftware.Load() }

func (s *Sim) ResetSubsystem(id SubsystemID) {
	if id < 0 || int(id) >= len(s.resetSubsys) {
		return
	}
	s.resetSubsys[id].Add(1)
}

func (s *Sim) SafeModePinAsserted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.safeModePin
}

// SetSafeModePin lets a test fixture assert/deassert the hardware pin.
func (s *Sim) SetSafeModePin(asserted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.safeModePin = asserted
}

func (s *Sim) PowerEnableRail(rail uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(rail) < len(s.rails) {
		s.rails[rail] = true
	}
}

func (s *Sim) PowerDisableRail(rail uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(rail) < len(s.rails) {
		s.rails[rail] = false
	}
}

func (s *Sim) RailEnabled(rail uint8) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(rail) < len(s.rails) {
		return s.rails[rail]
	}
	return false
}

func (s *Sim) DebugPutchar(b byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debugBuf = append(s.debugBuf, b)
}

// DebugOutput returns everything written via DebugPutchar so far.
func (s *Sim) DebugOutput() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.debugBuf))
	copy(out, s.debugBuf)
	return out
}

func (s *Sim) TimeMsMonotonic() uint32 { return s.nowMs.Load() }

// Advance moves the simulated clock forward by elapsedMs, wrapping at
// 32 bits like a real free-running millisecond counter.
func (s *Sim) Advance(elapsedMs uint32) {
	s.nowMs.Add(elapsedMs)
}

var _ Hooks = (*Sim)(nil)
