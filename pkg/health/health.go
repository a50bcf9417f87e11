// Package health implements the L6 health monitor: up to 16 tracked
// tasks with heartbeat-timeout detection, threshold checks on
// temperature/voltage/CPU-load/stack-margin, and watchdog kicking.
// Grounded on original_source/flight/core/health/health_monitor.c
// (health_monitor_register_task/update_task/periodic), with severity
// names carried from the teacher's health-monitor/pkg/alert/threshold.go
// (Warning-if-OK vs. unconditional Critical distinction).
package health

import (
	"sync"

	"go.uber.org/zap"

	"github.com/TheusHen/OpenFSW/pkg/platform"
)

// MaxTasks is the fixed capacity of the monitored-task table.
const MaxTasks = 16

// Severity mirrors the teacher's alert levels.
type Severity int

const (
	SeverityOK Severity = iota
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "OK"
	case SeverityWarning:
		return "WARNING"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Thresholds for per-task sample checks, matching health_monitor.c.
const (
	TempMinC        = -40.0
	TempMaxC        = 85.0
	VoltageMinMV    = 3000
	VoltageMaxMV    = 4200
	CPULoadWarnPct  = 80
	MinStackBytes   = 128
	HeartbeatTimeMs = 5000
)

// Sample is one task's latest self-reported telemetry.
type Sample struct {
	TempC         float32
	VoltageMV     uint32
	CPULoadPct    uint8
	MinStackBytes uint32
}

// task is one slot in the fixed-size task table.
type task struct {
	inUse          bool
	name           [24]byte
	nameLen        uint8
	alive          bool
	severity       Severity
	lastHeartbeat  uint32
	errorCount     uint32
	warningCount   uint32
	sample         Sample
}

// TaskHandle identifies a registered task for subsequent Update calls.
type TaskHandle int

// Monitor is the mutex-guarded health table.
type Monitor struct {
	mu    sync.Mutex
	tasks [MaxTasks]task
	hooks platform.Hooks
	log   *zap.Logger
}

// New returns an empty Monitor wired to hooks for watchdog kicking.
func New(hooks platform.Hooks, log *zap.Logger) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{hooks: hooks, log: log}
}

// RegisterTask reserves a slot for a named task, returning its handle,
// or (-1, false) if the table is full.
func (m *Monitor) RegisterTask(name string, nowMs uint32) (TaskHandle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tasks {
		if !m.tasks[i].inUse {
			t := &m.tasks[i]
			*t = task{inUse: true, alive: true, lastHeartbeat: nowMs}
			n := copy(t.name[:], name)
			t.nameLen = uint8(n)
			return TaskHandle(i), true
		}
	}
	return -1, false
}

// Name returns a registered task's name.
func (m *Monitor) Name(h TaskHandle) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.valid(h) {
		return ""
	}
	t := &m.tasks[h]
	return string(t.name[:t.nameLen])
}

func (m *Monitor) valid(h TaskHandle) bool {
	return h >= 0 && int(h) < MaxTasks && m.tasks[h].inUse
}

// UpdateTask records a heartbeat and telemetry sample for h.
func (m *Monitor) UpdateTask(h TaskHandle, s Sample, nowMs uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.valid(h) {
		return
	}
	t := &m.tasks[h]
	t.lastHeartbeat = nowMs
	t.alive = true
	t.sample = s
}

// IsTaskAlive reports a task's last-known liveness.
func (m *Monitor) IsTaskAlive(h TaskHandle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.valid(h) {
		return false
	}
	return m.tasks[h].alive
}

// Status returns a task's current severity.
func (m *Monitor) Status(h TaskHandle) Severity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.valid(h) {
		return SeverityOK
	}
	return m.tasks[h].severity
}

func (m *Monitor) incrementError(t *task) {
	t.errorCount++
	t.severity = SeverityCritical
}

func (m *Monitor) incrementWarning(t *task) {
	t.warningCount++
	if t.severity == SeverityOK {
		t.severity = SeverityWarning
	}
}

// Periodic runs one scheduler tick of health housekeeping over every
// registered task: heartbeat-timeout detection and threshold checks,
// then kicks the watchdog exactly once regardless of outcome (mirrors
// health_monitor_periodic always kicking at the end).
func (m *Monitor) Periodic(nowMs uint32) {
	m.mu.Lock()
	for i := range m.tasks {
		t := &m.tasks[i]
		if !t.inUse {
			continue
		}

		if nowMs-t.lastHeartbeat > HeartbeatTimeMs {
			t.alive = false
			m.incrementError(t)
		}

		if t.sample.TempC < TempMinC || t.sample.TempC > TempMaxC {
			m.incrementWarning(t)
		}
		if t.sample.VoltageMV < VoltageMinMV || t.sample.VoltageMV > VoltageMaxMV {
			m.incrementError(t)
		}
		if t.sample.CPULoadPct > CPULoadWarnPct {
			m.incrementWarning(t)
		}
		if t.sample.MinStackBytes != 0 && t.sample.MinStackBytes < MinStackBytes {
			m.incrementWarning(t)
		}
	}
	m.mu.Unlock()

	if m.hooks != nil {
		m.hooks.WatchdogKick()
	}
}

// AnyCritical reports whether any registered task is currently Critical.
func (m *Monitor) AnyCritical() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tasks {
		if m.tasks[i].inUse && m.tasks[i].severity == SeverityCritical {
			return true
		}
	}
	return false
}
