// Package supervisor implements the L13 boot sequence and top-level
// wiring: it owns every other subsystem, decides the post-boot mode
// from the persistent boot record and platform reset cause, registers
// the built-in telecommand handlers that need cross-subsystem access,
// and drives the single cooperative scheduler loop. Grounded on
// original_source/flight/boot/boot.c (boot_select_mode,
// boot_is_safe_required) for the boot decision, and on the teacher's
// top-level wiring style (fault-tolerance's main packages construct
// every engine and wire them together explicitly, no DI framework).
package supervisor

import (
	"encoding/binary"

	"go.uber.org/zap"

	"github.com/TheusHen/OpenFSW/pkg/beacon"
	"github.com/TheusHen/OpenFSW/pkg/bootrec"
	"github.com/TheusHen/OpenFSW/pkg/clock"
	"github.com/TheusHen/OpenFSW/pkg/config"
	"github.com/TheusHen/OpenFSW/pkg/eps"
	"github.com/TheusHen/OpenFSW/pkg/evtlog"
	"github.com/TheusHen/OpenFSW/pkg/fdir"
	"github.com/TheusHen/OpenFSW/pkg/health"
	"github.com/TheusHen/OpenFSW/pkg/mode"
	"github.com/TheusHen/OpenFSW/pkg/platform"
	"github.com/TheusHen/OpenFSW/pkg/scheduler"
	"github.com/TheusHen/OpenFSW/pkg/status"
	"github.com/TheusHen/OpenFSW/pkg/telecommand"
	"github.com/TheusHen/OpenFSW/pkg/telemetry"
)

const (
	healthPeriodSafeMs    = 500
	healthPeriodDefaultMs = 100
)

// Supervisor owns every subsystem and the single scheduler loop.
type Supervisor struct {
	hooks platform.Hooks
	cfg   config.Config
	log   *zap.Logger

	ring  *evtlog.Ring
	clk   *clock.Clock
	mode  *mode.Manager
	eps   *eps.Controller
	fdir  *fdir.Engine
	hlth  *health.Monitor
	sched *scheduler.Scheduler
	tm    *telemetry.Pipeline
	tc    *telecommand.Pipeline
	bcn   *beacon.Beacon

	healthJob scheduler.JobHandle
	bootRec   bootrec.Record
}

// tcModeAdapter satisfies telecommand.ModeProvider without the
// telecommand package importing mode directly.
type tcModeAdapter struct{ m *mode.Manager }

func (a tcModeAdapter) InSafeMode() bool { return a.m.Current() == mode.Safe }

// New constructs every subsystem and wires their cross-dependencies,
// but does not yet decide the boot mode; call Boot for that.
func New(hooks platform.Hooks, cfg config.Config) *Supervisor {
	ring := evtlog.NewRing(nil)
	log, _ := evtlog.NewLogger(cfg.LogLevel, ring, discardSync{})

	s := &Supervisor{
		hooks: hooks,
		cfg:   cfg,
		log:   log,
		ring:  ring,
		clk:   clock.New(),
		sched: scheduler.New(),
		hlth:  health.New(hooks, log),
	}
	s.clk.SetDriftPPM(cfg.Clock.DriftPPM)

	s.mode = mode.New(mode.Boot, log)
	s.eps = eps.New(hooks, log)
	s.eps.SetModeManager(s.mode)
	s.fdir = fdir.New(hooks, s.mode, s.eps, log)
	s.tm = telemetry.New(log)
	s.bcn = beacon.New()
	s.bcn.SetCallsign(cfg.Beacon.Callsign)
	s.bcn.SetInterval(cfg.Beacon.IntervalMs)

	s.tc = telecommand.New(s.tm, 6, tcModeAdapter{s.mode}, log)
	if cfg.Telecommand.AuthKeyHex != "" {
		if key, err := decodeHex(cfg.Telecommand.AuthKeyHex); err == nil {
			s.tc.SetAuthKey(key)
		}
	}
	s.registerCrossSubsystemHandlers()

	return s
}

type discardSync struct{}

func (discardSync) Write(p []byte) (int, error) { return len(p), nil }
func (discardSync) Sync() error                 { return nil }

func decodeHex(s string) ([]byte, error) {
	out := make([]byte, len(s)/2)
	for i := range out {
		hi := hexNibble(s[i*2])
		lo := hexNibble(s[i*2+1])
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexNibble(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	default:
		return 0
	}
}

// registerCrossSubsystemHandlers installs ModeChange, SystemReset,
// EnableHk, DisableHk and TimeSync — the telecommand handlers that
// telecommand.New cannot register itself because they reach into
// mode/platform hooks/telemetry/clock, matching telecommand_init in the
// original.
func (s *Supervisor) registerCrossSubsystemHandlers() {
	s.tc.RegisterHandler(8, 1, telecommand.AuthElevated, func(data []byte, nowMs uint32) status.Code {
		if len(data) < 1 {
			return status.InvalidParam
		}
		target := mode.SystemMode(data[0])
		if !s.mode.Request(target, nowMs/1000) {
			return status.Permission
		}
		return status.OK
	})

	s.tc.RegisterHandler(8, 4, telecommand.AuthCritical, func(data []byte, nowMs uint32) status.Code {
		s.hooks.ResetSoftware()
		return status.OK
	})

	s.tc.RegisterHandler(3, 5, telecommand.AuthBasic, func(data []byte, nowMs uint32) status.Code {
		if len(data) < 2 {
			return status.InvalidParam
		}
		s.tm.SetHKEnabled(binary.BigEndian.Uint16(data[0:2]), true)
		return status.OK
	})

	s.tc.RegisterHandler(3, 6, telecommand.AuthBasic, func(data []byte, nowMs uint32) status.Code {
		if len(data) < 2 {
			return status.InvalidParam
		}
		s.tm.SetHKEnabled(binary.BigEndian.Uint16(data[0:2]), false)
		return status.OK
	})

	s.tc.RegisterHandler(9, 1, telecommand.AuthElevated, func(data []byte, nowMs uint32) status.Code {
		if len(data) < 8 {
			return status.InvalidParam
		}
		epochSec := binary.BigEndian.Uint32(data[0:4])
		subMicros := binary.BigEndian.Uint32(data[4:8])
		s.clk.Sync(epochSec, subMicros, nowMs)
		return status.OK
	})
}

// selectBootMode mirrors boot_select_mode: the hardware safe-mode pin
// and a detected reset loop both force Safe unconditionally; absent
// those, the boot-mode branch is keyed strictly on reset cause —
// Watchdog resumes into Recovery (a watchdog fired mid-mission and the
// system needs supervised recovery before resuming normal operation),
// BrownOut resumes into LowPower (power was marginal enough to brown
// out, so stay conservative on the bus), PowerOn starts fresh in
// Detumble (rates are not known to be nulled after a cold start),
// Software resumes whatever mode was requested before the reset, and
// any other cause (pin-triggered hardware reset, unknown) is
// untrusted and boots to Safe.
func selectBootMode(hooks platform.Hooks, rec bootrec.Record, cause platform.ResetCause) mode.SystemMode {
	if hooks != nil && hooks.SafeModePinAsserted() {
		return mode.Safe
	}
	if fdir.DetectResetLoop(rec) {
		return mode.Safe
	}
	switch cause {
	case platform.ResetWatchdog:
		return mode.Recovery
	case platform.ResetBrownOut:
		return mode.LowPower
	case platform.ResetPowerOn:
		return mode.Detumble
	case platform.ResetSoftware:
		return mode.SystemMode(rec.RequestedMode)
	default:
		return mode.Safe
	}
}

// Boot runs the L1/L4 boot sequence: validates/updates the persistent
// record for cause, decides the initial mode, registers the standard
// scheduler jobs (health at the mode-dependent cadence, FDIR, EPS,
// telemetry HK, beacon), and returns the new persistent-record buffer
// the caller must persist (e.g. write back to non-initialized RAM or
// its platform equivalent) before the next reset.
func (s *Supervisor) Boot(persistentBuf [bootrec.Size]byte, cause platform.ResetCause, nowMs uint32, hkGens map[uint16]telemetry.Generator) [bootrec.Size]byte {
	rec, newBuf := bootrec.OnReset(persistentBuf, cause)
	s.bootRec = rec

	initial := selectBootMode(s.hooks, rec, cause)
	s.mode.Force(initial, nowMs/1000)

	s.healthJob, _ = s.sched.RegisterPeriodic(func(t uint32) { s.hlth.Periodic(t) }, s.healthPeriodFor(initial), nowMs)
	s.sched.RegisterPeriodic(func(t uint32) { s.fdir.Periodic(s.bootRec, t/1000) }, 1000, nowMs)
	s.sched.RegisterPeriodic(func(t uint32) {
		s.eps.Periodic(t/1000, func(sec uint32) {
			s.fdir.ReportFault(fdir.FaultPowerCritical, platform.SubsysEPS, sec)
		})
	}, 1000, nowMs)

	coarseAt := func(t uint32) uint32 { return s.clk.Now(t).EpochSec }
	s.tm.InitStandardHK(nowMs, hkGens)
	s.sched.RegisterPeriodic(func(t uint32) { s.tm.Periodic(t, coarseAt(t)) }, 100, nowMs)

	s.sched.RegisterPeriodic(func(t uint32) { s.mode.Process(t / 1000) }, 1000, nowMs)

	s.sched.RegisterPeriodic(func(t uint32) {
		st := s.beaconStatus(coarseAt(t))
		frame := s.bcn.BuildFrame(st)
		s.tm.Enqueue(frame[:], telemetry.PriorityNormal)
	}, s.bcn.IntervalForMode(initial), nowMs)

	s.log.Info("boot complete",
		zap.String("mode", initial.String()),
		zap.String("cause", cause.String()),
		zap.Uint32("boot_count", rec.BootCount))

	return newBuf
}

func (s *Supervisor) healthPeriodFor(m mode.SystemMode) uint32 {
	if m == mode.Safe {
		return healthPeriodSafeMs
	}
	return healthPeriodDefaultMs
}

func (s *Supervisor) beaconStatus(coarseTime uint32) beacon.Status {
	return beacon.Status{
		CoarseTime:    coarseTime,
		Mode:          s.mode.Current(),
		BatterySOCPct: 0,
		ResetCount:    uint16(s.bootRec.ResetCountWatchdog + s.bootRec.ResetCountBrownout + s.bootRec.ResetCountSoftware),
	}
}

// Step runs one cooperative scheduler tick at nowMs. It also adjusts
// the health-monitor job's period if the mode has changed cadence
// since the last tick, matching scheduler_init's mode-aware period for
// health_periodic.
func (s *Supervisor) Step(nowMs uint32) {
	s.sched.SetPeriod(s.healthJob, s.healthPeriodFor(s.mode.Current()))
	s.sched.Step(nowMs)
}

// SubmitTelecommand runs one received TC packet through the
// telecommand pipeline.
func (s *Supervisor) SubmitTelecommand(pkt []byte, nowMs uint32) status.Code {
	return s.tc.Process(pkt, nowMs, s.clk.Now(nowMs).EpochSec)
}

// DequeueTelemetry pops the next highest-priority queued TM/beacon packet.
func (s *Supervisor) DequeueTelemetry() ([]byte, bool) {
	return s.tm.Dequeue()
}

// Mode returns the current system mode.
func (s *Supervisor) Mode() mode.SystemMode { return s.mode.Current() }

// Log returns the supervisor's structured logger, for subsystem
// wiring done outside this package (e.g. cmd/supervisor).
func (s *Supervisor) Log() *zap.Logger { return s.log }

// Ring returns the event log ring buffer.
func (s *Supervisor) Ring() *evtlog.Ring { return s.ring }

// EPS returns the EPS controller, for external telemetry generators.
func (s *Supervisor) EPS() *eps.Controller { return s.eps }

// Health returns the health monitor, for task registration by drivers.
func (s *Supervisor) Health() *health.Monitor { return s.hlth }

// Clock returns the mission clock.
func (s *Supervisor) Clock() *clock.Clock { return s.clk }

