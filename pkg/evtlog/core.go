package evtlog

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/TheusHen/OpenFSW/pkg/platform"
	"github.com/TheusHen/OpenFSW/pkg/status"
)

// subsystemKey/codeKey are the zap field names this core looks for to
// populate Event.Subsystem/Event.Code; callers tag calls with
// zap.Int("subsystem", int(id)) and zap.Int("status", int(code)).
const (
	subsystemKey = "subsystem"
	codeKey      = "status"
)

// ringCore is a zapcore.Core that appends every entry to a Ring; it
// wraps no other core (NewLogger tees it with a console core). Write
// copies the accumulated and per-call fields into a new slice on each
// call.
type ringCore struct {
	zapcore.LevelEnabler
	ring   *Ring
	mu     *sync.Mutex
	fields []zapcore.Field
}

// NewRingCore builds a zapcore.Core backed by ring, enabled at minLevel.
func NewRingCore(ring *Ring, minLevel zapcore.Level) zapcore.Core {
	return &ringCore{
		LevelEnabler: zap.NewAtomicLevelAt(minLevel),
		ring:         ring,
		mu:           &sync.Mutex{},
	}
}

func (c *ringCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &ringCore{LevelEnabler: c.LevelEnabler, ring: c.ring, mu: c.mu, fields: merged}
}

func (c *ringCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *ringCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	subsys := platform.SubsysCore
	code := status.OK

	for _, f := range append(append([]zapcore.Field{}, c.fields...), fields...) {
		switch f.Key {
		case subsystemKey:
			subsys = platform.SubsystemID(f.Integer)
		case codeKey:
			code = status.Code(f.Integer)
		}
	}

	c.ring.Append(ent.Level, subsys, code, ent.Message)
	return nil
}

func (c *ringCore) Sync() error { return nil }

// NewLogger builds a zap.Logger writing to both a console encoder (the
// teacher's fault-diagnosis/pkg/utils/logger.go style: ISO8601 time,
// capital-color levels) and the given Ring. The console output is
// filtered at the given minimum level ("debug", "info", "warn",
// "error"); the Ring records every level from debug up. out receives the console-encoded
// stream; pass zapcore.AddSync(os.Stdout) for an interactive binary or
// a discarding WriteSyncer for a test harness.
func NewLogger(level string, ring *Ring, out zapcore.WriteSyncer) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(out),
		lvl,
	)

	ringCore := NewRingCore(ring, zapcore.DebugLevel)

	core := zapcore.NewTee(consoleCore, ringCore)
	return zap.New(core, zap.AddCaller()), nil
}
