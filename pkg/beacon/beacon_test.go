package beacon

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheusHen/OpenFSW/pkg/mode"
)

func TestIntervalForModeSelectsModeSpecificCadence(t *testing.T) {
	b := New()
	assert.Equal(t, SafeIntervalMs, b.IntervalForMode(mode.Safe))
	assert.Equal(t, EmergencyIntervalMs, b.IntervalForMode(mode.Recovery))
	assert.Equal(t, NormalIntervalMs, b.IntervalForMode(mode.Nominal))
}

func TestSetIntervalClamps(t *testing.T) {
	b := New()
	b.SetInterval(1)
	assert.Equal(t, MinIntervalMs, b.IntervalForMode(mode.Nominal))

	b.SetInterval(1_000_000)
	assert.Equal(t, MaxIntervalMs, b.IntervalForMode(mode.Nominal))
}

func TestBuildFrameProducesVerifiableCRC(t *testing.T) {
	b := New()
	frame := b.BuildFrame(Status{CoarseTime: 42, Mode: mode.Nominal})
	assert.True(t, VerifyFrame(frame))

	frame[0] ^= 0xFF
	assert.False(t, VerifyFrame(frame))
}

func TestCallsignEmbeddedInFrame(t *testing.T) {
	b := New()
	b.SetCallsign("TESTSAT")
	frame := b.BuildFrame(Status{})
	assert.Equal(t, "TESTSAT", trimNulls(frame[0:16]))
}

func trimNulls(b []byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}
