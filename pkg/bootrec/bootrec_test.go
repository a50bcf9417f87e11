package bootrec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheusHen/OpenFSW/pkg/platform"
)

func TestZeroRecordIsValid(t *testing.T) {
	r := Zero()
	buf := r.Encode()
	assert.True(t, Valid(buf))
}

func TestCorruptedMagicIsInvalid(t *testing.T) {
	buf := Zero().Encode()
	buf[0] ^= 0xFF
	assert.False(t, Valid(buf))
}

func TestCorruptedChecksumIsInvalid(t *testing.T) {
	buf := Zero().Encode()
	buf[31] ^= 0xFF
	assert.False(t, Valid(buf))
}

func TestOnResetFirstBootInitializes(t *testing.T) {
	var garbage [Size]byte
	for i := range garbage {
		garbage[i] = 0xAA
	}
	rec, buf := OnReset(garbage, platform.ResetPowerOn)
	require.True(t, Valid(buf))
	assert.Equal(t, uint32(1), rec.BootCount)
	assert.Equal(t, uint32(0), rec.ResetCountWatchdog)
}

func TestOnResetWatchdogIncrementsCounterAndPersists(t *testing.T) {
	rec, buf := OnReset(Zero().Encode(), platform.ResetWatchdog)
	assert.Equal(t, uint32(1), rec.ResetCountWatchdog)

	rec2, _ := OnReset(buf, platform.ResetWatchdog)
	assert.Equal(t, uint32(2), rec2.ResetCountWatchdog)
	assert.Equal(t, uint32(2), rec2.BootCount)
}

func TestResetLoopThresholdReachedAfterThreeWatchdogResets(t *testing.T) {
	buf := Zero().Encode()
	var rec Record
	for i := 0; i < int(SafeModeWatchdogThreshold); i++ {
		rec, buf = OnReset(buf, platform.ResetWatchdog)
	}
	assert.GreaterOrEqual(t, rec.ResetCountWatchdog, uint32(SafeModeWatchdogThreshold))
}

func TestClearResetLoopCounters(t *testing.T) {
	rec, _ := OnReset(Zero().Encode(), platform.ResetWatchdog)
	rec.ClearResetLoopCounters()
	assert.Equal(t, uint32(0), rec.ResetCountWatchdog)
	assert.True(t, Valid(rec.Encode()))
}
