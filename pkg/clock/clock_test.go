package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnsyncedClockReturnsZero(t *testing.T) {
	c := New()
	ts := c.Now(1000)
	assert.Equal(t, uint32(0), ts.EpochSec)
	assert.False(t, c.Synced())
}

func TestSyncThenNowAdvancesWithMonotonic(t *testing.T) {
	c := New()
	c.Sync(1000, 0, 0)
	ts := c.Now(2500)
	assert.Equal(t, uint32(1002), ts.EpochSec)
	assert.Equal(t, uint32(500000), ts.SubMicros)
}

func TestDriftCorrectionAppliesOverElapsedInterval(t *testing.T) {
	c := New()
	c.Sync(1000, 0, 0)
	c.SetDriftPPM(1000000) // doubles elapsed time for a pathological test
	ts := c.Now(1000)
	assert.Equal(t, uint32(1002), ts.EpochSec)
}

func TestDiffMsTreatsSubMicrosUniformly(t *testing.T) {
	a := Timestamp{EpochSec: 10, SubMicros: 0}
	b := Timestamp{EpochSec: 10, SubMicros: 500000}
	assert.Equal(t, int64(500), DiffMs(a, b))
}

func TestToDateTimeEpochStart(t *testing.T) {
	dt := ToDateTime(0)
	assert.Equal(t, DateTime{Year: 2000, Month: 1, Day: 1, Hour: 0, Min: 0, Sec: 0}, dt)
}

func TestToDateTimeOneDayIn(t *testing.T) {
	dt := ToDateTime(86400)
	assert.Equal(t, 2, dt.Day)
	assert.Equal(t, 1, dt.Month)
}

func TestToDateTimeLeapYearFeb29(t *testing.T) {
	// 2000-01-01 + 59 days = 2000-02-29 (2000 is a leap year).
	dt := ToDateTime(59 * 86400)
	assert.Equal(t, 2, dt.Month)
	assert.Equal(t, 29, dt.Day)
}
