// Package clock implements the L2 time source: a mutex-guarded UTC
// clock seeded from a monotonic millisecond counter, with drift
// correction and CCSDS-epoch datetime conversion. Grounded on
// original_source/flight/core/time/time_manager.c
// (time_sync_utc/time_get_utc/seconds_to_datetime/time_diff_ms), with
// the mutex-guarded-singleton-struct idiom carried from the teacher's
// health-monitor/pkg/state.StateManager.
package clock

import "sync"

// epochYear is the year of the CCSDS mission epoch used by this clock:
// 2000-01-01T00:00:00Z.
const epochYear = 2000

// Timestamp is a CCSDS-style coarse/fine time pair. SubMicros is always
// interpreted as whole microseconds (0..999999), resolving the
// unit ambiguity present in the original reference implementation.
type Timestamp struct {
	EpochSec uint32
	SubMicros uint32
}

// DateTime is a decomposed UTC calendar time.
type DateTime struct {
	Year  int
	Month int // 1..12
	Day   int // 1..31
	Hour  int
	Min   int
	Sec   int
}

// Clock tracks wall time as an offset from a monotonic millisecond
// counter supplied by the caller (platform.Hooks.TimeMsMonotonic),
// corrected for a configured crystal drift.
type Clock struct {
	mu           sync.Mutex
	syncEpochSec uint32
	syncSubMicro uint32
	syncMonoMs   uint32
	driftPPM     int32
	synced       bool
}

// New returns an unsynced clock; Now returns EpochSec=0 until Sync is called.
func New() *Clock {
	return &Clock{}
}

// Sync anchors the clock: at monotonic time monoMs, UTC was
// (epochSec, subMicros).
func (c *Clock) Sync(epochSec, subMicros, monoMs uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncEpochSec = epochSec
	c.syncSubMicro = subMicros
	c.syncMonoMs = monoMs
	c.synced = true
}

// SetDriftPPM configures the crystal drift correction applied by Now,
// in parts per million (positive: the elapsed monotonic interval is
// lengthened, compensating a monotonic clock that runs slow).
func (c *Clock) SetDriftPPM(ppm int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.driftPPM = ppm
}

// Synced reports whether Sync has ever been called.
func (c *Clock) Synced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.synced
}

// Now computes the current UTC timestamp given the current monotonic
// millisecond reading, applying drift correction over the elapsed
// interval since the last Sync (mirrors time_get_utc).
func (c *Clock) Now(monoMs uint32) Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.synced {
		return Timestamp{}
	}

	elapsedMs := monoMs - c.syncMonoMs // wraps correctly for uint32
	correctionMs := int64(elapsedMs) * int64(c.driftPPM) / 1000000
	correctedMs := int64(elapsedMs) + correctionMs
	if correctedMs < 0 {
		correctedMs = 0
	}

	totalMicros := int64(c.syncSubMicro) + correctedMs*1000
	addSec := totalMicros / 1000000
	subMicros := totalMicros % 1000000

	return Timestamp{
		EpochSec:  c.syncEpochSec + uint32(addSec),
		SubMicros: uint32(subMicros),
	}
}

// DiffMs returns b-a in whole milliseconds, treating SubMicros
// consistently as microseconds on both sides (the original
// implementation mixed unit assumptions here; this resolves it).
func DiffMs(a, b Timestamp) int64 {
	aMicros := int64(a.EpochSec)*1000000 + int64(a.SubMicros)
	bMicros := int64(b.EpochSec)*1000000 + int64(b.SubMicros)
	return (bMicros - aMicros) / 1000
}

func isLeapYear(year int) bool {
	if year%400 == 0 {
		return true
	}
	if year%100 == 0 {
		return false
	}
	return year%4 == 0
}

var daysInMonth = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// ToDateTime converts a CCSDS-epoch (2000-01-01) second count into a
// decomposed UTC calendar time, matching seconds_to_datetime.
func ToDateTime(epochSec uint32) DateTime {
	secOfDay := epochSec % 86400
	days := epochSec / 86400

	hour := int(secOfDay / 3600)
	minute := int((secOfDay % 3600) / 60)
	sec := int(secOfDay % 60)

	year := epochYear
	remaining := int(days)
	for {
		yearDays := 365
		if isLeapYear(year) {
			yearDays = 366
		}
		if remaining < yearDays {
			break
		}
		remaining -= yearDays
		year++
	}

	month := 1
	for m := 0; m < 12; m++ {
		md := daysInMonth[m]
		if m == 1 && isLeapYear(year) {
			md = 29
		}
		if remaining < md {
			month = m + 1
			break
		}
		remaining -= md
	}

	return DateTime{
		Year:  year,
		Month: month,
		Day:   remaining + 1,
		Hour:  hour,
		Min:   minute,
		Sec:   sec,
	}
}
