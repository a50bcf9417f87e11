// Package bootrec implements the persistent boot record (spec §3, §4.2,
// §6): a 32-byte, CRC-protected-by-checksum record that must survive a
// reset. Grounded on original_source/flight/boot/boot.c
// (boot_compute_checksum/boot_validate_persistent/boot_update_persistent)
// and on the teacher's discipline of keeping stateful records as plain
// structs behind a small validate/update API (health-monitor/pkg/state
// does the analogous thing for a different kind of persisted record).
//
// The 32-byte on-the-wire layout is defined in spec.md §6:
//
//	magic u32 | boot_count u32 | rc_wd u32 | rc_bo u32 | rc_sw u32 |
//	last_cause u8 | pad[3] | requested_mode u8 | pad[3] | checksum u32
package bootrec

import (
	"encoding/binary"

	"github.com/TheusHen/OpenFSW/pkg/platform"
)

const (
	// Magic is the fixed constant identifying a valid record.
	Magic uint32 = 0xB007C0DE

	// ChecksumSentinel is XORed with the byte sum to form the checksum.
	ChecksumSentinel uint32 = 0xDEADBEEF

	// Size is the fixed wire size of an encoded record.
	Size = 32

	// SafeModeWatchdogThreshold is the reset_count_watchdog value at or
	// above which boot selection forces Safe mode (spec §4.4).
	SafeModeWatchdogThreshold = 3
)

// Record is the in-memory representation of the persistent boot record.
type Record struct {
	BootCount           uint32
	ResetCountWatchdog  uint32
	ResetCountBrownout  uint32
	ResetCountSoftware  uint32
	LastResetCause      platform.ResetCause
	RequestedMode       uint8 // raw mode.SystemMode value; see mode package
	Checksum            uint32
}

// Zero returns an all-zero, freshly initialized record with a valid
// checksum — the record used after init_persistent (magic corruption,
// or first-ever boot).
func Zero() Record {
	r := Record{LastResetCause: platform.ResetUnknown}
	r.Checksum = r.computeChecksum()
	return r
}

// Encode serializes r to its 32-byte wire layout.
func (r Record) Encode() [Size]byte {
	var buf [Size]byte
	binary.BigEndian.PutUint32(buf[0:4], Magic)
	binary.BigEndian.PutUint32(buf[4:8], r.BootCount)
	binary.BigEndian.PutUint32(buf[8:12], r.ResetCountWatchdog)
	binary.BigEndian.PutUint32(buf[12:16], r.ResetCountBrownout)
	binary.BigEndian.PutUint32(buf[16:20], r.ResetCountSoftware)
	buf[20] = byte(r.LastResetCause)
	// buf[21:24] padding, left zero
	buf[24] = r.RequestedMode
	// buf[25:28] padding, left zero
	binary.BigEndian.PutUint32(buf[28:32], r.Checksum)
	return buf
}

// Decode parses a 32-byte buffer into a Record. It does not validate
// the checksum; call Valid for that.
func Decode(buf [Size]byte) Record {
	return Record{
		BootCount:          binary.BigEndian.Uint32(buf[4:8]),
		ResetCountWatchdog: binary.BigEndian.Uint32(buf[8:12]),
		ResetCountBrownout: binary.BigEndian.Uint32(buf[12:16]),
		ResetCountSoftware: binary.BigEndian.Uint32(buf[16:20]),
		LastResetCause:     platform.ResetCause(buf[20]),
		RequestedMode:      buf[24],
		Checksum:           binary.BigEndian.Uint32(buf[28:32]),
	}
}

// computeChecksum sums every byte before the checksum field and XORs
// with ChecksumSentinel, matching boot_compute_checksum in
// original_source/flight/boot/boot.c.
func (r Record) computeChecksum() uint32 {
	buf := r.Encode()
	var sum uint32
	for _, b := range buf[:28] {
		sum += uint32(b)
	}
	return sum ^ ChecksumSentinel
}

// Valid reports whether a decoded record has the right magic and a
// checksum matching its own contents.
func Valid(buf [Size]byte) bool {
	if binary.BigEndian.Uint32(buf[0:4]) != Magic {
		return false
	}
	r := Decode(buf)
	return r.Checksum == r.computeChecksum()
}

// OnReset implements spec.md §4.2: read the raw backing buffer (e.g.
// non-initialized RAM contents from the previous boot), validate it,
// re-initialize on corruption, then update counters for the given
// reset cause and return the new record plus its encoded buffer ready
// to be written back to the backing store.
func OnReset(buf [Size]byte, cause platform.ResetCause) (Record, [Size]byte) {
	var r Record
	if Valid(buf) {
		r = Decode(buf)
	} else {
		r = Zero()
	}

	r.LastResetCause = cause
	switch cause {
	case platform.ResetWatchdog:
		r.ResetCountWatchdog++
	case platform.ResetBrownOut:
		r.ResetCountBrownout++
	case platform.ResetSoftware:
		r.ResetCountSoftware++
	}
	// RequestedMode is only meaningful across a software reset;
	// any other cause clears it back to Boot (0).
	if cause != platform.ResetSoftware {
		r.RequestedMode = 0
	}
	r.BootCount++
	r.Checksum = r.computeChecksum()

	return r, r.Encode()
}

// ClearResetLoopCounters resets the watchdog/brownout counters and
// refreshes the checksum (mirrors boot_clear_counters in the C
// reference).
func (r *Record) ClearResetLoopCounters() {
	r.ResetCountWatchdog = 0
	r.ResetCountBrownout = 0
	r.Checksum = r.computeChecksum()
}
