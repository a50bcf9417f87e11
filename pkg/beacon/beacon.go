// Package beacon implements the L12 status beacon: a fixed 46-byte
// status frame transmitted at a mode-dependent cadence. Grounded on
// original_source/flight/comms/beacon/beacon.c (beacon_init,
// beacon_periodic's mode-dependent interval selection,
// beacon_build_frame, beacon_set_interval's clamping).
package beacon

import (
	"encoding/binary"
	"sync"

	"github.com/TheusHen/OpenFSW/pkg/ccsds"
	"github.com/TheusHen/OpenFSW/pkg/mode"
)

// FrameSize is the fixed wire size of a beacon frame.
const FrameSize = 46

// Default and mode-dependent beacon intervals in milliseconds.
const (
	NormalIntervalMs    uint32 = 30000
	SafeIntervalMs      uint32 = 10000
	EmergencyIntervalMs uint32 = 5000

	MinIntervalMs uint32 = 1000
	MaxIntervalMs uint32 = 300000
)

// DefaultCallsign is the callsign used absent explicit configuration.
const DefaultCallsign = "OFSW-3U"

// Status is the data the beacon frame reports, assembled by the
// supervisor each time a frame is due.
type Status struct {
	CoarseTime      uint32
	Mode            mode.SystemMode
	BatterySOCPct   uint8
	BatteryVoltageMV uint16
	TempC           int8
	ResetCount      uint16
	QuaternionQ15   [4]int16
	FaultFlags      uint16
}

// Beacon tracks the transmit interval and callsign; frame assembly
// itself is stateless (BuildFrame).
type Beacon struct {
	mu       sync.Mutex
	callsign [16]byte
	interval uint32
	seq      ccsds.SequenceCounter
}

// New returns a Beacon with the default callsign and normal interval.
func New() *Beacon {
	b := &Beacon{interval: NormalIntervalMs}
	copy(b.callsign[:], DefaultCallsign)
	return b
}

// SetCallsign stores up to 16 bytes of callsign, truncating if longer.
func (b *Beacon) SetCallsign(callsign string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callsign = [16]byte{}
	copy(b.callsign[:], callsign)
}

// SetInterval clamps and stores an explicit beacon interval, matching
// beacon_set_interval.
func (b *Beacon) SetInterval(ms uint32) {
	if ms < MinIntervalMs {
		ms = MinIntervalMs
	}
	if ms > MaxIntervalMs {
		ms = MaxIntervalMs
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.interval = ms
}

// IntervalForMode returns the beacon cadence for the given system
// mode: Safe uses SafeIntervalMs, Recovery uses EmergencyIntervalMs,
// every other mode uses the explicitly configured (or default normal)
// interval, matching beacon_periodic.
func (b *Beacon) IntervalForMode(m mode.SystemMode) uint32 {
	switch m {
	case mode.Safe:
		return SafeIntervalMs
	case mode.Recovery:
		return EmergencyIntervalMs
	default:
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.interval
	}
}

// BuildFrame assembles the fixed 46-byte beacon frame, matching
// beacon_build_frame: callsign, coarse time, mode, power/thermal
// summary, reset count, attitude quaternion placeholder, fault flags
// and a trailing CRC-16 over everything preceding it.
func (b *Beacon) BuildFrame(st Status) [FrameSize]byte {
	var buf [FrameSize]byte
	b.mu.Lock()
	copy(buf[0:16], b.callsign[:])
	b.mu.Unlock()

	binary.BigEndian.PutUint32(buf[16:20], st.CoarseTime)
	buf[20] = byte(st.Mode)
	buf[21] = st.BatterySOCPct
	binary.BigEndian.PutUint16(buf[22:24], st.BatteryVoltageMV)
	buf[24] = byte(st.TempC)
	binary.BigEndian.PutUint16(buf[25:27], st.ResetCount)
	for i, q := range st.QuaternionQ15 {
		binary.BigEndian.PutUint16(buf[27+i*2:29+i*2], uint16(q))
	}
	binary.BigEndian.PutUint16(buf[35:37], st.FaultFlags)
	// buf[37:44] reserved/padding, left zero

	crc := ccsds.CRC16(buf[:FrameSize-2])
	binary.BigEndian.PutUint16(buf[FrameSize-2:FrameSize], crc)
	return buf
}

// VerifyFrame reports whether a received frame's trailing CRC-16
// matches its contents.
func VerifyFrame(buf [FrameSize]byte) bool {
	want := ccsds.CRC16(buf[:FrameSize-2])
	got := binary.BigEndian.Uint16(buf[FrameSize-2 : FrameSize])
	return want == got
}
