// Package evtlog implements the L3 event log: a fixed-capacity 256-entry
// ring buffer of severity-tagged events, paired with a zapcore.Core
// adapter so every zap log call also lands in the ring. Grounded on the
// teacher's health-monitor/pkg/state.RingBuffer (fixed-capacity history
// buffer with overwrite-oldest semantics) and on
// fault-diagnosis/pkg/utils/logger.go for the zap.Config construction
// style.
package evtlog

import (
	"sync"

	"go.uber.org/zap/zapcore"

	"github.com/TheusHen/OpenFSW/pkg/platform"
	"github.com/TheusHen/OpenFSW/pkg/status"
)

// Capacity is the fixed number of events retained by the ring.
const Capacity = 256

// MessageBytes is the fixed size of an event's truncated message field.
const MessageBytes = 64

// Event is one log record kept in the ring. Message is a fixed-size
// array, not a string, to avoid a heap allocation per logged event.
type Event struct {
	SeqNum    uint32
	TimeSec   uint32
	TimeSub   uint32
	Level     zapcore.Level
	Subsystem platform.SubsystemID
	Code      status.Code
	MsgLen    uint8
	Message   [MessageBytes]byte
}

// Text returns the event's message as a string (allocates; for
// diagnostics/tests only, never on the flight-critical write path).
func (e Event) Text() string {
	return string(e.Message[:e.MsgLen])
}

// Ring is a fixed-capacity, mutex-guarded circular buffer of Events.
// Once full, writing overwrites the oldest entry.
type Ring struct {
	mu     sync.Mutex
	buf    [Capacity]Event
	count  int
	head   int // index of oldest entry
	seq    uint32
	nowSec func() (uint32, uint32)
}

// NewRing returns an empty ring. nowFn supplies (epochSec, subMicros)
// for each appended event; pass nil to leave timestamps zero (tests).
func NewRing(nowFn func() (uint32, uint32)) *Ring {
	if nowFn == nil {
		nowFn = func() (uint32, uint32) { return 0, 0 }
	}
	return &Ring{nowSec: nowFn}
}

// Append records one event, evicting the oldest entry if the ring is full.
func (r *Ring) Append(level zapcore.Level, subsys platform.SubsystemID, code status.Code, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := (r.head + r.count) % Capacity
	if r.count == Capacity {
		idx = r.head
		r.head = (r.head + 1) % Capacity
	} else {
		r.count++
	}

	sec, sub := r.nowSec()
	e := Event{
		SeqNum:    r.seq,
		TimeSec:   sec,
		TimeSub:   sub,
		Level:     level,
		Subsystem: subsys,
		Code:      code,
	}
	n := copy(e.Message[:], msg)
	e.MsgLen = uint8(n)
	r.seq++
	r.buf[idx] = e
}

// Len returns the number of events currently held.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Snapshot copies out every event currently held, oldest first.
func (r *Ring) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.head+i)%Capacity]
	}
	return out
}

// Latest returns the most recently appended event and true, or the
// zero Event and false if the ring is empty.
func (r *Ring) Latest() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		return Event{}, false
	}
	return r.buf[(r.head+r.count-1)%Capacity], true
}
