// Package telemetry implements the L10 telemetry pipeline: registered
// periodic housekeeping generators feeding a fixed 16-slot
// priority-ordered queue with priority-based eviction. Grounded on
// original_source/flight/comms/telemetry.c (telemetry_init registering
// standard HK definitions, telemetry_periodic, telemetry_queue_packet,
// telemetry_dequeue_packet).
//
// Dequeue resolves ties by scan index deterministically in favor of
// the first (lowest-index) entry at the maximum priority found, which
// is the documented, testable contract for this implementation; the
// original C reference's forward scan with a ">=" comparison actually
// keeps overwriting its best-index on ties and so yields the *last*
// matching index, which this implementation does not reproduce.
package telemetry

import (
	"sync"

	"go.uber.org/zap"

	"github.com/TheusHen/OpenFSW/pkg/ccsds"
)

// QueueCapacity is the fixed number of packet slots.
const QueueCapacity = 16

// MaxHKDefs is the fixed number of registerable HK generators.
const MaxHKDefs = 8

// Priority orders packets for eviction and dequeue precedence.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// Standard HK definition APIDs and periods, matching telemetry_init.
const (
	APIDSystem = 1
	APIDPower  = 2
	APIDADCS   = 3
	APIDComms  = 4

	periodSystemMs = 1000
	periodPowerMs  = 1000
	periodADCSMs   = 1000
	periodCommsMs  = 5000
)

// Generator produces one HK packet's payload bytes at nowMs.
type Generator func(nowMs uint32) []byte

type hkDef struct {
	inUse    bool
	apid     uint16
	periodMs uint32
	nextRun  uint32
	enabled  bool
	gen      Generator
}

// entry is one occupied or empty queue slot.
type entry struct {
	valid    bool
	priority Priority
	packet   []byte
}

// Pipeline is the mutex-guarded telemetry subsystem: HK definitions
// plus the priority queue they and event reporting feed.
type Pipeline struct {
	mu   sync.Mutex
	defs [MaxHKDefs]hkDef
	q    [QueueCapacity]entry
	seq  [2048]ccsds.SequenceCounter // one per 11-bit APID
	log  *zap.Logger
}

// New returns a Pipeline with no HK definitions registered yet.
func New(log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{log: log}
}

// RegisterHK adds a periodic HK generator, returning false if the
// definition table is full.
func (p *Pipeline) RegisterHK(apid uint16, periodMs uint32, nowMs uint32, gen Generator) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.defs {
		if !p.defs[i].inUse {
			p.defs[i] = hkDef{
				inUse:    true,
				apid:     apid,
				periodMs: periodMs,
				nextRun:  nowMs + periodMs,
				enabled:  true,
				gen:      gen,
			}
			return true
		}
	}
	return false
}

// InitStandardHK registers the four standard HK definitions (System,
// Power, ADCS, Comms) matching telemetry_init, with the generators the
// caller supplies per APID.
func (p *Pipeline) InitStandardHK(nowMs uint32, gens map[uint16]Generator) {
	p.RegisterHK(APIDSystem, periodSystemMs, nowMs, gens[APIDSystem])
	p.RegisterHK(APIDPower, periodPowerMs, nowMs, gens[APIDPower])
	p.RegisterHK(APIDADCS, periodADCSMs, nowMs, gens[APIDADCS])
	p.RegisterHK(APIDComms, periodCommsMs, nowMs, gens[APIDComms])
}

// SetHKEnabled toggles an HK definition by APID (used by the
// EnableHk/DisableHk telecommand handlers).
func (p *Pipeline) SetHKEnabled(apid uint16, enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.defs {
		if p.defs[i].inUse && p.defs[i].apid == apid {
			p.defs[i].enabled = enabled
		}
	}
}

// Periodic runs one scheduler tick: every enabled, due HK generator
// produces a packet which is enqueued at Normal priority, mirroring
// telemetry_periodic/generate_hk_packet.
func (p *Pipeline) Periodic(nowMs, coarseTime uint32) {
	p.mu.Lock()
	type due struct {
		apid uint16
		gen  Generator
	}
	var toRun []due
	for i := range p.defs {
		d := &p.defs[i]
		if !d.inUse || !d.enabled || d.gen == nil {
			continue
		}
		if int32(nowMs-d.nextRun) >= 0 {
			toRun = append(toRun, due{apid: d.apid, gen: d.gen})
			d.nextRun += d.periodMs
		}
	}
	p.mu.Unlock()

	for _, d := range toRun {
		payload := d.gen(nowMs)
		pkt := p.buildTM(d.apid, coarseTime, payload)
		p.Enqueue(pkt, PriorityNormal)
	}
}

// SendEvent builds and enqueues a High-priority event TM packet,
// mirroring the event-report path in telemetry.c.
func (p *Pipeline) SendEvent(apid uint16, coarseTime uint32, payload []byte) bool {
	pkt := p.buildTM(apid, coarseTime, payload)
	return p.Enqueue(pkt, PriorityHigh)
}

func (p *Pipeline) buildTM(apid uint16, coarseTime uint32, payload []byte) []byte {
	seq := p.seq[apid&0x7FF].Next()
	sh := ccsds.TMSecondaryHeader{CoarseTime: coarseTime, Service: 3, Subtype: 25}
	return ccsds.BuildTM(apid, seq, sh, payload)
}

// Enqueue inserts pkt at the given priority. If the queue is full,
// eviction only happens when the incoming priority is High or above:
// the lowest-index entry with a strictly lower priority is evicted to
// make room. Otherwise, or if no lower-priority victim exists, the
// packet is dropped and Enqueue returns false (overflow), mirroring
// telemetry_queue_packet.
func (p *Pipeline) Enqueue(pkt []byte, prio Priority) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.q {
		if !p.q[i].valid {
			p.q[i] = entry{valid: true, priority: prio, packet: pkt}
			return true
		}
	}

	if prio >= PriorityHigh {
		for i := range p.q {
			if p.q[i].priority < prio {
				p.q[i] = entry{valid: true, priority: prio, packet: pkt}
				return true
			}
		}
	}

	p.log.Warn("telemetry queue overflow, packet dropped", zap.Uint8("priority", uint8(prio)))
	return false
}

// Dequeue removes and returns the highest-priority queued packet. Ties
// are resolved in favor of the lowest slot index.
func (p *Pipeline) Dequeue() ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	bestIdx := -1
	bestPriority := PriorityLow
	for i := range p.q {
		if !p.q[i].valid {
			continue
		}
		if bestIdx == -1 || p.q[i].priority > bestPriority {
			bestIdx = i
			bestPriority = p.q[i].priority
		}
	}
	if bestIdx == -1 {
		return nil, false
	}
	pkt := p.q[bestIdx].packet
	p.q[bestIdx] = entry{}
	return pkt, true
}

// Len reports the number of packets currently queued.
func (p *Pipeline) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for i := range p.q {
		if p.q[i].valid {
			n++
		}
	}
	return n
}
