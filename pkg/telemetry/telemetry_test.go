package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueDequeueFIFOAtSamePriority(t *testing.T) {
	p := New(nil)
	assert.True(t, p.Enqueue([]byte{1}, PriorityNormal))
	assert.True(t, p.Enqueue([]byte{2}, PriorityNormal))

	pkt, ok := p.Dequeue()
	require.True(t, ok)
	assert.Equal(t, []byte{1}, pkt)
}

func TestDequeuePrefersHighestPriority(t *testing.T) {
	p := New(nil)
	p.Enqueue([]byte{1}, PriorityLow)
	p.Enqueue([]byte{2}, PriorityCritical)
	p.Enqueue([]byte{3}, PriorityNormal)

	pkt, ok := p.Dequeue()
	require.True(t, ok)
	assert.Equal(t, []byte{2}, pkt)
}

func TestOverflowDropsLowPriorityWhenFull(t *testing.T) {
	p := New(nil)
	for i := 0; i < QueueCapacity; i++ {
		assert.True(t, p.Enqueue([]byte{byte(i)}, PriorityLow))
	}
	ok := p.Enqueue([]byte{0xFF}, PriorityNormal)
	assert.False(t, ok)
	assert.Equal(t, QueueCapacity, p.Len())
}

func TestHighPriorityEvictsLowerPriorityWhenFull(t *testing.T) {
	p := New(nil)
	for i := 0; i < QueueCapacity; i++ {
		p.Enqueue([]byte{byte(i)}, PriorityLow)
	}
	ok := p.Enqueue([]byte{0xAA}, PriorityHigh)
	assert.True(t, ok)
	assert.Equal(t, QueueCapacity, p.Len())

	found := false
	for {
		pkt, ok := p.Dequeue()
		if !ok {
			break
		}
		if len(pkt) == 1 && pkt[0] == 0xAA {
			found = true
		}
	}
	assert.True(t, found)
}

func TestHighPriorityDoesNotEvictEqualOrHigherPriority(t *testing.T) {
	p := New(nil)
	for i := 0; i < QueueCapacity; i++ {
		p.Enqueue([]byte{byte(i)}, PriorityCritical)
	}
	ok := p.Enqueue([]byte{0xAA}, PriorityHigh)
	assert.False(t, ok)
}

func TestRegisterHKAndPeriodicEnqueues(t *testing.T) {
	p := New(nil)
	p.InitStandardHK(0, map[uint16]Generator{
		APIDSystem: func(nowMs uint32) []byte { return []byte{1} },
		APIDPower:  func(nowMs uint32) []byte { return []byte{2} },
		APIDADCS:   func(nowMs uint32) []byte { return []byte{3} },
		APIDComms:  func(nowMs uint32) []byte { return []byte{4} },
	})

	p.Periodic(periodSystemMs, 0)
	assert.Equal(t, 3, p.Len()) // System, Power, ADCS due; Comms period is 5000ms
}

func TestSetHKEnabledDisablesGenerator(t *testing.T) {
	p := New(nil)
	p.InitStandardHK(0, map[uint16]Generator{
		APIDSystem: func(nowMs uint32) []byte { return []byte{1} },
	})
	p.SetHKEnabled(APIDSystem, false)
	p.Periodic(periodSystemMs, 0)
	assert.Equal(t, 0, p.Len())
}
