package sim

import (
	"sync"

	"ability-engine/internal/telemetry"
)

const (
	metricBufferOccupancy = "sim.command_buffer_occupancy"
	metricBufferHighWater = "sim.command_buffer_high_water"
	metricBufferOverflow  = "sim.command_buffer_overflow_total"
)

// CommandBuffer is the fixed-capacity FIFO between request handlers and the
// tick. Any number of goroutines may Push; one goroutine drains.
type CommandBuffer struct {
	mu        sync.Mutex
	slots     []Command
	head      int
	size      int
	highWater int
	metrics   telemetry.Metrics
}

// NewCommandBuffer allocates capacity slots, at least one.
func NewCommandBuffer(capacity int, metrics telemetry.Metrics) *CommandBuffer {
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &CommandBuffer{
		slots:   make([]Command, max(capacity, 1)),
		metrics: metrics,
	}
}

func (b *CommandBuffer) Capacity() int {
	if b == nil {
		return 0
	}
	return len(b.slots)
}

// Push stages cmd behind everything already queued. It reports false when
// the buffer is full.
func (b *CommandBuffer) Push(cmd Command) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size == len(b.slots) {
		b.metrics.Add(metricBufferOverflow, 1)
		return false
	}
	b.slots[(b.head+b.size)%len(b.slots)] = cmd
	b.size++
	if b.size > b.highWater {
		b.highWater = b.size
		b.metrics.Store(metricBufferHighWater, uint64(b.highWater))
	}
	b.metrics.Store(metricBufferOccupancy, uint64(b.size))
	return true
}

// Drain empties the buffer and returns its commands oldest first.
func (b *CommandBuffer) Drain() []Command {
	if b == nil {
		return nil
	}
	return b.DrainInto(nil)
}

// DrainInto appends the queued commands to dst so callers can reuse one
// backing array across ticks.
func (b *CommandBuffer) DrainInto(dst []Command) []Command {
	if b == nil {
		return dst
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size == 0 {
		return dst
	}
	for n := 0; n < b.size; n++ {
		slot := (b.head + n) % len(b.slots)
		dst = append(dst, b.slots[slot])
		b.slots[slot] = Command{}
	}
	b.head = (b.head + b.size) % len(b.slots)
	b.size = 0
	b.metrics.Store(metricBufferOccupancy, 0)
	return dst
}

// Len reports the number of staged commands.
func (b *CommandBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// HighWater reports the largest backlog seen since construction.
func (b *CommandBuffer) HighWater() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.highWater
}
