// Package events implements the lifecycle notification bus the registry
// reports to.
package events

import (
	"fmt"
	"sync"

	"ability-engine/internal/ability"
	"ability-engine/internal/telemetry"
)

const metricHandlerPanics = "events.handler_panics"

// StartingHandler observes an activation. Returning true cancels it.
type StartingHandler func(a ability.Ability) (cancel bool)

// Handler observes a progress step or a removal.
type Handler func(a ability.Ability)

type entry[T any] struct {
	id uint64
	fn T
}

// Bus dispatches lifecycle notifications to subscribers synchronously, in
// subscription order. A panicking subscriber is recovered and logged; the
// remaining subscribers still run.
type Bus struct {
	logger  telemetry.Logger
	metrics telemetry.Metrics

	mu         sync.RWMutex
	nextID     uint64
	starting   []entry[StartingHandler]
	progressed []entry[Handler]
	ended      []entry[Handler]
}

// NewBus constructs an empty bus.
func NewBus(logger telemetry.Logger, metrics telemetry.Metrics) *Bus {
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &Bus{logger: logger, metrics: metrics}
}

// OnStarting subscribes fn to activations and returns its unsubscribe func.
func (b *Bus) OnStarting(fn StartingHandler) func() {
	if b == nil || fn == nil {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.starting = append(b.starting, entry[StartingHandler]{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		b.starting = without(b.starting, id)
		b.mu.Unlock()
	}
}

// OnProgressed subscribes fn to progress steps.
func (b *Bus) OnProgressed(fn Handler) func() {
	return b.subscribe(fn, func(b *Bus) *[]entry[Handler] { return &b.progressed })
}

// OnEnded subscribes fn to removals.
func (b *Bus) OnEnded(fn Handler) func() {
	return b.subscribe(fn, func(b *Bus) *[]entry[Handler] { return &b.ended })
}

func (b *Bus) subscribe(fn Handler, pick func(*Bus) *[]entry[Handler]) func() {
	if b == nil || fn == nil {
		return func() {}
	}
	list := pick(b)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	*list = append(*list, entry[Handler]{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		*list = without(*list, id)
		b.mu.Unlock()
	}
}

func without[T any](list []entry[T], id uint64) []entry[T] {
	out := make([]entry[T], 0, len(list))
	for _, e := range list {
		if e.id != id {
			out = append(out, e)
		}
	}
	return out
}

// Starting implements ability.Notifier. Every subscriber sees the event even
// after an earlier one cancelled it.
func (b *Bus) Starting(a ability.Ability) bool {
	if b == nil {
		return false
	}
	b.mu.RLock()
	handlers := append([]entry[StartingHandler](nil), b.starting...)
	b.mu.RUnlock()

	cancelled := false
	for _, h := range handlers {
		b.guard("starting", a, func() {
			if h.fn(a) {
				cancelled = true
			}
		})
	}
	return cancelled
}

// Progressed implements ability.Notifier.
func (b *Bus) Progressed(a ability.Ability) {
	b.fanout("progressed", a, func(b *Bus) []entry[Handler] { return b.progressed })
}

// Ended implements ability.Notifier.
func (b *Bus) Ended(a ability.Ability) {
	b.fanout("ended", a, func(b *Bus) []entry[Handler] { return b.ended })
}

func (b *Bus) fanout(kind string, a ability.Ability, pick func(*Bus) []entry[Handler]) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := append([]entry[Handler](nil), pick(b)...)
	b.mu.RUnlock()
	for _, h := range handlers {
		b.guard(kind, a, func() { h.fn(a) })
	}
}

func (b *Bus) guard(kind string, a ability.Ability, fn func()) {
	defer func() {
		if recovered := recover(); recovered != nil {
			b.metrics.Add(metricHandlerPanics, 1)
			b.logger.Printf("[events] %s handler panicked for %s: %v", kind, describe(a), recovered)
		}
	}()
	fn()
}

func describe(a ability.Ability) string {
	if a == nil {
		return "<nil>"
	}
	if s, ok := a.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("#%d", a.ID())
}

// Len reports the subscriber counts, mostly for diagnostics.
func (b *Bus) Len() (starting, progressed, ended int) {
	if b == nil {
		return 0, 0, 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.starting), len(b.progressed), len(b.ended)
}

var _ ability.Notifier = (*Bus)(nil)
