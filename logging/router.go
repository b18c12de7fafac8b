package logging

import (
	"context"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

const (
	defaultQueueSize = 512
	maxSinkBacklog   = 1024
	minSinkBacklog   = 32
)

// Router fans engine events out to the configured sinks. Publish never
// blocks the tick: a full queue drops the event and counts it.
type Router struct {
	cfg      Config
	clock    Clock
	fallback *log.Logger
	fields   map[string]any
	metrics  *Metrics

	queue   chan Event
	outlets []*outlet
	stop    chan struct{}
	group   errgroup.Group
	closed  atomic.Bool
	lastLog atomic.Int64

	forwarded atomic.Uint64
	dropped   atomic.Uint64
	muted     atomic.Uint64
}

// RouterStats is the delivery summary shown on the diagnostics endpoint.
type RouterStats struct {
	EventsTotal  uint64            `json:"eventsTotal"`
	DroppedTotal uint64            `json:"droppedTotal"`
	MutedTotal   uint64            `json:"mutedTotal"`
	ByCategory   map[string]uint64 `json:"byCategory,omitempty"`
}

func NewRouter(clock Clock, cfg Config, fallback *log.Logger, namedSinks []NamedSink) *Router {
	if clock == nil {
		clock = SystemClock{}
	}
	if fallback == nil {
		fallback = log.New(os.Stderr, "[logging] ", log.LstdFlags)
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = defaultQueueSize
	}
	r := &Router{
		cfg:      cfg,
		clock:    clock,
		fallback: fallback,
		fields:   cfg.CloneFields(),
		metrics:  NewMetrics(),
		queue:    make(chan Event, size),
		stop:     make(chan struct{}),
	}
	backlog := min(max(size, minSinkBacklog), maxSinkBacklog)
	for _, named := range namedSinks {
		if named.Sink != nil {
			r.outlets = append(r.outlets, &outlet{name: named.Name, sink: named.Sink, events: make(chan Event, backlog), fallback: fallback})
		}
	}
	for _, o := range r.outlets {
		r.group.Go(o.run)
	}
	r.group.Go(r.dispatch)
	return r
}

// dispatch filters and stamps queued events until Close, then flushes what
// is left and releases the outlets.
func (r *Router) dispatch() error {
	defer func() {
		for _, o := range r.outlets {
			close(o.events)
		}
	}()
	for {
		select {
		case event := <-r.queue:
			r.forward(event)
		case <-r.stop:
			for {
				select {
				case event := <-r.queue:
					r.forward(event)
				default:
					return nil
				}
			}
		}
	}
}

func (r *Router) forward(event Event) {
	if event.Severity < r.cfg.MinimumSeverity {
		return
	}
	if event.Category != "" && r.cfg.Muted(event.Category) {
		r.muted.Add(1)
		r.metrics.Add("events.muted", 1)
		return
	}
	event = event.Clone()
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	for k, v := range r.fields {
		if event.Extra == nil {
			event.Extra = make(map[string]any, len(r.fields))
		}
		if _, exists := event.Extra[k]; !exists {
			event.Extra[k] = v
		}
	}
	r.forwarded.Add(1)
	r.metrics.Add("events."+string(event.Type), 1)
	if event.Category != "" {
		r.metrics.Add("category."+event.Category, 1)
	}
	for _, o := range r.outlets {
		o.offer(event)
	}
}

// Publish satisfies Publisher.
func (r *Router) Publish(_ context.Context, event Event) {
	if r == nil || event.Type == "" || r.closed.Load() {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.drop(event)
	}
}

func (r *Router) drop(event Event) {
	r.dropped.Add(1)
	interval := r.cfg.DropWarnInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	now := time.Now().UnixNano()
	next := r.lastLog.Load()
	if now >= next && r.lastLog.CompareAndSwap(next, now+interval.Nanoseconds()) {
		r.fallback.Printf("queue full, dropping %s from tick %d", event.Type, event.Tick)
	}
}

// Close stops the dispatcher, flushes queued events and closes every sink.
func (r *Router) Close(ctx context.Context) error {
	if r == nil || !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(r.stop)
	done := make(chan struct{})
	go func() {
		_ = r.group.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	var firstErr error
	for _, o := range r.outlets {
		if err := o.sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Stats reports delivery totals and the per-category forward counts.
func (r *Router) Stats() RouterStats {
	if r == nil {
		return RouterStats{}
	}
	stats := RouterStats{
		EventsTotal:  r.forwarded.Load(),
		DroppedTotal: r.dropped.Load(),
		MutedTotal:   r.muted.Load(),
	}
	for key, value := range r.metrics.Snapshot() {
		category, ok := strings.CutPrefix(key, "category.")
		if !ok {
			continue
		}
		if stats.ByCategory == nil {
			stats.ByCategory = make(map[string]uint64)
		}
		stats.ByCategory[category] = value
	}
	return stats
}

// Metrics exposes the counters shared with telemetry adapters.
func (r *Router) Metrics() *Metrics {
	if r == nil {
		return nil
	}
	return r.metrics
}

func (r *Router) Sink(name string) Sink {
	if r == nil {
		return nil
	}
	for _, o := range r.outlets {
		if o.name == name {
			return o.sink
		}
	}
	return nil
}

// outlet feeds one sink from its own backlog and backs off after write
// failures.
type outlet struct {
	name     string
	sink     Sink
	events   chan Event
	fallback *log.Logger
	failures int
}

func (o *outlet) offer(event Event) {
	select {
	case o.events <- event:
	default:
		o.fallback.Printf("sink %s backlog full, dropping %s", o.name, event.Type)
	}
}

func (o *outlet) run() error {
	for event := range o.events {
		if err := o.sink.Write(event); err != nil {
			time.Sleep(o.failed(err))
			continue
		}
		o.failures = 0
	}
	return nil
}

func (o *outlet) failed(err error) time.Duration {
	o.failures++
	delay := time.Duration(1<<min(o.failures, 5)) * time.Second
	o.fallback.Printf("sink %s failed: %v (retry in %s)", o.name, err, delay)
	return delay
}
