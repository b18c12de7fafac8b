package ability

import (
	"context"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"ability-engine/internal/telemetry"
	"ability-engine/logging"
	lifecycleLog "ability-engine/logging/lifecycle"
)

const (
	metricActivated = "abilities.activated"
	metricCancelled = "abilities.cancelled"
	metricRemoved   = "abilities.removed"
	metricLive      = "abilities.live"
)

// Config wires the registry to its collaborators. Every field is optional.
type Config struct {
	Directory Directory
	Notifier  Notifier
	Clock     logging.Clock
	// Tick reports the current engine tick for timestamps and events.
	Tick      func() uint64
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
}

type instanceSet map[*Base]Ability

// Registry owns every live instance and the indices over them. All three
// indices are mutated together under one lock, so a reader never observes an
// instance in one index and not another.
type Registry struct {
	directory Directory
	notifier  Notifier
	clock     logging.Clock
	tick      func() uint64
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher

	lastID atomic.Int32

	mu      sync.RWMutex
	seq     uint64
	live    instanceSet
	byType  map[Type]instanceSet
	byOwner map[Type]map[uuid.UUID]instanceSet
}

// NewRegistry constructs an empty registry.
func NewRegistry(cfg Config) *Registry {
	r := &Registry{
		directory: cfg.Directory,
		notifier:  cfg.Notifier,
		clock:     cfg.Clock,
		tick:      cfg.Tick,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		publisher: cfg.Publisher,
		live:      make(instanceSet),
		byType:    make(map[Type]instanceSet),
		byOwner:   make(map[Type]map[uuid.UUID]instanceSet),
	}
	if r.directory == nil {
		r.directory = emptyDirectory{}
	}
	if r.notifier == nil {
		r.notifier = nopNotifier{}
	}
	if r.clock == nil {
		r.clock = logging.SystemClock{}
	}
	if r.tick == nil {
		r.tick = func() uint64 { return 0 }
	}
	if r.logger == nil {
		r.logger = telemetry.NopLogger()
	}
	if r.metrics == nil {
		r.metrics = telemetry.NopMetrics()
	}
	if r.publisher == nil {
		r.publisher = logging.NopPublisher()
	}
	// lastID holds the most recently issued id; the first issued is MinInt32.
	r.lastID.Store(math.MaxInt32)
	return r
}

// SeedLastID sets the most recently issued id. The next instance receives
// last+1, wrapping from MaxInt32 to MinInt32.
func (r *Registry) SeedLastID(last int32) {
	if r == nil {
		return
	}
	r.lastID.Store(last)
}

// Directory exposes the actor directory the registry resolves owners with.
func (r *Registry) Directory() Directory {
	if r == nil {
		return emptyDirectory{}
	}
	return r.directory
}

func (r *Registry) nextID() int32 {
	return r.lastID.Add(1)
}

// NewBase prepares the shared state for a new instance. self is the concrete
// ability embedding the returned Base. When owner is uuid.Nil the instance is
// inert: it receives no id and lifecycle operations on it are no-ops.
func (r *Registry) NewBase(self Ability, def *Definition, owner uuid.UUID) *Base {
	b := &Base{reg: r, self: self, def: def}
	if owner == uuid.Nil {
		return b
	}
	b.owner.Store(&owner)
	b.id = r.nextID()
	b.startTime.Store(r.clock.Now().UnixNano())
	b.startTick.Store(r.tick())
	return b
}

// Activate notifies the starting hook and, unless cancelled, makes a live
// instance discoverable through every index. Instances without an owner and
// instances already activated or removed are ignored.
func (r *Registry) Activate(a Ability) {
	b := baseOf(a)
	if r == nil || !b.hasOwner() || b.def == nil || b.loadState() != stateConstructed {
		return
	}
	if r.notifier.Starting(a) {
		r.metrics.Add(metricCancelled, 1)
		r.Remove(a)
		return
	}

	r.mu.Lock()
	if !b.state.CompareAndSwap(int32(stateConstructed), int32(stateStarted)) {
		r.mu.Unlock()
		return
	}
	b.startTime.Store(r.clock.Now().UnixNano())
	r.seq++
	b.seq = r.seq
	r.insertLocked(b, a)
	live := len(r.live)
	r.mu.Unlock()

	r.metrics.Add(metricActivated, 1)
	r.metrics.Store(metricLive, uint64(live))
	lifecycleLog.AbilityStarted(context.Background(), r.publisher, r.tick(), actorRef(b.Owner()), payloadOf(b))
}

func (r *Registry) insertLocked(b *Base, a Ability) {
	t := b.def.Type
	owner := b.Owner()

	r.live[b] = a

	typed := r.byType[t]
	if typed == nil {
		typed = make(instanceSet)
		r.byType[t] = typed
	}
	typed[b] = a

	owners := r.byOwner[t]
	if owners == nil {
		owners = make(map[uuid.UUID]instanceSet)
		r.byOwner[t] = owners
	}
	bucket := owners[owner]
	if bucket == nil {
		bucket = make(instanceSet)
		owners[owner] = bucket
	}
	bucket[b] = a
}

func (r *Registry) pruneLocked(b *Base) {
	t := b.def.Type
	owner := b.Owner()

	delete(r.live, b)

	if typed := r.byType[t]; typed != nil {
		delete(typed, b)
		if len(typed) == 0 {
			delete(r.byType, t)
		}
	}

	owners := r.byOwner[t]
	if owners == nil {
		return
	}
	if bucket := owners[owner]; bucket != nil {
		delete(bucket, b)
		if len(bucket) == 0 {
			delete(owners, owner)
		}
	}
	if len(owners) == 0 {
		delete(r.byOwner, t)
	}
}

// Remove ends an instance: the ended hook fires, the instance is marked
// removed and it disappears from every index. Repeated calls are no-ops.
func (r *Registry) Remove(a Ability) {
	b := baseOf(a)
	if r == nil || !b.hasOwner() {
		return
	}
	for {
		current := b.state.Load()
		if lifecycleState(current) == stateRemoved {
			return
		}
		if b.state.CompareAndSwap(current, int32(stateRemoved)) {
			break
		}
	}

	r.notifier.Ended(a)
	if hook, ok := a.(RemoveHook); ok {
		hook.OnRemove()
	}

	r.mu.Lock()
	r.pruneLocked(b)
	live := len(r.live)
	r.mu.Unlock()

	r.metrics.Add(metricRemoved, 1)
	r.metrics.Store(metricLive, uint64(live))
	lifecycleLog.AbilityEnded(context.Background(), r.publisher, r.tick(), actorRef(b.Owner()), payloadOf(b))
}

// ReassignOwner moves a live instance into the new owner's bucket. It does
// nothing unless the instance is started and the new owner differs.
func (r *Registry) ReassignOwner(a Ability, owner uuid.UUID) {
	b := baseOf(a)
	if r == nil || b == nil || owner == uuid.Nil {
		return
	}

	r.mu.Lock()
	if b.loadState() != stateStarted {
		r.mu.Unlock()
		return
	}
	previous := b.Owner()
	if previous == owner {
		r.mu.Unlock()
		return
	}
	if owners := r.byOwner[b.def.Type]; owners != nil {
		if bucket := owners[previous]; bucket != nil {
			delete(bucket, b)
			if len(bucket) == 0 {
				delete(owners, previous)
			}
		}
	}
	b.owner.Store(&owner)
	owners := r.byOwner[b.def.Type]
	if owners == nil {
		owners = make(map[uuid.UUID]instanceSet)
		r.byOwner[b.def.Type] = owners
	}
	bucket := owners[owner]
	if bucket == nil {
		bucket = make(instanceSet)
		owners[owner] = bucket
	}
	bucket[b] = a
	r.mu.Unlock()

	lifecycleLog.AbilityReassigned(context.Background(), r.publisher, r.tick(), actorRef(owner), lifecycleLog.ReassignedPayload{
		AbilityPayload: payloadOf(b),
		From:           previous.String(),
		To:             owner.String(),
	})
}

// RemoveAllInstances removes every live instance in activation order and
// returns how many were removed.
func (r *Registry) RemoveAllInstances() int {
	if r == nil {
		return 0
	}
	removed := 0
	for _, a := range r.AllLive() {
		if a.IsRemoved() {
			continue
		}
		r.Remove(a)
		removed++
	}
	return removed
}

func sortBySeq(out []Ability) {
	sort.Slice(out, func(i, j int) bool { return out[i].base().seq < out[j].base().seq })
}

func actorRef(owner uuid.UUID) logging.EntityRef {
	return logging.PlayerRef(owner.String())
}

func payloadOf(b *Base) lifecycleLog.AbilityPayload {
	payload := lifecycleLog.AbilityPayload{ID: b.id}
	if b.def != nil {
		payload.Name = b.def.Name
		payload.Type = string(b.def.Type)
		payload.Element = b.def.Element.Name()
	}
	return payload
}
