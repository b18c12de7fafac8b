package ability

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ability-engine/internal/element"
	"ability-engine/internal/geom"
)

//go:generate go tool mockgen -destination=mocks/mock_ability.go -package=mocks ability-engine/internal/ability Directory,Actor,Notifier

// Ability is a live, per-actor activation of a Definition. Implementations
// embed *Base, which supplies identity, lifecycle bookkeeping and collision
// defaults; they only have to provide Progress.
type Ability interface {
	// Progress advances the instance by one tick. It runs on the tick
	// goroutine and may remove the instance.
	Progress()

	Definition() *Definition
	ID() int32
	Owner() uuid.UUID
	Started() time.Time
	StartTick() uint64
	IsStarted() bool
	IsRemoved() bool
	Remove()

	Collidable() bool
	CollisionRadius() float64
	Locations() []geom.Vec3
	HandleCollision(Collision)

	base() *Base
}

// Locator is implemented by abilities occupying a single point. Base uses it
// to derive Locations when the concrete type does not override them.
type Locator interface {
	Location() (geom.Vec3, bool)
}

// RemoveHook is implemented by abilities that release resources when they
// leave the live set. It runs once, after the ended notification.
type RemoveHook interface {
	OnRemove()
}

// Collision describes one detected overlap from the perspective of First.
type Collision struct {
	First          Ability
	Second         Ability
	RemovingFirst  bool
	RemovingSecond bool
	LocationFirst  geom.Vec3
	LocationSecond geom.Vec3
}

// Swapped returns the same collision seen from Second.
func (c Collision) Swapped() Collision {
	return Collision{
		First:          c.Second,
		Second:         c.First,
		RemovingFirst:  c.RemovingSecond,
		RemovingSecond: c.RemovingFirst,
		LocationFirst:  c.LocationSecond,
		LocationSecond: c.LocationFirst,
	}
}

// Actor is the slice of an external actor the engine depends on.
type Actor interface {
	ID() uuid.UUID
	Name() string
	Online() bool
	CanUsePassive(el *element.Element) bool
}

// Directory resolves actor identities. Lookups for unknown ids report false.
type Directory interface {
	Lookup(id uuid.UUID) (Actor, bool)
}

// Notifier receives lifecycle notifications. Starting may cancel the
// activation by returning true.
type Notifier interface {
	Starting(a Ability) (cancelled bool)
	Progressed(a Ability)
	Ended(a Ability)
}

type nopNotifier struct{}

func (nopNotifier) Starting(Ability) bool { return false }
func (nopNotifier) Progressed(Ability)    {}
func (nopNotifier) Ended(Ability)         {}

type emptyDirectory struct{}

func (emptyDirectory) Lookup(uuid.UUID) (Actor, bool) { return nil, false }

type lifecycleState int32

const (
	stateConstructed lifecycleState = iota
	stateStarted
	stateRemoved
)

func (s lifecycleState) String() string {
	switch s {
	case stateConstructed:
		return "constructed"
	case stateStarted:
		return "started"
	case stateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Base carries the state every instance shares. It must be created through
// Registry.NewBase and embedded by pointer.
type Base struct {
	reg  *Registry
	self Ability
	def  *Definition

	id        int32
	owner     atomic.Pointer[uuid.UUID]
	state     atomic.Int32
	startTime atomic.Int64
	startTick atomic.Uint64

	// seq orders instances by activation; guarded by the registry lock.
	seq uint64
}

func (b *Base) base() *Base { return b }

// Definition returns the template this instance was created from.
func (b *Base) Definition() *Definition {
	if b == nil {
		return nil
	}
	return b.def
}

// ID returns the registry-issued identifier. Instances created without an
// owner have id zero.
func (b *Base) ID() int32 {
	if b == nil {
		return 0
	}
	return b.id
}

// Owner returns the current owner or uuid.Nil.
func (b *Base) Owner() uuid.UUID {
	if b == nil {
		return uuid.Nil
	}
	if owner := b.owner.Load(); owner != nil {
		return *owner
	}
	return uuid.Nil
}

func (b *Base) hasOwner() bool {
	return b != nil && b.Owner() != uuid.Nil
}

// Started returns the wall-clock time of construction, restamped on
// activation.
func (b *Base) Started() time.Time {
	if b == nil {
		return time.Time{}
	}
	nanos := b.startTime.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

// StartTick returns the engine tick at construction.
func (b *Base) StartTick() uint64 {
	if b == nil {
		return 0
	}
	return b.startTick.Load()
}

func (b *Base) loadState() lifecycleState {
	return lifecycleState(b.state.Load())
}

// IsStarted reports whether the instance is currently live.
func (b *Base) IsStarted() bool {
	return b != nil && b.loadState() == stateStarted
}

// IsRemoved reports whether the instance has been removed.
func (b *Base) IsRemoved() bool {
	return b != nil && b.loadState() == stateRemoved
}

// Remove takes the instance out of its registry. Safe to call repeatedly.
func (b *Base) Remove() {
	if b == nil || b.reg == nil {
		return
	}
	b.reg.Remove(b.self)
}

// Collidable defaults to the definition flag.
func (b *Base) Collidable() bool {
	return b != nil && b.def.Collidable()
}

// CollisionRadius defaults to the definition radius.
func (b *Base) CollisionRadius() float64 {
	if b == nil {
		return DefaultCollisionRadius
	}
	return b.def.Radius()
}

// Locations defaults to the single point reported by Locator, if any.
func (b *Base) Locations() []geom.Vec3 {
	if b == nil {
		return nil
	}
	locator, ok := b.self.(Locator)
	if !ok {
		return nil
	}
	loc, ok := locator.Location()
	if !ok {
		return nil
	}
	return []geom.Vec3{loc}
}

// HandleCollision removes the instance when the collision says so.
func (b *Base) HandleCollision(c Collision) {
	if b == nil {
		return
	}
	if c.RemovingFirst {
		b.Remove()
	}
}

func (b *Base) String() string {
	if b == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s#%d(%s)", b.def.Key(), b.id, b.loadState())
}

func baseOf(a Ability) *Base {
	if a == nil {
		return nil
	}
	return a.base()
}
