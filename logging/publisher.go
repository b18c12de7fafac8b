package logging

import (
	"context"
	"fmt"
	"time"
)

// EventType names one kind of engine event, e.g. "ability.started".
type EventType string

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

type EntityKind string

const (
	EntityKindUnknown EntityKind = "unknown"
	EntityKindPlayer  EntityKind = "player"
	EntityKindAbility EntityKind = "ability"
	EntityKindAddon   EntityKind = "addon"
	EntityKindSystem  EntityKind = "system"
)

// Event is one structured record routed to the sinks. Tick is the
// simulation tick the event belongs to.
type Event struct {
	Type     EventType      `json:"type"`
	Tick     uint64         `json:"tick"`
	Time     time.Time      `json:"time"`
	Actor    EntityRef      `json:"actor"`
	Targets  []EntityRef    `json:"targets,omitempty"`
	Severity Severity       `json:"severity"`
	Category string         `json:"category,omitempty"`
	Payload  any            `json:"payload,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// Clone copies the slices and maps so sinks never share them with the
// publisher.
func (e Event) Clone() Event {
	cloned := e
	if len(e.Targets) > 0 {
		cloned.Targets = append([]EntityRef(nil), e.Targets...)
	}
	if e.Extra != nil {
		cloned.Extra = make(map[string]any, len(e.Extra))
		for k, v := range e.Extra {
			cloned.Extra[k] = v
		}
	}
	return cloned
}

type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

// PlayerRef refers to the player owning an ability instance.
func PlayerRef(id string) EntityRef {
	return EntityRef{ID: id, Kind: EntityKindPlayer}
}

// AbilityRef refers to one live instance as "<type>#<id>".
func AbilityRef(abilityType string, id int32) EntityRef {
	return EntityRef{ID: fmt.Sprintf("%s#%d", abilityType, id), Kind: EntityKindAbility}
}

// AddonRef refers to the plugin or script a definition came from.
func AddonRef(source string) EntityRef {
	return EntityRef{ID: source, Kind: EntityKindAddon}
}

const (
	CategoryLifecycle = "lifecycle"
	CategoryLoader    = "loader"
	CategoryCollision = "collision"
	CategorySystem    = "system"
)

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type PublisherFunc func(ctx context.Context, event Event)

func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	if f == nil {
		return
	}
	f(ctx, event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}

func NopPublisher() Publisher {
	return nopPublisher{}
}
