package lifecycle

import (
	"context"

	"ability-engine/logging"
)

const (
	// EventAbilityStarted is emitted when an instance enters the live set.
	EventAbilityStarted logging.EventType = "lifecycle.ability_started"
	// EventAbilityEnded is emitted when an instance leaves the live set.
	EventAbilityEnded logging.EventType = "lifecycle.ability_ended"
	// EventAbilityReassigned is emitted when an instance changes owner.
	EventAbilityReassigned logging.EventType = "lifecycle.ability_reassigned"
	// EventPassiveGated is emitted when a passive is dropped because its owner
	// can no longer run it.
	EventPassiveGated logging.EventType = "lifecycle.passive_gated"
	// EventAbilityPanicked is emitted when a progress step panics.
	EventAbilityPanicked logging.EventType = "lifecycle.ability_panicked"
)

// AbilityPayload identifies an instance.
type AbilityPayload struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	ID      int32  `json:"id"`
	Element string `json:"element,omitempty"`
}

// ReassignedPayload captures an ownership transfer.
type ReassignedPayload struct {
	AbilityPayload
	From string `json:"from"`
	To   string `json:"to"`
}

// GatedPayload explains why a passive was removed.
type GatedPayload struct {
	AbilityPayload
	Reason string `json:"reason"`
}

// PanickedPayload carries the recovered panic value.
type PanickedPayload struct {
	AbilityPayload
	Panic string `json:"panic"`
}

// AbilityStarted publishes an activation event.
func AbilityStarted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AbilityPayload) {
	publish(ctx, pub, EventAbilityStarted, logging.SeverityDebug, tick, actor, payload)
}

// AbilityEnded publishes a removal event.
func AbilityEnded(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AbilityPayload) {
	publish(ctx, pub, EventAbilityEnded, logging.SeverityDebug, tick, actor, payload)
}

// AbilityReassigned publishes an ownership transfer.
func AbilityReassigned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ReassignedPayload) {
	publish(ctx, pub, EventAbilityReassigned, logging.SeverityDebug, tick, actor, payload)
}

// PassiveGated publishes a passive removal.
func PassiveGated(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload GatedPayload) {
	publish(ctx, pub, EventPassiveGated, logging.SeverityInfo, tick, actor, payload)
}

// AbilityPanicked publishes a recovered progress failure.
func AbilityPanicked(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PanickedPayload) {
	publish(ctx, pub, EventAbilityPanicked, logging.SeverityError, tick, actor, payload)
}

func publish(ctx context.Context, pub logging.Publisher, typ logging.EventType, severity logging.Severity, tick uint64, actor logging.EntityRef, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     typ,
		Tick:     tick,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}
