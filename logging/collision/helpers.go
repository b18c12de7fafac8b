package collision

import (
	"context"

	"ability-engine/logging"
)

const (
	// EventDetected is emitted for every overlapping instance pair.
	EventDetected logging.EventType = "collision.detected"
	// EventCallbackPanicked is emitted when a collision callback panics.
	EventCallbackPanicked logging.EventType = "collision.callback_panicked"
)

// Participant identifies one side of a collision.
type Participant struct {
	Name     string `json:"name"`
	ID       int32  `json:"id"`
	Owner    string `json:"owner"`
	Removing bool   `json:"removing"`
}

// DetectedPayload describes an overlap.
type DetectedPayload struct {
	First  Participant `json:"first"`
	Second Participant `json:"second"`
}

// CallbackPanickedPayload captures a recovered callback failure.
type CallbackPanickedPayload struct {
	Participant Participant `json:"participant"`
	Panic       string      `json:"panic"`
}

// Detected publishes an overlap event.
func Detected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, targets []logging.EntityRef, payload DetectedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDetected,
		Tick:     tick,
		Actor:    actor,
		Targets:  targets,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCollision,
		Payload:  payload,
	})
}

// CallbackPanicked publishes a recovered callback failure.
func CallbackPanicked(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CallbackPanickedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCallbackPanicked,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityError,
		Category: logging.CategoryCollision,
		Payload:  payload,
	})
}
