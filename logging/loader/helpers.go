package loader

import (
	"context"

	"ability-engine/logging"
)

const (
	// EventDefinitionRegistered is emitted when a definition enters the catalog.
	EventDefinitionRegistered logging.EventType = "loader.definition_registered"
	// EventDefinitionSkipped is emitted for incomplete or invalid definitions.
	EventDefinitionSkipped logging.EventType = "loader.definition_skipped"
	// EventDefinitionDisabled is emitted once per disabled name per scan.
	EventDefinitionDisabled logging.EventType = "loader.definition_disabled"
	// EventAddonFailed is emitted when an addon is unloaded after a failure.
	EventAddonFailed logging.EventType = "loader.addon_failed"
)

// DefinitionPayload identifies a definition and where it came from.
type DefinitionPayload struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Reason string `json:"reason,omitempty"`
}

// DefinitionRegistered publishes a successful registration.
func DefinitionRegistered(ctx context.Context, pub logging.Publisher, payload DefinitionPayload) {
	publish(ctx, pub, EventDefinitionRegistered, logging.SeverityDebug, payload)
}

// DefinitionSkipped publishes a skipped definition.
func DefinitionSkipped(ctx context.Context, pub logging.Publisher, payload DefinitionPayload) {
	publish(ctx, pub, EventDefinitionSkipped, logging.SeverityWarn, payload)
}

// DefinitionDisabled publishes a disabled definition.
func DefinitionDisabled(ctx context.Context, pub logging.Publisher, payload DefinitionPayload) {
	publish(ctx, pub, EventDefinitionDisabled, logging.SeverityInfo, payload)
}

// AddonFailed publishes an addon failure.
func AddonFailed(ctx context.Context, pub logging.Publisher, payload DefinitionPayload) {
	publish(ctx, pub, EventAddonFailed, logging.SeverityError, payload)
}

func publish(ctx context.Context, pub logging.Publisher, typ logging.EventType, severity logging.Severity, payload DefinitionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     typ,
		Actor:    logging.AddonRef(payload.Source),
		Severity: severity,
		Category: logging.CategoryLoader,
		Payload:  payload,
	})
}
