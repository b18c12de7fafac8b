package sim

import (
	"time"

	"github.com/google/uuid"

	"ability-engine/internal/geom"
)

// CommandType enumerates the supported engine commands.
type CommandType string

const (
	CommandActivate  CommandType = "Activate"
	CommandCancel    CommandType = "Cancel"
	CommandHeartbeat CommandType = "Heartbeat"
)

// ActivateCommand requests a new instance of the named ability.
type ActivateCommand struct {
	Ability   string    `json:"ability"`
	Origin    geom.Vec3 `json:"origin"`
	Direction geom.Vec3 `json:"direction"`
}

// CancelCommand ends every live instance of the named ability the actor owns.
type CancelCommand struct {
	Ability string `json:"ability"`
}

// HeartbeatCommand updates connectivity metadata for an actor.
type HeartbeatCommand struct {
	ReceivedAt time.Time `json:"receivedAt"`
	ClientSent int64     `json:"clientSent"`
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64            `json:"originTick"`
	ActorID    uuid.UUID         `json:"actorId"`
	Type       CommandType       `json:"type"`
	IssuedAt   time.Time         `json:"issuedAt"`
	Activate   *ActivateCommand  `json:"activate,omitempty"`
	Cancel     *CancelCommand    `json:"cancel,omitempty"`
	Heartbeat  *HeartbeatCommand `json:"heartbeat,omitempty"`
}
