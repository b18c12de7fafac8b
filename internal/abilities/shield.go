package abilities

import (
	"github.com/google/uuid"

	"ability-engine/internal/ability"
	"ability-engine/internal/element"
	"ability-engine/internal/geom"
)

const (
	shieldDuration = 60
	shieldRadius   = 2.0
)

// Shield is a stationary air barrier that lasts shieldDuration ticks.
type Shield struct {
	*ability.Base

	center  geom.Vec3
	elapsed int
	blocked int
}

func describeShield() (*ability.Definition, error) {
	return &ability.Definition{
		Name:            "Shield",
		Type:            TypeShield,
		Element:         element.Air,
		CollisionRadius: shieldRadius,
		New: func(reg *ability.Registry, def *ability.Definition, owner uuid.UUID) ability.Ability {
			s := &Shield{}
			s.Base = reg.NewBase(s, def, owner)
			return s
		},
	}, nil
}

// Aim places the shield at origin.
func (s *Shield) Aim(origin, _ geom.Vec3) {
	s.center = origin
}

func (s *Shield) Progress() {
	s.elapsed++
	if s.elapsed >= shieldDuration {
		s.Remove()
	}
}

func (s *Shield) Location() (geom.Vec3, bool) {
	return s.center, true
}

// HandleCollision counts blocked projectiles before applying the default
// removal policy.
func (s *Shield) HandleCollision(c ability.Collision) {
	if !c.RemovingFirst {
		s.blocked++
	}
	s.Base.HandleCollision(c)
}

// Blocked reports how many collisions the shield survived.
func (s *Shield) Blocked() int {
	return s.blocked
}
