package abilities

import (
	"github.com/google/uuid"

	"ability-engine/internal/ability"
	"ability-engine/internal/element"
	"ability-engine/internal/geom"
)

const (
	blastSpeed  = 1.5
	blastRange  = 20.0
	blastRadius = 0.5
)

// Blast is a straight-line fire projectile that ends after blastRange.
type Blast struct {
	*ability.Base

	origin    geom.Vec3
	direction geom.Vec3
	position  geom.Vec3
	travelled float64
}

func describeBlast() (*ability.Definition, error) {
	return &ability.Definition{
		Name:            "Blast",
		Type:            TypeBlast,
		Element:         element.Fire,
		CollisionRadius: blastRadius,
		New: func(reg *ability.Registry, def *ability.Definition, owner uuid.UUID) ability.Ability {
			b := &Blast{direction: geom.V(1, 0, 0)}
			b.Base = reg.NewBase(b, def, owner)
			return b
		},
	}, nil
}

// Aim sets the launch point and heading. A zero direction keeps the default.
func (b *Blast) Aim(origin, direction geom.Vec3) {
	b.origin = origin
	b.position = origin
	if n, ok := direction.Normalize(); ok {
		b.direction = n
	}
}

func (b *Blast) Progress() {
	b.position = b.position.Add(b.direction.Scale(blastSpeed))
	b.travelled += blastSpeed
	if b.travelled >= blastRange {
		b.Remove()
	}
}

func (b *Blast) Location() (geom.Vec3, bool) {
	return b.position, true
}

// Travelled reports the distance covered so far.
func (b *Blast) Travelled() float64 {
	return b.travelled
}
