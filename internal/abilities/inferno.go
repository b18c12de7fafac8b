package abilities

import (
	"math"

	"github.com/google/uuid"

	"ability-engine/internal/ability"
	"ability-engine/internal/element"
	"ability-engine/internal/geom"
)

const (
	infernoGrowth    = 0.75
	infernoMaxRadius = 6.0
	infernoPoints    = 12
)

// Inferno is a combo that expands a ring of fire around its origin. Each ring
// point is a separate collision location.
type Inferno struct {
	*ability.Base

	center geom.Vec3
	radius float64
}

func describeInferno() (*ability.Definition, error) {
	return &ability.Definition{
		Name:    "Inferno",
		Type:    TypeInferno,
		Element: element.Fire,
		Caps:    ability.Capabilities{Combo: true},
		Combination: []ability.ComboStep{
			{Ability: "Blast", Action: ability.LeftClick},
			{Ability: "Blast", Action: ability.LeftClick},
			{Ability: "Shield", Action: ability.ShiftDown},
		},
		New: func(reg *ability.Registry, def *ability.Definition, owner uuid.UUID) ability.Ability {
			f := &Inferno{}
			f.Base = reg.NewBase(f, def, owner)
			return f
		},
	}, nil
}

// Aim centres the ring at origin.
func (f *Inferno) Aim(origin, _ geom.Vec3) {
	f.center = origin
}

func (f *Inferno) Progress() {
	f.radius += infernoGrowth
	if f.radius > infernoMaxRadius {
		f.Remove()
	}
}

func (f *Inferno) Location() (geom.Vec3, bool) {
	return f.center, true
}

// Locations returns points evenly spaced on the current ring.
func (f *Inferno) Locations() []geom.Vec3 {
	if f.radius == 0 {
		return []geom.Vec3{f.center}
	}
	points := make([]geom.Vec3, 0, infernoPoints)
	for i := 0; i < infernoPoints; i++ {
		angle := 2 * math.Pi * float64(i) / infernoPoints
		points = append(points, f.center.Add(geom.V(math.Cos(angle)*f.radius, 0, math.Sin(angle)*f.radius)))
	}
	return points
}

// Radius reports the current ring radius.
func (f *Inferno) Radius() float64 {
	return f.radius
}
