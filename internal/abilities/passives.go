package abilities

import (
	"github.com/google/uuid"

	"ability-engine/internal/ability"
	"ability-engine/internal/element"
)

// Passive is the shared shape of the always-on built-ins. Gating on the
// owner's state happens in the registry before Progress runs.
type Passive struct {
	*ability.Base
	ticks int
}

func (p *Passive) Progress() {
	p.ticks++
}

// Ticks reports how many steps the passive has run.
func (p *Passive) Ticks() int {
	return p.ticks
}

func newPassive(reg *ability.Registry, def *ability.Definition, owner uuid.UUID) ability.Ability {
	p := &Passive{}
	p.Base = reg.NewBase(p, def, owner)
	return p
}

func describeAcrobatics() (*ability.Definition, error) {
	return &ability.Definition{
		Name:             "Acrobatics",
		Type:             TypeAcrobatics,
		Element:          element.Chi,
		Caps:             ability.Capabilities{Passive: true},
		IgnoreCollisions: true,
		New:              newPassive,
	}, nil
}

func describeTremorsense() (*ability.Definition, error) {
	return &ability.Definition{
		Name:             "Tremorsense",
		Type:             TypeTremorsense,
		Element:          element.Earth,
		Caps:             ability.Capabilities{Passive: true},
		IgnoreCollisions: true,
		New:              newPassive,
	}, nil
}
