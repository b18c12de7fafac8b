package ability_test

import (
	"github.com/google/uuid"

	"ability-engine/internal/ability"
	"ability-engine/internal/element"
	"ability-engine/internal/geom"
)

type tracker struct {
	*ability.Base
	ticks    int
	onTick   func(p *tracker)
	position *geom.Vec3
	removed  int
}

func (p *tracker) Progress() {
	p.ticks++
	if p.onTick != nil {
		p.onTick(p)
	}
}

func (p *tracker) Location() (geom.Vec3, bool) {
	if p.position == nil {
		return geom.Vec3{}, false
	}
	return *p.position, true
}

func (p *tracker) OnRemove() {
	p.removed++
}

func newTracker(reg *ability.Registry, def *ability.Definition, owner uuid.UUID) *tracker {
	p := &tracker{}
	p.Base = reg.NewBase(p, def, owner)
	return p
}

func testDefinition(name string, t ability.Type) *ability.Definition {
	return &ability.Definition{Name: name, Type: t, Element: element.Air}
}

type staticActor struct {
	id       uuid.UUID
	name     string
	online   bool
	passives bool
}

func (a staticActor) ID() uuid.UUID                       { return a.id }
func (a staticActor) Name() string                        { return a.name }
func (a staticActor) Online() bool                        { return a.online }
func (a staticActor) CanUsePassive(*element.Element) bool { return a.passives }

type staticDirectory map[uuid.UUID]ability.Actor

func (d staticDirectory) Lookup(id uuid.UUID) (ability.Actor, bool) {
	actor, ok := d[id]
	return actor, ok
}
