package abilities

import (
	"github.com/google/uuid"

	"ability-engine/internal/ability"
	"ability-engine/internal/element"
	"ability-engine/internal/geom"
)

const waterArmsStageTicks = 20

var waterArmsStages = []string{"Pull", "Punch", "Grapple", "Freeze", "Spear"}

// WaterArms is a multi-stage ability that cycles through its sub-abilities
// and ends after the last one.
type WaterArms struct {
	*ability.Base

	anchor  geom.Vec3
	stage   int
	elapsed int
}

func describeWaterArms() (*ability.Definition, error) {
	return &ability.Definition{
		Name:             "WaterArms",
		Type:             TypeWaterArms,
		Element:          element.Water,
		Caps:             ability.Capabilities{MultiStage: true},
		Stages:           append([]string(nil), waterArmsStages...),
		IgnoreCollisions: true,
		New: func(reg *ability.Registry, def *ability.Definition, owner uuid.UUID) ability.Ability {
			w := &WaterArms{}
			w.Base = reg.NewBase(w, def, owner)
			return w
		},
	}, nil
}

// Aim anchors the arms at origin.
func (w *WaterArms) Aim(origin, _ geom.Vec3) {
	w.anchor = origin
}

func (w *WaterArms) Progress() {
	w.elapsed++
	if w.elapsed < waterArmsStageTicks {
		return
	}
	w.elapsed = 0
	w.stage++
	if w.stage >= len(w.Definition().Stages) {
		w.Remove()
	}
}

func (w *WaterArms) Location() (geom.Vec3, bool) {
	return w.anchor, true
}

// Stage returns the name of the active sub-ability.
func (w *WaterArms) Stage() string {
	stages := w.Definition().Stages
	if w.stage >= len(stages) {
		return ""
	}
	return stages[w.stage]
}
