// Package abilities holds the built-in ability plugin: a handful of
// reference abilities covering each capability the runtime classifies.
package abilities

import (
	"ability-engine/internal/ability"
	"ability-engine/internal/collision"
	"ability-engine/internal/loader"
)

// Types of the built-in abilities.
const (
	TypeBlast       ability.Type = "builtin:blast"
	TypeShield      ability.Type = "builtin:shield"
	TypeAcrobatics  ability.Type = "builtin:acrobatics"
	TypeTremorsense ability.Type = "builtin:tremorsense"
	TypeInferno     ability.Type = "builtin:inferno"
	TypeWaterArms   ability.Type = "builtin:waterarms"
)

// Descriptors returns the built-in plugin in registration order.
func Descriptors() []loader.Descriptor {
	return []loader.Descriptor{
		describeBlast,
		describeShield,
		describeAcrobatics,
		describeTremorsense,
		describeInferno,
		describeWaterArms,
	}
}

// DefaultPairs are the collision pairs the built-ins rely on.
func DefaultPairs() []collision.PairSpec {
	return []collision.PairSpec{
		{First: "Blast", Second: "Shield", RemoveFirst: true},
		{First: "Blast", Second: "Blast", RemoveFirst: true, RemoveSecond: true},
		{First: "Inferno", Second: "Shield", RemoveSecond: true},
	}
}
