package config

import (
	"strings"

	"ability-engine/internal/ability"
)

// AbilityPath returns the configuration root of a definition:
// Abilities.<Element>.[Passive.|Combo.]<Name>. Sub-elements are filed under
// their parent element.
func AbilityPath(def *ability.Definition) string {
	if def == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("Abilities.")
	b.WriteString(def.Element.Root().Name())
	b.WriteByte('.')
	switch {
	case def.Caps.Passive:
		b.WriteString("Passive.")
	case def.Caps.Combo:
		b.WriteString("Combo.")
	}
	b.WriteString(def.Name)
	return b.String()
}

// AbilityEnabled resolves the enable flag of def. Addons are always enabled
// and a missing flag counts as enabled.
func (p *Provider) AbilityEnabled(def *ability.Definition) bool {
	if def == nil {
		return false
	}
	if def.Caps.Addon {
		return true
	}
	return p.Bool(AbilityPath(def)+".Enabled", true)
}

// Describe fills an empty description or instructions of def from a language
// tree using the same path layout as the enable flags.
func (p *Provider) Describe(def *ability.Definition) {
	if p == nil || def == nil {
		return
	}
	root := AbilityPath(def)
	if def.Description == "" {
		def.Description = p.String(root+".Description", "")
	}
	if def.Instructions == "" {
		def.Instructions = p.String(root+".Instructions", "")
	}
}
