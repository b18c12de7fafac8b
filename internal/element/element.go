// Package element defines the bending element taxonomy abilities are grouped by.
package element

import (
	"sort"
	"strings"
)

// Element tags an ability with the discipline it belongs to. Sub-elements
// carry their parent so lookups by a parent element include them.
type Element struct {
	name   string
	parent *Element
}

// Name returns the display name used in configuration paths.
func (e *Element) Name() string {
	if e == nil {
		return ""
	}
	return e.name
}

// Parent returns the parent element for sub-elements and nil otherwise.
func (e *Element) Parent() *Element {
	if e == nil {
		return nil
	}
	return e.parent
}

// IsSub reports whether the element is a sub-element.
func (e *Element) IsSub() bool {
	return e != nil && e.parent != nil
}

// Root returns the parent for sub-elements and the element itself otherwise.
func (e *Element) Root() *Element {
	if e.IsSub() {
		return e.parent
	}
	return e
}

// Matches reports whether e is target or a sub-element of target.
func (e *Element) Matches(target *Element) bool {
	if e == nil || target == nil {
		return false
	}
	return e == target || e.parent == target
}

func (e *Element) String() string {
	return e.Name()
}

var (
	Air    = &Element{name: "Air"}
	Water  = &Element{name: "Water"}
	Earth  = &Element{name: "Earth"}
	Fire   = &Element{name: "Fire"}
	Chi    = &Element{name: "Chi"}
	Avatar = &Element{name: "Avatar"}

	Flight     = &Element{name: "Flight", parent: Air}
	Spiritual  = &Element{name: "Spiritual", parent: Air}
	Blood      = &Element{name: "Blood", parent: Water}
	Healing    = &Element{name: "Healing", parent: Water}
	Ice        = &Element{name: "Ice", parent: Water}
	Plant      = &Element{name: "Plant", parent: Water}
	Lava       = &Element{name: "Lava", parent: Earth}
	Metal      = &Element{name: "Metal", parent: Earth}
	Sand       = &Element{name: "Sand", parent: Earth}
	Combustion = &Element{name: "Combustion", parent: Fire}
	Lightning  = &Element{name: "Lightning", parent: Fire}
)

var byName = func() map[string]*Element {
	all := []*Element{
		Air, Water, Earth, Fire, Chi, Avatar,
		Flight, Spiritual, Blood, Healing, Ice, Plant, Lava, Metal, Sand, Combustion, Lightning,
	}
	out := make(map[string]*Element, len(all))
	for _, el := range all {
		out[strings.ToLower(el.name)] = el
	}
	return out
}()

// ByName resolves an element case-insensitively.
func ByName(name string) (*Element, bool) {
	el, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return el, ok
}

// All returns every known element sorted by name.
func All() []*Element {
	out := make([]*Element, 0, len(byName))
	for _, el := range byName {
		out = append(out, el)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// SubElements returns the sub-elements of parent sorted by name.
func SubElements(parent *Element) []*Element {
	var out []*Element
	for _, el := range All() {
		if el.parent == parent && parent != nil {
			out = append(out, el)
		}
	}
	return out
}
