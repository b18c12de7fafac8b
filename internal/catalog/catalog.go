// Package catalog stores the registered ability definitions and the
// classification indices derived from them.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"ability-engine/internal/ability"
	"ability-engine/internal/element"
)

var (
	// ErrNilDefinition is returned when Register receives nil.
	ErrNilDefinition = errors.New("catalog: definition must not be nil")
	// ErrTypeConflict is returned when a type is already registered under a
	// different name.
	ErrTypeConflict = errors.New("catalog: type already registered under another name")
)

// ComboInfo is the combo index entry for a definition.
type ComboInfo struct {
	Name         string              `json:"name"`
	Element      string              `json:"element"`
	Combination  []ability.ComboStep `json:"combination"`
	Description  string              `json:"description,omitempty"`
	Instructions string              `json:"instructions,omitempty"`
	Author       string              `json:"author,omitempty"`
}

// MultiStageInfo is the multi-stage index entry for a definition.
type MultiStageInfo struct {
	Name   string   `json:"name"`
	Stages []string `json:"stages"`
}

// Catalog is the name and type keyed store of definitions. Names are case
// insensitive. All accessors return copies.
type Catalog struct {
	mu       sync.RWMutex
	byName   map[string]*ability.Definition
	byType   map[ability.Type]*ability.Definition
	combos   map[string]ComboInfo
	stages   map[string]MultiStageInfo
	passives map[string]map[string]struct{}
}

// New constructs an empty catalog.
func New() *Catalog {
	c := &Catalog{}
	c.resetLocked()
	return c
}

func (c *Catalog) resetLocked() {
	c.byName = make(map[string]*ability.Definition)
	c.byType = make(map[ability.Type]*ability.Definition)
	c.combos = make(map[string]ComboInfo)
	c.stages = make(map[string]MultiStageInfo)
	c.passives = make(map[string]map[string]struct{})
}

// Register validates def and stores a copy, replacing any previous entry of
// the same name together with its classification. A rejected definition
// leaves the catalog untouched.
func (c *Catalog) Register(def *ability.Definition) error {
	if c == nil {
		return ErrNilDefinition
	}
	if def == nil {
		return ErrNilDefinition
	}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	stored := def.Clone()
	if stored.Caps.Passive {
		stored.Hidden = true
	}
	key := stored.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	if holder, ok := c.byType[stored.Type]; ok && holder.Key() != key {
		return fmt.Errorf("%w: %s is %s", ErrTypeConflict, stored.Type, holder.Name)
	}
	if previous, ok := c.byName[key]; ok {
		c.unclassifyLocked(previous)
	}
	c.byName[key] = stored
	c.byType[stored.Type] = stored
	c.classifyLocked(stored)
	return nil
}

func (c *Catalog) classifyLocked(def *ability.Definition) {
	key := def.Key()
	if def.Caps.Combo && len(def.Combination) > 0 {
		info := ComboInfo{
			Name:         def.Name,
			Element:      def.Element.Name(),
			Combination:  append([]ability.ComboStep(nil), def.Combination...),
			Description:  def.Description,
			Instructions: def.Instructions,
		}
		if def.Addon != nil {
			info.Author = def.Addon.Author
		}
		c.combos[key] = info
	}
	if def.Caps.MultiStage {
		c.stages[key] = MultiStageInfo{Name: def.Name, Stages: append([]string(nil), def.Stages...)}
	}
	if def.Caps.Passive {
		for _, el := range passiveKeys(def.Element) {
			set := c.passives[el]
			if set == nil {
				set = make(map[string]struct{})
				c.passives[el] = set
			}
			set[key] = struct{}{}
		}
	}
}

func (c *Catalog) unclassifyLocked(def *ability.Definition) {
	key := def.Key()
	delete(c.combos, key)
	delete(c.stages, key)
	for _, el := range passiveKeys(def.Element) {
		if set := c.passives[el]; set != nil {
			delete(set, key)
			if len(set) == 0 {
				delete(c.passives, el)
			}
		}
	}
	if holder, ok := c.byType[def.Type]; ok && holder.Key() == key {
		delete(c.byType, def.Type)
	}
}

func passiveKeys(el *element.Element) []string {
	if el == nil {
		return nil
	}
	keys := []string{strings.ToLower(el.Name())}
	if el.IsSub() {
		keys = append(keys, strings.ToLower(el.Parent().Name()))
	}
	return keys
}

// Lookup resolves a definition by case-insensitive name.
func (c *Catalog) Lookup(name string) (*ability.Definition, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, false
	}
	return def.Clone(), true
}

// LookupType resolves a definition by type.
func (c *Catalog) LookupType(t ability.Type) (*ability.Definition, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.byType[t]
	if !ok {
		return nil, false
	}
	return def.Clone(), true
}

// Contains reports whether name is registered.
func (c *Catalog) Contains(name string) bool {
	_, ok := c.Lookup(name)
	return ok
}

// Len returns the number of registered definitions.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byName)
}

func (c *Catalog) filter(keep func(*ability.Definition) bool) []*ability.Definition {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	out := make([]*ability.Definition, 0, len(c.byName))
	for _, def := range c.byName {
		if keep == nil || keep(def) {
			out = append(out, def.Clone())
		}
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// All returns every definition sorted by name.
func (c *Catalog) All() []*ability.Definition {
	return c.filter(nil)
}

// ByElement returns definitions of el and of its sub-elements.
func (c *Catalog) ByElement(el *element.Element) []*ability.Definition {
	return c.filter(func(def *ability.Definition) bool { return def.Element.Matches(el) })
}

// Addons returns every definition carrying the addon capability.
func (c *Catalog) Addons() []*ability.Definition {
	return c.filter(func(def *ability.Definition) bool { return def.Caps.Addon })
}

// Passives returns every passive definition.
func (c *Catalog) Passives() []*ability.Definition {
	return c.filter(func(def *ability.Definition) bool { return def.Caps.Passive })
}

// PassivesFor returns the passives indexed under el, which includes
// passives of its sub-elements.
func (c *Catalog) PassivesFor(el *element.Element) []*ability.Definition {
	if c == nil || el == nil {
		return nil
	}
	c.mu.RLock()
	set := c.passives[strings.ToLower(el.Name())]
	out := make([]*ability.Definition, 0, len(set))
	for key := range set {
		if def, ok := c.byName[key]; ok {
			out = append(out, def.Clone())
		}
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Combos returns the combo index sorted by name.
func (c *Catalog) Combos() []ComboInfo {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	out := make([]ComboInfo, 0, len(c.combos))
	for _, info := range c.combos {
		info.Combination = append([]ability.ComboStep(nil), info.Combination...)
		out = append(out, info)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out
}

// Combo resolves a combo index entry by name.
func (c *Catalog) Combo(name string) (ComboInfo, bool) {
	if c == nil {
		return ComboInfo{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.combos[strings.ToLower(strings.TrimSpace(name))]
	if ok {
		info.Combination = append([]ability.ComboStep(nil), info.Combination...)
	}
	return info, ok
}

// MultiStages returns the multi-stage index sorted by name.
func (c *Catalog) MultiStages() []MultiStageInfo {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	out := make([]MultiStageInfo, 0, len(c.stages))
	for _, info := range c.stages {
		info.Stages = append([]string(nil), info.Stages...)
		out = append(out, info)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out
}

// MultiStage resolves a multi-stage index entry by name.
func (c *Catalog) MultiStage(name string) (MultiStageInfo, bool) {
	if c == nil {
		return MultiStageInfo{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.stages[strings.ToLower(strings.TrimSpace(name))]
	if ok {
		info.Stages = append([]string(nil), info.Stages...)
	}
	return info, ok
}

// Remove deletes a definition and its classification. It reports whether
// the name was registered.
func (c *Catalog) Remove(name string) bool {
	if c == nil {
		return false
	}
	key := strings.ToLower(strings.TrimSpace(name))
	c.mu.Lock()
	defer c.mu.Unlock()
	def, ok := c.byName[key]
	if !ok {
		return false
	}
	c.unclassifyLocked(def)
	delete(c.byName, key)
	return true
}

// RemoveIf deletes name only while it is held by a definition of type t, so
// a failed registration never takes out an entry it did not create.
func (c *Catalog) RemoveIf(name string, t ability.Type) bool {
	if c == nil {
		return false
	}
	key := strings.ToLower(strings.TrimSpace(name))
	c.mu.Lock()
	defer c.mu.Unlock()
	def, ok := c.byName[key]
	if !ok || def.Type != t {
		return false
	}
	c.unclassifyLocked(def)
	delete(c.byName, key)
	return true
}

// Clear drops every definition and index.
func (c *Catalog) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()
}
