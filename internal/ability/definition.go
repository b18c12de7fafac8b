package ability

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"ability-engine/internal/element"
)

// DefaultCollisionRadius applies to every location of an ability whose
// definition does not declare its own radius.
const DefaultCollisionRadius = 0.3

// Type identifies an ability implementation independently of its display
// name. Registry indices are keyed by Type.
type Type string

// Capabilities replaces runtime type inspection: every classification the
// catalog and tick dispatcher care about is a flag set once at registration.
type Capabilities struct {
	Combo      bool `json:"combo"`
	MultiStage bool `json:"multiStage"`
	Passive    bool `json:"passive"`
	Addon      bool `json:"addon"`
}

// ClickType is a single input gesture inside a combo sequence.
type ClickType string

const (
	LeftClick      ClickType = "LeftClick"
	RightClick     ClickType = "RightClick"
	ShiftDown      ClickType = "ShiftDown"
	ShiftUp        ClickType = "ShiftUp"
	LeftClickBlock ClickType = "LeftClickBlock"
)

// ComboStep pairs a bound ability with the gesture performed while it is
// selected.
type ComboStep struct {
	Ability string    `json:"ability"`
	Action  ClickType `json:"action"`
}

// AddonInfo is the contract externally packaged abilities must satisfy.
type AddonInfo struct {
	Author  string
	Version string
	Load    func() error
	Stop    func()
}

// Factory constructs a fresh, not yet activated instance of def for owner.
// def is the catalog's copy, which the instance should hand to NewBase.
type Factory func(reg *Registry, def *Definition, owner uuid.UUID) Ability

// Definition is the immutable template for one kind of ability. The catalog
// keeps its own copy, so mutating a Definition after registration has no
// effect on registered state.
type Definition struct {
	Name         string
	Type         Type
	Element      *element.Element
	Caps         Capabilities
	Description  string
	Instructions string
	Hidden       bool

	// IgnoreCollisions opts the whole type out of collision detection.
	IgnoreCollisions bool
	// CollisionRadius overrides DefaultCollisionRadius when positive.
	CollisionRadius float64

	Combination []ComboStep
	Stages      []string
	Addon       *AddonInfo

	New     Factory
	Enabled func() bool
}

var (
	ErrMissingName    = errors.New("definition name must not be empty")
	ErrMissingType    = errors.New("definition type must not be empty")
	ErrMissingElement = errors.New("definition element must not be nil")
	ErrNegativeRadius = errors.New("collision radius must not be negative")
	ErrAddonContract  = errors.New("addon definitions must provide author, load and stop")
)

// Key is the case-insensitive catalog key for the definition.
func (d *Definition) Key() string {
	if d == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(d.Name))
}

// IsEnabled evaluates the enablement predicate lazily. Definitions without a
// predicate are enabled.
func (d *Definition) IsEnabled() bool {
	if d == nil {
		return false
	}
	if d.Enabled == nil {
		return true
	}
	return d.Enabled()
}

// Radius returns the collision radius for a single location.
func (d *Definition) Radius() float64 {
	if d == nil || d.CollisionRadius <= 0 {
		return DefaultCollisionRadius
	}
	return d.CollisionRadius
}

// Collidable reports whether instances of this type take part in collisions.
func (d *Definition) Collidable() bool {
	return d != nil && !d.IgnoreCollisions
}

// Instantiable reports whether the definition can create live instances.
func (d *Definition) Instantiable() bool {
	return d != nil && d.New != nil
}

// Instantiate builds a new instance through the factory. It returns nil for
// definitions without one.
func (d *Definition) Instantiate(reg *Registry, owner uuid.UUID) Ability {
	if !d.Instantiable() {
		return nil
	}
	return d.New(reg, d, owner)
}

// HasAddonContract reports whether the addon hooks are present.
func (d *Definition) HasAddonContract() bool {
	return d != nil && d.Addon != nil && d.Addon.Author != "" && d.Addon.Load != nil && d.Addon.Stop != nil
}

// Validate checks the structural requirements for catalog registration.
func (d *Definition) Validate() error {
	if d == nil {
		return ErrMissingName
	}
	if strings.TrimSpace(d.Name) == "" {
		return ErrMissingName
	}
	if strings.TrimSpace(string(d.Type)) == "" {
		return fmt.Errorf("%s: %w", d.Name, ErrMissingType)
	}
	if d.Element == nil {
		return fmt.Errorf("%s: %w", d.Name, ErrMissingElement)
	}
	if d.CollisionRadius < 0 {
		return fmt.Errorf("%s: %w", d.Name, ErrNegativeRadius)
	}
	if d.Caps.Addon && !d.HasAddonContract() {
		return fmt.Errorf("%s: %w", d.Name, ErrAddonContract)
	}
	return nil
}

// Clone returns a deep copy safe to hand to another owner.
func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	cloned := *d
	if len(d.Combination) > 0 {
		cloned.Combination = append([]ComboStep(nil), d.Combination...)
	}
	if len(d.Stages) > 0 {
		cloned.Stages = append([]string(nil), d.Stages...)
	}
	if d.Addon != nil {
		addon := *d.Addon
		cloned.Addon = &addon
	}
	return &cloned
}

func (d *Definition) String() string {
	if d == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s(%s/%s)", d.Name, d.Element.Name(), d.Type)
}
