package collision

import (
	"errors"
	"fmt"

	"ability-engine/internal/ability"
)

// ErrUnknownAbility is returned when a configured pair names an ability the
// resolver does not know.
var ErrUnknownAbility = errors.New("collision: unknown ability")

// PairSpec is the configuration form of a Pair, naming abilities by their
// catalog names.
type PairSpec struct {
	First        string `yaml:"first" json:"first" jsonschema:"required"`
	Second       string `yaml:"second" json:"second" jsonschema:"required"`
	RemoveFirst  bool   `yaml:"removeFirst" json:"removeFirst,omitempty"`
	RemoveSecond bool   `yaml:"removeSecond" json:"removeSecond,omitempty"`
}

// Resolver maps ability names to definitions.
type Resolver interface {
	Lookup(name string) (*ability.Definition, bool)
}

// Initializer registers configured pairs with a Manager once the catalog is
// populated.
type Initializer struct {
	manager  *Manager
	resolver Resolver
}

// NewInitializer binds an Initializer to its manager and resolver.
func NewInitializer(manager *Manager, resolver Resolver) *Initializer {
	return &Initializer{manager: manager, resolver: resolver}
}

// Initialize resolves every spec and adds the resulting pairs. Unknown names
// are skipped and reported together; valid pairs are still registered.
func (i *Initializer) Initialize(specs []PairSpec) (int, error) {
	if i == nil || i.manager == nil || i.resolver == nil {
		return 0, nil
	}
	var errs []error
	added := 0
	for _, spec := range specs {
		first, ok := i.resolver.Lookup(spec.First)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownAbility, spec.First))
			continue
		}
		second, ok := i.resolver.Lookup(spec.Second)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownAbility, spec.Second))
			continue
		}
		i.manager.Add(Pair{
			First:        first.Type,
			Second:       second.Type,
			RemoveFirst:  spec.RemoveFirst,
			RemoveSecond: spec.RemoveSecond,
		})
		added++
	}
	return added, errors.Join(errs...)
}
