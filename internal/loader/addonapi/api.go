// Package addonapi is the surface exposed to interpreted addon scripts. A
// script imports "addon" and declares
//
//	func Register(r *addon.Registrar)
//
// which the loader calls once after evaluating the file.
package addonapi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/traefik/yaegi/interp"

	"ability-engine/internal/ability"
	"ability-engine/internal/element"
	"ability-engine/internal/geom"
)

// ImportPath is the path scripts import the API under.
const ImportPath = "addon"

var (
	ErrUnknownElement = errors.New("addon: unknown element")
	ErrNoProgress     = errors.New("addon: spec must provide Progress")
)

// Spec is the script-facing description of one ability.
type Spec struct {
	Name         string
	Element      string
	Author       string
	Version      string
	Description  string
	Instructions string
	Radius       float64
	Passive      bool
	Hidden       bool

	// Collidable defaults to true when left nil.
	Collidable *bool

	OnLoad   func() error
	OnStop   func()
	Progress func(inst *Instance)
}

// Instance is the script-facing view of a live addon ability.
type Instance struct {
	mu       sync.Mutex
	ticks    int
	position geom.Vec3
	located  bool
	state    map[string]float64
	ab       *scripted
}

// Ticks returns how many times the instance has progressed.
func (i *Instance) Ticks() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.ticks
}

// Owner returns the owner id as a string.
func (i *Instance) Owner() string {
	return i.ab.Owner().String()
}

// ID returns the registry id.
func (i *Instance) ID() int32 {
	return i.ab.ID()
}

// MoveTo sets the single collision point of the instance.
func (i *Instance) MoveTo(x, y, z float64) {
	i.mu.Lock()
	i.position = geom.V(x, y, z)
	i.located = true
	i.mu.Unlock()
}

// Position returns the current point.
func (i *Instance) Position() (float64, float64, float64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.position.X, i.position.Y, i.position.Z
}

// Set stores a script-defined number on the instance.
func (i *Instance) Set(key string, value float64) {
	i.mu.Lock()
	if i.state == nil {
		i.state = make(map[string]float64)
	}
	i.state[key] = value
	i.mu.Unlock()
}

// Get reads a script-defined number.
func (i *Instance) Get(key string) float64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state[key]
}

// Remove ends the instance.
func (i *Instance) Remove() {
	i.ab.Remove()
}

type scripted struct {
	*ability.Base
	inst     *Instance
	progress func(inst *Instance)
}

func (s *scripted) Progress() {
	s.inst.mu.Lock()
	s.inst.ticks++
	s.inst.mu.Unlock()
	s.progress(s.inst)
}

func (s *scripted) Location() (geom.Vec3, bool) {
	s.inst.mu.Lock()
	defer s.inst.mu.Unlock()
	return s.inst.position, s.inst.located
}

// Registrar collects the definitions a script declares.
type Registrar struct {
	source string

	mu   sync.Mutex
	defs []*ability.Definition
	errs []error
}

// NewRegistrar returns a registrar for the named script.
func NewRegistrar(source string) *Registrar {
	return &Registrar{source: source}
}

// Define converts spec into a definition. Invalid specs are recorded and
// surfaced through Err.
func (r *Registrar) Define(spec Spec) {
	def, err := r.definition(spec)
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", r.source, err))
		return
	}
	r.defs = append(r.defs, def)
}

func (r *Registrar) definition(spec Spec) (*ability.Definition, error) {
	el, ok := element.ByName(spec.Element)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownElement, spec.Element)
	}
	if spec.Progress == nil {
		return nil, fmt.Errorf("%s: %w", spec.Name, ErrNoProgress)
	}
	def := &ability.Definition{
		Name:            spec.Name,
		Type:            ability.Type("addon:" + strings.ToLower(strings.TrimSpace(spec.Name))),
		Element:         el,
		Caps:            ability.Capabilities{Addon: true, Passive: spec.Passive},
		Description:     spec.Description,
		Instructions:    spec.Instructions,
		Hidden:          spec.Hidden,
		CollisionRadius: spec.Radius,
	}
	if spec.Collidable != nil {
		def.IgnoreCollisions = !*spec.Collidable
	}
	if spec.Author != "" || spec.OnLoad != nil || spec.OnStop != nil {
		def.Addon = &ability.AddonInfo{
			Author:  spec.Author,
			Version: spec.Version,
			Load:    spec.OnLoad,
			Stop:    spec.OnStop,
		}
	}
	progress := spec.Progress
	def.New = func(reg *ability.Registry, def *ability.Definition, owner uuid.UUID) ability.Ability {
		s := &scripted{progress: progress}
		s.inst = &Instance{ab: s}
		s.Base = reg.NewBase(s, def, owner)
		return s
	}
	return def, nil
}

// Definitions returns what the script declared.
func (r *Registrar) Definitions() []*ability.Definition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*ability.Definition(nil), r.defs...)
}

// Err joins every rejected spec.
func (r *Registrar) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.errs...)
}

// Exports exposes the API to the interpreter. Yaegi expects keys in the
// "importPath/pkgName" form.
func Exports() interp.Exports {
	return interp.Exports{
		ImportPath + "/" + ImportPath: {
			"Registrar": reflect.ValueOf((*Registrar)(nil)),
			"Spec":      reflect.ValueOf((*Spec)(nil)),
			"Instance":  reflect.ValueOf((*Instance)(nil)),
			"Bool":      reflect.ValueOf(func(v bool) *bool { return &v }),
		},
	}
}
