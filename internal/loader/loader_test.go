package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"ability-engine/internal/ability"
	"ability-engine/internal/catalog"
	"ability-engine/internal/element"
	"ability-engine/internal/geom"
)

type stub struct {
	*ability.Base
}

func (s *stub) Progress() {}

func newStub(reg *ability.Registry, def *ability.Definition, owner uuid.UUID) ability.Ability {
	s := &stub{}
	s.Base = reg.NewBase(s, def, owner)
	return s
}

func describe(name string) Descriptor {
	return func() (*ability.Definition, error) {
		return &ability.Definition{Name: name, Type: ability.Type(name), Element: element.Fire, New: newStub}, nil
	}
}

func TestRegisterPluginIsolatesFailures(t *testing.T) {
	l := New(Config{})
	disabled := func() (*ability.Definition, error) {
		return &ability.Definition{Name: "Off", Type: "off", Element: element.Fire, New: newStub, Enabled: func() bool { return false }}, nil
	}

	report := l.RegisterPlugin("core", []Descriptor{
		describe("first"),
		func() (*ability.Definition, error) { panic("constructor exploded") },
		func() (*ability.Definition, error) { return nil, errors.New("broken") },
		func() (*ability.Definition, error) { return nil, nil },
		func() (*ability.Definition, error) {
			return &ability.Definition{Name: "NoFactory", Type: "nofactory", Element: element.Fire}, nil
		},
		disabled,
		disabled,
		describe("second"),
	})

	if len(report.Registered) != 2 || report.Registered[0] != "first" || report.Registered[1] != "second" {
		t.Fatalf("expected both healthy descriptors to register, got %v", report.Registered)
	}
	if len(report.Failed) != 2 {
		t.Fatalf("expected two failures, got %v", report.Failed)
	}
	if len(report.Skipped) != 2 {
		t.Fatalf("expected two incomplete definitions, got %v", report.Skipped)
	}
	if len(report.Disabled) != 1 {
		t.Fatalf("expected disabled definition to be reported once, got %v", report.Disabled)
	}
	if l.Catalog().Len() != 2 || l.Catalog().Contains("Off") {
		t.Fatalf("unexpected catalog contents: %v", l.Catalog().All())
	}
}

func TestEnablementIsConsulted(t *testing.T) {
	l := New(Config{Enablement: func(def *ability.Definition) bool { return def.Name != "blocked" }})
	report := l.RegisterPlugin("core", []Descriptor{describe("allowed"), describe("blocked")})
	if len(report.Registered) != 1 || report.Registered[0] != "allowed" {
		t.Fatalf("expected only allowed to register, got %+v", report)
	}
}

func TestPluginAddonLoadFailureUnwinds(t *testing.T) {
	l := New(Config{})
	stopped := 0
	report := l.RegisterPlugin("core", []Descriptor{func() (*ability.Definition, error) {
		return &ability.Definition{
			Name:    "Fragile",
			Type:    "fragile",
			Element: element.Earth,
			Caps:    ability.Capabilities{Addon: true},
			New:     newStub,
			Addon: &ability.AddonInfo{
				Author: "someone",
				Load:   func() error { return errors.New("no resources") },
				Stop:   func() { stopped++ },
			},
		}, nil
	}})

	if _, ok := report.Failed["Fragile"]; !ok {
		t.Fatalf("expected failure to be reported, got %+v", report)
	}
	if stopped != 1 {
		t.Fatalf("expected stop hook to run once, ran %d", stopped)
	}
	if l.Catalog().Contains("Fragile") {
		t.Fatalf("expected failed addon to be removed from the catalog")
	}
}

func TestAddonLoadFailureKeepsBuiltin(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "doomed.go", failingLoadScript)

	l := New(Config{})
	l.RegisterPlugin("core", []Descriptor{describe("Doomed")})
	report := l.RegisterAddons(dir)

	if _, ok := report.Failed["Doomed"]; !ok {
		t.Fatalf("expected addon failure to be reported, got %+v", report)
	}
	def, ok := l.Catalog().Lookup("Doomed")
	if !ok || def.Type != "Doomed" || def.Caps.Addon {
		t.Fatalf("expected built-in Doomed to survive, got %v", def)
	}
	if _, ok := l.Catalog().LookupType("Doomed"); !ok {
		t.Fatalf("expected built-in type index to survive")
	}
}

const offScript = `package main

import "addon"

func Register(r *addon.Registrar) {
	r.Define(addon.Spec{
		Name:     "Off",
		Element:  "Fire",
		Author:   "tester",
		OnLoad:   func() error { return nil },
		OnStop:   func() {},
		Progress: func(inst *addon.Instance) {},
	})
}
`

func TestRegisterAllReportsDisabledOnce(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "off.go", offScript)

	l := New(Config{Enablement: func(def *ability.Definition) bool { return def.Name != "Off" }})
	for round := 0; round < 2; round++ {
		report := l.RegisterAll("core", []Descriptor{describe("Off"), describe("On")}, dir)
		if len(report.Disabled) != 1 || report.Disabled[0] != "Off" {
			t.Fatalf("round %d: expected Off reported disabled once, got %v", round, report.Disabled)
		}
		if !l.Catalog().Contains("On") || l.Catalog().Contains("Off") {
			t.Fatalf("round %d: unexpected catalog %v", round, l.Catalog().All())
		}
	}
}

func TestRegisterAllClearsCatalog(t *testing.T) {
	c := catalog.New()
	if err := c.Register(&ability.Definition{Name: "Stale", Type: "stale", Element: element.Air, New: newStub}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	l := New(Config{Catalog: c})
	l.RegisterAll("core", []Descriptor{describe("fresh")}, "")
	if c.Contains("Stale") || !c.Contains("fresh") {
		t.Fatalf("expected reload to replace the catalog, got %v", c.All())
	}
}

func TestRegisterAddonsCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "addons")
	report := New(Config{}).RegisterAddons(dir)
	if len(report.Registered) != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected addon directory to be created: %v", err)
	}
}

const gustScript = `package main

import "addon"

func Register(r *addon.Registrar) {
	r.Define(addon.Spec{
		Name:    "Gust",
		Element: "Air",
		Author:  "tester",
		Version: "1.0.0",
		Radius:  0.5,
		OnLoad:  func() error { return nil },
		OnStop:  func() {},
		Progress: func(inst *addon.Instance) {
			inst.MoveTo(float64(inst.Ticks()), 0, 0)
			if inst.Ticks() >= 3 {
				inst.Remove()
			}
		},
	})
}
`

const anonymousScript = `package main

import "addon"

func Register(r *addon.Registrar) {
	r.Define(addon.Spec{
		Name:     "Nameless",
		Element:  "Water",
		Progress: func(inst *addon.Instance) {},
	})
}
`

const failingLoadScript = `package main

import (
	"addon"
	"errors"
)

func Register(r *addon.Registrar) {
	r.Define(addon.Spec{
		Name:     "Doomed",
		Element:  "Fire",
		Author:   "tester",
		OnLoad:   func() error { return errors.New("missing config") },
		OnStop:   func() {},
		Progress: func(inst *addon.Instance) {},
	})
}
`

func writeScript(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestRegisterAddonsInterpretsScripts(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a_gust.go", gustScript)
	writeScript(t, dir, "b_broken.go", "package main\nfunc Register( {")
	writeScript(t, dir, "c_anonymous.go", anonymousScript)
	writeScript(t, dir, "d_doomed.go", failingLoadScript)
	writeScript(t, dir, "e_noentry.go", "package main\n\nfunc helper() {}\n")

	l := New(Config{})
	report := l.RegisterAddons(dir)

	if len(report.Registered) != 1 || report.Registered[0] != "Gust" {
		t.Fatalf("expected Gust to register, got %+v", report)
	}
	if _, ok := report.Failed["b_broken.go"]; !ok {
		t.Fatalf("expected broken script to fail, got %+v", report.Failed)
	}
	if _, ok := report.Failed["e_noentry.go"]; !ok {
		t.Fatalf("expected script without entry point to fail, got %+v", report.Failed)
	}
	if _, ok := report.Failed["Doomed"]; !ok || l.Catalog().Contains("Doomed") {
		t.Fatalf("expected failing load hook to unload the addon, got %+v", report.Failed)
	}
	if len(report.Skipped) != 1 || report.Skipped[0] != "Nameless" {
		t.Fatalf("expected addon without contract to be skipped, got %v", report.Skipped)
	}

	def, ok := l.Catalog().Lookup("gust")
	if !ok || !def.Caps.Addon || def.Radius() != 0.5 {
		t.Fatalf("expected addon definition in catalog, got %v", def)
	}

	reg := ability.NewRegistry(ability.Config{})
	inst := def.Instantiate(reg, uuid.New())
	reg.Activate(inst)
	for i := 0; i < 3; i++ {
		reg.ProgressAll()
	}
	if !inst.IsRemoved() {
		t.Fatalf("expected scripted ability to remove itself after three ticks")
	}
	if locs := inst.Locations(); len(locs) != 1 || locs[0] != geom.V(3, 0, 0) {
		t.Fatalf("expected scripted location to track ticks, got %v", locs)
	}
}
