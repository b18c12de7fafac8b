package main

import "addon"

func Register(r *addon.Registrar) {
	r.Define(addon.Spec{
		Name:    "Tremor",
		Element: "Earth",
		Author:  "ability-engine",
		Version: "1.0.0",
		Radius:  1.5,
		OnLoad:  func() error { return nil },
		OnStop:  func() {},
		Progress: func(inst *addon.Instance) {
			inst.MoveTo(float64(inst.Ticks())*0.5, 0, 0)
			if inst.Ticks() >= 40 {
				inst.Remove()
			}
		},
	})
}
