package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"ability-engine/internal/element"
	"ability-engine/internal/geom"
	"ability-engine/internal/sim"
	"ability-engine/internal/telemetry"
)

const testConfig = `
Server:
  tickRate: 10
  perActorCommandLimit: 2
  addonDir: %ADDONS%
Logging:
  sinks: []
Abilities:
  Fire:
    Combo:
      Inferno:
        Enabled: false
`

const testAddon = `package main

import "addon"

func Register(r *addon.Registrar) {
	r.Define(addon.Spec{
		Name:    "Boulder",
		Element: "Earth",
		Author:  "tests",
		Version: "1.0",
		Radius:  1,
		OnLoad:  func() error { return nil },
		OnStop:  func() {},
		Progress: func(inst *addon.Instance) {
			inst.MoveTo(float64(inst.Ticks()), 0, 0)
		},
	})
}
`

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	addons := filepath.Join(dir, "addons")
	if err := os.MkdirAll(addons, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(addons, "boulder.go"), []byte(testAddon), 0o644); err != nil {
		t.Fatalf("write addon: %v", err)
	}
	path := filepath.Join(dir, "config.yml")
	body := strings.ReplaceAll(testConfig, "%ADDONS%", addons)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestBuildWiresConfiguredRuntime(t *testing.T) {
	rt, err := Build(Config{
		ConfigPath: writeFixture(t),
		Logger:     telemetry.NopLogger(),
		Getenv:     func(string) string { return "" },
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer rt.Router.Close(context.Background())

	if rt.Document.Server.TickRate != 10 {
		t.Fatalf("expected tick rate from file, got %d", rt.Document.Server.TickRate)
	}
	if rt.Document.Server.PerActorCommandLimit != 2 {
		t.Fatalf("expected per-actor limit from file, got %d", rt.Document.Server.PerActorCommandLimit)
	}
	rt.Register(telemetry.NopLogger())

	cat := rt.Engine.Catalog()
	if !cat.Contains("Boulder") {
		t.Fatalf("expected addon definition registered")
	}
	if cat.Contains("Inferno") {
		t.Fatalf("expected Inferno left out by config")
	}
	if !cat.Contains("Blast") {
		t.Fatalf("expected built-ins registered")
	}

	owner := rt.Roster.Join(uuid.Nil, "Toph", element.Earth).ID()
	if _, err := rt.Engine.Activate(owner, "Boulder", geom.Vec3{}, geom.Vec3{}); err != nil {
		t.Fatalf("activate addon: %v", err)
	}
	if _, err := rt.Engine.Activate(owner, "Inferno", geom.Vec3{}, geom.Vec3{}); !errors.Is(err, sim.ErrUnknownAbility) {
		t.Fatalf("expected Inferno to be unknown, got %v", err)
	}
	rt.Engine.Tick()
	if rt.Engine.Registry().Len() != 1 {
		t.Fatalf("expected one live instance, got %d", rt.Engine.Registry().Len())
	}

	throttled := uuid.New()
	for i := 0; i < 2; i++ {
		if ok, reason := rt.Engine.Enqueue(sim.Command{ActorID: throttled, Type: sim.CommandCancel}); !ok {
			t.Fatalf("command %d rejected: %s", i, reason)
		}
	}
	if ok, reason := rt.Engine.Enqueue(sim.Command{ActorID: throttled, Type: sim.CommandCancel}); ok || reason != sim.CommandRejectQueueLimit {
		t.Fatalf("expected per-actor limit, got ok=%v reason=%q", ok, reason)
	}

	rec := httptest.NewRecorder()
	rt.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected health ok, got %d", rec.Code)
	}
}

func TestBuildAppliesEnvironment(t *testing.T) {
	env := map[string]string{
		"ABILITY_TICK_RATE": "30",
		EnvEnablePprof:      "true",
	}
	rt, err := Build(Config{
		ConfigPath: filepath.Join(t.TempDir(), "missing.yml"),
		Logger:     telemetry.NopLogger(),
		Getenv:     func(key string) string { return env[key] },
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer rt.Router.Close(context.Background())

	if rt.Document.Server.TickRate != 30 {
		t.Fatalf("expected env tick rate, got %d", rt.Document.Server.TickRate)
	}
	rec := httptest.NewRecorder()
	rt.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected pprof enabled by env, got %d", rec.Code)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	path := writeFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(ctx, Config{
		ConfigPath: path,
		Logger:     telemetry.NopLogger(),
		Getenv: func(key string) string {
			if key == "ABILITY_HTTP_ADDR" {
				return "127.0.0.1:0"
			}
			return ""
		},
	})
	if err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
}
