package ability_test

import (
	"fmt"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"ability-engine/internal/ability"
	"ability-engine/internal/ability/mocks"
	"ability-engine/internal/element"
	"ability-engine/internal/telemetry"
)

func TestProgressAllAdvancesEveryLiveInstance(t *testing.T) {
	reg := ability.NewRegistry(ability.Config{})
	blast := newTracker(reg, testDefinition("Blast", "blast"), ownerA)
	shield := newTracker(reg, testDefinition("Shield", "shield"), ownerB)
	idle := newTracker(reg, testDefinition("Idle", "idle"), ownerC)
	reg.Activate(blast)
	reg.Activate(shield)

	report := reg.ProgressAll()
	if report.Progressed != 2 {
		t.Fatalf("expected 2 progressed, got %+v", report)
	}
	if blast.ticks != 1 || shield.ticks != 1 {
		t.Fatalf("expected one tick each, got blast=%d shield=%d", blast.ticks, shield.ticks)
	}
	if idle.ticks != 0 {
		t.Fatalf("expected unactivated instance not to progress")
	}
}

func TestProgressAllToleratesRemovalMidPass(t *testing.T) {
	reg := ability.NewRegistry(ability.Config{})
	def := testDefinition("Blast", "blast")
	first := newTracker(reg, def, ownerA)
	second := newTracker(reg, def, ownerA)
	third := newTracker(reg, def, ownerA)
	first.onTick = func(*tracker) { second.Remove() }
	third.onTick = func(p *tracker) { p.Remove() }
	reg.Activate(first)
	reg.Activate(second)
	reg.Activate(third)

	report := reg.ProgressAll()
	if second.ticks != 0 {
		t.Fatalf("expected sibling removed mid-pass to be skipped")
	}
	if first.ticks != 1 || third.ticks != 1 {
		t.Fatalf("expected first and third to progress once")
	}
	if report.Progressed != 2 {
		t.Fatalf("expected 2 progressed, got %+v", report)
	}
	if live := reg.AllLive(); len(live) != 1 || live[0] != first {
		t.Fatalf("expected only first to survive, got %v", live)
	}
}

func TestProgressAllDefersInstancesActivatedMidPass(t *testing.T) {
	reg := ability.NewRegistry(ability.Config{})
	def := testDefinition("Blast", "blast")
	var spawned *tracker
	spawner := newTracker(reg, def, ownerA)
	spawner.onTick = func(*tracker) {
		if spawned == nil {
			spawned = newTracker(reg, def, ownerA)
			reg.Activate(spawned)
		}
	}
	reg.Activate(spawner)

	reg.ProgressAll()
	if spawned == nil || spawned.ticks != 0 {
		t.Fatalf("expected spawned instance to wait for the next pass")
	}
	reg.ProgressAll()
	if spawned.ticks != 1 {
		t.Fatalf("expected spawned instance to progress on the next pass, got %d", spawned.ticks)
	}
}

func TestProgressAllGatesPassives(t *testing.T) {
	passive := &ability.Definition{Name: "Acrobatics", Type: "acrobatics", Element: element.Chi, Caps: ability.Capabilities{Passive: true}}

	t.Run("missing owner", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		dir := mocks.NewMockDirectory(ctrl)
		dir.EXPECT().Lookup(ownerA).Return(nil, false)
		reg := ability.NewRegistry(ability.Config{Directory: dir})
		p := newTracker(reg, passive, ownerA)
		reg.Activate(p)

		report := reg.ProgressAll()
		if report.Gated != 1 || p.ticks != 0 || !p.IsRemoved() {
			t.Fatalf("expected passive to be removed without progressing, got %+v ticks=%d", report, p.ticks)
		}
	})

	t.Run("offline owner", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		dir := mocks.NewMockDirectory(ctrl)
		actor := mocks.NewMockActor(ctrl)
		dir.EXPECT().Lookup(ownerA).Return(actor, true)
		actor.EXPECT().Online().Return(false)
		reg := ability.NewRegistry(ability.Config{Directory: dir})
		p := newTracker(reg, passive, ownerA)
		reg.Activate(p)

		reg.ProgressAll()
		if p.ticks != 0 || !p.IsRemoved() {
			t.Fatalf("expected offline owner to lose passive")
		}
	})

	t.Run("not permitted", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		dir := mocks.NewMockDirectory(ctrl)
		actor := mocks.NewMockActor(ctrl)
		dir.EXPECT().Lookup(ownerA).Return(actor, true)
		actor.EXPECT().Online().Return(true)
		actor.EXPECT().CanUsePassive(element.Chi).Return(false)
		reg := ability.NewRegistry(ability.Config{Directory: dir})
		p := newTracker(reg, passive, ownerA)
		reg.Activate(p)

		reg.ProgressAll()
		if p.ticks != 0 || !p.IsRemoved() {
			t.Fatalf("expected disallowed passive to be removed")
		}
	})

	t.Run("permitted", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		dir := mocks.NewMockDirectory(ctrl)
		actor := mocks.NewMockActor(ctrl)
		dir.EXPECT().Lookup(ownerA).Return(actor, true).Times(2)
		actor.EXPECT().Online().Return(true).Times(2)
		actor.EXPECT().CanUsePassive(element.Chi).Return(true).Times(2)
		reg := ability.NewRegistry(ability.Config{Directory: dir})
		p := newTracker(reg, passive, ownerA)
		reg.Activate(p)

		reg.ProgressAll()
		reg.ProgressAll()
		if p.ticks != 2 || !p.IsStarted() {
			t.Fatalf("expected permitted passive to keep progressing, ticks=%d", p.ticks)
		}
	})
}

func TestProgressAllGatingDoesNotAbortPass(t *testing.T) {
	passive := &ability.Definition{Name: "Acrobatics", Type: "acrobatics", Element: element.Chi, Caps: ability.Capabilities{Passive: true}}
	reg := ability.NewRegistry(ability.Config{Directory: staticDirectory{}})
	gated := newTracker(reg, passive, ownerA)
	active := newTracker(reg, testDefinition("Blast", "blast"), ownerA)
	reg.Activate(gated)
	reg.Activate(active)

	report := reg.ProgressAll()
	if report.Gated != 1 || report.Progressed != 1 {
		t.Fatalf("expected one gated and one progressed, got %+v", report)
	}
	if active.ticks != 1 {
		t.Fatalf("expected later types to progress after gating")
	}
}

func TestProgressAllRecoversPanics(t *testing.T) {
	var logged []string
	logger := telemetry.LoggerFunc(func(format string, args ...any) {
		logged = append(logged, fmt.Sprintf(format, args...))
	})
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	reg := ability.NewRegistry(ability.Config{Logger: logger, Notifier: notifier})

	broken := newTracker(reg, testDefinition("Broken", "broken"), ownerA)
	broken.onTick = func(*tracker) { panic("boom") }
	healthy := newTracker(reg, testDefinition("Healthy", "healthy"), ownerA)

	notifier.EXPECT().Starting(gomock.Any()).Return(false).Times(2)
	notifier.EXPECT().Ended(broken).Times(1)
	notifier.EXPECT().Progressed(healthy).Times(1)

	reg.Activate(broken)
	reg.Activate(healthy)
	report := reg.ProgressAll()

	if report.Panicked != 1 || report.Progressed != 1 {
		t.Fatalf("expected one panic and one progress, got %+v", report)
	}
	if !broken.IsRemoved() {
		t.Fatalf("expected panicking instance to be removed")
	}
	if len(logged) != 1 || !strings.Contains(logged[0], "boom") {
		t.Fatalf("expected panic to be logged, got %v", logged)
	}
}
