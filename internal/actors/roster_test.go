package actors

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"ability-engine/internal/ability"
	"ability-engine/internal/element"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestRoster(clock *fakeClock) *Roster {
	return NewRoster(Config{Clock: clock.Now, Timeout: 5 * time.Second})
}

func TestJoinAndLookup(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	roster := newTestRoster(clock)

	id := uuid.New()
	roster.Join(id, "Aang", element.Air, element.Water)

	actor, ok := roster.Lookup(id)
	if !ok {
		t.Fatalf("expected player to be present")
	}
	if actor.Name() != "Aang" || !actor.Online() || actor.ID() != id {
		t.Fatalf("unexpected actor %+v", actor)
	}
	if _, ok := roster.Lookup(uuid.New()); ok {
		t.Fatalf("unknown ids must be absent")
	}
}

func TestJoinAllocatesID(t *testing.T) {
	roster := newTestRoster(&fakeClock{now: time.Unix(0, 0)})
	p := roster.Join(uuid.Nil, "Zuko")
	if p.ID() == uuid.Nil {
		t.Fatalf("expected an allocated id")
	}
}

func TestCanUsePassive(t *testing.T) {
	roster := newTestRoster(&fakeClock{now: time.Unix(0, 0)})
	id := uuid.New()
	roster.Join(id, "Toph", element.Earth)

	tests := []struct {
		name string
		el   *element.Element
		want bool
	}{
		{name: "root element", el: element.Earth, want: true},
		{name: "sub-element of held root", el: element.Metal, want: true},
		{name: "foreign element", el: element.Fire, want: false},
		{name: "nil element", el: nil, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			actor, _ := roster.Lookup(id)
			if got := actor.CanUsePassive(tc.el); got != tc.want {
				t.Fatalf("CanUsePassive(%v) = %v, want %v", tc.el, got, tc.want)
			}
		})
	}

	roster.TogglePassives(id, false)
	actor, _ := roster.Lookup(id)
	if actor.CanUsePassive(element.Earth) {
		t.Fatalf("passives toggled off must deny every element")
	}
}

func TestSweepMarksSilentPlayersOffline(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	roster := newTestRoster(clock)

	quiet := uuid.New()
	chatty := uuid.New()
	roster.Join(quiet, "Quiet")
	roster.Join(chatty, "Chatty")

	clock.now = clock.now.Add(4 * time.Second)
	roster.Heartbeat(chatty, clock.now, 0)

	clock.now = clock.now.Add(3 * time.Second)
	stale := roster.Sweep(clock.now)
	if len(stale) != 1 || stale[0] != quiet {
		t.Fatalf("expected only the quiet player to time out, got %v", stale)
	}
	if p, _ := roster.Player(quiet); p.Online() {
		t.Fatalf("expected quiet player offline")
	}
	if online := roster.Online(); len(online) != 1 || online[0].ID() != chatty {
		t.Fatalf("unexpected online set %v", online)
	}

	roster.Heartbeat(quiet, clock.now, 0)
	if p, _ := roster.Player(quiet); !p.Online() {
		t.Fatalf("heartbeat must revive the player")
	}
}

func TestHeartbeatRTT(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	roster := newTestRoster(clock)
	id := uuid.New()
	roster.Join(id, "Katara")

	received := time.UnixMilli(2_000_250)
	rtt, ok := roster.Heartbeat(id, received, 2_000_000)
	if !ok || rtt != 250*time.Millisecond {
		t.Fatalf("expected 250ms rtt, got %v (ok=%v)", rtt, ok)
	}
	if _, ok := roster.Heartbeat(uuid.New(), received, 0); ok {
		t.Fatalf("unknown player heartbeat must fail")
	}
}

func TestLeaveAndForget(t *testing.T) {
	roster := newTestRoster(&fakeClock{now: time.Unix(0, 0)})
	id := uuid.New()
	roster.Join(id, "Sokka")

	roster.Leave(id)
	actor, ok := roster.Lookup(id)
	if !ok || actor.Online() {
		t.Fatalf("left players stay known but offline")
	}
	roster.Forget(id)
	if _, ok := roster.Lookup(id); ok {
		t.Fatalf("forgotten players must be absent")
	}
}

func TestRosterGatesPassivesInRegistry(t *testing.T) {
	roster := newTestRoster(&fakeClock{now: time.Unix(0, 0)})
	reg := ability.NewRegistry(ability.Config{Directory: roster})

	id := uuid.New()
	roster.Join(id, "Ty Lee", element.Chi)

	def := &ability.Definition{Name: "Acrobatics", Type: "acrobatics", Element: element.Chi, Caps: ability.Capabilities{Passive: true}}
	p := &idle{}
	p.Base = reg.NewBase(p, def, id)
	reg.Activate(p)

	reg.ProgressAll()
	if p.ticks != 1 || p.IsRemoved() {
		t.Fatalf("expected passive to progress while online")
	}

	roster.Leave(id)
	reg.ProgressAll()
	if !p.IsRemoved() || p.ticks != 1 {
		t.Fatalf("expected passive removed once owner went offline")
	}
}

type idle struct {
	*ability.Base
	ticks int
}

func (i *idle) Progress() { i.ticks++ }

func TestRunSweeperStopsWithContext(t *testing.T) {
	roster := newTestRoster(&fakeClock{now: time.Unix(0, 0)})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- roster.RunSweeper(ctx, time.Millisecond) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("sweeper did not stop")
	}
}

func TestDiagnosticsSnapshot(t *testing.T) {
	roster := newTestRoster(&fakeClock{now: time.UnixMilli(42)})
	id := uuid.New()
	roster.Join(id, "Iroh", element.Fire)

	snapshot := roster.DiagnosticsSnapshot()
	if len(snapshot) != 1 {
		t.Fatalf("expected one entry, got %d", len(snapshot))
	}
	entry := snapshot[0]
	if entry.ID != id.String() || entry.LastHeartbeat != 42 || len(entry.Elements) != 1 || entry.Elements[0] != "Fire" {
		t.Fatalf("unexpected entry %+v", entry)
	}
}
