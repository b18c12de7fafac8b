package logging_test

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"ability-engine/logging"
	"ability-engine/logging/sinks"
)

func fixedClock() logging.Clock {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return logging.ClockFunc(func() time.Time { return at })
}

func TestRouterDeliversToSinksAndStampsTime(t *testing.T) {
	memory := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"node": "test"}
	router := logging.NewRouter(fixedClock(), cfg, log.New(io.Discard, "", 0), []logging.NamedSink{{Name: "memory", Sink: memory}})

	router.Publish(context.Background(), logging.Event{Type: "test.event", Severity: logging.SeverityInfo})
	router.Publish(context.Background(), logging.Event{Type: "test.debug", Severity: logging.SeverityDebug})
	router.Publish(context.Background(), logging.Event{})

	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event after severity filtering, got %d", len(events))
	}
	if events[0].Time.IsZero() {
		t.Fatalf("expected router to stamp event time")
	}
	if events[0].Extra["node"] != "test" {
		t.Fatalf("expected global field to be merged, got %v", events[0].Extra)
	}
	if stats := router.Stats(); stats.EventsTotal != 1 {
		t.Fatalf("expected 1 forwarded event, got %d", stats.EventsTotal)
	}
	if got := router.Metrics().Value("events.test.event"); got != 1 {
		t.Fatalf("expected per-type counter 1, got %d", got)
	}
	if router.Sink("memory") != memory {
		t.Fatalf("expected sink lookup by name")
	}
}

func TestRouterPublishAfterCloseIsIgnored(t *testing.T) {
	memory := sinks.NewMemorySink()
	router := logging.NewRouter(fixedClock(), logging.DefaultConfig(), log.New(io.Discard, "", 0), []logging.NamedSink{{Name: "memory", Sink: memory}})
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	router.Publish(context.Background(), logging.Event{Type: "late", Severity: logging.SeverityError})
	if len(memory.Events()) != 0 {
		t.Fatalf("expected no events after close")
	}
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
}

func TestRouterStatsCountCategories(t *testing.T) {
	memory := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.MutedCategories = []string{logging.CategorySystem}
	router := logging.NewRouter(fixedClock(), cfg, log.New(io.Discard, "", 0), []logging.NamedSink{{Name: "memory", Sink: memory}})

	events := []logging.Event{
		{Type: "ability.started", Category: logging.CategoryLifecycle, Severity: logging.SeverityInfo, Extra: map[string]any{"node": "kept"}},
		{Type: "ability.removed", Category: logging.CategoryLifecycle, Severity: logging.SeverityInfo},
		{Type: "addon.failed", Category: logging.CategoryLoader, Severity: logging.SeverityError},
		{Type: "server.started", Category: logging.CategorySystem, Severity: logging.SeverityInfo},
	}
	for _, event := range events {
		router.Publish(context.Background(), event)
	}
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	stats := router.Stats()
	if stats.EventsTotal != 3 || stats.MutedTotal != 1 || stats.DroppedTotal != 0 {
		t.Fatalf("unexpected totals %+v", stats)
	}
	if stats.ByCategory[logging.CategoryLifecycle] != 2 || stats.ByCategory[logging.CategoryLoader] != 1 {
		t.Fatalf("unexpected category counts %v", stats.ByCategory)
	}
	if _, ok := stats.ByCategory[logging.CategorySystem]; ok {
		t.Fatalf("expected muted category to be absent, got %v", stats.ByCategory)
	}
	if got := memory.OfCategory(logging.CategoryLifecycle); len(got) != 2 || got[0].Extra["node"] != "kept" {
		t.Fatalf("expected lifecycle events in order, got %+v", got)
	}
}

func TestNilRouterIsInert(t *testing.T) {
	var router *logging.Router
	router.Publish(context.Background(), logging.Event{Type: "x"})
	if stats := router.Stats(); stats.EventsTotal != 0 || stats.ByCategory != nil {
		t.Fatalf("expected empty stats, got %+v", stats)
	}
	if router.Sink("memory") != nil || router.Close(context.Background()) != nil {
		t.Fatalf("expected nil router to be a no-op")
	}
}

func TestParseSeverity(t *testing.T) {
	cases := map[string]logging.Severity{
		"debug":   logging.SeverityDebug,
		"INFO":    logging.SeverityInfo,
		"warning": logging.SeverityWarn,
		"error":   logging.SeverityError,
	}
	for raw, want := range cases {
		got, ok := logging.ParseSeverity(raw)
		if !ok || got != want {
			t.Fatalf("ParseSeverity(%q) = %v, %v; want %v", raw, got, ok, want)
		}
	}
	if _, ok := logging.ParseSeverity("loud"); ok {
		t.Fatalf("expected unknown severity to report false")
	}
}

func TestRouterDropsMutedCategories(t *testing.T) {
	memory := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.MutedCategories = []string{"Collision"}
	router := logging.NewRouter(fixedClock(), cfg, log.New(io.Discard, "", 0), []logging.NamedSink{{Name: "memory", Sink: memory}})

	router.Publish(context.Background(), logging.Event{Type: "collision.detected", Category: logging.CategoryCollision, Severity: logging.SeverityInfo})
	router.Publish(context.Background(), logging.Event{Type: "ability.started", Category: logging.CategoryLifecycle, Severity: logging.SeverityInfo})
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	events := memory.OfCategory(logging.CategoryLifecycle)
	if len(events) != 1 || events[0].Type != "ability.started" || len(memory.Events()) != 1 {
		t.Fatalf("expected only the lifecycle event, got %+v", events)
	}
	if got := router.Metrics().Value("events.muted"); got != 1 {
		t.Fatalf("expected one muted event, got %d", got)
	}
}
