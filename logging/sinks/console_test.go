package sinks

import (
	"bytes"
	"strings"
	"testing"

	"ability-engine/logging"
)

func TestConsoleFormatsEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsole(&buf, logging.ConsoleConfig{})
	err := sink.Write(logging.Event{
		Type:     "ability.started",
		Tick:     7,
		Actor:    logging.EntityRef{ID: "abc", Kind: logging.EntityKindPlayer},
		Targets:  []logging.EntityRef{{ID: "blast#1", Kind: logging.EntityKindAbility}},
		Severity: logging.SeverityWarn,
		Payload:  map[string]int{"id": 1},
	})
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	line := buf.String()
	for _, want := range []string{"[ability.started]", "tick=7", "actor=player:abc", "severity=warn", "targets=ability:blast#1", `payload={"id":1}`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestJSONSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, 0)
	if err := sink.Write(logging.Event{Type: "a", Severity: logging.SeverityError}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"severity":"error"`) {
		t.Fatalf("unexpected json output %q", buf.String())
	}
}
