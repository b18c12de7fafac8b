package sinks

import (
	"context"
	"sync"

	"ability-engine/logging"
)

// MemorySink keeps every event it receives so tests can assert on the
// lifecycle, loader and collision streams.
type MemorySink struct {
	mu     sync.Mutex
	events []logging.Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(event logging.Event) error {
	s.mu.Lock()
	s.events = append(s.events, event.Clone())
	s.mu.Unlock()
	return nil
}

// Publish lets the sink stand in for a Router as a synchronous publisher.
func (s *MemorySink) Publish(_ context.Context, event logging.Event) {
	_ = s.Write(event)
}

func (s *MemorySink) Events() []logging.Event {
	return s.filter(func(logging.Event) bool { return true })
}

// OfType returns the retained events of one type, oldest first.
func (s *MemorySink) OfType(eventType logging.EventType) []logging.Event {
	return s.filter(func(e logging.Event) bool { return e.Type == eventType })
}

// OfCategory returns the retained events of one category, oldest first.
func (s *MemorySink) OfCategory(category string) []logging.Event {
	return s.filter(func(e logging.Event) bool { return e.Category == category })
}

// ForTick returns the events stamped with tick.
func (s *MemorySink) ForTick(tick uint64) []logging.Event {
	return s.filter(func(e logging.Event) bool { return e.Tick == tick })
}

func (s *MemorySink) filter(keep func(logging.Event) bool) []logging.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]logging.Event, 0, len(s.events))
	for _, event := range s.events {
		if keep(event) {
			out = append(out, event)
		}
	}
	return out
}

func (s *MemorySink) Close(context.Context) error {
	return nil
}
