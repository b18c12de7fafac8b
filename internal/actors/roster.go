// Package actors keeps the session-side view of connected players that the
// ability registry resolves owners through.
package actors

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ability-engine/internal/ability"
	"ability-engine/internal/element"
	"ability-engine/internal/telemetry"
)

const (
	// DefaultHeartbeatTimeout marks a player offline after this much silence.
	DefaultHeartbeatTimeout = 10 * time.Second

	metricOnline = "actors.online"
	metricKnown  = "actors.known"
)

// Player is an immutable snapshot of a roster entry.
type Player struct {
	id            uuid.UUID
	name          string
	online        bool
	lastHeartbeat time.Time
	lastRTT       time.Duration
	elements      []*element.Element
	passives      bool
}

func (p Player) ID() uuid.UUID { return p.id }
func (p Player) Name() string  { return p.name }
func (p Player) Online() bool  { return p.online }

// LastHeartbeat returns when the player was last heard from.
func (p Player) LastHeartbeat() time.Time { return p.lastHeartbeat }

// Elements returns the elements the player has been granted.
func (p Player) Elements() []*element.Element {
	return append([]*element.Element(nil), p.elements...)
}

// CanUsePassive reports whether the player holds the root element of el and
// has passives toggled on.
func (p Player) CanUsePassive(el *element.Element) bool {
	if !p.passives || el == nil {
		return false
	}
	root := el.Root()
	for _, held := range p.elements {
		if held == root || held == el {
			return true
		}
	}
	return false
}

type playerState struct {
	Player
}

// DiagnosticsPlayer is the roster entry shape exposed over diagnostics.
type DiagnosticsPlayer struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Online        bool     `json:"online"`
	Elements      []string `json:"elements,omitempty"`
	LastHeartbeat int64    `json:"lastHeartbeat"`
	RTTMillis     int64    `json:"rttMillis"`
}

// Config wires a Roster.
type Config struct {
	Clock   func() time.Time
	Timeout time.Duration
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
}

// Roster is a concurrency-safe ability.Directory.
type Roster struct {
	now     func() time.Time
	timeout time.Duration
	logger  telemetry.Logger
	metrics telemetry.Metrics

	mu      sync.RWMutex
	players map[uuid.UUID]*playerState
}

// NewRoster constructs an empty roster.
func NewRoster(cfg Config) *Roster {
	r := &Roster{
		now:     cfg.Clock,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		players: make(map[uuid.UUID]*playerState),
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.timeout <= 0 {
		r.timeout = DefaultHeartbeatTimeout
	}
	if r.logger == nil {
		r.logger = telemetry.NopLogger()
	}
	if r.metrics == nil {
		r.metrics = telemetry.NopMetrics()
	}
	return r
}

// Join registers or revives a player. A nil id allocates a fresh one.
func (r *Roster) Join(id uuid.UUID, name string, elements ...*element.Element) Player {
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := r.now()
	r.mu.Lock()
	state, ok := r.players[id]
	if !ok {
		state = &playerState{Player: Player{id: id, passives: true}}
		r.players[id] = state
	}
	state.name = name
	state.online = true
	state.lastHeartbeat = now
	if len(elements) > 0 {
		state.elements = append([]*element.Element(nil), elements...)
	}
	snapshot := state.Player
	r.publishCountsLocked()
	r.mu.Unlock()
	return snapshot
}

// Leave marks a player offline without forgetting it.
func (r *Roster) Leave(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.players[id]
	if !ok {
		return false
	}
	state.online = false
	r.publishCountsLocked()
	return true
}

// Forget drops a player entirely. Later lookups report it absent.
func (r *Roster) Forget(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[id]; !ok {
		return false
	}
	delete(r.players, id)
	r.publishCountsLocked()
	return true
}

// Heartbeat records activity and the round trip measured from clientSent,
// a unix millisecond timestamp. It revives offline players.
func (r *Roster) Heartbeat(id uuid.UUID, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.players[id]
	if !ok {
		return 0, false
	}
	state.lastHeartbeat = receivedAt
	if !state.online {
		state.online = true
		r.publishCountsLocked()
	}
	if clientSent > 0 {
		clientTime := time.UnixMilli(clientSent)
		if clientTime.Before(receivedAt.Add(5 * time.Second)) {
			rtt := receivedAt.Sub(clientTime)
			if rtt < 0 {
				rtt = 0
			}
			state.lastRTT = rtt
		}
	}
	return state.lastRTT, true
}

// Grant replaces the element set of a player.
func (r *Roster) Grant(id uuid.UUID, elements ...*element.Element) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.players[id]
	if !ok {
		return false
	}
	state.elements = append([]*element.Element(nil), elements...)
	return true
}

// TogglePassives switches passive abilities on or off for a player.
func (r *Roster) TogglePassives(id uuid.UUID, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.players[id]
	if !ok {
		return false
	}
	state.passives = enabled
	return true
}

// Lookup implements ability.Directory.
func (r *Roster) Lookup(id uuid.UUID) (ability.Actor, bool) {
	p, ok := r.Player(id)
	if !ok {
		return nil, false
	}
	return p, true
}

// Player returns a snapshot of one entry.
func (r *Roster) Player(id uuid.UUID) (Player, bool) {
	if r == nil {
		return Player{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.players[id]
	if !ok {
		return Player{}, false
	}
	snapshot := state.Player
	snapshot.elements = append([]*element.Element(nil), state.elements...)
	return snapshot, true
}

// Online returns the online players sorted by name.
func (r *Roster) Online() []Player {
	r.mu.RLock()
	out := make([]Player, 0, len(r.players))
	for _, state := range r.players {
		if state.online {
			snapshot := state.Player
			snapshot.elements = append([]*element.Element(nil), state.elements...)
			out = append(out, snapshot)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].name != out[j].name {
			return out[i].name < out[j].name
		}
		return out[i].id.String() < out[j].id.String()
	})
	return out
}

// Sweep marks players silent for longer than the timeout as offline and
// returns their ids.
func (r *Roster) Sweep(now time.Time) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stale []uuid.UUID
	for id, state := range r.players {
		if state.online && now.Sub(state.lastHeartbeat) > r.timeout {
			state.online = false
			stale = append(stale, id)
			r.logger.Printf("[actors] marking %s offline due to heartbeat timeout", state.name)
		}
	}
	if len(stale) > 0 {
		r.publishCountsLocked()
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].String() < stale[j].String() })
	return stale
}

// RunSweeper sweeps every interval until ctx is done.
func (r *Roster) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = r.timeout / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep(r.now())
		}
	}
}

// DiagnosticsSnapshot exposes heartbeat data for the diagnostics endpoint.
func (r *Roster) DiagnosticsSnapshot() []DiagnosticsPlayer {
	r.mu.RLock()
	out := make([]DiagnosticsPlayer, 0, len(r.players))
	for _, state := range r.players {
		entry := DiagnosticsPlayer{
			ID:            state.id.String(),
			Name:          state.name,
			Online:        state.online,
			LastHeartbeat: state.lastHeartbeat.UnixMilli(),
			RTTMillis:     state.lastRTT.Milliseconds(),
		}
		for _, el := range state.elements {
			entry.Elements = append(entry.Elements, el.Name())
		}
		out = append(out, entry)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Roster) publishCountsLocked() {
	online := 0
	for _, state := range r.players {
		if state.online {
			online++
		}
	}
	r.metrics.Store(metricOnline, uint64(online))
	r.metrics.Store(metricKnown, uint64(len(r.players)))
}

var _ ability.Directory = (*Roster)(nil)
