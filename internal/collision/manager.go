// Package collision detects overlaps between live ability instances of
// monitored type pairs and dispatches the resolution callbacks.
package collision

import (
	"context"
	"fmt"
	"sync"

	"ability-engine/internal/ability"
	"ability-engine/internal/geom"
	"ability-engine/internal/telemetry"
	"ability-engine/logging"
	collisionLog "ability-engine/logging/collision"
)

const (
	metricChecks     = "collisions.checks"
	metricDetected   = "collisions.detected"
	metricPanicked   = "collisions.callback_panics"
	metricPairsTotal = "collisions.pairs"
)

// Pair registers two types for overlap checks. The removal flags are handed
// to the respective participant's HandleCollision.
type Pair struct {
	First        ability.Type `json:"first"`
	Second       ability.Type `json:"second"`
	RemoveFirst  bool         `json:"removeFirst"`
	RemoveSecond bool         `json:"removeSecond"`
}

type pairKey struct {
	a ability.Type
	b ability.Type
}

func keyOf(p Pair) pairKey {
	if p.Second < p.First {
		return pairKey{a: p.Second, b: p.First}
	}
	return pairKey{a: p.First, b: p.Second}
}

// Candidate is the per-pass projection of a live instance.
type Candidate struct {
	Ability ability.Ability
	Radius  float64
	Points  []geom.Vec3
}

// Report summarises one detection pass.
type Report struct {
	Pairs      int `json:"pairs"`
	Checks     int `json:"checks"`
	Collisions int `json:"collisions"`
	Panics     int `json:"panics"`
}

// Config wires a Manager.
type Config struct {
	Registry  *ability.Registry
	CellSize  float64
	Tick      func() uint64
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
}

// Manager owns the monitored pair list and runs detection passes.
type Manager struct {
	registry  *ability.Registry
	cellSize  float64
	tick      func() uint64
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher

	mu    sync.RWMutex
	pairs []Pair
	index map[pairKey]int
}

// NewManager constructs a Manager with no monitored pairs.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		registry:  cfg.Registry,
		cellSize:  cfg.CellSize,
		tick:      cfg.Tick,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		publisher: cfg.Publisher,
		index:     make(map[pairKey]int),
	}
	if m.tick == nil {
		m.tick = func() uint64 { return 0 }
	}
	if m.logger == nil {
		m.logger = telemetry.NopLogger()
	}
	if m.metrics == nil {
		m.metrics = telemetry.NopMetrics()
	}
	if m.publisher == nil {
		m.publisher = logging.NopPublisher()
	}
	return m
}

// Add registers a monitored pair. Pairs are unordered: adding (B, A) after
// (A, B) replaces the earlier policy.
func (m *Manager) Add(p Pair) {
	if m == nil || p.First == "" || p.Second == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := keyOf(p)
	if i, ok := m.index[key]; ok {
		m.pairs[i] = p
		return
	}
	m.index[key] = len(m.pairs)
	m.pairs = append(m.pairs, p)
	m.metrics.Store(metricPairsTotal, uint64(len(m.pairs)))
}

// Pairs returns the monitored pairs in registration order.
func (m *Manager) Pairs() []Pair {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Pair(nil), m.pairs...)
}

// Monitored reports whether the unordered pair (a, b) is registered.
func (m *Manager) Monitored(a, b ability.Type) bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.index[keyOf(Pair{First: a, Second: b})]
	return ok
}

// Clear drops every monitored pair.
func (m *Manager) Clear() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.pairs = nil
	m.index = make(map[pairKey]int)
	m.mu.Unlock()
	m.metrics.Store(metricPairsTotal, 0)
}

// Candidates builds the collision candidates for every collidable, located,
// live instance of t.
func (m *Manager) Candidates(t ability.Type) []Candidate {
	if m == nil || m.registry == nil {
		return nil
	}
	var out []Candidate
	for _, a := range m.registry.FindAllOfType(t) {
		if !a.IsStarted() || !a.Collidable() {
			continue
		}
		points := a.Locations()
		if len(points) == 0 {
			continue
		}
		radius := a.CollisionRadius()
		if radius < 0 {
			radius = 0
		}
		if !placeable(points, radius) {
			continue
		}
		out = append(out, Candidate{Ability: a, Radius: radius, Points: points})
	}
	return out
}

// placeable rejects candidates the grid cannot index: any non-finite or
// out-of-extent point or radius.
func placeable(points []geom.Vec3, radius float64) bool {
	for _, p := range points {
		if !withinExtent(p, radius) {
			return false
		}
	}
	return true
}

// DetectCollisions runs one pass over every monitored pair. Each overlapping
// instance pair has both callbacks invoked once; instances removed earlier in
// the pass are skipped. The manager never removes instances itself.
func (m *Manager) DetectCollisions() Report {
	var report Report
	if m == nil || m.registry == nil {
		return report
	}

	cache := make(map[ability.Type][]Candidate)
	candidatesOf := func(t ability.Type) []Candidate {
		if cached, ok := cache[t]; ok {
			return cached
		}
		built := m.Candidates(t)
		cache[t] = built
		return built
	}

	for _, pair := range m.Pairs() {
		report.Pairs++
		firsts := candidatesOf(pair.First)
		seconds := candidatesOf(pair.Second)
		if len(firsts) == 0 || len(seconds) == 0 {
			continue
		}
		sameType := pair.First == pair.Second

		g := newGrid(m.cellSize, maxRadius(firsts, seconds))
		for j, c := range seconds {
			g.insert(j, c.Points, c.Radius)
		}

		for i, first := range firsts {
			for _, j := range g.query(first.Points, first.Radius) {
				if first.Ability.IsRemoved() {
					break
				}
				if sameType && j <= i {
					continue
				}
				second := seconds[j]
				if second.Ability == first.Ability || second.Ability.IsRemoved() {
					continue
				}
				report.Checks++
				locFirst, locSecond, ok := overlap(first, second)
				if !ok {
					continue
				}
				report.Collisions++
				report.Panics += m.dispatch(ability.Collision{
					First:          first.Ability,
					Second:         second.Ability,
					RemovingFirst:  pair.RemoveFirst,
					RemovingSecond: pair.RemoveSecond,
					LocationFirst:  locFirst,
					LocationSecond: locSecond,
				})
			}
		}
	}

	m.metrics.Add(metricChecks, uint64(report.Checks))
	m.metrics.Add(metricDetected, uint64(report.Collisions))
	return report
}

// overlap reports the first point pair within the summed radii.
func overlap(a, b Candidate) (geom.Vec3, geom.Vec3, bool) {
	reach := a.Radius + b.Radius
	for _, pa := range a.Points {
		for _, pb := range b.Points {
			if pa.WithinRange(pb, reach) {
				return pa, pb, true
			}
		}
	}
	return geom.Vec3{}, geom.Vec3{}, false
}

func maxRadius(groups ...[]Candidate) float64 {
	largest := 0.0
	for _, group := range groups {
		for _, c := range group {
			if c.Radius > largest {
				largest = c.Radius
			}
		}
	}
	return largest
}

func (m *Manager) dispatch(c ability.Collision) int {
	tick := m.tick()
	first, second := participant(c.First, c.RemovingFirst), participant(c.Second, c.RemovingSecond)
	collisionLog.Detected(context.Background(), m.publisher, tick, abilityRef(c.First), []logging.EntityRef{abilityRef(c.Second)}, collisionLog.DetectedPayload{
		First:  first,
		Second: second,
	})

	panics := 0
	if !m.handle(c.First, c, first) {
		panics++
	}
	if !m.handle(c.Second, c.Swapped(), second) {
		panics++
	}
	return panics
}

func (m *Manager) handle(a ability.Ability, c ability.Collision, who collisionLog.Participant) (ok bool) {
	defer func() {
		if recovered := recover(); recovered != nil {
			ok = false
			m.metrics.Add(metricPanicked, 1)
			m.logger.Printf("[collision] %s#%d panicked handling collision: %v", who.Name, who.ID, recovered)
			collisionLog.CallbackPanicked(context.Background(), m.publisher, m.tick(), abilityRef(a), collisionLog.CallbackPanickedPayload{
				Participant: who,
				Panic:       fmt.Sprint(recovered),
			})
		}
	}()
	a.HandleCollision(c)
	return true
}

func participant(a ability.Ability, removing bool) collisionLog.Participant {
	return collisionLog.Participant{
		Name:     a.Definition().Name,
		ID:       a.ID(),
		Owner:    a.Owner().String(),
		Removing: removing,
	}
}

func abilityRef(a ability.Ability) logging.EntityRef {
	return logging.AbilityRef(string(a.Definition().Type), a.ID())
}
