// Package sim drives the ability runtime: it drains queued commands,
// advances every live instance once per tick and runs collision detection.
package sim

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ability-engine/internal/ability"
	"ability-engine/internal/catalog"
	"ability-engine/internal/collision"
	"ability-engine/internal/geom"
	"ability-engine/internal/loader"
	"ability-engine/internal/telemetry"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to per-actor
	// queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is saturated.
	CommandRejectQueueFull = "queue_full"

	// PluginName labels the built-in descriptors in loader reports.
	PluginName = "builtin"

	// DefaultCommandCapacity sizes the command buffer when Config leaves it
	// unset.
	DefaultCommandCapacity = 256
	// DefaultPerActorLimit caps the commands one actor may stage per tick in
	// the configured server. Engines built with PerActorLimit 0 are unlimited.
	DefaultPerActorLimit = 32

	metricTicks    = "sim.ticks"
	metricRejected = "sim.commands_rejected"
)

var (
	ErrUnknownAbility = errors.New("sim: unknown ability")
	ErrDisabled       = errors.New("sim: ability disabled")
	ErrPassive        = errors.New("sim: passives are started by the engine")
	ErrNotActivatable = errors.New("sim: ability cannot be instantiated")
	ErrActorOffline   = errors.New("sim: actor missing or offline")
	ErrCancelled      = errors.New("sim: activation cancelled")
)

// Aimer is implemented by abilities that take an origin and direction from
// the activating command before they start.
type Aimer interface {
	Aim(origin, direction geom.Vec3)
}

// HeartbeatRecorder receives heartbeat commands.
type HeartbeatRecorder interface {
	Heartbeat(id uuid.UUID, receivedAt time.Time, clientSent int64) (time.Duration, bool)
}

// Config wires an Engine.
type Config struct {
	Registry    *ability.Registry
	Loader      *loader.Loader
	Collisions  *collision.Manager
	Heartbeats  HeartbeatRecorder
	Descriptors []loader.Descriptor
	// DefaultPairs are registered before configured pairs on every load.
	DefaultPairs    []collision.PairSpec
	Pairs           []collision.PairSpec
	AddonDir        string
	CommandCapacity int
	// PerActorLimit of 0 disables per-actor throttling.
	PerActorLimit int
	Logger        telemetry.Logger
	Metrics       telemetry.Metrics
}

// CommandResult records the outcome of one applied command.
type CommandResult struct {
	Command Command `json:"command"`
	Err     string  `json:"error,omitempty"`
}

// TickResult summarises one engine step.
type TickResult struct {
	Tick       uint64                 `json:"tick"`
	Commands   []CommandResult        `json:"commands,omitempty"`
	Progress   ability.ProgressReport `json:"progress"`
	Collisions collision.Report       `json:"collisions"`
}

// Engine owns the runtime components and serialises ticks with reloads.
type Engine struct {
	registry     *ability.Registry
	loader       *loader.Loader
	catalog      *catalog.Catalog
	collisions   *collision.Manager
	heartbeats   HeartbeatRecorder
	descriptors  []loader.Descriptor
	defaultPairs []collision.PairSpec
	pairs        []collision.PairSpec
	addonDir     string
	buffer       *CommandBuffer
	scratch      []Command
	perActor     int
	logger       telemetry.Logger
	metrics      telemetry.Metrics

	tick atomic.Uint64

	// mu serialises ticks with catalog and registry wide operations.
	mu sync.Mutex

	queueMu       sync.Mutex
	perActorCount map[uuid.UUID]int
	dropCounts    map[uuid.UUID]uint64
}

// NewEngine constructs an Engine. Missing components are created with
// defaults so tests can wire only what they exercise.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		registry:      cfg.Registry,
		loader:        cfg.Loader,
		collisions:    cfg.Collisions,
		heartbeats:    cfg.Heartbeats,
		descriptors:   append([]loader.Descriptor(nil), cfg.Descriptors...),
		defaultPairs:  append([]collision.PairSpec(nil), cfg.DefaultPairs...),
		pairs:         append([]collision.PairSpec(nil), cfg.Pairs...),
		addonDir:      cfg.AddonDir,
		perActor:      cfg.PerActorLimit,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		perActorCount: make(map[uuid.UUID]int),
		dropCounts:    make(map[uuid.UUID]uint64),
	}
	if e.logger == nil {
		e.logger = telemetry.NopLogger()
	}
	if e.metrics == nil {
		e.metrics = telemetry.NopMetrics()
	}
	if e.registry == nil {
		e.registry = ability.NewRegistry(ability.Config{Tick: e.CurrentTick, Logger: e.logger, Metrics: e.metrics})
	}
	if e.loader == nil {
		e.loader = loader.New(loader.Config{Logger: e.logger, Metrics: e.metrics})
	}
	e.catalog = e.loader.Catalog()
	if e.collisions == nil {
		e.collisions = collision.NewManager(collision.Config{Registry: e.registry, Tick: e.CurrentTick, Logger: e.logger, Metrics: e.metrics})
	}
	capacity := cfg.CommandCapacity
	if capacity <= 0 {
		capacity = DefaultCommandCapacity
	}
	e.buffer = NewCommandBuffer(capacity, e.metrics)
	return e
}

// Registry returns the instance registry.
func (e *Engine) Registry() *ability.Registry { return e.registry }

// Catalog returns the definition catalog.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Collisions returns the collision manager.
func (e *Engine) Collisions() *collision.Manager { return e.collisions }

// CurrentTick returns the number of the last completed or running tick.
func (e *Engine) CurrentTick() uint64 {
	if e == nil {
		return 0
	}
	return e.tick.Load()
}

// RegisterDefinitions registers the built-in plugin descriptors and
// (re)initialises the collision pairs.
func (e *Engine) RegisterDefinitions() loader.Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	report := e.loader.RegisterPlugin(PluginName, e.descriptors)
	e.initializeCollisionsLocked()
	return report
}

// RegisterAddonDefinitions registers the addon scripts found in dir, or in
// the configured addon directory when dir is empty.
func (e *Engine) RegisterAddonDefinitions(dir string) loader.Report {
	if dir == "" {
		dir = e.addonDir
	}
	if dir == "" {
		return loader.Report{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	report := e.loader.RegisterAddons(dir)
	e.initializeCollisionsLocked()
	return report
}

// Reload removes every live instance, clears the catalog and registers the
// plugin and addon definitions again.
func (e *Engine) Reload() loader.Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removeAllLocked()
	report := e.loader.RegisterAll(PluginName, e.descriptors, e.addonDir)
	e.initializeCollisionsLocked()
	e.logger.Printf("[sim] reloaded %d definitions (%d failed)", e.catalog.Len(), len(report.Failed))
	return report
}

func (e *Engine) initializeCollisionsLocked() {
	e.collisions.Clear()
	specs := append(append([]collision.PairSpec(nil), e.defaultPairs...), e.pairs...)
	if len(specs) == 0 {
		return
	}
	added, err := collision.NewInitializer(e.collisions, e.catalog).Initialize(specs)
	if err != nil {
		e.logger.Printf("[sim] registered %d collision pairs; skipped: %v", added, err)
	}
}

// RemoveAll removes every live instance and then stops each addon exactly
// once.
func (e *Engine) RemoveAll() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.removeAllLocked()
}

func (e *Engine) removeAllLocked() int {
	removed := e.registry.RemoveAllInstances()
	for _, def := range e.catalog.Addons() {
		if def.Addon == nil || def.Addon.Stop == nil {
			continue
		}
		stopAddon(e.logger, def)
	}
	return removed
}

func stopAddon(logger telemetry.Logger, def *ability.Definition) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Printf("[sim] addon %s panicked while stopping: %v", def.Name, recovered)
		}
	}()
	def.Addon.Stop()
}

// Enqueue stages a command for the next tick, enforcing per-actor
// throttling and capacity limits.
func (e *Engine) Enqueue(cmd Command) (bool, string) {
	if e == nil {
		return false, CommandRejectQueueFull
	}
	if cmd.OriginTick == 0 {
		cmd.OriginTick = e.CurrentTick()
	}
	reason := ""
	var dropCount uint64
	e.queueMu.Lock()
	if e.perActor > 0 && cmd.ActorID != uuid.Nil {
		count := e.perActorCount[cmd.ActorID]
		if count >= e.perActor {
			reason = CommandRejectQueueLimit
			dropCount = e.incrementDropLocked(cmd.ActorID)
		} else {
			e.perActorCount[cmd.ActorID] = count + 1
		}
	}
	if reason == "" && !e.buffer.Push(cmd) {
		reason = CommandRejectQueueFull
		dropCount = e.incrementDropLocked(cmd.ActorID)
	}
	e.queueMu.Unlock()
	if reason != "" {
		e.metrics.Add(metricRejected, 1)
		if dropCount > 0 && dropCount&(dropCount-1) == 0 {
			e.logger.Printf("[backpressure] dropping command actor=%s type=%s count=%d reason=%s", cmd.ActorID, cmd.Type, dropCount, reason)
		}
		return false, reason
	}
	return true, ""
}

func (e *Engine) incrementDropLocked(actor uuid.UUID) uint64 {
	if actor == uuid.Nil {
		return 0
	}
	count := e.dropCounts[actor] + 1
	e.dropCounts[actor] = count
	return count
}

// Pending reports the number of staged commands.
func (e *Engine) Pending() int {
	return e.buffer.Len()
}

func (e *Engine) drainCommands() []Command {
	e.queueMu.Lock()
	defer e.queueMu.Unlock()
	e.scratch = e.buffer.DrainInto(e.scratch[:0])
	if len(e.perActorCount) > 0 {
		e.perActorCount = make(map[uuid.UUID]int)
	}
	return e.scratch
}

// Tick applies staged commands, progresses every live instance once and runs
// collision detection.
func (e *Engine) Tick() TickResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := TickResult{Tick: e.tick.Add(1)}
	for _, cmd := range e.drainCommands() {
		applied := CommandResult{Command: cmd}
		if err := e.safeApply(cmd); err != nil {
			applied.Err = err.Error()
			e.metrics.Add(metricRejected, 1)
		}
		result.Commands = append(result.Commands, applied)
	}
	result.Progress = e.registry.ProgressAll()
	result.Collisions = e.collisions.DetectCollisions()
	e.metrics.Add(metricTicks, 1)
	return result
}

func (e *Engine) safeApply(cmd Command) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("sim: %s command panicked: %v", cmd.Type, recovered)
			e.logger.Printf("[sim] %v", err)
		}
	}()
	return e.apply(cmd)
}

func (e *Engine) apply(cmd Command) error {
	switch cmd.Type {
	case CommandActivate:
		if cmd.Activate == nil {
			return fmt.Errorf("sim: %s command without payload", cmd.Type)
		}
		_, err := e.activate(cmd.ActorID, cmd.Activate.Ability, cmd.Activate.Origin, cmd.Activate.Direction)
		return err
	case CommandCancel:
		if cmd.Cancel == nil {
			return fmt.Errorf("sim: %s command without payload", cmd.Type)
		}
		return e.cancel(cmd.ActorID, cmd.Cancel.Ability)
	case CommandHeartbeat:
		if cmd.Heartbeat == nil || e.heartbeats == nil {
			return nil
		}
		if _, ok := e.heartbeats.Heartbeat(cmd.ActorID, cmd.Heartbeat.ReceivedAt, cmd.Heartbeat.ClientSent); !ok {
			return fmt.Errorf("%w: %s", ErrActorOffline, cmd.ActorID)
		}
		return nil
	default:
		return fmt.Errorf("sim: unknown command type %q", cmd.Type)
	}
}

// Activate instantiates and activates the named ability for owner outside
// the command queue. It must not be called from inside a tick.
func (e *Engine) Activate(owner uuid.UUID, name string, origin, direction geom.Vec3) (ability.Ability, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activate(owner, name, origin, direction)
}

func (e *Engine) activate(owner uuid.UUID, name string, origin, direction geom.Vec3) (ability.Ability, error) {
	def, ok := e.catalog.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAbility, name)
	}
	if def.Caps.Passive {
		return nil, fmt.Errorf("%w: %s", ErrPassive, def.Name)
	}
	if !def.IsEnabled() {
		return nil, fmt.Errorf("%w: %s", ErrDisabled, def.Name)
	}
	if actor, ok := e.registry.Directory().Lookup(owner); !ok || !actor.Online() {
		return nil, fmt.Errorf("%w: %s", ErrActorOffline, owner)
	}
	instance := def.Instantiate(e.registry, owner)
	if instance == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotActivatable, def.Name)
	}
	if aimer, ok := instance.(Aimer); ok {
		aimer.Aim(origin, direction)
	}
	e.registry.Activate(instance)
	if !instance.IsStarted() {
		return nil, fmt.Errorf("%w: %s", ErrCancelled, def.Name)
	}
	return instance, nil
}

func (e *Engine) cancel(owner uuid.UUID, name string) error {
	def, ok := e.catalog.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAbility, name)
	}
	for _, instance := range e.registry.FindAll(owner, def.Type) {
		instance.Remove()
	}
	return nil
}

// RegisterPassives starts every enabled passive the actor may use and does
// not already run. It returns how many were started.
func (e *Engine) RegisterPassives(owner uuid.UUID) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	actor, ok := e.registry.Directory().Lookup(owner)
	if !ok || !actor.Online() {
		return 0
	}
	started := 0
	for _, def := range e.catalog.Passives() {
		if !def.IsEnabled() || !actor.CanUsePassive(def.Element) {
			continue
		}
		if e.registry.Has(owner, def.Type) {
			continue
		}
		instance := def.Instantiate(e.registry, owner)
		if instance == nil {
			continue
		}
		e.registry.Activate(instance)
		if instance.IsStarted() {
			started++
		}
	}
	return started
}

// DebugString dumps registry, catalog and collision state for operators.
func (e *Engine) DebugString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tick: %d\n", e.CurrentTick())
	fmt.Fprintf(&b, "Definitions registered: %d\n", e.catalog.Len())
	fmt.Fprintf(&b, "Collision pairs monitored: %d\n", len(e.collisions.Pairs()))
	fmt.Fprintf(&b, "Commands pending: %d\n", e.Pending())
	fmt.Fprintf(&b, "Command backlog high water: %d\n", e.buffer.HighWater())
	b.WriteString(e.registry.DebugString())
	return b.String()
}
