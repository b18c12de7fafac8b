// Package app wires the ability engine runtime together and runs it until
// the context is cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"ability-engine/internal/abilities"
	"ability-engine/internal/ability"
	"ability-engine/internal/actors"
	"ability-engine/internal/collision"
	"ability-engine/internal/config"
	"ability-engine/internal/events"
	"ability-engine/internal/loader"
	servernet "ability-engine/internal/net"
	"ability-engine/internal/sim"
	"ability-engine/internal/telemetry"
	"ability-engine/logging"
	loggingSinks "ability-engine/logging/sinks"
)

const shutdownGrace = 5 * time.Second

// EnvEnablePprof toggles the runtime profiling endpoints.
const EnvEnablePprof = "ENABLE_PPROF"

// Config controls where Run reads its inputs from.
type Config struct {
	ConfigPath  string
	Logger      telemetry.Logger
	Getenv      func(string) string
	EnablePprof bool
}

// Runtime is the assembled object graph. Tests build it without serving.
type Runtime struct {
	Document config.Document
	Router   *logging.Router
	Metrics  *logging.Metrics
	Bus      *events.Bus
	Roster   *actors.Roster
	Engine   *sim.Engine
	Loop     *sim.Loop
	Handler  http.Handler
}

// Build loads configuration and constructs every component. The caller owns
// closing Router.
func Build(cfg Config) (*Runtime, error) {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}
	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}
	getenv := cfg.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	enablePprof := cfg.EnablePprof
	if raw := getenv(EnvEnablePprof); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			enablePprof = value
		} else {
			telemetryLogger.Printf("invalid %s=%q: %v", EnvEnablePprof, raw, err)
		}
	}

	doc, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	doc.ApplyEnv(getenv, telemetryLogger)

	language, err := config.LoadLanguage(doc.Server.LanguageFile)
	if err != nil {
		return nil, err
	}

	sinks, err := buildSinks(doc.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to construct logging sinks: %w", err)
	}
	router := logging.NewRouter(logging.SystemClock{}, doc.Logging, fallbackLogger, sinks)

	metrics := router.Metrics()
	engineMetrics := telemetry.WrapMetrics(metrics)

	bus := events.NewBus(telemetryLogger, engineMetrics)
	roster := actors.NewRoster(actors.Config{
		Timeout: doc.Server.HeartbeatTimeout,
		Logger:  telemetryLogger,
		Metrics: engineMetrics,
	})

	var engine *sim.Engine
	currentTick := func() uint64 { return engine.CurrentTick() }

	registry := ability.NewRegistry(ability.Config{
		Directory: roster,
		Notifier:  bus,
		Tick:      currentTick,
		Logger:    telemetryLogger,
		Metrics:   engineMetrics,
		Publisher: router,
	})
	abilityConfig := doc.Provider()
	defs := loader.New(loader.Config{
		Enablement: abilityConfig.AbilityEnabled,
		Describe:   language.Describe,
		Logger:     telemetryLogger,
		Metrics:    engineMetrics,
		Publisher:  router,
	})
	collisions := collision.NewManager(collision.Config{
		Registry:  registry,
		CellSize:  doc.Server.CollisionCellSize,
		Tick:      currentTick,
		Logger:    telemetryLogger,
		Metrics:   engineMetrics,
		Publisher: router,
	})
	engine = sim.NewEngine(sim.Config{
		Registry:        registry,
		Loader:          defs,
		Collisions:      collisions,
		Heartbeats:      roster,
		Descriptors:     abilities.Descriptors(),
		DefaultPairs:    abilities.DefaultPairs(),
		Pairs:           doc.Collisions,
		AddonDir:        doc.Server.AddonDir,
		CommandCapacity: doc.Server.CommandCapacity,
		PerActorLimit:   doc.Server.PerActorCommandLimit,
		Logger:          telemetryLogger,
		Metrics:         engineMetrics,
	})

	loop := sim.NewLoop(engine, sim.LoopConfig{
		TickRate:        doc.Server.TickRate,
		CatchupMaxTicks: doc.Server.CatchupMaxTicks,
		Logger:          telemetryLogger,
		SlowTickWarning: 1.5,
	}, sim.LoopHooks{
		AfterStep: func(step sim.LoopStepResult) {
			metrics.Store("sim.tick", step.Result.Tick)
			metrics.Store("sim.tick_duration_us", uint64(step.Duration.Microseconds()))
		},
	})

	handler := servernet.NewHTTPHandler(servernet.HTTPHandlerConfig{
		Engine:   engine,
		Roster:   roster,
		TickRate: doc.Server.TickRate,
		Metrics: func() map[string]uint64 {
			snapshot := metrics.Snapshot()
			stats := router.Stats()
			snapshot["logging.events_total"] = stats.EventsTotal
			snapshot["logging.dropped_total"] = stats.DroppedTotal
			snapshot["logging.muted_total"] = stats.MutedTotal
			for category, count := range stats.ByCategory {
				snapshot["logging.category."+category] = count
			}
			return snapshot
		},
		StreamInterval: doc.Server.DiagnosticsInterval,
		Logger:         telemetryLogger,
		EnablePprof:    enablePprof,
	})

	return &Runtime{
		Document: doc,
		Router:   router,
		Metrics:  metrics,
		Bus:      bus,
		Roster:   roster,
		Engine:   engine,
		Loop:     loop,
		Handler:  handler,
	}, nil
}

func buildSinks(cfg logging.Config) ([]logging.NamedSink, error) {
	var sinks []logging.NamedSink
	if cfg.HasSink("console") {
		sinks = append(sinks, logging.NamedSink{Name: "console", Sink: loggingSinks.NewConsole(os.Stdout, cfg.Console)})
	}
	if cfg.HasSink("json") {
		path := cfg.JSON.FilePath
		if path == "" {
			return nil, errors.New("json sink requires Logging.json.path")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(file, cfg.JSON.FlushInterval)})
	}
	return sinks, nil
}

// Register performs the startup registration: built-ins first, then addons.
func (rt *Runtime) Register(logger telemetry.Logger) {
	report := rt.Engine.RegisterDefinitions()
	report.Merge(rt.Engine.RegisterAddonDefinitions(""))
	logger.Printf("registered %d abilities (%d disabled, %d skipped, %d failed)",
		len(report.Registered), len(report.Disabled), len(report.Skipped), len(report.Failed))
	for name, reason := range report.Failed {
		logger.Printf("ability %s failed to load: %s", name, reason)
	}
}

// Run builds the runtime and serves until ctx is done or a component fails.
func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
		cfg.Logger = telemetryLogger
	}

	rt, err := Build(cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if cerr := rt.Router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	rt.Register(telemetryLogger)

	srv := &http.Server{Addr: rt.Document.Server.HTTPAddr, Handler: rt.Handler}
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		rt.Loop.Run(groupCtx.Done())
		return nil
	})
	group.Go(func() error {
		return rt.Roster.RunSweeper(groupCtx, rt.Document.Server.SweepInterval)
	})
	group.Go(func() error {
		telemetryLogger.Printf("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		removed := rt.Engine.RemoveAll()
		telemetryLogger.Printf("stopped %d live abilities", removed)
		return nil
	})

	return group.Wait()
}
