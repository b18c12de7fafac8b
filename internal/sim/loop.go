package sim

import (
	"time"

	"ability-engine/internal/telemetry"
	"ability-engine/logging"
)

const defaultTickRate = 20

// Stepper advances the runtime by one tick.
type Stepper interface {
	Tick() TickResult
}

// LoopConfig tunes the fixed-timestep runner.
type LoopConfig struct {
	TickRate        int
	CatchupMaxTicks int
	Clock           logging.Clock
	Logger          telemetry.Logger
	// SlowTickWarning logs ticks that exceed the budget by this factor. Zero
	// disables the warning.
	SlowTickWarning float64
}

// LoopStepResult captures one executed step.
type LoopStepResult struct {
	Result       TickResult
	Now          time.Time
	Delta        float64
	Duration     time.Duration
	Budget       time.Duration
	ClampedDelta bool
	MaxDelta     float64
}

// LoopHooks observe the runner.
type LoopHooks struct {
	AfterStep func(LoopStepResult)
}

// Loop drives a Stepper at a fixed rate.
type Loop struct {
	stepper Stepper
	config  LoopConfig
	hooks   LoopHooks
	clock   logging.Clock
	logger  telemetry.Logger
}

// NewLoop wraps stepper with a fixed-timestep runner.
func NewLoop(stepper Stepper, cfg LoopConfig, hooks LoopHooks) *Loop {
	if stepper == nil {
		return nil
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = defaultTickRate
	}
	l := &Loop{stepper: stepper, config: cfg, hooks: hooks, clock: cfg.Clock, logger: cfg.Logger}
	if l.clock == nil {
		l.clock = logging.SystemClock{}
	}
	if l.logger == nil {
		l.logger = telemetry.NopLogger()
	}
	return l
}

// Budget returns the wall time allotted to one tick.
func (l *Loop) Budget() time.Duration {
	return time.Second / time.Duration(l.config.TickRate)
}

// Advance executes a single step and measures it.
func (l *Loop) Advance(now time.Time, dt float64) LoopStepResult {
	start := l.clock.Now()
	result := l.stepper.Tick()
	step := LoopStepResult{
		Result:   result,
		Now:      now,
		Delta:    dt,
		Duration: l.clock.Now().Sub(start),
		Budget:   l.Budget(),
	}
	if l.config.SlowTickWarning > 0 && float64(step.Duration) > float64(step.Budget)*l.config.SlowTickWarning {
		l.logger.Printf("[sim] tick %d took %s (budget %s)", result.Tick, step.Duration, step.Budget)
	}
	return step
}

// Run drives the fixed-timestep loop until the stop channel closes.
func (l *Loop) Run(stop <-chan struct{}) {
	if l == nil {
		return
	}
	budget := l.Budget()
	ticker := time.NewTicker(budget)
	defer ticker.Stop()

	last := l.clock.Now()
	budgetSeconds := budget.Seconds()
	maxDt := budgetSeconds
	if l.config.CatchupMaxTicks > 1 {
		maxDt = budgetSeconds * float64(l.config.CatchupMaxTicks)
	}

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := l.clock.Now()
			dt := now.Sub(last).Seconds()
			clamped := false
			if dt <= 0 {
				dt = budgetSeconds
			} else if dt > maxDt {
				dt = maxDt
				clamped = true
			}
			last = now

			result := l.Advance(now, dt)
			result.ClampedDelta = clamped
			result.MaxDelta = maxDt
			if l.hooks.AfterStep != nil {
				l.hooks.AfterStep(result)
			}
		}
	}
}

var _ Stepper = (*Engine)(nil)
