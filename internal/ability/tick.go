package ability

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"

	lifecycleLog "ability-engine/logging/lifecycle"
)

const (
	metricProgressed = "abilities.progressed"
	metricGated      = "abilities.passive_gated"
	metricPanicked   = "abilities.panicked"
)

// ProgressReport counts what happened during one dispatch pass.
type ProgressReport struct {
	Progressed int `json:"progressed"`
	Gated      int `json:"gated"`
	Panicked   int `json:"panicked"`
}

// ProgressAll advances every instance live at the start of the pass once.
// Instances activated during the pass wait for the next one, and an instance
// removed earlier in the pass is skipped. Passives whose owner is
// missing, offline or no longer permitted are removed instead of progressed.
// A panicking instance is logged and removed without aborting the pass.
func (r *Registry) ProgressAll() ProgressReport {
	var report ProgressReport
	if r == nil {
		return report
	}

	for _, group := range r.snapshotByType() {
		for _, a := range group {
			if !a.IsStarted() {
				continue
			}
			def := a.Definition()
			if def.Caps.Passive {
				if reason, ok := r.passiveAllowed(a); !ok {
					report.Gated++
					r.metrics.Add(metricGated, 1)
					lifecycleLog.PassiveGated(context.Background(), r.publisher, r.tick(), actorRef(a.Owner()), lifecycleLog.GatedPayload{
						AbilityPayload: payloadOf(a.base()),
						Reason:         reason,
					})
					r.Remove(a)
					continue
				}
			}
			if !r.progress(a) {
				report.Panicked++
				continue
			}
			report.Progressed++
			r.notifier.Progressed(a)
		}
	}
	r.metrics.Add(metricProgressed, uint64(report.Progressed))
	return report
}

// snapshotByType captures the live set at the start of a pass: types in
// lexical order, instances in activation order within each type.
func (r *Registry) snapshotByType() [][]Ability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]Type, 0, len(r.byType))
	for t := range r.byType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	out := make([][]Ability, 0, len(types))
	for _, t := range types {
		out = append(out, collect(r.byType[t]))
	}
	return out
}

func (r *Registry) passiveAllowed(a Ability) (string, bool) {
	actor, ok := r.directory.Lookup(a.Owner())
	if !ok || actor == nil {
		return "owner missing", false
	}
	if !actor.Online() {
		return "owner offline", false
	}
	if !actor.CanUsePassive(a.Definition().Element) {
		return "passive not permitted", false
	}
	return "", true
}

func (r *Registry) progress(a Ability) (ok bool) {
	defer func() {
		if recovered := recover(); recovered != nil {
			ok = false
			r.metrics.Add(metricPanicked, 1)
			r.logger.Printf("[abilities] %s#%d panicked during progress: %v\n%s", a.Definition().Name, a.ID(), recovered, debug.Stack())
			lifecycleLog.AbilityPanicked(context.Background(), r.publisher, r.tick(), actorRef(a.Owner()), lifecycleLog.PanickedPayload{
				AbilityPayload: payloadOf(a.base()),
				Panic:          fmt.Sprint(recovered),
			})
			r.Remove(a)
		}
	}()
	a.Progress()
	return true
}
