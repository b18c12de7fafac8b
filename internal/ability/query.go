package ability

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

func collect(set instanceSet) []Ability {
	if len(set) == 0 {
		return nil
	}
	out := make([]Ability, 0, len(set))
	for _, a := range set {
		out = append(out, a)
	}
	sortBySeq(out)
	return out
}

// Find returns the earliest activated live instance of t owned by owner.
func (r *Registry) Find(owner uuid.UUID, t Type) (Ability, bool) {
	all := r.FindAll(owner, t)
	if len(all) == 0 {
		return nil, false
	}
	return all[0], true
}

// FindAs is Find narrowed to a concrete ability type.
func FindAs[T Ability](r *Registry, owner uuid.UUID, t Type) (T, bool) {
	var zero T
	a, ok := r.Find(owner, t)
	if !ok {
		return zero, false
	}
	typed, ok := a.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// FindAll returns a snapshot of owner's live instances of t in activation
// order.
func (r *Registry) FindAll(owner uuid.UUID, t Type) []Ability {
	if r == nil || owner == uuid.Nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	owners := r.byOwner[t]
	if owners == nil {
		return nil
	}
	return collect(owners[owner])
}

// FindAllOfType returns a snapshot of every live instance of t.
func (r *Registry) FindAllOfType(t Type) []Ability {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return collect(r.byType[t])
}

// AllLive returns a snapshot of every live instance in activation order.
func (r *Registry) AllLive() []Ability {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return collect(r.live)
}

// Has reports whether owner has at least one live instance of t.
func (r *Registry) Has(owner uuid.UUID, t Type) bool {
	if r == nil || owner == uuid.Nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	owners := r.byOwner[t]
	return owners != nil && len(owners[owner]) > 0
}

// Owners returns the actors currently owning a live instance of t. Owners the
// directory cannot resolve are skipped.
func (r *Registry) Owners(t Type) []Actor {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	ids := make([]uuid.UUID, 0, len(r.byOwner[t]))
	for id, bucket := range r.byOwner[t] {
		if len(bucket) > 0 {
			ids = append(ids, id)
		}
	}
	r.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	out := make([]Actor, 0, len(ids))
	for _, id := range ids {
		actor, ok := r.directory.Lookup(id)
		if !ok || actor == nil {
			continue
		}
		out = append(out, actor)
	}
	return out
}

// Types returns every type with at least one live instance, sorted.
func (r *Registry) Types() []Type {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	out := make([]Type, 0, len(r.byType))
	for t := range r.byType {
		out = append(out, t)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of live instances.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live)
}

// TypeStats reports index sizes for a single type. Live and Owned diverge
// only when the indices leak.
type TypeStats struct {
	Live   int `json:"live"`
	Owned  int `json:"owned"`
	Owners int `json:"owners"`
}

// Stats summarises the registry indices.
type Stats struct {
	Live         int                `json:"live"`
	OwnerBuckets int                `json:"ownerBuckets"`
	Types        map[Type]TypeStats `json:"types"`
}

// Stats captures the current index sizes.
func (r *Registry) Stats() Stats {
	stats := Stats{Types: make(map[Type]TypeStats)}
	if r == nil {
		return stats
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats.Live = len(r.live)
	for t, typed := range r.byType {
		entry := stats.Types[t]
		entry.Live = len(typed)
		stats.Types[t] = entry
	}
	for t, owners := range r.byOwner {
		entry := stats.Types[t]
		entry.Owners = len(owners)
		for _, bucket := range owners {
			entry.Owned += len(bucket)
		}
		stats.Types[t] = entry
		stats.OwnerBuckets += len(owners)
	}
	return stats
}

// DebugString renders Stats for operators.
func (r *Registry) DebugString() string {
	stats := r.Stats()
	types := make([]Type, 0, len(stats.Types))
	for t := range stats.Types {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	var b strings.Builder
	fmt.Fprintf(&b, "Owner buckets in memory: %d\n", stats.OwnerBuckets)
	fmt.Fprintf(&b, "Abilities in memory: %d\n", stats.Live)
	for _, t := range types {
		entry := stats.Types[t]
		fmt.Fprintf(&b, "%s: live=%d owned=%d owners=%d\n", t, entry.Live, entry.Owned, entry.Owners)
	}
	return b.String()
}
