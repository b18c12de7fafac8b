package ability_test

import (
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/mock/gomock"

	"ability-engine/internal/ability"
	"ability-engine/internal/ability/mocks"
)

var (
	ownerA = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	ownerB = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	ownerC = uuid.MustParse("00000000-0000-0000-0000-00000000000c")
)

func TestActivateIndexesInstance(t *testing.T) {
	reg := ability.NewRegistry(ability.Config{})
	def := testDefinition("Blast", "blast")
	p := newTracker(reg, def, ownerA)

	if p.IsStarted() {
		t.Fatalf("expected constructed instance not to be started")
	}
	reg.Activate(p)
	if !p.IsStarted() {
		t.Fatalf("expected instance to be started after activation")
	}

	found, ok := reg.Find(ownerA, "blast")
	if !ok || found != p {
		t.Fatalf("expected find to return activated instance, got %v %v", found, ok)
	}
	if all := reg.FindAllOfType("blast"); len(all) != 1 || all[0] != p {
		t.Fatalf("expected type index to hold instance, got %v", all)
	}
	if live := reg.AllLive(); len(live) != 1 || live[0] != p {
		t.Fatalf("expected live set to hold instance, got %v", live)
	}
	if !reg.Has(ownerA, "blast") {
		t.Fatalf("expected has to report true")
	}
	if reg.Has(ownerB, "blast") {
		t.Fatalf("expected other owner to have no instance")
	}
	if p.Started().IsZero() {
		t.Fatalf("expected start time to be stamped")
	}
}

func TestRemovePrunesEmptyBuckets(t *testing.T) {
	reg := ability.NewRegistry(ability.Config{})
	p := newTracker(reg, testDefinition("Blast", "blast"), ownerA)
	reg.Activate(p)
	p.Remove()

	if !p.IsRemoved() {
		t.Fatalf("expected instance to be marked removed")
	}
	if _, ok := reg.Find(ownerA, "blast"); ok {
		t.Fatalf("expected find to miss after removal")
	}
	if all := reg.FindAllOfType("blast"); all != nil {
		t.Fatalf("expected empty result, got %v", all)
	}
	stats := reg.Stats()
	if stats.Live != 0 || stats.OwnerBuckets != 0 || len(stats.Types) != 0 {
		t.Fatalf("expected empty indices after removal, got %+v", stats)
	}
	if p.removed != 1 {
		t.Fatalf("expected remove hook to run once, ran %d", p.removed)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	reg := ability.NewRegistry(ability.Config{Notifier: notifier})
	p := newTracker(reg, testDefinition("Blast", "blast"), ownerA)

	notifier.EXPECT().Starting(p).Return(false)
	notifier.EXPECT().Ended(p).Times(1)

	reg.Activate(p)
	p.Remove()
	p.Remove()
	reg.Remove(p)

	if p.removed != 1 {
		t.Fatalf("expected remove hook to run once, ran %d", p.removed)
	}
}

func TestActivateCancelledByStartingHook(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	reg := ability.NewRegistry(ability.Config{Notifier: notifier})
	p := newTracker(reg, testDefinition("Blast", "blast"), ownerA)

	notifier.EXPECT().Starting(p).Return(true)
	notifier.EXPECT().Ended(p).Times(1)

	reg.Activate(p)

	if p.IsStarted() || !p.IsRemoved() {
		t.Fatalf("expected cancelled instance to be removed")
	}
	if reg.Len() != 0 {
		t.Fatalf("expected no live instances, got %d", reg.Len())
	}
	// A second activation attempt must not resurrect it.
	reg.Activate(p)
	if reg.Len() != 0 {
		t.Fatalf("expected removed instance to stay out of the registry")
	}
}

func TestOwnerlessInstanceIsInert(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	reg := ability.NewRegistry(ability.Config{Notifier: notifier})
	p := newTracker(reg, testDefinition("Blast", "blast"), uuid.Nil)

	reg.Activate(p)
	p.Remove()

	if p.ID() != 0 {
		t.Fatalf("expected ownerless instance to have no id, got %d", p.ID())
	}
	if p.IsStarted() || p.IsRemoved() {
		t.Fatalf("expected ownerless instance to stay constructed")
	}
	if reg.Len() != 0 {
		t.Fatalf("expected nothing registered")
	}
}

func TestActivateTwiceIsNoop(t *testing.T) {
	reg := ability.NewRegistry(ability.Config{})
	p := newTracker(reg, testDefinition("Blast", "blast"), ownerA)
	reg.Activate(p)
	reg.Activate(p)
	if got := len(reg.FindAll(ownerA, "blast")); got != 1 {
		t.Fatalf("expected a single indexed instance, got %d", got)
	}
}

func TestIDsWrapAround(t *testing.T) {
	reg := ability.NewRegistry(ability.Config{})
	def := testDefinition("Blast", "blast")

	first := newTracker(reg, def, ownerA)
	if first.ID() != math.MinInt32 {
		t.Fatalf("expected first id to be MinInt32, got %d", first.ID())
	}

	reg.SeedLastID(math.MaxInt32 - 1)
	a := newTracker(reg, def, ownerA)
	b := newTracker(reg, def, ownerA)
	if a.ID() != math.MaxInt32 {
		t.Fatalf("expected MaxInt32, got %d", a.ID())
	}
	if b.ID() != math.MinInt32 {
		t.Fatalf("expected id to wrap to MinInt32, got %d", b.ID())
	}
}

func TestFindReturnsEarliestActivated(t *testing.T) {
	reg := ability.NewRegistry(ability.Config{})
	def := testDefinition("Blast", "blast")
	first := newTracker(reg, def, ownerA)
	second := newTracker(reg, def, ownerA)
	reg.Activate(second)
	reg.Activate(first)

	found, ok := reg.Find(ownerA, "blast")
	if !ok || found != second {
		t.Fatalf("expected earliest activated instance, got %v", found)
	}
	all := reg.FindAll(ownerA, "blast")
	if len(all) != 2 || all[0] != second || all[1] != first {
		t.Fatalf("expected activation order, got %v", all)
	}

	typed, ok := ability.FindAs[*tracker](reg, ownerA, "blast")
	if !ok || typed != second {
		t.Fatalf("expected typed find to return tracker, got %v", typed)
	}
	if _, ok := ability.FindAs[*tracker](reg, ownerB, "blast"); ok {
		t.Fatalf("expected typed find to miss for other owner")
	}
}

func TestReassignOwnerMovesBucket(t *testing.T) {
	reg := ability.NewRegistry(ability.Config{})
	def := testDefinition("Blast", "blast")
	p := newTracker(reg, def, ownerA)

	reg.ReassignOwner(p, ownerB)
	if p.Owner() != ownerA {
		t.Fatalf("expected reassign before activation to be ignored")
	}

	reg.Activate(p)
	reg.ReassignOwner(p, ownerB)
	if p.Owner() != ownerB {
		t.Fatalf("expected owner %s, got %s", ownerB, p.Owner())
	}
	if reg.Has(ownerA, "blast") {
		t.Fatalf("expected old owner bucket to be empty")
	}
	if found, ok := reg.Find(ownerB, "blast"); !ok || found != p {
		t.Fatalf("expected new owner to find instance")
	}
	if stats := reg.Stats(); stats.OwnerBuckets != 1 {
		t.Fatalf("expected old bucket to be pruned, got %+v", stats)
	}

	p.Remove()
	reg.ReassignOwner(p, ownerC)
	if p.Owner() != ownerB {
		t.Fatalf("expected reassign after removal to be ignored")
	}
}

func TestOwnersSkipsUnknownActors(t *testing.T) {
	dir := staticDirectory{
		ownerA: staticActor{id: ownerA, name: "aang", online: true},
	}
	reg := ability.NewRegistry(ability.Config{Directory: dir})
	def := testDefinition("Blast", "blast")
	reg.Activate(newTracker(reg, def, ownerA))
	reg.Activate(newTracker(reg, def, ownerA))
	reg.Activate(newTracker(reg, def, ownerB))

	owners := reg.Owners("blast")
	if len(owners) != 1 || owners[0].ID() != ownerA {
		t.Fatalf("expected only the resolvable owner, got %v", owners)
	}
	if got := reg.Owners("shield"); len(got) != 0 {
		t.Fatalf("expected no owners for idle type, got %v", got)
	}
}

func TestRemoveAllInstances(t *testing.T) {
	reg := ability.NewRegistry(ability.Config{})
	for _, owner := range []uuid.UUID{ownerA, ownerB, ownerC} {
		reg.Activate(newTracker(reg, testDefinition("Blast", "blast"), owner))
		reg.Activate(newTracker(reg, testDefinition("Shield", "shield"), owner))
	}
	if removed := reg.RemoveAllInstances(); removed != 6 {
		t.Fatalf("expected 6 removals, got %d", removed)
	}
	if stats := reg.Stats(); stats.Live != 0 || stats.OwnerBuckets != 0 {
		t.Fatalf("expected empty registry, got %+v", stats)
	}
}

func TestDebugStringListsTypes(t *testing.T) {
	reg := ability.NewRegistry(ability.Config{})
	reg.Activate(newTracker(reg, testDefinition("Blast", "blast"), ownerA))
	reg.Activate(newTracker(reg, testDefinition("Blast", "blast"), ownerB))
	reg.Activate(newTracker(reg, testDefinition("Shield", "shield"), ownerA))

	out := reg.DebugString()
	for _, want := range []string{
		"Owner buckets in memory: 3",
		"Abilities in memory: 3",
		"blast: live=2 owned=2 owners=2",
		"shield: live=1 owned=1 owners=1",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected debug output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestConcurrentActivationAndRemoval(t *testing.T) {
	reg := ability.NewRegistry(ability.Config{})
	def := testDefinition("Blast", "blast")
	const workers, perWorker = 8, 100

	var wg sync.WaitGroup
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				reg.ProgressAll()
				_ = reg.AllLive()
			}
		}
	}()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			owner := uuid.New()
			for i := 0; i < perWorker; i++ {
				p := newTracker(reg, def, owner)
				reg.Activate(p)
				if i%2 == 0 {
					p.Remove()
				}
			}
		}()
	}
	wg.Wait()
	close(stop)

	if got := reg.Len(); got != workers*perWorker/2 {
		t.Fatalf("expected %d live instances, got %d", workers*perWorker/2, got)
	}
	stats := reg.Stats()
	entry := stats.Types["blast"]
	if entry.Live != entry.Owned || entry.Owners != workers {
		t.Fatalf("expected consistent indices, got %+v", entry)
	}
}
