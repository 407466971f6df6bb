package tracker

import (
	"log/slog"
	"sort"

	"github.com/roach88/latch/internal/surface"
	"github.com/roach88/latch/internal/tick"
)

// DefaultDeadlineThreshold is the number of ticks a blocked frame may
// wait before it is activated with unresolved dependencies.
const DefaultDeadlineThreshold uint32 = 4

type idSet map[surface.ID]struct{}

// deadline is the forced-activation counter. Absent (set == false)
// means no deadline is active; present means the Tracker is counting
// ticks toward the threshold. An explicit pair, not a sentinel value.
type deadline struct {
	set   bool
	ticks uint32
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithDeadlineThreshold overrides the number of ticks before blocked
// frames are force-activated. A threshold of 1 forces on the first
// tick after a deadline is set.
func WithDeadlineThreshold(n uint32) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.threshold = n
		}
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(t *Tracker) {
		if log != nil {
			t.log = log
		}
	}
}

// Tracker tracks unresolved dependencies blocking pending frames from
// activating, and bounds the wait with a tick-driven deadline.
//
// State machine (global across all tracked entities):
//
//	IDLE    no deadline, not observing ticks
//	WAITING deadline active, observing ticks
//
// IDLE -> WAITING on the first registration that introduces an
// outstanding dependency. WAITING -> IDLE when all dependencies
// resolve or are discarded, or when the deadline fires and every
// outstanding frame is force-activated.
//
// All methods must be called on one logical sequence. Reentrant calls
// from inside notification fan-out are part of the contract and are
// safe.
type Tracker struct {
	provider Provider
	source   tick.Source
	log      *slog.Logger

	threshold uint32

	// blockedFromDependency maps a dependency id to the set of
	// entities whose pending frame is blocked on it. An entity id
	// appears as a value only while it has at least one unresolved
	// dependency outstanding.
	blockedFromDependency map[surface.ID]idSet

	// observedDependencies holds the keys of blockedFromDependency
	// with at least one blocker.
	observedDependencies idSet

	// lateEntities records entities whose deadline expired before
	// their dependencies resolved. Diagnostic only; retained until
	// ClearLateEntities.
	lateEntities idSet

	deadline  deadline
	observing bool
	paused    bool

	// lastTick is the most recent tick seen, kept so "what tick are we
	// on" queries need no round-trip to the source.
	lastTick tick.Tick
}

// New creates a Tracker that looks entities up through provider and
// subscribes to source while any pending frame is blocked.
func New(provider Provider, source tick.Source, opts ...Option) *Tracker {
	t := &Tracker{
		provider:              provider,
		source:                source,
		log:                   slog.Default(),
		threshold:             DefaultDeadlineThreshold,
		blockedFromDependency: make(map[surface.ID]idSet),
		observedDependencies:  make(idSet),
		lateEntities:          make(idSet),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RequestResolution registers entity as blocked on each id in deps.
// deps must be the currently unresolved subset: dependencies that
// already have an active frame are the caller's job to exclude.
// Registration is idempotent; re-registering an overlapping set does
// not double-insert.
//
// The first registration that introduces an outstanding dependency
// sets the deadline and subscribes to the tick source.
func (t *Tracker) RequestResolution(entity surface.ID, deps []surface.ID) {
	if len(deps) == 0 {
		return
	}
	for _, dep := range deps {
		t.insertBlocker(dep, entity)
	}
	if !t.deadline.set {
		t.setDeadline()
	}
	t.log.Debug("resolution requested",
		"entity", entity, "deps", len(deps), "blocked_deps", len(t.blockedFromDependency))
}

// OnDependencyResolved informs the Tracker that dep now has an active
// frame (or is otherwise confirmed current). Every entity blocked on
// dep is notified; entities whose last outstanding dependency this was
// activate, which may reenter the Tracker before this call returns.
// Unknown dependencies are a no-op.
func (t *Tracker) OnDependencyResolved(dep surface.ID) {
	t.notifyDependencyAvailable(dep)
	t.maybeClearDeadline()
}

// OnDependenciesChanged applies an incremental update to entity's
// dependency set, e.g. when it resubmits a pending frame with
// different references before activating.
func (t *Tracker) OnDependenciesChanged(entity surface.ID, added, removed []surface.ID) {
	for _, dep := range removed {
		t.removeBlocker(dep, entity)
	}
	for _, dep := range added {
		t.insertBlocker(dep, entity)
	}
	if len(t.blockedFromDependency) == 0 {
		t.maybeClearDeadline()
	} else if !t.deadline.set {
		t.setDeadline()
	}
}

// OnEntityDiscarded removes every trace of entity: it stops blocking
// others, and anything blocked on it is unblocked from this one
// dependency, since a frame from it can now never arrive. Dependents
// with other outstanding dependencies stay blocked on those.
func (t *Tracker) OnEntityDiscarded(entity surface.ID) {
	for _, dep := range t.sortedDependencyKeys() {
		t.removeBlocker(dep, entity)
	}
	t.notifyDependencyAvailable(entity)
	t.maybeClearDeadline()
}

// OnTick implements tick.Observer. Each tick advances the deadline
// counter; when it reaches the threshold, every still-blocked entity
// is recorded late and force-activated, and the Tracker returns to
// idle. All consequences complete before OnTick returns.
func (t *Tracker) OnTick(tk tick.Tick) {
	t.lastTick = tk
	if !t.deadline.set {
		return
	}
	t.deadline.ticks++
	if t.deadline.ticks < t.threshold {
		return
	}
	t.activateLate()
}

// LastUsedTick implements tick.Observer.
func (t *Tracker) LastUsedTick() tick.Tick {
	return t.lastTick
}

// OnSourcePausedChanged implements tick.Observer. While the source is
// paused no ticks arrive, so the deadline counter freezes where it is;
// resuming continues counting from there.
func (t *Tracker) OnSourcePausedChanged(paused bool) {
	t.paused = paused
	t.log.Debug("tick source pause changed", "paused", paused)
}

// HasDeadline reports whether a forced-activation deadline is active.
func (t *Tracker) HasDeadline() bool {
	return t.deadline.set
}

// TicksSinceDeadlineSet returns the deadline counter. ok is false when
// no deadline is active.
func (t *Tracker) TicksSinceDeadlineSet() (ticks uint32, ok bool) {
	return t.deadline.ticks, t.deadline.set
}

// IsObservingTicks reports whether the Tracker is subscribed to the
// tick source.
func (t *Tracker) IsObservingTicks() bool {
	return t.observing
}

// HasBlockedEntities reports whether any pending frame is blocked.
func (t *Tracker) HasBlockedEntities() bool {
	return len(t.blockedFromDependency) > 0
}

// BlockedOn returns the entities currently blocked on dep, sorted.
func (t *Tracker) BlockedOn(dep surface.ID) []surface.ID {
	return sortedIDs(t.blockedFromDependency[dep])
}

// LateEntities returns the entities whose deadline expired before
// their dependencies resolved, sorted.
func (t *Tracker) LateEntities() []surface.ID {
	return sortedIDs(t.lateEntities)
}

// ClearLateEntities resets the late-entity diagnostic set.
func (t *Tracker) ClearLateEntities() {
	t.lateEntities = make(idSet)
}

func (t *Tracker) insertBlocker(dep, entity surface.ID) {
	blocked := t.blockedFromDependency[dep]
	if blocked == nil {
		blocked = make(idSet)
		t.blockedFromDependency[dep] = blocked
	}
	blocked[entity] = struct{}{}
	t.observedDependencies[dep] = struct{}{}
}

func (t *Tracker) removeBlocker(dep, entity surface.ID) {
	blocked, ok := t.blockedFromDependency[dep]
	if !ok {
		return
	}
	delete(blocked, entity)
	if len(blocked) == 0 {
		delete(t.blockedFromDependency, dep)
		delete(t.observedDependencies, dep)
	}
}

// notifyDependencyAvailable informs every entity blocked on dep that
// dep is available. The dep's bookkeeping is erased before fan-out so
// reentrant resolution chains see consistent state and cannot revisit
// the same dependency.
func (t *Tracker) notifyDependencyAvailable(dep surface.ID) {
	blocked, ok := t.blockedFromDependency[dep]
	if !ok {
		return
	}
	delete(t.blockedFromDependency, dep)
	delete(t.observedDependencies, dep)

	for _, id := range sortedIDs(blocked) {
		entity := t.provider.Entity(id)
		if entity == nil {
			continue
		}
		t.log.Debug("dependency available", "dep", dep, "entity", id)
		entity.NotifyDependencyAvailable(dep)
	}
}

// activateLate is the deadline escape valve: every entity still
// appearing as a blocker value is recorded late and force-activated.
// Tracker state is reset to idle before fan-out so reentrant calls
// from activation land on empty maps.
func (t *Tracker) activateLate() {
	late := make(idSet)
	for _, blocked := range t.blockedFromDependency {
		for id := range blocked {
			late[id] = struct{}{}
		}
	}

	t.blockedFromDependency = make(map[surface.ID]idSet)
	t.observedDependencies = make(idSet)
	t.clearDeadline()

	for _, id := range sortedIDs(late) {
		t.lateEntities[id] = struct{}{}
		entity := t.provider.Entity(id)
		if entity == nil {
			continue
		}
		t.log.Info("deadline reached, forcing activation",
			"entity", id, "threshold", t.threshold)
		entity.ActivatePendingWithUnresolvedDependencies()
	}
}

// maybeClearDeadline returns the Tracker to idle once nothing is
// blocked. Unsubscribing here is mandatory: an idle Tracker must not
// consume ticks.
func (t *Tracker) maybeClearDeadline() {
	if len(t.blockedFromDependency) == 0 {
		t.clearDeadline()
	}
}

func (t *Tracker) setDeadline() {
	t.deadline = deadline{set: true}
	if !t.observing {
		t.observing = true
		t.source.AddObserver(t)
	}
	t.log.Debug("deadline set", "threshold", t.threshold)
}

func (t *Tracker) clearDeadline() {
	if !t.deadline.set && !t.observing {
		return
	}
	t.deadline = deadline{}
	if t.observing {
		t.observing = false
		t.source.RemoveObserver(t)
	}
}

func (t *Tracker) sortedDependencyKeys() []surface.ID {
	keys := make([]surface.ID, 0, len(t.blockedFromDependency))
	for dep := range t.blockedFromDependency {
		keys = append(keys, dep)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

func sortedIDs(set idSet) []surface.ID {
	ids := make([]surface.ID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}
