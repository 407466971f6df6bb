package compositor

import (
	"log/slog"

	"github.com/roach88/latch/internal/surface"
	"github.com/roach88/latch/internal/tick"
	"github.com/roach88/latch/internal/tracker"
)

// ActivationListener observes frame activations. forced is true when
// the activation was driven by the tracker's deadline rather than by
// dependency resolution.
type ActivationListener func(id surface.ID, forced bool)

// Option configures a Manager.
type Option func(*Manager)

// WithActivationListener registers a listener invoked on every frame
// activation, in activation order.
func WithActivationListener(fn ActivationListener) Option {
	return func(m *Manager) {
		m.listeners = append(m.listeners, fn)
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithTrackerOptions forwards options to the embedded tracker, e.g.
// tracker.WithDeadlineThreshold.
func WithTrackerOptions(opts ...tracker.Option) Option {
	return func(m *Manager) {
		m.trackerOpts = append(m.trackerOpts, opts...)
	}
}

// Manager owns all surfaces and relays their lifecycle to the
// dependency tracker. All methods must be called on one logical
// sequence.
type Manager struct {
	surfaces map[surface.ID]*Surface
	tracker  *tracker.Tracker
	log      *slog.Logger

	listeners   []ActivationListener
	trackerOpts []tracker.Option
}

// NewManager creates a Manager whose tracker consumes ticks from
// source while any pending frame is blocked.
func NewManager(source tick.Source, opts ...Option) *Manager {
	m := &Manager{
		surfaces: make(map[surface.ID]*Surface),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	trackerOpts := append([]tracker.Option{tracker.WithLogger(m.log)}, m.trackerOpts...)
	m.tracker = tracker.New(m, source, trackerOpts...)
	return m
}

// Tracker exposes the embedded dependency tracker, mainly for
// diagnostics (late entities, deadline state).
func (m *Manager) Tracker() *tracker.Tracker {
	return m.tracker
}

// Entity implements tracker.Provider.
func (m *Manager) Entity(id surface.ID) tracker.Entity {
	s, ok := m.surfaces[id]
	if !ok {
		return nil
	}
	return s
}

// Surface returns the surface for id, or nil.
func (m *Manager) Surface(id surface.ID) *Surface {
	return m.surfaces[id]
}

// SubmitFrame records a new pending frame for id, creating the surface
// on first submission. References that already have an active frame
// are resolved immediately; the rest are registered with the tracker.
// A frame with no unresolved references activates before SubmitFrame
// returns, possibly activating dependent surfaces in the same call.
func (m *Manager) SubmitFrame(id surface.ID, frame Frame) {
	s, ok := m.surfaces[id]
	if !ok {
		s = &Surface{id: id, manager: m, outstanding: make(map[surface.ID]struct{})}
		m.surfaces[id] = s
	}

	unresolved := m.unresolvedReferences(frame)
	hadPending := s.pending != nil
	previous := s.outstanding

	f := frame
	s.pending = &f
	s.outstanding = unresolved

	if hadPending {
		added, removed := diffDependencies(previous, unresolved)
		if len(added) > 0 || len(removed) > 0 {
			m.tracker.OnDependenciesChanged(id, added, removed)
		}
		// A resubmission that drops every unresolved reference may
		// activate right away.
		if s.pending != nil && len(s.outstanding) == 0 {
			m.activate(s, false)
		}
		return
	}

	if len(unresolved) == 0 {
		m.activate(s, false)
		return
	}
	m.log.Debug("frame blocked", "surface", id, "unresolved", len(unresolved))
	m.tracker.RequestResolution(id, s.OutstandingDependencies())
}

// DiscardSurface destroys the surface for id. Its pending frame will
// never activate; anything blocked on it is unblocked from this one
// dependency.
func (m *Manager) DiscardSurface(id surface.ID) {
	if _, ok := m.surfaces[id]; !ok {
		return
	}
	delete(m.surfaces, id)
	m.tracker.OnEntityDiscarded(id)
}

// activate promotes s's pending frame to active and reports the
// activation to the tracker, which may synchronously activate other
// surfaces blocked on s.
func (m *Manager) activate(s *Surface, forced bool) {
	s.pending = nil
	s.hasActive = true
	s.lastForced = forced
	m.log.Debug("frame activated", "surface", s.id, "forced", forced)
	for _, fn := range m.listeners {
		fn(s.id, forced)
	}
	m.tracker.OnDependencyResolved(s.id)
}

// unresolvedReferences filters frame's references down to those
// without an active frame, deduplicated.
func (m *Manager) unresolvedReferences(frame Frame) map[surface.ID]struct{} {
	unresolved := make(map[surface.ID]struct{})
	for _, ref := range frame.References {
		if s, ok := m.surfaces[ref]; ok && s.hasActive {
			continue
		}
		unresolved[ref] = struct{}{}
	}
	return unresolved
}

// diffDependencies computes the added and removed sets between two
// dependency sets, sorted for deterministic tracker calls.
func diffDependencies(previous, current map[surface.ID]struct{}) (added, removed []surface.ID) {
	for dep := range current {
		if _, ok := previous[dep]; !ok {
			added = append(added, dep)
		}
	}
	for dep := range previous {
		if _, ok := current[dep]; !ok {
			removed = append(removed, dep)
		}
	}
	sortIDs(added)
	sortIDs(removed)
	return added, removed
}
