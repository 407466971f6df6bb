package compositor

import (
	"sort"

	"github.com/roach88/latch/internal/surface"
)

func sortIDs(ids []surface.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}

// Frame is one visual update submitted by a producer. References name
// the surfaces whose active frames this frame embeds; pixel content is
// outside this package's concern.
type Frame struct {
	References []surface.ID
}

// Surface holds at most one pending frame and at most one active
// frame for a single producer id. Surfaces are created and discarded
// by the Manager only.
type Surface struct {
	id      surface.ID
	manager *Manager

	pending     *Frame
	outstanding map[surface.ID]struct{}

	hasActive  bool
	lastForced bool
}

// ID returns the surface's identifier.
func (s *Surface) ID() surface.ID {
	return s.id
}

// HasActiveFrame reports whether the surface has ever activated a
// frame that is still current.
func (s *Surface) HasActiveFrame() bool {
	return s.hasActive
}

// HasPendingFrame reports whether a submitted frame is waiting to
// activate.
func (s *Surface) HasPendingFrame() bool {
	return s.pending != nil
}

// HasUnresolvedDependencies implements tracker.Entity.
func (s *Surface) HasUnresolvedDependencies() bool {
	return len(s.outstanding) > 0
}

// OutstandingDependencies returns the unresolved references of the
// pending frame, sorted.
func (s *Surface) OutstandingDependencies() []surface.ID {
	deps := make([]surface.ID, 0, len(s.outstanding))
	for dep := range s.outstanding {
		deps = append(deps, dep)
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Less(deps[j]) })
	return deps
}

// LastActivationForced reports whether the most recent activation was
// a deadline-forced one.
func (s *Surface) LastActivationForced() bool {
	return s.lastForced
}

// NotifyDependencyAvailable implements tracker.Entity. When the last
// outstanding dependency arrives the pending frame activates, which
// reports back to the tracker on the same stack.
func (s *Surface) NotifyDependencyAvailable(dep surface.ID) {
	delete(s.outstanding, dep)
	if s.pending == nil || len(s.outstanding) > 0 {
		return
	}
	s.manager.activate(s, false)
}

// ActivatePendingWithUnresolvedDependencies implements tracker.Entity.
func (s *Surface) ActivatePendingWithUnresolvedDependencies() {
	if s.pending == nil {
		return
	}
	s.outstanding = make(map[surface.ID]struct{})
	s.manager.activate(s, true)
}
