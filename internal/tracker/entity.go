package tracker

import "github.com/roach88/latch/internal/surface"

// Entity is the capability surface the Tracker needs from an owner's
// surface with a pending frame. Implementations live with the entity
// owner; the Tracker never creates or destroys entities, it only
// notifies them.
type Entity interface {
	// NotifyDependencyAvailable tells the entity that dep now has an
	// active frame. The entity removes dep from its own outstanding
	// set and, if that was the last one, activates its pending frame.
	// Activation may call back into the Tracker on the same stack.
	NotifyDependencyAvailable(dep surface.ID)

	// ActivatePendingWithUnresolvedDependencies force-activates the
	// entity's pending frame regardless of outstanding dependencies.
	// Used when the deadline fires.
	ActivatePendingWithUnresolvedDependencies()

	// HasUnresolvedDependencies reports whether the entity's pending
	// frame is still blocked.
	HasUnresolvedDependencies() bool
}

// Provider resolves ids to live entities. Returns nil for an id the
// owner has already discarded; the Tracker treats that as "nothing to
// notify".
type Provider interface {
	Entity(id surface.ID) Entity
}
