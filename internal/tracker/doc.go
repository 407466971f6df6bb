// Package tracker decides when a submitted-but-not-yet-displayable
// frame becomes displayable.
//
// A surface may submit a frame that references other surfaces which
// have not produced frames of their own yet. The Tracker maintains the
// map from each unresolved dependency to the set of surfaces blocked
// on it, observes activations, and informs blocked surfaces as their
// dependencies arrive. Waiting is bounded: when the first blocking
// frame appears the Tracker subscribes to the production clock and
// starts a deadline counter; if dependencies are still unresolved
// after the configured number of ticks, every blocked frame is
// activated anyway and recorded as late.
//
// The Tracker is driven entirely by synchronous callbacks on one
// logical sequence. Resolving one dependency may reentrantly resolve
// others before the outer call returns; all iteration over internal
// state is snapshot-based so chained resolution cannot corrupt it.
package tracker
