// Package tick defines the frame production clock values exchanged
// between a tick source and its consumers.
//
// A Tick describes one beat of the periodic production clock: when it
// occurred, when the next one is expected, and a monotonically
// increasing identity scoped to a source. An Ack is the consumer's
// report back: whether it produced visible change for that beat, and
// how stale its last known-good output is.
//
// Ticks are immutable values passed by copy. Sources deliver them in
// non-decreasing sequence order per source id; a change of source id
// breaks sequence continuity and resets any downstream assumptions.
package tick
