// Package journal provides durable storage for tracker session
// diagnostics.
//
// The tracker itself keeps no persistent state; a journal is telemetry
// written alongside a run (submissions, resolutions, ticks, forced
// activations) so late frames can be examined after the fact. Sessions
// are keyed by UUIDv7 tokens, which sort by creation time.
package journal
