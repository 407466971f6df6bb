// Package scenario runs declarative activation scenarios against a
// real tracker.
//
// A scenario is a YAML file describing a sequence of steps (frame
// submissions, dependency resolutions, ticks, pause toggles, surface
// discards) plus expectations about the resulting activations. Files
// are validated against an embedded CUE schema before execution.
// Execution is fully deterministic: ticks come from a manual source
// and every trace event carries a logical sequence number, so traces
// can be compared against golden files byte for byte.
package scenario
