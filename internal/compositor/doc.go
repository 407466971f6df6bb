// Package compositor implements the entity-owner side of the
// activation pipeline: surfaces that receive frames, hold them pending
// while references are unresolved, and activate them when the tracker
// says they may (or must).
//
// The Manager owns all surfaces and is the tracker's entity provider.
// Activating one surface reports back to the tracker, which may
// synchronously activate dependent surfaces before the original
// submission returns; the Manager is written to tolerate that chain.
package compositor
