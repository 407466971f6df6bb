// Package testutil provides deterministic fixtures for tests and
// scenario runs.
package testutil

import (
	"time"

	"github.com/roach88/latch/internal/tick"
)

// TickFactory produces a deterministic stream of valid ticks with a
// fixed interval and incrementing sequence numbers. Unlike a real
// vsync source it never skips and never drifts, which makes deadline
// behavior exactly reproducible.
type TickFactory struct {
	sourceID uint32
	interval time.Duration
	next     uint64
	now      time.Time
}

// NewTickFactory creates a factory for the given source id. Sequence
// numbers start at tick.StartingSequenceNumber and production times
// advance by interval per tick from a fixed epoch.
func NewTickFactory(sourceID uint32, interval time.Duration) *TickFactory {
	return &TickFactory{
		sourceID: sourceID,
		interval: interval,
		next:     tick.StartingSequenceNumber,
		now:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Next returns the next normal tick in the stream.
func (f *TickFactory) Next() tick.Tick {
	t := tick.New(f.sourceID, f.next, f.now, f.now.Add(f.interval), f.interval, tick.KindNormal)
	f.next++
	f.now = f.now.Add(f.interval)
	return t
}

// NextMissed returns the next tick in the stream, kinded as missed.
func (f *TickFactory) NextMissed() tick.Tick {
	t := f.Next()
	t.Kind = tick.KindMissed
	return t
}

// Reset rewinds the factory to its initial state so a scenario can be
// replayed with identical sequence numbers.
func (f *TickFactory) Reset() {
	f.next = tick.StartingSequenceNumber
	f.now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
}
