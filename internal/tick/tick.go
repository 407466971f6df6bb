package tick

import (
	"fmt"
	"math"
	"time"
)

// Kind distinguishes how a tick was produced.
type Kind int

const (
	// KindInvalid is the kind of the zero-value Tick. A source never
	// dispatches an invalid tick; consumers only see Normal or Missed.
	KindInvalid Kind = iota
	// KindNormal is a tick produced on schedule.
	KindNormal
	// KindMissed means the source could not meet its own schedule for
	// this beat but is still reporting it. Consumers should usually
	// skip heavy work for a missed tick, but must still acknowledge.
	KindMissed
)

// String returns the kind name for logging and traces.
func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindNormal:
		return "normal"
	case KindMissed:
		return "missed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Reserved source ids. A real source must use an id that is neither of
// these, so manually fed ticks can never collide in sequence numbering
// with ticks produced by an attached source.
const (
	// StartingSourceID identifies ticks not created by any real source.
	StartingSourceID uint32 = 0
	// ManualSourceID identifies synthetically produced ticks fed
	// directly by a consumer, e.g. for deterministic offline rendering.
	ManualSourceID uint32 = math.MaxUint32
)

// Sequence number constants. Sequence numbers start at 1; 0 is never a
// valid sequence number for a dispatched tick.
const (
	InvalidSequenceNumber  uint64 = 0
	StartingSequenceNumber uint64 = 1
)

// Tick describes one beat of a periodic frame production clock.
//
// SourceID and SequenceNumber together identify a tick. When SourceID
// changes between consecutive ticks, observers must expect sequence
// continuity to break.
type Tick struct {
	// SequenceNumber increases monotonically per SourceID.
	SequenceNumber uint64
	// SourceID identifies the clock source that produced this tick.
	SourceID uint32

	// ProductionTime is when the tick occurred.
	ProductionTime time.Time
	// Deadline is when the consumer's response is due.
	Deadline time.Time
	// Interval is the expected time until the next tick. A negative
	// interval marks the tick invalid.
	Interval time.Duration

	Kind Kind
	// OnCriticalPath reports whether the consumer's response gates
	// presentation of the next displayed frame.
	OnCriticalPath bool
}

// New creates a valid Tick. kind must be KindNormal or KindMissed and
// interval must be non-negative; New panics otherwise, since an invalid
// tick must never be constructed for dispatch.
func New(sourceID uint32, sequenceNumber uint64, productionTime, deadline time.Time, interval time.Duration, kind Kind) Tick {
	if kind == KindInvalid {
		panic("tick: New called with KindInvalid")
	}
	if interval < 0 {
		panic("tick: New called with negative interval")
	}
	return Tick{
		SequenceNumber: sequenceNumber,
		SourceID:       sourceID,
		ProductionTime: productionTime,
		Deadline:       deadline,
		Interval:       interval,
		Kind:           kind,
		OnCriticalPath: true,
	}
}

// IsValid reports whether the tick may be dispatched to consumers.
// The zero value is invalid; every constructed tick is valid.
func (t Tick) IsValid() bool {
	return t.Kind != KindInvalid && t.Interval >= 0
}

// String renders a compact form used in logs and traces.
func (t Tick) String() string {
	return fmt.Sprintf("tick(%d:%d %s)", t.SourceID, t.SequenceNumber, t.Kind)
}
