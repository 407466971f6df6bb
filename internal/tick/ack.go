package tick

// Ack is a consumer's acknowledgment of one Tick.
//
// LatestConfirmedSequenceNumber is the most recent tick for which the
// consumer positively confirms its visible output is up to date. A
// positive acknowledgment (LatestConfirmedSequenceNumber equal to
// SequenceNumber) means every pending update produced visible change,
// or there were no pending updates. A smaller value means the last
// known-good output is stale by that many ticks, even when HasDamage
// is true: the damage produced may be partial or carry over updates
// from earlier ticks.
type Ack struct {
	// SequenceNumber of the tick being acknowledged.
	SequenceNumber uint64
	// LatestConfirmedSequenceNumber of the latest positively confirmed
	// tick. Invariant: LatestConfirmedSequenceNumber <= SequenceNumber.
	LatestConfirmedSequenceNumber uint64
	// SourceID of the tick being acknowledged. A source discards acks
	// carrying a different source id, which can happen when the
	// consumer's source changes while an old tick is in flight.
	SourceID uint32
	// HasDamage is true when the consumer produced visible change in
	// response to the tick.
	HasDamage bool
}

// NewAck builds an acknowledgment for a specific tick.
func NewAck(sourceID uint32, sequenceNumber, latestConfirmed uint64, hasDamage bool) Ack {
	return Ack{
		SequenceNumber:                sequenceNumber,
		LatestConfirmedSequenceNumber: latestConfirmed,
		SourceID:                      sourceID,
		HasDamage:                     hasDamage,
	}
}

// ManualAckWithDamage builds the acknowledgment used when a consumer
// produces output without a prior tick, e.g. synchronous drawing. It
// carries the manual source id so it never matches a real source.
func ManualAckWithDamage() Ack {
	return Ack{
		SequenceNumber:                StartingSequenceNumber,
		LatestConfirmedSequenceNumber: StartingSequenceNumber,
		SourceID:                      ManualSourceID,
		HasDamage:                     true,
	}
}

// IsPositive reports whether the acknowledgment confirms the consumer's
// output is fully up to date with the acknowledged tick.
func (a Ack) IsPositive() bool {
	return a.LatestConfirmedSequenceNumber == a.SequenceNumber
}

// AggregateAcks combines acknowledgments from a composite consumer's
// sub-consumers into one. The combined ack reports the minimum latest
// confirmed sequence number across all children (staleness of the most
// stale child) and damage if any child produced damage. All children
// are expected to acknowledge the same tick; the first ack's sequence
// number and source id are carried through.
//
// Aggregating zero acks yields the zero Ack.
func AggregateAcks(acks ...Ack) Ack {
	if len(acks) == 0 {
		return Ack{}
	}
	out := acks[0]
	for _, a := range acks[1:] {
		if a.LatestConfirmedSequenceNumber < out.LatestConfirmedSequenceNumber {
			out.LatestConfirmedSequenceNumber = a.LatestConfirmedSequenceNumber
		}
		if a.HasDamage {
			out.HasDamage = true
		}
	}
	return out
}
