package tick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingObserver captures everything a source delivers.
type recordingObserver struct {
	ticks        []Tick
	pauseChanges []bool
	lastUsed     Tick

	// removeOnTick, when set, unregisters the observer from inside
	// OnTick to exercise removal-safe iteration.
	removeOnTick *ManualSource
}

func (o *recordingObserver) OnTick(t Tick) {
	o.ticks = append(o.ticks, t)
	o.lastUsed = t
	if o.removeOnTick != nil {
		o.removeOnTick.RemoveObserver(o)
	}
}

func (o *recordingObserver) LastUsedTick() Tick { return o.lastUsed }

func (o *recordingObserver) OnSourcePausedChanged(paused bool) {
	o.pauseChanges = append(o.pauseChanges, paused)
}

func TestManualSource_DeliversInOrder(t *testing.T) {
	src := NewManualSource()
	obs := &recordingObserver{}
	src.AddObserver(obs)

	src.Feed(makeTick(1))
	src.Feed(makeTick(2))

	require.Len(t, obs.ticks, 2)
	assert.Equal(t, uint64(1), obs.ticks[0].SequenceNumber)
	assert.Equal(t, uint64(2), obs.ticks[1].SequenceNumber)
}

func TestManualSource_DropsInvalidTicks(t *testing.T) {
	src := NewManualSource()
	obs := &recordingObserver{}
	src.AddObserver(obs)

	src.Feed(Tick{})

	assert.Empty(t, obs.ticks, "invalid tick is never dispatched")
	assert.False(t, src.LastTick().IsValid())
}

func TestManualSource_AddObserverIsIdempotent(t *testing.T) {
	src := NewManualSource()
	obs := &recordingObserver{}
	src.AddObserver(obs)
	src.AddObserver(obs)

	src.Feed(makeTick(1))
	assert.Len(t, obs.ticks, 1, "double registration must not double-deliver")
}

func TestManualSource_ReplaysLastTickAsMissed(t *testing.T) {
	src := NewManualSource()
	early := &recordingObserver{}
	src.AddObserver(early)
	src.Feed(makeTick(3))

	late := &recordingObserver{}
	src.AddObserver(late)

	require.Len(t, late.ticks, 1)
	assert.Equal(t, uint64(3), late.ticks[0].SequenceNumber)
	assert.Equal(t, KindMissed, late.ticks[0].Kind,
		"replayed tick is re-kinded as missed")
	assert.Len(t, early.ticks, 1, "existing observer sees no replay")
}

func TestManualSource_NoReplayWhenObserverAlreadyUsedTick(t *testing.T) {
	src := NewManualSource()
	obs := &recordingObserver{}
	src.AddObserver(obs)
	src.Feed(makeTick(1))

	src.RemoveObserver(obs)
	src.AddObserver(obs)

	assert.Len(t, obs.ticks, 1, "observer already used the last tick")
}

func TestManualSource_PauseSuppressesTicks(t *testing.T) {
	src := NewManualSource()
	obs := &recordingObserver{}
	src.AddObserver(obs)

	src.SetPaused(true)
	src.Feed(makeTick(1))
	src.SetPaused(false)
	src.Feed(makeTick(2))

	require.Len(t, obs.ticks, 1, "ticks fed while paused are dropped")
	assert.Equal(t, uint64(2), obs.ticks[0].SequenceNumber)
	assert.Equal(t, []bool{true, false}, obs.pauseChanges)
}

func TestManualSource_SetPausedIsEdgeTriggered(t *testing.T) {
	src := NewManualSource()
	obs := &recordingObserver{}
	src.AddObserver(obs)

	src.SetPaused(true)
	src.SetPaused(true)

	assert.Equal(t, []bool{true}, obs.pauseChanges)
}

func TestManualSource_AddWhilePausedInformsObserver(t *testing.T) {
	src := NewManualSource()
	src.SetPaused(true)

	obs := &recordingObserver{}
	src.AddObserver(obs)

	assert.Equal(t, []bool{true}, obs.pauseChanges)
	assert.Empty(t, obs.ticks)
}

func TestManualSource_RemoveDuringOnTick(t *testing.T) {
	src := NewManualSource()
	self := &recordingObserver{}
	self.removeOnTick = src
	other := &recordingObserver{}
	src.AddObserver(self)
	src.AddObserver(other)

	src.Feed(makeTick(1))

	assert.Len(t, self.ticks, 1)
	assert.Len(t, other.ticks, 1, "removal mid-dispatch must not skip peers")
	assert.True(t, src.HasObservers())

	src.Feed(makeTick(2))
	assert.Len(t, self.ticks, 1, "removed observer sees no further ticks")
	assert.Len(t, other.ticks, 2)
}

func TestManualSource_RemoveUnknownObserverIsNoop(t *testing.T) {
	src := NewManualSource()
	src.RemoveObserver(&recordingObserver{})
	assert.False(t, src.HasObservers())
}
