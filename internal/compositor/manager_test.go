package compositor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/latch/internal/surface"
	"github.com/roach88/latch/internal/testutil"
	"github.com/roach88/latch/internal/tick"
	"github.com/roach88/latch/internal/tracker"
)

type activation struct {
	id     surface.ID
	forced bool
}

type fixture struct {
	source      *tick.ManualSource
	ticks       *testutil.TickFactory
	manager     *Manager
	activations []activation
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		source: tick.NewManualSource(),
		ticks:  testutil.NewTickFactory(1, 16*time.Millisecond),
	}
	opts = append(opts, WithActivationListener(func(id surface.ID, forced bool) {
		f.activations = append(f.activations, activation{id: id, forced: forced})
	}))
	f.manager = NewManager(f.source, opts...)
	return f
}

func (f *fixture) feedTicks(n int) {
	for i := 0; i < n; i++ {
		f.source.Feed(f.ticks.Next())
	}
}

func refs(ids ...surface.ID) Frame {
	return Frame{References: ids}
}

var (
	parent = surface.NewID(1, 1)
	child  = surface.NewID(1, 2)
	grand  = surface.NewID(1, 3)
)

func TestManager_IndependentFrameActivatesImmediately(t *testing.T) {
	f := newFixture(t)

	f.manager.SubmitFrame(child, refs())

	s := f.manager.Surface(child)
	require.NotNil(t, s)
	assert.True(t, s.HasActiveFrame())
	assert.False(t, s.HasPendingFrame())
	assert.Equal(t, []activation{{child, false}}, f.activations)
	assert.False(t, f.manager.Tracker().HasDeadline())
}

func TestManager_FrameBlocksOnUnresolvedReference(t *testing.T) {
	f := newFixture(t)

	f.manager.SubmitFrame(parent, refs(child))

	s := f.manager.Surface(parent)
	assert.True(t, s.HasPendingFrame())
	assert.False(t, s.HasActiveFrame())
	assert.Equal(t, []surface.ID{child}, s.OutstandingDependencies())
	assert.True(t, f.manager.Tracker().HasDeadline())
}

func TestManager_ReferenceToActiveSurfaceDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	f.manager.SubmitFrame(child, refs())

	f.manager.SubmitFrame(parent, refs(child))

	assert.True(t, f.manager.Surface(parent).HasActiveFrame())
	assert.False(t, f.manager.Tracker().HasDeadline())
}

func TestManager_ActivationUnblocksDependent(t *testing.T) {
	f := newFixture(t)
	f.manager.SubmitFrame(parent, refs(child))

	f.manager.SubmitFrame(child, refs())

	assert.True(t, f.manager.Surface(parent).HasActiveFrame())
	assert.Equal(t, []activation{{child, false}, {parent, false}}, f.activations,
		"dependency activates first, dependent follows in the same call")
	assert.False(t, f.manager.Tracker().HasDeadline())
}

func TestManager_ChainedActivation(t *testing.T) {
	// grand waits on parent, parent waits on child. One submission of
	// child activates all three on a single stack.
	f := newFixture(t)
	f.manager.SubmitFrame(grand, refs(parent))
	f.manager.SubmitFrame(parent, refs(child))

	f.manager.SubmitFrame(child, refs())

	assert.Equal(t,
		[]activation{{child, false}, {parent, false}, {grand, false}},
		f.activations)
	assert.False(t, f.manager.Tracker().HasBlockedEntities())
	assert.False(t, f.manager.Tracker().IsObservingTicks())
}

func TestManager_DeadlineForcesBlockedFrames(t *testing.T) {
	f := newFixture(t, WithTrackerOptions(tracker.WithDeadlineThreshold(2)))
	f.manager.SubmitFrame(parent, refs(child))

	f.feedTicks(1)
	assert.Empty(t, f.activations)

	f.feedTicks(1)
	require.Equal(t, []activation{{parent, true}}, f.activations)

	s := f.manager.Surface(parent)
	assert.True(t, s.HasActiveFrame())
	assert.True(t, s.LastActivationForced())
	assert.Equal(t, []surface.ID{parent}, f.manager.Tracker().LateEntities())
}

func TestManager_ResubmissionChangesDependencies(t *testing.T) {
	f := newFixture(t)
	f.manager.SubmitFrame(parent, refs(child))

	// Resubmit referencing grand instead of child.
	f.manager.SubmitFrame(parent, refs(grand))

	s := f.manager.Surface(parent)
	assert.Equal(t, []surface.ID{grand}, s.OutstandingDependencies())

	// Activating child no longer unblocks parent.
	f.manager.SubmitFrame(child, refs())
	assert.False(t, s.HasActiveFrame())

	f.manager.SubmitFrame(grand, refs())
	assert.True(t, s.HasActiveFrame())
}

func TestManager_ResubmissionDroppingAllReferencesActivates(t *testing.T) {
	f := newFixture(t)
	f.manager.SubmitFrame(parent, refs(child))

	f.manager.SubmitFrame(parent, refs())

	assert.True(t, f.manager.Surface(parent).HasActiveFrame())
	assert.False(t, f.manager.Tracker().HasDeadline())
	assert.False(t, f.manager.Tracker().IsObservingTicks())
}

func TestManager_DiscardUnblocksDependents(t *testing.T) {
	f := newFixture(t)
	f.manager.SubmitFrame(child, refs(grand))
	f.manager.SubmitFrame(parent, refs(child))

	f.manager.DiscardSurface(child)

	assert.Nil(t, f.manager.Surface(child))
	assert.True(t, f.manager.Surface(parent).HasActiveFrame(),
		"a frame from the discarded surface can never arrive")
	assert.False(t, f.manager.Tracker().HasBlockedEntities())
}

func TestManager_DiscardUnknownSurfaceIsNoop(t *testing.T) {
	f := newFixture(t)
	f.manager.DiscardSurface(parent)
	assert.Empty(t, f.activations)
}

func TestManager_ActiveSurfaceResubmitsFreshPendingFrame(t *testing.T) {
	f := newFixture(t)
	f.manager.SubmitFrame(parent, refs())
	require.True(t, f.manager.Surface(parent).HasActiveFrame())

	f.manager.SubmitFrame(parent, refs(child))

	s := f.manager.Surface(parent)
	assert.True(t, s.HasPendingFrame(), "new frame waits even though an old one is active")
	assert.True(t, s.HasActiveFrame(), "previous active frame stays current meanwhile")
	assert.True(t, f.manager.Tracker().HasDeadline())
}

func TestManager_DuplicateReferencesCollapse(t *testing.T) {
	f := newFixture(t)
	f.manager.SubmitFrame(parent, refs(child, child))

	assert.Equal(t, []surface.ID{child}, f.manager.Surface(parent).OutstandingDependencies())

	f.manager.SubmitFrame(child, refs())
	assert.True(t, f.manager.Surface(parent).HasActiveFrame())
}
