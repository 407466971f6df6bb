package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/latch/internal/compositor"
	"github.com/roach88/latch/internal/journal"
	"github.com/roach88/latch/internal/surface"
	"github.com/roach88/latch/internal/testutil"
	"github.com/roach88/latch/internal/tick"
	"github.com/roach88/latch/internal/tracker"
)

// Trace event kinds. These match the journal's event kinds so a trace
// can be persisted without translation.
const (
	KindSubmit   = journal.KindSubmit
	KindBlocked  = journal.KindBlocked
	KindActivate = journal.KindActivate
	KindTick     = journal.KindTick
	KindPause    = journal.KindPause
	KindResume   = journal.KindResume
	KindDiscard  = journal.KindDiscard
)

// scenarioSourceID is the tick source id used by scenario runs. Any
// value that is neither reserved id works; runs always use the same
// one so traces are comparable.
const scenarioSourceID uint32 = 1

// scenarioTickInterval is the fixed tick interval for scenario runs.
const scenarioTickInterval = 16 * time.Millisecond

// TraceEvent is one entry of a scenario's deterministic trace.
type TraceEvent struct {
	Seq          int64  `json:"seq"`
	Kind         string `json:"kind"`
	Surface      string `json:"surface,omitempty"`
	Dependency   string `json:"dependency,omitempty"`
	TickSource   uint32 `json:"tick_source,omitempty"`
	TickSequence uint64 `json:"tick_sequence,omitempty"`
	Forced       bool   `json:"forced,omitempty"`
	Late         bool   `json:"late,omitempty"`
}

// Activation is one activation in order of occurrence.
type Activation struct {
	Surface string `json:"surface"`
	Forced  bool   `json:"forced,omitempty"`
}

// Result is the outcome of one scenario run.
type Result struct {
	// Pass is true when every expectation matched.
	Pass bool `json:"pass"`

	// Trace is the ordered event log of the run.
	Trace []TraceEvent `json:"trace"`

	// Activations lists frame activations in order.
	Activations []Activation `json:"activations"`

	// Late lists entities force-activated by the deadline, sorted.
	Late []string `json:"late,omitempty"`

	// Idle reports whether the tracker ended with no deadline and no
	// tick subscription.
	Idle bool `json:"idle"`

	// Errors lists expectation mismatches. Empty when Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// RunOption configures a scenario run.
type RunOption func(*runConfig)

type runConfig struct {
	log *slog.Logger
}

// WithLogger sets the logger used by the run's manager and tracker.
func WithLogger(log *slog.Logger) RunOption {
	return func(c *runConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// Run executes a scenario and evaluates its expectations. Execution
// is deterministic: the same scenario always yields the same trace.
func Run(s *Scenario, opts ...RunOption) (*Result, error) {
	cfg := runConfig{log: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	result := &Result{Pass: true}
	var seq int64
	record := func(e TraceEvent) {
		seq++
		e.Seq = seq
		result.Trace = append(result.Trace, e)
	}

	source := tick.NewManualSource()
	ticks := testutil.NewTickFactory(scenarioSourceID, scenarioTickInterval)

	managerOpts := []compositor.Option{
		compositor.WithLogger(cfg.log),
		compositor.WithActivationListener(func(id surface.ID, forced bool) {
			record(TraceEvent{Kind: KindActivate, Surface: id.String(), Forced: forced, Late: forced})
			result.Activations = append(result.Activations, Activation{Surface: id.String(), Forced: forced})
		}),
	}
	if s.Threshold > 0 {
		managerOpts = append(managerOpts,
			compositor.WithTrackerOptions(tracker.WithDeadlineThreshold(s.Threshold)))
	}
	manager := compositor.NewManager(source, managerOpts...)

	for i, step := range s.Steps {
		if err := runStep(manager, source, ticks, step, record); err != nil {
			return nil, fmt.Errorf("scenario %q: step %d: %w", s.Name, i+1, err)
		}
	}

	for _, id := range manager.Tracker().LateEntities() {
		result.Late = append(result.Late, id.String())
	}
	result.Idle = !manager.Tracker().HasDeadline() && !manager.Tracker().IsObservingTicks()

	applyExpectations(s, result)
	return result, nil
}

func runStep(
	manager *compositor.Manager,
	source *tick.ManualSource,
	ticks *testutil.TickFactory,
	step Step,
	record func(TraceEvent),
) error {
	switch {
	case step.Submit != nil:
		return submitFrame(manager, step.Submit.Surface, step.Submit.Refs, record)

	case step.Resolve != "":
		return submitFrame(manager, step.Resolve, nil, record)

	case step.Tick > 0:
		for i := 0; i < step.Tick; i++ {
			t := ticks.Next()
			record(TraceEvent{Kind: KindTick, TickSource: t.SourceID, TickSequence: t.SequenceNumber})
			source.Feed(t)
		}
		return nil

	case step.Pause != nil:
		kind := KindPause
		if !*step.Pause {
			kind = KindResume
		}
		record(TraceEvent{Kind: kind})
		source.SetPaused(*step.Pause)
		return nil

	case step.Discard != "":
		id, err := surface.ParseID(step.Discard)
		if err != nil {
			return err
		}
		record(TraceEvent{Kind: KindDiscard, Surface: id.String()})
		manager.DiscardSurface(id)
		return nil

	default:
		return fmt.Errorf("empty step")
	}
}

func submitFrame(manager *compositor.Manager, id string, refs []string, record func(TraceEvent)) error {
	sid, err := surface.ParseID(id)
	if err != nil {
		return err
	}
	frame := compositor.Frame{}
	for _, ref := range refs {
		rid, err := surface.ParseID(ref)
		if err != nil {
			return err
		}
		frame.References = append(frame.References, rid)
	}

	record(TraceEvent{Kind: KindSubmit, Surface: sid.String()})
	manager.SubmitFrame(sid, frame)

	// A frame that stayed pending records what it is blocked on.
	if s := manager.Surface(sid); s != nil && s.HasPendingFrame() {
		for _, dep := range s.OutstandingDependencies() {
			record(TraceEvent{Kind: KindBlocked, Surface: sid.String(), Dependency: dep.String()})
		}
	}
	return nil
}

func applyExpectations(s *Scenario, result *Result) {
	if s.Expect == nil {
		return
	}
	fail := func(format string, args ...any) {
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
		result.Pass = false
	}

	if s.Expect.Activations != nil {
		if len(result.Activations) != len(s.Expect.Activations) {
			fail("expected %d activations, got %d", len(s.Expect.Activations), len(result.Activations))
		} else {
			for i, want := range s.Expect.Activations {
				got := result.Activations[i]
				if got.Surface != want.Surface || got.Forced != want.Forced {
					fail("activation %d: expected %s (forced=%t), got %s (forced=%t)",
						i+1, want.Surface, want.Forced, got.Surface, got.Forced)
				}
			}
		}
	}

	if s.Expect.Late != nil {
		if len(result.Late) != len(s.Expect.Late) {
			fail("expected %d late entities, got %d", len(s.Expect.Late), len(result.Late))
		} else {
			for i, want := range s.Expect.Late {
				if result.Late[i] != want {
					fail("late entity %d: expected %s, got %s", i+1, want, result.Late[i])
				}
			}
		}
	}

	if s.Expect.Idle != nil && result.Idle != *s.Expect.Idle {
		fail("expected idle=%t, got idle=%t", *s.Expect.Idle, result.Idle)
	}
}

// Record persists a scenario run into a journal under a fresh or
// caller-chosen session token. The tracker never reads this back; it
// exists for the trace CLI and post-mortems.
func Record(ctx context.Context, j *journal.Journal, token string, s *Scenario, result *Result) error {
	threshold := s.Threshold
	if threshold == 0 {
		threshold = tracker.DefaultDeadlineThreshold
	}
	if err := j.CreateSession(ctx, token, s.Name, threshold); err != nil {
		return fmt.Errorf("record scenario: %w", err)
	}

	events := make([]journal.Event, len(result.Trace))
	for i, e := range result.Trace {
		events[i] = journal.Event{
			Seq:          e.Seq,
			Kind:         e.Kind,
			Entity:       e.Surface,
			Dependency:   e.Dependency,
			TickSource:   e.TickSource,
			TickSequence: e.TickSequence,
			Forced:       e.Forced,
			Late:         e.Late,
		}
	}
	if err := j.AppendEvents(ctx, token, events); err != nil {
		return fmt.Errorf("record scenario: %w", err)
	}
	return nil
}
