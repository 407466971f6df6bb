package tick

// Observer consumes ticks from a Source.
//
// All methods are invoked synchronously on the single scheduling
// sequence that drives the source. An observer may remove itself from
// the source from inside OnTick.
type Observer interface {
	// OnTick delivers one tick. The tick is always valid.
	OnTick(t Tick)

	// LastUsedTick returns the most recent tick the observer acted on,
	// or the zero Tick if it has not seen one. Sources use it to avoid
	// re-delivering a tick the observer already has.
	LastUsedTick() Tick

	// OnSourcePausedChanged reports pause state changes. While paused
	// the source delivers no ticks.
	OnSourcePausedChanged(paused bool)
}

// Source produces ticks for registered observers.
type Source interface {
	// AddObserver registers o. Registration is idempotent. If the
	// source is paused, o learns that immediately; if the source has
	// already produced a tick o has not used, the source may replay it
	// to o as a Missed tick.
	AddObserver(o Observer)

	// RemoveObserver unregisters o. Safe to call for an observer that
	// is not registered, and safe to call from inside OnTick.
	RemoveObserver(o Observer)
}

// ManualSource is a Source fed explicitly by its owner. It is the
// deterministic stand-in for a vsync-driven source: scenario runs and
// tests feed it ticks one at a time and every consequence completes
// before Feed returns.
//
// ManualSource is confined to one logical sequence, like everything
// else in the scheduling path; it performs no locking.
type ManualSource struct {
	observers []Observer
	lastTick  Tick
	paused    bool
}

// NewManualSource creates an empty, unpaused source.
func NewManualSource() *ManualSource {
	return &ManualSource{}
}

// AddObserver implements Source. A newly added observer that has not
// used the source's most recent tick receives it immediately, re-kinded
// as Missed.
func (s *ManualSource) AddObserver(o Observer) {
	for _, existing := range s.observers {
		if existing == o {
			return
		}
	}
	s.observers = append(s.observers, o)

	if s.paused {
		o.OnSourcePausedChanged(true)
		return
	}
	if s.lastTick.IsValid() && s.lastTick != o.LastUsedTick() {
		missed := s.lastTick
		missed.Kind = KindMissed
		o.OnTick(missed)
	}
}

// RemoveObserver implements Source.
func (s *ManualSource) RemoveObserver(o Observer) {
	for i, existing := range s.observers {
		if existing == o {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// HasObservers reports whether any observer is registered.
func (s *ManualSource) HasObservers() bool {
	return len(s.observers) > 0
}

// SetPaused changes the pause state and informs observers. Feeding a
// tick while paused is a no-op.
func (s *ManualSource) SetPaused(paused bool) {
	if s.paused == paused {
		return
	}
	s.paused = paused
	for _, o := range s.snapshotObservers() {
		o.OnSourcePausedChanged(paused)
	}
}

// Paused reports the current pause state.
func (s *ManualSource) Paused() bool {
	return s.paused
}

// Feed delivers t to all registered observers. Invalid ticks are never
// dispatched; feeding one is silently dropped. While paused, ticks are
// dropped as well, so downstream deadline counters do not advance.
func (s *ManualSource) Feed(t Tick) {
	if !t.IsValid() || s.paused {
		return
	}
	s.lastTick = t
	// Observers may unsubscribe from inside OnTick; iterate a snapshot.
	for _, o := range s.snapshotObservers() {
		o.OnTick(t)
	}
}

// LastTick returns the most recently fed tick, or the zero Tick.
func (s *ManualSource) LastTick() Tick {
	return s.lastTick
}

func (s *ManualSource) snapshotObservers() []Observer {
	snapshot := make([]Observer, len(s.observers))
	copy(snapshot, s.observers)
	return snapshot
}
