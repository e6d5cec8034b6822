package keyboard

import (
	"slices"
	"time"

	"mindcanvas/internal/layout"
	"mindcanvas/internal/store"
)

const (
	MoveInterval  = 100 * time.Millisecond
	MoveStep      = 10.0
	MoveStepLarge = 50.0
	// SessionGrace lets a restart in the same direction shortly after a
	// stop continue the previous session. Terminals report a held key as a
	// first press followed, after the repeat delay, by a stream of repeats.
	SessionGrace = 700 * time.Millisecond
)

// Scheduler delivers a tick for generation gen after d. The host calls
// Mover.Tick(gen) when it fires.
type Scheduler interface {
	Schedule(d time.Duration, gen uint64)
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(d time.Duration, gen uint64)

func (f SchedulerFunc) Schedule(d time.Duration, gen uint64) { f(d, gen) }

// Recorder takes a history snapshot.
type Recorder interface {
	Record() bool
}

// revisioned is implemented by recorders that can tell whether the history
// changed since a given point.
type revisioned interface {
	Revision() uint64
}

// Mover translates the selected cards while an arrow key is held. There is
// at most one live session; every Start or Stop bumps the generation so
// ticks scheduled for an older session are ignored.
type Mover struct {
	state *store.AppState
	hist  Recorder
	sched Scheduler
	now   func() time.Time

	gen    uint64
	active bool
	dir    layout.Direction
	step   float64
	ids    []string

	lastStop time.Time
	lastDir  layout.Direction
	lastRev  uint64
}

// NewMover returns an idle mover. now may be nil.
func NewMover(state *store.AppState, hist Recorder, sched Scheduler, now func() time.Time) *Mover {
	if now == nil {
		now = time.Now
	}
	return &Mover{state: state, hist: hist, sched: sched, now: now}
}

// Active reports whether a session is running.
func (m *Mover) Active() bool { return m.active }

// Generation returns the current session generation.
func (m *Mover) Generation() uint64 { return m.gen }

// Start begins moving the selected cards in dir. The first step is applied
// at once. Starting again in the same direction while active is a no-op.
func (m *Mover) Start(dir layout.Direction, large bool) bool {
	step := MoveStep
	if large {
		step = MoveStepLarge
	}
	if m.active && m.dir == dir && m.step == step {
		return true
	}
	ids := m.state.Cards.SelectedIDs()
	continuing := m.active || m.resumable(dir, ids)

	m.cancel()
	m.ids = ids
	if len(m.ids) == 0 {
		return false
	}
	if !continuing && m.hist != nil {
		m.hist.Record()
	}
	m.active = true
	m.dir = dir
	m.step = step
	m.apply()
	m.sched.Schedule(MoveInterval, m.gen)
	return true
}

// Tick applies one step if gen belongs to the live session and schedules
// the next one.
func (m *Mover) Tick(gen uint64) {
	if !m.active || gen != m.gen {
		return
	}
	m.apply()
	m.sched.Schedule(MoveInterval, m.gen)
}

// Stop ends the session and persists the final positions.
func (m *Mover) Stop() {
	if !m.active {
		return
	}
	m.cancel()
	m.lastStop = m.now()
	m.lastDir = m.dir
	m.lastRev = m.revision()
	m.state.Cards.Persist()
}

// Reset stops any session and forgets the last one, so the next Start
// always takes a history entry.
func (m *Mover) Reset() {
	m.Stop()
	m.lastStop = time.Time{}
}

// resumable reports whether a restart within SessionGrace continues the last
// stopped session. Direction and cards must match and the history must be
// untouched since the stop.
func (m *Mover) resumable(dir layout.Direction, ids []string) bool {
	if m.lastStop.IsZero() || m.lastDir != dir || m.now().Sub(m.lastStop) >= SessionGrace {
		return false
	}
	return m.revision() == m.lastRev && slices.Equal(ids, m.ids)
}

func (m *Mover) revision() uint64 {
	if r, ok := m.hist.(revisioned); ok {
		return r.Revision()
	}
	return 0
}

func (m *Mover) cancel() {
	m.gen++
	m.active = false
}

func (m *Mover) apply() {
	v := m.dir.Vector()
	m.state.Cards.MoveMultiple(m.ids, v.X*m.step, v.Y*m.step)
}
