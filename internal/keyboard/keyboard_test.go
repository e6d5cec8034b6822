package keyboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindcanvas/internal/geometry"
	"mindcanvas/internal/history"
	"mindcanvas/internal/interaction"
	"mindcanvas/internal/keymap"
	"mindcanvas/internal/layout"
	"mindcanvas/internal/model"
	"mindcanvas/internal/store"
)

type fakeUI struct {
	editing  string
	label    string
	help     bool
	exported []string
	quit     bool
	status   []string
}

func (u *fakeUI) StartEditing(id string)               { u.editing = id }
func (u *fakeUI) StopEditing()                         { u.editing = "" }
func (u *fakeUI) EditLabel(id string)                  { u.label = id }
func (u *fakeUI) ToggleHelp()                          { u.help = !u.help }
func (u *fakeUI) Export(format string)                 { u.exported = append(u.exported, format) }
func (u *fakeUI) Import()                              {}
func (u *fakeUI) Quit()                                { u.quit = true }
func (u *fakeUI) Status(msg string)                    { u.status = append(u.status, msg) }
func (u *fakeUI) PointerWorld() (geometry.Point, bool) { return geometry.Point{}, false }

type ticks struct{ gens []uint64 }

func (t *ticks) Schedule(_ time.Duration, gen uint64) { t.gens = append(t.gens, gen) }

type countingHistory struct {
	*history.Engine
	records int
}

func (h *countingHistory) Record() bool {
	h.records++
	return h.Engine.Record()
}

type fixture struct {
	state  *store.AppState
	canvas *interaction.Engine
	hist   *countingHistory
	mover  *Mover
	ticks  *ticks
	ui     *fakeUI
	d      *Dispatcher
	clock  time.Time
}

func (f *fixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func (f *fixture) press(key string) bool {
	return f.d.KeyDown(keymap.Event{Key: key}, f.ui.editing != "")
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ticks: &ticks{},
		ui:    &fakeUI{},
		clock: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	now := func() time.Time { return f.clock }
	f.state = store.New()
	f.state.Cards.Add(
		model.Card{ID: "a", Content: "A", X: 100, Y: 100, Width: 200, Height: 100},
		model.Card{ID: "b", Content: "B", X: 400, Y: 100, Width: 200, Height: 100},
		model.Card{ID: "c", Content: "C", X: 100, Y: 400, Width: 200, Height: 100},
	)
	f.hist = &countingHistory{Engine: history.New(f.state, history.WithClock(now))}
	f.hist.Baseline()
	f.canvas = interaction.New(f.state, f.hist,
		interaction.WithClock(now),
		interaction.WithViewport(geometry.NewViewport(1000, 800)),
	)
	f.mover = NewMover(f.state, f.hist, f.ticks, now)
	f.d = NewDispatcher(Deps{
		State:   f.state,
		Canvas:  f.canvas,
		History: f.hist,
		Mover:   f.mover,
		UI:      f.ui,
	})
	return f
}

func TestDefaultChainOrder(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []string{"edit", "navigation", "connection", "view", "card"}, f.d.Handlers())
}

type stubHandler struct {
	name string
	prio int
	hits *[]string
	take bool
}

func (s stubHandler) Name() string  { return s.name }
func (s stubHandler) Priority() int { return s.prio }
func (s stubHandler) Handle(*Context) Result {
	*s.hits = append(*s.hits, s.name)
	if s.take {
		return Handled
	}
	return Pass
}

func TestFirstHandledWins(t *testing.T) {
	f := newFixture(t)
	var hits []string
	d := NewDispatcher(Deps{State: f.state, Canvas: f.canvas},
		stubHandler{name: "late", prio: 50, hits: &hits, take: true},
		stubHandler{name: "early", prio: 10, hits: &hits},
		stubHandler{name: "middle", prio: 20, hits: &hits, take: true},
	)
	assert.Equal(t, []string{"early", "middle", "late"}, d.Handlers())
	assert.True(t, d.KeyDown(keymap.Event{Key: "x"}, false))
	assert.Equal(t, []string{"early", "middle"}, hits)
}

func TestEditingPassesOrdinaryKeys(t *testing.T) {
	f := newFixture(t)
	f.ui.editing = "a"

	assert.False(t, f.press("q"), "typing reaches the text field")
	assert.False(t, f.press("delete"))
	assert.Equal(t, 3, f.state.Cards.Len())

	assert.True(t, f.press("escape"))
	assert.Empty(t, f.ui.editing)
}

func TestCtrlEnterLeavesEditing(t *testing.T) {
	f := newFixture(t)
	f.ui.editing = "a"
	assert.True(t, f.d.KeyDown(keymap.Event{Key: "enter", Ctrl: true}, true))
	assert.Empty(t, f.ui.editing)
}

func TestNewCardWhileEditing(t *testing.T) {
	f := newFixture(t)
	f.ui.editing = "a"
	assert.True(t, f.d.KeyDown(keymap.Event{Key: "d", Ctrl: true}, true))
	assert.Equal(t, 4, f.state.Cards.Len())
	assert.Equal(t, f.state.Cards.SelectedID(), f.ui.editing)
	assert.NotEqual(t, "a", f.ui.editing)
}

func TestTabCyclesArrowTypes(t *testing.T) {
	f := newFixture(t)
	conn, err := f.state.Connect("a", "b")
	require.NoError(t, err)
	require.Equal(t, model.ArrowEnd, conn.ArrowType)

	require.True(t, f.press("3"))
	require.Equal(t, interaction.ConnectionSelection, f.canvas.Mode())
	require.True(t, f.state.SelectConnection(conn.ID, false))

	var got []model.ArrowType
	for range 3 {
		f.advance(time.Second)
		require.True(t, f.press("tab"))
		f.d.KeyUp(keymap.Event{Key: "tab"})
		c, ok := f.state.Connections.Get(conn.ID)
		require.True(t, ok)
		got = append(got, c.ArrowType)
	}
	assert.Equal(t, []model.ArrowType{model.ArrowStart, model.ArrowBoth, model.ArrowNone}, got)
	assert.Equal(t, model.ArrowNone, f.state.Connections.DefaultArrowType())
	assert.Equal(t, 3, f.hist.records)
}

func TestSpaceTabTogglesConnectionCycling(t *testing.T) {
	f := newFixture(t)
	ab, err := f.state.Connect("a", "b")
	require.NoError(t, err)
	ac, err := f.state.Connect("a", "c")
	require.NoError(t, err)
	f.press("3")
	f.state.SelectConnection(ab.ID, false)

	f.press("space")
	assert.True(t, f.canvas.SpaceHeld())
	f.press("tab")
	f.d.KeyUp(keymap.Event{Key: "space"})
	assert.False(t, f.canvas.SpaceHeld())
	assert.True(t, f.d.Flags().ConnectionCycling)

	f.press("tab")
	assert.Equal(t, []string{ac.ID}, f.state.Connections.SelectedIDs())
	f.press("tab")
	assert.Equal(t, []string{ab.ID}, f.state.Connections.SelectedIDs(), "wraps")
	c, _ := f.state.Connections.Get(ab.ID)
	assert.Equal(t, model.ArrowEnd, c.ArrowType, "arrow untouched while cycling")
}

func TestTabCyclesCards(t *testing.T) {
	f := newFixture(t)
	f.press("tab")
	assert.Equal(t, "a", f.state.Cards.SelectedID())
	f.press("tab")
	assert.Equal(t, "b", f.state.Cards.SelectedID())
	f.d.KeyDown(keymap.Event{Key: "tab", Shift: true}, false)
	assert.Equal(t, "a", f.state.Cards.SelectedID())
}

func TestArrowNavigation(t *testing.T) {
	f := newFixture(t)
	f.state.SelectCard("a", false)
	f.press("right")
	assert.Equal(t, "b", f.state.Cards.SelectedID())
	f.press("left")
	f.press("down")
	assert.Equal(t, "c", f.state.Cards.SelectedID())
}

func TestKeyboardConnect(t *testing.T) {
	f := newFixture(t)
	f.state.SelectCard("a", false)

	require.True(t, f.d.KeyDown(keymap.Event{Key: "l", Ctrl: true}, false))
	assert.Equal(t, interaction.KeyboardConnect, f.canvas.Mode())

	f.press("down")
	assert.Equal(t, "c", f.state.Connections.ConnectionTarget())
	f.press("enter")

	assert.Equal(t, interaction.CardSelection, f.canvas.Mode())
	_, ok := f.state.Connections.Between("a", "c")
	assert.True(t, ok)
	assert.Equal(t, 1, f.hist.records)
}

func TestKeyboardConnectEscape(t *testing.T) {
	f := newFixture(t)
	f.state.SelectCard("a", false)
	f.d.KeyDown(keymap.Event{Key: "l", Ctrl: true}, false)
	f.press("right")
	f.press("escape")

	assert.Equal(t, interaction.CardSelection, f.canvas.Mode())
	assert.Equal(t, 0, f.state.Connections.Len())
	assert.Equal(t, 0, f.hist.records)
}

func TestDeleteMultipleIsOneUndoStep(t *testing.T) {
	f := newFixture(t)
	_, err := f.state.Connect("a", "b")
	require.NoError(t, err)
	_, err = f.state.Connect("b", "c")
	require.NoError(t, err)
	f.advance(time.Second)
	f.hist.Baseline()
	before := f.state.Document()

	f.state.SelectCards([]string{"a", "b"}, true)
	require.True(t, f.press("delete"))
	assert.Equal(t, 1, f.state.Cards.Len())
	assert.Equal(t, 0, f.state.Connections.Len())

	require.True(t, f.d.KeyDown(keymap.Event{Key: "z", Ctrl: true}, false))
	assert.Equal(t, before, f.state.Document())

	require.True(t, f.d.KeyDown(keymap.Event{Key: "z", Ctrl: true, Shift: true}, false))
	assert.Equal(t, 1, f.state.Cards.Len())
}

func TestMoverSession(t *testing.T) {
	f := newFixture(t)
	f.state.SelectCards([]string{"a", "b"}, true)
	f.press("2")
	require.Equal(t, interaction.CardMovement, f.canvas.Mode())

	require.True(t, f.press("right"))
	a, _ := f.state.Cards.Get("a")
	assert.Equal(t, 110.0, a.X, "first step is immediate")
	require.Len(t, f.ticks.gens, 1)

	gen := f.ticks.gens[0]
	f.mover.Tick(gen)
	f.mover.Tick(f.ticks.gens[1])
	a, _ = f.state.Cards.Get("a")
	b, _ := f.state.Cards.Get("b")
	assert.Equal(t, 130.0, a.X)
	assert.Equal(t, 430.0, b.X)

	assert.True(t, f.press("right"), "repeat while active")
	f.d.KeyUp(keymap.Event{Key: "right"})
	assert.False(t, f.mover.Active())

	last := f.ticks.gens[len(f.ticks.gens)-1]
	f.mover.Tick(last)
	a, _ = f.state.Cards.Get("a")
	assert.Equal(t, 130.0, a.X, "stale tick ignored")
	assert.Equal(t, 1, f.hist.records)
}

func TestMoverRestartWithinGraceKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.state.SelectCard("a", false)
	f.press("2")

	f.press("right")
	f.d.KeyUp(keymap.Event{Key: "right"})
	f.advance(300 * time.Millisecond)
	f.press("right")
	f.d.KeyUp(keymap.Event{Key: "right"})
	assert.Equal(t, 1, f.hist.records)

	f.advance(2 * time.Second)
	f.press("right")
	assert.Equal(t, 2, f.hist.records)
	f.press("down")
	assert.Equal(t, 2, f.hist.records, "turning mid-hold stays in the session")
}

func TestMoveAfterUndoStartsNewEntry(t *testing.T) {
	f := newFixture(t)
	f.state.SelectCard("a", false)
	f.press("2")
	f.advance(time.Second)

	f.press("right")
	f.d.KeyUp(keymap.Event{Key: "right"})
	f.advance(200 * time.Millisecond)
	require.True(t, f.d.KeyDown(keymap.Event{Key: "z", Ctrl: true}, false))
	a, _ := f.state.Cards.Get("a")
	require.Equal(t, 100.0, a.X)
	require.True(t, f.hist.CanRedo())

	f.advance(200 * time.Millisecond)
	f.press("right")
	f.d.KeyUp(keymap.Event{Key: "right"})
	assert.Equal(t, 2, f.hist.records)
	assert.False(t, f.hist.CanRedo(), "a new move clears the redo stack")

	require.True(t, f.d.KeyDown(keymap.Event{Key: "z", Ctrl: true}, false))
	a, _ = f.state.Cards.Get("a")
	assert.Equal(t, 100.0, a.X)
}

func TestMovingOtherCardsWithinGraceIsSeparateEntry(t *testing.T) {
	f := newFixture(t)
	f.state.SelectCard("a", false)
	f.press("2")
	f.advance(time.Second)

	f.press("right")
	f.d.KeyUp(keymap.Event{Key: "right"})
	f.advance(200 * time.Millisecond)
	f.state.SelectCard("c", false)
	f.press("right")
	f.d.KeyUp(keymap.Event{Key: "right"})
	assert.Equal(t, 2, f.hist.records)

	require.True(t, f.d.KeyDown(keymap.Event{Key: "z", Ctrl: true}, false))
	a, _ := f.state.Cards.Get("a")
	c, _ := f.state.Cards.Get("c")
	assert.Equal(t, 110.0, a.X, "only the second move is undone")
	assert.Equal(t, 100.0, c.X)
}

func TestUndoLeavesKeyboardConnect(t *testing.T) {
	f := newFixture(t)
	f.advance(time.Second)
	f.hist.Record()
	f.state.Cards.UpdateContent("b", "changed")

	f.state.SelectCard("a", false)
	require.True(t, f.d.KeyDown(keymap.Event{Key: "l", Ctrl: true}, false))
	require.Equal(t, interaction.KeyboardConnect, f.canvas.Mode())

	require.True(t, f.d.KeyDown(keymap.Event{Key: "z", Ctrl: true}, false))
	b, _ := f.state.Cards.Get("b")
	assert.Equal(t, "B", b.Content)
	assert.Equal(t, interaction.CardSelection, f.canvas.Mode())
	_, connecting := f.state.Connections.ConnectionMode()
	assert.False(t, connecting)

	// a fresh connection works without pressing Escape first
	f.state.SelectCard("a", false)
	require.True(t, f.d.KeyDown(keymap.Event{Key: "l", Ctrl: true}, false))
	f.press("right")
	f.press("enter")
	_, ok := f.state.Connections.Between("a", "b")
	assert.True(t, ok)
}

func TestLargeStepWithShift(t *testing.T) {
	f := newFixture(t)
	f.state.SelectCard("a", false)
	f.press("2")
	f.d.KeyDown(keymap.Event{Key: "down", Shift: true}, false)
	a, _ := f.state.Cards.Get("a")
	assert.Equal(t, 100+MoveStepLarge, a.Y)
}

func TestCycleColorAndEscape(t *testing.T) {
	f := newFixture(t)
	f.state.SelectCards([]string{"a", "b"}, true)
	require.True(t, f.d.KeyDown(keymap.Event{Key: "c", Alt: true}, false))
	a, _ := f.state.Cards.Get("a")
	assert.Equal(t, model.NextColor(model.DefaultColor), a.Color)

	f.press("escape")
	assert.Empty(t, f.state.Cards.SelectedIDs())
}

func TestViewCommands(t *testing.T) {
	f := newFixture(t)
	f.d.KeyDown(keymap.Event{Key: "+", Shift: true}, false)
	assert.InDelta(t, interaction.ZoomStep, f.canvas.Viewport().Zoom, 1e-9)
	f.press("=")
	assert.Equal(t, 1.0, f.canvas.Viewport().Zoom)

	f.press("?")
	assert.True(t, f.ui.help)
	f.d.KeyDown(keymap.Event{Key: "g", Ctrl: true}, false)
	assert.Equal(t, []string{"mermaid"}, f.ui.exported)
	f.d.KeyDown(keymap.Event{Key: "q", Ctrl: true}, false)
	assert.True(t, f.ui.quit)
}

func TestDirectionMapping(t *testing.T) {
	assert.Equal(t, layout.Up, direction("up"))
	assert.Equal(t, layout.Left, direction("left"))
	assert.Equal(t, layout.Right, direction("right"))
}
