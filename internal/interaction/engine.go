// Package interaction turns pointer and wheel input into store mutations.
//
// The engine owns the viewport and the effective mode. It never starts
// timers of its own: pan and selection-box updates are coalesced until the
// host calls Frame, and time-based guards read the injected clock.
package interaction

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"mindcanvas/internal/geometry"
	"mindcanvas/internal/layout"
	"mindcanvas/internal/model"
	"mindcanvas/internal/store"
)

const (
	// DrawSampleDistance is the screen distance a pointer must travel before
	// another free-draw point is recorded.
	DrawSampleDistance = 5.0
	// ClickGuard suppresses the background click that follows a selection
	// box release.
	ClickGuard = 100 * time.Millisecond
	// DoubleClickInterval and DoubleClickDistance bound two clicks that
	// form a double click.
	DoubleClickInterval = 400 * time.Millisecond
	DoubleClickDistance = 6.0
	// HandleSize is the side of the resize handle square in screen pixels.
	HandleSize = 16.0
	// ConnectionTolerance is the hit distance for connections in screen
	// pixels.
	ConnectionTolerance = 6.0
	// WheelZoomStep is the zoom factor applied per 100 pixels of wheel.
	WheelZoomStep = 1.1
	// ZoomStep is the factor used by the zoom in/out commands.
	ZoomStep = 1.2
)

// Recorder takes a history snapshot before an operation.
type Recorder interface {
	Record() bool
}

type operation int

const (
	opNone operation = iota
	opPan
	opMarquee
	opDrag
	opResize
	opDraw
)

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithViewport sets the initial viewport.
func WithViewport(v geometry.Viewport) Option {
	return func(e *Engine) { e.vp = v }
}

// Engine is the canvas interaction core.
type Engine struct {
	state *store.AppState
	hist  Recorder
	log   *log.Logger
	now   func() time.Time

	vp     geometry.Viewport
	mode   Mode
	resume Mode
	// spaceHeld is the pan modifier normally bound to holding Space.
	spaceHeld bool

	op        operation
	opStarted bool // history recorded and at least one change applied

	panOrigin    geometry.Point // screen
	panStart     geometry.Point
	marqueeStart geometry.Point // world
	marqueeEnd   geometry.Point

	dragIDs  []string
	dragLast geometry.Point // world

	resizeID    string
	resizeStart geometry.Point // world
	resizeOrig  geometry.Size

	drawFrom   string
	drawPoints []geometry.Point // world
	drawSample geometry.Point   // screen

	pendingFrame   bool
	pendingPointer geometry.Point

	guardUntil time.Time
	lastClick  time.Time
	lastClickP geometry.Point
}

// New returns an engine bound to state. hist may be nil.
func New(state *store.AppState, hist Recorder, opts ...Option) *Engine {
	e := &Engine{
		state: state,
		hist:  hist,
		log:   log.New(io.Discard),
		now:   time.Now,
		vp:    geometry.NewViewport(0, 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.vp.Zoom == 0 {
		e.vp.Zoom = 1
	}
	return e
}

func (e *Engine) record() {
	if e.hist != nil {
		e.hist.Record()
	}
}

// Mode returns the effective mode.
func (e *Engine) Mode() Mode { return e.mode }

// BaseMode returns the mode that is active or will resume after a
// transient mode.
func (e *Engine) BaseMode() Mode {
	if e.mode.Transient() {
		return e.resume
	}
	return e.mode
}

// SetMode switches to a base mode, abandoning any transient mode. Entering
// connection selection clears the card selection and vice versa.
func (e *Engine) SetMode(m Mode) {
	if m.Transient() {
		return
	}
	e.cancelTransient()
	e.mode = m
	switch m {
	case ConnectionSelection:
		e.state.Cards.ClearSelection()
	case CardSelection, CardMovement:
		e.state.Connections.ClearSelection()
	}
	e.log.Debug("mode", "mode", m)
}

func (e *Engine) enterTransient(m Mode) {
	if !e.mode.Transient() {
		e.resume = e.mode
	}
	e.mode = m
}

func (e *Engine) cancelTransient() {
	switch e.mode {
	case KeyboardConnect:
		e.state.Connections.CancelConnectionMode()
	case FreeConnect:
		if e.op == opDraw {
			e.endOp()
		}
	default:
		return
	}
	e.mode = e.resume
}

// CancelTransient leaves a transient mode without creating anything. It
// reports whether a transient mode was active.
func (e *Engine) CancelTransient() bool {
	if !e.mode.Transient() {
		return false
	}
	e.cancelTransient()
	return true
}

// ToggleFreeConnect enters or leaves free-draw connection mode.
func (e *Engine) ToggleFreeConnect() {
	if e.mode == FreeConnect {
		e.cancelTransient()
		return
	}
	e.cancelTransient()
	e.enterTransient(FreeConnect)
}

// StartKeyboardConnect enters keyboard connection mode from cardID.
func (e *Engine) StartKeyboardConnect(cardID string) bool {
	e.cancelTransient()
	if !e.state.Connections.StartConnectionMode(cardID) {
		return false
	}
	e.enterTransient(KeyboardConnect)
	return true
}

// CompleteKeyboardConnect connects the pending start card to targetID and
// resumes the base mode. Rejections are logged and returned.
func (e *Engine) CompleteKeyboardConnect(targetID string) (model.Connection, error) {
	start, active := e.state.Connections.ConnectionMode()
	if active && e.state.Connections.Validate(start, targetID) == nil {
		e.record()
	}
	c, err := e.state.Connections.CompleteConnection(targetID)
	if e.mode == KeyboardConnect {
		e.mode = e.resume
	}
	if err != nil {
		e.log.Info("keyboard connection discarded", "err", err)
		return c, err
	}
	return c, nil
}

// SetSpaceHeld sets the Space pan modifier.
func (e *Engine) SetSpaceHeld(held bool) { e.spaceHeld = held }

// SpaceHeld reports the Space pan modifier.
func (e *Engine) SpaceHeld() bool { return e.spaceHeld }

// Interacting reports whether a pointer operation is in flight.
func (e *Engine) Interacting() bool { return e.op != opNone }

// Viewport returns the current viewport.
func (e *Engine) Viewport() geometry.Viewport { return e.vp }

// SetViewport replaces the viewport, clamping its zoom.
func (e *Engine) SetViewport(v geometry.Viewport) {
	v.Zoom = geometry.ClampZoom(v.Zoom)
	e.vp = v
}

// Resize records the canvas size in screen pixels.
func (e *Engine) Resize(width, height float64) {
	e.vp.Width, e.vp.Height = width, height
}

// ToWorld converts a screen point.
func (e *Engine) ToWorld(p geometry.Point) geometry.Point { return e.vp.ToWorld(p) }

// PanBy moves the viewport by a screen delta.
func (e *Engine) PanBy(dx, dy float64) {
	e.vp.Pan = e.vp.Pan.Add(geometry.Point{X: dx, Y: dy})
}

// ZoomAt sets the zoom keeping the world point under anchor fixed.
func (e *Engine) ZoomAt(anchor geometry.Point, zoom float64) {
	e.vp = geometry.ZoomAt(e.vp, anchor, zoom)
}

// ZoomBy multiplies the zoom around the screen center.
func (e *Engine) ZoomBy(factor float64) {
	e.ZoomAt(geometry.Point{X: e.vp.Width / 2, Y: e.vp.Height / 2}, e.vp.Zoom*factor)
}

// ResetZoom returns to 100% around the screen center.
func (e *Engine) ResetZoom() {
	e.ZoomAt(geometry.Point{X: e.vp.Width / 2, Y: e.vp.Height / 2}, 1)
}

// CenterOn pans so the world point w is in the middle of the screen.
func (e *Engine) CenterOn(w geometry.Point) { e.vp = e.vp.CenterOn(w) }

// CenterOnCards centers the bounding box of the given cards.
func (e *Engine) CenterOnCards(cards []model.Card) bool {
	b, ok := layout.BoundingBox(cards)
	if !ok {
		return false
	}
	e.CenterOn(b.Center())
	return true
}

// Marquee returns the selection box in world space while one is active.
func (e *Engine) Marquee() (geometry.Rect, bool) {
	if e.op != opMarquee {
		return geometry.Rect{}, false
	}
	return geometry.RectFromPoints(e.marqueeStart, e.marqueeEnd), true
}

// DrawPath returns the free-draw polyline in world space.
func (e *Engine) DrawPath() []geometry.Point {
	if e.op != opDraw {
		return nil
	}
	out := make([]geometry.Point, len(e.drawPoints))
	copy(out, e.drawPoints)
	return out
}

// HitCard returns the topmost card under a screen point.
func (e *Engine) HitCard(screen geometry.Point) (model.Card, bool) {
	return e.state.Cards.CardAt(e.vp.ToWorld(screen))
}

// HitConnection returns the connection under a screen point.
func (e *Engine) HitConnection(screen geometry.Point) (model.Connection, bool) {
	return e.state.ConnectionAt(e.vp.ToWorld(screen), ConnectionTolerance/e.vp.Zoom)
}

// HandleRect is the resize handle of a card in screen space: a square in
// its bottom-right corner.
func (e *Engine) HandleRect(c model.Card) geometry.Rect {
	br := e.vp.ToScreen(geometry.Point{X: c.X + c.Width, Y: c.Y + c.Height})
	return geometry.Rect{X: br.X - HandleSize, Y: br.Y - HandleSize, Width: HandleSize, Height: HandleSize}
}

func (e *Engine) hitHandle(screen geometry.Point) (model.Card, bool) {
	for _, c := range e.state.Cards.SelectedCards() {
		if e.HandleRect(c).Contains(screen) {
			return c, true
		}
	}
	return model.Card{}, false
}
