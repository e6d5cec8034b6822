package interaction

import (
	"math"
	"time"

	"mindcanvas/internal/geometry"
	"mindcanvas/internal/layout"
	"mindcanvas/internal/model"
)

func (e *Engine) panModifier(ev PointerEvent) bool {
	return e.spaceHeld || ev.Mods.CtrlOrMeta() || ev.Button == ButtonMiddle
}

// PointerDown starts whichever operation the press selects, in priority
// order: resize handle, card drag, free drawing, selection box, pan.
func (e *Engine) PointerDown(ev PointerEvent) {
	if e.op != opNone {
		// the release was lost, e.g. it happened outside the terminal
		e.commitOp()
		e.endOp()
	}
	world := e.vp.ToWorld(ev.Screen)
	plain := ev.Button == ButtonLeft && !e.panModifier(ev)
	cardMode := e.mode == CardSelection || e.mode == CardMovement

	if plain && cardMode {
		if c, ok := e.hitHandle(ev.Screen); ok {
			e.beginResize(c, world)
			return
		}
		if c, ok := e.state.Cards.CardAt(world); ok {
			e.beginDrag(c, world)
			return
		}
	}

	switch {
	case e.mode == FreeConnect && ev.Button == ButtonLeft:
		e.beginDraw(ev.Screen, world)
	case plain && e.mode.Selectable():
		if _, onCard := e.state.Cards.CardAt(world); onCard {
			return
		}
		e.op = opMarquee
		e.marqueeStart, e.marqueeEnd = world, world
	case e.panModifier(ev) || e.mode == CanvasDrag:
		e.op = opPan
		e.panOrigin = ev.Screen
		e.panStart = e.vp.Pan
	}
}

func (e *Engine) beginResize(c model.Card, world geometry.Point) {
	e.op = opResize
	e.opStarted = false
	e.resizeID = c.ID
	e.resizeStart = world
	e.resizeOrig = geometry.Size{Width: c.Width, Height: c.Height}
}

func (e *Engine) beginDrag(c model.Card, world geometry.Point) {
	if !e.state.Cards.IsSelected(c.ID) {
		e.state.SelectCard(c.ID, false)
	}
	e.op = opDrag
	e.opStarted = false
	e.dragIDs = e.state.Cards.SelectedIDs()
	e.dragLast = world
}

func (e *Engine) beginDraw(screen, world geometry.Point) {
	e.op = opDraw
	e.drawFrom = ""
	if c, ok := e.state.Cards.CardAt(world); ok {
		e.drawFrom = c.ID
	}
	e.drawPoints = []geometry.Point{world}
	e.drawSample = screen
}

// PointerMove updates the active operation. Pan and selection-box updates
// are deferred: it returns true when the caller must schedule a Frame.
func (e *Engine) PointerMove(ev PointerEvent) bool {
	switch e.op {
	case opDraw:
		if ev.Screen.Dist(e.drawSample) > DrawSampleDistance {
			e.drawPoints = append(e.drawPoints, e.vp.ToWorld(ev.Screen))
			e.drawSample = ev.Screen
		}
	case opDrag:
		world := e.vp.ToWorld(ev.Screen)
		d := world.Sub(e.dragLast)
		if d.X == 0 && d.Y == 0 {
			return false
		}
		e.startOnce()
		e.state.Cards.MoveMultiple(e.dragIDs, d.X, d.Y)
		e.dragLast = world
	case opResize:
		world := e.vp.ToWorld(ev.Screen)
		d := world.Sub(e.resizeStart)
		e.startOnce()
		e.state.Cards.Resize(e.resizeID, e.resizeOrig.Width+d.X, e.resizeOrig.Height+d.Y)
	case opPan, opMarquee:
		e.pendingPointer = ev.Screen
		if !e.pendingFrame {
			e.pendingFrame = true
			return true
		}
	}
	return false
}

func (e *Engine) startOnce() {
	if !e.opStarted {
		e.opStarted = true
		e.record()
	}
}

// Frame applies the latest coalesced pointer position.
func (e *Engine) Frame() {
	if !e.pendingFrame {
		return
	}
	e.pendingFrame = false
	switch e.op {
	case opPan:
		e.vp.Pan = e.panStart.Add(e.pendingPointer.Sub(e.panOrigin))
	case opMarquee:
		e.marqueeEnd = e.vp.ToWorld(e.pendingPointer)
	}
}

// PointerUp finishes the active operation.
func (e *Engine) PointerUp(ev PointerEvent) {
	if e.op == opPan || e.op == opMarquee {
		e.pendingPointer = ev.Screen
		e.pendingFrame = true
		e.Frame()
	}

	switch e.op {
	case opMarquee:
		e.finishMarquee(ev)
	case opDraw:
		e.finishDraw(e.vp.ToWorld(ev.Screen))
	default:
		e.commitOp()
	}
	e.endOp()
}

// commitOp saves the result of a drag or resize that has moved anything.
func (e *Engine) commitOp() {
	if !e.opStarted {
		return
	}
	switch e.op {
	case opDrag:
		e.state.Cards.Persist()
	case opResize:
		if c, ok := e.state.Cards.Get(e.resizeID); ok {
			e.state.Cards.UpdateSize(c.ID, c.Width, c.Height)
		}
	}
}

func (e *Engine) endOp() {
	e.op = opNone
	e.opStarted = false
	e.pendingFrame = false
	e.dragIDs = nil
	e.resizeID = ""
	e.drawFrom = ""
	e.drawPoints = nil
}

func (e *Engine) finishMarquee(ev PointerEvent) {
	box := geometry.RectFromPoints(e.marqueeStart, e.marqueeEnd)
	if box.Empty() {
		return
	}
	var cardIDs, connIDs []string
	for _, c := range e.state.Cards.All() {
		if box.ContainsRect(c.Rect()) {
			cardIDs = append(cardIDs, c.ID)
		}
	}
	for _, c := range e.state.Connections.All() {
		if mid, ok := e.state.ConnectionMidpoint(c); ok && box.Contains(mid) {
			connIDs = append(connIDs, c.ID)
		}
	}
	additive := ev.Mods.Shift || ev.Mods.CtrlOrMeta()
	e.state.ApplyMarquee(cardIDs, connIDs, additive)
	e.guardUntil = e.now().Add(ClickGuard)
	e.log.Debug("selection box", "cards", len(cardIDs), "connections", len(connIDs))
}

func (e *Engine) finishDraw(end geometry.Point) {
	target, ok := e.state.Cards.CardAt(end)
	if e.drawFrom == "" || !ok || target.ID == e.drawFrom {
		e.log.Debug("free line discarded", "from", e.drawFrom)
		return
	}
	if err := e.state.Connections.Validate(e.drawFrom, target.ID); err != nil {
		e.log.Info("free line discarded", "err", err)
		return
	}
	e.record()
	if _, err := e.state.Connect(e.drawFrom, target.ID); err != nil {
		e.log.Info("free line discarded", "err", err)
	}
}

// Click routes a press and release at the same spot. A second click close
// in time and space is treated as a double click.
func (e *Engine) Click(ev PointerEvent) {
	now := e.now()
	if now.Before(e.guardUntil) {
		e.guardUntil = now
		return
	}
	if e.op != opNone {
		return
	}
	if !e.lastClick.IsZero() && now.Sub(e.lastClick) <= DoubleClickInterval &&
		ev.Screen.Dist(e.lastClickP) <= DoubleClickDistance {
		e.lastClick = time.Time{}
		e.DoubleClick(ev)
		return
	}
	e.lastClick, e.lastClickP = now, ev.Screen

	world := e.vp.ToWorld(ev.Screen)
	switch e.mode {
	case FreeConnect:
		return
	case KeyboardConnect:
		if c, ok := e.state.Cards.CardAt(world); ok {
			_, _ = e.CompleteKeyboardConnect(c.ID)
			return
		}
		e.CancelTransient()
		return
	}

	if c, ok := e.state.Cards.CardAt(world); ok {
		e.clickCard(c, ev)
		return
	}
	if conn, ok := e.HitConnection(ev.Screen); ok {
		e.state.SelectConnection(conn.ID, ev.Mods.CtrlOrMeta())
		e.mode = ConnectionSelection
		return
	}
	if e.mode == ConnectionSelection {
		e.state.Connections.ClearSelection()
	} else {
		e.state.Cards.ClearSelection()
	}
	e.state.Cards.StopEditing()
}

func (e *Engine) clickCard(c model.Card, ev PointerEvent) {
	if e.mode == ConnectionSelection || e.mode == CanvasDrag {
		e.mode = CardSelection
	}
	switch {
	case ev.Mods.CtrlOrMeta():
		e.state.SelectCard(c.ID, true)
	case e.state.Cards.IsSelected(c.ID) && len(e.state.Cards.SelectedIDs()) > 1:
		// keep the multi-selection
	default:
		e.state.SelectCard(c.ID, false)
	}
	if e.state.Cards.EditingID() != c.ID {
		e.state.Cards.StopEditing()
	}
}

// DoubleClick on empty canvas creates a card centered on the pointer,
// clamped into the visible area, and starts editing it. On a card it starts
// editing that card. The card id and whether it was created are returned.
func (e *Engine) DoubleClick(ev PointerEvent) (string, bool) {
	world := e.vp.ToWorld(ev.Screen)
	if c, ok := e.state.Cards.CardAt(world); ok {
		e.state.SelectCard(c.ID, false)
		e.state.Cards.StartEditing(c.ID)
		return c.ID, false
	}
	if e.mode.Transient() {
		return "", false
	}
	size := geometry.Size{Width: model.DefaultCardWidth, Height: model.DefaultCardHeight}
	pos := layout.CenteredAt(world, size)
	if bounds := e.vp.WorldRect(); !bounds.Empty() {
		r := layout.ClampRect(geometry.Rect{X: pos.X, Y: pos.Y, Width: size.Width, Height: size.Height}, bounds)
		pos = geometry.Point{X: r.X, Y: r.Y}
	}
	e.record()
	c := e.state.CreateCardAt(pos)
	if e.mode == ConnectionSelection || e.mode == CanvasDrag {
		e.mode = CardSelection
	}
	return c.ID, true
}

// Wheel zooms at the pointer with Ctrl or Cmd, pans horizontally with
// Shift and pans both axes otherwise.
func (e *Engine) Wheel(ev WheelEvent) {
	switch {
	case ev.Mods.CtrlOrMeta():
		factor := math.Pow(WheelZoomStep, -ev.DeltaY/100)
		e.ZoomAt(ev.Screen, e.vp.Zoom*factor)
	case ev.Mods.Shift:
		d := ev.DeltaX
		if d == 0 {
			d = ev.DeltaY
		}
		e.PanBy(-d, 0)
	default:
		e.PanBy(-ev.DeltaX, -ev.DeltaY)
	}
}

// BoxPreview lists the cards a release of the current selection box would
// select.
func (e *Engine) BoxPreview() []string {
	box, ok := e.Marquee()
	if !ok {
		return nil
	}
	var ids []string
	for _, c := range e.state.Cards.All() {
		if box.ContainsRect(c.Rect()) {
			ids = append(ids, c.ID)
		}
	}
	return ids
}
