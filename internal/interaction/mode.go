package interaction

import "mindcanvas/internal/geometry"

// Mode is the effective interaction mode. The four base modes are switched
// with the digit keys; KeyboardConnect and FreeConnect are transient and
// return to the base mode they interrupted.
type Mode int

const (
	CardSelection Mode = iota
	CardMovement
	ConnectionSelection
	CanvasDrag
	KeyboardConnect
	FreeConnect
)

func (m Mode) String() string {
	switch m {
	case CardSelection:
		return "select"
	case CardMovement:
		return "move"
	case ConnectionSelection:
		return "connections"
	case CanvasDrag:
		return "pan"
	case KeyboardConnect:
		return "connect"
	case FreeConnect:
		return "draw"
	}
	return "unknown"
}

// Transient reports whether m interrupts a base mode.
func (m Mode) Transient() bool { return m == KeyboardConnect || m == FreeConnect }

// Selectable reports whether a background drag starts a selection box.
func (m Mode) Selectable() bool {
	return m == CardSelection || m == CardMovement || m == ConnectionSelection
}

// ModeForDigit maps the digit keys 1-4 to base modes.
func ModeForDigit(d rune) (Mode, bool) {
	switch d {
	case '1':
		return CardSelection, true
	case '2':
		return CardMovement, true
	case '3':
		return ConnectionSelection, true
	case '4':
		return CanvasDrag, true
	}
	return 0, false
}

// Button identifies a pointer button.
type Button int

const (
	ButtonLeft Button = iota
	ButtonMiddle
	ButtonRight
)

// Modifiers are the keyboard modifiers held during a pointer event.
type Modifiers struct {
	Ctrl, Meta, Shift, Alt bool
}

// CtrlOrMeta is true when either Ctrl or Cmd is held.
func (m Modifiers) CtrlOrMeta() bool { return m.Ctrl || m.Meta }

// PointerEvent is a pointer press, motion or release in screen pixels.
type PointerEvent struct {
	Screen geometry.Point
	Button Button
	Mods   Modifiers
}

// WheelEvent is a scroll in screen pixels.
type WheelEvent struct {
	Screen         geometry.Point
	DeltaX, DeltaY float64
	Mods           Modifiers
}
