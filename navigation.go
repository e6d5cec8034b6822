package main

import (
	"strings"
	"unicode"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"mindcanvas/internal/interaction"
	"mindcanvas/internal/keymap"
)

// keyEvent translates a bubbletea key into the dispatcher's event. Ctrl+j
// stands in for Ctrl+Enter, which terminals cannot tell apart from Enter.
// ok is false for keys the dispatcher has no name for.
func keyEvent(msg tea.KeyMsg) (keymap.Event, bool) {
	if msg.Paste {
		return keymap.Event{}, false
	}
	s := msg.String()
	if s == "ctrl+j" {
		return keymap.Event{Key: "enter", Ctrl: true}, true
	}

	var ev keymap.Event
	for {
		switch {
		case len(s) > len("ctrl+") && strings.HasPrefix(s, "ctrl+"):
			ev.Ctrl = true
			s = s[len("ctrl+"):]
			continue
		case len(s) > len("alt+") && strings.HasPrefix(s, "alt+"):
			ev.Alt = true
			s = s[len("alt+"):]
			continue
		case len(s) > len("shift+") && strings.HasPrefix(s, "shift+"):
			ev.Shift = true
			s = s[len("shift+"):]
			continue
		}
		break
	}

	switch s {
	case " ":
		s = "space"
	case "esc":
		s = "escape"
	}
	if r, _ := utf8.DecodeRuneInString(s); utf8.RuneCountInString(s) == 1 && unicode.IsUpper(r) {
		ev.Shift = true
	}
	ev.Key = keymap.NormalizeKey(s)
	return ev, ev.Key != ""
}

func isArrow(key string) bool {
	switch key {
	case "up", "down", "left", "right":
		return true
	}
	return false
}

func pointerEvent(msg tea.MouseMsg) interaction.PointerEvent {
	return interaction.PointerEvent{
		Screen: screenPoint(msg.X, msg.Y),
		Button: pointerButton(msg.Button),
		Mods:   interaction.Modifiers{Ctrl: msg.Ctrl, Shift: msg.Shift, Alt: msg.Alt},
	}
}

func pointerButton(b tea.MouseButton) interaction.Button {
	switch b {
	case tea.MouseButtonMiddle:
		return interaction.ButtonMiddle
	case tea.MouseButtonRight:
		return interaction.ButtonRight
	}
	return interaction.ButtonLeft
}

// wheelEvent maps one wheel notch to the pixel deltas a browser reports.
func wheelEvent(msg tea.MouseMsg) (interaction.WheelEvent, bool) {
	ev := interaction.WheelEvent{
		Screen: screenPoint(msg.X, msg.Y),
		Mods:   interaction.Modifiers{Ctrl: msg.Ctrl, Shift: msg.Shift, Alt: msg.Alt},
	}
	const notch = 100.0
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		ev.DeltaY = -notch
	case tea.MouseButtonWheelDown:
		ev.DeltaY = notch
	case tea.MouseButtonWheelLeft:
		ev.DeltaX = -notch
	case tea.MouseButtonWheelRight:
		ev.DeltaX = notch
	default:
		return ev, false
	}
	return ev, true
}

// handleMouse feeds the canvas engine. A press and release on the same
// cell without motion in between is also a click.
func (m *model) handleMouse(msg tea.MouseMsg) {
	if msg.Y >= m.canvasHeight() {
		return
	}
	if ev, ok := wheelEvent(msg); ok {
		m.ed.Canvas.Wheel(ev)
		return
	}
	ev := pointerEvent(msg)
	m.pointer, m.hasPointer = ev.Screen, true
	canvas := m.ed.Canvas

	switch msg.Action {
	case tea.MouseActionPress:
		m.pressAt, m.pressed, m.dragged = point{msg.X, msg.Y}, true, false
		canvas.PointerDown(ev)
	case tea.MouseActionMotion:
		if m.pressed && (point{msg.X, msg.Y}) != m.pressAt {
			m.dragged = true
		}
		if canvas.PointerMove(ev) {
			m.requestFrame()
		}
	case tea.MouseActionRelease:
		canvas.PointerUp(ev)
		if m.pressed && !m.dragged && (point{msg.X, msg.Y}) == m.pressAt {
			canvas.Click(ev)
		}
		m.pressed = false
	}
}

func (m *model) requestFrame() {
	if m.framePending {
		return
	}
	m.framePending = true
	m.cmds = append(m.cmds, frameTick())
}
