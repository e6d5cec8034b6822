package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindcanvas/internal/config"
	"mindcanvas/internal/editor"
	"mindcanvas/internal/geometry"
	"mindcanvas/internal/keymap"
	"mindcanvas/internal/logging"
	cardmodel "mindcanvas/internal/model"
	"mindcanvas/internal/storage"
)

type memSystem struct{ text string }

func (s *memSystem) ReadAll() (string, error) { return s.text, nil }
func (s *memSystem) WriteAll(text string) error {
	s.text = text
	return nil
}

func newTestModel(t *testing.T) *model {
	t.Helper()
	cfg := config.Default()
	cfg.SaveDirectory = t.TempDir()

	m := newModel(cfg, logging.Discard())
	ed, err := editor.New(context.Background(), editor.Options{
		Repository: storage.NewRepository(storage.NewMemoryKV(), nil),
		UI:         m,
		Scheduler:  m,
		System:     &memSystem{},
		Logger:     logging.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { ed.Close() })
	m.ed = ed

	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func press(m *model, msgs ...tea.KeyMsg) {
	for _, msg := range msgs {
		m.Update(msg)
	}
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestKeyEvent(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
		want keymap.Event
	}{
		{"ctrl letter", tea.KeyMsg{Type: tea.KeyCtrlD}, keymap.Event{Key: "d", Ctrl: true}},
		{"ctrl enter", tea.KeyMsg{Type: tea.KeyCtrlJ}, keymap.Event{Key: "enter", Ctrl: true}},
		{"space", tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, keymap.Event{Key: "space"}},
		{"escape", tea.KeyMsg{Type: tea.KeyEsc}, keymap.Event{Key: "escape"}},
		{"shift tab", tea.KeyMsg{Type: tea.KeyShiftTab}, keymap.Event{Key: "tab", Shift: true}},
		{"upper case", runes("A"), keymap.Event{Key: "a", Shift: true}},
		{"alt letter", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c"), Alt: true}, keymap.Event{Key: "c", Alt: true}},
		{"punctuation", runes("?"), keymap.Event{Key: "?"}},
		{"arrow", tea.KeyMsg{Type: tea.KeyUp}, keymap.Event{Key: "up"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := keyEvent(tt.msg)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := keyEvent(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("pasted"), Paste: true})
	assert.False(t, ok)
}

func TestRenderCanvas(t *testing.T) {
	m := newTestModel(t)
	a := cardmodel.NewCard(16, 16)
	a.Content = "Hello"
	b := cardmodel.NewCard(400, 16)
	b.Content = "World"
	m.ed.State.Load(cardmodel.Document{
		Cards:       []cardmodel.Card{a, b},
		Connections: []cardmodel.Connection{{ID: "c1", StartCardID: a.ID, EndCardID: b.ID, ArrowType: cardmodel.ArrowEnd}},
	})

	out := strings.Join(renderCanvas(m.ed.State, m.ed.Canvas, 80, 20, renderOptions{}).lines(true), "\n")
	assert.Contains(t, out, "Hello")
	assert.Contains(t, out, "World")
	assert.Contains(t, out, "+-")
	assert.Contains(t, out, "▶")

	m.ed.State.SelectCard(a.ID, false)
	out = strings.Join(renderCanvas(m.ed.State, m.ed.Canvas, 80, 20, renderOptions{decorations: true}).lines(true), "\n")
	assert.Contains(t, out, "##")
	assert.Contains(t, out, "◢")
}

func TestCreateAndEditCard(t *testing.T) {
	m := newTestModel(t)

	press(m, tea.KeyMsg{Type: tea.KeyCtrlD})
	require.Equal(t, ScreenEditCard, m.screen)
	require.Equal(t, 1, m.ed.State.Cards.Len())
	id := m.editingID
	assert.Equal(t, id, m.ed.State.Cards.EditingID())

	press(m, runes("Hi"), tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ScreenCanvas, m.screen)
	assert.Empty(t, m.ed.State.Cards.EditingID())
	c, ok := m.ed.State.Cards.Get(id)
	require.True(t, ok)
	assert.Equal(t, "Hi", c.Content)

	// Enter reopens the selected card and Ctrl+j finishes.
	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ScreenEditCard, m.screen)
	press(m, runes("!"), tea.KeyMsg{Type: tea.KeyCtrlJ})
	c, _ = m.ed.State.Cards.Get(id)
	assert.Equal(t, "Hi!", c.Content)
}

func TestSpaceToggles(t *testing.T) {
	m := newTestModel(t)
	space := tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}

	press(m, space)
	assert.True(t, m.ed.Keys.SpacePressed())
	assert.True(t, m.ed.Canvas.SpaceHeld())
	press(m, space)
	assert.False(t, m.ed.Keys.SpacePressed())
	assert.False(t, m.ed.Canvas.SpaceHeld())
}

func TestArrowReleaseStopsMover(t *testing.T) {
	m := newTestModel(t)
	c := cardmodel.NewCard(100, 100)
	m.ed.State.Load(cardmodel.Document{Cards: []cardmodel.Card{c}})
	m.ed.State.SelectCard(c.ID, false)

	press(m, runes("2"), tea.KeyMsg{Type: tea.KeyUp})
	require.True(t, m.ed.Mover.Active())
	moved, _ := m.ed.State.Cards.Get(c.ID)
	assert.Less(t, moved.Y, c.Y)

	// a repeat supersedes the pending release
	press(m, tea.KeyMsg{Type: tea.KeyUp})
	m.Update(keyReleaseMsg{key: "up", seq: m.releaseSeq - 1})
	assert.True(t, m.ed.Mover.Active())
	m.Update(keyReleaseMsg{key: "up", seq: m.releaseSeq})
	assert.False(t, m.ed.Mover.Active())
}

func TestLabelPrompt(t *testing.T) {
	m := newTestModel(t)
	a, b := cardmodel.NewCard(0, 0), cardmodel.NewCard(400, 0)
	m.ed.State.Load(cardmodel.Document{
		Cards:       []cardmodel.Card{a, b},
		Connections: []cardmodel.Connection{{ID: "c1", StartCardID: a.ID, EndCardID: b.ID, ArrowType: cardmodel.ArrowEnd}},
	})

	m.EditLabel("c1")
	require.Equal(t, ScreenEditLabel, m.screen)
	press(m, runes("depends on"), tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ScreenCanvas, m.screen)
	conn, ok := m.ed.State.Connections.Get("c1")
	require.True(t, ok)
	assert.Equal(t, "depends on", conn.Label)

	m.EditLabel("c1")
	press(m, runes(" later"), tea.KeyMsg{Type: tea.KeyEsc})
	conn, _ = m.ed.State.Connections.Get("c1")
	assert.Equal(t, "depends on", conn.Label)
}

func TestExportPrompt(t *testing.T) {
	m := newTestModel(t)
	a, b := cardmodel.NewCard(0, 0), cardmodel.NewCard(400, 0)
	a.Content, b.Content = "A", "B"
	m.ed.State.Load(cardmodel.Document{
		Cards:       []cardmodel.Card{a, b},
		Connections: []cardmodel.Connection{{ID: "c1", StartCardID: a.ID, EndCardID: b.ID, ArrowType: cardmodel.ArrowEnd}},
	})

	m.Export("mermaid")
	require.Equal(t, ScreenFileInput, m.screen)
	assert.Equal(t, "mindmap.mmd", m.textInput.Value())
	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ScreenCanvas, m.screen)
	assert.False(t, m.statusError, m.status)

	data, err := os.ReadFile(filepath.Join(m.config.SaveDirectory, "mindmap.mmd"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "node1[A] --> node2[B]")
}

func TestVisualTextExport(t *testing.T) {
	m := newTestModel(t)
	c := cardmodel.NewCard(16, 16)
	c.Content = "snapshot"
	m.ed.State.Load(cardmodel.Document{Cards: []cardmodel.Card{c}})
	m.ed.State.SelectCard(c.ID, false)

	path := filepath.Join(t.TempDir(), "map.txt")
	require.NoError(t, m.exportVisualTXT(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "snapshot")
	assert.NotContains(t, string(data), "#", "selection is not part of the snapshot")
}

func TestImportPrompt(t *testing.T) {
	m := newTestModel(t)
	path := filepath.Join(m.config.SaveDirectory, "in.mmd")
	require.NoError(t, os.WriteFile(path, []byte("graph TD\n    a[One] --> b[Two]\n"), 0o644))

	m.Import()
	press(m, runes("in.mmd"), tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.statusError, m.status)
	assert.Equal(t, 2, m.ed.State.Cards.Len())
	assert.Equal(t, 1, m.ed.State.Connections.Len())

	m.Import()
	press(m, runes("missing.txt"), tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.statusError)
}

func TestMouseClickSelectsCard(t *testing.T) {
	m := newTestModel(t)
	c := cardmodel.NewCard(0, 0)
	m.ed.State.Load(cardmodel.Document{Cards: []cardmodel.Card{c}})

	x, y := toCell(m.ed.Canvas.Viewport(), geometry.Point{X: c.X + 20, Y: c.Y + 20})
	m.Update(tea.MouseMsg{X: x, Y: y, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	m.Update(tea.MouseMsg{X: x, Y: y, Button: tea.MouseButtonLeft, Action: tea.MouseActionRelease})
	assert.True(t, m.ed.State.Cards.IsSelected(c.ID))

	wp, ok := m.PointerWorld()
	require.True(t, ok)
	assert.True(t, c.Rect().Contains(wp))
}

func TestQuitCommitsEditing(t *testing.T) {
	m := newTestModel(t)
	press(m, tea.KeyMsg{Type: tea.KeyCtrlD}, runes("bye"))
	id := m.editingID

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlQ})
	// Ctrl+q is not an edit exit, so it is typed into the card.
	assert.False(t, m.quitting)

	press(m, tea.KeyMsg{Type: tea.KeyEsc})
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlQ})
	assert.True(t, m.quitting)
	assert.NotNil(t, cmd)
	c, _ := m.ed.State.Cards.Get(id)
	assert.Equal(t, "bye", c.Content)
	assert.Empty(t, m.View())
}
