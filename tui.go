package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/reflow/truncate"

	"mindcanvas/internal/config"
	"mindcanvas/internal/geometry"
	"mindcanvas/internal/keymap"
)

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("124")).Bold(true)
	panelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	helpTitle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
)

// newModel returns a model without an editor. The caller opens the editor
// with the model as its UI and scheduler and then sets m.ed.
func newModel(cfg *config.Config, logger *log.Logger) *model {
	ta := textarea.New()
	ta.Placeholder = "card text"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(editorRows - 1)

	ti := textinput.New()
	ti.Prompt = ""

	return &model{
		config:    cfg,
		log:       logger,
		cardInput: ta,
		textInput: ti,
	}
}

func (m *model) Init() tea.Cmd {
	return nil
}

func frameTick() tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg { return frameMsg{} })
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.cmds = nil
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.cardInput.SetWidth(max(msg.Width, 1))
		m.textInput.Width = max(msg.Width-40, 10)
		m.ed.Canvas.Resize(float64(msg.Width)*cellWidth, float64(max(msg.Height-1, 1))*cellHeight)

	case tea.KeyMsg:
		m.handleKey(msg)

	case tea.MouseMsg:
		if !m.help && (m.screen == ScreenCanvas || m.screen == ScreenEditCard) {
			m.handleMouse(msg)
		}

	case moverTickMsg:
		m.ed.Tick(msg.gen)

	case frameMsg:
		m.framePending = false
		m.ed.Canvas.Frame()

	case keyReleaseMsg:
		if msg.seq == m.releaseSeq {
			m.ed.Keys.KeyUp(keymap.Event{Key: msg.key})
		}

	case statusClearMsg:
		if msg.seq == m.statusSeq {
			m.status, m.statusError = "", false
		}

	default:
		// cursor blinks
		var cmd tea.Cmd
		switch m.screen {
		case ScreenEditCard:
			m.cardInput, cmd = m.cardInput.Update(msg)
		case ScreenEditLabel, ScreenFileInput:
			m.textInput, cmd = m.textInput.Update(msg)
		}
		m.cmds = append(m.cmds, cmd)
	}

	if !m.quitting {
		m.syncEditing()
	}
	cmds := m.cmds
	m.cmds = nil
	if m.quitting {
		cmds = append(cmds, tea.Quit)
	}
	return m, tea.Batch(cmds...)
}

func (m *model) handleKey(msg tea.KeyMsg) {
	if m.help {
		m.helpKey(msg)
		return
	}
	switch m.screen {
	case ScreenEditLabel, ScreenFileInput:
		m.promptKey(msg)
		return
	}

	editing := m.screen == ScreenEditCard
	if ev, ok := keyEvent(msg); ok {
		// Space has no release event in a terminal, so it toggles.
		if ev.Key == "space" && !editing && m.ed.Keys.SpacePressed() {
			m.ed.Keys.KeyUp(ev)
			m.Status("pan off")
			return
		}
		if m.ed.Keys.KeyDown(ev, editing) {
			m.afterKey(ev)
			return
		}
	}
	if editing {
		var cmd tea.Cmd
		m.cardInput, cmd = m.cardInput.Update(msg)
		m.cmds = append(m.cmds, cmd)
	}
}

// afterKey synthesizes the key release the dispatcher expects.
func (m *model) afterKey(ev keymap.Event) {
	switch {
	case isArrow(ev.Key):
		m.releaseSeq++
		seq, key := m.releaseSeq, ev.Key
		m.cmds = append(m.cmds, tea.Tick(keyReleaseDelay, func(time.Time) tea.Msg {
			return keyReleaseMsg{key: key, seq: seq}
		}))
	case ev.Key == "tab":
		m.ed.Keys.KeyUp(ev)
	case ev.Key == "space":
		m.Status("pan on: drag or use the arrows, Space again to stop")
	}
}

func (m *model) promptKey(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closePrompt()
		return
	case tea.KeyEnter:
		value := m.textInput.Value()
		if m.screen == ScreenEditLabel {
			m.commitLabel(value)
			return
		}
		m.runFileOp(strings.TrimSpace(value))
		return
	}
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	m.cmds = append(m.cmds, cmd)
}

func (m *model) openPrompt(s Screen, value string) {
	m.screen = s
	m.textInput.SetValue(value)
	m.textInput.CursorEnd()
	m.cmds = append(m.cmds, m.textInput.Focus())
}

func (m *model) closePrompt() {
	m.textInput.Blur()
	m.textInput.Reset()
	m.labelID = ""
	m.screen = ScreenCanvas
}

func (m *model) commitLabel(label string) {
	label = strings.TrimSpace(label)
	id := m.labelID
	m.closePrompt()
	conn, ok := m.ed.State.Connections.Get(id)
	if !ok || conn.Label == label {
		return
	}
	m.ed.History.Record()
	m.ed.State.Connections.UpdateLabel(id, label)
	m.Status("label saved")
}

// syncEditing keeps the card editor in step with the store, which may
// start or stop editing on its own after a click or double click.
func (m *model) syncEditing() {
	id := m.ed.State.Cards.EditingID()
	switch {
	case m.screen == ScreenEditCard && id != m.editingID:
		m.StopEditing()
		if id != "" {
			m.StartEditing(id)
		}
	case m.screen == ScreenCanvas && id != "":
		m.StartEditing(id)
	}
}

func (m *model) canvasHeight() int {
	h := m.height - 1
	if m.screen == ScreenEditCard {
		h -= editorRows
	}
	return max(h, 1)
}

// StartEditing opens the card editor panel for cardID.
func (m *model) StartEditing(cardID string) {
	c, ok := m.ed.State.Cards.Get(cardID)
	if !ok {
		return
	}
	if m.screen == ScreenEditLabel || m.screen == ScreenFileInput {
		m.closePrompt()
	}
	m.ed.State.Cards.StartEditing(cardID)
	m.editingID = cardID
	m.cardInput.SetValue(c.Content)
	m.screen = ScreenEditCard
	m.cmds = append(m.cmds, m.cardInput.Focus())
}

// StopEditing commits the editor text as one undo step when it changed.
func (m *model) StopEditing() {
	if m.screen != ScreenEditCard {
		return
	}
	if c, ok := m.ed.State.Cards.Get(m.editingID); ok {
		if text := m.cardInput.Value(); text != c.Content {
			m.ed.History.Record()
			m.ed.State.Cards.UpdateContent(c.ID, text)
		}
	}
	if m.ed.State.Cards.EditingID() == m.editingID {
		m.ed.State.Cards.StopEditing()
	}
	m.cardInput.Blur()
	m.cardInput.Reset()
	m.editingID = ""
	m.screen = ScreenCanvas
}

func (m *model) EditLabel(connectionID string) {
	conn, ok := m.ed.State.Connections.Get(connectionID)
	if !ok {
		return
	}
	m.labelID = connectionID
	m.openPrompt(ScreenEditLabel, conn.Label)
}

func (m *model) ToggleHelp() {
	m.help = !m.help
	m.helpScroll = 0
}

func (m *model) Quit() {
	m.StopEditing()
	m.quitting = true
}

func (m *model) Status(msg string) { m.setStatus(msg, false) }

func (m *model) setStatus(msg string, isError bool) {
	m.status, m.statusError = msg, isError
	m.statusSeq++
	seq := m.statusSeq
	m.cmds = append(m.cmds, tea.Tick(statusTimeout, func(time.Time) tea.Msg { return statusClearMsg{seq: seq} }))
}

func (m *model) PointerWorld() (geometry.Point, bool) {
	if !m.hasPointer {
		return geometry.Point{}, false
	}
	return m.ed.Canvas.ToWorld(m.pointer), true
}

// Schedule delivers a mover tick through the bubbletea loop.
func (m *model) Schedule(d time.Duration, gen uint64) {
	m.cmds = append(m.cmds, tea.Tick(d, func(time.Time) tea.Msg { return moverTickMsg{gen: gen} }))
}

func (m *model) View() string {
	if m.quitting || m.width == 0 || m.height == 0 {
		return ""
	}
	if m.help {
		return m.helpView()
	}

	rows := renderCanvas(m.ed.State, m.ed.Canvas, m.width, m.canvasHeight(), renderOptions{
		decorations: true,
		editingID:   m.editingID,
	}).lines(false)

	var result strings.Builder
	result.WriteString(strings.Join(rows, "\n"))
	if m.screen == ScreenEditCard {
		result.WriteString("\n")
		result.WriteString(panelStyle.Render(truncate.String("Card text | Enter=newline, Esc or Ctrl+j=done", uint(m.width))))
		result.WriteString("\n")
		result.WriteString(m.cardInput.View())
	}
	result.WriteString("\n")
	result.WriteString(m.statusLine())
	return result.String()
}

func (m *model) statusLine() string {
	var line string
	switch m.screen {
	case ScreenEditCard:
		line = "Mode: EDIT | Esc or Ctrl+j to finish"
	case ScreenEditLabel:
		line = "Mode: LABEL | Label: " + m.textInput.View() + " | Enter=save, Esc=cancel"
	case ScreenFileInput:
		line = fmt.Sprintf("Mode: FILE | %s: %s | Enter=confirm, Esc=cancel", m.fileOpTitle(), m.textInput.View())
	default:
		vp := m.ed.Canvas.Viewport()
		line = fmt.Sprintf("Mode: %s | Zoom: %d%% | Cards: %d", strings.ToUpper(m.ed.Canvas.Mode().String()),
			int(vp.Zoom*100+0.5), m.ed.State.Cards.Len())
		if n := len(m.ed.State.Cards.SelectedIDs()); n > 0 {
			line += fmt.Sprintf(" | Selected: %d", n)
		}
		if m.ed.Keys.SpacePressed() {
			line += " | PAN"
		}
	}
	if m.status == "" && m.screen == ScreenCanvas {
		line += " | ? for help | " + m.ed.Bindings().Get(keymap.Quit) + " to quit"
	}
	line = truncate.String(line, uint(m.width))
	line += strings.Repeat(" ", max(m.width-lipgloss.Width(line), 0))

	if m.status == "" {
		return statusStyle.Render(line)
	}
	msg := " " + m.status + " "
	if m.statusError {
		msg = errorStyle.Render(" ERROR: " + m.status + " ")
	} else {
		msg = panelStyle.Render(msg)
	}
	room := max(m.width-lipgloss.Width(msg), 0)
	return statusStyle.Render(truncate.String(line, uint(room))) + msg
}

func (m *model) helpLines() []string {
	lines := []string{
		"mindcanvas help",
		"===============",
		"",
		"Key bindings (stored with the map, see `mindcanvas keys`):",
		"-----------------------------------------------------------",
	}
	b := m.ed.Bindings()
	for _, a := range keymap.Actions() {
		lines = append(lines, fmt.Sprintf("  %-16s %s", b.Get(a), keymap.Describe(a)))
	}
	lines = append(lines,
		"",
		"Modes:",
		"------",
		"  1                Select cards",
		"  2                Move cards (arrows move, Shift for large steps)",
		"  3                Select connections (Tab cycles arrows, Space+Tab switches to cycling lines)",
		"  4                Pan the canvas",
		"",
		"Fixed keys:",
		"-----------",
		"  Tab/Shift+Tab    Cycle through cards",
		"  Arrows           Select the nearest card in that direction",
		"  Space            Toggle pan: drag the canvas with the mouse",
		"  Delete/Backspace Delete the selection",
		"  Escape           Cancel the current operation or clear the selection",
		"  Ctrl+j           Finish editing (Ctrl+Enter)",
		"",
		"Mouse:",
		"------",
		"  Click            Select a card or connection, Ctrl+click adds to the selection",
		"  Double click     Edit a card, or create one on empty canvas",
		"  Drag             Move cards, resize with the ◢ handle, or draw a selection box",
		"  Middle drag      Pan the canvas",
		"  Wheel            Pan, Shift+wheel pans sideways, Ctrl+wheel zooms",
		"",
		"Note: selected cards are drawn with # borders, the card being edited with =",
	)
	return lines
}

func (m *model) helpKey(msg tea.KeyMsg) {
	lines := m.helpLines()
	visibleHeight := max(m.height-1, 1)
	maxScroll := max(len(lines)-visibleHeight, 0)
	switch msg.String() {
	case "esc", "q", "?":
		m.help = false
		m.helpScroll = 0
	case "j", "down":
		if m.helpScroll < maxScroll {
			m.helpScroll++
		}
	case "k", "up":
		if m.helpScroll > 0 {
			m.helpScroll--
		}
	case "pgdown", " ":
		m.helpScroll = min(m.helpScroll+visibleHeight, maxScroll)
	case "pgup":
		m.helpScroll = max(m.helpScroll-visibleHeight, 0)
	}
}

func (m *model) helpView() string {
	lines := m.helpLines()
	visibleHeight := max(m.height-1, 1)

	startLine := min(m.helpScroll, max(len(lines)-visibleHeight, 0))
	endLine := min(startLine+visibleHeight, len(lines))

	visible := make([]string, 0, endLine-startLine)
	for i, l := range lines[startLine:endLine] {
		if startLine+i == 0 {
			l = helpTitle.Render(l)
		}
		visible = append(visible, l)
	}
	status := fmt.Sprintf("Help (%d-%d of %d lines) | j/k to scroll, Esc to close", startLine+1, endLine, len(lines))
	return strings.Join(visible, "\n") + "\n" + statusStyle.Render(truncate.String(status, uint(m.width)))
}
