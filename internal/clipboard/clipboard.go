// Package clipboard implements copy, cut and paste of card groups. The
// in-memory payload is mirrored to the system clipboard as JSON so a copy
// survives a restart and can be pasted into another instance.
package clipboard

import (
	"encoding/json"
	"errors"
	"io"
	"os/exec"
	"runtime"
	"slices"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"

	"mindcanvas/internal/geometry"
	"mindcanvas/internal/layout"
	"mindcanvas/internal/model"
	"mindcanvas/internal/store"
)

// PayloadType tags JSON written to the system clipboard.
const PayloadType = "mindcanvas/clipboard"

// ErrNotPayload is returned by Decode for text that is not a clipboard
// payload.
var ErrNotPayload = errors.New("not a mindcanvas clipboard payload")

// System is the platform clipboard.
type System interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// OS talks to the platform clipboard. On macOS pbpaste is asked for plain
// text first so rich text copied from other apps arrives without markup.
type OS struct{}

func (OS) ReadAll() (string, error) {
	if runtime.GOOS == "darwin" {
		if out, err := exec.Command("pbpaste", "-Prefer", "txt").Output(); err == nil {
			return string(out), nil
		}
	}
	return clipboard.ReadAll()
}

func (OS) WriteAll(text string) error { return clipboard.WriteAll(text) }

// Recorder takes a history snapshot.
type Recorder interface {
	Record() bool
}

type payload struct {
	Type        string             `json:"type"`
	Cards       []model.Card       `json:"cards"`
	Connections []model.Connection `json:"connections"`
}

// Encode renders doc as a clipboard payload.
func Encode(doc model.Document) (string, error) {
	b, err := json.Marshal(payload{Type: PayloadType, Cards: doc.Cards, Connections: doc.Connections})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses a clipboard payload.
func Decode(text string) (model.Document, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") {
		return model.Document{}, ErrNotPayload
	}
	var p payload
	if err := json.Unmarshal([]byte(text), &p); err != nil || p.Type != PayloadType {
		return model.Document{}, ErrNotPayload
	}
	return model.Document{Cards: p.Cards, Connections: p.Connections}, nil
}

type Option func(*Engine)

// WithSystem sets the platform clipboard. A nil System disables mirroring.
func WithSystem(s System) Option {
	return func(e *Engine) { e.sys = s }
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// Engine holds the copied payload.
type Engine struct {
	state   *store.AppState
	hist    Recorder
	sys     System
	log     *log.Logger
	payload model.Document
}

// New returns an engine with an empty payload that mirrors to the OS
// clipboard.
func New(state *store.AppState, hist Recorder, opts ...Option) *Engine {
	e := &Engine{
		state: state,
		hist:  hist,
		sys:   OS{},
		log:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Payload returns a copy of the in-memory payload.
func (e *Engine) Payload() model.Document { return e.payload.Clone() }

func (e *Engine) record() {
	if e.hist != nil {
		e.hist.Record()
	}
}

// Copy snapshots the selected cards together with every connection that is
// selected or joins two selected cards. It returns the number of cards.
func (e *Engine) Copy() int {
	cards := e.state.Cards.SelectedCards()
	selectedConns := e.state.Connections.SelectedIDs()
	if len(cards) == 0 && len(selectedConns) == 0 {
		return 0
	}
	ids := make(map[string]bool, len(cards))
	for _, c := range cards {
		ids[c.ID] = true
	}
	var conns []model.Connection
	for _, c := range e.state.Connections.All() {
		if slices.Contains(selectedConns, c.ID) || (ids[c.StartCardID] && ids[c.EndCardID]) {
			conns = append(conns, c)
		}
	}
	e.payload = model.Document{Cards: cards, Connections: model.CloneConnections(conns)}
	e.mirror()
	e.log.Debug("copied", "cards", len(cards), "connections", len(conns))
	return len(cards)
}

func (e *Engine) mirror() {
	if e.sys == nil {
		return
	}
	text, err := Encode(e.payload)
	if err == nil {
		err = e.sys.WriteAll(text)
	}
	if err != nil {
		e.log.Warn("system clipboard write failed", "err", err)
	}
}

// Cut copies the selection and deletes it as one undo step.
func (e *Engine) Cut() int {
	n := e.Copy()
	if n == 0 && len(e.state.Connections.SelectedIDs()) == 0 {
		return 0
	}
	e.record()
	e.state.DeleteSelection()
	return n
}

// Paste inserts the payload with fresh ids, centering its bounding box on
// at, and selects the new cards. With an empty payload the system clipboard
// is consulted: a mindcanvas payload is pasted as is and any other text
// becomes a single card. It returns the number of cards added.
func (e *Engine) Paste(at geometry.Point) int {
	doc := e.payload
	if len(doc.Cards) == 0 {
		var ok bool
		if doc, ok = e.fromSystem(); !ok {
			return 0
		}
	}
	b, ok := layout.BoundingBox(doc.Cards)
	if !ok {
		return 0
	}
	e.record()
	added := e.state.Import(doc.Clone(), at.Sub(b.Center()))
	return len(added.Cards)
}

func (e *Engine) fromSystem() (model.Document, bool) {
	if e.sys == nil {
		return model.Document{}, false
	}
	text, err := e.sys.ReadAll()
	if err != nil {
		e.log.Warn("system clipboard read failed", "err", err)
		return model.Document{}, false
	}
	if doc, err := Decode(text); err == nil {
		return doc, len(doc.Cards) > 0
	}
	text = Clean(text)
	if text == "" {
		return model.Document{}, false
	}
	c := model.NewCard(0, 0)
	c.Content = text
	return model.Document{Cards: []model.Card{c}}, true
}
