// Package store holds the canonical mutable state of a mind map: the card
// and connection stores and the AppState container that ties them together,
// keeps the two selection domains apart and schedules saves.
package store

import (
	"errors"
	"io"
	"math/rand/v2"

	"github.com/charmbracelet/log"

	"mindcanvas/internal/geometry"
	"mindcanvas/internal/layout"
	"mindcanvas/internal/model"
)

// Saver receives a deep copy of the document after every structural
// mutation. Implementations must not block.
type Saver interface {
	Schedule(doc model.Document)
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(model.Document)

func (f SaverFunc) Schedule(doc model.Document) { f(doc) }

// DefaultMapSize is the nominal map rectangle used for placement when no
// viewport is known yet.
var DefaultMapSize = geometry.Size{Width: 4000, Height: 3000}

// Option configures an AppState.
type Option func(*AppState)

// WithSaver sets the save hook.
func WithSaver(sv Saver) Option {
	return func(s *AppState) { s.saver = sv }
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *log.Logger) Option {
	return func(s *AppState) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRand sets the random source used for card placement.
func WithRand(r layout.Rand) Option {
	return func(s *AppState) { s.Cards.rng = r }
}

// WithPlacement overrides the placement margin and minimum center spacing.
func WithPlacement(margin, minSpacing float64) Option {
	return func(s *AppState) {
		if margin > 0 {
			s.Cards.margin = margin
		}
		if minSpacing > 0 {
			s.Cards.minSpacing = minSpacing
		}
	}
}

// WithMapSize sets the map rectangle used when no viewport is known.
func WithMapSize(size geometry.Size) Option {
	return func(s *AppState) { s.mapSize = size }
}

// AppState is the explicit container for the stores of one open mind map.
type AppState struct {
	Cards       *CardStore
	Connections *ConnectionStore

	saver   Saver
	log     *log.Logger
	mapSize geometry.Size

	batching int
	dirty    bool
}

// New returns an empty AppState.
func New(opts ...Option) *AppState {
	s := &AppState{
		saver:   SaverFunc(func(model.Document) {}),
		log:     log.New(io.Discard),
		mapSize: DefaultMapSize,
	}
	s.Cards = newCardStore(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	s.Connections = newConnectionStore(s.Cards)
	for _, opt := range opts {
		opt(s)
	}
	s.Cards.changed = s.notify
	s.Connections.changed = s.notify
	return s
}

// Logger returns the state's logger.
func (s *AppState) Logger() *log.Logger { return s.log }

// MapSize returns the nominal map size.
func (s *AppState) MapSize() geometry.Size { return s.mapSize }

func (s *AppState) notify() {
	if s.batching > 0 {
		s.dirty = true
		return
	}
	s.saver.Schedule(s.Document())
}

// Batch runs fn and schedules at most one save for all the mutations it
// makes.
func (s *AppState) Batch(fn func()) {
	s.batching++
	defer func() {
		s.batching--
		if s.batching == 0 && s.dirty {
			s.dirty = false
			s.saver.Schedule(s.Document())
		}
	}()
	fn()
}

// Document returns a deep copy of the cards and connections.
func (s *AppState) Document() model.Document {
	return model.Document{Cards: s.Cards.All(), Connections: s.Connections.All()}
}

// SelectedCardID returns the derived single card selection.
func (s *AppState) SelectedCardID() string { return s.Cards.SelectedID() }

// Load replaces the state with doc, dropping invalid connections. It does
// not schedule a save. The number of dropped connections is returned.
func (s *AppState) Load(doc model.Document) int {
	s.Connections.CancelConnectionMode()
	s.Cards.SetCards(doc.Cards)
	dropped := s.Connections.SetConnectionsData(doc.Connections)
	if dropped > 0 {
		s.log.Warn("dropped invalid connections on load", "count", dropped)
	}
	s.log.Debug("document loaded", "cards", s.Cards.Len(), "connections", s.Connections.Len())
	return dropped
}

// Restore replaces the state with a history snapshot and saves it.
func (s *AppState) Restore(doc model.Document, selectedCardID string) {
	s.Batch(func() {
		s.Load(doc)
		if selectedCardID != "" {
			s.Cards.Select(selectedCardID, false)
		}
		s.dirty = true
	})
}

// Import merges doc into the current state with fresh ids, translating its
// cards by delta. The new cards become the selection. The remapped document
// actually added is returned.
func (s *AppState) Import(doc model.Document, delta geometry.Point) model.Document {
	remapped, _ := model.Remap(doc, delta)
	var out model.Document
	s.Batch(func() {
		out.Cards = s.Cards.Add(remapped.Cards...)
		out.Connections = s.Connections.Add(remapped.Connections...)
	})
	ids := make([]string, len(out.Cards))
	for i, c := range out.Cards {
		ids[i] = c.ID
	}
	s.SelectCards(ids, true)
	s.log.Info("imported", "cards", len(out.Cards), "connections", len(out.Connections))
	return out
}

// CreateCard creates a default card at a random free spot of the visible
// world rectangle and selects it alone.
func (s *AppState) CreateCard(viewport geometry.Rect) model.Card {
	s.Connections.ClearSelection()
	return s.Cards.Create(viewport, s.mapSize)
}

// CreateCardAt creates a default card at pos and selects it alone.
func (s *AppState) CreateCardAt(pos geometry.Point) model.Card {
	s.Connections.ClearSelection()
	return s.Cards.CreateAt(pos)
}

// SelectCard selects a card and clears the connection selection.
func (s *AppState) SelectCard(id string, multi bool) bool {
	if !s.Cards.Select(id, multi) {
		return false
	}
	s.Connections.ClearSelection()
	return true
}

// SelectCards selects several cards and clears the connection selection.
func (s *AppState) SelectCards(ids []string, clearPrevious bool) {
	s.Cards.SelectMany(ids, clearPrevious)
	s.Connections.ClearSelection()
}

// SelectConnection selects a connection and clears the card selection.
func (s *AppState) SelectConnection(id string, multi bool) bool {
	if !s.Connections.Select(id, multi) {
		return false
	}
	s.Cards.ClearSelection()
	return true
}

// ApplyMarquee applies a finished selection box. It is the one place where
// both selection domains may be populated at once.
func (s *AppState) ApplyMarquee(cardIDs, connIDs []string, additive bool) {
	s.Cards.SelectMany(cardIDs, !additive)
	s.Connections.SelectMany(connIDs, !additive)
}

// ClearSelection clears both selection domains.
func (s *AppState) ClearSelection() {
	s.Cards.ClearSelection()
	s.Connections.ClearSelection()
}

// DeleteCards removes the cards and every connection touching them with a
// single save.
func (s *AppState) DeleteCards(ids ...string) ([]model.Card, []model.Connection) {
	var cards []model.Card
	var conns []model.Connection
	s.Batch(func() {
		conns = s.Connections.DeleteByCardIDs(ids...)
		cards = s.Cards.Delete(ids...)
	})
	s.Connections.forget(ids)
	if len(cards) > 0 {
		s.log.Debug("deleted cards", "cards", len(cards), "connections", len(conns))
	}
	return cards, conns
}

// DeleteSelection removes the selected cards (with their connections) and
// the selected connections. It reports whether anything was removed.
func (s *AppState) DeleteSelection() bool {
	n := 0
	s.Batch(func() {
		n += len(s.Connections.DeleteByIDs(s.Connections.SelectedIDs()...))
		cards, conns := s.DeleteCards(s.Cards.SelectedIDs()...)
		n += len(cards) + len(conns)
	})
	return n > 0
}

// Connect creates a connection and logs validation rejections.
func (s *AppState) Connect(start, end string) (model.Connection, error) {
	c, err := s.Connections.Create(start, end)
	if err != nil {
		lvl := log.WarnLevel
		if errors.Is(err, ErrDuplicateConnection) {
			lvl = log.InfoLevel
		}
		s.log.Log(lvl, "connection rejected", "err", err)
		return c, err
	}
	return c, nil
}

// ConnectionSegment returns the on-screen segment of a connection: from the
// start card's edge to the end card's edge, both in world space.
func (s *AppState) ConnectionSegment(c model.Connection) (geometry.Point, geometry.Point, bool) {
	a, ok1 := s.Cards.Get(c.StartCardID)
	b, ok2 := s.Cards.Get(c.EndCardID)
	if !ok1 || !ok2 {
		return geometry.Point{}, geometry.Point{}, false
	}
	return geometry.EdgePoint(a.Rect(), b.Center()), geometry.EdgePoint(b.Rect(), a.Center()), true
}

// ConnectionMidpoint returns the midpoint between the centers of the
// connected cards.
func (s *AppState) ConnectionMidpoint(c model.Connection) (geometry.Point, bool) {
	a, ok1 := s.Cards.Get(c.StartCardID)
	b, ok2 := s.Cards.Get(c.EndCardID)
	if !ok1 || !ok2 {
		return geometry.Point{}, false
	}
	return geometry.Midpoint(a.Center(), b.Center()), true
}

// ConnectionAt returns the connection whose segment passes within tolerance
// world units of p. The last drawn connection wins.
func (s *AppState) ConnectionAt(p geometry.Point, tolerance float64) (model.Connection, bool) {
	conns := s.Connections.conns
	for i := len(conns) - 1; i >= 0; i-- {
		a, b, ok := s.ConnectionSegment(conns[i])
		if ok && geometry.DistanceToSegment(p, a, b) <= tolerance {
			return conns[i], true
		}
	}
	return model.Connection{}, false
}
