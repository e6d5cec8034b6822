package store

import (
	"slices"

	"mindcanvas/internal/geometry"
	"mindcanvas/internal/layout"
	"mindcanvas/internal/model"
)

// CardStore owns the canonical card list, the card selection and the id of
// the card being edited. Every structural mutation calls the change hook;
// moves and live resizes do not, and are flushed with Persist.
type CardStore struct {
	cards     []model.Card
	selected  []string
	editingID string

	rng        layout.Rand
	margin     float64
	minSpacing float64
	lastPlaced geometry.Point

	changed func()
}

func newCardStore(rng layout.Rand) *CardStore {
	return &CardStore{
		rng:        rng,
		margin:     layout.DefaultMargin,
		minSpacing: layout.DefaultMinSpacing,
		changed:    func() {},
	}
}

func (s *CardStore) find(id string) int {
	for i := range s.cards {
		if s.cards[i].ID == id {
			return i
		}
	}
	return -1
}

// All returns a copy of every card in insertion order.
func (s *CardStore) All() []model.Card { return model.CloneCards(s.cards) }

// Len returns the number of cards.
func (s *CardStore) Len() int { return len(s.cards) }

// Get returns the card with the given id.
func (s *CardStore) Get(id string) (model.Card, bool) {
	if i := s.find(id); i >= 0 {
		return s.cards[i], true
	}
	return model.Card{}, false
}

// Has reports whether a card with the given id exists.
func (s *CardStore) Has(id string) bool { return s.find(id) >= 0 }

// Create places a default card at a random free spot of the visible world
// rectangle, selects it alone and starts editing it.
func (s *CardStore) Create(viewport geometry.Rect, mapSize geometry.Size) model.Card {
	pos, _ := layout.RandomPlacement(s.rng, layout.PlacementOptions{
		LastPosition: s.lastPlaced,
		MapSize:      mapSize,
		Existing:     s.cards,
		Viewport:     viewport,
		CardSize:     geometry.Size{Width: model.DefaultCardWidth, Height: model.DefaultCardHeight},
		Margin:       s.margin,
		MinSpacing:   s.minSpacing,
	})
	return s.CreateAt(pos)
}

// CreateAt adds a default card with its top-left corner at pos, selects it
// alone and starts editing it.
func (s *CardStore) CreateAt(pos geometry.Point) model.Card {
	c := model.NewCard(pos.X, pos.Y)
	s.cards = append(s.cards, c)
	s.lastPlaced = pos
	s.selected = []string{c.ID}
	s.editingID = c.ID
	s.changed()
	return c
}

// Add inserts cards as they are, normalising their size. Cards without an
// id get a fresh one; cards whose id already exists are skipped. The added
// cards are returned.
func (s *CardStore) Add(cards ...model.Card) []model.Card {
	added := make([]model.Card, 0, len(cards))
	for _, c := range cards {
		if c.ID == "" {
			c.ID = model.NewID()
		}
		if s.Has(c.ID) {
			continue
		}
		c = c.Normalize()
		s.cards = append(s.cards, c)
		added = append(added, c)
	}
	if len(added) > 0 {
		s.changed()
	}
	return added
}

// SetCards replaces the whole card list, for example after loading from
// storage. Duplicate and empty ids are dropped and sizes normalised. It
// does not trigger a save and resets selection and editing.
func (s *CardStore) SetCards(cards []model.Card) {
	s.cards = s.cards[:0]
	seen := make(map[string]bool, len(cards))
	for _, c := range cards {
		if c.ID == "" || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		s.cards = append(s.cards, c.Normalize())
	}
	s.selected = nil
	s.editingID = ""
}

func (s *CardStore) update(id string, fn func(*model.Card) bool) bool {
	i := s.find(id)
	if i < 0 {
		return false
	}
	return fn(&s.cards[i])
}

// UpdateContent replaces a card's text.
func (s *CardStore) UpdateContent(id, content string) bool {
	ok := s.update(id, func(c *model.Card) bool {
		if c.Content == content {
			return false
		}
		c.Content = content
		return true
	})
	if ok {
		s.changed()
	}
	return ok
}

// UpdateColor sets a card's color.
func (s *CardStore) UpdateColor(id, color string) bool {
	ok := s.update(id, func(c *model.Card) bool {
		if c.Color == color {
			return false
		}
		c.Color = color
		return true
	})
	if ok {
		s.changed()
	}
	return ok
}

// CycleColor advances each card to the next palette color and returns how
// many cards changed.
func (s *CardStore) CycleColor(ids ...string) int {
	n := 0
	for _, id := range ids {
		if s.update(id, func(c *model.Card) bool {
			c.Color = model.NextColor(c.Color)
			return true
		}) {
			n++
		}
	}
	if n > 0 {
		s.changed()
	}
	return n
}

// Resize sets a card's size during a live resize without saving.
func (s *CardStore) Resize(id string, w, h float64) bool {
	return s.update(id, func(c *model.Card) bool {
		c.Width, c.Height = model.ClampSize(w, h)
		return true
	})
}

// UpdateSize sets a card's size, clamped to the minimum, and saves at once.
// Resize end is a discrete event so no debouncing is needed.
func (s *CardStore) UpdateSize(id string, w, h float64) bool {
	if !s.Resize(id, w, h) {
		return false
	}
	s.changed()
	return true
}

// Move translates one card. It does not save; call Persist when the drag
// ends.
func (s *CardStore) Move(id string, dx, dy float64) bool {
	return s.update(id, func(c *model.Card) bool {
		c.X += dx
		c.Y += dy
		return true
	})
}

// MoveMultiple translates every listed card and returns how many moved.
func (s *CardStore) MoveMultiple(ids []string, dx, dy float64) int {
	n := 0
	for _, id := range ids {
		if s.Move(id, dx, dy) {
			n++
		}
	}
	return n
}

// Persist schedules a save of the current state. Used at drag and
// keyboard-move end.
func (s *CardStore) Persist() { s.changed() }

// Delete removes every listed card and returns the removed cards. Selection
// and editing state referencing them are cleaned up.
func (s *CardStore) Delete(ids ...string) []model.Card {
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var removed []model.Card
	kept := s.cards[:0]
	for _, c := range s.cards {
		if drop[c.ID] {
			removed = append(removed, c)
			continue
		}
		kept = append(kept, c)
	}
	s.cards = kept
	if len(removed) == 0 {
		return nil
	}
	s.selected = slices.DeleteFunc(s.selected, func(id string) bool { return drop[id] })
	if drop[s.editingID] {
		s.editingID = ""
	}
	s.changed()
	return removed
}

// Select selects a card. Without multi the selection becomes just id; with
// multi the id is toggled in or out of the selection.
func (s *CardStore) Select(id string, multi bool) bool {
	if !s.Has(id) {
		return false
	}
	if !multi {
		s.selected = []string{id}
		return true
	}
	if i := slices.Index(s.selected, id); i >= 0 {
		s.selected = slices.Delete(s.selected, i, i+1)
		return true
	}
	s.selected = append(s.selected, id)
	return true
}

// SelectMany selects the listed cards, optionally replacing the previous
// selection. Unknown ids are ignored.
func (s *CardStore) SelectMany(ids []string, clearPrevious bool) {
	if clearPrevious {
		s.selected = nil
	}
	for _, id := range ids {
		if s.Has(id) && !slices.Contains(s.selected, id) {
			s.selected = append(s.selected, id)
		}
	}
}

// ClearSelection deselects every card.
func (s *CardStore) ClearSelection() { s.selected = nil }

// SelectedIDs returns the selection in selection order.
func (s *CardStore) SelectedIDs() []string { return slices.Clone(s.selected) }

// SelectedID is the most recently selected card, or "" when nothing is
// selected. It is always derived from SelectedIDs.
func (s *CardStore) SelectedID() string {
	if len(s.selected) == 0 {
		return ""
	}
	return s.selected[len(s.selected)-1]
}

// IsSelected reports whether id is part of the selection.
func (s *CardStore) IsSelected(id string) bool { return slices.Contains(s.selected, id) }

// SelectedCards returns copies of the selected cards in selection order.
func (s *CardStore) SelectedCards() []model.Card {
	out := make([]model.Card, 0, len(s.selected))
	for _, id := range s.selected {
		if c, ok := s.Get(id); ok {
			out = append(out, c)
		}
	}
	return out
}

// StartEditing marks a card as being edited.
func (s *CardStore) StartEditing(id string) bool {
	if !s.Has(id) {
		return false
	}
	s.editingID = id
	return true
}

// StopEditing leaves edit mode.
func (s *CardStore) StopEditing() { s.editingID = "" }

// EditingID returns the card being edited, or "".
func (s *CardStore) EditingID() string { return s.editingID }

// CardAt returns the topmost card containing the world point p.
func (s *CardStore) CardAt(p geometry.Point) (model.Card, bool) {
	for i := len(s.cards) - 1; i >= 0; i-- {
		if s.cards[i].Rect().Contains(p) {
			return s.cards[i], true
		}
	}
	return model.Card{}, false
}
