package store

import (
	"fmt"
	"slices"

	"mindcanvas/internal/model"
)

// CardLookup answers whether a card id currently exists.
type CardLookup interface {
	Has(id string) bool
}

// ConnectionStore owns the connection list, its selection, the default arrow
// type for new connections and the keyboard connection-mode state machine.
type ConnectionStore struct {
	conns    []model.Connection
	selected []string

	defaultArrow model.ArrowType
	cards        CardLookup

	// connecting is the start card while connection mode is active.
	connecting string
	target     string

	changed func()
}

func newConnectionStore(cards CardLookup) *ConnectionStore {
	return &ConnectionStore{
		defaultArrow: model.ArrowEnd,
		cards:        cards,
		changed:      func() {},
	}
}

func (s *ConnectionStore) find(id string) int {
	for i := range s.conns {
		if s.conns[i].ID == id {
			return i
		}
	}
	return -1
}

// All returns a copy of every connection.
func (s *ConnectionStore) All() []model.Connection { return model.CloneConnections(s.conns) }

// Len returns the number of connections.
func (s *ConnectionStore) Len() int { return len(s.conns) }

// Get returns the connection with the given id.
func (s *ConnectionStore) Get(id string) (model.Connection, bool) {
	if i := s.find(id); i >= 0 {
		return s.conns[i], true
	}
	return model.Connection{}, false
}

// Between returns the connection linking a and b in either direction.
func (s *ConnectionStore) Between(a, b string) (model.Connection, bool) {
	for _, c := range s.conns {
		if c.Links(a, b) {
			return c, true
		}
	}
	return model.Connection{}, false
}

// Validate reports why start and end could not be connected, or nil.
func (s *ConnectionStore) Validate(start, end string) error {
	if start == end {
		return ErrSelfConnection
	}
	if !s.cards.Has(start) || !s.cards.Has(end) {
		return ErrUnknownCard
	}
	if _, ok := s.Between(start, end); ok {
		return ErrDuplicateConnection
	}
	return nil
}

// Create connects start to end using the current default arrow type.
// Duplicates are detected regardless of direction.
func (s *ConnectionStore) Create(start, end string) (model.Connection, error) {
	if err := s.Validate(start, end); err != nil {
		return model.Connection{}, fmt.Errorf("connect %s -> %s: %w", start, end, err)
	}
	c := model.Connection{
		ID:          model.NewID(),
		StartCardID: start,
		EndCardID:   end,
		ArrowType:   s.defaultArrow,
	}
	s.conns = append(s.conns, c)
	s.changed()
	return c, nil
}

// Add inserts prebuilt connections, skipping any that fail validation or
// reuse an existing id. The accepted connections are returned.
func (s *ConnectionStore) Add(conns ...model.Connection) []model.Connection {
	var added []model.Connection
	for _, c := range conns {
		if c.ID == "" {
			c.ID = model.NewID()
		}
		if s.find(c.ID) >= 0 || s.Validate(c.StartCardID, c.EndCardID) != nil {
			continue
		}
		if !c.ArrowType.Valid() {
			c.ArrowType = s.defaultArrow
		}
		s.conns = append(s.conns, c)
		added = append(added, c)
	}
	if len(added) > 0 {
		s.changed()
	}
	return added
}

// SetConnectionsData replaces the connection list, keeping only connections
// whose endpoints exist, differ and are not already linked. It returns how
// many entries were dropped. No save is triggered.
func (s *ConnectionStore) SetConnectionsData(conns []model.Connection) int {
	s.conns = s.conns[:0]
	s.selected = nil
	dropped := 0
	seen := make(map[string]bool, len(conns))
	for _, c := range conns {
		if c.ID == "" || seen[c.ID] || s.Validate(c.StartCardID, c.EndCardID) != nil {
			dropped++
			continue
		}
		if !c.ArrowType.Valid() {
			c.ArrowType = model.ArrowEnd
		}
		seen[c.ID] = true
		s.conns = append(s.conns, c)
	}
	return dropped
}

// UpdateLabel sets a connection's label.
func (s *ConnectionStore) UpdateLabel(id, label string) bool {
	i := s.find(id)
	if i < 0 || s.conns[i].Label == label {
		return false
	}
	s.conns[i].Label = label
	s.changed()
	return true
}

func (s *ConnectionStore) deleteWhere(drop func(model.Connection) bool) []model.Connection {
	var removed []model.Connection
	kept := s.conns[:0]
	for _, c := range s.conns {
		if drop(c) {
			removed = append(removed, c)
			continue
		}
		kept = append(kept, c)
	}
	s.conns = kept
	if len(removed) == 0 {
		return nil
	}
	gone := make(map[string]bool, len(removed))
	for _, c := range removed {
		gone[c.ID] = true
	}
	s.selected = slices.DeleteFunc(s.selected, func(id string) bool { return gone[id] })
	s.changed()
	return removed
}

// DeleteByIDs removes the listed connections.
func (s *ConnectionStore) DeleteByIDs(ids ...string) []model.Connection {
	if len(ids) == 0 {
		return nil
	}
	return s.deleteWhere(func(c model.Connection) bool { return slices.Contains(ids, c.ID) })
}

// DeleteByCardIDs removes every connection touching one of the cards.
func (s *ConnectionStore) DeleteByCardIDs(cardIDs ...string) []model.Connection {
	if len(cardIDs) == 0 {
		return nil
	}
	return s.deleteWhere(func(c model.Connection) bool {
		return slices.Contains(cardIDs, c.StartCardID) || slices.Contains(cardIDs, c.EndCardID)
	})
}

// Select selects a connection, toggling it under multi.
func (s *ConnectionStore) Select(id string, multi bool) bool {
	if s.find(id) < 0 {
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

// SelectMany selects the listed connections, optionally replacing the
// previous selection.
func (s *ConnectionStore) SelectMany(ids []string, clearPrevious bool) {
	if clearPrevious {
		s.selected = nil
	}
	for _, id := range ids {
		if s.find(id) >= 0 && !slices.Contains(s.selected, id) {
			s.selected = append(s.selected, id)
		}
	}
}

func (s *ConnectionStore) ClearSelection()           { s.selected = nil }
func (s *ConnectionStore) SelectedIDs() []string     { return slices.Clone(s.selected) }
func (s *ConnectionStore) IsSelected(id string) bool { return slices.Contains(s.selected, id) }

// SelectedID returns the most recently selected connection, or "".
func (s *ConnectionStore) SelectedID() string {
	if len(s.selected) == 0 {
		return ""
	}
	return s.selected[len(s.selected)-1]
}

// CycleArrowType advances the connection's arrow type and remembers the
// result as the default for the next new connection.
func (s *ConnectionStore) CycleArrowType(id string) (model.ArrowType, bool) {
	i := s.find(id)
	if i < 0 {
		return "", false
	}
	next := s.conns[i].ArrowType.Next()
	s.conns[i].ArrowType = next
	s.defaultArrow = next
	s.changed()
	return next, true
}

// DefaultArrowType is the arrow type given to new connections.
func (s *ConnectionStore) DefaultArrowType() model.ArrowType { return s.defaultArrow }

// StartConnectionMode makes cardID the start of a pending connection.
func (s *ConnectionStore) StartConnectionMode(cardID string) bool {
	if !s.cards.Has(cardID) {
		return false
	}
	s.connecting = cardID
	s.target = ""
	return true
}

// CompleteConnection connects the pending start card to endID and returns
// to idle. Without a pending start, or when endID is the start itself, the
// state machine returns to idle without creating anything.
func (s *ConnectionStore) CompleteConnection(endID string) (model.Connection, error) {
	start := s.connecting
	s.CancelConnectionMode()
	if start == "" {
		return model.Connection{}, ErrNoActiveConnection
	}
	return s.Create(start, endID)
}

// CancelConnectionMode returns to idle without creating anything.
func (s *ConnectionStore) CancelConnectionMode() {
	s.connecting = ""
	s.target = ""
}

// ConnectionMode returns the pending start card and whether connection mode
// is active.
func (s *ConnectionStore) ConnectionMode() (string, bool) {
	return s.connecting, s.connecting != ""
}

// SetConnectionTarget highlights the card that Enter would connect to.
func (s *ConnectionStore) SetConnectionTarget(cardID string) { s.target = cardID }

// ConnectionTarget returns the highlighted candidate target, or "".
func (s *ConnectionStore) ConnectionTarget() string { return s.target }

// forget drops references to cards that no longer exist.
func (s *ConnectionStore) forget(cardIDs []string) {
	if slices.Contains(cardIDs, s.connecting) {
		s.CancelConnectionMode()
	}
	if slices.Contains(cardIDs, s.target) {
		s.target = ""
	}
}
