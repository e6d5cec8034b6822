package store

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindcanvas/internal/geometry"
	"mindcanvas/internal/model"
)

type recordingSaver struct {
	docs []model.Document
}

func (r *recordingSaver) Schedule(doc model.Document) { r.docs = append(r.docs, doc) }

func newTestState(t *testing.T) (*AppState, *recordingSaver) {
	t.Helper()
	sv := &recordingSaver{}
	s := New(WithSaver(sv), WithRand(rand.New(rand.NewPCG(1, 1))))
	return s, sv
}

func addCards(t *testing.T, s *AppState, ids ...string) {
	t.Helper()
	for i, id := range ids {
		c := model.NewCard(float64(i)*300, 0)
		c.ID = id
		c.Content = id
		require.Len(t, s.Cards.Add(c), 1)
	}
}

func TestCreateSelectsAndEdits(t *testing.T) {
	s, sv := newTestState(t)
	vp := geometry.Rect{Width: 1000, Height: 800}

	c := s.CreateCard(vp)
	assert.Equal(t, model.DefaultContent, c.Content)
	assert.Equal(t, []string{c.ID}, s.Cards.SelectedIDs())
	assert.Equal(t, c.ID, s.Cards.SelectedID())
	assert.Equal(t, c.ID, s.Cards.EditingID())
	assert.True(t, vp.Inset(20).ContainsRect(c.Rect()))
	assert.Len(t, sv.docs, 1)
}

func TestAddRejectsDuplicateIDsAndClampsSize(t *testing.T) {
	s, _ := newTestState(t)
	added := s.Cards.Add(
		model.Card{ID: "a", Width: 20, Height: 20},
		model.Card{ID: "a", Width: 300, Height: 300},
		model.Card{Content: "no id"},
	)
	require.Len(t, added, 2)
	a, ok := s.Cards.Get("a")
	require.True(t, ok)
	assert.Equal(t, model.MinCardWidth, a.Width)
	assert.Equal(t, model.MinCardHeight, a.Height)
	assert.NotEmpty(t, added[1].ID)
}

func TestSelectToggleUnderMulti(t *testing.T) {
	s, _ := newTestState(t)
	addCards(t, s, "a", "b", "c")

	s.Cards.Select("a", false)
	s.Cards.Select("b", true)
	s.Cards.Select("c", true)
	assert.Equal(t, []string{"a", "b", "c"}, s.Cards.SelectedIDs())
	assert.Equal(t, "c", s.Cards.SelectedID())

	s.Cards.Select("c", true)
	assert.Equal(t, []string{"a", "b"}, s.Cards.SelectedIDs())
	assert.Equal(t, "b", s.Cards.SelectedID())

	s.Cards.Select("a", false)
	assert.Equal(t, []string{"a"}, s.Cards.SelectedIDs())

	assert.False(t, s.Cards.Select("missing", false))
}

func TestSelectManyIgnoresUnknown(t *testing.T) {
	s, _ := newTestState(t)
	addCards(t, s, "a", "b")
	s.Cards.SelectMany([]string{"a", "zzz", "a"}, true)
	assert.Equal(t, []string{"a"}, s.Cards.SelectedIDs())
	s.Cards.SelectMany([]string{"b"}, false)
	assert.Equal(t, []string{"a", "b"}, s.Cards.SelectedIDs())
	s.Cards.ClearSelection()
	assert.Empty(t, s.Cards.SelectedID())
}

func TestMoveDoesNotSaveUntilPersist(t *testing.T) {
	s, sv := newTestState(t)
	addCards(t, s, "a", "b")
	before := len(sv.docs)

	s.Cards.Move("a", 5, 5)
	assert.Equal(t, 2, s.Cards.MoveMultiple([]string{"a", "b", "x"}, 1, 1))
	s.Cards.Resize("a", 10, 10)
	assert.Len(t, sv.docs, before)

	s.Cards.Persist()
	require.Len(t, sv.docs, before+1)
	a, _ := sv.docs[len(sv.docs)-1].CardByID("a")
	assert.Equal(t, 6.0, a.X)
	assert.Equal(t, model.MinCardWidth, a.Width)

	s.Cards.UpdateSize("b", 500, 90)
	assert.Len(t, sv.docs, before+2)
}

func TestUpdateContentAndColor(t *testing.T) {
	s, sv := newTestState(t)
	addCards(t, s, "a")
	n := len(sv.docs)

	assert.True(t, s.Cards.UpdateContent("a", "hello"))
	assert.False(t, s.Cards.UpdateContent("a", "hello"))
	assert.True(t, s.Cards.UpdateColor("a", "#d0ebff"))
	assert.Equal(t, 1, s.Cards.CycleColor("a", "missing"))

	a, _ := s.Cards.Get("a")
	assert.Equal(t, "hello", a.Content)
	assert.Equal(t, "#ffe3e3", a.Color)
	assert.Len(t, sv.docs, n+3)
}

func TestConnectionDuplicateIsUnordered(t *testing.T) {
	s, _ := newTestState(t)
	addCards(t, s, "A", "B")

	ab, err := s.Connections.Create("A", "B")
	require.NoError(t, err)
	assert.Equal(t, model.ArrowEnd, ab.ArrowType)

	_, err = s.Connections.Create("B", "A")
	assert.ErrorIs(t, err, ErrDuplicateConnection)
	_, err = s.Connections.Create("A", "B")
	assert.ErrorIs(t, err, ErrDuplicateConnection)
	assert.Equal(t, 1, s.Connections.Len())
}

func TestConnectionValidation(t *testing.T) {
	s, _ := newTestState(t)
	addCards(t, s, "A")

	_, err := s.Connections.Create("A", "A")
	assert.ErrorIs(t, err, ErrSelfConnection)
	_, err = s.Connections.Create("A", "ghost")
	assert.ErrorIs(t, err, ErrUnknownCard)
	assert.Zero(t, s.Connections.Len())
}

func TestCycleArrowTypeBecomesDefault(t *testing.T) {
	s, _ := newTestState(t)
	addCards(t, s, "A", "B", "C")
	ab, err := s.Connections.Create("A", "B")
	require.NoError(t, err)

	var got []model.ArrowType
	for i := 0; i < 3; i++ {
		a, ok := s.Connections.CycleArrowType(ab.ID)
		require.True(t, ok)
		got = append(got, a)
	}
	assert.Equal(t, []model.ArrowType{model.ArrowStart, model.ArrowBoth, model.ArrowNone}, got)

	bc, err := s.Connections.Create("B", "C")
	require.NoError(t, err)
	assert.Equal(t, model.ArrowNone, bc.ArrowType)
}

func TestSetConnectionsDataPrunes(t *testing.T) {
	s, _ := newTestState(t)
	addCards(t, s, "A", "B", "C")

	dropped := s.Connections.SetConnectionsData([]model.Connection{
		{ID: "1", StartCardID: "A", EndCardID: "B", ArrowType: model.ArrowEnd},
		{ID: "2", StartCardID: "B", EndCardID: "A"},
		{ID: "3", StartCardID: "A", EndCardID: "ghost"},
		{ID: "4", StartCardID: "C", EndCardID: "C"},
		{ID: "5", StartCardID: "B", EndCardID: "C", ArrowType: "sideways"},
	})
	assert.Equal(t, 3, dropped)
	require.Equal(t, 2, s.Connections.Len())
	c, ok := s.Connections.Get("5")
	require.True(t, ok)
	assert.Equal(t, model.ArrowEnd, c.ArrowType)
}

func TestConnectionModeStateMachine(t *testing.T) {
	s, _ := newTestState(t)
	addCards(t, s, "A", "B")

	_, err := s.Connections.CompleteConnection("B")
	assert.ErrorIs(t, err, ErrNoActiveConnection)

	require.True(t, s.Connections.StartConnectionMode("A"))
	start, active := s.Connections.ConnectionMode()
	assert.True(t, active)
	assert.Equal(t, "A", start)

	_, err = s.Connections.CompleteConnection("A")
	assert.ErrorIs(t, err, ErrSelfConnection)
	_, active = s.Connections.ConnectionMode()
	assert.False(t, active)

	s.Connections.StartConnectionMode("A")
	s.Connections.SetConnectionTarget("B")
	assert.Equal(t, "B", s.Connections.ConnectionTarget())
	s.Connections.CancelConnectionMode()
	assert.Empty(t, s.Connections.ConnectionTarget())
	assert.Zero(t, s.Connections.Len())

	s.Connections.StartConnectionMode("A")
	c, err := s.Connections.CompleteConnection("B")
	require.NoError(t, err)
	assert.Equal(t, "A", c.StartCardID)
	assert.Equal(t, "B", c.EndCardID)
}

func TestSelectionDomainsAreExclusive(t *testing.T) {
	s, _ := newTestState(t)
	addCards(t, s, "A", "B")
	c, err := s.Connections.Create("A", "B")
	require.NoError(t, err)

	s.SelectCard("A", false)
	s.SelectConnection(c.ID, false)
	assert.Empty(t, s.Cards.SelectedIDs())
	assert.Equal(t, []string{c.ID}, s.Connections.SelectedIDs())

	s.SelectCard("B", false)
	assert.Empty(t, s.Connections.SelectedIDs())

	s.ApplyMarquee([]string{"A", "B"}, []string{c.ID}, false)
	assert.Len(t, s.Cards.SelectedIDs(), 2)
	assert.Len(t, s.Connections.SelectedIDs(), 1)
}

func TestDeleteCardsCascades(t *testing.T) {
	s, sv := newTestState(t)
	addCards(t, s, "c1", "c2", "c3", "keep")
	for _, pair := range [][2]string{{"c1", "c2"}, {"c2", "keep"}, {"c3", "keep"}} {
		_, err := s.Connections.Create(pair[0], pair[1])
		require.NoError(t, err)
	}
	s.Cards.SelectMany([]string{"c1", "c2", "c3"}, true)
	s.Cards.StartEditing("c2")
	n := len(sv.docs)

	require.True(t, s.DeleteSelection())
	assert.Equal(t, 1, s.Cards.Len())
	assert.Zero(t, s.Connections.Len())
	assert.Empty(t, s.Cards.SelectedIDs())
	assert.Empty(t, s.Cards.EditingID())
	assert.Len(t, sv.docs, n+1, "cascade saves once")
}

func TestLoadDoesNotSave(t *testing.T) {
	s, sv := newTestState(t)
	dropped := s.Load(model.Document{
		Cards: []model.Card{{ID: "a"}, {ID: "b"}, {ID: "a"}},
		Connections: []model.Connection{
			{ID: "x", StartCardID: "a", EndCardID: "b", ArrowType: model.ArrowBoth},
			{ID: "y", StartCardID: "a", EndCardID: "zzz"},
		},
	})
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 2, s.Cards.Len())
	assert.Equal(t, 1, s.Connections.Len())
	assert.Empty(t, sv.docs)
}

func TestDocumentIsDeepCopy(t *testing.T) {
	s, _ := newTestState(t)
	addCards(t, s, "a")
	doc := s.Document()
	doc.Cards[0].Content = "mutated"
	a, _ := s.Cards.Get("a")
	assert.Equal(t, "a", a.Content)
}

func TestImportUsesFreshIDs(t *testing.T) {
	s, sv := newTestState(t)
	addCards(t, s, "a", "b")
	n := len(sv.docs)

	out := s.Import(model.Document{
		Cards: []model.Card{{ID: "a", Content: "A2"}, {ID: "b", Content: "B2"}},
		Connections: []model.Connection{
			{ID: "ab", StartCardID: "a", EndCardID: "b", ArrowType: model.ArrowEnd},
		},
	}, geometry.Point{X: 100})

	require.Len(t, out.Cards, 2)
	require.Len(t, out.Connections, 1)
	assert.Equal(t, 4, s.Cards.Len())
	assert.NotEqual(t, "a", out.Cards[0].ID)
	assert.Equal(t, 100.0, out.Cards[0].X)
	assert.ElementsMatch(t, []string{out.Cards[0].ID, out.Cards[1].ID}, s.Cards.SelectedIDs())
	assert.Len(t, sv.docs, n+1)
}

func TestRestoreSelectsSnapshotCard(t *testing.T) {
	s, sv := newTestState(t)
	doc := model.Document{Cards: []model.Card{{ID: "a"}, {ID: "b"}}}
	s.Restore(doc, "b")
	assert.Equal(t, "b", s.SelectedCardID())
	assert.Len(t, sv.docs, 1)
}

func TestConnectionAt(t *testing.T) {
	s, _ := newTestState(t)
	s.Cards.Add(
		model.Card{ID: "a", X: 0, Y: 0, Width: 200, Height: 100},
		model.Card{ID: "b", X: 600, Y: 0, Width: 200, Height: 100},
	)
	c, err := s.Connect("a", "b")
	require.NoError(t, err)

	got, ok := s.ConnectionAt(geometry.Point{X: 400, Y: 53}, 5)
	require.True(t, ok)
	assert.Equal(t, c.ID, got.ID)

	_, ok = s.ConnectionAt(geometry.Point{X: 400, Y: 90}, 5)
	assert.False(t, ok)

	mid, ok := s.ConnectionMidpoint(c)
	require.True(t, ok)
	assert.Equal(t, geometry.Point{X: 400, Y: 50}, mid)
}
