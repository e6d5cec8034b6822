package clipboard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindcanvas/internal/geometry"
	"mindcanvas/internal/layout"
	"mindcanvas/internal/model"
	"mindcanvas/internal/store"
)

type memSystem struct {
	text string
	err  error
}

func (m *memSystem) ReadAll() (string, error) { return m.text, m.err }
func (m *memSystem) WriteAll(text string) error {
	m.text = text
	return m.err
}

type countingRecorder struct{ n int }

func (r *countingRecorder) Record() bool { r.n++; return true }

func setup(t *testing.T) (*store.AppState, *Engine, *memSystem, *countingRecorder) {
	t.Helper()
	s := store.New()
	s.Cards.Add(
		model.Card{ID: "a", Content: "A", X: 0, Y: 0, Width: 200, Height: 100},
		model.Card{ID: "b", Content: "B", X: 300, Y: 0, Width: 200, Height: 100},
		model.Card{ID: "c", Content: "C", X: 0, Y: 300, Width: 200, Height: 100},
	)
	_, err := s.Connections.Create("a", "b")
	require.NoError(t, err)
	_, err = s.Connections.Create("b", "c")
	require.NoError(t, err)
	sys := &memSystem{}
	rec := &countingRecorder{}
	return s, New(s, rec, WithSystem(sys)), sys, rec
}

func TestCopyTakesInternalConnections(t *testing.T) {
	s, e, sys, _ := setup(t)
	s.SelectCards([]string{"a", "b"}, true)

	assert.Equal(t, 2, e.Copy())
	p := e.Payload()
	require.Len(t, p.Connections, 1)
	assert.True(t, p.Connections[0].Links("a", "b"))

	mirrored, err := Decode(sys.text)
	require.NoError(t, err)
	assert.Equal(t, p, mirrored)
}

func TestCopyIsDeep(t *testing.T) {
	s, e, _, _ := setup(t)
	s.SelectCard("a", false)
	e.Copy()
	s.Cards.UpdateContent("a", "changed")
	assert.Equal(t, "A", e.Payload().Cards[0].Content)
}

func TestCutPasteRoundTripIsIsomorphic(t *testing.T) {
	s, e, _, rec := setup(t)
	s.SelectCards([]string{"a", "b"}, true)
	original := s.Document()

	require.Equal(t, 2, e.Cut())
	assert.Equal(t, 1, rec.n, "cut is one history entry")
	assert.Equal(t, 1, s.Cards.Len())
	assert.Equal(t, 0, s.Connections.Len(), "cascade removed b -> c")

	at := geometry.Point{X: 1000, Y: 1000}
	require.Equal(t, 2, e.Paste(at))
	assert.Equal(t, 2, rec.n)

	pasted := s.Cards.SelectedCards()
	require.Len(t, pasted, 2)
	b, _ := layout.BoundingBox(pasted)
	assert.Equal(t, at, b.Center())

	byContent := map[string]model.Card{}
	for _, c := range pasted {
		byContent[c.Content] = c
		_, clash := original.CardByID(c.ID)
		assert.False(t, clash, "ids are fresh")
	}
	oa, _ := original.CardByID("a")
	ob, _ := original.CardByID("b")
	na, nb := byContent["A"], byContent["B"]
	assert.Equal(t, ob.X-oa.X, nb.X-na.X, "relative layout kept")
	assert.Equal(t, ob.Y-oa.Y, nb.Y-na.Y)

	conn, ok := s.Connections.Between(na.ID, nb.ID)
	require.True(t, ok)
	assert.Equal(t, na.ID, conn.StartCardID)
	assert.Equal(t, model.ArrowEnd, conn.ArrowType)
}

func TestPasteDropsDanglingConnections(t *testing.T) {
	s, e, _, _ := setup(t)
	bc, _ := s.Connections.Between("b", "c")
	s.SelectCard("a", false)
	s.Connections.Select(bc.ID, true)

	e.Copy()
	require.Len(t, e.Payload().Connections, 1)
	assert.Equal(t, 1, e.Paste(geometry.Point{}))
	assert.Equal(t, 2, s.Connections.Len())
}

func TestPasteTwiceGivesDistinctIDs(t *testing.T) {
	s, e, _, _ := setup(t)
	s.SelectCard("a", false)
	e.Copy()
	e.Paste(geometry.Point{X: 500, Y: 500})
	e.Paste(geometry.Point{X: 800, Y: 500})
	assert.Equal(t, 5, s.Cards.Len())
}

func TestPasteEmptyPayloadReadsSystemText(t *testing.T) {
	s, e, sys, _ := setup(t)
	sys.text = "<html><body><p>first</p><p>second &amp; third</p></body></html>"

	require.Equal(t, 1, e.Paste(geometry.Point{X: 50, Y: 50}))
	c, ok := s.Cards.Get(s.Cards.SelectedID())
	require.True(t, ok)
	assert.Equal(t, "first\nsecond & third", c.Content)
	assert.Equal(t, geometry.Point{X: 50, Y: 50}, c.Center())
}

func TestPasteEmptyPayloadReadsSystemPayload(t *testing.T) {
	s, e, sys, _ := setup(t)
	text, err := Encode(model.Document{
		Cards: []model.Card{
			{ID: "x", Content: "X", Width: 200, Height: 100},
			{ID: "y", Content: "Y", X: 300, Width: 200, Height: 100},
		},
		Connections: []model.Connection{{ID: "xy", StartCardID: "x", EndCardID: "y", ArrowType: model.ArrowBoth}},
	})
	require.NoError(t, err)
	sys.text = text

	require.Equal(t, 2, e.Paste(geometry.Point{}))
	assert.Equal(t, 5, s.Cards.Len())
	assert.Equal(t, 3, s.Connections.Len())
}

func TestPasteNothing(t *testing.T) {
	s, e, sys, rec := setup(t)
	sys.err = errors.New("no clipboard")
	assert.Equal(t, 0, e.Paste(geometry.Point{}))
	assert.Equal(t, 0, rec.n)
	assert.Equal(t, 3, s.Cards.Len())
}

func TestClean(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", "  hello\r\nworld ", "hello\nworld"},
		{"controls", "a\x00b\x07c", "abc"},
		{"html", "<div>one<br>two</div><script>x()</script>", "one\ntwo"},
		{"rtf", `{\rtf1\ansi{\fonttbl\f0\fswiss Helvetica;}\f0\pard Hello\par World \'e9\}}`, "Hello\nWorld é}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestDecodeRejectsForeignJSON(t *testing.T) {
	_, err := Decode(`{"cards":[]}`)
	assert.ErrorIs(t, err, ErrNotPayload)
	_, err = Decode("hello")
	assert.ErrorIs(t, err, ErrNotPayload)
}
