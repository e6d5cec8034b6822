package keymap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCombo(t *testing.T) {
	tests := []struct {
		in   string
		want Combo
	}{
		{"Ctrl+d", Combo{Ctrl: true, Key: "d"}},
		{"ctrl+D", Combo{Ctrl: true, Key: "d"}},
		{"Cmd+z", Combo{Ctrl: true, Key: "z"}},
		{"Alt+c", Combo{Alt: true, Key: "c"}},
		{"Ctrl+Shift+Tab", Combo{Ctrl: true, Shift: true, Key: "tab"}},
		{"Ctrl+=", Combo{Ctrl: true, Key: "="}},
		{"Ctrl+-", Combo{Ctrl: true, Key: "-"}},
		{"Ctrl++", Combo{Ctrl: true, Key: "+"}},
		{"?", Combo{Key: "?"}},
		{"Esc", Combo{Key: "escape"}},
		{"ArrowUp", Combo{Key: "up"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCombo(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseComboErrors(t *testing.T) {
	for _, in := range []string{"", "Hyper+x", "Ctrl+", "Ctrl+ab"} {
		_, err := ParseCombo(in)
		assert.ErrorIs(t, err, ErrInvalidCombo, in)
	}
}

func TestComboString(t *testing.T) {
	c, err := ParseCombo("shift+ctrl+enter")
	require.NoError(t, err)
	assert.Equal(t, "Ctrl+Shift+Enter", c.String())
}

func TestMatches(t *testing.T) {
	c, _ := ParseCombo("Ctrl+d")
	assert.True(t, c.Matches(Event{Key: "d", Ctrl: true}))
	assert.True(t, c.Matches(Event{Key: "d", Meta: true}))
	assert.False(t, c.Matches(Event{Key: "d"}))
	assert.False(t, c.Matches(Event{Key: "d", Ctrl: true, Alt: true}))

	q, _ := ParseCombo("?")
	assert.True(t, q.Matches(Event{Key: "?", Shift: true}), "unnamed shift is ignored")

	f, _ := ParseCombo("f")
	assert.False(t, f.Matches(Event{Key: "f", Ctrl: true}))
}

func TestDefaultsMatch(t *testing.T) {
	b := Defaults()
	a, ok := b.Match(Event{Key: "z", Ctrl: true})
	require.True(t, ok)
	assert.Equal(t, Undo, a)
	assert.True(t, b.Is(CycleColor, Event{Key: "c", Alt: true}))
	_, ok = b.Match(Event{Key: "w", Ctrl: true})
	assert.False(t, ok)
}

func TestDefaultsHaveNoConflicts(t *testing.T) {
	seen := map[Combo]Action{}
	for _, a := range Actions() {
		c, err := ParseCombo(Defaults().Get(a))
		require.NoError(t, err, a)
		prev, dup := seen[c]
		assert.False(t, dup, "%s and %s share %s", a, prev, c)
		seen[c] = a
		assert.NotEmpty(t, Describe(a))
	}
}

func TestSet(t *testing.T) {
	b := Defaults()
	require.NoError(t, b.Set(NewCard, "ctrl+n"))
	assert.Equal(t, "Ctrl+n", b.Get(NewCard))

	assert.ErrorIs(t, b.Set(NewCard, "Tab"), ErrFixedKey)
	assert.ErrorIs(t, b.Set(NewCard, "Ctrl+z"), ErrConflict)
	assert.ErrorIs(t, b.Set("fly", "x"), ErrUnknownAction)
	assert.ErrorIs(t, b.Set(NewCard, "Super+x"), ErrInvalidCombo)
	require.NoError(t, b.Set(DeleteSelection, "Delete"), "an action keeps its own fixed default")
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	b := Defaults()
	require.NoError(t, b.Set(Help, "h"))

	data, err := Encode(b)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version = 2")

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "h", got.Get(Help))
	assert.Equal(t, "Ctrl+d", got.Get(NewCard))
}

func TestDecodeVersionMismatchUsesDefaults(t *testing.T) {
	data := []byte("version = 1\n[bindings]\nnewCard = \"Ctrl+n\"\n")
	got, err := Decode(data)
	assert.ErrorIs(t, err, ErrVersionMismatch)
	assert.Equal(t, Defaults(), got)
}

func TestDecodeKeepsDefaultsForBadEntries(t *testing.T) {
	data := []byte(strings.Join([]string{
		"version = 2",
		"[bindings]",
		`newCard = "Ctrl+z"`,
		`undo = "Ctrl+d"`,
		`help = "Escape"`,
		`quit = "Nope+q"`,
		`unknown = "x"`,
	}, "\n"))

	got, err := Decode(data)
	require.Error(t, err)
	assert.Equal(t, "Ctrl+z", got.Get(NewCard), "swapped bindings are accepted")
	assert.Equal(t, "Ctrl+d", got.Get(Undo))
	assert.Equal(t, "?", got.Get(Help))
	assert.Equal(t, "Ctrl+q", got.Get(Quit))
}

func TestDecodeGarbage(t *testing.T) {
	got, err := Decode([]byte("version = ["))
	assert.Error(t, err)
	assert.Equal(t, Defaults(), got)
}
