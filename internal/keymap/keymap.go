// Package keymap holds the remappable key bindings, the combo syntax used
// to describe them ("Ctrl+d", "Alt+c", "?") and their TOML persistence.
package keymap

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"
)

// Action is a logical command name.
type Action string

const (
	NewCard              Action = "newCard"
	EditCard             Action = "editCard"
	DeleteSelection      Action = "deleteSelection"
	Undo                 Action = "undo"
	Redo                 Action = "redo"
	Copy                 Action = "copy"
	Cut                  Action = "cut"
	Paste                Action = "paste"
	SelectAll            Action = "selectAll"
	StartConnection      Action = "startConnection"
	ToggleFreeConnection Action = "toggleFreeConnection"
	CycleColor           Action = "cycleColor"
	EditLabel            Action = "editLabel"
	ZoomIn               Action = "zoomIn"
	ZoomOut              Action = "zoomOut"
	ResetZoom            Action = "resetZoom"
	CenterSelection      Action = "centerSelection"
	ExportMarkdown       Action = "exportMarkdown"
	ExportMermaid        Action = "exportMermaid"
	ExportPNG            Action = "exportPNG"
	ImportFile           Action = "importFile"
	Help                 Action = "help"
	Quit                 Action = "quit"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrInvalidCombo  = errors.New("invalid key combo")
	ErrFixedKey      = errors.New("key is reserved")
	ErrConflict      = errors.New("combo already bound")
)

// Defaults avoid Ctrl combos a terminal cannot report: Ctrl+m arrives as
// Enter and Ctrl with punctuation or digits is usually dropped.
var defaults = map[Action]string{
	NewCard:              "Ctrl+d",
	EditCard:             "Enter",
	DeleteSelection:      "Delete",
	Undo:                 "Ctrl+z",
	Redo:                 "Ctrl+y",
	Copy:                 "Ctrl+c",
	Cut:                  "Ctrl+x",
	Paste:                "Ctrl+v",
	SelectAll:            "Ctrl+a",
	StartConnection:      "Ctrl+l",
	ToggleFreeConnection: "f",
	CycleColor:           "Alt+c",
	EditLabel:            "Ctrl+e",
	ZoomIn:               "+",
	ZoomOut:              "-",
	ResetZoom:            "=",
	CenterSelection:      "Ctrl+h",
	ExportMarkdown:       "Ctrl+s",
	ExportMermaid:        "Ctrl+g",
	ExportPNG:            "Ctrl+p",
	ImportFile:           "Ctrl+o",
	Help:                 "?",
	Quit:                 "Ctrl+q",
}

var descriptions = map[Action]string{
	NewCard:              "create a card",
	EditCard:             "edit the selected card",
	DeleteSelection:      "delete the selection",
	Undo:                 "undo",
	Redo:                 "redo",
	Copy:                 "copy",
	Cut:                  "cut",
	Paste:                "paste",
	SelectAll:            "select all cards",
	StartConnection:      "connect from the selected card",
	ToggleFreeConnection: "toggle free-draw connections",
	CycleColor:           "cycle card color",
	EditLabel:            "edit connection label",
	ZoomIn:               "zoom in",
	ZoomOut:              "zoom out",
	ResetZoom:            "reset zoom",
	CenterSelection:      "center the selection",
	ExportMarkdown:       "export Markdown",
	ExportMermaid:        "export Mermaid",
	ExportPNG:            "export PNG",
	ImportFile:           "import a file",
	Help:                 "toggle help",
	Quit:                 "quit",
}

// Describe returns a short human description of an action.
func Describe(a Action) string { return descriptions[a] }

// Combo is a parsed key combination.
type Combo struct {
	Ctrl, Alt, Shift bool
	Key              string
}

var named = map[string]string{
	"enter":      "enter",
	"return":     "enter",
	"esc":        "escape",
	"escape":     "escape",
	"tab":        "tab",
	"space":      "space",
	"del":        "delete",
	"delete":     "delete",
	"backspace":  "backspace",
	"up":         "up",
	"down":       "down",
	"left":       "left",
	"right":      "right",
	"arrowup":    "up",
	"arrowdown":  "down",
	"arrowleft":  "left",
	"arrowright": "right",
	"home":       "home",
	"end":        "end",
	"pgup":       "pgup",
	"pgdown":     "pgdown",
}

// NormalizeKey returns the canonical form of a key name: named keys are
// lower case, single characters are kept except letters, which are lower
// cased.
func NormalizeKey(k string) string {
	if n, ok := named[strings.ToLower(k)]; ok {
		return n
	}
	if utf8.RuneCountInString(k) == 1 {
		return strings.ToLower(k)
	}
	return ""
}

// ParseCombo parses "Ctrl+Shift+x" style combos. Modifier names are case
// insensitive; "Cmd" and "Meta" are treated as Ctrl.
func ParseCombo(s string) (Combo, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Combo{}, fmt.Errorf("%w: empty", ErrInvalidCombo)
	}
	var parts []string
	if strings.HasSuffix(s, "++") {
		parts = append(strings.Split(strings.TrimSuffix(s, "++"), "+"), "+")
	} else if s == "+" {
		parts = []string{"+"}
	} else {
		parts = strings.Split(s, "+")
	}

	var c Combo
	for i, p := range parts {
		if i == len(parts)-1 {
			c.Key = NormalizeKey(p)
			if c.Key == "" {
				return Combo{}, fmt.Errorf("%w: %q", ErrInvalidCombo, s)
			}
			break
		}
		switch strings.ToLower(p) {
		case "ctrl", "control", "cmd", "meta":
			c.Ctrl = true
		case "alt", "option":
			c.Alt = true
		case "shift":
			c.Shift = true
		default:
			return Combo{}, fmt.Errorf("%w: modifier %q in %q", ErrInvalidCombo, p, s)
		}
	}
	return c, nil
}

// String renders the combo in canonical form.
func (c Combo) String() string {
	var b strings.Builder
	if c.Ctrl {
		b.WriteString("Ctrl+")
	}
	if c.Alt {
		b.WriteString("Alt+")
	}
	if c.Shift {
		b.WriteString("Shift+")
	}
	switch {
	case len(c.Key) > 1:
		b.WriteString(strings.ToUpper(c.Key[:1]) + c.Key[1:])
	default:
		b.WriteString(c.Key)
	}
	return b.String()
}

// Event is a key press as seen by the matcher. Key follows NormalizeKey.
type Event struct {
	Key   string
	Ctrl  bool
	Meta  bool
	Alt   bool
	Shift bool
}

// CtrlOrMeta is true when Ctrl or Cmd is held.
func (e Event) CtrlOrMeta() bool { return e.Ctrl || e.Meta }

// Matches reports whether ev triggers the combo. Shift is only checked when
// the combo names it, since many printable keys need Shift to type.
func (c Combo) Matches(ev Event) bool {
	if c.Ctrl != ev.CtrlOrMeta() || c.Alt != ev.Alt {
		return false
	}
	if c.Shift && !ev.Shift {
		return false
	}
	return c.Key == NormalizeKey(ev.Key)
}

var fixed = []string{
	"Escape", "Tab", "Shift+Tab", "Up", "Down", "Left", "Right",
	"1", "2", "3", "4", "Ctrl+Enter", "Delete", "Backspace", "Space",
}

// Fixed lists the combos that cannot be rebound.
func Fixed() []string { return slices.Clone(fixed) }

// IsFixed reports whether combo is one of the reserved keys.
func IsFixed(c Combo) bool {
	for _, f := range fixed {
		if fc, err := ParseCombo(f); err == nil && fc == c {
			return true
		}
	}
	return false
}

// Bindings maps actions to combo strings.
type Bindings map[Action]string

// Defaults returns a fresh copy of the default bindings.
func Defaults() Bindings { return maps.Clone(Bindings(defaults)) }

// Actions returns every known action in a stable order.
func Actions() []Action {
	out := slices.Collect(maps.Keys(defaults))
	slices.Sort(out)
	return out
}

// Known reports whether a is a known action.
func Known(a Action) bool {
	_, ok := defaults[a]
	return ok
}

// Get returns the combo bound to a, falling back to the default.
func (b Bindings) Get(a Action) string {
	if c, ok := b[a]; ok {
		return c
	}
	return defaults[a]
}

// Set rebinds an action after validating the combo.
func (b Bindings) Set(a Action, combo string) error {
	if !Known(a) {
		return fmt.Errorf("%w: %s", ErrUnknownAction, a)
	}
	c, err := ParseCombo(combo)
	if err != nil {
		return err
	}
	if def, _ := ParseCombo(defaults[a]); IsFixed(c) && c != def {
		return fmt.Errorf("%w: %s", ErrFixedKey, c)
	}
	for other, oc := range b {
		if other == a {
			continue
		}
		if parsed, err := ParseCombo(oc); err == nil && parsed == c {
			return fmt.Errorf("%w: %s is used by %s", ErrConflict, c, other)
		}
	}
	b[a] = c.String()
	return nil
}

// Match returns the action bound to ev.
func (b Bindings) Match(ev Event) (Action, bool) {
	for _, a := range Actions() {
		c, err := ParseCombo(b.Get(a))
		if err != nil {
			continue
		}
		if c.Matches(ev) {
			return a, true
		}
	}
	return "", false
}

// Is reports whether ev triggers action a.
func (b Bindings) Is(a Action, ev Event) bool {
	c, err := ParseCombo(b.Get(a))
	return err == nil && c.Matches(ev)
}
