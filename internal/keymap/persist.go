package keymap

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
)

// Version is bumped whenever the default bindings change in a way stored
// bindings cannot follow. Stored bindings of another version are discarded.
const Version = 2

var ErrVersionMismatch = errors.New("key binding version mismatch")

type document struct {
	Version  int               `toml:"version"`
	Bindings map[string]string `toml:"bindings"`
}

// Decode parses stored bindings. On a version mismatch the defaults are
// returned together with ErrVersionMismatch. Unknown actions are ignored and
// invalid or conflicting entries keep their default.
func Decode(data []byte) (Bindings, error) {
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return Defaults(), fmt.Errorf("decode key bindings: %w", err)
	}
	if doc.Version != Version {
		return Defaults(), fmt.Errorf("%w: stored %d, want %d", ErrVersionMismatch, doc.Version, Version)
	}

	b := Defaults()
	pending := make(map[Action]string)
	for _, a := range Actions() {
		if combo, ok := doc.Bindings[string(a)]; ok && combo != b[a] {
			pending[a] = combo
			delete(b, a)
		}
	}
	var errs []error
	for _, a := range Actions() {
		combo, ok := pending[a]
		if !ok {
			continue
		}
		if err := b.Set(a, combo); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a, err))
			b[a] = defaults[a]
		}
	}
	return b, errors.Join(errs...)
}

// Encode renders bindings as TOML with the current version.
func Encode(b Bindings) ([]byte, error) {
	doc := document{Version: Version, Bindings: make(map[string]string, len(b))}
	for _, a := range Actions() {
		doc.Bindings[string(a)] = b.Get(a)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, fmt.Errorf("encode key bindings: %w", err)
	}
	return buf.Bytes(), nil
}
