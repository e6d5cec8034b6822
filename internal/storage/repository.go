package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"mindcanvas/internal/keymap"
	"mindcanvas/internal/model"
)

// Repository maps the application's two persisted values onto a KV.
type Repository struct {
	kv  KV
	log *log.Logger
}

// NewRepository wraps kv. A nil logger discards output.
func NewRepository(kv KV, logger *log.Logger) *Repository {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Repository{kv: kv, log: logger}
}

// KV returns the underlying store.
func (r *Repository) KV() KV { return r.kv }

// LoadDocument reads the saved document. A missing entry is an empty
// document; a corrupt one is reported so the caller can fall back.
func (r *Repository) LoadDocument(ctx context.Context) (model.Document, error) {
	data, ok, err := r.kv.Get(ctx, DataKey)
	if err != nil {
		return model.Document{}, fmt.Errorf("load document: %w", err)
	}
	if !ok {
		return model.Document{}, nil
	}
	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.Document{}, fmt.Errorf("load document: %w", err)
	}
	r.log.Debug("document read", "cards", len(doc.Cards), "connections", len(doc.Connections))
	return doc, nil
}

// SaveDocument writes doc.
func (r *Repository) SaveDocument(ctx context.Context, doc model.Document) error {
	data, err := json.Marshal(model.Document{
		Cards:       model.CloneCards(doc.Cards),
		Connections: model.CloneConnections(doc.Connections),
	})
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	if err := r.kv.Set(ctx, DataKey, data); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

// LoadKeyBindings reads the bindings. Missing data gives the defaults. A
// version mismatch or invalid entries are logged and the usable bindings
// are returned without error.
func (r *Repository) LoadKeyBindings(ctx context.Context) (keymap.Bindings, error) {
	data, ok, err := r.kv.Get(ctx, KeyBindingsKey)
	if err != nil {
		return keymap.Defaults(), fmt.Errorf("load key bindings: %w", err)
	}
	if !ok {
		return keymap.Defaults(), nil
	}
	b, err := keymap.Decode(data)
	switch {
	case errors.Is(err, keymap.ErrVersionMismatch):
		r.log.Warn("key bindings from another version, using defaults", "err", err)
	case err != nil:
		r.log.Warn("some key bindings were reset", "err", err)
	}
	return b, nil
}

// SaveKeyBindings writes b with the current version.
func (r *Repository) SaveKeyBindings(ctx context.Context, b keymap.Bindings) error {
	data, err := keymap.Encode(b)
	if err != nil {
		return fmt.Errorf("save key bindings: %w", err)
	}
	if err := r.kv.Set(ctx, KeyBindingsKey, data); err != nil {
		return fmt.Errorf("save key bindings: %w", err)
	}
	return nil
}

// ResetKeyBindings stores the defaults.
func (r *Repository) ResetKeyBindings(ctx context.Context) error {
	return r.SaveKeyBindings(ctx, keymap.Defaults())
}

func (r *Repository) Close() error { return r.kv.Close() }
