// Package editor assembles one open mind map: the state container, the
// history, the canvas engine, the clipboard, the keyboard chain and the
// persistence behind them. Front ends talk to an Editor; nothing in here
// knows about terminals.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"mindcanvas/internal/clipboard"
	"mindcanvas/internal/exchange"
	"mindcanvas/internal/geometry"
	"mindcanvas/internal/history"
	"mindcanvas/internal/interaction"
	"mindcanvas/internal/keyboard"
	"mindcanvas/internal/keymap"
	"mindcanvas/internal/layout"
	"mindcanvas/internal/model"
	"mindcanvas/internal/storage"
	"mindcanvas/internal/store"
)

// ImportGap separates imported content from what is already on the map.
const ImportGap = 120.0

var ErrNoRepository = errors.New("editor: repository is required")

// Options configures New. Only Repository is required.
type Options struct {
	Repository *storage.Repository
	UI         keyboard.UI
	Scheduler  keyboard.Scheduler
	// System replaces the OS clipboard.
	System clipboard.System
	Logger *log.Logger
	Clock  func() time.Time

	MapSize          geometry.Size
	Margin           float64
	MinSpacing       float64
	AutosaveDebounce time.Duration
	Viewport         geometry.Viewport
}

// Editor is the dependency container for one open mind map.
type Editor struct {
	State     *store.AppState
	History   *history.Engine
	Canvas    *interaction.Engine
	Clipboard *clipboard.Engine
	Mover     *keyboard.Mover
	Keys      *keyboard.Dispatcher

	repo     *storage.Repository
	autosave *storage.Autosaver
	log      *log.Logger
}

type noScheduler struct{}

func (noScheduler) Schedule(time.Duration, uint64) {}

// New loads the stored document and key bindings and wires the
// collaborators. A corrupt stored document is logged and replaced by an
// empty map.
func New(ctx context.Context, opts Options) (*Editor, error) {
	if opts.Repository == nil {
		return nil, ErrNoRepository
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Scheduler == nil {
		opts.Scheduler = noScheduler{}
	}
	logger := opts.Logger

	autosave := storage.NewAutosaver(opts.Repository, opts.AutosaveDebounce, logger.WithPrefix("autosave"))
	stateOpts := []store.Option{
		store.WithSaver(autosave),
		store.WithLogger(logger.WithPrefix("store")),
		store.WithPlacement(opts.Margin, opts.MinSpacing),
	}
	if opts.MapSize.Width > 0 && opts.MapSize.Height > 0 {
		stateOpts = append(stateOpts, store.WithMapSize(opts.MapSize))
	}
	state := store.New(stateOpts...)

	doc, err := opts.Repository.LoadDocument(ctx)
	if err != nil {
		logger.Error("stored map unreadable, starting empty", "err", err)
		doc = model.Document{}
	}
	state.Load(doc)

	hist := history.New(state, history.WithClock(opts.Clock), history.WithLogger(logger.WithPrefix("history")))
	hist.Baseline()

	canvasOpts := []interaction.Option{
		interaction.WithClock(opts.Clock),
		interaction.WithLogger(logger.WithPrefix("canvas")),
	}
	if opts.Viewport.Width > 0 {
		canvasOpts = append(canvasOpts, interaction.WithViewport(opts.Viewport))
	}
	canvas := interaction.New(state, hist, canvasOpts...)

	clipOpts := []clipboard.Option{clipboard.WithLogger(logger.WithPrefix("clipboard"))}
	if opts.System != nil {
		clipOpts = append(clipOpts, clipboard.WithSystem(opts.System))
	}
	clip := clipboard.New(state, hist, clipOpts...)

	bindings, err := opts.Repository.LoadKeyBindings(ctx)
	if err != nil {
		logger.Warn("key bindings unreadable, using defaults", "err", err)
	}

	mover := keyboard.NewMover(state, hist, opts.Scheduler, opts.Clock)
	keys := keyboard.NewDispatcher(keyboard.Deps{
		State:     state,
		Canvas:    canvas,
		History:   hist,
		Clipboard: clip,
		Mover:     mover,
		UI:        opts.UI,
		Bindings:  bindings,
		Logger:    logger.WithPrefix("keys"),
	})

	logger.Info("map opened", "cards", state.Cards.Len(), "connections", state.Connections.Len())
	return &Editor{
		State:     state,
		History:   hist,
		Canvas:    canvas,
		Clipboard: clip,
		Mover:     mover,
		Keys:      keys,
		repo:      opts.Repository,
		autosave:  autosave,
		log:       logger,
	}, nil
}

// Document returns a deep copy of the current map.
func (e *Editor) Document() model.Document { return e.State.Document() }

// Tick delivers a mover tick requested through the scheduler.
func (e *Editor) Tick(gen uint64) { e.Mover.Tick(gen) }

// Export writes the current map to w.
func (e *Editor) Export(w io.Writer, f exchange.Format) error {
	if err := exchange.Export(w, f, e.State.Document()); err != nil {
		return fmt.Errorf("export %s: %w", f, err)
	}
	e.log.Info("exported", "format", f)
	return nil
}

// Import reads r and merges the result into the map as one undoable step.
// On a parse failure the error card is merged instead and the error is
// returned alongside it.
func (e *Editor) Import(r io.Reader, f exchange.Format) (model.Document, error) {
	doc, err := exchange.Import(r, f)
	if err != nil {
		e.log.Warn("import failed", "format", f, "err", err)
	}
	if doc.Empty() {
		return model.Document{}, err
	}
	return e.Merge(doc), err
}

// Merge adds doc with fresh ids, to the right of the existing cards, and
// selects the new cards.
func (e *Editor) Merge(doc model.Document) model.Document {
	e.History.Record()
	return e.State.Import(doc, e.mergeOffset(doc))
}

func (e *Editor) mergeOffset(doc model.Document) geometry.Point {
	in, ok := layout.BoundingBox(doc.Cards)
	if !ok {
		return geometry.Point{}
	}
	have, ok := layout.BoundingBox(e.State.Cards.All())
	if !ok {
		return geometry.Point{}
	}
	return geometry.Point{X: have.MaxX + ImportGap - in.MinX, Y: have.MinY - in.MinY}
}

// Bindings returns the active key bindings.
func (e *Editor) Bindings() keymap.Bindings { return e.Keys.Bindings() }

// SetBindings activates b and stores it.
func (e *Editor) SetBindings(ctx context.Context, b keymap.Bindings) error {
	e.Keys.SetBindings(b)
	return e.repo.SaveKeyBindings(ctx, b)
}

// ResetBindings restores and stores the default bindings.
func (e *Editor) ResetBindings(ctx context.Context) error {
	return e.SetBindings(ctx, keymap.Defaults())
}

// Flush writes any pending autosave now.
func (e *Editor) Flush(ctx context.Context) error {
	if err := e.autosave.Flush(ctx); err != nil {
		return err
	}
	return e.autosave.LastError()
}

// Close stops any continuous move, writes pending changes and releases the
// storage backend.
func (e *Editor) Close() error {
	e.Mover.Stop()
	return errors.Join(e.autosave.Close(), e.repo.Close())
}
