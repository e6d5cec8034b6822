// Package history implements snapshot based undo and redo.
//
// Call sites record a snapshot before a logical operation starts. Requests
// arriving within the debounce window of the previous request are dropped,
// which folds held-key bursts into one entry. Snapshots are deep copies so a
// later mutation of the live state can never reach back into the stacks.
package history

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"mindcanvas/internal/model"
)

const (
	DefaultLimit    = 50
	DefaultDebounce = 100 * time.Millisecond
)

// Snapshot is one history entry.
type Snapshot struct {
	Document       model.Document
	SelectedCardID string
}

// Source is the live state the engine captures and restores.
type Source interface {
	Document() model.Document
	SelectedCardID() string
	Restore(doc model.Document, selectedCardID string)
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLimit caps the number of past entries.
func WithLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.limit = n
		}
	}
}

// WithDebounce sets the minimum spacing between accepted requests.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.debounce = d }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// Engine holds the past and future stacks.
type Engine struct {
	src    Source
	past   []Snapshot
	future []Snapshot

	limit    int
	debounce time.Duration
	now      func() time.Time
	log      *log.Logger

	lastRequest time.Time
	requested   bool
	rev         uint64
}

// New returns an engine over src with empty stacks. Call Baseline once the
// initial state is loaded.
func New(src Source, opts ...Option) *Engine {
	e := &Engine{
		src:      src,
		limit:    DefaultLimit,
		debounce: DefaultDebounce,
		now:      time.Now,
		log:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) capture() Snapshot {
	return Snapshot{Document: e.src.Document(), SelectedCardID: e.src.SelectedCardID()}
}

func (e *Engine) restore(s Snapshot) {
	e.src.Restore(s.Document.Clone(), s.SelectedCardID)
}

// Baseline discards both stacks and records the current state as the entry
// undo can never go past.
func (e *Engine) Baseline() {
	e.past = []Snapshot{e.capture()}
	e.future = nil
	e.requested = false
	e.rev++
}

// Record snapshots the current state before an operation. It reports false
// when the request fell inside the debounce window and was dropped.
func (e *Engine) Record() bool {
	now := e.now()
	last, had := e.lastRequest, e.requested
	e.lastRequest, e.requested = now, true
	if had && now.Sub(last) < e.debounce {
		e.log.Debug("history request debounced")
		return false
	}

	e.past = append(e.past, e.capture())
	if over := len(e.past) - e.limit; over > 0 {
		e.past = append(e.past[:0:0], e.past[over:]...)
	}
	e.future = nil
	e.rev++
	return true
}

// Undo restores the most recent past entry. It is a no-op when only the
// baseline is left.
func (e *Engine) Undo() bool {
	if len(e.past) < 2 {
		return false
	}
	prev := e.past[len(e.past)-1]
	e.past = e.past[:len(e.past)-1]
	e.future = append(e.future, e.capture())
	e.restore(prev)
	// an edit right after a jump must take its own entry
	e.requested = false
	e.rev++
	e.log.Debug("undo", "past", len(e.past), "future", len(e.future))
	return true
}

// Redo reapplies the most recently undone entry.
func (e *Engine) Redo() bool {
	if len(e.future) == 0 {
		return false
	}
	next := e.future[len(e.future)-1]
	e.future = e.future[:len(e.future)-1]
	e.past = append(e.past, e.capture())
	e.restore(next)
	// an edit right after a jump must take its own entry
	e.requested = false
	e.rev++
	e.log.Debug("redo", "past", len(e.past), "future", len(e.future))
	return true
}

func (e *Engine) CanUndo() bool { return len(e.past) >= 2 }
func (e *Engine) CanRedo() bool { return len(e.future) > 0 }

// Revision changes whenever an entry is recorded, undone or redone.
func (e *Engine) Revision() uint64 { return e.rev }

// Depth returns the sizes of the past and future stacks.
func (e *Engine) Depth() (past, future int) { return len(e.past), len(e.future) }
