package storage

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"mindcanvas/internal/model"
)

const (
	DefaultAutosaveDebounce = 300 * time.Millisecond
	saveTimeout             = 5 * time.Second
)

// Autosaver writes scheduled documents in the background. Only the latest
// scheduled document is written once the debounce window has passed
// without a newer one. It implements store.Saver.
type Autosaver struct {
	repo     *Repository
	debounce time.Duration
	log      *log.Logger

	mu      sync.Mutex
	pending *model.Document
	saves   int
	lastErr error

	wake      chan struct{}
	flushReq  chan chan struct{}
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewAutosaver starts the background writer. debounce <= 0 uses the
// default.
func NewAutosaver(repo *Repository, debounce time.Duration, logger *log.Logger) *Autosaver {
	if debounce <= 0 {
		debounce = DefaultAutosaveDebounce
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	a := &Autosaver{
		repo:     repo,
		debounce: debounce,
		log:      logger,
		wake:     make(chan struct{}, 1),
		flushReq: make(chan chan struct{}),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go a.run()
	return a
}

// Schedule queues a copy of doc, replacing any pending one.
func (a *Autosaver) Schedule(doc model.Document) {
	c := doc.Clone()
	a.mu.Lock()
	a.pending = &c
	a.mu.Unlock()
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// Flush writes the pending document now and waits for it.
func (a *Autosaver) Flush(ctx context.Context) error {
	req := make(chan struct{})
	select {
	case a.flushReq <- req:
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes anything pending and stops the writer.
func (a *Autosaver) Close() error {
	a.closeOnce.Do(func() { close(a.quit) })
	<-a.done
	return a.LastError()
}

// Saves returns how many documents were written.
func (a *Autosaver) Saves() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saves
}

// LastError returns the most recent write error, if any.
func (a *Autosaver) LastError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

func (a *Autosaver) run() {
	defer close(a.done)
	timer := time.NewTimer(a.debounce)
	timer.Stop()
	for {
		select {
		case <-a.wake:
			timer.Reset(a.debounce)
		case <-timer.C:
			a.save()
		case req := <-a.flushReq:
			timer.Stop()
			a.save()
			close(req)
		case <-a.quit:
			timer.Stop()
			a.save()
			return
		}
	}
}

func (a *Autosaver) save() {
	a.mu.Lock()
	doc := a.pending
	a.pending = nil
	a.mu.Unlock()
	if doc == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	err := a.repo.SaveDocument(ctx, *doc)

	a.mu.Lock()
	a.lastErr = err
	if err == nil {
		a.saves++
	}
	a.mu.Unlock()
	if err != nil {
		a.log.Error("autosave failed", "err", err)
		return
	}
	a.log.Debug("autosaved", "cards", len(doc.Cards), "connections", len(doc.Connections))
}
