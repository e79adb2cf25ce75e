// Package editor runs the manual erase-then-translate workflow for the page
// an operator currently has open.
package editor

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"sync"

	"github.com/inkwash-dev/inkwash/internal/models"
	"github.com/inkwash-dev/inkwash/internal/raster"
)

// ImageLoader resolves an image reference to decoded pixels
type ImageLoader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// Options configures new sessions
type Options struct {
	Diameter int
	Color    color.NRGBA
}

// DefaultOptions returns the brush settings used when none are configured
func DefaultOptions() Options {
	return Options{
		Diameter: raster.DefaultDiameter,
		Color:    raster.DefaultColor,
	}
}

// Editor holds at most one open Session. Opening another page discards the
// current session without saving it.
type Editor struct {
	loader     ImageLoader
	eraser     Eraser
	translator Translator
	opts       Options

	mu      sync.Mutex
	session *Session
	// busy is held from the moment Apply or Translate picks the session
	// until its remote call returns
	busy bool
}

// New creates an editor with no page open
func New(loader ImageLoader, eraser Eraser, translator Translator, opts Options) *Editor {
	return &Editor{
		loader:     loader,
		eraser:     eraser,
		translator: translator,
		opts:       opts,
	}
}

// Open loads the page's original image and starts a fresh masking session.
// It fails with ErrBusy while the current page has a call in flight.
func (e *Editor) Open(ctx context.Context, page models.Page) (*Session, error) {
	if err := e.release(); err != nil {
		return nil, err
	}

	img, err := e.loader.Load(ctx, page.OriginalImageURL)
	if err != nil {
		slog.Error("Failed to open page", "page_id", page.ID, "err", err)
		return nil, err
	}

	session := NewSession(page, img)
	if e.opts.Diameter > 0 {
		session.SetDiameter(e.opts.Diameter)
	}
	if e.opts.Color != (color.NRGBA{}) {
		session.SetColor(e.opts.Color)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busyLocked() {
		return nil, ErrBusy
	}
	e.session = session

	b := img.Bounds()
	slog.Info("Page opened for editing", "page_id", page.ID, "page_number", page.Number, "width", b.Dx(), "height", b.Dy())
	return session, nil
}

// Close discards the open session, if any
func (e *Editor) Close() error {
	return e.release()
}

func (e *Editor) release() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	if e.busyLocked() {
		return ErrBusy
	}
	slog.Debug("Discarding editor session", "page_id", e.session.Page().ID)
	e.session = nil
	return nil
}

// Session returns the open session
func (e *Editor) Session() (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, ErrNoSession
	}
	return e.session, nil
}

// State returns the workflow state, StateSelect when no page is open
func (e *Editor) State() State {
	s, err := e.Session()
	if err != nil {
		return StateSelect
	}
	return s.State()
}

func (e *Editor) busyLocked() bool {
	return e.busy || (e.session != nil && e.session.InFlight())
}

// begin claims the open session for a remote call; the returned func releases it
func (e *Editor) begin() (*Session, func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, nil, ErrNoSession
	}
	if e.busyLocked() {
		slog.Debug("Rejected request while page is in flight", "page_id", e.session.Page().ID)
		return nil, nil, ErrBusy
	}
	e.busy = true
	return e.session, func() {
		e.mu.Lock()
		e.busy = false
		e.mu.Unlock()
	}, nil
}

// Apply sends the open page's mask to the erase service
func (e *Editor) Apply(ctx context.Context) error {
	s, done, err := e.begin()
	if err != nil {
		return err
	}
	defer done()
	return s.Apply(ctx, e.eraser)
}

// Translate translates the open, already erased page
func (e *Editor) Translate(ctx context.Context) error {
	s, done, err := e.begin()
	if err != nil {
		return err
	}
	defer done()
	return s.Translate(ctx, e.translator)
}
