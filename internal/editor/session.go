package editor

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"sync"

	"github.com/inkwash-dev/inkwash/internal/history"
	"github.com/inkwash-dev/inkwash/internal/mask"
	"github.com/inkwash-dev/inkwash/internal/models"
	"github.com/inkwash-dev/inkwash/internal/raster"
)

// Eraser removes the masked region from a page and returns the erased image reference
type Eraser interface {
	ErasePage(ctx context.Context, pageID string, maskPNG []byte) (string, error)
}

// Translator translates a page that has already been erased
type Translator interface {
	TranslateErasedPage(ctx context.Context, pageID string) (string, error)
}

// Session is one page open for manual editing. It owns the markup layer,
// the brush and the undo history; nothing in it is persisted.
type Session struct {
	mu      sync.Mutex
	page    models.Page
	state   State
	surface *raster.Surface
	brush   *raster.Brush
	history *history.Stack
	lastErr string
}

// Status is a point-in-time view of a session
type Status struct {
	Page       models.Page `json:"page"`
	State      State       `json:"state"`
	Tool       string      `json:"tool"`
	Diameter   int         `json:"diameter"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	CanUndo    bool        `json:"can_undo"`
	CanRedo    bool        `json:"can_redo"`
	HistoryLen int         `json:"history_len"`
	LastError  string      `json:"last_error,omitempty"`
}

// NewSession opens page for masking over the decoded base image
func NewSession(page models.Page, base image.Image) *Session {
	surface := raster.NewSurface(base)
	return &Session{
		page:    page,
		state:   StateMasking,
		surface: surface,
		brush:   raster.NewBrush(surface),
		history: history.New(len(surface.MarkupPix()), history.DefaultLimit),
	}
}

func (s *Session) Page() models.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// RefreshPage merges remote results for the open page. The editing state
// and the markup are left alone.
func (s *Session) RefreshPage(remote models.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if remote.ID != s.page.ID {
		return
	}
	if remote.ErasedImageURL != "" {
		s.page.ErasedImageURL = remote.ErasedImageURL
	}
	if remote.TranslatedImageURL != "" {
		s.page.TranslatedImageURL = remote.TranslatedImageURL
	}
	if remote.Status != "" {
		s.page.Status = remote.Status
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) InFlight() bool {
	return s.State().InFlight()
}

// Status returns a snapshot of the session for display
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Page:       s.page,
		State:      s.state,
		Tool:       s.brush.Tool().String(),
		Diameter:   s.brush.Diameter(),
		Width:      s.surface.Width(),
		Height:     s.surface.Height(),
		CanUndo:    s.history.CanUndo(),
		CanRedo:    s.history.CanRedo(),
		HistoryLen: s.history.Len(),
		LastError:  s.lastErr,
	}
}

func (s *Session) SetTool(t raster.Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brush.SetTool(t)
}

func (s *Session) SetDiameter(d int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brush.SetDiameter(d)
}

func (s *Session) SetColor(c color.NRGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brush.SetColor(c)
}

// BeginStroke opens a stroke at p, given in image coordinates
func (s *Session) BeginStroke(p raster.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateMasking {
		return invalidState("draw", s.state)
	}
	s.brush.BeginStroke(p)
	return nil
}

// ContinueStroke extends the open stroke to p
func (s *Session) ContinueStroke(p raster.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateMasking {
		return invalidState("draw", s.state)
	}
	s.brush.ContinueStroke(p)
	return nil
}

// EndStroke closes the stroke and records one history snapshot
func (s *Session) EndStroke() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateMasking {
		return invalidState("draw", s.state)
	}
	s.endStrokeLocked()
	return nil
}

func (s *Session) endStrokeLocked() {
	if s.brush.EndStroke() {
		s.history.Push(s.surface.MarkupPix())
	}
}

// Stroke draws a complete stroke through points
func (s *Session) Stroke(points []raster.Point) error {
	if len(points) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateMasking {
		return invalidState("draw", s.state)
	}
	s.brush.BeginStroke(points[0])
	for _, p := range points[1:] {
		s.brush.ContinueStroke(p)
	}
	s.endStrokeLocked()
	return nil
}

// Undo restores the previous snapshot; it reports false when there is none
func (s *Session) Undo() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateMasking {
		return false, invalidState("undo", s.state)
	}
	s.brush.EndStroke()
	return s.history.Undo(s.surface.MarkupPix()), nil
}

// Redo restores the next snapshot; it reports false at the tail
func (s *Session) Redo() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateMasking {
		return false, invalidState("redo", s.state)
	}
	s.brush.EndStroke()
	return s.history.Redo(s.surface.MarkupPix()), nil
}

// Clear wipes the markup and resets history to a single empty snapshot
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateMasking {
		return invalidState("clear", s.state)
	}
	s.brush.EndStroke()
	s.surface.ClearMarkup()
	s.history.Clear()
	return nil
}

// MaskPNG exports the current markup as a binary mask
func (s *Session) MaskPNG() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return mask.EncodePNG(s.surface.Markup())
}

// Markup returns a copy of the markup buffer
func (s *Session) Markup() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.surface.Markup()
	out := image.NewNRGBA(m.Rect)
	copy(out.Pix, m.Pix)
	return out
}

// Preview renders the markup over the base image
func (s *Session) Preview() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface.Composite()
}

// Apply exports the mask and sends it to the erase service. On failure the
// session returns to masking with the markup untouched.
func (s *Session) Apply(ctx context.Context, eraser Eraser) error {
	s.mu.Lock()
	pageID := s.page.ID
	if s.state.InFlight() {
		s.mu.Unlock()
		slog.Debug("Rejected duplicate apply", "page_id", pageID)
		return ErrBusy
	}
	if s.state != StateMasking {
		state := s.state
		s.mu.Unlock()
		return invalidState("apply", state)
	}

	s.endStrokeLocked()
	data, err := mask.EncodePNG(s.surface.Markup())
	if err != nil {
		s.mu.Unlock()
		return &ApplyError{PageID: pageID, Err: err}
	}
	s.state = StateProcessing
	s.lastErr = ""
	s.mu.Unlock()

	slog.Info("Submitting mask to erase service", "page_id", pageID, "bytes", len(data))
	ref, err := eraser.ErasePage(ctx, pageID, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		applyErr := &ApplyError{PageID: pageID, Err: err}
		s.state = StateMasking
		s.lastErr = applyErr.Error()
		slog.Error("Erase failed", "page_id", pageID, "err", err)
		return applyErr
	}

	s.page.ErasedImageURL = ref
	s.state = StateErased
	slog.Info("Page erased", "page_id", pageID, "erased_image", ref)
	return nil
}

// Translate asks the translate service to render the stored erased image.
// On failure the session returns to erased and keeps its references.
func (s *Session) Translate(ctx context.Context, translator Translator) error {
	s.mu.Lock()
	pageID := s.page.ID
	if s.state.InFlight() {
		s.mu.Unlock()
		slog.Debug("Rejected duplicate translate", "page_id", pageID)
		return ErrBusy
	}
	if s.state != StateErased {
		state := s.state
		s.mu.Unlock()
		return invalidState("translate", state)
	}
	s.state = StateTranslating
	s.lastErr = ""
	s.mu.Unlock()

	slog.Info("Requesting translation", "page_id", pageID)
	ref, err := translator.TranslateErasedPage(ctx, pageID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		translateErr := &TranslateError{PageID: pageID, Err: err}
		s.state = StateErased
		s.lastErr = translateErr.Error()
		slog.Error("Translation failed", "page_id", pageID, "err", err)
		return translateErr
	}

	s.page.TranslatedImageURL = ref
	s.state = StateTranslated
	slog.Info("Page translated", "page_id", pageID, "translated_image", ref)
	return nil
}
