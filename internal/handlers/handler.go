package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/inkwash-dev/inkwash/internal/batch"
	"github.com/inkwash-dev/inkwash/internal/editor"
	"github.com/inkwash-dev/inkwash/internal/models"
	"github.com/inkwash-dev/inkwash/internal/selection"
	"github.com/inkwash-dev/inkwash/internal/storage"
)

// Handler exposes the editor, page selection and batch poller over HTTP
type Handler struct {
	editor         *editor.Editor
	chapters       batch.ChapterFetcher
	poller         *batch.Poller
	jobs           *storage.JobStore
	selection      *selection.Set
	targetLanguage string

	mu    sync.RWMutex
	cache map[string]*models.Chapter
}

// Options wires the handler's collaborators
type Options struct {
	Editor         *editor.Editor
	Chapters       batch.ChapterFetcher
	Poller         *batch.Poller
	Jobs           *storage.JobStore
	TargetLanguage string
}

func New(opts Options) *Handler {
	jobs := opts.Jobs
	if jobs == nil {
		jobs = storage.New()
	}
	return &Handler{
		editor:         opts.Editor,
		chapters:       opts.Chapters,
		poller:         opts.Poller,
		jobs:           jobs,
		selection:      selection.New(),
		targetLanguage: opts.TargetLanguage,
		cache:          make(map[string]*models.Chapter),
	}
}

// Routes returns the API mux
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/chapters/{id}", h.HandleChapter)
	mux.HandleFunc("POST /api/chapters/{id}/batch", h.HandleBatchStart)
	mux.HandleFunc("GET /api/chapters/{id}/batch", h.HandleBatchStatus)
	mux.HandleFunc("DELETE /api/chapters/{id}/batch", h.HandleBatchCancel)
	mux.HandleFunc("GET /api/jobs", h.HandleJobs)
	mux.HandleFunc("GET /api/jobs/{id}", h.HandleJob)

	mux.HandleFunc("GET /api/selection", h.HandleSelection)
	mux.HandleFunc("PUT /api/selection", h.HandleSelectionUpdate)
	mux.HandleFunc("POST /api/selection/toggle", h.HandleSelectionToggle)
	mux.HandleFunc("DELETE /api/selection", h.HandleSelectionClear)

	mux.HandleFunc("GET /api/editor", h.HandleEditorStatus)
	mux.HandleFunc("POST /api/editor/open", h.HandleEditorOpen)
	mux.HandleFunc("POST /api/editor/close", h.HandleEditorClose)
	mux.HandleFunc("PUT /api/editor/tool", h.HandleEditorTool)
	mux.HandleFunc("POST /api/editor/strokes", h.HandleEditorStroke)
	mux.HandleFunc("POST /api/editor/undo", h.HandleEditorUndo)
	mux.HandleFunc("POST /api/editor/redo", h.HandleEditorRedo)
	mux.HandleFunc("POST /api/editor/clear", h.HandleEditorClear)
	mux.HandleFunc("GET /api/editor/mask.png", h.HandleEditorMask)
	mux.HandleFunc("GET /api/editor/preview.png", h.HandleEditorPreview)
	mux.HandleFunc("POST /api/editor/apply", h.HandleEditorApply)
	mux.HandleFunc("POST /api/editor/translate", h.HandleEditorTranslate)

	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

// OnBatchEvent refreshes the cached chapter and the open page when a batch job completes
func (h *Handler) OnBatchEvent(ev batch.Event) {
	if ev.Chapter == nil {
		return
	}
	h.storeChapter(ev.Chapter)

	s, err := h.editor.Session()
	if err != nil {
		return
	}
	open := s.Page()
	if open.ChapterID != "" && open.ChapterID != ev.Chapter.ID {
		return
	}
	if page, ok := ev.Chapter.Page(open.ID); ok {
		s.RefreshPage(page)
	}
}

func (h *Handler) fetchChapter(ctx context.Context, id string) (*models.Chapter, error) {
	chapter, err := h.chapters.FetchChapter(ctx, id)
	if err != nil {
		return nil, err
	}
	h.storeChapter(chapter)
	return chapter, nil
}

func (h *Handler) storeChapter(chapter *models.Chapter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cache[chapter.ID] = chapter
}

func (h *Handler) cachedChapter(id string) (*models.Chapter, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	chapter, ok := h.cache[id]
	return chapter, ok
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeMessage(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message)
	} else {
		slog.Debug(message, "status", code)
	}
	h.writeJSON(w, code, map[string]string{"error": message})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	h.writeMessage(w, err.Error(), statusFor(err))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeMessage(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

type errorKinder interface {
	ErrorKind() string
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, editor.ErrNoSession), errors.Is(err, batch.ErrNoJob):
		return http.StatusNotFound
	case errors.Is(err, editor.ErrBusy), errors.Is(err, editor.ErrInvalidState),
		errors.Is(err, batch.ErrConflict), errors.Is(err, batch.ErrNothingPending):
		return http.StatusConflict
	}

	var kinder errorKinder
	if errors.As(err, &kinder) {
		switch kinder.ErrorKind() {
		case "load":
			return http.StatusUnprocessableEntity
		case "conflict":
			return http.StatusConflict
		case "not_found":
			return http.StatusNotFound
		case "apply", "translate", "upstream", "failed":
			return http.StatusBadGateway
		}
	}
	return http.StatusInternalServerError
}
