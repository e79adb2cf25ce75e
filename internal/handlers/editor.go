package handlers

import (
	"bytes"
	"fmt"
	"image/png"
	"net/http"
	"strconv"

	"github.com/inkwash-dev/inkwash/internal/config"
	"github.com/inkwash-dev/inkwash/internal/editor"
	"github.com/inkwash-dev/inkwash/internal/mask"
	"github.com/inkwash-dev/inkwash/internal/models"
	"github.com/inkwash-dev/inkwash/internal/raster"
)

type openRequest struct {
	ChapterID string `json:"chapter_id"`
	PageID    string `json:"page_id"`
}

type toolRequest struct {
	Tool     *string `json:"tool"`
	Diameter *int    `json:"diameter"`
	Color    *string `json:"color"`
}

type strokeRequest struct {
	Points   []raster.Point   `json:"points"`
	Viewport *raster.Viewport `json:"viewport,omitempty"`
}

type historyResponse struct {
	Changed bool          `json:"changed"`
	Status  editor.Status `json:"status"`
}

func (h *Handler) session(w http.ResponseWriter) (*editor.Session, bool) {
	s, err := h.editor.Session()
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) HandleEditorStatus(w http.ResponseWriter, r *http.Request) {
	s, err := h.editor.Session()
	if err != nil {
		h.writeJSON(w, http.StatusOK, map[string]editor.State{"state": editor.StateSelect})
		return
	}
	h.writeJSON(w, http.StatusOK, s.Status())
}

func (h *Handler) HandleEditorOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.ChapterID == "" || req.PageID == "" {
		h.writeMessage(w, "chapter_id and page_id are required", http.StatusBadRequest)
		return
	}

	var page models.Page
	found := false
	if chapter, ok := h.cachedChapter(req.ChapterID); ok {
		page, found = chapter.Page(req.PageID)
	}
	if !found {
		chapter, err := h.fetchChapter(r.Context(), req.ChapterID)
		if err != nil {
			h.writeError(w, err)
			return
		}
		page, found = chapter.Page(req.PageID)
	}
	if !found {
		h.writeMessage(w, fmt.Sprintf("page %s not found in chapter %s", req.PageID, req.ChapterID), http.StatusNotFound)
		return
	}

	s, err := h.editor.Open(r.Context(), page)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.selection.SetScope(req.ChapterID)
	h.writeJSON(w, http.StatusOK, s.Status())
}

func (h *Handler) HandleEditorClose(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.Close(); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleEditorTool(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w)
	if !ok {
		return
	}
	var req toolRequest
	if !h.decode(w, r, &req) {
		return
	}

	if req.Tool != nil {
		tool, err := raster.ParseTool(*req.Tool)
		if err != nil {
			h.writeMessage(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.SetTool(tool)
	}
	if req.Diameter != nil {
		s.SetDiameter(*req.Diameter)
	}
	if req.Color != nil {
		c, err := config.ParseColor(*req.Color)
		if err != nil {
			h.writeMessage(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.SetColor(c)
	}
	h.writeJSON(w, http.StatusOK, s.Status())
}

func (h *Handler) HandleEditorStroke(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w)
	if !ok {
		return
	}
	var req strokeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if len(req.Points) == 0 {
		h.writeMessage(w, "stroke needs at least one point", http.StatusBadRequest)
		return
	}

	points := req.Points
	if req.Viewport != nil {
		points = make([]raster.Point, len(req.Points))
		for i, p := range req.Points {
			points[i] = req.Viewport.ToImage(p)
		}
	}

	if err := s.Stroke(points); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s.Status())
}

func (h *Handler) HandleEditorUndo(w http.ResponseWriter, r *http.Request) {
	h.history(w, (*editor.Session).Undo)
}

func (h *Handler) HandleEditorRedo(w http.ResponseWriter, r *http.Request) {
	h.history(w, (*editor.Session).Redo)
}

func (h *Handler) history(w http.ResponseWriter, step func(*editor.Session) (bool, error)) {
	s, ok := h.session(w)
	if !ok {
		return
	}
	changed, err := step(s)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, historyResponse{Changed: changed, Status: s.Status()})
}

func (h *Handler) HandleEditorClear(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w)
	if !ok {
		return
	}
	if err := s.Clear(); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s.Status())
}

func (h *Handler) HandleEditorMask(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w)
	if !ok {
		return
	}
	m := mask.Export(s.Markup())
	var buf bytes.Buffer
	if err := mask.Encode(&buf, m); err != nil {
		h.writeError(w, fmt.Errorf("failed to encode mask: %w", err))
		return
	}
	w.Header().Set("X-Mask-Coverage", strconv.FormatFloat(mask.Coverage(m), 'f', 4, 64))
	h.writePNG(w, buf.Bytes())
}

func (h *Handler) HandleEditorPreview(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, s.Preview()); err != nil {
		h.writeError(w, fmt.Errorf("failed to encode preview: %w", err))
		return
	}
	h.writePNG(w, buf.Bytes())
}

func (h *Handler) HandleEditorApply(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.Apply(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.syncPage()
	h.HandleEditorStatus(w, r)
}

func (h *Handler) HandleEditorTranslate(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.Translate(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.syncPage()
	h.HandleEditorStatus(w, r)
}

func (h *Handler) writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(data); err != nil {
		h.writeMessage(w, "Unable to write image: "+err.Error(), http.StatusInternalServerError)
	}
}

// syncPage copies the open page's image references into the cached chapter
func (h *Handler) syncPage() {
	s, err := h.editor.Session()
	if err != nil {
		return
	}
	page := s.Page()

	h.mu.Lock()
	defer h.mu.Unlock()
	chapter, ok := h.cache[page.ChapterID]
	if !ok {
		return
	}
	for i := range chapter.Pages {
		if chapter.Pages[i].ID == page.ID {
			chapter.Pages[i].ErasedImageURL = page.ErasedImageURL
			chapter.Pages[i].TranslatedImageURL = page.TranslatedImageURL
		}
	}
}
