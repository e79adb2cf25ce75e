package handlers

import (
	"net/http"

	"github.com/inkwash-dev/inkwash/internal/batch"
	"github.com/inkwash-dev/inkwash/internal/models"
)

type batchRequest struct {
	Force          bool     `json:"force"`
	TargetLanguage string   `json:"target_language"`
	PageIDs        []string `json:"page_ids"`
}

type selectionRequest struct {
	ChapterID string   `json:"chapter_id"`
	PageIDs   []string `json:"page_ids"`
	All       bool     `json:"all"`
}

type toggleRequest struct {
	PageID string `json:"page_id"`
}

type selectionResponse struct {
	ChapterID string   `json:"chapter_id"`
	PageIDs   []string `json:"page_ids"`
}

func (h *Handler) HandleChapter(w http.ResponseWriter, r *http.Request) {
	chapter, err := h.fetchChapter(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, chapter)
}

func (h *Handler) HandleBatchStart(w http.ResponseWriter, r *http.Request) {
	chapterID := r.PathValue("id")
	var req batchRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}

	pageIDs := req.PageIDs
	if len(pageIDs) == 0 && h.selection.ChapterID() == chapterID {
		pageIDs = h.selection.IDs()
	}
	lang := req.TargetLanguage
	if lang == "" {
		lang = h.targetLanguage
	}

	job, err := h.poller.Start(r.Context(), batch.Scope{
		ChapterID:      chapterID,
		PageIDs:        pageIDs,
		TargetLanguage: lang,
	}, req.Force)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, job)
}

func (h *Handler) HandleBatchStatus(w http.ResponseWriter, r *http.Request) {
	chapterID := r.PathValue("id")
	if job, ok := h.poller.Job(chapterID); ok {
		h.writeJSON(w, http.StatusOK, job)
		return
	}
	// fall back to the most recent finished job
	jobs := h.jobs.ForChapter(chapterID)
	if len(jobs) == 0 {
		h.writeError(w, batch.ErrNoJob)
		return
	}
	h.writeJSON(w, http.StatusOK, jobs[len(jobs)-1])
}

func (h *Handler) HandleBatchCancel(w http.ResponseWriter, r *http.Request) {
	job, err := h.poller.Cancel(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, job)
}

func (h *Handler) HandleJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.jobs.GetAll()
	if jobs == nil {
		jobs = []models.TranslationJob{}
	}
	h.writeJSON(w, http.StatusOK, jobs)
}

func (h *Handler) HandleJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.jobs.Get(r.PathValue("id"))
	if !ok {
		h.writeMessage(w, "Job not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, job)
}

func (h *Handler) HandleSelection(w http.ResponseWriter, r *http.Request) {
	h.writeSelection(w)
}

func (h *Handler) HandleSelectionUpdate(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.ChapterID == "" {
		h.writeMessage(w, "chapter_id is required", http.StatusBadRequest)
		return
	}

	h.selection.SetScope(req.ChapterID)
	h.selection.Clear()
	if req.All {
		chapter, ok := h.cachedChapter(req.ChapterID)
		if !ok {
			var err error
			if chapter, err = h.fetchChapter(r.Context(), req.ChapterID); err != nil {
				h.writeError(w, err)
				return
			}
		}
		h.selection.All(chapter.Pages)
	}
	for _, id := range req.PageIDs {
		h.selection.Add(id)
	}
	h.writeSelection(w)
}

func (h *Handler) HandleSelectionToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.PageID == "" {
		h.writeMessage(w, "page_id is required", http.StatusBadRequest)
		return
	}
	h.selection.Toggle(req.PageID)
	h.writeSelection(w)
}

func (h *Handler) HandleSelectionClear(w http.ResponseWriter, r *http.Request) {
	h.selection.Clear()
	h.writeSelection(w)
}

func (h *Handler) writeSelection(w http.ResponseWriter) {
	ids := h.selection.IDs()
	if ids == nil {
		ids = []string{}
	}
	h.writeJSON(w, http.StatusOK, selectionResponse{ChapterID: h.selection.ChapterID(), PageIDs: ids})
}
