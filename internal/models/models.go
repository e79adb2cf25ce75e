package models

import "time"

// TranslationStatus is the server-owned translation state of a page or chapter
type TranslationStatus string

const (
	StatusNone       TranslationStatus = "none"
	StatusPending    TranslationStatus = "pending"
	StatusProcessing TranslationStatus = "processing"
	StatusCompleted  TranslationStatus = "completed"
	StatusFailed     TranslationStatus = "failed"
)

// Page represents a single comic page as returned by the chapter endpoint
type Page struct {
	ID                 string            `json:"id"`
	ChapterID          string            `json:"chapter_id,omitempty"`
	Number             int               `json:"page_number"`
	OriginalImageURL   string            `json:"original_image_url"`
	ErasedImageURL     string            `json:"erased_image_url,omitempty"`
	TranslatedImageURL string            `json:"translated_image_url,omitempty"`
	Status             TranslationStatus `json:"status"`
}

// Erased reports whether the page already has an erased image
func (p Page) Erased() bool {
	return p.ErasedImageURL != ""
}

// Pending reports whether the page still needs the automatic pipeline
func (p Page) Pending() bool {
	return p.Status != StatusCompleted
}

// Chapter represents a chapter with its ordered pages
type Chapter struct {
	ID     string            `json:"id"`
	Title  string            `json:"title,omitempty"`
	Status TranslationStatus `json:"translation_status,omitempty"`
	Error  string            `json:"translation_error,omitempty"`
	Pages  []Page            `json:"pages"`
}

// Page returns the page with the given ID
func (c *Chapter) Page(pageID string) (Page, bool) {
	for _, p := range c.Pages {
		if p.ID == pageID {
			return p, true
		}
	}
	return Page{}, false
}

// AggregateStatus reports the chapter-wide translation status. The server
// value wins when present; otherwise it is derived from the pages.
func (c *Chapter) AggregateStatus() TranslationStatus {
	if c.Status != "" && c.Status != StatusNone {
		return c.Status
	}
	if len(c.Pages) == 0 {
		return StatusNone
	}

	completed := 0
	for _, p := range c.Pages {
		switch p.Status {
		case StatusFailed:
			return StatusFailed
		case StatusCompleted:
			completed++
		}
	}
	if completed == len(c.Pages) {
		return StatusCompleted
	}
	return StatusProcessing
}

// HasPending reports whether any page still needs translation
func (c *Chapter) HasPending() bool {
	for _, p := range c.Pages {
		if p.Pending() {
			return true
		}
	}
	return false
}

// JobStatus is the lifecycle state of a batch translation job
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobTimeout    JobStatus = "timeout"
	JobCanceled   JobStatus = "canceled"
)

// Terminal reports whether no further polling happens in this status
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobTimeout, JobCanceled:
		return true
	}
	return false
}

// TranslationJob tracks one automatic batch run for a chapter
type TranslationJob struct {
	ID             string    `json:"id"`
	ChapterID      string    `json:"chapter_id"`
	PageIDs        []string  `json:"page_ids,omitempty"`
	TargetLanguage string    `json:"target_language"`
	Force          bool      `json:"force"`
	Status         JobStatus `json:"status"`
	PollCount      int       `json:"poll_count"`
	LastError      string    `json:"last_error,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"`
	FinishedAt     time.Time `json:"finished_at,omitempty"`
}
