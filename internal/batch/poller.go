// Package batch follows automatic chapter translation jobs by polling the
// chapter until it reaches a terminal status or the polling ceiling.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inkwash-dev/inkwash/internal/models"
)

const (
	DefaultInterval    = 5 * time.Second
	DefaultMaxDuration = 10 * time.Minute
)

// Request is the payload sent to the batch translate service
type Request struct {
	ChapterID      string
	TargetLanguage string
	Force          bool
}

// Submitter starts the automatic pipeline for a chapter. It only acknowledges;
// progress is observed through ChapterFetcher.
type Submitter interface {
	TranslateChapter(ctx context.Context, req Request) error
}

// ChapterFetcher returns the current chapter representation
type ChapterFetcher interface {
	FetchChapter(ctx context.Context, chapterID string) (*models.Chapter, error)
}

// Recorder persists job records as they change
type Recorder interface {
	Save(job models.TranslationJob)
}

// Scope selects what a batch job covers
type Scope struct {
	ChapterID      string
	PageIDs        []string
	TargetLanguage string
}

// Event reports a job reaching a terminal status
type Event struct {
	Job     models.TranslationJob
	Chapter *models.Chapter
	Err     error
}

// Config configures a Poller. Zero values fall back to the defaults.
type Config struct {
	Interval    time.Duration
	MaxDuration time.Duration
	Clock       Clock
	Recorder    Recorder
	OnEvent     func(Event)
}

type run struct {
	job      models.TranslationJob
	deadline time.Time
	timer    Timer
	ctx      context.Context
	cancel   context.CancelFunc
}

// Poller runs at most one live job per chapter
type Poller struct {
	submitter Submitter
	fetcher   ChapterFetcher
	clock     Clock
	interval  time.Duration
	ceiling   time.Duration
	recorder  Recorder
	onEvent   func(Event)

	mu   sync.Mutex
	runs map[string]*run
}

// NewPoller creates a poller using the given collaborators
func NewPoller(submitter Submitter, fetcher ChapterFetcher, cfg Config) *Poller {
	p := &Poller{
		submitter: submitter,
		fetcher:   fetcher,
		clock:     cfg.Clock,
		interval:  cfg.Interval,
		ceiling:   cfg.MaxDuration,
		recorder:  cfg.Recorder,
		onEvent:   cfg.OnEvent,
		runs:      make(map[string]*run),
	}
	if p.clock == nil {
		p.clock = RealClock()
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.ceiling <= 0 {
		p.ceiling = DefaultMaxDuration
	}
	return p
}

// Start submits a batch job for the chapter and begins polling it.
// It fails with a ConflictError when a job is already live for the chapter.
func (p *Poller) Start(ctx context.Context, scope Scope, force bool) (models.TranslationJob, error) {
	chapterID := scope.ChapterID
	if chapterID == "" {
		return models.TranslationJob{}, fmt.Errorf("chapter id is required")
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	r := &run{
		job: models.TranslationJob{
			ID:             uuid.NewString(),
			ChapterID:      chapterID,
			PageIDs:        append([]string(nil), scope.PageIDs...),
			TargetLanguage: scope.TargetLanguage,
			Force:          force,
			Status:         models.JobPending,
		},
		ctx:    pollCtx,
		cancel: cancel,
	}

	p.mu.Lock()
	if live, ok := p.runs[chapterID]; ok {
		p.mu.Unlock()
		cancel()
		slog.Warn("Rejected batch submission", "chapter_id", chapterID, "live_job", live.job.ID)
		return models.TranslationJob{}, &ConflictError{ChapterID: chapterID, JobID: live.job.ID}
	}
	// reserve the chapter while the submission is in flight
	p.runs[chapterID] = r
	p.mu.Unlock()

	if err := p.submit(ctx, r, scope, force); err != nil {
		p.mu.Lock()
		if p.runs[chapterID] == r {
			delete(p.runs, chapterID)
		}
		p.mu.Unlock()
		cancel()
		return models.TranslationJob{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.runs[chapterID] != r {
		return r.job, ErrCanceled
	}
	r.job.SubmittedAt = p.clock.Now()
	r.deadline = r.job.SubmittedAt.Add(p.ceiling)
	p.scheduleLocked(r)
	p.record(r.job)

	slog.Info("Batch translation started", "chapter_id", chapterID, "job_id", r.job.ID, "force", force, "interval", p.interval, "max_duration", p.ceiling)
	return r.job, nil
}

func (p *Poller) submit(ctx context.Context, r *run, scope Scope, force bool) error {
	chapter, err := p.fetcher.FetchChapter(ctx, scope.ChapterID)
	if err != nil {
		return fmt.Errorf("failed to fetch chapter: %w", err)
	}
	if !force && !chapter.HasPending() {
		return ErrNothingPending
	}

	if len(scope.PageIDs) > 0 {
		// the backend only translates whole chapters
		slog.Warn("Page subset requested, submitting whole chapter", "chapter_id", scope.ChapterID, "pages", len(scope.PageIDs))
	}

	err = p.submitter.TranslateChapter(ctx, Request{
		ChapterID:      scope.ChapterID,
		TargetLanguage: scope.TargetLanguage,
		Force:          force,
	})
	if err != nil {
		return fmt.Errorf("failed to submit batch translation: %w", err)
	}
	return nil
}

func (p *Poller) scheduleLocked(r *run) {
	delay := min(p.interval, r.deadline.Sub(p.clock.Now()))
	if delay < 0 {
		delay = 0
	}
	r.timer = p.clock.AfterFunc(delay, func() { p.tick(r) })
}

func (p *Poller) tick(r *run) {
	chapterID := r.job.ChapterID

	p.mu.Lock()
	if p.runs[chapterID] != r {
		p.mu.Unlock()
		return
	}
	if !p.clock.Now().Before(r.deadline) {
		ev := p.finishLocked(r, models.JobTimeout, ErrTimeout, nil)
		p.mu.Unlock()
		slog.Warn("Batch translation polling timed out", "chapter_id", chapterID, "job_id", ev.Job.ID, "polls", ev.Job.PollCount)
		p.emit(ev)
		return
	}
	r.job.PollCount++
	ctx := r.ctx
	p.mu.Unlock()

	chapter, err := p.fetcher.FetchChapter(ctx, chapterID)

	p.mu.Lock()
	if p.runs[chapterID] != r {
		p.mu.Unlock()
		return
	}
	if err != nil {
		slog.Warn("Batch status check failed, will retry", "chapter_id", chapterID, "err", err)
		p.scheduleLocked(r)
		p.mu.Unlock()
		return
	}

	switch chapter.AggregateStatus() {
	case models.StatusCompleted:
		ev := p.finishLocked(r, models.JobCompleted, nil, chapter)
		p.mu.Unlock()
		slog.Info("Batch translation completed", "chapter_id", chapterID, "job_id", ev.Job.ID, "pages", len(chapter.Pages))
		p.emit(ev)
	case models.StatusFailed:
		reason := chapter.Error
		if reason == "" {
			reason = "server reported failure"
		}
		ev := p.finishLocked(r, models.JobFailed, &JobFailedError{ChapterID: chapterID, Reason: reason}, chapter)
		p.mu.Unlock()
		slog.Error("Batch translation failed", "chapter_id", chapterID, "job_id", ev.Job.ID, "reason", reason)
		p.emit(ev)
	default:
		if r.job.Status == models.JobPending {
			r.job.Status = models.JobProcessing
		}
		p.record(r.job)
		p.scheduleLocked(r)
		p.mu.Unlock()
	}
}

func (p *Poller) finishLocked(r *run, status models.JobStatus, err error, chapter *models.Chapter) Event {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.cancel()
	delete(p.runs, r.job.ChapterID)

	r.job.Status = status
	r.job.FinishedAt = p.clock.Now()
	if err != nil {
		r.job.LastError = err.Error()
	}
	p.record(r.job)

	job := r.job
	job.PageIDs = append([]string(nil), r.job.PageIDs...)
	return Event{Job: job, Chapter: chapter, Err: err}
}

// Cancel stops polling the chapter's live job. The remote job is not affected.
func (p *Poller) Cancel(chapterID string) (models.TranslationJob, error) {
	p.mu.Lock()
	r, ok := p.runs[chapterID]
	if !ok {
		p.mu.Unlock()
		return models.TranslationJob{}, ErrNoJob
	}
	ev := p.finishLocked(r, models.JobCanceled, ErrCanceled, nil)
	p.mu.Unlock()

	slog.Info("Batch translation polling canceled", "chapter_id", chapterID, "job_id", ev.Job.ID)
	p.emit(ev)
	return ev.Job, nil
}

// Job returns the live job for the chapter
func (p *Poller) Job(chapterID string) (models.TranslationJob, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.runs[chapterID]
	if !ok {
		return models.TranslationJob{}, false
	}
	return r.job, true
}

// Live returns every live job
func (p *Poller) Live() []models.TranslationJob {
	p.mu.Lock()
	defer p.mu.Unlock()
	jobs := make([]models.TranslationJob, 0, len(p.runs))
	for _, r := range p.runs {
		jobs = append(jobs, r.job)
	}
	return jobs
}

// Shutdown cancels every live job
func (p *Poller) Shutdown() {
	p.mu.Lock()
	chapters := make([]string, 0, len(p.runs))
	for id := range p.runs {
		chapters = append(chapters, id)
	}
	p.mu.Unlock()

	for _, id := range chapters {
		_, _ = p.Cancel(id)
	}
}

func (p *Poller) record(job models.TranslationJob) {
	if p.recorder != nil {
		p.recorder.Save(job)
	}
}

func (p *Poller) emit(ev Event) {
	if p.onEvent != nil {
		p.onEvent(ev)
	}
}
