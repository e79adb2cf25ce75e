package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/inkwash-dev/inkwash/internal/models"
	"github.com/inkwash-dev/inkwash/internal/storage"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	when    time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, when: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves the clock forward, running due callbacks in order
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.when.After(target) {
				continue
			}
			if next == nil || t.when.Before(next.when) {
				next = t
			}
		}
		if next == nil {
			break
		}
		next.fired = true
		c.now = next.when
		c.mu.Unlock()
		next.f()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

type fakeSubmitter struct {
	mu       sync.Mutex
	requests []Request
	err      error
}

func (f *fakeSubmitter) TranslateChapter(ctx context.Context, req Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.err
}

type fetchResult struct {
	status models.TranslationStatus
	reason string
	err    error
}

// fakeFetcher serves the prefetch with initial and each poll from script,
// repeating the last script entry once exhausted.
type fakeFetcher struct {
	mu      sync.Mutex
	initial models.TranslationStatus
	script  []fetchResult
	calls   int
}

func (f *fakeFetcher) FetchChapter(ctx context.Context, chapterID string) (*models.Chapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	res := fetchResult{status: f.initial}
	if f.calls > 1 && len(f.script) > 0 {
		idx := min(f.calls-2, len(f.script)-1)
		res = f.script[idx]
	}
	if res.err != nil {
		return nil, res.err
	}
	return &models.Chapter{
		ID:    chapterID,
		Error: res.reason,
		Pages: []models.Page{
			{ID: "p1", Number: 1, Status: res.status},
			{ID: "p2", Number: 2, Status: res.status},
		},
	}, nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type harness struct {
	clock     *fakeClock
	submitter *fakeSubmitter
	fetcher   *fakeFetcher
	store     *storage.JobStore
	poller    *Poller

	mu     sync.Mutex
	events []Event
}

func newHarness(script ...fetchResult) *harness {
	h := &harness{
		clock:     newFakeClock(),
		submitter: &fakeSubmitter{},
		fetcher:   &fakeFetcher{initial: models.StatusPending, script: script},
		store:     storage.New(),
	}
	h.poller = NewPoller(h.submitter, h.fetcher, Config{
		Interval:    5 * time.Second,
		MaxDuration: 10 * time.Minute,
		Clock:       h.clock,
		Recorder:    h.store,
		OnEvent: func(ev Event) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.events = append(h.events, ev)
		},
	})
	return h
}

func (h *harness) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.events...)
}

func (h *harness) start(t *testing.T, force bool) models.TranslationJob {
	t.Helper()
	job, err := h.poller.Start(context.Background(), Scope{ChapterID: "ch1", TargetLanguage: "en"}, force)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return job
}

func processing() fetchResult { return fetchResult{status: models.StatusProcessing} }

func TestCompletedJob(t *testing.T) {
	h := newHarness(processing(), processing(), fetchResult{status: models.StatusCompleted})
	job := h.start(t, false)

	if job.Status != models.JobPending || job.ID == "" {
		t.Fatalf("Expected pending job with ID, got %+v", job)
	}

	h.clock.Advance(10 * time.Second)
	if live, ok := h.poller.Job("ch1"); !ok || live.Status != models.JobProcessing || live.PollCount != 2 {
		t.Fatalf("Expected processing job after 2 polls, got %+v (live=%v)", live, ok)
	}

	h.clock.Advance(5 * time.Second)
	events := h.Events()
	if len(events) != 1 {
		t.Fatalf("Expected one event, got %d", len(events))
	}
	ev := events[0]
	if ev.Job.Status != models.JobCompleted || ev.Err != nil {
		t.Errorf("Expected completed event, got %+v", ev)
	}
	if ev.Chapter == nil || len(ev.Chapter.Pages) != 2 {
		t.Errorf("Expected refreshed chapter pages on completion")
	}
	if _, ok := h.poller.Job("ch1"); ok {
		t.Errorf("Expected no live job after completion")
	}
	stored, ok := h.store.Get(job.ID)
	if !ok || stored.Status != models.JobCompleted || stored.PollCount != 3 {
		t.Errorf("Expected stored completed job with 3 polls, got %+v", stored)
	}

	calls := h.fetcher.Calls()
	h.clock.Advance(time.Minute)
	if h.fetcher.Calls() != calls {
		t.Errorf("Expected polling to stop after completion")
	}
}

func TestFailedJobCarriesReason(t *testing.T) {
	h := newHarness(processing(), fetchResult{status: models.StatusFailed, reason: "ocr model crashed"})
	h.start(t, false)

	h.clock.Advance(10 * time.Second)

	events := h.Events()
	if len(events) != 1 || events[0].Job.Status != models.JobFailed {
		t.Fatalf("Expected failed event, got %+v", events)
	}
	var failed *JobFailedError
	if !errors.As(events[0].Err, &failed) || failed.Reason != "ocr model crashed" {
		t.Errorf("Expected server reason, got %v", events[0].Err)
	}
	if events[0].Job.LastError == "" {
		t.Errorf("Expected job to record the failure")
	}
}

func TestConflictLeavesLiveJobUntouched(t *testing.T) {
	h := newHarness(processing())
	first := h.start(t, false)

	h.clock.Advance(10 * time.Second)
	before, _ := h.poller.Job("ch1")

	_, err := h.poller.Start(context.Background(), Scope{ChapterID: "ch1"}, true)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Expected ErrConflict, got %v", err)
	}
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.JobID != first.ID {
		t.Errorf("Expected conflict to name the live job, got %v", err)
	}

	after, _ := h.poller.Job("ch1")
	if after.ID != first.ID || after.PollCount != before.PollCount {
		t.Errorf("Expected live job unchanged, before %+v after %+v", before, after)
	}
	if len(h.submitter.requests) != 1 {
		t.Errorf("Expected a single submission, got %d", len(h.submitter.requests))
	}
}

func TestTimeoutAtExactCeiling(t *testing.T) {
	h := newHarness(processing())
	job := h.start(t, false)

	h.clock.Advance(10*time.Minute - time.Second)
	if len(h.Events()) != 0 {
		t.Fatalf("Expected no terminal event before the ceiling")
	}
	live, ok := h.poller.Job("ch1")
	if !ok || live.PollCount != 119 {
		t.Fatalf("Expected 119 polls before the ceiling, got %+v", live)
	}

	h.clock.Advance(time.Second)
	events := h.Events()
	if len(events) != 1 {
		t.Fatalf("Expected one event at the ceiling, got %d", len(events))
	}
	ev := events[0]
	if ev.Job.Status != models.JobTimeout {
		t.Errorf("Expected timeout, got %s", ev.Job.Status)
	}
	if !errors.Is(ev.Err, ErrTimeout) {
		t.Errorf("Expected ErrTimeout, got %v", ev.Err)
	}
	var failed *JobFailedError
	if errors.As(ev.Err, &failed) {
		t.Errorf("Timeout must not be reported as a failure")
	}
	if got := ev.Job.FinishedAt.Sub(job.SubmittedAt); got != 10*time.Minute {
		t.Errorf("Expected timeout exactly at the ceiling, got %s", got)
	}
	if ev.Job.PollCount != 119 {
		t.Errorf("Expected no poll at the ceiling tick, got %d", ev.Job.PollCount)
	}

	calls := h.fetcher.Calls()
	h.clock.Advance(time.Hour)
	if h.fetcher.Calls() != calls {
		t.Errorf("Expected polling to stop after timeout")
	}
}

func TestTransientPollErrorsAreTolerated(t *testing.T) {
	netErr := errors.New("connection reset")
	h := newHarness(
		fetchResult{err: netErr},
		fetchResult{err: netErr},
		processing(),
		fetchResult{err: netErr},
		fetchResult{status: models.StatusCompleted},
	)
	h.start(t, false)

	h.clock.Advance(20 * time.Second)
	if len(h.Events()) != 0 {
		t.Fatalf("Expected transient errors not to end the job")
	}
	if live, ok := h.poller.Job("ch1"); !ok || live.LastError != "" {
		t.Errorf("Expected live job without surfaced error, got %+v", live)
	}

	h.clock.Advance(5 * time.Second)
	events := h.Events()
	if len(events) != 1 || events[0].Job.Status != models.JobCompleted {
		t.Fatalf("Expected completion after transient errors, got %+v", events)
	}
}

func TestCancelStopsPolling(t *testing.T) {
	h := newHarness(processing())
	h.start(t, false)
	h.clock.Advance(5 * time.Second)

	job, err := h.poller.Cancel("ch1")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if job.Status != models.JobCanceled {
		t.Errorf("Expected canceled, got %s", job.Status)
	}

	calls := h.fetcher.Calls()
	h.clock.Advance(time.Minute)
	if h.fetcher.Calls() != calls {
		t.Errorf("Expected no status checks after cancel")
	}
	if _, err := h.poller.Cancel("ch1"); !errors.Is(err, ErrNoJob) {
		t.Errorf("Expected ErrNoJob, got %v", err)
	}

	// a new job may start once the old one is gone
	h.start(t, true)
}

func TestNothingPendingShortCircuit(t *testing.T) {
	h := newHarness(fetchResult{status: models.StatusCompleted})
	h.fetcher.initial = models.StatusCompleted

	_, err := h.poller.Start(context.Background(), Scope{ChapterID: "ch1"}, false)
	if !errors.Is(err, ErrNothingPending) {
		t.Fatalf("Expected ErrNothingPending, got %v", err)
	}
	if len(h.submitter.requests) != 0 {
		t.Errorf("Expected no submission")
	}
	if _, ok := h.poller.Job("ch1"); ok {
		t.Errorf("Expected no live job")
	}

	h.start(t, true)
	if len(h.submitter.requests) != 1 || !h.submitter.requests[0].Force {
		t.Errorf("Expected forced submission, got %+v", h.submitter.requests)
	}
}

func TestSubmitFailureReleasesChapter(t *testing.T) {
	h := newHarness(processing())
	h.submitter.err = errors.New("backend unavailable")

	_, err := h.poller.Start(context.Background(), Scope{ChapterID: "ch1"}, false)
	if err == nil {
		t.Fatal("Expected submission error")
	}
	if _, ok := h.poller.Job("ch1"); ok {
		t.Errorf("Expected no live job after failed submission")
	}

	h.submitter.err = nil
	h.start(t, false)
}

func TestPageSubsetSubmitsWholeChapter(t *testing.T) {
	h := newHarness(processing())

	job, err := h.poller.Start(context.Background(), Scope{ChapterID: "ch1", PageIDs: []string{"p2"}, TargetLanguage: "fr"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(job.PageIDs) != 1 || job.PageIDs[0] != "p2" {
		t.Errorf("Expected scope recorded on the job, got %v", job.PageIDs)
	}
	req := h.submitter.requests[0]
	if req.ChapterID != "ch1" || req.TargetLanguage != "fr" {
		t.Errorf("Unexpected request %+v", req)
	}
}

func TestShutdownCancelsEverything(t *testing.T) {
	h := newHarness(processing())
	h.start(t, false)

	h.poller.Shutdown()

	if len(h.poller.Live()) != 0 {
		t.Errorf("Expected no live jobs after shutdown")
	}
	events := h.Events()
	if len(events) != 1 || !errors.Is(events[0].Err, ErrCanceled) {
		t.Errorf("Expected a canceled event, got %+v", events)
	}
}
