package batch

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict is returned when a job is already live for the chapter
	ErrConflict = errors.New("a batch translation is already running for this chapter")
	// ErrNothingPending is returned when every page is already translated and force is off
	ErrNothingPending = errors.New("no pages pending translation")
	// ErrNoJob is returned when no job is live for the chapter
	ErrNoJob = errors.New("no batch translation is running for this chapter")
	// ErrTimeout is reported when polling reaches its ceiling without a terminal status.
	// The remote job may still finish later.
	ErrTimeout = errors.New("batch translation did not finish before the polling ceiling")
	// ErrCanceled is reported when polling was stopped by the operator
	ErrCanceled = errors.New("batch translation polling was canceled")
)

// ConflictError identifies the live job that blocked a new submission
type ConflictError struct {
	ChapterID string
	JobID     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v (chapter %s, job %s)", ErrConflict, e.ChapterID, e.JobID)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func (e *ConflictError) ErrorKind() string {
	return "conflict"
}

// JobFailedError carries the reason reported by the server for a failed job
type JobFailedError struct {
	ChapterID string
	Reason    string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("batch translation failed for chapter %s: %s", e.ChapterID, e.Reason)
}

func (e *JobFailedError) ErrorKind() string {
	return "failed"
}
