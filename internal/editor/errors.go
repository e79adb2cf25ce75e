package editor

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSession is returned when no page is open for editing
	ErrNoSession = errors.New("no page is open for editing")
	// ErrBusy is returned for a duplicate request while the page is in flight
	ErrBusy = errors.New("a request for this page is already in progress")
	// ErrInvalidState is returned when the workflow state does not allow the operation
	ErrInvalidState = errors.New("operation not allowed in the current state")
)

func invalidState(op string, state State) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidState, op, state)
}

// ApplyError reports a failed call to the erase service. The markup is kept
// so the operator can retry or adjust it.
type ApplyError struct {
	PageID string
	Err    error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("failed to erase page %s: %v", e.PageID, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

func (e *ApplyError) ErrorKind() string {
	return "apply"
}

// TranslateError reports a failed call to the translate service
type TranslateError struct {
	PageID string
	Err    error
}

func (e *TranslateError) Error() string {
	return fmt.Sprintf("failed to translate page %s: %v", e.PageID, e.Err)
}

func (e *TranslateError) Unwrap() error {
	return e.Err
}

func (e *TranslateError) ErrorKind() string {
	return "translate"
}
