package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrRunClosed    = errors.New("quality run is closed")
	ErrRunNotClosed = errors.New("quality run is still open")
	ErrNotFound     = errors.New("not found")
)

// ApiError is returned by the fetch client once retries are exhausted or a
// permanent failure was seen. The pipeline treats it as non-fatal.
type ApiError struct {
	Target     string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *ApiError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("news api %q: status %d after %d attempt(s): %v", e.Target, e.StatusCode, e.Attempts, e.Err)
	}
	return fmt.Sprintf("news api %q: after %d attempt(s): %v", e.Target, e.Attempts, e.Err)
}

func (e *ApiError) Unwrap() error { return e.Err }

// RateLimitError signals a dispatch attempted before the gate reopened.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// StorageError wraps any repository failure. It is fatal to a run.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ValidationRejection is the error form of a Rejected decision.
type ValidationRejection struct {
	URL    string
	Reason RejectReason
}

func (e *ValidationRejection) Error() string {
	return fmt.Sprintf("article %q rejected: %s", e.URL, e.Reason)
}

// DuplicateRejection is the error form of a Duplicate decision.
type DuplicateRejection struct {
	URL string
}

func (e *DuplicateRejection) Error() string {
	return fmt.Sprintf("article %q is a duplicate", e.URL)
}
