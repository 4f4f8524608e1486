package model

import (
	"errors"
	"fmt"
	"time"
)

// Store-level invariant violations. Stores wrap these with context;
// callers check with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// FetchError wraps a failed board or page fetch so retry logic can inspect
// the status code and callers can treat network trouble as a skip.
type FetchError struct {
	URL        string
	StatusCode int           // zero when the request never got a response
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("fetch %s: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s failed", e.URL)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// SendError wraps a failed outbound delivery.
type SendError struct {
	Recipient string
	Err       error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to %s: %v", e.Recipient, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}
