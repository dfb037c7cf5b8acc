package fetcher

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Result is a successfully downloaded playlist document.
type Result struct {
	Text     string
	Source   string // locator that served the document
	Bytes    int64
	Attempts int // locators tried, including the successful one
	Duration time.Duration
}

// ErrNetwork matches any *NetworkError via errors.Is.
var ErrNetwork = errors.New("playlist could not be downloaded")

// ErrEmptyBody is returned for a 200 response without content.
var ErrEmptyBody = errors.New("empty response body")

// StatusError is a non-200 HTTP response.
type StatusError struct{ Code int }

func (e *StatusError) Error() string { return fmt.Sprintf("HTTP %d", e.Code) }

// TruncatedError reports a body whose length differs from Content-Length.
type TruncatedError struct{ Got, Want int64 }

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("received %d of %d declared bytes", e.Got, e.Want)
}

// AttemptError records why one locator failed.
type AttemptError struct {
	Locator string
	Err     error
}

// NetworkError is returned when the primary and every alternate failed.
type NetworkError struct {
	Attempts []AttemptError
}

func (e *NetworkError) Error() string {
	if len(e.Attempts) == 0 {
		return ErrNetwork.Error() + ": no source configured"
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", a.Locator, a.Err)
	}
	return fmt.Sprintf("%s after %d attempt(s): %s", ErrNetwork, len(e.Attempts), strings.Join(parts, "; "))
}

// Is reports target == ErrNetwork.
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// Unwrap exposes the per-attempt causes.
func (e *NetworkError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a.Err
	}
	return errs
}
