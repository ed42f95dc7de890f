package extraction

import (
	"errors"
	"fmt"
)

var (
	// ErrJobActive is returned by Start while another job is running or paused.
	ErrJobActive = errors.New("an extraction job is already active")

	// ErrJobNotFound is returned when a job id does not match the current job.
	ErrJobNotFound = errors.New("extraction job not found")
)

// SetupError aborts a job before any pricing call is made.
type SetupError struct {
	Reason string
	Err    error
}

func (e *SetupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction setup: %s: %v", e.Reason, e.Err)
	}
	return "extraction setup: " + e.Reason
}

func (e *SetupError) Unwrap() error {
	return e.Err
}
