package pricing

import (
	"errors"
	"fmt"
)

// ValidationError indicates a payload that failed pre-send checks. No request
// was sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid pricing payload: %s %s", e.Field, e.Reason)
}

// RejectionError indicates the vendor refused the request with a 4xx status.
type RejectionError struct {
	StatusCode int
	Message    string
	Attempts   int
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// TransportError indicates a network, timeout, 5xx, throttling or decode
// failure that survived every retry.
type TransportError struct {
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Errorf("transport failure after %d attempt(s): %w", e.Attempts, e.Err).Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// retryableStatusError marks a non-2xx status worth retrying.
type retryableStatusError struct {
	StatusCode int
	Body       string
}

func (e *retryableStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Attempts reports how many requests were sent before err was produced.
func Attempts(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Attempts
	}
	var re *RejectionError
	if errors.As(err, &re) {
		return re.Attempts
	}
	return 0
}

// OutcomeLabel classifies err for metrics and logs.
func OutcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return "validation"
	}
	var re *RejectionError
	if errors.As(err, &re) {
		return "rejected"
	}
	var te *TransportError
	if errors.As(err, &te) {
		return "transport"
	}
	return "other"
}
