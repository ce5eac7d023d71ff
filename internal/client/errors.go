package client

import "fmt"

// UnavailableError reports a transport failure or non-success status on a
// read call. The next poll cycle retries; it is never fatal.
type UnavailableError struct {
	Op     string
	Status int // 0 when the request never completed
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: server unavailable (status %d)", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: server unavailable: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// DecodeError reports a response body that did not match the expected shape.
// Payload carries a truncated copy of the offending body for logging.
type DecodeError struct {
	Op      string
	Payload string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// RejectedError reports a non-success status on a mutating call, including
// the server's textual reason. It is surfaced synchronously to the command
// caller and never retried automatically.
type RejectedError struct {
	Op     string
	Status int
	Reason string
}

func (e *RejectedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: rejected by server (status %d): %s", e.Op, e.Status, e.Reason)
	}
	return fmt.Sprintf("%s: rejected by server (status %d)", e.Op, e.Status)
}
