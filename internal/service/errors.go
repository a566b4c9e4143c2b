package service

import "fmt"

// InputError signals a caller-supplied request that fails validation before
// any routing work begins: a missing prompt or an unrecognized preset name.
// It is reported to the caller and is never retried.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Reason)
}

// FallbackExhaustedError is raised when both the originally selected model
// and the static fallback model fail. OriginalError carries the message
// from the first (selected-model) failure, per spec section 7.
type FallbackExhaustedError struct {
	OriginalError string
}

func (e *FallbackExhaustedError) Error() string {
	return fmt.Sprintf("routing failed: %s", e.OriginalError)
}
