// Copyright (c) The agui-client-go authors. All rights reserved.

package aguiclient

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrSession is the base error for session lifecycle failures.
	ErrSession = errors.New("session error")

	// ErrRunActive is returned when a run is started while the previous run
	// on the same session is not yet terminal.
	ErrRunActive = fmt.Errorf("%w: run already active", ErrSession)

	// ErrNoTransport is returned by SendMessage when the session was opened
	// without a transport.
	ErrNoTransport = fmt.Errorf("%w: no transport configured", ErrSession)

	// ErrApproval is the base error for approval gate failures.
	ErrApproval = errors.New("approval error")

	// ErrUnknownApproval is returned when resolving a tool call id with no
	// pending approval request.
	ErrUnknownApproval = fmt.Errorf("%w: no pending request for tool call", ErrApproval)

	// ErrService is the base error for backend service failures.
	ErrService = errors.New("service error")

	// ErrAuth indicates an authentication or authorization failure.
	ErrAuth = fmt.Errorf("%w: authentication", ErrService)

	// ErrInvalidRequest indicates the request was malformed or invalid.
	ErrInvalidRequest = fmt.Errorf("%w: invalid request", ErrService)

	// ErrInvalidResponse indicates the service returned an unexpected response.
	ErrInvalidResponse = fmt.Errorf("%w: invalid response", ErrService)
)

// ServiceError provides rich context for backend service failures.
// Use errors.As to extract it from a wrapped error chain.
type ServiceError struct {
	StatusCode int
	Message    string
	Code       string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("service error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("service error %d: %s", e.StatusCode, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }
