package provider

import (
	"fmt"
)

// TransportError is a failed round trip: unreachable host, non-2xx status or
// an unreadable body.
type TransportError struct {
	Host       string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: http %d: %v", e.Host, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Host, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ApplicationError is a response whose envelope carries a non-zero code
type ApplicationError struct {
	Host string
	Code int64
	Msg  string
}

func (e *ApplicationError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = "API error"
	}
	return fmt.Sprintf("provider %s: code %d: %s", e.Host, e.Code, msg)
}

// ExhaustedError is returned once every host has used up its attempts. It
// wraps the last observed failure.
type ExhaustedError struct {
	Path     string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("provider %s failed after %d attempts: %v", e.Path, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }
