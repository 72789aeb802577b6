package session

import "errors"

var (
	// ErrAuthUnavailable is returned when no usable token could be produced;
	// the caller should send the user through login again.
	ErrAuthUnavailable = errors.New("authentication unavailable")
	// ErrPersistenceUnavailable marks storage failures. They are logged and
	// never returned from public methods; in-memory state stays authoritative.
	ErrPersistenceUnavailable = errors.New("session persistence unavailable")
)
