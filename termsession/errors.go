package termsession

import "errors"

var (
	// ErrNotTerminal is returned when a descriptor that must be a terminal is not one.
	ErrNotTerminal = errors.New("not a terminal")

	// ErrSessionRunning is returned when Run is called on a controller that already ran.
	ErrSessionRunning = errors.New("session already started")
)
