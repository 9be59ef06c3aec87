package goEMS

import "errors"

var (
	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrBuilderUsed is returned when Build is called twice on one Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrUserRequired is returned by Login for a nil user.
	ErrUserRequired = errors.New("login requires a user")
	// ErrNotLoggedIn is returned by operations that need an active session.
	ErrNotLoggedIn = errors.New("no active session")
)
