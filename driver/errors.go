package driver

import "errors"

// Predefined errors
var (
	// ErrInvalidRegexpArgument is returned when regexp or regexf receives a non-text argument
	ErrInvalidRegexpArgument = errors.New("csvsql driver: regexp arguments must be text")

	// ErrRegisterFunctions is returned when the scalar functions cannot be registered
	ErrRegisterFunctions = errors.New("csvsql driver: failed to register SQL functions")
)
