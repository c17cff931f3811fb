package models

import "errors"

var (
	// ErrValidation marks malformed input rejected at a schema-checked boundary.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a reference to an unknown task or record.
	ErrNotFound = errors.New("not found")
	// ErrExternalService marks a failed call to TickTick or the AI model.
	ErrExternalService = errors.New("external service error")
	// ErrNotConnected means the user has no TickTick access token.
	ErrNotConnected = errors.New("ticktick account not connected")
	// ErrAuthState marks an OAuth callback whose state does not match.
	ErrAuthState = errors.New("oauth state mismatch")
	// ErrToolExecution marks a failed AI tool call or an exhausted tool loop.
	ErrToolExecution = errors.New("tool execution error")
)
