package chat

import "errors"

// Sentinel errors mapped to HTTP status codes / WS error events at the edges.
var (
	ErrValidation   = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("not authorized")
)
