package appview

import "errors"

// Typed errors for AppView fetches.
// Services use errors.Is() instead of matching on status text.
var (
	// ErrNotFound indicates the requested feed, actor or post does not exist (HTTP 404).
	ErrNotFound = errors.New("not found")

	// ErrBadRequest indicates the request was malformed or invalid (HTTP 400).
	ErrBadRequest = errors.New("bad request")

	// ErrRateLimited indicates the upstream throttled us (HTTP 429).
	ErrRateLimited = errors.New("rate limited")

	// ErrUpstream indicates any other upstream failure.
	ErrUpstream = errors.New("upstream error")
)
