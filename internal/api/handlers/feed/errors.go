package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"Skylight/internal/core/feed"
)

// XRPCError represents an XRPC error response
type XRPCError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := XRPCError{
		Error:   errorType,
		Message: message,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("ERROR: Failed to encode error response: %v", err)
	}
}

// handleServiceError maps pipeline errors to HTTP responses. The contract
// distinguishes a failed fetch (error here) from "nothing left" and
// "everything filtered" (both successful pages).
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case feed.IsValidationError(err):
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
	case errors.Is(err, feed.ErrInvalidCursor):
		writeError(w, http.StatusBadRequest, "InvalidCursor", "The provided cursor is invalid")
	case errors.Is(err, feed.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "AuthenticationRequired", "A valid viewer DID is required")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "UpstreamTimeout", "The upstream fetch timed out")
	case errors.Is(err, feed.ErrUpstream):
		log.Printf("ERROR: Upstream feed fetch failed: %v", err)
		writeError(w, http.StatusBadGateway, "UpstreamFailure", "Fetching the feed from upstream failed")
	default:
		log.Printf("ERROR: Feed service error: %v", err)
		writeError(w, http.StatusInternalServerError, "InternalServerError", "An error occurred while fetching the feed")
	}
}
