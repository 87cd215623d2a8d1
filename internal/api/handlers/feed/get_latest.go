package feed

import (
	"encoding/json"
	"log"
	"net/http"

	"Skylight/internal/api/middleware"
	"Skylight/internal/core/feed"
)

// GetFeedLatestHandler serves the latest-activity probe
type GetFeedLatestHandler struct {
	service feed.Service
}

// NewGetFeedLatestHandler creates a latest-probe handler
func NewGetFeedLatestHandler(service feed.Service) *GetFeedLatestHandler {
	return &GetFeedLatestHandler{
		service: service,
	}
}

// HandleGetFeedLatest returns the newest item's cid for a timeline, so
// clients can compare it against the cid of their last fetched page
// GET /xrpc/app.skylight.feed.getFeedLatest?type=home
func (h *GetFeedLatestHandler) HandleGetFeedLatest(w http.ResponseWriter, r *http.Request) {
	viewerDID := middleware.GetViewerDID(r)
	if viewerDID == "" {
		writeError(w, http.StatusUnauthorized, "AuthenticationRequired", "A valid viewer DID is required")
		return
	}

	descriptor, err := parseDescriptor(r.URL.Query().Get("type"), r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}

	result, err := h.service.GetFeedLatest(r.Context(), feed.GetFeedLatestRequest{
		UserDID:    viewerDID,
		Descriptor: descriptor,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Printf("ERROR: Failed to encode latest response: %v", err)
	}
}
