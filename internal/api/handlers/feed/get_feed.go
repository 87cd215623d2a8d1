package feed

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"Skylight/internal/api/middleware"
	"Skylight/internal/core/feed"
	"Skylight/internal/core/feedcache"
)

// GetFeedHandler serves one pipeline page per request
type GetFeedHandler struct {
	service  feed.Service
	sessions *feedcache.Cache
}

// NewGetFeedHandler creates a feed handler
func NewGetFeedHandler(service feed.Service, sessions *feedcache.Cache) *GetFeedHandler {
	return &GetFeedHandler{
		service:  service,
		sessions: sessions,
	}
}

// feedPageResponse is the wire shape for one page
type feedPageResponse struct {
	Cursor string        `json:"cursor,omitempty"`
	CID    *string       `json:"cid,omitempty"`
	Slices []*feed.Slice `json:"slices"`
}

// HandleGetFeed retrieves one display-ready timeline page
// GET /xrpc/app.skylight.feed.getFeed?type=home&algorithm=reverse-chronological&limit=20&cursor=...
func (h *GetFeedHandler) HandleGetFeed(w http.ResponseWriter, r *http.Request) {
	viewerDID := middleware.GetViewerDID(r)
	if viewerDID == "" {
		writeError(w, http.StatusUnauthorized, "AuthenticationRequired", "A valid viewer DID is required")
		return
	}

	req, cursorParam, err := h.parseRequest(r, viewerDID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}

	// Rejoin the session: a known token restores the full compound cursor
	// (upstream key + buffered slices); an unknown one degrades to a bare
	// upstream key.
	key := feed.SessionKey(viewerDID, req.Descriptor, req.Limit)
	if cursorParam != "" {
		if resumed := h.sessions.Resume(key, cursorParam); resumed != nil {
			req.Cursor = resumed
		} else {
			raw := cursorParam
			req.Cursor = &feed.PageCursor{Key: &raw}
		}
	}

	page, err := h.service.GetFeed(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	token := h.sessions.Push(key, page, req.Cursor)

	resp := feedPageResponse{
		Cursor: token,
		CID:    page.CID,
		Slices: page.Slices,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("ERROR: Failed to encode feed response: %v", err)
	}
}

// parseRequest builds the pipeline request from query parameters.
// Returns the raw cursor token separately - it is resolved against the
// session cache, not parsed here.
func (h *GetFeedHandler) parseRequest(r *http.Request, viewerDID string) (feed.GetFeedRequest, string, error) {
	query := r.URL.Query()

	req := feed.GetFeedRequest{
		UserDID: viewerDID,
	}

	descriptor, err := parseDescriptor(query.Get("type"), query)
	if err != nil {
		return req, "", err
	}
	req.Descriptor = descriptor

	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return req, "", feed.NewValidationError("limit", "limit must be an integer")
		}
		req.Limit = limit
	}
	// Apply the default here, not just in the service: the session key
	// includes the limit, and an omitted limit must land in the same
	// session as an explicit default one
	if req.Limit <= 0 {
		req.Limit = feed.DefaultLimit
	}

	return req, query.Get("cursor"), nil
}

// parseDescriptor maps query parameters to a timeline descriptor
func parseDescriptor(feedType string, query map[string][]string) (feed.Descriptor, error) {
	first := func(key string) string {
		values := query[key]
		if len(values) == 0 {
			return ""
		}
		return values[0]
	}

	switch feed.DescriptorType(feedType) {
	case feed.DescriptorHome:
		algorithm := first("algorithm")
		if algorithm == "" {
			algorithm = "reverse-chronological"
		}
		return feed.HomeDescriptor(algorithm), nil

	case feed.DescriptorFeed:
		return feed.FeedDescriptor(first("uri")), nil

	case feed.DescriptorList:
		return feed.ListDescriptor(first("uri")), nil

	case feed.DescriptorProfile:
		tab := feed.ProfileTab(first("tab"))
		if tab == "" {
			tab = feed.TabPosts
		}
		return feed.ProfileDescriptor(first("actor"), tab), nil

	case feed.DescriptorSearch:
		return feed.SearchDescriptor(first("q")), nil

	default:
		return feed.Descriptor{}, feed.NewValidationError("type",
			"type must be one of: home, feed, list, profile, search")
	}
}
