package routes

import (
	feedHandlers "Skylight/internal/api/handlers/feed"
	feedCore "Skylight/internal/core/feed"
	"Skylight/internal/core/feedcache"

	"github.com/go-chi/chi/v5"
)

// RegisterFeedRoutes registers the timeline pipeline's XRPC endpoints
func RegisterFeedRoutes(
	r chi.Router,
	feedService feedCore.Service,
	sessions *feedcache.Cache,
) {
	getFeedHandler := feedHandlers.NewGetFeedHandler(feedService, sessions)
	getLatestHandler := feedHandlers.NewGetFeedLatestHandler(feedService)

	// GET /xrpc/app.skylight.feed.getFeed
	r.Get("/xrpc/app.skylight.feed.getFeed", getFeedHandler.HandleGetFeed)

	// GET /xrpc/app.skylight.feed.getFeedLatest
	r.Get("/xrpc/app.skylight.feed.getFeedLatest", getLatestHandler.HandleGetFeedLatest)
}
