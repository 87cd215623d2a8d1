package feed

import (
	"context"
)

// Service defines the timeline pipeline's business interface
type Service interface {
	// GetFeed fetches, slices and filters one display-ready page.
	// Failures are total: either a complete page or an error, never both.
	GetFeed(ctx context.Context, req GetFeedRequest) (*Page, error)

	// GetFeedLatest is the latest-activity probe: one raw item's cid,
	// unfiltered and unsliced, for "new posts available" checks.
	GetFeedLatest(ctx context.Context, req GetFeedLatestRequest) (*LatestResult, error)
}

// GetFeedRequest is the input for one pipeline page fetch
type GetFeedRequest struct {
	// UserDID is the viewer. Required.
	UserDID string
	// Descriptor selects the timeline and its fetch/filter policy
	Descriptor Descriptor
	// Limit is the target post count per page. Defaults to 20, capped at 50.
	Limit int
	// Cursor resumes a session: the upstream key plus carried-over slices
	Cursor *PageCursor
}

// GetFeedLatestRequest is the input for the latest-activity probe
type GetFeedLatestRequest struct {
	UserDID    string
	Descriptor Descriptor
}

// LikeRecord is one raw app.bsky.feed.like record reference
type LikeRecord struct {
	// URI of the like record itself
	URI string
	// SubjectURI of the liked post
	SubjectURI string
}

// ListLikesResponse is one page of raw like records
type ListLikesResponse struct {
	Cursor  *string
	Records []LikeRecord
}

// SearchHit is one raw search result reference. The post view is resolved
// separately via the PostResolver.
type SearchHit struct {
	DID string
	TID string
	CID string
}

// AppViewClient is the upstream RPC surface the pipeline fetches raw pages
// from. Transport, auth and retry policy live behind this interface.
type AppViewClient interface {
	// GetTimeline fetches the viewer's home timeline
	// (app.bsky.feed.getTimeline)
	GetTimeline(ctx context.Context, algorithm string, limit int, cursor string) (*FeedResponse, error)

	// GetFeed fetches a custom feed generator's output
	// (app.bsky.feed.getFeed)
	GetFeed(ctx context.Context, feedURI string, limit int, cursor string) (*FeedResponse, error)

	// GetListFeed fetches a list feed (app.bsky.feed.getListFeed)
	GetListFeed(ctx context.Context, listURI string, limit int, cursor string) (*FeedResponse, error)

	// GetAuthorFeed fetches one actor's posts
	// (app.bsky.feed.getAuthorFeed with the given filter)
	GetAuthorFeed(ctx context.Context, actor string, filter string, limit int, cursor string) (*FeedResponse, error)

	// ListLikes lists an actor's raw like records
	// (com.atproto.repo.listRecords over app.bsky.feed.like)
	ListLikes(ctx context.Context, actor string, limit int, cursor string) (*ListLikesResponse, error)

	// SearchPosts queries the search service with offset pagination
	SearchPosts(ctx context.Context, query string, limit int, offset int) ([]SearchHit, error)
}

// PostResolver resolves a single post reference into a full post view.
// Used by the likes and search fetchers' concurrent sub-fetches.
type PostResolver interface {
	GetPost(ctx context.Context, userDID string, uri string) (*PostView, error)
}
