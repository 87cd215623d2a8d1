package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Skylight/internal/api/middleware"
	"Skylight/internal/core/feed"
	"Skylight/internal/core/feedcache"
)

const testViewer = "did:plc:abc123viewer"

// mockService implements feed.Service
type mockService struct {
	getFeed       func(ctx context.Context, req feed.GetFeedRequest) (*feed.Page, error)
	getFeedLatest func(ctx context.Context, req feed.GetFeedLatestRequest) (*feed.LatestResult, error)
}

func (m *mockService) GetFeed(ctx context.Context, req feed.GetFeedRequest) (*feed.Page, error) {
	return m.getFeed(ctx, req)
}

func (m *mockService) GetFeedLatest(ctx context.Context, req feed.GetFeedLatestRequest) (*feed.LatestResult, error) {
	return m.getFeedLatest(ctx, req)
}

func strPtr(s string) *string { return &s }

func singleSlice(uri string) []*feed.Slice {
	return []*feed.Slice{{Items: []*feed.FeedViewPost{
		{Post: &feed.PostView{URI: uri, CID: "cid-1", Author: &feed.ActorView{DID: "did:plc:a"}}},
	}}}
}

// serveFeed routes a request through the viewer middleware into the handler
func serveFeed(h *GetFeedHandler, target string, withViewer bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if withViewer {
		req.Header.Set(middleware.ViewerHeader, testViewer)
	}
	rec := httptest.NewRecorder()

	middleware.ViewerContext(http.HandlerFunc(h.HandleGetFeed)).ServeHTTP(rec, req)
	return rec
}

func TestHandleGetFeed_RequiresViewer(t *testing.T) {
	h := NewGetFeedHandler(&mockService{}, feedcache.New(8, nil))

	rec := serveFeed(h, "/xrpc/app.skylight.feed.getFeed?type=home", false)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body XRPCError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "AuthenticationRequired", body.Error)
}

func TestHandleGetFeed_RejectsUnknownType(t *testing.T) {
	h := NewGetFeedHandler(&mockService{}, feedcache.New(8, nil))

	rec := serveFeed(h, "/xrpc/app.skylight.feed.getFeed?type=bookmarks", true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetFeed_RejectsNonNumericLimit(t *testing.T) {
	h := NewGetFeedHandler(&mockService{}, feedcache.New(8, nil))

	rec := serveFeed(h, "/xrpc/app.skylight.feed.getFeed?type=home&limit=lots", true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetFeed_HomePage(t *testing.T) {
	svc := &mockService{
		getFeed: func(ctx context.Context, req feed.GetFeedRequest) (*feed.Page, error) {
			assert.Equal(t, testViewer, req.UserDID)
			assert.Equal(t, feed.DescriptorHome, req.Descriptor.Type)
			assert.Equal(t, "reverse-chronological", req.Descriptor.Algorithm, "algorithm defaults")
			assert.Equal(t, 10, req.Limit)
			assert.Nil(t, req.Cursor)

			return &feed.Page{
				Cursor: &feed.PageCursor{Key: strPtr("next-key")},
				CID:    strPtr("bafy-head"),
				Slices: singleSlice("at://did:plc:a/app.bsky.feed.post/1"),
			}, nil
		},
	}
	h := NewGetFeedHandler(svc, feedcache.New(8, nil))

	rec := serveFeed(h, "/xrpc/app.skylight.feed.getFeed?type=home&limit=10", true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body feedPageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "next-key", body.Cursor)
	require.NotNil(t, body.CID)
	assert.Equal(t, "bafy-head", *body.CID)
	require.Len(t, body.Slices, 1)
}

func TestHandleGetFeed_SessionCursorRoundTrip(t *testing.T) {
	remaining := singleSlice("at://did:plc:a/app.bsky.feed.post/buffered")

	var secondCursor *feed.PageCursor
	call := 0
	svc := &mockService{
		getFeed: func(ctx context.Context, req feed.GetFeedRequest) (*feed.Page, error) {
			call++
			if call == 1 {
				return &feed.Page{
					Cursor: &feed.PageCursor{Key: strPtr("k2"), Remaining: remaining},
					Slices: singleSlice("at://did:plc:a/app.bsky.feed.post/1"),
				}, nil
			}
			secondCursor = req.Cursor
			return &feed.Page{Slices: remaining}, nil
		},
	}
	h := NewGetFeedHandler(svc, feedcache.New(8, nil))

	first := serveFeed(h, "/xrpc/app.skylight.feed.getFeed?type=home&limit=10", true)
	require.Equal(t, http.StatusOK, first.Code)

	var firstBody feedPageResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &firstBody))
	require.Equal(t, "k2", firstBody.Cursor)

	second := serveFeed(h, "/xrpc/app.skylight.feed.getFeed?type=home&limit=10&cursor=k2", true)
	require.Equal(t, http.StatusOK, second.Code)

	require.NotNil(t, secondCursor, "token restored the full compound cursor")
	require.NotNil(t, secondCursor.Key)
	assert.Equal(t, "k2", *secondCursor.Key)
	assert.Len(t, secondCursor.Remaining, 1, "buffered slices travel with the session")
}

func TestHandleGetFeed_OmittedLimitSharesDefaultSession(t *testing.T) {
	// An omitted limit and an explicit default limit are the same logical
	// timeline, so the second request's token must resolve in the session
	// the first one started.
	var secondCursor *feed.PageCursor
	call := 0
	svc := &mockService{
		getFeed: func(ctx context.Context, req feed.GetFeedRequest) (*feed.Page, error) {
			call++
			assert.Equal(t, feed.DefaultLimit, req.Limit)
			if call == 1 {
				return &feed.Page{
					Cursor: &feed.PageCursor{
						Key:       strPtr("k2"),
						Remaining: singleSlice("at://did:plc:a/app.bsky.feed.post/buffered"),
					},
					Slices: singleSlice("at://did:plc:a/app.bsky.feed.post/1"),
				}, nil
			}
			secondCursor = req.Cursor
			return &feed.Page{}, nil
		},
	}
	h := NewGetFeedHandler(svc, feedcache.New(8, nil))

	first := serveFeed(h, "/xrpc/app.skylight.feed.getFeed?type=home", true)
	require.Equal(t, http.StatusOK, first.Code)

	second := serveFeed(h, "/xrpc/app.skylight.feed.getFeed?type=home&limit=20&cursor=k2", true)
	require.Equal(t, http.StatusOK, second.Code)

	require.NotNil(t, secondCursor)
	assert.Len(t, secondCursor.Remaining, 1, "compound cursor restored across the limit spellings")
}

func TestHandleGetFeed_UnknownTokenFallsBackToBareKey(t *testing.T) {
	var sawCursor *feed.PageCursor
	svc := &mockService{
		getFeed: func(ctx context.Context, req feed.GetFeedRequest) (*feed.Page, error) {
			sawCursor = req.Cursor
			return &feed.Page{Slices: nil}, nil
		},
	}
	h := NewGetFeedHandler(svc, feedcache.New(8, nil))

	rec := serveFeed(h, "/xrpc/app.skylight.feed.getFeed?type=home&cursor=opaque-upstream-key", true)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, sawCursor)
	require.NotNil(t, sawCursor.Key)
	assert.Equal(t, "opaque-upstream-key", *sawCursor.Key)
	assert.Empty(t, sawCursor.Remaining)
}

func TestHandleGetFeed_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "validation",
			err:        feed.NewValidationError("limit", "limit must not exceed 50"),
			wantStatus: http.StatusBadRequest,
			wantError:  "InvalidRequest",
		},
		{
			name:       "invalid cursor",
			err:        feed.ErrInvalidCursor,
			wantStatus: http.StatusBadRequest,
			wantError:  "InvalidCursor",
		},
		{
			name:       "unauthorized",
			err:        feed.ErrUnauthorized,
			wantStatus: http.StatusUnauthorized,
			wantError:  "AuthenticationRequired",
		},
		{
			name:       "upstream timeout",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantError:  "UpstreamTimeout",
		},
		{
			name:       "upstream failure",
			err:        feed.ErrUpstream,
			wantStatus: http.StatusBadGateway,
			wantError:  "UpstreamFailure",
		},
		{
			name:       "unknown error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "InternalServerError",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{
				getFeed: func(ctx context.Context, req feed.GetFeedRequest) (*feed.Page, error) {
					return nil, tt.err
				},
			}
			h := NewGetFeedHandler(svc, feedcache.New(8, nil))

			rec := serveFeed(h, "/xrpc/app.skylight.feed.getFeed?type=home", true)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body XRPCError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantError, body.Error)
		})
	}
}

func TestParseDescriptor(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   feed.Descriptor
	}{
		{
			name:   "home with explicit algorithm",
			target: "/?type=home&algorithm=whats-hot",
			want:   feed.HomeDescriptor("whats-hot"),
		},
		{
			name:   "generator feed",
			target: "/?type=feed&uri=at://did:plc:g/app.bsky.feed.generator/hot",
			want:   feed.FeedDescriptor("at://did:plc:g/app.bsky.feed.generator/hot"),
		},
		{
			name:   "list feed",
			target: "/?type=list&uri=at://did:plc:x/app.bsky.graph.list/f",
			want:   feed.ListDescriptor("at://did:plc:x/app.bsky.graph.list/f"),
		},
		{
			name:   "profile defaults to posts tab",
			target: "/?type=profile&actor=did:plc:owner",
			want:   feed.ProfileDescriptor("did:plc:owner", feed.TabPosts),
		},
		{
			name:   "profile likes tab",
			target: "/?type=profile&actor=did:plc:owner&tab=likes",
			want:   feed.ProfileDescriptor("did:plc:owner", feed.TabLikes),
		},
		{
			name:   "search",
			target: "/?type=search&q=golang",
			want:   feed.SearchDescriptor("golang"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)

			got, err := parseDescriptor(req.URL.Query().Get("type"), req.URL.Query())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleGetFeedLatest(t *testing.T) {
	t.Run("returns cid", func(t *testing.T) {
		svc := &mockService{
			getFeedLatest: func(ctx context.Context, req feed.GetFeedLatestRequest) (*feed.LatestResult, error) {
				assert.Equal(t, testViewer, req.UserDID)
				assert.Equal(t, feed.DescriptorHome, req.Descriptor.Type)
				return &feed.LatestResult{CID: strPtr("bafy-new")}, nil
			},
		}
		h := NewGetFeedLatestHandler(svc)

		req := httptest.NewRequest(http.MethodGet, "/xrpc/app.skylight.feed.getFeedLatest?type=home", nil)
		req.Header.Set(middleware.ViewerHeader, testViewer)
		rec := httptest.NewRecorder()
		middleware.ViewerContext(http.HandlerFunc(h.HandleGetFeedLatest)).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var body feed.LatestResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.NotNil(t, body.CID)
		assert.Equal(t, "bafy-new", *body.CID)
	})

	t.Run("requires viewer", func(t *testing.T) {
		h := NewGetFeedLatestHandler(&mockService{})

		req := httptest.NewRequest(http.MethodGet, "/xrpc/app.skylight.feed.getFeedLatest?type=home", nil)
		rec := httptest.NewRecorder()
		middleware.ViewerContext(http.HandlerFunc(h.HandleGetFeedLatest)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
