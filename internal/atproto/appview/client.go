// Package appview provides a read-only HTTP client for public AT Protocol
// AppView endpoints (app.bsky.feed.*) plus the post search service. It is
// the raw-fetch capability behind the feed pipeline; auth and retry policy
// are out of its hands.
package appview

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"

	"Skylight/internal/core/feed"
)

const (
	// defaultHost is the public Bluesky AppView endpoint
	defaultHost = "https://public.api.bsky.app"
	// defaultSearchHost serves the offset-paginated post search
	defaultSearchHost = "https://search.bsky.social"

	likeCollection = "app.bsky.feed.like"

	defaultTimeout = 10 * time.Second
)

// Client fetches raw feed pages from an AppView host
type Client struct {
	host       string
	searchHost string
	userAgent  string
	http       *http.Client
}

// Compile-time wiring to the pipeline's interfaces
var (
	_ feed.AppViewClient = (*Client)(nil)
	_ feed.PostResolver  = (*Client)(nil)
)

// NewClient creates an AppView client. An empty host selects the public
// Bluesky AppView.
func NewClient(host string, opts ...ClientOption) *Client {
	if host == "" {
		host = defaultHost
	}

	c := &Client{
		host:       host,
		searchHost: defaultSearchHost,
		userAgent:  "Skylight/1.0 (+https://github.com/skylight-feed)",
		http:       &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.http = httpClient
	}
}

// WithSearchHost overrides the search service host
func WithSearchHost(host string) ClientOption {
	return func(c *Client) {
		c.searchHost = host
	}
}

// get performs one XRPC query and decodes the response into out
func (c *Client) get(ctx context.Context, nsid string, params url.Values, out any) error {
	endpoint := fmt.Sprintf("%s/xrpc/%s?%s", c.host, nsid, params.Encode())
	return c.getJSON(ctx, endpoint, out)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, readErrorBody(resp.Body))
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return fmt.Errorf("%w: unexpected status %d: %s", ErrUpstream, resp.StatusCode, readErrorBody(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// readErrorBody reads at most 1KB of an error response for diagnostics
func readErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, 1024))
	return string(data)
}

// GetTimeline fetches the viewer's home timeline
func (c *Client) GetTimeline(ctx context.Context, algorithm string, limit int, cursor string) (*feed.FeedResponse, error) {
	params := url.Values{}
	params.Set("algorithm", algorithm)
	params.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var resp apiFeedResponse
	if err := c.get(ctx, "app.bsky.feed.getTimeline", params, &resp); err != nil {
		return nil, fmt.Errorf("getTimeline: %w", err)
	}
	return resp.toResponse(), nil
}

// GetFeed fetches a custom feed generator's output
func (c *Client) GetFeed(ctx context.Context, feedURI string, limit int, cursor string) (*feed.FeedResponse, error) {
	if _, err := syntax.ParseATURI(feedURI); err != nil {
		return nil, fmt.Errorf("%w: invalid feed URI %q", ErrBadRequest, feedURI)
	}

	params := url.Values{}
	params.Set("feed", feedURI)
	params.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var resp apiFeedResponse
	if err := c.get(ctx, "app.bsky.feed.getFeed", params, &resp); err != nil {
		return nil, fmt.Errorf("getFeed: %w", err)
	}
	return resp.toResponse(), nil
}

// GetListFeed fetches a list feed
func (c *Client) GetListFeed(ctx context.Context, listURI string, limit int, cursor string) (*feed.FeedResponse, error) {
	if _, err := syntax.ParseATURI(listURI); err != nil {
		return nil, fmt.Errorf("%w: invalid list URI %q", ErrBadRequest, listURI)
	}

	params := url.Values{}
	params.Set("list", listURI)
	params.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var resp apiFeedResponse
	if err := c.get(ctx, "app.bsky.feed.getListFeed", params, &resp); err != nil {
		return nil, fmt.Errorf("getListFeed: %w", err)
	}
	return resp.toResponse(), nil
}

// GetAuthorFeed fetches one actor's posts with the given filter
func (c *Client) GetAuthorFeed(ctx context.Context, actor string, filter string, limit int, cursor string) (*feed.FeedResponse, error) {
	if _, err := syntax.ParseAtIdentifier(actor); err != nil {
		return nil, fmt.Errorf("%w: invalid actor %q", ErrBadRequest, actor)
	}

	params := url.Values{}
	params.Set("actor", actor)
	params.Set("filter", filter)
	params.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var resp apiFeedResponse
	if err := c.get(ctx, "app.bsky.feed.getAuthorFeed", params, &resp); err != nil {
		return nil, fmt.Errorf("getAuthorFeed: %w", err)
	}
	return resp.toResponse(), nil
}

// ListLikes lists an actor's raw like records
func (c *Client) ListLikes(ctx context.Context, actor string, limit int, cursor string) (*feed.ListLikesResponse, error) {
	if _, err := syntax.ParseAtIdentifier(actor); err != nil {
		return nil, fmt.Errorf("%w: invalid actor %q", ErrBadRequest, actor)
	}

	params := url.Values{}
	params.Set("repo", actor)
	params.Set("collection", likeCollection)
	params.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var resp apiListRecordsResponse
	if err := c.get(ctx, "com.atproto.repo.listRecords", params, &resp); err != nil {
		return nil, fmt.Errorf("listRecords: %w", err)
	}

	out := &feed.ListLikesResponse{
		Records: make([]feed.LikeRecord, 0, len(resp.Records)),
	}
	if resp.Cursor != "" {
		cursor := resp.Cursor
		out.Cursor = &cursor
	}

	for _, rec := range resp.Records {
		var like apiLikeRecord
		if err := json.Unmarshal(rec.Value, &like); err != nil || like.Subject.URI == "" {
			// Not a like record we understand; skip rather than fail the page
			continue
		}
		out.Records = append(out.Records, feed.LikeRecord{
			URI:        rec.URI,
			SubjectURI: like.Subject.URI,
		})
	}

	return out, nil
}

// SearchPosts queries the search service with offset pagination
func (c *Client) SearchPosts(ctx context.Context, query string, limit int, offset int) ([]feed.SearchHit, error) {
	endpoint := fmt.Sprintf("%s/search/posts?count=%d&offset=%d&q=%s",
		c.searchHost, limit, offset, url.QueryEscape(query))

	var results []apiSearchHit
	if err := c.getJSON(ctx, endpoint, &results); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]feed.SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, feed.SearchHit{
			DID: r.User.DID,
			TID: r.TID,
			CID: r.CID,
		})
	}
	return hits, nil
}

// GetPost resolves a single post view by AT-URI via app.bsky.feed.getPosts
func (c *Client) GetPost(ctx context.Context, userDID string, uri string) (*feed.PostView, error) {
	if _, err := syntax.ParseATURI(uri); err != nil {
		return nil, fmt.Errorf("%w: invalid post URI %q", ErrBadRequest, uri)
	}

	params := url.Values{}
	params.Set("uris", uri)

	var resp apiPostsResponse
	if err := c.get(ctx, "app.bsky.feed.getPosts", params, &resp); err != nil {
		return nil, fmt.Errorf("getPosts: %w", err)
	}

	if len(resp.Posts) == 0 {
		return nil, fmt.Errorf("%w: post %s", ErrNotFound, uri)
	}
	return resp.Posts[0].toView(), nil
}
