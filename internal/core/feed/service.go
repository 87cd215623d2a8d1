package feed

import (
	"context"
	"fmt"
	"log"
	"time"

	"Skylight/internal/core/preferences"
)

const (
	// DefaultLimit is the target post count per page when none is given.
	// Callers that key sessions on the limit must apply it before keying.
	DefaultLimit = 20
	// MaxLimit caps caller-supplied limits
	MaxLimit = 50
	// maxEmptyPages is how many consecutive fully-filtered upstream pages
	// the loop tolerates before bailing instead of hammering upstream
	maxEmptyPages = 3
)

type feedService struct {
	client          AppViewClient
	resolver        PostResolver
	prefs           preferences.Store
	systemLanguages []string
	now             func() time.Time
}

// NewFeedService creates the timeline pipeline service
func NewFeedService(client AppViewClient, resolver PostResolver, prefStore preferences.Store, opts ...ServiceOption) Service {
	if client == nil {
		panic("feed: client cannot be nil")
	}
	if resolver == nil {
		panic("feed: resolver cannot be nil")
	}
	if prefStore == nil {
		panic("feed: preference store cannot be nil")
	}

	s := &feedService{
		client:   client,
		resolver: resolver,
		prefs:    prefStore,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ServiceOption configures the service
type ServiceOption func(*feedService)

// WithSystemLanguages sets the host-detected languages unioned into the
// language filter when the viewer opts in
func WithSystemLanguages(langs []string) ServiceOption {
	return func(s *feedService) {
		s.systemLanguages = langs
	}
}

// WithClock overrides the time source (mute expiry checks)
func WithClock(now func() time.Time) ServiceOption {
	return func(s *feedService) {
		s.now = now
	}
}

// GetFeed runs the fetch loop: pull upstream pages, slice and filter each,
// accumulate until the target count is reached, upstream runs dry, or the
// empty-page budget is exhausted. The tail past the post-count boundary is
// carried forward in the returned cursor instead of being re-fetched later.
func (s *feedService) GetFeed(ctx context.Context, req GetFeedRequest) (*Page, error) {
	if err := s.validateRequest(&req); err != nil {
		return nil, err
	}

	viewerPrefs, err := s.loadPreferences(ctx, req.UserDID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	// Resume state: carried-over slices count toward the limit and seed
	// the duplicate filter
	var items []*Slice
	var cursorKey string
	exhausted := false

	if req.Cursor != nil {
		items = append(items, req.Cursor.Remaining...)
		if req.Cursor.Key != nil {
			cursorKey = *req.Cursor.Key
		} else {
			exhausted = true
		}
	}
	count := countPosts(items)

	sliceFilter, postFilter, joined := s.buildFilters(&req, viewerPrefs, items)

	var cid *string
	empty := 0

	for !exhausted && count < req.Limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := s.fetchPage(ctx, &req, req.Limit, cursorKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %s page: %w", ErrUpstream, req.Descriptor.Type, err)
		}

		var result []*Slice
		if joined {
			result = BuildSlices(resp.Feed, sliceFilter, postFilter)
		} else {
			result = BuildUnjoinedSlices(resp.Feed, postFilter)
		}

		if resp.Cursor != nil && *resp.Cursor != "" {
			cursorKey = *resp.Cursor
		} else {
			exhausted = true
		}

		if len(result) > 0 {
			empty = 0
		} else {
			empty++
		}

		items = append(items, result...)
		count += countPosts(result)

		// Newest-item marker: first item of the first non-empty raw page,
		// set once and never overwritten
		if cid == nil && len(resp.Feed) > 0 {
			c := resp.Feed[0].Post.CID
			cid = &c
		}

		if empty >= maxEmptyPages {
			log.Printf("[FEED] bailing after %d empty pages for %s feed (viewer %s)",
				empty, req.Descriptor.Type, req.UserDID)
			break
		}
	}

	head, tail := splitSlices(items, req.Limit)

	var cursor *PageCursor
	if !exhausted || len(tail) > 0 {
		cursor = &PageCursor{Remaining: tail}
		if !exhausted {
			key := cursorKey
			cursor.Key = &key
		}
	}

	return &Page{
		Cursor: cursor,
		CID:    cid,
		Slices: head,
	}, nil
}

// GetFeedLatest fetches exactly one raw item and returns its cid.
// No slicing, no filtering - a cheap identity check against the last known
// page's leading cid.
func (s *feedService) GetFeedLatest(ctx context.Context, req GetFeedLatestRequest) (*LatestResult, error) {
	if req.UserDID == "" {
		return nil, ErrUnauthorized
	}
	if err := req.Descriptor.Validate(); err != nil {
		return nil, err
	}

	probe := GetFeedRequest{UserDID: req.UserDID, Descriptor: req.Descriptor}
	resp, err := s.fetchPage(ctx, &probe, 1, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %s probe: %w", ErrUpstream, req.Descriptor.Type, err)
	}

	result := &LatestResult{}
	if len(resp.Feed) > 0 {
		c := resp.Feed[0].Post.CID
		result.CID = &c
	}
	return result, nil
}

// validateRequest validates parameters and applies defaults
func (s *feedService) validateRequest(req *GetFeedRequest) error {
	if req.UserDID == "" {
		return ErrUnauthorized
	}

	if err := req.Descriptor.Validate(); err != nil {
		return err
	}

	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		return NewValidationError("limit", fmt.Sprintf("limit must not exceed %d", MaxLimit))
	}

	return nil
}

// loadPreferences reads the viewer's snapshot and performs the lazy
// expired-mute prune: a read-triggered cleanup, written back as an explicit
// separate step. Prune write-back failures are logged, never surfaced -
// stale mutes are self-healing state, not an error.
func (s *feedService) loadPreferences(ctx context.Context, userDID string) (*preferences.Preferences, error) {
	prefs, err := s.prefs.Get(ctx, userDID)
	if err != nil {
		return nil, err
	}

	pruned, changed := preferences.PruneExpiredMutes(prefs.Filters.TempMutes, s.now())
	if changed {
		updated := *prefs
		updated.Filters.TempMutes = pruned
		if err := s.prefs.Put(ctx, userDID, &updated); err != nil {
			log.Printf("[FEED] failed to write back pruned mutes for %s: %v", userDID, err)
		}
		prefs = &updated
	}

	return prefs, nil
}

// buildFilters constructs the per-call filter set for the descriptor.
// joined reports whether items should be thread-grouped (BuildSlices) or
// emitted one per slice (BuildUnjoinedSlices).
func (s *feedService) buildFilters(req *GetFeedRequest, prefs *preferences.Preferences, carryover []*Slice) (SliceFilter, PostFilter, bool) {
	d := req.Descriptor
	now := s.now()

	switch d.Type {
	case DescriptorHome:
		return NewHomeSliceFilter(req.UserDID),
			Combine(
				NewHiddenRepostFilter(prefs.Filters.HideReposts),
				NewDuplicateFilter(carryover),
				NewLabelFilter(prefs.Moderation),
				NewTempMuteFilter(prefs.Filters.TempMutes, now),
			),
			true

	case DescriptorFeed, DescriptorList:
		return nil,
			Combine(
				NewDuplicateFilter(carryover),
				NewLanguageFilter(prefs.Languages, s.systemLanguages),
				NewLabelFilter(prefs.Moderation),
				NewTempMuteFilter(prefs.Filters.TempMutes, now),
			),
			true

	case DescriptorProfile:
		postFilter := NewLabelFilter(prefs.Moderation)
		if d.Tab == TabLikes || d.Tab == TabMedia {
			return nil, postFilter, false
		}
		return NewProfileSliceFilter(d.Actor), postFilter, true

	case DescriptorSearch:
		return nil, NewLabelFilter(prefs.Moderation), true

	default:
		panic(fmt.Sprintf("feed: unknown descriptor type %q", d.Type))
	}
}
