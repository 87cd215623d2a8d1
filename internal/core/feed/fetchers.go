package feed

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
)

// fetchPage pulls one raw upstream page for the descriptor. The descriptor
// variant is closed; an unknown type panics rather than degrading.
func (s *feedService) fetchPage(ctx context.Context, req *GetFeedRequest, limit int, cursor string) (*FeedResponse, error) {
	d := req.Descriptor

	switch d.Type {
	case DescriptorHome:
		return s.client.GetTimeline(ctx, d.Algorithm, limit, cursor)

	case DescriptorFeed:
		return s.client.GetFeed(ctx, d.URI, limit, cursor)

	case DescriptorList:
		return s.client.GetListFeed(ctx, d.URI, limit, cursor)

	case DescriptorProfile:
		if d.Tab == TabLikes {
			return s.fetchLikesPage(ctx, req.UserDID, d.Actor, limit, cursor)
		}
		return s.client.GetAuthorFeed(ctx, d.Actor, authorFeedFilter(d.Tab), limit, cursor)

	case DescriptorSearch:
		return s.fetchSearchPage(ctx, req.UserDID, d.Query, limit, cursor)

	default:
		panic(fmt.Sprintf("feed: unknown descriptor type %q", d.Type))
	}
}

// authorFeedFilter maps a profile tab to the getAuthorFeed filter parameter
func authorFeedFilter(tab ProfileTab) string {
	switch tab {
	case TabMedia:
		return "posts_with_media"
	case TabReplies:
		return "posts_with_replies"
	case TabPosts:
		return "posts_no_replies"
	default:
		panic(fmt.Sprintf("feed: tab %q has no author feed filter", tab))
	}
}

// fetchLikesPage lists raw like records and resolves each liked post into a
// full view. One unreachable post never fails the page.
func (s *feedService) fetchLikesPage(ctx context.Context, userDID, actor string, limit int, cursor string) (*FeedResponse, error) {
	likes, err := s.client.ListLikes(ctx, actor, limit, cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to list likes for %s: %w", actor, err)
	}

	uris := make([]string, len(likes.Records))
	for i, rec := range likes.Records {
		uris[i] = rec.SubjectURI
	}

	feed, err := s.resolvePosts(ctx, userDID, uris)
	if err != nil {
		return nil, err
	}

	return &FeedResponse{
		Cursor: likes.Cursor,
		Feed:   feed,
	}, nil
}

// fetchSearchPage queries the search service and resolves every hit into a
// full post view. The cursor is a numeric offset into the result set.
func (s *feedService) fetchSearchPage(ctx context.Context, userDID, query string, limit int, cursor string) (*FeedResponse, error) {
	offset := 0
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: search cursor %q is not an offset", ErrInvalidCursor, cursor)
		}
		offset = parsed
	}

	hits, err := s.client.SearchPosts(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("search failed for %q: %w", query, err)
	}

	uris := make([]string, len(hits))
	for i, hit := range hits {
		uris[i] = fmt.Sprintf("at://%s/%s", hit.DID, hit.TID)
	}

	feed, err := s.resolvePosts(ctx, userDID, uris)
	if err != nil {
		return nil, err
	}

	// Offset advances by references seen, not by posts that resolved
	next := strconv.Itoa(offset + len(hits))
	var nextCursor *string
	if len(hits) > 0 {
		nextCursor = &next
	}

	return &FeedResponse{
		Cursor: nextCursor,
		Feed:   feed,
	}, nil
}

// resolvePosts fans out one sub-fetch per URI, joins all outcomes, and keeps
// the survivors in reference order. Individual failures are dropped and
// logged; cancellation of the parent context fails the whole batch.
func (s *feedService) resolvePosts(ctx context.Context, userDID string, uris []string) ([]*FeedViewPost, error) {
	resolved := make([]*PostView, len(uris))

	var wg sync.WaitGroup
	for i, uri := range uris {
		wg.Add(1)
		go func(i int, uri string) {
			defer wg.Done()

			post, err := s.resolver.GetPost(ctx, userDID, uri)
			if err != nil {
				log.Printf("[FEED] dropping unresolvable post %s: %v", uri, err)
				return
			}
			resolved[i] = post
		}(i, uri)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	feed := make([]*FeedViewPost, 0, len(resolved))
	for _, post := range resolved {
		if post != nil {
			feed = append(feed, &FeedViewPost{Post: post})
		}
	}
	return feed, nil
}
