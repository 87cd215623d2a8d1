package feedcache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Skylight/internal/core/feed"
)

const sessionKey = "getFeed/did:plc:viewer/home/reverse-chronological/20"

func strPtr(s string) *string { return &s }

func pageWithCursor(key *string, remaining int) *feed.Page {
	cursor := &feed.PageCursor{Key: key}
	for i := 0; i < remaining; i++ {
		cursor.Remaining = append(cursor.Remaining, &feed.Slice{
			Items: []*feed.FeedViewPost{{Post: &feed.PostView{
				URI: fmt.Sprintf("at://did:plc:a/app.bsky.feed.post/%d", i),
			}}},
		})
	}
	return &feed.Page{Cursor: cursor}
}

func TestCache_PushAndResume(t *testing.T) {
	c := New(8, nil)

	page := pageWithCursor(strPtr("upstream-key"), 2)
	token := c.Push(sessionKey, page, nil)

	require.Equal(t, "upstream-key", token, "token is the upstream key while one exists")

	cursor := c.Resume(sessionKey, token)
	require.NotNil(t, cursor)
	assert.Len(t, cursor.Remaining, 2, "buffered slices survive the round-trip")
}

func TestCache_CompleteSessionReturnsEmptyToken(t *testing.T) {
	c := New(8, nil)

	token := c.Push(sessionKey, &feed.Page{}, nil)
	assert.Empty(t, token)
}

func TestCache_ExhaustedUpstreamMintsToken(t *testing.T) {
	c := New(8, nil)

	// Upstream dry but slices remain buffered: the remainder must stay
	// reachable through some token.
	page := pageWithCursor(nil, 3)
	token := c.Push(sessionKey, page, nil)

	require.NotEmpty(t, token)
	cursor := c.Resume(sessionKey, token)
	require.NotNil(t, cursor)
	assert.Nil(t, cursor.Key)
	assert.Len(t, cursor.Remaining, 3)
}

func TestCache_UnknownSessionOrToken(t *testing.T) {
	c := New(8, nil)

	assert.Nil(t, c.Resume("unknown-session", "tok"))

	c.Push(sessionKey, pageWithCursor(strPtr("k"), 0), nil)
	assert.Nil(t, c.Resume(sessionKey, "never-issued"))
}

func TestCache_FreshFetchResetsSession(t *testing.T) {
	c := New(8, nil)

	first := c.Push(sessionKey, pageWithCursor(strPtr("k1"), 1), nil)
	require.NotEmpty(t, first)

	cursor := c.Resume(sessionKey, first)
	c.Push(sessionKey, pageWithCursor(strPtr("k2"), 0), cursor)

	// A nil fetchedWith is a pull-to-refresh: old tokens are forgotten
	c.Push(sessionKey, pageWithCursor(strPtr("k3"), 0), nil)

	assert.Nil(t, c.Resume(sessionKey, first))
	coll := c.Collection(sessionKey)
	require.NotNil(t, coll)
	assert.Len(t, coll.Pages, 1, "collection restarted")
}

func TestCache_CollectionAccumulates(t *testing.T) {
	c := New(8, nil)

	tok1 := c.Push(sessionKey, pageWithCursor(strPtr("k1"), 0), nil)
	cursor1 := c.Resume(sessionKey, tok1)
	tok2 := c.Push(sessionKey, pageWithCursor(strPtr("k2"), 0), cursor1)
	cursor2 := c.Resume(sessionKey, tok2)
	c.Push(sessionKey, pageWithCursor(nil, 0), cursor2)

	coll := c.Collection(sessionKey)
	require.NotNil(t, coll)
	assert.Len(t, coll.Pages, 3)
}

func TestCache_RefetchDoesNotGrowCollection(t *testing.T) {
	c := New(8, nil)

	tok := c.Push(sessionKey, pageWithCursor(strPtr("k1"), 0), nil)
	cursor := c.Resume(sessionKey, tok)
	c.Push(sessionKey, pageWithCursor(strPtr("k2"), 0), cursor)

	// Same cursor fetched again (e.g. a retried request)
	c.Push(sessionKey, pageWithCursor(strPtr("k2"), 0), cursor)

	coll := c.Collection(sessionKey)
	require.NotNil(t, coll)
	assert.Len(t, coll.Pages, 2)
}

func TestCache_Invalidate(t *testing.T) {
	c := New(8, nil)

	tok := c.Push(sessionKey, pageWithCursor(strPtr("k1"), 0), nil)
	c.Invalidate(sessionKey)

	assert.Nil(t, c.Resume(sessionKey, tok))
	assert.Nil(t, c.Collection(sessionKey))
}

func TestCache_SessionsAreIsolated(t *testing.T) {
	c := New(8, nil)

	other := "getFeed/did:plc:other/home/reverse-chronological/20"
	tok := c.Push(sessionKey, pageWithCursor(strPtr("k1"), 1), nil)
	c.Push(other, pageWithCursor(strPtr("k9"), 0), nil)

	assert.Nil(t, c.Resume(other, tok), "tokens never cross sessions")
	assert.NotNil(t, c.Resume(sessionKey, tok))
}

func TestCache_BoundedEviction(t *testing.T) {
	c := New(2, nil)

	tok := c.Push("session-1", pageWithCursor(strPtr("k"), 0), nil)
	c.Push("session-2", pageWithCursor(strPtr("k"), 0), nil)
	c.Push("session-3", pageWithCursor(strPtr("k"), 0), nil)

	assert.Nil(t, c.Resume("session-1", tok), "oldest session evicted at capacity")
}
