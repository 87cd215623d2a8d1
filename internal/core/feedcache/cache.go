// Package feedcache keeps server-side timeline session state so the
// pipeline's compound cursor survives a stateless HTTP surface. A session is
// identified by the feed session key (viewer, descriptor, page size); inside
// it, response cursor tokens map back to full cursors - including slices
// already fetched but not yet shown - and the accumulated page collection
// gives refetch idempotency.
package feedcache

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"Skylight/internal/core/feed"
)

const defaultSessions = 1024

// session is one timeline session's server-side state
type session struct {
	collection *feed.Collection
	cursors    map[string]*feed.PageCursor
}

// Cache is a bounded store of timeline sessions
type Cache struct {
	mu       sync.Mutex
	sessions *lru.Cache[string, *session]
	logger   *slog.Logger
}

// New creates a session cache holding at most size sessions.
// size <= 0 selects the default.
func New(size int, logger *slog.Logger) *Cache {
	if size <= 0 {
		size = defaultSessions
	}
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := lru.New[string, *session](size)
	if err != nil {
		// lru.New only fails on non-positive sizes
		cache, _ = lru.New[string, *session](defaultSessions)
	}

	return &Cache{
		sessions: cache,
		logger:   logger,
	}
}

// Resume looks up the full cursor behind a response token. Returns nil for
// unknown sessions or tokens - the caller falls back to treating the token
// as a bare upstream key.
func (c *Cache) Resume(key, token string) *feed.PageCursor {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.sessions.Get(key)
	if !ok {
		return nil
	}
	return sess.cursors[token]
}

// Push merges a fetched page into the session and returns the response
// token for its cursor. An empty token means the session is complete.
func (c *Cache) Push(key string, page *feed.Page, fetchedWith *feed.PageCursor) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.sessions.Get(key)
	if !ok || fetchedWith == nil {
		// Fresh fetches start the session over
		sess = &session{cursors: make(map[string]*feed.PageCursor)}
		c.sessions.Add(key, sess)
	}

	sess.collection = feed.PushCollection(sess.collection, page, fetchedWith)

	if page.Cursor == nil {
		return ""
	}

	var token string
	if page.Cursor.Key != nil {
		token = *page.Cursor.Key
	} else {
		// Upstream is exhausted but buffered slices remain; mint a token
		// so the remainder is still reachable
		token = uuid.NewString()
	}

	sess.cursors[token] = page.Cursor
	return token
}

// Collection returns the session's accumulated pages, or nil if the session
// is unknown or evicted
func (c *Cache) Collection(key string) *feed.Collection {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.sessions.Get(key)
	if !ok {
		return nil
	}
	return sess.collection
}

// Invalidate drops a session (e.g. after the latest probe shows new posts)
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessions.Remove(key) {
		c.logger.Debug("feed session invalidated", "key", key)
	}
}
