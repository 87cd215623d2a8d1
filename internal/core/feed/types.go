package feed

import (
	"time"
)

// PostRef is a minimal reference to a post (URI + CID)
type PostRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// ViewerState carries the viewer's relationship to an actor, hydrated by the
// upstream AppView alongside each post
type ViewerState struct {
	Following bool `json:"following"`
	Muted     bool `json:"muted"`
}

// ActorView describes a post author as seen by the viewer
type ActorView struct {
	DID         string       `json:"did"`
	Handle      string       `json:"handle"`
	DisplayName string       `json:"displayName,omitempty"`
	Avatar      string       `json:"avatar,omitempty"`
	Viewer      *ViewerState `json:"viewer,omitempty"`
}

// RecordReplyRef is the reply reference embedded in a post record.
// Unlike ReplyRef it only carries URIs - the record is not hydrated.
type RecordReplyRef struct {
	Root   PostRef `json:"root"`
	Parent PostRef `json:"parent"`
}

// PostRecord is the app.bsky.feed.post record content
type PostRecord struct {
	Text      string          `json:"text"`
	Langs     []string        `json:"langs,omitempty"`
	Reply     *RecordReplyRef `json:"reply,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Label is a moderation label applied to a post or account
type Label struct {
	Src string `json:"src"`
	Val string `json:"val"`
}

// PostView is a hydrated post as returned by the upstream AppView.
// Matches app.bsky.feed.defs#postView
type PostView struct {
	URI       string     `json:"uri"`
	CID       string     `json:"cid"`
	Author    *ActorView `json:"author"`
	Record    PostRecord `json:"record"`
	Labels    []Label    `json:"labels,omitempty"`
	IndexedAt time.Time  `json:"indexedAt"`
}

// ReasonRepost indicates the post appears in the feed because it was reposted
type ReasonRepost struct {
	By        *ActorView `json:"by"`
	IndexedAt time.Time  `json:"indexedAt"`
}

// ReplyRef contains hydrated reply context for a feed item.
// Matches app.bsky.feed.defs#replyRef: root and parent are full post views
// so thread policies can inspect their authors' viewer state.
type ReplyRef struct {
	Root   *PostView `json:"root"`
	Parent *PostView `json:"parent"`
}

// FeedViewPost is one upstream feed record: a post plus optional repost
// attribution and optional reply context. Immutable once fetched.
type FeedViewPost struct {
	Post   *PostView     `json:"post"`
	Reason *ReasonRepost `json:"reason,omitempty"`
	Reply  *ReplyRef     `json:"reply,omitempty"`
}

// IsRepost reports whether the item carries repost attribution
func (f *FeedViewPost) IsRepost() bool {
	return f.Reason != nil && f.Reason.By != nil
}

// Slice is an ordered, non-empty run of feed items that render as one
// contiguous thread unit: a repost run introducing a post, a reply chain,
// or a single standalone item. Items preserve upstream order; the first
// item without repost attribution anchors thread-policy decisions.
type Slice struct {
	Items []*FeedViewPost `json:"items"`
}

// PageCursor is the compound resume token for a feed session: the upstream
// pagination key (nil once upstream is exhausted) plus any slices already
// fetched and filtered but not yet emitted to the caller.
type PageCursor struct {
	Key       *string  `json:"key"`
	Remaining []*Slice `json:"remaining"`
}

// Page is one fetch-loop result
type Page struct {
	Cursor *PageCursor `json:"cursor,omitempty"`
	CID    *string     `json:"cid,omitempty"`
	Slices []*Slice    `json:"slices"`
}

// LatestResult is the outcome of the latest-activity probe
type LatestResult struct {
	CID *string `json:"cid,omitempty"`
}

// FeedResponse is one raw upstream page before slicing and filtering
type FeedResponse struct {
	Cursor *string
	Feed   []*FeedViewPost
}

// countPosts sums the item count across slices
func countPosts(slices []*Slice) int {
	count := 0
	for _, s := range slices {
		count += len(s.Items)
	}
	return count
}

// splitSlices splits at the post-count boundary: head includes slices up to
// and including the one that crosses limit, tail holds the overflow.
func splitSlices(slices []*Slice, limit int) (head, tail []*Slice) {
	count := 0
	for i, s := range slices {
		count += len(s.Items)
		if count >= limit {
			return slices[:i+1], slices[i+1:]
		}
	}
	return slices, nil
}
