package appview

import (
	"encoding/json"
	"log"
	"time"

	"Skylight/internal/core/feed"
)

// Wire DTOs for the app.bsky feed endpoints. The AppView returns more than
// the pipeline consumes; only the fields the filters and slice policies need
// are decoded.

type apiViewerState struct {
	// Following is the viewer's follow-record URI when they follow this
	// actor, absent otherwise
	Following string `json:"following,omitempty"`
	Muted     bool   `json:"muted,omitempty"`
}

type apiActor struct {
	DID         string          `json:"did"`
	Handle      string          `json:"handle"`
	DisplayName string          `json:"displayName,omitempty"`
	Avatar      string          `json:"avatar,omitempty"`
	Viewer      *apiViewerState `json:"viewer,omitempty"`
}

type apiPostRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

type apiRecordReply struct {
	Root   apiPostRef `json:"root"`
	Parent apiPostRef `json:"parent"`
}

type apiRecord struct {
	Text      string          `json:"text"`
	Langs     []string        `json:"langs,omitempty"`
	Reply     *apiRecordReply `json:"reply,omitempty"`
	CreatedAt string          `json:"createdAt"`
}

type apiLabel struct {
	Src string `json:"src"`
	Val string `json:"val"`
}

type apiPost struct {
	URI       string     `json:"uri"`
	CID       string     `json:"cid"`
	Author    *apiActor  `json:"author"`
	Record    apiRecord  `json:"record"`
	Labels    []apiLabel `json:"labels,omitempty"`
	IndexedAt string     `json:"indexedAt"`
}

type apiReason struct {
	Type      string    `json:"$type"`
	By        *apiActor `json:"by,omitempty"`
	IndexedAt string    `json:"indexedAt,omitempty"`
}

// apiReplyPost is a reply-ref entry: a postView for posts, or a
// notFound/blocked stub the pipeline treats as missing context
type apiReplyPost struct {
	Type string `json:"$type,omitempty"`
	apiPost
}

type apiReply struct {
	Root   *apiReplyPost `json:"root,omitempty"`
	Parent *apiReplyPost `json:"parent,omitempty"`
}

type apiFeedItem struct {
	Post   apiPost    `json:"post"`
	Reason *apiReason `json:"reason,omitempty"`
	Reply  *apiReply  `json:"reply,omitempty"`
}

type apiFeedResponse struct {
	Cursor string        `json:"cursor,omitempty"`
	Feed   []apiFeedItem `json:"feed"`
}

type apiPostsResponse struct {
	Posts []apiPost `json:"posts"`
}

type apiListRecordsResponse struct {
	Cursor  string          `json:"cursor,omitempty"`
	Records []apiListRecord `json:"records"`
}

type apiListRecord struct {
	URI   string          `json:"uri"`
	CID   string          `json:"cid"`
	Value json.RawMessage `json:"value"`
}

type apiLikeRecord struct {
	Subject apiPostRef `json:"subject"`
}

type apiSearchHit struct {
	TID  string `json:"tid"`
	CID  string `json:"cid"`
	User struct {
		DID    string `json:"did"`
		Handle string `json:"handle"`
	} `json:"user"`
}

const reasonRepostType = "app.bsky.feed.defs#reasonRepost"

// parseTime parses an AppView RFC3339 timestamp, logging (not failing) on
// malformed values - one bad timestamp must not drop a page
func parseTime(value, context string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		log.Printf("[APPVIEW] Warning: failed to parse timestamp %q for %s: %v", value, context, err)
		return time.Time{}
	}
	return t
}

func (a *apiActor) toView() *feed.ActorView {
	if a == nil {
		return nil
	}
	view := &feed.ActorView{
		DID:         a.DID,
		Handle:      a.Handle,
		DisplayName: a.DisplayName,
		Avatar:      a.Avatar,
	}
	if a.Viewer != nil {
		view.Viewer = &feed.ViewerState{
			Following: a.Viewer.Following != "",
			Muted:     a.Viewer.Muted,
		}
	}
	return view
}

func (p *apiPost) toView() *feed.PostView {
	view := &feed.PostView{
		URI:    p.URI,
		CID:    p.CID,
		Author: p.Author.toView(),
		Record: feed.PostRecord{
			Text:      p.Record.Text,
			Langs:     p.Record.Langs,
			CreatedAt: parseTime(p.Record.CreatedAt, p.URI),
		},
		IndexedAt: parseTime(p.IndexedAt, p.URI),
	}
	if p.Record.Reply != nil {
		view.Record.Reply = &feed.RecordReplyRef{
			Root:   feed.PostRef{URI: p.Record.Reply.Root.URI, CID: p.Record.Reply.Root.CID},
			Parent: feed.PostRef{URI: p.Record.Reply.Parent.URI, CID: p.Record.Reply.Parent.CID},
		}
	}
	for _, label := range p.Labels {
		view.Labels = append(view.Labels, feed.Label{Src: label.Src, Val: label.Val})
	}
	return view
}

func (r *apiReplyPost) toView() *feed.PostView {
	// notFound/blocked stubs hydrate as missing context
	if r == nil || r.URI == "" {
		return nil
	}
	return r.apiPost.toView()
}

func (i *apiFeedItem) toView() *feed.FeedViewPost {
	item := &feed.FeedViewPost{Post: i.Post.toView()}

	if i.Reason != nil && i.Reason.Type == reasonRepostType && i.Reason.By != nil {
		item.Reason = &feed.ReasonRepost{
			By:        i.Reason.By.toView(),
			IndexedAt: parseTime(i.Reason.IndexedAt, i.Post.URI),
		}
	}

	if i.Reply != nil {
		item.Reply = &feed.ReplyRef{
			Root:   i.Reply.Root.toView(),
			Parent: i.Reply.Parent.toView(),
		}
	}

	return item
}

func (r *apiFeedResponse) toResponse() *feed.FeedResponse {
	resp := &feed.FeedResponse{
		Feed: make([]*feed.FeedViewPost, 0, len(r.Feed)),
	}
	if r.Cursor != "" {
		cursor := r.Cursor
		resp.Cursor = &cursor
	}
	for i := range r.Feed {
		resp.Feed = append(resp.Feed, r.Feed[i].toView())
	}
	return resp
}
