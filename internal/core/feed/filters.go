package feed

import (
	"time"

	"Skylight/internal/core/moderation"
	"Skylight/internal/core/preferences"
)

// PostFilter decides whether a single feed item survives. Filters are built
// fresh per GetFeed call and may carry per-call state; they are never shared
// across sessions.
type PostFilter interface {
	Keep(item *FeedViewPost) bool
}

// SliceFilter evaluates a candidate slice. keep reports whether the slice
// passes as-is; when keep is false, a non-nil rescued list replaces the
// slice (reposts pulled out of a filtered thread's gutter), and nil rescued
// drops it outright.
type SliceFilter interface {
	Evaluate(s *Slice) (keep bool, rescued []*Slice)
}

// combinedFilter requires all constituent filters to pass, first failure
// short-circuits
type combinedFilter struct {
	filters []PostFilter
}

func (c *combinedFilter) Keep(item *FeedViewPost) bool {
	for _, f := range c.filters {
		if !f.Keep(item) {
			return false
		}
	}
	return true
}

// Combine merges filters with AND semantics. Nil entries (inapplicable
// filters) are skipped; if nothing applies, Combine returns nil so callers
// can skip the filtering pass entirely.
func Combine(filters ...PostFilter) PostFilter {
	applicable := make([]PostFilter, 0, len(filters))
	for _, f := range filters {
		if f != nil {
			applicable = append(applicable, f)
		}
	}

	switch len(applicable) {
	case 0:
		return nil
	case 1:
		return applicable[0]
	default:
		return &combinedFilter{filters: applicable}
	}
}

// duplicateFilter drops posts whose URI has already been seen this
// invocation. Mark-and-check is atomic: the first occurrence passes and is
// recorded, later ones fail.
type duplicateFilter struct {
	seen map[string]bool
}

// NewDuplicateFilter creates a duplicate filter seeded with every URI in the
// carried-over slices, so duplicates can't leak across page boundaries.
func NewDuplicateFilter(carryover []*Slice) PostFilter {
	seen := make(map[string]bool)
	for _, s := range carryover {
		for _, item := range s.Items {
			seen[item.Post.URI] = true
		}
	}
	return &duplicateFilter{seen: seen}
}

func (f *duplicateFilter) Keep(item *FeedViewPost) bool {
	uri := item.Post.URI
	if f.seen[uri] {
		return false
	}
	f.seen[uri] = true
	return true
}

// languageFilter keeps posts declaring at least one allowed language
type languageFilter struct {
	allowed          map[string]bool
	allowUnspecified bool
}

// NewLanguageFilter builds a language filter from the viewer's preferences,
// optionally unioned with the host's system languages. Returns nil when no
// language restriction is configured.
func NewLanguageFilter(prefs preferences.LanguagePrefs, systemLanguages []string) PostFilter {
	languages := prefs.Languages
	if prefs.UseSystemLanguages {
		// Union into a fresh slice; systemLanguages is shared across calls
		// and must never see writes through spare capacity
		merged := make([]string, 0, len(systemLanguages)+len(languages))
		merged = append(merged, systemLanguages...)
		merged = append(merged, languages...)
		languages = merged
	}

	if len(languages) == 0 {
		return nil
	}

	allowed := make(map[string]bool, len(languages))
	for _, code := range languages {
		allowed[code] = true
	}

	return &languageFilter{
		allowed:          allowed,
		allowUnspecified: prefs.AllowUnspecified,
	}
}

func (f *languageFilter) Keep(item *FeedViewPost) bool {
	record := item.Post.Record

	// Nothing to filter on
	if record.Text == "" {
		return true
	}

	if len(record.Langs) == 0 {
		return f.allowUnspecified
	}

	for _, code := range record.Langs {
		if f.allowed[code] {
			return true
		}
	}
	return false
}

// labelFilter delegates to the moderation decision function and drops posts
// the decision says to hide
type labelFilter struct {
	opts *moderation.Opts
}

// NewLabelFilter builds the moderation post filter. Returns nil when the
// viewer has no moderation options configured.
func NewLabelFilter(opts *moderation.Opts) PostFilter {
	if opts == nil {
		return nil
	}
	return &labelFilter{opts: opts}
}

func (f *labelFilter) Keep(item *FeedViewPost) bool {
	post := item.Post

	values := make([]string, len(post.Labels))
	for i, label := range post.Labels {
		values[i] = label.Val
	}

	var accu moderation.Accumulator
	moderation.DecideLabels(&accu, values, post.Author.DID, f.opts)
	moderation.DecideMutedKeywords(&accu, post.Record.Text, moderation.PreferenceHide, f.opts)

	decision := moderation.Finalize(&accu)
	return decision == nil || !decision.Filter
}

// hiddenRepostFilter drops reposts made by accounts the viewer has hidden
type hiddenRepostFilter struct {
	hidden map[string]bool
}

// NewHiddenRepostFilter returns nil when the viewer hides no reposters
func NewHiddenRepostFilter(hideReposts []string) PostFilter {
	if len(hideReposts) == 0 {
		return nil
	}
	hidden := make(map[string]bool, len(hideReposts))
	for _, did := range hideReposts {
		hidden[did] = true
	}
	return &hiddenRepostFilter{hidden: hidden}
}

func (f *hiddenRepostFilter) Keep(item *FeedViewPost) bool {
	if !item.IsRepost() {
		return true
	}
	return !f.hidden[item.Reason.By.DID]
}

// tempMuteFilter drops posts authored or reposted by an actively muted
// account. Expired entries are expected to be pruned before construction
// (preferences.PruneExpiredMutes); the expiry check here guards the window
// between snapshot and evaluation.
type tempMuteFilter struct {
	mutes map[string]time.Time
	now   time.Time
}

// NewTempMuteFilter returns nil when no temporary mutes are active
func NewTempMuteFilter(mutes map[string]time.Time, now time.Time) PostFilter {
	if len(mutes) == 0 {
		return nil
	}
	return &tempMuteFilter{mutes: mutes, now: now}
}

func (f *tempMuteFilter) muted(did string) bool {
	expiry, ok := f.mutes[did]
	return ok && f.now.Before(expiry)
}

func (f *tempMuteFilter) Keep(item *FeedViewPost) bool {
	if item.IsRepost() && f.muted(item.Reason.By.DID) {
		return false
	}
	return !f.muted(item.Post.Author.DID)
}

// introducedPost returns the slice's thread-policy anchor: the first item
// carrying no repost attribution. A repost run leads its slice, so the
// anchor is the post the run introduces (or the slice's own lead post when
// there is no run). A slice that is all reposts has no anchor.
func introducedPost(s *Slice) *FeedViewPost {
	for _, item := range s.Items {
		if !item.IsRepost() {
			return item
		}
	}
	return nil
}

// homeSliceFilter implements the home timeline thread policy: a slice whose
// introduced post is a reply is kept only when the viewer follows (and
// hasn't muted) both the reply's root and parent authors. Anything else
// gets its reposts rescued and the rest dropped.
type homeSliceFilter struct {
	viewerDID string
}

// NewHomeSliceFilter builds the home timeline slice filter
func NewHomeSliceFilter(viewerDID string) SliceFilter {
	return &homeSliceFilter{viewerDID: viewerDID}
}

func (f *homeSliceFilter) Evaluate(s *Slice) (bool, []*Slice) {
	lead := introducedPost(s)
	if lead == nil {
		// Pure repost run; repost activity carries its own context
		return true, nil
	}

	if lead.Reply != nil {
		root := lead.Reply.Root
		parent := lead.Reply.Parent

		if !f.contextualizes(root) || !f.contextualizes(parent) {
			return false, rescueReposts(s.Items)
		}
	} else if lead.Post.Record.Reply != nil {
		// A reply without hydrated thread context can't be placed
		return false, rescueReposts(s.Items)
	}

	return true, nil
}

// contextualizes reports whether the viewer can make sense of a thread
// anchored on this post: their own, or by a followed, unmuted author
func (f *homeSliceFilter) contextualizes(post *PostView) bool {
	if post == nil || post.Author == nil {
		return false
	}
	if post.Author.DID == f.viewerDID {
		return true
	}
	viewer := post.Author.Viewer
	return viewer != nil && viewer.Following && !viewer.Muted
}

// profileSliceFilter implements the profile-tab thread policy: a slice
// whose introduced post is a reply stays only when the reply's parent was
// written by the profile owner (self-threads), everything else gets its
// reposts rescued.
type profileSliceFilter struct {
	ownerDID string
}

// NewProfileSliceFilter builds the profile feed slice filter for the given
// profile owner
func NewProfileSliceFilter(ownerDID string) SliceFilter {
	return &profileSliceFilter{ownerDID: ownerDID}
}

func (f *profileSliceFilter) Evaluate(s *Slice) (bool, []*Slice) {
	lead := introducedPost(s)
	if lead == nil {
		return true, nil
	}

	if lead.Reply != nil {
		parent := lead.Reply.Parent
		if parent == nil || parent.Author == nil || parent.Author.DID != f.ownerDID {
			return false, rescueReposts(s.Items)
		}
	}

	return true, nil
}

// rescueReposts pulls repost-attributed items out of a filtered slice into
// standalone single-item slices, one per repost. Filtering a thread never
// silently swallows the repost activity bundled with it.
func rescueReposts(items []*FeedViewPost) []*Slice {
	var rescued []*Slice
	for _, item := range items {
		if item.IsRepost() {
			rescued = append(rescued, &Slice{Items: []*FeedViewPost{item}})
		}
	}
	return rescued
}
