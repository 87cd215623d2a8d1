package feed

// BuildSlices groups a raw feed page into ordered slices and runs them
// through the slice- and post-level filters.
//
// Grouping is greedy and single-pass, in upstream order:
//   - consecutive repost-attributed items form a run; the run together with
//     the next non-repost item (which the reposts "introduce") is one slice
//   - a reply merges into the preceding slice when that slice ends with the
//     reply's own parent (or root), producing contiguous reply chains
//   - everything else is a standalone slice
//
// Slice filtering never silently drops reposts bundled with a filtered
// thread: the filter rescues them into standalone slices, which then go
// through the post filter like any other item.
func BuildSlices(items []*FeedViewPost, sliceFilter SliceFilter, postFilter PostFilter) []*Slice {
	candidates := groupSlices(items)

	out := make([]*Slice, 0, len(candidates))
	for _, candidate := range candidates {
		if sliceFilter != nil {
			keep, rescued := sliceFilter.Evaluate(candidate)
			if !keep {
				for _, r := range rescued {
					out = appendFiltered(out, r, postFilter)
				}
				continue
			}
		}
		out = appendFiltered(out, candidate, postFilter)
	}
	return out
}

// BuildUnjoinedSlices puts every surviving item in its own slice. Used for
// feeds with no thread structure to preserve (likes, media, search).
func BuildUnjoinedSlices(items []*FeedViewPost, postFilter PostFilter) []*Slice {
	out := make([]*Slice, 0, len(items))
	for _, item := range items {
		if postFilter != nil && !postFilter.Keep(item) {
			continue
		}
		out = append(out, &Slice{Items: []*FeedViewPost{item}})
	}
	return out
}

// groupSlices performs the grouping walk with no backtracking: once a
// repost-run boundary is fixed it stays fixed.
func groupSlices(items []*FeedViewPost) []*Slice {
	var candidates []*Slice
	var run []*FeedViewPost

	for _, item := range items {
		if item.IsRepost() {
			run = append(run, item)
			continue
		}

		if run != nil {
			// The run introduces this post
			joined := make([]*FeedViewPost, 0, len(run)+1)
			joined = append(joined, run...)
			joined = append(joined, item)
			candidates = append(candidates, &Slice{Items: joined})
			run = nil
			continue
		}

		if item.Reply != nil && continuesThread(candidates, item) {
			prev := candidates[len(candidates)-1]
			prev.Items = append(prev.Items, item)
			continue
		}

		candidates = append(candidates, &Slice{Items: []*FeedViewPost{item}})
	}

	// Trailing run with nothing to introduce still renders as a slice
	if run != nil {
		candidates = append(candidates, &Slice{Items: run})
	}

	return candidates
}

// continuesThread reports whether a reply item extends the previous slice:
// the slice must end with the reply's parent (or root), i.e. the item
// immediately follows its own ancestor in the walked window.
func continuesThread(candidates []*Slice, item *FeedViewPost) bool {
	if len(candidates) == 0 {
		return false
	}

	prev := candidates[len(candidates)-1]
	last := prev.Items[len(prev.Items)-1]

	if parent := item.Reply.Parent; parent != nil && parent.URI == last.Post.URI {
		return true
	}
	if root := item.Reply.Root; root != nil && root.URI == last.Post.URI {
		return true
	}
	return false
}

// appendFiltered applies the post filter at item granularity and appends the
// slice if anything survived
func appendFiltered(out []*Slice, s *Slice, postFilter PostFilter) []*Slice {
	if postFilter == nil {
		return append(out, s)
	}

	kept := make([]*FeedViewPost, 0, len(s.Items))
	for _, item := range s.Items {
		if postFilter.Keep(item) {
			kept = append(kept, item)
		}
	}

	if len(kept) == 0 {
		return out
	}
	return append(out, &Slice{Items: kept})
}
