package feed

// Collection is an append-only sequence of pages belonging to one timeline
// session. Params records the cursor each page was fetched with, parallel to
// Pages, so a refetch can be matched back to the page it produced.
type Collection struct {
	Pages  []*Page
	Params []*PageCursor
}

// cursorKeyEqual compares two cursors by their upstream pagination key.
// The buffered remainder is session-local state and not part of identity.
func cursorKeyEqual(a, b *PageCursor) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Key == nil || b.Key == nil {
		return a.Key == nil && b.Key == nil
	}
	return *a.Key == *b.Key
}

// PushCollection merges a freshly-fetched page into a session collection.
//
//   - Fresh session (nil collection or nil cursor): a new one-page collection.
//   - Continuation (cursor extends the last page): append.
//   - Refetch (cursor already produced an existing page): replace that page
//     in place, so re-running a page never duplicates results.
//   - Unknown cursor: appended rather than rejected - caller misuse must not
//     crash a session.
//
// The input collection is never mutated; a new value is returned.
func PushCollection(coll *Collection, page *Page, fetchedWith *PageCursor) *Collection {
	if coll == nil || fetchedWith == nil {
		return &Collection{
			Pages:  []*Page{page},
			Params: []*PageCursor{fetchedWith},
		}
	}

	// Refetch of a page already in the collection: replace in place
	for i, param := range coll.Params {
		if param != nil && cursorKeyEqual(param, fetchedWith) {
			pages := make([]*Page, len(coll.Pages))
			copy(pages, coll.Pages)
			pages[i] = page

			params := make([]*PageCursor, len(coll.Params))
			copy(params, coll.Params)

			return &Collection{Pages: pages, Params: params}
		}
	}

	pages := make([]*Page, len(coll.Pages), len(coll.Pages)+1)
	copy(pages, coll.Pages)
	pages = append(pages, page)

	params := make([]*PageCursor, len(coll.Params), len(coll.Params)+1)
	copy(params, coll.Params)
	params = append(params, fetchedWith)

	return &Collection{Pages: pages, Params: params}
}
