package middleware

import (
	"context"
	"net/http"

	"github.com/bluesky-social/indigo/atproto/syntax"
)

type contextKey string

const viewerDIDKey contextKey = "viewerDID"

// ViewerHeader carries the authenticated viewer's DID, set by the auth
// proxy in front of this service. Authenticating the DID is the proxy's
// job; this middleware only validates the syntax and threads it through.
const ViewerHeader = "X-Viewer-Did"

// ViewerContext extracts the viewer DID from the request and stores it in
// the request context. Requests without a valid viewer still pass through -
// handlers decide whether a viewer is required.
func ViewerContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(ViewerHeader)
		if raw == "" {
			raw = r.URL.Query().Get("viewer")
		}

		if raw != "" {
			if did, err := syntax.ParseDID(raw); err == nil {
				ctx := context.WithValue(r.Context(), viewerDIDKey, did.String())
				r = r.WithContext(ctx)
			}
		}

		next.ServeHTTP(w, r)
	})
}

// GetViewerDID returns the validated viewer DID, or "" if none was supplied
func GetViewerDID(r *http.Request) string {
	did, _ := r.Context().Value(viewerDIDKey).(string)
	return did
}
