package feed

import (
	"fmt"
)

// DescriptorType identifies which timeline a request targets
type DescriptorType string

const (
	DescriptorHome    DescriptorType = "home"
	DescriptorFeed    DescriptorType = "feed"
	DescriptorList    DescriptorType = "list"
	DescriptorProfile DescriptorType = "profile"
	DescriptorSearch  DescriptorType = "search"
)

// ProfileTab selects which of a profile's feeds to fetch
type ProfileTab string

const (
	TabPosts   ProfileTab = "posts"
	TabReplies ProfileTab = "replies"
	TabLikes   ProfileTab = "likes"
	TabMedia   ProfileTab = "media"
)

// Descriptor is a closed tagged variant describing one timeline. Exactly the
// fields for its type are set:
//   - home: Algorithm
//   - feed, list: URI
//   - profile: Actor + Tab
//   - search: Query
type Descriptor struct {
	Type      DescriptorType `json:"type"`
	Algorithm string         `json:"algorithm,omitempty"`
	URI       string         `json:"uri,omitempty"`
	Actor     string         `json:"actor,omitempty"`
	Tab       ProfileTab     `json:"tab,omitempty"`
	Query     string         `json:"query,omitempty"`
}

// HomeDescriptor describes the viewer's own timeline
func HomeDescriptor(algorithm string) Descriptor {
	return Descriptor{Type: DescriptorHome, Algorithm: algorithm}
}

// FeedDescriptor describes a custom feed generator by AT-URI
func FeedDescriptor(uri string) Descriptor {
	return Descriptor{Type: DescriptorFeed, URI: uri}
}

// ListDescriptor describes a list feed by AT-URI
func ListDescriptor(uri string) Descriptor {
	return Descriptor{Type: DescriptorList, URI: uri}
}

// ProfileDescriptor describes one tab of an actor's profile feed
func ProfileDescriptor(actor string, tab ProfileTab) Descriptor {
	return Descriptor{Type: DescriptorProfile, Actor: actor, Tab: tab}
}

// SearchDescriptor describes a post search feed
func SearchDescriptor(query string) Descriptor {
	return Descriptor{Type: DescriptorSearch, Query: query}
}

// Validate checks the descriptor is well-formed for its type.
// An unknown type is a programmer error and panics - the variant is closed.
func (d Descriptor) Validate() error {
	switch d.Type {
	case DescriptorHome:
		if d.Algorithm == "" {
			return NewValidationError("algorithm", "algorithm is required for home timelines")
		}
	case DescriptorFeed:
		if d.URI == "" {
			return NewValidationError("uri", "feed URI is required")
		}
	case DescriptorList:
		if d.URI == "" {
			return NewValidationError("uri", "list URI is required")
		}
	case DescriptorProfile:
		if d.Actor == "" {
			return NewValidationError("actor", "actor is required for profile feeds")
		}
		switch d.Tab {
		case TabPosts, TabReplies, TabLikes, TabMedia:
		default:
			return NewValidationError("tab", "tab must be one of: posts, replies, likes, media")
		}
	case DescriptorSearch:
		if d.Query == "" {
			return NewValidationError("query", "search query is required")
		}
	default:
		panic(fmt.Sprintf("feed: unknown descriptor type %q", d.Type))
	}
	return nil
}

// key returns the variant-specific identity component of the descriptor
func (d Descriptor) key() string {
	switch d.Type {
	case DescriptorHome:
		return d.Algorithm
	case DescriptorFeed, DescriptorList:
		return d.URI
	case DescriptorProfile:
		return d.Actor + "/" + string(d.Tab)
	case DescriptorSearch:
		return d.Query
	default:
		panic(fmt.Sprintf("feed: unknown descriptor type %q", d.Type))
	}
}

// SessionKey identifies a logical timeline session. It is stable across
// refetches so caching layers can dedupe concurrent requests for the same
// timeline (same viewer, same descriptor, same page size).
func SessionKey(userDID string, d Descriptor, limit int) string {
	return fmt.Sprintf("getFeed/%s/%s/%s/%d", userDID, d.Type, d.key(), limit)
}
