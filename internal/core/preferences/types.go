package preferences

import (
	"time"

	"Skylight/internal/core/moderation"
)

// LanguagePrefs controls the language post filter
type LanguagePrefs struct {
	// Languages the viewer wants to see (BCP-47 codes)
	Languages []string `json:"languages"`
	// UseSystemLanguages unions the host's detected languages into the set
	UseSystemLanguages bool `json:"useSystemLanguages"`
	// AllowUnspecified keeps posts that declare no language tags
	AllowUnspecified bool `json:"allowUnspecified"`
}

// FilterPrefs controls the repost and mute post filters
type FilterPrefs struct {
	// HideReposts lists DIDs whose reposts the viewer has hidden
	HideReposts []string `json:"hideReposts,omitempty"`
	// TempMutes maps a DID to its mute expiry. Expired entries are pruned
	// lazily the first time they are observed (see PruneExpiredMutes).
	TempMutes map[string]time.Time `json:"tempMutes,omitempty"`
}

// Preferences is one viewer's preference snapshot. The pipeline treats it as
// a read-only input owned by the preference store; the only mutation is the
// explicit expired-mute write-back.
type Preferences struct {
	Languages  LanguagePrefs    `json:"languages"`
	Filters    FilterPrefs      `json:"filters"`
	Moderation *moderation.Opts `json:"moderation,omitempty"`
}

// PruneExpiredMutes removes mute entries that have expired as of now.
// Copy-on-write: the input map is never mutated, so concurrent readers
// holding the old snapshot stay consistent. Returns the pruned map and
// whether anything was removed; the caller performs the store write-back
// as a separate, explicit step.
func PruneExpiredMutes(mutes map[string]time.Time, now time.Time) (map[string]time.Time, bool) {
	if len(mutes) == 0 {
		return mutes, false
	}

	var pruned map[string]time.Time
	for did, expiry := range mutes {
		if expiry.IsZero() || !now.Before(expiry) {
			if pruned == nil {
				pruned = make(map[string]time.Time, len(mutes))
				for k, v := range mutes {
					pruned[k] = v
				}
			}
			delete(pruned, did)
		}
	}

	if pruned == nil {
		return mutes, false
	}
	return pruned, true
}
