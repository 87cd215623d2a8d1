// Package moderation provides the label-to-decision function the feed
// pipeline consumes. The pipeline only cares about the final Decision's
// Filter flag; the cause accumulator exists so richer scoring engines can
// replace this one behind the same call shape.
package moderation

import (
	"strings"
)

// Preference is the viewer's configured severity for a label value
type Preference int

const (
	PreferenceIgnore Preference = iota
	PreferenceWarn
	PreferenceHide
)

// Opts is one viewer's moderation configuration
type Opts struct {
	// Labels maps a label value (e.g. "spam") to the viewer's preference
	Labels map[string]Preference `json:"labels,omitempty"`
	// MutedKeywords are matched case-insensitively against post text
	MutedKeywords []string `json:"mutedKeywords,omitempty"`
}

// CauseType distinguishes why a decision was reached
type CauseType int

const (
	CauseLabel CauseType = iota
	CauseMutedKeyword
)

// Cause is one reason accumulated toward a decision
type Cause struct {
	Type       CauseType
	Source     string // label value or matched keyword
	Preference Preference
}

// Accumulator collects causes across the decide passes for one post
type Accumulator struct {
	causes []Cause
}

// Decision is the final verdict for one post
type Decision struct {
	// Filter means the post should be removed from feed output entirely
	Filter bool
	// Causes lists everything that contributed to the verdict
	Causes []Cause
}

// DecideLabels accumulates causes for each label the viewer has configured.
// Labels self-applied by the author are still honored: authors labeling
// their own content is the common case for media labels.
func DecideLabels(accu *Accumulator, labels []string, authorDID string, opts *Opts) {
	if opts == nil || len(opts.Labels) == 0 {
		return
	}

	for _, val := range labels {
		pref, ok := opts.Labels[val]
		if !ok || pref == PreferenceIgnore {
			continue
		}
		accu.causes = append(accu.causes, Cause{
			Type:       CauseLabel,
			Source:     val,
			Preference: pref,
		})
	}
}

// DecideMutedKeywords accumulates a cause at the given preference for the
// first muted keyword found in the post text
func DecideMutedKeywords(accu *Accumulator, text string, pref Preference, opts *Opts) {
	if opts == nil || len(opts.MutedKeywords) == 0 || text == "" {
		return
	}

	lowered := strings.ToLower(text)
	for _, keyword := range opts.MutedKeywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(keyword)) {
			accu.causes = append(accu.causes, Cause{
				Type:       CauseMutedKeyword,
				Source:     keyword,
				Preference: pref,
			})
			return
		}
	}
}

// Finalize resolves the accumulated causes into a decision.
// Returns nil when nothing applied.
func Finalize(accu *Accumulator) *Decision {
	if len(accu.causes) == 0 {
		return nil
	}

	decision := &Decision{Causes: accu.causes}
	for _, cause := range accu.causes {
		if cause.Preference == PreferenceHide {
			decision.Filter = true
			break
		}
	}
	return decision
}
