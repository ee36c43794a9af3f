package ldmodel

import "github.com/flagforge/flagforge-go/ldvalue"

// Prerequisite is a reference to another flag that must resolve to a particular variation
// for this flag's normal rule evaluation to proceed.
type Prerequisite struct {
	Key       string `json:"key"`
	Variation int    `json:"variation"`
}

// Target is an explicit key -> variation mapping for one context kind, bypassing rules.
type Target struct {
	Variation   int      `json:"variation"`
	Values      []string `json:"values"`
	ContextKind string   `json:"contextKind,omitempty"`
}

// Rule is an ordered list of clauses plus the variation/rollout to apply when they all match.
type Rule struct {
	ID      string   `json:"id,omitempty"`
	Clauses []Clause `json:"clauses"`
	VariationOrRollout
	TrackEvents bool `json:"trackEvents,omitempty"`
}

// Flag is a named rule definition mapping an evaluation context to one of its variations.
//
// Flag is the unit of replication between the data source and the data store: every field
// is populated by data-source ingestion and the struct is treated as immutable thereafter,
// except for the precomputed fields which are filled in once by Preprocess.
type Flag struct {
	Key                    string               `json:"key"`
	Version                int                  `json:"version"`
	Deleted                bool                 `json:"deleted,omitempty"`
	On                     bool                 `json:"on"`
	Variations             []ldvalue.Value      `json:"variations"`
	OffVariation           *int                 `json:"offVariation,omitempty"`
	Fallthrough            VariationOrRollout   `json:"fallthrough"`
	Prerequisites          []Prerequisite       `json:"prerequisites,omitempty"`
	Targets                []Target             `json:"targets,omitempty"`
	ContextTargets         []Target             `json:"contextTargets,omitempty"`
	Rules                  []Rule               `json:"rules,omitempty"`
	Salt                   string               `json:"salt,omitempty"`
	TrackEvents            bool                 `json:"trackEvents,omitempty"`
	TrackEventsFallthrough bool                 `json:"trackEventsFallthrough,omitempty"`
	DebugEventsUntilDate   *uint64              `json:"debugEventsUntilDate,omitempty"`
	SamplingRatio          *int                 `json:"samplingRatio,omitempty"`
	ExcludeFromSummaries   bool                 `json:"excludeFromSummaries,omitempty"`
	ClientSide             bool                 `json:"clientSide,omitempty"`

	precomputed flagPrecomputation
}

// PrerequisiteKeys returns the keys of every flag this flag depends on, for dependency
// ordering in the persistent-store wrapper's Init.
func (f *Flag) PrerequisiteKeys() []string {
	keys := make([]string, 0, len(f.Prerequisites))
	for _, p := range f.Prerequisites {
		keys = append(keys, p.Key)
	}
	return keys
}

// SegmentKeysReferenced returns every segment key referenced via a segmentMatch clause,
// anywhere in this flag's rules.
func (f *Flag) SegmentKeysReferenced() []string {
	var keys []string
	for _, r := range f.Rules {
		for _, c := range r.Clauses {
			if c.Op == OperatorSegmentMatch {
				for _, v := range c.Values {
					keys = append(keys, v.StringValue())
				}
			}
		}
	}
	return keys
}
