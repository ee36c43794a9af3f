package ldmodel

// SegmentTarget is a set of explicitly included or excluded context keys for one kind.
type SegmentTarget struct {
	ContextKind string   `json:"contextKind,omitempty"`
	Values      []string `json:"values"`
}

// SegmentRule is a clause-matched gate, optionally itself bucketed by a weighted rollout
// (so a rule can admit only a percentage of the contexts that match its clauses).
type SegmentRule struct {
	ID          string   `json:"id,omitempty"`
	Clauses     []Clause `json:"clauses"`
	Weight      *int     `json:"weight,omitempty"`
	BucketBy    string   `json:"bucketBy,omitempty"`
	RolloutContextKind string `json:"rolloutContextKind,omitempty"`
}

// Segment is a named membership predicate over evaluation contexts.
type Segment struct {
	Key       string          `json:"key"`
	Version   int             `json:"version"`
	Deleted   bool            `json:"deleted,omitempty"`
	Included  []string        `json:"included,omitempty"`
	Excluded  []string        `json:"excluded,omitempty"`
	IncludedContexts []SegmentTarget `json:"includedContexts,omitempty"`
	ExcludedContexts []SegmentTarget `json:"excludedContexts,omitempty"`
	Rules     []SegmentRule   `json:"rules,omitempty"`
	Salt      string          `json:"salt,omitempty"`
	Unbounded bool            `json:"unbounded,omitempty"`
	UnboundedContextKind string `json:"unboundedContextKind,omitempty"`
	Generation *int           `json:"generation,omitempty"`
}
