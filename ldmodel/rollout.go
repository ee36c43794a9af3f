package ldmodel

// WeightedVariation assigns a portion (weight, out of 100000) of a rollout's bucket space
// to a variation index.
type WeightedVariation struct {
	Variation int  `json:"variation"`
	Weight    int  `json:"weight"`
	Untracked bool `json:"untracked,omitempty"`
}

// Rollout is a bucket-range-to-variation mapping used for percentage rollouts and
// experiments.
type Rollout struct {
	Variations  []WeightedVariation `json:"variations"`
	BucketBy    string              `json:"bucketBy,omitempty"`
	ContextKind string              `json:"contextKind,omitempty"`
	Seed        *int                `json:"seed,omitempty"`
	IsExperiment bool               `json:"experiment,omitempty"`
}

// VariationOrRollout is either a fixed variation index, or a Rollout to bucket into.
type VariationOrRollout struct {
	Variation *int     `json:"variation,omitempty"`
	Rollout   *Rollout `json:"rollout,omitempty"`
}

// IsMalformed reports whether neither a variation nor a non-empty rollout was specified.
func (v VariationOrRollout) IsMalformed() bool {
	if v.Variation != nil {
		return false
	}
	return v.Rollout == nil || len(v.Rollout.Variations) == 0
}
