package ldmodel

import (
	"crypto/sha1" //nolint:gosec // bucketing hash, not a security boundary; must match the reference algorithm bit-for-bit
	"fmt"
	"strconv"

	"github.com/flagforge/flagforge-go/ldcontext"
	"github.com/flagforge/flagforge-go/ldvalue"
)

// noBucket is returned by bucketValue when the bucketing attribute can't be resolved to
// a string; VariationIndexForBucket checks for it and falls through to the last
// variation, per the "must not produce an error" invariant.
const noBucket = -1.0

const bucketHashDigits = 15

var bucketDivisor = mustParseBucketDivisor()

func mustParseBucketDivisor() float64 {
	// 15 hex F digits, i.e. 0xFFFFFFFFFFFFFFF (see spec: "divide by 0xFFF...F (15 hex digits)").
	v, err := strconv.ParseUint("fffffffffffffff"[:bucketHashDigits], 16, 64)
	if err != nil {
		panic(err)
	}
	return float64(v)
}

// bucketValue computes the stable bucket in [0, 1) (or noBucket on unresolvable attribute)
// for a context/rollout pair, per the spec's SHA-1 bucketing algorithm.
func bucketValue(flagKey, salt string, context ldcontext.Context, rollout *Rollout) float64 {
	bucketBy := rollout.BucketBy
	if bucketBy == "" {
		bucketBy = "key"
	}
	kind := rollout.ContextKind
	if kind == "" {
		kind = ldcontext.DefaultKind
	}
	individual, ok := context.IndividualContext(kind)
	if !ok {
		return noBucket
	}

	attrValue, ok := attributeAsBucketString(bucketBy, individual)
	if !ok {
		return noBucket
	}

	var prefix string
	if rollout.Seed != nil {
		prefix = fmt.Sprintf("%d.%s", *rollout.Seed, attrValue)
	} else {
		prefix = fmt.Sprintf("%s.%s.%s", flagKey, salt, attrValue)
	}

	hash := sha1.Sum([]byte(prefix)) //nolint:gosec
	hexDigits := fmt.Sprintf("%x", hash)[:bucketHashDigits]
	intVal, err := strconv.ParseUint(hexDigits, 16, 64)
	if err != nil {
		return noBucket // COVERAGE: cannot happen, hexDigits is always valid hex
	}
	return float64(intVal) / bucketDivisor
}

func attributeAsBucketString(name string, k ldcontext.KindAttr) (string, bool) {
	v, ok := k.GetAttribute(name)
	if !ok {
		return "", false
	}
	switch v.Type() {
	case ldvalue.StringType:
		return v.StringValue(), true
	case ldvalue.NumberType:
		// Integer attribute values are accepted via their decimal string form.
		f := v.Float64Value()
		if f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10), true
		}
		return "", false
	default:
		return "", false
	}
}

// VariationIndexForBucket walks the rollout's weighted variations, accumulating
// weight/100000 thresholds, and returns the index of the first one whose cumulative
// threshold exceeds bucket. If bucket falls past every threshold (rounding, or weights
// that don't sum to 100000), the last variation wins -- this must never be treated as an
// error. It also reports whether the selected entry should be tracked as an in-experiment
// participant (true unless the entry is untracked or the context lookup failed).
func VariationIndexForBucket(flagKey, salt string, context ldcontext.Context, rollout *Rollout) (int, bool) {
	if len(rollout.Variations) == 0 {
		return NoVariation, false
	}
	bucket := bucketValue(flagKey, salt, context, rollout)
	if bucket < 0 {
		// Unresolvable bucketing attribute: land on the last variation, untracked.
		last := rollout.Variations[len(rollout.Variations)-1]
		return last.Variation, false
	}
	var sum float64
	for _, wv := range rollout.Variations {
		sum += float64(wv.Weight) / 100000.0
		if bucket < sum {
			return wv.Variation, rollout.IsExperiment && !wv.Untracked
		}
	}
	last := rollout.Variations[len(rollout.Variations)-1]
	return last.Variation, rollout.IsExperiment && !last.Untracked
}
