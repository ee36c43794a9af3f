package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagforge/flagforge-go/ldcontext"
	"github.com/flagforge/flagforge-go/ldmodel"
	"github.com/flagforge/flagforge-go/ldvalue"
)

type fakeDataProvider struct {
	flags    map[string]*ldmodel.Flag
	segments map[string]*ldmodel.Segment
}

func (f *fakeDataProvider) GetFlag(key string) (*ldmodel.Flag, bool) {
	fl, ok := f.flags[key]
	return fl, ok
}

func (f *fakeDataProvider) GetSegment(key string) (*ldmodel.Segment, bool) {
	s, ok := f.segments[key]
	return s, ok
}

func intPtr(i int) *int { return &i }

func boolVariations() []ldvalue.Value {
	return []ldvalue.Value{ldvalue.Bool(false), ldvalue.Bool(true)}
}

func newEvaluator(flags map[string]*ldmodel.Flag) *Evaluator {
	return NewEvaluator(&fakeDataProvider{flags: flags}, nil)
}

// Scenario: an explicit target match must win over a rule that would otherwise also match --
// target evaluation happens before rule evaluation regardless of rule ordering.
func TestTargetMatchTakesPriorityOverAMatchingRule(t *testing.T) {
	flag := &ldmodel.Flag{
		Key:          "flag-key",
		Version:      1,
		On:           true,
		Variations:   boolVariations(),
		OffVariation: intPtr(0),
		Targets: []ldmodel.Target{
			{Variation: 1, Values: []string{"user-key"}},
		},
		Rules: []ldmodel.Rule{
			{
				Clauses: []ldmodel.Clause{
					{Attribute: "key", Op: ldmodel.OperatorIn, Values: []ldvalue.Value{ldvalue.String("user-key")}},
				},
				VariationOrRollout: ldmodel.VariationOrRollout{Variation: intPtr(0)},
			},
		},
		Fallthrough: ldmodel.VariationOrRollout{Variation: intPtr(0)},
	}
	flag.Preprocess()

	e := newEvaluator(nil)
	result := e.Evaluate(flag, ldcontext.New("user-key"), nil)

	assert.Equal(t, 1, result.VariationIndex)
	assert.Equal(t, ldmodel.ReasonTargetMatch, result.Reason.Kind)
}

// Scenario: when a prerequisite isn't satisfied, evaluation short-circuits -- later
// prerequisites are never evaluated, and the recorder sees exactly one entry.
func TestPrerequisiteFailureShortCircuitsAndRecordsExactlyOne(t *testing.T) {
	prereqA := &ldmodel.Flag{
		Key:          "prereq-a",
		Version:      1,
		On:           false,
		Variations:   boolVariations(),
		OffVariation: intPtr(0),
		Fallthrough:  ldmodel.VariationOrRollout{Variation: intPtr(1)},
	}
	prereqA.Preprocess()

	prereqB := &ldmodel.Flag{
		Key:          "prereq-b",
		Version:      1,
		On:           true,
		Variations:   boolVariations(),
		OffVariation: intPtr(0),
		Fallthrough:  ldmodel.VariationOrRollout{Variation: intPtr(1)},
	}
	prereqB.Preprocess()

	parent := &ldmodel.Flag{
		Key:          "parent",
		Version:      1,
		On:           true,
		Variations:   boolVariations(),
		OffVariation: intPtr(0),
		Prerequisites: []ldmodel.Prerequisite{
			{Key: "prereq-a", Variation: 1},
			{Key: "prereq-b", Variation: 1},
		},
		Fallthrough: ldmodel.VariationOrRollout{Variation: intPtr(1)},
	}
	parent.Preprocess()

	e := newEvaluator(map[string]*ldmodel.Flag{
		"prereq-a": prereqA,
		"prereq-b": prereqB,
	})

	type recorded struct {
		key    string
		result ldmodel.Result
	}
	var records []recorded
	recorder := func(prereqFlag *ldmodel.Flag, result ldmodel.Result) {
		records = append(records, recorded{key: prereqFlag.Key, result: result})
	}

	result := e.Evaluate(parent, ldcontext.New("user-key"), recorder)

	assert.Equal(t, ldmodel.ReasonPrerequisiteFailed, result.Reason.Kind)
	assert.Equal(t, "prereq-a", result.Reason.PrerequisiteKey)

	require.Len(t, records, 1)
	assert.Equal(t, "prereq-a", records[0].key)
}

// Scenario: a prerequisite chain that loops back on itself across more than one flag must
// terminate with a definite result instead of recursing unboundedly. Regression test for the
// evaluator threading the same per-evaluation scratch (and its prereqStack) through
// prerequisite recursion instead of starting a fresh one per recursive Evaluate call -- before
// that fix, flagTwo's own prerequisite check of "flag-one" ran against a freshly seeded stack
// that never contained its ancestors, so this setup recursed flag-one -> flag-two -> flag-one
// -> ... until the stack overflowed.
func TestPrerequisiteCycleAcrossMultipleFlagsTerminatesWithoutLooping(t *testing.T) {
	flagOne := &ldmodel.Flag{
		Key:           "flag-one",
		Version:       1,
		On:            true,
		Variations:    boolVariations(),
		OffVariation:  intPtr(0),
		Prerequisites: []ldmodel.Prerequisite{{Key: "flag-two", Variation: 1}},
		Fallthrough:   ldmodel.VariationOrRollout{Variation: intPtr(1)},
	}
	flagOne.Preprocess()

	flagTwo := &ldmodel.Flag{
		Key:           "flag-two",
		Version:       1,
		On:            true,
		Variations:    boolVariations(),
		OffVariation:  intPtr(0),
		Prerequisites: []ldmodel.Prerequisite{{Key: "flag-one", Variation: 1}},
		Fallthrough:   ldmodel.VariationOrRollout{Variation: intPtr(1)},
	}
	flagTwo.Preprocess()

	e := newEvaluator(map[string]*ldmodel.Flag{
		"flag-one": flagOne,
		"flag-two": flagTwo,
	})

	type recorded struct {
		key    string
		result ldmodel.Result
	}
	var records []recorded
	recorder := func(prereqFlag *ldmodel.Flag, result ldmodel.Result) {
		records = append(records, recorded{key: prereqFlag.Key, result: result})
	}

	result := e.Evaluate(flagOne, ldcontext.New("user-key"), recorder)

	// flag-one's own result resolves through the ordinary "prerequisite not satisfied" path,
	// since flag-two's malformed result doesn't match the required variation.
	assert.Equal(t, ldmodel.ReasonPrerequisiteFailed, result.Reason.Kind)
	assert.Equal(t, "flag-two", result.Reason.PrerequisiteKey)

	// flag-two is where the repeated key is actually detected, and it resolves to
	// MALFORMED_FLAG rather than recursing back into flag-one again.
	require.Len(t, records, 1)
	assert.Equal(t, "flag-two", records[0].key)
	assert.Equal(t, ldmodel.ReasonError, records[0].result.Reason.Kind)
	assert.Equal(t, ldmodel.ErrorMalformedFlag, records[0].result.Reason.ErrorKind)
}

// A direct self-prerequisite (the case the bug didn't actually break) must still be caught.
func TestDirectSelfPrerequisiteIsMalformed(t *testing.T) {
	flag := &ldmodel.Flag{
		Key:           "self-referential",
		Version:       1,
		On:            true,
		Variations:    boolVariations(),
		OffVariation:  intPtr(0),
		Prerequisites: []ldmodel.Prerequisite{{Key: "self-referential", Variation: 1}},
		Fallthrough:   ldmodel.VariationOrRollout{Variation: intPtr(1)},
	}
	flag.Preprocess()

	e := newEvaluator(map[string]*ldmodel.Flag{"self-referential": flag})
	result := e.Evaluate(flag, ldcontext.New("user-key"), nil)

	assert.Equal(t, ldmodel.ErrorMalformedFlag, result.Reason.ErrorKind)
}

// Scenario: a percentage rollout buckets a context into a stable variation -- the same
// context always lands in the same variation, and the split follows the configured weights.
// Bucket values are the standard cross-SDK LaunchDarkly test vectors for "hashKey"/"saltyA".
func TestStableRolloutBucketing(t *testing.T) {
	rollout := ldmodel.Rollout{
		Variations: []ldmodel.WeightedVariation{
			{Variation: 0, Weight: 50000},
			{Variation: 1, Weight: 50000},
		},
	}
	flag := &ldmodel.Flag{
		Key:          "hashKey",
		Salt:         "saltyA",
		Version:      1,
		On:           true,
		Variations:   boolVariations(),
		OffVariation: intPtr(0),
		Fallthrough:  ldmodel.VariationOrRollout{Rollout: &rollout},
	}
	flag.Preprocess()

	e := newEvaluator(nil)

	// userKeyA buckets to ~0.4216 -> variation 0, and does so every time it's evaluated.
	first := e.Evaluate(flag, ldcontext.New("userKeyA"), nil)
	assert.Equal(t, 0, first.VariationIndex)
	again := e.Evaluate(flag, ldcontext.New("userKeyA"), nil)
	assert.Equal(t, first, again)

	// userKeyB buckets to ~0.6708 -> variation 1.
	other := e.Evaluate(flag, ldcontext.New("userKeyB"), nil)
	assert.Equal(t, 1, other.VariationIndex)
}

// Invariant: OFF evaluation never consults targets, rules, prerequisites, or rollouts, so the
// off-result is identical no matter what context it's evaluated against.
func TestOffResultIsIndependentOfContext(t *testing.T) {
	flag := &ldmodel.Flag{
		Key:          "off-flag",
		Version:      1,
		On:           false,
		Variations:   boolVariations(),
		OffVariation: intPtr(0),
		Targets: []ldmodel.Target{
			{Variation: 1, Values: []string{"user-key"}},
		},
		Fallthrough: ldmodel.VariationOrRollout{Variation: intPtr(1)},
	}
	flag.Preprocess()

	e := newEvaluator(nil)

	targeted := e.Evaluate(flag, ldcontext.New("user-key"), nil)
	untargeted := e.Evaluate(flag, ldcontext.New("someone-else"), nil)

	assert.Equal(t, targeted, untargeted)
	assert.Equal(t, ldmodel.ReasonOff, targeted.Reason.Kind)
	assert.Equal(t, 0, targeted.VariationIndex)
}
