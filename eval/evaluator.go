// Package eval implements the pure, hot-path flag-evaluation engine: given a flag, an
// evaluation context, and read-only access to the rest of the data set, it deterministically
// produces a Result and, via a pushed callback, a record of every prerequisite it had to
// evaluate along the way.
package eval

import (
	"github.com/flagforge/flagforge-go/ldcontext"
	"github.com/flagforge/flagforge-go/ldmodel"
)

// DataProvider is the evaluator's read-only view of the data store.
type DataProvider interface {
	GetFlag(key string) (*ldmodel.Flag, bool)
	GetSegment(key string) (*ldmodel.Segment, bool)
}

// BigSegmentsProvider resolves big-segment membership for a context key, for segments
// marked Unbounded. A nil Membership means no membership data is available for the key.
// A segment with no generation is reported as BigSegmentsNotConfigured by the evaluator
// itself, without consulting the provider.
type BigSegmentsProvider interface {
	GetMembership(contextKey string) (Membership, ldmodel.BigSegmentsStatus)
}

// Membership answers whether a context key is included in or excluded from a given
// generation-qualified big-segment reference. A nil result means "no opinion," deferring
// to the segment's own rules.
type Membership interface {
	CheckMembership(segmentRef string) *bool
}

// PrerequisiteRecorder is invoked once for every prerequisite flag evaluated, as a side
// channel -- the caller typically uses this to emit analytics events without the evaluator
// itself allocating a list.
type PrerequisiteRecorder func(prereqFlag *ldmodel.Flag, result ldmodel.Result)

// Evaluator evaluates flags against a DataProvider. It holds no other state and is safe
// for concurrent use.
type Evaluator struct {
	data        DataProvider
	bigSegments BigSegmentsProvider
}

// NewEvaluator builds an Evaluator backed by the given data provider. bigSegments may be
// nil if big segments are not configured.
func NewEvaluator(data DataProvider, bigSegments BigSegmentsProvider) *Evaluator {
	return &Evaluator{data: data, bigSegments: bigSegments}
}

// scratch carries per-evaluation mutable state: cycle-detection stacks and the big-segment
// status/membership cache accumulated so far. It is allocated fresh for each top-level
// Evaluate call and threaded explicitly through recursive helpers -- never stored in
// thread-local/goroutine-local state.
type scratch struct {
	prereqStack       []string
	segmentStack      []string
	bigSegmentsStatus ldmodel.BigSegmentsStatus
	bigSegmentsQueried bool
	membershipCache   map[string]Membership
	recorder          PrerequisiteRecorder
}

// Evaluate produces a Result for evaluating flag against context. recorder is called once
// per prerequisite flag evaluated (may be nil).
func (e *Evaluator) Evaluate(flag *ldmodel.Flag, context ldcontext.Context, recorder PrerequisiteRecorder) ldmodel.Result {
	if !context.IsValid() {
		return ldmodel.Result{
			VariationIndex: ldmodel.NoVariation,
			Reason:         ldmodel.Reason{Kind: ldmodel.ReasonError, ErrorKind: ldmodel.ErrorUserNotSpecified},
		}
	}
	s := &scratch{recorder: recorder}
	s.prereqStack = append(s.prereqStack, flag.Key)

	result := e.evaluateFlag(flag, context, s)
	if s.bigSegmentsQueried {
		result.Reason.BigSegmentsStatus = s.bigSegmentsStatus
	}
	return result
}

// evaluateFlag evaluates flag (on or off) against context, threading the same scratch
// through any prerequisite recursion -- s.prereqStack accumulates every flag key on the
// current chain so a cycle spanning any number of flags is caught, not just direct
// self-reference.
func (e *Evaluator) evaluateFlag(flag *ldmodel.Flag, context ldcontext.Context, s *scratch) ldmodel.Result {
	if !flag.On {
		return flag.OffResult()
	}
	return e.evaluateOn(flag, context, s)
}

func (e *Evaluator) evaluateOn(flag *ldmodel.Flag, context ldcontext.Context, s *scratch) ldmodel.Result {
	if result, failed := e.evaluatePrerequisites(flag, context, s); failed {
		return result
	}

	if result, matched := e.evaluateTargets(flag, context); matched {
		return result
	}

	if result, matched := e.evaluateRules(flag, context, s); matched {
		return result
	}

	return e.evaluateFallthrough(flag, context)
}

func (e *Evaluator) evaluatePrerequisites(
	flag *ldmodel.Flag,
	context ldcontext.Context,
	s *scratch,
) (ldmodel.Result, bool) {
	for _, prereq := range flag.Prerequisites {
		for _, seen := range s.prereqStack {
			if seen == prereq.Key {
				return flag.MalformedResult(), true
			}
		}

		prereqFlag, ok := e.data.GetFlag(prereq.Key)
		if !ok || prereqFlag == nil {
			return flag.PrerequisiteFailedResult(prereq.Key), true
		}

		s.prereqStack = append(s.prereqStack, prereq.Key)
		prereqResult := e.evaluateFlag(prereqFlag, context, s)
		s.prereqStack = s.prereqStack[:len(s.prereqStack)-1]

		if s.recorder != nil {
			s.recorder(prereqFlag, prereqResult)
		}

		satisfied := prereqFlag.On && prereqResult.VariationIndex == prereq.Variation
		if !satisfied {
			return flag.PrerequisiteFailedResult(prereq.Key), true
		}
	}
	return ldmodel.Result{}, false
}

func (e *Evaluator) evaluateTargets(flag *ldmodel.Flag, context ldcontext.Context) (ldmodel.Result, bool) {
	if len(flag.ContextTargets) > 0 {
		for _, target := range flag.ContextTargets {
			kind := target.ContextKind
			if kind == "" {
				kind = ldcontext.DefaultKind
			}
			if kind == ldcontext.DefaultKind {
				// Back-compat: the default-kind entry in contextTargets is empty; the real
				// membership list for "user" kind lives in the legacy Targets list under the
				// same variation index.
				for _, legacy := range flag.Targets {
					if legacy.Variation == target.Variation {
						if contextKeyIn(context, ldcontext.DefaultKind, legacy.Values) {
							return flag.TargetMatchResult(target.Variation), true
						}
					}
				}
				continue
			}
			if contextKeyIn(context, kind, target.Values) {
				return flag.TargetMatchResult(target.Variation), true
			}
		}
		return ldmodel.Result{}, false
	}

	for _, target := range flag.Targets {
		if contextKeyIn(context, ldcontext.DefaultKind, target.Values) {
			return flag.TargetMatchResult(target.Variation), true
		}
	}
	return ldmodel.Result{}, false
}

func contextKeyIn(context ldcontext.Context, kind string, keys []string) bool {
	individual, ok := context.IndividualContext(kind)
	if !ok {
		return false
	}
	for _, k := range keys {
		if k == individual.Key {
			return true
		}
	}
	return false
}

func (e *Evaluator) evaluateRules(flag *ldmodel.Flag, context ldcontext.Context, s *scratch) (ldmodel.Result, bool) {
	for ri := range flag.Rules {
		rule := &flag.Rules[ri]
		if e.ruleMatches(rule, context, s) {
			if rule.IsMalformed() {
				return flag.MalformedResult(), true
			}
			return e.resolveVariationOrRollout(flag, rule.VariationOrRollout, context, rule.TrackEvents, ri), true
		}
	}
	return ldmodel.Result{}, false
}

func (e *Evaluator) ruleMatches(rule *ldmodel.Rule, context ldcontext.Context, s *scratch) bool {
	for ci := range rule.Clauses {
		if !e.clauseMatches(&rule.Clauses[ci], context, s) {
			return false
		}
	}
	return true
}

func (e *Evaluator) evaluateFallthrough(flag *ldmodel.Flag, context ldcontext.Context) ldmodel.Result {
	if flag.Fallthrough.IsMalformed() {
		return flag.MalformedResult()
	}
	return e.resolveVariationOrRollout(flag, flag.Fallthrough, context, flag.TrackEventsFallthrough, -1)
}

// resolveVariationOrRollout turns a VariationOrRollout into a Result, consulting the
// flag's precomputed tables. ruleIndex is -1 for the fallthrough.
func (e *Evaluator) resolveVariationOrRollout(
	flag *ldmodel.Flag,
	vr ldmodel.VariationOrRollout,
	context ldcontext.Context,
	trackEvents bool,
	ruleIndex int,
) ldmodel.Result {
	var variation int
	tracked := trackEvents
	if vr.Variation != nil {
		variation = *vr.Variation
	} else {
		v, inExperiment := ldmodel.VariationIndexForBucket(flag.Key, flag.Salt, context, vr.Rollout)
		if v == ldmodel.NoVariation {
			return flag.MalformedResult()
		}
		variation = v
		tracked = tracked || inExperiment
	}
	if ruleIndex < 0 {
		return flag.VariationResult(variation, tracked)
	}
	return flag.RuleResult(ruleIndex, variation, tracked)
}
