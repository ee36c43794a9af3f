package ldmodel

import "github.com/flagforge/flagforge-go/ldvalue"

// variationResultPair holds the two precomputed Result objects a variation index can
// produce: the plain one, and the one marked ForceTrack for experiment/rule-tracking
// participation.
type variationResultPair struct {
	plain   Result
	tracked Result
}

type flagPrecomputation struct {
	ready              bool
	offResult          Result
	variationResults   []variationResultPair
	ruleResults        [][]variationResultPair // ruleResults[ruleIndex][variation]
	prereqFailedResults map[string]Result
	targetMatchResults []Result // indexed by variation
	malformedResult    Result
}

func errorResult(kind ErrorKind) Result {
	return Result{VariationIndex: NoVariation, Reason: Reason{Kind: ReasonError, ErrorKind: kind}}
}

// Preprocess precomputes every reusable Result object for this flag: the off-result, one
// pair of (plain, tracked) results per variation, one result pair per rule and variation, one
// prerequisite-failed result per prerequisite, and one target-match result per variation.
// It also preprocesses every clause (lookup sets / parsed values). It
// must be called once whenever a Flag is ingested, before Evaluate is ever called on it.
func (f *Flag) Preprocess() {
	p := &flagPrecomputation{ready: true}

	if f.OffVariation != nil && f.variationInRange(*f.OffVariation) {
		p.offResult = Result{
			Value:          f.Variations[*f.OffVariation],
			VariationIndex: *f.OffVariation,
			Reason:         Reason{Kind: ReasonOff},
		}
	} else {
		p.offResult = Result{VariationIndex: NoVariation, Reason: Reason{Kind: ReasonOff}}
	}

	p.variationResults = make([]variationResultPair, len(f.Variations))
	for i, v := range f.Variations {
		p.variationResults[i] = variationResultPair{
			plain:   Result{Value: v, VariationIndex: i},
			tracked: Result{Value: v, VariationIndex: i, ForceTrack: true},
		}
	}

	p.ruleResults = make([][]variationResultPair, len(f.Rules))
	for ri := range f.Rules {
		rule := &f.Rules[ri]
		for ci := range rule.Clauses {
			rule.Clauses[ci].Preprocess()
		}
		sparse := make([]variationResultPair, len(f.Variations))
		for vi, v := range f.Variations {
			reason := Reason{Kind: ReasonRuleMatch, RuleIndex: ri, RuleID: rule.ID}
			sparse[vi] = variationResultPair{
				plain:   Result{Value: v, VariationIndex: vi, Reason: reason},
				tracked: Result{Value: v, VariationIndex: vi, Reason: reason, ForceTrack: true},
			}
		}
		p.ruleResults[ri] = sparse
	}
	fallthroughReason := Reason{Kind: ReasonFallthrough}
	for vi := range p.variationResults {
		p.variationResults[vi].plain.Reason = fallthroughReason
		p.variationResults[vi].tracked.Reason = fallthroughReason
	}

	p.prereqFailedResults = make(map[string]Result, len(f.Prerequisites))
	for _, pr := range f.Prerequisites {
		value := ldvalue.Null()
		vi := NoVariation
		if f.OffVariation != nil && f.variationInRange(*f.OffVariation) {
			value = f.Variations[*f.OffVariation]
			vi = *f.OffVariation
		}
		p.prereqFailedResults[pr.Key] = Result{
			Value:          value,
			VariationIndex: vi,
			Reason:         Reason{Kind: ReasonPrerequisiteFailed, PrerequisiteKey: pr.Key},
		}
	}

	p.targetMatchResults = make([]Result, len(f.Variations))
	for vi, v := range f.Variations {
		p.targetMatchResults[vi] = Result{
			Value:          v,
			VariationIndex: vi,
			Reason:         Reason{Kind: ReasonTargetMatch},
		}
	}

	p.malformedResult = errorResult(ErrorMalformedFlag)

	f.precomputed = *p
}

func (f *Flag) variationInRange(i int) bool { return i >= 0 && i < len(f.Variations) }

// OffResult returns the precomputed result for an off flag.
func (f *Flag) OffResult() Result { return f.precomputed.offResult }

// VariationResult returns the precomputed result for selecting the given variation via the
// fallthrough path, optionally tracked (experiment participation / trackEventsFallthrough).
func (f *Flag) VariationResult(variation int, tracked bool) Result {
	if !f.variationInRange(variation) {
		return errorResult(ErrorMalformedFlag)
	}
	pair := f.precomputed.variationResults[variation]
	if tracked {
		return pair.tracked
	}
	return pair.plain
}

// RuleResult returns the precomputed result for the given rule selecting the given
// variation, optionally tracked.
func (f *Flag) RuleResult(ruleIndex, variation int, tracked bool) Result {
	if ruleIndex < 0 || ruleIndex >= len(f.precomputed.ruleResults) || !f.variationInRange(variation) {
		return errorResult(ErrorMalformedFlag)
	}
	pair := f.precomputed.ruleResults[ruleIndex][variation]
	if tracked {
		return pair.tracked
	}
	return pair.plain
}

// PrerequisiteFailedResult returns the precomputed result for this flag's own off/default
// value when the named prerequisite was not satisfied.
func (f *Flag) PrerequisiteFailedResult(prereqKey string) Result {
	if r, ok := f.precomputed.prereqFailedResults[prereqKey]; ok {
		return r
	}
	return errorResult(ErrorMalformedFlag)
}

// TargetMatchResult returns the precomputed result for an explicit target match on the
// given variation.
func (f *Flag) TargetMatchResult(variation int) Result {
	if !f.variationInRange(variation) {
		return errorResult(ErrorMalformedFlag)
	}
	return f.precomputed.targetMatchResults[variation]
}

// MalformedResult returns the shared MALFORMED_FLAG error result.
func (f *Flag) MalformedResult() Result { return f.precomputed.malformedResult }

// IsPreprocessed reports whether Preprocess has been called on this flag.
func (f *Flag) IsPreprocessed() bool { return f.precomputed.ready }
