package eval

import (
	"fmt"

	"github.com/flagforge/flagforge-go/ldcontext"
	"github.com/flagforge/flagforge-go/ldmodel"
)

func (e *Evaluator) segmentMatches(segment *ldmodel.Segment, context ldcontext.Context, s *scratch) bool {
	if segment.Unbounded {
		return e.bigSegmentMatches(segment, context, s)
	}

	kind := ldcontext.DefaultKind
	if individual, ok := context.IndividualContext(kind); ok {
		if stringSetContains(segment.Included, individual.Key) {
			return true
		}
		if stringSetContains(segment.Excluded, individual.Key) {
			return false
		}
	}
	for _, t := range segment.IncludedContexts {
		if individual, ok := context.IndividualContext(t.ContextKind); ok && stringSetContains(t.Values, individual.Key) {
			return true
		}
	}
	for _, t := range segment.ExcludedContexts {
		if individual, ok := context.IndividualContext(t.ContextKind); ok && stringSetContains(t.Values, individual.Key) {
			return false
		}
	}

	for ri := range segment.Rules {
		if e.segmentRuleMatches(&segment.Rules[ri], segment, context, s) {
			return true
		}
	}
	return false
}

func stringSetContains(values []string, key string) bool {
	for _, v := range values {
		if v == key {
			return true
		}
	}
	return false
}

func (e *Evaluator) segmentRuleMatches(
	rule *ldmodel.SegmentRule,
	segment *ldmodel.Segment,
	context ldcontext.Context,
	s *scratch,
) bool {
	for ci := range rule.Clauses {
		if !e.clauseMatches(&rule.Clauses[ci], context, s) {
			return false
		}
	}
	if rule.Weight == nil {
		return true
	}
	kind := rule.RolloutContextKind
	if kind == "" {
		kind = ldcontext.DefaultKind
	}
	rollout := &ldmodel.Rollout{
		BucketBy:    rule.BucketBy,
		ContextKind: kind,
		Variations: []ldmodel.WeightedVariation{
			{Variation: 0, Weight: *rule.Weight},
			{Variation: 1, Weight: 100000 - *rule.Weight},
		},
	}
	bucketSalt := segment.Salt
	variation, _ := ldmodel.VariationIndexForBucket(segment.Key+"."+rule.ID, bucketSalt, context, rollout)
	return variation == 0
}

func (e *Evaluator) bigSegmentMatches(segment *ldmodel.Segment, context ldcontext.Context, s *scratch) bool {
	if segment.Generation == nil {
		s.bigSegmentsStatus = ldmodel.BigSegmentsNotConfigured
		return false
	}
	if e.bigSegments == nil {
		s.bigSegmentsStatus = ldmodel.BigSegmentsNotConfigured
		return false
	}
	kind := segment.UnboundedContextKind
	if kind == "" {
		kind = ldcontext.DefaultKind
	}
	individual, ok := context.IndividualContext(kind)
	if !ok {
		return false
	}

	if s.membershipCache == nil {
		s.membershipCache = make(map[string]Membership)
	}
	membership, cached := s.membershipCache[individual.Key]
	if !cached {
		var status ldmodel.BigSegmentsStatus
		membership, status = e.bigSegments.GetMembership(individual.Key)
		s.membershipCache[individual.Key] = membership
		if !s.bigSegmentsQueried || status != ldmodel.BigSegmentsHealthy {
			s.bigSegmentsStatus = status
		}
		s.bigSegmentsQueried = true
	}
	if membership != nil {
		ref := fmt.Sprintf("%s.g%d", segment.Key, *segment.Generation)
		if result := membership.CheckMembership(ref); result != nil {
			return *result
		}
	}
	for ri := range segment.Rules {
		if e.segmentRuleMatches(&segment.Rules[ri], segment, context, s) {
			return true
		}
	}
	return false
}
