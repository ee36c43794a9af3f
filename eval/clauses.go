package eval

import (
	"github.com/flagforge/flagforge-go/ldcontext"
	"github.com/flagforge/flagforge-go/ldmodel"
	"github.com/flagforge/flagforge-go/ldvalue"
)

func (e *Evaluator) clauseMatches(clause *ldmodel.Clause, context ldcontext.Context, s *scratch) bool {
	var matched bool
	if clause.Op == ldmodel.OperatorSegmentMatch {
		matched = e.anySegmentMatches(clause, context, s)
	} else {
		matched = e.clauseMatchesAttribute(clause, context)
	}
	if clause.Negate {
		return !matched
	}
	return matched
}

func (e *Evaluator) clauseMatchesAttribute(clause *ldmodel.Clause, context ldcontext.Context) bool {
	if clause.Attribute == "kind" {
		for _, k := range context.Kinds() {
			if clauseMatchesScalarOrArray(clause, ldvalue.String(k.Kind)) {
				return true
			}
		}
		return false
	}

	kind := clause.ContextKind
	if kind == "" {
		kind = ldcontext.DefaultKind
	}
	individual, ok := context.IndividualContext(kind)
	if !ok {
		return false
	}
	value, ok := individual.GetAttribute(clause.Attribute)
	if !ok {
		return false
	}
	return clauseMatchesScalarOrArray(clause, value)
}

func clauseMatchesScalarOrArray(clause *ldmodel.Clause, value ldvalue.Value) bool {
	if value.Type() == ldvalue.ArrayType {
		for _, element := range value.AsArray() {
			if clause.Matches(element) {
				return true
			}
		}
		return false
	}
	return clause.Matches(value)
}

func (e *Evaluator) anySegmentMatches(clause *ldmodel.Clause, context ldcontext.Context, s *scratch) bool {
	for _, v := range clause.Values {
		segKey := v.StringValue()

		cycle := false
		for _, seen := range s.segmentStack {
			if seen == segKey {
				cycle = true
				break
			}
		}
		if cycle {
			continue
		}

		segment, ok := e.data.GetSegment(segKey)
		if !ok || segment == nil {
			continue
		}

		s.segmentStack = append(s.segmentStack, segKey)
		matched := e.segmentMatches(segment, context, s)
		s.segmentStack = s.segmentStack[:len(s.segmentStack)-1]

		if matched {
			return true
		}
	}
	return false
}
