package ldmodel

import (
	"regexp"
	"strconv"
	"time"

	"github.com/flagforge/flagforge-go/ldvalue"
)

// semVer values are stored directly as semver.Version in parsedValues; see operators.go.

// Operator identifies a clause comparison operator.
type Operator string

// The operators recognized by a Clause.
const (
	OperatorIn                 Operator = "in"
	OperatorStartsWith         Operator = "startsWith"
	OperatorEndsWith           Operator = "endsWith"
	OperatorContains           Operator = "contains"
	OperatorMatches            Operator = "matches"
	OperatorLessThan           Operator = "lessThan"
	OperatorLessThanOrEqual    Operator = "lessThanOrEqual"
	OperatorGreaterThan        Operator = "greaterThan"
	OperatorGreaterThanOrEqual Operator = "greaterThanOrEqual"
	OperatorBefore             Operator = "before"
	OperatorAfter              Operator = "after"
	OperatorSemVerEqual        Operator = "semVerEqual"
	OperatorSemVerLessThan     Operator = "semVerLessThan"
	OperatorSemVerGreaterThan  Operator = "semVerGreaterThan"
	OperatorSegmentMatch       Operator = "segmentMatch"
)

// Clause is a single predicate within a Rule: does the context's attribute value satisfy
// the operator against the listed values.
type Clause struct {
	Attribute   string         `json:"attribute"`
	ContextKind string         `json:"contextKind,omitempty"`
	Op          Operator       `json:"op"`
	Values      []ldvalue.Value `json:"values"`
	Negate      bool           `json:"negate,omitempty"`

	// valuesSet is the precomputed O(1) lookup set for OperatorIn clauses with >= 2 values.
	valuesSet map[string]struct{}
	// parsedValues holds the per-value preparsed form for regex/date/semver operators; a nil
	// entry means that value failed to parse and can never match.
	parsedValues []interface{}
}

type parsedDate struct{ t time.Time }
type parsedRegex struct{ r *regexp.Regexp }

// Preprocess precomputes the lookup set and/or parsed values for this clause. It must be
// called once per clause after ingestion, before Matches is ever called.
func (c *Clause) Preprocess() {
	c.valuesSet = nil
	c.parsedValues = nil
	switch c.Op {
	case OperatorIn:
		if len(c.Values) >= 2 {
			set := make(map[string]struct{}, len(c.Values))
			for _, v := range c.Values {
				set[valueLookupKey(v)] = struct{}{}
			}
			c.valuesSet = set
		}
	case OperatorMatches:
		c.parsedValues = make([]interface{}, len(c.Values))
		for i, v := range c.Values {
			if v.Type() == ldvalue.StringType {
				if re, err := regexp.Compile(v.StringValue()); err == nil {
					c.parsedValues[i] = parsedRegex{re}
				}
			}
		}
	case OperatorBefore, OperatorAfter:
		c.parsedValues = make([]interface{}, len(c.Values))
		for i, v := range c.Values {
			if t, ok := parseDateValue(v); ok {
				c.parsedValues[i] = parsedDate{t}
			}
		}
	case OperatorSemVerEqual, OperatorSemVerLessThan, OperatorSemVerGreaterThan:
		c.parsedValues = make([]interface{}, len(c.Values))
		for i, v := range c.Values {
			if v.Type() == ldvalue.StringType {
				if sv, ok := parseSemVer(v.StringValue()); ok {
					c.parsedValues[i] = sv
				}
			}
		}
	}
}

func valueLookupKey(v ldvalue.Value) string {
	switch v.Type() {
	case ldvalue.StringType:
		return "s:" + v.StringValue()
	case ldvalue.NumberType:
		return "n:" + strconv.FormatFloat(v.Float64Value(), 'g', -1, 64)
	case ldvalue.BoolType:
		if v.BoolValue() {
			return "b:true"
		}
		return "b:false"
	default:
		return "?"
	}
}
