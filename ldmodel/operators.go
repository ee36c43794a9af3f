package ldmodel

import (
	"regexp"
	"strings"
	"time"

	"github.com/blang/semver"

	"github.com/flagforge/flagforge-go/ldvalue"
)

// versionNumericComponentsRegex pulls out the leading major(.minor(.patch)) run so a
// partial version like "2" or "2.0" can be padded to "2.0.0" before being handed to
// semver.Parse, which otherwise rejects anything short of major.minor.patch.
var versionNumericComponentsRegex = regexp.MustCompile(`^\d+(\.\d+)?(\.\d+)?`)

func parseDateValue(v ldvalue.Value) (time.Time, bool) {
	switch v.Type() {
	case ldvalue.StringType:
		t, err := time.Parse(time.RFC3339Nano, v.StringValue())
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	case ldvalue.NumberType:
		ms := v.Float64Value()
		return time.UnixMilli(int64(ms)).UTC(), true
	default:
		return time.Time{}, false
	}
}

// parseSemVer parses s as a semantic version, padding partial versions ("2", "2.0") out to
// major.minor.patch the way the numeric components regex above allows before retrying.
func parseSemVer(s string) (semver.Version, bool) {
	if v, err := semver.Parse(s); err == nil {
		return v, true
	}
	padded := versionNumericComponentsRegex.FindString(s)
	if padded == "" {
		return semver.Version{}, false
	}
	switch strings.Count(padded, ".") {
	case 0:
		padded += ".0.0"
	case 1:
		padded += ".0"
	}
	v, err := semver.Parse(padded)
	if err != nil {
		return semver.Version{}, false
	}
	return v, true
}

// Matches reports whether the given single (non-array) attribute value satisfies this
// clause's operator against its comparand values. It does not apply Negate and does not
// handle segmentMatch (that requires a segment-lookup callback, handled by the evaluator).
func (c *Clause) Matches(value ldvalue.Value) bool {
	switch c.Op {
	case OperatorIn:
		return c.matchesIn(value)
	case OperatorStartsWith:
		return c.matchesStringOp(value, func(v, target string) bool { return strings.HasPrefix(v, target) })
	case OperatorEndsWith:
		return c.matchesStringOp(value, func(v, target string) bool { return strings.HasSuffix(v, target) })
	case OperatorContains:
		return c.matchesStringOp(value, func(v, target string) bool { return strings.Contains(v, target) })
	case OperatorMatches:
		if value.Type() != ldvalue.StringType {
			return false
		}
		for _, p := range c.parsedValues {
			re, ok := p.(parsedRegex)
			if ok && re.r.MatchString(value.StringValue()) {
				return true
			}
		}
		return false
	case OperatorLessThan, OperatorLessThanOrEqual, OperatorGreaterThan, OperatorGreaterThanOrEqual:
		return c.matchesNumeric(value)
	case OperatorBefore, OperatorAfter:
		return c.matchesDate(value)
	case OperatorSemVerEqual, OperatorSemVerLessThan, OperatorSemVerGreaterThan:
		return c.matchesSemVer(value)
	default:
		return false
	}
}

func (c *Clause) matchesIn(value ldvalue.Value) bool {
	if c.valuesSet != nil {
		_, found := c.valuesSet[valueLookupKey(value)]
		return found
	}
	for _, v := range c.Values {
		if v.Equal(value) {
			return true
		}
	}
	return false
}

func (c *Clause) matchesStringOp(value ldvalue.Value, cmp func(v, target string) bool) bool {
	if value.Type() != ldvalue.StringType {
		return false
	}
	for _, target := range c.Values {
		if target.Type() == ldvalue.StringType && cmp(value.StringValue(), target.StringValue()) {
			return true
		}
	}
	return false
}

func (c *Clause) matchesNumeric(value ldvalue.Value) bool {
	if value.Type() != ldvalue.NumberType {
		return false
	}
	v := value.Float64Value()
	for _, target := range c.Values {
		if target.Type() != ldvalue.NumberType {
			continue
		}
		t := target.Float64Value()
		switch c.Op {
		case OperatorLessThan:
			if v < t {
				return true
			}
		case OperatorLessThanOrEqual:
			if v <= t {
				return true
			}
		case OperatorGreaterThan:
			if v > t {
				return true
			}
		case OperatorGreaterThanOrEqual:
			if v >= t {
				return true
			}
		}
	}
	return false
}

func (c *Clause) matchesDate(value ldvalue.Value) bool {
	valueTime, ok := parseDateValue(value)
	if !ok {
		return false
	}
	for _, p := range c.parsedValues {
		pd, ok := p.(parsedDate)
		if !ok {
			continue
		}
		switch c.Op {
		case OperatorBefore:
			if valueTime.Before(pd.t) {
				return true
			}
		case OperatorAfter:
			if valueTime.After(pd.t) {
				return true
			}
		}
	}
	return false
}

func (c *Clause) matchesSemVer(value ldvalue.Value) bool {
	if value.Type() != ldvalue.StringType {
		return false
	}
	valueSV, ok := parseSemVer(value.StringValue())
	if !ok {
		return false
	}
	for _, p := range c.parsedValues {
		targetSV, ok := p.(semver.Version)
		if !ok {
			continue
		}
		switch c.Op {
		case OperatorSemVerEqual:
			if valueSV.Equals(targetSV) {
				return true
			}
		case OperatorSemVerLessThan:
			if valueSV.LT(targetSV) {
				return true
			}
		case OperatorSemVerGreaterThan:
			if valueSV.GT(targetSV) {
				return true
			}
		}
	}
	return false
}
