package ldmodel

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagforge/flagforge-go/ldvalue"
)

func inClauseValues(n int, needle string) []ldvalue.Value {
	values := make([]ldvalue.Value, 0, n)
	for i := 0; i < n-1; i++ {
		values = append(values, ldvalue.String("decoy-"+strconv.Itoa(i)))
	}
	return append(values, ldvalue.String(needle))
}

// OperatorIn must behave identically whether it's small enough to fall back to a linear
// scan or large enough to use the precomputed lookup set (>= 2 values): the set is a
// performance optimization in Preprocess, not a behavior change.
func TestInClauseMatchesRegardlessOfValueCount(t *testing.T) {
	for _, n := range []int{1, 2, 10, 10000} {
		n := n
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			clause := &Clause{Op: OperatorIn, Values: inClauseValues(n, "target")}
			clause.Preprocess()

			assert.True(t, clause.Matches(ldvalue.String("target")))
			assert.False(t, clause.Matches(ldvalue.String("not-present")))
		})
	}
}

func TestInClauseUsesLookupSetOnlyAtTwoOrMoreValues(t *testing.T) {
	single := &Clause{Op: OperatorIn, Values: inClauseValues(1, "target")}
	single.Preprocess()
	assert.Nil(t, single.valuesSet)

	multi := &Clause{Op: OperatorIn, Values: inClauseValues(2, "target")}
	multi.Preprocess()
	assert.NotNil(t, multi.valuesSet)
}

func TestSemVerEqualDistinguishesPrereleaseFromRelease(t *testing.T) {
	clause := &Clause{Op: OperatorSemVerEqual, Values: []ldvalue.Value{ldvalue.String("2.0.0")}}
	clause.Preprocess()

	assert.True(t, clause.Matches(ldvalue.String("2.0.0")))
	assert.False(t, clause.Matches(ldvalue.String("2.0.0-rc1")))
}

func TestSemVerLessThanOrdersPrereleaseBeforeItsRelease(t *testing.T) {
	clause := &Clause{Op: OperatorSemVerLessThan, Values: []ldvalue.Value{ldvalue.String("2.0.0")}}
	clause.Preprocess()

	assert.True(t, clause.Matches(ldvalue.String("2.0.0-rc1")))
	assert.True(t, clause.Matches(ldvalue.String("1.9.9")))
	assert.False(t, clause.Matches(ldvalue.String("2.0.1")))
}

func TestSemVerPrereleaseOrderingAmongThemselves(t *testing.T) {
	clause := &Clause{Op: OperatorSemVerLessThan, Values: []ldvalue.Value{ldvalue.String("2.0.0-beta")}}
	clause.Preprocess()

	assert.True(t, clause.Matches(ldvalue.String("2.0.0-alpha")))
	assert.False(t, clause.Matches(ldvalue.String("2.0.0-beta")))
	assert.False(t, clause.Matches(ldvalue.String("2.0.0")))
}

func TestSemVerGreaterThanPadsPartialVersions(t *testing.T) {
	clause := &Clause{Op: OperatorSemVerGreaterThan, Values: []ldvalue.Value{ldvalue.String("2")}}
	clause.Preprocess()

	assert.True(t, clause.Matches(ldvalue.String("2.0.1")))
	assert.False(t, clause.Matches(ldvalue.String("2.0.0")))
}

func TestParseSemVerPadsPartialVersions(t *testing.T) {
	v, ok := parseSemVer("2.1")
	require.True(t, ok)
	assert.Equal(t, uint64(2), v.Major)
	assert.Equal(t, uint64(1), v.Minor)
	assert.Equal(t, uint64(0), v.Patch)

	v, ok = parseSemVer("3")
	require.True(t, ok)
	assert.Equal(t, uint64(3), v.Major)
	assert.Equal(t, uint64(0), v.Minor)
	assert.Equal(t, uint64(0), v.Patch)
}

func TestParseSemVerRejectsGarbage(t *testing.T) {
	_, ok := parseSemVer("not-a-version")
	assert.False(t, ok)
}
