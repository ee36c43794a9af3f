package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagforge/flagforge-go/ldcontext"
	"github.com/flagforge/flagforge-go/ldmodel"
	"github.com/flagforge/flagforge-go/ldvalue"
)

func TestMakeOutputEventsRendersEachEventKind(t *testing.T) {
	formatter := newEventOutputFormatter(Config{})
	ctx := ldcontext.New("user-key")

	events := []Event{
		IdentifyEvent{BaseEvent: BaseEvent{CreationDate: 100, Context: ctx}},
		IndexEvent{BaseEvent: BaseEvent{CreationDate: 200, Context: ctx}},
		CustomEvent{BaseEvent: BaseEvent{CreationDate: 300, Context: ctx}, Key: "custom-key", Data: ldvalue.String("d")},
		FeatureRequestEvent{
			BaseEvent: BaseEvent{CreationDate: 400, Context: ctx},
			Key:       "flagkey", Version: ldvalue.NewOptionalInt(3), Variation: ldvalue.NewOptionalInt(1),
			Value: ldvalue.String("v"), Default: ldvalue.String("dv"),
			Reason: ldmodel.Reason{Kind: ldmodel.ReasonFallthrough},
		},
	}

	out := formatter.makeOutputEvents(events, eventSummaryData{})
	require.Len(t, out, 4)
	assert.Equal(t, "identify", out[0]["kind"])
	assert.Equal(t, "index", out[1]["kind"])
	assert.Equal(t, "custom", out[2]["kind"])
	assert.Equal(t, "feature", out[3]["kind"])
	assert.Equal(t, 3, out[3]["version"])
	assert.Equal(t, 1, out[3]["variation"])
	assert.Equal(t, ldmodel.Reason{Kind: ldmodel.ReasonFallthrough}, out[3]["reason"])
}

func TestMakeOutputEventsOmitsVersionAndVariationWhenUndefined(t *testing.T) {
	formatter := newEventOutputFormatter(Config{})
	ctx := ldcontext.New("user-key")

	fre := FeatureRequestEvent{
		BaseEvent: BaseEvent{CreationDate: 400, Context: ctx},
		Key:       "flagkey", Value: ldvalue.String("v"), Default: ldvalue.String("dv"),
	}
	out := formatter.makeOutputEvents([]Event{fre}, eventSummaryData{})
	require.Len(t, out, 1)
	assert.NotContains(t, out[0], "version")
	assert.NotContains(t, out[0], "variation")
	assert.NotContains(t, out[0], "reason")
}

func TestMakeOutputEventsRendersDebugEventAsDebugKind(t *testing.T) {
	formatter := newEventOutputFormatter(Config{})
	ctx := ldcontext.New("user-key")

	fre := FeatureRequestEvent{
		BaseEvent: BaseEvent{CreationDate: 400, Context: ctx},
		Key:       "flagkey", Value: ldvalue.String("v"), Default: ldvalue.String("dv"),
		Debug: true,
	}
	out := formatter.makeOutputEvents([]Event{fre}, eventSummaryData{})
	require.Len(t, out, 1)
	assert.Equal(t, "debug", out[0]["kind"])
}

func TestMakeOutputEventsAppendsNonEmptySummary(t *testing.T) {
	formatter := newEventOutputFormatter(Config{})
	summary := eventSummaryData{
		startDate: 100,
		endDate:   200,
		flags: map[string]flagSummary{
			"flagkey": {
				defaultValue: ldvalue.String("dv"),
				contextKinds: map[string]struct{}{"user": {}},
				counters: map[counterKey]*counterValue{
					{variation: ldvalue.NewOptionalInt(1), version: ldvalue.NewOptionalInt(3)}: {count: 2, value: ldvalue.String("v")},
				},
			},
		},
	}

	out := formatter.makeOutputEvents(nil, summary)
	require.Len(t, out, 1)
	assert.Equal(t, "summary", out[0]["kind"])
	assert.Equal(t, uint64(100), out[0]["startDate"])
	assert.Equal(t, uint64(200), out[0]["endDate"])

	features, ok := out[0]["features"].(map[string]interface{})
	require.True(t, ok)
	flagOut, ok := features["flagkey"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, ldvalue.String("dv"), flagOut["default"])
	assert.Equal(t, []string{"user"}, flagOut["contextKinds"])
}

func TestMakeOutputEventsOmittedWhenSummaryEmptyAndNoEvents(t *testing.T) {
	formatter := newEventOutputFormatter(Config{})
	out := formatter.makeOutputEvents(nil, eventSummaryData{})
	assert.Empty(t, out)
}
