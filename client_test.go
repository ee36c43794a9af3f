package flagforge

import (
	"testing"
	"time"

	"github.com/flagforge/flagforge-go/internal/events"
	"github.com/flagforge/flagforge-go/ldcomponents"
	"github.com/flagforge/flagforge-go/ldcontext"
	"github.com/flagforge/flagforge-go/ldmodel"
	"github.com/flagforge/flagforge-go/ldvalue"
	"github.com/flagforge/flagforge-go/subsystems"
	"github.com/flagforge/flagforge-go/subsystems/ldstoretypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturingEventProcessor records every event it's given instead of sending it anywhere,
// mirroring the teacher's testEventProcessor.
type capturingEventProcessor struct {
	events []events.Event
}

func (c *capturingEventProcessor) SendEvent(e events.Event) { c.events = append(c.events, e) }
func (c *capturingEventProcessor) Flush()                   {}
func (c *capturingEventProcessor) Close() error             { return nil }

type noEventsConfigurer struct{ proc *capturingEventProcessor }

func (n noEventsConfigurer) Build(subsystems.ClientContext) (events.EventProcessor, error) {
	return n.proc, nil
}

func boolFlag(key string, on bool) *ldmodel.Flag {
	offVar := 0
	flag := &ldmodel.Flag{
		Key:          key,
		Version:      1,
		On:           on,
		Variations:   []ldvalue.Value{ldvalue.Bool(false), ldvalue.Bool(true)},
		OffVariation: &offVar,
		Fallthrough:  ldmodel.VariationOrRollout{Variation: intPtr(1)},
	}
	flag.Preprocess()
	return flag
}

func intPtr(i int) *int { return &i }

func newTestClient(t *testing.T, proc *capturingEventProcessor) *Client {
	t.Helper()
	client, err := MakeCustomClient("test-sdk-key", Config{
		DataSource: ldcomponents.ExternalUpdatesOnly(),
		Events:     noEventsConfigurer{proc: proc},
	}, time.Second)
	require.NoError(t, err)
	return client
}

func TestOfflineModeAlwaysReturnsDefaultValue(t *testing.T) {
	client, err := MakeCustomClient("test-sdk-key", Config{Offline: true}, 0)
	require.NoError(t, err)
	defer client.Close()

	assert.True(t, client.IsOffline())
	assert.True(t, client.BoolVariation("some-flag", ldcontext.New("user-key"), true))
	assert.Equal(t, 42, client.IntVariation("some-flag", ldcontext.New("user-key"), 42))
	assert.Equal(t, "fallback", client.StringVariation("some-flag", ldcontext.New("user-key"), "fallback"))
}

func TestBoolVariationReturnsStoredFlagValue(t *testing.T) {
	proc := &capturingEventProcessor{}
	client := newTestClient(t, proc)
	defer client.Close()

	flag := boolFlag("bool-flag", true)
	require.NoError(t, client.store.Init([]ldstoretypes.Collection{
		{
			Kind:  ldmodel.Features,
			Items: []ldstoretypes.KeyedItemDescriptor{{Key: flag.Key, Item: ldstoretypes.ItemDescriptor{Version: flag.Version, Item: flag}}},
		},
	}))

	context := ldcontext.New("user-key")
	value, detail := client.BoolVariationDetail("bool-flag", context, false)
	assert.True(t, value)
	assert.Equal(t, 1, detail.VariationIndex)
	assert.Equal(t, ldmodel.ReasonFallthrough, detail.Reason.Kind)

	require.Len(t, proc.events, 1)
	featureEvent, ok := proc.events[0].(events.FeatureRequestEvent)
	require.True(t, ok)
	assert.Equal(t, "bool-flag", featureEvent.Key)
	assert.Equal(t, ldvalue.Bool(true), featureEvent.Value)
}

func TestUnknownFlagReturnsDefault(t *testing.T) {
	proc := &capturingEventProcessor{}
	client := newTestClient(t, proc)
	defer client.Close()
	require.NoError(t, client.store.Init(nil))

	value := client.BoolVariation("does-not-exist", ldcontext.New("user-key"), true)
	assert.True(t, value)

	require.Len(t, proc.events, 1)
	featureEvent := proc.events[0].(events.FeatureRequestEvent)
	assert.False(t, featureEvent.Version.IsDefined())
	assert.Equal(t, ldmodel.ErrorFlagNotFound, featureEvent.Reason.ErrorKind)
}

func TestWrongTypeFallsBackToDefault(t *testing.T) {
	proc := &capturingEventProcessor{}
	client := newTestClient(t, proc)
	defer client.Close()

	flag := boolFlag("bool-flag", true)
	require.NoError(t, client.store.Init([]ldstoretypes.Collection{
		{
			Kind:  ldmodel.Features,
			Items: []ldstoretypes.KeyedItemDescriptor{{Key: flag.Key, Item: ldstoretypes.ItemDescriptor{Version: flag.Version, Item: flag}}},
		},
	}))

	result := client.StringVariation("bool-flag", ldcontext.New("user-key"), "fallback")
	assert.Equal(t, "fallback", result)
}

func TestIdentifyAndTrackSendEvents(t *testing.T) {
	proc := &capturingEventProcessor{}
	client := newTestClient(t, proc)
	defer client.Close()

	context := ldcontext.New("user-key")
	require.NoError(t, client.Identify(context))
	require.NoError(t, client.TrackEvent("some-event", context))
	require.NoError(t, client.TrackMetric("some-metric", context, 3.5, ldvalue.String("extra")))

	require.Len(t, proc.events, 3)
	_, ok := proc.events[0].(events.IdentifyEvent)
	assert.True(t, ok)
	custom, ok := proc.events[1].(events.CustomEvent)
	require.True(t, ok)
	assert.Equal(t, "some-event", custom.Key)
	metric, ok := proc.events[2].(events.CustomEvent)
	require.True(t, ok)
	assert.True(t, metric.HasMetric)
	assert.Equal(t, 3.5, metric.MetricValue)
}

func TestInvalidContextIsRejectedWithoutSendingEvents(t *testing.T) {
	proc := &capturingEventProcessor{}
	client := newTestClient(t, proc)
	defer client.Close()

	var invalid ldcontext.Context
	assert.NoError(t, client.Identify(invalid))
	assert.Empty(t, proc.events)
}

func TestAllFlagsStateEvaluatesEveryStoredFlag(t *testing.T) {
	proc := &capturingEventProcessor{}
	client := newTestClient(t, proc)
	defer client.Close()

	onFlag := boolFlag("flag-on", true)
	offFlag := boolFlag("flag-off", false)
	require.NoError(t, client.store.Init([]ldstoretypes.Collection{
		{
			Kind: ldmodel.Features,
			Items: []ldstoretypes.KeyedItemDescriptor{
				{Key: onFlag.Key, Item: ldstoretypes.ItemDescriptor{Version: onFlag.Version, Item: onFlag}},
				{Key: offFlag.Key, Item: ldstoretypes.ItemDescriptor{Version: offFlag.Version, Item: offFlag}},
			},
		},
	}))

	state := client.AllFlagsState(ldcontext.New("user-key"), WithReasons())
	require.True(t, state.IsValid())
	assert.Equal(t, ldvalue.Bool(true), state.GetValue("flag-on"))
	assert.Equal(t, ldvalue.Bool(false), state.GetValue("flag-off"))

	// AllFlagsState must not generate analytics events.
	assert.Empty(t, proc.events)
}

func TestAllFlagsStateInvalidWhenOffline(t *testing.T) {
	client, err := MakeCustomClient("test-sdk-key", Config{Offline: true}, 0)
	require.NoError(t, err)
	defer client.Close()

	state := client.AllFlagsState(ldcontext.New("user-key"))
	assert.False(t, state.IsValid())
}
