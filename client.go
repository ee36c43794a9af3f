// Package flagforge is the top-level SDK client: it wires the data store, evaluator, event
// processor, and data source together into a single handle applications hold for the
// lifetime of their process.
package flagforge

import (
	"errors"
	"time"

	"github.com/flagforge/flagforge-go/eval"
	"github.com/flagforge/flagforge-go/interfaces"
	"github.com/flagforge/flagforge-go/internal/bigsegments"
	"github.com/flagforge/flagforge-go/internal/datasource"
	"github.com/flagforge/flagforge-go/internal/datastore"
	"github.com/flagforge/flagforge-go/internal/events"
	"github.com/flagforge/flagforge-go/internal/fflog"
	"github.com/flagforge/flagforge-go/ldcontext"
	"github.com/flagforge/flagforge-go/ldmodel"
	"github.com/flagforge/flagforge-go/ldvalue"
	"github.com/flagforge/flagforge-go/subsystems"
)

// Version is the client version.
const Version = "1.0.0"

// Initialization errors returned by MakeClient/MakeCustomClient.
var (
	ErrInitializationTimeout = errors.New("timeout encountered waiting for client initialization")
	ErrInitializationFailed  = errors.New("client initialization failed")
	ErrClientNotInitialized  = errors.New("flag evaluation called before client initialization completed")
)

// Client is the SDK's public entry point. A Client is safe for concurrent use by any number
// of goroutines, and applications should hold exactly one instance for the life of the
// process.
type Client struct {
	sdkKey         string
	loggers        fflog.Loggers
	offline        bool
	eventProcessor events.EventProcessor
	dataSource     subsystems.DataSource
	store          subsystems.DataStore
	evaluator      *eval.Evaluator
	bigSegments    *bigsegments.Manager

	dataSourceStatus    *datasource.UpdateSink
	dataStoreStatus     *datastore.UpdateSink
	logEvaluationErrors bool
}

// MakeClient creates a Client with the default Config, blocking for up to waitFor for the
// data source to complete its initial sync (zero means don't wait).
func MakeClient(sdkKey string, waitFor time.Duration) (*Client, error) {
	return MakeCustomClient(sdkKey, Config{}, waitFor)
}

// MakeCustomClient creates a Client with an explicit Config, blocking for up to waitFor for
// the data source to complete its initial sync (zero means don't wait).
func MakeCustomClient(sdkKey string, config Config, waitFor time.Duration) (*Client, error) {
	loggers := config.Loggers
	loggers.Infof("starting client %s", Version)

	dataStoreStatus := datastore.NewUpdateSink(false)

	baseContext := subsystems.BasicClientContext{
		SDKKey: sdkKey,
		HTTP: subsystems.HTTPConfiguration{
			DefaultHeaders:   defaultHeaders(sdkKey, config),
			CreateHTTPClient: config.createHTTPClient(),
		},
		Logging: subsystems.LoggingConfiguration{
			Loggers:               loggers,
			LogEvaluationErrors:   config.LogEvaluationErrors,
			LogContextKeyInErrors: config.LogContextKeyInErrors,
		},
		Offline:          config.Offline,
		ServiceEndpoints: config.ServiceEndpoints,
		ApplicationInfo:  config.ApplicationInfo,
	}

	storeCtx := baseContext
	storeCtx.DataStoreUpdateSink = dataStoreStatus
	store, err := config.dataStoreConfigurer().Build(storeCtx)
	if err != nil {
		return nil, err
	}
	dataStoreStatus.SetStatusMonitoringEnabled(store.IsStatusMonitoringEnabled())
	dataSourceStatus := datasource.NewUpdateSink(store, dataStoreStatus)

	var bigSegmentsManager *bigsegments.Manager
	if config.BigSegments != nil {
		bigSegmentsManager, err = config.BigSegments.Build(baseContext)
		if err != nil {
			return nil, err
		}
	}

	evaluator := eval.NewEvaluator(&storeDataProvider{store: store}, bigSegmentsEvaluatorAdapter(bigSegmentsManager))

	client := &Client{
		sdkKey:              sdkKey,
		loggers:             loggers,
		offline:             config.Offline,
		store:               store,
		evaluator:           evaluator,
		bigSegments:         bigSegmentsManager,
		dataStoreStatus:     dataStoreStatus,
		dataSourceStatus:    dataSourceStatus,
		logEvaluationErrors: config.LogEvaluationErrors,
	}

	if config.Offline {
		client.eventProcessor = events.NewNullProcessor()
		client.dataSource = datasource.NewNullDataSource(dataSourceStatus)
	} else {
		eventsCtx := baseContext
		client.eventProcessor, err = config.eventsConfigurer().Build(eventsCtx)
		if err != nil {
			return nil, err
		}

		sourceCtx := baseContext
		sourceCtx.DataSourceUpdateSink = dataSourceStatus
		client.dataSource, err = config.dataSourceConfigurer().Build(sourceCtx)
		if err != nil {
			return nil, err
		}
	}

	closeWhenReady := make(chan struct{})
	client.dataSource.Start(closeWhenReady)

	if waitFor <= 0 {
		go func() { <-closeWhenReady }()
		return client, nil
	}

	select {
	case <-closeWhenReady:
		if !client.dataSource.IsInitialized() {
			loggers.Warn("client initialization failed")
			return client, ErrInitializationFailed
		}
		loggers.Info("client successfully initialized")
		return client, nil
	case <-time.After(waitFor):
		loggers.Warn("timeout encountered waiting for client initialization")
		return client, ErrInitializationTimeout
	}
}

func defaultHeaders(sdkKey string, config Config) map[string][]string {
	headers := map[string][]string{"Authorization": {sdkKey}, "User-Agent": {"FlagForgeGo/" + Version}}
	if config.ApplicationInfo.ApplicationID != "" {
		headers["X-FlagForge-Tags"] = append(headers["X-FlagForge-Tags"],
			"application-id/"+config.ApplicationInfo.ApplicationID)
	}
	if config.ApplicationInfo.ApplicationVersion != "" {
		headers["X-FlagForge-Tags"] = append(headers["X-FlagForge-Tags"],
			"application-version/"+config.ApplicationInfo.ApplicationVersion)
	}
	return headers
}

// storeDataProvider adapts a subsystems.DataStore into the evaluator's read-only DataProvider.
type storeDataProvider struct {
	store subsystems.DataStore
}

func (p *storeDataProvider) GetFlag(key string) (*ldmodel.Flag, bool) {
	item, err := p.store.Get(ldmodel.Features, key)
	if err != nil || item.Item == nil {
		return nil, false
	}
	flag, ok := item.Item.(*ldmodel.Flag)
	return flag, ok
}

func (p *storeDataProvider) GetSegment(key string) (*ldmodel.Segment, bool) {
	item, err := p.store.Get(ldmodel.Segments, key)
	if err != nil || item.Item == nil {
		return nil, false
	}
	segment, ok := item.Item.(*ldmodel.Segment)
	return segment, ok
}

// bigSegmentsEvaluatorAdapter adapts a *bigsegments.Manager (or nil, when the feature isn't
// configured) into the evaluator's BigSegmentsProvider.
func bigSegmentsEvaluatorAdapter(manager *bigsegments.Manager) eval.BigSegmentsProvider {
	if manager == nil {
		return nil
	}
	return &bigSegmentsProvider{manager: manager}
}

type bigSegmentsProvider struct {
	manager *bigsegments.Manager
}

func (b *bigSegmentsProvider) GetMembership(contextKey string) (eval.Membership, ldmodel.BigSegmentsStatus) {
	membership, ok := b.manager.GetContextMembership(contextKey)
	if !ok {
		return nil, ldmodel.BigSegmentsStoreError
	}
	status := b.manager.GetStatus()
	if !status.Available {
		return membership, ldmodel.BigSegmentsStoreError
	}
	if status.Stale {
		return membership, ldmodel.BigSegmentsStale
	}
	return membership, ldmodel.BigSegmentsHealthy
}

// Identify reports that a context was seen, independent of any flag evaluation.
func (c *Client) Identify(context ldcontext.Context) error {
	if !context.IsValid() {
		c.loggers.Warn("Identify called with an invalid context")
		return nil
	}
	c.eventProcessor.SendEvent(events.IdentifyEvent{BaseEvent: events.BaseEvent{
		CreationDate: nowMillis(),
		Context:      context,
	}})
	return nil
}

// TrackEvent reports that a context performed an application-defined event.
func (c *Client) TrackEvent(eventName string, context ldcontext.Context) error {
	return c.TrackData(eventName, context, ldvalue.Null())
}

// TrackData reports an application-defined event carrying arbitrary JSON data.
func (c *Client) TrackData(eventName string, context ldcontext.Context, data ldvalue.Value) error {
	if !context.IsValid() {
		c.loggers.Warn("Track called with an invalid context")
		return nil
	}
	c.eventProcessor.SendEvent(events.CustomEvent{
		BaseEvent: events.BaseEvent{CreationDate: nowMillis(), Context: context},
		Key:       eventName,
		Data:      data,
	})
	return nil
}

// TrackMetric reports an application-defined event carrying a numeric value, for use by
// experimentation's custom metrics.
func (c *Client) TrackMetric(eventName string, context ldcontext.Context, metricValue float64, data ldvalue.Value) error {
	if !context.IsValid() {
		c.loggers.Warn("Track called with an invalid context")
		return nil
	}
	c.eventProcessor.SendEvent(events.CustomEvent{
		BaseEvent:   events.BaseEvent{CreationDate: nowMillis(), Context: context},
		Key:         eventName,
		Data:        data,
		HasMetric:   true,
		MetricValue: metricValue,
	})
	return nil
}

// IsOffline reports whether the client is in offline mode.
func (c *Client) IsOffline() bool { return c.offline }

// Initialized reports whether the client has received its initial data set.
func (c *Client) Initialized() bool {
	return c.offline || c.dataSource.IsInitialized()
}

// Flush requests an out-of-cycle delivery of any buffered analytics events. It returns
// before delivery completes; call Close to flush and wait.
func (c *Client) Flush() {
	c.eventProcessor.Flush()
}

// Close shuts down the client: it flushes and closes the event processor, stops the data
// source, and closes the big-segments manager and the data store, in that order.
func (c *Client) Close() error {
	c.loggers.Info("closing client")
	if c.offline {
		return nil
	}
	_ = c.eventProcessor.Close()
	_ = c.dataSource.Close()
	if c.bigSegments != nil {
		_ = c.bigSegments.Close()
	}
	_ = c.store.Close()
	return nil
}

// DataSourceStatusProvider exposes the data source's current connection status and lets
// callers subscribe to changes.
func (c *Client) DataSourceStatusProvider() interfaces.DataSourceStatusProvider {
	return c.dataSourceStatus
}

// DataStoreStatusProvider exposes the data store's current health status and lets callers
// subscribe to changes.
func (c *Client) DataStoreStatusProvider() interfaces.DataStoreStatusProvider {
	return c.dataStoreStatus
}

func nowMillis() uint64 { return uint64(time.Now().UnixMilli()) }

// BoolVariation returns the value of a boolean flag for the given context, or defaultVal if
// the flag doesn't exist, the client isn't ready, or the flag's value isn't a bool.
func (c *Client) BoolVariation(key string, context ldcontext.Context, defaultVal bool) bool {
	result, _ := c.variation(key, context, ldvalue.Bool(defaultVal), true)
	return result.Value.BoolValue()
}

// BoolVariationDetail is BoolVariation plus the full evaluation Result, which is also what
// drives the "reason" data included in analytics events for this evaluation.
func (c *Client) BoolVariationDetail(key string, context ldcontext.Context, defaultVal bool) (bool, ldmodel.Result) {
	result, _ := c.variation(key, context, ldvalue.Bool(defaultVal), true)
	return result.Value.BoolValue(), result
}

// IntVariation returns the value of a flag whose variations are integers.
func (c *Client) IntVariation(key string, context ldcontext.Context, defaultVal int) int {
	result, _ := c.variation(key, context, ldvalue.Int(defaultVal), true)
	return result.Value.IntValue()
}

// IntVariationDetail is IntVariation plus the full evaluation Result.
func (c *Client) IntVariationDetail(key string, context ldcontext.Context, defaultVal int) (int, ldmodel.Result) {
	result, _ := c.variation(key, context, ldvalue.Int(defaultVal), true)
	return result.Value.IntValue(), result
}

// Float64Variation returns the value of a flag whose variations are floats.
func (c *Client) Float64Variation(key string, context ldcontext.Context, defaultVal float64) float64 {
	result, _ := c.variation(key, context, ldvalue.Float64(defaultVal), true)
	return result.Value.Float64Value()
}

// Float64VariationDetail is Float64Variation plus the full evaluation Result.
func (c *Client) Float64VariationDetail(key string, context ldcontext.Context, defaultVal float64) (float64, ldmodel.Result) {
	result, _ := c.variation(key, context, ldvalue.Float64(defaultVal), true)
	return result.Value.Float64Value(), result
}

// StringVariation returns the value of a flag whose variations are strings.
func (c *Client) StringVariation(key string, context ldcontext.Context, defaultVal string) string {
	result, _ := c.variation(key, context, ldvalue.String(defaultVal), true)
	return result.Value.StringValue()
}

// StringVariationDetail is StringVariation plus the full evaluation Result.
func (c *Client) StringVariationDetail(key string, context ldcontext.Context, defaultVal string) (string, ldmodel.Result) {
	result, _ := c.variation(key, context, ldvalue.String(defaultVal), true)
	return result.Value.StringValue(), result
}

// JSONVariation returns the value of a flag for the given context, allowing the value to be
// of any JSON type. Unlike the typed Variation methods, it does not reject a value whose
// type doesn't match defaultVal.
func (c *Client) JSONVariation(key string, context ldcontext.Context, defaultVal ldvalue.Value) ldvalue.Value {
	result, _ := c.variation(key, context, defaultVal, false)
	return result.Value
}

// JSONVariationDetail is JSONVariation plus the full evaluation Result.
func (c *Client) JSONVariationDetail(key string, context ldcontext.Context, defaultVal ldvalue.Value) (ldvalue.Value, ldmodel.Result) {
	result, _ := c.variation(key, context, defaultVal, false)
	return result.Value, result
}

// variation performs one flag evaluation end to end: fetch the flag, evaluate it, fall back
// to defaultVal on any error or type mismatch, and send the resulting analytics event.
func (c *Client) variation(
	key string,
	context ldcontext.Context,
	defaultVal ldvalue.Value,
	checkType bool,
) (ldmodel.Result, error) {
	if c.offline {
		return defaultResult(defaultVal, ldmodel.ErrorClientNotReady), nil
	}

	result, flag, err := c.evaluateInternal(key, context)
	if err != nil || result.Reason.Kind == ldmodel.ReasonError {
		result = defaultResult(defaultVal, result.Reason.ErrorKind)
	} else if checkType && !defaultVal.IsNull() && !result.Value.IsNull() && result.Value.Type() != defaultVal.Type() {
		result = defaultResult(defaultVal, ldmodel.ErrorWrongType)
	}

	c.sendFeatureEvent(key, context, flag, result, defaultVal)
	return result, err
}

func defaultResult(defaultVal ldvalue.Value, errKind ldmodel.ErrorKind) ldmodel.Result {
	return ldmodel.Result{
		Value:          defaultVal,
		VariationIndex: ldmodel.NoVariation,
		Reason:         ldmodel.Reason{Kind: ldmodel.ReasonError, ErrorKind: errKind},
	}
}

// evaluateInternal runs the evaluator against the flag named key, sending prerequisite
// events along the way but not the main feature event -- the caller sends that once it has
// decided on a final Result (possibly overridden to defaultVal by type-checking).
func (c *Client) evaluateInternal(key string, context ldcontext.Context) (ldmodel.Result, *ldmodel.Flag, error) {
	if !context.IsValid() {
		return ldmodel.Result{
			VariationIndex: ldmodel.NoVariation,
			Reason:         ldmodel.Reason{Kind: ldmodel.ReasonError, ErrorKind: ldmodel.ErrorUserNotSpecified},
		}, nil, nil
	}

	if !c.Initialized() {
		if !c.store.IsInitialized() {
			return ldmodel.Result{VariationIndex: ldmodel.NoVariation, Reason: ldmodel.Reason{Kind: ldmodel.ReasonError, ErrorKind: ldmodel.ErrorClientNotReady}},
				nil, ErrClientNotInitialized
		}
		c.loggers.Warn("flag evaluation called before client initialization completed; using last known values from data store")
	}

	item, err := c.store.Get(ldmodel.Features, key)
	if err != nil {
		c.loggers.Errorf("error fetching flag from data store: %s", err)
		return ldmodel.Result{VariationIndex: ldmodel.NoVariation, Reason: ldmodel.Reason{Kind: ldmodel.ReasonError, ErrorKind: ldmodel.ErrorException}},
			nil, err
	}
	if item.Item == nil {
		if c.logEvaluationErrors {
			c.loggers.Warnf("unknown flag key %q; returning default value", key)
		}
		return ldmodel.Result{VariationIndex: ldmodel.NoVariation, Reason: ldmodel.Reason{Kind: ldmodel.ReasonError, ErrorKind: ldmodel.ErrorFlagNotFound}},
			nil, nil
	}
	flag, ok := item.Item.(*ldmodel.Flag)
	if !ok {
		return ldmodel.Result{VariationIndex: ldmodel.NoVariation, Reason: ldmodel.Reason{Kind: ldmodel.ReasonError, ErrorKind: ldmodel.ErrorException}},
			nil, nil
	}

	var prereqEvents []events.FeatureRequestEvent
	result := c.evaluator.Evaluate(flag, context, func(prereqFlag *ldmodel.Flag, prereqResult ldmodel.Result) {
		prereqEvents = append(prereqEvents, c.featureEvent(prereqFlag.Key, context, prereqFlag, prereqResult, ldvalue.Null()))
	})
	if result.Reason.Kind == ldmodel.ReasonError && c.logEvaluationErrors {
		c.loggers.Warnf("flag evaluation for %s failed with error %s, default value was returned", key, result.Reason.ErrorKind)
	}
	for _, evt := range prereqEvents {
		c.eventProcessor.SendEvent(evt)
	}
	return result, flag, nil
}

// sendFeatureEvent builds and sends the single top-level feature-request event for one
// variation call. TrackEvents is the caller's pre-combined tracking decision: the flag's own
// trackEvents flag, OR'd with experiment participation/rule-tracking recorded on the Result
// by the evaluator (Result.ForceTrack).
func (c *Client) sendFeatureEvent(
	key string,
	context ldcontext.Context,
	flag *ldmodel.Flag,
	result ldmodel.Result,
	defaultVal ldvalue.Value,
) {
	c.eventProcessor.SendEvent(c.featureEvent(key, context, flag, result, defaultVal))
}

func (c *Client) featureEvent(
	key string,
	context ldcontext.Context,
	flag *ldmodel.Flag,
	result ldmodel.Result,
	defaultVal ldvalue.Value,
) events.FeatureRequestEvent {
	evt := events.FeatureRequestEvent{
		BaseEvent: events.BaseEvent{CreationDate: nowMillis(), Context: context},
		Key:       key,
		Value:     result.Value,
		Default:   defaultVal,
		Reason:    result.Reason,
	}
	if flag != nil {
		evt.Version = ldvalue.NewOptionalInt(flag.Version)
		evt.TrackEvents = flag.TrackEvents || result.ForceTrack
		evt.DebugEventsUntilDate = flag.DebugEventsUntilDate
	}
	if result.VariationIndex != ldmodel.NoVariation {
		evt.Variation = ldvalue.NewOptionalInt(result.VariationIndex)
	}
	return evt
}
