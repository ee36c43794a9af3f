package flagforge

import (
	"encoding/json"

	"github.com/flagforge/flagforge-go/ldcontext"
	"github.com/flagforge/flagforge-go/ldmodel"
	"github.com/flagforge/flagforge-go/ldvalue"
)

// FlagsStateOption customizes what AllFlagsState includes in its result.
type FlagsStateOption interface {
	applyFlagsStateOption(*flagsStateOptions)
}

type flagsStateOptions struct {
	clientSideOnly       bool
	withReasons          bool
	detailsOnlyIfTracked bool
}

type flagsStateOptionFunc func(*flagsStateOptions)

func (f flagsStateOptionFunc) applyFlagsStateOption(o *flagsStateOptions) { f(o) }

// ClientSideOnly restricts AllFlagsState to flags marked for use with a client-side SDK.
func ClientSideOnly() FlagsStateOption {
	return flagsStateOptionFunc(func(o *flagsStateOptions) { o.clientSideOnly = true })
}

// WithReasons includes each flag's evaluation reason in the result.
func WithReasons() FlagsStateOption {
	return flagsStateOptionFunc(func(o *flagsStateOptions) { o.withReasons = true })
}

// DetailsOnlyForTrackedFlags omits reason data for any flag that doesn't have event tracking
// or debugging turned on, shrinking the payload when bootstrapping a client-side SDK. It only
// has an effect together with WithReasons; the version is included for every flag.
func DetailsOnlyForTrackedFlags() FlagsStateOption {
	return flagsStateOptionFunc(func(o *flagsStateOptions) { o.detailsOnlyIfTracked = true })
}

// flagState is one flag's recorded evaluation result and metadata at the time AllFlagsState
// was called.
type flagState struct {
	value                ldvalue.Value
	variation            ldvalue.OptionalInt
	version              int
	reason               ldmodel.Reason
	trackReason          bool
	trackEvents          bool
	debugEventsUntilDate *uint64
}

// FlagsState is a point-in-time snapshot of every flag's evaluation result for one context,
// as returned by Client.AllFlagsState. Marshaling it to JSON produces the data structure
// expected by a client-side SDK's bootstrap mechanism.
type FlagsState struct {
	valid bool
	flags map[string]flagState
}

// IsValid reports whether AllFlagsState succeeded. It is false if the client was offline or
// uninitialized with no store data available, in which case the state carries no flags.
func (s FlagsState) IsValid() bool { return s.valid }

// GetValue returns the recorded value for key, or ldvalue.Null() if there is no such flag.
func (s FlagsState) GetValue(key string) ldvalue.Value {
	return s.flags[key].value
}

// ToValuesMap returns every flag's recorded value, keyed by flag key.
func (s FlagsState) ToValuesMap() map[string]ldvalue.Value {
	out := make(map[string]ldvalue.Value, len(s.flags))
	for k, f := range s.flags {
		out[k] = f.value
	}
	return out
}

type flagStateMetadata struct {
	Variation            *int            `json:"variation,omitempty"`
	Version              int             `json:"version"`
	Reason               *ldmodel.Reason `json:"reason,omitempty"`
	TrackEvents          bool            `json:"trackEvents,omitempty"`
	TrackReason          bool            `json:"trackReason,omitempty"`
	DebugEventsUntilDate *uint64         `json:"debugEventsUntilDate,omitempty"`
}

// MarshalJSON produces {"<flagKey>": <value>, ..., "$flagsState": {...}, "$valid": bool},
// the shape a client-side SDK's bootstrap data expects.
func (s FlagsState) MarshalJSON() ([]byte, error) {
	values := make(map[string]ldvalue.Value, len(s.flags))
	meta := make(map[string]flagStateMetadata, len(s.flags))
	for key, f := range s.flags {
		values[key] = f.value
		m := flagStateMetadata{
			Version:              f.version,
			TrackEvents:          f.trackEvents,
			DebugEventsUntilDate: f.debugEventsUntilDate,
		}
		if f.variation.IsDefined() {
			v := f.variation.IntValue()
			m.Variation = &v
		}
		if f.reason.Kind != "" {
			r := f.reason
			m.Reason = &r
		}
		meta[key] = m
	}

	out := make(map[string]interface{}, len(values)+2)
	for k, v := range values {
		out[k] = v
	}
	out["$valid"] = s.valid
	out["$flagsState"] = meta
	return json.Marshal(out)
}

// AllFlagsState evaluates every known flag for context and returns a snapshot suitable for
// bootstrapping a client-side SDK. No analytics events are generated by this evaluation.
func (c *Client) AllFlagsState(context ldcontext.Context, options ...FlagsStateOption) FlagsState {
	var opts flagsStateOptions
	for _, o := range options {
		o.applyFlagsStateOption(&opts)
	}

	if c.offline {
		c.loggers.Warn("AllFlagsState called in offline mode; returning invalid state")
		return FlagsState{}
	}
	if !c.Initialized() {
		if !c.store.IsInitialized() {
			c.loggers.Warn("AllFlagsState called before client initialization; data store not available, returning invalid state")
			return FlagsState{}
		}
		c.loggers.Warn("AllFlagsState called before client initialization; using last known values from data store")
	}
	if !context.IsValid() {
		c.loggers.Warn("AllFlagsState called with an invalid context; returning invalid state")
		return FlagsState{}
	}

	items, err := c.store.GetAll(ldmodel.Features)
	if err != nil {
		c.loggers.Errorf("error fetching flags from data store: %s", err)
		return FlagsState{}
	}

	state := FlagsState{valid: true, flags: make(map[string]flagState, len(items))}
	for _, item := range items {
		flag, ok := item.Item.Item.(*ldmodel.Flag)
		if !ok {
			continue
		}
		if opts.clientSideOnly && !flag.ClientSide {
			continue
		}

		result := c.evaluator.Evaluate(flag, context, nil)

		fs := flagState{
			value:       result.Value,
			version:     flag.Version,
			trackEvents: flag.TrackEvents || result.ForceTrack,
		}
		if result.VariationIndex != ldmodel.NoVariation {
			fs.variation = ldvalue.NewOptionalInt(result.VariationIndex)
		}
		if flag.DebugEventsUntilDate != nil {
			fs.debugEventsUntilDate = flag.DebugEventsUntilDate
		}

		wantReason := opts.withReasons
		if wantReason && opts.detailsOnlyIfTracked && !fs.trackEvents && fs.debugEventsUntilDate == nil {
			wantReason = false
		}
		if wantReason {
			fs.reason = result.Reason
		}

		state.flags[flag.Key] = fs
	}

	return state
}
