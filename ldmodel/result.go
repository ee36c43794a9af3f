package ldmodel

import "github.com/flagforge/flagforge-go/ldvalue"

// ReasonKind identifies why an evaluation produced the variation it did.
type ReasonKind string

// The recognized reason kinds.
const (
	ReasonOff                ReasonKind = "OFF"
	ReasonFallthrough        ReasonKind = "FALLTHROUGH"
	ReasonTargetMatch        ReasonKind = "TARGET_MATCH"
	ReasonRuleMatch          ReasonKind = "RULE_MATCH"
	ReasonPrerequisiteFailed ReasonKind = "PREREQUISITE_FAILED"
	ReasonError              ReasonKind = "ERROR"
)

// ErrorKind identifies the failure category of an ERROR reason.
type ErrorKind string

// The recognized error kinds.
const (
	ErrorClientNotReady  ErrorKind = "CLIENT_NOT_READY"
	ErrorFlagNotFound    ErrorKind = "FLAG_NOT_FOUND"
	ErrorMalformedFlag   ErrorKind = "MALFORMED_FLAG"
	ErrorUserNotSpecified ErrorKind = "USER_NOT_SPECIFIED"
	ErrorWrongType       ErrorKind = "WRONG_TYPE"
	ErrorException       ErrorKind = "EXCEPTION"
)

// BigSegmentsStatus describes the health of a big-segment query consulted during evaluation.
type BigSegmentsStatus string

// The recognized big-segment status tags.
const (
	BigSegmentsHealthy      BigSegmentsStatus = "HEALTHY"
	BigSegmentsStale        BigSegmentsStatus = "STALE"
	BigSegmentsNotConfigured BigSegmentsStatus = "NOT_CONFIGURED"
	BigSegmentsStoreError   BigSegmentsStatus = "STORE_ERROR"
)

// Reason is the full explanation attached to a Result.
type Reason struct {
	Kind              ReasonKind        `json:"kind"`
	RuleIndex         int               `json:"ruleIndex,omitempty"`
	RuleID            string            `json:"ruleId,omitempty"`
	PrerequisiteKey   string            `json:"prerequisiteKey,omitempty"`
	ErrorKind         ErrorKind         `json:"errorKind,omitempty"`
	InExperiment      bool              `json:"inExperiment,omitempty"`
	BigSegmentsStatus BigSegmentsStatus `json:"bigSegmentsStatus,omitempty"`
}

// Result is the outcome of evaluating a flag: the selected value and variation index (or
// NoVariation), plus the Reason it was selected. Results produced by Flag.Preprocess are
// immutable and safe to reuse by pointer identity across evaluations.
type Result struct {
	Value          ldvalue.Value
	VariationIndex int
	Reason         Reason
	// ForceTrack propagates from experiment participation or a rule/fallthrough's
	// trackEvents flag: when true, this evaluation must be individually reported in
	// analytics even if the flag's own trackEvents is false.
	ForceTrack bool
}

// NoVariation marks a Result that did not resolve to any of the flag's variation indices.
const NoVariation = -1
