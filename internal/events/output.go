package events

// eventOutputFormatter turns buffered Events and a summary snapshot into the JSON-ready
// envelope array posted to the events service's /bulk endpoint.
type eventOutputFormatter struct {
	contextFormatter eventContextFormatter
	inlineContexts   bool
}

func newEventOutputFormatter(cfg Config) eventOutputFormatter {
	return eventOutputFormatter{
		contextFormatter: newEventContextFormatter(cfg),
		inlineContexts:   cfg.InlineContextsInEvents,
	}
}

// makeOutputEvents renders events and, if non-empty, a trailing summary event.
func (f eventOutputFormatter) makeOutputEvents(events []Event, summary eventSummaryData) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(events)+1)
	for _, e := range events {
		if rendered := f.renderEvent(e); rendered != nil {
			out = append(out, rendered)
		}
	}
	if !summary.empty() {
		out = append(out, f.renderSummary(summary))
	}
	return out
}

func (f eventOutputFormatter) renderEvent(e Event) map[string]interface{} {
	switch evt := e.(type) {
	case FeatureRequestEvent:
		kind := "feature"
		if evt.Debug {
			kind = "debug"
		}
		out := map[string]interface{}{
			"kind":         kind,
			"creationDate": evt.CreationDate,
			"key":          evt.Key,
			"value":        evt.Value,
			"default":      evt.Default,
			"context":      f.contextFormatter.format(evt.Context),
		}
		if v, ok := evt.Version.Get(); ok {
			out["version"] = v
		}
		if v, ok := evt.Variation.Get(); ok {
			out["variation"] = v
		}
		if evt.Reason.Kind != "" {
			out["reason"] = evt.Reason
		}
		return out
	case IdentifyEvent:
		return map[string]interface{}{
			"kind":         "identify",
			"creationDate": evt.CreationDate,
			"context":      f.contextFormatter.format(evt.Context),
		}
	case IndexEvent:
		return map[string]interface{}{
			"kind":         "index",
			"creationDate": evt.CreationDate,
			"context":      f.contextFormatter.format(evt.Context),
		}
	case CustomEvent:
		out := map[string]interface{}{
			"kind":         "custom",
			"creationDate": evt.CreationDate,
			"key":          evt.Key,
			"context":      f.contextFormatter.format(evt.Context),
		}
		if !evt.Data.IsNull() {
			out["data"] = evt.Data
		}
		if evt.HasMetric {
			out["metricValue"] = evt.MetricValue
		}
		return out
	default:
		return nil
	}
}

func (f eventOutputFormatter) renderSummary(summary eventSummaryData) map[string]interface{} {
	flags := make(map[string]interface{}, len(summary.flags))
	for key, fs := range summary.flags {
		counters := make([]map[string]interface{}, 0, len(fs.counters))
		for ck, cv := range fs.counters {
			c := map[string]interface{}{"value": cv.value, "count": cv.count}
			if v, ok := ck.variation.Get(); ok {
				c["variation"] = v
			}
			if v, ok := ck.version.Get(); ok {
				c["version"] = v
			} else {
				c["unknown"] = true
			}
			counters = append(counters, c)
		}
		kinds := make([]string, 0, len(fs.contextKinds))
		for k := range fs.contextKinds {
			kinds = append(kinds, k)
		}
		flags[key] = map[string]interface{}{
			"default":      fs.defaultValue,
			"counters":     counters,
			"contextKinds": kinds,
		}
	}
	return map[string]interface{}{
		"kind":      "summary",
		"startDate": summary.startDate,
		"endDate":   summary.endDate,
		"features":  flags,
	}
}
