package events

import "github.com/flagforge/flagforge-go/ldcontext"

// eventContextFormatter renders a Context into the wire shape used by feature/identify/index
// events, redacting private attributes. Unlike the teacher's formatter (which supports
// slash-delimited nested attribute references), this module's Context only exposes flat,
// top-level attributes per kind, so redaction only ever operates at that one level.
type eventContextFormatter struct {
	allAttributesPrivate bool
	privateAttributes    map[string]struct{}
}

func newEventContextFormatter(cfg Config) eventContextFormatter {
	var private map[string]struct{}
	if len(cfg.PrivateAttributes) > 0 {
		private = make(map[string]struct{}, len(cfg.PrivateAttributes))
		for _, a := range cfg.PrivateAttributes {
			private[a] = struct{}{}
		}
	}
	return eventContextFormatter{allAttributesPrivate: cfg.AllAttributesPrivate, privateAttributes: private}
}

// format renders context as either a single-kind or multi-kind context envelope, matching
// how the teacher's events service expects contexts to be embedded in event payloads.
func (f eventContextFormatter) format(context ldcontext.Context) map[string]interface{} {
	kinds := context.Kinds()
	if len(kinds) == 1 {
		return f.formatKind(kinds[0], true)
	}
	multi := map[string]interface{}{"kind": "multi"}
	for _, k := range kinds {
		multi[k.Kind] = f.formatKind(k, false)
	}
	return multi
}

func (f eventContextFormatter) formatKind(k ldcontext.KindAttr, includeKind bool) map[string]interface{} {
	out := map[string]interface{}{"key": k.Key}
	if includeKind {
		out["kind"] = k.Kind
	}
	if k.Anonymous {
		out["anonymous"] = true
	}

	var redacted []string
	for name, value := range k.Attributes {
		if f.isPrivate(name) {
			redacted = append(redacted, name)
			continue
		}
		out[name] = value
	}
	if len(redacted) > 0 {
		out["_meta"] = map[string]interface{}{"redactedAttributes": redacted}
	}
	return out
}

func (f eventContextFormatter) isPrivate(name string) bool {
	if f.allAttributesPrivate {
		return true
	}
	if f.privateAttributes == nil {
		return false
	}
	_, ok := f.privateAttributes[name]
	return ok
}
