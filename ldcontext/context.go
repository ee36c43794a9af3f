// Package ldcontext defines the evaluation context: the subject of a flag evaluation,
// possibly composed of several named "kinds" (user, device, organization, ...) each with
// their own key and attributes.
package ldcontext

import "github.com/flagforge/flagforge-go/ldvalue"

// DefaultKind is the implicit kind used by the legacy single-kind "user" context and by
// the first generation of targets/rollouts that predate multi-kind contexts.
const DefaultKind = "user"

// KindAttr is a single named kind within a Context: a key plus arbitrary attributes.
type KindAttr struct {
	Kind       string
	Key        string
	Anonymous  bool
	Attributes map[string]ldvalue.Value
}

// GetAttribute fetches a top-level attribute by name, or the key/kind pseudo-attributes.
func (k KindAttr) GetAttribute(name string) (ldvalue.Value, bool) {
	switch name {
	case "key":
		return ldvalue.String(k.Key), true
	case "kind":
		return ldvalue.String(k.Kind), true
	case "anonymous":
		return ldvalue.Bool(k.Anonymous), true
	default:
		v, ok := k.Attributes[name]
		return v, ok
	}
}

// Context is an evaluation context composed of one or more kinds.
type Context struct {
	kinds []KindAttr
	valid bool
}

// New builds a single-kind "user" context from a key.
func New(key string) Context {
	return Context{valid: key != "", kinds: []KindAttr{{Kind: DefaultKind, Key: key}}}
}

// NewWithKind builds a single-kind context.
func NewWithKind(kind, key string) Context {
	return Context{valid: key != "" && kind != "", kinds: []KindAttr{{Kind: kind, Key: key}}}
}

// NewMulti combines several single-kind contexts into one multi-kind context.
func NewMulti(kinds ...KindAttr) Context {
	if len(kinds) == 0 {
		return Context{}
	}
	seen := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		if k.Kind == "" || k.Key == "" || seen[k.Kind] {
			return Context{}
		}
		seen[k.Kind] = true
	}
	return Context{valid: true, kinds: append([]KindAttr(nil), kinds...)}
}

// IsValid reports whether this context was built with at least one well-formed kind.
func (c Context) IsValid() bool { return c.valid && len(c.kinds) > 0 }

// Key returns the default (first/"user") context's key, or "" if there is none.
func (c Context) Key() string {
	if individual, ok := c.IndividualContext(DefaultKind); ok {
		return individual.Key
	}
	if len(c.kinds) > 0 {
		return c.kinds[0].Key
	}
	return ""
}

// IndividualContext returns the single kind matching the given kind name.
func (c Context) IndividualContext(kind string) (KindAttr, bool) {
	for _, k := range c.kinds {
		if k.Kind == kind {
			return k, true
		}
	}
	return KindAttr{}, false
}

// Kinds returns every kind present in this context.
func (c Context) Kinds() []KindAttr { return c.kinds }

// FullyQualifiedKey is a stable identity string for the whole context, used for analytics
// deduplication. For a single default-kind context it is just the key (back-compat with
// the legacy "user" identity); for anything else it's "kind1:key1:kind2:key2..." in kind
// order, sorted so ordering of NewMulti's arguments doesn't matter.
func (c Context) FullyQualifiedKey() string {
	if !c.IsValid() {
		return ""
	}
	if len(c.kinds) == 1 && c.kinds[0].Kind == DefaultKind {
		return c.kinds[0].Key
	}
	sorted := append([]KindAttr(nil), c.kinds...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].Kind > sorted[j].Kind; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	out := ""
	for i, k := range sorted {
		if i > 0 {
			out += ":"
		}
		out += k.Kind + ":" + k.Key
	}
	return out
}
