// Package ldstoretypes defines the generic shapes that the data store, persistent-store
// wrapper, and data-source update sink all speak: kind-tagged item descriptors, with no
// knowledge of the Flag/Segment types themselves. This indirection is what lets a single
// persistent-store wrapper cache both flags and segments without depending on ldmodel.
package ldstoretypes

// DataKind is a namespace tag (e.g. "features", "segments") that also knows how to
// serialize/deserialize items of its kind to/from bytes for a persistent store backend.
type DataKind interface {
	GetName() string
	Serialize(item ItemDescriptor) []byte
	Deserialize(data []byte) (ItemDescriptor, error)
}

// ItemDescriptor pairs a version with a decoded item. A nil Item with a non-zero Version
// is a tombstone: a placeholder recording that this key was deleted at that version.
type ItemDescriptor struct {
	Version int
	Item    interface{}
}

// NotFound returns a zero-version, nil-item descriptor representing "no such key."
func (ItemDescriptor) NotFound() ItemDescriptor { return ItemDescriptor{} }

// KeyedItemDescriptor is an ItemDescriptor together with the key it was stored under.
type KeyedItemDescriptor struct {
	Key  string
	Item ItemDescriptor
}

// Collection is every known item of one DataKind, in the order a backend should write them
// (see the persistent-store wrapper's dependency-ordered Init).
type Collection struct {
	Kind  DataKind
	Items []KeyedItemDescriptor
}

// SerializedItemDescriptor is the wire/backend form of an ItemDescriptor: version, deletion
// flag, and opaque serialized bytes (nil for a tombstone).
type SerializedItemDescriptor struct {
	Version        int
	Deleted        bool
	SerializedItem []byte
}

// KeyedSerializedItemDescriptor is a SerializedItemDescriptor together with its key.
type KeyedSerializedItemDescriptor struct {
	Key  string
	Item SerializedItemDescriptor
}

// SerializedCollection is every known item of one DataKind in serialized form, used when
// initializing a persistent backend.
type SerializedCollection struct {
	Kind  DataKind
	Items []KeyedSerializedItemDescriptor
}
