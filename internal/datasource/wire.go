package datasource

import (
	"encoding/json"
	"strings"

	"github.com/flagforge/flagforge-go/ldmodel"
	st "github.com/flagforge/flagforge-go/subsystems/ldstoretypes"
)

// wireData is the shape of a polling response body and of a streaming "put" event's data
// field: a map of flag keys to flags and segment keys to segments, per spec.md's wire shape.
type wireData struct {
	Flags    map[string]json.RawMessage `json:"flags"`
	Segments map[string]json.RawMessage `json:"segments"`
}

func parseAllData(data []byte) ([]st.Collection, error) {
	var w wireData
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, malformedJSONError{err}
	}
	var out []st.Collection
	if len(w.Flags) > 0 {
		coll := st.Collection{Kind: ldmodel.Features}
		for key, raw := range w.Flags {
			item, err := ldmodel.Features.Deserialize(raw)
			if err != nil {
				return nil, malformedJSONError{err}
			}
			coll.Items = append(coll.Items, st.KeyedItemDescriptor{Key: key, Item: item})
		}
		out = append(out, coll)
	}
	if len(w.Segments) > 0 {
		coll := st.Collection{Kind: ldmodel.Segments}
		for key, raw := range w.Segments {
			item, err := ldmodel.Segments.Deserialize(raw)
			if err != nil {
				return nil, malformedJSONError{err}
			}
			coll.Items = append(coll.Items, st.KeyedItemDescriptor{Key: key, Item: item})
		}
		out = append(out, coll)
	}
	return out, nil
}

// putData is the parsed body of a streaming "put" event.
type putData struct {
	Data []st.Collection
}

func parsePutData(raw []byte) (putData, error) {
	var envelope struct {
		Data wireData `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return putData{}, malformedJSONError{err}
	}
	body, err := json.Marshal(envelope.Data)
	if err != nil {
		return putData{}, malformedJSONError{err}
	}
	coll, err := parseAllData(body)
	if err != nil {
		return putData{}, err
	}
	return putData{Data: coll}, nil
}

// patchData is the parsed body of a streaming "patch" event: one upserted item.
type patchData struct {
	Kind st.DataKind
	Key  string
	Data st.ItemDescriptor
}

func parsePatchData(raw []byte) (patchData, error) {
	var envelope struct {
		Path string          `json:"path"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return patchData{}, malformedJSONError{err}
	}
	kind, key := parsePath(envelope.Path)
	if kind == nil {
		return patchData{}, nil
	}
	item, err := kind.Deserialize(envelope.Data)
	if err != nil {
		return patchData{}, malformedJSONError{err}
	}
	return patchData{Kind: kind, Key: key, Data: item}, nil
}

// deleteData is the parsed body of a streaming "delete" event: a tombstone for one item.
type deleteData struct {
	Kind    st.DataKind
	Key     string
	Version int
}

func parseDeleteData(raw []byte) (deleteData, error) {
	var envelope struct {
		Path    string `json:"path"`
		Version int    `json:"version"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return deleteData{}, malformedJSONError{err}
	}
	kind, key := parsePath(envelope.Path)
	if kind == nil {
		return deleteData{}, nil
	}
	return deleteData{Kind: kind, Key: key, Version: envelope.Version}, nil
}

func parsePath(path string) (st.DataKind, string) {
	switch {
	case strings.HasPrefix(path, "/segments/"):
		return ldmodel.Segments, strings.TrimPrefix(path, "/segments/")
	case strings.HasPrefix(path, "/flags/"):
		return ldmodel.Features, strings.TrimPrefix(path, "/flags/")
	default:
		return nil, ""
	}
}
