package ldmodel

import (
	"encoding/json"

	st "github.com/flagforge/flagforge-go/subsystems/ldstoretypes"
)

type featureFlagDataKind struct{}
type segmentDataKind struct{}

// Features is the DataKind for feature flags.
var Features st.DataKind = featureFlagDataKind{}

// Segments is the DataKind for segments.
var Segments st.DataKind = segmentDataKind{}

// AllDataKinds returns every supported DataKind, in dependency order (segments before
// flags, since flags can reference segments but not vice versa).
func AllDataKinds() []st.DataKind { return []st.DataKind{Segments, Features} }

func (featureFlagDataKind) GetName() string { return "features" }

func (featureFlagDataKind) Serialize(item st.ItemDescriptor) []byte {
	if item.Item == nil {
		b, _ := json.Marshal(Flag{Version: item.Version, Deleted: true})
		return b
	}
	if flag, ok := item.Item.(*Flag); ok {
		b, _ := json.Marshal(flag)
		return b
	}
	return nil
}

func (featureFlagDataKind) Deserialize(data []byte) (st.ItemDescriptor, error) {
	var flag Flag
	if err := json.Unmarshal(data, &flag); err != nil {
		return st.ItemDescriptor{}, err
	}
	if flag.Deleted {
		return st.ItemDescriptor{Version: flag.Version, Item: nil}, nil
	}
	flag.Preprocess()
	return st.ItemDescriptor{Version: flag.Version, Item: &flag}, nil
}

func (segmentDataKind) GetName() string { return "segments" }

func (segmentDataKind) Serialize(item st.ItemDescriptor) []byte {
	if item.Item == nil {
		b, _ := json.Marshal(Segment{Version: item.Version, Deleted: true})
		return b
	}
	if seg, ok := item.Item.(*Segment); ok {
		b, _ := json.Marshal(seg)
		return b
	}
	return nil
}

func (segmentDataKind) Deserialize(data []byte) (st.ItemDescriptor, error) {
	var seg Segment
	if err := json.Unmarshal(data, &seg); err != nil {
		return st.ItemDescriptor{}, err
	}
	if seg.Deleted {
		return st.ItemDescriptor{Version: seg.Version, Item: nil}, nil
	}
	for i := range seg.Rules {
		for j := range seg.Rules[i].Clauses {
			seg.Rules[i].Clauses[j].Preprocess()
		}
	}
	return st.ItemDescriptor{Version: seg.Version, Item: &seg}, nil
}
