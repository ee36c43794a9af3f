package datastore

import (
	"github.com/flagforge/flagforge-go/internal/toposort"
	"github.com/flagforge/flagforge-go/ldmodel"
	st "github.com/flagforge/flagforge-go/subsystems/ldstoretypes"
)

// OrderForInit returns allData with the Features collection's items reordered so that every
// prerequisite flag precedes the flags that depend on it, and with the Segments collection
// (which flags may reference but never the reverse) placed first. A backend whose Init call
// isn't atomic can then write collections and items in this order and never expose a
// dangling prerequisite or segment reference to a concurrent reader.
func OrderForInit(allData []st.Collection) []st.Collection {
	out := make([]st.Collection, 0, len(allData))
	var segments, features *st.Collection
	for i := range allData {
		switch allData[i].Kind {
		case ldmodel.Segments:
			segments = &allData[i]
		case ldmodel.Features:
			features = &allData[i]
		default:
			out = append(out, allData[i])
		}
	}
	if segments != nil {
		out = append(out, *segments)
	}
	if features != nil {
		ordered := toposort.Sort(features.Items, flagDependencyKeys)
		out = append(out, st.Collection{Kind: features.Kind, Items: ordered})
	}
	return out
}

func flagDependencyKeys(item st.ItemDescriptor) []string {
	flag, ok := item.Item.(*ldmodel.Flag)
	if !ok {
		return nil
	}
	return flag.PrerequisiteKeys()
}
