package views

import (
	"slices"

	"github.com/malbeclabs/viewgen/generator/pkg/schema"
)

// OmitViews are view ids never generated.
var OmitViews = map[string]bool{
	"deletion_request": true,
}

// Channel is one release channel of a namespace and the dataset holding its
// views.
type Channel struct {
	Channel string `yaml:"channel,omitempty"`
	Dataset string `yaml:"dataset"`
}

// DiscoverPingViews finds the ping views of a namespace across its channels.
// Only views that directly alias a single table of the channel's stable
// dataset are considered ping views. Same-named views of different channels
// become one multi-channel definition, in order of first appearance.
//
// Glean namespaces only yield glean ping views and other namespaces only plain
// ping views; any other viewType yields nothing.
func DiscoverPingViews(viewType string, isGlean bool, namespace, appName string, channels []Channel, dbViews schema.DBViews) []Definition {
	switch viewType {
	case TypeGleanPingView:
		if !isGlean {
			return nil
		}
	case TypePingView:
		if isGlean {
			return nil
		}
	default:
		return nil
	}

	var order []string
	tables := make(map[string][]Table)
	for _, ch := range channels {
		views := dbViews[ch.Dataset]
		ids := make([]string, 0, len(views))
		for id := range views {
			ids = append(ids, id)
		}
		slices.Sort(ids)

		for _, id := range ids {
			if OmitViews[id] || !isStableAlias(ch.Dataset, views[id]) {
				continue
			}
			if _, ok := tables[id]; !ok {
				order = append(order, id)
			}
			tables[id] = append(tables[id], Table{Channel: ch.Channel, Table: ch.Dataset + "." + id})
		}
	}

	defs := make([]Definition, 0, len(order))
	for _, id := range order {
		defs = append(defs, Definition{
			Name:      id,
			Type:      viewType,
			Namespace: namespace,
			AppName:   appName,
			Tables:    tables[id],
		})
	}
	return defs
}

// isStableAlias reports whether references is exactly one table of the
// dataset's "_stable" companion dataset.
func isStableAlias(dataset string, references [][]string) bool {
	if len(references) != 1 {
		return false
	}
	ref := references[0]
	return len(ref) >= 2 && ref[len(ref)-2] == dataset+"_stable"
}
