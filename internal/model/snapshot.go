package model

import (
	"sort"
	"time"

	"github.com/dm/tdarrmon/internal/client"
)

// AllLibrariesKey is the synthetic library key for the server-wide aggregate.
// Real library ids are never empty, so it cannot collide.
const AllLibrariesKey = ""

// Library is one entry in Snapshot.Libraries: the library's display name
// merged with its pie breakdown statistics.
type Library struct {
	Name string `json:"name"`
	client.PieStats
}

// Snapshot holds the merged results of a single poll cycle across all six
// data sources. It is immutable once published; the coordinator replaces the
// retained snapshot wholesale, never mutates it.
type Snapshot struct {
	Server         client.Status          `json:"server"`
	Nodes          map[string]client.Node `json:"nodes"`
	Stats          client.Stats           `json:"stats"`
	StagedCount    int                    `json:"stagedCount"`
	Libraries      map[string]Library     `json:"libraries"`
	GlobalSettings client.GlobalSettings  `json:"globalSettings"`
	FetchedAt      time.Time              `json:"fetchedAt"`
}

// NodeKeys returns the snapshot's node keys in sorted order.
func (s *Snapshot) NodeKeys() []string {
	keys := make([]string, 0, len(s.Nodes))
	for k := range s.Nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewNodeKeys returns the node keys present in curr but not in prev, sorted.
// Keys that disappeared are deliberately not reported: an offline node should
// not force consumers to rebuild their entity sets.
func NewNodeKeys(prev, curr *Snapshot) []string {
	if curr == nil {
		return nil
	}
	var added []string
	for k := range curr.Nodes {
		if prev == nil {
			continue
		}
		if _, ok := prev.Nodes[k]; !ok {
			added = append(added, k)
		}
	}
	sort.Strings(added)
	return added
}
