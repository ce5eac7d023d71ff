package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dm/tdarrmon/internal/client"
)

func snapWithNodes(keys ...string) *Snapshot {
	nodes := make(map[string]client.Node, len(keys))
	for _, k := range keys {
		nodes[k] = client.Node{Name: k}
	}
	return &Snapshot{Nodes: nodes}
}

func TestNodeKeysSorted(t *testing.T) {
	s := snapWithNodes("zeta", "alpha", "mid")
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, s.NodeKeys())
}

func TestNewNodeKeysDetectsAdditions(t *testing.T) {
	prev := snapWithNodes("X", "Y")
	curr := snapWithNodes("X", "Y", "Z")
	assert.Equal(t, []string{"Z"}, NewNodeKeys(prev, curr))
}

func TestNewNodeKeysIgnoresRemovals(t *testing.T) {
	prev := snapWithNodes("X", "Y")
	curr := snapWithNodes("X")
	assert.Empty(t, NewNodeKeys(prev, curr))
}

func TestNewNodeKeysFirstSnapshotIsNotStructuralChange(t *testing.T) {
	curr := snapWithNodes("X", "Y")
	assert.Empty(t, NewNodeKeys(nil, curr))
}

func TestNewNodeKeysUnchangedSet(t *testing.T) {
	prev := snapWithNodes("X", "Y")
	curr := snapWithNodes("Y", "X")
	assert.Empty(t, NewNodeKeys(prev, curr))
}
