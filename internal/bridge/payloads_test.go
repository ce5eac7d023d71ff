package bridge

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dm/tdarrmon/internal/client"
	"github.com/dm/tdarrmon/internal/engine"
	"github.com/dm/tdarrmon/internal/model"
)

func newTestBridge() *Bridge {
	return &Bridge{
		projections:     engine.DefaultProjections(),
		topicPrefix:     "tdarrmon",
		discoveryPrefix: "homeassistant",
		log:             zerolog.Nop(),
	}
}

func testSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Server: client.Status{Status: "good", Version: "2.17.01"},
		Nodes: map[string]client.Node{
			"My Node": {
				ID:     "id-1",
				Name:   "My Node",
				Paused: false,
				WorkerLimits: map[string]int{
					client.WorkerTypeTranscodeCPU: 2,
				},
				Workers: map[string]client.Worker{
					"w1": {Type: client.WorkerTypeTranscodeCPU, FPS: 24},
				},
			},
		},
		Stats:       client.Stats{SpaceSavedGB: 100.456, TotalFileCount: 900},
		StagedCount: 4,
		Libraries: map[string]model.Library{
			model.AllLibrariesKey: {Name: "All", PieStats: client.PieStats{TotalFiles: 900, SpaceSavedGB: 100.456}},
			"lib1":                {Name: "Movies", PieStats: client.PieStats{TotalFiles: 500, SpaceSavedGB: 60.1}},
		},
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "my_node", slugify("My Node"))
	assert.Equal(t, "node_1", slugify("node-1"))
	assert.Equal(t, "plain", slugify("plain"))
}

func TestParseOnOff(t *testing.T) {
	for payload, want := range map[string]bool{
		"ON": true, "on": true, "1": true, "true": true,
		"OFF": false, "off": false, "0": false, "false": false,
	} {
		got, ok := parseOnOff(payload)
		require.True(t, ok, payload)
		assert.Equal(t, want, got, payload)
	}

	_, ok := parseOnOff("maybe")
	assert.False(t, ok)
}

func TestParseNodeCommandTopic(t *testing.T) {
	slug, wt, ok := parseNodeCommandTopic("tdarrmon", "tdarrmon/node/my_node/paused/set")
	require.True(t, ok)
	assert.Equal(t, "my_node", slug)
	assert.Empty(t, wt)

	slug, wt, ok = parseNodeCommandTopic("tdarrmon", "tdarrmon/node/my_node/worker_limit/transcodecpu/set")
	require.True(t, ok)
	assert.Equal(t, "my_node", slug)
	assert.Equal(t, "transcodecpu", wt)

	_, _, ok = parseNodeCommandTopic("tdarrmon", "tdarrmon/server/pause_all/set")
	assert.False(t, ok)
	_, _, ok = parseNodeCommandTopic("tdarrmon", "tdarrmon/node/x/bogus/set")
	assert.False(t, ok)
}

func TestTopics(t *testing.T) {
	b := newTestBridge()
	assert.Equal(t, "tdarrmon/bridge/availability", b.availabilityTopic())
	assert.Equal(t, "tdarrmon/server/state", b.serverStateTopic())
	assert.Equal(t, "tdarrmon/node/my_node/state", b.nodeStateTopic("My Node"))
	assert.Equal(t, "tdarrmon/library/all/state", b.libraryStateTopic(model.AllLibrariesKey))
	assert.Equal(t, "tdarrmon/library/lib1/state", b.libraryStateTopic("lib1"))
}

func TestServerStatePayload(t *testing.T) {
	b := newTestBridge()
	payload, err := b.serverStatePayload(testSnapshot())
	require.NoError(t, err)

	var state map[string]any
	require.NoError(t, json.Unmarshal(payload, &state))
	assert.Equal(t, 24.0, state["total_fps"])
	assert.Equal(t, 100.46, state["space_saved_gb"])
	assert.Equal(t, 4.0, state["staged_count"])
	assert.Equal(t, false, state["pause_all"])
}

func TestNodeStatePayload(t *testing.T) {
	node := testSnapshot().Nodes["My Node"]
	payload, err := nodeStatePayload(node)
	require.NoError(t, err)

	var state nodeState
	require.NoError(t, json.Unmarshal(payload, &state))
	assert.Equal(t, "My Node", state.Name)
	assert.Equal(t, 24.0, state.TotalFPS)
	assert.Equal(t, 24.0, state.TranscodeFPS)
	assert.Zero(t, state.HealthcheckFPS)
	assert.Equal(t, 1, state.Workers)
	assert.Nil(t, state.CPUPercent, "no resStats means no cpu figure")
	assert.Nil(t, state.MemoryPercent)
}

func TestLibraryStatePayload(t *testing.T) {
	lib := testSnapshot().Libraries["lib1"]
	payload, err := libraryStatePayload(lib)
	require.NoError(t, err)

	var state libraryState
	require.NoError(t, json.Unmarshal(payload, &state))
	assert.Equal(t, "Movies", state.Name)
	assert.Equal(t, 500, state.TotalFiles)
	assert.Equal(t, 60.1, state.SpaceSavedGB)
	assert.Equal(t, 60.0, state.SpaceSavedGBRounded)
}

func TestDiscoveryMessages(t *testing.T) {
	b := newTestBridge()
	msgs := b.discoveryMessages(testSnapshot())
	require.NotEmpty(t, msgs)

	topics := make(map[string]discoveryConfig, len(msgs))
	for _, msg := range msgs {
		var cfg discoveryConfig
		require.NoError(t, json.Unmarshal(msg.Payload, &cfg), msg.Topic)
		topics[msg.Topic] = cfg
	}

	fps, ok := topics["homeassistant/sensor/tdarrmon/total_fps/config"]
	require.True(t, ok)
	assert.Equal(t, "tdarrmon/server/state", fps.StateTopic)
	assert.Equal(t, "tdarrmon/bridge/availability", fps.AvailabilityTopic)
	assert.Equal(t, "tdarrmon_total_fps", fps.UniqueID)
	assert.Equal(t, "2.17.01", fps.Device.SWVersion)

	paused, ok := topics["homeassistant/switch/tdarrmon/node_my_node_paused/config"]
	require.True(t, ok)
	assert.Equal(t, "tdarrmon/node/my_node/paused/set", paused.CommandTopic)

	limit, ok := topics["homeassistant/number/tdarrmon/node_my_node_limit_transcodecpu/config"]
	require.True(t, ok)
	assert.Equal(t, "tdarrmon/node/my_node/worker_limit/transcodecpu/set", limit.CommandTopic)
	require.NotNil(t, limit.Min)
	assert.Equal(t, 0, *limit.Min)

	_, ok = topics["homeassistant/sensor/tdarrmon/library_all_files/config"]
	assert.True(t, ok)
	_, ok = topics["homeassistant/switch/tdarrmon/pause_all/config"]
	assert.True(t, ok)
}

func TestDiscoveryMessages_NilSnapshot(t *testing.T) {
	assert.Nil(t, newTestBridge().discoveryMessages(nil))
}
