package bridge

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/dm/tdarrmon/internal/client"
	"github.com/dm/tdarrmon/internal/engine"
	"github.com/dm/tdarrmon/internal/model"
)

// Topic layout under the configured prefix:
//
//	{prefix}/bridge/availability            online | offline
//	{prefix}/server/state                   JSON projection map
//	{prefix}/node/{key}/state               JSON per-node state
//	{prefix}/library/{id}/state             JSON per-library state
//	{prefix}/server/pause_all/set           ON | OFF
//	{prefix}/server/ignore_schedules/set    ON | OFF
//	{prefix}/node/{key}/paused/set          ON | OFF
//	{prefix}/node/{key}/worker_limit/{type}/set   integer
func (b *Bridge) availabilityTopic() string {
	return b.topicPrefix + "/bridge/availability"
}

func (b *Bridge) serverStateTopic() string {
	return b.topicPrefix + "/server/state"
}

func (b *Bridge) nodeStateTopic(key string) string {
	return b.topicPrefix + "/node/" + slugify(key) + "/state"
}

func (b *Bridge) libraryStateTopic(id string) string {
	if id == model.AllLibrariesKey {
		id = "all"
	}
	return b.topicPrefix + "/library/" + slugify(id) + "/state"
}

// nodeState is the retained per-node state payload.
type nodeState struct {
	Name           string         `json:"name"`
	Paused         bool           `json:"paused"`
	WorkerLimits   map[string]int `json:"workerLimits"`
	Workers        int            `json:"workers"`
	TotalFPS       float64        `json:"totalFps"`
	TranscodeFPS   float64        `json:"transcodeFps"`
	HealthcheckFPS float64        `json:"healthcheckFps"`
	CPUPercent     *float64       `json:"cpuPercent,omitempty"`
	MemoryPercent  *float64       `json:"memoryPercent,omitempty"`
}

// libraryState is the retained per-library state payload. SpaceSavedGB is
// the sensor state at two decimals; SpaceSavedGBRounded is the whole-number
// display attribute.
type libraryState struct {
	Name                string  `json:"name"`
	TotalFiles          int     `json:"totalFiles"`
	Transcodes          int     `json:"transcodes"`
	HealthChecks        int     `json:"healthChecks"`
	SpaceSavedGB        float64 `json:"spaceSavedGb"`
	SpaceSavedGBRounded float64 `json:"spaceSavedGbRounded"`
}

// serverStatePayload renders the projection map for the server state topic.
func (b *Bridge) serverStatePayload(snap *model.Snapshot) ([]byte, error) {
	values, errs := b.projections.EvaluateAll(snap)
	for name, err := range errs {
		b.log.Warn().Err(err).Str("projection", name).Msg("projection failed")
	}
	return json.Marshal(values)
}

func nodeStatePayload(node client.Node) ([]byte, error) {
	st := nodeState{
		Name:           node.Name,
		Paused:         node.Paused,
		WorkerLimits:   node.WorkerLimits,
		Workers:        len(node.Workers),
		TotalFPS:       engine.Round2(engine.NodeFPS(node, "")),
		TranscodeFPS:   engine.Round2(engine.NodeFPS(node, client.WorkerPrefixTranscode)),
		HealthcheckFPS: engine.Round2(engine.NodeFPS(node, client.WorkerPrefixHealthcheck)),
	}
	if v, ok := engine.CPUPercent(node); ok {
		v = engine.Round2(v)
		st.CPUPercent = &v
	}
	if v, ok := engine.MemoryPercent(node); ok {
		v = engine.Round2(v)
		st.MemoryPercent = &v
	}
	return json.Marshal(st)
}

func libraryStatePayload(lib model.Library) ([]byte, error) {
	return json.Marshal(libraryState{
		Name:                lib.Name,
		TotalFiles:          lib.TotalFiles,
		Transcodes:          lib.TotalTranscodes,
		HealthChecks:        lib.TotalHealthChecks,
		SpaceSavedGB:        engine.Round2(lib.SpaceSavedGB),
		SpaceSavedGBRounded: engine.Round0(lib.SpaceSavedGB),
	})
}

// discoveryMessage is one Home Assistant MQTT discovery config.
type discoveryMessage struct {
	Topic   string
	Payload []byte
}

// discoveryConfig is the subset of the Home Assistant discovery schema the
// bridge emits.
type discoveryConfig struct {
	Name              string     `json:"name"`
	UniqueID          string     `json:"unique_id"`
	StateTopic        string     `json:"state_topic"`
	CommandTopic      string     `json:"command_topic,omitempty"`
	ValueTemplate     string     `json:"value_template,omitempty"`
	UnitOfMeasurement string     `json:"unit_of_measurement,omitempty"`
	PayloadOn         string     `json:"payload_on,omitempty"`
	PayloadOff        string     `json:"payload_off,omitempty"`
	StateOn           string     `json:"state_on,omitempty"`
	StateOff          string     `json:"state_off,omitempty"`
	Min               *int       `json:"min,omitempty"`
	Max               *int       `json:"max,omitempty"`
	AvailabilityTopic string     `json:"availability_topic"`
	Device            deviceInfo `json:"device"`
}

type deviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

func (b *Bridge) device(snap *model.Snapshot) deviceInfo {
	d := deviceInfo{
		Identifiers:  []string{b.topicPrefix},
		Name:         "Tdarr",
		Manufacturer: "Tdarr",
		Model:        "Server",
	}
	if snap != nil {
		d.SWVersion = snap.Server.Version
	}
	return d
}

// discoveryMessages builds the full retained discovery config set for the
// entities derivable from snap. Called on startup and again whenever a
// structural change introduces new nodes.
func (b *Bridge) discoveryMessages(snap *model.Snapshot) []discoveryMessage {
	if snap == nil {
		return nil
	}
	dev := b.device(snap)
	var msgs []discoveryMessage

	add := func(component, objectID string, cfg discoveryConfig) {
		cfg.UniqueID = b.topicPrefix + "_" + objectID
		cfg.AvailabilityTopic = b.availabilityTopic()
		cfg.Device = dev
		payload, err := json.Marshal(cfg)
		if err != nil {
			b.log.Error().Err(err).Str("object", objectID).Msg("marshal discovery config")
			return
		}
		topic := fmt.Sprintf("%s/%s/%s/%s/config",
			b.discoveryPrefix, component, b.topicPrefix, objectID)
		msgs = append(msgs, discoveryMessage{Topic: topic, Payload: payload})
	}

	// Server-wide sensors over the projection map.
	serverSensors := []struct {
		id, name, field, unit string
	}{
		{"total_fps", "Total FPS", "total_fps", "fps"},
		{"transcode_fps", "Transcode FPS", "transcode_fps", "fps"},
		{"healthcheck_fps", "Health Check FPS", "healthcheck_fps", "fps"},
		{"node_count", "Nodes", "node_count", ""},
		{"staged_count", "Staged Files", "staged_count", ""},
		{"space_saved_gb", "Space Saved", "space_saved_gb", "GB"},
		{"total_file_count", "Total Files", "total_file_count", ""},
	}
	for _, s := range serverSensors {
		add("sensor", s.id, discoveryConfig{
			Name:              s.name,
			StateTopic:        b.serverStateTopic(),
			ValueTemplate:     fmt.Sprintf("{{ value_json.%s }}", s.field),
			UnitOfMeasurement: s.unit,
		})
	}

	// Global switches.
	add("switch", "pause_all", discoveryConfig{
		Name:          "Pause All Nodes",
		StateTopic:    b.serverStateTopic(),
		CommandTopic:  b.topicPrefix + "/server/pause_all/set",
		ValueTemplate: "{{ value_json.pause_all }}",
		PayloadOn:     "ON", PayloadOff: "OFF",
		StateOn: "True", StateOff: "False",
	})
	add("switch", "ignore_schedules", discoveryConfig{
		Name:          "Ignore Schedules",
		StateTopic:    b.serverStateTopic(),
		CommandTopic:  b.topicPrefix + "/server/ignore_schedules/set",
		ValueTemplate: "{{ value_json.ignore_schedules }}",
		PayloadOn:     "ON", PayloadOff: "OFF",
		StateOn: "True", StateOff: "False",
	})

	// Per-node entities.
	for _, key := range snap.NodeKeys() {
		slug := slugify(key)
		stateTopic := b.nodeStateTopic(key)

		add("sensor", "node_"+slug+"_fps", discoveryConfig{
			Name:              key + " FPS",
			StateTopic:        stateTopic,
			ValueTemplate:     "{{ value_json.totalFps }}",
			UnitOfMeasurement: "fps",
		})
		add("sensor", "node_"+slug+"_cpu", discoveryConfig{
			Name:              key + " CPU",
			StateTopic:        stateTopic,
			ValueTemplate:     "{{ value_json.cpuPercent }}",
			UnitOfMeasurement: "%",
		})
		add("sensor", "node_"+slug+"_memory", discoveryConfig{
			Name:              key + " Memory",
			StateTopic:        stateTopic,
			ValueTemplate:     "{{ value_json.memoryPercent }}",
			UnitOfMeasurement: "%",
		})
		add("switch", "node_"+slug+"_paused", discoveryConfig{
			Name:          key + " Paused",
			StateTopic:    stateTopic,
			CommandTopic:  b.topicPrefix + "/node/" + slug + "/paused/set",
			ValueTemplate: "{{ value_json.paused }}",
			PayloadOn:     "ON", PayloadOff: "OFF",
			StateOn: "True", StateOff: "False",
		})
		zero, hundred := 0, 100
		for _, wt := range client.WorkerTypes {
			add("number", "node_"+slug+"_limit_"+wt, discoveryConfig{
				Name:          fmt.Sprintf("%s %s Limit", key, wt),
				StateTopic:    stateTopic,
				CommandTopic:  b.topicPrefix + "/node/" + slug + "/worker_limit/" + wt + "/set",
				ValueTemplate: fmt.Sprintf("{{ value_json.workerLimits.%s }}", wt),
				Min:           &zero,
				Max:           &hundred,
			})
		}
	}

	// Per-library sensors.
	for id, lib := range snap.Libraries {
		slug := "library_" + slugify(displayLibraryID(id))
		add("sensor", slug+"_files", discoveryConfig{
			Name:          lib.Name + " Files",
			StateTopic:    b.libraryStateTopic(id),
			ValueTemplate: "{{ value_json.totalFiles }}",
		})
		add("sensor", slug+"_space_saved", discoveryConfig{
			Name:              lib.Name + " Space Saved",
			StateTopic:        b.libraryStateTopic(id),
			ValueTemplate:     "{{ value_json.spaceSavedGb }}",
			UnitOfMeasurement: "GB",
		})
	}

	return msgs
}

func displayLibraryID(id string) string {
	if id == model.AllLibrariesKey {
		return "all"
	}
	return id
}

// slugify lowercases and replaces separator characters so names are safe in
// topic paths and Home Assistant object ids.
func slugify(s string) string {
	var buf strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			buf.WriteRune(r)
		default:
			buf.WriteByte('_')
		}
	}
	return buf.String()
}

// parseOnOff maps the HA switch payloads to a bool.
func parseOnOff(payload string) (bool, bool) {
	switch strings.ToUpper(strings.TrimSpace(payload)) {
	case "ON", "TRUE", "1":
		return true, true
	case "OFF", "FALSE", "0":
		return false, true
	}
	return false, false
}
