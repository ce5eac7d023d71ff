package client

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"
)

// Worker type tags as reported by the server in workerLimits and workerType.
const (
	WorkerTypeHealthcheckCPU = "healthcheckcpu"
	WorkerTypeHealthcheckGPU = "healthcheckgpu"
	WorkerTypeTranscodeCPU   = "transcodecpu"
	WorkerTypeTranscodeGPU   = "transcodegpu"
)

// WorkerTypes lists every worker type tag the server understands.
var WorkerTypes = []string{
	WorkerTypeHealthcheckCPU,
	WorkerTypeHealthcheckGPU,
	WorkerTypeTranscodeCPU,
	WorkerTypeTranscodeGPU,
}

// Worker type prefixes used to group live workers by pipeline.
const (
	WorkerPrefixHealthcheck = "healthcheck"
	WorkerPrefixTranscode   = "transcode"
)

// Status represents the response from GET status.
type Status struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Node represents a single entry from GET get-nodes. The raw response is
// keyed by the volatile node identifier; GetNodes re-keys it by NodeName.
type Node struct {
	ID           string            `json:"_id"`
	Name         string            `json:"nodeName"`
	Paused       bool              `json:"nodePaused"`
	WorkerLimits map[string]int    `json:"workerLimits"`
	Workers      map[string]Worker `json:"workers"`
	ResStats     *ResStats         `json:"resStats,omitempty"`
}

// Worker is one running job slot on a node.
type Worker struct {
	ID   string  `json:"_id"`
	Type string  `json:"workerType"`
	FPS  float64 `json:"fps"`
}

// ResStats holds OS resource telemetry for a node. Older node versions omit
// it entirely.
type ResStats struct {
	OS OSStats `json:"os"`
}

// OSStats holds CPU and memory usage. The server reports these as strings in
// some versions and numbers in others, hence Flex.
type OSStats struct {
	CPUPercent Flex `json:"cpuPerc"`
	MemUsedGB  Flex `json:"memUsedGB"`
	MemTotalGB Flex `json:"memTotalGB"`
}

// Stats represents the statistics document from cruddb StatisticsJSONDB.
type Stats struct {
	SpaceSavedGB     float64 `json:"sizeDiff"`
	TotalFileCount   int     `json:"totalFileCount"`
	TranscodeQueued  int     `json:"table1Count"`
	TranscodeSuccess int     `json:"table2Count"`
	TranscodeError   int     `json:"table3Count"`
	HealthQueued     int     `json:"table4Count"`
	HealthSuccess    int     `json:"table5Count"`
	HealthError      int     `json:"table6Count"`
}

// stagedResponse is the paged response from POST client/staged. Only the
// total count is of interest.
type stagedResponse struct {
	TotalCount int `json:"totalCount"`
}

// LibrarySetting is one library record from cruddb LibrarySettingsJSONDB.
type LibrarySetting struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Folder string `json:"folder"`
}

// PieStats holds the categorical breakdown statistics for one library from
// POST stats/get-pies (field pieStats). The empty library id selects the
// server-wide aggregate.
type PieStats struct {
	TotalFiles        int        `json:"totalFiles"`
	TotalTranscodes   int        `json:"totalTranscodeCount"`
	TotalHealthChecks int        `json:"totalHealthCheckCount"`
	SpaceSavedGB      float64    `json:"sizeDiff"`
	Codecs            []PieSlice `json:"codecs"`
	Containers        []PieSlice `json:"containers"`
	Resolutions       []PieSlice `json:"resolutions"`
}

// PieSlice is one name→count pair in a pie breakdown.
type PieSlice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// GlobalSettings is the globalsettings document from cruddb
// SettingsGlobalJSONDB. The server reads back the pauseAll write key under
// the field name pauseAllNodes.
type GlobalSettings struct {
	PauseAllNodes   bool `json:"pauseAllNodes"`
	IgnoreSchedules bool `json:"ignoreSchedules"`
}

// Write keys accepted by SetGlobalSetting.
const (
	GlobalSettingPauseAll        = "pauseAll"
	GlobalSettingIgnoreSchedules = "ignoreSchedules"
)

// Node setting keys accepted by SetNodeSetting (update-node).
const (
	NodeSettingPaused = "nodePaused"
)

// Worker limit step directions accepted by AlterWorkerLimit.
const (
	StepIncrease = "increase"
	StepDecrease = "decrease"
)

// Flex is a float64 that unmarshals from either a JSON number or a numeric
// string, and remembers whether a usable value was present at all.
type Flex struct {
	value   float64
	present bool
}

// FlexValue returns a present Flex holding v. Intended for tests and fixtures.
func FlexValue(v float64) Flex {
	return Flex{value: v, present: true}
}

// Float returns the value and whether one was present and parseable.
func (f Flex) Float() (float64, bool) {
	return f.value, f.present
}

func (f *Flex) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = Flex{}
		return nil
	}
	if len(b) >= 2 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			// A non-numeric string degrades to "absent" rather than failing
			// the whole decode; projections report undefined for it.
			*f = Flex{}
			return nil
		}
		*f = Flex{value: v, present: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Flex{value: v, present: true}
	return nil
}

func (f Flex) MarshalJSON() ([]byte, error) {
	if !f.present {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}
