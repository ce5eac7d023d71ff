package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dm/tdarrmon/internal/client"
	"github.com/dm/tdarrmon/internal/model"
)

// NodeFPS sums the frame rates of a node's workers whose type starts with
// typePrefix. An empty prefix matches every worker.
func NodeFPS(node client.Node, typePrefix string) float64 {
	var total float64
	for _, w := range node.Workers {
		if typePrefix != "" && !strings.HasPrefix(w.Type, typePrefix) {
			continue
		}
		total += w.FPS
	}
	return total
}

// TotalFPS sums NodeFPS over every node in the snapshot.
func TotalFPS(snap *model.Snapshot, typePrefix string) float64 {
	var total float64
	for _, node := range snap.Nodes {
		total += NodeFPS(node, typePrefix)
	}
	return total
}

// CPUPercent reports a node's CPU utilisation. The second return is false
// when the node has not published resource stats.
func CPUPercent(node client.Node) (float64, bool) {
	if node.ResStats == nil {
		return 0, false
	}
	return node.ResStats.OS.CPUPercent.Float()
}

// MemoryPercent derives memory utilisation from the node's used and total
// figures. Undefined when either figure is absent or the total is zero.
func MemoryPercent(node client.Node) (float64, bool) {
	if node.ResStats == nil {
		return 0, false
	}
	used, ok := node.ResStats.OS.MemUsedGB.Float()
	if !ok {
		return 0, false
	}
	total, ok := node.ResStats.OS.MemTotalGB.Float()
	if !ok || total == 0 {
		return 0, false
	}
	return used / total * 100, true
}

// Round2 rounds to two decimal places, for values shown with fractional
// precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round0 rounds to the nearest integer, for values shown as whole numbers.
func Round0(v float64) float64 {
	return math.Round(v)
}

// ProjectionFunc derives one named value from a snapshot. The boolean result
// is false when the value is undefined for this snapshot.
type ProjectionFunc func(*model.Snapshot) (any, bool)

// ProjectionSet is a registry of named snapshot projections. Evaluation is
// isolated per projection: a panic in one is converted to an error for that
// name and the rest still run.
type ProjectionSet struct {
	names []string
	funcs map[string]ProjectionFunc
}

// NewProjectionSet returns an empty registry.
func NewProjectionSet() *ProjectionSet {
	return &ProjectionSet{funcs: make(map[string]ProjectionFunc)}
}

// Register adds fn under name. Registering a duplicate name is a programming
// error and panics.
func (p *ProjectionSet) Register(name string, fn ProjectionFunc) {
	if _, dup := p.funcs[name]; dup {
		panic(fmt.Sprintf("projection %q registered twice", name))
	}
	p.names = append(p.names, name)
	p.funcs[name] = fn
}

// Names returns the registered projection names in sorted order.
func (p *ProjectionSet) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	sort.Strings(out)
	return out
}

// Evaluate runs one projection by name against snap.
func (p *ProjectionSet) Evaluate(name string, snap *model.Snapshot) (value any, defined bool, err error) {
	fn, ok := p.funcs[name]
	if !ok {
		return nil, false, &NotFoundError{Kind: "projection", Name: name}
	}
	return p.run(name, fn, snap)
}

// EvaluateAll runs every registered projection against snap. Undefined
// projections are omitted from the value map; failures are collected per
// name without aborting the others.
func (p *ProjectionSet) EvaluateAll(snap *model.Snapshot) (map[string]any, map[string]error) {
	values := make(map[string]any, len(p.names))
	var errs map[string]error
	for _, name := range p.names {
		v, defined, err := p.run(name, p.funcs[name], snap)
		if err != nil {
			if errs == nil {
				errs = make(map[string]error)
			}
			errs[name] = err
			continue
		}
		if defined {
			values[name] = v
		}
	}
	return values, errs
}

func (p *ProjectionSet) run(name string, fn ProjectionFunc, snap *model.Snapshot) (value any, defined bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, defined = nil, false
			err = fmt.Errorf("projection %q panicked: %v", name, r)
		}
	}()
	value, defined = fn(snap)
	return value, defined, nil
}

// DefaultProjections builds the standard set of server-wide projections used
// by the HTTP API and the MQTT bridge.
func DefaultProjections() *ProjectionSet {
	set := NewProjectionSet()

	set.Register("online", func(snap *model.Snapshot) (any, bool) {
		return snap != nil, true
	})
	set.Register("total_fps", func(snap *model.Snapshot) (any, bool) {
		return Round2(TotalFPS(snap, "")), true
	})
	set.Register("transcode_fps", func(snap *model.Snapshot) (any, bool) {
		return Round2(TotalFPS(snap, client.WorkerPrefixTranscode)), true
	})
	set.Register("healthcheck_fps", func(snap *model.Snapshot) (any, bool) {
		return Round2(TotalFPS(snap, client.WorkerPrefixHealthcheck)), true
	})
	set.Register("node_count", func(snap *model.Snapshot) (any, bool) {
		return len(snap.Nodes), true
	})
	set.Register("staged_count", func(snap *model.Snapshot) (any, bool) {
		return snap.StagedCount, true
	})
	set.Register("space_saved_gb", func(snap *model.Snapshot) (any, bool) {
		return Round2(snap.Stats.SpaceSavedGB), true
	})
	set.Register("total_file_count", func(snap *model.Snapshot) (any, bool) {
		return snap.Stats.TotalFileCount, true
	})
	set.Register("pause_all", func(snap *model.Snapshot) (any, bool) {
		return snap.GlobalSettings.PauseAllNodes, true
	})
	set.Register("ignore_schedules", func(snap *model.Snapshot) (any, bool) {
		return snap.GlobalSettings.IgnoreSchedules, true
	})

	return set
}
