package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/dm/tdarrmon/internal/client"
)

// DefaultScanMode is used when a scan request does not name a mode.
const DefaultScanMode = "scanFindNew"

// DefaultCancelReason is used when a cancellation does not name a cause.
const DefaultCancelReason = "user"

// Commands relays user-initiated actions to the server. Each method resolves
// names against fresh server state — node ids are volatile and must never be
// cached across calls — and triggers an out-of-band refresh after a
// successful mutation so the retained snapshot catches up.
type Commands struct {
	api   client.API
	coord *Coordinator // optional; nil skips post-command refreshes
	log   zerolog.Logger
}

// NewCommands creates a command relay over api. coord may be nil.
func NewCommands(api client.API, coord *Coordinator, log zerolog.Logger) *Commands {
	return &Commands{api: api, coord: coord, log: log}
}

// ScanLibrary resolves name to exactly one configured library and submits a
// scan of its folder. An empty mode defaults to DefaultScanMode.
func (c *Commands) ScanLibrary(ctx context.Context, name, mode string) error {
	if mode == "" {
		mode = DefaultScanMode
	}

	settings, err := c.api.GetLibrarySettings(ctx)
	if err != nil {
		return err
	}

	var matches []client.LibrarySetting
	for _, s := range settings {
		if s.Name == name {
			matches = append(matches, s)
		}
	}
	switch {
	case len(matches) == 0:
		return &NotFoundError{Kind: "library", Name: name}
	case len(matches) > 1:
		return &AmbiguousError{Kind: "library", Name: name, Count: len(matches)}
	}

	lib := matches[0]
	c.log.Info().Str("library", name).Str("mode", mode).Msg("starting library scan")
	if err := c.api.ScanLibrary(ctx, lib.ID, lib.Folder, mode); err != nil {
		return err
	}

	c.requestRefresh()
	return nil
}

// CancelWorkerItem cancels one running worker item on the named node. The
// node's current id is resolved with a fresh GetNodes call. An empty reason
// defaults to DefaultCancelReason.
func (c *Commands) CancelWorkerItem(ctx context.Context, nodeName, workerID, reason string) error {
	if reason == "" {
		reason = DefaultCancelReason
	}

	node, err := c.resolveNode(ctx, nodeName)
	if err != nil {
		return err
	}

	c.log.Info().Str("node", nodeName).Str("worker", workerID).Str("reason", reason).
		Msg("cancelling worker item")
	if err := c.api.CancelWorkerItem(ctx, node.ID, workerID, reason); err != nil {
		return err
	}

	c.requestRefresh()
	return nil
}

// SetWorkerLimit adjusts the named node's limit for one worker type to
// target. The server only supports relative stepping, so the difference from
// the current limit is walked one call at a time, strictly sequentially — a
// concurrent burst would race the server's own relative counter. When the
// current limit already equals target, no network call is made.
//
// A failure after at least one applied step returns a *PartialError: the
// limit may be left between the old and requested values.
func (c *Commands) SetWorkerLimit(ctx context.Context, nodeKey, workerType string, target int) error {
	if target < 0 {
		return &ValidationError{Reason: "worker limit cannot be negative"}
	}
	if !slices.Contains(client.WorkerTypes, workerType) {
		return &ValidationError{Reason: fmt.Sprintf("unknown worker type %q", workerType)}
	}

	node, err := c.resolveNode(ctx, nodeKey)
	if err != nil {
		return err
	}

	current, ok := node.WorkerLimits[workerType]
	if !ok {
		return &ValidationError{Reason: fmt.Sprintf("current %s limit for node %q is unknown", workerType, nodeKey)}
	}

	if current == target {
		c.log.Debug().Str("node", nodeKey).Str("worker_type", workerType).Int("limit", target).
			Msg("worker limit already at target")
		return nil
	}

	direction := client.StepIncrease
	if target < current {
		direction = client.StepDecrease
	}
	steps := target - current
	if steps < 0 {
		steps = -steps
	}

	c.log.Info().Str("node", nodeKey).Str("worker_type", workerType).
		Int("current", current).Int("target", target).Str("direction", direction).
		Msg("stepping worker limit")

	for i := 0; i < steps; i++ {
		if err := c.api.AlterWorkerLimit(ctx, node.ID, workerType, direction); err != nil {
			if i > 0 {
				return &PartialError{Applied: i, Requested: steps, Err: err}
			}
			return err
		}
	}

	c.requestRefresh()
	return nil
}

// SetNodePaused pauses or unpauses one node. The snapshot remains
// authoritative: callers may reflect the new state optimistically, but the
// next refresh confirms it.
func (c *Commands) SetNodePaused(ctx context.Context, nodeName string, paused bool) error {
	node, err := c.resolveNode(ctx, nodeName)
	if err != nil {
		return err
	}

	if err := c.api.SetNodeSetting(ctx, node.ID, client.NodeSettingPaused, paused); err != nil {
		return err
	}

	c.requestRefresh()
	return nil
}

// SetPauseAll pauses or unpauses every node via the global setting.
func (c *Commands) SetPauseAll(ctx context.Context, paused bool) error {
	if err := c.api.SetGlobalSetting(ctx, client.GlobalSettingPauseAll, paused); err != nil {
		return err
	}
	c.requestRefresh()
	return nil
}

// SetIgnoreSchedules toggles the global ignore-schedules flag.
func (c *Commands) SetIgnoreSchedules(ctx context.Context, ignore bool) error {
	if err := c.api.SetGlobalSetting(ctx, client.GlobalSettingIgnoreSchedules, ignore); err != nil {
		return err
	}
	c.requestRefresh()
	return nil
}

// resolveNode fetches the current node set and returns the record for key.
// The result must not be cached: the id it carries is valid only until the
// node process restarts.
func (c *Commands) resolveNode(ctx context.Context, key string) (client.Node, error) {
	nodes, err := c.api.GetNodes(ctx)
	if err != nil {
		return client.Node{}, err
	}
	node, ok := nodes[key]
	if !ok {
		return client.Node{}, &NotFoundError{Kind: "node", Name: key}
	}
	return node, nil
}

func (c *Commands) requestRefresh() {
	if c.coord != nil {
		c.coord.RefreshAsync()
	}
}
