package client

import (
	"context"
	"strings"
)

// crudRequest is the envelope for POST cruddb calls. Timeout is the
// server-side document lock timeout in milliseconds, not a transport timeout.
type crudRequest struct {
	Data    crudData `json:"data"`
	Timeout int      `json:"timeout,omitempty"`
}

type crudData struct {
	Collection string         `json:"collection"`
	Mode       string         `json:"mode"`
	DocID      string         `json:"docID,omitempty"`
	Obj        map[string]any `json:"obj,omitempty"`
}

// dataRequest is the envelope for the non-cruddb POST endpoints. Timeout is
// a server-side bound in milliseconds; only client/staged expects it.
type dataRequest struct {
	Data    map[string]any `json:"data"`
	Timeout int            `json:"timeout,omitempty"`
}

// GetStatus fetches server status from GET status.
func (c *DefaultClient) GetStatus(ctx context.Context) (*Status, error) {
	body, err := c.read(ctx, "GetStatus", "status", nil)
	if err != nil {
		return nil, err
	}

	var result Status
	if err := decode("GetStatus", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetNodes fetches all registered nodes from GET get-nodes and re-keys the
// result by node name. The server keys the raw response by node id, but ids
// are reassigned when a node process restarts; the name is the stable key.
// A node without a name keeps its raw id key. Two nodes sharing a name
// collapse to one entry (last decoded wins).
func (c *DefaultClient) GetNodes(ctx context.Context) (map[string]Node, error) {
	body, err := c.read(ctx, "GetNodes", "get-nodes", nil)
	if err != nil {
		return nil, err
	}

	var raw map[string]Node
	if err := decode("GetNodes", body, &raw); err != nil {
		return nil, err
	}

	nodes := make(map[string]Node, len(raw))
	for key, node := range raw {
		if node.Name != "" {
			key = node.Name
		}
		nodes[key] = node
	}
	return nodes, nil
}

// GetStats fetches the aggregate statistics document via cruddb.
func (c *DefaultClient) GetStats(ctx context.Context) (*Stats, error) {
	req := crudRequest{
		Data: crudData{
			Collection: "StatisticsJSONDB",
			Mode:       "getById",
			DocID:      "statistics",
			Obj:        map[string]any{},
		},
		Timeout: 1000,
	}
	body, err := c.read(ctx, "GetStats", "cruddb", req)
	if err != nil {
		return nil, err
	}

	var result Stats
	if err := decode("GetStats", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetStagedCount fetches the number of files awaiting processing from
// POST client/staged. Only the first page is requested; the response carries
// the total count regardless of page size.
func (c *DefaultClient) GetStagedCount(ctx context.Context) (int, error) {
	req := dataRequest{
		Data: map[string]any{
			"filters":  []any{},
			"start":    0,
			"pageSize": 10,
			"sorts":    []any{},
			"opts":     map[string]any{},
		},
		Timeout: 1000,
	}
	body, err := c.read(ctx, "GetStagedCount", "client/staged", req)
	if err != nil {
		return 0, err
	}

	var result stagedResponse
	if err := decode("GetStagedCount", body, &result); err != nil {
		return 0, err
	}
	return result.TotalCount, nil
}

// GetLibrarySettings fetches all configured library records via cruddb.
func (c *DefaultClient) GetLibrarySettings(ctx context.Context) ([]LibrarySetting, error) {
	req := crudRequest{
		Data: crudData{
			Collection: "LibrarySettingsJSONDB",
			Mode:       "getAll",
		},
		Timeout: 20000,
	}
	body, err := c.read(ctx, "GetLibrarySettings", "cruddb", req)
	if err != nil {
		return nil, err
	}

	var result []LibrarySetting
	if err := decode("GetLibrarySettings", body, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetPies fetches the pie breakdown statistics for one library from
// POST stats/get-pies. The empty library id selects the aggregate across all
// libraries.
func (c *DefaultClient) GetPies(ctx context.Context, libraryID string) (*PieStats, error) {
	req := dataRequest{Data: map[string]any{"libraryId": libraryID}}
	body, err := c.read(ctx, "GetPies", "stats/get-pies", req)
	if err != nil {
		return nil, err
	}

	var result struct {
		PieStats *PieStats `json:"pieStats"`
	}
	if err := decode("GetPies", body, &result); err != nil {
		return nil, err
	}
	if result.PieStats == nil {
		return nil, &DecodeError{Op: "GetPies", Payload: truncate(body, 200), Err: errMissingPieStats}
	}
	return result.PieStats, nil
}

// GetGlobalSettings fetches the globalsettings document via cruddb.
func (c *DefaultClient) GetGlobalSettings(ctx context.Context) (*GlobalSettings, error) {
	req := crudRequest{
		Data: crudData{
			Collection: "SettingsGlobalJSONDB",
			Mode:       "getById",
			DocID:      "globalsettings",
			Obj:        map[string]any{},
		},
		Timeout: 1000,
	}
	body, err := c.read(ctx, "GetGlobalSettings", "cruddb", req)
	if err != nil {
		return nil, err
	}

	var result GlobalSettings
	if err := decode("GetGlobalSettings", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetGlobalSetting writes one key of the globalsettings document via cruddb
// mode update.
func (c *DefaultClient) SetGlobalSetting(ctx context.Context, key string, value any) error {
	req := crudRequest{
		Data: crudData{
			Collection: "SettingsGlobalJSONDB",
			Mode:       "update",
			DocID:      "globalsettings",
			Obj:        map[string]any{key: value},
		},
		Timeout: 20000,
	}
	_, err := c.mutate(ctx, "SetGlobalSetting", "cruddb", req)
	return err
}

// SetNodeSetting writes one node setting via POST update-node. nodeID must be
// the server's current volatile identifier, freshly resolved from GetNodes.
func (c *DefaultClient) SetNodeSetting(ctx context.Context, nodeID, key string, value any) error {
	req := dataRequest{Data: map[string]any{
		"nodeID":      nodeID,
		"nodeUpdates": map[string]any{key: value},
	}}
	_, err := c.mutate(ctx, "SetNodeSetting", "update-node", req)
	return err
}

// AlterWorkerLimit issues exactly one relative worker-limit step via
// POST alter-worker-limit. The server has no absolute set; callers wanting a
// target value repeat this call once per unit of difference.
func (c *DefaultClient) AlterWorkerLimit(ctx context.Context, nodeID, workerType, direction string) error {
	req := dataRequest{Data: map[string]any{
		"nodeID":     nodeID,
		"process":    direction,
		"workerType": workerType,
	}}
	_, err := c.mutate(ctx, "AlterWorkerLimit", "alter-worker-limit", req)
	return err
}

// ScanLibrary submits a library scan via POST scan-files. The server
// acknowledges with the literal text "OK"; anything else is a rejection.
func (c *DefaultClient) ScanLibrary(ctx context.Context, dbID, path, mode string) error {
	req := dataRequest{Data: map[string]any{
		"scanConfig": map[string]any{
			"dbID":        dbID,
			"arrayOrPath": path,
			"mode":        mode,
		},
	}}
	body, err := c.mutate(ctx, "ScanLibrary", "scan-files", req)
	if err != nil {
		return err
	}
	if !isOK(body) {
		return &RejectedError{Op: "ScanLibrary", Status: 200, Reason: truncate(body, 200)}
	}
	return nil
}

// CancelWorkerItem cancels one running worker item via POST
// cancel-worker-item. Acknowledged with the literal text "OK".
func (c *DefaultClient) CancelWorkerItem(ctx context.Context, nodeID, workerID, cause string) error {
	req := dataRequest{Data: map[string]any{
		"nodeID":   nodeID,
		"workerID": workerID,
		"cause":    cause,
	}}
	body, err := c.mutate(ctx, "CancelWorkerItem", "cancel-worker-item", req)
	if err != nil {
		return err
	}
	if !isOK(body) {
		return &RejectedError{Op: "CancelWorkerItem", Status: 200, Reason: truncate(body, 200)}
	}
	return nil
}

// isOK reports whether body is the server's literal acknowledgement, with or
// without JSON string quoting, case-insensitively.
func isOK(body []byte) bool {
	text := strings.Trim(strings.TrimSpace(string(body)), `"`)
	return strings.EqualFold(text, "OK")
}

var errMissingPieStats = &fieldError{field: "pieStats"}

type fieldError struct{ field string }

func (e *fieldError) Error() string { return "missing field " + e.field }
