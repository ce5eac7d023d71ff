package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dm/tdarrmon/internal/client"
	"github.com/dm/tdarrmon/internal/model"
)

// FetchAll calls all six Tdarr data sources concurrently and merges the
// results into a single Snapshot. Any failure fails the whole fetch: a
// partial snapshot is never assembled, so readers always see six sections
// fetched within one cycle's time window.
func FetchAll(ctx context.Context, api client.API) (*model.Snapshot, error) {
	var (
		status    *client.Status
		nodes     map[string]client.Node
		stats     *client.Stats
		staged    int
		libraries map[string]model.Library
		settings  *client.GlobalSettings
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		status, err = api.GetStatus(gctx)
		return err
	})

	g.Go(func() error {
		var err error
		nodes, err = api.GetNodes(gctx)
		return err
	})

	g.Go(func() error {
		var err error
		stats, err = api.GetStats(gctx)
		return err
	})

	g.Go(func() error {
		var err error
		staged, err = api.GetStagedCount(gctx)
		return err
	})

	g.Go(func() error {
		var err error
		libraries, err = FetchLibraries(gctx, api)
		return err
	})

	g.Go(func() error {
		var err error
		settings, err = api.GetGlobalSettings(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if status == nil || stats == nil || settings == nil {
		return nil, fmt.Errorf("FetchAll: incomplete response (unexpected nil)")
	}

	snap := &model.Snapshot{
		Server:         *status,
		Nodes:          nodes,
		Stats:          *stats,
		StagedCount:    staged,
		Libraries:      libraries,
		GlobalSettings: *settings,
		FetchedAt:      time.Now(),
	}
	return snap, nil
}

// FetchLibraries composes library settings with per-library pie statistics:
// one GetPies call per configured library plus one for the synthetic "All"
// aggregate, all concurrent. A failure in any call fails the aggregation —
// a library record without its statistics is not a valid result.
func FetchLibraries(ctx context.Context, api client.API) (map[string]model.Library, error) {
	settings, err := api.GetLibrarySettings(ctx)
	if err != nil {
		return nil, err
	}

	type entry struct {
		id   string
		name string
	}
	entries := make([]entry, 0, len(settings)+1)
	for _, s := range settings {
		entries = append(entries, entry{id: s.ID, name: s.Name})
	}
	entries = append(entries, entry{id: model.AllLibrariesKey, name: "All"})

	pies := make([]*client.PieStats, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	for i, e := range entries {
		g.Go(func() error {
			p, err := api.GetPies(gctx, e.id)
			if err != nil {
				return err
			}
			pies[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	libraries := make(map[string]model.Library, len(entries))
	for i, e := range entries {
		libraries[e.id] = model.Library{Name: e.name, PieStats: *pies[i]}
	}
	return libraries, nil
}
