package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dm/tdarrmon/internal/client"
	"github.com/dm/tdarrmon/internal/model"
)

func TestFetchAll_AllSuccess(t *testing.T) {
	status := &client.Status{Status: "good", Version: "2.17.01"}
	nodes := map[string]client.Node{
		"alpha": {ID: "id-a", Name: "alpha"},
		"beta":  {ID: "id-b", Name: "beta"},
	}
	stats := &client.Stats{SpaceSavedGB: 321.5, TotalFileCount: 1200, TranscodeSuccess: 800}
	settings := &client.GlobalSettings{PauseAllNodes: true}

	mc := &MockAPI{
		StatusFn:         func(_ context.Context) (*client.Status, error) { return status, nil },
		NodesFn:          func(_ context.Context) (map[string]client.Node, error) { return nodes, nil },
		StatsFn:          func(_ context.Context) (*client.Stats, error) { return stats, nil },
		StagedFn:         func(_ context.Context) (int, error) { return 7, nil },
		GlobalSettingsFn: func(_ context.Context) (*client.GlobalSettings, error) { return settings, nil },
	}

	snap, err := FetchAll(context.Background(), mc)
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Equal(t, "good", snap.Server.Status)
	assert.Equal(t, "2.17.01", snap.Server.Version)
	assert.Equal(t, nodes, snap.Nodes)
	assert.Equal(t, *stats, snap.Stats)
	assert.Equal(t, 7, snap.StagedCount)
	assert.True(t, snap.GlobalSettings.PauseAllNodes)
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestFetchAll_PartialFailure(t *testing.T) {
	mc := &MockAPI{
		StatsFn: func(_ context.Context) (*client.Stats, error) {
			return nil, errMockFailure
		},
	}

	snap, err := FetchAll(context.Background(), mc)
	assert.ErrorIs(t, err, errMockFailure)
	assert.Nil(t, snap)
}

func TestFetchAll_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mc := &MockAPI{
		StatusFn: func(ctx context.Context) (*client.Status, error) {
			return nil, ctx.Err()
		},
	}

	snap, err := FetchAll(ctx, mc)
	assert.Error(t, err)
	assert.Nil(t, snap)
}

func TestFetchLibraries_IncludesAllAggregate(t *testing.T) {
	mc := &MockAPI{
		LibrarySettingsFn: func(_ context.Context) ([]client.LibrarySetting, error) {
			return []client.LibrarySetting{
				{ID: "lib-movies", Name: "Movies", Folder: "/media/movies"},
				{ID: "lib-tv", Name: "TV", Folder: "/media/tv"},
			}, nil
		},
		PiesFn: func(_ context.Context, libraryID string) (*client.PieStats, error) {
			switch libraryID {
			case "lib-movies":
				return &client.PieStats{TotalFiles: 10}, nil
			case "lib-tv":
				return &client.PieStats{TotalFiles: 20}, nil
			case model.AllLibrariesKey:
				return &client.PieStats{TotalFiles: 30}, nil
			}
			return nil, errMockFailure
		},
	}

	libs, err := FetchLibraries(context.Background(), mc)
	require.NoError(t, err)
	require.Len(t, libs, 3)

	assert.Equal(t, "Movies", libs["lib-movies"].Name)
	assert.Equal(t, 10, libs["lib-movies"].TotalFiles)
	assert.Equal(t, "TV", libs["lib-tv"].Name)
	assert.Equal(t, "All", libs[model.AllLibrariesKey].Name)
	assert.Equal(t, 30, libs[model.AllLibrariesKey].TotalFiles)
}

func TestFetchLibraries_PieFailureFailsAggregation(t *testing.T) {
	mc := &MockAPI{
		PiesFn: func(_ context.Context, libraryID string) (*client.PieStats, error) {
			if libraryID == model.AllLibrariesKey {
				return nil, errMockFailure
			}
			return &client.PieStats{}, nil
		},
	}

	libs, err := FetchLibraries(context.Background(), mc)
	assert.ErrorIs(t, err, errMockFailure)
	assert.Nil(t, libs)
}

func TestFetchLibraries_SettingsFailure(t *testing.T) {
	mc := &MockAPI{
		LibrarySettingsFn: func(_ context.Context) ([]client.LibrarySetting, error) {
			return nil, errMockFailure
		},
	}

	libs, err := FetchLibraries(context.Background(), mc)
	assert.ErrorIs(t, err, errMockFailure)
	assert.Nil(t, libs)
}
