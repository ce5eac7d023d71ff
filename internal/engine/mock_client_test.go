package engine

import (
	"context"
	"errors"

	"github.com/dm/tdarrmon/internal/client"
)

// MockAPI implements client.API for testing.
type MockAPI struct {
	StatusFn           func(ctx context.Context) (*client.Status, error)
	NodesFn            func(ctx context.Context) (map[string]client.Node, error)
	StatsFn            func(ctx context.Context) (*client.Stats, error)
	StagedFn           func(ctx context.Context) (int, error)
	LibrarySettingsFn  func(ctx context.Context) ([]client.LibrarySetting, error)
	PiesFn             func(ctx context.Context, libraryID string) (*client.PieStats, error)
	GlobalSettingsFn   func(ctx context.Context) (*client.GlobalSettings, error)
	SetGlobalSettingFn func(ctx context.Context, key string, value any) error
	SetNodeSettingFn   func(ctx context.Context, nodeID, key string, value any) error
	AlterWorkerLimitFn func(ctx context.Context, nodeID, workerType, direction string) error
	ScanLibraryFn      func(ctx context.Context, dbID, path, mode string) error
	CancelWorkerFn     func(ctx context.Context, nodeID, workerID, cause string) error
}

func (m *MockAPI) GetStatus(ctx context.Context) (*client.Status, error) {
	if m.StatusFn != nil {
		return m.StatusFn(ctx)
	}
	return &client.Status{Status: "good", Version: "2.17.01"}, nil
}

func (m *MockAPI) GetNodes(ctx context.Context) (map[string]client.Node, error) {
	if m.NodesFn != nil {
		return m.NodesFn(ctx)
	}
	return map[string]client.Node{
		"node1": {ID: "abc123", Name: "node1"},
	}, nil
}

func (m *MockAPI) GetStats(ctx context.Context) (*client.Stats, error) {
	if m.StatsFn != nil {
		return m.StatsFn(ctx)
	}
	return &client.Stats{SpaceSavedGB: 12.5, TotalFileCount: 100}, nil
}

func (m *MockAPI) GetStagedCount(ctx context.Context) (int, error) {
	if m.StagedFn != nil {
		return m.StagedFn(ctx)
	}
	return 0, nil
}

func (m *MockAPI) GetLibrarySettings(ctx context.Context) ([]client.LibrarySetting, error) {
	if m.LibrarySettingsFn != nil {
		return m.LibrarySettingsFn(ctx)
	}
	return []client.LibrarySetting{{ID: "lib1", Name: "Movies", Folder: "/media/movies"}}, nil
}

func (m *MockAPI) GetPies(ctx context.Context, libraryID string) (*client.PieStats, error) {
	if m.PiesFn != nil {
		return m.PiesFn(ctx, libraryID)
	}
	return &client.PieStats{TotalFiles: 42}, nil
}

func (m *MockAPI) GetGlobalSettings(ctx context.Context) (*client.GlobalSettings, error) {
	if m.GlobalSettingsFn != nil {
		return m.GlobalSettingsFn(ctx)
	}
	return &client.GlobalSettings{}, nil
}

func (m *MockAPI) SetGlobalSetting(ctx context.Context, key string, value any) error {
	if m.SetGlobalSettingFn != nil {
		return m.SetGlobalSettingFn(ctx, key, value)
	}
	return nil
}

func (m *MockAPI) SetNodeSetting(ctx context.Context, nodeID, key string, value any) error {
	if m.SetNodeSettingFn != nil {
		return m.SetNodeSettingFn(ctx, nodeID, key, value)
	}
	return nil
}

func (m *MockAPI) AlterWorkerLimit(ctx context.Context, nodeID, workerType, direction string) error {
	if m.AlterWorkerLimitFn != nil {
		return m.AlterWorkerLimitFn(ctx, nodeID, workerType, direction)
	}
	return nil
}

func (m *MockAPI) ScanLibrary(ctx context.Context, dbID, path, mode string) error {
	if m.ScanLibraryFn != nil {
		return m.ScanLibraryFn(ctx, dbID, path, mode)
	}
	return nil
}

func (m *MockAPI) CancelWorkerItem(ctx context.Context, nodeID, workerID, cause string) error {
	if m.CancelWorkerFn != nil {
		return m.CancelWorkerFn(ctx, nodeID, workerID, cause)
	}
	return nil
}

func (m *MockAPI) Ping(ctx context.Context) error {
	return nil
}

func (m *MockAPI) BaseURL() string {
	return "http://mock:8266"
}

var errMockFailure = errors.New("mock failure")
