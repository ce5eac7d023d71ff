package engine

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dm/tdarrmon/internal/client"
)

func newTestCoordinator(api client.API) *Coordinator {
	return NewCoordinator(api, CoordinatorConfig{
		Interval:     time.Hour, // tests drive refreshes explicitly
		FetchTimeout: 5 * time.Second,
	})
}

func TestCoordinator_LatestBeforeFirstCycle(t *testing.T) {
	c := newTestCoordinator(&MockAPI{})

	snap, available, lastErr := c.Latest()
	assert.Nil(t, snap)
	assert.False(t, available)
	assert.NoError(t, lastErr)
}

func TestCoordinator_RefreshUpdatesLatest(t *testing.T) {
	c := newTestCoordinator(&MockAPI{})

	snap, err := c.Refresh(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)

	latest, available, lastErr := c.Latest()
	assert.Same(t, snap, latest)
	assert.True(t, available)
	assert.NoError(t, lastErr)
}

func TestCoordinator_FailureRetainsLastKnownGood(t *testing.T) {
	var fail atomic.Bool
	mc := &MockAPI{
		StatsFn: func(_ context.Context) (*client.Stats, error) {
			if fail.Load() {
				return nil, errMockFailure
			}
			return &client.Stats{TotalFileCount: 5}, nil
		},
	}
	c := newTestCoordinator(mc)

	good, err := c.Refresh(context.Background())
	require.NoError(t, err)

	fail.Store(true)
	_, err = c.Refresh(context.Background())
	require.ErrorIs(t, err, errMockFailure)

	latest, available, lastErr := c.Latest()
	assert.Same(t, good, latest, "failed cycle must not discard the retained snapshot")
	assert.False(t, available)
	assert.ErrorIs(t, lastErr, errMockFailure)

	// Recovery flips availability back without losing continuity.
	fail.Store(false)
	_, err = c.Refresh(context.Background())
	require.NoError(t, err)
	_, available, lastErr = c.Latest()
	assert.True(t, available)
	assert.NoError(t, lastErr)
}

func TestCoordinator_DecodeFailureLogsPayload(t *testing.T) {
	body := "status: nope, trailing garbage"
	mc := &MockAPI{
		StatusFn: func(_ context.Context) (*client.Status, error) {
			return nil, &client.DecodeError{Op: "GetStatus", Payload: body, Err: errMockFailure}
		},
	}

	var buf bytes.Buffer
	c := NewCoordinator(mc, CoordinatorConfig{
		Interval:     time.Hour,
		FetchTimeout: 5 * time.Second,
		Logger:       zerolog.New(&buf),
	})

	_, err := c.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, buf.String(), "refresh cycle failed")
	assert.Contains(t, buf.String(), body, "offending payload must reach the failure log")
}

func TestCoordinator_OverlappingRefreshesCoalesce(t *testing.T) {
	var fetches atomic.Int32
	release := make(chan struct{})

	mc := &MockAPI{
		StatusFn: func(ctx context.Context) (*client.Status, error) {
			fetches.Add(1)
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return &client.Status{Status: "good"}, nil
		},
	}
	c := newTestCoordinator(mc)

	const callers = 5
	var wg sync.WaitGroup
	snaps := make([]any, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snaps[i], errs[i] = c.Refresh(context.Background())
		}(i)
	}

	// Let every caller attach to the in-flight cycle before releasing it.
	require.Eventually(t, func() bool {
		return fetches.Load() >= 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), fetches.Load(), "overlapping triggers must share one fetch fan-out")
	for i := 1; i < callers; i++ {
		assert.NoError(t, errs[i])
		assert.Same(t, snaps[0], snaps[i], "all callers must observe the same cycle outcome")
	}
}

func TestCoordinator_RefreshAfterCompletionStartsNewCycle(t *testing.T) {
	var fetches atomic.Int32
	mc := &MockAPI{
		StatusFn: func(_ context.Context) (*client.Status, error) {
			fetches.Add(1)
			return &client.Status{Status: "good"}, nil
		},
	}
	c := newTestCoordinator(mc)

	_, err := c.Refresh(context.Background())
	require.NoError(t, err)
	_, err = c.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), fetches.Load())
}

func TestCoordinator_CallerContextDoesNotAbortCycle(t *testing.T) {
	release := make(chan struct{})
	mc := &MockAPI{
		StatusFn: func(_ context.Context) (*client.Status, error) {
			<-release
			return &client.Status{Status: "good"}, nil
		},
	}
	c := newTestCoordinator(mc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Refresh(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// The cycle the impatient caller started still completes and lands.
	close(release)
	require.Eventually(t, func() bool {
		_, available, _ := c.Latest()
		return available
	}, time.Second, 5*time.Millisecond)
}

func TestCoordinator_SubscribersSeeStructuralChanges(t *testing.T) {
	nodes := map[string]client.Node{
		"alpha": {ID: "a", Name: "alpha"},
	}
	var mu sync.Mutex
	mc := &MockAPI{
		NodesFn: func(_ context.Context) (map[string]client.Node, error) {
			mu.Lock()
			defer mu.Unlock()
			out := make(map[string]client.Node, len(nodes))
			for k, v := range nodes {
				out[k] = v
			}
			return out, nil
		},
	}
	c := newTestCoordinator(mc)
	ch := c.Subscribe()

	_, err := c.Refresh(context.Background())
	require.NoError(t, err)
	first := <-ch
	assert.Empty(t, first.NewNodeKeys, "first snapshot is not a structural change")

	mu.Lock()
	nodes["beta"] = client.Node{ID: "b", Name: "beta"}
	mu.Unlock()

	_, err = c.Refresh(context.Background())
	require.NoError(t, err)
	second := <-ch
	assert.Equal(t, []string{"beta"}, second.NewNodeKeys)

	mu.Lock()
	delete(nodes, "alpha")
	mu.Unlock()

	_, err = c.Refresh(context.Background())
	require.NoError(t, err)
	third := <-ch
	assert.Empty(t, third.NewNodeKeys, "a node going away is not a structural change")

	c.Unsubscribe(ch)
}

func TestCoordinator_SubscriberFailureUpdate(t *testing.T) {
	mc := &MockAPI{
		StagedFn: func(_ context.Context) (int, error) { return 0, errMockFailure },
	}
	c := newTestCoordinator(mc)
	ch := c.Subscribe()

	_, err := c.Refresh(context.Background())
	require.Error(t, err)

	update := <-ch
	assert.Nil(t, update.Snapshot)
	assert.ErrorIs(t, update.Err, errMockFailure)
}
