package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dm/tdarrmon/internal/client"
	"github.com/dm/tdarrmon/internal/model"
)

const (
	// DefaultInterval is the wall-clock refresh cadence.
	DefaultInterval = 60 * time.Second
	// DefaultFetchTimeout bounds one whole fetch fan-out.
	DefaultFetchTimeout = 30 * time.Second
)

// Update is published to subscribers after every refresh cycle.
// Either Snapshot or Err is set, never both.
type Update struct {
	Snapshot *model.Snapshot
	Err      error
	// NewNodeKeys lists node keys seen for the first time in this snapshot.
	// Non-empty means a structural change: consumers that build one entity
	// per node must rebuild their entity set.
	NewNodeKeys []string
	// Elapsed is the wall-clock duration of the fetch fan-out.
	Elapsed time.Duration
}

// CoordinatorConfig configures a Coordinator. Zero values fall back to the
// defaults above.
type CoordinatorConfig struct {
	Interval     time.Duration
	FetchTimeout time.Duration
	Logger       zerolog.Logger
}

// Coordinator owns the refresh lifecycle: it serializes cycles, coalesces
// overlapping triggers into the in-flight cycle, retains the last-known-good
// snapshot, and publishes outcomes to subscribers.
type Coordinator struct {
	api      client.API
	interval time.Duration
	timeout  time.Duration
	log      zerolog.Logger

	mu        sync.Mutex
	inflight  *cycle
	snapshot  *model.Snapshot // last-known-good; nil before first success
	available bool
	lastErr   error
	subs      []chan Update
}

// cycle is one refresh in flight. All callers that trigger a refresh while
// it runs wait on done and observe the same outcome.
type cycle struct {
	done chan struct{}
	snap *model.Snapshot
	err  error
}

// NewCoordinator creates a Coordinator polling the given API.
func NewCoordinator(api client.API, cfg CoordinatorConfig) *Coordinator {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &Coordinator{
		api:      api,
		interval: cfg.Interval,
		timeout:  cfg.FetchTimeout,
		log:      cfg.Logger,
	}
}

// Run drives the fixed-interval refresh loop until ctx is cancelled. The
// first refresh starts immediately.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		_, _ = c.Refresh(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Refresh triggers one refresh cycle and waits for its outcome. A call made
// while a cycle is already in flight attaches to that cycle rather than
// queueing a second one: both callers observe the same snapshot or failure,
// and exactly one set of fetch calls is issued.
//
// ctx bounds only this caller's wait. The cycle itself runs under the
// coordinator's fetch timeout and completes even if the caller gives up.
func (c *Coordinator) Refresh(ctx context.Context) (*model.Snapshot, error) {
	c.mu.Lock()
	cy := c.inflight
	if cy == nil {
		cy = &cycle{done: make(chan struct{})}
		c.inflight = cy
		go c.runCycle(cy)
	}
	c.mu.Unlock()

	select {
	case <-cy.done:
		return cy.snap, cy.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// runCycle performs one fetch fan-out and publishes the outcome.
func (c *Coordinator) runCycle(cy *cycle) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	started := time.Now()
	snap, err := FetchAll(ctx, c.api)

	c.mu.Lock()
	c.inflight = nil
	var added []string
	if err != nil {
		c.available = false
		c.lastErr = err
	} else {
		added = model.NewNodeKeys(c.snapshot, snap)
		c.snapshot = snap
		c.available = true
		c.lastErr = nil
	}
	subs := make([]chan Update, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	if err != nil {
		// One log line per failed cycle, not one per field.
		ev := c.log.Warn().Err(err).Dur("elapsed", time.Since(started))
		var de *client.DecodeError
		if errors.As(err, &de) && de.Payload != "" {
			ev = ev.Str("payload", de.Payload)
		}
		ev.Msg("refresh cycle failed")
	} else {
		ev := c.log.Debug().Dur("elapsed", time.Since(started)).
			Int("nodes", len(snap.Nodes)).
			Int("libraries", len(snap.Libraries))
		if len(added) > 0 {
			ev = ev.Strs("new_nodes", added)
		}
		ev.Msg("refresh cycle complete")
	}

	cy.snap, cy.err = snap, err
	close(cy.done)

	update := Update{Snapshot: snap, Err: err, NewNodeKeys: added, Elapsed: time.Since(started)}
	for _, ch := range subs {
		select {
		case ch <- update:
		default:
			// Slow subscriber: drop rather than stall the cycle. The next
			// update supersedes this one anyway.
		}
	}
}

// RefreshAsync triggers a refresh without waiting for its outcome. Used by
// the command relay to reconcile optimistic state after a mutation.
func (c *Coordinator) RefreshAsync() {
	go func() {
		_, _ = c.Refresh(context.Background())
	}()
}

// Latest returns the retained snapshot together with the data source's
// availability. After a failed cycle the last-known-good snapshot is still
// returned, with available=false and the failure cause. Before the first
// successful cycle the snapshot is nil: callers needing one must treat that
// as a setup precondition failure, not an empty value.
func (c *Coordinator) Latest() (snap *model.Snapshot, available bool, lastErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot, c.available, c.lastErr
}

// Subscribe registers a channel receiving every cycle outcome. Updates to a
// full channel are dropped, so consumers should drain promptly or size their
// reads for the latest update only.
func (c *Coordinator) Subscribe() <-chan Update {
	ch := make(chan Update, 4)
	c.mu.Lock()
	c.subs = append(c.subs, ch)
	c.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel previously returned by Subscribe.
func (c *Coordinator) Unsubscribe(ch <-chan Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, sub := range c.subs {
		if sub == ch {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			return
		}
	}
}
