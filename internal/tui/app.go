package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dm/tdarrmon/internal/client"
	"github.com/dm/tdarrmon/internal/engine"
	"github.com/dm/tdarrmon/internal/model"
)

type connState int

const (
	stateConnected    connState = iota
	stateDisconnected connState = iota
)

// App is the root Bubble Tea model. It does not fetch anything itself: the
// coordinator owns the poll loop and the App consumes its update stream, so
// a TUI refresh and a daemon-triggered refresh are the same cycle.
type App struct {
	coord        *engine.Coordinator
	cmds         *engine.Commands
	updates      <-chan engine.Update
	baseURL      string
	pollInterval time.Duration

	current          *model.Snapshot
	history          *model.FPSHistory
	connState        connState
	consecutiveFails int
	lastError        error
	lastUpdated      time.Time

	// Layout
	width, height int

	// UI state
	showHelp   bool
	statusLine string
}

// NewApp creates the TUI over a running coordinator.
func NewApp(coord *engine.Coordinator, cmds *engine.Commands, baseURL string, interval time.Duration) *App {
	return &App{
		coord:        coord,
		cmds:         cmds,
		updates:      coord.Subscribe(),
		baseURL:      baseURL,
		pollInterval: interval,
		history:      model.NewFPSHistory(0),
		connState:    stateDisconnected,
	}
}

// Init implements tea.Model.
func (app *App) Init() tea.Cmd {
	app.coord.RefreshAsync()
	return waitForUpdate(app.updates)
}

// Update implements tea.Model — the single state-mutation entry point.
func (app *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		app.width = msg.Width
		app.height = msg.Height

	case UpdateMsg:
		if msg.Err != nil {
			app.consecutiveFails++
			app.lastError = msg.Err
			app.connState = stateDisconnected
			return app, waitForUpdate(app.updates)
		}
		app.current = msg.Snapshot
		app.consecutiveFails = 0
		app.lastError = nil
		app.connState = stateConnected
		app.lastUpdated = msg.Snapshot.FetchedAt
		app.history.Push(model.FPSPoint{
			Timestamp:      msg.Snapshot.FetchedAt,
			TotalFPS:       engine.TotalFPS(msg.Snapshot, ""),
			TranscodeFPS:   engine.TotalFPS(msg.Snapshot, client.WorkerPrefixTranscode),
			HealthcheckFPS: engine.TotalFPS(msg.Snapshot, client.WorkerPrefixHealthcheck),
		})
		return app, waitForUpdate(app.updates)

	case CommandResultMsg:
		if msg.Err != nil {
			app.statusLine = StyleError.Render(msg.Op + " failed: " + msg.Err.Error())
		} else {
			app.statusLine = ""
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return app, tea.Quit
		case key.Matches(msg, keys.Refresh):
			app.coord.RefreshAsync()
		case key.Matches(msg, keys.Pause):
			return app, app.togglePauseAll()
		case key.Matches(msg, keys.Help):
			app.showHelp = !app.showHelp
		}
	}

	return app, nil
}

// View implements tea.Model. Renders the full TUI.
func (app *App) View() string {
	var parts []string

	if h := renderHeader(app); h != "" {
		parts = append(parts, h)
	}
	if o := renderOverview(app); o != "" {
		parts = append(parts, o)
	}
	if n := renderNodeTable(app); n != "" {
		parts = append(parts, n)
	}
	if l := renderLibraryTable(app); l != "" {
		parts = append(parts, l)
	}
	parts = append(parts, renderFooter(app))

	return strings.Join(parts, "\n")
}

// togglePauseAll flips the global pause switch based on the value in the
// current snapshot. The snapshot stays authoritative: the visible state only
// changes when the post-command refresh lands.
func (app *App) togglePauseAll() tea.Cmd {
	if app.current == nil {
		return nil
	}
	target := !app.current.GlobalSettings.PauseAllNodes
	cmds := app.cmds
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return CommandResultMsg{Op: "pause all", Err: cmds.SetPauseAll(ctx, target)}
	}
}

// waitForUpdate blocks on the coordinator's update stream and converts the
// next outcome into a Bubble Tea message.
func waitForUpdate(ch <-chan engine.Update) tea.Cmd {
	return func() tea.Msg {
		return UpdateMsg(<-ch)
	}
}
