package tui

import "github.com/dm/tdarrmon/internal/engine"

// UpdateMsg delivers one coordinator cycle outcome to the TUI.
type UpdateMsg engine.Update

// CommandResultMsg reports the outcome of a relayed command issued from the
// TUI, such as the pause-all toggle.
type CommandResultMsg struct {
	Op  string
	Err error
}
