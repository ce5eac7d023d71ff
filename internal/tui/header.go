package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dm/tdarrmon/internal/format"
)

// renderHeader renders the top header bar with server address, status, and
// timing info.
//
// Layout:
//
//	left:   server address and version (or "Connecting to <URL>..." on first connect)
//	center: colored "● STATUS" indicator (or "● DISCONNECTED  <error>" when offline)
//	right:  "Last: HH:MM:SS  Poll: Ns" (or "Press r to retry" when offline)
func renderHeader(app *App) string {
	width := app.width
	if width <= 0 {
		width = 80
	}

	var left, center, right string

	if app.current == nil {
		left = "Connecting to " + app.baseURL + "..."

		if app.connState == stateDisconnected && app.lastError != nil {
			center = StyleError.Render("● DISCONNECTED  " + truncateError(app.lastError.Error()))
			right = StyleError.Render("Press r to retry")
		}
	} else {
		left = app.baseURL
		if v := format.FormatVersion(app.current.Server.Version); v != "" {
			left += "  " + v
		}

		if app.connState == stateDisconnected {
			// Lost connection after a successful fetch; the data on screen
			// is the last-known-good snapshot.
			errDisplay := "● DISCONNECTED"
			if app.lastError != nil {
				errDisplay += "  " + truncateError(app.lastError.Error())
			}
			center = StyleError.Render(errDisplay)
			right = StyleError.Render("Press r to retry")
		} else {
			status := strings.ToUpper(app.current.Server.Status)
			if status == "" {
				status = "UNKNOWN"
			}
			center = StatusStyle(app.current.Server.Status).Render("● " + status)

			lastStr := "Connecting..."
			if !app.lastUpdated.IsZero() {
				lastStr = app.lastUpdated.Format("15:04:05")
			}
			right = StyleDim.Render(fmt.Sprintf("Last: %s  Poll: %s", lastStr, formatDuration(app.pollInterval)))
		}
	}

	// Build row: left + padding + center + padding + right, filling innerWidth.
	// StyleHeader has Padding(0, 1) so inner content width = total width - 2.
	innerWidth := width - 2
	leftVW := lipgloss.Width(left)
	centerVW := lipgloss.Width(center)
	rightVW := lipgloss.Width(right)

	spacing := innerWidth - leftVW - centerVW - rightVW
	if spacing < 0 {
		spacing = 0
	}
	leftSpacing := spacing / 2
	rightSpacing := spacing - leftSpacing

	row := left +
		strings.Repeat(" ", leftSpacing) +
		center +
		strings.Repeat(" ", rightSpacing) +
		right

	return StyleHeader.Width(width).Render(row)
}

func truncateError(msg string) string {
	if len(msg) > 40 {
		return msg[:40] + "..."
	}
	return msg
}

// formatDuration formats a poll interval as a compact string, e.g. "10s" or "2m".
func formatDuration(d time.Duration) string {
	if d >= time.Minute {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}
