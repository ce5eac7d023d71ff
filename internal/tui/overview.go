package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dm/tdarrmon/internal/engine"
	"github.com/dm/tdarrmon/internal/format"
	"github.com/dm/tdarrmon/internal/model"
)

// renderOverview renders the stat overview bar plus the FPS sparkline panel.
// Wide terminals (>= 80 cols): all 6 cards in a single horizontal row.
// Narrow terminals (< 80 cols): cards stacked in rows of 2.
// Returns empty string if no snapshot is available yet.
func renderOverview(app *App) string {
	if app.current == nil {
		return ""
	}

	width := app.width
	if width <= 0 {
		width = 80
	}
	narrowMode := width < 80

	var cardWidth int
	if narrowMode {
		cardWidth = (width - 4) / 2
		if cardWidth < 10 {
			cardWidth = 10
		}
	} else {
		cardWidth = (width - 12) / 6
		if cardWidth < 8 {
			cardWidth = 8
		}
	}

	snap := app.current

	// Card 1: server status — colored background.
	statusText := strings.ToUpper(snap.Server.Status)
	if statusText == "" {
		statusText = "UNKNOWN"
	}
	var statusBg lipgloss.Color
	switch snap.Server.Status {
	case "good":
		statusBg = colorGreen
	case "downloading", "updating":
		statusBg = colorYellow
	default:
		statusBg = colorRed
	}
	if snap.GlobalSettings.PauseAllNodes {
		statusText = "PAUSED"
		statusBg = colorYellow
	}
	card1 := StyleOverviewCard.
		Background(statusBg).
		Foreground(colorDark).
		Bold(true).
		Width(cardWidth).
		Render(statusText + "\nStatus")

	card2 := StyleOverviewCard.
		Foreground(colorBlue).
		Width(cardWidth).
		Render(fmt.Sprintf("%d", len(snap.Nodes)) + "\nNodes")

	card3 := StyleOverviewCard.
		Foreground(colorCyan).
		Width(cardWidth).
		Render(format.FormatFPS(engine.TotalFPS(snap, "")) + "\nTotal FPS")

	card4 := StyleOverviewCard.
		Foreground(colorPurple).
		Width(cardWidth).
		Render(format.FormatNumber(int64(snap.Stats.TotalFileCount)) + "\nFiles")

	card5 := StyleOverviewCard.
		Foreground(colorYellow).
		Width(cardWidth).
		Render(format.FormatNumber(int64(snap.StagedCount)) + "\nStaged")

	card6 := StyleOverviewCard.
		Foreground(colorGreen).
		Width(cardWidth).
		Render(format.FormatGB(snap.Stats.SpaceSavedGB) + "\nSpace Saved")

	var bar string
	if narrowMode {
		row1 := lipgloss.JoinHorizontal(lipgloss.Top, card1, card2)
		row2 := lipgloss.JoinHorizontal(lipgloss.Top, card3, card4)
		row3 := lipgloss.JoinHorizontal(lipgloss.Top, card5, card6)
		bar = lipgloss.JoinVertical(lipgloss.Left, row1, row2, row3)
	} else {
		bar = lipgloss.JoinHorizontal(lipgloss.Top, card1, card2, card3, card4, card5, card6)
	}

	pipelines := renderPipelineLine(snap)
	if spark := renderFPSPanel(app, width); spark != "" {
		return lipgloss.JoinVertical(lipgloss.Left, bar, pipelines, spark)
	}
	return lipgloss.JoinVertical(lipgloss.Left, bar, pipelines)
}

// renderPipelineLine summarizes the transcode and health-check pipeline
// counters from the server statistics.
func renderPipelineLine(snap *model.Snapshot) string {
	return StyleDim.Render("  Transcode ") +
		pipelineCounts(snap.Stats.TranscodeQueued, snap.Stats.TranscodeSuccess, snap.Stats.TranscodeError) +
		StyleDim.Render("   Healthcheck ") +
		pipelineCounts(snap.Stats.HealthQueued, snap.Stats.HealthSuccess, snap.Stats.HealthError)
}

func pipelineCounts(queued, success, failed int) string {
	s := StyleYellow.Render(format.FormatNumber(int64(queued))+" queued") +
		StyleDim.Render(" / ") +
		StyleGreen.Render(format.FormatNumber(int64(success))+" done")
	if failed > 0 {
		s += StyleDim.Render(" / ") + StyleRed.Render(format.FormatNumber(int64(failed))+" err")
	}
	return s
}

// renderFPSPanel renders the transcode and health-check FPS sparklines over
// the poll history.
func renderFPSPanel(app *App, width int) string {
	if app.history.Len() < 2 {
		return ""
	}

	sparkWidth := width - 26
	if sparkWidth < 10 {
		sparkWidth = 10
	}

	transcode := app.history.Values(model.SeriesTranscode)
	health := app.history.Values(model.SeriesHealthcheck)

	line1 := StyleDim.Render("  Transcode   ") +
		RenderSparkline(transcode, sparkWidth, colorCyan) +
		StyleCyan.Render("  "+format.FormatFPS(last(transcode)))
	line2 := StyleDim.Render("  Healthcheck ") +
		RenderSparkline(health, sparkWidth, colorPurple) +
		StylePurple.Render("  "+format.FormatFPS(last(health)))

	return line1 + "\n" + line2
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}
