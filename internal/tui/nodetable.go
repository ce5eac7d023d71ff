package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/dm/tdarrmon/internal/client"
	"github.com/dm/tdarrmon/internal/engine"
	"github.com/dm/tdarrmon/internal/format"
)

// renderNodeTable renders the per-node table: one row per node key in
// sorted order, with worker limits shown as cpu/gpu pairs.
func renderNodeTable(app *App) string {
	if app.current == nil {
		return ""
	}

	hdr := StyleDim.Render("Nodes")
	nodeKeys := app.current.NodeKeys()
	if len(nodeKeys) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, hdr, StyleDim.Render("  (no nodes connected)"))
	}

	t := ltable.New().
		Headers("Node", "State", "Workers", "FPS", "CPU", "Memory", "TC Limit", "HC Limit").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(colorGray)
			}
			base := lipgloss.NewStyle()
			if row%2 == 0 {
				base = base.Background(colorAlt)
			}
			switch col {
			case 1:
				return base.Foreground(colorYellow)
			case 3:
				return base.Foreground(colorCyan)
			case 4, 5:
				return base.Foreground(colorOrange)
			default:
				return base.Foreground(colorWhite)
			}
		}).
		BorderStyle(lipgloss.NewStyle().Foreground(colorGray)).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(true).
		BorderColumn(false)

	if app.width > 0 {
		t = t.Width(app.width)
	}

	for _, key := range nodeKeys {
		node := app.current.Nodes[key]

		state := "active"
		if node.Paused {
			state = "paused"
		}

		cpu := format.FormatPercent(engine.CPUPercent(node))
		mem := format.FormatPercent(engine.MemoryPercent(node))

		t = t.Row(
			key,
			state,
			strconv.Itoa(len(node.Workers)),
			format.FormatFPS(engine.NodeFPS(node, "")),
			cpu,
			mem,
			limitPair(node, client.WorkerTypeTranscodeCPU, client.WorkerTypeTranscodeGPU),
			limitPair(node, client.WorkerTypeHealthcheckCPU, client.WorkerTypeHealthcheckGPU),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left, hdr, t.String())
}

// limitPair formats a node's cpu/gpu worker limits for one pipeline, e.g.
// "2/1". Unknown limits show as "-".
func limitPair(node client.Node, cpuType, gpuType string) string {
	return fmt.Sprintf("%s/%s", limitString(node, cpuType), limitString(node, gpuType))
}

func limitString(node client.Node, workerType string) string {
	if v, ok := node.WorkerLimits[workerType]; ok {
		return strconv.Itoa(v)
	}
	return "-"
}
