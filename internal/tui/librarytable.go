package tui

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/dm/tdarrmon/internal/format"
	"github.com/dm/tdarrmon/internal/model"
)

// renderLibraryTable renders the per-library statistics table. The synthetic
// server-wide aggregate sorts first; real libraries follow by name.
func renderLibraryTable(app *App) string {
	if app.current == nil || len(app.current.Libraries) == 0 {
		return ""
	}

	hdr := StyleDim.Render("Libraries")

	ids := make([]string, 0, len(app.current.Libraries))
	for id := range app.current.Libraries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if a == model.AllLibrariesKey || b == model.AllLibrariesKey {
			return a == model.AllLibrariesKey
		}
		return app.current.Libraries[a].Name < app.current.Libraries[b].Name
	})

	t := ltable.New().
		Headers("Library", "Files", "Transcodes", "Health Checks", "Space Saved").
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
				return base.Foreground(colorBlue)
			case 2:
				return base.Foreground(colorCyan)
			case 3:
				return base.Foreground(colorPurple)
			case 4:
				return base.Foreground(colorGreen)
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

	for _, id := range ids {
		lib := app.current.Libraries[id]
		t = t.Row(
			lib.Name,
			format.FormatNumber(int64(lib.TotalFiles)),
			format.FormatNumber(int64(lib.TotalTranscodes)),
			format.FormatNumber(int64(lib.TotalHealthChecks)),
			format.FormatGB(lib.SpaceSavedGB),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left, hdr, t.String())
}
