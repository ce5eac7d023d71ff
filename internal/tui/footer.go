package tui

// renderFooter renders the bottom line of the dashboard: the outcome of the
// last relayed command when one failed, then the key hint or the expanded
// key binding help when app.showHelp is set.
func renderFooter(app *App) string {
	width := app.width
	if width <= 0 {
		width = 80
	}
	text := "? for help"
	if app.showHelp {
		text = helpText
	}
	hint := StyleDim.Width(width).Render(text)
	if app.statusLine != "" {
		return app.statusLine + "\n" + hint
	}
	return hint
}
