package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/dm/tdarrmon/internal/client"
	"github.com/dm/tdarrmon/internal/engine"
	"github.com/dm/tdarrmon/internal/tui"
)

// parseServerURI validates a Tdarr server URI and strips any trailing slash.
func parseServerURI(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URI %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q (must be http or https)", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("invalid URI %q: host is required", raw)
	}
	u.Path = ""
	return u.String(), nil
}

func main() {
	var (
		interval = flag.Duration("interval", 60*time.Second, "polling interval (e.g. 30s, 2m)")
		apiKey   = flag.String("api-key", os.Getenv("TDARR_API_KEY"), "Tdarr API key (or TDARR_API_KEY)")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: tdarrmon [--interval 60s] [--api-key KEY] <tdarr-server-uri>\n\n")
		fmt.Fprintf(os.Stderr, "examples:\n")
		fmt.Fprintf(os.Stderr, "  tdarrmon http://localhost:8265\n")
		fmt.Fprintf(os.Stderr, "  tdarrmon --interval 30s http://tdarr.lan:8265\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *interval <= 0 {
		fmt.Fprintln(os.Stderr, "error: --interval must be positive")
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "error: tdarr server URI is required")
		flag.Usage()
		os.Exit(1)
	}
	if len(args) > 1 {
		extra := args[1]
		if len(extra) > 1 && extra[0] == '-' {
			fmt.Fprintf(os.Stderr, "error: flag %q must be placed before the URI\n", extra)
		} else {
			fmt.Fprintf(os.Stderr, "error: unexpected argument %q\n", extra)
		}
		flag.Usage()
		os.Exit(1)
	}

	baseURL, err := parseServerURI(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	c, err := client.NewDefaultClient(client.ClientConfig{
		BaseURL:        baseURL,
		APIKey:         *apiKey,
		RequestTimeout: 15 * time.Second,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	coord := engine.NewCoordinator(c, engine.CoordinatorConfig{
		Interval: *interval,
		Logger:   zerolog.Nop(), // the TUI owns the terminal
	})
	cmds := engine.NewCommands(c, coord, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coord.Run(ctx)

	app := tui.NewApp(coord, cmds, baseURL, *interval)
	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
