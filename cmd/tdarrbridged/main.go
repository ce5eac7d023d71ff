package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dm/tdarrmon/internal/api"
	"github.com/dm/tdarrmon/internal/bridge"
	"github.com/dm/tdarrmon/internal/client"
	"github.com/dm/tdarrmon/internal/config"
	"github.com/dm/tdarrmon/internal/engine"
	"github.com/dm/tdarrmon/internal/logging"
	"github.com/dm/tdarrmon/internal/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	log := logging.Component("main")

	c, err := client.NewDefaultClient(client.ClientConfig{
		BaseURL:        cfg.Tdarr.URL,
		APIKey:         cfg.Tdarr.APIKey,
		RequestTimeout: cfg.Tdarr.RequestTimeout,
	})
	if err != nil {
		return err
	}

	coord := engine.NewCoordinator(c, engine.CoordinatorConfig{
		Interval:     cfg.Tdarr.PollInterval,
		FetchTimeout: cfg.Tdarr.FetchTimeout,
		Logger:       logging.Component("coordinator"),
	})
	cmds := engine.NewCommands(c, coord, logging.Component("commands"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Record cycle outcomes for Prometheus off the subscription stream, same
	// as any other consumer.
	updates := coord.Subscribe()
	go func() {
		for update := range updates {
			metrics.RecordRefresh(update.Err == nil, update.Elapsed)
			if update.Err == nil {
				metrics.ObserveSnapshot(update.Snapshot)
				if len(update.NewNodeKeys) > 0 {
					metrics.RecordStructuralChange()
				}
			}
		}
	}()

	go coord.Run(ctx)

	errCh := make(chan error, 2)

	var httpServer *http.Server
	if cfg.HTTP.Enabled {
		srv := api.NewServer(coord, cmds, logging.Component("api"))
		httpServer = &http.Server{
			Addr:              cfg.HTTP.Listen,
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Info().Str("listen", cfg.HTTP.Listen).Msg("http api listening")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	if cfg.MQTT.Enabled {
		b := bridge.New(bridge.Config{
			Broker:          cfg.MQTT.Broker,
			Username:        cfg.MQTT.Username,
			Password:        cfg.MQTT.Password,
			ClientID:        cfg.MQTT.ClientID,
			TopicPrefix:     cfg.MQTT.TopicPrefix,
			DiscoveryPrefix: cfg.MQTT.DiscoveryPrefix,
		}, coord, cmds, logging.Component("bridge"))
		go func() {
			if err := b.Run(ctx); err != nil {
				errCh <- fmt.Errorf("mqtt bridge: %w", err)
			}
		}()
	}

	log.Info().Str("tdarr", cfg.Tdarr.URL).Dur("interval", cfg.Tdarr.PollInterval).Msg("tdarrbridged started")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		stop()
		if httpServer != nil {
			shutdownHTTP(httpServer)
		}
		return err
	}

	if httpServer != nil {
		shutdownHTTP(httpServer)
	}
	return nil
}

func shutdownHTTP(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
