// Package bridge publishes snapshot state to an MQTT broker using the Home
// Assistant discovery convention, and relays entity commands back through
// the engine.
package bridge

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/dm/tdarrmon/internal/engine"
	"github.com/dm/tdarrmon/internal/model"
)

const (
	payloadOnline  = "online"
	payloadOffline = "offline"

	connectTimeout = 10 * time.Second
	commandTimeout = 30 * time.Second
)

// Config holds bridge settings.
type Config struct {
	Broker          string
	Username        string
	Password        string
	ClientID        string
	TopicPrefix     string
	DiscoveryPrefix string
}

// Bridge is the MQTT side of the daemon. It consumes coordinator updates and
// keeps the broker's retained state in sync with the latest snapshot.
type Bridge struct {
	mqtt            mqtt.Client
	coord           *engine.Coordinator
	cmds            *engine.Commands
	projections     *engine.ProjectionSet
	topicPrefix     string
	discoveryPrefix string
	log             zerolog.Logger

	// discovered flips once the first discovery config set has been
	// published. Written from both the update loop and paho's connect
	// callback.
	discovered atomic.Bool
}

// New creates a Bridge. Connect is deferred to Run.
func New(cfg Config, coord *engine.Coordinator, cmds *engine.Commands, log zerolog.Logger) *Bridge {
	b := &Bridge{
		coord:           coord,
		cmds:            cmds,
		projections:     engine.DefaultProjections(),
		topicPrefix:     cfg.TopicPrefix,
		discoveryPrefix: cfg.DiscoveryPrefix,
		log:             log,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetWill(b.availabilityTopic(), payloadOffline, 1, true).
		SetOnConnectHandler(func(mqtt.Client) {
			log.Info().Str("broker", cfg.Broker).Msg("mqtt connected")
			b.onConnect()
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn().Err(err).Msg("mqtt connection lost")
		})
	b.mqtt = mqtt.NewClient(opts)
	return b
}

// Run connects to the broker and pumps coordinator updates until ctx is
// cancelled. It returns the connect error, or nil on clean shutdown.
func (b *Bridge) Run(ctx context.Context) error {
	token := b.mqtt.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connect to broker timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	updates := b.coord.Subscribe()
	defer b.coord.Unsubscribe(updates)

	for {
		select {
		case <-ctx.Done():
			b.publish(b.availabilityTopic(), []byte(payloadOffline), true)
			b.mqtt.Disconnect(250)
			return nil
		case update := <-updates:
			b.handleUpdate(update)
		}
	}
}

// onConnect republishes everything the broker should retain: availability,
// command subscriptions, discovery, and current state. Runs on every
// (re)connect so a restarted broker converges without waiting a poll cycle.
func (b *Bridge) onConnect() {
	b.subscribeCommands()

	snap, available, _ := b.coord.Latest()
	if available {
		b.publish(b.availabilityTopic(), []byte(payloadOnline), true)
	} else {
		b.publish(b.availabilityTopic(), []byte(payloadOffline), true)
	}
	if snap != nil {
		b.publishDiscovery(snap)
		b.publishState(snap)
	}
}

func (b *Bridge) handleUpdate(update engine.Update) {
	if update.Err != nil {
		b.publish(b.availabilityTopic(), []byte(payloadOffline), true)
		return
	}
	b.publish(b.availabilityTopic(), []byte(payloadOnline), true)

	// New nodes need their discovery configs before the first state publish,
	// or Home Assistant drops the unmatched state on the floor.
	if !b.discovered.Load() || len(update.NewNodeKeys) > 0 {
		b.publishDiscovery(update.Snapshot)
	}
	b.publishState(update.Snapshot)
}

func (b *Bridge) publishDiscovery(snap *model.Snapshot) {
	msgs := b.discoveryMessages(snap)
	for _, msg := range msgs {
		b.publish(msg.Topic, msg.Payload, true)
	}
	b.discovered.Store(true)
	b.log.Debug().Int("entities", len(msgs)).Msg("published discovery configs")
}

func (b *Bridge) publishState(snap *model.Snapshot) {
	if payload, err := b.serverStatePayload(snap); err == nil {
		b.publish(b.serverStateTopic(), payload, true)
	} else {
		b.log.Error().Err(err).Msg("marshal server state")
	}

	for key, node := range snap.Nodes {
		payload, err := nodeStatePayload(node)
		if err != nil {
			b.log.Error().Err(err).Str("node", key).Msg("marshal node state")
			continue
		}
		b.publish(b.nodeStateTopic(key), payload, true)
	}

	for id, lib := range snap.Libraries {
		payload, err := libraryStatePayload(lib)
		if err != nil {
			b.log.Error().Err(err).Str("library", id).Msg("marshal library state")
			continue
		}
		b.publish(b.libraryStateTopic(id), payload, true)
	}
}

func (b *Bridge) subscribeCommands() {
	subscribe := func(topic string, handler mqtt.MessageHandler) {
		if token := b.mqtt.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
			b.log.Error().Err(token.Error()).Str("topic", topic).Msg("mqtt subscribe failed")
		}
	}
	subscribe(b.topicPrefix+"/server/pause_all/set", b.onPauseAll)
	subscribe(b.topicPrefix+"/server/ignore_schedules/set", b.onIgnoreSchedules)
	subscribe(b.topicPrefix+"/node/+/paused/set", b.onNodePaused)
	subscribe(b.topicPrefix+"/node/+/worker_limit/+/set", b.onWorkerLimit)
}

func (b *Bridge) onPauseAll(_ mqtt.Client, msg mqtt.Message) {
	on, ok := parseOnOff(string(msg.Payload()))
	if !ok {
		b.log.Warn().Str("payload", string(msg.Payload())).Msg("unrecognized pause_all payload")
		return
	}
	b.relay("pause_all", func(ctx context.Context) error {
		return b.cmds.SetPauseAll(ctx, on)
	})
}

func (b *Bridge) onIgnoreSchedules(_ mqtt.Client, msg mqtt.Message) {
	on, ok := parseOnOff(string(msg.Payload()))
	if !ok {
		b.log.Warn().Str("payload", string(msg.Payload())).Msg("unrecognized ignore_schedules payload")
		return
	}
	b.relay("ignore_schedules", func(ctx context.Context) error {
		return b.cmds.SetIgnoreSchedules(ctx, on)
	})
}

func (b *Bridge) onNodePaused(_ mqtt.Client, msg mqtt.Message) {
	slug, _, ok := parseNodeCommandTopic(b.topicPrefix, msg.Topic())
	if !ok {
		return
	}
	on, okp := parseOnOff(string(msg.Payload()))
	if !okp {
		b.log.Warn().Str("payload", string(msg.Payload())).Msg("unrecognized paused payload")
		return
	}
	key, found := b.nodeKeyForSlug(slug)
	if !found {
		b.log.Warn().Str("slug", slug).Msg("command for unknown node")
		return
	}
	b.relay("node_paused", func(ctx context.Context) error {
		return b.cmds.SetNodePaused(ctx, key, on)
	})
}

func (b *Bridge) onWorkerLimit(_ mqtt.Client, msg mqtt.Message) {
	slug, workerType, ok := parseNodeCommandTopic(b.topicPrefix, msg.Topic())
	if !ok || workerType == "" {
		return
	}
	target, err := strconv.Atoi(strings.TrimSpace(string(msg.Payload())))
	if err != nil {
		b.log.Warn().Str("payload", string(msg.Payload())).Msg("worker limit payload is not an integer")
		return
	}
	key, found := b.nodeKeyForSlug(slug)
	if !found {
		b.log.Warn().Str("slug", slug).Msg("command for unknown node")
		return
	}
	b.relay("worker_limit", func(ctx context.Context) error {
		return b.cmds.SetWorkerLimit(ctx, key, workerType, target)
	})
}

// nodeKeyForSlug maps a topic slug back to the snapshot's node key. Topics
// carry slugs because node names may contain characters MQTT reserves.
func (b *Bridge) nodeKeyForSlug(slug string) (string, bool) {
	snap, _, _ := b.coord.Latest()
	if snap == nil {
		return "", false
	}
	for _, key := range snap.NodeKeys() {
		if slugify(key) == slug {
			return key, true
		}
	}
	return "", false
}

// relay runs one command handler in its own goroutine so a slow server
// cannot back up the paho delivery loop.
func (b *Bridge) relay(op string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			b.log.Error().Err(err).Str("op", op).Msg("relayed command failed")
		}
	}()
}

// parseNodeCommandTopic extracts the node slug, and for worker-limit topics
// the worker type, from a command topic.
//
//	{prefix}/node/{slug}/paused/set          -> slug, ""
//	{prefix}/node/{slug}/worker_limit/{t}/set -> slug, t
func parseNodeCommandTopic(prefix, topic string) (slug, workerType string, ok bool) {
	rest, found := strings.CutPrefix(topic, prefix+"/node/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 3 && parts[1] == "paused" && parts[2] == "set":
		return parts[0], "", true
	case len(parts) == 4 && parts[1] == "worker_limit" && parts[3] == "set":
		return parts[0], parts[2], true
	}
	return "", "", false
}

func (b *Bridge) publish(topic string, payload []byte, retain bool) {
	token := b.mqtt.Publish(topic, 1, retain, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			b.log.Error().Err(err).Str("topic", topic).Msg("mqtt publish failed")
		}
	}()
}
