// Package statefeed subscribes to the MQTT topic on which devices publish
// their authoritative actuator state and folds those updates into the
// local state cache. The feed is optional; without a configured broker it
// does nothing.
package statefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"sensegrid/internal/actions"
	"sensegrid/internal/config"
	"sensegrid/internal/logging"
)

const connectTimeout = 10 * time.Second

// Feed consumes device state messages from MQTT.
type Feed struct {
	cfg    config.MQTT
	cache  *actions.StateCache
	logger *slog.Logger
}

// New builds a feed. The feed stays inert until Run is called.
func New(cfg config.MQTT, cache *actions.StateCache, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Feed{
		cfg:    cfg,
		cache:  cache,
		logger: logger.With(logging.String(logging.FieldComponent, "statefeed")),
	}
}

// Enabled reports whether a broker is configured.
func (f *Feed) Enabled() bool {
	return strings.TrimSpace(f.cfg.BrokerURL) != ""
}

// Run connects to the broker and consumes state messages until the context
// is cancelled. When no broker is configured it blocks until cancellation
// so it can be supervised like any other component.
func (f *Feed) Run(ctx context.Context) error {
	if !f.Enabled() {
		<-ctx.Done()
		return ctx.Err()
	}

	opts := mqtt.NewClientOptions().
		AddBroker(f.cfg.BrokerURL).
		SetClientID(f.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)
	opts.OnConnect = func(client mqtt.Client) {
		token := client.Subscribe(f.cfg.Topic, 0, f.handleMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			f.logger.Error("subscribe failed",
				logging.String("topic", f.cfg.Topic),
				logging.Error(err))
			return
		}
		f.logger.Info("subscribed to state topic", logging.String("topic", f.cfg.Topic))
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		f.logger.Warn("broker connection lost", logging.Error(err))
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to broker %s: %w", f.cfg.BrokerURL, err)
	}
	defer client.Disconnect(250)

	<-ctx.Done()
	return ctx.Err()
}

func (f *Feed) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	targetID := targetFromTopic(msg.Topic())
	if targetID == "" {
		f.logger.Debug("ignoring message on unexpected topic", logging.String("topic", msg.Topic()))
		return
	}
	if err := applyPayload(f.cache, targetID, msg.Payload()); err != nil {
		f.logger.Warn("bad state payload",
			logging.String(logging.FieldTarget, targetID),
			logging.Error(err))
		return
	}
	f.logger.Debug("state updated", logging.String(logging.FieldTarget, targetID))
}

// targetFromTopic extracts the device id from a "<prefix>/<id>/state"
// topic. Anything else yields "".
func targetFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[2] != "state" {
		return ""
	}
	return parts[1]
}

// applyPayload decodes a state message and applies it authoritatively.
// The payload is a flat JSON object mapping actuator names to their
// current state.
func applyPayload(cache *actions.StateCache, targetID string, payload []byte) error {
	var states map[string]string
	if err := json.Unmarshal(payload, &states); err != nil {
		return fmt.Errorf("decode state payload: %w", err)
	}
	if len(states) == 0 {
		return nil
	}
	cache.ApplyAuthoritative(targetID, states)
	return nil
}
