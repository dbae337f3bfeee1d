package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/edgeo/drivers/ism8/ism8"
)

// mqttConfig holds the bridge settings
type mqttConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Prefix   string
	QoS      byte
}

// statePayload is published retained on <prefix>/<device>/<id>/state
type statePayload struct {
	ID      uint16      `json:"id"`
	Device  string      `json:"device"`
	Name    string      `json:"name,omitempty"`
	Type    string      `json:"type"`
	Value   interface{} `json:"value"`
	Unit    string      `json:"unit,omitempty"`
	Updated time.Time   `json:"updated"`
}

// mqttBridge mirrors datapoint updates to MQTT and routes set commands
// back to the engine
type mqttBridge struct {
	cfg    mqttConfig
	client mqtt.Client
	engine *ism8.Engine
	logger *slog.Logger
}

func newMQTTBridge(cfg mqttConfig, logger *slog.Logger) *mqttBridge {
	if cfg.Prefix == "" {
		cfg.Prefix = "ism8"
	}
	cfg.Prefix = strings.TrimSuffix(cfg.Prefix, "/")
	if cfg.ClientID == "" {
		cfg.ClientID = "edgeo-ism8"
	}
	return &mqttBridge{cfg: cfg, logger: logger}
}

func (b *mqttBridge) availabilityTopic() string {
	return b.cfg.Prefix + "/bridge/state"
}

func (b *mqttBridge) stateTopic(device string, id ism8.DatapointID) string {
	return fmt.Sprintf("%s/%s/%d/state", b.cfg.Prefix, device, id)
}

// Connect attaches the bridge to engine and connects to the broker.
// A broker that is down is retried in the background.
func (b *mqttBridge) Connect(engine *ism8.Engine) {
	b.engine = engine

	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.cfg.Broker)
	if b.cfg.Username != "" {
		opts.SetUsername(b.cfg.Username)
		opts.SetPassword(b.cfg.Password)
	}
	opts.SetClientID(b.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetWill(b.availabilityTopic(), "offline", b.cfg.QoS, true)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		b.logger.Info("connected to MQTT broker", slog.String("broker", b.cfg.Broker))
		c.Publish(b.availabilityTopic(), b.cfg.QoS, true, "online")
		c.Subscribe(b.cfg.Prefix+"/+/+/set", b.cfg.QoS, b.handleSet)
	})
	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		b.logger.Warn("MQTT connection lost", slog.String("error", err.Error()))
	})

	b.client = mqtt.NewClient(opts)
	if token := b.client.Connect(); token.WaitTimeout(10*time.Second) && token.Error() != nil {
		b.logger.Warn("could not connect to MQTT, will retry in background", slog.String("error", token.Error().Error()))
	}
}

// Publish sends the state of one datapoint. It does not wait for delivery.
func (b *mqttBridge) Publish(dp ism8.Datapoint, sv ism8.StoredValue) {
	if b.client == nil {
		return
	}
	device := dp.Device
	if device == "" {
		device = "unknown"
	}
	payload, err := json.Marshal(statePayload{
		ID:      uint16(sv.ID),
		Device:  device,
		Name:    dp.Name,
		Type:    dp.Type.String(),
		Value:   sv.Value.Interface(),
		Unit:    dp.Type.Unit(),
		Updated: sv.UpdatedAt,
	})
	if err != nil {
		b.logger.Error("failed to marshal datapoint state", slog.Int("datapoint", int(sv.ID)), slog.String("error", err.Error()))
		return
	}
	b.client.Publish(b.stateTopic(device, sv.ID), b.cfg.QoS, true, payload)
}

// handleSet routes <prefix>/<device>/<id>/set to the engine
func (b *mqttBridge) handleSet(client mqtt.Client, msg mqtt.Message) {
	parts := strings.Split(msg.Topic(), "/")
	if len(parts) < 3 {
		return
	}
	id, err := strconv.ParseUint(parts[len(parts)-2], 10, 16)
	if err != nil {
		b.logger.Warn("invalid datapoint in set topic", slog.String("topic", msg.Topic()))
		return
	}
	text := strings.TrimSpace(string(msg.Payload()))

	b.logger.Info("received set command", slog.Uint64("datapoint", id), slog.String("value", text))
	if err := b.engine.SendText(ism8.DatapointID(id), text); err != nil {
		b.logger.Error("set command failed",
			slog.Uint64("datapoint", id),
			slog.String("value", text),
			slog.String("error", err.Error()),
		)
	}
}

// Close publishes the offline state and disconnects
func (b *mqttBridge) Close() {
	if b.client == nil {
		return
	}
	if b.client.IsConnected() {
		b.client.Publish(b.availabilityTopic(), b.cfg.QoS, true, "offline").WaitTimeout(time.Second)
	}
	b.client.Disconnect(250)
}
