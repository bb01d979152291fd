package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"digital_microscope/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	stateTopic  = "state"
	eventsTopic = "events"

	publishQoS      = 1
	publishTimeout  = 5 * time.Second
	disconnectQuiet = 250 // ms
)

var ErrPublishTimeout = errors.New("mqtt publish timed out")

// Publisher pushes device state and journal entries to subscribers.
type Publisher interface {
	PublishState(snap models.DeviceSnapshot) error
	PublishEvent(ev models.CommandEvent) error
	Close()
}

// MQTTConfig describes the broker connection.
type MQTTConfig struct {
	Broker      string // e.g. tcp://localhost:1883
	ClientID    string
	TopicPrefix string
}

// MQTTPublisher publishes JSON payloads under <prefix>/state (retained) and
// <prefix>/events.
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
}

// NewMQTTPublisher connects to the broker. The client reconnects on its own
// after the first successful connect.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(publishTimeout)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return nil, fmt.Errorf("mqtt connect %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	return newMQTTPublisher(client, cfg.TopicPrefix), nil
}

func newMQTTPublisher(client mqtt.Client, prefix string) *MQTTPublisher {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = "microscope"
	}
	return &MQTTPublisher{client: client, prefix: prefix}
}

func (p *MQTTPublisher) topic(name string) string {
	return p.prefix + "/" + name
}

func (p *MQTTPublisher) PublishState(snap models.DeviceSnapshot) error {
	return p.publishJSON(p.topic(stateTopic), true, snap)
}

func (p *MQTTPublisher) PublishEvent(ev models.CommandEvent) error {
	return p.publishJSON(p.topic(eventsTopic), false, ev)
}

func (p *MQTTPublisher) publishJSON(topic string, retained bool, obj any) error {
	msg, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	token := p.client.Publish(topic, publishQoS, retained, msg)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%s: %w", topic, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(disconnectQuiet)
}

// NopPublisher drops everything. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishState(models.DeviceSnapshot) error { return nil }
func (NopPublisher) PublishEvent(models.CommandEvent) error { return nil }
func (NopPublisher) Close() {}
