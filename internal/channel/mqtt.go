package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/convopipe/convopipe/core/config"
	"github.com/convopipe/convopipe/internal/chat"
)

const (
	mqttQoS            = 1
	mqttConnectTimeout = 10 * time.Second
	mqttPublishTimeout = 5 * time.Second
)

// MQTTSource subscribes to the configured input topic and forwards
// every payload it receives. Payloads are expected to be
// {role, content, timestamp} JSON but anything is accepted; the Mux's
// parse fallback handles plain text. Subscription happens in the
// connect handler so it is re-established after a reconnect.
type MQTTSource struct {
	client   mqtt.Client
	topic    string
	payloads chan string
}

func NewMQTTSource(cfg config.MQTTConfig) (*MQTTSource, error) {
	s := &MQTTSource{
		topic:    cfg.InputTopic,
		payloads: make(chan string, 100),
	}

	opts := newMQTTOptions(cfg, "input")
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		slog.Info("mqtt connected, subscribing", "topic", s.topic)
		if token := c.Subscribe(s.topic, mqttQoS, s.onMessage); token.Wait() && token.Error() != nil {
			slog.Error("mqtt subscribe failed", "topic", s.topic, "error", token.Error())
		}
	})

	s.client = mqtt.NewClient(opts)
	if err := connectMQTT(s.client); err != nil {
		return nil, fmt.Errorf("connect mqtt source: %w", err)
	}
	return s, nil
}

func (s *MQTTSource) Name() string { return "mqtt" }

func (s *MQTTSource) Receive(ctx context.Context) (string, error) {
	select {
	case payload := <-s.payloads:
		return payload, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *MQTTSource) Close() error {
	s.client.Disconnect(250)
	return nil
}

// onMessage runs on paho's router goroutine; it must not block, so a
// full buffer drops the message rather than stalling the broker
// connection.
func (s *MQTTSource) onMessage(_ mqtt.Client, m mqtt.Message) {
	select {
	case s.payloads <- string(m.Payload()):
	default:
		slog.Warn("mqtt input buffer full, dropping message", "topic", m.Topic())
	}
}

// MQTTSink publishes assistant messages to the configured output topic
// as {role, content, timestamp} JSON.
type MQTTSink struct {
	client mqtt.Client
	topic  string
}

func NewMQTTSink(cfg config.MQTTConfig) (*MQTTSink, error) {
	s := &MQTTSink{topic: cfg.OutputTopic}

	s.client = mqtt.NewClient(newMQTTOptions(cfg, "output"))
	if err := connectMQTT(s.client); err != nil {
		return nil, fmt.Errorf("connect mqtt sink: %w", err)
	}
	return s, nil
}

func (s *MQTTSink) Name() string { return "mqtt" }

func (s *MQTTSink) Deliver(_ context.Context, msg chat.Message) error {
	if msg.Role != chat.RoleAssistant {
		return nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal mqtt payload: %w", err)
	}

	token := s.client.Publish(s.topic, mqttQoS, false, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return fmt.Errorf("mqtt publish to %s timed out", s.topic)
	}
	return token.Error()
}

func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}

func newMQTTOptions(cfg config.MQTTConfig, direction string) *mqtt.ClientOptions {
	clientID := fmt.Sprintf("%s-mqtt-%s-%s", cfg.AgentName, direction, uuid.NewString()[:8])
	return mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port)).
		SetClientID(clientID).
		SetKeepAlive(30 * time.Second).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(30 * time.Second)
}

func connectMQTT(client mqtt.Client) error {
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return fmt.Errorf("broker connect timed out")
	}
	return token.Error()
}
