package feed

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sony/gobreaker"

	"irrigation_dashboard/internal/logger"
)

const (
	disconnectQuiesceMs  = 250
	defaultConnectTries  = 5
	defaultMaxElapsed    = 30 * time.Second
	defaultBreakerFails  = 3
	defaultBreakerOpen   = 30 * time.Second
	defaultBreakerWindow = time.Minute
)

// MQTTConfig holds broker connection settings.
type MQTTConfig struct {
	Broker         string // tcp://host:1883
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	ConnectRetries int
	Topics         Topics
}

// MQTTFeed subscribes to device topics on an MQTT broker. Subscriptions are
// remembered and re-issued after every (re)connect.
type MQTTFeed struct {
	cfg    MQTTConfig
	client mqtt.Client
	log    *logger.Logger

	mu   sync.Mutex
	subs map[string]mqtt.MessageHandler
}

// NewMQTTFeed prepares a client; call Connect before use.
func NewMQTTFeed(cfg MQTTConfig, log *logger.Logger) *MQTTFeed {
	f := &MQTTFeed{
		cfg:  cfg,
		log:  log,
		subs: make(map[string]mqtt.MessageHandler),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetOrderMatters(true).
		SetOnConnectHandler(f.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			f.log.Warnw("mqtt_connection_lost", "err", err)
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}
	f.client = mqtt.NewClient(opts)
	return f
}

// Client exposes the underlying connection so a command sink can share it.
func (f *MQTTFeed) Client() mqtt.Client {
	return f.client
}

// Connect dials the broker with exponential backoff.
func (f *MQTTFeed) Connect(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = defaultMaxElapsed

	tries := f.cfg.ConnectRetries
	if tries <= 0 {
		tries = defaultConnectTries
	}

	err := backoff.Retry(func() error {
		token := f.client.Connect()
		if token.Wait() && token.Error() != nil {
			f.log.Warnw("mqtt_connect_failed", "broker", f.cfg.Broker, "err", token.Error())
			return token.Error()
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(tries-1)), ctx))
	if err != nil {
		return fmt.Errorf("connect mqtt broker %s: %w", f.cfg.Broker, err)
	}

	f.log.Infow("mqtt_connected", "broker", f.cfg.Broker, "client_id", f.cfg.ClientID)
	return nil
}

// SubscribeTelemetry decodes every message on the device telemetry topic.
// Undecodable payloads are logged and dropped; null payloads are ignored.
func (f *MQTTFeed) SubscribeTelemetry(deviceID string, h TelemetryHandler) error {
	topic := f.cfg.Topics.Telemetry(deviceID)
	return f.subscribe(topic, func(_ mqtt.Client, msg mqtt.Message) {
		snap, err := DecodeSnapshot(msg.Payload())
		if err != nil {
			if !errors.Is(err, errEmptyPayload) {
				f.log.Warnw("telemetry_decode_failed", "topic", msg.Topic(), "err", err)
			}
			return
		}
		h(snap)
	})
}

// SubscribeStatus forwards the device status string.
func (f *MQTTFeed) SubscribeStatus(deviceID string, h StatusHandler) error {
	topic := f.cfg.Topics.Status(deviceID)
	return f.subscribe(topic, func(_ mqtt.Client, msg mqtt.Message) {
		h(DecodeStatus(msg.Payload()))
	})
}

// Connected reports whether the broker connection is currently up.
func (f *MQTTFeed) Connected() bool {
	return f.client != nil && f.client.IsConnectionOpen()
}

// Close unsubscribes and disconnects.
func (f *MQTTFeed) Close() {
	f.mu.Lock()
	topics := make([]string, 0, len(f.subs))
	for t := range f.subs {
		topics = append(topics, t)
	}
	f.mu.Unlock()

	if f.client.IsConnected() {
		if len(topics) > 0 {
			f.client.Unsubscribe(topics...).WaitTimeout(time.Second)
		}
		f.client.Disconnect(disconnectQuiesceMs)
		f.log.Infow("mqtt_disconnected")
	}
}

func (f *MQTTFeed) subscribe(topic string, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	f.subs[topic] = handler
	f.mu.Unlock()

	if !f.client.IsConnectionOpen() {
		// issued by onConnect
		return nil
	}
	token := f.client.Subscribe(topic, f.cfg.QoS, handler)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	f.log.Infow("mqtt_subscribed", "topic", topic, "qos", f.cfg.QoS)
	return nil
}

func (f *MQTTFeed) onConnect(c mqtt.Client) {
	f.mu.Lock()
	subs := make(map[string]mqtt.MessageHandler, len(f.subs))
	for t, h := range f.subs {
		subs[t] = h
	}
	f.mu.Unlock()

	for topic, handler := range subs {
		token := c.Subscribe(topic, f.cfg.QoS, handler)
		if token.Wait() && token.Error() != nil {
			f.log.Errorw("mqtt_resubscribe_failed", "topic", topic, "err", token.Error())
			continue
		}
		f.log.Infow("mqtt_subscribed", "topic", topic, "qos", f.cfg.QoS)
	}
}

// BreakerConfig controls the circuit breaker around command publishes.
type BreakerConfig struct {
	Failures int           // consecutive failures before opening
	Open     time.Duration // how long the breaker stays open
}

// MQTTCommandSink publishes manual-water commands. A circuit breaker makes
// publishes fail fast while the broker keeps rejecting them.
type MQTTCommandSink struct {
	client mqtt.Client
	topics Topics
	qos    byte
	cb     *gobreaker.CircuitBreaker
}

// NewMQTTCommandSink shares client with the feed.
func NewMQTTCommandSink(client mqtt.Client, topics Topics, qos byte, bc BreakerConfig) *MQTTCommandSink {
	fails := bc.Failures
	if fails <= 0 {
		fails = defaultBreakerFails
	}
	open := bc.Open
	if open <= 0 {
		open = defaultBreakerOpen
	}
	return &MQTTCommandSink{
		client: client,
		topics: topics,
		qos:    qos,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     "command-sink",
			Interval: defaultBreakerWindow,
			Timeout:  open,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= uint32(fails)
			},
		}),
	}
}

// PublishManualWater writes "true"/"false" to the device command topic.
// It waits for the broker to accept the publish, never for the device.
func (s *MQTTCommandSink) PublishManualWater(ctx context.Context, deviceID string, active bool) error {
	topic := s.topics.ManualWater(deviceID)
	_, err := s.cb.Execute(func() (any, error) {
		token := s.client.Publish(topic, s.qos, false, strconv.FormatBool(active))
		select {
		case <-token.Done():
			return nil, token.Error()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// State reports the breaker state for health output.
func (s *MQTTCommandSink) State() string {
	return s.cb.State().String()
}
