package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"esp32_supervisor/internal/logger"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTT connection tuning.
const (
	mqttKeepAlive       = 60 * time.Second
	mqttPingTimeout     = 10 * time.Second
	mqttDisconnectQuiet = 250 // ms
	defaultQoS          = 1
)

// MQTTConfig holds broker connection settings.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// MQTTStore maps store paths onto MQTT topics. Values are published retained,
// so the broker hands the current value to every new subscription, and the
// broker echoes our own publishes back to our subscriptions.
// Reconnection is handled by the paho client; subscriptions are restored on
// every (re)connect.
type MQTTStore struct {
	client   mqtt.Client
	qos      byte
	log      *logger.Logger
	reg      *registry
	dispatch *dispatcher

	mu     sync.Mutex // orders inbound messages and replays
	closed bool
}

var _ RemoteStore = (*MQTTStore)(nil)

// NewMQTTStore connects to the broker described by cfg.
func NewMQTTStore(cfg MQTTConfig, log *logger.Logger) (*MQTTStore, error) {
	s := &MQTTStore{
		qos:      cfg.QoS,
		log:      logger.OrNop(log),
		reg:      newRegistry(),
		dispatch: newDispatcher(),
	}
	if s.qos > 2 {
		s.qos = defaultQoS
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(mqttKeepAlive)
	opts.SetPingTimeout(mqttPingTimeout)
	opts.SetOnConnectHandler(s.onConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.log.Warnw("mqtt_connection_lost", "err", err)
	})

	s.client = mqtt.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		s.dispatch.stop()
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", cfg.Broker, token.Error())
	}
	s.log.Infow("mqtt_connected", "broker", cfg.Broker, "client_id", cfg.ClientID)
	return s, nil
}

// newMQTTStoreWithClient wraps an already connected client.
func newMQTTStoreWithClient(client mqtt.Client, qos byte, log *logger.Logger) *MQTTStore {
	return &MQTTStore{
		client:   client,
		qos:      qos,
		log:      logger.OrNop(log),
		reg:      newRegistry(),
		dispatch: newDispatcher(),
	}
}

// Subscribe registers h for path, subscribing on the broker for the first
// local subscriber of a topic.
func (s *MQTTStore) Subscribe(ctx context.Context, path string, h Handler) (Subscription, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	sub, first, replay := s.reg.add(path, h, s.release)
	s.dispatch.enqueue(replay...)
	s.mu.Unlock()

	if !first {
		return sub, nil
	}
	if err := waitToken(ctx, s.client.Subscribe(path, s.qos, s.onMessage)); err != nil {
		s.reg.drop(sub)
		sub.closed.Store(true)
		return nil, fmt.Errorf("subscribe %q: %w", path, err)
	}
	return sub, nil
}

// Set publishes the JSON encoding of value as the retained value of path
// and waits for the broker acknowledgement or ctx.
func (s *MQTTStore) Set(ctx context.Context, path string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value for %q: %w", path, err)
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if err := waitToken(ctx, s.client.Publish(path, s.qos, true, b)); err != nil {
		return fmt.Errorf("publish %q: %w", path, err)
	}
	return nil
}

// Close ends every subscription with ErrClosed and disconnects.
func (s *MQTTStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.dispatch.enqueue(s.reg.terminate(ErrClosed)...)
	s.mu.Unlock()

	s.dispatch.stop()
	s.client.Disconnect(mqttDisconnectQuiet)
	s.log.Infow("mqtt_disconnected")
	return nil
}

func (s *MQTTStore) onMessage(_ mqtt.Client, msg mqtt.Message) {
	payload := append([]byte(nil), msg.Payload()...)
	if len(payload) == 0 {
		// a cleared retained message means the value was removed
		payload = []byte("null")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.dispatch.enqueue(s.reg.publish(msg.Topic(), payload)...)
}

func (s *MQTTStore) onConnect(c mqtt.Client) {
	for _, path := range s.reg.paths() {
		token := c.Subscribe(path, s.qos, s.onMessage)
		go func(path string) {
			if token.Wait() && token.Error() != nil {
				s.log.Errorw("mqtt_resubscribe_failed", "path", path, "err", token.Error())
			}
		}(path)
	}
}

func (s *MQTTStore) release(sub *subscription) {
	// The broker replays the retained value on the next subscribe.
	if s.reg.drop(sub) {
		s.client.Unsubscribe(sub.path)
	}
}

// waitToken blocks until the token completes or ctx is done.
func waitToken(ctx context.Context, t mqtt.Token) error {
	select {
	case <-t.Done():
		return t.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
