package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/dht22-sensor/internal/dht22"
	"github.com/sweeney/dht22-sensor/internal/logic"
)

// DefaultBufferSize is how many messages are kept while the broker is unreachable.
const DefaultBufferSize = 100

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	SensorID   string
	Scale      dht22.Scale
	BufferSize int
}

// RealPublisher publishes to an actual MQTT broker.
// Messages published while disconnected are buffered and replayed on reconnect.
type RealPublisher struct {
	client      paho.Client
	topic       string
	systemTopic string
	scale       dht22.Scale

	mu            sync.Mutex
	buffer        *ringBuffer
	everConnected bool
}

// NewRealPublisher creates a publisher connected to the given broker.
// If the broker is unreachable at startup the client keeps retrying in the
// background and messages are buffered until it connects.
func NewRealPublisher(opts Options) (*RealPublisher, error) {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	p := &RealPublisher{
		topic:       Topic(opts.SensorID),
		systemTopic: TopicSystem(opts.SensorID),
		scale:       opts.Scale,
		buffer:      newRingBuffer(opts.BufferSize),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "OFFLINE",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(p.systemTopic, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().Err(err).Msg("mqtt: connection lost")
		})

	p.client = paho.NewClient(clientOpts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Warn().Str("broker", opts.Broker).Msg("mqtt: broker not reachable yet, buffering until connected")
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// onConnect runs on paho's goroutine after every (re)connection.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.replay(c.Publish)
}

// replay announces a reconnection and flushes the offline buffer through
// publish, oldest first.
func (p *RealPublisher) replay(publish func(topic string, qos byte, retained bool, payload interface{}) paho.Token) {
	p.mu.Lock()
	first := !p.everConnected
	p.everConnected = true
	pending, dropped := p.buffer.drain()
	p.mu.Unlock()

	if first {
		log.Info().Int("buffered", len(pending)).Msg("mqtt: connected")
	} else {
		log.Info().Int("buffered", len(pending)).Int("dropped", dropped).Msg("mqtt: reconnected")
		payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		if err != nil {
			log.Error().Err(err).Msg("mqtt: format reconnected event")
		} else {
			publish(p.systemTopic, 1, false, payload)
		}
	}

	for _, msg := range pending {
		publish(msg.topic, msg.qos, msg.retained, msg.payload)
	}
}

// Publish sends a reading event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event, p.scale)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	if err := p.send(bufferedMsg{topic: p.topic, payload: payload}); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) - lifecycle events should be delivered
	msg := bufferedMsg{topic: p.systemTopic, payload: payload, qos: 1, retained: event.Retained}
	if err := p.send(msg); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.buffer.push(msg)
		n := p.buffer.len()
		p.mu.Unlock()
		log.Debug().Str("topic", msg.topic).Int("buffered", n).Msg("mqtt: disconnected, message buffered")
		return nil
	}

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("timeout")
	}
	return token.Error()
}

// IsConnected reports whether the client currently has an open connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
