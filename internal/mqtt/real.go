package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// Options configures a Client.
type Options struct {
	Broker      string
	ClientID    string
	Topic       string
	SystemTopic string
	QoS         byte
	// Retain keeps the last schedule on the broker so a restarted bridge
	// picks it up on subscribe.
	Retain bool
	// BufferSize is how many system events are held while disconnected.
	BufferSize int
}

const (
	connectTimeout      = 10 * time.Second
	publishTimeout      = 5 * time.Second
	disconnectQuiesceMs = 1000
	defaultBufferSize   = 32
)

// Client is a paho-backed Publisher and Subscriber.
type Client struct {
	client paho.Client
	opts   Options

	mu      sync.Mutex
	handler Handler
	pending *ringBuffer
}

// NewClient connects to the broker. The connection is re-established
// automatically; subscriptions are restored and buffered system events are
// flushed on every reconnect.
func NewClient(opts Options) (*Client, error) {
	if opts.Topic == "" {
		opts.Topic = DefaultTopic
	}
	if opts.SystemTopic == "" {
		opts.SystemTopic = DefaultSystemTopic
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}

	c := &Client{
		opts:    opts,
		pending: newRingBuffer(opts.BufferSize),
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: EventOffline})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	po := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(opts.SystemTopic, will, 1, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().Err(err).Str("broker", opts.Broker).Msg("mqtt connection lost")
		})

	c.client = paho.NewClient(po)
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		c.client.Disconnect(0)
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	log.Info().Str("broker", opts.Broker).Str("client_id", opts.ClientID).Msg("connected to mqtt broker")
	return c, nil
}

// onConnect runs on paho's goroutine; it must not block on tokens.
func (c *Client) onConnect(pc paho.Client) {
	c.mu.Lock()
	handler := c.handler
	buffered := c.pending.drainAll()
	c.mu.Unlock()

	if handler != nil {
		token := pc.Subscribe(c.opts.Topic, c.opts.QoS, c.dispatch(handler))
		go func() {
			if token.WaitTimeout(publishTimeout) && token.Error() != nil {
				log.Error().Err(token.Error()).Str("topic", c.opts.Topic).Msg("resubscribe failed")
			}
		}()
	}

	if len(buffered) > 0 {
		log.Info().Int("count", len(buffered)).Msg("mqtt: replaying buffered system events")
	}
	for _, m := range buffered {
		pc.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}

func (c *Client) dispatch(handler Handler) paho.MessageHandler {
	return func(_ paho.Client, m paho.Message) {
		handler(m.Payload())
	}
}

// Subscribe registers handler for the schedule topic.
func (c *Client) Subscribe(handler Handler) error {
	if handler == nil {
		return errors.New("mqtt: nil handler")
	}
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()

	token := c.client.Subscribe(c.opts.Topic, c.opts.QoS, c.dispatch(handler))
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe %s: timeout", c.opts.Topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", c.opts.Topic, err)
	}
	log.Info().Str("topic", c.opts.Topic).Msg("subscribed to mqtt topic")
	return nil
}

// PublishSchedule sends an accepted schedule to the schedule topic.
func (c *Client) PublishSchedule(a Announcement) error {
	payload, err := FormatSchedulePayload(a)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	token := c.client.Publish(c.opts.Topic, c.opts.QoS, c.opts.Retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event. While disconnected the event
// is buffered and replayed on reconnect.
func (c *Client) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	if !c.client.IsConnectionOpen() {
		c.mu.Lock()
		c.pending.push(bufferedMsg{topic: c.opts.SystemTopic, payload: payload, qos: 1, retained: event.Retained})
		c.mu.Unlock()
		return nil
	}

	// QoS 1 (at-least-once) so shutdown events are not lost on a busy link.
	token := c.client.Publish(c.opts.SystemTopic, 1, event.Retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// IsConnected reports whether the broker connection is currently open.
func (c *Client) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (c *Client) Close() error {
	c.client.Disconnect(disconnectQuiesceMs)
	return nil
}
