package mqtt

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/framehub-core/internal/infrastructure/config"
)

// maxPayloadSize bounds a single published message (1MB).
const maxPayloadSize = 1 << 20

// MessageHandler receives one message. Paho calls handlers on its own
// goroutines; a returned error is logged and otherwise ignored.
type MessageHandler func(topic string, payload []byte) error

// Logger is the logging interface used by the client.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ConnectionState is reported to the OnConnectionChange callback.
type ConnectionState struct {
	Connected bool
	// Err is why the connection dropped. Nil when Connected is true.
	Err error
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Client is the broker connection behind the MQTT hub backend.
//
// Subscriptions are remembered and replayed after every reconnect. Core's
// presence is kept on the retained SystemStatus topic: "online" from the
// connect handler, "offline" from Close, and the broker-published will
// when the process dies without closing.
//
// All methods are safe for concurrent use.
type Client struct {
	cfg  config.MQTTConfig
	paho pahomqtt.Client

	online atomic.Bool

	mu       sync.Mutex
	subs     map[string]subscription
	onChange func(ConnectionState)
	logger   Logger
}

// Connect dials the broker and waits until the session is up, ctx is done
// or the connect timeout passes.
//
// Parameters:
//   - ctx: bounds the initial connection attempt
//   - cfg: broker address, credentials and reconnect backoff
//
// Returns:
//   - *Client: connected client; paho reconnects it automatically
//   - error: ErrConnectionFailed wrapping the cause
func Connect(ctx context.Context, cfg config.MQTTConfig) (*Client, error) {
	c := &Client{cfg: cfg, subs: make(map[string]subscription)}

	opts := clientOptions(cfg)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnected() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleLost(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		c.log().Warn("MQTT reconnecting", "broker", brokerURL(cfg))
	})
	c.paho = pahomqtt.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := await(ctx, c.paho.Connect()); err != nil {
		// Stops the retry loop paho runs while the first connect is pending.
		c.paho.Disconnect(0)
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, brokerURL(cfg), err)
	}

	// The connect handler runs asynchronously and may not have fired yet.
	c.online.Store(true)
	return c, nil
}

// await waits for tok or ctx, whichever finishes first.
func await(ctx context.Context, tok pahomqtt.Token) error {
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) handleConnected() {
	c.online.Store(true)

	c.mu.Lock()
	subs := maps.Clone(c.subs)
	onChange := c.onChange
	c.mu.Unlock()

	for topic, s := range subs {
		c.paho.Subscribe(topic, s.qos, c.dispatch(s.handler))
	}
	c.paho.Publish(Topics{}.SystemStatus(), c.qos(), true, presence(statusOnline, c.cfg.Broker.ClientID, ""))

	if onChange != nil {
		onChange(ConnectionState{Connected: true})
	}
}

func (c *Client) handleLost(err error) {
	c.online.Store(false)

	c.mu.Lock()
	onChange := c.onChange
	c.mu.Unlock()

	if onChange != nil {
		onChange(ConnectionState{Err: err})
	}
}

func (c *Client) qos() byte {
	return byte(c.cfg.QoS) //nolint:gosec // validated 0-2
}

// PublishContext publishes payload on topic and waits for the broker to
// acknowledge it (QoS 1 and 2) or for ctx to end.
func (c *Client) PublishContext(ctx context.Context, topic string, payload []byte, qos byte, retained bool) error {
	if err := checkTopic(topic, qos); err != nil {
		return err
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrPayloadTooLarge, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	if err := await(ctx, c.paho.Publish(topic, qos, retained, payload)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

// Subscribe registers handler for topic, which may contain + and #
// wildcards. The subscription is replayed after reconnects until
// Unsubscribe removes it.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if err := checkTopic(topic, qos); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %s", ErrSubscribeFailed, topic)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.mu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()
	if err := await(ctx, c.paho.Subscribe(topic, qos, c.dispatch(handler))); err != nil {
		c.forget(topic)
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}
	return nil
}

// Unsubscribe removes the subscription registered for exactly topic.
// Messages already in flight may still be delivered.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	c.forget(topic)

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()
	if err := await(ctx, c.paho.Unsubscribe(topic)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}
	return nil
}

func (c *Client) forget(topic string) {
	c.mu.Lock()
	delete(c.subs, topic)
	c.mu.Unlock()
}

// Subscriptions returns the remembered topic filters in sorted order.
func (c *Client) Subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.subs))
}

func checkTopic(topic string, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return fmt.Errorf("%w: %d", ErrInvalidQoS, qos)
	}
	return nil
}

// dispatch adapts a MessageHandler to paho, logging returned errors and
// recovering panics so one bad message cannot stop delivery.
func (c *Client) dispatch(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.log().Error("MQTT handler panicked", "topic", msg.Topic(), "panic", r)
			}
		}()
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.log().Warn("MQTT message rejected", "topic", msg.Topic(), "error", err)
		}
	}
}

// Close publishes the graceful offline status and disconnects. Closing a
// client that never connected is a no-op.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}
	if c.IsConnected() {
		ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
		tok := c.paho.Publish(Topics{}.SystemStatus(), c.qos(), true,
			presence(statusOffline, c.cfg.Broker.ClientID, reasonShutdown))
		_ = await(ctx, tok)
		cancel()
	}
	c.paho.Disconnect(disconnectQuiesceMS)
	c.online.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the broker session is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether the broker session is currently up.
func (c *Client) IsConnected() bool {
	return c.paho != nil && c.online.Load() && c.paho.IsConnected()
}

// OnConnectionChange sets a callback for connects, reconnects and
// connection losses. Pass nil to remove it.
func (c *Client) OnConnectionChange(fn func(ConnectionState)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// SetLogger sets the logger for handler failures and reconnect attempts.
func (c *Client) SetLogger(l Logger) {
	c.mu.Lock()
	c.logger = l
	c.mu.Unlock()
}

func (c *Client) log() Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.logger == nil {
		return noopLogger{}
	}
	return c.logger
}
