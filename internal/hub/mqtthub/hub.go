package mqtthub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/framehub-core/internal/hub"
	"github.com/nerrad567/framehub-core/internal/infrastructure/mqtt"
)

// Defaults applied by New for zero Options fields.
const (
	DefaultRequestTimeout = 10 * time.Second
	DefaultEventBuffer    = 256
)

// Transport is the subset of *mqtt.Client the adapter needs.
type Transport interface {
	PublishContext(ctx context.Context, topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Logger is the logging interface used by the adapter.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures the adapter.
type Options struct {
	// Topics selects the protocol root (hub.topic_root).
	Topics mqtt.Topics

	// QoS is used for requests and subscriptions.
	QoS byte

	// RequestTimeout bounds a request when ctx carries no earlier deadline.
	RequestTimeout time.Duration

	// EventBuffer is the capacity of the Events channel.
	EventBuffer int
}

// Hub implements hub.Hub over the FrameHub MQTT hub protocol.
//
// Retained auth and homes topics are cached as they arrive, so
// AuthorizationStatus and Homes only issue a request before the gateway
// has published them. Everything else is a request/response round trip
// correlated by a UUID in the topic.
type Hub struct {
	transport Transport
	topics    mqtt.Topics
	opts      Options
	logger    Logger

	mu        sync.Mutex
	pending   map[string]chan response
	status    hub.AuthorizationStatus
	statusSet bool
	homes     []hub.Home
	primary   *hub.Home
	homesSet  bool

	events    chan hub.Event
	done      chan struct{}
	emitMu    sync.Mutex
	closed    bool
	closeOnce sync.Once
}

// New creates the adapter and subscribes to the hub topics.
//
// Parameters:
//   - t: connected transport, normally *mqtt.Client
//   - opts: protocol options; zero fields take defaults
//
// Returns:
//   - *Hub: ready adapter; call Close to unsubscribe
//   - error: if any subscription fails
func New(t Transport, opts Options) (*Hub, error) {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}

	h := &Hub{
		transport: t,
		topics:    opts.Topics,
		opts:      opts,
		logger:    noopLogger{},
		pending:   make(map[string]chan response),
		events:    make(chan hub.Event, opts.EventBuffer),
		done:      make(chan struct{}),
	}

	for topic, handler := range h.handlers() {
		if err := t.Subscribe(topic, opts.QoS, handler); err != nil {
			h.unsubscribeAll()
			return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}
	return h, nil
}

// SetLogger sets the logger.
func (h *Hub) SetLogger(l Logger) {
	if l == nil {
		l = noopLogger{}
	}
	h.logger = l
}

func (h *Hub) handlers() map[string]mqtt.MessageHandler {
	return map[string]mqtt.MessageHandler{
		h.topics.Auth():               h.onAuth,
		h.topics.Homes():              h.onHomes,
		h.topics.AllHomeEvents():      h.onHomeEvent,
		h.topics.AllAccessoryEvents(): h.onAccessoryEvent,
		h.topics.AllCharacteristics(): h.onCharacteristic,
		h.topics.AllResponses():       h.onResponse,
	}
}

func (h *Hub) unsubscribeAll() {
	for topic := range h.handlers() {
		if err := h.transport.Unsubscribe(topic); err != nil {
			h.logger.Debug("unsubscribe failed", "topic", topic, "error", err)
		}
	}
}

// Close unsubscribes, fails pending requests with ErrClosed and closes
// the Events channel.
func (h *Hub) Close() error {
	h.closeOnce.Do(func() {
		close(h.done)
		h.unsubscribeAll()

		h.emitMu.Lock()
		h.closed = true
		close(h.events)
		h.emitMu.Unlock()
	})
	return nil
}

// Events implements hub.Hub.
func (h *Hub) Events() <-chan hub.Event {
	return h.events
}

// emit delivers an event in arrival order. It blocks while the buffer is
// full so that no change notification is dropped.
func (h *Hub) emit(ev hub.Event) {
	h.emitMu.Lock()
	defer h.emitMu.Unlock()
	if h.closed {
		return
	}
	select {
	case h.events <- ev:
	case <-h.done:
	}
}

// =============================================================================
// hub.Hub
// =============================================================================

// AuthorizationStatus implements hub.Hub.
func (h *Hub) AuthorizationStatus(ctx context.Context) (hub.AuthorizationStatus, error) {
	h.mu.Lock()
	if h.statusSet {
		s := h.status
		h.mu.Unlock()
		return s, nil
	}
	h.mu.Unlock()

	resp, err := h.request(ctx, request{Op: opAuth})
	if err != nil {
		return hub.NotDetermined, err
	}
	status, err := hub.ParseAuthorizationStatus(resp.Status)
	if err != nil {
		return hub.NotDetermined, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return status, nil
}

// Homes implements hub.Hub.
func (h *Hub) Homes(ctx context.Context) ([]hub.Home, *hub.Home, error) {
	h.mu.Lock()
	if h.homesSet {
		homes, primary := cloneHomes(h.homes, h.primary)
		h.mu.Unlock()
		return homes, primary, nil
	}
	h.mu.Unlock()

	resp, err := h.request(ctx, request{Op: opHomes})
	if err != nil {
		return nil, nil, err
	}
	return resp.Homes, primaryOf(resp.Homes, resp.Primary), nil
}

// Accessories implements hub.Hub.
func (h *Hub) Accessories(ctx context.Context, homeID string) ([]hub.Accessory, error) {
	resp, err := h.request(ctx, request{Op: opPull, HomeID: homeID})
	if err != nil {
		return nil, err
	}
	return resp.Accessories, nil
}

// WriteCharacteristic implements hub.Hub. It returns once the gateway has
// answered; the gateway answers after the accessory confirmed the write.
func (h *Hub) WriteCharacteristic(ctx context.Context, accessoryID string, t hub.CharacteristicType, value any) error {
	_, err := h.request(ctx, request{Op: opWrite, AccessoryID: accessoryID, Type: string(t), Value: value})
	return err
}

// ReadCharacteristic implements hub.Hub.
func (h *Hub) ReadCharacteristic(ctx context.Context, accessoryID string, t hub.CharacteristicType) (any, error) {
	resp, err := h.request(ctx, request{Op: opRead, AccessoryID: accessoryID, Type: string(t)})
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// request publishes req under a fresh request ID and waits for the
// matching response.
func (h *Hub) request(ctx context.Context, req request) (response, error) {
	select {
	case <-h.done:
		return response{}, ErrClosed
	default:
	}

	ctx, cancel := context.WithTimeout(ctx, h.opts.RequestTimeout)
	defer cancel()

	id := uuid.NewString()
	ch := make(chan response, 1)

	h.mu.Lock()
	h.pending[id] = ch
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.pending, id)
		h.mu.Unlock()
	}()

	body, err := json.Marshal(req)
	if err != nil {
		return response{}, fmt.Errorf("encoding %s request: %w", req.Op, err)
	}
	if err := h.transport.PublishContext(ctx, h.topics.Request(id), body, h.opts.QoS, false); err != nil {
		return response{}, fmt.Errorf("publishing %s request: %w", req.Op, err)
	}

	select {
	case resp := <-ch:
		if err := resp.err(); err != nil {
			return resp, fmt.Errorf("%s request: %w", req.Op, err)
		}
		return resp, nil
	case <-ctx.Done():
		return response{}, fmt.Errorf("%s request %s: %w", req.Op, id, ctx.Err())
	case <-h.done:
		return response{}, ErrClosed
	}
}

// =============================================================================
// Message handlers
// =============================================================================

func (h *Hub) onResponse(topic string, payload []byte) error {
	parts := mqtt.Tail(topic, h.topics.Prefix("response"))
	if len(parts) != 1 {
		return fmt.Errorf("%w: unexpected response topic %s", ErrMalformedPayload, topic)
	}

	var resp response
	if err := decode(payload, &resp); err != nil {
		return err
	}

	h.mu.Lock()
	ch, ok := h.pending[parts[0]]
	h.mu.Unlock()
	if !ok {
		// Late answer to a request that already timed out.
		h.logger.Debug("dropping unmatched response", "request_id", parts[0])
		return nil
	}
	select {
	case ch <- resp:
	default:
	}
	return nil
}

func (h *Hub) onAuth(_ string, payload []byte) error {
	var p authPayload
	if err := decode(payload, &p); err != nil {
		return err
	}
	status, err := hub.ParseAuthorizationStatus(p.Status)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	h.mu.Lock()
	h.status = status
	h.statusSet = true
	h.mu.Unlock()

	h.emit(hub.AuthorizationChanged{Status: status})
	return nil
}

func (h *Hub) onHomes(_ string, payload []byte) error {
	var p homesPayload
	if err := decode(payload, &p); err != nil {
		return err
	}
	primary := primaryOf(p.Homes, p.Primary)

	h.mu.Lock()
	h.homes = p.Homes
	h.primary = primary
	h.homesSet = true
	homes, prim := cloneHomes(h.homes, h.primary)
	h.mu.Unlock()

	h.emit(hub.HomesUpdated{Homes: homes, Primary: prim})
	return nil
}

func (h *Hub) onHomeEvent(topic string, payload []byte) error {
	parts := mqtt.Tail(topic, h.topics.Prefix("home"))
	if len(parts) != 1 {
		return fmt.Errorf("%w: unexpected home topic %s", ErrMalformedPayload, topic)
	}

	var home hub.Home
	if err := decode(payload, &home); err != nil {
		return err
	}

	switch parts[0] {
	case "added":
		h.mu.Lock()
		h.upsertHomeLocked(home)
		h.mu.Unlock()
		h.emit(hub.HomeAdded{Home: home})
	case "removed":
		h.mu.Lock()
		kept := h.homes[:0]
		for _, existing := range h.homes {
			if existing.ID != home.ID {
				kept = append(kept, existing)
			}
		}
		h.homes = kept
		if h.primary != nil && h.primary.ID == home.ID {
			h.primary = nil
		}
		h.mu.Unlock()
		h.emit(hub.HomeRemoved{Home: home})
	default:
		h.logger.Debug("ignoring home event", "topic", topic)
	}
	return nil
}

// upsertHomeLocked adds home or replaces the cached entry with its ID.
// A re-published home/added only renames.
func (h *Hub) upsertHomeLocked(home hub.Home) {
	if h.primary != nil && h.primary.ID == home.ID {
		h.primary.Name = home.Name
	}
	for i := range h.homes {
		if h.homes[i].ID == home.ID {
			h.homes[i] = home
			return
		}
	}
	h.homes = append(h.homes, home)
}

func (h *Hub) onAccessoryEvent(topic string, payload []byte) error {
	parts := mqtt.Tail(topic, h.topics.Prefix("accessory"))
	if len(parts) != 2 {
		return fmt.Errorf("%w: unexpected accessory topic %s", ErrMalformedPayload, topic)
	}
	homeID := parts[1]

	switch parts[0] {
	case "added":
		var acc hub.Accessory
		if err := decode(payload, &acc); err != nil {
			return err
		}
		h.emit(hub.AccessoryAdded{HomeID: homeID, Accessory: acc})
	case "removed":
		var p removedPayload
		if err := decode(payload, &p); err != nil {
			return err
		}
		h.emit(hub.AccessoryRemoved{HomeID: homeID, AccessoryID: p.ID})
	default:
		h.logger.Debug("ignoring accessory event", "topic", topic)
	}
	return nil
}

func (h *Hub) onCharacteristic(topic string, payload []byte) error {
	parts := mqtt.Tail(topic, h.topics.Prefix("characteristic"))
	if len(parts) != 1 {
		return fmt.Errorf("%w: unexpected characteristic topic %s", ErrMalformedPayload, topic)
	}

	var p characteristicPayload
	if err := decode(payload, &p); err != nil {
		return err
	}
	if p.Type == "" {
		return fmt.Errorf("%w: characteristic type missing", ErrMalformedPayload)
	}

	h.emit(hub.CharacteristicChanged{
		AccessoryID: parts[0],
		Type:        hub.CharacteristicType(p.Type),
		Value:       p.Value,
	})
	return nil
}

func cloneHomes(homes []hub.Home, primary *hub.Home) ([]hub.Home, *hub.Home) {
	out := append([]hub.Home(nil), homes...)
	if primary == nil {
		return out, nil
	}
	p := *primary
	return out, &p
}

var _ hub.Hub = (*Hub)(nil)
