package huebridge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/amimof/huego"

	"github.com/nerrad567/framehub-core/internal/hub"
)

// Defaults applied by New for zero Options fields.
const (
	DefaultHomeID       = "hue"
	DefaultHomeName     = "Hue Bridge"
	DefaultPollInterval = 2 * time.Second
	eventBuffer         = 128
)

// ErrInvalidAccessoryID is returned for accessory IDs this bridge did not issue.
var ErrInvalidAccessoryID = errors.New("huebridge: invalid accessory id")

// Bridge is the subset of *huego.Bridge the adapter uses.
type Bridge interface {
	GetLightsContext(ctx context.Context) ([]huego.Light, error)
	GetLightContext(ctx context.Context, i int) (*huego.Light, error)
	SetLightStateContext(ctx context.Context, i int, l huego.State) (*huego.Response, error)
	GetGroupsContext(ctx context.Context) ([]huego.Group, error)
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
	HomeID       string
	HomeName     string
	PollInterval time.Duration

	// Authorized reports whether the bridge user has been registered.
	// A bridge without a username is reported as NotDetermined.
	Authorized bool
}

// Hub exposes a Philips Hue bridge as a single-home hub.Hub. The bridge
// has no push channel, so Run polls it and turns differences into events.
type Hub struct {
	bridge Bridge
	opts   Options
	logger Logger
	home   hub.Home

	mu   sync.Mutex
	last map[string]hub.Accessory

	events  chan hub.Event
	runOnce sync.Once
}

// Connect creates a bridge client for host with a registered username.
func Connect(host, username string, opts Options) *Hub {
	opts.Authorized = username != ""
	return New(huego.New(host, username), opts)
}

// New wraps a bridge client.
func New(b Bridge, opts Options) *Hub {
	if opts.HomeID == "" {
		opts.HomeID = DefaultHomeID
	}
	if opts.HomeName == "" {
		opts.HomeName = DefaultHomeName
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Hub{
		bridge: b,
		opts:   opts,
		logger: noopLogger{},
		home:   hub.Home{ID: opts.HomeID, Name: opts.HomeName},
		events: make(chan hub.Event, eventBuffer),
	}
}

// SetLogger sets the logger.
func (h *Hub) SetLogger(l Logger) {
	if l == nil {
		l = noopLogger{}
	}
	h.logger = l
}

// Events implements hub.Hub. The channel closes when Run returns.
func (h *Hub) Events() <-chan hub.Event {
	return h.events
}

// AuthorizationStatus implements hub.Hub.
func (h *Hub) AuthorizationStatus(context.Context) (hub.AuthorizationStatus, error) {
	if h.opts.Authorized {
		return hub.Authorized, nil
	}
	return hub.NotDetermined, nil
}

// Homes implements hub.Hub. The bridge is always the one primary home.
func (h *Hub) Homes(context.Context) ([]hub.Home, *hub.Home, error) {
	primary := h.home
	return []hub.Home{h.home}, &primary, nil
}

// Accessories implements hub.Hub.
func (h *Hub) Accessories(ctx context.Context, homeID string) ([]hub.Accessory, error) {
	if homeID != h.home.ID {
		return nil, fmt.Errorf("%w: %s", hub.ErrHomeNotFound, homeID)
	}
	return h.fetch(ctx)
}

// WriteCharacteristic implements hub.Hub.
func (h *Hub) WriteCharacteristic(ctx context.Context, accessoryID string, t hub.CharacteristicType, value any) error {
	n, ok := lightNumber(accessoryID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidAccessoryID, accessoryID)
	}
	state, err := toState(t, value)
	if err != nil {
		return fmt.Errorf("writing %s on %s: %w", t, accessoryID, err)
	}
	if _, err := h.bridge.SetLightStateContext(ctx, n, state); err != nil {
		return fmt.Errorf("setting light %d state: %w", n, err)
	}
	return nil
}

// ReadCharacteristic implements hub.Hub.
func (h *Hub) ReadCharacteristic(ctx context.Context, accessoryID string, t hub.CharacteristicType) (any, error) {
	n, ok := lightNumber(accessoryID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAccessoryID, accessoryID)
	}
	light, err := h.bridge.GetLightContext(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("getting light %d: %w", n, err)
	}
	light.ID = n
	acc := toAccessory(*light, "")
	c, ok := acc.Characteristic(t)
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", hub.ErrCharacteristicNotFound, t, accessoryID)
	}
	return c.Value, nil
}

// fetch reads all lights and rooms, sorted by accessory ID.
func (h *Hub) fetch(ctx context.Context) ([]hub.Accessory, error) {
	lights, err := h.bridge.GetLightsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting lights: %w", err)
	}
	groups, err := h.bridge.GetGroupsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting groups: %w", err)
	}
	rooms := roomIndex(groups)

	out := make([]hub.Accessory, 0, len(lights))
	for _, l := range lights {
		out = append(out, toAccessory(l, rooms[l.ID]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Run polls the bridge until ctx is done, then closes Events. The first
// poll only records a baseline. Poll failures are logged and retried on
// the next tick.
func (h *Hub) Run(ctx context.Context) error {
	started := false
	h.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("huebridge: already running")
	}
	defer close(h.events)

	ticker := time.NewTicker(h.opts.PollInterval)
	defer ticker.Stop()

	h.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			h.poll(ctx)
		}
	}
}

// poll fetches current state and emits the differences from the last poll.
func (h *Hub) poll(ctx context.Context) {
	accs, err := h.fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			h.logger.Warn("hue poll failed", "error", err)
		}
		return
	}

	current := make(map[string]hub.Accessory, len(accs))
	for _, a := range accs {
		current[a.ID] = a
	}

	h.mu.Lock()
	prev := h.last
	h.last = current
	h.mu.Unlock()

	if prev == nil {
		return
	}
	for _, ev := range diff(h.home.ID, prev, accs) {
		select {
		case h.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// diff lists the events that turn prev into current. current is ordered,
// so events are produced deterministically.
func diff(homeID string, prev map[string]hub.Accessory, current []hub.Accessory) []hub.Event {
	var events []hub.Event
	seen := make(map[string]bool, len(current))

	for _, acc := range current {
		seen[acc.ID] = true
		old, ok := prev[acc.ID]
		if !ok {
			events = append(events, hub.AccessoryAdded{HomeID: homeID, Accessory: acc.Clone()})
			continue
		}
		for _, svc := range acc.Services {
			for _, c := range svc.Characteristics {
				if oc, ok := old.Characteristic(c.Type); ok && oc.Value == c.Value {
					continue
				}
				events = append(events, hub.CharacteristicChanged{AccessoryID: acc.ID, Type: c.Type, Value: c.Value})
			}
		}
	}

	removed := make([]string, 0)
	for id := range prev {
		if !seen[id] {
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	for _, id := range removed {
		events = append(events, hub.AccessoryRemoved{HomeID: homeID, AccessoryID: id})
	}
	return events
}

var _ hub.Hub = (*Hub)(nil)
