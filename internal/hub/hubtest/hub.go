// Package hubtest provides a scriptable in-memory hub.Hub for tests. The
// memory backend uses memhub instead.
package hubtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/framehub-core/internal/hub"
)

// Write records one WriteCharacteristic call.
type Write struct {
	AccessoryID string
	Type        hub.CharacteristicType
	Value       any
}

type writeKey struct {
	accessoryID string
	t           hub.CharacteristicType
}

// Hub is an in-memory hub. The zero value is not usable; call New.
type Hub struct {
	mu          sync.Mutex
	homes       []hub.Home
	primary     *hub.Home
	status      hub.AuthorizationStatus
	accessories map[string][]hub.Accessory // by home ID

	writeErrs  map[writeKey]error
	writeGates map[writeKey]chan struct{}
	writes     []Write

	pullGate    chan struct{}
	pullStarted chan struct{}
	pulls       int
	pullErr     error

	events chan hub.Event
}

// New creates an empty hub with an event buffer of 64.
func New() *Hub {
	return &Hub{
		accessories: make(map[string][]hub.Accessory),
		writeErrs:   make(map[writeKey]error),
		writeGates:  make(map[writeKey]chan struct{}),
		events:      make(chan hub.Event, 64),
	}
}

// SetHomes sets the home list and primary home without emitting an event.
func (h *Hub) SetHomes(homes []hub.Home, primary *hub.Home) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.homes = append([]hub.Home(nil), homes...)
	if primary != nil {
		p := *primary
		h.primary = &p
	} else {
		h.primary = nil
	}
}

// SetAuthorization sets the status without emitting an event.
func (h *Hub) SetAuthorization(status hub.AuthorizationStatus) {
	h.mu.Lock()
	h.status = status
	h.mu.Unlock()
}

// SetAccessories replaces the accessories of a home.
func (h *Hub) SetAccessories(homeID string, accessories []hub.Accessory) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cpy := make([]hub.Accessory, len(accessories))
	for i := range accessories {
		cpy[i] = accessories[i].Clone()
	}
	h.accessories[homeID] = cpy
}

// FailWrite makes every write of t on accessoryID fail with err.
// A nil err clears the failure.
func (h *Hub) FailWrite(accessoryID string, t hub.CharacteristicType, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	k := writeKey{accessoryID, t}
	if err == nil {
		delete(h.writeErrs, k)
		return
	}
	h.writeErrs[k] = err
}

// BlockWrite makes writes of t on accessoryID wait until the returned
// release function is called (or the write's context ends).
func (h *Hub) BlockWrite(accessoryID string, t hub.CharacteristicType) (release func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	gate := make(chan struct{})
	h.writeGates[writeKey{accessoryID, t}] = gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// BlockPulls makes Accessories wait until the returned release function is
// called. started receives one value each time a pull begins waiting.
func (h *Hub) BlockPulls() (started <-chan struct{}, release func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	gate := make(chan struct{})
	ch := make(chan struct{}, 16)
	h.pullGate = gate
	h.pullStarted = ch
	var once sync.Once
	return ch, func() { once.Do(func() { close(gate) }) }
}

// FailPulls makes Accessories return err. A nil err clears the failure.
func (h *Hub) FailPulls(err error) {
	h.mu.Lock()
	h.pullErr = err
	h.mu.Unlock()
}

// Emit queues an event on the event stream.
func (h *Hub) Emit(e hub.Event) {
	h.events <- e
}

// Close closes the event stream.
func (h *Hub) Close() {
	close(h.events)
}

// Writes returns a copy of all recorded writes, in call order.
func (h *Hub) Writes() []Write {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Write(nil), h.writes...)
}

// Pulls returns how many times Accessories has been called.
func (h *Hub) Pulls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pulls
}

// Value returns the hub-side value of a characteristic.
func (h *Hub) Value(accessoryID string, t hub.CharacteristicType) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	a := h.findLocked(accessoryID)
	if a == nil {
		return nil, false
	}
	c, ok := a.Characteristic(t)
	if !ok {
		return nil, false
	}
	return c.Value, true
}

// Homes implements hub.Hub.
func (h *Hub) Homes(_ context.Context) ([]hub.Home, *hub.Home, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var primary *hub.Home
	if h.primary != nil {
		p := *h.primary
		primary = &p
	}
	return append([]hub.Home(nil), h.homes...), primary, nil
}

// AuthorizationStatus implements hub.Hub.
func (h *Hub) AuthorizationStatus(_ context.Context) (hub.AuthorizationStatus, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status, nil
}

// Accessories implements hub.Hub.
func (h *Hub) Accessories(ctx context.Context, homeID string) ([]hub.Accessory, error) {
	h.mu.Lock()
	h.pulls++
	gate, started := h.pullGate, h.pullStarted
	h.mu.Unlock()

	if gate != nil {
		started <- struct{}{}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pullErr != nil {
		return nil, h.pullErr
	}
	list, ok := h.accessories[homeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", hub.ErrHomeNotFound, homeID)
	}
	out := make([]hub.Accessory, len(list))
	for i := range list {
		out[i] = list[i].Clone()
	}
	return out, nil
}

// WriteCharacteristic implements hub.Hub. Successful writes update the
// hub-side value but do not emit a CharacteristicChanged event.
func (h *Hub) WriteCharacteristic(ctx context.Context, accessoryID string, t hub.CharacteristicType, value any) error {
	k := writeKey{accessoryID, t}

	h.mu.Lock()
	h.writes = append(h.writes, Write{AccessoryID: accessoryID, Type: t, Value: value})
	gate := h.writeGates[k]
	h.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.writeErrs[k]; err != nil {
		return err
	}
	a := h.findLocked(accessoryID)
	if a == nil {
		return fmt.Errorf("%w: %s", hub.ErrAccessoryNotFound, accessoryID)
	}
	if !a.SetCharacteristic(t, value) {
		return fmt.Errorf("%w: %s on %s", hub.ErrCharacteristicNotFound, t, accessoryID)
	}
	return nil
}

// ReadCharacteristic implements hub.Hub.
func (h *Hub) ReadCharacteristic(_ context.Context, accessoryID string, t hub.CharacteristicType) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	a := h.findLocked(accessoryID)
	if a == nil {
		return nil, fmt.Errorf("%w: %s", hub.ErrAccessoryNotFound, accessoryID)
	}
	c, ok := a.Characteristic(t)
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", hub.ErrCharacteristicNotFound, t, accessoryID)
	}
	return c.Value, nil
}

// Events implements hub.Hub.
func (h *Hub) Events() <-chan hub.Event {
	return h.events
}

func (h *Hub) findLocked(accessoryID string) *hub.Accessory {
	for homeID := range h.accessories {
		list := h.accessories[homeID]
		for i := range list {
			if list[i].ID == accessoryID {
				return &list[i]
			}
		}
	}
	return nil
}

// Light builds a lightbulb accessory. A negative hue or saturation omits
// that characteristic.
func Light(id, name, room string, on bool, brightness, hue, saturation int) hub.Accessory {
	chars := []hub.Characteristic{
		{Type: hub.CharPowerState, Value: on},
		{Type: hub.CharBrightness, Value: brightness},
	}
	if hue >= 0 {
		chars = append(chars, hub.Characteristic{Type: hub.CharHue, Value: hue})
	}
	if saturation >= 0 {
		chars = append(chars, hub.Characteristic{Type: hub.CharSaturation, Value: saturation})
	}
	return hub.Accessory{
		ID:   id,
		Name: name,
		Room: room,
		Services: []hub.Service{
			{Type: hub.ServiceLightbulb, Characteristics: chars},
		},
	}
}

// Simple builds an accessory with one service of each given type and no
// characteristics.
func Simple(id, name, room string, services ...hub.ServiceType) hub.Accessory {
	a := hub.Accessory{ID: id, Name: name, Room: room}
	for _, s := range services {
		a.Services = append(a.Services, hub.Service{Type: s})
	}
	return a
}
