// Package memhub is an in-memory hub.Hub for running the core without a
// hub (hub.backend: memory).
//
// It holds one authorized home. Writes change the stored value and are
// echoed on the event stream as CharacteristicChanged, the way a real hub
// reports its own changes. Nothing leaves the process.
package memhub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/framehub-core/internal/hub"
)

// EventBuffer is the capacity of the event stream. Events that do not fit
// are dropped.
const EventBuffer = 64

// ErrClosed is returned by every call after Close.
var ErrClosed = errors.New("memhub: closed")

// Hub is an in-memory hub.
type Hub struct {
	mu          sync.Mutex
	home        hub.Home
	status      hub.AuthorizationStatus
	accessories []hub.Accessory
	closed      bool
	dropped     int

	events chan hub.Event
}

// New creates an authorized hub whose only home, also the primary, holds
// accessories.
func New(home hub.Home, accessories ...hub.Accessory) *Hub {
	h := &Hub{
		home:        home,
		status:      hub.Authorized,
		accessories: make([]hub.Accessory, len(accessories)),
		events:      make(chan hub.Event, EventBuffer),
	}
	for i := range accessories {
		h.accessories[i] = accessories[i].Clone()
	}
	return h
}

// SetAuthorization changes the grant state and emits AuthorizationChanged.
func (h *Hub) SetAuthorization(status hub.AuthorizationStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || h.status == status {
		return
	}
	h.status = status
	h.emitLocked(hub.AuthorizationChanged{Status: status})
}

// Dropped reports how many events did not fit the buffer.
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Close ends the event stream. It is safe to call more than once.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.events)
	}
	return nil
}

// Homes implements hub.Hub.
func (h *Hub) Homes(ctx context.Context) ([]hub.Home, *hub.Home, error) {
	if err := h.check(ctx); err != nil {
		return nil, nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	primary := h.home
	return []hub.Home{h.home}, &primary, nil
}

// AuthorizationStatus implements hub.Hub.
func (h *Hub) AuthorizationStatus(ctx context.Context) (hub.AuthorizationStatus, error) {
	if err := h.check(ctx); err != nil {
		return hub.NotDetermined, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status, nil
}

// Accessories implements hub.Hub.
func (h *Hub) Accessories(ctx context.Context, homeID string) ([]hub.Accessory, error) {
	if err := h.check(ctx); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if homeID != h.home.ID {
		return nil, fmt.Errorf("%w: %s", hub.ErrHomeNotFound, homeID)
	}
	out := make([]hub.Accessory, len(h.accessories))
	for i := range h.accessories {
		out[i] = h.accessories[i].Clone()
	}
	return out, nil
}

// WriteCharacteristic implements hub.Hub.
func (h *Hub) WriteCharacteristic(ctx context.Context, accessoryID string, t hub.CharacteristicType, value any) error {
	if err := h.check(ctx); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	a, err := h.findLocked(accessoryID)
	if err != nil {
		return err
	}
	if !a.SetCharacteristic(t, value) {
		return fmt.Errorf("%w: %s on %s", hub.ErrCharacteristicNotFound, t, accessoryID)
	}
	h.emitLocked(hub.CharacteristicChanged{AccessoryID: accessoryID, Type: t, Value: value})
	return nil
}

// ReadCharacteristic implements hub.Hub.
func (h *Hub) ReadCharacteristic(ctx context.Context, accessoryID string, t hub.CharacteristicType) (any, error) {
	if err := h.check(ctx); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	a, err := h.findLocked(accessoryID)
	if err != nil {
		return nil, err
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

func (h *Hub) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	return nil
}

func (h *Hub) findLocked(accessoryID string) (*hub.Accessory, error) {
	if h.closed {
		return nil, ErrClosed
	}
	for i := range h.accessories {
		if h.accessories[i].ID == accessoryID {
			return &h.accessories[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", hub.ErrAccessoryNotFound, accessoryID)
}

// emitLocked never blocks: the caller holds mu.
func (h *Hub) emitLocked(e hub.Event) {
	if h.closed {
		return
	}
	select {
	case h.events <- e:
	default:
		h.dropped++
	}
}
