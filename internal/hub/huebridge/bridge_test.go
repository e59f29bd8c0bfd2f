package huebridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amimof/huego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/framehub-core/internal/hub"
)

type setCall struct {
	light int
	state huego.State
}

// fakeBridge keeps light state in memory. SetLightStateContext does not
// apply the state; tests change lights explicitly with setLights.
type fakeBridge struct {
	mu       sync.Mutex
	lights   []huego.Light
	groups   []huego.Group
	sets     []setCall
	err      error
	getCalls int
}

func (b *fakeBridge) GetLightsContext(context.Context) ([]huego.Light, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.getCalls++
	if b.err != nil {
		return nil, b.err
	}
	out := make([]huego.Light, len(b.lights))
	for i, l := range b.lights {
		out[i] = l
		if l.State != nil {
			st := *l.State
			out[i].State = &st
		}
	}
	return out, nil
}

func (b *fakeBridge) GetLightContext(_ context.Context, i int) (*huego.Light, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, l := range b.lights {
		if l.ID == i {
			cpy := l
			return &cpy, nil
		}
	}
	return nil, errors.New("resource not available")
}

func (b *fakeBridge) SetLightStateContext(_ context.Context, i int, s huego.State) (*huego.Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	b.sets = append(b.sets, setCall{light: i, state: s})
	return &huego.Response{}, nil
}

func (b *fakeBridge) GetGroupsContext(context.Context) ([]huego.Group, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.groups, nil
}

func (b *fakeBridge) setLights(lights ...huego.Light) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lights = lights
}

func (b *fakeBridge) polls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.getCalls
}

func colorLight(id int, name string, on bool, bri uint8) huego.Light {
	return huego.Light{ID: id, Name: name, Type: "Extended color light", State: &huego.State{On: on, Bri: bri}}
}

func TestHomesAndAuthorization(t *testing.T) {
	h := New(&fakeBridge{}, Options{HomeName: "Flat", Authorized: true})

	homes, primary, err := h.Homes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []hub.Home{{ID: DefaultHomeID, Name: "Flat"}}, homes)
	assert.Equal(t, homes[0], *primary)

	status, err := h.AuthorizationStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, hub.Authorized, status)

	status, err = New(&fakeBridge{}, Options{}).AuthorizationStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, hub.NotDetermined, status)
}

func TestAccessories(t *testing.T) {
	b := &fakeBridge{
		lights: []huego.Light{colorLight(2, "Desk", false, 10), colorLight(1, "Ceiling", true, 254)},
		groups: []huego.Group{{Name: "Study", Type: "Room", Lights: []string{"2"}}},
	}
	h := New(b, Options{})

	accs, err := h.Accessories(context.Background(), DefaultHomeID)
	require.NoError(t, err)
	require.Len(t, accs, 2)
	assert.Equal(t, "light-1", accs[0].ID)
	assert.Equal(t, "", accs[0].Room)
	assert.Equal(t, "Study", accs[1].Room)

	_, err = h.Accessories(context.Background(), "elsewhere")
	assert.ErrorIs(t, err, hub.ErrHomeNotFound)
}

func TestWriteCharacteristic(t *testing.T) {
	b := &fakeBridge{}
	h := New(b, Options{})

	require.NoError(t, h.WriteCharacteristic(context.Background(), "light-3", hub.CharBrightness, 50))
	require.Len(t, b.sets, 1)
	assert.Equal(t, setCall{light: 3, state: huego.State{On: true, Bri: 127}}, b.sets[0])

	err := h.WriteCharacteristic(context.Background(), "bulb", hub.CharPowerState, true)
	assert.ErrorIs(t, err, ErrInvalidAccessoryID)

	err = h.WriteCharacteristic(context.Background(), "light-3", hub.CharLockTargetState, 1)
	assert.ErrorIs(t, err, hub.ErrCharacteristicNotFound)

	b.err = errors.New("bridge unreachable")
	err = h.WriteCharacteristic(context.Background(), "light-3", hub.CharPowerState, true)
	assert.ErrorContains(t, err, "bridge unreachable")
}

func TestReadCharacteristic(t *testing.T) {
	b := &fakeBridge{lights: []huego.Light{colorLight(1, "Lamp", true, 127)}}
	h := New(b, Options{})

	v, err := h.ReadCharacteristic(context.Background(), "light-1", hub.CharBrightness)
	require.NoError(t, err)
	assert.Equal(t, 50, v)

	_, err = h.ReadCharacteristic(context.Background(), "light-1", hub.CharCurrentTemperature)
	assert.ErrorIs(t, err, hub.ErrCharacteristicNotFound)
}

func TestDiff(t *testing.T) {
	prev := map[string]hub.Accessory{
		"light-1": toAccessory(colorLight(1, "A", true, 254), ""),
		"light-2": toAccessory(colorLight(2, "B", true, 254), ""),
	}
	current := []hub.Accessory{
		toAccessory(colorLight(1, "A", false, 254), ""),
		toAccessory(colorLight(3, "C", true, 254), ""),
	}

	events := diff("hue", prev, current)

	require.Len(t, events, 3)
	assert.Equal(t, hub.CharacteristicChanged{AccessoryID: "light-1", Type: hub.CharPowerState, Value: false}, events[0])
	added, ok := events[1].(hub.AccessoryAdded)
	require.True(t, ok)
	assert.Equal(t, "light-3", added.Accessory.ID)
	assert.Equal(t, hub.AccessoryRemoved{HomeID: "hue", AccessoryID: "light-2"}, events[2])
}

func TestRun_EmitsChangesAfterBaseline(t *testing.T) {
	b := &fakeBridge{lights: []huego.Light{colorLight(1, "Lamp", true, 254)}}
	h := New(b, Options{PollInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	require.Eventually(t, func() bool { return b.polls() >= 1 }, time.Second, time.Millisecond)
	b.setLights(colorLight(1, "Lamp", true, 127))

	select {
	case ev := <-h.Events():
		assert.Equal(t, hub.CharacteristicChanged{AccessoryID: "light-1", Type: hub.CharBrightness, Value: 50}, ev)
	case <-time.After(time.Second):
		t.Fatal("no change event")
	}

	cancel()
	require.NoError(t, <-done)
	for range h.Events() {
	}

	assert.Error(t, h.Run(context.Background()), "second Run must fail")
}
