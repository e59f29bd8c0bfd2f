package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/framehub-core/internal/audit"
	"github.com/nerrad567/framehub-core/internal/control"
	"github.com/nerrad567/framehub-core/internal/hub"
	"github.com/nerrad567/framehub-core/internal/hub/hubtest"
	"github.com/nerrad567/framehub-core/internal/infrastructure/config"
	"github.com/nerrad567/framehub-core/internal/infrastructure/database"
	"github.com/nerrad567/framehub-core/internal/infrastructure/logging"
	"github.com/nerrad567/framehub-core/internal/registry"
	"github.com/nerrad567/framehub-core/migrations"
)

var home = hub.Home{ID: "home-1", Name: "Cottage"}

type testEnv struct {
	hub     *hubtest.Hub
	reg     *registry.Registry
	coord   *control.Coordinator
	srv     *Server
	handler http.Handler
}

type envOptions struct {
	unauthorized bool
	control      control.Options
	journal      audit.Repository
}

func newTestEnv(t *testing.T, opts envOptions, accessories ...hub.Accessory) *testEnv {
	t.Helper()

	h := hubtest.New()
	h.SetHomes([]hub.Home{home}, &home)
	if !opts.unauthorized {
		h.SetAuthorization(hub.Authorized)
	}
	h.SetAccessories(home.ID, accessories)

	reg := registry.New(h, registry.Options{RefreshTimeout: 2 * time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = reg.Run(ctx)
		close(done)
	}()

	coord := control.New(h, reg, opts.control)
	t.Cleanup(func() {
		coord.Close()
		cancel()
		<-done
	})

	if opts.unauthorized {
		require.Eventually(t, func() bool { return reg.Snapshot().Version >= 1 },
			2*time.Second, 5*time.Millisecond)
	} else {
		require.Eventually(t, func() bool {
			return len(reg.Snapshot().Accessories) == len(accessories) && reg.Snapshot().Version > 1
		}, 2*time.Second, 5*time.Millisecond, "accessories mirrored")
	}

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	srv, err := New(Deps{
		Config:      config.APIConfig{Host: "127.0.0.1", Port: 0},
		Logger:      log,
		Registry:    reg,
		Coordinator: coord,
		Journal:     opts.journal,
		Version:     "test",
	})
	require.NoError(t, err)

	return &testEnv{hub: h, reg: reg, coord: coord, srv: srv, handler: srv.buildRouter()}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func colorLight(id, name, room string, on bool) hub.Accessory {
	return hubtest.Light(id, name, room, on, 50, 30, 40)
}

func TestNew_RequiresDependencies(t *testing.T) {
	log := logging.Default()

	_, err := New(Deps{})
	assert.Error(t, err)

	_, err = New(Deps{Logger: log})
	assert.Error(t, err)

	_, err = New(Deps{Logger: log, Registry: registry.New(hubtest.New(), registry.Options{})})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rec := env.do(t, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestID_Propagated(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc123", rec.Header().Get("X-Request-ID"))
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t, envOptions{},
		colorLight("l1", "Lamp", "Lounge", true),
		hubtest.Simple("s1", "Motion", "Hall", hub.ServiceMotionSensor),
	)

	rec := env.do(t, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "authorized", body["authorization"])
	assert.Equal(t, "Cottage", body["home"])
	assert.EqualValues(t, 2, body["device_count"])
}

func TestGroupsAndCategories(t *testing.T) {
	env := newTestEnv(t, envOptions{},
		colorLight("l1", "Lamp", "Lounge", true),
		colorLight("l2", "Ceiling", "Kitchen", false),
		hubtest.Simple("s1", "Motion", "Hall", hub.ServiceMotionSensor),
	)

	rec := env.do(t, http.MethodGet, "/api/v1/groups", "")
	require.Equal(t, http.StatusOK, rec.Code)
	groups := decode[struct {
		Groups []struct {
			Category string            `json:"category"`
			Devices  []json.RawMessage `json:"devices"`
		} `json:"groups"`
		Count int `json:"count"`
	}](t, rec)
	require.Equal(t, 2, groups.Count)
	assert.Equal(t, "lights", groups.Groups[0].Category)
	assert.Len(t, groups.Groups[0].Devices, 2)
	assert.Equal(t, "sensors", groups.Groups[1].Category)

	rec = env.do(t, http.MethodGet, "/api/v1/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decode[struct {
		Categories []categoryResponse `json:"categories"`
	}](t, rec)
	require.Len(t, cats.Categories, 11)
	assert.Equal(t, "lights", string(cats.Categories[0].Category))
	assert.Equal(t, "Lights", cats.Categories[0].DisplayName)
	assert.Equal(t, "lightbulb.fill", cats.Categories[0].Icon)
	assert.Equal(t, 2, cats.Categories[0].Count)
	for _, c := range cats.Categories {
		if c.Category == "locks" {
			assert.Zero(t, c.Count)
		}
	}
}

func TestGroups_EmptyWhenUnauthorized(t *testing.T) {
	env := newTestEnv(t, envOptions{unauthorized: true}, colorLight("l1", "Lamp", "", true))

	rec := env.do(t, http.MethodGet, "/api/v1/groups", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"groups":[],"count":0}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/refresh", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, ErrCodeUnauthorized, decode[Error](t, rec).Code)

	rec = env.do(t, http.MethodPost, "/api/v1/devices/l1/toggle", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	for _, path := range []string{"/api/v1/lights/on", "/api/v1/lights/off"} {
		rec = env.do(t, http.MethodPost, path, "")
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
		assert.Equal(t, ErrCodeUnauthorized, decode[Error](t, rec).Code, path)
	}
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t, envOptions{}, colorLight("l1", "Lamp", "", true))
	before := env.hub.Pulls()

	env.hub.SetAccessories(home.ID, []hub.Accessory{
		colorLight("l1", "Lamp", "", true),
		colorLight("l2", "Desk", "", false),
	})
	rec := env.do(t, http.MethodPost, "/api/v1/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, before+1, env.hub.Pulls())
	assert.Len(t, env.reg.Lights(), 2)

	env.hub.FailPulls(errors.New("hub offline"))
	rec = env.do(t, http.MethodPost, "/api/v1/refresh", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, ErrCodeHub, decode[Error](t, rec).Code)
}

func TestGetDevice(t *testing.T) {
	env := newTestEnv(t, envOptions{}, colorLight("l1", "Lamp", "Lounge", true))

	rec := env.do(t, http.MethodGet, "/api/v1/devices/l1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"id": "l1", "name": "Lamp", "room": "Lounge", "category": "lights",
		"state": {"power": true, "brightness": 50, "hue": 30, "saturation": 40}
	}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/devices/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrCodeNotFound, decode[Error](t, rec).Code)
}

func TestToggle(t *testing.T) {
	env := newTestEnv(t, envOptions{}, colorLight("l1", "Lamp", "", true))

	rec := env.do(t, http.MethodPost, "/api/v1/devices/l1/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[struct {
		State struct {
			Power bool `json:"power"`
		} `json:"state"`
	}](t, rec)
	assert.False(t, state.State.Power)

	env.hub.FailWrite("l1", hub.CharPowerState, errors.New("no response"))
	rec = env.do(t, http.MethodPost, "/api/v1/devices/l1/toggle", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, ErrCodeHub, decode[Error](t, rec).Code)
}

func TestSetBrightness(t *testing.T) {
	env := newTestEnv(t, envOptions{}, colorLight("l1", "Lamp", "", true))

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"valid", `{"value": 80}`, http.StatusOK, ""},
		{"out of range", `{"value": 101}`, http.StatusBadRequest, ErrCodeValidation},
		{"missing value", `{}`, http.StatusBadRequest, ErrCodeValidation},
		{"bad json", `{"value":`, http.StatusBadRequest, ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPut, "/api/v1/devices/l1/brightness", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.code != "" {
				assert.Equal(t, tt.code, decode[Error](t, rec).Code)
			}
		})
	}

	// Only the valid request reached the hub.
	writes := env.hub.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, hub.CharBrightness, writes[0].Type)
}

func TestSetColor(t *testing.T) {
	env := newTestEnv(t, envOptions{},
		colorLight("l1", "Lamp", "", true),
		hubtest.Light("w1", "White", "", true, 50, -1, -1),
	)

	rec := env.do(t, http.MethodPut, "/api/v1/devices/l1/color", `{"hue": 200, "saturation": 90}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"hue":200`)

	rec = env.do(t, http.MethodPut, "/api/v1/devices/l1/color", `{"hue": 400, "saturation": 90}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/devices/l1/color", `{"hue": 10}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/devices/w1/color", `{"hue": 10, "saturation": 10}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, ErrCodeUnsupported, decode[Error](t, rec).Code)
}

func TestSetColor_PartialFailure(t *testing.T) {
	env := newTestEnv(t, envOptions{}, colorLight("l1", "Lamp", "", true))
	env.hub.FailWrite("l1", hub.CharSaturation, errors.New("rejected"))

	rec := env.do(t, http.MethodPut, "/api/v1/devices/l1/color", `{"hue": 200, "saturation": 90}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, ErrCodeHub, decode[Error](t, rec).Code)

	rec = env.do(t, http.MethodGet, "/api/v1/devices/l1", "")
	assert.Contains(t, rec.Body.String(), `"hue":30`)
	assert.Contains(t, rec.Body.String(), `"saturation":40`)
}

func TestWriteTimeout(t *testing.T) {
	env := newTestEnv(t, envOptions{control: control.Options{WriteTimeout: 20 * time.Millisecond}},
		colorLight("l1", "Lamp", "", true))
	release := env.hub.BlockWrite("l1", hub.CharPowerState)
	defer release()

	rec := env.do(t, http.MethodPost, "/api/v1/devices/l1/toggle", "")
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, ErrCodeTimeout, decode[Error](t, rec).Code)
}

func TestResync(t *testing.T) {
	env := newTestEnv(t, envOptions{}, colorLight("l1", "Lamp", "", true))
	// Change hub truth without an event.
	require.NoError(t, env.hub.WriteCharacteristic(context.Background(), "l1", hub.CharBrightness, 10))

	rec := env.do(t, http.MethodPost, "/api/v1/devices/l1/resync", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"brightness":10`)
}

func TestLights(t *testing.T) {
	env := newTestEnv(t, envOptions{},
		colorLight("l1", "Lamp", "Lounge", true),
		colorLight("l2", "Ceiling", "", false),
		hubtest.Simple("s1", "Motion", "Hall", hub.ServiceMotionSensor),
	)

	rec := env.do(t, http.MethodGet, "/api/v1/lights", "")
	require.Equal(t, http.StatusOK, rec.Code)
	lights := decode[struct {
		Lights []struct {
			Name string `json:"name"`
		} `json:"lights"`
		Count int `json:"count"`
	}](t, rec)
	require.Equal(t, 2, lights.Count)
	assert.Equal(t, "Ceiling", lights.Lights[0].Name)
	assert.Equal(t, "Lamp", lights.Lights[1].Name)

	rec = env.do(t, http.MethodGet, "/api/v1/lights/rooms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rooms := decode[struct {
		Rooms   []string                     `json:"rooms"`
		Devices map[string][]json.RawMessage `json:"devices"`
	}](t, rec)
	assert.Equal(t, []string{"Lounge", "Other"}, rooms.Rooms)
	assert.Len(t, rooms.Devices["Other"], 1)
}

func TestAllOff_ReportsEachLight(t *testing.T) {
	env := newTestEnv(t, envOptions{},
		colorLight("l1", "A", "", true),
		colorLight("l2", "B", "", true),
		colorLight("l3", "C", "", false),
	)
	env.hub.FailWrite("l2", hub.CharPowerState, errors.New("unreachable"))

	rec := env.do(t, http.MethodPost, "/api/v1/lights/off", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Outcomes []outcomeResponse `json:"outcomes"`
		Count    int               `json:"count"`
		Failed   int               `json:"failed"`
	}](t, rec)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, 1, body.Failed)
	for _, o := range body.Outcomes {
		if o.DeviceID == "l2" {
			assert.False(t, o.OK)
			require.NotNil(t, o.Error)
			assert.Equal(t, ErrCodeHub, o.Error.Code)
		} else {
			assert.True(t, o.OK)
			assert.Nil(t, o.Error)
		}
	}

	rec = env.do(t, http.MethodPost, "/api/v1/lights/on", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[struct {
		Count int `json:"count"`
	}](t, rec).Count, "l1 and l3 are off after the first command")
}

func TestLastError(t *testing.T) {
	env := newTestEnv(t, envOptions{}, colorLight("l1", "Lamp", "", true))

	rec := env.do(t, http.MethodGet, "/api/v1/errors/last", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"error":null}`, rec.Body.String())

	env.do(t, http.MethodPut, "/api/v1/devices/l1/brightness", `{"value": -5}`)

	rec = env.do(t, http.MethodGet, "/api/v1/errors/last", "")
	require.Equal(t, http.StatusOK, rec.Code)
	last := decode[struct {
		Error *Error `json:"error"`
	}](t, rec)
	require.NotNil(t, last.Error)
	assert.Equal(t, ErrCodeValidation, last.Error.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/errors/last", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NoError(t, env.coord.LastError())
}

func TestAudit(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		env := newTestEnv(t, envOptions{})
		rec := env.do(t, http.MethodGet, "/api/v1/audit", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("lists entries", func(t *testing.T) {
		db, err := database.Open(config.DatabaseConfig{Path: database.MemoryPath, BusyTimeout: 1})
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		_, err = db.Migrate(context.Background(), migrations.FS)
		require.NoError(t, err)
		repo := audit.NewSQLiteRepository(db.DB)

		ctx := context.Background()
		require.NoError(t, repo.Create(ctx, &audit.Entry{DeviceID: "l1", Command: "toggle"}))
		require.NoError(t, repo.Create(ctx, &audit.Entry{DeviceID: "l2", Command: "set_color", Outcome: audit.OutcomeFailed, Error: "rejected"}))

		env := newTestEnv(t, envOptions{journal: repo})

		rec := env.do(t, http.MethodGet, "/api/v1/audit", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 2, decode[audit.ListResult](t, rec).Total)

		rec = env.do(t, http.MethodGet, "/api/v1/audit?outcome=failed&limit=10", "")
		require.Equal(t, http.StatusOK, rec.Code)
		res := decode[struct {
			Entries []struct {
				DeviceID string `json:"device_id"`
			} `json:"entries"`
			Total int `json:"total"`
			Limit int `json:"limit"`
		}](t, rec)
		assert.Equal(t, 1, res.Total)
		assert.Equal(t, 10, res.Limit)
		assert.Equal(t, "l2", res.Entries[0].DeviceID)

		rec = env.do(t, http.MethodGet, "/api/v1/audit?outcome=maybe", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do(t, http.MethodGet, "/api/v1/audit?since=yesterday", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.srv.cfg.CORS.AllowedOrigins = []string{"http://panel.local"}

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/groups", nil)
	req.Header.Set("Origin", "http://panel.local")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://panel.local", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBodySizeLimit(t *testing.T) {
	env := newTestEnv(t, envOptions{}, colorLight("l1", "Lamp", "", true))

	body := `{"value": 50, "pad": "` + strings.Repeat("x", maxRequestBodySize) + `"}`
	rec := env.do(t, http.MethodPut, "/api/v1/devices/l1/brightness", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.hub.Writes())
}

func TestToError(t *testing.T) {
	composite := &control.CompositeError{DeviceID: "l1", Failures: []error{
		&control.WriteError{DeviceID: "l1", Characteristic: hub.CharHue, Err: control.ErrTimeout},
	}}

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"composite with timeout", composite, http.StatusBadGateway, ErrCodeHub},
		{"hub accessory missing", hub.ErrAccessoryNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, ErrCodeTimeout},
		{"unknown", errors.New("boom"), http.StatusBadGateway, ErrCodeHub},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := toError(tt.err)
			assert.Equal(t, tt.status, e.Status)
			assert.Equal(t, tt.code, e.Code)
		})
	}
}

func TestServerLifecycle(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	assert.Error(t, env.srv.HealthCheck(context.Background()))
	assert.NoError(t, env.srv.Close(), "Close before Start is a no-op")

	require.NoError(t, env.srv.Start(context.Background()))
	assert.NoError(t, env.srv.HealthCheck(context.Background()))
	assert.NoError(t, env.srv.Close())
}
