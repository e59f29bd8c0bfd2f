package mqtt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/nerrad567/framehub-core/internal/infrastructure/config"
)

// Tests in this file run without a broker. Broker-backed tests live in
// integration_test.go behind the "integration" build tag.

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "framehub-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// =============================================================================
// Client Tests (no connection required)
// =============================================================================

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}

	if client.IsConnected() {
		t.Error("IsConnected() should be false for a client that never connected")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestPublishContext_Validation(t *testing.T) {
	client := &Client{}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"invalid QoS", "framehub/test", []byte("x"), 3, ErrInvalidQoS},
		{"payload too large", "framehub/test", make([]byte, maxPayloadSize+1), 1, ErrPayloadTooLarge},
		{"not connected", "framehub/test", []byte("x"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.PublishContext(context.Background(), tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("PublishContext() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribe_Validation(t *testing.T) {
	client := &Client{subs: make(map[string]subscription)}
	handler := func(string, []byte) error { return nil }

	if err := client.Subscribe("", 1, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe(empty) error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Subscribe("framehub/test", 3, handler); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe(qos 3) error = %v, want ErrInvalidQoS", err)
	}
	if err := client.Subscribe("framehub/test", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) error = %v, want ErrSubscribeFailed", err)
	}
	if err := client.Subscribe("framehub/test", 1, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe(disconnected) error = %v, want ErrNotConnected", err)
	}
	if got := client.Subscriptions(); len(got) != 0 {
		t.Errorf("Subscriptions() = %v, want none after failed subscribes", got)
	}
}

func TestUnsubscribe_Validation(t *testing.T) {
	client := &Client{subs: make(map[string]subscription)}

	if err := client.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe(empty) error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Unsubscribe("framehub/test"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe(disconnected) error = %v, want ErrNotConnected", err)
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v", err)
	}
}

func TestOnConnectionChange(t *testing.T) {
	client := &Client{subs: make(map[string]subscription)}

	var got []ConnectionState
	client.OnConnectionChange(func(s ConnectionState) { got = append(got, s) })

	lost := errors.New("EOF")
	client.handleLost(lost)
	if client.IsConnected() {
		t.Error("IsConnected() = true after connection lost")
	}
	if len(got) != 1 || got[0].Connected || !errors.Is(got[0].Err, lost) {
		t.Errorf("states = %+v, want one disconnected state carrying the cause", got)
	}

	client.OnConnectionChange(nil)
	client.handleLost(lost)
	if len(got) != 1 {
		t.Errorf("callback ran after removal: %+v", got)
	}
}

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type recordingLogger struct {
	warns, errors []string
}

func (l *recordingLogger) Warn(msg string, _ ...any)  { l.warns = append(l.warns, msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.errors = append(l.errors, msg) }

func TestDispatch(t *testing.T) {
	client := &Client{}
	logger := &recordingLogger{}
	client.SetLogger(logger)
	msg := fakeMessage{topic: "framehub/hub/characteristic/acc-1", payload: []byte(`{}`)}

	var seen string
	client.dispatch(func(topic string, _ []byte) error {
		seen = topic
		return nil
	})(nil, msg)
	if seen != msg.topic {
		t.Errorf("handler topic = %q, want %q", seen, msg.topic)
	}

	client.dispatch(func(string, []byte) error { return errors.New("bad payload") })(nil, msg)
	if len(logger.warns) != 1 {
		t.Errorf("warns = %v, want the handler error logged once", logger.warns)
	}

	client.dispatch(func(string, []byte) error { panic("boom") })(nil, msg)
	if len(logger.errors) != 1 {
		t.Errorf("errors = %v, want the panic logged once", logger.errors)
	}
}

// =============================================================================
// Options Tests
// =============================================================================

func TestClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "core"
	cfg.Auth.Password = "secret"

	opts := clientOptions(cfg)

	if got := opts.Servers[0].String(); got != "tcp://127.0.0.1:1883" {
		t.Errorf("broker URL = %q, want tcp://127.0.0.1:1883", got)
	}
	if opts.ClientID != "framehub-test" {
		t.Errorf("ClientID = %q, want framehub-test", opts.ClientID)
	}
	if opts.Username != "core" || opts.Password != "secret" {
		t.Error("credentials not applied")
	}
	if !opts.CleanSession || !opts.AutoReconnect {
		t.Error("want clean session with auto-reconnect")
	}
	if opts.TLSConfig != nil && opts.TLSConfig.MinVersion != 0 {
		t.Error("TLS configured without broker.tls")
	}

	if !opts.WillEnabled || !opts.WillRetained || opts.WillTopic != "framehub/system/status" {
		t.Errorf("will = enabled %v retained %v topic %q, want retained will on the status topic",
			opts.WillEnabled, opts.WillRetained, opts.WillTopic)
	}
	var will presencePayload
	if err := json.Unmarshal(opts.WillPayload, &will); err != nil {
		t.Fatalf("will payload is not valid JSON: %v", err)
	}
	if will.Status != statusOffline || will.Reason != reasonCrash {
		t.Errorf("will = %+v, want offline/%s", will, reasonCrash)
	}

	cfg.Broker.TLS = true
	opts = clientOptions(cfg)
	if got := opts.Servers[0].Scheme; got != "ssl" {
		t.Errorf("scheme = %q, want ssl", got)
	}
	if opts.TLSConfig.MinVersion != tls.VersionTLS12 {
		t.Errorf("TLS MinVersion = %x, want TLS 1.2", opts.TLSConfig.MinVersion)
	}
}

func TestPresencePayloads(t *testing.T) {
	tests := []struct {
		name       string
		payload    []byte
		wantStatus string
		wantReason string
	}{
		{"online", presence(statusOnline, `core "1"`, ""), "online", ""},
		{"graceful offline", presence(statusOffline, `core "1"`, reasonShutdown), "offline", "graceful_shutdown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p presencePayload
			if err := json.Unmarshal(tt.payload, &p); err != nil {
				t.Fatalf("payload is not valid JSON: %v", err)
			}
			if p.Status != tt.wantStatus || p.Reason != tt.wantReason {
				t.Errorf("payload = %+v, want status %q reason %q", p, tt.wantStatus, tt.wantReason)
			}
			if p.ClientID != `core "1"` {
				t.Errorf("ClientID = %q, want quoted id preserved", p.ClientID)
			}
		})
	}
}

// =============================================================================
// Topics Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	def := Topics{}
	custom := Topics{Root: "site-a/hub/"}

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"SystemStatus", def.SystemStatus(), "framehub/system/status"},
		{"Auth", def.Auth(), "framehub/hub/auth"},
		{"Homes", def.Homes(), "framehub/hub/homes"},
		{"HomeAdded", def.HomeAdded(), "framehub/hub/home/added"},
		{"HomeRemoved", def.HomeRemoved(), "framehub/hub/home/removed"},
		{"AccessoryAdded", def.AccessoryAdded("home-1"), "framehub/hub/accessory/added/home-1"},
		{"AccessoryRemoved", def.AccessoryRemoved("home-1"), "framehub/hub/accessory/removed/home-1"},
		{"Characteristic", def.Characteristic("acc-1"), "framehub/hub/characteristic/acc-1"},
		{"Request", def.Request("r1"), "framehub/hub/request/r1"},
		{"Response", def.Response("r1"), "framehub/hub/response/r1"},
		{"AllHomeEvents", def.AllHomeEvents(), "framehub/hub/home/+"},
		{"AllAccessoryEvents", def.AllAccessoryEvents(), "framehub/hub/accessory/+/+"},
		{"AllCharacteristics", def.AllCharacteristics(), "framehub/hub/characteristic/+"},
		{"AllResponses", def.AllResponses(), "framehub/hub/response/+"},
		{"custom root trims slash", custom.Auth(), "site-a/hub/auth"},
		{"custom root system status unchanged", custom.SystemStatus(), "framehub/system/status"},
		{"Prefix", custom.Prefix("accessory"), "site-a/hub/accessory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func TestTail(t *testing.T) {
	tests := []struct {
		topic  string
		prefix string
		want   []string
	}{
		{"framehub/hub/accessory/added/h1", "framehub/hub/accessory", []string{"added", "h1"}},
		{"framehub/hub/characteristic/acc-1", "framehub/hub/characteristic/", []string{"acc-1"}},
		{"framehub/hub/homes", "framehub/hub/accessory", nil},
		{"framehub/hub/accessoryX/a", "framehub/hub/accessory", nil},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			if got := Tail(tt.topic, tt.prefix); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tail(%q, %q) = %v, want %v", tt.topic, tt.prefix, got, tt.want)
			}
		})
	}
}

func TestTopicsDoNotCollideWithRequests(t *testing.T) {
	// Core must never receive its own requests through an event subscription.
	topics := Topics{}
	for _, pattern := range []string{topics.AllHomeEvents(), topics.AllAccessoryEvents(), topics.AllCharacteristics(), topics.AllResponses()} {
		if strings.Contains(pattern, "/request/") || strings.HasSuffix(pattern, "#") {
			t.Errorf("pattern %q would match request topics", pattern)
		}
	}
}
