package mqtt

import "strings"

// Topic prefixes used by FrameHub.
const (
	// TopicPrefixSystem is the base for Core's own status topics.
	TopicPrefixSystem = "framehub/system"

	// DefaultHubRoot is the default root of the hub protocol.
	DefaultHubRoot = "framehub/hub"
)

// Topics builds FrameHub MQTT topics.
//
// Root is the hub protocol root (hub.topic_root); the zero value uses
// DefaultHubRoot. System topics do not depend on Root.
//
//	topics := mqtt.Topics{Root: cfg.Hub.TopicRoot}
//	topics.Characteristic("acc-42") // "framehub/hub/characteristic/acc-42"
type Topics struct {
	Root string
}

func (t Topics) root() string {
	if t.Root == "" {
		return DefaultHubRoot
	}
	return strings.TrimSuffix(t.Root, "/")
}

func (t Topics) join(parts ...string) string {
	return t.root() + "/" + strings.Join(parts, "/")
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns Core's online/offline status topic (retained, LWT).
//
// Example: framehub/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// =============================================================================
// Hub State Topics (retained, published by the hub)
// =============================================================================

// Auth returns the retained authorization status topic.
//
// Example: framehub/hub/auth
func (t Topics) Auth() string {
	return t.join("auth")
}

// Homes returns the retained home list topic.
//
// Example: framehub/hub/homes
func (t Topics) Homes() string {
	return t.join("homes")
}

// =============================================================================
// Hub Event Topics
// =============================================================================

// HomeAdded returns the topic announcing a new home.
func (t Topics) HomeAdded() string {
	return t.join("home", "added")
}

// HomeRemoved returns the topic announcing a removed home.
func (t Topics) HomeRemoved() string {
	return t.join("home", "removed")
}

// AccessoryAdded returns the topic announcing an accessory added to a home.
//
// Example: framehub/hub/accessory/added/home-1
func (t Topics) AccessoryAdded(homeID string) string {
	return t.join("accessory", "added", homeID)
}

// AccessoryRemoved returns the topic announcing an accessory removed from a home.
//
// Example: framehub/hub/accessory/removed/home-1
func (t Topics) AccessoryRemoved(homeID string) string {
	return t.join("accessory", "removed", homeID)
}

// Characteristic returns the topic carrying characteristic value changes.
//
// Example: framehub/hub/characteristic/acc-42
func (t Topics) Characteristic(accessoryID string) string {
	return t.join("characteristic", accessoryID)
}

// =============================================================================
// Request / Response Topics
// =============================================================================

// Request returns the topic Core publishes a hub request on.
//
// Example: framehub/hub/request/6f1c...
func (t Topics) Request(requestID string) string {
	return t.join("request", requestID)
}

// Response returns the topic the hub answers a request on.
//
// Example: framehub/hub/response/6f1c...
func (t Topics) Response(requestID string) string {
	return t.join("response", requestID)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllHomeEvents matches HomeAdded and HomeRemoved.
//
// Pattern: framehub/hub/home/+
func (t Topics) AllHomeEvents() string {
	return t.join("home", "+")
}

// AllAccessoryEvents matches accessory added/removed for every home.
//
// Pattern: framehub/hub/accessory/+/+
func (t Topics) AllAccessoryEvents() string {
	return t.join("accessory", "+", "+")
}

// AllCharacteristics matches characteristic changes of every accessory.
//
// Pattern: framehub/hub/characteristic/+
func (t Topics) AllCharacteristics() string {
	return t.join("characteristic", "+")
}

// AllResponses matches every response topic.
//
// Pattern: framehub/hub/response/+
func (t Topics) AllResponses() string {
	return t.join("response", "+")
}

// Tail returns the topic levels after prefix, or nil if topic is not under
// prefix. Tail("framehub/hub/accessory/added/h1", "framehub/hub/accessory")
// returns ["added", "h1"].
func Tail(topic, prefix string) []string {
	prefix = strings.TrimSuffix(prefix, "/") + "/"
	if !strings.HasPrefix(topic, prefix) {
		return nil
	}
	return strings.Split(strings.TrimPrefix(topic, prefix), "/")
}

// Prefix returns the hub root joined with parts, for use with Tail.
func (t Topics) Prefix(parts ...string) string {
	if len(parts) == 0 {
		return t.root()
	}
	return t.join(parts...)
}
