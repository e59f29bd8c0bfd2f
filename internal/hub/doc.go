// Package hub defines the model and interface of the external
// home-automation hub that FrameHub Core controls.
//
// The hub owns homes, accessories and their characteristic values. Core
// consumes it through the Hub interface:
//
//	┌──────────────┐   Events()    ┌──────────────────┐
//	│   hub.Hub    │──────────────▶│ registry.Registry│
//	│ (mqtthub,    │               └──────────────────┘
//	│  huebridge)  │◀──────────────┌──────────────────┐
//	└──────────────┘ Write/Read    │control.Coordinator│
//	                               └──────────────────┘
//
// Implementations live in sub-packages: mqtthub speaks the FrameHub MQTT
// hub protocol and huebridge talks to a Philips Hue bridge. memhub is the
// in-memory demo hub behind hub.backend: memory, and hubtest is a
// scriptable fake for tests.
package hub
