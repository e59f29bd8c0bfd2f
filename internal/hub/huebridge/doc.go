// Package huebridge implements hub.Hub against a Philips Hue bridge using
// github.com/amimof/huego.
//
// The bridge is exposed as one home. Lights become lightbulb accessories
// (plugs become outlets) and Room groups supply room names. Values are
// converted between bridge and characteristic ranges:
//
//	hue         0–65535  ↔  0–360°
//	saturation  0–254    ↔  0–100%
//	brightness  1–254    ↔  1–100%
//
// The bridge cannot push changes, so Run polls it every PollInterval and
// emits AccessoryAdded, AccessoryRemoved and CharacteristicChanged events
// for whatever differs from the previous poll.
package huebridge
