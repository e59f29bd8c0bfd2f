// Package device provides the device model of FrameHub Core.
//
// It turns hub accessories into categorised, read-only device views. Nothing
// in this package performs I/O or holds state; the registry and control
// packages own the mutable mirror.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────┐
//	│                          device package                          │
//	│                                                                  │
//	│  ┌────────────────┐   ┌────────────────┐   ┌────────────────┐    │
//	│  │   Classify     │──▶│  BuildGroups   │   │  GroupByRoom   │    │
//	│  │ (classify.go)  │   │  (groups.go)   │   │  (rooms.go)    │    │
//	│  │ • precedence   │   │ • buckets      │   │ • "Other" room │    │
//	│  │ • total        │   │ • sorted       │   │ • sorted names │    │
//	│  └────────────────┘   └────────────────┘   └────────────────┘    │
//	│           │                    │                                 │
//	│           ▼                    ▼                                 │
//	│  ┌──────────────────────────────────────┐                        │
//	│  │ Device + Payload sum type (types.go) │                        │
//	│  │ Light │ Thermostat │ Lock │ Camera │ Generic                   │
//	│  └──────────────────────────────────────┘                        │
//	└──────────────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Category: closed set of functional categories with display names and icons
//   - Device: snapshot of one accessory; ID equals the accessory ID
//   - Payload: category-specific state (Light, Thermostat, Lock, Camera, Generic)
//   - Group: one non-empty category bucket
//   - Rooms: room-keyed view of lights
//
// # Usage
//
//	groups := device.BuildGroups(accessories, device.Classify)
//	for _, g := range groups {
//	    fmt.Println(g.Category.DisplayName(), g.Count())
//	}
//
//	lights := device.BuildGroups(accessories, device.Classify, device.WithDetail())
//	rooms := device.GroupByRoom(lightsOf(lights))
package device
