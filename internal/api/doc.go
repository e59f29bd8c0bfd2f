// Package api implements the HTTP REST API of FrameHub Core.
//
// The API is the presentation layer's view of the home: it reads the
// registry's current snapshot and sends user intents to the control
// coordinator. It holds no state of its own.
//
//	client ──HTTP──▶ api.Server ──read──▶ registry.Registry ◀──events── hub
//	                     │
//	                     └──command──▶ control.Coordinator ──write──▶ hub
//
// # Endpoints
//
// All routes live under /api/v1:
//
//	GET    /health                  liveness and version
//	GET    /status                  authorization, home name, device count
//	GET    /groups                  devices grouped by category
//	GET    /categories              every category with icon and count
//	POST   /refresh                 pull accessories from the hub
//	GET    /devices/{id}            one device with its category state
//	POST   /devices/{id}/toggle     flip power
//	PUT    /devices/{id}/brightness {"value": 0-100}
//	PUT    /devices/{id}/color      {"hue": 0-360, "saturation": 0-100}
//	POST   /devices/{id}/resync     re-read hub truth
//	GET    /lights                  all lights
//	GET    /lights/rooms            lights by room
//	POST   /lights/on, /lights/off  bulk power, one outcome per light
//	GET    /errors/last             last command failure or null
//	DELETE /errors/last             clear it
//	GET    /audit                   command journal (when enabled)
//
// # Errors
//
// Failures use one envelope, {"status", "code", "message"}. Unauthorized
// hub access is 403 "unauthorised", out-of-range values are 400
// "validation_error", a missing capability is 422 "unsupported", an
// unknown device is 404, a rejected hub write is 502 "hub_error" and an
// expired write timeout is 504 "timeout".
//
// There is no authentication or push channel; the server is meant for a
// trusted local network.
package api
