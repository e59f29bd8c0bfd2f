package memhub

import "github.com/nerrad567/framehub-core/internal/hub"

// Light builds a lightbulb. A negative hue or saturation leaves that
// characteristic out, giving a white-only bulb.
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
	return accessory(id, name, room, hub.Service{Type: hub.ServiceLightbulb, Characteristics: chars})
}

// Outlet builds a switchable outlet.
func Outlet(id, name, room string, on bool) hub.Accessory {
	return accessory(id, name, room, hub.Service{
		Type:            hub.ServiceOutlet,
		Characteristics: []hub.Characteristic{{Type: hub.CharPowerState, Value: on}},
	})
}

// MotionSensor builds a motion sensor. It has nothing writable.
func MotionSensor(id, name, room string) hub.Accessory {
	return accessory(id, name, room, hub.Service{Type: hub.ServiceMotionSensor})
}

func accessory(id, name, room string, services ...hub.Service) hub.Accessory {
	return hub.Accessory{ID: id, Name: name, Room: room, Services: services}
}

// Demo returns a hub for home seeded with a small house: three lights
// (two with color), a motion sensor and an outlet.
func Demo(home hub.Home) *Hub {
	return New(home,
		Light("demo-light-1", "Ceiling", "Living Room", true, 80, 30, 60),
		Light("demo-light-2", "Reading Lamp", "Living Room", false, 40, -1, -1),
		Light("demo-light-3", "Pendant", "Kitchen", false, 100, 200, 20),
		MotionSensor("demo-sensor-1", "Hall Motion", "Hall"),
		Outlet("demo-outlet-1", "Kettle", "Kitchen", false),
	)
}
