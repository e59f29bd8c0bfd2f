package huebridge

import (
	"math"
	"strconv"
	"strings"

	"github.com/amimof/huego"

	"github.com/nerrad567/framehub-core/internal/hub"
)

// Hue bridge value ranges.
const (
	maxHue = 65535
	maxSat = 254
	minBri = 1
	maxBri = 254
)

const accessoryPrefix = "light-"

// accessoryID maps a bridge light number to an accessory ID.
func accessoryID(light int) string {
	return accessoryPrefix + strconv.Itoa(light)
}

// lightNumber is the inverse of accessoryID.
func lightNumber(id string) (int, bool) {
	if !strings.HasPrefix(id, accessoryPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, accessoryPrefix))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// hueToDegrees converts bridge hue (0–65535) to degrees (0–360).
func hueToDegrees(h uint16) int {
	return int(math.Round(float64(h) * 360 / maxHue))
}

// degreesToHue converts degrees (0–360) to bridge hue.
func degreesToHue(d int) uint16 {
	d = clamp(d, 0, 360)
	return uint16(math.Round(float64(d) * maxHue / 360))
}

// satToPercent converts bridge saturation (0–254) to percent.
func satToPercent(s uint8) int {
	return int(math.Round(float64(s) * 100 / maxSat))
}

// percentToSat converts percent to bridge saturation.
func percentToSat(p int) uint8 {
	p = clamp(p, 0, 100)
	return uint8(math.Round(float64(p) * maxSat / 100))
}

// briToPercent converts bridge brightness (1–254) to percent. A lit bulb
// never reports 0%.
func briToPercent(b uint8) int {
	return clamp(int(math.Round(float64(b)*100/maxBri)), 1, 100)
}

// percentToBri converts percent (1–100) to bridge brightness.
func percentToBri(p int) uint8 {
	return uint8(clamp(int(math.Round(float64(p)*maxBri/100)), minBri, maxBri))
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// toAccessory converts a bridge light. Plugs become outlets; colour
// characteristics are only exposed for light types that support them.
func toAccessory(l huego.Light, room string) hub.Accessory {
	acc := hub.Accessory{
		ID:   accessoryID(l.ID),
		Name: l.Name,
		Room: room,
	}

	var st huego.State
	if l.State != nil {
		st = *l.State
	}

	lightType := strings.ToLower(l.Type)
	if strings.Contains(lightType, "plug") {
		acc.Services = []hub.Service{{
			Type:            hub.ServiceOutlet,
			Characteristics: []hub.Characteristic{{Type: hub.CharPowerState, Value: st.On}},
		}}
		return acc
	}

	chars := []hub.Characteristic{{Type: hub.CharPowerState, Value: st.On}}
	if lightType != "on/off light" {
		chars = append(chars, hub.Characteristic{Type: hub.CharBrightness, Value: briToPercent(st.Bri)})
	}
	if strings.Contains(lightType, "color light") {
		chars = append(chars,
			hub.Characteristic{Type: hub.CharHue, Value: hueToDegrees(st.Hue)},
			hub.Characteristic{Type: hub.CharSaturation, Value: satToPercent(st.Sat)},
		)
	}
	if lightType == "extended color light" || lightType == "color temperature light" {
		chars = append(chars, hub.Characteristic{Type: hub.CharColorTemperature, Value: int(st.Ct)})
	}

	acc.Services = []hub.Service{{Type: hub.ServiceLightbulb, Characteristics: chars}}
	return acc
}

// toState builds the bridge state for one characteristic write. The bridge
// only accepts brightness and colour on a lit bulb, so those writes also
// switch it on; brightness 0 switches it off.
func toState(t hub.CharacteristicType, value any) (huego.State, error) {
	switch t {
	case hub.CharPowerState:
		on, ok := hub.BoolValue(value)
		if !ok {
			return huego.State{}, hub.ErrInvalidValue
		}
		return huego.State{On: on}, nil
	case hub.CharBrightness:
		p, ok := hub.IntValue(value)
		if !ok {
			return huego.State{}, hub.ErrInvalidValue
		}
		if p <= 0 {
			return huego.State{On: false}, nil
		}
		return huego.State{On: true, Bri: percentToBri(p)}, nil
	case hub.CharHue:
		d, ok := hub.IntValue(value)
		if !ok {
			return huego.State{}, hub.ErrInvalidValue
		}
		return huego.State{On: true, Hue: degreesToHue(d)}, nil
	case hub.CharSaturation:
		p, ok := hub.IntValue(value)
		if !ok {
			return huego.State{}, hub.ErrInvalidValue
		}
		return huego.State{On: true, Sat: percentToSat(p)}, nil
	case hub.CharColorTemperature:
		ct, ok := hub.IntValue(value)
		if !ok || ct < 0 || ct > math.MaxUint16 {
			return huego.State{}, hub.ErrInvalidValue
		}
		return huego.State{On: true, Ct: uint16(ct)}, nil
	default:
		return huego.State{}, hub.ErrCharacteristicNotFound
	}
}

// roomIndex maps light numbers to the name of the room group holding them.
func roomIndex(groups []huego.Group) map[int]string {
	rooms := make(map[int]string)
	for _, g := range groups {
		if g.Type != "Room" {
			continue
		}
		for _, id := range g.Lights {
			if n, err := strconv.Atoi(id); err == nil {
				rooms[n] = g.Name
			}
		}
	}
	return rooms
}
