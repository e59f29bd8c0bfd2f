package device

import "github.com/nerrad567/framehub-core/internal/hub"

// Device is a point-in-time snapshot of one accessory, shaped by its
// category. It is not the source of truth; the hub is.
//
// ID always equals the source accessory's ID.
type Device struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Room     string   `json:"room,omitempty"`
	Category Category `json:"category"`
	State    Payload  `json:"state"`
}

// Payload is the category-specific part of a Device. The set of payloads
// is closed: Light, Thermostat, Lock, Camera and Generic.
type Payload interface {
	payload()
}

// Light is the payload of a lightbulb accessory.
type Light struct {
	Power      bool `json:"power"`
	Brightness int  `json:"brightness"`
	// Hue and Saturation are nil when the light does not support color.
	Hue              *int `json:"hue,omitempty"`
	Saturation       *int `json:"saturation,omitempty"`
	ColorTemperature *int `json:"color_temperature,omitempty"` //nolint:misspell // HomeKit naming
}

// SupportsColor reports whether both hue and saturation are available.
func (l Light) SupportsColor() bool {
	return l.Hue != nil && l.Saturation != nil
}

// Thermostat is the payload of a thermostat accessory.
type Thermostat struct {
	CurrentTemp float64         `json:"current_temp"`
	TargetTemp  float64         `json:"target_temp"`
	CurrentMode HeatingCooling  `json:"current_mode"`
	TargetMode  HeatingCooling  `json:"target_mode"`
	Unit        TemperatureUnit `json:"unit"`
}

// Lock is the payload of a lock accessory.
type Lock struct {
	Current LockState `json:"current"`
	Target  LockState `json:"target"`
}

// Camera is the payload of a camera accessory.
type Camera struct {
	Streaming bool `json:"streaming"`
}

// Generic is the payload of every other accessory. Category and room live
// on the Device itself.
type Generic struct{}

func (Light) payload()      {}
func (Thermostat) payload() {}
func (Lock) payload()       {}
func (Camera) payload()     {}
func (Generic) payload()    {}

// HeatingCooling is a thermostat mode.
type HeatingCooling string

// HeatingCooling values, in hub numeric order (0..3).
const (
	ModeOff  HeatingCooling = "off"
	ModeHeat HeatingCooling = "heat"
	ModeCool HeatingCooling = "cool"
	ModeAuto HeatingCooling = "auto"
)

var heatingCoolingByCode = []HeatingCooling{ModeOff, ModeHeat, ModeCool, ModeAuto}

// TemperatureUnit is the display unit of a thermostat.
type TemperatureUnit string

// TemperatureUnit values (hub codes 0 and 1).
const (
	Celsius    TemperatureUnit = "celsius"
	Fahrenheit TemperatureUnit = "fahrenheit"
)

// LockState is the state of a lock mechanism.
type LockState string

// LockState values, in hub numeric order (0..3).
const (
	LockUnsecured LockState = "unsecured"
	LockSecured   LockState = "secured"
	LockJammed    LockState = "jammed"
	LockUnknown   LockState = "unknown"
)

var lockStateByCode = []LockState{LockUnsecured, LockSecured, LockJammed, LockUnknown}

// Value domains for light characteristics.
const (
	MinBrightness = 0
	MaxBrightness = 100
	MinHue        = 0
	MaxHue        = 360
	MinSaturation = 0
	MaxSaturation = 100

	// defaultBrightness is used when a light does not report brightness.
	defaultBrightness = 100
)

// FromAccessory builds the category-rich Device for an accessory.
func FromAccessory(a hub.Accessory) Device {
	category := Classify(a)
	d := Device{
		ID:       a.ID,
		Name:     a.Name,
		Room:     a.Room,
		Category: category,
	}

	switch category {
	case CategoryLights:
		d.State = lightFrom(&a)
	case CategoryThermostats:
		d.State = thermostatFrom(&a)
	case CategoryLocks:
		d.State = lockFrom(&a)
	case CategoryCameras:
		d.State = Camera{Streaming: a.Camera != nil && a.Camera.Streaming}
	default:
		d.State = Generic{}
	}
	return d
}

// GenericFrom builds the Generic-payload Device for an accessory.
func GenericFrom(a hub.Accessory, category Category) Device {
	return Device{
		ID:       a.ID,
		Name:     a.Name,
		Room:     a.Room,
		Category: category,
		State:    Generic{},
	}
}

// LightFrom returns the Light payload of an accessory's lightbulb service.
// Returns false if the accessory has no lightbulb service.
func LightFrom(a hub.Accessory) (Light, bool) {
	if !a.HasService(hub.ServiceLightbulb) {
		return Light{}, false
	}
	return lightFrom(&a), true
}

func lightFrom(a *hub.Accessory) Light {
	l := Light{Brightness: defaultBrightness}
	svc, ok := a.Service(hub.ServiceLightbulb)
	if !ok {
		return l
	}
	if c, ok := svc.Characteristic(hub.CharPowerState); ok {
		l.Power, _ = hub.BoolValue(c.Value)
	}
	if c, ok := svc.Characteristic(hub.CharBrightness); ok {
		if v, ok := hub.IntValue(c.Value); ok {
			l.Brightness = v
		}
	}
	l.Hue = optionalInt(svc, hub.CharHue)
	l.Saturation = optionalInt(svc, hub.CharSaturation)
	l.ColorTemperature = optionalInt(svc, hub.CharColorTemperature)
	return l
}

// optionalInt returns the characteristic value, or nil when the service
// lacks the characteristic. A present characteristic with no reported value
// reads as zero.
func optionalInt(svc *hub.Service, t hub.CharacteristicType) *int {
	c, ok := svc.Characteristic(t)
	if !ok {
		return nil
	}
	v, _ := hub.IntValue(c.Value)
	return &v
}

func thermostatFrom(a *hub.Accessory) Thermostat {
	t := Thermostat{CurrentMode: ModeOff, TargetMode: ModeOff, Unit: Celsius}
	if c, ok := a.Characteristic(hub.CharCurrentTemperature); ok {
		t.CurrentTemp, _ = hub.FloatValue(c.Value)
	}
	if c, ok := a.Characteristic(hub.CharTargetTemperature); ok {
		t.TargetTemp, _ = hub.FloatValue(c.Value)
	}
	if c, ok := a.Characteristic(hub.CharCurrentHeatingCooling); ok {
		t.CurrentMode = heatingCoolingFrom(c.Value)
	}
	if c, ok := a.Characteristic(hub.CharTargetHeatingCooling); ok {
		t.TargetMode = heatingCoolingFrom(c.Value)
	}
	if c, ok := a.Characteristic(hub.CharTemperatureUnits); ok {
		if v, _ := hub.IntValue(c.Value); v == 1 {
			t.Unit = Fahrenheit
		}
	}
	return t
}

func heatingCoolingFrom(v any) HeatingCooling {
	code, ok := hub.IntValue(v)
	if !ok || code < 0 || code >= len(heatingCoolingByCode) {
		return ModeOff
	}
	return heatingCoolingByCode[code]
}

func lockFrom(a *hub.Accessory) Lock {
	l := Lock{Current: LockUnknown, Target: LockUnknown}
	if c, ok := a.Characteristic(hub.CharLockCurrentState); ok {
		l.Current = lockStateFrom(c.Value)
	}
	if c, ok := a.Characteristic(hub.CharLockTargetState); ok {
		l.Target = lockStateFrom(c.Value)
	}
	return l
}

func lockStateFrom(v any) LockState {
	code, ok := hub.IntValue(v)
	if !ok || code < 0 || code >= len(lockStateByCode) {
		return LockUnknown
	}
	return lockStateByCode[code]
}
