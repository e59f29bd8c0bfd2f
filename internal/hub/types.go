package hub

import (
	"fmt"
	"strings"
)

// Home is a home as reported by the hub.
type Home struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Accessory is a single controllable unit exposed by the hub (e.g. one bulb).
// It is owned by the hub and mirrored read-only into the registry.
type Accessory struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Room     string         `json:"room,omitempty"`
	Services []Service      `json:"services"`
	Camera   *CameraProfile `json:"camera,omitempty"`
}

// Service groups characteristics into one capability (e.g. a lightbulb
// service bundling power, brightness, hue and saturation).
type Service struct {
	Type            ServiceType      `json:"type"`
	Characteristics []Characteristic `json:"characteristics"`
}

// Characteristic is one readable or writable attribute of a service.
// Value holds whatever the hub last reported: bool, a number, or nil when
// the hub has not reported it yet.
type Characteristic struct {
	Type  CharacteristicType `json:"type"`
	Value any                `json:"value"`
}

// CameraProfile marks an accessory as exposing a camera stream.
type CameraProfile struct {
	Streaming bool `json:"streaming"`
}

// HasService reports whether the accessory exposes a service of type t.
func (a *Accessory) HasService(t ServiceType) bool {
	for i := range a.Services {
		if a.Services[i].Type == t {
			return true
		}
	}
	return false
}

// Service returns the first service of type t.
func (a *Accessory) Service(t ServiceType) (*Service, bool) {
	for i := range a.Services {
		if a.Services[i].Type == t {
			return &a.Services[i], true
		}
	}
	return nil, false
}

// Characteristic returns the first characteristic of type t across all
// services, in service order.
func (a *Accessory) Characteristic(t CharacteristicType) (*Characteristic, bool) {
	for i := range a.Services {
		if c, ok := a.Services[i].Characteristic(t); ok {
			return c, true
		}
	}
	return nil, false
}

// SetCharacteristic updates the value of every characteristic of type t.
// Returns false if the accessory has no such characteristic.
func (a *Accessory) SetCharacteristic(t CharacteristicType, value any) bool {
	found := false
	for i := range a.Services {
		for j := range a.Services[i].Characteristics {
			if a.Services[i].Characteristics[j].Type == t {
				a.Services[i].Characteristics[j].Value = value
				found = true
			}
		}
	}
	return found
}

// Clone returns a deep copy of the accessory. Characteristic values are
// scalars and are copied by value.
func (a Accessory) Clone() Accessory {
	cpy := a
	if a.Services != nil {
		cpy.Services = make([]Service, len(a.Services))
		for i, s := range a.Services {
			cpy.Services[i] = Service{Type: s.Type}
			if s.Characteristics != nil {
				cpy.Services[i].Characteristics = make([]Characteristic, len(s.Characteristics))
				copy(cpy.Services[i].Characteristics, s.Characteristics)
			}
		}
	}
	if a.Camera != nil {
		cam := *a.Camera
		cpy.Camera = &cam
	}
	return cpy
}

// Characteristic returns the first characteristic of type t in the service.
func (s *Service) Characteristic(t CharacteristicType) (*Characteristic, bool) {
	for i := range s.Characteristics {
		if s.Characteristics[i].Type == t {
			return &s.Characteristics[i], true
		}
	}
	return nil, false
}

// ServiceType tags a service capability.
type ServiceType string

// Service types understood by the classifier.
const (
	ServiceLightbulb            ServiceType = "lightbulb"
	ServiceThermostat           ServiceType = "thermostat"
	ServiceLockMechanism        ServiceType = "lock_mechanism"
	ServiceSwitch               ServiceType = "switch"
	ServiceOutlet               ServiceType = "outlet"
	ServiceFan                  ServiceType = "fan"
	ServiceWindowCovering       ServiceType = "window_covering"
	ServiceWindow               ServiceType = "window"
	ServiceGarageDoorOpener     ServiceType = "garage_door_opener"
	ServiceMotionSensor         ServiceType = "motion_sensor"
	ServiceTemperatureSensor    ServiceType = "temperature_sensor"
	ServiceHumiditySensor       ServiceType = "humidity_sensor"
	ServiceContactSensor        ServiceType = "contact_sensor"
	ServiceLeakSensor           ServiceType = "leak_sensor"
	ServiceSmokeSensor          ServiceType = "smoke_sensor"
	ServiceCarbonMonoxideSensor ServiceType = "carbon_monoxide_sensor"
	ServiceCarbonDioxideSensor  ServiceType = "carbon_dioxide_sensor"
	ServiceAccessoryInformation ServiceType = "accessory_information"
)

// CharacteristicType tags a characteristic.
type CharacteristicType string

// Characteristic types read or written by the core.
const (
	CharPowerState            CharacteristicType = "power_state"
	CharBrightness            CharacteristicType = "brightness"
	CharHue                   CharacteristicType = "hue"
	CharSaturation            CharacteristicType = "saturation"
	CharColorTemperature      CharacteristicType = "color_temperature" //nolint:misspell // HomeKit naming
	CharCurrentTemperature    CharacteristicType = "current_temperature"
	CharTargetTemperature     CharacteristicType = "target_temperature"
	CharCurrentHeatingCooling CharacteristicType = "current_heating_cooling"
	CharTargetHeatingCooling  CharacteristicType = "target_heating_cooling"
	CharTemperatureUnits      CharacteristicType = "temperature_units"
	CharLockCurrentState      CharacteristicType = "lock_current_state"
	CharLockTargetState       CharacteristicType = "lock_target_state"
)

// AuthorizationStatus is the hub's grant state for this controller.
type AuthorizationStatus int

// AuthorizationStatus values. The zero value is NotDetermined.
const (
	NotDetermined AuthorizationStatus = iota
	Restricted
	Authorized
)

var authorizationNames = map[AuthorizationStatus]string{
	NotDetermined: "notDetermined",
	Restricted:    "restricted",
	Authorized:    "authorized",
}

// String returns the status name.
func (s AuthorizationStatus) String() string {
	if name, ok := authorizationNames[s]; ok {
		return name
	}
	return fmt.Sprintf("AuthorizationStatus(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s AuthorizationStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Names are matched
// case-insensitively; "not_determined" is accepted as well.
func (s *AuthorizationStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseAuthorizationStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseAuthorizationStatus parses a status name.
func ParseAuthorizationStatus(name string) (AuthorizationStatus, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "")) {
	case "notdetermined", "":
		return NotDetermined, nil
	case "restricted":
		return Restricted, nil
	case "authorized", "authorised":
		return Authorized, nil
	default:
		return NotDetermined, fmt.Errorf("%w: %q", ErrInvalidAuthorizationStatus, name)
	}
}
