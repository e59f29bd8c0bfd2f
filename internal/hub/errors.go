package hub

import "errors"

// Errors returned by hub implementations.
var (
	// ErrAccessoryNotFound is returned when an accessory ID is unknown to the hub.
	ErrAccessoryNotFound = errors.New("hub: accessory not found")

	// ErrHomeNotFound is returned when a home ID is unknown to the hub.
	ErrHomeNotFound = errors.New("hub: home not found")

	// ErrCharacteristicNotFound is returned when an accessory lacks a characteristic.
	ErrCharacteristicNotFound = errors.New("hub: characteristic not found")

	// ErrInvalidValue is returned when a value has the wrong type for a characteristic.
	ErrInvalidValue = errors.New("hub: invalid characteristic value")

	// ErrInvalidAuthorizationStatus is returned when a status name cannot be parsed.
	ErrInvalidAuthorizationStatus = errors.New("hub: invalid authorization status")

	// ErrNotConnected is returned when the hub transport is down.
	ErrNotConnected = errors.New("hub: not connected")
)
