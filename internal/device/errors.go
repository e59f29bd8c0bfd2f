package device

import "errors"

// Domain errors shared by the registry and the control coordinator.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, device.ErrUnauthorized) {
//	    // hub access not granted yet
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrUnauthorized is returned when an operation is attempted before the
	// hub has granted access.
	ErrUnauthorized = errors.New("device: unauthorized")

	// ErrInvalidArgument is returned when a value is outside its declared domain.
	ErrInvalidArgument = errors.New("device: invalid argument")

	// ErrCharacteristicUnsupported is returned when a device lacks the
	// capability a command requires.
	ErrCharacteristicUnsupported = errors.New("device: characteristic unsupported")

	// ErrNoPrimaryHome is returned when the hub reports no primary home.
	ErrNoPrimaryHome = errors.New("device: no primary home")

	// ErrInvalidCategory is returned when a category name is not recognised.
	ErrInvalidCategory = errors.New("device: invalid category")
)
