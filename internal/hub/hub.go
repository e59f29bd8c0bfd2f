package hub

import "context"

// Hub is the capability surface consumed from the external home-automation
// hub. Implementations must be safe for concurrent use.
//
// Every method may block on network I/O and must honour ctx cancellation.
// WriteCharacteristic returns only after the hub has confirmed or rejected
// the write; a nil error is the confirmation.
type Hub interface {
	// Homes returns all homes and the primary home (nil if none).
	Homes(ctx context.Context) ([]Home, *Home, error)

	// AuthorizationStatus returns the current grant state.
	AuthorizationStatus(ctx context.Context) (AuthorizationStatus, error)

	// Accessories returns the accessories of one home with current values.
	Accessories(ctx context.Context, homeID string) ([]Accessory, error)

	// WriteCharacteristic writes one characteristic value. Implementations
	// should return once ctx is done; callers bound the wait regardless.
	WriteCharacteristic(ctx context.Context, accessoryID string, t CharacteristicType, value any) error

	// ReadCharacteristic reads one characteristic value from the hub.
	ReadCharacteristic(ctx context.Context, accessoryID string, t CharacteristicType) (any, error)

	// Events returns the inbound change notification stream. The channel
	// is closed when the hub shuts down. Events are delivered in the order
	// the hub produced them.
	Events() <-chan Event
}
