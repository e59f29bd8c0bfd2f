package hub

// Event is a change notification pushed by the hub. The set of event types
// is closed; consumers switch on the concrete type.
type Event interface {
	event()
}

// HomesUpdated replaces the full home list and the primary home.
type HomesUpdated struct {
	Homes   []Home
	Primary *Home
}

// HomeAdded reports a new home.
type HomeAdded struct {
	Home Home
}

// HomeRemoved reports a deleted home.
type HomeRemoved struct {
	Home Home
}

// AuthorizationChanged reports a new grant state.
type AuthorizationChanged struct {
	Status AuthorizationStatus
}

// AccessoryAdded reports an accessory paired into a home.
type AccessoryAdded struct {
	HomeID    string
	Accessory Accessory
}

// AccessoryRemoved reports an accessory removed from a home.
type AccessoryRemoved struct {
	HomeID      string
	AccessoryID string
}

// CharacteristicChanged reports a new value for one characteristic.
type CharacteristicChanged struct {
	AccessoryID string
	Type        CharacteristicType
	Value       any
}

func (HomesUpdated) event()          {}
func (HomeAdded) event()             {}
func (HomeRemoved) event()           {}
func (AuthorizationChanged) event()  {}
func (AccessoryAdded) event()        {}
func (AccessoryRemoved) event()      {}
func (CharacteristicChanged) event() {}
