package mqtthub

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/nerrad567/framehub-core/internal/hub"
)

// Request operations understood by the gateway.
const (
	opAuth  = "auth"
	opHomes = "homes"
	opPull  = "accessories"
	opWrite = "write"
	opRead  = "read"
)

// Error codes the gateway may return in response.code.
const (
	codeAccessoryNotFound      = "accessory_not_found"
	codeHomeNotFound           = "home_not_found"
	codeCharacteristicNotFound = "characteristic_not_found"
	codeInvalidValue           = "invalid_value"
)

// request is the body published on <root>/request/<id>.
type request struct {
	Op          string `json:"op"`
	HomeID      string `json:"home_id,omitempty"`
	AccessoryID string `json:"accessory_id,omitempty"`
	Type        string `json:"type,omitempty"`
	Value       any    `json:"value"`
}

// response is the body received on <root>/response/<id>.
type response struct {
	OK          bool            `json:"ok"`
	Code        string          `json:"code"`
	Error       string          `json:"error"`
	Value       any             `json:"value"`
	Status      string          `json:"status"`
	Homes       []hub.Home      `json:"homes"`
	Primary     string          `json:"primary"`
	Accessories []hub.Accessory `json:"accessories"`
}

// err maps a failed response onto the hub sentinels.
func (r response) err() error {
	if r.OK {
		return nil
	}
	var sentinel error
	switch r.Code {
	case codeAccessoryNotFound:
		sentinel = hub.ErrAccessoryNotFound
	case codeHomeNotFound:
		sentinel = hub.ErrHomeNotFound
	case codeCharacteristicNotFound:
		sentinel = hub.ErrCharacteristicNotFound
	case codeInvalidValue:
		sentinel = hub.ErrInvalidValue
	default:
		sentinel = ErrRequestFailed
	}
	if r.Error == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, r.Error)
}

type authPayload struct {
	Status string `json:"status"`
}

type homesPayload struct {
	Homes   []hub.Home `json:"homes"`
	Primary string     `json:"primary"`
}

type removedPayload struct {
	ID string `json:"id"`
}

type characteristicPayload struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// decode unmarshals a JSON body into a generic map and then into out, so
// that unknown fields and loosely typed numbers are tolerated the same way
// for every message type.
func decode(payload []byte, out any) error {
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return nil
}

// primaryOf resolves the primary home ID against the home list.
func primaryOf(homes []hub.Home, id string) *hub.Home {
	if id == "" {
		return nil
	}
	for i := range homes {
		if homes[i].ID == id {
			h := homes[i]
			return &h
		}
	}
	return nil
}
