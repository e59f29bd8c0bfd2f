package mqtthub

import "errors"

var (
	// ErrClosed is returned by requests issued after Close.
	ErrClosed = errors.New("mqtthub: closed")

	// ErrRequestFailed is returned when the gateway answers a request with
	// ok=false and an error code Core does not map to a hub sentinel.
	ErrRequestFailed = errors.New("mqtthub: request failed")

	// ErrMalformedPayload is returned (and logged for events) when a
	// message body does not match the protocol.
	ErrMalformedPayload = errors.New("mqtthub: malformed payload")
)
