// Package mqtthub implements hub.Hub over the FrameHub MQTT hub protocol.
//
// A hub gateway (a HomeKit bridge process, a simulator, or any other
// implementation) publishes the home database and answers requests:
//
//	Gateway ──retained──▶ <root>/auth, <root>/homes
//	Gateway ──events────▶ <root>/home/+, <root>/accessory/+/+,
//	                      <root>/characteristic/+
//	Core    ──request───▶ <root>/request/<uuid>
//	Gateway ──response──▶ <root>/response/<uuid>
//
// Request bodies are {"op","home_id","accessory_id","type","value"} with
// op one of auth, homes, accessories, write, read. Responses carry "ok"
// and, on failure, a "code" that maps onto the hub package sentinels
// (accessory_not_found, home_not_found, characteristic_not_found,
// invalid_value).
//
// All bodies are JSON. They are decoded into a generic map first and then
// into typed structs with mapstructure, so gateways may add fields freely.
package mqtthub
