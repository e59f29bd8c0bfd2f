// Package control turns user intents into hub writes.
//
// A Coordinator validates a command, writes to the hub, and only after the
// hub confirms does it patch the registry. The registry therefore never
// shows a value the hub has not accepted.
//
//	Toggle / SetBrightness / SetColor / AllOn / AllOff / Resync
//	                     │
//	                     ▼
//	        validate ──▶ per-device lock (FIFO)
//	                     │
//	                     ▼
//	          hub.WriteCharacteristic (write timeout)
//	                     │ confirmed
//	                     ▼
//	     registry.ApplyCharacteristics ──▶ Recorders (journal, telemetry)
//
// SetColor writes hue and saturation concurrently and waits for both. If
// either fails the command reports a *CompositeError and local state keeps
// the old values; the hub may have accepted the other write. With
// ResyncAfterPartialFailure set, the coordinator re-reads the device in the
// background to repair that drift.
//
// Failures are also kept in a single error slot (LastError) for the UI.
package control
