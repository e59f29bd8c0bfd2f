// Package registry mirrors the hub's primary home in memory.
//
// A Registry owns the only mutable copy of the hub state seen by FrameHub:
// authorization status, the home list, the primary home and that home's
// accessories. Everything that changes the mirror (hub events, accessory
// pulls, confirmed writes from the control package) is funnelled through
// one goroutine, Run, which publishes an immutable Snapshot after each
// change.
//
//	  hub.Events() ──┐
//	                 ▼
//	Refresh ──▶ ┌──────────┐  publish  ┌──────────────────────┐
//	(pull)      │   Run    │ ────────▶ │ atomic *Snapshot     │──▶ readers
//	Apply   ──▶ │ (writer) │           │ (groups precomputed) │
//	            └──────────┘           └──────────────────────┘
//	                                          │
//	                                          └──▶ Watch() signals
//
// Refreshes are coalesced per home: concurrent callers share one in-flight
// pull and observe the same result. A pull that finishes after the primary
// home changed is discarded.
package registry
