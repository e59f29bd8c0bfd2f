package influxdb

import (
	"context"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/framehub-core/internal/control"
	"github.com/nerrad567/framehub-core/internal/hub"
)

// Measurements written by Telemetry.
const (
	MeasurementCommand     = "framehub_command"
	MeasurementDeviceState = "framehub_device_state"
)

// Telemetry is a control.Recorder that exports command outcomes and
// hub-confirmed device state as InfluxDB points.
//
//	framehub_command,site=…,device_id=…,command=…,outcome=ok|failed duration_ms=…i
//	framehub_device_state,site=…,device_id=… power_state=true,brightness=40i
//
// State points are only written for successful commands, so the series
// holds confirmed values only.
type Telemetry struct {
	w    PointWriter
	site string
}

// NewTelemetry creates a recorder writing to w, tagging points with siteID.
func NewTelemetry(w PointWriter, siteID string) *Telemetry {
	return &Telemetry{w: w, site: siteID}
}

// Record implements control.Recorder.
func (t *Telemetry) Record(_ context.Context, rec control.Record) {
	outcome := "ok"
	if rec.Err != nil {
		outcome = "failed"
	}
	t.w.WritePoint(write.NewPoint(MeasurementCommand,
		map[string]string{
			"site":      t.site,
			"device_id": rec.DeviceID,
			"command":   string(rec.Command),
			"outcome":   outcome,
		},
		map[string]any{"duration_ms": rec.Duration.Milliseconds()},
		rec.Started,
	))

	if rec.Err != nil {
		return
	}
	fields := stateFields(rec.Values)
	if len(fields) == 0 {
		return
	}
	t.w.WritePoint(write.NewPoint(MeasurementDeviceState,
		map[string]string{"site": t.site, "device_id": rec.DeviceID},
		fields,
		rec.Started.Add(rec.Duration),
	))
}

// stateFields keeps the values InfluxDB can store as fields.
func stateFields(values map[hub.CharacteristicType]any) map[string]any {
	fields := make(map[string]any, len(values))
	for k, v := range values {
		switch val := v.(type) {
		case bool:
			fields[string(k)] = val
		case float32, float64:
			if f, ok := hub.FloatValue(val); ok {
				fields[string(k)] = f
			}
		default:
			if n, ok := hub.IntValue(val); ok {
				fields[string(k)] = int64(n)
			}
		}
	}
	return fields
}

// Flush sends buffered points; call on shutdown.
func (t *Telemetry) Flush() {
	t.w.Flush()
}

var (
	_ control.Recorder = (*Telemetry)(nil)
	_ PointWriter      = (*Client)(nil)
)
