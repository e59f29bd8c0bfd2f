// Package influxdb exports FrameHub command telemetry to InfluxDB v2.
//
// Client wraps the official influxdb-client-go batching write API.
// Telemetry is a control.Recorder on top of it: every command outcome
// becomes a framehub_command point, and every successful command also
// writes the hub-confirmed values as a framehub_device_state point.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	coordinator.AddRecorder(influxdb.NewTelemetry(client, cfg.Site.ID))
//
// Writes never block the command path. Delivery errors arrive
// asynchronously through SetOnError.
package influxdb
