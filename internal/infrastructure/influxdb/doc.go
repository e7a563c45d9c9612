// Package influxdb ships lamp telemetry to an InfluxDB v2 server.
//
// Three measurements cover what the lamp knows about itself:
//
//	frame    cells changed per flush and effective frame rate
//	pattern  duration of each pattern run, tagged by name
//	program  outcome of each program execution
//
// Writes go through the official client's non-blocking write API:
// points buffer in memory and flush in batches on the configured
// interval, which keeps the 20 Hz frame clock decoupled from network
// latency. Batch failures surface asynchronously through the
// SetOnError callback; there is nothing useful the animation path
// could do with a synchronous error anyway.
//
// Telemetry is opt-in. Connect returns ErrDisabled when the config
// section is off, and main simply skips the wiring.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//		// run without telemetry
//	}
//	defer client.Close()
//
//	client.WriteFrameMetric(14, 19.8)
package influxdb
