package influxdb

import "errors"

// Sentinel errors; match with errors.Is. ErrDisabled is the expected
// result of Connect on a lamp with telemetry switched off, not a
// fault.
var (
	ErrNotConnected     = errors.New("influxdb: not connected")
	ErrConnectionFailed = errors.New("influxdb: connection failed")
	ErrDisabled         = errors.New("influxdb: disabled in configuration")
)
