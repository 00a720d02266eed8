package influxdb

import "errors"

var (
	// ErrNotConnected is returned by HealthCheck when the client has
	// been closed or never connected.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed wraps failures of the initial ping in Connect.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled is returned by Connect when the mirror is switched
	// off in config; callers treat it as "run without the mirror".
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
