// Package influxdb mirrors collector samples into InfluxDB v2 for
// long-horizon Grafana dashboards.
//
// SQLite remains the system of record; this mirror is optional and
// strictly best-effort. Writes go through the official
// influxdb-client-go v2 non-blocking API, batched per config.yaml
// (batch_size, flush_interval), and async write failures surface only
// through the SetOnError callback — a dead InfluxDB never stalls the
// collector.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without the mirror
//	}
//	defer client.Close()
//
//	client.WriteServerMetric("pve1", 42.5, 12.3, 64.0)
//
// All methods are safe for concurrent use.
package influxdb
