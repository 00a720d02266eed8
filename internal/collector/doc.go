// Package collector runs the background sampling loops that feed the
// metrics store.
//
// Three sources are sampled:
//
//   - Proxmox nodes, on a short interval (CPU, memory, root filesystem,
//     uptime per online node)
//   - Proxmox VMs, on a longer interval (per-guest CPU, memory, disk and
//     network counters)
//   - Device state, continuously, from the live event pool (the latest
//     payload per tracked topic)
//
// Samples land in the SQLite store as raw rows; node and running-VM
// samples are also mirrored to InfluxDB when a client is configured. A
// cron job downsamples raw rows into coarser aggregation levels on the
// configured schedule, typically once a night.
//
// The collector is resilient by construction: a failed poll of one
// Proxmox server is logged and counted, never fatal, and the next tick
// retries from scratch.
package collector
