package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteServerMetric mirrors a Proxmox node sample.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - node: Node name (e.g., "pve1")
//   - cpuPercent: CPU utilisation percentage
//   - memUsedGB: Memory in use, gigabytes
//   - memTotalGB: Total memory, gigabytes
func (c *Client) WriteServerMetric(node string, cpuPercent, memUsedGB, memTotalGB float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"server_metrics",
		map[string]string{
			"node": node,
		},
		map[string]interface{}{
			"cpu_percent":     cpuPercent,
			"memory_used_gb":  memUsedGB,
			"memory_total_gb": memTotalGB,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteVMMetric mirrors a QEMU guest sample.
//
// Parameters:
//   - node: Host node name
//   - vmName: Guest name
//   - vmid: Guest ID
//   - cpuPercent: CPU utilisation percentage
//   - memUsedGB: Memory in use, gigabytes
func (c *Client) WriteVMMetric(node, vmName string, vmid int, cpuPercent, memUsedGB float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"vm_metrics",
		map[string]string{
			"node": node,
			"vm":   vmName,
		},
		map[string]interface{}{
			"vmid":           vmid,
			"cpu_percent":    cpuPercent,
			"memory_used_gb": memUsedGB,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
