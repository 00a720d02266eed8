package collector

import (
	"context"
	"time"

	"github.com/nerrad567/home-panel-core/internal/metrics"
	"github.com/nerrad567/home-panel-core/internal/store"
	"github.com/nerrad567/home-panel-core/internal/upstream/proxmox"
)

const (
	bytesPerGB = 1024 * 1024 * 1024
	bytesPerMB = 1024 * 1024
)

func bytesToGB(b int64) float64 {
	return float64(b) / bytesPerGB
}

func bytesToMB(b int64) float64 {
	return float64(b) / bytesPerMB
}

// collectServers samples every online node of every configured server.
func (c *Collector) collectServers(ctx context.Context) {
	for _, srv := range c.servers {
		nodes, err := srv.Nodes(ctx)
		if err != nil {
			metrics.CollectorErrors.WithLabelValues("servers").Inc()
			c.logger.Warn("listing nodes failed", "server", srv.Name(), "error", err)
			continue
		}

		for _, node := range nodes {
			if node.Status != "online" {
				continue
			}

			status, err := srv.NodeStatus(ctx, node.Node)
			if err != nil {
				metrics.CollectorErrors.WithLabelValues("servers").Inc()
				c.logger.Warn("node status failed", "server", srv.Name(), "node", node.Node, "error", err)
				continue
			}

			cpuPercent := status.CPU * 100
			m := store.ServerMetric{
				NodeName:      node.Node,
				Timestamp:     time.Now().UTC(),
				CPUPercent:    cpuPercent,
				MemoryUsedGB:  bytesToGB(status.Memory.Used),
				MemoryTotalGB: bytesToGB(status.Memory.Total),
				DiskUsedGB:    bytesToGB(status.RootFS.Used),
				DiskTotalGB:   bytesToGB(status.RootFS.Total),
				UptimeSeconds: status.Uptime,
			}

			if err := c.store.InsertServerMetric(ctx, m); err != nil {
				metrics.CollectorErrors.WithLabelValues("servers").Inc()
				c.logger.Error("storing node sample failed", "node", node.Node, "error", err)
				continue
			}

			if c.influx != nil {
				c.influx.WriteServerMetric(node.Node, cpuPercent, m.MemoryUsedGB, m.MemoryTotalGB)
			}
		}
	}
}

// collectVMs samples every guest on every online node.
func (c *Collector) collectVMs(ctx context.Context) {
	for _, srv := range c.servers {
		nodes, err := srv.Nodes(ctx)
		if err != nil {
			metrics.CollectorErrors.WithLabelValues("vms").Inc()
			c.logger.Warn("listing nodes failed", "server", srv.Name(), "error", err)
			continue
		}

		for _, node := range nodes {
			if node.Status != "online" {
				continue
			}

			vms, err := srv.VMs(ctx, node.Node)
			if err != nil {
				metrics.CollectorErrors.WithLabelValues("vms").Inc()
				c.logger.Warn("listing VMs failed", "server", srv.Name(), "node", node.Node, "error", err)
				continue
			}

			for _, vm := range vms {
				c.storeVMSample(ctx, node.Node, vm)
			}
		}
	}
}

func (c *Collector) storeVMSample(ctx context.Context, node string, vm proxmox.VM) {
	cpuPercent := vm.CPU * 100
	m := store.VMMetric{
		VMID:          vm.VMID,
		VMName:        vm.Name,
		NodeName:      node,
		Timestamp:     time.Now().UTC(),
		Status:        vm.Status,
		CPUPercent:    cpuPercent,
		MemoryUsedGB:  bytesToGB(vm.Mem),
		MemoryTotalGB: bytesToGB(vm.MaxMem),
		DiskReadMB:    bytesToMB(vm.DiskRead),
		DiskWriteMB:   bytesToMB(vm.DiskWrite),
		NetworkInMB:   bytesToMB(vm.NetIn),
		NetworkOutMB:  bytesToMB(vm.NetOut),
		UptimeSeconds: vm.Uptime,
	}

	if err := c.store.InsertVMMetric(ctx, m); err != nil {
		metrics.CollectorErrors.WithLabelValues("vms").Inc()
		c.logger.Error("storing VM sample failed", "vmid", vm.VMID, "error", err)
		return
	}

	// Stopped guests report zeroes; mirroring them just pollutes the
	// dashboard charts.
	if c.influx != nil && vm.Status == "running" {
		c.influx.WriteVMMetric(node, vm.Name, vm.VMID, cpuPercent, m.MemoryUsedGB)
	}
}
