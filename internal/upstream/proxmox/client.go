// Package proxmox is a thin typed client for the Proxmox VE HTTP API,
// covering the node and VM surface the dashboard uses.
package proxmox

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nerrad567/home-panel-core/internal/infrastructure/config"
	"github.com/nerrad567/home-panel-core/internal/infrastructure/logging"
)

// Sentinel errors.
var (
	// ErrRequestFailed indicates the server answered with a non-2xx status.
	ErrRequestFailed = errors.New("proxmox request failed")

	// ErrInvalidAction indicates an unsupported VM power action.
	ErrInvalidAction = errors.New("invalid VM action")
)

// validActions are the VM power actions the dashboard may issue.
var validActions = map[string]bool{
	"start":    true,
	"stop":     true,
	"shutdown": true,
	"reboot":   true,
}

// Client talks to a single Proxmox server using API token authentication.
type Client struct {
	name       string
	baseURL    string
	authHeader string
	httpClient *http.Client
	logger     *logging.Logger
}

// New creates a client for one configured Proxmox server.
func New(cfg config.ProxmoxServerConfig, timeout time.Duration, logger *logging.Logger) *Client {
	transport := http.DefaultTransport
	if !cfg.VerifyTLS {
		// Home Proxmox installs ship self-signed certificates.
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // Deliberate, config-controlled
		}
	}

	return &Client{
		name:       cfg.Name,
		baseURL:    cfg.URL,
		authHeader: fmt.Sprintf("PVEAPIToken=%s=%s", cfg.TokenID, cfg.Secret),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: logger.With("component", "proxmox", "server", cfg.Name),
	}
}

// Name returns the configured server name.
func (c *Client) Name() string {
	return c.name
}

// Node is a cluster node summary from /nodes.
type Node struct {
	Node    string  `json:"node"`
	Status  string  `json:"status"`
	CPU     float64 `json:"cpu"`
	MaxCPU  int     `json:"maxcpu"`
	Mem     int64   `json:"mem"`
	MaxMem  int64   `json:"maxmem"`
	Disk    int64   `json:"disk"`
	MaxDisk int64   `json:"maxdisk"`
	Uptime  int64   `json:"uptime"`
}

// NodeStatus is the detailed status of one node.
type NodeStatus struct {
	CPU     float64   `json:"cpu"`
	Uptime  int64     `json:"uptime"`
	LoadAvg []string  `json:"loadavg"`
	Memory  NodeDisk  `json:"memory"`
	RootFS  NodeDisk  `json:"rootfs"`
	CPUInfo *CPUInfo  `json:"cpuinfo,omitempty"`
	KSM     *struct { //nolint:revive // Matches the Proxmox response shape
		Shared int64 `json:"shared"`
	} `json:"ksm,omitempty"`
}

// NodeDisk is a used/total byte pair.
type NodeDisk struct {
	Used  int64 `json:"used"`
	Total int64 `json:"total"`
	Free  int64 `json:"free"`
}

// CPUInfo describes the node's processor.
type CPUInfo struct {
	Model string `json:"model"`
	Cores int    `json:"cores"`
	CPUs  int    `json:"cpus"`
}

// VM is a QEMU guest summary from /nodes/{node}/qemu.
type VM struct {
	VMID      int     `json:"vmid"`
	Name      string  `json:"name"`
	Status    string  `json:"status"`
	CPU       float64 `json:"cpu"`
	CPUs      int     `json:"cpus"`
	Mem       int64   `json:"mem"`
	MaxMem    int64   `json:"maxmem"`
	DiskRead  int64   `json:"diskread"`
	DiskWrite int64   `json:"diskwrite"`
	NetIn     int64   `json:"netin"`
	NetOut    int64   `json:"netout"`
	Uptime    int64   `json:"uptime"`
}

// Nodes lists cluster nodes.
func (c *Client) Nodes(ctx context.Context) ([]Node, error) {
	var nodes []Node
	if err := c.get(ctx, "/api2/json/nodes", &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// NodeStatus fetches detailed status for one node.
func (c *Client) NodeStatus(ctx context.Context, node string) (*NodeStatus, error) {
	var status NodeStatus
	path := fmt.Sprintf("/api2/json/nodes/%s/status", node)
	if err := c.get(ctx, path, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// VMs lists QEMU guests on a node.
func (c *Client) VMs(ctx context.Context, node string) ([]VM, error) {
	var vms []VM
	path := fmt.Sprintf("/api2/json/nodes/%s/qemu", node)
	if err := c.get(ctx, path, &vms); err != nil {
		return nil, err
	}
	return vms, nil
}

// VMAction issues a power action (start, stop, shutdown, reboot) against
// a guest. Proxmox returns a task ID, which is returned verbatim.
func (c *Client) VMAction(ctx context.Context, node string, vmid int, action string) (string, error) {
	if !validActions[action] {
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	path := fmt.Sprintf("/api2/json/nodes/%s/qemu/%d/status/%s", node, vmid, action)
	var taskID string
	if err := c.do(ctx, http.MethodPost, path, &taskID); err != nil {
		return "", err
	}

	c.logger.Info("VM action issued", "node", node, "vmid", vmid, "action", action)
	return taskID, nil
}

// get performs a GET and decodes the data envelope into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, out)
}

// do performs a request and decodes Proxmox's {"data": ...} envelope.
func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling proxmox %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Nothing useful on close error

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // Diagnostic only
		return fmt.Errorf("%w: %s returned %d: %s", ErrRequestFailed, path, resp.StatusCode, body)
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decoding proxmox response: %w", err)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decoding proxmox data: %w", err)
		}
	}
	return nil
}
