package proxmox

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nerrad567/home-panel-core/internal/infrastructure/config"
	"github.com/nerrad567/home-panel-core/internal/infrastructure/logging"
)

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text"}, "test")
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.ProxmoxServerConfig{
		Name:    "pve-test",
		URL:     srv.URL,
		TokenID: "panel@pve!dashboard",
		Secret:  "secret-value",
	}, 5*time.Second, testLogger())
}

func TestClient_Nodes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "PVEAPIToken=panel@pve!dashboard=secret-value" {
			t.Errorf("Authorization = %q, want PVEAPIToken header", got)
		}
		if r.URL.Path != "/api2/json/nodes" {
			t.Errorf("path = %q, want /api2/json/nodes", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"node":"pve1","status":"online","cpu":0.12,"maxcpu":16,"mem":1024,"maxmem":4096,"uptime":3600}]}`)) //nolint:errcheck // Test handler
	})

	nodes, err := client.Nodes(context.Background())
	if err != nil {
		t.Fatalf("Nodes() error = %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("len(nodes) = %d, want 1", len(nodes))
	}
	if nodes[0].Node != "pve1" || nodes[0].Status != "online" {
		t.Errorf("node = %+v, want pve1/online", nodes[0])
	}
	if nodes[0].Uptime != 3600 {
		t.Errorf("Uptime = %d, want 3600", nodes[0].Uptime)
	}
}

func TestClient_NodeStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api2/json/nodes/pve1/status" {
			t.Errorf("path = %q, want node status path", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"cpu":0.25,"uptime":7200,"memory":{"used":2048,"total":8192},"rootfs":{"used":100,"total":500}}}`)) //nolint:errcheck // Test handler
	})

	status, err := client.NodeStatus(context.Background(), "pve1")
	if err != nil {
		t.Fatalf("NodeStatus() error = %v", err)
	}
	if status.CPU != 0.25 {
		t.Errorf("CPU = %v, want 0.25", status.CPU)
	}
	if status.Memory.Used != 2048 || status.Memory.Total != 8192 {
		t.Errorf("Memory = %+v, want used 2048 total 8192", status.Memory)
	}
}

func TestClient_VMs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"vmid":101,"name":"homeassistant","status":"running","cpu":0.05,"mem":512,"maxmem":2048}]}`)) //nolint:errcheck // Test handler
	})

	vms, err := client.VMs(context.Background(), "pve1")
	if err != nil {
		t.Fatalf("VMs() error = %v", err)
	}
	if len(vms) != 1 || vms[0].VMID != 101 || vms[0].Name != "homeassistant" {
		t.Fatalf("vms = %+v, want one VM 101/homeassistant", vms)
	}
}

func TestClient_VMAction(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api2/json/nodes/pve1/qemu/101/status/reboot" {
			t.Errorf("path = %q, want reboot path", r.URL.Path)
		}
		w.Write([]byte(`{"data":"UPID:pve1:0001:reboot"}`)) //nolint:errcheck // Test handler
	})

	taskID, err := client.VMAction(context.Background(), "pve1", 101, "reboot")
	if err != nil {
		t.Fatalf("VMAction() error = %v", err)
	}
	if taskID != "UPID:pve1:0001:reboot" {
		t.Errorf("taskID = %q, want UPID", taskID)
	}
}

func TestClient_VMActionInvalid(t *testing.T) {
	client := newTestClient(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("server should not be called for an invalid action")
	})

	_, err := client.VMAction(context.Background(), "pve1", 101, "destroy")
	if !errors.Is(err, ErrInvalidAction) {
		t.Errorf("VMAction() error = %v, want ErrInvalidAction", err)
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "authentication failure", http.StatusUnauthorized)
	})

	_, err := client.Nodes(context.Background())
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("Nodes() error = %v, want ErrRequestFailed", err)
	}
}
