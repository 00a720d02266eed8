package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/home-panel-core/internal/upstream/proxmox"
)

// serverNodes is one server's entry in the GET /proxmox/servers response.
type serverNodes struct {
	Server string         `json:"server"`
	Nodes  []proxmox.Node `json:"nodes,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// proxmoxByName finds the configured client for a server name.
func (s *Server) proxmoxByName(name string) *proxmox.Client {
	for _, c := range s.proxmox {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// handleProxmoxServers lists the nodes of every configured server. A
// server that is down gets an error entry rather than failing the whole
// response; the dashboard renders it greyed out.
func (s *Server) handleProxmoxServers(w http.ResponseWriter, r *http.Request) {
	result := make([]serverNodes, 0, len(s.proxmox))
	for _, c := range s.proxmox {
		entry := serverNodes{Server: c.Name()}
		nodes, err := c.Nodes(r.Context())
		if err != nil {
			s.logger.Warn("proxmox server unreachable", "server", c.Name(), "error", err)
			entry.Error = "unreachable"
		} else {
			entry.Nodes = nodes
		}
		result = append(result, entry)
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleProxmoxNodeStatus(w http.ResponseWriter, r *http.Request) {
	c := s.proxmoxByName(chi.URLParam(r, "server"))
	if c == nil {
		writeNotFound(w, "unknown server")
		return
	}

	status, err := c.NodeStatus(r.Context(), chi.URLParam(r, "node"))
	if err != nil {
		writeUpstreamError(w, "node status unavailable")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleProxmoxVMs(w http.ResponseWriter, r *http.Request) {
	c := s.proxmoxByName(chi.URLParam(r, "server"))
	if c == nil {
		writeNotFound(w, "unknown server")
		return
	}

	vms, err := c.VMs(r.Context(), chi.URLParam(r, "node"))
	if err != nil {
		writeUpstreamError(w, "VM list unavailable")
		return
	}

	writeJSON(w, http.StatusOK, vms)
}

// handleProxmoxVMAction issues a power action against a guest and returns
// the Proxmox task ID for progress polling.
func (s *Server) handleProxmoxVMAction(w http.ResponseWriter, r *http.Request) {
	c := s.proxmoxByName(chi.URLParam(r, "server"))
	if c == nil {
		writeNotFound(w, "unknown server")
		return
	}

	vmid, err := strconv.Atoi(chi.URLParam(r, "vmid"))
	if err != nil {
		writeBadRequest(w, "vmid must be an integer")
		return
	}

	action := chi.URLParam(r, "action")
	taskID, err := c.VMAction(r.Context(), chi.URLParam(r, "node"), vmid, action)
	if err != nil {
		if errors.Is(err, proxmox.ErrInvalidAction) {
			writeBadRequest(w, "invalid action")
			return
		}
		writeUpstreamError(w, "VM action failed")
		return
	}

	claims := claimsFrom(r.Context())
	s.logger.Info("VM action requested",
		"server", c.Name(),
		"vmid", vmid,
		"action", action,
		"session", claims.SessionID,
	)

	writeJSON(w, http.StatusOK, map[string]string{"task_id": taskID})
}
