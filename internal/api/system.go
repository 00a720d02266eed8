package api

import (
	"context"
	"net/http"
	"time"
)

// healthCheckTimeout bounds the per-component probes during a health
// request so one stuck dependency cannot hang the endpoint.
const healthCheckTimeout = 3 * time.Second

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components"`
}

// handleHealthz fans a health probe out to every backing component. The
// overall status is degraded when any required component is unhealthy;
// optional components (MQTT, InfluxDB) report disabled when not wired.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	components := make(map[string]string)
	degraded := false

	check := func(name string, err error) {
		if err != nil {
			components[name] = err.Error()
			degraded = true
			return
		}
		components[name] = "ok"
	}

	check("stream", s.pool.HealthCheck(ctx))
	if s.db != nil {
		check("database", s.db.HealthCheck(ctx))
	}

	if s.mqtt != nil {
		check("mqtt", s.mqtt.HealthCheck(ctx))
	} else {
		components["mqtt"] = "disabled"
	}

	if s.influx != nil {
		check("influxdb", s.influx.HealthCheck(ctx))
	} else {
		components["influxdb"] = "disabled"
	}

	status := "ok"
	httpStatus := http.StatusOK
	if degraded {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:     status,
		Version:    s.version,
		Components: components,
	})
}
