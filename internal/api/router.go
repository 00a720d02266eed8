package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Operational endpoints (no auth: local network monitoring)
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// Camera signaling: the proxy upgrades first and authenticates the
		// token query parameter itself, closing with a policy violation on
		// failure. Header-based middleware cannot serve browser WebSockets.
		if s.signaling != nil {
			r.Get("/cameras/signal", s.signaling.ServeHTTP)
		}

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/auth/me", s.handleAuthMe)

			// Live event stream
			r.Get("/events/stream", s.handleEventStream)

			// Proxmox
			r.Route("/proxmox", func(r chi.Router) {
				r.Get("/servers", s.handleProxmoxServers)
				r.Get("/servers/{server}/nodes/{node}/status", s.handleProxmoxNodeStatus)
				r.Get("/servers/{server}/nodes/{node}/vms", s.handleProxmoxVMs)
				r.Post("/servers/{server}/nodes/{node}/vms/{vmid}/{action}", s.handleProxmoxVMAction)
			})

			// Frigate NVR
			r.Route("/frigate", func(r chi.Router) {
				r.Get("/events", s.handleFrigateEvents)
				r.Get("/events/{id}/thumbnail", s.handleFrigateEventThumbnail)
				r.Get("/events/{id}/snapshot", s.handleFrigateEventSnapshot)
				r.Get("/stats", s.handleFrigateStats)
				r.Get("/cameras", s.handleFrigateCameras)
				r.Get("/cameras/{camera}/snapshot", s.handleFrigateCameraSnapshot)
			})

			// MQTT gateway passthrough (topic cache and publish)
			r.Route("/mqtt", func(r chi.Router) {
				r.Get("/health", s.handleMQTTGatewayHealth)
				r.Get("/topics", s.handleMQTTTopics)
				r.Get("/topic", s.handleMQTTTopic)
				r.Post("/publish", s.handleMQTTPublish)
			})

			// Automation engine passthrough
			r.Route("/automations", func(r chi.Router) {
				r.Get("/", s.handleAutomationList)
				r.Get("/health", s.handleAutomationEngineHealth)
				r.Get("/stats/all", s.handleAutomationAllStats)
				r.Get("/{id}", s.handleAutomationInfo)
				r.Get("/{id}/stats", s.handleAutomationStats)
				r.Post("/{id}/trigger", s.handleAutomationTrigger)
				r.Get("/{id}/history", s.handleAutomationHistory)
			})

			// AI hub passthrough
			r.Route("/ai", func(r chi.Router) {
				r.Post("/chat", s.handleAIChat)
				r.Delete("/chat/{id}", s.handleAIChatCancel)
				r.Get("/processes", s.handleAIProcesses)
				r.Get("/health", s.handleAIHealth)
			})

			// Metrics history
			r.Route("/metrics", func(r chi.Router) {
				r.Get("/servers/{node}", s.handleServerHistory)
				r.Get("/vms/{vmid}", s.handleVMHistory)
				r.Get("/automations/{id}", s.handleAutomationMetrics)
				r.Get("/devices", s.handleDeviceHistory)
				r.Get("/devices/latest", s.handleDeviceLatest)
			})
		})
	})

	return r
}
