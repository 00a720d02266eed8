package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleMQTTGatewayHealth(w http.ResponseWriter, r *http.Request) {
	body, err := s.gateway.Health(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "offline"})
		return
	}

	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleMQTTTopics(w http.ResponseWriter, r *http.Request) {
	body, err := s.gateway.Topics(r.Context())
	if err != nil {
		writeUpstreamError(w, "mqtt gateway unavailable")
		return
	}

	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleMQTTTopic(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeBadRequest(w, "path query parameter is required")
		return
	}

	body, err := s.gateway.Topic(r.Context(), path)
	if err != nil {
		writeUpstreamError(w, "mqtt gateway unavailable")
		return
	}

	writeRawJSON(w, http.StatusOK, body)
}

// publishRequest is a dashboard publish to a single MQTT topic, relayed
// through the gateway rather than the broker so the gateway's topic
// cache stays authoritative.
type publishRequest struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

func (s *Server) handleMQTTPublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Topic == "" {
		writeBadRequest(w, "topic is required")
		return
	}

	body, err := s.gateway.Publish(r.Context(), req.Topic, req.Payload)
	if err != nil {
		writeUpstreamError(w, "mqtt gateway unavailable")
		return
	}

	claims := claimsFrom(r.Context())
	s.logger.Info("topic published", "topic", req.Topic, "session", claims.SessionID)

	writeRawJSON(w, http.StatusOK, body)
}
