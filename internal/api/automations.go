package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/home-panel-core/internal/store"
	"github.com/nerrad567/home-panel-core/internal/upstream/aihub"
)

func (s *Server) handleAutomationList(w http.ResponseWriter, r *http.Request) {
	body, err := s.automation.List(r.Context())
	if err != nil {
		writeUpstreamError(w, "automation engine unavailable")
		return
	}

	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleAutomationTrigger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	start := time.Now()
	body, err := s.automation.Trigger(r.Context(), id)
	s.recordAutomationRun(r.Context(), id, time.Since(start), err == nil)
	if err != nil {
		writeUpstreamError(w, "automation trigger failed")
		return
	}

	claims := claimsFrom(r.Context())
	s.logger.Info("automation triggered", "id", id, "session", claims.SessionID)

	writeRawJSON(w, http.StatusOK, body)
}

// recordAutomationRun stores a run-rate sample for a dashboard-initiated
// trigger. Failures are logged and swallowed; history bookkeeping must
// never break the trigger response.
func (s *Server) recordAutomationRun(ctx context.Context, id string, took time.Duration, ok bool) {
	sample := store.AutomationMetric{
		AutomationID:  id,
		Timestamp:     time.Now().UTC(),
		TriggerCount:  1,
		AvgDurationMS: float64(took.Milliseconds()),
	}
	if ok {
		sample.SuccessCount = 1
	} else {
		sample.FailureCount = 1
	}

	if err := s.store.InsertAutomationMetric(ctx, sample); err != nil {
		s.logger.Warn("recording automation run failed", "id", id, "error", err)
	}
}

func (s *Server) handleAutomationEngineHealth(w http.ResponseWriter, r *http.Request) {
	body, err := s.automation.Health(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "offline"})
		return
	}

	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleAutomationInfo(w http.ResponseWriter, r *http.Request) {
	body, err := s.automation.Info(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeUpstreamError(w, "automation info unavailable")
		return
	}

	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleAutomationStats(w http.ResponseWriter, r *http.Request) {
	body, err := s.automation.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeUpstreamError(w, "automation stats unavailable")
		return
	}

	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleAutomationAllStats(w http.ResponseWriter, r *http.Request) {
	body, err := s.automation.AllStats(r.Context())
	if err != nil {
		writeUpstreamError(w, "automation stats unavailable")
		return
	}

	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleAutomationHistory(w http.ResponseWriter, r *http.Request) {
	body, err := s.automation.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeUpstreamError(w, "automation history unavailable")
		return
	}

	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleAIChat(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "unreadable request body")
		return
	}

	body, err := s.aihub.Chat(r.Context(), payload)
	if err != nil {
		writeUpstreamError(w, "AI hub unavailable")
		return
	}

	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleAIProcesses(w http.ResponseWriter, r *http.Request) {
	body, err := s.aihub.Processes(r.Context())
	if err != nil {
		writeUpstreamError(w, "AI hub unavailable")
		return
	}

	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleAIChatCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	body, err := s.aihub.CancelChat(r.Context(), id)
	if err != nil {
		if errors.Is(err, aihub.ErrProcessNotFound) {
			writeNotFound(w, "no such chat process")
			return
		}
		writeUpstreamError(w, "AI hub unavailable")
		return
	}

	claims := claimsFrom(r.Context())
	s.logger.Info("chat cancelled", "process_id", id, "session", claims.SessionID)

	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleAIHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.aihub.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "offline"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "online"})
}
