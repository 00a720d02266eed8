package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// defaultHistoryHours is the lookback window when the hours query
// parameter is absent.
const defaultHistoryHours = 24

// maxHistoryHours caps the lookback window; a year of hourly rollups is
// the oldest data retention keeps anyway.
const maxHistoryHours = 24 * 366

// historySince parses the hours query parameter into a cutoff time.
func historySince(r *http.Request) (time.Time, bool) {
	hours := defaultHistoryHours
	if v := r.URL.Query().Get("hours"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > maxHistoryHours {
			return time.Time{}, false
		}
		hours = parsed
	}
	return time.Now().UTC().Add(-time.Duration(hours) * time.Hour), true
}

func (s *Server) handleServerHistory(w http.ResponseWriter, r *http.Request) {
	since, ok := historySince(r)
	if !ok {
		writeBadRequest(w, "hours must be between 1 and 8784")
		return
	}

	rows, err := s.store.ServerMetrics(r.Context(), chi.URLParam(r, "node"), since)
	if err != nil {
		s.logger.Error("server history query failed", "error", err)
		writeInternalError(w, "history query failed")
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleVMHistory(w http.ResponseWriter, r *http.Request) {
	vmid, err := strconv.Atoi(chi.URLParam(r, "vmid"))
	if err != nil {
		writeBadRequest(w, "vmid must be an integer")
		return
	}

	since, ok := historySince(r)
	if !ok {
		writeBadRequest(w, "hours must be between 1 and 8784")
		return
	}

	rows, err := s.store.VMMetrics(r.Context(), vmid, since)
	if err != nil {
		s.logger.Error("VM history query failed", "error", err)
		writeInternalError(w, "history query failed")
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleAutomationMetrics(w http.ResponseWriter, r *http.Request) {
	since, ok := historySince(r)
	if !ok {
		writeBadRequest(w, "hours must be between 1 and 8784")
		return
	}

	rows, err := s.store.AutomationMetrics(r.Context(), chi.URLParam(r, "id"), since)
	if err != nil {
		s.logger.Error("automation history query failed", "error", err)
		writeInternalError(w, "history query failed")
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleDeviceHistory(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		writeBadRequest(w, "topic query parameter is required")
		return
	}

	since, ok := historySince(r)
	if !ok {
		writeBadRequest(w, "hours must be between 1 and 8784")
		return
	}

	rows, err := s.store.DeviceStates(r.Context(), topic, since)
	if err != nil {
		s.logger.Error("device history query failed", "error", err)
		writeInternalError(w, "history query failed")
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleDeviceLatest(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		writeBadRequest(w, "topic query parameter is required")
		return
	}

	state, err := s.store.LatestDeviceState(r.Context(), topic)
	if err != nil {
		s.logger.Error("latest device state query failed", "error", err)
		writeInternalError(w, "history query failed")
		return
	}
	if state == nil {
		writeNotFound(w, "no state recorded for topic")
		return
	}

	writeJSON(w, http.StatusOK, state)
}
