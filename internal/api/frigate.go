package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/home-panel-core/internal/upstream/frigate"
)

func (s *Server) handleFrigateEvents(w http.ResponseWriter, r *http.Request) {
	q := frigate.EventQuery{
		Camera: r.URL.Query().Get("camera"),
		Label:  r.URL.Query().Get("label"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		q.Limit = limit
	}

	events, err := s.frigate.Events(r.Context(), q)
	if err != nil {
		writeUpstreamError(w, "frigate events unavailable")
		return
	}

	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleFrigateStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.frigate.Stats(r.Context())
	if err != nil {
		writeUpstreamError(w, "frigate stats unavailable")
		return
	}

	writeRawJSON(w, http.StatusOK, stats)
}

func (s *Server) handleFrigateCameras(w http.ResponseWriter, r *http.Request) {
	cameras, err := s.frigate.Cameras(r.Context())
	if err != nil {
		writeUpstreamError(w, "frigate config unavailable")
		return
	}

	writeJSON(w, http.StatusOK, cameras)
}

// defaultSnapshotQuality matches what the dashboard expects for live
// camera tiles; callers can override with the quality query parameter.
const defaultSnapshotQuality = 70

func (s *Server) handleFrigateCameraSnapshot(w http.ResponseWriter, r *http.Request) {
	quality := defaultSnapshotQuality
	if v := r.URL.Query().Get("quality"); v != "" {
		q, err := strconv.Atoi(v)
		if err != nil || q < 1 || q > 100 {
			writeBadRequest(w, "quality must be between 1 and 100")
			return
		}
		quality = q
	}

	height := 0
	if v := r.URL.Query().Get("height"); v != "" {
		h, err := strconv.Atoi(v)
		if err != nil || h < 1 {
			writeBadRequest(w, "height must be a positive integer")
			return
		}
		height = h
	}

	img, err := s.frigate.Snapshot(r.Context(), chi.URLParam(r, "camera"), quality, height)
	if err != nil {
		writeFrigateImageError(w, err, "camera snapshot unavailable")
		return
	}

	writeJPEG(w, img)
}

func (s *Server) handleFrigateEventThumbnail(w http.ResponseWriter, r *http.Request) {
	img, err := s.frigate.EventThumbnail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFrigateImageError(w, err, "event thumbnail unavailable")
		return
	}

	writeJPEG(w, img)
}

func (s *Server) handleFrigateEventSnapshot(w http.ResponseWriter, r *http.Request) {
	img, err := s.frigate.EventSnapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFrigateImageError(w, err, "event snapshot unavailable")
		return
	}

	writeJPEG(w, img)
}

func writeFrigateImageError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, frigate.ErrNotFound) {
		writeNotFound(w, message)
		return
	}
	writeUpstreamError(w, message)
}

// writeJPEG serves a camera frame. Frames go stale immediately, so
// caching is disabled end to end.
func writeJPEG(w http.ResponseWriter, img []byte) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(img) //nolint:errcheck // Client disconnects are not actionable
}
