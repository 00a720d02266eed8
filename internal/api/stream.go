package api

import (
	"fmt"
	"net/http"
	"time"
)

// handleEventStream serves the live event feed as Server-Sent Events.
//
// The optional topics query parameter is a comma-separated list of topic
// patterns (exact or trailing-* prefix); no parameter means every topic.
// Quiet streams carry periodic ping events so proxies and clients can
// tell silence from a dead connection.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeInternalError(w, "streaming unsupported")
		return
	}

	sub, err := s.pool.Subscribe(r.URL.Query().Get("topics"))
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "event stream not running")
		return
	}
	defer sub.Close()

	// The server-wide write timeout stays zero, but clear any deadline a
	// future config change might impose: this response never completes.
	rc := http.NewResponseController(w)
	rc.SetWriteDeadline(time.Time{}) //nolint:errcheck // Best effort

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Stop nginx from buffering the stream.
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		ev, err := sub.Next(r.Context())
		if err != nil {
			// Client gone or pool stopped; either way the stream is over.
			return
		}

		if ev == nil {
			// Keepalive marker.
			if _, err := fmt.Fprint(w, "event: ping\ndata: {}\n\n"); err != nil {
				return
			}
		} else {
			// Payload already carries the topic field; forward verbatim.
			if _, err := fmt.Fprintf(w, "data: %s\n\n", ev.Payload); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}
