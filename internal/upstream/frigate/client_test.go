package frigate

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

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
	return New(config.FrigateConfig{URL: srv.URL, Timeout: 5}, testLogger())
}

func TestClient_Events(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/events" {
			t.Errorf("path = %q, want /api/events", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("camera") != "front_door" || q.Get("label") != "person" || q.Get("limit") != "10" {
			t.Errorf("query = %v, want camera/label/limit set", q)
		}
		w.Write([]byte(`[{"id":"ev1","camera":"front_door","label":"person","start_time":1700000000.5,"has_clip":true,"top_score":0.92}]`)) //nolint:errcheck // Test handler
	})

	events, err := client.Events(context.Background(), EventQuery{
		Camera: "front_door",
		Label:  "person",
		Limit:  10,
	})
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].ID != "ev1" || !events[0].HasClip {
		t.Errorf("event = %+v, want ev1 with clip", events[0])
	}
	if events[0].EndTime != nil {
		t.Error("EndTime should be nil for an in-progress event")
	}
}

func TestClient_EventsDefaultLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "25" {
			t.Errorf("limit = %q, want default 25", got)
		}
		w.Write([]byte(`[]`)) //nolint:errcheck // Test handler
	})

	if _, err := client.Events(context.Background(), EventQuery{}); err != nil {
		t.Fatalf("Events() error = %v", err)
	}
}

func TestClient_Stats(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/stats" {
			t.Errorf("path = %q, want /api/stats", r.URL.Path)
		}
		w.Write([]byte(`{"detectors":{"cpu":{"inference_speed":12.5}}}`)) //nolint:errcheck // Test handler
	})

	raw, err := client.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if len(raw) == 0 {
		t.Error("Stats() returned empty document")
	}
}

func TestClient_Cameras(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"cameras":{"front_door":{"enabled":true},"garden":{"enabled":false}}}`)) //nolint:errcheck // Test handler
	})

	cams, err := client.Cameras(context.Background())
	if err != nil {
		t.Fatalf("Cameras() error = %v", err)
	}
	if len(cams) != 2 {
		t.Errorf("len(cameras) = %d, want 2", len(cams))
	}
	if _, ok := cams["front_door"]; !ok {
		t.Error("cameras missing front_door")
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "oh no", http.StatusInternalServerError)
	})

	if _, err := client.Stats(context.Background()); !errors.Is(err, ErrRequestFailed) {
		t.Errorf("Stats() error = %v, want ErrRequestFailed", err)
	}
}

func TestClient_Snapshot(t *testing.T) {
	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/front_door/latest.jpg" {
			t.Errorf("path = %q, want /api/front_door/latest.jpg", r.URL.Path)
		}
		if got := r.URL.Query().Get("quality"); got != "70" {
			t.Errorf("quality = %q, want 70", got)
		}
		if got := r.URL.Query().Get("h"); got != "480" {
			t.Errorf("h = %q, want 480", got)
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(jpeg) //nolint:errcheck // Test handler
	})

	img, err := client.Snapshot(context.Background(), "front_door", 70, 480)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if !bytes.Equal(img, jpeg) {
		t.Errorf("Snapshot() = %x, want %x", img, jpeg)
	}
}

func TestClient_SnapshotOmitsZeroParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("query = %q, want empty", r.URL.RawQuery)
		}
		w.Write([]byte{0xff, 0xd8}) //nolint:errcheck // Test handler
	})

	if _, err := client.Snapshot(context.Background(), "front_door", 0, 0); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
}

func TestClient_EventThumbnail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/events/1700000000.123-abc/thumbnail.jpg" {
			t.Errorf("path = %q, want thumbnail path", r.URL.Path)
		}
		w.Write([]byte{0xff, 0xd8}) //nolint:errcheck // Test handler
	})

	if _, err := client.EventThumbnail(context.Background(), "1700000000.123-abc"); err != nil {
		t.Fatalf("EventThumbnail() error = %v", err)
	}
}

func TestClient_EventSnapshotNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	if _, err := client.EventSnapshot(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("EventSnapshot() error = %v, want ErrNotFound", err)
	}
}
