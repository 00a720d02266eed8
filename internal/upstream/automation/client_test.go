package automation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nerrad567/home-panel-core/internal/infrastructure/config"
	"github.com/nerrad567/home-panel-core/internal/infrastructure/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text"}, "test")
	return New(config.AutomationConfig{URL: srv.URL, Timeout: 5}, logger)
}

func TestClient_List(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/automations" || r.Method != http.MethodGet {
			t.Errorf("got %s %s, want GET /automations", r.Method, r.URL.Path)
		}
		w.Write([]byte(`[{"id":"morning-lights","enabled":true}]`)) //nolint:errcheck // Test handler
	})

	raw, err := client.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if string(raw) != `[{"id":"morning-lights","enabled":true}]` {
		t.Errorf("List() = %s, want passthrough body", raw)
	}
}

func TestClient_Trigger(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/automations/morning-lights/trigger" {
			t.Errorf("path = %q, want trigger path", r.URL.Path)
		}
		w.Write([]byte(`{"status":"triggered"}`)) //nolint:errcheck // Test handler
	})

	raw, err := client.Trigger(context.Background(), "morning-lights")
	if err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	if string(raw) != `{"status":"triggered"}` {
		t.Errorf("Trigger() = %s, want triggered response", raw)
	}
}

func TestClient_TriggerEscapesID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/automations/odd%2Fid/trigger" {
			t.Errorf("escaped path = %q, want escaped id", r.URL.EscapedPath())
		}
		w.Write([]byte(`{}`)) //nolint:errcheck // Test handler
	})

	if _, err := client.Trigger(context.Background(), "odd/id"); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
}

func TestClient_History(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/automations/morning-lights/history" {
			t.Errorf("path = %q, want history path", r.URL.Path)
		}
		w.Write([]byte(`[]`)) //nolint:errcheck // Test handler
	})

	if _, err := client.History(context.Background(), "morning-lights"); err != nil {
		t.Fatalf("History() error = %v", err)
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	if _, err := client.List(context.Background()); !errors.Is(err, ErrRequestFailed) {
		t.Errorf("List() error = %v, want ErrRequestFailed", err)
	}
}

func TestClient_InvalidJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`not json`)) //nolint:errcheck // Test handler
	})

	if _, err := client.List(context.Background()); err == nil {
		t.Error("List() expected error for invalid JSON, got nil")
	}
}

func TestClient_Health(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %q, want /health", r.URL.Path)
		}
		w.Write([]byte(`{"status":"healthy","automations_loaded":4}`)) //nolint:errcheck // Test handler
	})

	got, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if string(got) != `{"status":"healthy","automations_loaded":4}` {
		t.Errorf("Health() = %s, want passthrough", got)
	}
}

func TestClient_Info(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/automations/morning-lights" {
			t.Errorf("path = %q, want /automations/morning-lights", r.URL.Path)
		}
		w.Write([]byte(`{"id":"morning-lights","enabled":true}`)) //nolint:errcheck // Test handler
	})

	if _, err := client.Info(context.Background(), "morning-lights"); err != nil {
		t.Fatalf("Info() error = %v", err)
	}
}

func TestClient_Stats(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/automations/morning-lights/stats" {
			t.Errorf("path = %q, want /automations/morning-lights/stats", r.URL.Path)
		}
		w.Write([]byte(`{"runs":12}`)) //nolint:errcheck // Test handler
	})

	if _, err := client.Stats(context.Background(), "morning-lights"); err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
}

func TestClient_AllStats(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/automations/stats/all" {
			t.Errorf("path = %q, want /automations/stats/all", r.URL.Path)
		}
		w.Write([]byte(`[{"id":"morning-lights","runs":12}]`)) //nolint:errcheck // Test handler
	})

	if _, err := client.AllStats(context.Background()); err != nil {
		t.Fatalf("AllStats() error = %v", err)
	}
}
