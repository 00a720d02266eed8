package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nerrad567/home-panel-core/internal/infrastructure/config"
	"github.com/nerrad567/home-panel-core/internal/infrastructure/logging"
)

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text"}, "test")
}

func testEvent(topic string) *Event {
	return &Event{
		Topic:     topic,
		Payload:   json.RawMessage(`{"topic":"` + topic + `"}`),
		Timestamp: time.Now().UTC(),
	}
}

func TestRegistry_AddRemove(t *testing.T) {
	reg := newRegistry(4, testLogger())

	a := reg.add()
	b := reg.add()

	if a.id == b.id {
		t.Errorf("subscriber ids not unique: %d", a.id)
	}
	if got := reg.count(); got != 2 {
		t.Errorf("count() = %d, want 2", got)
	}

	reg.remove(a.id)
	if got := reg.count(); got != 1 {
		t.Errorf("count() after remove = %d, want 1", got)
	}

	// Removed inbox is closed
	if _, ok := <-a.inbox; ok {
		t.Error("removed subscriber inbox should be closed")
	}

	// Removing again is a no-op
	reg.remove(a.id)
	if got := reg.count(); got != 1 {
		t.Errorf("count() after double remove = %d, want 1", got)
	}
}

func TestRegistry_BroadcastDelivers(t *testing.T) {
	reg := newRegistry(4, testLogger())
	a := reg.add()
	b := reg.add()

	ev := testEvent("zigbee2mqtt/lamp")
	reg.broadcast(ev)

	for name, sub := range map[string]*subscriber{"a": a, "b": b} {
		select {
		case got := <-sub.inbox:
			if got.Topic != ev.Topic {
				t.Errorf("subscriber %s got topic %q, want %q", name, got.Topic, ev.Topic)
			}
		default:
			t.Errorf("subscriber %s received nothing", name)
		}
	}
}

func TestRegistry_BroadcastDropsOnFullInbox(t *testing.T) {
	reg := newRegistry(1, testLogger())
	slow := reg.add()
	fast := reg.add()

	// Fill slow's single-slot inbox, then drain fast to keep it empty
	reg.broadcast(testEvent("t/1"))
	<-fast.inbox

	// Must not block, and must still deliver to fast
	done := make(chan struct{})
	go func() {
		reg.broadcast(testEvent("t/2"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full inbox")
	}

	select {
	case got := <-fast.inbox:
		if got.Topic != "t/2" {
			t.Errorf("fast subscriber got %q, want %q", got.Topic, "t/2")
		}
	default:
		t.Error("fast subscriber missed event while slow inbox was full")
	}

	// Slow still holds the first event; the second was dropped
	if got := <-slow.inbox; got.Topic != "t/1" {
		t.Errorf("slow subscriber got %q, want %q", got.Topic, "t/1")
	}
	select {
	case got := <-slow.inbox:
		t.Errorf("slow subscriber unexpectedly received %q", got.Topic)
	default:
	}
}

func TestRegistry_CloseAll(t *testing.T) {
	reg := newRegistry(4, testLogger())
	a := reg.add()
	b := reg.add()

	reg.closeAll()

	if got := reg.count(); got != 0 {
		t.Errorf("count() after closeAll = %d, want 0", got)
	}
	for name, sub := range map[string]*subscriber{"a": a, "b": b} {
		if _, ok := <-sub.inbox; ok {
			t.Errorf("subscriber %s inbox should be closed", name)
		}
	}
}

func TestParseDataLine(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantTopic string
		wantErr   bool
	}{
		{
			name:      "valid event",
			line:      `data: {"topic":"zigbee2mqtt/lamp","payload":{"state":"ON"}}`,
			wantTopic: "zigbee2mqtt/lamp",
		},
		{
			name:      "no space after prefix",
			line:      `data:{"topic":"a/b"}`,
			wantTopic: "a/b",
		},
		{"empty payload", "data:", "", true},
		{"invalid JSON", "data: {not json", "", true},
		{"missing topic", `data: {"payload":1}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := parseDataLine([]byte(tt.line))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDataLine() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if ev.Topic != tt.wantTopic {
				t.Errorf("Topic = %q, want %q", ev.Topic, tt.wantTopic)
			}
			if !json.Valid(ev.Payload) {
				t.Error("Payload is not valid JSON")
			}
		})
	}
}

func TestParseDataLine_CopiesPayload(t *testing.T) {
	line := []byte(`data: {"topic":"a/b","n":1}`)
	ev, err := parseDataLine(line)
	if err != nil {
		t.Fatalf("parseDataLine() error = %v", err)
	}

	// Clobber the source buffer, as bufio.Scanner does between lines
	for i := range line {
		line[i] = 'x'
	}

	if !json.Valid(ev.Payload) {
		t.Error("Payload shares memory with the scanner buffer")
	}
}
