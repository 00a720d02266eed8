package events

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/home-panel-core/internal/infrastructure/config"
)

// streamServer is a controllable fake of the MQTT gateway SSE endpoint.
type streamServer struct {
	*httptest.Server

	mu      sync.Mutex
	clients []chan string

	gotAuth chan [2]string
}

func newStreamServer(t *testing.T) *streamServer {
	t.Helper()

	s := &streamServer{gotAuth: make(chan [2]string, 8)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ := r.BasicAuth()
		s.gotAuth <- [2]string{user, pass}

		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Error("response writer does not support flushing")
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		lines := make(chan string, 16)
		s.mu.Lock()
		s.clients = append(s.clients, lines)
		s.mu.Unlock()

		for {
			select {
			case line, open := <-lines:
				if !open {
					return
				}
				fmt.Fprintf(w, "%s\n", line)
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	}))
	t.Cleanup(s.Close)
	return s
}

// send writes a raw line to every connected client.
func (s *streamServer) send(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		c <- line
	}
}

// dropClients closes every open stream, forcing the reader to reconnect.
func (s *streamServer) dropClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		close(c)
	}
	s.clients = nil
}

// waitForClient blocks until at least n clients have connected.
func (s *streamServer) waitForClient(t *testing.T, n int) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		s.mu.Lock()
		got := len(s.clients)
		s.mu.Unlock()
		if got >= n {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d stream clients", n)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func testStreamConfig(url string) config.StreamConfig {
	return config.StreamConfig{
		URL:               url,
		Username:          "panel",
		Password:          "panel-pass",
		BufferSize:        100,
		KeepaliveInterval: 1,
		ReconnectInterval: 1,
	}
}

func startTestPool(t *testing.T, cfg config.StreamConfig) *Pool {
	t.Helper()
	pool := NewPool(cfg, testLogger())
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(pool.Stop)
	return pool
}

func TestPool_DeliversEvents(t *testing.T) {
	srv := newStreamServer(t)
	pool := startTestPool(t, testStreamConfig(srv.URL))

	sub, err := pool.Subscribe("zigbee2mqtt/*")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	srv.waitForClient(t, 1)
	srv.send(`data: {"topic":"zigbee2mqtt/lamp","payload":{"state":"ON"}}`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if ev == nil {
		t.Fatal("Next() returned keepalive, want event")
	}
	if ev.Topic != "zigbee2mqtt/lamp" {
		t.Errorf("Topic = %q, want %q", ev.Topic, "zigbee2mqtt/lamp")
	}
	if ev.Timestamp.IsZero() {
		t.Error("Timestamp is zero")
	}
}

func TestPool_SendsBasicAuth(t *testing.T) {
	srv := newStreamServer(t)
	startTestPool(t, testStreamConfig(srv.URL))

	select {
	case creds := <-srv.gotAuth:
		if creds[0] != "panel" || creds[1] != "panel-pass" {
			t.Errorf("basic auth = %q/%q, want panel/panel-pass", creds[0], creds[1])
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reader never connected")
	}
}

func TestPool_FilterDrainsMismatches(t *testing.T) {
	srv := newStreamServer(t)
	pool := startTestPool(t, testStreamConfig(srv.URL))

	sub, err := pool.Subscribe("automation/*")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	srv.waitForClient(t, 1)
	srv.send(`data: {"topic":"zigbee2mqtt/lamp"}`)
	srv.send(`data: {"topic":"automation/run"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if ev == nil || ev.Topic != "automation/run" {
		t.Fatalf("Next() = %v, want automation/run event", ev)
	}
}

func TestPool_KeepaliveMarker(t *testing.T) {
	srv := newStreamServer(t)
	pool := startTestPool(t, testStreamConfig(srv.URL))

	sub, err := pool.Subscribe("never/matches")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	ev, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if ev != nil {
		t.Fatalf("Next() = %v, want keepalive marker (nil, nil)", ev)
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Errorf("keepalive arrived after %v, want ~1s", elapsed)
	}
}

func TestPool_SurvivesMalformedLines(t *testing.T) {
	srv := newStreamServer(t)
	pool := startTestPool(t, testStreamConfig(srv.URL))

	sub, err := pool.Subscribe("")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	srv.waitForClient(t, 1)
	srv.send(`data: {broken json`)
	srv.send(`: comment line`)
	srv.send(`data: {"payload":"no topic"}`)
	srv.send(`data: {"topic":"ok/after/garbage"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if ev == nil || ev.Topic != "ok/after/garbage" {
		t.Fatalf("Next() = %v, want ok/after/garbage event", ev)
	}
}

func TestPool_ReconnectsAfterDisconnect(t *testing.T) {
	srv := newStreamServer(t)
	pool := startTestPool(t, testStreamConfig(srv.URL))

	sub, err := pool.Subscribe("")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	srv.waitForClient(t, 1)
	srv.dropClients()

	// Reader retries on a fixed interval and connects again
	srv.waitForClient(t, 1)
	srv.send(`data: {"topic":"after/reconnect"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if ev == nil {
			continue // keepalive while reconnecting
		}
		if ev.Topic != "after/reconnect" {
			t.Fatalf("Topic = %q, want after/reconnect", ev.Topic)
		}
		return
	}
}

func TestPool_StartIdempotent(t *testing.T) {
	srv := newStreamServer(t)
	pool := startTestPool(t, testStreamConfig(srv.URL))

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	srv.waitForClient(t, 1)

	// A second Start must not spawn a second reader
	time.Sleep(100 * time.Millisecond)
	srv.mu.Lock()
	clients := len(srv.clients)
	srv.mu.Unlock()
	if clients != 1 {
		t.Errorf("%d upstream connections, want exactly 1", clients)
	}
}

func TestPool_StopClosesSubscriptions(t *testing.T) {
	srv := newStreamServer(t)
	pool := NewPool(testStreamConfig(srv.URL), testLogger())
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	sub, err := pool.Subscribe("")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	pool.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := sub.Next(ctx); !errors.Is(err, ErrSubscriptionClosed) {
		t.Errorf("Next() after Stop error = %v, want ErrSubscriptionClosed", err)
	}

	// Stop again is a no-op
	pool.Stop()

	// Subscribe after Stop lazily brings the pool back up
	resub, err := pool.Subscribe("")
	if err != nil {
		t.Fatalf("Subscribe() after Stop error = %v", err)
	}
	if err := pool.HealthCheck(ctx); errors.Is(err, ErrPoolStopped) {
		t.Error("pool still stopped after Subscribe")
	}
	resub.Close()
	pool.Stop()

	// Close after Stop is safe
	sub.Close()
}

func TestPool_LazySubscribeStartsReader(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	pool := NewPool(testStreamConfig(srv.URL), testLogger())
	t.Cleanup(pool.Stop)

	// Concurrent first subscribes on a never-started pool must all
	// succeed and launch exactly one reader.
	const subscribers = 5
	var wg sync.WaitGroup
	errs := make(chan error, subscribers)
	subs := make(chan *Subscription, subscribers)
	for i := 0; i < subscribers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub, err := pool.Subscribe("")
			if err != nil {
				errs <- err
				return
			}
			subs <- sub
		}()
	}
	wg.Wait()
	close(errs)
	close(subs)

	for err := range errs {
		t.Errorf("Subscribe() error = %v", err)
	}
	for sub := range subs {
		defer sub.Close()
	}

	deadline := time.After(5 * time.Second)
	for attempts.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("reader never dialed upstream")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// The connection is held open, so any further attempt would mean a
	// second reader.
	time.Sleep(150 * time.Millisecond)
	if got := attempts.Load(); got != 1 {
		t.Errorf("upstream connection attempts = %d, want exactly 1", got)
	}
	if got := pool.SubscriberCount(); got != subscribers {
		t.Errorf("SubscriberCount() = %d, want %d", got, subscribers)
	}
}

func TestPool_Restartable(t *testing.T) {
	srv := newStreamServer(t)
	pool := NewPool(testStreamConfig(srv.URL), testLogger())

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	pool.Stop()

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("restart Start() error = %v", err)
	}
	defer pool.Stop()

	sub, err := pool.Subscribe("")
	if err != nil {
		t.Fatalf("Subscribe() after restart error = %v", err)
	}
	defer sub.Close()

	srv.waitForClient(t, 1)
	srv.send(`data: {"topic":"restarted"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if ev != nil {
			if ev.Topic != "restarted" {
				t.Fatalf("Topic = %q, want restarted", ev.Topic)
			}
			return
		}
	}
}

func TestPool_NextContextCancel(t *testing.T) {
	srv := newStreamServer(t)
	pool := startTestPool(t, testStreamConfig(srv.URL))

	sub, err := pool.Subscribe("")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := sub.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Next() error = %v, want context.Canceled", err)
	}
}

func TestPool_SubscriptionCloseIdempotent(t *testing.T) {
	srv := newStreamServer(t)
	pool := startTestPool(t, testStreamConfig(srv.URL))

	sub, err := pool.Subscribe("")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	sub.Close()
	sub.Close()

	if got := pool.SubscriberCount(); got != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", got)
	}
}

func TestPool_HealthCheck(t *testing.T) {
	srv := newStreamServer(t)
	pool := NewPool(testStreamConfig(srv.URL), testLogger())

	if err := pool.HealthCheck(context.Background()); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("HealthCheck() on stopped pool = %v, want ErrPoolStopped", err)
	}

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer pool.Stop()

	srv.waitForClient(t, 1)

	deadline := time.After(5 * time.Second)
	for {
		if err := pool.HealthCheck(context.Background()); err == nil {
			return
		}
		select {
		case <-deadline:
			t.Fatal("HealthCheck() never reported healthy after connect")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
