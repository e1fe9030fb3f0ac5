package devtools

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ripple-dev/ripple/pkg/metrics"
)

func waitSubscribers(t *testing.T, s *Server, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.hub.count() != want {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber count never reached %d", want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHealthz(t *testing.T) {
	s := New(nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q, want %q", body, "ok")
	}
}

func TestSnapshotCounters(t *testing.T) {
	s := New(nil)
	s.SignalWrite(1, "a")
	s.SignalWrite(2, "b")
	s.ComputedRecomputed(3, "", true, time.Millisecond)
	s.EffectRan(4, "", time.Millisecond)
	s.EffectSkipped(5, "")
	s.FlushStart(3)
	s.FlushEnd(2, 1, 1500*time.Microsecond)
	s.ScopeDisposed(6)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/snapshot")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}

	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}

	if snap.SignalWrites != 2 {
		t.Errorf("signal writes = %d, want 2", snap.SignalWrites)
	}
	if snap.ComputedRecomputes != 1 {
		t.Errorf("recomputes = %d, want 1", snap.ComputedRecomputes)
	}
	if snap.EffectRuns != 1 {
		t.Errorf("effect runs = %d, want 1", snap.EffectRuns)
	}
	if snap.EffectSkips != 1 {
		t.Errorf("effect skips = %d, want 1", snap.EffectSkips)
	}
	if snap.Flushes != 1 {
		t.Errorf("flushes = %d, want 1", snap.Flushes)
	}
	if snap.ScopeDisposals != 1 {
		t.Errorf("disposals = %d, want 1", snap.ScopeDisposals)
	}
	if snap.QueueDepth != 0 {
		t.Errorf("queue depth = %d, want 0 after flush", snap.QueueDepth)
	}
	if snap.LastFlushMicros != 1500 {
		t.Errorf("last flush = %dus, want 1500", snap.LastFlushMicros)
	}
	if snap.Subscribers != 0 {
		t.Errorf("subscribers = %d, want 0", snap.Subscribers)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.New(metrics.WithRegistry(reg), metrics.WithNamespace("dt"))
	collector.SignalWrite(1, "")

	s := New(&Config{
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), "dt_signal_writes_total 1") {
		t.Errorf("metrics body missing signal write counter:\n%s", body)
	}
}

func TestEventStream(t *testing.T) {
	s := New(&Config{SendBuffer: 8})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitSubscribers(t, s, 1)

	s.SignalWrite(7, "count")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if ev.Type != EventWrite {
		t.Errorf("event type = %q, want %q", ev.Type, EventWrite)
	}
	if ev.Node != 7 || ev.Name != "count" {
		t.Errorf("event = %+v, want node 7 name count", ev)
	}

	s.FlushStart(4)
	s.FlushEnd(3, 1, 2*time.Millisecond)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read flush event: %v", err)
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal flush event: %v", err)
	}
	if ev.Type != EventFlush {
		t.Errorf("event type = %q, want %q", ev.Type, EventFlush)
	}
	if ev.Queued != 4 || ev.Runs != 3 || ev.Skipped != 1 {
		t.Errorf("flush event = %+v, want queued 4 runs 3 skipped 1", ev)
	}
	if ev.Micros != 2000 {
		t.Errorf("flush duration = %dus, want 2000", ev.Micros)
	}
}

func TestSlowSubscriberDrops(t *testing.T) {
	h := newHub(slog.Default())
	sub := &subscriber{send: make(chan []byte, 1)}
	h.add(sub)

	// No write loop drains the channel, so the second publish overflows.
	h.publish(Event{Type: EventWrite, Node: 1})
	h.publish(Event{Type: EventWrite, Node: 2})

	if got := h.dropped.Load(); got != 1 {
		t.Errorf("dropped = %d, want 1", got)
	}
	if got := len(sub.send); got != 1 {
		t.Errorf("buffered = %d, want 1", got)
	}
}

func TestStartAndShutdown(t *testing.T) {
	s := New(&Config{Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx) }()

	var addr string
	deadline := time.Now().Add(2 * time.Second)
	for addr == "" {
		if time.Now().After(deadline) {
			t.Fatal("server never bound a listener")
		}
		addr = s.Addr()
		if addr == "" {
			time.Sleep(5 * time.Millisecond)
		}
	}

	resp, err := http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
