package integration_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ripple-dev/ripple"
	"github.com/ripple-dev/ripple/pkg/devtools"
	"github.com/ripple-dev/ripple/pkg/metrics"
)

// newInstrumentedServer wires a metrics collector and an inspector server
// into the runtime the way an application would, on an isolated Prometheus
// registry so test runs do not collide.
func newInstrumentedServer(t *testing.T) *devtools.Server {
	t.Helper()

	reg := prometheus.NewRegistry()
	collector := metrics.New(metrics.WithRegistry(reg), metrics.WithNamespace("integ"))
	srv := devtools.New(&devtools.Config{
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	ripple.SetInstrumentation(ripple.CombineInstrumentation(collector, srv))
	t.Cleanup(func() { ripple.SetInstrumentation(nil) })
	return srv
}

// driveRuntime produces a known amount of reactive traffic: one signal
// write, two effect runs (creation plus rerun), and one flush.
func driveRuntime(t *testing.T) {
	t.Helper()

	count := ripple.NewSignal(0, ripple.Named("integ.count"))
	e := ripple.CreateEffect(func() ripple.Cleanup {
		_ = count.Get()
		return nil
	}, ripple.EffectName("integ.watcher"))
	defer e.Dispose()

	count.Set(1)
	ripple.FlushSync()
}

// TestChiRouterIntegration mounts the inspector inside an application's
// chi router next to its own routes.
func TestChiRouterIntegration(t *testing.T) {
	srv := newInstrumentedServer(t)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/api/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Mount("/debug/ripple", srv.Handler())

	driveRuntime(t)

	t.Run("API health endpoint", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/health", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		if rec.Body.String() != "OK" {
			t.Errorf("expected OK, got %s", rec.Body.String())
		}
	})

	t.Run("middleware chain executes", func(t *testing.T) {
		middlewareExecuted := false

		trackingRouter := chi.NewRouter()
		trackingRouter.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				middlewareExecuted = true
				next.ServeHTTP(w, req)
			})
		})
		trackingRouter.Mount("/debug/ripple", srv.Handler())

		req := httptest.NewRequest("GET", "/debug/ripple/healthz", nil)
		rec := httptest.NewRecorder()
		trackingRouter.ServeHTTP(rec, req)

		if !middlewareExecuted {
			t.Error("expected middleware to execute before the inspector handler")
		}
		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("snapshot reflects runtime traffic", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/debug/ripple/snapshot", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}

		var snap devtools.Snapshot
		if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
			t.Fatalf("decoding snapshot: %v", err)
		}
		if snap.SignalWrites < 1 {
			t.Errorf("expected at least 1 signal write, got %d", snap.SignalWrites)
		}
		if snap.EffectRuns < 2 {
			t.Errorf("expected at least 2 effect runs, got %d", snap.EffectRuns)
		}
		if snap.Flushes < 1 {
			t.Errorf("expected at least 1 flush, got %d", snap.Flushes)
		}
	})

	t.Run("metrics endpoint exposes runtime series", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/debug/ripple/metrics", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, "integ_signal_writes_total") {
			t.Errorf("expected the write counter in the exposition, got:\n%s", body)
		}
		if !strings.Contains(body, "integ_effect_runs_total") {
			t.Errorf("expected the effect-run counter in the exposition, got:\n%s", body)
		}
	})
}

// TestStdlibMuxIntegration mounts the inspector under a stdlib ServeMux.
func TestStdlibMuxIntegration(t *testing.T) {
	srv := devtools.New(nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("api"))
	})
	mux.Handle("/", srv.Handler())

	t.Run("API route works", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/test", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Body.String() != "api" {
			t.Errorf("expected api, got %s", rec.Body.String())
		}
	})

	t.Run("inspector handler mounted", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/healthz", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		if rec.Body.String() != "ok" {
			t.Errorf("expected ok, got %s", rec.Body.String())
		}
	})
}
