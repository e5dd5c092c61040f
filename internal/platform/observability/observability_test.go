package observability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cardify/api/internal/platform/requestctx"
)

func TestParseCloudTrace(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		ok      bool
		sampled bool
		span    string
	}{
		{name: "decimal span sampled", header: "105445aa7843bc8bf206b12000100000/1;o=1", ok: true, sampled: true, span: "0000000000000001"},
		{name: "hex span unsampled", header: "105445aa7843bc8bf206b12000100000/abc;o=0", ok: true, span: "0000000000000abc"},
		{name: "no options", header: "105445aa7843bc8bf206b12000100000/42", ok: true, span: "000000000000002a"},
		{name: "short trace id", header: "1054/1;o=1"},
		{name: "missing span", header: "105445aa7843bc8bf206b12000100000/;o=1"},
		{name: "empty", header: ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			sc, ok := parseCloudTrace(tc.header)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if !ok {
				return
			}
			if sc.IsSampled() != tc.sampled {
				t.Fatalf("expected sampled=%v", tc.sampled)
			}
			if sc.SpanID().String() != tc.span {
				t.Fatalf("expected span %s, got %s", tc.span, sc.SpanID())
			}
			if !sc.IsRemote() {
				t.Fatalf("expected remote span context")
			}
		})
	}
}

func TestTraceStoresTraceInfo(t *testing.T) {
	var info requestctx.TraceInfo
	h := Trace("demo-project")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, _ = requestctx.Trace(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(cloudTraceHeader, "105445aa7843bc8bf206b12000100000/1;o=1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if info.ProjectID != "demo-project" {
		t.Fatalf("expected project id, got %q", info.ProjectID)
	}
	if info.TraceID != "105445aa7843bc8bf206b12000100000" {
		t.Fatalf("expected incoming trace id to be continued, got %q", info.TraceID)
	}
}

func TestRecoveryWritesJSON500(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger := zap.New(core)

	h := InjectLogger(logger)(Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON body: %v", err)
	}
	if body["error"] != "internal_server_error" {
		t.Fatalf("unexpected error code %v", body["error"])
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Fatalf("expected panic to be logged")
	}
}

func TestRequestLoggerRecordsRouteMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics(reg)
	core, logs := observer.New(zap.InfoLevel)

	r := chi.NewRouter()
	r.Use(InjectLogger(zap.New(core)), RequestLogger(metrics))
	r.Get("/cards/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for i := 0; i < 2; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/cards/abc", nil))
	}

	got := testutil.ToFloat64(metrics.requests.WithLabelValues(http.MethodGet, "/cards/{id}", "418"))
	if got != 2 {
		t.Fatalf("expected 2 requests recorded, got %v", got)
	}
	entries := logs.FilterMessage("request completed").All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(entries))
	}
	if entries[0].Level != zap.WarnLevel {
		t.Fatalf("expected 4xx to log at warn, got %s", entries[0].Level)
	}
	if entries[0].ContextMap()["route"] != "/cards/{id}" {
		t.Fatalf("expected route pattern field, got %v", entries[0].ContextMap()["route"])
	}
}

func TestMetricsHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewHTTPMetrics(reg).observe(http.MethodGet, "/healthz", http.StatusOK, 0)

	rr := httptest.NewRecorder()
	MetricsHandler(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body := rr.Body.String(); !containsLine(body, `http_requests_total{code="200",method="GET",route="/healthz"} 1`) {
		t.Fatalf("expected counter in exposition, got:\n%s", body)
	}
}

func containsLine(body, line string) bool {
	for start := 0; start < len(body); {
		end := start
		for end < len(body) && body[end] != '\n' {
			end++
		}
		if body[start:end] == line {
			return true
		}
		start = end + 1
	}
	return false
}
