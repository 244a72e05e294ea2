package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/cmlre/marine-platform/internal/metrics"
	"github.com/cmlre/marine-platform/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ = Describe("Logging", func() {
	It("should mask credentials in JSON bodies at any depth", func() {
		out := filterSensitiveBody([]byte(`{"email":"a@b.c","password":"hunter2","nested":{"api_key":"k"},"list":[{"token":"t"}]}`))

		Expect(out).To(ContainSubstring(`"email":"a@b.c"`))
		Expect(out).NotTo(ContainSubstring("hunter2"))
		Expect(out).NotTo(ContainSubstring(`"k"`))
		Expect(out).NotTo(ContainSubstring(`"t"`))
	})

	It("should mask sensitive headers", func() {
		h := http.Header{}
		h.Set("Authorization", "Bearer abc")
		h.Set("Accept", "application/json")

		filtered := filterSensitiveHeaders(h)
		Expect(filtered["Authorization"]).To(Equal("[FILTERED]"))
		Expect(filtered["Accept"]).To(Equal("application/json"))
	})

	It("should log the request without consuming the body", func() {
		var buf bytes.Buffer
		lg := slog.New(slog.NewTextHandler(&buf, nil))

		var seen string
		h := LoggingMiddleware(lg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b := new(strings.Builder)
			_, _ = io.Copy(b, r.Body)
			seen = b.String()
			w.WriteHeader(http.StatusTeapot)
		}))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"text":"hi"}`)))

		Expect(seen).To(Equal(`{"text":"hi"}`))
		Expect(buf.String()).To(ContainSubstring("status_code=418"))
		Expect(buf.String()).To(ContainSubstring("level=WARN"))
	})

	It("should skip configured paths", func() {
		var buf bytes.Buffer
		lg := slog.New(slog.NewTextHandler(&buf, nil))
		h := LoggingMiddleware(lg, "/metrics")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
		Expect(buf.Len()).To(BeZero())
	})
})

var _ = Describe("Recovery", func() {
	It("should turn a panic into a 500 without leaking the panic value", func() {
		h := RecoveryMiddleware(logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("db password is hunter2")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).To(ContainSubstring("INTERNAL_ERROR"))
		Expect(rec.Body.String()).NotTo(ContainSubstring("hunter2"))
	})
})

var _ = Describe("CORS", func() {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	It("should echo an allowed origin", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://dashboard.cmlre.gov.in")
		rec := httptest.NewRecorder()
		CORS("https://dashboard.cmlre.gov.in, https://other.example")(ok).ServeHTTP(rec, req)

		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://dashboard.cmlre.gov.in"))
	})

	It("should not allow an unlisted origin", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		CORS("https://dashboard.cmlre.gov.in")(ok).ServeHTTP(rec, req)

		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})

	It("should answer preflight requests directly", func() {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/assistant/messages", nil)
		req.Header.Set("Origin", "https://any.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		CORS("*")(ok).ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
	})
})

var _ = Describe("TraceID", func() {
	It("should propagate a caller trace id", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(TraceHeader, "trace-123")
		rec := httptest.NewRecorder()
		TraceID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rec, req)

		Expect(rec.Header().Get(TraceHeader)).To(Equal("trace-123"))
	})

	It("should mint one when absent", func() {
		rec := httptest.NewRecorder()
		TraceID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Header().Get(TraceHeader)).To(HaveLen(36))
	})
})

var _ = Describe("Metrics", func() {
	It("should count requests by route pattern and status", func() {
		_, m := metrics.NewRegistry()
		r := chi.NewRouter()
		r.Use(Metrics(m))
		r.Get("/surfaces/{surface}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusForbidden) })

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/surfaces/edna", nil))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/surfaces/otolith", nil))

		Expect(testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodGet, "/surfaces/{surface}", "403"))).To(Equal(2.0))
	})
})
