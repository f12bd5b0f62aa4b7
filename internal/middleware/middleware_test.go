package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"audio-merger/internal/metrics"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("failed to read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

// captureLogger returns a logger whose output is collected in lines.
func captureLogger(config LoggingConfig) (*W3CLogger, *[]string) {
	var lines []string
	l := NewW3CLogger(config)
	l.printf = func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}
	return l, &lines
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func TestNewResponseWriter(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())

	if rw.statusCode != http.StatusOK {
		t.Errorf("Expected default status code 200, got %d", rw.statusCode)
	}
	if rw.bytesWritten != 0 {
		t.Errorf("Expected bytesWritten to be 0, got %d", rw.bytesWritten)
	}
	if rw.wroteHeader {
		t.Error("Expected wroteHeader to be false initially")
	}
}

func TestResponseWriterWriteHeader(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)

	if rw.statusCode != http.StatusNotFound {
		t.Errorf("Status code should stay 404, got %d", rw.statusCode)
	}
	if w.Code != http.StatusNotFound {
		t.Errorf("Recorder code = %d, want 404", w.Code)
	}
}

func TestResponseWriterWrite(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())

	data := []byte("test data")
	n, err := rw.Write(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n != len(data) {
		t.Errorf("Expected to write %d bytes, wrote %d", len(data), n)
	}
	if rw.bytesWritten != int64(len(data)) {
		t.Errorf("Expected bytesWritten to be %d, got %d", len(data), rw.bytesWritten)
	}
	if !rw.wroteHeader {
		t.Error("Expected wroteHeader to be true after Write")
	}
	if rw.Unwrap() == nil {
		t.Error("Unwrap returned nil")
	}
}

func TestDefaultLoggingConfig(t *testing.T) {
	config := DefaultLoggingConfig()

	if config.ServiceName != DefaultServiceName {
		t.Errorf("ServiceName = %q", config.ServiceName)
	}
	if config.LogStaticFiles {
		t.Error("Expected LogStaticFiles to be false by default")
	}
	if !config.LogHealthChecks {
		t.Error("Expected LogHealthChecks to be true by default")
	}
	for _, ext := range config.SkipExtensions {
		if ext == ".mp3" {
			t.Error("merged downloads must not be skipped")
		}
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "/merge", "/merge"},
		{"newline", "a\nb", "a b"},
		{"carriage return", "a\r\nb", "a  b"},
		{"null byte", "a\x00b", "ab"},
		{"ansi escape", "\x1b[31mred", "[31mred"},
		{"bell", "a\x07b", "ab"},
		{"tab kept", "a\tb", "a\tb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeLogField(tt.input); got != tt.want {
				t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEscapeW3CField(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"curl/8.0", "curl/8.0"},
		{"Mozilla/5.0 (X11)", `"Mozilla/5.0 (X11)"`},
		{`say "hi"`, `"say ""hi"""`},
	}

	for _, tt := range tests {
		if got := escapeW3CField(tt.input); got != tt.want {
			t.Errorf("escapeW3CField(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "10.0.0.1:5555", "10.0.0.1"},
		{"forwarded single", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "10.0.0.1:5555", "1.2.3.4"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"}, "10.0.0.1:5555", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": "9.9.9.9"}, "10.0.0.1:5555", "9.9.9.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShouldSkip(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		config LoggingConfig
		want   bool
	}{
		{"merge logged", "/merge", DefaultLoggingConfig(), false},
		{"download logged", "/download/abc/merged_audio_1.mp3", DefaultLoggingConfig(), false},
		{"static css skipped", "/css/style.css", DefaultLoggingConfig(), true},
		{"static css kept when enabled", "/css/style.css", LoggingConfig{LogStaticFiles: true, SkipExtensions: []string{".css"}}, false},
		{"uppercase extension", "/JS/APP.JS", DefaultLoggingConfig(), true},
		{"health kept", "/health", LoggingConfig{LogHealthChecks: true}, false},
		{"health skipped", "/readyz", LoggingConfig{LogHealthChecks: false}, true},
		{"explicit prefix", "/internal/debug", LoggingConfig{SkipPaths: []string{"/internal"}, LogHealthChecks: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldSkip(tt.path, tt.config); got != tt.want {
				t.Errorf("shouldSkip(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestLoggerWritesW3CLine(t *testing.T) {
	l, lines := captureLogger(DefaultLoggingConfig())
	handler := RequestID(l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	})))

	req := httptest.NewRequest(http.MethodPost, "/upload?x=1", http.NoBody)
	req.Header.Set("User-Agent", "test agent\nforged")
	req.Header.Set(RequestIDHeader, "req-42")
	req.RemoteAddr = "192.0.2.7:1234"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if len(*lines) != 4 {
		t.Fatalf("got %d lines, want 3 directives and 1 entry: %q", len(*lines), *lines)
	}
	if (*lines)[0] != "#Software: "+DefaultServiceName {
		t.Errorf("first directive = %q", (*lines)[0])
	}
	if !strings.HasPrefix((*lines)[2], "#Fields: date time") {
		t.Errorf("fields directive = %q", (*lines)[2])
	}

	entry := (*lines)[3]
	for _, want := range []string{"192.0.2.7", "POST", "/upload", "x=1", " 201 5 ", "req-42", `"test agent forged"`} {
		if !strings.Contains(entry, want) {
			t.Errorf("entry %q missing %q", entry, want)
		}
	}
	if strings.Contains(entry, "\n") {
		t.Error("entry contains a newline")
	}

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/merge", http.NoBody))
	if len(*lines) != 5 {
		t.Errorf("directives should be written once, got %d lines", len(*lines))
	}
}

func TestLoggerSkipsConfiguredRequests(t *testing.T) {
	config := DefaultLoggingConfig()
	config.LogHealthChecks = false
	l, lines := captureLogger(config)
	handler := l.Middleware(http.HandlerFunc(okHandler))

	for _, path := range []string{"/health", "/js/app.js"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		if w.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, w.Code)
		}
	}
	if len(*lines) != 0 {
		t.Errorf("expected no log lines, got %q", *lines)
	}
}

func TestLoggerMissingFieldsUseDash(t *testing.T) {
	l, _ := captureLogger(DefaultLoggingConfig())
	req := httptest.NewRequest(http.MethodGet, "/version", http.NoBody)
	req.Header.Del("User-Agent")

	line := l.formatLine(time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC), req, newResponseWriter(httptest.NewRecorder()), 1500*time.Millisecond)
	want := "2024-05-01 12:30:00 192.0.2.1 GET /version - 200 0 1500 - - -"
	if line != want {
		t.Errorf("line = %q, want %q", line, want)
	}
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name    string
		inbound string
		reuse   bool
	}{
		{"generated", "", false},
		{"reused", "abc-123_x.y", true},
		{"too long", strings.Repeat("a", maxRequestIDLength+1), false},
		{"bad characters", "abc def", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen, _ = RequestIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.inbound != "" {
				req.Header.Set(RequestIDHeader, tt.inbound)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if seen == "" {
				t.Fatal("no request id in context")
			}
			if got := w.Header().Get(RequestIDHeader); got != seen {
				t.Errorf("response header %q != context %q", got, seen)
			}
			if tt.reuse && seen != tt.inbound {
				t.Errorf("id = %q, want inbound %q", seen, tt.inbound)
			}
			if !tt.reuse && seen == tt.inbound {
				t.Errorf("inbound id %q should have been replaced", tt.inbound)
			}
		})
	}
}

func TestRequestIDFromContextEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	if _, ok := RequestIDFromContext(req.Context()); ok {
		t.Error("expected no id")
	}
	if ctx := WithRequestID(req.Context(), ""); ctx != req.Context() {
		t.Error("empty id should not wrap the context")
	}
}

func TestDefaultMetricsConfig(t *testing.T) {
	config := DefaultMetricsConfig()

	want := map[string]bool{"/metrics": true, "/health": true, "/healthz": true, "/livez": true, "/readyz": true}
	if len(config.SkipPaths) != len(want) {
		t.Errorf("SkipPaths = %v", config.SkipPaths)
	}
	for _, p := range config.SkipPaths {
		if !want[p] {
			t.Errorf("unexpected skip path %q", p)
		}
	}
}

func TestMetricsResponseWriter(t *testing.T) {
	w := httptest.NewRecorder()
	mrw := newMetricsResponseWriter(w)

	if mrw.statusCode != http.StatusOK {
		t.Errorf("default status = %d", mrw.statusCode)
	}

	mrw.WriteHeader(http.StatusCreated)
	mrw.WriteHeader(http.StatusTeapot)
	if mrw.statusCode != http.StatusCreated {
		t.Errorf("status = %d, want 201", mrw.statusCode)
	}
	if _, err := mrw.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}
	if w.Body.String() != "x" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestNormalizePath(t *testing.T) {
	const id = "3f2504e0-4f89-41d3-9a0c-0305e82c3301"

	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"root", "/", "/"},
		{"upload", "/upload", "/upload"},
		{"merge", "/merge", "/merge"},
		{"download", "/download/" + id + "/merged_audio_1700000000.mp3", "/download/{session_id}/{filename}"},
		{"download with garbage id", "/download/not-a-uuid/x.mp3", "/download/{session_id}/{filename}"},
		{"download extra segments", "/download/" + id + "/a/b", "/download/{session_id}/{filename}/{path}"},
		{"download prefix only", "/download/", "/download/"},
		{"cleanup", "/cleanup/" + id, "/cleanup/{session_id}"},
		{"session info", "/api/sessions/" + id, "/api/sessions/{session_id}"},
		{"uuid elsewhere", "/x/" + id, "/x/{id}"},
		{"deep path", "/a/b/c/d/e/f", "/a/b/c/{path}"},
		{"static asset", "/js/app.js", "/js/app.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizePath(tt.path); got != tt.expected {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.expected)
			}
		})
	}
}

func TestNormalizePathCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		seen[normalizePath(fmt.Sprintf("/download/session-%d/merged_audio_%d.mp3", i, i))] = true
		seen[normalizePath(fmt.Sprintf("/cleanup/session-%d", i))] = true
	}
	if len(seen) != 2 {
		t.Errorf("expected 2 distinct labels, got %d: %v", len(seen), seen)
	}
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Metrics(DefaultMetricsConfig()))
	router.HandleFunc("/download/{session_id}/{filename}", okHandler).Methods(http.MethodGet)

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/download/{session_id}/{filename}", "200")
	before := counterValue(t, counter)

	for _, name := range []string{"a.mp3", "b.mp3", "c.mp3"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/download/s1/"+name, http.NoBody))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
	}

	if got := counterValue(t, counter) - before; got != 3 {
		t.Errorf("counter delta = %v, want 3", got)
	}
}

func TestMetricsMiddlewareStatusCode(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"200 OK", http.StatusOK},
		{"400 Bad Request", http.StatusBadRequest},
		{"404 Not Found", http.StatusNotFound},
		{"409 Conflict", http.StatusConflict},
		{"413 Request Entity Too Large", http.StatusRequestEntityTooLarge},
		{"500 Internal Server Error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Metrics(MetricsConfig{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))

			counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/merge", fmt.Sprint(tt.statusCode))
			before := counterValue(t, counter)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/merge", http.NoBody))

			if w.Code != tt.statusCode {
				t.Errorf("Expected status code %d, got %d", tt.statusCode, w.Code)
			}
			if got := counterValue(t, counter) - before; got != 1 {
				t.Errorf("counter delta = %v, want 1", got)
			}
		})
	}
}

func TestMetricsMiddlewareSkipPaths(t *testing.T) {
	handler := Metrics(DefaultMetricsConfig())(http.HandlerFunc(okHandler))

	tests := []struct {
		path     string
		recorded bool
	}{
		{"/metrics", false},
		{"/healthz", false},
		{"/health", false},
		{"/healthcheck-report", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, tt.path, "200")
			before := counterValue(t, counter)

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))

			delta := counterValue(t, counter) - before
			if tt.recorded && delta != 1 {
				t.Errorf("expected %s to be recorded", tt.path)
			}
			if !tt.recorded && delta != 0 {
				t.Errorf("expected %s to be skipped", tt.path)
			}
		})
	}
}

func BenchmarkLogger(b *testing.B) {
	l := NewW3CLogger(DefaultLoggingConfig())
	l.printf = func(string, ...any) {}
	handler := l.Middleware(http.HandlerFunc(okHandler))
	req := httptest.NewRequest(http.MethodGet, "/merge", http.NoBody)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}
