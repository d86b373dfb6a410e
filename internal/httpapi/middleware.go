package httpapi

import (
	"net/http"
	"time"

	"order-service/internal/observability"

	"github.com/go-chi/chi/v5/middleware"
)

// ServerTimingApp reports request timing to Metrics and writes an app;dur
// Server-Timing entry. Headers are immutable once the status line is out,
// so the entry is injected when the handler first writes the status and
// measures time to first byte; the Metrics observation covers the full
// handler run.
func ServerTimingApp(m observability.Metrics) func(http.Handler) http.Handler {
	if m == nil {
		m = observability.Noop{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &timingWriter{
				WrapResponseWriter: middleware.NewWrapResponseWriter(w, r.ProtoMajor),
				start:              start,
			}
			next.ServeHTTP(ww, r)
			dur := float64(time.Since(start)) / float64(time.Millisecond)
			m.ObserveHTTP(r.Method, r.URL.Path, ww.Status(), dur)
		})
	}
}

type timingWriter struct {
	middleware.WrapResponseWriter
	start time.Time
	wrote bool
}

func (t *timingWriter) WriteHeader(code int) {
	if !t.wrote {
		t.wrote = true
		dur := float64(time.Since(t.start)) / float64(time.Millisecond)
		observability.AppendServerTiming(t, "app", dur, "")
	}
	t.WrapResponseWriter.WriteHeader(code)
}

func (t *timingWriter) Write(p []byte) (int, error) {
	if !t.wrote {
		t.WriteHeader(http.StatusOK)
	}
	return t.WrapResponseWriter.Write(p)
}
