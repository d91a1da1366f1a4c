package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/liquidation-portal/pkg/logger"
)

// maxLoggedBody caps how much of a JSON body ends up in a log record.
const maxLoggedBody = 4 << 10

// redactedKeys match header names and JSON keys case-insensitively by substring.
var redactedKeys = []string{
	"password",
	"token",
	"authorization",
	"cookie",
	"secret",
	"api_key",
	"credential",
}

// LoggingMiddleware logs one record when a request arrives and one when it
// completes. Records carry the fields RequestID put on the context. Receipt
// and workbook uploads are summarised by size instead of dumped.
func LoggingMiddleware(base *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lg := logger.Enrich(r.Context(), base)

			var reqBody []byte
			if r.Body != nil && loggable(r.Header.Get("Content-Type")) {
				reqBody, _ = io.ReadAll(r.Body)
				r.Body = io.NopCloser(bytes.NewReader(reqBody))
			}
			lg.InfoContext(r.Context(), "incoming request",
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"headers", redactHeaders(r.Header),
				"body", describeBody(r.Header.Get("Content-Type"), reqBody, r.ContentLength),
			)

			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.status()
			lg.Log(r.Context(), levelFor(status), "response",
				"status_code", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", rec.size,
				"body", describeBody(rec.Header().Get("Content-Type"), rec.body.Bytes(), int64(rec.size)),
			)
		})
	}
}

// recorder keeps the status and a bounded copy of what the handler wrote.
type recorder struct {
	http.ResponseWriter
	code int
	size int
	body bytes.Buffer
}

func (rw *recorder) WriteHeader(code int) {
	if rw.code == 0 {
		rw.code = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recorder) Write(b []byte) (int, error) {
	if room := maxLoggedBody - rw.body.Len(); room > 0 {
		rw.body.Write(b[:min(room, len(b))])
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

func (rw *recorder) status() int {
	if rw.code == 0 {
		return http.StatusOK
	}
	return rw.code
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// loggable reports whether a body is JSON, the only kind worth buffering.
func loggable(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

func describeBody(contentType string, body []byte, size int64) string {
	if !loggable(contentType) {
		mediaType, _, _ := mime.ParseMediaType(contentType)
		if strings.HasPrefix(mediaType, "multipart/") {
			return fmt.Sprintf("[upload %d bytes]", size)
		}
		return fmt.Sprintf("[binary %d bytes]", size)
	}
	if len(body) == 0 {
		return ""
	}
	return redactJSON(body)
}

func isRedacted(name string) bool {
	name = strings.ToLower(name)
	for _, key := range redactedKeys {
		if strings.Contains(name, key) {
			return true
		}
	}
	return false
}

func redactHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isRedacted(name) {
			out[name] = "[FILTERED]"
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func redactJSON(body []byte) string {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		if isRedacted(string(body)) {
			return "[FILTERED]"
		}
		if len(body) >= maxLoggedBody {
			return string(body) + "...(truncated)"
		}
		return string(body)
	}
	out, err := json.Marshal(redactValue(doc))
	if err != nil {
		return "[unprintable]"
	}
	return string(out)
}

func redactValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			if isRedacted(key) {
				out[key] = "[FILTERED]"
				continue
			}
			out[key] = redactValue(value)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = redactValue(item)
		}
		return out
	default:
		return v
	}
}
