package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safar/storefront/internal/logging"
)

const (
	RequestIDHeader = "X-Request-Id"
	bodyLimit       = 8 * 1024
)

// sensitive keys are masked wherever they appear in a logged JSON body
var sensitive = map[string]bool{
	"number":        true,
	"cvv":           true,
	"password":      true,
	"token":         true,
	"authorization": true,
}

type bodyLogWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *bodyLogWriter) Write(b []byte) (int, error) {
	if remain := bodyLimit - w.buf.Len(); remain > 0 {
		if len(b) > remain {
			w.buf.Write(b[:remain])
		} else {
			w.buf.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

func redactJSON(raw []byte) []byte {
	if len(raw) == 0 {
		return raw
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	out, err := json.Marshal(scrub(v))
	if err != nil {
		return raw
	}
	return out
}

func scrub(x any) any {
	switch v := x.(type) {
	case map[string]any:
		for k, val := range v {
			if sensitive[strings.ToLower(k)] {
				v[k] = "***"
				continue
			}
			v[k] = scrub(val)
		}
	case []any:
		for i := range v {
			v[i] = scrub(v[i])
		}
	}
	return x
}

// Logging attaches a request-scoped logger carrying the request id and logs one
// line per request with redacted JSON bodies.
func Logging(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(RequestIDHeader, reqID)

		l := base.With(
			"req_id", reqID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"remote", c.ClientIP(),
		)
		logging.With(c, l)

		var reqBody string
		if strings.Contains(c.GetHeader("Content-Type"), "application/json") && c.Request.Body != nil {
			raw, err := io.ReadAll(c.Request.Body)
			_ = c.Request.Body.Close()
			if err == nil {
				c.Request.Body = io.NopCloser(bytes.NewReader(raw))
				if len(raw) > bodyLimit {
					raw = raw[:bodyLimit]
				}
				reqBody = string(redactJSON(raw))
			}
		}

		blw := &bodyLogWriter{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = blw

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"status", status,
			"dur_ms", time.Since(start).Milliseconds(),
			"resp_bytes", c.Writer.Size(),
		}
		if reqBody != "" {
			attrs = append(attrs, "req_body", reqBody)
		}
		if strings.Contains(c.Writer.Header().Get("Content-Type"), "application/json") && blw.buf.Len() > 0 {
			attrs = append(attrs, "resp_body", string(redactJSON(blw.buf.Bytes())))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}

		if status >= http.StatusInternalServerError {
			l.Error("http_request", attrs...)
			return
		}
		l.Info("http_request", attrs...)
	}
}
