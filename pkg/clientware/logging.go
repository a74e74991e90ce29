package clientware

import (
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// LogRequests returns a middleware that logs every outbound request with its
// method, URL, status, and duration. The logger is taken from the request
// context (zctx), so request-scoped fields propagate automatically.
func LogRequests() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)
			elapsed := time.Since(start)

			lg := zctx.From(req.Context())
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("url", req.URL.String()),
				zap.Duration("duration", elapsed),
			}
			switch {
			case err != nil:
				lg.Warn("Request failed", append(fields, zap.Error(err))...)
			case resp.StatusCode >= http.StatusBadRequest:
				lg.Warn("Request rejected", append(fields, zap.Int("status", resp.StatusCode))...)
			default:
				lg.Debug("Request completed", append(fields, zap.Int("status", resp.StatusCode))...)
			}
			return resp, err
		})
	}
}
