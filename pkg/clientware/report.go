package clientware

import (
	"bytes"
	"io"
	"net/http"
)

// maxReportBody bounds how much of an error response the reporter may read.
const maxReportBody = 64 << 10

// FailureReporter receives every failed round trip: HTTP error statuses with
// a copy of the response body, and transport-level errors. Implementations
// must not block for long; they run on the request path.
type FailureReporter interface {
	HTTPFailure(req *http.Request, status int, body []byte)
	TransportFailure(req *http.Request, err error)
}

// ReportFailures returns a middleware that forwards failed round trips to
// the reporter. It observes only: the response (body included) and the error
// are handed to the caller unchanged. For HTTP failures the body is read up
// front and stitched back onto the response.
func ReportFailures(r FailureReporter) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err != nil {
				r.TransportFailure(req, err)
				return resp, err
			}
			if resp.StatusCode >= http.StatusBadRequest {
				data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxReportBody))
				if readErr == nil {
					rest := resp.Body
					resp.Body = readCloser{
						Reader: io.MultiReader(bytes.NewReader(data), rest),
						Closer: rest,
					}
					r.HTTPFailure(req, resp.StatusCode, data)
				} else {
					r.HTTPFailure(req, resp.StatusCode, nil)
				}
			}
			return resp, nil
		})
	}
}

// readCloser joins a replacement reader with the original body's closer.
type readCloser struct {
	io.Reader
	io.Closer
}
