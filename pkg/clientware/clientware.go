// Package clientware provides composable http.RoundTripper middleware for
// outbound API requests: request identifiers, request logging, in-flight
// tracking, and failure reporting.
//
// Middleware observes every request that leaves the process, regardless of
// which component issued it, and never alters the outcome: responses and
// errors pass through unchanged.
package clientware

import "net/http"

// Middleware wraps an http.RoundTripper with additional behaviour.
type Middleware func(http.RoundTripper) http.RoundTripper

// roundTripperFunc adapts a function to the http.RoundTripper interface.
type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Wrap applies middleware to a base transport. The first middleware is the
// outermost: it sees the request first and the response last. A nil base
// uses http.DefaultTransport.
func Wrap(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}
