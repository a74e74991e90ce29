package clientware

import (
	"net/http"

	"github.com/finexus/catalog-console/pkg/loading"
)

// TrackLoading returns a middleware that counts the request as in-flight on
// the given tracker for the duration of the round trip. The completion
// callback runs on every exit path, so the counter cannot leak on failures.
func TrackLoading(t *loading.Tracker) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			done := t.Begin()
			defer done()
			return next.RoundTrip(req)
		})
	}
}
