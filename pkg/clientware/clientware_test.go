package clientware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finexus/catalog-console/pkg/loading"
)

func TestWrap_Order(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(req)
			})
		}
	}

	base := roundTripperFunc(func(*http.Request) (*http.Response, error) {
		order = append(order, "base")
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})

	rt := Wrap(base, tag("outer"), tag("inner"))
	req := httptest.NewRequest(http.MethodGet, "http://example.test/", nil)
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "base"}, order)
}

func TestRequestID_SetsHeader(t *testing.T) {
	var seen string
	base := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		seen = req.Header.Get("X-Request-ID")
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})

	rt := Wrap(base, RequestID())
	req := httptest.NewRequest(http.MethodGet, "http://example.test/", nil)
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.NotEmpty(t, seen)
	// The original request must stay untouched.
	assert.Empty(t, req.Header.Get("X-Request-ID"))
}

func TestRequestID_KeepsExistingHeader(t *testing.T) {
	var seen string
	base := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		seen = req.Header.Get("X-Request-ID")
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})

	rt := Wrap(base, RequestID())
	req := httptest.NewRequest(http.MethodGet, "http://example.test/", nil)
	req.Header.Set("X-Request-ID", "caller-chosen")
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, "caller-chosen", seen)
}

func TestTrackLoading(t *testing.T) {
	tracker := loading.New()

	base := roundTripperFunc(func(*http.Request) (*http.Response, error) {
		assert.Equal(t, 1, tracker.Active())
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})

	rt := Wrap(base, TrackLoading(tracker))
	req := httptest.NewRequest(http.MethodGet, "http://example.test/", nil)
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, 0, tracker.Active())
}

func TestTrackLoading_DecrementsOnError(t *testing.T) {
	tracker := loading.New()

	base := roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	})

	rt := Wrap(base, TrackLoading(tracker))
	req := httptest.NewRequest(http.MethodGet, "http://example.test/", nil)
	_, err := rt.RoundTrip(req)
	require.Error(t, err)
	assert.Equal(t, 0, tracker.Active())
}

// spyReporter records reported failures.
type spyReporter struct {
	mu         sync.Mutex
	statuses   []int
	bodies     []string
	transports []error
}

func (s *spyReporter) HTTPFailure(_ *http.Request, status int, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
	s.bodies = append(s.bodies, string(body))
}

func (s *spyReporter) TransportFailure(_ *http.Request, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transports = append(s.transports, err)
}

func TestReportFailures_HTTPFailure(t *testing.T) {
	spy := &spyReporter{}
	base := roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusUnprocessableEntity,
			Body:       io.NopCloser(strings.NewReader(`{"message":"price must be positive"}`)),
		}, nil
	})

	rt := Wrap(base, ReportFailures(spy))
	req := httptest.NewRequest(http.MethodGet, "http://example.test/", nil)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)

	require.Equal(t, []int{http.StatusUnprocessableEntity}, spy.statuses)
	assert.Contains(t, spy.bodies[0], "price must be positive")

	// The caller still gets the full body.
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"price must be positive"}`, string(data))
}

func TestReportFailures_TransportFailure(t *testing.T) {
	spy := &spyReporter{}
	base := roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	})

	rt := Wrap(base, ReportFailures(spy))
	req := httptest.NewRequest(http.MethodGet, "http://example.test/", nil)
	_, err := rt.RoundTrip(req)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Len(t, spy.transports, 1)
}

func TestReportFailures_SuccessIsSilent(t *testing.T) {
	spy := &spyReporter{}
	base := roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})

	rt := Wrap(base, ReportFailures(spy))
	req := httptest.NewRequest(http.MethodGet, "http://example.test/", nil)
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Empty(t, spy.statuses)
	assert.Empty(t, spy.transports)
}
