// Package notify turns transport-level failures into user-facing toast
// notifications. It classifies each failure by HTTP status into a severity
// tier and a short human-readable message, preferring a structured message
// from the response body when the server sent one.
package notify

import (
	"context"
	"net"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/finexus/catalog-console/internal/rest"
	"github.com/finexus/catalog-console/pkg/toast"
)

// Reporter forwards classified failures to the toast service. It observes
// only: callers always receive the original failure unchanged.
type Reporter struct {
	toasts *toast.Service
}

// NewReporter creates a Reporter publishing to the given toast service.
func NewReporter(toasts *toast.Service) *Reporter {
	return &Reporter{toasts: toasts}
}

// HTTPFailure reports a request that completed with an error status. The
// body, when parseable, supplies a more specific message for validation and
// conflict classes.
func (r *Reporter) HTTPFailure(req *http.Request, status int, body []byte) {
	tier, msg := Classify(status, rest.ParseErrorBody(body))
	r.toasts.Show(msg, tier)

	zctx.From(req.Context()).Warn("HTTP failure",
		zap.Int("status", status),
		zap.String("url", req.URL.String()),
		zap.String("tier", string(tier)),
	)
}

// TransportFailure reports a request that never produced a response.
// Cancellations are not reported: the caller walked away, nothing failed.
func (r *Reporter) TransportFailure(req *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}

	tier, msg := ClassifyTransport(err)
	r.toasts.Show(msg, tier)

	zctx.From(req.Context()).Warn("Transport failure",
		zap.String("url", req.URL.String()),
		zap.Error(err),
	)
}

// Classify maps an HTTP status to a severity tier and message. For the
// validation and conflict classes (400, 409, 422) a structured message from
// the response body takes precedence over the generic one.
func Classify(status int, body *rest.ErrorBody) (toast.Tier, string) {
	switch status {
	case 0:
		return toast.TierError, "Cannot reach the server. Check your connection."
	case http.StatusBadRequest:
		return toast.TierWarning, bodyOr(body, "Invalid input. Check the submitted data.")
	case http.StatusUnauthorized:
		return toast.TierWarning, "Not authorized. Sign in again."
	case http.StatusForbidden:
		return toast.TierWarning, "You do not have permission to perform this action."
	case http.StatusNotFound:
		return toast.TierInfo, "The requested resource does not exist."
	case http.StatusConflict:
		return toast.TierWarning, bodyOr(body, "Conflict: the resource already exists or is in use.")
	case http.StatusUnprocessableEntity:
		return toast.TierWarning, bodyOr(body, "Submitted data failed validation.")
	case http.StatusTooManyRequests:
		return toast.TierWarning, "Too many requests. Wait a moment and try again."
	case http.StatusInternalServerError:
		return toast.TierError, "Internal server error. Try again later."
	case http.StatusBadGateway:
		return toast.TierError, "Server temporarily unavailable. Try again in a few minutes."
	case http.StatusServiceUnavailable:
		return toast.TierError, "Service temporarily unavailable. Try again later."
	case http.StatusGatewayTimeout:
		return toast.TierWarning, "The server timed out. Try again."
	}

	switch {
	case status >= 500:
		return toast.TierError, "Server error. Try again later."
	case status >= 400:
		return toast.TierWarning, "Request failed. Check the data and try again."
	default:
		return toast.TierError, "Unexpected error. Try again."
	}
}

// ClassifyTransport maps a transport-level error (no response at all) to a
// tier and message. Client-side timeouts rank as warnings; anything else is
// a connection failure.
func ClassifyTransport(err error) (toast.Tier, string) {
	if isTimeout(err) {
		return toast.TierWarning, "The request took too long. Try again."
	}
	return toast.TierError, "Cannot reach the server. Check your connection."
}

func bodyOr(body *rest.ErrorBody, fallback string) string {
	if msg := body.BestMessage(); msg != "" {
		return msg
	}
	return fallback
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
