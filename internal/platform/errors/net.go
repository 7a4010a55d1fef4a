package errors

// Transport classification used by the feed client retry policy

import (
	"context"
	stderrs "errors"
	"net"
	"net/http"
)

// FromStatus maps a non-success HTTP status from an upstream into a coded error
// 404 keeps NotFound underneath the network code so callers can tell a missing page apart
func FromStatus(status int, uri string) error {
	switch {
	case status == http.StatusNotFound:
		return Wrapf(NotFoundf("%s not found", uri), ErrorCodeNetwork, "GET %s: status %d", uri, status)
	case status == http.StatusTooManyRequests:
		return Wrapf(New(ErrorCodeTooManyRequests, "rate limited"), ErrorCodeNetwork, "GET %s: status %d", uri, status)
	case status == http.StatusRequestTimeout, status >= 500:
		return Wrapf(New(ErrorCodeUnavailable, http.StatusText(status)), ErrorCodeNetwork, "GET %s: status %d", uri, status)
	default:
		return Networkf("GET %s: status %d", uri, status)
	}
}

// IsTransient reports whether a transport level failure may succeed on retry
// Local cancellation is never transient
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	if HasCode(err, ErrorCodeUnavailable) || HasCode(err, ErrorCodeTooManyRequests) {
		return true
	}
	var nerr net.Error
	if stderrs.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	var oerr *net.OpError
	return stderrs.As(err, &oerr)
}
