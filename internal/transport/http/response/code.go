package response

import (
	"context"
	"errors"
	"net/http"

	"natours-api/internal/domain"
)

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

const msgSomethingWrong = "Something went very wrong!"

// kindStatus maps a domain error kind onto its HTTP status.
var kindStatus = map[domain.Kind]int{
	domain.KindValidation:      http.StatusBadRequest,
	domain.KindUnauthenticated: http.StatusUnauthorized,
	domain.KindForbidden:       http.StatusForbidden,
	domain.KindNotFound:        http.StatusNotFound,
	domain.KindOperational:     http.StatusInternalServerError,
}

// HTTPStatus reports the status for err and whether its message is safe to
// show a client.
func HTTPStatus(err error) (int, bool) {
	if k, ok := domain.KindOf(err); ok {
		return kindStatus[k], true
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, true
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, true
	}
	return http.StatusInternalServerError, false
}

// StatusText is the envelope status for an HTTP code.
func StatusText(code int) string {
	switch {
	case code >= 500:
		return StatusError
	case code >= 400:
		return StatusFail
	}
	return StatusSuccess
}
