package httpkit

import (
	"net/http"

	apperrors "manimq/internal/pkg/errors"
)

// WriteError maps a coded error onto an HTTP response. Errors without a
// code are reported as a generic 500 so internal detail never leaks to
// the caller.
func WriteError(w http.ResponseWriter, err error) {
	var e *apperrors.Error
	if !apperrors.As(err, &e) {
		WriteErr(w, http.StatusInternalServerError, string(apperrors.CodeInternal), "internal server error")
		return
	}

	msg := e.Message
	if msg == "" {
		msg = e.Error()
	}
	WriteErr(w, e.HTTPStatus(), string(e.Code), msg)
}
