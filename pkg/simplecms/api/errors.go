package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes an error
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// statusFor maps service errors to HTTP status codes and error codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, simplecms.ErrContentNotFound),
		errors.Is(err, simplecms.ErrGalleryImageNotFound),
		errors.Is(err, simplecms.ErrContactMessageNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, simplecms.ErrValidation), errors.Is(err, simplecms.ErrInvalidEntityType):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, simplecms.ErrStoreUnavailable), errors.Is(err, simplecms.ErrAssetStoreUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status, code := statusFor(err)
	body := ErrorBody{Code: code, Message: err.Error()}

	var verr *simplecms.ValidationError
	if errors.As(err, &verr) {
		body.Field = verr.Field
	}
	if status >= http.StatusInternalServerError {
		slog.Error(msg, "path", r.URL.Path, "error", err)
		if status == http.StatusInternalServerError {
			body.Message = http.StatusText(status)
		}
	} else {
		slog.Debug(msg, "path", r.URL.Path, "error", err)
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: body})
}

func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Error: ErrorBody{Code: "invalid_request", Message: message}})
}
