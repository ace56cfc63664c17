package v1

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	var (
		validation *domain.ValidationError
		illegal    *domain.IllegalTransitionError
		stall      *domain.BacklogStallError
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUploadNotFound), errors.Is(err, domain.ErrContentNotFound):
		return http.StatusNotFound
	case errors.As(err, &illegal),
		errors.Is(err, domain.ErrDuplicateUpload),
		errors.Is(err, domain.ErrPhaseConflict),
		errors.Is(err, domain.ErrEncodingCancelled):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStorageUnavailable), errors.As(err, &stall):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("err", err.Error()),
		)
	}

	body := errorResponse{Error: err.Error()}
	if status == http.StatusInternalServerError {
		body.Error = http.StatusText(status)
	}

	h.writeJSON(w, r, status, body)
}
