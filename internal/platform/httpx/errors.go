package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/quadro/internal/shared"
)

// RespondError maps domain errors to enveloped HTTP responses.
func RespondError(w http.ResponseWriter, err error) {
	var verr *shared.ValidationError
	switch {
	case errors.As(err, &verr):
		Data(w, http.StatusBadRequest, verr.Msg)
	case errors.Is(err, shared.ErrValidation):
		Data(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrBusy):
		Data(w, http.StatusServiceUnavailable, "store rebuild in progress")
	default:
		Data(w, http.StatusInternalServerError, "internal server error")
	}
}
