package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/domain"
)

const (
	codeNotFound            = "not_found"
	codeEventNotFound       = "event_not_found"
	codeTimeSlotNotFound    = "time_slot_not_found"
	codeTicketNotFound      = "ticket_not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeValidationFailed    = "validation_failed"
	codeEventNotBookable    = "event_not_bookable"
	codeSoldOut             = "sold_out"
	codeIdempotencyConflict = "idempotency_conflict"
	codeAlreadyCancelled    = "already_cancelled"
	codeAlreadyCheckedIn    = "already_checked_in"
	codeNotCancellable      = "not_cancellable"
	codeNotCheckable        = "not_checkable"
	codeInvalidTransition   = "invalid_status_transition"
	codeBusy                = "busy"
	codeUnauthenticated     = "unauthenticated"
	codeForbidden           = "forbidden"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("encode response")
	}
}

// respondError maps domain errors to the API's status and reason codes.
// Unrecognized errors become a generic 500; the detail stays in the
// server log.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEventNotFound):
		writeError(w, http.StatusNotFound, codeEventNotFound, err.Error())
	case errors.Is(err, domain.ErrTimeSlotNotFound):
		writeError(w, http.StatusNotFound, codeTimeSlotNotFound, err.Error())
	case errors.Is(err, domain.ErrTicketNotFound):
		writeError(w, http.StatusNotFound, codeTicketNotFound, err.Error())
	case errors.Is(err, domain.ErrEventNotBookable):
		writeError(w, http.StatusConflict, codeEventNotBookable, err.Error())
	case errors.Is(err, domain.ErrSoldOut), errors.Is(err, domain.ErrInsufficientCapacity):
		writeError(w, http.StatusConflict, codeSoldOut, err.Error())
	case errors.Is(err, domain.ErrIdempotencyConflict):
		writeError(w, http.StatusConflict, codeIdempotencyConflict, err.Error())
	case errors.Is(err, domain.ErrAlreadyCancelled):
		writeError(w, http.StatusConflict, codeAlreadyCancelled, err.Error())
	case errors.Is(err, domain.ErrAlreadyCheckedIn):
		writeError(w, http.StatusConflict, codeAlreadyCheckedIn, err.Error())
	case errors.Is(err, domain.ErrNotCancellable):
		writeError(w, http.StatusConflict, codeNotCancellable, err.Error())
	case errors.Is(err, domain.ErrNotCheckable):
		writeError(w, http.StatusConflict, codeNotCheckable, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, codeInvalidTransition, err.Error())
	case errors.Is(err, domain.ErrBusy):
		writeError(w, http.StatusServiceUnavailable, codeBusy, err.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, codeForbidden, err.Error())
	case errors.Is(err, domain.ErrUnknownToken):
		logrus.WithError(err).Error("reservation token lifecycle violation")
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	case isValidationErr(err):
		writeError(w, http.StatusUnprocessableEntity, codeValidationFailed, err.Error())
	default:
		logrus.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func isValidationErr(err error) bool {
	for _, v := range []error{
		domain.ErrInvalidID,
		domain.ErrInvalidQuantity,
		domain.ErrIdempotencyKeyRequired,
		domain.ErrTitleRequired,
		domain.ErrArtistRequired,
		domain.ErrInvalidCapacity,
		domain.ErrInvalidPrice,
		domain.ErrInvalidTimeRange,
		domain.ErrSlotOutsideEvent,
		domain.ErrInvalidStatus,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
