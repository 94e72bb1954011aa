package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rewired-gh/lottosmart/internal/logger"
	"github.com/rewired-gh/lottosmart/internal/models"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// envelope is the body of every successful response.
type envelope map[string]any

func ok(data any) envelope {
	return envelope{"success": true, "data": data}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("error encoding response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

// respondErr maps a service error onto a status. Validation, not-found and
// conflict messages are ours and safe to return; anything unexpected is
// logged and answered with a generic message.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidGame),
		errors.Is(err, models.ErrInvalidStrategy),
		errors.Is(err, models.ErrInvalidBet),
		errors.Is(err, models.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrBetNotFound), errors.Is(err, models.ErrDrawNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrDuplicateBet):
		respondError(w, http.StatusConflict, models.ErrDuplicateBet.Error())
	case errors.Is(err, models.ErrUpstreamUnavailable):
		logger.Warn("%s %s: %v", r.Method, r.URL.Path, err)
		respondError(w, http.StatusServiceUnavailable, models.ErrUpstreamUnavailable.Error())
	default:
		logger.Error("%s %s: %v", r.Method, r.URL.Path, err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// intParam reads an optional integer query parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", models.ErrInvalidRequest, name, raw)
	}
	return v, nil
}
