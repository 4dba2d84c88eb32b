package web

// errors.go turns handler errors into JSON responses.
//
// The technical error is logged with the request ID; the client receives the
// user message and support code from core.MapError.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/oedatamodel/internal/core"
	"github.com/JonMunkholm/oedatamodel/internal/logging"
	"github.com/JonMunkholm/oedatamodel/internal/mapping"
)

// errBodyTooLarge matches the REQ003 pattern of core.MapError.
var errBodyTooLarge = errors.New("request body too large")

// ErrorResponse is the JSON body of every API error.
// Code is machine-readable; Message and Action are for people.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes its user message with statusCode.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	log := logger.Warn
	if statusCode >= http.StatusInternalServerError {
		log = logger.Error
	}
	log("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// statusFor picks the HTTP status of a conversion error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrUnsupportedFormat),
		errors.Is(err, core.ErrInvalidBody):
		return http.StatusBadRequest
	case errors.Is(err, mapping.ErrMappingNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrMalformedSchema),
		errors.Is(err, core.ErrEmptyDataset),
		errors.Is(err, core.ErrUnmatchedIdentifier),
		errors.Is(err, core.ErrAmbiguousIdentifier),
		errors.Is(err, core.ErrUnsupportedShape),
		errors.Is(err, core.ErrHeterogeneousRows),
		errors.Is(err, mapping.ErrMappingCycle),
		errors.Is(err, mapping.ErrInvalidMapping):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
