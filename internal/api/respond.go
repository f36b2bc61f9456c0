package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jogardn/grubdash/pkg/models"
	"github.com/sirupsen/logrus"
)

const internalErrorMessage = "Something went wrong!"

// HandlerFunc is one step of a handler chain. Returning an error halts the
// chain.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Handle adapts a chain to net/http and is the only place errors become
// responses.
func Handle(logger *logrus.Logger, fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			RespondWithError(logger, w, r, err)
		}
	}
}

func RespondWithError(logger *logrus.Logger, w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		logger.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": apiErr.Status,
			"error":  apiErr.Message,
		}).Debug("Request rejected")
		RespondWithJSON(w, apiErr.Status, models.ErrorResponse{Error: apiErr.Message})
		return
	}

	logger.WithError(err).WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Error("Request failed")
	RespondWithJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: internalErrorMessage})
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		code = http.StatusInternalServerError
		response = []byte(`{"error":"` + internalErrorMessage + `"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// RespondWithData writes payload inside the {"data": ...} envelope.
func RespondWithData(w http.ResponseWriter, code int, payload interface{}) {
	RespondWithJSON(w, code, models.Envelope{Data: payload})
}

// NotFoundHandler answers requests for paths no route matches.
func NotFoundHandler(logger *logrus.Logger) http.Handler {
	return Handle(logger, func(w http.ResponseWriter, r *http.Request) error {
		return NotFound("Path not found: %s", r.URL.RequestURI())
	})
}

// MethodNotAllowedHandler answers requests for a known path with a method
// the path does not support.
func MethodNotAllowedHandler(logger *logrus.Logger) http.Handler {
	return Handle(logger, func(w http.ResponseWriter, r *http.Request) error {
		return MethodNotAllowed(r.Method, r.URL.RequestURI())
	})
}
